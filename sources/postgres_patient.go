package sources

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/BaSui01/medgraph/types"
)

// PatientRecord 是患者历史库中的一条记录。
type PatientRecord struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	PatientID  string    `gorm:"size:64;index;not null" json:"patient_id"`
	RecordType string    `gorm:"size:32;index" json:"record_type"` // diagnosis / medication / lab / note
	Summary    string    `gorm:"type:text;not null" json:"summary"`
	RecordedAt time.Time `gorm:"index" json:"recorded_at"`
}

// TableName 指定表名。
func (PatientRecord) TableName() string { return "patient_records" }

// InitPatientSchema 初始化患者记录表结构。
func InitPatientSchema(db *gorm.DB) error {
	if err := db.AutoMigrate(&PatientRecord{}); err != nil {
		return fmt.Errorf("failed to auto migrate patient schema: %w", err)
	}
	return nil
}

// OpenPatientDB 用已有的 *sql.DB 连接打开 GORM 句柄。
// 连接池参数由调用方在 sqlDB 上设置。
func OpenPatientDB(sqlDB *sql.DB) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{})
}

// PostgresPatientSource 检索指定患者的历史记录。
// 问题文本只决定检索词；患者范围由构造时绑定的 patientID 决定，
// 避免跨患者的数据泄漏。
type PostgresPatientSource struct {
	db        *gorm.DB
	patientID string
	logger    *zap.Logger
}

// NewPostgresPatientSource 创建患者历史来源。
func NewPostgresPatientSource(db *gorm.DB, patientID string, logger *zap.Logger) *PostgresPatientSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PostgresPatientSource{
		db:        db,
		patientID: patientID,
		logger:    logger.With(zap.String("component", "patient_source")),
	}
}

// Retrieve 实现 retrieval.SourceClient。
// 命中按记录时间倒序，最近的记录最相关。
func (s *PostgresPatientSource) Retrieve(ctx context.Context, question, mode string, topK int) (*types.RawSourceResult, error) {
	tx := s.db.WithContext(ctx).
		Model(&PatientRecord{}).
		Where("patient_id = ?", s.patientID)

	words := queryWords(question)
	if len(words) > 0 {
		conds := make([]string, 0, len(words))
		args := make([]interface{}, 0, len(words))
		for _, w := range words {
			conds = append(conds, "LOWER(summary) LIKE ?")
			args = append(args, "%"+w+"%")
		}
		tx = tx.Where(strings.Join(conds, " OR "), args...)
	}

	var records []PatientRecord
	if err := tx.Order("recorded_at DESC").Limit(topK).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("patient query failed: %w", err)
	}

	result := &types.RawSourceResult{RetrievalCount: len(records)}
	summaries := make([]string, 0, len(records))
	for _, r := range records {
		line := fmt.Sprintf("[%s] %s: %s", r.RecordedAt.Format("2006-01-02"), r.RecordType, r.Summary)
		result.Context = append(result.Context, line)
		summaries = append(summaries, r.Summary)
	}
	if len(summaries) > 0 {
		result.Answer = strings.Join(summaries, " ")
	}

	s.logger.Debug("patient retrieval",
		zap.String("patient_id", s.patientID),
		zap.String("mode", mode),
		zap.Int("hits", len(records)))
	return result, nil
}
