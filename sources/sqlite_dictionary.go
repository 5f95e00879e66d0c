package sources

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/BaSui01/medgraph/types"
)

// DictionaryTerm 是医学词典的一条术语记录。
// Relations 存放以换行分隔的关系行，每行形如 "Insulin -> regulates -> blood glucose"。
type DictionaryTerm struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	Term       string `gorm:"uniqueIndex;size:256;not null" json:"term"`
	Definition string `gorm:"type:text;not null" json:"definition"`
	Relations  string `gorm:"type:text" json:"relations"`
	Category   string `gorm:"size:64;index" json:"category"`
}

// TableName 指定表名。
func (DictionaryTerm) TableName() string { return "dictionary_terms" }

// InitDictionarySchema 初始化词典表结构。
// 支持: PostgreSQL, SQLite
func InitDictionarySchema(db *gorm.DB) error {
	if err := db.AutoMigrate(&DictionaryTerm{}); err != nil {
		return fmt.Errorf("failed to auto migrate dictionary schema: %w", err)
	}
	return nil
}

// SQLiteDictionarySource 从关系库词典中检索术语定义与图谱关系。
// 问题按词切分后对 term 做前缀匹配，命中按术语长度升序
// （更短的术语通常是更通用的概念，排前面）。
type SQLiteDictionarySource struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewSQLiteDictionarySource 创建词典来源。
func NewSQLiteDictionarySource(db *gorm.DB, logger *zap.Logger) *SQLiteDictionarySource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SQLiteDictionarySource{
		db:     db,
		logger: logger.With(zap.String("component", "dictionary_source")),
	}
}

// Retrieve 实现 retrieval.SourceClient。
func (s *SQLiteDictionarySource) Retrieve(ctx context.Context, question, mode string, topK int) (*types.RawSourceResult, error) {
	words := queryWords(question)
	if len(words) == 0 {
		return &types.RawSourceResult{}, nil
	}

	tx := s.db.WithContext(ctx).Model(&DictionaryTerm{})
	for i, w := range words {
		cond := "LOWER(term) LIKE ?"
		if i == 0 {
			tx = tx.Where(cond, w+"%")
		} else {
			tx = tx.Or(cond, w+"%")
		}
	}

	var terms []DictionaryTerm
	if err := tx.Order("LENGTH(term) ASC").Limit(topK).Find(&terms).Error; err != nil {
		return nil, fmt.Errorf("dictionary query failed: %w", err)
	}

	result := &types.RawSourceResult{RetrievalCount: len(terms)}
	for _, t := range terms {
		result.Context = append(result.Context, fmt.Sprintf("%s: %s", t.Term, t.Definition))
		for _, rel := range strings.Split(t.Relations, "\n") {
			rel = strings.TrimSpace(rel)
			if rel != "" {
				result.Context = append(result.Context, rel)
			}
		}
	}
	if len(terms) > 0 {
		result.Answer = fmt.Sprintf("%s: %s", terms[0].Term, terms[0].Definition)
	}

	s.logger.Debug("dictionary retrieval",
		zap.String("mode", mode),
		zap.Int("words", len(words)),
		zap.Int("hits", len(terms)))
	return result, nil
}

// queryWords 把问题拆成小写查询词，丢弃过短的停用词式片段。
func queryWords(question string) []string {
	fields := strings.Fields(strings.ToLower(question))
	words := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, ".,!?;:\"'()")
		if len(f) >= 3 {
			words = append(words, f)
		}
	}
	return words
}
