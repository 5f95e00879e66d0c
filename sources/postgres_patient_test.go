package sources

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newPatientDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

func TestPatientSource_Retrieve(t *testing.T) {
	t.Parallel()

	db, mock := newPatientDB(t)
	src := NewPostgresPatientSource(db, "patient-42", nil)

	recordedAt := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "patient_id", "record_type", "summary", "recorded_at"}).
		AddRow(1, "patient-42", "diagnosis", "Type 2 diabetes mellitus, diagnosed 2021.", recordedAt).
		AddRow(2, "patient-42", "medication", "Metformin 500mg twice daily.", recordedAt.Add(-24*time.Hour))

	mock.ExpectQuery(`SELECT \* FROM "patient_records" WHERE patient_id = \$1`).
		WillReturnRows(rows)

	res, err := src.Retrieve(context.Background(), "diabetes medication history", "local", 5)
	require.NoError(t, err)

	assert.Equal(t, 2, res.RetrievalCount)
	assert.Contains(t, res.Answer, "Type 2 diabetes mellitus")
	assert.Contains(t, res.Answer, "Metformin 500mg")
	require.Len(t, res.Context, 2)
	assert.Equal(t, "[2026-03-14] diagnosis: Type 2 diabetes mellitus, diagnosed 2021.", res.Context[0])

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPatientSource_NoRecords(t *testing.T) {
	t.Parallel()

	db, mock := newPatientDB(t)
	src := NewPostgresPatientSource(db, "patient-7", nil)

	mock.ExpectQuery(`SELECT \* FROM "patient_records"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "patient_id", "record_type", "summary", "recorded_at"}))

	res, err := src.Retrieve(context.Background(), "any prior surgeries", "local", 5)
	require.NoError(t, err)
	assert.Empty(t, res.Answer)
	assert.Zero(t, res.RetrievalCount)
}

func TestPatientSource_QueryError(t *testing.T) {
	t.Parallel()

	db, mock := newPatientDB(t)
	src := NewPostgresPatientSource(db, "patient-7", nil)

	mock.ExpectQuery(`SELECT \* FROM "patient_records"`).
		WillReturnError(assert.AnError)

	_, err := src.Retrieve(context.Background(), "allergies", "local", 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "patient query failed")
}
