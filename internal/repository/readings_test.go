package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"cropwatch-anomaly/internal/models"
)

func setupMockReadingsDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *ReadingRepository) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	logger := zap.NewNop()
	repo := NewReadingRepository(db, logger)

	return db, mock, repo
}

// ============================================
// 读数写入
// ============================================

func TestCreateReading_Success(t *testing.T) {
	db, mock, repo := setupMockReadingsDB(t)
	defer db.Close()

	ctx := context.Background()
	ts := time.Now().UTC()
	reading := models.NewReading(uuid.New().String(), "plot-1", models.SensorTypeMoisture, 42.12345, ts, models.SourceRealSensor)

	mock.ExpectExec(`INSERT INTO sensor_readings`).
		WithArgs(reading.ID, "plot-1", "moisture", "42.123", "real_sensor", ts).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.CreateReading(ctx, &reading)
	require.NoError(t, err)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateReading_Duplicate(t *testing.T) {
	db, mock, repo := setupMockReadingsDB(t)
	defer db.Close()

	reading := models.NewReading(uuid.New().String(), "plot-1", models.SensorTypeHumidity, 55, time.Now(), models.SourceSimulator)

	mock.ExpectExec(`INSERT INTO sensor_readings`).
		WillReturnError(&pq.Error{Code: "23505"})

	err := repo.CreateReading(context.Background(), &reading)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicateReading))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateReading_Invalid(t *testing.T) {
	db, mock, repo := setupMockReadingsDB(t)
	defer db.Close()

	err := repo.CreateReading(context.Background(), nil)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "reading is required")

	reading := models.NewReading("", "plot-1", models.SensorTypeHumidity, 55, time.Now(), models.SourceSimulator)
	err = repo.CreateReading(context.Background(), &reading)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "reading id is required")

	// 校验失败不访问数据库
	require.NoError(t, mock.ExpectationsWereMet())
}

// ============================================
// 读数查询
// ============================================

func TestGetReading_Success(t *testing.T) {
	db, mock, repo := setupMockReadingsDB(t)
	defer db.Close()

	readingID := uuid.New().String()
	ts := time.Now().UTC()

	rows := sqlmock.NewRows([]string{"reading_id", "plot_id", "sensor_type", "value", "source", "timestamp"}).
		AddRow(readingID, "plot-1", "temperature", "31.500", "simulator", ts)

	mock.ExpectQuery(`SELECT`).
		WithArgs(readingID).
		WillReturnRows(rows)

	reading, err := repo.GetReading(context.Background(), readingID)
	require.NoError(t, err)
	assert.Equal(t, readingID, reading.ID)
	assert.Equal(t, models.SensorTypeTemperature, reading.SensorType)
	assert.Equal(t, models.SourceSimulator, reading.Source)
	assert.Equal(t, 31.5, reading.Float())
	assert.Equal(t, ts, reading.Timestamp)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetReading_NotFound(t *testing.T) {
	db, mock, repo := setupMockReadingsDB(t)
	defer db.Close()

	readingID := uuid.New().String()
	mock.ExpectQuery(`SELECT`).
		WithArgs(readingID).
		WillReturnError(sql.ErrNoRows)

	reading, err := repo.GetReading(context.Background(), readingID)
	assert.Error(t, err)
	assert.Nil(t, reading)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Contains(t, err.Error(), "not found")

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetReading_EmptyID(t *testing.T) {
	db, _, repo := setupMockReadingsDB(t)
	defer db.Close()

	_, err := repo.GetReading(context.Background(), "")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "reading_id is required")
}

// ============================================
// 历史基线查询
// ============================================

func TestRecentReadings_Success(t *testing.T) {
	db, mock, repo := setupMockReadingsDB(t)
	defer db.Close()

	before := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	t1 := before.Add(-2 * time.Hour)
	t2 := before.Add(-1 * time.Hour)

	rows := sqlmock.NewRows([]string{"timestamp", "value"}).
		AddRow(t1, "60.100").
		AddRow(t2, "59.900")

	mock.ExpectQuery(`SELECT timestamp, value`).
		WithArgs("plot-1", "moisture", before.Add(-24*time.Hour), before, 50).
		WillReturnRows(rows)

	points, err := repo.RecentReadings(context.Background(), "plot-1", models.SensorTypeMoisture, before, 24*time.Hour, 50)
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, t1, points[0].Timestamp)
	assert.Equal(t, 60.1, points[0].Value)
	assert.Equal(t, t2, points[1].Timestamp)
	assert.Equal(t, 59.9, points[1].Value)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecentReadings_QueryError(t *testing.T) {
	db, mock, repo := setupMockReadingsDB(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT timestamp, value`).
		WillReturnError(errors.New("connection reset"))

	points, err := repo.RecentReadings(context.Background(), "plot-1", models.SensorTypeMoisture, time.Now(), time.Hour, 50)
	assert.Error(t, err)
	assert.Nil(t, points)
	assert.Contains(t, err.Error(), "failed to query recent readings")

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecentReadings_InvalidArgs(t *testing.T) {
	db, mock, repo := setupMockReadingsDB(t)
	defer db.Close()

	_, err := repo.RecentReadings(context.Background(), "", models.SensorTypeMoisture, time.Now(), time.Hour, 50)
	assert.Error(t, err)

	_, err = repo.RecentReadings(context.Background(), "plot-1", "", time.Now(), time.Hour, 50)
	assert.Error(t, err)

	points, err := repo.RecentReadings(context.Background(), "plot-1", models.SensorTypeMoisture, time.Now(), time.Hour, 0)
	require.NoError(t, err)
	assert.Empty(t, points)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	for range schemaStatements {
		mock.ExpectExec(`CREATE`).WillReturnResult(sqlmock.NewResult(0, 0))
	}

	require.NoError(t, EnsureSchema(context.Background(), db))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureSchema_Error(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS sensor_readings`).
		WillReturnError(errors.New("permission denied"))

	err = EnsureSchema(context.Background(), db)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to ensure schema")
	require.NoError(t, mock.ExpectationsWereMet())
}
