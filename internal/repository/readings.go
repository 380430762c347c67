package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"cropwatch-anomaly/internal/models"
)

// ReadingRepository 传感器读数仓库（Postgres）
type ReadingRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewReadingRepository 创建读数仓库
func NewReadingRepository(db *sql.DB, logger *zap.Logger) *ReadingRepository {
	return &ReadingRepository{
		db:     db,
		logger: logger,
	}
}

// CreateReading 写入读数
func (r *ReadingRepository) CreateReading(ctx context.Context, reading *models.Reading) error {
	if reading == nil {
		return fmt.Errorf("reading is required")
	}
	if err := reading.Validate(); err != nil {
		return fmt.Errorf("invalid reading: %w", err)
	}

	query := `
		INSERT INTO sensor_readings (
			reading_id,
			plot_id,
			sensor_type,
			value,
			source,
			timestamp
		) VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.ExecContext(ctx,
		query,
		reading.ID,
		reading.PlotID,
		string(reading.SensorType),
		reading.Value,
		string(reading.Source),
		reading.Timestamp,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return fmt.Errorf("%w: reading_id=%s", ErrDuplicateReading, reading.ID)
		}
		return fmt.Errorf("failed to create sensor reading: %w", err)
	}

	return nil
}

// GetReading 根据 reading_id 获取读数
func (r *ReadingRepository) GetReading(ctx context.Context, readingID string) (*models.Reading, error) {
	if readingID == "" {
		return nil, fmt.Errorf("reading_id is required")
	}

	query := `
		SELECT
			reading_id,
			plot_id,
			sensor_type,
			value,
			source,
			timestamp
		FROM sensor_readings
		WHERE reading_id = $1
	`

	var reading models.Reading
	var sensorType, source string
	err := r.db.QueryRowContext(ctx, query, readingID).Scan(
		&reading.ID,
		&reading.PlotID,
		&sensorType,
		&reading.Value,
		&source,
		&reading.Timestamp,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("sensor reading %w: reading_id=%s", ErrNotFound, readingID)
		}
		return nil, fmt.Errorf("failed to get sensor reading: %w", err)
	}

	reading.SensorType = models.SensorType(sensorType)
	reading.Source = models.Source(source)
	return &reading, nil
}

// RecentReadings 查询历史基线窗口
// 子查询按时间倒序取最近 limit 条，外层恢复升序
func (r *ReadingRepository) RecentReadings(ctx context.Context, plotID string, sensorType models.SensorType, before time.Time, window time.Duration, limit int) ([]models.HistoryPoint, error) {
	if plotID == "" {
		return nil, fmt.Errorf("plot_id is required")
	}
	if sensorType == "" {
		return nil, fmt.Errorf("sensor_type is required")
	}
	if limit <= 0 {
		return []models.HistoryPoint{}, nil
	}

	query := `
		SELECT timestamp, value
		FROM (
			SELECT timestamp, value
			FROM sensor_readings
			WHERE plot_id = $1
			  AND sensor_type = $2
			  AND timestamp >= $3
			  AND timestamp < $4
			ORDER BY timestamp DESC
			LIMIT $5
		) recent
		ORDER BY timestamp ASC
	`

	rows, err := r.db.QueryContext(ctx, query, plotID, string(sensorType), before.Add(-window), before, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent readings: %w", err)
	}
	defer rows.Close()

	points := []models.HistoryPoint{}
	for rows.Next() {
		var ts time.Time
		var value decimal.Decimal
		if err := rows.Scan(&ts, &value); err != nil {
			return nil, fmt.Errorf("failed to scan reading: %w", err)
		}
		points = append(points, models.HistoryPoint{
			Timestamp: ts,
			Value:     value.InexactFloat64(),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate readings: %w", err)
	}

	r.logger.Debug("Loaded reading history",
		zap.String("plot_id", plotID),
		zap.String("sensor_type", string(sensorType)),
		zap.Int("count", len(points)),
	)

	return points, nil
}
