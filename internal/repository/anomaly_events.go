package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"cropwatch-anomaly/internal/models"
)

// AnomalyEventRepository 异常事件仓库（Postgres）
type AnomalyEventRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAnomalyEventRepository 创建异常事件仓库
func NewAnomalyEventRepository(db *sql.DB, logger *zap.Logger) *AnomalyEventRepository {
	return &AnomalyEventRepository{
		db:     db,
		logger: logger,
	}
}

// CreateAnomalyEvent 写入异常事件
// source_reading_id 唯一约束冲突时返回 ErrDuplicateEvent
func (r *AnomalyEventRepository) CreateAnomalyEvent(ctx context.Context, event *models.AnomalyEvent) error {
	if event == nil {
		return fmt.Errorf("event is required")
	}
	if event.EventID == "" {
		return fmt.Errorf("event_id is required")
	}
	if event.PlotID == "" {
		return fmt.Errorf("plot_id is required")
	}

	details, err := json.Marshal(event.Details)
	if err != nil {
		return fmt.Errorf("failed to marshal details: %w", err)
	}

	query := `
		INSERT INTO anomaly_events (
			event_id,
			plot_id,
			source_reading_id,
			timestamp,
			anomaly_type,
			severity,
			model_confidence,
			details,
			created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err = r.db.ExecContext(ctx,
		query,
		event.EventID,
		event.PlotID,
		event.SourceReadingID,
		event.Timestamp,
		string(event.AnomalyType),
		string(event.Severity),
		event.Confidence,
		details,
		event.CreatedAt,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return fmt.Errorf("%w: event_id=%s", ErrDuplicateEvent, event.EventID)
		}
		return fmt.Errorf("failed to create anomaly event: %w", err)
	}

	r.logger.Debug("Anomaly event created",
		zap.String("event_id", event.EventID),
		zap.String("plot_id", event.PlotID),
		zap.String("anomaly_type", string(event.AnomalyType)),
	)

	return nil
}

// ExistsForReading 该读数是否已有异常事件
func (r *AnomalyEventRepository) ExistsForReading(ctx context.Context, readingID string) (bool, error) {
	if readingID == "" {
		return false, fmt.Errorf("reading_id is required")
	}

	query := `SELECT EXISTS (SELECT 1 FROM anomaly_events WHERE source_reading_id = $1)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, readingID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check anomaly event: %w", err)
	}
	return exists, nil
}

// ListByReadingIDs 批量查询读数关联的异常事件
func (r *AnomalyEventRepository) ListByReadingIDs(ctx context.Context, readingIDs []string) ([]models.AnomalyEvent, error) {
	if len(readingIDs) == 0 {
		return []models.AnomalyEvent{}, nil
	}

	query := `
		SELECT
			event_id,
			plot_id,
			source_reading_id,
			timestamp,
			anomaly_type,
			severity,
			model_confidence,
			details,
			created_at
		FROM anomaly_events
		WHERE source_reading_id = ANY($1)
		ORDER BY timestamp ASC
	`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(readingIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to list anomaly events: %w", err)
	}
	defer rows.Close()

	events := []models.AnomalyEvent{}
	for rows.Next() {
		var event models.AnomalyEvent
		var sourceReadingID sql.NullString
		var anomalyType, severity string
		var details []byte

		if err := rows.Scan(
			&event.EventID,
			&event.PlotID,
			&sourceReadingID,
			&event.Timestamp,
			&anomalyType,
			&severity,
			&event.Confidence,
			&details,
			&event.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan anomaly event: %w", err)
		}

		if sourceReadingID.Valid {
			id := sourceReadingID.String
			event.SourceReadingID = &id
		}
		event.AnomalyType = models.AnomalyType(anomalyType)
		event.Severity = models.Severity(severity)

		if len(details) > 0 {
			if err := json.Unmarshal(details, &event.Details); err != nil {
				return nil, fmt.Errorf("failed to unmarshal details: %w", err)
			}
		}

		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate anomaly events: %w", err)
	}

	return events, nil
}
