package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// schemaStatements 建表语句（幂等）
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS sensor_readings (
		reading_id  UUID PRIMARY KEY,
		plot_id     TEXT NOT NULL,
		sensor_type TEXT NOT NULL,
		value       NUMERIC(7,3) NOT NULL,
		source      TEXT NOT NULL,
		timestamp   TIMESTAMPTZ NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sensor_readings_plot_sensor_ts
		ON sensor_readings (plot_id, sensor_type, timestamp)`,
	`CREATE TABLE IF NOT EXISTS anomaly_events (
		event_id          UUID PRIMARY KEY,
		plot_id           TEXT NOT NULL,
		source_reading_id UUID NULL UNIQUE REFERENCES sensor_readings (reading_id),
		timestamp         TIMESTAMPTZ NOT NULL,
		anomaly_type      TEXT NOT NULL,
		severity          TEXT NOT NULL,
		model_confidence  DOUBLE PRECISION NOT NULL,
		details           JSONB NOT NULL DEFAULT '{}'::jsonb,
		created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_anomaly_events_plot_ts
		ON anomaly_events (plot_id, timestamp)`,
}

// EnsureSchema 创建读数表与异常事件表
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}
