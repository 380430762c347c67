package models

import (
	"time"
)

// AnomalyEvent 异常事件（对应 anomaly_events 表）
// 每条触发读数至多一个事件，由调用方在检测前保证
type AnomalyEvent struct {
	EventID         string           `json:"event_id" db:"event_id"`
	PlotID          string           `json:"plot_id" db:"plot_id"`
	SourceReadingID *string          `json:"source_reading_id,omitempty" db:"source_reading_id"` // 非读数触发时为空
	Timestamp       time.Time        `json:"timestamp" db:"timestamp"`
	AnomalyType     AnomalyType      `json:"anomaly_type" db:"anomaly_type"`
	Severity        Severity         `json:"severity" db:"severity"`
	Confidence      float64          `json:"model_confidence" db:"model_confidence"`
	Details         DetectionDetails `json:"details" db:"details"` // JSONB
	CreatedAt       time.Time        `json:"created_at" db:"created_at"`
}
