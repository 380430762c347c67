// Package pipeline 在读数持久化之后同步执行检测与记录
package pipeline

import (
	"context"
	"time"

	"cropwatch-anomaly/internal/models"
)

// HistorySource 历史读数来源（读数存储）
type HistorySource interface {
	RecentReadings(ctx context.Context, plotID string, sensorType models.SensorType, before time.Time, window time.Duration, limit int) ([]models.HistoryPoint, error)
}

// AnomalyRecorder 异常事件记录器
type AnomalyRecorder interface {
	ExistsForReading(ctx context.Context, readingID string) (bool, error)
	CreateAnomalyEvent(ctx context.Context, event *models.AnomalyEvent) error
}

// Detector 检测器
type Detector interface {
	Detect(reading models.Reading, history []models.HistoryPoint) models.DetectionResult
}

// Sink 检测结论的下游（最新结论缓存、异常事件流等）
// event 仅在记录了异常事件时非空
type Sink interface {
	OnDetection(ctx context.Context, reading models.Reading, result models.DetectionResult, event *models.AnomalyEvent) error
}

// Outcome 单条读数的处理结果
type Outcome struct {
	Skipped bool                    // 已存在异常事件，未重新检测
	Result  *models.DetectionResult // 检测结论（Skipped 时为空）
	Event   *models.AnomalyEvent    // 记录的异常事件（非异常时为空）
}

// SinkFunc 函数形式的 Sink
type SinkFunc func(ctx context.Context, reading models.Reading, result models.DetectionResult, event *models.AnomalyEvent) error

// OnDetection 实现 Sink
func (f SinkFunc) OnDetection(ctx context.Context, reading models.Reading, result models.DetectionResult, event *models.AnomalyEvent) error {
	return f(ctx, reading, result, event)
}
