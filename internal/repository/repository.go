package repository

import (
	"context"
	"errors"
	"time"

	"cropwatch-anomaly/internal/models"
)

var (
	// ErrNotFound 记录不存在
	ErrNotFound = errors.New("not found")
	// ErrDuplicateEvent 同一读数已存在异常事件
	ErrDuplicateEvent = errors.New("anomaly event already exists for reading")
	// ErrDuplicateReading 读数 ID 重复
	ErrDuplicateReading = errors.New("reading already exists")
)

// ReadingStore 读数存储
// Postgres 与内存实现遵循相同契约
type ReadingStore interface {
	CreateReading(ctx context.Context, reading *models.Reading) error
	GetReading(ctx context.Context, readingID string) (*models.Reading, error)
	// RecentReadings 返回 [before-window, before) 内最近的 limit 条读数，按时间升序
	RecentReadings(ctx context.Context, plotID string, sensorType models.SensorType, before time.Time, window time.Duration, limit int) ([]models.HistoryPoint, error)
}

// AnomalyEventStore 异常事件存储
type AnomalyEventStore interface {
	CreateAnomalyEvent(ctx context.Context, event *models.AnomalyEvent) error
	ExistsForReading(ctx context.Context, readingID string) (bool, error)
	ListByReadingIDs(ctx context.Context, readingIDs []string) ([]models.AnomalyEvent, error)
}
