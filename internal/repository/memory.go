package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"cropwatch-anomaly/internal/models"
)

// MemoryReadingStore 内存读数存储（评估运行、测试）
type MemoryReadingStore struct {
	mu       sync.RWMutex
	readings map[string]models.Reading
	series   map[string][]models.Reading // plot_id|sensor_type -> 读数
}

// NewMemoryReadingStore 创建内存读数存储
func NewMemoryReadingStore() *MemoryReadingStore {
	return &MemoryReadingStore{
		readings: make(map[string]models.Reading),
		series:   make(map[string][]models.Reading),
	}
}

func seriesKey(plotID string, sensorType models.SensorType) string {
	return plotID + "|" + string(sensorType)
}

// CreateReading 写入读数
func (s *MemoryReadingStore) CreateReading(ctx context.Context, reading *models.Reading) error {
	if reading == nil {
		return fmt.Errorf("reading is required")
	}
	if err := reading.Validate(); err != nil {
		return fmt.Errorf("invalid reading: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.readings[reading.ID]; ok {
		return fmt.Errorf("%w: reading_id=%s", ErrDuplicateReading, reading.ID)
	}
	s.readings[reading.ID] = *reading
	key := seriesKey(reading.PlotID, reading.SensorType)
	s.series[key] = append(s.series[key], *reading)
	return nil
}

// GetReading 根据 reading_id 获取读数
func (s *MemoryReadingStore) GetReading(ctx context.Context, readingID string) (*models.Reading, error) {
	if readingID == "" {
		return nil, fmt.Errorf("reading_id is required")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	reading, ok := s.readings[readingID]
	if !ok {
		return nil, fmt.Errorf("sensor reading %w: reading_id=%s", ErrNotFound, readingID)
	}
	return &reading, nil
}

// RecentReadings 返回 [before-window, before) 内最近的 limit 条读数，按时间升序
func (s *MemoryReadingStore) RecentReadings(ctx context.Context, plotID string, sensorType models.SensorType, before time.Time, window time.Duration, limit int) ([]models.HistoryPoint, error) {
	if plotID == "" {
		return nil, fmt.Errorf("plot_id is required")
	}
	if sensorType == "" {
		return nil, fmt.Errorf("sensor_type is required")
	}
	if limit <= 0 {
		return []models.HistoryPoint{}, nil
	}

	cutoff := before.Add(-window)

	s.mu.RLock()
	points := []models.HistoryPoint{}
	for _, r := range s.series[seriesKey(plotID, sensorType)] {
		if r.Timestamp.Before(before) && !r.Timestamp.Before(cutoff) {
			points = append(points, models.HistoryPoint{Timestamp: r.Timestamp, Value: r.Float()})
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Timestamp.Before(points[j].Timestamp)
	})
	if len(points) > limit {
		points = points[len(points)-limit:]
	}
	return points, nil
}

// Count 读数总数
func (s *MemoryReadingStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.readings)
}

// MemoryAnomalyEventStore 内存异常事件存储
type MemoryAnomalyEventStore struct {
	mu        sync.RWMutex
	events    []models.AnomalyEvent
	byReading map[string]int // source_reading_id -> events 下标
}

// NewMemoryAnomalyEventStore 创建内存异常事件存储
func NewMemoryAnomalyEventStore() *MemoryAnomalyEventStore {
	return &MemoryAnomalyEventStore{
		events:    []models.AnomalyEvent{},
		byReading: make(map[string]int),
	}
}

// CreateAnomalyEvent 写入异常事件；同一读数重复写入返回 ErrDuplicateEvent
func (s *MemoryAnomalyEventStore) CreateAnomalyEvent(ctx context.Context, event *models.AnomalyEvent) error {
	if event == nil {
		return fmt.Errorf("event is required")
	}
	if event.EventID == "" {
		return fmt.Errorf("event_id is required")
	}
	if event.PlotID == "" {
		return fmt.Errorf("plot_id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if event.SourceReadingID != nil {
		if _, ok := s.byReading[*event.SourceReadingID]; ok {
			return fmt.Errorf("%w: event_id=%s", ErrDuplicateEvent, event.EventID)
		}
		s.byReading[*event.SourceReadingID] = len(s.events)
	}
	s.events = append(s.events, *event)
	return nil
}

// ExistsForReading 该读数是否已有异常事件
func (s *MemoryAnomalyEventStore) ExistsForReading(ctx context.Context, readingID string) (bool, error) {
	if readingID == "" {
		return false, fmt.Errorf("reading_id is required")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.byReading[readingID]
	return ok, nil
}

// ListByReadingIDs 批量查询读数关联的异常事件，按时间升序
func (s *MemoryAnomalyEventStore) ListByReadingIDs(ctx context.Context, readingIDs []string) ([]models.AnomalyEvent, error) {
	s.mu.RLock()
	events := make([]models.AnomalyEvent, 0, len(readingIDs))
	for _, id := range readingIDs {
		if idx, ok := s.byReading[id]; ok {
			events = append(events, s.events[idx])
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.Before(events[j].Timestamp)
	})
	return events, nil
}

// Events 全部异常事件（按写入顺序）
func (s *MemoryAnomalyEventStore) Events() []models.AnomalyEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.AnomalyEvent, len(s.events))
	copy(out, s.events)
	return out
}
