package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"cropwatch-anomaly/internal/config"
	"cropwatch-anomaly/internal/models"
)

// ErrCacheMiss 缓存中没有该地块/传感器的结论
var ErrCacheMiss = errors.New("latest verdict not found")

// LatestVerdict 地块某传感器的最新检测结论（缓存结构）
type LatestVerdict struct {
	ReadingID   string                  `json:"reading_id"`
	PlotID      string                  `json:"plot_id"`
	SensorType  models.SensorType       `json:"sensor_type"`
	Value       float64                 `json:"value"`
	Timestamp   time.Time               `json:"timestamp"`
	IsAnomaly   bool                    `json:"is_anomaly"`
	AnomalyType *models.AnomalyType     `json:"anomaly_type,omitempty"`
	Severity    *models.Severity        `json:"severity,omitempty"`
	Confidence  float64                 `json:"confidence"`
	Details     models.DetectionDetails `json:"details"`
	EventID     string                  `json:"event_id,omitempty"`
	EvaluatedAt int64                   `json:"evaluated_at"`
}

// CacheManager Redis 缓存管理器（最新检测结论）
type CacheManager struct {
	config      *config.Config
	redisClient *redis.Client
	logger      *zap.Logger
}

// NewCacheManager 创建缓存管理器
func NewCacheManager(
	cfg *config.Config,
	redisClient *redis.Client,
	logger *zap.Logger,
) *CacheManager {
	return &CacheManager{
		config:      cfg,
		redisClient: redisClient,
		logger:      logger,
	}
}

func (c *CacheManager) latestKey(plotID string, sensorType models.SensorType) string {
	return fmt.Sprintf("%s%s:%s%s",
		c.config.Detection.Cache.LatestKeyPrefix,
		plotID,
		sensorType,
		c.config.Detection.Cache.LatestSuffix,
	)
}

// OnDetection 实现 pipeline.Sink：写入最新结论
func (c *CacheManager) OnDetection(ctx context.Context, reading models.Reading, result models.DetectionResult, event *models.AnomalyEvent) error {
	verdict := LatestVerdict{
		ReadingID:   reading.ID,
		PlotID:      reading.PlotID,
		SensorType:  reading.SensorType,
		Value:       reading.Float(),
		Timestamp:   reading.Timestamp,
		IsAnomaly:   result.IsAnomaly,
		AnomalyType: result.AnomalyType,
		Severity:    result.Severity,
		Confidence:  result.Confidence,
		Details:     result.Details,
		EvaluatedAt: time.Now().Unix(),
	}
	if event != nil {
		verdict.EventID = event.EventID
	}
	return c.UpdateLatest(ctx, &verdict)
}

// UpdateLatest 更新最新结论缓存
// 缓存中已有更晚时间戳的结论时不覆盖
func (c *CacheManager) UpdateLatest(ctx context.Context, verdict *LatestVerdict) error {
	current, err := c.GetLatest(ctx, verdict.PlotID, verdict.SensorType)
	if err != nil && !errors.Is(err, ErrCacheMiss) {
		return err
	}
	if current != nil && current.Timestamp.After(verdict.Timestamp) {
		c.logger.Debug("Cached verdict is newer, skipping update",
			zap.String("plot_id", verdict.PlotID),
			zap.String("sensor_type", string(verdict.SensorType)),
		)
		return nil
	}

	// 序列化数据
	jsonData, err := json.Marshal(verdict)
	if err != nil {
		return fmt.Errorf("failed to marshal latest verdict: %w", err)
	}

	// 写入 Redis（设置 TTL）
	key := c.latestKey(verdict.PlotID, verdict.SensorType)
	if err := c.redisClient.Set(ctx, key, jsonData, c.config.Detection.Cache.LatestTTL).Err(); err != nil {
		return fmt.Errorf("failed to set cache: %w", err)
	}

	return nil
}

// GetLatest 读取最新结论
func (c *CacheManager) GetLatest(ctx context.Context, plotID string, sensorType models.SensorType) (*LatestVerdict, error) {
	val, err := c.redisClient.Get(ctx, c.latestKey(plotID, sensorType)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("%w: plot_id=%s, sensor_type=%s", ErrCacheMiss, plotID, sensorType)
		}
		return nil, fmt.Errorf("failed to get cache: %w", err)
	}

	// 反序列化
	var verdict LatestVerdict
	if err := json.Unmarshal([]byte(val), &verdict); err != nil {
		return nil, fmt.Errorf("failed to unmarshal latest verdict: %w", err)
	}

	return &verdict, nil
}
