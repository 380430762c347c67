package consumer

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	rediscommon "cropwatch-anomaly/internal/common/redis"
	"cropwatch-anomaly/internal/config"
	"cropwatch-anomaly/internal/models"
)

// AnomalyPublisher 将异常事件发布到 Redis Streams（供建议生成服务消费）
type AnomalyPublisher struct {
	config      *config.Config
	redisClient *redis.Client
	logger      *zap.Logger
}

// NewAnomalyPublisher 创建异常事件发布器
func NewAnomalyPublisher(cfg *config.Config, redisClient *redis.Client, logger *zap.Logger) *AnomalyPublisher {
	return &AnomalyPublisher{
		config:      cfg,
		redisClient: redisClient,
		logger:      logger,
	}
}

// OnDetection 实现 pipeline.Sink：只发布已记录的异常事件
func (p *AnomalyPublisher) OnDetection(ctx context.Context, reading models.Reading, result models.DetectionResult, event *models.AnomalyEvent) error {
	if event == nil {
		return nil
	}
	return p.Publish(ctx, event)
}

// Publish 发布单个异常事件
func (p *AnomalyPublisher) Publish(ctx context.Context, event *models.AnomalyEvent) error {
	stream := p.config.Detection.Streams.Anomalies
	streamID, err := rediscommon.PublishJSONToStream(ctx, p.redisClient, stream, event)
	if err != nil {
		return fmt.Errorf("failed to publish anomaly event: %w", err)
	}

	p.logger.Debug("Published anomaly event to Redis Streams",
		zap.String("event_id", event.EventID),
		zap.String("plot_id", event.PlotID),
		zap.String("stream", stream),
		zap.String("stream_id", streamID),
	)
	return nil
}
