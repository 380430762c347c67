package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	rediscommon "cropwatch-anomaly/internal/common/redis"
	"cropwatch-anomaly/internal/config"
	"cropwatch-anomaly/internal/metrics"
	"cropwatch-anomaly/internal/models"
	"cropwatch-anomaly/internal/pipeline"
)

// ReadingProcessor 读数检测阶段
type ReadingProcessor interface {
	HandleReading(ctx context.Context, reading models.Reading) (pipeline.Outcome, error)
}

// StreamConsumer Redis Streams 消费者（读数入库事件）
// 单消费者顺序处理，保证同一地块的读数按到达顺序检测
type StreamConsumer struct {
	config      *config.Config
	redisClient *redis.Client
	processor   ReadingProcessor
	logger      *zap.Logger
}

// NewStreamConsumer 创建 Streams 消费者
func NewStreamConsumer(
	cfg *config.Config,
	redisClient *redis.Client,
	processor ReadingProcessor,
	logger *zap.Logger,
) *StreamConsumer {
	return &StreamConsumer{
		config:      cfg,
		redisClient: redisClient,
		processor:   processor,
		logger:      logger,
	}
}

// Start 启动消费者，阻塞直到 ctx 取消
func (c *StreamConsumer) Start(ctx context.Context) error {
	stream := c.config.Detection.Streams.ReadingsCreated
	group := c.config.Detection.ConsumerGroup

	// 创建消费者组
	if err := rediscommon.CreateConsumerGroup(ctx, c.redisClient, stream, group); err != nil {
		return fmt.Errorf("failed to create consumer group for %s: %w", stream, err)
	}

	c.logger.Info("Stream consumer started",
		zap.String("stream", stream),
		zap.String("consumer_group", group),
		zap.String("consumer_name", c.config.Detection.ConsumerName),
	)

	backoffDuration := time.Second // 初始退避时间
	maxBackoff := 30 * time.Second // 最大退避时间

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if _, err := c.ConsumeOnce(ctx, c.config.Detection.BlockTimeout); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Error("Failed to consume stream",
				zap.String("stream", stream),
				zap.Error(err),
				zap.Duration("backoff", backoffDuration),
			)

			// 指数退避：等待后重试
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(backoffDuration):
				backoffDuration *= 2
				if backoffDuration > maxBackoff {
					backoffDuration = maxBackoff
				}
			}
			continue
		}
		backoffDuration = time.Second
	}
}

// ConsumeOnce 读取并处理一批消息，返回处理的消息数
// 每条消息处理后即 XACK；单条失败只记录日志
func (c *StreamConsumer) ConsumeOnce(ctx context.Context, block time.Duration) (int, error) {
	stream := c.config.Detection.Streams.ReadingsCreated
	group := c.config.Detection.ConsumerGroup

	messages, err := rediscommon.ReadFromStream(
		ctx,
		c.redisClient,
		stream,
		group,
		c.config.Detection.ConsumerName,
		c.config.Detection.BatchSize,
		block,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to read from stream %s: %w", stream, err)
	}

	for _, msg := range messages {
		if err := c.processMessage(ctx, msg); err != nil {
			metrics.RecordMessage("stream", "error")
			c.logger.Error("Failed to process message",
				zap.String("stream", stream),
				zap.String("message_id", msg.ID),
				zap.Error(err),
			)
			// 继续处理下一条消息，不中断
		} else {
			metrics.RecordMessage("stream", "ok")
		}

		if err := rediscommon.AckMessages(ctx, c.redisClient, stream, group, msg.ID); err != nil {
			c.logger.Warn("Failed to ack message",
				zap.String("message_id", msg.ID),
				zap.Error(err),
			)
		}
	}

	return len(messages), nil
}

// processMessage 处理单条消息
func (c *StreamConsumer) processMessage(ctx context.Context, msg rediscommon.StreamMessage) error {
	reading, err := ParseReadingMessage(msg.Values)
	if err != nil {
		metrics.RecordError("decode")
		return err
	}

	outcome, err := c.processor.HandleReading(ctx, *reading)
	if err != nil {
		return fmt.Errorf("failed to handle reading %s: %w", reading.ID, err)
	}

	if outcome.Skipped {
		c.logger.Debug("Reading skipped",
			zap.String("reading_id", reading.ID),
			zap.String("plot_id", reading.PlotID),
		)
	}
	return nil
}

// ParseReadingMessage 解析 Streams 消息中的读数（data 字段为读数 JSON）
func ParseReadingMessage(values map[string]interface{}) (*models.Reading, error) {
	raw, ok := values["data"]
	if !ok {
		return nil, fmt.Errorf("missing data field")
	}

	var data []byte
	switch v := raw.(type) {
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return nil, fmt.Errorf("invalid data field type: %T", raw)
	}

	var reading models.Reading
	if err := json.Unmarshal(data, &reading); err != nil {
		return nil, fmt.Errorf("failed to unmarshal reading: %w", err)
	}
	if err := reading.Validate(); err != nil {
		return nil, fmt.Errorf("invalid reading: %w", err)
	}
	reading.Value = reading.Value.Round(models.ValueScale)

	return &reading, nil
}
