package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	mqttcommon "cropwatch-anomaly/internal/common/mqtt"
	"cropwatch-anomaly/internal/config"
	"cropwatch-anomaly/internal/metrics"
	"cropwatch-anomaly/internal/models"
)

// Subscriber MQTT 订阅端
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqttcommon.MessageHandler) error
	Unsubscribe(topics ...string) error
}

// ReadingWriter 读数持久化
type ReadingWriter interface {
	CreateReading(ctx context.Context, reading *models.Reading) error
}

// ReadingPayload MQTT 读数消息体
type ReadingPayload struct {
	SensorType models.SensorType `json:"sensor_type"`
	Value      *decimal.Decimal  `json:"value"`
	Timestamp  *time.Time        `json:"timestamp,omitempty"`
	Source     models.Source     `json:"source,omitempty"`
}

// MQTTIngest MQTT 读数摄入：校验 → 分配 ID → 入库 → 检测
type MQTTIngest struct {
	config     *config.Config
	subscriber Subscriber
	store      ReadingWriter
	processor  ReadingProcessor
	logger     *zap.Logger
	now        func() time.Time
}

// NewMQTTIngest 创建 MQTT 摄入
func NewMQTTIngest(
	cfg *config.Config,
	subscriber Subscriber,
	store ReadingWriter,
	processor ReadingProcessor,
	logger *zap.Logger,
) *MQTTIngest {
	return &MQTTIngest{
		config:     cfg,
		subscriber: subscriber,
		store:      store,
		processor:  processor,
		logger:     logger,
		now:        time.Now,
	}
}

// Start 订阅读数主题，阻塞直到 ctx 取消
func (c *MQTTIngest) Start(ctx context.Context) error {
	topic := c.config.Detection.ReadingsTopic
	handler := func(topic string, payload []byte) error {
		return c.HandleMessage(ctx, topic, payload)
	}
	if err := c.subscriber.Subscribe(topic, c.config.MQTT.QoS, handler); err != nil {
		return fmt.Errorf("failed to subscribe to readings topic: %w", err)
	}

	c.logger.Info("MQTT ingest started",
		zap.String("topic", topic),
	)

	// 等待上下文取消
	<-ctx.Done()
	return nil
}

// Stop 取消订阅
func (c *MQTTIngest) Stop() error {
	if err := c.subscriber.Unsubscribe(c.config.Detection.ReadingsTopic); err != nil {
		c.logger.Error("Failed to unsubscribe", zap.Error(err))
		return err
	}
	c.logger.Info("MQTT ingest stopped")
	return nil
}

// HandleMessage 处理单条 MQTT 读数
func (c *MQTTIngest) HandleMessage(ctx context.Context, topic string, payload []byte) error {
	c.logger.Debug("Received MQTT message",
		zap.String("topic", topic),
		zap.Int("payload_size", len(payload)),
	)

	reading, err := c.parse(topic, payload)
	if err != nil {
		metrics.RecordError("decode")
		metrics.RecordMessage("mqtt", "invalid")
		return err
	}

	// 先持久化，再检测
	if err := c.store.CreateReading(ctx, reading); err != nil {
		metrics.RecordError("store")
		metrics.RecordMessage("mqtt", "error")
		return fmt.Errorf("failed to store reading: %w", err)
	}

	if _, err := c.processor.HandleReading(ctx, *reading); err != nil {
		metrics.RecordMessage("mqtt", "error")
		return fmt.Errorf("failed to handle reading %s: %w", reading.ID, err)
	}

	metrics.RecordMessage("mqtt", "ok")
	return nil
}

func (c *MQTTIngest) parse(topic string, payload []byte) (*models.Reading, error) {
	plotID, err := PlotIDFromTopic(topic)
	if err != nil {
		return nil, err
	}

	var msg ReadingPayload
	if err := json.Unmarshal(payload, &msg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message: %w", err)
	}
	if msg.SensorType == "" {
		return nil, fmt.Errorf("sensor_type is required")
	}
	if msg.Value == nil {
		return nil, fmt.Errorf("value is required")
	}

	ts := c.now().UTC()
	if msg.Timestamp != nil && !msg.Timestamp.IsZero() {
		ts = *msg.Timestamp
	}
	source := msg.Source
	if source == "" {
		source = models.SourceRealSensor
	}

	reading := &models.Reading{
		ID:         uuid.New().String(),
		PlotID:     plotID,
		SensorType: msg.SensorType,
		Value:      msg.Value.Round(models.ValueScale),
		Timestamp:  ts,
		Source:     source,
	}
	if err := reading.Validate(); err != nil {
		return nil, fmt.Errorf("invalid reading: %w", err)
	}
	return reading, nil
}

// PlotIDFromTopic 从主题提取地块 ID
// 主题格式: cropwatch/plots/{plot_id}/readings
func PlotIDFromTopic(topic string) (string, error) {
	parts := strings.Split(topic, "/")
	if len(parts) != 4 || parts[1] != "plots" || parts[3] != "readings" || parts[2] == "" {
		return "", fmt.Errorf("invalid topic format: %s", topic)
	}
	return parts[2], nil
}

// ReadingTopic 构建地块读数主题
func ReadingTopic(plotID string) string {
	return fmt.Sprintf("cropwatch/plots/%s/readings", plotID)
}
