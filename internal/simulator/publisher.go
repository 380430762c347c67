package simulator

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"cropwatch-anomaly/internal/consumer"
	"cropwatch-anomaly/internal/models"
)

// Publisher 读数发送端
type Publisher interface {
	Publish(ctx context.Context, plotID string, sensorType models.SensorType, value float64, ts time.Time) error
}

// MQTTClient MQTT 发布端
type MQTTClient interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
}

// MQTTPublisher 通过 MQTT 发送读数（cropwatch/plots/{plot_id}/readings）
type MQTTPublisher struct {
	client MQTTClient
	qos    byte
	logger *zap.Logger
}

// NewMQTTPublisher 创建 MQTT 发送端
func NewMQTTPublisher(client MQTTClient, qos byte, logger *zap.Logger) *MQTTPublisher {
	return &MQTTPublisher{
		client: client,
		qos:    qos,
		logger: logger,
	}
}

// Publish 发送单条读数
func (p *MQTTPublisher) Publish(ctx context.Context, plotID string, sensorType models.SensorType, value float64, ts time.Time) error {
	v := decimal.NewFromFloat(value)
	utc := ts.UTC()
	payload, err := json.Marshal(consumer.ReadingPayload{
		SensorType: sensorType,
		Value:      &v,
		Timestamp:  &utc,
		Source:     models.SourceSimulator,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal reading payload: %w", err)
	}

	topic := consumer.ReadingTopic(plotID)
	if err := p.client.Publish(topic, p.qos, false, payload); err != nil {
		return fmt.Errorf("failed to publish reading: %w", err)
	}

	p.logger.Debug("Published simulated reading",
		zap.String("topic", topic),
		zap.String("sensor_type", string(sensorType)),
		zap.Float64("value", value),
	)
	return nil
}
