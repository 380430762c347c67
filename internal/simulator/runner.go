package simulator

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"cropwatch-anomaly/internal/models"
)

// RunConfig 模拟运行参数
type RunConfig struct {
	PlotIDs      []string
	Steps        int
	Interval     time.Duration
	AnomalyRatio float64
}

// Validate 校验运行参数
func (c RunConfig) Validate() error {
	if len(c.PlotIDs) == 0 {
		return fmt.Errorf("at least one plot id is required")
	}
	if c.Steps < 0 {
		return fmt.Errorf("invalid steps: %d", c.Steps)
	}
	if c.Interval < 0 {
		return fmt.Errorf("invalid interval: %v", c.Interval)
	}
	if c.AnomalyRatio < 0 || c.AnomalyRatio > 1 {
		return fmt.Errorf("invalid anomaly ratio: %v", c.AnomalyRatio)
	}
	return nil
}

// Stats 运行统计
type Stats struct {
	Steps     int
	Sent      int
	Failed    int
	Anomalies int
}

// Simulator 按步生成并发送读数
type Simulator struct {
	model     *Model
	publisher Publisher
	logger    *zap.Logger
	now       func() time.Time
}

// NewSimulator 创建模拟器
func NewSimulator(model *Model, publisher Publisher, logger *zap.Logger) *Simulator {
	return &Simulator{
		model:     model,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// Run 运行模拟；同一步的三项读数对所有地块相同，单条发送失败只记录日志
func (s *Simulator) Run(ctx context.Context, cfg RunConfig) (Stats, error) {
	if err := cfg.Validate(); err != nil {
		return Stats{}, err
	}

	s.logger.Info("Starting sensor simulator",
		zap.Strings("plot_ids", cfg.PlotIDs),
		zap.Int("steps", cfg.Steps),
		zap.Duration("interval", cfg.Interval),
		zap.Float64("anomaly_ratio", cfg.AnomalyRatio),
	)

	var stats Stats
	for step := 0; step < cfg.Steps; step++ {
		values, kind := s.model.Next(step, cfg.AnomalyRatio)
		if kind != AnomalyNone {
			stats.Anomalies++
			s.logger.Info("Injected anomaly",
				zap.Int("step", step),
				zap.String("kind", string(kind)),
			)
		}

		ts := s.now()
		for _, plotID := range cfg.PlotIDs {
			for _, r := range []struct {
				sensorType models.SensorType
				value      float64
			}{
				{models.SensorTypeMoisture, values.Moisture},
				{models.SensorTypeTemperature, values.Temperature},
				{models.SensorTypeHumidity, values.Humidity},
			} {
				if err := s.publisher.Publish(ctx, plotID, r.sensorType, r.value, ts); err != nil {
					if ctx.Err() != nil {
						return stats, ctx.Err()
					}
					stats.Failed++
					s.logger.Error("Failed to send reading",
						zap.String("plot_id", plotID),
						zap.String("sensor_type", string(r.sensorType)),
						zap.Error(err),
					)
					continue
				}
				stats.Sent++
			}
		}
		stats.Steps++

		if step < cfg.Steps-1 && cfg.Interval > 0 {
			select {
			case <-ctx.Done():
				return stats, ctx.Err()
			case <-time.After(cfg.Interval):
			}
		}
	}

	s.logger.Info("Simulation finished",
		zap.Int("sent", stats.Sent),
		zap.Int("failed", stats.Failed),
		zap.Int("anomalies", stats.Anomalies),
	)
	return stats, nil
}
