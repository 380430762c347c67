package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"cropwatch-anomaly/internal/detector"
	"cropwatch-anomaly/internal/metrics"
	"cropwatch-anomaly/internal/models"
	"cropwatch-anomaly/internal/repository"
)

// ReadingHandler 读数入库后的检测阶段
// 同一地块、同一传感器的读数需按时间顺序调用
type ReadingHandler struct {
	history  HistorySource
	recorder AnomalyRecorder
	detector Detector
	sinks    []Sink
	logger   *zap.Logger
	now      func() time.Time
}

// NewReadingHandler 创建读数处理器
func NewReadingHandler(history HistorySource, recorder AnomalyRecorder, det Detector, logger *zap.Logger, sinks ...Sink) *ReadingHandler {
	if det == nil {
		det = detector.NewThresholdDetector()
	}
	return &ReadingHandler{
		history:  history,
		recorder: recorder,
		detector: det,
		sinks:    sinks,
		logger:   logger,
		now:      time.Now,
	}
}

// AddSink 追加下游
func (h *ReadingHandler) AddSink(sink Sink) {
	h.sinks = append(h.sinks, sink)
}

// HandleReading 检测单条已持久化的读数
// 已有异常事件的读数直接跳过；历史查询或记录失败只影响本条读数
func (h *ReadingHandler) HandleReading(ctx context.Context, reading models.Reading) (Outcome, error) {
	start := time.Now()
	sensorType := string(reading.SensorType)

	// 1. 每条读数至多一个异常事件
	exists, err := h.recorder.ExistsForReading(ctx, reading.ID)
	if err != nil {
		metrics.RecordError("record")
		return Outcome{}, fmt.Errorf("failed to check existing anomaly event: %w", err)
	}
	if exists {
		metrics.RecordSkip(sensorType)
		h.logger.Debug("Anomaly event already exists, skipping reading",
			zap.String("reading_id", reading.ID),
			zap.String("plot_id", reading.PlotID),
		)
		return Outcome{Skipped: true}, nil
	}

	// 2. 历史基线
	history, err := h.history.RecentReadings(ctx, reading.PlotID, reading.SensorType, reading.Timestamp, detector.HistoryWindow, detector.HistoryLimit)
	if err != nil {
		metrics.RecordError("history")
		return Outcome{}, fmt.Errorf("failed to load reading history: %w", err)
	}

	// 3. 检测
	result := h.detector.Detect(reading, history)
	outcome := Outcome{Result: &result}

	// 4. 记录异常事件
	if result.IsAnomaly {
		event := BuildAnomalyEvent(reading, result, h.now())
		if err := h.recorder.CreateAnomalyEvent(ctx, event); err != nil {
			if errors.Is(err, repository.ErrDuplicateEvent) {
				// 并发写入方已记录
				metrics.RecordSkip(sensorType)
				return Outcome{Skipped: true}, nil
			}
			metrics.RecordError("record")
			return Outcome{}, fmt.Errorf("failed to record anomaly event: %w", err)
		}
		outcome.Event = event
		metrics.RecordAnomaly(string(event.AnomalyType), string(event.Severity))

		h.logger.Info("Anomaly detected",
			zap.String("event_id", event.EventID),
			zap.String("reading_id", reading.ID),
			zap.String("plot_id", reading.PlotID),
			zap.String("sensor_type", sensorType),
			zap.String("anomaly_type", string(event.AnomalyType)),
			zap.String("severity", string(event.Severity)),
			zap.Float64("confidence", event.Confidence),
			zap.String("reason", string(result.Details.Reason)),
		)
	}

	// 5. 下游失败只记录日志
	for _, sink := range h.sinks {
		if err := sink.OnDetection(ctx, reading, result, outcome.Event); err != nil {
			metrics.RecordError("sink")
			h.logger.Warn("Failed to notify detection sink",
				zap.String("reading_id", reading.ID),
				zap.String("plot_id", reading.PlotID),
				zap.Error(err),
			)
		}
	}

	metrics.RecordEvaluation(sensorType, string(result.Mode()), time.Since(start))
	return outcome, nil
}
