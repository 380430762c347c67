package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 检测服务指标
var (
	// 检测指标
	ReadingsEvaluatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cropwatch_readings_evaluated_total",
			Help: "Total number of sensor readings evaluated by the detector",
		},
		[]string{"sensor_type", "mode"}, // mode: history/fixed
	)

	AnomaliesDetectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cropwatch_anomalies_detected_total",
			Help: "Total number of anomaly events recorded",
		},
		[]string{"anomaly_type", "severity"},
	)

	ReadingsSkippedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cropwatch_readings_skipped_total",
			Help: "Total number of readings skipped because an anomaly event already exists",
		},
		[]string{"sensor_type"},
	)

	DetectionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cropwatch_detection_duration_seconds",
			Help:    "Time spent handling a reading (history lookup, detection, recording)",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12), // 0.5ms to ~1s
		},
		[]string{"sensor_type"},
	)

	// 管道错误
	PipelineErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cropwatch_pipeline_errors_total",
			Help: "Total number of pipeline failures",
		},
		[]string{"stage"}, // stage: history/record/decode/store/sink
	)

	// 摄入指标
	MessagesConsumedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cropwatch_messages_consumed_total",
			Help: "Total number of ingestion messages consumed",
		},
		[]string{"transport", "status"}, // transport: stream/mqtt
	)
)

// RecordEvaluation 记录一次检测
func RecordEvaluation(sensorType, mode string, duration time.Duration) {
	ReadingsEvaluatedTotal.WithLabelValues(sensorType, mode).Inc()
	DetectionDuration.WithLabelValues(sensorType).Observe(duration.Seconds())
}

// RecordAnomaly 记录一次异常事件
func RecordAnomaly(anomalyType, severity string) {
	AnomaliesDetectedTotal.WithLabelValues(anomalyType, severity).Inc()
}

// RecordSkip 记录一次跳过
func RecordSkip(sensorType string) {
	ReadingsSkippedTotal.WithLabelValues(sensorType).Inc()
}

// RecordError 记录管道错误
func RecordError(stage string) {
	PipelineErrorsTotal.WithLabelValues(stage).Inc()
}

// RecordMessage 记录摄入消息
func RecordMessage(transport, status string) {
	MessagesConsumedTotal.WithLabelValues(transport, status).Inc()
}

// Handler Prometheus 抓取端点
func Handler() http.Handler {
	return promhttp.Handler()
}

// NewServer 创建 /metrics HTTP 服务
func NewServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
