// Package detector 提供传感器读数的异常检测
//
// 检测分两种模式：
//   - 历史模式：同一地块、同一传感器在过去 24 小时内至少有 5 条读数时，
//     以均值/标准差计算 z 分数，捕捉相对本地块基线的漂移
//   - 固定阈值模式：历史不足（冷启动、数据断档、新地块）时使用各传感器的固定区间
//
// 检测器是纯函数：结论只取决于 (reading, history)，不读时钟、不用随机数、不持有状态。
package detector

import (
	"sort"
	"time"

	"cropwatch-anomaly/internal/models"
)

const (
	// HistoryWindow 历史基线回溯窗口
	HistoryWindow = 24 * time.Hour
	// HistoryLimit 参与基线计算的最大读数条数
	HistoryLimit = 50
	// MinHistory 启用历史模式所需的最少读数条数
	MinHistory = 5

	// normalConfidence 正常结论的置信度
	normalConfidence = 0.9
)

// ThresholdDetector 阈值/统计混合检测器（无实例状态，可并发使用）
type ThresholdDetector struct{}

// NewThresholdDetector 创建检测器
func NewThresholdDetector() *ThresholdDetector {
	return &ThresholdDetector{}
}

// Detect 实现 pipeline.Detector
func (d *ThresholdDetector) Detect(reading models.Reading, history []models.HistoryPoint) models.DetectionResult {
	return Detect(reading, history)
}

// Detect 对单条读数给出检测结论
// history 为同一地块、同一传感器类型的历史读数；不在 [ts-24h, ts) 内的点会被忽略
func Detect(reading models.Reading, history []models.HistoryPoint) models.DetectionResult {
	value := reading.Float()

	if !reading.SensorType.Known() {
		return models.DetectionResult{
			IsAnomaly: false,
			Details: models.DetectionDetails{
				Reason: models.ReasonUnsupportedSensorType,
				Value:  value,
			},
		}
	}

	window := BaselineWindow(reading.Timestamp, history)
	if len(window) >= MinHistory {
		baseline := ComputeBaseline(window)
		switch reading.SensorType {
		case models.SensorTypeMoisture:
			return detectMoistureWithContext(value, baseline)
		case models.SensorTypeTemperature:
			return detectTemperatureWithContext(value, baseline)
		case models.SensorTypeHumidity:
			return detectHumidityWithContext(value, baseline)
		}
	}

	switch reading.SensorType {
	case models.SensorTypeMoisture:
		return detectMoisture(value)
	case models.SensorTypeTemperature:
		return detectTemperature(value)
	default:
		return detectHumidity(value)
	}
}

// BaselineWindow 选出参与基线计算的历史值
// 只保留 [before-HistoryWindow, before) 内的点，按时间升序，超过 HistoryLimit 时取最近的部分
func BaselineWindow(before time.Time, history []models.HistoryPoint) []float64 {
	cutoff := before.Add(-HistoryWindow)

	points := make([]models.HistoryPoint, 0, len(history))
	for _, p := range history {
		if p.Timestamp.Before(before) && !p.Timestamp.Before(cutoff) {
			points = append(points, p)
		}
	}

	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Timestamp.Before(points[j].Timestamp)
	})

	if len(points) > HistoryLimit {
		points = points[len(points)-HistoryLimit:]
	}

	values := make([]float64, len(points))
	for i, p := range points {
		values[i] = p.Value
	}
	return values
}

func anomaly(anomalyType models.AnomalyType, severity models.Severity, confidence float64, details models.DetectionDetails) models.DetectionResult {
	return models.DetectionResult{
		IsAnomaly:   true,
		AnomalyType: &anomalyType,
		Severity:    &severity,
		Confidence:  confidence,
		Details:     details,
	}
}

func normal(details models.DetectionDetails) models.DetectionResult {
	details.Reason = models.ReasonWithinNormalRange
	return models.DetectionResult{
		IsAnomaly:  false,
		Confidence: normalConfidence,
		Details:    details,
	}
}

// withBaseline 为固定阈值结论补充已计算的 z 分数与均值
func withBaseline(result models.DetectionResult, z float64, baseline Baseline) models.DetectionResult {
	result.Details.ZScore = floatPtr(z)
	result.Details.Mean = floatPtr(baseline.Mean)
	return result
}

func floatPtr(f float64) *float64 {
	return &f
}

func boundsPtr(lo, hi float64) *models.Bounds {
	return &models.Bounds{lo, hi}
}
