package detector

import (
	"cropwatch-anomaly/internal/models"
)

// 空气湿度：正常 45–75%，<30 或 >85 为环境异常
const (
	HumidityMin  = 45.0
	HumidityMax  = 75.0
	HumidityLow  = 30.0
	HumidityHigh = 85.0

	humidityZThreshold = 2.0
)

func humidityExtreme(value float64) bool {
	return value < HumidityLow || value > HumidityHigh
}

// detectHumidityWithContext 历史模式
func detectHumidityWithContext(value float64, baseline Baseline) models.DetectionResult {
	z := baseline.ZScore(value)

	if humidityExtreme(value) || z > humidityZThreshold {
		return anomaly(models.AnomalyGeneral, models.SeverityMedium, 0.7, models.DetectionDetails{
			Reason:   models.ReasonHumidityAnomaly,
			Value:    value,
			Extremes: boundsPtr(HumidityLow, HumidityHigh),
			ZScore:   floatPtr(z),
			Mean:     floatPtr(baseline.Mean),
		})
	}

	return withBaseline(detectHumidity(value), z, baseline)
}

// detectHumidity 固定阈值模式
func detectHumidity(value float64) models.DetectionResult {
	if humidityExtreme(value) {
		return anomaly(models.AnomalyGeneral, models.SeverityMedium, 0.7, models.DetectionDetails{
			Reason:   models.ReasonHumidityOutsideExtremes,
			Value:    value,
			Extremes: boundsPtr(HumidityLow, HumidityHigh),
		})
	}

	return normal(models.DetectionDetails{
		Value: value,
		Range: boundsPtr(HumidityMin, HumidityMax),
	})
}
