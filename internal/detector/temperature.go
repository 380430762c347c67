package detector

import (
	"cropwatch-anomaly/internal/models"
)

// 空气温度：正常 18–28°C；>32 热胁迫，<10 冷胁迫
const (
	TemperatureMin  = 18.0
	TemperatureMax  = 28.0
	TemperatureHot  = 32.0
	TemperatureCold = 10.0

	temperatureZThreshold = 2.5
)

// detectTemperatureWithContext 历史模式：z 分数需结合偏离方向判断热/冷
func detectTemperatureWithContext(value float64, baseline Baseline) models.DetectionResult {
	z := baseline.ZScore(value)
	drift := z > temperatureZThreshold

	if value > TemperatureHot || (drift && value > baseline.Mean) {
		return anomaly(models.AnomalyHeatStress, models.SeverityHigh, 0.9, models.DetectionDetails{
			Reason: models.ReasonTemperatureAnomaly,
			Value:  value,
			ZScore: floatPtr(z),
			Mean:   floatPtr(baseline.Mean),
		})
	}

	if value < TemperatureCold || (drift && value < baseline.Mean) {
		return anomaly(models.AnomalyColdStress, models.SeverityMedium, 0.8, models.DetectionDetails{
			Reason: models.ReasonTemperatureAnomaly,
			Value:  value,
			ZScore: floatPtr(z),
			Mean:   floatPtr(baseline.Mean),
		})
	}

	return withBaseline(detectTemperature(value), z, baseline)
}

// detectTemperature 固定阈值模式（28–32 与 10–18 之间不告警）
func detectTemperature(value float64) models.DetectionResult {
	if value > TemperatureHot {
		return anomaly(models.AnomalyHeatStress, models.SeverityHigh, 0.9, models.DetectionDetails{
			Reason:    models.ReasonTemperatureAbove32,
			Value:     value,
			Threshold: floatPtr(TemperatureHot),
		})
	}

	if value < TemperatureCold {
		return anomaly(models.AnomalyColdStress, models.SeverityMedium, 0.8, models.DetectionDetails{
			Reason:    models.ReasonTemperatureBelow10,
			Value:     value,
			Threshold: floatPtr(TemperatureCold),
		})
	}

	return normal(models.DetectionDetails{
		Value: value,
		Range: boundsPtr(TemperatureMin, TemperatureMax),
	})
}
