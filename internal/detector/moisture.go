package detector

import (
	"cropwatch-anomaly/internal/models"
)

// 土壤湿度：正常 45–75%，低于 35 视为持续缺水
const (
	MoistureMin           = 45.0
	MoistureMax           = 75.0
	MoistureLowPersistent = 35.0

	moistureZThreshold = 2.0
)

// detectMoistureWithContext 历史模式
func detectMoistureWithContext(value float64, baseline Baseline) models.DetectionResult {
	z := baseline.ZScore(value)

	if value < MoistureLowPersistent {
		return anomaly(models.AnomalyIrrigationIssue, models.SeverityHigh, 0.9, models.DetectionDetails{
			Reason:    models.ReasonMoistureBelow35,
			Value:     value,
			Threshold: floatPtr(MoistureLowPersistent),
			ZScore:    floatPtr(z),
			Mean:      floatPtr(baseline.Mean),
		})
	}

	if z > moistureZThreshold {
		return anomaly(models.AnomalyIrrigationIssue, models.SeverityMedium, 0.75, models.DetectionDetails{
			Reason: models.ReasonStatisticalAnomaly,
			Value:  value,
			ZScore: floatPtr(z),
			Mean:   floatPtr(baseline.Mean),
		})
	}

	return withBaseline(detectMoisture(value), z, baseline)
}

// detectMoisture 固定阈值模式
func detectMoisture(value float64) models.DetectionResult {
	if value < MoistureLowPersistent {
		return anomaly(models.AnomalyIrrigationIssue, models.SeverityHigh, 0.9, models.DetectionDetails{
			Reason:    models.ReasonMoistureBelow35,
			Value:     value,
			Threshold: floatPtr(MoistureLowPersistent),
		})
	}

	if value < MoistureMin {
		return anomaly(models.AnomalyIrrigationIssue, models.SeverityMedium, 0.7, models.DetectionDetails{
			Reason: models.ReasonMoistureBelowNormalRange,
			Value:  value,
			Range:  boundsPtr(MoistureMin, MoistureMax),
		})
	}

	if value > MoistureMax {
		return anomaly(models.AnomalyGeneral, models.SeverityLow, 0.6, models.DetectionDetails{
			Reason: models.ReasonMoistureAboveNormalRange,
			Value:  value,
			Range:  boundsPtr(MoistureMin, MoistureMax),
		})
	}

	return normal(models.DetectionDetails{
		Value: value,
		Range: boundsPtr(MoistureMin, MoistureMax),
	})
}
