package models

// AnomalyType 异常类型
type AnomalyType string

const (
	AnomalyIrrigationIssue   AnomalyType = "irrigation_issue"
	AnomalyHeatStress        AnomalyType = "heat_stress"
	AnomalyColdStress        AnomalyType = "cold_stress"
	AnomalySensorMalfunction AnomalyType = "sensor_malfunction"
	AnomalyGeneral           AnomalyType = "general_anomaly"
)

// Severity 严重程度
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Reason 检测结论的触发原因
type Reason string

const (
	// 固定阈值
	ReasonMoistureBelow35          Reason = "moisture_below_35"
	ReasonMoistureBelowNormalRange Reason = "moisture_below_normal_range"
	ReasonMoistureAboveNormalRange Reason = "moisture_above_normal_range"
	ReasonTemperatureAbove32       Reason = "temperature_above_32"
	ReasonTemperatureBelow10       Reason = "temperature_below_10"
	ReasonHumidityOutsideExtremes  Reason = "humidity_outside_extreme_bounds"

	// 历史统计
	ReasonStatisticalAnomaly Reason = "statistical_anomaly"
	ReasonTemperatureAnomaly Reason = "temperature_anomaly"
	ReasonHumidityAnomaly    Reason = "humidity_anomaly"

	ReasonWithinNormalRange     Reason = "within_normal_range"
	ReasonUnsupportedSensorType Reason = "unsupported_sensor_type"
)

// DetectionMode 检测模式（用于指标统计）
type DetectionMode string

const (
	ModeHistory DetectionMode = "history"
	ModeFixed   DetectionMode = "fixed"
)

// Bounds 数值区间，JSON 序列化为 [min, max]
type Bounds [2]float64

// DetectionDetails 检测诊断信息（JSONB 结构）
// reason 与 value 必填，其余字段按触发分支填充
type DetectionDetails struct {
	Reason    Reason   `json:"reason"`
	Value     float64  `json:"value"`
	Threshold *float64 `json:"threshold,omitempty"`
	Range     *Bounds  `json:"range,omitempty"`
	Extremes  *Bounds  `json:"extremes,omitempty"`
	ZScore    *float64 `json:"z_score,omitempty"`
	Mean      *float64 `json:"mean,omitempty"`
}

// DetectionResult 单条读数的检测结论（检测器不负责持久化）
type DetectionResult struct {
	IsAnomaly   bool             `json:"is_anomaly"`
	AnomalyType *AnomalyType     `json:"anomaly_type,omitempty"`
	Severity    *Severity        `json:"severity,omitempty"`
	Confidence  float64          `json:"confidence"`
	Details     DetectionDetails `json:"details"`
}

// Mode 根据是否计算了历史基线返回检测模式
func (r DetectionResult) Mode() DetectionMode {
	if r.Details.ZScore != nil {
		return ModeHistory
	}
	return ModeFixed
}

// TypeOr 返回异常类型，为空时返回 fallback
func (r DetectionResult) TypeOr(fallback AnomalyType) AnomalyType {
	if r.AnomalyType != nil {
		return *r.AnomalyType
	}
	return fallback
}

// SeverityOr 返回严重程度，为空时返回 fallback
func (r DetectionResult) SeverityOr(fallback Severity) Severity {
	if r.Severity != nil {
		return *r.Severity
	}
	return fallback
}
