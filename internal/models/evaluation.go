package models

// GroundTruthLabel 人工或生成器提供的真实标签，仅用于评估
type GroundTruthLabel struct {
	ReadingID   string  `json:"reading_id"`
	IsAnomaly   bool    `json:"is_anomaly"`
	AnomalyType *string `json:"anomaly_type,omitempty"`
}

// EvaluationMetrics 评估指标快照（由当前预测与标签即时计算）
type EvaluationMetrics struct {
	Precision            float64 `json:"precision"`
	Recall               float64 `json:"recall"`
	F1Score              float64 `json:"f1_score"`
	FalsePositiveRate    float64 `json:"false_positive_rate"`
	TruePositives        int     `json:"true_positives"`
	FalsePositives       int     `json:"false_positives"`
	FalseNegatives       int     `json:"false_negatives"`
	TrueNegatives        int     `json:"true_negatives"`
	TotalPredictions     int     `json:"total_predictions"`
	TotalActualAnomalies int     `json:"total_actual_anomalies"`
	TotalNormalReadings  int     `json:"total_normal_readings"`
}
