// Package evaluation 用带真实标签的数据评估检测器质量
package evaluation

import (
	"cropwatch-anomaly/internal/models"
)

// Prediction 检测器对单条读数的判断
type Prediction struct {
	ReadingID   string
	IsAnomaly   bool
	AnomalyType *models.AnomalyType
}

// OutcomeClass 混淆矩阵分类
type OutcomeClass string

const (
	TruePositive  OutcomeClass = "TP"
	FalsePositive OutcomeClass = "FP"
	FalseNegative OutcomeClass = "FN"
	TrueNegative  OutcomeClass = "TN"
)

// Outcome 单条预测与标签的比对结果
type Outcome struct {
	ReadingID     string
	Class         OutcomeClass
	Predicted     bool
	PredictedType *models.AnomalyType
	Actual        bool
	ActualType    *string
}

// Evaluator 评估聚合（预测列表 + 标签映射）
// 由一次评估会话独占使用，Record* 方法不可并发调用
type Evaluator struct {
	predictions []Prediction
	labels      map[string]models.GroundTruthLabel
}

// NewEvaluator 创建空的评估器
func NewEvaluator() *Evaluator {
	return &Evaluator{
		predictions: []Prediction{},
		labels:      map[string]models.GroundTruthLabel{},
	}
}

// RecordGroundTruth 写入标签，同一 reading_id 以最后一次为准
func (e *Evaluator) RecordGroundTruth(readingID string, isAnomaly bool, anomalyType *string) {
	var t *string
	if anomalyType != nil {
		v := *anomalyType
		t = &v
	}
	e.labels[readingID] = models.GroundTruthLabel{
		ReadingID:   readingID,
		IsAnomaly:   isAnomaly,
		AnomalyType: t,
	}
}

// RecordLabels 批量写入标签
func (e *Evaluator) RecordLabels(labels map[string]models.GroundTruthLabel) {
	for id, label := range labels {
		e.RecordGroundTruth(id, label.IsAnomaly, label.AnomalyType)
	}
}

// RecordPredictions 追加预测；同一 reading_id 的重复预测全部计入
func (e *Evaluator) RecordPredictions(predictions ...Prediction) {
	e.predictions = append(e.predictions, predictions...)
}

// LabelCount 已记录的标签数量
func (e *Evaluator) LabelCount() int {
	return len(e.labels)
}

// PredictionCount 已记录的预测数量
func (e *Evaluator) PredictionCount() int {
	return len(e.predictions)
}

// Outcomes 按记录顺序返回有标签的预测的比对结果，无标签的预测不在其中
func (e *Evaluator) Outcomes() []Outcome {
	outcomes := make([]Outcome, 0, len(e.predictions))
	for _, p := range e.predictions {
		label, ok := e.labels[p.ReadingID]
		if !ok {
			continue
		}

		var class OutcomeClass
		switch {
		case p.IsAnomaly && label.IsAnomaly:
			class = TruePositive
		case p.IsAnomaly && !label.IsAnomaly:
			class = FalsePositive
		case !p.IsAnomaly && label.IsAnomaly:
			class = FalseNegative
		default:
			class = TrueNegative
		}

		outcomes = append(outcomes, Outcome{
			ReadingID:     p.ReadingID,
			Class:         class,
			Predicted:     p.IsAnomaly,
			PredictedType: p.AnomalyType,
			Actual:        label.IsAnomaly,
			ActualType:    label.AnomalyType,
		})
	}
	return outcomes
}

// ComputeMetrics 由当前状态即时计算指标（不缓存）
func (e *Evaluator) ComputeMetrics() models.EvaluationMetrics {
	var tp, fp, fn, tn int
	for _, o := range e.Outcomes() {
		switch o.Class {
		case TruePositive:
			tp++
		case FalsePositive:
			fp++
		case FalseNegative:
			fn++
		case TrueNegative:
			tn++
		}
	}
	return MetricsFromCounts(tp, fp, fn, tn)
}

// Reset 清空预测与标签（重新构造聚合，而非逐字段清理）
func (e *Evaluator) Reset() {
	*e = *NewEvaluator()
}

// MetricsFromCounts 由混淆矩阵计数计算指标，分母为 0 时指标为 0
func MetricsFromCounts(tp, fp, fn, tn int) models.EvaluationMetrics {
	precision := ratio(tp, tp+fp)
	recall := ratio(tp, tp+fn)

	f1 := 0.0
	if precision+recall > 0 {
		f1 = 2 * precision * recall / (precision + recall)
	}

	return models.EvaluationMetrics{
		Precision:            precision,
		Recall:               recall,
		F1Score:              f1,
		FalsePositiveRate:    ratio(fp, fp+tn),
		TruePositives:        tp,
		FalsePositives:       fp,
		FalseNegatives:       fn,
		TrueNegatives:        tn,
		TotalPredictions:     tp + fp + fn + tn,
		TotalActualAnomalies: tp + fn,
		TotalNormalReadings:  fp + tn,
	}
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

// PredictionsFromEvents 每条读数一条预测：存在引用该读数的异常事件即为异常
func PredictionsFromEvents(readings []models.Reading, events []models.AnomalyEvent) []Prediction {
	byReading := make(map[string]models.AnomalyType, len(events))
	for _, ev := range events {
		if ev.SourceReadingID == nil {
			continue
		}
		byReading[*ev.SourceReadingID] = ev.AnomalyType
	}

	predictions := make([]Prediction, 0, len(readings))
	for _, r := range readings {
		p := Prediction{ReadingID: r.ID}
		if t, ok := byReading[r.ID]; ok {
			t := t
			p.IsAnomaly = true
			p.AnomalyType = &t
		}
		predictions = append(predictions, p)
	}
	return predictions
}
