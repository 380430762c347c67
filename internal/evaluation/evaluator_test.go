package evaluation

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"cropwatch-anomaly/internal/models"
)

func strPtr(s string) *string { return &s }

// seedConfusion 写入 tp/fp/fn/tn 各若干条预测与标签
func seedConfusion(e *Evaluator, tp, fp, fn, tn int) {
	n := 0
	add := func(predicted, actual bool) {
		id := fmt.Sprintf("r-%03d", n)
		n++
		var label *string
		if actual {
			label = strPtr("irrigation_issue")
		}
		e.RecordGroundTruth(id, actual, label)
		e.RecordPredictions(Prediction{ReadingID: id, IsAnomaly: predicted})
	}
	for i := 0; i < tp; i++ {
		add(true, true)
	}
	for i := 0; i < fp; i++ {
		add(true, false)
	}
	for i := 0; i < fn; i++ {
		add(false, true)
	}
	for i := 0; i < tn; i++ {
		add(false, false)
	}
}

func TestComputeMetrics_ConfusionMatrix(t *testing.T) {
	e := NewEvaluator()
	seedConfusion(e, 20, 5, 3, 72)

	m := e.ComputeMetrics()

	assert.Equal(t, 20, m.TruePositives)
	assert.Equal(t, 5, m.FalsePositives)
	assert.Equal(t, 3, m.FalseNegatives)
	assert.Equal(t, 72, m.TrueNegatives)
	assert.Equal(t, 100, m.TotalPredictions)
	assert.Equal(t, 23, m.TotalActualAnomalies)
	assert.Equal(t, 77, m.TotalNormalReadings)

	assert.InDelta(t, 0.8, m.Precision, 1e-9)
	assert.InDelta(t, 20.0/23.0, m.Recall, 1e-9)
	assert.InDelta(t, 40.0/48.0, m.F1Score, 1e-9)
	assert.InDelta(t, 5.0/77.0, m.FalsePositiveRate, 1e-9)
}

func TestComputeMetrics_Idempotent(t *testing.T) {
	e := NewEvaluator()
	seedConfusion(e, 4, 1, 2, 3)

	first := e.ComputeMetrics()
	second := e.ComputeMetrics()
	assert.Equal(t, first, second)
}

func TestComputeMetrics_UnlabelledPredictionsIgnored(t *testing.T) {
	e := NewEvaluator()
	seedConfusion(e, 1, 0, 0, 1)
	e.RecordPredictions(
		Prediction{ReadingID: "unknown-1", IsAnomaly: true},
		Prediction{ReadingID: "unknown-2", IsAnomaly: false},
	)

	m := e.ComputeMetrics()
	assert.Equal(t, 2, m.TotalPredictions)
	assert.Equal(t, 4, e.PredictionCount())
	assert.Len(t, e.Outcomes(), 2)
}

func TestComputeMetrics_ZeroDenominators(t *testing.T) {
	t.Run("empty evaluator", func(t *testing.T) {
		m := NewEvaluator().ComputeMetrics()
		assert.Equal(t, models.EvaluationMetrics{}, m)
	})

	t.Run("only true negatives", func(t *testing.T) {
		e := NewEvaluator()
		seedConfusion(e, 0, 0, 0, 10)
		m := e.ComputeMetrics()
		assert.Equal(t, 0.0, m.Precision)
		assert.Equal(t, 0.0, m.Recall)
		assert.Equal(t, 0.0, m.F1Score)
		assert.Equal(t, 0.0, m.FalsePositiveRate)
		assert.Equal(t, 10, m.TrueNegatives)
	})

	t.Run("only false negatives", func(t *testing.T) {
		e := NewEvaluator()
		seedConfusion(e, 0, 0, 4, 0)
		m := e.ComputeMetrics()
		assert.Equal(t, 0.0, m.Precision)
		assert.Equal(t, 0.0, m.Recall)
		assert.Equal(t, 0.0, m.FalsePositiveRate)
		assert.Equal(t, 4, m.TotalActualAnomalies)
	})
}

func TestRecordGroundTruth_LastWriteWins(t *testing.T) {
	e := NewEvaluator()
	e.RecordGroundTruth("r-1", true, strPtr("heat_stress"))
	e.RecordGroundTruth("r-1", false, nil)
	e.RecordPredictions(Prediction{ReadingID: "r-1", IsAnomaly: true})

	m := e.ComputeMetrics()
	assert.Equal(t, 1, e.LabelCount())
	assert.Equal(t, 1, m.FalsePositives)
	assert.Equal(t, 0, m.TruePositives)
}

func TestRecordGroundTruth_CopiesType(t *testing.T) {
	e := NewEvaluator()
	label := "cold_stress"
	e.RecordGroundTruth("r-1", true, &label)
	label = "mutated"

	e.RecordPredictions(Prediction{ReadingID: "r-1", IsAnomaly: true})
	outcomes := e.Outcomes()
	require.Len(t, outcomes, 1)
	require.NotNil(t, outcomes[0].ActualType)
	assert.Equal(t, "cold_stress", *outcomes[0].ActualType)
}

func TestRecordPredictions_NoDedup(t *testing.T) {
	e := NewEvaluator()
	e.RecordGroundTruth("r-1", true, nil)
	e.RecordPredictions(
		Prediction{ReadingID: "r-1", IsAnomaly: true},
		Prediction{ReadingID: "r-1", IsAnomaly: false},
	)

	m := e.ComputeMetrics()
	assert.Equal(t, 2, m.TotalPredictions)
	assert.Equal(t, 1, m.TruePositives)
	assert.Equal(t, 1, m.FalseNegatives)
}

func TestReset(t *testing.T) {
	e := NewEvaluator()
	seedConfusion(e, 3, 3, 3, 3)
	e.Reset()

	assert.Equal(t, 0, e.LabelCount())
	assert.Equal(t, 0, e.PredictionCount())
	assert.Equal(t, models.EvaluationMetrics{}, e.ComputeMetrics())

	seedConfusion(e, 1, 0, 0, 0)
	assert.Equal(t, 1, e.ComputeMetrics().TruePositives)
}

func TestRecordLabels(t *testing.T) {
	e := NewEvaluator()
	e.RecordLabels(map[string]models.GroundTruthLabel{
		"a": {ReadingID: "a", IsAnomaly: true, AnomalyType: strPtr("heat_stress")},
		"b": {ReadingID: "b", IsAnomaly: false},
	})
	e.RecordPredictions(
		Prediction{ReadingID: "a", IsAnomaly: true},
		Prediction{ReadingID: "b", IsAnomaly: false},
	)

	m := e.ComputeMetrics()
	assert.Equal(t, 1, m.TruePositives)
	assert.Equal(t, 1, m.TrueNegatives)
}

func TestPredictionsFromEvents(t *testing.T) {
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	readings := []models.Reading{
		models.NewReading("r-1", "plot-1", models.SensorTypeMoisture, 20, ts, models.SourceSimulator),
		models.NewReading("r-2", "plot-1", models.SensorTypeTemperature, 22, ts, models.SourceSimulator),
		models.NewReading("r-3", "plot-1", models.SensorTypeHumidity, 90, ts, models.SourceSimulator),
	}
	events := []models.AnomalyEvent{
		{EventID: "e-1", SourceReadingID: strPtr("r-1"), AnomalyType: models.AnomalyIrrigationIssue},
		{EventID: "e-3", SourceReadingID: strPtr("r-3"), AnomalyType: models.AnomalyGeneral},
		{EventID: "e-x", AnomalyType: models.AnomalyHeatStress},
	}

	predictions := PredictionsFromEvents(readings, events)
	require.Len(t, predictions, 3)

	assert.True(t, predictions[0].IsAnomaly)
	require.NotNil(t, predictions[0].AnomalyType)
	assert.Equal(t, models.AnomalyIrrigationIssue, *predictions[0].AnomalyType)

	assert.False(t, predictions[1].IsAnomaly)
	assert.Nil(t, predictions[1].AnomalyType)

	assert.True(t, predictions[2].IsAnomaly)
	assert.Equal(t, models.AnomalyGeneral, *predictions[2].AnomalyType)
}

func TestFormatReport(t *testing.T) {
	report := FormatReport(MetricsFromCounts(20, 5, 3, 72))

	assert.Contains(t, report, "ANOMALY DETECTION MODEL EVALUATION REPORT")
	assert.Contains(t, report, "0.8000 (80.00%)")
	assert.Contains(t, report, "True Positives:   20")
	assert.Contains(t, report, "True Negatives:   72")
	assert.Contains(t, report, "Total Predictions:     100")
	assert.Equal(t, 3, strings.Count(report, reportRule))
}

func TestGenerateExcelReport(t *testing.T) {
	e := NewEvaluator()
	e.RecordGroundTruth("r-1", true, strPtr("heat_stress"))
	e.RecordGroundTruth("r-2", false, nil)
	heat := models.AnomalyHeatStress
	e.RecordPredictions(
		Prediction{ReadingID: "r-1", IsAnomaly: true, AnomalyType: &heat},
		Prediction{ReadingID: "r-2", IsAnomaly: true},
	)

	data, err := GenerateExcelReport(e.ComputeMetrics(), e.Outcomes())
	require.NoError(t, err)
	require.NotEmpty(t, data)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SummarySheet, OutcomesSheet}, f.GetSheetList())

	summary, err := f.GetRows(SummarySheet)
	require.NoError(t, err)
	require.Len(t, summary, 12)
	assert.Equal(t, []string{"Metric", "Value"}, summary[0])
	assert.Equal(t, "Precision", summary[1][0])
	assert.Equal(t, "0.5", summary[1][1])
	assert.Equal(t, []string{"True Positives", "1"}, summary[5])

	rows, err := f.GetRows(OutcomesSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, OutcomesHeader, rows[0])
	assert.Equal(t, []string{"r-1", "TP", "Yes", "heat_stress", "Yes", "heat_stress"}, rows[1])
	assert.Equal(t, []string{"r-2", "FP", "Yes", "", "No"}, rows[2])
}
