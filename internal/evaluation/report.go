package evaluation

import (
	"fmt"
	"strings"

	"cropwatch-anomaly/internal/models"
)

const reportRule = "============================================================"

// FormatReport 生成文本评估报告
func FormatReport(m models.EvaluationMetrics) string {
	var b strings.Builder

	b.WriteString("\n" + reportRule + "\n")
	b.WriteString("ANOMALY DETECTION MODEL EVALUATION REPORT\n")
	b.WriteString(reportRule + "\n")

	b.WriteString("\nPerformance Metrics:\n")
	writeRate(&b, "Precision:", m.Precision)
	writeRate(&b, "Recall:", m.Recall)
	writeRate(&b, "F1-Score:", m.F1Score)
	writeRate(&b, "False Pos. Rate:", m.FalsePositiveRate)

	b.WriteString("\nConfusion Matrix:\n")
	fmt.Fprintf(&b, "   %-18s%d\n", "True Positives:", m.TruePositives)
	fmt.Fprintf(&b, "   %-18s%d\n", "False Positives:", m.FalsePositives)
	fmt.Fprintf(&b, "   %-18s%d\n", "False Negatives:", m.FalseNegatives)
	fmt.Fprintf(&b, "   %-18s%d\n", "True Negatives:", m.TrueNegatives)

	b.WriteString("\nSummary:\n")
	fmt.Fprintf(&b, "   %-23s%d\n", "Total Predictions:", m.TotalPredictions)
	fmt.Fprintf(&b, "   %-23s%d\n", "Actual Anomalies:", m.TotalActualAnomalies)
	fmt.Fprintf(&b, "   %-23s%d\n", "Actual Normal:", m.TotalNormalReadings)
	b.WriteString(reportRule + "\n")

	return b.String()
}

func writeRate(b *strings.Builder, label string, v float64) {
	fmt.Fprintf(b, "   %-18s%.4f (%.2f%%)\n", label, v, v*100)
}
