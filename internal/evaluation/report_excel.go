package evaluation

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"cropwatch-anomaly/internal/models"
)

const (
	SummarySheet  = "Summary"
	OutcomesSheet = "Outcomes"
)

// OutcomesHeader 明细表表头
var OutcomesHeader = []string{"Reading ID", "Outcome", "Predicted", "Predicted Type", "Actual", "Actual Type"}

// GenerateExcelReport 生成评估报告 Excel 文件（汇总页 + 明细页）
func GenerateExcelReport(m models.EvaluationMetrics, outcomes []Outcome) ([]byte, error) {
	f := excelize.NewFile()
	// WriteTo 需要文件保持打开，出错路径各自 Close

	summaryIdx, err := f.NewSheet(SummarySheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	if _, err := f.NewSheet(OutcomesSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}

	// 删除默认的 Sheet1
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(summaryIdx)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold: true,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	if err := writeSummarySheet(f, m, headerStyle); err != nil {
		f.Close()
		return nil, err
	}
	if err := writeOutcomesSheet(f, outcomes, headerStyle); err != nil {
		f.Close()
		return nil, err
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write to buffer: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close file: %w", err)
	}

	return buf.Bytes(), nil
}

func writeSummarySheet(f *excelize.File, m models.EvaluationMetrics, headerStyle int) error {
	rows := [][]interface{}{
		{"Metric", "Value"},
		{"Precision", m.Precision},
		{"Recall", m.Recall},
		{"F1-Score", m.F1Score},
		{"False Positive Rate", m.FalsePositiveRate},
		{"True Positives", m.TruePositives},
		{"False Positives", m.FalsePositives},
		{"False Negatives", m.FalseNegatives},
		{"True Negatives", m.TrueNegatives},
		{"Total Predictions", m.TotalPredictions},
		{"Actual Anomalies", m.TotalActualAnomalies},
		{"Actual Normal", m.TotalNormalReadings},
	}

	for i, row := range rows {
		for j, v := range row {
			if err := setCellValue(f, SummarySheet, j+1, i+1, v); err != nil {
				return fmt.Errorf("failed to set summary cell at row %d, col %d: %w", i+1, j+1, err)
			}
		}
	}

	if err := f.SetCellStyle(SummarySheet, "A1", "B1", headerStyle); err != nil {
		return fmt.Errorf("failed to set header style: %w", err)
	}
	if err := f.SetColWidth(SummarySheet, "A", "A", 24); err != nil {
		return fmt.Errorf("failed to set column width: %w", err)
	}
	if err := f.SetColWidth(SummarySheet, "B", "B", 14); err != nil {
		return fmt.Errorf("failed to set column width: %w", err)
	}
	return nil
}

func writeOutcomesSheet(f *excelize.File, outcomes []Outcome, headerStyle int) error {
	for col, header := range OutcomesHeader {
		if err := setCellValue(f, OutcomesSheet, col+1, 1, header); err != nil {
			return fmt.Errorf("failed to set header cell: %w", err)
		}
	}

	last, err := excelize.CoordinatesToCellName(len(OutcomesHeader), 1)
	if err != nil {
		return fmt.Errorf("failed to convert coordinates: %w", err)
	}
	if err := f.SetCellStyle(OutcomesSheet, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("failed to set header style: %w", err)
	}

	columnWidths := []float64{
		38, // Reading ID
		10, // Outcome
		12, // Predicted
		20, // Predicted Type
		10, // Actual
		20, // Actual Type
	}
	for i, width := range columnWidths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return fmt.Errorf("failed to convert column number: %w", err)
		}
		if err := f.SetColWidth(OutcomesSheet, col, col, width); err != nil {
			return fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for i, o := range outcomes {
		row := i + 2 // 第1行是表头
		values := []interface{}{
			o.ReadingID,
			string(o.Class),
			yesNo(o.Predicted),
			typeString(o.PredictedType),
			yesNo(o.Actual),
			stringValue(o.ActualType),
		}
		for col, v := range values {
			if v == "" {
				continue
			}
			if err := setCellValue(f, OutcomesSheet, col+1, row, v); err != nil {
				return fmt.Errorf("failed to set cell value at row %d, col %d: %w", row, col+1, err)
			}
		}
	}

	// 冻结表头
	if err := f.SetPanes(OutcomesSheet, &excelize.Panes{
		Freeze:      true,
		Split:       false,
		XSplit:      0,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze panes: %w", err)
	}
	return nil
}

// setCellValue 设置单元格值
func setCellValue(f *excelize.File, sheet string, col, row int, value interface{}) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	return f.SetCellValue(sheet, cell, value)
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func typeString(t *models.AnomalyType) string {
	if t == nil {
		return ""
	}
	return string(*t)
}

func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
