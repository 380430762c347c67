package pipeline

import (
	"time"

	"github.com/google/uuid"

	"cropwatch-anomaly/internal/models"
)

// BuildAnomalyEvent 由异常结论构建事件
// 事件时间取读数时间；类型缺省 general_anomaly，严重程度缺省 low
func BuildAnomalyEvent(reading models.Reading, result models.DetectionResult, createdAt time.Time) *models.AnomalyEvent {
	readingID := reading.ID
	return &models.AnomalyEvent{
		EventID:         uuid.New().String(),
		PlotID:          reading.PlotID,
		SourceReadingID: &readingID,
		Timestamp:       reading.Timestamp,
		AnomalyType:     result.TypeOr(models.AnomalyGeneral),
		Severity:        result.SeverityOr(models.SeverityLow),
		Confidence:      result.Confidence,
		Details:         result.Details,
		CreatedAt:       createdAt,
	}
}
