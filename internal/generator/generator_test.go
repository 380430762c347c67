package generator

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cropwatch-anomaly/internal/models"
)

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestGenerator(seed int64) *Generator {
	n := 0
	return NewGenerator(
		WithSeed(seed),
		WithClock(func() time.Time { return fixedNow }),
		WithIDFunc(func() string {
			n++
			return fmt.Sprintf("reading-%04d", n)
		}),
	)
}

func TestGenerateDataset_Counts(t *testing.T) {
	g := newTestGenerator(42)

	readings, labels, err := g.GenerateDataset("plot-1", 100, 0.2)
	require.NoError(t, err)

	// 20 个异常步各 1 条 + 80 个正常步各 3 条
	assert.Len(t, readings, 20+80*3)
	assert.Len(t, labels, len(readings))

	anomalies := 0
	for _, r := range readings {
		label, ok := labels[r.ID]
		require.True(t, ok, "reading %s has no label", r.ID)
		assert.Equal(t, r.ID, label.ReadingID)
		if label.IsAnomaly {
			anomalies++
			require.NotNil(t, label.AnomalyType)
		} else {
			assert.Nil(t, label.AnomalyType)
		}
		assert.Equal(t, "plot-1", r.PlotID)
		assert.Equal(t, models.SourceSimulator, r.Source)
		assert.NoError(t, r.Validate())
	}
	assert.Equal(t, 20, anomalies)
}

func TestGenerateDataset_AnomalyStepsFirst(t *testing.T) {
	g := newTestGenerator(7)

	readings, labels, err := g.GenerateDataset("plot-1", 10, 0.5)
	require.NoError(t, err)
	require.Len(t, readings, 5+5*3)

	for i, r := range readings {
		if i < 5 {
			assert.True(t, labels[r.ID].IsAnomaly, "index %d", i)
		} else {
			assert.False(t, labels[r.ID].IsAnomaly, "index %d", i)
		}
	}
}

func TestGenerateDataset_Timestamps(t *testing.T) {
	g := newTestGenerator(1)

	readings, _, err := g.GenerateDataset("plot-1", 4, 0)
	require.NoError(t, err)
	require.Len(t, readings, 12)

	// 每步三条读数共享时间戳，最后一步为 now
	for step := 0; step < 4; step++ {
		want := fixedNow.Add(-time.Duration(3-step) * Interval)
		for k := 0; k < 3; k++ {
			assert.Equal(t, want, readings[step*3+k].Timestamp)
		}
		assert.Equal(t, models.SensorTypeMoisture, readings[step*3].SensorType)
		assert.Equal(t, models.SensorTypeTemperature, readings[step*3+1].SensorType)
		assert.Equal(t, models.SensorTypeHumidity, readings[step*3+2].SensorType)
	}
}

func TestGenerateDataset_AnomalyValueRanges(t *testing.T) {
	g := newTestGenerator(99)

	readings, labels, err := g.GenerateDataset("plot-1", 400, 1)
	require.NoError(t, err)
	require.Len(t, readings, 400)

	seen := map[string]bool{}
	for _, r := range readings {
		label := labels[r.ID]
		require.True(t, label.IsAnomaly)
		v := r.Float()
		seen[*label.AnomalyType] = true

		switch *label.AnomalyType {
		case string(models.AnomalyIrrigationIssue):
			assert.Equal(t, models.SensorTypeMoisture, r.SensorType)
			assert.True(t, v >= 10 && v <= 35, "moisture %v", v)
		case string(models.AnomalyHeatStress):
			assert.Equal(t, models.SensorTypeTemperature, r.SensorType)
			assert.True(t, v >= 32 && v <= 40, "temperature %v", v)
		case string(models.AnomalyColdStress):
			assert.Equal(t, models.SensorTypeTemperature, r.SensorType)
			assert.True(t, v >= 5 && v <= 10, "temperature %v", v)
		case string(models.AnomalyGeneral):
			assert.Equal(t, models.SensorTypeHumidity, r.SensorType)
			assert.True(t, (v >= 10 && v <= 30) || (v >= 85 && v <= 95), "humidity %v", v)
		default:
			t.Fatalf("unexpected label %q", *label.AnomalyType)
		}
	}

	// 400 步足以覆盖全部四种
	assert.Len(t, seen, 4)
}

func TestGenerateDataset_Reproducible(t *testing.T) {
	a, la, err := newTestGenerator(2024).GenerateDataset("plot-1", 50, 0.3)
	require.NoError(t, err)
	b, lb, err := newTestGenerator(2024).GenerateDataset("plot-1", 50, 0.3)
	require.NoError(t, err)

	require.Len(t, b, len(a))
	for i := range a {
		assert.Equal(t, a[i].ID, b[i].ID)
		assert.True(t, a[i].Value.Equal(b[i].Value))
		assert.Equal(t, a[i].SensorType, b[i].SensorType)
	}
	assert.Equal(t, la, lb)
}

func TestGenerateDataset_ValuesRounded(t *testing.T) {
	readings, _, err := newTestGenerator(5).GenerateDataset("plot-1", 10, 0.2)
	require.NoError(t, err)

	for _, r := range readings {
		assert.LessOrEqual(t, -r.Value.Exponent(), int32(models.ValueScale))
	}
}

func TestGenerateDataset_Empty(t *testing.T) {
	readings, labels, err := newTestGenerator(1).GenerateDataset("plot-1", 0, 0.5)
	require.NoError(t, err)
	assert.Empty(t, readings)
	assert.Empty(t, labels)
}

func TestGenerateDataset_InvalidInput(t *testing.T) {
	g := newTestGenerator(1)

	tests := []struct {
		name   string
		plotID string
		count  int
		ratio  float64
	}{
		{"missing plot", "", 10, 0.2},
		{"negative count", "plot-1", -1, 0.2},
		{"negative ratio", "plot-1", 10, -0.1},
		{"ratio above one", "plot-1", 10, 1.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := g.GenerateDataset(tt.plotID, tt.count, tt.ratio)
			assert.Error(t, err)
		})
	}
}

func TestNewGenerator_DefaultUUIDs(t *testing.T) {
	readings, _, err := NewGenerator().GenerateDataset("plot-1", 1, 0)
	require.NoError(t, err)
	require.Len(t, readings, 3)
	assert.Len(t, readings[0].ID, 36)
	assert.NotEqual(t, readings[0].ID, readings[1].ID)
}
