package detector

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Baseline 历史基线（样本均值与样本标准差）
type Baseline struct {
	Mean   float64
	StdDev float64
	Count  int
}

// ComputeBaseline 计算基线，样本不足 2 条时标准差记为 0
func ComputeBaseline(values []float64) Baseline {
	if len(values) == 0 {
		return Baseline{}
	}
	if len(values) == 1 {
		return Baseline{Mean: values[0], Count: 1}
	}

	mean, std := stat.MeanStdDev(values, nil)
	if math.IsNaN(std) || math.IsInf(std, 0) {
		std = 0
	}

	return Baseline{
		Mean:   mean,
		StdDev: std,
		Count:  len(values),
	}
}

// ZScore 返回 |value-mean|/std；std 为 0 时返回 0
func (b Baseline) ZScore(value float64) float64 {
	if b.StdDev <= 0 {
		return 0
	}
	return math.Abs(value-b.Mean) / b.StdDev
}
