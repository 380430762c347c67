// Package generator 生成带真实标签的合成传感器数据，用于评估检测器
package generator

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"cropwatch-anomaly/internal/models"
)

// Interval 相邻两步的时间间隔
const Interval = 15 * time.Minute

// InjectedKind 注入的异常种类
type InjectedKind string

const (
	KindIrrigationIssue InjectedKind = "irrigation_issue"
	KindHeatStress      InjectedKind = "heat_stress"
	KindColdStress      InjectedKind = "cold_stress"
	KindHumidity        InjectedKind = "humidity_anomaly"
)

// InjectedKinds 可注入的异常种类（均匀抽取）
var InjectedKinds = []InjectedKind{KindIrrigationIssue, KindHeatStress, KindColdStress, KindHumidity}

// 正常读数的分布参数
const (
	moistureMean    = 60.0
	moistureStd     = 10.0
	temperatureMean = 23.0
	temperatureStd  = 3.0
	humidityMean    = 60.0
	humidityStd     = 10.0
)

// Generator 合成数据生成器
type Generator struct {
	rng    *rand.Rand
	now    func() time.Time
	newID  func() string
	source models.Source
}

// Option 生成器选项
type Option func(*Generator)

// WithRand 指定随机数源（固定种子可复现）
func WithRand(rng *rand.Rand) Option {
	return func(g *Generator) {
		g.rng = rng
	}
}

// WithSeed 以固定种子创建随机数源
func WithSeed(seed int64) Option {
	return WithRand(rand.New(rand.NewSource(seed)))
}

// WithClock 指定时钟（最后一步的时间戳）
func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		g.now = now
	}
}

// WithIDFunc 指定读数 ID 生成函数
func WithIDFunc(newID func() string) Option {
	return func(g *Generator) {
		g.newID = newID
	}
}

// NewGenerator 创建生成器，默认使用当前时间作为种子
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		now:    time.Now,
		newID:  uuid.NewString,
		source: models.SourceSimulator,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// GenerateDataset 生成 count 步数据
// 前 floor(count*anomalyRatio) 步各生成一条异常读数，其余每步生成三条正常读数；
// 每条读数创建时即打标签，读数与标签一一对应
func (g *Generator) GenerateDataset(plotID string, count int, anomalyRatio float64) ([]models.Reading, map[string]models.GroundTruthLabel, error) {
	if plotID == "" {
		return nil, nil, fmt.Errorf("plot_id is required")
	}
	if count < 0 {
		return nil, nil, fmt.Errorf("invalid count: %d", count)
	}
	if anomalyRatio < 0 || anomalyRatio > 1 {
		return nil, nil, fmt.Errorf("invalid anomaly ratio: %v", anomalyRatio)
	}

	anomalySteps := int(float64(count) * anomalyRatio)
	now := g.now()

	readings := make([]models.Reading, 0, anomalySteps+3*(count-anomalySteps))
	labels := make(map[string]models.GroundTruthLabel, cap(readings))

	for i := 0; i < count; i++ {
		ts := now.Add(-time.Duration(count-1-i) * Interval)

		if i < anomalySteps {
			kind := InjectedKinds[g.rng.Intn(len(InjectedKinds))]
			r, label := g.anomalyReading(plotID, ts, kind)
			readings = append(readings, r)
			labels[r.ID] = label
			continue
		}

		for _, r := range g.normalReadings(plotID, ts) {
			readings = append(readings, r)
			labels[r.ID] = models.GroundTruthLabel{ReadingID: r.ID, IsAnomaly: false}
		}
	}

	return readings, labels, nil
}

func (g *Generator) normalReadings(plotID string, ts time.Time) []models.Reading {
	moisture := g.normal(moistureMean, moistureStd)
	temperature := g.normal(temperatureMean, temperatureStd)
	humidity := g.normal(humidityMean, humidityStd)

	return []models.Reading{
		models.NewReading(g.newID(), plotID, models.SensorTypeMoisture, moisture, ts, g.source),
		models.NewReading(g.newID(), plotID, models.SensorTypeTemperature, temperature, ts, g.source),
		models.NewReading(g.newID(), plotID, models.SensorTypeHumidity, humidity, ts, g.source),
	}
}

func (g *Generator) anomalyReading(plotID string, ts time.Time, kind InjectedKind) (models.Reading, models.GroundTruthLabel) {
	var (
		sensorType models.SensorType
		value      float64
		label      models.AnomalyType
	)

	switch kind {
	case KindIrrigationIssue:
		sensorType, value, label = models.SensorTypeMoisture, g.uniform(10, 35), models.AnomalyIrrigationIssue
	case KindHeatStress:
		sensorType, value, label = models.SensorTypeTemperature, g.uniform(32, 40), models.AnomalyHeatStress
	case KindColdStress:
		sensorType, value, label = models.SensorTypeTemperature, g.uniform(5, 10), models.AnomalyColdStress
	default:
		// 过低或过高各一半
		if g.rng.Float64() < 0.5 {
			value = g.uniform(10, 30)
		} else {
			value = g.uniform(85, 95)
		}
		sensorType, label = models.SensorTypeHumidity, models.AnomalyGeneral
	}

	r := models.NewReading(g.newID(), plotID, sensorType, value, ts, g.source)
	t := string(label)
	return r, models.GroundTruthLabel{ReadingID: r.ID, IsAnomaly: true, AnomalyType: &t}
}

func (g *Generator) normal(mean, std float64) float64 {
	return mean + std*g.rng.NormFloat64()
}

// uniform 返回 [lo, hi) 内的均匀分布值
func (g *Generator) uniform(lo, hi float64) float64 {
	return lo + (hi-lo)*g.rng.Float64()
}
