// Package simulator 生成实时传感器读数流（昼夜温度模型 + 随机注入异常）
package simulator

import (
	"math"
	"math/rand"

	"github.com/shopspring/decimal"
)

// AnomalyKind 注入的异常种类
type AnomalyKind string

const (
	AnomalyNone         AnomalyKind = ""
	AnomalyLowMoisture  AnomalyKind = "low_moisture"
	AnomalyHighTemp     AnomalyKind = "high_temp"
	AnomalyLowTemp      AnomalyKind = "low_temp"
	AnomalyLowHumidity  AnomalyKind = "low_humidity"
	AnomalyHighHumidity AnomalyKind = "high_humidity"
)

// AnomalyKinds 可注入的异常种类（均匀抽取）
var AnomalyKinds = []AnomalyKind{AnomalyLowMoisture, AnomalyHighTemp, AnomalyLowTemp, AnomalyLowHumidity, AnomalyHighHumidity}

// 输出截断区间
const (
	moistureFloor    = 5.0
	moistureCeil     = 95.0
	temperatureFloor = 5.0
	temperatureCeil  = 45.0
	humidityFloor    = 10.0
	humidityCeil     = 95.0

	valuePlaces = 2
)

// Values 一步的三项读数
type Values struct {
	Moisture    float64 `json:"moisture"`
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
}

// Model 读数值模型
type Model struct {
	rng *rand.Rand
}

// NewModel 创建值模型
func NewModel(rng *rand.Rand) *Model {
	return &Model{rng: rng}
}

// Next 生成第 step 步的读数；以 anomalyRatio 的概率注入一种异常
func (m *Model) Next(step int, anomalyRatio float64) (Values, AnomalyKind) {
	kind := AnomalyNone
	if m.rng.Float64() < anomalyRatio {
		kind = AnomalyKinds[m.rng.Intn(len(AnomalyKinds))]
	}
	return m.Generate(step, kind), kind
}

// Generate 生成第 step 步的读数（step 按小时取模模拟昼夜）
func (m *Model) Generate(step int, kind AnomalyKind) Values {
	hour := float64(step % 24)

	baseTemp := 18 + 10*math.Max(0, 1-math.Abs(hour-12)/12)
	temperature := baseTemp + m.rng.NormFloat64()
	moisture := 60 + 5*m.rng.NormFloat64()
	humidity := 70 - (temperature - 18) + 5*m.rng.NormFloat64()

	switch kind {
	case AnomalyLowMoisture:
		moisture = m.uniform(10, 35)
	case AnomalyHighTemp:
		temperature = m.uniform(32, 42)
	case AnomalyLowTemp:
		temperature = m.uniform(5, 10)
	case AnomalyLowHumidity:
		humidity = m.uniform(10, 30)
	case AnomalyHighHumidity:
		humidity = m.uniform(85, 95)
	}

	return Values{
		Moisture:    clipRound(moisture, moistureFloor, moistureCeil),
		Temperature: clipRound(temperature, temperatureFloor, temperatureCeil),
		Humidity:    clipRound(humidity, humidityFloor, humidityCeil),
	}
}

func (m *Model) uniform(lo, hi float64) float64 {
	return lo + (hi-lo)*m.rng.Float64()
}

func clipRound(v, lo, hi float64) float64 {
	v = math.Min(math.Max(v, lo), hi)
	return decimal.NewFromFloat(v).Round(valuePlaces).InexactFloat64()
}
