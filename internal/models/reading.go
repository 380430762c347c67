package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// SensorType 传感器类型
type SensorType string

const (
	SensorTypeMoisture    SensorType = "moisture"    // 土壤湿度
	SensorTypeTemperature SensorType = "temperature" // 空气温度
	SensorTypeHumidity    SensorType = "humidity"    // 空气湿度
)

// SensorTypes 返回已知的传感器类型（生成顺序即正常步的生成顺序）
func SensorTypes() []SensorType {
	return []SensorType{SensorTypeMoisture, SensorTypeTemperature, SensorTypeHumidity}
}

// Known 是否为已定义分类规则的传感器类型
func (t SensorType) Known() bool {
	switch t {
	case SensorTypeMoisture, SensorTypeTemperature, SensorTypeHumidity:
		return true
	}
	return false
}

// Source 读数来源
type Source string

const (
	SourceSimulator  Source = "simulator"
	SourceRealSensor Source = "real_sensor"
)

// ValueScale 读数保留的小数位（对应 NUMERIC(7,3)）
const ValueScale = 3

// Reading 单个地块、单个传感器的一次测量（对应 sensor_readings 表）
// 创建后不可变
type Reading struct {
	ID         string          `json:"id" db:"reading_id"`
	PlotID     string          `json:"plot_id" db:"plot_id"`
	SensorType SensorType      `json:"sensor_type" db:"sensor_type"`
	Value      decimal.Decimal `json:"value" db:"value"`
	Timestamp  time.Time       `json:"timestamp" db:"timestamp"`
	Source     Source          `json:"source" db:"source"`
}

// NewReading 构建读数，数值按 ValueScale 四舍五入
func NewReading(id, plotID string, sensorType SensorType, value float64, ts time.Time, source Source) Reading {
	return Reading{
		ID:         id,
		PlotID:     plotID,
		SensorType: sensorType,
		Value:      decimal.NewFromFloat(value).Round(ValueScale),
		Timestamp:  ts,
		Source:     source,
	}
}

// Float 读数的浮点值（统计计算使用）
func (r Reading) Float() float64 {
	return r.Value.InexactFloat64()
}

// Validate 校验入库前的必填字段
// 未知的 sensor_type 不视为错误（检测器会返回非异常）
func (r Reading) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("reading id is required")
	}
	if r.PlotID == "" {
		return fmt.Errorf("plot_id is required")
	}
	if r.SensorType == "" {
		return fmt.Errorf("sensor_type is required")
	}
	if r.Timestamp.IsZero() {
		return fmt.Errorf("timestamp is required")
	}
	switch r.Source {
	case SourceSimulator, SourceRealSensor:
	default:
		return fmt.Errorf("invalid source: %q", r.Source)
	}
	return nil
}

// HistoryPoint 历史读数（读数存储返回的时间序列点）
type HistoryPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}
