package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultValues(t *testing.T) {
	// 清除环境变量
	os.Clearenv()

	cfg, err := Load()
	require.NoError(t, err)
	assert.NotNil(t, cfg)

	// 验证默认值
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "postgres", cfg.Database.User)
	assert.Equal(t, "postgres", cfg.Database.Password)
	assert.Equal(t, "cropwatch", cfg.Database.Database)
	assert.Equal(t, "disable", cfg.Database.SSLMode)
	assert.Equal(t, 10, cfg.Database.MaxConns)

	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "", cfg.Redis.Password)
	assert.Equal(t, 0, cfg.Redis.DB)

	assert.Equal(t, "tcp://localhost:1883", cfg.MQTT.Broker)
	assert.Equal(t, "cropwatch-anomaly", cfg.MQTT.ClientID)
	assert.Equal(t, byte(1), cfg.MQTT.QoS)

	assert.Equal(t, "cropwatch:readings:created", cfg.Detection.Streams.ReadingsCreated)
	assert.Equal(t, "cropwatch:anomalies", cfg.Detection.Streams.Anomalies)
	assert.Equal(t, "anomaly-detector-group", cfg.Detection.ConsumerGroup)
	assert.Equal(t, "anomaly-detector-1", cfg.Detection.ConsumerName)
	assert.Equal(t, int64(10), cfg.Detection.BatchSize)
	assert.Equal(t, 5*time.Second, cfg.Detection.BlockTimeout)
	assert.Equal(t, "cropwatch/plots/+/readings", cfg.Detection.ReadingsTopic)
	assert.True(t, cfg.Detection.MQTTEnabled)

	assert.Equal(t, "cropwatch:plot:", cfg.Detection.Cache.LatestKeyPrefix)
	assert.Equal(t, ":latest", cfg.Detection.Cache.LatestSuffix)
	assert.Equal(t, time.Hour, cfg.Detection.Cache.LatestTTL)

	assert.Equal(t, ":9102", cfg.Metrics.Addr)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	// 设置环境变量
	os.Setenv("DB_HOST", "test-host")
	os.Setenv("DB_PORT", "6543")
	os.Setenv("DB_USER", "test-user")
	os.Setenv("DB_PASSWORD", "test-password")
	os.Setenv("DB_NAME", "test-db")
	os.Setenv("REDIS_ADDR", "test-redis:6380")
	os.Setenv("REDIS_PASSWORD", "test-redis-password")
	os.Setenv("REDIS_DB", "2")
	os.Setenv("MQTT_BROKER", "tcp://broker:1883")
	os.Setenv("MQTT_QOS", "2")
	os.Setenv("MQTT_ENABLED", "false")
	os.Setenv("CONSUMER_BATCH_SIZE", "50")
	os.Setenv("CACHE_LATEST_TTL", "60")
	os.Setenv("METRICS_ADDR", ":9999")
	os.Setenv("LOG_LEVEL", "debug")
	os.Setenv("LOG_FORMAT", "text")

	cfg, err := Load()
	require.NoError(t, err)
	assert.NotNil(t, cfg)

	// 验证环境变量覆盖
	assert.Equal(t, "test-host", cfg.Database.Host)
	assert.Equal(t, 6543, cfg.Database.Port)
	assert.Equal(t, "test-user", cfg.Database.User)
	assert.Equal(t, "test-password", cfg.Database.Password)
	assert.Equal(t, "test-db", cfg.Database.Database)

	assert.Equal(t, "test-redis:6380", cfg.Redis.Addr)
	assert.Equal(t, "test-redis-password", cfg.Redis.Password)
	assert.Equal(t, 2, cfg.Redis.DB)

	assert.Equal(t, "tcp://broker:1883", cfg.MQTT.Broker)
	assert.Equal(t, byte(2), cfg.MQTT.QoS)
	assert.False(t, cfg.Detection.MQTTEnabled)

	assert.Equal(t, int64(50), cfg.Detection.BatchSize)
	assert.Equal(t, time.Minute, cfg.Detection.Cache.LatestTTL)
	assert.Equal(t, ":9999", cfg.Metrics.Addr)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)

	// 清理环境变量
	os.Clearenv()
}

func TestGetEnv(t *testing.T) {
	// 测试默认值
	os.Clearenv()
	value := getEnv("TEST_KEY", "default-value")
	assert.Equal(t, "default-value", value)

	// 测试环境变量值
	os.Setenv("TEST_KEY", "test-value")
	value = getEnv("TEST_KEY", "default-value")
	assert.Equal(t, "test-value", value)

	os.Clearenv()
}

func TestGetEnvInt(t *testing.T) {
	os.Clearenv()
	assert.Equal(t, 7, getEnvInt("TEST_INT", 7))

	os.Setenv("TEST_INT", "12")
	assert.Equal(t, 12, getEnvInt("TEST_INT", 7))

	// 非数字回退默认值
	os.Setenv("TEST_INT", "abc")
	assert.Equal(t, 7, getEnvInt("TEST_INT", 7))

	os.Clearenv()
}
