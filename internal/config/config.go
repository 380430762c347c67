package config

import (
	"os"
	"strconv"
	"time"

	"cropwatch-anomaly/internal/common/config"
)

// Config 异常检测服务配置
type Config struct {
	Database config.DatabaseConfig
	Redis    config.RedisConfig
	MQTT     config.MQTTConfig

	// 检测服务特定配置
	Detection struct {
		// Redis Streams 配置
		Streams struct {
			ReadingsCreated string // 读数入库事件流，如 "cropwatch:readings:created"
			Anomalies       string // 异常事件输出流，如 "cropwatch:anomalies"
		}
		ConsumerGroup string        // 消费者组名称
		ConsumerName  string        // 消费者名称
		BatchSize     int64         // 批量处理大小
		BlockTimeout  time.Duration // XREADGROUP 阻塞时长

		// MQTT 读数主题（+ 匹配 plot_id）
		ReadingsTopic string
		MQTTEnabled   bool

		// Redis 缓存配置
		Cache struct {
			LatestKeyPrefix string        // 最新结论缓存键前缀，如 "cropwatch:plot:"
			LatestSuffix    string        // 最新结论缓存键后缀，如 ":latest"
			LatestTTL       time.Duration // 最新结论 TTL
		}
	}

	Metrics struct {
		Addr string // Prometheus /metrics 监听地址
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load 加载配置
func Load() (*Config, error) {
	cfg := &Config{}

	// 从环境变量加载（默认值）
	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = 5432
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "cropwatch")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = 10
	cfg.Database.MaxIdle = 5
	// DB_PORT / DB_MAX_CONNS / DB_MAX_IDLE
	cfg.Database.LoadFromEnv("DB")

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)

	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "tcp://localhost:1883")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "cropwatch-anomaly")
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", "")
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", "")
	cfg.MQTT.QoS = 1
	cfg.MQTT.LoadFromEnv("MQTT")

	// 检测服务配置
	cfg.Detection.Streams.ReadingsCreated = getEnv("STREAM_READINGS_CREATED", "cropwatch:readings:created")
	cfg.Detection.Streams.Anomalies = getEnv("STREAM_ANOMALIES", "cropwatch:anomalies")
	cfg.Detection.ConsumerGroup = getEnv("CONSUMER_GROUP", "anomaly-detector-group")
	cfg.Detection.ConsumerName = getEnv("CONSUMER_NAME", "anomaly-detector-1")
	cfg.Detection.BatchSize = int64(getEnvInt("CONSUMER_BATCH_SIZE", 10))
	cfg.Detection.BlockTimeout = 5 * time.Second

	cfg.Detection.ReadingsTopic = getEnv("MQTT_READINGS_TOPIC", "cropwatch/plots/+/readings")
	cfg.Detection.MQTTEnabled = getEnv("MQTT_ENABLED", "true") == "true"

	cfg.Detection.Cache.LatestKeyPrefix = getEnv("CACHE_LATEST_PREFIX", "cropwatch:plot:")
	cfg.Detection.Cache.LatestSuffix = ":latest"
	cfg.Detection.Cache.LatestTTL = time.Duration(getEnvInt("CACHE_LATEST_TTL", 3600)) * time.Second

	cfg.Metrics.Addr = getEnv("METRICS_ADDR", ":9102")

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
