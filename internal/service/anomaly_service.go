package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"cropwatch-anomaly/internal/common/database"
	mqttcommon "cropwatch-anomaly/internal/common/mqtt"
	rediscommon "cropwatch-anomaly/internal/common/redis"
	"cropwatch-anomaly/internal/config"
	"cropwatch-anomaly/internal/consumer"
	"cropwatch-anomaly/internal/detector"
	"cropwatch-anomaly/internal/metrics"
	"cropwatch-anomaly/internal/pipeline"
	"cropwatch-anomaly/internal/repository"
)

// AnomalyService 异常检测服务（整合各层）
type AnomalyService struct {
	config      *config.Config
	db          *sql.DB
	redisClient *redis.Client
	mqttClient  *mqttcommon.Client
	logger      *zap.Logger

	// 各层组件
	readingRepo    *repository.ReadingRepository
	eventRepo      *repository.AnomalyEventRepository
	cacheManager   *consumer.CacheManager
	publisher      *consumer.AnomalyPublisher
	handler        *pipeline.ReadingHandler
	streamConsumer *consumer.StreamConsumer
	mqttIngest     *consumer.MQTTIngest
	metricsServer  *http.Server
}

// NewAnomalyService 创建异常检测服务
func NewAnomalyService(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*AnomalyService, error) {
	// 1. 连接数据库
	db, err := database.NewPostgresDB(ctx, &cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := repository.EnsureSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	// 2. 连接 Redis
	redisClient := rediscommon.NewRedisClient(&cfg.Redis)
	if err := rediscommon.Ping(ctx, redisClient); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	// 3. 创建 Repository 层
	readingRepo := repository.NewReadingRepository(db, logger)
	eventRepo := repository.NewAnomalyEventRepository(db, logger)

	// 4. 创建输出（最新结论缓存、异常事件流）
	cacheManager := consumer.NewCacheManager(cfg, redisClient, logger)
	publisher := consumer.NewAnomalyPublisher(cfg, redisClient, logger)

	// 5. 创建检测管道
	handler := pipeline.NewReadingHandler(
		readingRepo,
		eventRepo,
		detector.NewThresholdDetector(),
		logger,
		cacheManager,
		publisher,
	)

	// 6. 创建读数入口
	streamConsumer := consumer.NewStreamConsumer(cfg, redisClient, handler, logger)

	s := &AnomalyService{
		config:         cfg,
		db:             db,
		redisClient:    redisClient,
		logger:         logger,
		readingRepo:    readingRepo,
		eventRepo:      eventRepo,
		cacheManager:   cacheManager,
		publisher:      publisher,
		handler:        handler,
		streamConsumer: streamConsumer,
	}

	if cfg.Detection.MQTTEnabled {
		mqttClient, err := mqttcommon.NewClient(&cfg.MQTT, logger)
		if err != nil {
			s.Stop()
			return nil, err
		}
		s.mqttClient = mqttClient
		s.mqttIngest = consumer.NewMQTTIngest(cfg, mqttClient, readingRepo, handler, logger)
	}

	if cfg.Metrics.Addr != "" {
		s.metricsServer = metrics.NewServer(cfg.Metrics.Addr)
	}

	return s, nil
}

// Start 启动服务，阻塞直到 ctx 取消或任一组件失败
func (s *AnomalyService) Start(ctx context.Context) error {
	s.logger.Info("Starting anomaly service",
		zap.Bool("mqtt_enabled", s.mqttIngest != nil),
		zap.String("metrics_addr", s.config.Metrics.Addr),
	)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	errChan := make(chan error, 3)
	run := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(ctx); err != nil && !errors.Is(err, context.Canceled) {
				errChan <- fmt.Errorf("%s: %w", name, err)
				cancel()
			}
		}()
	}

	// 启动 Streams 消费者
	run("stream consumer", s.streamConsumer.Start)

	// 启动 MQTT 摄入
	if s.mqttIngest != nil {
		run("mqtt ingest", s.mqttIngest.Start)
	}

	// 启动 /metrics 服务
	if s.metricsServer != nil {
		run("metrics server", s.serveMetrics)
	}

	wg.Wait()
	close(errChan)

	if err, ok := <-errChan; ok {
		return err
	}
	return nil
}

func (s *AnomalyService) serveMetrics(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.metricsServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("Failed to shutdown metrics server", zap.Error(err))
		}
	}()

	if err := s.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop 停止服务
func (s *AnomalyService) Stop() error {
	s.logger.Info("Stopping anomaly service")

	if s.mqttIngest != nil {
		if err := s.mqttIngest.Stop(); err != nil {
			s.logger.Warn("Failed to stop MQTT ingest",
				zap.Error(err),
			)
		}
	}
	if s.mqttClient != nil {
		s.mqttClient.Disconnect()
	}

	// 关闭数据库连接
	if err := database.Close(s.db); err != nil {
		s.logger.Error("Failed to close database",
			zap.Error(err),
		)
	}

	// 关闭 Redis 连接
	if err := rediscommon.Close(s.redisClient); err != nil {
		s.logger.Error("Failed to close redis",
			zap.Error(err),
		)
	}

	return nil
}
