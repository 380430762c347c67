package simulator

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"cropwatch-anomaly/internal/models"
)

const (
	readingsPath = "/api/sensor-readings/"
	loginPath    = "/api/auth/login/"
)

// readingRequest 读数接口请求体
type readingRequest struct {
	Plot       string  `json:"plot"`
	Timestamp  string  `json:"timestamp"`
	SensorType string  `json:"sensor_type"`
	Value      float64 `json:"value"`
	Source     string  `json:"source"`
}

// loginResponse 登录接口响应
type loginResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// HTTPPublisher 通过读数 API 发送读数（Bearer Token 认证）
type HTTPPublisher struct {
	httpClient  *resty.Client
	accessToken string
	logger      *zap.Logger
	mu          sync.RWMutex
}

// NewHTTPPublisher 创建 HTTP 发送端
func NewHTTPPublisher(baseURL, accessToken string, logger *zap.Logger) *HTTPPublisher {
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(10 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(5 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &HTTPPublisher{
		httpClient:  client,
		accessToken: accessToken,
		logger:      logger,
	}
}

// Login 用户名密码登录，获取 access token
func (p *HTTPPublisher) Login(ctx context.Context, username, password string) error {
	var response loginResponse
	resp, err := p.httpClient.R().
		SetContext(ctx).
		SetBody(map[string]string{
			"username": username,
			"password": password,
		}).
		SetResult(&response).
		Post(loginPath)
	if err != nil {
		return fmt.Errorf("failed to call login API: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("login failed: status %d", resp.StatusCode())
	}
	if response.Access == "" {
		return fmt.Errorf("login response has no access token")
	}

	p.mu.Lock()
	p.accessToken = response.Access
	p.mu.Unlock()

	p.logger.Info("Logged in to readings API", zap.String("username", username))
	return nil
}

func (p *HTTPPublisher) token() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.accessToken
}

// Publish 发送单条读数
func (p *HTTPPublisher) Publish(ctx context.Context, plotID string, sensorType models.SensorType, value float64, ts time.Time) error {
	request := readingRequest{
		Plot:       plotID,
		Timestamp:  ts.UTC().Format(time.RFC3339Nano),
		SensorType: string(sensorType),
		Value:      value,
		Source:     string(models.SourceSimulator),
	}

	resp, err := p.httpClient.R().
		SetContext(ctx).
		SetAuthToken(p.token()).
		SetBody(request).
		Post(readingsPath)
	if err != nil {
		return fmt.Errorf("failed to call readings API: %w", err)
	}

	if resp.StatusCode() != http.StatusOK && resp.StatusCode() != http.StatusCreated {
		p.logger.Error("Readings API returned error",
			zap.String("plot_id", plotID),
			zap.String("sensor_type", string(sensorType)),
			zap.Int("status_code", resp.StatusCode()),
			zap.String("body", resp.String()),
		)
		return fmt.Errorf("readings API error: status %d", resp.StatusCode())
	}

	p.logger.Debug("Sent simulated reading",
		zap.String("plot_id", plotID),
		zap.String("sensor_type", string(sensorType)),
		zap.Float64("value", value),
	)
	return nil
}
