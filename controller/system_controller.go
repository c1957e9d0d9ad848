package controller

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"coffee-backend/infra"
	"coffee-backend/middleware"

	"github.com/danielgtaylor/huma/v2"
	"github.com/rs/zerolog"
)

const (
	statusHealthy   = "healthy"
	statusUnhealthy = "unhealthy"
)

// SystemController 健康檢查與基礎設施監控
type SystemController struct {
	logger   zerolog.Logger
	db       *infra.Database
	redis    *infra.Redis
	rabbitMQ *infra.RabbitMQ
	version  string
}

type HealthResponse struct {
	Body struct {
		Status  string `json:"status" example:"ok"`
		Version string `json:"version" example:"1.0.0"`
		Message string `json:"message" example:"服務運行正常"`
	}
}

type MonitoringResponse struct {
	Body MonitoringStatus
}

type MonitoringStatus struct {
	Status  string  `json:"status" example:"healthy"`
	Latency float64 `json:"latency" example:"1.23"`
	Message string  `json:"message" example:"連接正常"`
}

// NewSystemController redis 與 rabbitMQ 可為 nil，代表未啟用
func NewSystemController(logger zerolog.Logger, db *infra.Database, redis *infra.Redis, rabbitMQ *infra.RabbitMQ, version string) *SystemController {
	return &SystemController{
		logger:   logger.With().Str("module", "system_controller").Logger(),
		db:       db,
		redis:    redis,
		rabbitMQ: rabbitMQ,
		version:  version,
	}
}

func (c *SystemController) RegisterRoutes(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health-check",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "健康檢查",
		Tags:        []string{"system"},
	}, func(ctx context.Context, input *struct{}) (*HealthResponse, error) {
		resp := &HealthResponse{}
		resp.Body.Status = "ok"
		resp.Body.Version = c.version
		resp.Body.Message = "Coffee API 服務運行正常"
		return resp, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "database-monitoring",
		Method:      http.MethodGet,
		Path:        "/api/monitoring/database",
		Summary:     "資料庫健康狀態監控",
		Tags:        []string{"monitoring"},
	}, func(ctx context.Context, input *struct{}) (*MonitoringResponse, error) {
		return &MonitoringResponse{Body: c.CheckDatabase(ctx)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "redis-monitoring",
		Method:      http.MethodGet,
		Path:        "/api/monitoring/redis",
		Summary:     "Redis 健康狀態監控",
		Tags:        []string{"monitoring"},
	}, func(ctx context.Context, input *struct{}) (*MonitoringResponse, error) {
		return &MonitoringResponse{Body: c.CheckRedis(ctx)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "rabbitmq-monitoring",
		Method:      http.MethodGet,
		Path:        "/api/monitoring/rabbitmq",
		Summary:     "RabbitMQ 健康狀態監控",
		Tags:        []string{"monitoring"},
	}, func(ctx context.Context, input *struct{}) (*MonitoringResponse, error) {
		return &MonitoringResponse{Body: c.CheckRabbitMQ()}, nil
	})
}

func (c *SystemController) CheckDatabase(ctx context.Context) MonitoringStatus {
	if c.db == nil {
		return c.report("database", c.dbDriver(), -1, fmt.Errorf("資料庫未連接"))
	}
	latency, err := c.db.Ping(ctx)
	return c.report("database", c.dbDriver(), latency, err)
}

func (c *SystemController) CheckRedis(ctx context.Context) MonitoringStatus {
	if c.redis == nil {
		return c.report("cache", "redis", -1, fmt.Errorf("Redis 服務未啟用"))
	}
	latency, err := c.redis.Ping(ctx)
	return c.report("cache", "redis", latency, err)
}

func (c *SystemController) CheckRabbitMQ() MonitoringStatus {
	start := time.Now()
	var err error
	if !c.rabbitMQ.IsHealthy() {
		err = fmt.Errorf("RabbitMQ 服務未啟用或未連接")
	}
	latency := float64(time.Since(start).Nanoseconds()) / 1e6
	return c.report("queue", "rabbitmq", latency, err)
}

// RefreshHealth 更新所有基礎設施的健康指標
func (c *SystemController) RefreshHealth(ctx context.Context) {
	c.CheckDatabase(ctx)
	c.CheckRedis(ctx)
	c.CheckRabbitMQ()
}

// StartHealthUpdater 定期更新健康指標，直到 ctx 取消
func (c *SystemController) StartHealthUpdater(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
				c.RefreshHealth(checkCtx)
				cancel()
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (c *SystemController) dbDriver() string {
	if c.db == nil {
		return "unknown"
	}
	return c.db.Driver
}

func (c *SystemController) report(service, component string, latency float64, err error) MonitoringStatus {
	healthy := err == nil
	middleware.UpdateInfrastructureHealth(service, component, healthy, latency)

	status := MonitoringStatus{Latency: latency}
	if latency < 0 {
		status.Latency = 0
	}
	if healthy {
		status.Status = statusHealthy
		status.Message = component + " 連接正常"
		return status
	}

	c.logger.Warn().Err(err).Str("component", component).Msg("基礎設施健康檢查失敗")
	status.Status = statusUnhealthy
	status.Message = fmt.Sprintf("%s 連接失敗: %v", component, err)
	return status
}
