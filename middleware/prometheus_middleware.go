package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests by method, route, and status code",
		},
		[]string{"method", "route", "status_code"},
	)

	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	httpRequestsActive = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "http_requests_active",
			Help: "Number of active HTTP requests",
		},
		[]string{"method", "route"},
	)

	// 事件推播連線數，type 為 sse 或 websocket
	eventStreamConnections = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "event_stream_connections",
			Help: "Number of connected event stream clients",
		},
		[]string{"type"},
	)

	eventStreamDroppedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "event_stream_dropped_total",
			Help: "Events skipped because a client queue was full",
		},
		[]string{"type"},
	)

	rateLimitedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		},
		[]string{"method"},
	)

	infraHealthStatus = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "infrastructure_health_status",
			Help: "Health status of infrastructure components (1=healthy, 0=unhealthy)",
		},
		[]string{"service", "component"},
	)

	infraConnectionLatency = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "infrastructure_connection_latency_ms",
			Help: "Connection latency to infrastructure components in milliseconds",
		},
		[]string{"service", "component"},
	)

	promRegistry *prometheus.Registry
)

// InitPrometheusMetrics 建立 registry 並註冊 HTTP 與基礎設施 metrics
func InitPrometheusMetrics(logger zerolog.Logger) error {
	promRegistry = prometheus.NewRegistry()

	collectorsToRegister := map[string]prometheus.Collector{
		"http_requests_total":                  httpRequestsTotal,
		"http_request_duration_seconds":        httpRequestDurationSeconds,
		"http_requests_active":                 httpRequestsActive,
		"event_stream_connections":             eventStreamConnections,
		"event_stream_dropped_total":           eventStreamDroppedTotal,
		"http_rate_limited_total":              rateLimitedTotal,
		"infrastructure_health_status":         infraHealthStatus,
		"infrastructure_connection_latency_ms": infraConnectionLatency,
	}
	for name, c := range collectorsToRegister {
		if err := promRegistry.Register(c); err != nil {
			return fmt.Errorf("failed to register %s: %w", name, err)
		}
	}

	promRegistry.MustRegister(collectors.NewGoCollector())
	promRegistry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	logger.Info().Msg("Prometheus metrics 初始化成功")
	return nil
}

// GetStandardPrometheusHandler 返回標準的 Prometheus metrics handler
func GetStandardPrometheusHandler() http.Handler {
	if promRegistry == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("Prometheus registry not initialized"))
		})
	}

	return promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{})
}

// GetPrometheusRegistry 返回 Prometheus registry 供其他包使用
func GetPrometheusRegistry() *prometheus.Registry {
	return promRegistry
}

// PrometheusMiddleware HTTP metrics 中間件
func PrometheusMiddleware() func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		if promRegistry == nil {
			next(ctx)
			return
		}

		startTime := time.Now()
		method := ctx.Method()
		route := routeOf(ctx)

		httpRequestsActive.WithLabelValues(method, route).Inc()
		defer httpRequestsActive.WithLabelValues(method, route).Dec()

		next(ctx)

		httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(ctx.Status())).Inc()
		httpRequestDurationSeconds.WithLabelValues(method, route).Observe(time.Since(startTime).Seconds())
	}
}

// SetEventStreamConnections 更新事件推播連線數
func SetEventStreamConnections(streamType string, count int) {
	eventStreamConnections.WithLabelValues(streamType).Set(float64(count))
}

// RecordEventStreamDropped 客戶端隊列已滿而跳過的事件
func RecordEventStreamDropped(streamType string) {
	eventStreamDroppedTotal.WithLabelValues(streamType).Inc()
}

// UpdateInfrastructureHealth 更新基礎設施健康狀態
func UpdateInfrastructureHealth(service, component string, isHealthy bool, latencyMs float64) {
	healthValue := 0.0
	if isHealthy {
		healthValue = 1.0
	}

	infraHealthStatus.WithLabelValues(service, component).Set(healthValue)
	if latencyMs >= 0 {
		infraConnectionLatency.WithLabelValues(service, component).Set(latencyMs)
	}
}
