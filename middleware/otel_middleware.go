package middleware

import (
	"context"
	"fmt"
	"time"

	"coffee-backend/metrics"

	"github.com/danielgtaylor/huma/v2"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

type OtelConfig struct {
	ServiceName     string
	ServiceVersion  string
	Environment     string
	OTLPEndpoint    string
	Enabled         bool
	DevelopmentMode bool // 開發模式使用 stdout，生產模式使用 OTLP
}

// 全局遙測變數
var (
	tracer          trace.Tracer
	requestCounter  metric.Int64Counter
	requestDuration metric.Float64Histogram
)

// InitOpenTelemetry 初始化 traces 與 metrics，metrics 同時匯出到 /metrics
func InitOpenTelemetry(config OtelConfig, logger zerolog.Logger) (func(), error) {
	if !config.Enabled {
		return func() {}, nil
	}

	ctx := context.Background()
	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceNameKey.String(config.ServiceName),
		semconv.ServiceVersionKey.String(config.ServiceVersion),
		semconv.DeploymentEnvironmentKey.String(config.Environment),
		semconv.ServiceInstanceIDKey.String(fmt.Sprintf("%s-%d", config.ServiceName, time.Now().Unix())),
	)

	traceShutdown, err := setupTraceProvider(ctx, res, config, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to setup trace provider: %w", err)
	}
	metricShutdown, err := setupMeterProvider(ctx, res, config, logger)
	if err != nil {
		_ = traceShutdown(ctx)
		return nil, fmt.Errorf("failed to setup meter provider: %w", err)
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	tracer = otel.Tracer(config.ServiceName)
	if err := initializeMetrics(otel.Meter(config.ServiceName)); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	logger.Info().
		Str("service", config.ServiceName).
		Str("version", config.ServiceVersion).
		Str("environment", config.Environment).
		Str("otlp_endpoint", config.OTLPEndpoint).
		Bool("development_mode", config.DevelopmentMode).
		Msg("OpenTelemetry 初始化成功")

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		for _, shutdown := range []func(context.Context) error{metricShutdown, traceShutdown} {
			if err := shutdown(shutdownCtx); err != nil {
				logger.Error().Err(err).Msg("OpenTelemetry 關閉失敗")
			}
		}
		logger.Info().Msg("OpenTelemetry 清理完成")
	}, nil
}

// OpenTelemetryMiddleware 為每個請求建立 span、記錄 metrics 與存取日誌，並標記操作來源
func OpenTelemetryMiddleware(config OtelConfig, logger zerolog.Logger) func(huma.Context, func(huma.Context)) {
	logger = logger.With().Str("module", "http").Logger()

	return func(ctx huma.Context, next func(huma.Context)) {
		startTime := time.Now()
		route := routeOf(ctx)
		userAgent := ctx.Header("User-Agent")

		reqCtx := metrics.WithSource(ctx.Context(), metrics.DetermineSourceFromUserAgent(userAgent))

		var span trace.Span
		if config.Enabled && tracer != nil {
			carrier := &HeaderCarrier{ctx: ctx}
			parentCtx := otel.GetTextMapPropagator().Extract(reqCtx, carrier)
			reqCtx, span = tracer.Start(parentCtx, ctx.Method()+" "+route,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					semconv.HTTPMethodKey.String(ctx.Method()),
					semconv.HTTPRouteKey.String(route),
					semconv.HTTPUserAgentKey.String(userAgent),
					attribute.String("net.peer.ip", ctx.RemoteAddr()),
				),
			)
			defer span.End()
			ctx.SetHeader("X-Trace-ID", span.SpanContext().TraceID().String())
		}

		next(huma.WithContext(ctx, reqCtx))

		duration := time.Since(startTime)
		statusCode := ctx.Status()

		if requestCounter != nil && requestDuration != nil {
			attrs := metric.WithAttributes(
				attribute.String("method", ctx.Method()),
				attribute.String("route", route),
				attribute.String("status_class", fmt.Sprintf("%dxx", statusCode/100)),
			)
			requestCounter.Add(reqCtx, 1, attrs)
			requestDuration.Record(reqCtx, duration.Seconds(), attrs)
		}

		if span != nil {
			span.SetAttributes(semconv.HTTPStatusCodeKey.Int(statusCode))
			if statusCode >= 500 {
				span.SetStatus(codes.Error, fmt.Sprintf("HTTP %d", statusCode))
			} else {
				span.SetStatus(codes.Ok, "")
			}
		}

		var logEvent *zerolog.Event
		switch {
		case statusCode >= 500:
			logEvent = logger.Error()
		case statusCode >= 400:
			logEvent = logger.Warn()
		default:
			logEvent = logger.Info()
		}
		if span != nil {
			logEvent = logEvent.Str("trace_id", span.SpanContext().TraceID().String())
		}
		logEvent.
			Str("request_id", chimw.GetReqID(ctx.Context())).
			Str("method", ctx.Method()).
			Str("path", ctx.URL().Path).
			Int("status_code", statusCode).
			Float64("duration_ms", float64(duration.Nanoseconds())/1e6).
			Str("user_agent", userAgent).
			Str("remote_addr", ctx.RemoteAddr()).
			Msg("HTTP request completed")
	}
}

// routeOf 使用註冊時的路徑樣板，避免 id 造成 label 爆量
func routeOf(ctx huma.Context) string {
	if op := ctx.Operation(); op != nil && op.Path != "" {
		return op.Path
	}
	return ctx.URL().Path
}

// setupTraceProvider 配置 trace export
func setupTraceProvider(ctx context.Context, res *resource.Resource, config OtelConfig, logger zerolog.Logger) (func(context.Context) error, error) {
	var exporter sdktrace.SpanExporter
	var err error

	if config.DevelopmentMode {
		exporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
		logger.Info().Msg("使用 stdout trace exporter（開發模式）")
	} else {
		exporter, err = otlptracegrpc.New(ctx,
			otlptracegrpc.WithEndpoint(config.OTLPEndpoint),
			otlptracegrpc.WithInsecure(),
		)
		logger.Info().Str("endpoint", config.OTLPEndpoint).Msg("使用 OTLP gRPC trace exporter（生產模式）")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.AlwaysSample())),
	)
	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}

// setupMeterProvider 配置 metric export，Prometheus exporter 掛在同一個 registry 上
func setupMeterProvider(ctx context.Context, res *resource.Resource, config OtelConfig, logger zerolog.Logger) (func(context.Context) error, error) {
	options := []otelprom.Option{}
	if registry := GetPrometheusRegistry(); registry != nil {
		options = append(options, otelprom.WithRegisterer(registry))
	}
	promExporter, err := otelprom.New(options...)
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}
	readers := []sdkmetric.Reader{promExporter}

	if config.DevelopmentMode {
		stdoutExporter, err := stdoutmetric.New()
		if err != nil {
			return nil, fmt.Errorf("failed to create stdout metric exporter: %w", err)
		}
		readers = append(readers, sdkmetric.NewPeriodicReader(stdoutExporter, sdkmetric.WithInterval(30*time.Second)))
	} else {
		otlpExporter, err := otlpmetricgrpc.New(ctx,
			otlpmetricgrpc.WithEndpoint(config.OTLPEndpoint),
			otlpmetricgrpc.WithInsecure(),
		)
		if err != nil {
			logger.Warn().Err(err).Msg("無法創建 OTLP metric exporter，將只使用 Prometheus")
		} else {
			readers = append(readers, sdkmetric.NewPeriodicReader(otlpExporter, sdkmetric.WithInterval(30*time.Second)))
		}
	}

	mpOptions := []sdkmetric.Option{sdkmetric.WithResource(res)}
	for _, reader := range readers {
		mpOptions = append(mpOptions, sdkmetric.WithReader(reader))
	}
	mp := sdkmetric.NewMeterProvider(mpOptions...)
	otel.SetMeterProvider(mp)

	return mp.Shutdown, nil
}

func initializeMetrics(meter metric.Meter) error {
	var err error

	requestCounter, err = meter.Int64Counter(
		"otel_http_requests",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return fmt.Errorf("failed to create request counter: %w", err)
	}

	requestDuration, err = meter.Float64Histogram(
		"otel_http_request_duration",
		metric.WithDescription("Duration of HTTP requests in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0),
	)
	if err != nil {
		return fmt.Errorf("failed to create request duration histogram: %w", err)
	}

	return nil
}

// HeaderCarrier 實現 propagation.TextMapCarrier 接口
type HeaderCarrier struct {
	ctx huma.Context
}

func (h *HeaderCarrier) Get(key string) string {
	return h.ctx.Header(key)
}

func (h *HeaderCarrier) Set(key, value string) {
	h.ctx.SetHeader(key, value)
}

// Keys huma.Context 無法列舉 header，Extract 不需要
func (h *HeaderCarrier) Keys() []string {
	return []string{}
}
