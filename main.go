package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"coffee-backend/background"
	"coffee-backend/controller"
	"coffee-backend/infra"
	"coffee-backend/metrics"
	appMiddleware "coffee-backend/middleware"
	"coffee-backend/service"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

type Options struct {
	Port int `help:"服務監聽端口" short:"p" default:"8000"`
}

type AppServices struct {
	Database *infra.Database
	Redis    *infra.Redis
	RabbitMQ *infra.RabbitMQ
}

func main() {
	cli := humacli.New(func(hooks humacli.Hooks, options *Options) {
		// 載入設定檔，子命令也需要
		if err := infra.LoadConfig(); err != nil {
			log.Fatal().
				Err(err).
				Msg("讀取 config.yml 失敗")
		}

		infra.InitLogger()

		hooks.OnStart(func() {
			runServer(options)
		})
	})

	cli.Root().Use = "coffee-backend"
	cli.Root().Short = "Coffee counter API"
	cli.Root().AddCommand(migrateCommand())

	cli.Run()
}

func runServer(options *Options) {
	cfg := infra.AppConfig

	// 初始化 Prometheus metrics，OpenTelemetry 的 exporter 需要同一個 registry
	if err := appMiddleware.InitPrometheusMetrics(log.Logger); err != nil {
		log.Error().
			Err(err).
			Msg("Prometheus metrics 初始化失敗，將繼續運行")
	}

	if registry := appMiddleware.GetPrometheusRegistry(); registry != nil {
		if err := metrics.InitServiceMetrics(registry); err != nil {
			log.Error().
				Err(err).
				Msg("Service metrics 初始化失敗，將繼續運行")
		}
	}

	otelConfig := appMiddleware.OtelConfig{
		ServiceName:     infra.ServiceName,
		ServiceVersion:  cfg.App.AppVersion,
		Environment:     envOrDefault("ENV", "development"),
		OTLPEndpoint:    cfg.Otel.Endpoint,
		Enabled:         cfg.Otel.Enabled,
		DevelopmentMode: cfg.Otel.DevelopmentMode,
	}
	otelCleanup, err := appMiddleware.InitOpenTelemetry(otelConfig, log.Logger)
	if err != nil {
		log.Fatal().
			Err(err).
			Msg("OpenTelemetry 初始化失敗")
	}
	infra.InitTracer()

	log.Info().
		Int("port", options.Port).
		Str("version", cfg.App.AppVersion).
		Msg("啟動 Coffee Backend API 服務")

	services, err := initializeServices(cfg)
	if err != nil {
		log.Fatal().
			Err(err).
			Msg("初始化服務失敗")
	}

	appCtx, cancelApp := context.WithCancel(context.Background())
	defer cancelApp()

	location := infra.AppLocation()

	// 事件流程：CupService -> NotificationService -> Redis pub/sub -> EventHub -> SSE / WebSocket
	var eventManager *infra.RedisEventManager
	redisClientForCache := services.redisClient()
	if redisClientForCache != nil {
		eventManager = infra.NewRedisEventManager(redisClientForCache, log.Logger)
	}
	eventHub := service.NewEventHub(log.Logger, eventManager)

	notificationService := service.NewNotificationService(
		log.Logger,
		eventManager,
		services.RabbitMQ,
		eventHub,
		cfg.Notification.Workers,
		cfg.Notification.QueueSize,
	)

	countCache := service.NewCountCacheService(log.Logger, redisClientForCache, time.Duration(cfg.Redis.CountTTLSeconds)*time.Second)
	coffeeService := service.NewCoffeeService(log.Logger, services.Database)
	cupService := service.NewCupService(log.Logger, services.Database, countCache, notificationService)
	actionService := service.NewActionService(log.Logger, services.Database, coffeeService, cupService, countCache, location)

	sseController := controller.NewSSEController(log.Logger)
	webSocketController := controller.NewWebSocketController(log.Logger)
	eventHub.Subscribe("sse", sseController)
	eventHub.Subscribe("websocket", webSocketController)

	rateLimiter := appMiddleware.NewRateLimiter(cfg.App.RateLimit.RequestsPerSecond, cfg.App.RateLimit.Burst, log.Logger)
	router := newRouter(rateLimiter)
	rateLimiter.StartCleanup(time.Minute, appCtx.Done())

	apiConfig := huma.DefaultConfig("Coffee API", cfg.App.AppVersion)
	apiConfig.Info.Description = "記錄咖啡豆與每一杯咖啡的 API"

	serverURL := fmt.Sprintf("http://localhost:%d", options.Port)
	if cfg.App.PublicBaseURL != "" {
		serverURL = cfg.App.PublicBaseURL
	}
	apiConfig.Servers = []*huma.Server{
		{URL: serverURL},
	}

	api := humachi.New(router, apiConfig)

	api.UseMiddleware(appMiddleware.OpenTelemetryMiddleware(otelConfig, log.Logger))
	api.UseMiddleware(appMiddleware.PrometheusMiddleware())

	controller.NewCoffeeController(log.Logger, coffeeService).RegisterRoutes(api)
	controller.NewCupController(log.Logger, cupService).RegisterRoutes(api)
	controller.NewActionController(log.Logger, actionService).RegisterRoutes(api)

	systemController := controller.NewSystemController(log.Logger, services.Database, services.Redis, services.RabbitMQ, cfg.App.AppVersion)
	systemController.RegisterRoutes(api)
	systemController.StartHealthUpdater(appCtx, 30*time.Second)

	router.HandleFunc("/sse/events", sseController.GetSSEHandler())
	router.HandleFunc("/ws/events", webSocketController.GetWebSocketHandler())
	router.Handle("/metrics", appMiddleware.GetStandardPrometheusHandler())

	go eventHub.Run(appCtx)
	notificationService.Start()
	log.Info().Msg("統一通知服務已啟動")

	var dailySummary *background.DailySummary
	if cfg.App.DailySummaryCron != "" {
		dailySummary = background.NewDailySummary(log.Logger, actionService, notificationService, cfg.App.DailySummaryCron)
		if err := dailySummary.Start(); err != nil {
			log.Error().
				Err(err).
				Msg("每日統計排程啟動失敗")
			dailySummary = nil
		}
	}

	log.Info().
		Str("docs_url", fmt.Sprintf("%s/docs", serverURL)).
		Str("openapi_url", fmt.Sprintf("%s/openapi.json", serverURL)).
		Msg("API文檔已啟用")

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", options.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().
				Err(err).
				Msg("服務器啟動失敗")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("正在關閉服務器...")

	sseController.CloseAll()
	webSocketController.CloseAll()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error().
			Err(err).
			Msg("服務器關閉錯誤")
	}

	if dailySummary != nil {
		dailySummary.Stop()
	}

	log.Info().Msg("正在停止統一通知服務...")
	notificationService.Stop()
	cancelApp()

	if otelCleanup != nil {
		log.Info().Msg("正在關閉 OpenTelemetry...")
		otelCleanup()
	}
	cleanupServices(services)
	log.Info().Msg("服務器已關閉")
}

func initializeServices(cfg infra.Config) (*AppServices, error) {
	dbConfig := infra.DatabaseConfigFromApp(cfg)

	if cfg.App.AutoMigrate {
		if err := infra.RunMigrations(dbConfig, log.Logger); err != nil {
			return nil, fmt.Errorf("資料庫 migration 失敗: %w", err)
		}
	}

	database, err := infra.NewDatabase(dbConfig)
	if err != nil {
		return nil, fmt.Errorf("資料庫初始化失敗: %w", err)
	}
	log.Info().
		Str("driver", database.Driver).
		Msg("資料庫已連接")

	var redisClient *infra.Redis
	if cfg.Redis.Addr != "" {
		redisClient, err = infra.NewRedis(infra.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Error().
				Err(err).
				Msg("Redis連接失敗 (繼續運行，停用快取與跨實例事件)")
			redisClient = nil
		}
	}

	var rabbitMQ *infra.RabbitMQ
	if cfg.RabbitMQ.Enabled {
		rabbitMQ, err = infra.NewRabbitMQ(infra.RabbitMQConfig{URL: cfg.RabbitMQ.URL})
		if err != nil {
			log.Error().
				Err(err).
				Msg("RabbitMQ連接失敗 (繼續運行)")
			rabbitMQ = nil
		}
	}

	return &AppServices{
		Database: database,
		Redis:    redisClient,
		RabbitMQ: rabbitMQ,
	}, nil
}

func (s *AppServices) redisClient() *redis.Client {
	if s.Redis == nil {
		return nil
	}
	return s.Redis.Client
}

func cleanupServices(services *AppServices) {
	if services.Database != nil {
		if err := services.Database.Close(); err != nil {
			log.Error().
				Err(err).
				Msg("資料庫關閉錯誤")
		}
	}

	if services.Redis != nil {
		if err := services.Redis.Close(); err != nil {
			log.Error().
				Err(err).
				Msg("Redis關閉錯誤")
		}
	}

	if services.RabbitMQ != nil {
		if err := services.RabbitMQ.Close(); err != nil {
			log.Error().
				Err(err).
				Msg("RabbitMQ關閉錯誤")
		}
	}
}

// migrateCommand 手動管理資料表版本：migrate up | down | version
func migrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:       "migrate [up|down|version]",
		Short:     "執行資料庫 migration",
		Args:      cobra.ExactValidArgs(1),
		ValidArgs: []string{"up", "down", "version"},
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := infra.NewMigrator(infra.DatabaseConfigFromApp(infra.AppConfig), log.Logger)
			if err != nil {
				return err
			}
			defer m.Close()

			switch args[0] {
			case "up":
				return m.Up()
			case "down":
				return m.Down()
			default:
				version, dirty, err := m.Version()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "version=%d dirty=%t\n", version, dirty)
				return nil
			}
		},
	}
	return cmd
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
