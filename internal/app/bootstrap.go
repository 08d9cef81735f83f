package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"

	"github.com/Gunvolt24/yote/config"
	cachemem "github.com/Gunvolt24/yote/internal/cache/memory"
	cacheredis "github.com/Gunvolt24/yote/internal/cache/redis"
	"github.com/Gunvolt24/yote/internal/kafka"
	"github.com/Gunvolt24/yote/internal/ports"
	"github.com/Gunvolt24/yote/internal/repo/postgres"
	rest "github.com/Gunvolt24/yote/internal/transport/http"
	"github.com/Gunvolt24/yote/internal/usecase"
	"github.com/Gunvolt24/yote/pkg/logger"
	"github.com/Gunvolt24/yote/pkg/metrics"
	"github.com/Gunvolt24/yote/pkg/telemetry"
	"github.com/Gunvolt24/yote/pkg/validate"
)

// Бэкенды серверного кэша.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// App — собранное приложение и его внешние интерфейсы (HTTP, metrics, consumer).
type App struct {
	Logger          ports.Logger          // логгер
	HTTPServer      *http.Server          // HTTP-сервер API
	MetricsServer   *http.Server          // отдельный сервер /metrics; nil — метрики только на HTTPServer
	KafkaConsumer   ports.MessageConsumer // консьюмер событий; nil при выключенной Kafka
	gracefulTimeout time.Duration         // время ожидания завершения HTTP-серверов
}

// Cleanup — функция освобождения ресурсов.
type Cleanup func()

// applyGinMode — устанавливает режим Gin по строке;
// неизвестное значение → debug и предупреждение в лог.
func applyGinMode(ctx context.Context, mode string, log ports.Logger) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	case "", "debug":
		gin.SetMode(gin.DebugMode)
	default:
		gin.SetMode(gin.DebugMode)
		log.Warnf(ctx, "unknown GIN_MODE=%q, fallback to debug", mode)
	}
}

// cleanups — стек функций освобождения; вызываются в обратном порядке.
type cleanups []func()

func (c *cleanups) add(fn func()) { *c = append(*c, fn) }

func (c cleanups) run() {
	for i := len(c) - 1; i >= 0; i-- {
		c[i]()
	}
}

// NewProductCache — серверный кэш по конфигурации: memory (LRU+TTL) или redis.
func NewProductCache(ctx context.Context, cfg *config.Config, log ports.Logger) (ports.ProductCache, func(), error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Cache.Backend)) {
	case "", CacheMemory:
		return cachemem.NewLRUCacheTTL(cfg.Cache.Capacity, cfg.Cache.TTL), func() {}, nil
	case CacheRedis:
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			_ = client.Close()
			return nil, func() {}, fmt.Errorf("redis ping %s: %w", cfg.Redis.Addr, err)
		}
		closeFn := func() {
			if err := client.Close(); err != nil {
				log.Warnf(ctx, "redis close: %v", err)
			}
		}
		return cacheredis.NewProductCache(client, cfg.Redis.KeyPrefix, cfg.Cache.TTL, log), closeFn, nil
	default:
		return nil, func() {}, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}
}

// Bootstrap — собирает зависимости и возвращает приложение, функцию очистки и ошибку.
func Bootstrap(ctx context.Context, cfg *config.Config) (*App, Cleanup, error) {
	var stack cleanups
	fail := func(err error) (*App, Cleanup, error) {
		stack.run()
		return nil, func() {}, err
	}

	// Логгер (dev/prod режим задаётся конфигурацией).
	logg, cleanupLogger, err := logger.NewZapLogger(cfg.Logger.IsProd)
	if err != nil {
		return nil, func() {}, err
	}
	stack.add(func() {
		if cErr := cleanupLogger(); cErr != nil {
			logg.Warnf(ctx, "cleanup logger: %v", cErr)
		}
	})

	// Регистрация метрик (Prometheus).
	metrics.MustRegister()

	// Миграции до открытия пула.
	if cfg.Postgres.AutoMigrate {
		if err := postgres.Migrate(ctx, cfg.Postgres.DSN); err != nil {
			return fail(fmt.Errorf("migrate: %w", err))
		}
		logg.Infof(ctx, "migrations applied")
	}

	// Пул подключений Postgres
	pool, err := postgres.NewPool(ctx, cfg.Postgres.DSN, cfg.Postgres.MaxConns)
	if err != nil {
		return fail(err)
	}
	stack.add(pool.Close)

	// Трейсинг OTEL (при включённой конфигурации); по умолчанию — no-op.
	if cfg.Tracing.Enabled {
		shutdownTrace, tErr := telemetry.SetupTracing(ctx, telemetry.Options{
			ServiceName: cfg.Tracing.ServiceName,
			Version:     cfg.Tracing.ServiceVersion,
			Endpoint:    cfg.Tracing.Endpoint,
			SampleRatio: cfg.Tracing.SampleRatio,
		})
		if tErr != nil {
			logg.Warnf(ctx, "failed to setup tracing: %v", tErr)
		} else {
			logg.Infof(ctx, "otel tracing enabled service=%s endpoint=%s sample=%.2f",
				cfg.Tracing.ServiceName, cfg.Tracing.Endpoint, cfg.Tracing.SampleRatio)
			stack.add(func() {
				if terr := shutdownTrace(context.Background()); terr != nil {
					logg.Warnf(ctx, "shutdown tracing: %v", terr)
				}
			})
		}
	}

	// Серверный кэш.
	productCache, closeCache, err := NewProductCache(ctx, cfg, logg)
	if err != nil {
		return fail(err)
	}
	stack.add(closeCache)
	logg.Infof(ctx, "product cache backend=%s ttl=%s", cfg.Cache.Backend, cfg.Cache.TTL)

	// Публикация событий (Kafka или no-op).
	var events ports.EventPublisher = kafka.NoopPublisher{}
	if cfg.Kafka.Enabled {
		publisher := kafka.NewPublisher(&kafka.PublisherConfig{
			Brokers:      cfg.Kafka.Brokers,
			Topic:        cfg.Kafka.Topic,
			WriteTimeout: cfg.Kafka.WriteTimeout,
		}, logg)
		events = publisher
		stack.add(func() {
			if err := publisher.Close(); err != nil {
				logg.Warnf(ctx, "kafka publisher close error: %v", err)
			}
		})
	}

	// Сборка зависимостей доменного слоя.
	productRepo := postgres.NewProductRepository(pool)
	productService := usecase.NewProductService(productRepo, productCache, logg, validate.NewProductValidator(), events)

	// Прогрев кэша
	if n := cfg.Cache.WarmUpN; n > 0 {
		if err := productService.WarmUpCache(ctx, n); err != nil {
			logg.Warnf(ctx, "warm-up cache failed: %v", err)
		}
	}

	// Режим Gin.
	applyGinMode(ctx, cfg.HTTP.GinMode, logg)

	// Имя сервиса для otelgin (только при включённом трейсинге).
	otelServiceName := ""
	if cfg.Tracing.Enabled {
		otelServiceName = cfg.Tracing.ServiceName
	}

	// Роутер и HTTP-сервер.
	httpHandler := rest.NewHandler(productService, logg, cfg.HTTP.HandlerTimeout)
	router := rest.NewRouter(httpHandler, "./web", otelServiceName)

	httpSrv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           router,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
	}

	// Отдельный порт метрик (если задан и не совпадает с API).
	var metricsSrv *http.Server
	if addr := cfg.Metrics.Addr; addr != "" && addr != cfg.HTTP.Addr {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsSrv = &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		}
	}

	// Консьюмер событий: чужие изменения инвалидируют локальный кэш.
	var consumer ports.MessageConsumer
	if cfg.Kafka.Enabled {
		consumerCfg := &kafka.ConsumerConfig{
			Brokers:        cfg.Kafka.Brokers,
			GroupID:        cfg.Kafka.GroupID,
			Topic:          cfg.Kafka.Topic,
			StartOffset:    cfg.Kafka.StartOffset,
			ProcessTimeout: cfg.Kafka.ProcessTimeout,
			RetryInitial:   cfg.Kafka.RetryInitial,
			RetryMax:       cfg.Kafka.RetryMax,
		}
		if vErr := consumerCfg.Validate(); vErr != nil {
			return fail(fmt.Errorf("kafka consumer config: %w", vErr))
		}
		consumer = kafka.NewConsumer(consumerCfg, productService, logg)
		stack.add(func() {
			if err := consumer.Close(); err != nil {
				logg.Warnf(ctx, "kafka consumer close error: %v", err)
			}
		})
	} else {
		logg.Infof(ctx, "kafka disabled: events are not published or consumed")
	}

	app := &App{
		Logger:          logg,
		HTTPServer:      httpSrv,
		MetricsServer:   metricsSrv,
		KafkaConsumer:   consumer,
		gracefulTimeout: cfg.HTTP.GracefulTimeout,
	}
	return app, stack.run, nil
}

// Run — запускает HTTP-серверы и консьюмера; ждёт отмены контекста или ошибки и останавливает их.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 3)

	// Запуск консьюмера.
	if a.KafkaConsumer != nil {
		go func() {
			a.Logger.Infof(ctx, "kafka consumer starting")
			if err := a.KafkaConsumer.Run(ctx); err != nil {
				errCh <- err
			}
		}()
	}

	// Запуск HTTP-серверов.
	servers := []*http.Server{a.HTTPServer}
	if a.MetricsServer != nil {
		servers = append(servers, a.MetricsServer)
	}
	for _, srv := range servers {
		go func(srv *http.Server) {
			a.Logger.Infof(ctx, "http server starting (addr=%s)", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}(srv)
	}

	// Ожидание сигнала остановки или фоновой ошибки.
	select {
	case <-ctx.Done():
		a.Logger.Infof(ctx, "shutdown requested, starting graceful shutdown")
	case err := <-errCh:
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			a.Logger.Infof(ctx, "background component stopped: %v", err)
		} else {
			a.Logger.Warnf(ctx, "background error: %v", err)
		}
	}

	gt := a.gracefulTimeout
	if gt <= 0 {
		gt = 5 * time.Second
	}

	// Корректная остановка HTTP-серверов.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), gt)
	defer cancel()

	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.Logger.Warnf(ctx, "http server %s shutdown failed: %v", srv.Addr, err)
		} else {
			a.Logger.Infof(ctx, "http server %s stopped gracefully", srv.Addr)
		}
	}

	// Остановка Kafka-консьюмера
	if a.KafkaConsumer != nil {
		if err := a.KafkaConsumer.Close(); err != nil {
			a.Logger.Warnf(ctx, "kafka consumer close error: %v", err)
		}
	}

	a.Logger.Infof(ctx, "service stopped")
	return nil
}
