package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SscSPs/fx_rates_service/internal/adapters/cache/memory"
	rediscache "github.com/SscSPs/fx_rates_service/internal/adapters/cache/redis"
	"github.com/SscSPs/fx_rates_service/internal/adapters/database/pgsql"
	"github.com/SscSPs/fx_rates_service/internal/adapters/events"
	"github.com/SscSPs/fx_rates_service/internal/adapters/lock"
	"github.com/SscSPs/fx_rates_service/internal/adapters/providers"
	"github.com/SscSPs/fx_rates_service/internal/adapters/ratelimit"
	"github.com/SscSPs/fx_rates_service/internal/core/ports"
	"github.com/SscSPs/fx_rates_service/internal/core/services"
	"github.com/SscSPs/fx_rates_service/internal/handlers"
	"github.com/SscSPs/fx_rates_service/internal/metrics"
	"github.com/SscSPs/fx_rates_service/internal/middleware"
	"github.com/SscSPs/fx_rates_service/internal/platform/config"
	"github.com/SscSPs/fx_rates_service/internal/scheduler"
	"github.com/SscSPs/fx_rates_service/pkg/database"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	limitermemory "github.com/ulule/limiter/v3/drivers/store/memory"
)

const shutdownTimeout = 30 * time.Second

func main() {
	// Initialize structured logger
	level := new(slog.LevelVar)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		logger.Warn("Unknown LOG_LEVEL, keeping info", slog.String("log_level", cfg.LogLevel))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Service stopped with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("Service stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	// --- Rate store ---
	dbPool, err := database.NewPgxPool(ctx, cfg.DatabaseURL, database.DefaultPoolOptions, logger)
	if err != nil {
		return err
	}
	defer database.ClosePgxPool(dbPool, logger)

	if err := database.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath, logger); err != nil {
		return err
	}

	// --- Cache, admission store and job lock ---
	redisClient := connectRedis(ctx, cfg, logger)
	if redisClient != nil {
		defer func() {
			if cerr := redisClient.Close(); cerr != nil {
				logger.Error("Error closing redis client", slog.String("error", cerr.Error()))
			}
		}()
	}
	if redisClient == nil && (cfg.RateLimitBackend == config.RateLimitBackendRedis || cfg.SchedulerDistributedLock) {
		return errors.New("redis is required by RATE_LIMIT_BACKEND or SCHEDULER_DISTRIBUTED_LOCK but is unreachable")
	}

	var cacheTransport ports.CacheTransport
	if redisClient != nil {
		cacheTransport = rediscache.NewTransport(redisClient)
	} else {
		cacheTransport = memory.NewTransport(cfg.CacheMaxBytes)
	}

	var windowStore ports.WindowStore = ratelimit.NewMemoryStore()
	if cfg.RateLimitBackend == config.RateLimitBackendRedis {
		windowStore = ratelimit.NewRedisStore(redisClient)
	}

	// --- Metrics and events ---
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rateMetrics := metrics.NewRateMetrics(registry)

	publisher := events.NewPublisher(cfg.KafkaBrokers, cfg.KafkaRatesTopic)
	defer func() {
		if cerr := publisher.Close(); cerr != nil {
			logger.Error("Error closing event publisher", slog.String("error", cerr.Error()))
		}
	}()

	// --- Services ---
	container, jobs, err := services.NewServiceContainer(cfg, services.Dependencies{
		Repos:          pgsql.NewRepositoryProvider(dbPool),
		CacheTransport: cacheTransport,
		WindowStore:    windowStore,
		Providers:      providers.DefaultChain(cfg.ExchangeAPIKey, cfg.FixerAPIKey, cfg.SupportedCurrencies, providers.DefaultHTTPClient),
		Publisher:      publisher,
		Metrics:        rateMetrics,
		Logger:         logger,
	})
	if err != nil {
		return err
	}

	// --- Scheduler ---
	schedOpts := []scheduler.Option{scheduler.WithMetrics(rateMetrics)}
	if cfg.SchedulerDistributedLock {
		schedOpts = append(schedOpts, scheduler.WithLocker(lock.NewRedisLocker(redisClient, 0, logger)))
	}
	sched := scheduler.New(logger, schedOpts...)

	hour, minute, err := scheduler.ParseTimeOfDay(cfg.DailyFetchTime)
	if err != nil {
		return err
	}
	if err := sched.Register(services.DailyRateFetchJobID, scheduler.DailyAt(hour, minute, cfg.Location), jobs.DailyRateFetch); err != nil {
		return err
	}
	if err := sched.Register(services.CacheMaintenanceJobID, scheduler.Every(cfg.CacheMaintenanceInterval), jobs.CacheMaintenance); err != nil {
		return err
	}
	container.Jobs = sched
	sched.Start(ctx)

	// --- HTTP ---
	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(middleware.StructuredLoggingMiddleware(logger), gin.Recovery())
	r.Use(cors.New(corsConfig(cfg)))
	if err := r.SetTrustedProxies(nil); err != nil {
		return err
	}

	adminRate, err := limiter.NewRateFromFormatted(cfg.AdminRateLimit)
	if err != nil {
		return err
	}
	adminLimiter := limiter.New(limitermemory.NewStore(), adminRate)

	handlers.RegisterRoutes(r, cfg, container, adminLimiter)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Server starting", slog.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err = <-serveErr:
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if serr := srv.Shutdown(shutdownCtx); serr != nil {
		logger.Error("HTTP server shutdown failed", slog.String("error", serr.Error()))
	}
	if serr := sched.Stop(shutdownCtx); serr != nil {
		logger.Error("Scheduler stop timed out", slog.String("error", serr.Error()))
	}
	return err
}

// connectRedis returns nil when REDIS_URL is unset or the server cannot be
// reached; the in-process cache is used instead.
func connectRedis(ctx context.Context, cfg *config.Config, logger *slog.Logger) *goredis.Client {
	if cfg.RedisURL == "" {
		return nil
	}
	client, err := rediscache.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error("Redis unavailable, using in-process cache", slog.String("error", err.Error()))
		return nil
	}
	logger.Info("Connected to Redis")
	return client
}

func corsConfig(cfg *config.Config) cors.Config {
	c := cors.DefaultConfig()
	c.AllowHeaders = append(c.AllowHeaders, "Authorization", "X-Request-ID")
	c.ExposeHeaders = []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"}
	if len(cfg.CORSAllowedOrigins) == 0 || (len(cfg.CORSAllowedOrigins) == 1 && cfg.CORSAllowedOrigins[0] == "*") {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = cfg.CORSAllowedOrigins
	}
	return c
}
