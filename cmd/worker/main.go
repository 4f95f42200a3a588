// Package main provides the entrypoint for the gateway plane alert worker.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/gatewayplane/gatewayplane/internal/alert"
	"github.com/gatewayplane/gatewayplane/internal/alert/sink"
	"github.com/gatewayplane/gatewayplane/internal/api/handler"
	"github.com/gatewayplane/gatewayplane/internal/api/middleware"
	"github.com/gatewayplane/gatewayplane/internal/apis"
	"github.com/gatewayplane/gatewayplane/internal/config"
	"github.com/gatewayplane/gatewayplane/internal/database"
	"github.com/gatewayplane/gatewayplane/internal/resilience"
	"github.com/gatewayplane/gatewayplane/internal/telemetry"
	"github.com/gatewayplane/gatewayplane/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags
var (
	Version   = "dev"
	BuildTime = "unknown"
)

const serviceName = "gatewayplane-worker"

func main() {
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting gateway plane worker")

	loader := config.NewLoader(os.Getenv("CONFIG_FILE"), log)
	cfg, err := loader.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	log = log.Level(cfg.LogLevel())

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tp, err := telemetry.Init(ctx, cfg.TelemetryConfig(serviceName, Version))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	alertMetrics, err := alert.NewMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize alert metrics")
	}
	depMetrics, err := middleware.NewDependencyMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize dependency metrics")
	}

	pool, err := database.Connect(ctx, cfg.DatabaseConfig())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	var directory apis.Repository = apis.NewPostgresRepository(pool)
	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			log.Fatal().Err(err).Msg("invalid redis url")
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()

		directory = apis.NewCachedRepository(apis.CachedRepositoryConfig{
			Repository: directory,
			Client:     rdb,
			TTL:        cfg.Redis.TTL,
			Logger:     log,
			Metrics:    depMetrics,
		})
	}

	registry := resilience.NewRegistry()
	alertSink, err := sink.New(ctx, cfg.SinkConfig(registry), log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create alert sink")
	}
	defer alertSink.Close()

	coordinator := alert.NewCoordinator(alert.CoordinatorConfig{
		Directory: directory,
		Sink:      alertSink,
		Settings:  cfg.AlertSettings(),
		Logger:    log,
		Metrics:   alertMetrics,
	})

	enabled := cfg.Alerts.Default.Enabled
	if !enabled {
		log.Info().Msg("health-check alerting disabled, worker only serves health checks")
	}

	loader.Watch(func(newCfg *config.Config) {
		if err := coordinator.Reload(ctx, newCfg.AlertSettings(), enabled); err != nil {
			log.Error().Err(err).Msg("resync after configuration change failed")
		}
	})

	// Pub/Sub consumer
	var consumer *worker.Consumer
	if enabled && cfg.PubSub.ProjectID != "" {
		consumer, err = worker.NewConsumer(ctx, worker.ConsumerConfig{
			ProjectID:    cfg.PubSub.ProjectID,
			Subscription: cfg.PubSub.Subscription,
			Dispatcher:   worker.NewDispatcher(coordinator, log),
			Logger:       log,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create pubsub consumer")
		}
		defer consumer.Close()
	}

	// Periodic resync
	var scheduler *worker.Scheduler
	if enabled && cfg.Alerts.Resync.Schedule != "" {
		scheduler, err = worker.NewScheduler(worker.SchedulerConfig{
			Schedule: cfg.Alerts.Resync.Schedule,
			Resyncer: coordinator,
			Logger:   log,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create resync scheduler")
		}
	}

	// Health check server
	ops := handler.NewOpsHandler(handler.OpsConfig{
		Version:   Version,
		BuildTime: BuildTime,
		Registry:  registry,
		Triggers:  coordinator,
		Checks: map[string]handler.ReadinessCheck{
			"postgres": pool.Ping,
		},
	})

	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Get("/health", ops.HealthCheck)
	r.Get("/ready", ops.ReadinessCheck)
	r.Get("/status", ops.SystemStatus)

	server := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("health check server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("health server error")
		}
	}()

	if enabled {
		if err := coordinator.TriggerAll(ctx); err != nil {
			log.Error().Err(err).Msg("initial resync failed")
		}
	}

	if scheduler != nil {
		scheduler.Start()
	}

	if consumer != nil {
		go func() {
			if err := consumer.Run(ctx); err != nil {
				log.Error().Err(err).Msg("pubsub consumer stopped")
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down worker")
	cancel()

	if scheduler != nil {
		scheduler.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server forced to shutdown")
	}

	log.Info().Msg("worker stopped")
}
