// Package main provides the entrypoint for the gateway plane management API server.
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

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/gatewayplane/gatewayplane/internal/alert"
	"github.com/gatewayplane/gatewayplane/internal/alert/sink"
	"github.com/gatewayplane/gatewayplane/internal/alertconfig"
	"github.com/gatewayplane/gatewayplane/internal/api"
	"github.com/gatewayplane/gatewayplane/internal/api/handler"
	"github.com/gatewayplane/gatewayplane/internal/api/middleware"
	"github.com/gatewayplane/gatewayplane/internal/apis"
	"github.com/gatewayplane/gatewayplane/internal/auth"
	"github.com/gatewayplane/gatewayplane/internal/config"
	"github.com/gatewayplane/gatewayplane/internal/database"
	"github.com/gatewayplane/gatewayplane/internal/events"
	"github.com/gatewayplane/gatewayplane/internal/resilience"
	"github.com/gatewayplane/gatewayplane/internal/telemetry"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

const (
	serviceName      = "gatewayplane-api"
	devSigningKey    = "local-dev-signing-key-change-in-production"
	reloadResyncTime = 5 * time.Minute
)

func main() {
	// Setup structured logging
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting gateway plane API")

	loader := config.NewLoader(os.Getenv("CONFIG_FILE"), log)
	cfg, err := loader.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	log = log.Level(cfg.LogLevel())

	ctx := context.Background()

	tp, err := telemetry.Init(ctx, cfg.TelemetryConfig(serviceName, Version))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if tp.Enabled() {
		log.Info().
			Str("otlp_endpoint", cfg.OTel.Endpoint).
			Msg("OpenTelemetry initialized")
	}

	// Initialize metrics
	httpMetrics, err := middleware.NewMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize http metrics")
	}
	depMetrics, err := middleware.NewDependencyMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize dependency metrics")
	}
	alertMetrics, err := alert.NewMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize alert metrics")
	}

	// Connect to database
	dbConfig := cfg.DatabaseConfig()
	pool, err := database.Connect(ctx, dbConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	log.Info().
		Str("host", dbConfig.Host).
		Int("port", dbConfig.Port).
		Str("database", dbConfig.Database).
		Msg("database connected")

	if err := database.Migrate(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
	}

	readyChecks := map[string]handler.ReadinessCheck{
		"postgres": pool.Ping,
	}

	// API directory, optionally behind a redis cache
	var apiRepo apis.Repository = apis.NewPostgresRepository(pool)
	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			log.Fatal().Err(err).Msg("invalid redis url")
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()

		apiRepo = apis.NewCachedRepository(apis.CachedRepositoryConfig{
			Repository: apiRepo,
			Client:     rdb,
			TTL:        cfg.Redis.TTL,
			Logger:     log,
			Metrics:    depMetrics,
		})
		readyChecks["redis"] = func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}
		log.Info().Str("addr", opts.Addr).Msg("api directory cache enabled")
	}

	// Event dispatch
	eventManager := events.NewManager(log)
	if cfg.PubSub.ProjectID != "" {
		forwarder, err := events.NewPubSubForwarder(ctx, events.PubSubForwarderConfig{
			ProjectID: cfg.PubSub.ProjectID,
			Topic:     cfg.PubSub.Topic,
			Logger:    log,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create pubsub forwarder")
		}
		defer forwarder.Close()
		eventManager.Subscribe(forwarder)
		log.Info().Str("topic", cfg.PubSub.Topic).Msg("forwarding api events to pubsub")
	}

	apiService := apis.NewService(apis.ServiceConfig{
		Repository: apiRepo,
		Publisher:  eventManager,
		Logger:     log,
	})

	// Alert triggers
	registry := resilience.NewRegistry()
	alertSink, err := sink.New(ctx, cfg.SinkConfig(registry), log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create alert sink")
	}
	defer alertSink.Close()

	coordinator := alert.NewCoordinator(alert.CoordinatorConfig{
		Directory: apiService,
		Sink:      alertSink,
		Settings:  cfg.AlertSettings(),
		Logger:    log,
		Metrics:   alertMetrics,
	})
	alertsEnabled := cfg.Alerts.Default.Enabled
	coordinator.Subscribe(eventManager, alertsEnabled)

	loader.Watch(func(newCfg *config.Config) {
		resyncCtx, cancel := context.WithTimeout(context.Background(), reloadResyncTime)
		defer cancel()
		if err := coordinator.Reload(resyncCtx, newCfg.AlertSettings(), alertsEnabled); err != nil {
			log.Error().Err(err).Msg("resync after configuration change failed")
		}
	})

	alertService := alertconfig.NewService(alertconfig.ServiceConfig{
		Repository: alertconfig.NewPostgresRepository(pool),
		APIs:       apiService,
		Triggers:   coordinator,
		Logger:     log,
	})

	// Auth
	signingKey := cfg.Auth.SigningKey
	if signingKey == "" {
		if cfg.IsProduction() {
			log.Fatal().Msg("auth.signing_key is required in production")
		}
		signingKey = devSigningKey
		log.Warn().Msg("using default JWT signing key - not secure for production")
	}

	authService := auth.NewService(auth.ServiceConfig{
		JWTService: auth.NewJWTService(auth.JWTConfig{
			SigningKey: signingKey,
			Issuer:     cfg.Auth.Issuer,
			Audience:   cfg.Auth.Audience,
			TTL:        cfg.Auth.TokenTTL,
		}),
		Logger: log,
	})

	router := api.NewRouter(api.RouterConfig{
		Version:     Version,
		BuildTime:   BuildTime,
		Logger:      log,
		ServiceName: serviceName,
		RequireTLS:  cfg.Server.RequireTLS,
		Metrics:     httpMetrics,
		Auth:        authService,
		APIs:        apiService,
		Alerts:      alertService,
		Coordinator: coordinator,
		Registry:    registry,
		ReadyChecks: readyChecks,
	})

	server := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
