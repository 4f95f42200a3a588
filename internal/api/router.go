// Package api provides the HTTP management API of the gateway plane.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/gatewayplane/gatewayplane/internal/api/handler"
	"github.com/gatewayplane/gatewayplane/internal/api/middleware"
	"github.com/gatewayplane/gatewayplane/internal/resilience"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version     string
	BuildTime   string
	Logger      zerolog.Logger
	ServiceName string
	RequireTLS  bool
	Metrics     *middleware.Metrics // optional

	Auth        middleware.TokenValidator
	APIs        handler.APIService
	Alerts      handler.AlertConfigService
	Coordinator handler.TriggerCoordinator
	Registry    *resilience.Registry              // optional
	ReadyChecks map[string]handler.ReadinessCheck // optional
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "gatewayplane-api"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)
	r.Use(middleware.Tracing(serviceName))
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware())
	}
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.RequireTLS(cfg.RequireTLS))
	r.Use(middleware.ContentTypeJSON)

	validate := handler.NewValidator()

	opsHandler := handler.NewOpsHandler(handler.OpsConfig{
		Version:   cfg.Version,
		BuildTime: cfg.BuildTime,
		Registry:  cfg.Registry,
		Triggers:  cfg.Coordinator,
		Checks:    cfg.ReadyChecks,
	})
	apiHandler := handler.NewAPIHandler(cfg.APIs, validate, cfg.Logger)
	alertHandler := handler.NewAlertHandler(cfg.Alerts, validate, cfg.Logger)
	triggerHandler := handler.NewTriggerHandler(cfg.Coordinator, cfg.Logger)

	authMiddleware := middleware.Auth(cfg.Auth)
	standardRateLimit := middleware.RateLimitBySubject(middleware.StandardRateLimit)
	expensiveRateLimit := middleware.RateLimitBySubject(middleware.ExpensiveRateLimit)

	r.Route("/v1", func(r chi.Router) {
		// Ops endpoints (public except status)
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			r.With(authMiddleware).Get("/status", opsHandler.SystemStatus)
		})

		// Management endpoints (authenticated)
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)
			r.Use(standardRateLimit)

			r.Route("/apis", func(r chi.Router) {
				r.Get("/", apiHandler.ListAPIs)
				r.With(middleware.RequireJSON).Post("/", apiHandler.CreateAPI)

				r.Post("/{apiId}:start", apiHandler.StartAPI)
				r.Post("/{apiId}:stop", apiHandler.StopAPI)

				r.Route("/{apiId}", func(r chi.Router) {
					r.Get("/", apiHandler.GetAPI)
					r.With(middleware.RequireJSON).Put("/", apiHandler.UpdateAPI)
					r.Delete("/", apiHandler.DeleteAPI)

					r.Route("/alerts", func(r chi.Router) {
						r.Get("/", alertHandler.ListAlerts)
						r.With(middleware.RequireJSON).Post("/", alertHandler.CreateAlert)
						r.Route("/{alertId}", func(r chi.Router) {
							r.Get("/", alertHandler.GetAlert)
							r.With(middleware.RequireJSON).Put("/", alertHandler.UpdateAlert)
							r.Delete("/", alertHandler.DeleteAlert)
						})
					})
				})
			})

			r.Get("/admin/alerts/triggers", triggerHandler.ListTriggers)
			r.With(expensiveRateLimit).Post("/admin/alerts/triggers:resync", triggerHandler.Resync)
		})
	})

	return r
}
