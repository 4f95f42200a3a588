// Package handler provides HTTP handlers for the management API.
package handler

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gatewayplane/gatewayplane/internal/api/models"
	"github.com/gatewayplane/gatewayplane/internal/api/response"
	"github.com/gatewayplane/gatewayplane/internal/resilience"
)

// readinessTimeout bounds each readiness check.
const readinessTimeout = 2 * time.Second

// ReadinessCheck reports whether a backing store is reachable.
type ReadinessCheck func(ctx context.Context) error

// TriggerLister reports the registered health-check triggers.
type TriggerLister interface {
	ActiveTriggers() []string
}

// OpsConfig holds the dependencies of the operational endpoints.
type OpsConfig struct {
	Version   string
	BuildTime string
	Registry  *resilience.Registry      // optional
	Triggers  TriggerLister             // optional
	Checks    map[string]ReadinessCheck // optional, keyed by subsystem name
}

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version   string
	buildTime string
	registry  *resilience.Registry
	triggers  TriggerLister
	checks    map[string]ReadinessCheck
}

// NewOpsHandler creates a new OpsHandler.
func NewOpsHandler(cfg OpsConfig) *OpsHandler {
	return &OpsHandler{
		version:   cfg.Version,
		buildTime: cfg.BuildTime,
		registry:  cfg.Registry,
		triggers:  cfg.Triggers,
		checks:    cfg.Checks,
	}
}

// HealthCheck handles GET /v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
		Details: map[string]interface{}{
			"version":   h.version,
			"buildTime": h.buildTime,
		},
	}
	response.JSON(w, r, http.StatusOK, health)
}

// ReadinessCheck handles GET /v1/ops/ready. It fails when any backing store is unreachable.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	subsystems := h.runChecks(r.Context())

	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
	}
	status := http.StatusOK

	for _, s := range subsystems {
		if s.Status == models.HealthStatusFail {
			if health.Details == nil {
				health.Details = map[string]interface{}{}
			}
			health.Details[s.Name] = *s.Detail
			health.Status = models.HealthStatusFail
			status = http.StatusServiceUnavailable
		}
	}

	response.JSON(w, r, status, health)
}

// SystemStatus handles GET /v1/ops/status - subsystem, sink and trigger status.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	status := models.SystemStatus{
		Status:       models.HealthStatusOK,
		Time:         models.Timestamp(time.Now()),
		Subsystems:   h.runChecks(r.Context()),
		Dependencies: h.dependencies(),
	}
	if h.triggers != nil {
		status.ActiveTriggers = len(h.triggers.ActiveTriggers())
	}

	for _, s := range status.Subsystems {
		if s.Status == models.HealthStatusFail {
			status.Status = models.HealthStatusFail
		}
	}
	if status.Status == models.HealthStatusOK {
		for _, d := range status.Dependencies {
			if d.Status != models.HealthStatusOK {
				status.Status = models.HealthStatusDegraded
			}
		}
	}

	response.JSON(w, r, http.StatusOK, status)
}

func (h *OpsHandler) runChecks(ctx context.Context) []models.SubsystemStatus {
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]models.SubsystemStatus, 0, len(names))
	for _, name := range names {
		checkCtx, cancel := context.WithTimeout(ctx, readinessTimeout)
		err := h.checks[name](checkCtx)
		cancel()

		s := models.SubsystemStatus{Name: name, Status: models.HealthStatusOK}
		if err != nil {
			detail := err.Error()
			s.Status = models.HealthStatusFail
			s.Detail = &detail
		}
		out = append(out, s)
	}
	return out
}

func (h *OpsHandler) dependencies() []models.DependencyStatus {
	if h.registry == nil {
		return []models.DependencyStatus{}
	}

	all := h.registry.GetAllHealth()
	out := make([]models.DependencyStatus, 0, len(all))
	for _, hl := range all {
		d := models.DependencyStatus{
			Name:                hl.Name,
			Status:              models.HealthStatusOK,
			CircuitState:        hl.CircuitState.String(),
			ConsecutiveFailures: hl.Counts.ConsecutiveFailures,
		}
		switch {
		case hl.IsUnhealthy():
			d.Status = models.HealthStatusFail
		case hl.IsDegraded():
			d.Status = models.HealthStatusDegraded
		}
		if hl.LastSuccessAt != nil {
			ts := models.Timestamp(*hl.LastSuccessAt)
			d.LastSuccessAt = &ts
		}
		if hl.LastFailureAt != nil {
			ts := models.Timestamp(*hl.LastFailureAt)
			d.LastFailureAt = &ts
		}
		if hl.LastError != "" {
			msg := hl.LastError
			d.Message = &msg
		}
		out = append(out, d)
	}
	return out
}
