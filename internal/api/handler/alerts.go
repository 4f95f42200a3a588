package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/gatewayplane/gatewayplane/internal/alertconfig"
	"github.com/gatewayplane/gatewayplane/internal/api/models"
	"github.com/gatewayplane/gatewayplane/internal/api/response"
	"github.com/gatewayplane/gatewayplane/internal/apis"
)

// AlertConfigService manages the alert configurations of APIs.
type AlertConfigService interface {
	List(ctx context.Context, apiID string) ([]*alertconfig.Alert, error)
	Get(ctx context.Context, apiID, alertID string) (*alertconfig.Alert, error)
	Create(ctx context.Context, apiID string, a *alertconfig.Alert) (*alertconfig.Alert, error)
	Update(ctx context.Context, apiID string, a *alertconfig.Alert) (*alertconfig.Alert, error)
	Delete(ctx context.Context, apiID, alertID string) error
}

type alertList struct {
	Items []*alertconfig.Alert `json:"items"`
	Meta  models.ListMeta      `json:"meta"`
}

// AlertHandler handles the /v1/apis/{apiId}/alerts endpoints.
type AlertHandler struct {
	service  AlertConfigService
	validate *validator.Validate
	logger   zerolog.Logger
}

// NewAlertHandler creates a new AlertHandler.
func NewAlertHandler(service AlertConfigService, validate *validator.Validate, logger zerolog.Logger) *AlertHandler {
	return &AlertHandler{service: service, validate: validate, logger: logger}
}

// ListAlerts handles GET /v1/apis/{apiId}/alerts.
func (h *AlertHandler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.service.List(r.Context(), chi.URLParam(r, "apiId"))
	if err != nil {
		h.writeError(w, r, err, "list alerts")
		return
	}
	if alerts == nil {
		alerts = []*alertconfig.Alert{}
	}
	response.JSON(w, r, http.StatusOK, alertList{Items: alerts, Meta: models.ListMeta{Count: len(alerts)}})
}

// CreateAlert handles POST /v1/apis/{apiId}/alerts.
// A saved alert whose triggers could not be synchronized is returned with 202 Accepted.
func (h *AlertHandler) CreateAlert(w http.ResponseWriter, r *http.Request) {
	var input models.AlertRequest
	if !decodeAndValidate(w, r, h.validate, &input) {
		return
	}

	apiID := chi.URLParam(r, "apiId")
	created, err := h.service.Create(r.Context(), apiID, toAlert(input))
	location := ""
	if created != nil {
		location = "/v1/apis/" + apiID + "/alerts/" + created.ID
	}

	switch {
	case err == nil:
		response.Created(w, r, location, created)
	case errors.Is(err, alertconfig.ErrTriggerSync) && created != nil:
		h.logger.Warn().Err(err).Str("api_id", apiID).Str("alert_id", created.ID).Msg("alert created without trigger sync")
		response.Accepted(w, r, location, created)
	default:
		h.writeError(w, r, err, "create alert")
	}
}

// GetAlert handles GET /v1/apis/{apiId}/alerts/{alertId}.
func (h *AlertHandler) GetAlert(w http.ResponseWriter, r *http.Request) {
	a, err := h.service.Get(r.Context(), chi.URLParam(r, "apiId"), chi.URLParam(r, "alertId"))
	if err != nil {
		h.writeError(w, r, err, "get alert")
		return
	}
	response.JSON(w, r, http.StatusOK, a)
}

// UpdateAlert handles PUT /v1/apis/{apiId}/alerts/{alertId}.
func (h *AlertHandler) UpdateAlert(w http.ResponseWriter, r *http.Request) {
	var input models.AlertRequest
	if !decodeAndValidate(w, r, h.validate, &input) {
		return
	}

	a := toAlert(input)
	a.ID = chi.URLParam(r, "alertId")

	updated, err := h.service.Update(r.Context(), chi.URLParam(r, "apiId"), a)
	switch {
	case err == nil:
		response.JSON(w, r, http.StatusOK, updated)
	case errors.Is(err, alertconfig.ErrTriggerSync) && updated != nil:
		h.logger.Warn().Err(err).Str("alert_id", updated.ID).Msg("alert updated without trigger sync")
		response.JSON(w, r, http.StatusAccepted, updated)
	default:
		h.writeError(w, r, err, "update alert")
	}
}

// DeleteAlert handles DELETE /v1/apis/{apiId}/alerts/{alertId}.
func (h *AlertHandler) DeleteAlert(w http.ResponseWriter, r *http.Request) {
	err := h.service.Delete(r.Context(), chi.URLParam(r, "apiId"), chi.URLParam(r, "alertId"))
	switch {
	case err == nil:
		response.NoContent(w, r)
	case errors.Is(err, alertconfig.ErrTriggerSync):
		// The configuration is gone; the next resync cancels what is left.
		h.logger.Warn().Err(err).Msg("alert deleted without trigger cancel")
		response.NoContent(w, r)
	default:
		h.writeError(w, r, err, "delete alert")
	}
}

func (h *AlertHandler) writeError(w http.ResponseWriter, r *http.Request, err error, op string) {
	switch {
	case errors.Is(err, apis.ErrAPINotFound), errors.Is(err, alertconfig.ErrAlertNotFound):
		response.NotFound(w, r, err.Error())
	case errors.Is(err, alertconfig.ErrTriggerSync):
		response.BadGateway(w, r, err.Error())
	default:
		h.logger.Error().Err(err).Str("op", op).Msg("alert request failed")
		response.InternalError(w, r, "failed to "+op)
	}
}

func toAlert(in models.AlertRequest) *alertconfig.Alert {
	return &alertconfig.Alert{
		Name:        in.Name,
		Description: in.Description,
		Type:        alertconfig.Type(in.Type),
		Enabled:     in.Enabled != nil && *in.Enabled,
	}
}
