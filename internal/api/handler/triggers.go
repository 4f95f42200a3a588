package handler

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/gatewayplane/gatewayplane/internal/api/middleware"
	"github.com/gatewayplane/gatewayplane/internal/api/models"
	"github.com/gatewayplane/gatewayplane/internal/api/response"
)

// TriggerCoordinator exposes the trigger set to operators.
type TriggerCoordinator interface {
	TriggerLister
	TriggerAll(ctx context.Context) error
}

// TriggerHandler handles the /v1/admin/alerts/triggers endpoints.
type TriggerHandler struct {
	coordinator TriggerCoordinator
	logger      zerolog.Logger
}

// NewTriggerHandler creates a new TriggerHandler.
func NewTriggerHandler(coordinator TriggerCoordinator, logger zerolog.Logger) *TriggerHandler {
	return &TriggerHandler{coordinator: coordinator, logger: logger}
}

// ListTriggers handles GET /v1/admin/alerts/triggers.
func (h *TriggerHandler) ListTriggers(w http.ResponseWriter, r *http.Request) {
	ids := h.coordinator.ActiveTriggers()
	if ids == nil {
		ids = []string{}
	}
	response.JSON(w, r, http.StatusOK, models.TriggerList{Items: ids, Meta: models.ListMeta{Count: len(ids)}})
}

// Resync handles POST /v1/admin/alerts/triggers:resync.
// Per-API failures are reported in the body; the triggers that did go through stay registered.
func (h *TriggerHandler) Resync(w http.ResponseWriter, r *http.Request) {
	err := h.coordinator.TriggerAll(r.Context())

	result := models.ResyncResult{ActiveTriggers: len(h.coordinator.ActiveTriggers())}
	if err != nil {
		h.logger.Warn().
			Err(err).
			Str("subject", middleware.GetSubject(r.Context())).
			Msg("trigger resync completed with errors")
		result.Errors = splitErrors(err)
	}

	response.JSON(w, r, http.StatusOK, result)
}

// splitErrors flattens an errors.Join result into messages.
func splitErrors(err error) []string {
	joined, ok := err.(interface{ Unwrap() []error })
	if !ok {
		return []string{err.Error()}
	}
	out := make([]string, 0, len(joined.Unwrap()))
	for _, e := range joined.Unwrap() {
		out = append(out, e.Error())
	}
	return out
}
