package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatewayplane/gatewayplane/internal/alertconfig"
	"github.com/gatewayplane/gatewayplane/internal/api/handler"
	"github.com/gatewayplane/gatewayplane/internal/api/models"
)

// syncFailingAlerts saves alerts but reports a trigger synchronization failure.
type syncFailingAlerts struct {
	err error
}

func (s syncFailingAlerts) List(context.Context, string) ([]*alertconfig.Alert, error) {
	return nil, nil
}

func (s syncFailingAlerts) Get(context.Context, string, string) (*alertconfig.Alert, error) {
	return nil, alertconfig.ErrAlertNotFound
}

func (s syncFailingAlerts) Create(_ context.Context, apiID string, a *alertconfig.Alert) (*alertconfig.Alert, error) {
	a.ID = "alert-1"
	a.ReferenceID = apiID
	return a, s.err
}

func (s syncFailingAlerts) Update(_ context.Context, _ string, a *alertconfig.Alert) (*alertconfig.Alert, error) {
	return a, s.err
}

func (s syncFailingAlerts) Delete(context.Context, string, string) error {
	return s.err
}

type fakeCoordinator struct {
	active []string
	err    error
}

func (f *fakeCoordinator) ActiveTriggers() []string         { return f.active }
func (f *fakeCoordinator) TriggerAll(context.Context) error { return f.err }

func alertRouter(svc handler.AlertConfigService) http.Handler {
	h := handler.NewAlertHandler(svc, handler.NewValidator(), zerolog.Nop())
	r := chi.NewRouter()
	r.Post("/apis/{apiId}/alerts", h.CreateAlert)
	r.Put("/apis/{apiId}/alerts/{alertId}", h.UpdateAlert)
	r.Delete("/apis/{apiId}/alerts/{alertId}", h.DeleteAlert)
	return r
}

func alertBody(t *testing.T) *bytes.Reader {
	t.Helper()
	enabled := true
	data, err := json.Marshal(models.AlertRequest{Name: "hc", Type: "HEALTH_CHECK", Enabled: &enabled})
	require.NoError(t, err)
	return bytes.NewReader(data)
}

func TestAlertHandler_TriggerSyncFailure(t *testing.T) {
	syncErr := fmt.Errorf("%w: %w", alertconfig.ErrTriggerSync, errors.New("broker unreachable"))
	router := alertRouter(syncFailingAlerts{err: syncErr})

	tests := []struct {
		name   string
		method string
		path   string
		body   bool
		status int
	}{
		{"create is accepted", http.MethodPost, "/apis/petstore/alerts", true, http.StatusAccepted},
		{"update is accepted", http.MethodPut, "/apis/petstore/alerts/alert-1", true, http.StatusAccepted},
		{"delete still succeeds", http.MethodDelete, "/apis/petstore/alerts/alert-1", false, http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req *http.Request
			if tt.body {
				req = httptest.NewRequest(tt.method, tt.path, alertBody(t))
			} else {
				req = httptest.NewRequest(tt.method, tt.path, http.NoBody)
			}
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestAlertHandler_CreateAccepted_SetsLocation(t *testing.T) {
	router := alertRouter(syncFailingAlerts{err: alertconfig.ErrTriggerSync})

	req := httptest.NewRequest(http.MethodPost, "/apis/petstore/alerts", alertBody(t))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "/v1/apis/petstore/alerts/alert-1", w.Header().Get("Location"))
}

func TestAlertHandler_UnknownFieldRejected(t *testing.T) {
	router := alertRouter(syncFailingAlerts{})

	req := httptest.NewRequest(http.MethodPost, "/apis/petstore/alerts",
		bytes.NewBufferString(`{"name":"hc","type":"HEALTH_CHECK","enabled":true,"severity":"high"}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "severity")
}

func TestTriggerHandler_ResyncReportsErrors(t *testing.T) {
	coordinator := &fakeCoordinator{
		active: []string{"HC-a-default-primary"},
		err:    errors.Join(errors.New("api b: sink down"), errors.New("api c: sink down")),
	}
	h := handler.NewTriggerHandler(coordinator, zerolog.Nop())

	req := httptest.NewRequest(http.MethodPost, "/admin/alerts/triggers:resync", http.NoBody)
	w := httptest.NewRecorder()
	h.Resync(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var result models.ResyncResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, 1, result.ActiveTriggers)
	assert.Equal(t, []string{"api b: sink down", "api c: sink down"}, result.Errors)
}

func TestTriggerHandler_ResyncSingleError(t *testing.T) {
	h := handler.NewTriggerHandler(&fakeCoordinator{err: errors.New("list apis: timeout")}, zerolog.Nop())

	req := httptest.NewRequest(http.MethodPost, "/admin/alerts/triggers:resync", http.NoBody)
	w := httptest.NewRecorder()
	h.Resync(w, req)

	var result models.ResyncResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, []string{"list apis: timeout"}, result.Errors)
}

func TestTriggerHandler_ListEmpty(t *testing.T) {
	h := handler.NewTriggerHandler(&fakeCoordinator{}, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/admin/alerts/triggers", http.NoBody)
	w := httptest.NewRecorder()
	h.ListTriggers(w, req)

	assert.JSONEq(t, `{"items":[],"meta":{"count":0}}`, w.Body.String())
}
