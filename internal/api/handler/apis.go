package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/gatewayplane/gatewayplane/internal/api/models"
	"github.com/gatewayplane/gatewayplane/internal/api/response"
	"github.com/gatewayplane/gatewayplane/internal/apis"
)

// APIService manages API definitions.
type APIService interface {
	FindAll(ctx context.Context) ([]*apis.API, error)
	FindByID(ctx context.Context, id string) (*apis.API, error)
	Create(ctx context.Context, api *apis.API) (*apis.API, error)
	Update(ctx context.Context, api *apis.API) (*apis.API, error)
	Delete(ctx context.Context, id string) error
	Start(ctx context.Context, id string) (*apis.API, error)
	Stop(ctx context.Context, id string) (*apis.API, error)
}

type apiList struct {
	Items []*apis.API     `json:"items"`
	Meta  models.ListMeta `json:"meta"`
}

// APIHandler handles API definition endpoints.
type APIHandler struct {
	service  APIService
	validate *validator.Validate
	logger   zerolog.Logger
}

// NewAPIHandler creates a new APIHandler.
func NewAPIHandler(service APIService, validate *validator.Validate, logger zerolog.Logger) *APIHandler {
	return &APIHandler{service: service, validate: validate, logger: logger}
}

// ListAPIs handles GET /v1/apis.
func (h *APIHandler) ListAPIs(w http.ResponseWriter, r *http.Request) {
	all, err := h.service.FindAll(r.Context())
	if err != nil {
		h.writeError(w, r, err, "list apis")
		return
	}
	if all == nil {
		all = []*apis.API{}
	}
	response.JSON(w, r, http.StatusOK, apiList{Items: all, Meta: models.ListMeta{Count: len(all)}})
}

// CreateAPI handles POST /v1/apis.
func (h *APIHandler) CreateAPI(w http.ResponseWriter, r *http.Request) {
	var input models.APIRequest
	if !decodeAndValidate(w, r, h.validate, &input) {
		return
	}

	created, err := h.service.Create(r.Context(), toAPI(input))
	if err != nil {
		h.writeError(w, r, err, "create api")
		return
	}

	response.Created(w, r, "/v1/apis/"+created.ID, created)
}

// GetAPI handles GET /v1/apis/{apiId}.
func (h *APIHandler) GetAPI(w http.ResponseWriter, r *http.Request) {
	api, err := h.service.FindByID(r.Context(), chi.URLParam(r, "apiId"))
	if err != nil {
		h.writeError(w, r, err, "get api")
		return
	}
	response.JSON(w, r, http.StatusOK, api)
}

// UpdateAPI handles PUT /v1/apis/{apiId}. The path identifier wins over the body.
func (h *APIHandler) UpdateAPI(w http.ResponseWriter, r *http.Request) {
	var input models.APIRequest
	if !decodeAndValidate(w, r, h.validate, &input) {
		return
	}

	api := toAPI(input)
	api.ID = chi.URLParam(r, "apiId")

	updated, err := h.service.Update(r.Context(), api)
	if err != nil {
		h.writeError(w, r, err, "update api")
		return
	}
	response.JSON(w, r, http.StatusOK, updated)
}

// DeleteAPI handles DELETE /v1/apis/{apiId}.
func (h *APIHandler) DeleteAPI(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "apiId")); err != nil {
		h.writeError(w, r, err, "delete api")
		return
	}
	response.NoContent(w, r)
}

// StartAPI handles POST /v1/apis/{apiId}:start.
func (h *APIHandler) StartAPI(w http.ResponseWriter, r *http.Request) {
	api, err := h.service.Start(r.Context(), chi.URLParam(r, "apiId"))
	if err != nil {
		h.writeError(w, r, err, "start api")
		return
	}
	response.JSON(w, r, http.StatusOK, api)
}

// StopAPI handles POST /v1/apis/{apiId}:stop.
func (h *APIHandler) StopAPI(w http.ResponseWriter, r *http.Request) {
	api, err := h.service.Stop(r.Context(), chi.URLParam(r, "apiId"))
	if err != nil {
		h.writeError(w, r, err, "stop api")
		return
	}
	response.JSON(w, r, http.StatusOK, api)
}

func (h *APIHandler) writeError(w http.ResponseWriter, r *http.Request, err error, op string) {
	switch {
	case errors.Is(err, apis.ErrAPINotFound):
		response.NotFound(w, r, err.Error())
	case errors.Is(err, apis.ErrAPIAlreadyExists):
		response.Conflict(w, r, err.Error())
	default:
		h.logger.Error().Err(err).Str("op", op).Msg("api request failed")
		response.InternalError(w, r, "failed to "+op)
	}
}

func toAPI(in models.APIRequest) *apis.API {
	groups := make([]apis.EndpointGroup, 0, len(in.Proxy.Groups))
	for _, g := range in.Proxy.Groups {
		endpoints := make([]apis.Endpoint, 0, len(g.Endpoints))
		for _, ep := range g.Endpoints {
			endpoint := apis.Endpoint{
				Name:   ep.Name,
				Target: ep.Target,
				Type:   apis.EndpointType(ep.Type),
			}
			if ep.HealthCheck != nil {
				endpoint.HealthCheck = &apis.HealthCheck{Enabled: ep.HealthCheck.Enabled}
			}
			endpoints = append(endpoints, endpoint)
		}
		groups = append(groups, apis.EndpointGroup{Name: g.Name, Endpoints: endpoints})
	}

	return &apis.API{
		ID:          in.ID,
		Name:        in.Name,
		Version:     in.Version,
		Description: in.Description,
		Proxy: apis.Proxy{
			ContextPath: in.Proxy.ContextPath,
			Groups:      groups,
		},
		PrimaryOwner: apis.Owner{
			ID:          in.PrimaryOwner.ID,
			DisplayName: in.PrimaryOwner.DisplayName,
			Email:       in.PrimaryOwner.Email,
		},
	}
}
