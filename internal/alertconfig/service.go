package alertconfig

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gatewayplane/gatewayplane/internal/alert"
	"github.com/gatewayplane/gatewayplane/internal/apis"
)

// APIFinder resolves the API an alert refers to.
type APIFinder interface {
	FindByID(ctx context.Context, id string) (*apis.API, error)
}

// ServiceConfig holds configuration for the alert configuration service.
type ServiceConfig struct {
	Repository Repository
	APIs       APIFinder
	Triggers   alert.Service
	Logger     zerolog.Logger
}

// Service manages alert configurations of APIs.
type Service struct {
	repo     Repository
	apis     APIFinder
	triggers alert.Service
	logger   zerolog.Logger
}

// NewService creates a new alert configuration service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		repo:     cfg.Repository,
		apis:     cfg.APIs,
		triggers: cfg.Triggers,
		logger:   cfg.Logger,
	}
}

// List returns the alerts configured for an API.
// The API must exist.
func (s *Service) List(ctx context.Context, apiID string) ([]*Alert, error) {
	if _, err := s.apis.FindByID(ctx, apiID); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, ReferenceTypeAPI, apiID)
}

// Get returns one alert of an API.
func (s *Service) Get(ctx context.Context, apiID, alertID string) (*Alert, error) {
	existing, err := s.repo.FindByID(ctx, alertID)
	if err != nil {
		return nil, err
	}
	if !belongsTo(existing, apiID) {
		return nil, ErrAlertNotFound
	}
	return existing, nil
}

// Create stores a new alert for an API and registers or cancels its triggers.
func (s *Service) Create(ctx context.Context, apiID string, a *Alert) (*Alert, error) {
	api, err := s.apis.FindByID(ctx, apiID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	a.ID = uuid.NewString()
	a.ReferenceType = ReferenceTypeAPI
	a.ReferenceID = api.ID
	a.CreatedAt = now
	a.UpdatedAt = now

	if err := s.repo.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("create alert: %w", err)
	}

	s.logger.Info().
		Str("alert_id", a.ID).
		Str("api_id", api.ID).
		Str("type", string(a.Type)).
		Bool("enabled", a.Enabled).
		Msg("alert created")

	return a, s.syncTriggers(ctx, a, api)
}

// Update replaces an alert of an API and registers or cancels its triggers.
func (s *Service) Update(ctx context.Context, apiID string, a *Alert) (*Alert, error) {
	existing, err := s.Get(ctx, apiID, a.ID)
	if err != nil {
		return nil, err
	}

	api, err := s.apis.FindByID(ctx, apiID)
	if err != nil {
		return nil, err
	}

	a.ReferenceType = existing.ReferenceType
	a.ReferenceID = existing.ReferenceID
	a.CreatedAt = existing.CreatedAt
	a.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, a); err != nil {
		return nil, fmt.Errorf("update alert: %w", err)
	}

	return a, s.syncTriggers(ctx, a, api)
}

// Delete removes an alert. Deleting a health-check alert cancels the API's triggers.
func (s *Service) Delete(ctx context.Context, apiID, alertID string) error {
	existing, err := s.Get(ctx, apiID, alertID)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, alertID); err != nil {
		return err
	}

	if !existing.IsHealthCheck() {
		return nil
	}

	api, err := s.apis.FindByID(ctx, apiID)
	if errors.Is(err, apis.ErrAPINotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if err := s.triggers.CancelTriggerAPIHC(ctx, api); err != nil {
		return fmt.Errorf("%w: %w", ErrTriggerSync, err)
	}
	return nil
}

// syncTriggers registers health-check triggers for enabled alerts and cancels them for disabled ones.
// Other alert types do not touch the alert engine.
func (s *Service) syncTriggers(ctx context.Context, a *Alert, api *apis.API) error {
	if !a.IsHealthCheck() {
		return nil
	}

	var err error
	if a.Enabled {
		err = s.triggers.TriggerAPIHC(ctx, api)
	} else {
		err = s.triggers.CancelTriggerAPIHC(ctx, api)
	}
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("alert_id", a.ID).
			Str("api_id", api.ID).
			Msg("failed to synchronize health-check triggers")
		return fmt.Errorf("%w: %w", ErrTriggerSync, err)
	}
	return nil
}

func belongsTo(a *Alert, apiID string) bool {
	return a.ReferenceType == ReferenceTypeAPI && a.ReferenceID == apiID
}
