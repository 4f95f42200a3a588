package apis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ServiceConfig holds configuration for the API service.
type ServiceConfig struct {
	Repository Repository
	Publisher  EventPublisher // optional
	Logger     zerolog.Logger
}

// Service manages API definitions and announces their lifecycle changes.
type Service struct {
	repo      Repository
	publisher EventPublisher
	logger    zerolog.Logger
}

// NewService creates a new API service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		repo:      cfg.Repository,
		publisher: cfg.Publisher,
		logger:    cfg.Logger,
	}
}

// FindAll returns every known API.
func (s *Service) FindAll(ctx context.Context) ([]*API, error) {
	return s.repo.FindAll(ctx)
}

// FindByID returns the API with the given ID, or ErrAPINotFound.
func (s *Service) FindByID(ctx context.Context, id string) (*API, error) {
	return s.repo.FindByID(ctx, id)
}

// Create registers a new API. A missing ID is generated from the name.
func (s *Service) Create(ctx context.Context, api *API) (*API, error) {
	if api.ID == "" {
		api.ID = generateID(api.Name)
	}
	if api.State == "" {
		api.State = StateStopped
	}

	now := time.Now().UTC()
	api.CreatedAt = now
	api.UpdatedAt = now

	if err := s.repo.Create(ctx, api); err != nil {
		return nil, err
	}

	s.publish(ctx, EventCreate, api)
	return api, nil
}

// Update replaces the definition of an existing API.
func (s *Service) Update(ctx context.Context, api *API) (*API, error) {
	existing, err := s.repo.FindByID(ctx, api.ID)
	if err != nil {
		return nil, err
	}

	api.CreatedAt = existing.CreatedAt
	if api.State == "" {
		api.State = existing.State
	}
	api.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, api); err != nil {
		return nil, err
	}

	s.publish(ctx, EventUpdate, api)
	return api, nil
}

// Delete removes an API.
func (s *Service) Delete(ctx context.Context, id string) error {
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.publish(ctx, EventDelete, existing)
	return nil
}

// Start marks an API as started on the gateway.
func (s *Service) Start(ctx context.Context, id string) (*API, error) {
	return s.transition(ctx, id, StateStarted, EventStart)
}

// Stop marks an API as stopped on the gateway.
func (s *Service) Stop(ctx context.Context, id string) (*API, error) {
	return s.transition(ctx, id, StateStopped, EventStop)
}

func (s *Service) transition(ctx context.Context, id string, state State, eventType EventType) (*API, error) {
	api, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	api.State = state
	api.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, api); err != nil {
		return nil, fmt.Errorf("set api state %s: %w", state, err)
	}

	s.publish(ctx, eventType, api)
	return api, nil
}

func (s *Service) publish(ctx context.Context, eventType EventType, api *API) {
	if s.publisher == nil {
		return
	}

	s.logger.Debug().
		Str("api_id", api.ID).
		Str("event", string(eventType)).
		Msg("publishing api event")

	s.publisher.Publish(ctx, NewEvent(eventType, api.Clone()))
}

// generateID derives a readable API ID from its name with a random suffix.
func generateID(name string) string {
	slug := strings.ToLower(strings.Join(strings.Fields(name), "-"))
	suffix := uuid.New().String()[:8]
	if slug == "" {
		return suffix
	}
	return slug + "-" + suffix
}
