package apis

import (
	"context"
	"sort"
	"sync"
)

// InMemoryRepository is an in-memory implementation of Repository.
// This is intended for testing and local development. Production should use PostgresRepository.
type InMemoryRepository struct {
	mu   sync.RWMutex
	apis map[string]*API
}

// NewInMemoryRepository creates a new in-memory API repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		apis: make(map[string]*API),
	}
}

// FindAll retrieves every API ordered by ID.
func (r *InMemoryRepository) FindAll(_ context.Context) ([]*API, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*API, 0, len(r.apis))
	for _, api := range r.apis {
		result = append(result, api.Clone())
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// FindByID retrieves an API by ID.
func (r *InMemoryRepository) FindByID(_ context.Context, id string) (*API, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	api, ok := r.apis[id]
	if !ok {
		return nil, ErrAPINotFound
	}
	return api.Clone(), nil
}

// Create stores a new API.
func (r *InMemoryRepository) Create(_ context.Context, api *API) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.apis[api.ID]; ok {
		return ErrAPIAlreadyExists
	}
	r.apis[api.ID] = api.Clone()
	return nil
}

// Update replaces an existing API.
func (r *InMemoryRepository) Update(_ context.Context, api *API) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.apis[api.ID]; !ok {
		return ErrAPINotFound
	}
	r.apis[api.ID] = api.Clone()
	return nil
}

// Delete removes an API by ID.
func (r *InMemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.apis[id]; !ok {
		return ErrAPINotFound
	}
	delete(r.apis, id)
	return nil
}

// Ensure InMemoryRepository implements Repository interface.
var _ Repository = (*InMemoryRepository)(nil)
