package alertconfig

import (
	"context"
	"sort"
	"sync"
)

// InMemoryRepository is an in-memory implementation of Repository.
type InMemoryRepository struct {
	mu     sync.RWMutex
	alerts map[string]Alert
}

// NewInMemoryRepository creates a new in-memory alert repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		alerts: make(map[string]Alert),
	}
}

// List returns the alerts of a reference ordered by creation time.
func (r *InMemoryRepository) List(_ context.Context, referenceType ReferenceType, referenceID string) ([]*Alert, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*Alert, 0)
	for _, a := range r.alerts {
		if a.ReferenceType == referenceType && a.ReferenceID == referenceID {
			alert := a
			result = append(result, &alert)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

// FindByID retrieves an alert by ID.
func (r *InMemoryRepository) FindByID(_ context.Context, id string) (*Alert, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.alerts[id]
	if !ok {
		return nil, ErrAlertNotFound
	}
	return &a, nil
}

// Create stores a new alert.
func (r *InMemoryRepository) Create(_ context.Context, alert *Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts[alert.ID] = *alert
	return nil
}

// Update replaces an existing alert.
func (r *InMemoryRepository) Update(_ context.Context, alert *Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.alerts[alert.ID]; !ok {
		return ErrAlertNotFound
	}
	r.alerts[alert.ID] = *alert
	return nil
}

// Delete removes an alert by ID.
func (r *InMemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.alerts[id]; !ok {
		return ErrAlertNotFound
	}
	delete(r.alerts, id)
	return nil
}

// Ensure InMemoryRepository implements Repository interface.
var _ Repository = (*InMemoryRepository)(nil)
