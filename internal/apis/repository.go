package apis

import "context"

// Repository defines the interface for API definition persistence.
type Repository interface {
	// FindAll retrieves every API ordered by ID.
	FindAll(ctx context.Context) ([]*API, error)

	// FindByID retrieves an API by ID.
	// Returns ErrAPINotFound if the API doesn't exist.
	FindByID(ctx context.Context, id string) (*API, error)

	// Create stores a new API.
	// Returns ErrAPIAlreadyExists if the ID is taken.
	Create(ctx context.Context, api *API) error

	// Update replaces an existing API.
	Update(ctx context.Context, api *API) error

	// Delete removes an API by ID.
	Delete(ctx context.Context, id string) error
}
