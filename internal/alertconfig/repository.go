package alertconfig

import "context"

// Repository defines the interface for alert configuration persistence.
type Repository interface {
	// List returns the alerts of a reference ordered by creation time.
	List(ctx context.Context, referenceType ReferenceType, referenceID string) ([]*Alert, error)

	// FindByID retrieves an alert by ID.
	FindByID(ctx context.Context, id string) (*Alert, error)

	// Create stores a new alert.
	Create(ctx context.Context, alert *Alert) error

	// Update replaces an existing alert.
	Update(ctx context.Context, alert *Alert) error

	// Delete removes an alert by ID.
	Delete(ctx context.Context, id string) error
}
