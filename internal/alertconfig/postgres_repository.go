package alertconfig

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL alert repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// List returns the alerts of a reference ordered by creation time.
func (r *PostgresRepository) List(ctx context.Context, referenceType ReferenceType, referenceID string) ([]*Alert, error) {
	query := `
		SELECT id, reference_type, reference_id, name, description, type, enabled, created_at, updated_at
		FROM alerts
		WHERE reference_type = $1 AND reference_id = $2
		ORDER BY created_at, id
	`

	rows, err := r.pool.Query(ctx, query, referenceType, referenceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]*Alert, 0)
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, alert)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// FindByID retrieves an alert by ID.
func (r *PostgresRepository) FindByID(ctx context.Context, id string) (*Alert, error) {
	query := `
		SELECT id, reference_type, reference_id, name, description, type, enabled, created_at, updated_at
		FROM alerts
		WHERE id = $1
	`

	alert, err := scanAlert(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAlertNotFound
		}
		return nil, err
	}
	return alert, nil
}

func scanAlert(row pgx.Row) (*Alert, error) {
	var alert Alert
	err := row.Scan(
		&alert.ID,
		&alert.ReferenceType,
		&alert.ReferenceID,
		&alert.Name,
		&alert.Description,
		&alert.Type,
		&alert.Enabled,
		&alert.CreatedAt,
		&alert.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &alert, nil
}

// Create stores a new alert.
func (r *PostgresRepository) Create(ctx context.Context, alert *Alert) error {
	query := `
		INSERT INTO alerts (id, reference_type, reference_id, name, description, type, enabled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.pool.Exec(ctx, query,
		alert.ID,
		alert.ReferenceType,
		alert.ReferenceID,
		alert.Name,
		alert.Description,
		alert.Type,
		alert.Enabled,
		alert.CreatedAt,
		alert.UpdatedAt,
	)
	return err
}

// Update replaces an existing alert.
func (r *PostgresRepository) Update(ctx context.Context, alert *Alert) error {
	query := `
		UPDATE alerts
		SET name = $2, description = $3, type = $4, enabled = $5, updated_at = $6
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query,
		alert.ID,
		alert.Name,
		alert.Description,
		alert.Type,
		alert.Enabled,
		alert.UpdatedAt,
	)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return ErrAlertNotFound
	}

	return nil
}

// Delete removes an alert by ID.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM alerts WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return ErrAlertNotFound
	}

	return nil
}

// Ensure PostgresRepository implements Repository interface.
var _ Repository = (*PostgresRepository)(nil)
