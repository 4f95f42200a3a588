package apis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// uniqueViolation is the PostgreSQL error code for unique constraint violations.
const uniqueViolation = "23505"

// PostgresRepository is a PostgreSQL implementation of Repository.
// Endpoint groups are stored as a JSONB document on the apis row.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL API repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const selectAPIColumns = `
	SELECT
		id, name, version, description, state,
		context_path, endpoint_groups,
		owner_id, owner_display_name, owner_email,
		created_at, updated_at
	FROM apis
`

// FindAll retrieves every API ordered by ID.
func (r *PostgresRepository) FindAll(ctx context.Context) ([]*API, error) {
	rows, err := r.pool.Query(ctx, selectAPIColumns+` ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*API
	for rows.Next() {
		api, err := scanAPI(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, api)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// FindByID retrieves an API by ID.
func (r *PostgresRepository) FindByID(ctx context.Context, id string) (*API, error) {
	api, err := scanAPI(r.pool.QueryRow(ctx, selectAPIColumns+` WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAPINotFound
		}
		return nil, err
	}
	return api, nil
}

// Create stores a new API.
func (r *PostgresRepository) Create(ctx context.Context, api *API) error {
	query := `
		INSERT INTO apis (
			id, name, version, description, state,
			context_path, endpoint_groups,
			owner_id, owner_display_name, owner_email,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	groupsJSON, err := json.Marshal(api.Proxy.Groups)
	if err != nil {
		return fmt.Errorf("marshal endpoint groups: %w", err)
	}

	_, err = r.pool.Exec(ctx, query,
		api.ID,
		api.Name,
		api.Version,
		api.Description,
		string(api.State),
		api.Proxy.ContextPath,
		groupsJSON,
		api.PrimaryOwner.ID,
		api.PrimaryOwner.DisplayName,
		api.PrimaryOwner.Email,
		api.CreatedAt,
		api.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrAPIAlreadyExists
		}
		return err
	}
	return nil
}

// Update replaces an existing API.
func (r *PostgresRepository) Update(ctx context.Context, api *API) error {
	query := `
		UPDATE apis SET
			name = $2,
			version = $3,
			description = $4,
			state = $5,
			context_path = $6,
			endpoint_groups = $7,
			owner_id = $8,
			owner_display_name = $9,
			owner_email = $10,
			updated_at = $11
		WHERE id = $1
	`

	groupsJSON, err := json.Marshal(api.Proxy.Groups)
	if err != nil {
		return fmt.Errorf("marshal endpoint groups: %w", err)
	}

	result, err := r.pool.Exec(ctx, query,
		api.ID,
		api.Name,
		api.Version,
		api.Description,
		string(api.State),
		api.Proxy.ContextPath,
		groupsJSON,
		api.PrimaryOwner.ID,
		api.PrimaryOwner.DisplayName,
		api.PrimaryOwner.Email,
		api.UpdatedAt,
	)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return ErrAPINotFound
	}

	return nil
}

// Delete removes an API by ID.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM apis WHERE id = $1`, id)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return ErrAPINotFound
	}

	return nil
}

// scanAPI scans an API from a single row.
func scanAPI(row pgx.Row) (*API, error) {
	var (
		api        API
		state      string
		groupsJSON []byte
	)

	err := row.Scan(
		&api.ID,
		&api.Name,
		&api.Version,
		&api.Description,
		&state,
		&api.Proxy.ContextPath,
		&groupsJSON,
		&api.PrimaryOwner.ID,
		&api.PrimaryOwner.DisplayName,
		&api.PrimaryOwner.Email,
		&api.CreatedAt,
		&api.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	api.State = State(state)
	if len(groupsJSON) > 0 {
		if err := json.Unmarshal(groupsJSON, &api.Proxy.Groups); err != nil {
			return nil, fmt.Errorf("unmarshal endpoint groups: %w", err)
		}
	}

	return &api, nil
}

// Ensure PostgresRepository implements Repository interface.
var _ Repository = (*PostgresRepository)(nil)
