// Package store provides database access methods for all ThumbForge
// entities. Each store struct wraps a *sql.DB and exposes typed query methods.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"thumbforge/internal/models"
)

// UserStore handles all user-related database operations.
type UserStore struct {
	db *sql.DB
}

// NewUserStore creates a new UserStore with the given database connection.
func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

// FindByExternalID retrieves a user by the identity provider's subject id.
// Returns nil if not found.
func (s *UserStore) FindByExternalID(ctx context.Context, externalID string) (*models.User, error) {
	u := &models.User{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, external_id, email, created_at, updated_at
		FROM users WHERE external_id = $1
	`, externalID).Scan(&u.ID, &u.ExternalID, &u.Email, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find user by external id: %w", err)
	}
	return u, nil
}

// Ensure returns the user for the given external identity id, creating the
// row if it does not exist yet. Creation is keyed on the unique external id,
// so concurrent first requests from the same identity resolve to one row.
// The row is never mutated after creation.
func (s *UserStore) Ensure(ctx context.Context, externalID string, email string) (*models.User, error) {
	var emailVal *string
	if email != "" {
		emailVal = &email
	}

	u := &models.User{}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO users (external_id, email)
		VALUES ($1, $2)
		ON CONFLICT (external_id) DO NOTHING
		RETURNING id, external_id, email, created_at, updated_at
	`, externalID, emailVal).Scan(&u.ID, &u.ExternalID, &u.Email, &u.CreatedAt, &u.UpdatedAt)
	if err == nil {
		return u, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("create user: %w", err)
	}

	// Conflict path: the row already existed.
	existing, err := s.FindByExternalID(ctx, externalID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, fmt.Errorf("ensure user %q: row vanished after conflict", externalID)
	}
	return existing, nil
}
