// Package store persists user records. Implementations come in pairs: an
// in-memory store for tests and development, and a PostgreSQL store for
// production.
//
// Error Contract:
// All store methods follow this pattern:
// - Return errors wrapping sentinel.ErrNotFound when the requested user does not exist
// - Return a *ConflictError (wrapping sentinel.ErrConflict) when a uniqueness
//   constraint rejects a write; Field names the conflicting column when known
// - Return wrapped errors with context for infrastructure failures
package store

import (
	"context"
	"fmt"

	"chrometour/internal/user"
	"chrometour/pkg/platform/sentinel"
)

// Store is the persistence port for user records. All lookups exclude
// soft-deleted rows.
type Store interface {
	// Create persists a new user and fills in ID and timestamps.
	Create(ctx context.Context, u *user.User) error

	FindByUsername(ctx context.Context, username string) (*user.User, error)
	FindByEmail(ctx context.Context, email string) (*user.User, error)
	FindByPhone(ctx context.Context, phone string) (*user.User, error)

	// FindByEmailOrPhone matches the identifier against either contact column.
	FindByEmailOrPhone(ctx context.Context, identifier string) (*user.User, error)

	// Update saves mutations to an existing user.
	Update(ctx context.Context, u *user.User) error

	List(ctx context.Context) ([]*user.User, error)
}

// ConflictError reports a uniqueness violation. Field is "username", "email"
// or "phone_number" when the violated constraint is recognized, empty
// otherwise.
type ConflictError struct {
	Field string
}

func (e *ConflictError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("unique constraint violated: %v", sentinel.ErrConflict)
	}
	return fmt.Sprintf("%s already exists: %v", e.Field, sentinel.ErrConflict)
}

func (e *ConflictError) Unwrap() error {
	return sentinel.ErrConflict
}
