package store

import (
	"context"
	"errors"

	"github.com/brightpay/console/internal/console/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite today,
// postgres later) implement it. Sub-repositories keep concerns tidy and let
// tests fake one collection at a time.
type Store interface {
	Users() Users

	ApplyMigrations() error

	// Ping verifies the backing database is reachable.
	Ping(ctx context.Context) error

	// Close releases any underlying resources.
	Close() error
}

// UserPatch carries the mutable fields of a user update. Nil fields are left
// untouched. Email values must already be normalized by the caller.
type UserPatch struct {
	Email        *string
	Name         *string
	PasswordHash *string
	Role         *string
	Status       *string
}

type Users interface {
	// GetUserByID returns a user by id.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail returns a user by its canonical (lowercase) email.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// CreateUser inserts a new user (id is provided by the app via ULID).
	// A duplicate email surfaces as ErrAlreadyExists; the unique index is
	// the final arbiter under concurrent registration.
	CreateUser(ctx context.Context, u domain.User) error

	// UpdateUser applies patch and bumps updated_at.
	UpdateUser(ctx context.Context, id string, patch UserPatch) error

	// DeleteUser removes the record. Outstanding tokens for the user die
	// with it because verification re-checks existence.
	DeleteUser(ctx context.Context, id string) error

	// ListUsers returns all users ordered by creation time.
	ListUsers(ctx context.Context) ([]domain.User, error)
}
