// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"errors"

	"github.com/crickmate/coach/internal/domain"
)

// ErrUserNotFound is returned when no profile exists for a user id.
var ErrUserNotFound = errors.New("user not found")

// Repository defines the interface for persisting player profiles.
type Repository interface {
	// RegisterUser stores a validated profile and returns its new user id.
	RegisterUser(ctx context.Context, p *domain.Profile) (string, error)

	// GetUser retrieves a profile by user id, or ErrUserNotFound.
	GetUser(ctx context.Context, userID string) (*domain.Profile, error)

	// Ping verifies database connectivity and returns an error if the database is unreachable.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
