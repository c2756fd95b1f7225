package domain

import (
	"context"

	"github.com/google/uuid"
)

// Repository is the narrow user port consumed by command handlers.
// FindByID returns (nil, nil) when no user exists.
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
}
