package domain

import (
	"context"

	"github.com/google/uuid"
)

// Repository provides read access to the produce catalog.
// FindByID returns (nil, nil) when the item does not exist.
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*ProduceItem, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*ProduceItem, error)
}
