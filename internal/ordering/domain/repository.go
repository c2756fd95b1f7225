package domain

import (
	"context"
	"time"

	"github.com/google/uuid"

	sharedDomain "github.com/greenbasket/greenbasket/internal/shared/domain"
)

// ErrOrderNotFound is returned when no event stream exists for an order id.
var ErrOrderNotFound = sharedDomain.NewNotFound("ORDER.NOT_FOUND", "order not found")

// OrderSummary is the denormalized read-model row backing list queries.
type OrderSummary struct {
	ID           uuid.UUID
	UserID       uuid.UUID
	Status       OrderStatus
	TotalAmount  int64
	Currency     string
	DeliveryDate time.Time
	SlotKind     string
	AddressID    uuid.UUID
	ItemCount    int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Repository persists orders as event streams. Save appends the uncommitted
// events and refreshes snapshot and read model atomically; the buffer stays
// on the aggregate so the caller can retry a rolled-back save, and clears
// it once the surrounding transaction commits. FindByID rehydrates from the
// full event history. List queries are served from the read model.
type Repository interface {
	Save(ctx context.Context, order *Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)
	FindByUserID(ctx context.Context, userID uuid.UUID) ([]OrderSummary, error)
	FindByStatus(ctx context.Context, status OrderStatus) ([]OrderSummary, error)
}
