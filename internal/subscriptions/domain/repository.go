package domain

import (
	"context"
	"time"

	"github.com/google/uuid"

	sharedDomain "github.com/greenbasket/greenbasket/internal/shared/domain"
)

// ErrSubscriptionNotFound is returned when no event stream exists for a
// subscription id.
var ErrSubscriptionNotFound = sharedDomain.NewNotFound("SUBSCRIPTION.NOT_FOUND", "subscription not found")

// SubscriptionSummary is the denormalized read-model row backing list
// queries and the renewal worker's due-date scan.
type SubscriptionSummary struct {
	ID              uuid.UUID
	UserID          uuid.UUID
	Status          SubscriptionStatus
	PlanName        string
	BillingCycle    BillingCycle
	NextBillingDate time.Time
	PeriodStart     time.Time
	PeriodEnd       time.Time
	DeliveryDate    time.Time
	SlotKind        string
	AddressID       uuid.UUID
	ItemCount       int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Repository persists subscriptions as event streams. Save follows the
// same contract as the order repository: events, snapshot and read model
// commit atomically, and the uncommitted buffer stays on the aggregate
// until the caller clears it after commit. List queries are served from
// the read model.
type Repository interface {
	Save(ctx context.Context, sub *Subscription) error
	FindByID(ctx context.Context, id uuid.UUID) (*Subscription, error)
	FindByUserID(ctx context.Context, userID uuid.UUID) ([]SubscriptionSummary, error)
	FindActive(ctx context.Context) ([]SubscriptionSummary, error)
	FindByStatus(ctx context.Context, status SubscriptionStatus) ([]SubscriptionSummary, error)
	FindByNextBillingDate(ctx context.Context, date time.Time) ([]SubscriptionSummary, error)
}
