package queries

import (
	"context"
	"time"

	"github.com/google/uuid"

	sharedDomain "github.com/greenbasket/greenbasket/internal/shared/domain"
	"github.com/greenbasket/greenbasket/internal/subscriptions/domain"
)

// ListSubscriptionsHandler serves list queries from the denormalized read
// model.
type ListSubscriptionsHandler struct {
	subs domain.Repository
}

func NewListSubscriptionsHandler(subs domain.Repository) *ListSubscriptionsHandler {
	return &ListSubscriptionsHandler{subs: subs}
}

func (h *ListSubscriptionsHandler) ByUser(ctx context.Context, userID uuid.UUID) ([]domain.SubscriptionSummary, error) {
	return h.subs.FindByUserID(ctx, userID)
}

func (h *ListSubscriptionsHandler) Active(ctx context.Context) ([]domain.SubscriptionSummary, error) {
	return h.subs.FindActive(ctx)
}

func (h *ListSubscriptionsHandler) ByStatus(ctx context.Context, status string) ([]domain.SubscriptionSummary, error) {
	s := domain.SubscriptionStatus(status)
	switch s {
	case domain.SubscriptionStatusActive, domain.SubscriptionStatusPaused,
		domain.SubscriptionStatusCancelled, domain.SubscriptionStatusExpired:
	default:
		return nil, sharedDomain.NewValidation("SUBSCRIPTION.INVALID_STATUS", "unknown subscription status "+status)
	}
	return h.subs.FindByStatus(ctx, s)
}

func (h *ListSubscriptionsHandler) DueForRenewal(ctx context.Context, by time.Time) ([]domain.SubscriptionSummary, error) {
	return h.subs.FindByNextBillingDate(ctx, by)
}

// GetSubscriptionHandler rehydrates a single subscription from its event
// history.
type GetSubscriptionHandler struct {
	subs domain.Repository
}

func NewGetSubscriptionHandler(subs domain.Repository) *GetSubscriptionHandler {
	return &GetSubscriptionHandler{subs: subs}
}

func (h *GetSubscriptionHandler) ByID(ctx context.Context, id uuid.UUID) (*domain.Subscription, error) {
	return h.subs.FindByID(ctx, id)
}
