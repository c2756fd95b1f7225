package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	identityDomain "github.com/greenbasket/greenbasket/internal/identity/domain"
	"github.com/greenbasket/greenbasket/internal/shared/application"
	sharedDomain "github.com/greenbasket/greenbasket/internal/shared/domain"
	"github.com/greenbasket/greenbasket/internal/shared/infrastructure/outbox"
	"github.com/greenbasket/greenbasket/internal/subscriptions/domain"
)

// CreateSubscriptionItem is one planned recurring item.
type CreateSubscriptionItem struct {
	ProduceItemID uuid.UUID
	Name          string
	Quantity      float64
	Unit          string
}

// CreateSubscriptionCommand starts a recurring delivery for a user.
type CreateSubscriptionCommand struct {
	UserID          uuid.UUID
	PlanName        string
	PlanDescription string
	PriceAmount     int64
	Currency        string
	Items           []CreateSubscriptionItem
	BillingCycle    string
	AddressID       uuid.UUID
	PreferredDate   time.Time
}

func (c CreateSubscriptionCommand) CommandName() string { return "subscriptions.create_subscription" }

type CreateSubscriptionHandler struct {
	users      identityDomain.Repository
	subs       domain.Repository
	uow        application.UnitOfWork
	outboxRepo outbox.Repository
	logger     *slog.Logger
	now        func() time.Time
}

func NewCreateSubscriptionHandler(
	users identityDomain.Repository,
	subs domain.Repository,
	uow application.UnitOfWork,
	outboxRepo outbox.Repository,
	logger *slog.Logger,
) *CreateSubscriptionHandler {
	return &CreateSubscriptionHandler{
		users:      users,
		subs:       subs,
		uow:        uow,
		outboxRepo: outboxRepo,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (h *CreateSubscriptionHandler) Handle(ctx context.Context, cmd CreateSubscriptionCommand) (*domain.Subscription, error) {
	user, err := h.users.FindByID(ctx, cmd.UserID)
	if err != nil {
		return nil, sharedDomain.NewInternal("USER.LOOKUP_FAILED", "failed to look up user", err)
	}
	if user == nil {
		return nil, sharedDomain.NewNotFound("USER.NOT_FOUND", "user not found")
	}
	if !user.HasAddress(cmd.AddressID) {
		return nil, sharedDomain.NewNotFound("ADDRESS.NOT_FOUND", "delivery address does not belong to user")
	}

	price, err := sharedDomain.NewMoney(cmd.PriceAmount, cmd.Currency)
	if err != nil {
		return nil, sharedDomain.NewValidation("SUBSCRIPTION.INVALID_PLAN", "invalid plan price").WithCause(err)
	}
	items := make([]domain.SubscriptionItem, 0, len(cmd.Items))
	for _, req := range cmd.Items {
		qty, err := sharedDomain.NewQuantity(req.Quantity, sharedDomain.Unit(req.Unit))
		if err != nil {
			return nil, sharedDomain.NewValidation("SUBSCRIPTION.INVALID_ITEM",
				fmt.Sprintf("invalid quantity for item %s", req.ProduceItemID)).WithCause(err)
		}
		item, err := domain.NewSubscriptionItem(req.ProduceItemID, req.Name, qty)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	plan, err := domain.NewSubscriptionPlan(cmd.PlanName, cmd.PlanDescription, price, items)
	if err != nil {
		return nil, err
	}

	now := h.now()
	slot := sharedDomain.NewDeliverySlot(cmd.PreferredDate, now)
	sub, err := domain.NewSubscription(cmd.UserID, plan, domain.BillingCycle(cmd.BillingCycle), slot, cmd.AddressID, now)
	if err != nil {
		return nil, err
	}
	application.ApplyEventMetadata(sub.DomainEvents(), application.NewEventMetadata(cmd.UserID))

	if err := persistSubscription(ctx, h.uow, h.subs, h.outboxRepo, sub); err != nil {
		return nil, err
	}

	h.logger.Info("subscription created",
		slog.String("subscription_id", sub.ID().String()),
		slog.String("user_id", cmd.UserID.String()),
		slog.String("billing_cycle", cmd.BillingCycle))
	return sub, nil
}
