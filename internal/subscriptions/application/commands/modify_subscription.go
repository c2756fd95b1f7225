package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/greenbasket/greenbasket/internal/shared/application"
	sharedDomain "github.com/greenbasket/greenbasket/internal/shared/domain"
	"github.com/greenbasket/greenbasket/internal/shared/infrastructure/outbox"
	"github.com/greenbasket/greenbasket/internal/subscriptions/domain"
)

// ModifyPlanInput replaces the subscription plan.
type ModifyPlanInput struct {
	Name        string
	Description string
	PriceAmount int64
	Currency    string
	Items       []CreateSubscriptionItem
}

// ModifySubscriptionCommand changes one aspect of a subscription: its plan,
// billing cycle or delivery slot. Exactly one field must be set.
type ModifySubscriptionCommand struct {
	SubscriptionID uuid.UUID
	NewPlan        *ModifyPlanInput
	NewCycle       *string
	NewSlotDate    *time.Time
}

func (c ModifySubscriptionCommand) CommandName() string { return "subscriptions.modify_subscription" }

type ModifySubscriptionHandler struct {
	subs       domain.Repository
	uow        application.UnitOfWork
	outboxRepo outbox.Repository
	logger     *slog.Logger
	now        func() time.Time
}

func NewModifySubscriptionHandler(subs domain.Repository, uow application.UnitOfWork, outboxRepo outbox.Repository, logger *slog.Logger) *ModifySubscriptionHandler {
	return &ModifySubscriptionHandler{
		subs:       subs,
		uow:        uow,
		outboxRepo: outboxRepo,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (h *ModifySubscriptionHandler) Handle(ctx context.Context, cmd ModifySubscriptionCommand) error {
	set := 0
	for _, chosen := range []bool{cmd.NewPlan != nil, cmd.NewCycle != nil, cmd.NewSlotDate != nil} {
		if chosen {
			set++
		}
	}
	if set != 1 {
		return sharedDomain.NewValidation("SUBSCRIPTION.INVALID_MODIFICATION",
			"exactly one of plan, billing cycle or delivery slot must be given")
	}

	sub, err := h.subs.FindByID(ctx, cmd.SubscriptionID)
	if err != nil {
		return err
	}

	var kind string
	switch {
	case cmd.NewPlan != nil:
		kind = domain.ModificationPlan
		plan, err := h.buildPlan(*cmd.NewPlan)
		if err != nil {
			return err
		}
		if err := sub.ModifyPlan(plan); err != nil {
			return err
		}
	case cmd.NewCycle != nil:
		kind = domain.ModificationBillingCycle
		if err := sub.ModifyBillingCycle(domain.BillingCycle(*cmd.NewCycle)); err != nil {
			return err
		}
	default:
		kind = domain.ModificationDeliverySlot
		slot := sharedDomain.NewDeliverySlot(*cmd.NewSlotDate, h.now())
		if err := sub.ModifyDeliverySlot(slot); err != nil {
			return err
		}
	}
	application.ApplyEventMetadata(sub.DomainEvents(), application.NewEventMetadata(sub.UserID()))

	if err := persistSubscription(ctx, h.uow, h.subs, h.outboxRepo, sub); err != nil {
		return err
	}

	h.logger.Info("subscription modified",
		slog.String("subscription_id", cmd.SubscriptionID.String()),
		slog.String("kind", kind))
	return nil
}

func (h *ModifySubscriptionHandler) buildPlan(input ModifyPlanInput) (domain.SubscriptionPlan, error) {
	price, err := sharedDomain.NewMoney(input.PriceAmount, input.Currency)
	if err != nil {
		return domain.SubscriptionPlan{}, sharedDomain.NewValidation("SUBSCRIPTION.INVALID_PLAN", "invalid plan price").WithCause(err)
	}
	items := make([]domain.SubscriptionItem, 0, len(input.Items))
	for _, req := range input.Items {
		qty, err := sharedDomain.NewQuantity(req.Quantity, sharedDomain.Unit(req.Unit))
		if err != nil {
			return domain.SubscriptionPlan{}, sharedDomain.NewValidation("SUBSCRIPTION.INVALID_ITEM",
				fmt.Sprintf("invalid quantity for item %s", req.ProduceItemID)).WithCause(err)
		}
		item, err := domain.NewSubscriptionItem(req.ProduceItemID, req.Name, qty)
		if err != nil {
			return domain.SubscriptionPlan{}, err
		}
		items = append(items, item)
	}
	return domain.NewSubscriptionPlan(input.Name, input.Description, price, items)
}
