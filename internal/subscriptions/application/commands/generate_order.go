package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	catalogDomain "github.com/greenbasket/greenbasket/internal/catalog/domain"
	orderingDomain "github.com/greenbasket/greenbasket/internal/ordering/domain"
	"github.com/greenbasket/greenbasket/internal/shared/application"
	sharedDomain "github.com/greenbasket/greenbasket/internal/shared/domain"
	"github.com/greenbasket/greenbasket/internal/shared/infrastructure/idempotency"
	"github.com/greenbasket/greenbasket/internal/shared/infrastructure/outbox"
	"github.com/greenbasket/greenbasket/internal/subscriptions/domain"
)

// idempotencyTTL bounds how long a billing period's generation claim lives.
// One cycle is at most 30 days; 40 covers retries past the period end.
const idempotencyTTL = 40 * 24 * time.Hour

// GenerateOrderCommand creates the delivery order for a subscription's
// current billing period.
type GenerateOrderCommand struct {
	SubscriptionID uuid.UUID
}

func (c GenerateOrderCommand) CommandName() string { return "subscriptions.generate_order" }

// GenerateOrderResult reports the created order and which planned items
// were dropped for lack of stock.
type GenerateOrderResult struct {
	Order        *orderingDomain.Order
	DroppedItems []uuid.UUID
}

// GenerateOrderHandler builds an order from the subscription's planned
// items. Out-of-stock items are dropped rather than failing the whole
// generation; the dropped ids are surfaced in the result. The order and the
// subscription persist in one transaction, and an idempotency claim keyed
// by subscription and billing period keeps retries from generating twice.
type GenerateOrderHandler struct {
	subs        domain.Repository
	orders      orderingDomain.Repository
	catalog     catalogDomain.Repository
	uow         application.UnitOfWork
	outboxRepo  outbox.Repository
	idempotency idempotency.Store
	logger      *slog.Logger
	now         func() time.Time
}

func NewGenerateOrderHandler(
	subs domain.Repository,
	orders orderingDomain.Repository,
	catalog catalogDomain.Repository,
	uow application.UnitOfWork,
	outboxRepo outbox.Repository,
	idempotencyStore idempotency.Store,
	logger *slog.Logger,
) *GenerateOrderHandler {
	return &GenerateOrderHandler{
		subs:        subs,
		orders:      orders,
		catalog:     catalog,
		uow:         uow,
		outboxRepo:  outboxRepo,
		idempotency: idempotencyStore,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func generationKey(subscriptionID uuid.UUID, periodStart time.Time) string {
	return fmt.Sprintf("subscription-order:%s:%s", subscriptionID, periodStart.Format("2006-01-02"))
}

func (h *GenerateOrderHandler) Handle(ctx context.Context, cmd GenerateOrderCommand) (*GenerateOrderResult, error) {
	sub, err := h.subs.FindByID(ctx, cmd.SubscriptionID)
	if err != nil {
		return nil, err
	}
	if !sub.IsActive() {
		return nil, sharedDomain.NewConflict("SUBSCRIPTION.NOT_ACTIVE",
			fmt.Sprintf("cannot generate an order for a %s subscription", sub.Status()))
	}

	key := generationKey(sub.ID(), sub.PeriodStart())
	claimed, err := h.idempotency.Acquire(ctx, key, idempotencyTTL)
	if err != nil {
		return nil, sharedDomain.NewInternal("SUBSCRIPTION.IDEMPOTENCY_FAILED", "failed to claim generation key", err)
	}
	if !claimed {
		return nil, sharedDomain.NewConflict("SUBSCRIPTION.ORDER_ALREADY_GENERATED",
			"an order for this billing period was already generated")
	}

	result, err := h.generate(ctx, sub)
	if err != nil {
		if releaseErr := h.idempotency.Release(ctx, key); releaseErr != nil {
			h.logger.Warn("failed to release generation key",
				slog.String("key", key),
				slog.String("error", releaseErr.Error()))
		}
		return nil, err
	}
	return result, nil
}

func (h *GenerateOrderHandler) generate(ctx context.Context, sub *domain.Subscription) (*GenerateOrderResult, error) {
	items, dropped, err := h.pickItems(ctx, sub)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, sharedDomain.NewConflict("SUBSCRIPTION.NO_ITEMS",
			"no subscription items are in stock").WithDetail("dropped", droppedStrings(dropped))
	}

	total := items[0].LinePrice()
	for _, item := range items[1:] {
		total, err = total.Add(item.LinePrice())
		if err != nil {
			return nil, sharedDomain.NewInternal("ORDER.PRICING_FAILED", "failed to total order items", err)
		}
	}

	now := h.now()
	slot := sharedDomain.NewDeliverySlot(sub.Slot().Date(), now)
	subID := sub.ID()
	order, err := orderingDomain.PlaceOrder(sub.UserID(), items, total, slot, sub.AddressID(), &subID)
	if err != nil {
		return nil, err
	}
	if err := sub.GenerateOrder(order.ID()); err != nil {
		return nil, err
	}

	metadata := application.NewEventMetadata(sub.UserID())
	application.ApplyEventMetadata(order.DomainEvents(), metadata)
	application.ApplyEventMetadata(sub.DomainEvents(), metadata)

	msgs, err := outbox.NewMessages(append(order.DomainEvents(), sub.DomainEvents()...))
	if err != nil {
		return nil, sharedDomain.NewInternal("SUBSCRIPTION.SERIALIZATION_FAILED", "failed to stage events for publication", err)
	}

	err = application.WithUnitOfWork(ctx, h.uow, func(txCtx context.Context) error {
		if err := h.orders.Save(txCtx, order); err != nil {
			return err
		}
		if err := h.subs.Save(txCtx, sub); err != nil {
			return err
		}
		return h.outboxRepo.SaveBatch(txCtx, msgs)
	})
	if err != nil {
		return nil, err
	}

	order.ClearDomainEvents()
	sub.ClearDomainEvents()

	h.logger.Info("order generated from subscription",
		slog.String("subscription_id", sub.ID().String()),
		slog.String("order_id", order.ID().String()),
		slog.Int("items", len(items)),
		slog.Int("dropped", len(dropped)))
	return &GenerateOrderResult{Order: order, DroppedItems: dropped}, nil
}

// pickItems prices the in-stock planned items and returns the produce ids
// of the ones dropped for missing stock or a missing catalog entry.
func (h *GenerateOrderHandler) pickItems(ctx context.Context, sub *domain.Subscription) ([]orderingDomain.OrderItem, []uuid.UUID, error) {
	planned := sub.Plan().Items()
	items := make([]orderingDomain.OrderItem, 0, len(planned))
	dropped := make([]uuid.UUID, 0)

	for _, want := range planned {
		produce, err := h.catalog.FindByID(ctx, want.ProduceItemID())
		if err != nil {
			return nil, nil, sharedDomain.NewInternal("INVENTORY.LOOKUP_FAILED", "failed to look up produce item", err)
		}
		if produce == nil || !produce.HasStock(want.Quantity()) {
			dropped = append(dropped, want.ProduceItemID())
			continue
		}

		linePrice, err := produce.LinePrice(want.Quantity())
		if err != nil {
			return nil, nil, sharedDomain.NewInternal("ORDER.PRICING_FAILED", "failed to price order item", err)
		}
		item, err := orderingDomain.NewOrderItem(produce.ID(), produce.Name(), want.Quantity(), linePrice)
		if err != nil {
			return nil, nil, err
		}
		items = append(items, item)
	}
	return items, dropped, nil
}

func droppedStrings(ids []uuid.UUID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	return out
}
