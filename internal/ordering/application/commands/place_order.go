package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	catalogDomain "github.com/greenbasket/greenbasket/internal/catalog/domain"
	identityDomain "github.com/greenbasket/greenbasket/internal/identity/domain"
	"github.com/greenbasket/greenbasket/internal/ordering/domain"
	"github.com/greenbasket/greenbasket/internal/shared/application"
	sharedDomain "github.com/greenbasket/greenbasket/internal/shared/domain"
	"github.com/greenbasket/greenbasket/internal/shared/infrastructure/outbox"
)

// PlaceOrderItem is one requested line item.
type PlaceOrderItem struct {
	ProduceItemID uuid.UUID
	Quantity      float64
	Unit          string
}

// PlaceOrderCommand places a one-off order for a user.
type PlaceOrderCommand struct {
	UserID         uuid.UUID
	Items          []PlaceOrderItem
	AddressID      uuid.UUID
	PreferredDate  time.Time
	SubscriptionID *uuid.UUID
}

func (c PlaceOrderCommand) CommandName() string { return "ordering.place_order" }

// PlaceOrderHandler validates user, address and stock, prices the items and
// creates the order. Inventory is read-only here: stock is checked but
// never decremented, decrementing belongs to the inventory service.
type PlaceOrderHandler struct {
	users      identityDomain.Repository
	catalog    catalogDomain.Repository
	orders     domain.Repository
	uow        application.UnitOfWork
	outboxRepo outbox.Repository
	logger     *slog.Logger
	now        func() time.Time
}

func NewPlaceOrderHandler(
	users identityDomain.Repository,
	catalog catalogDomain.Repository,
	orders domain.Repository,
	uow application.UnitOfWork,
	outboxRepo outbox.Repository,
	logger *slog.Logger,
) *PlaceOrderHandler {
	return &PlaceOrderHandler{
		users:      users,
		catalog:    catalog,
		orders:     orders,
		uow:        uow,
		outboxRepo: outboxRepo,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (h *PlaceOrderHandler) Handle(ctx context.Context, cmd PlaceOrderCommand) (*domain.Order, error) {
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

	items, total, err := h.priceItems(ctx, cmd.Items)
	if err != nil {
		return nil, err
	}

	now := h.now()
	slot := sharedDomain.NewDeliverySlot(cmd.PreferredDate, now)

	order, err := domain.PlaceOrder(cmd.UserID, items, total, slot, cmd.AddressID, cmd.SubscriptionID)
	if err != nil {
		return nil, err
	}
	application.ApplyEventMetadata(order.DomainEvents(), application.NewEventMetadata(cmd.UserID))

	if err := persistOrder(ctx, h.uow, h.orders, h.outboxRepo, order); err != nil {
		return nil, err
	}

	h.logger.Info("order placed",
		slog.String("order_id", order.ID().String()),
		slog.String("user_id", cmd.UserID.String()),
		slog.Int64("total_amount", total.Amount()),
		slog.String("delivery_slot", string(slot.Kind())))
	return order, nil
}

// priceItems resolves each requested item against the catalog, failing on
// the first unknown or under-stocked item.
func (h *PlaceOrderHandler) priceItems(ctx context.Context, requested []PlaceOrderItem) ([]domain.OrderItem, sharedDomain.Money, error) {
	if len(requested) == 0 {
		return nil, sharedDomain.Money{}, sharedDomain.NewValidation("ORDER.NO_ITEMS", "order requires at least one item")
	}

	items := make([]domain.OrderItem, 0, len(requested))
	var total sharedDomain.Money
	for i, req := range requested {
		qty, err := sharedDomain.NewQuantity(req.Quantity, sharedDomain.Unit(req.Unit))
		if err != nil {
			return nil, sharedDomain.Money{}, sharedDomain.NewValidation("ORDER.INVALID_ITEM",
				fmt.Sprintf("invalid quantity for item %s", req.ProduceItemID)).WithCause(err)
		}

		produce, err := h.catalog.FindByID(ctx, req.ProduceItemID)
		if err != nil {
			return nil, sharedDomain.Money{}, sharedDomain.NewInternal("INVENTORY.LOOKUP_FAILED", "failed to look up produce item", err)
		}
		if produce == nil {
			return nil, sharedDomain.Money{}, sharedDomain.NewNotFound("INVENTORY.ITEM_NOT_FOUND",
				fmt.Sprintf("produce item %s not found", req.ProduceItemID))
		}
		if !produce.HasStock(qty) {
			return nil, sharedDomain.Money{}, sharedDomain.NewConflict("INVENTORY.INSUFFICIENT_STOCK",
				fmt.Sprintf("insufficient stock for %s", produce.Name())).
				WithDetail("produce_item_id", produce.ID().String()).
				WithDetail("requested", qty.Value()).
				WithDetail("available", produce.AvailableQuantity().Value())
		}

		linePrice, err := produce.LinePrice(qty)
		if err != nil {
			return nil, sharedDomain.Money{}, sharedDomain.NewInternal("ORDER.PRICING_FAILED", "failed to price order item", err)
		}
		item, err := domain.NewOrderItem(produce.ID(), produce.Name(), qty, linePrice)
		if err != nil {
			return nil, sharedDomain.Money{}, err
		}
		items = append(items, item)

		if i == 0 {
			total = linePrice
			continue
		}
		total, err = total.Add(linePrice)
		if err != nil {
			return nil, sharedDomain.Money{}, sharedDomain.NewValidation("ORDER.CURRENCY_MISMATCH",
				"order items must share one currency").WithCause(err)
		}
	}
	return items, total, nil
}
