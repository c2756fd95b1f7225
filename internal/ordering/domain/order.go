package domain

import (
	"fmt"

	"github.com/google/uuid"

	sharedDomain "github.com/greenbasket/greenbasket/internal/shared/domain"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusPending        OrderStatus = "PENDING"
	OrderStatusConfirmed      OrderStatus = "CONFIRMED"
	OrderStatusAssigned       OrderStatus = "ASSIGNED"
	OrderStatusOutForDelivery OrderStatus = "OUT_FOR_DELIVERY"
	OrderStatusDelivered      OrderStatus = "DELIVERED"
	OrderStatusCancelled      OrderStatus = "CANCELLED"
)

// IsTerminal reports whether no further transitions are allowed.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// OrderItem is a priced line item. The line price is computed by the caller
// from the catalog unit price at placement time and frozen into the event.
type OrderItem struct {
	produceItemID uuid.UUID
	name          string
	quantity      sharedDomain.Quantity
	linePrice     sharedDomain.Money
}

func NewOrderItem(produceItemID uuid.UUID, name string, quantity sharedDomain.Quantity, linePrice sharedDomain.Money) (OrderItem, error) {
	if produceItemID == uuid.Nil {
		return OrderItem{}, sharedDomain.NewValidation("ORDER.INVALID_ITEM", "order item requires a produce item id")
	}
	if quantity.IsZero() {
		return OrderItem{}, sharedDomain.NewValidation("ORDER.INVALID_ITEM", "order item quantity must be positive")
	}
	return OrderItem{
		produceItemID: produceItemID,
		name:          name,
		quantity:      quantity,
		linePrice:     linePrice,
	}, nil
}

func (i OrderItem) ProduceItemID() uuid.UUID        { return i.produceItemID }
func (i OrderItem) Name() string                    { return i.name }
func (i OrderItem) Quantity() sharedDomain.Quantity { return i.quantity }
func (i OrderItem) LinePrice() sharedDomain.Money   { return i.linePrice }

func (i OrderItem) toData() OrderItemData {
	return OrderItemData{
		ProduceItemID:   i.produceItemID,
		Name:            i.name,
		QuantityValue:   i.quantity.Value(),
		QuantityUnit:    string(i.quantity.Unit()),
		LinePriceAmount: i.linePrice.Amount(),
		Currency:        i.linePrice.Currency(),
	}
}

func orderItemFromData(data OrderItemData) (OrderItem, error) {
	qty, err := sharedDomain.NewQuantity(data.QuantityValue, sharedDomain.Unit(data.QuantityUnit))
	if err != nil {
		return OrderItem{}, err
	}
	price, err := sharedDomain.NewMoney(data.LinePriceAmount, data.Currency)
	if err != nil {
		return OrderItem{}, err
	}
	return NewOrderItem(data.ProduceItemID, data.Name, qty, price)
}

// OrderState is the replayable state of an order. It holds no identity or
// event buffer, only what the reducer derives from the stream.
type OrderState struct {
	UserID         uuid.UUID
	Items          []OrderItem
	Total          sharedDomain.Money
	Slot           sharedDomain.DeliverySlot
	AddressID      uuid.UUID
	SubscriptionID *uuid.UUID
	Status         OrderStatus
	RiderID        *uuid.UUID
	CancelReason   string
	DeliveryProof  string
}

// reduceOrder is the single state-transition function. Live mutation and
// replay both go through it, so the two can never diverge.
func reduceOrder(state OrderState, event sharedDomain.DomainEvent) (OrderState, error) {
	switch e := event.(type) {
	case *OrderPlaced:
		items := make([]OrderItem, 0, len(e.Items))
		for _, data := range e.Items {
			item, err := orderItemFromData(data)
			if err != nil {
				return state, fmt.Errorf("invalid item in placement event %s: %w", e.EventID(), err)
			}
			items = append(items, item)
		}
		total, err := sharedDomain.NewMoney(e.TotalAmount, e.Currency)
		if err != nil {
			return state, fmt.Errorf("invalid total in placement event %s: %w", e.EventID(), err)
		}
		return OrderState{
			UserID:         e.UserID,
			Items:          items,
			Total:          total,
			Slot:           sharedDomain.RehydrateDeliverySlot(e.DeliveryDate, sharedDomain.SlotKind(e.SlotKind)),
			AddressID:      e.AddressID,
			SubscriptionID: e.SubscriptionID,
			Status:         OrderStatusPending,
		}, nil

	case *OrderConfirmed:
		if state.Status != OrderStatusPending {
			return state, invalidOrderTransition(state.Status, OrderStatusConfirmed)
		}
		state.Status = OrderStatusConfirmed
		return state, nil

	case *OrderAssigned:
		if state.Status != OrderStatusConfirmed {
			return state, invalidOrderTransition(state.Status, OrderStatusAssigned)
		}
		rider := e.RiderID
		state.RiderID = &rider
		state.Status = OrderStatusAssigned
		return state, nil

	case *OrderOutForDelivery:
		if state.Status != OrderStatusAssigned {
			return state, invalidOrderTransition(state.Status, OrderStatusOutForDelivery)
		}
		rider := e.RiderID
		state.RiderID = &rider
		state.Status = OrderStatusOutForDelivery
		return state, nil

	case *OrderDelivered:
		if state.Status != OrderStatusAssigned && state.Status != OrderStatusOutForDelivery {
			return state, invalidOrderTransition(state.Status, OrderStatusDelivered)
		}
		state.DeliveryProof = e.DeliveryProof
		state.Status = OrderStatusDelivered
		return state, nil

	case *OrderCancelled:
		if state.Status.IsTerminal() {
			return state, invalidOrderTransition(state.Status, OrderStatusCancelled)
		}
		state.CancelReason = e.Reason
		state.Status = OrderStatusCancelled
		return state, nil

	default:
		return state, fmt.Errorf("unexpected event %T in order stream", event)
	}
}

func invalidOrderTransition(from, to OrderStatus) error {
	return sharedDomain.NewConflict("ORDER.INVALID_TRANSITION",
		fmt.Sprintf("cannot transition order from %s to %s", from, to))
}

// Order is the order aggregate root. All mutation goes through raise, which
// folds the new event into the state via the reducer before buffering it.
type Order struct {
	sharedDomain.BaseAggregateRoot
	state OrderState
}

// PlaceOrder creates a new order in PENDING. Stock and address validation
// belong to the command handler; the aggregate checks only its own
// invariants.
func PlaceOrder(
	userID uuid.UUID,
	items []OrderItem,
	total sharedDomain.Money,
	slot sharedDomain.DeliverySlot,
	addressID uuid.UUID,
	subscriptionID *uuid.UUID,
) (*Order, error) {
	if userID == uuid.Nil {
		return nil, sharedDomain.NewValidation("ORDER.INVALID_USER", "order requires a user id")
	}
	if len(items) == 0 {
		return nil, sharedDomain.NewValidation("ORDER.NO_ITEMS", "order requires at least one item")
	}
	if addressID == uuid.Nil {
		return nil, sharedDomain.NewValidation("ORDER.INVALID_ADDRESS", "order requires a delivery address id")
	}

	sum, err := sumLinePrices(items)
	if err != nil {
		return nil, err
	}
	if !sum.Equals(total) {
		return nil, sharedDomain.NewValidation("ORDER.TOTAL_MISMATCH",
			fmt.Sprintf("order total %s does not match sum of line prices %s", total, sum))
	}

	order := &Order{BaseAggregateRoot: sharedDomain.NewBaseAggregateRoot()}

	data := make([]OrderItemData, 0, len(items))
	for _, item := range items {
		data = append(data, item.toData())
	}
	event := NewOrderPlaced(order.ID(), order.Version()+1, userID, data, total, slot, addressID, subscriptionID)
	if err := order.raise(event); err != nil {
		return nil, err
	}
	return order, nil
}

func sumLinePrices(items []OrderItem) (sharedDomain.Money, error) {
	sum, err := sharedDomain.ZeroMoney(items[0].linePrice.Currency())
	if err != nil {
		return sharedDomain.Money{}, err
	}
	for _, item := range items {
		next, err := sum.Add(item.linePrice)
		if err != nil {
			return sharedDomain.Money{}, sharedDomain.NewValidation("ORDER.CURRENCY_MISMATCH",
				"order items must share one currency").WithCause(err)
		}
		sum = next
	}
	return sum, nil
}

// RehydrateOrder rebuilds an order from its ordered event history. The
// stream must start with the placement event and have contiguous versions.
func RehydrateOrder(events []sharedDomain.DomainEvent) (*Order, error) {
	if len(events) == 0 {
		return nil, sharedDomain.NewInternal("ORDER.EMPTY_HISTORY", "cannot rehydrate order from empty event history", nil)
	}
	first, ok := events[0].(*OrderPlaced)
	if !ok {
		return nil, sharedDomain.NewInternal("ORDER.CORRUPT_HISTORY",
			fmt.Sprintf("order history must start with %s, got %s", EventTypeOrderPlaced, events[0].RoutingKey()), nil)
	}

	var state OrderState
	for i, event := range events {
		if event.Version() != i+1 {
			return nil, sharedDomain.NewInternal("ORDER.CORRUPT_HISTORY",
				fmt.Sprintf("order %s history has version %d at position %d", first.AggregateID(), event.Version(), i), nil)
		}
		next, err := reduceOrder(state, event)
		if err != nil {
			return nil, sharedDomain.NewInternal("ORDER.CORRUPT_HISTORY", "order history does not replay", err)
		}
		state = next
	}

	last := events[len(events)-1]
	entity := sharedDomain.RehydrateBaseEntity(first.AggregateID(), first.OccurredAt(), last.OccurredAt())
	return &Order{
		BaseAggregateRoot: sharedDomain.RehydrateBaseAggregateRoot(entity, last.Version()),
		state:             state,
	}, nil
}

// raise applies the event through the reducer and, on success, buffers it
// and advances the version. An event that does not apply is never buffered.
func (o *Order) raise(event sharedDomain.DomainEvent) error {
	next, err := reduceOrder(o.state, event)
	if err != nil {
		return err
	}
	o.state = next
	o.AddDomainEvent(event)
	o.IncrementVersion()
	o.Touch()
	return nil
}

// Confirm moves a PENDING order to CONFIRMED.
func (o *Order) Confirm(confirmedBy uuid.UUID) error {
	return o.raise(NewOrderConfirmed(o.ID(), o.Version()+1, confirmedBy))
}

// Cancel moves any non-terminal order to CANCELLED.
func (o *Order) Cancel(reason string, cancelledBy uuid.UUID) error {
	return o.raise(NewOrderCancelled(o.ID(), o.Version()+1, reason, cancelledBy))
}

// AssignRider moves a CONFIRMED order to ASSIGNED.
func (o *Order) AssignRider(riderID uuid.UUID) error {
	if riderID == uuid.Nil {
		return sharedDomain.NewValidation("ORDER.INVALID_RIDER", "rider id is required")
	}
	return o.raise(NewOrderAssigned(o.ID(), o.Version()+1, riderID))
}

// StartDelivery moves an ASSIGNED order to OUT_FOR_DELIVERY.
func (o *Order) StartDelivery() error {
	var rider uuid.UUID
	if o.state.RiderID != nil {
		rider = *o.state.RiderID
	}
	return o.raise(NewOrderOutForDelivery(o.ID(), o.Version()+1, rider))
}

// MarkDelivered moves an ASSIGNED or OUT_FOR_DELIVERY order to DELIVERED.
func (o *Order) MarkDelivered(proof string) error {
	return o.raise(NewOrderDelivered(o.ID(), o.Version()+1, proof))
}

func (o *Order) UserID() uuid.UUID               { return o.state.UserID }
func (o *Order) Items() []OrderItem              { return append([]OrderItem(nil), o.state.Items...) }
func (o *Order) Total() sharedDomain.Money       { return o.state.Total }
func (o *Order) Slot() sharedDomain.DeliverySlot { return o.state.Slot }
func (o *Order) AddressID() uuid.UUID            { return o.state.AddressID }
func (o *Order) SubscriptionID() *uuid.UUID      { return o.state.SubscriptionID }
func (o *Order) Status() OrderStatus             { return o.state.Status }
func (o *Order) RiderID() *uuid.UUID             { return o.state.RiderID }
func (o *Order) CancelReason() string            { return o.state.CancelReason }
func (o *Order) DeliveryProof() string           { return o.state.DeliveryProof }

// State returns a copy of the reduced state, used for snapshots.
func (o *Order) State() OrderState {
	state := o.state
	state.Items = append([]OrderItem(nil), o.state.Items...)
	return state
}
