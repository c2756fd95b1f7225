package domain

import (
	"time"

	"github.com/google/uuid"

	sharedDomain "github.com/greenbasket/greenbasket/internal/shared/domain"
)

const AggregateTypeOrder = "Order"

// Routing keys double as the event type tags stored in the event log.
const (
	EventTypeOrderPlaced         = "ordering.order.placed"
	EventTypeOrderConfirmed      = "ordering.order.confirmed"
	EventTypeOrderCancelled      = "ordering.order.cancelled"
	EventTypeOrderAssigned       = "ordering.order.assigned"
	EventTypeOrderOutForDelivery = "ordering.order.out_for_delivery"
	EventTypeOrderDelivered      = "ordering.order.delivered"
)

// OrderItemData is the serialized form of an order line item carried in
// event payloads and snapshots.
type OrderItemData struct {
	ProduceItemID   uuid.UUID `json:"produce_item_id"`
	Name            string    `json:"name"`
	QuantityValue   float64   `json:"quantity_value"`
	QuantityUnit    string    `json:"quantity_unit"`
	LinePriceAmount int64     `json:"line_price_amount"`
	Currency        string    `json:"currency"`
}

// OrderPlaced carries a full snapshot of the order at creation so the
// stream can be replayed without external lookups.
type OrderPlaced struct {
	sharedDomain.BaseEvent
	UserID         uuid.UUID       `json:"user_id"`
	Items          []OrderItemData `json:"items"`
	TotalAmount    int64           `json:"total_amount"`
	Currency       string          `json:"currency"`
	DeliveryDate   time.Time       `json:"delivery_date"`
	SlotKind       string          `json:"slot_kind"`
	AddressID      uuid.UUID       `json:"address_id"`
	SubscriptionID *uuid.UUID      `json:"subscription_id,omitempty"`
}

func NewOrderPlaced(orderID uuid.UUID, version int, userID uuid.UUID, items []OrderItemData, total sharedDomain.Money, slot sharedDomain.DeliverySlot, addressID uuid.UUID, subscriptionID *uuid.UUID) *OrderPlaced {
	return &OrderPlaced{
		BaseEvent:      sharedDomain.NewBaseEvent(orderID, AggregateTypeOrder, EventTypeOrderPlaced, version),
		UserID:         userID,
		Items:          items,
		TotalAmount:    total.Amount(),
		Currency:       total.Currency(),
		DeliveryDate:   slot.Date(),
		SlotKind:       string(slot.Kind()),
		AddressID:      addressID,
		SubscriptionID: subscriptionID,
	}
}

type OrderConfirmed struct {
	sharedDomain.BaseEvent
	ConfirmedBy uuid.UUID `json:"confirmed_by"`
}

func NewOrderConfirmed(orderID uuid.UUID, version int, confirmedBy uuid.UUID) *OrderConfirmed {
	return &OrderConfirmed{
		BaseEvent:   sharedDomain.NewBaseEvent(orderID, AggregateTypeOrder, EventTypeOrderConfirmed, version),
		ConfirmedBy: confirmedBy,
	}
}

type OrderCancelled struct {
	sharedDomain.BaseEvent
	Reason      string    `json:"reason"`
	CancelledBy uuid.UUID `json:"cancelled_by"`
}

func NewOrderCancelled(orderID uuid.UUID, version int, reason string, cancelledBy uuid.UUID) *OrderCancelled {
	return &OrderCancelled{
		BaseEvent:   sharedDomain.NewBaseEvent(orderID, AggregateTypeOrder, EventTypeOrderCancelled, version),
		Reason:      reason,
		CancelledBy: cancelledBy,
	}
}

type OrderAssigned struct {
	sharedDomain.BaseEvent
	RiderID uuid.UUID `json:"rider_id"`
}

func NewOrderAssigned(orderID uuid.UUID, version int, riderID uuid.UUID) *OrderAssigned {
	return &OrderAssigned{
		BaseEvent: sharedDomain.NewBaseEvent(orderID, AggregateTypeOrder, EventTypeOrderAssigned, version),
		RiderID:   riderID,
	}
}

type OrderOutForDelivery struct {
	sharedDomain.BaseEvent
	RiderID uuid.UUID `json:"rider_id"`
}

func NewOrderOutForDelivery(orderID uuid.UUID, version int, riderID uuid.UUID) *OrderOutForDelivery {
	return &OrderOutForDelivery{
		BaseEvent: sharedDomain.NewBaseEvent(orderID, AggregateTypeOrder, EventTypeOrderOutForDelivery, version),
		RiderID:   riderID,
	}
}

type OrderDelivered struct {
	sharedDomain.BaseEvent
	DeliveryProof string `json:"delivery_proof,omitempty"`
}

func NewOrderDelivered(orderID uuid.UUID, version int, proof string) *OrderDelivered {
	return &OrderDelivered{
		BaseEvent:     sharedDomain.NewBaseEvent(orderID, AggregateTypeOrder, EventTypeOrderDelivered, version),
		DeliveryProof: proof,
	}
}
