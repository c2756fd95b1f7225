package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	sharedDomain "github.com/greenbasket/greenbasket/internal/shared/domain"
)

const AggregateTypeSubscription = "Subscription"

// Routing keys double as the event type tags stored in the event log.
const (
	EventTypeSubscriptionCreated   = "subscriptions.subscription.created"
	EventTypeSubscriptionPaused    = "subscriptions.subscription.paused"
	EventTypeSubscriptionResumed   = "subscriptions.subscription.resumed"
	EventTypeSubscriptionCancelled = "subscriptions.subscription.cancelled"
	EventTypeSubscriptionModified  = "subscriptions.subscription.modified"
	EventTypeSubscriptionRenewed   = "subscriptions.subscription.renewed"
	EventTypeSubscriptionExpired   = "subscriptions.subscription.expired"
	EventTypeOrderGenerated        = "subscriptions.subscription.order_generated"
)

// Modification kinds carried by SubscriptionModified.
const (
	ModificationPlan         = "plan"
	ModificationBillingCycle = "billing_cycle"
	ModificationDeliverySlot = "delivery_slot"
)

// SubscriptionItemData is the serialized form of a planned item.
type SubscriptionItemData struct {
	ProduceItemID uuid.UUID `json:"produce_item_id"`
	Name          string    `json:"name"`
	QuantityValue float64   `json:"quantity_value"`
	QuantityUnit  string    `json:"quantity_unit"`
}

// PlanData is the serialized form of a subscription plan.
type PlanData struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	PriceAmount int64                  `json:"price_amount"`
	Currency    string                 `json:"currency"`
	Items       []SubscriptionItemData `json:"items"`
}

// SlotData is the serialized form of a delivery slot.
type SlotData struct {
	Date time.Time `json:"date"`
	Kind string    `json:"kind"`
}

// SubscriptionCreated carries a full snapshot of the subscription so the
// stream replays without external lookups.
type SubscriptionCreated struct {
	sharedDomain.BaseEvent
	UserID          uuid.UUID `json:"user_id"`
	Plan            PlanData  `json:"plan"`
	BillingCycle    string    `json:"billing_cycle"`
	DeliveryDate    time.Time `json:"delivery_date"`
	SlotKind        string    `json:"slot_kind"`
	AddressID       uuid.UUID `json:"address_id"`
	PeriodStart     time.Time `json:"period_start"`
	PeriodEnd       time.Time `json:"period_end"`
	NextBillingDate time.Time `json:"next_billing_date"`
}

func NewSubscriptionCreated(
	subscriptionID uuid.UUID,
	version int,
	userID uuid.UUID,
	plan PlanData,
	cycle BillingCycle,
	slot sharedDomain.DeliverySlot,
	addressID uuid.UUID,
	periodStart, periodEnd, nextBillingDate time.Time,
) *SubscriptionCreated {
	return &SubscriptionCreated{
		BaseEvent:       sharedDomain.NewBaseEvent(subscriptionID, AggregateTypeSubscription, EventTypeSubscriptionCreated, version),
		UserID:          userID,
		Plan:            plan,
		BillingCycle:    string(cycle),
		DeliveryDate:    slot.Date(),
		SlotKind:        string(slot.Kind()),
		AddressID:       addressID,
		PeriodStart:     periodStart,
		PeriodEnd:       periodEnd,
		NextBillingDate: nextBillingDate,
	}
}

type SubscriptionPaused struct {
	sharedDomain.BaseEvent
	Reason     string     `json:"reason"`
	PausedAt   time.Time  `json:"paused_at"`
	ResumeDate *time.Time `json:"resume_date,omitempty"`
}

func NewSubscriptionPaused(subscriptionID uuid.UUID, version int, reason string, pausedAt time.Time, resumeDate *time.Time) *SubscriptionPaused {
	return &SubscriptionPaused{
		BaseEvent:  sharedDomain.NewBaseEvent(subscriptionID, AggregateTypeSubscription, EventTypeSubscriptionPaused, version),
		Reason:     reason,
		PausedAt:   pausedAt,
		ResumeDate: resumeDate,
	}
}

type SubscriptionResumed struct {
	sharedDomain.BaseEvent
	ResumedAt time.Time `json:"resumed_at"`
}

func NewSubscriptionResumed(subscriptionID uuid.UUID, version int, resumedAt time.Time) *SubscriptionResumed {
	return &SubscriptionResumed{
		BaseEvent: sharedDomain.NewBaseEvent(subscriptionID, AggregateTypeSubscription, EventTypeSubscriptionResumed, version),
		ResumedAt: resumedAt,
	}
}

type SubscriptionCancelled struct {
	sharedDomain.BaseEvent
	Reason string `json:"reason"`
}

func NewSubscriptionCancelled(subscriptionID uuid.UUID, version int, reason string) *SubscriptionCancelled {
	return &SubscriptionCancelled{
		BaseEvent: sharedDomain.NewBaseEvent(subscriptionID, AggregateTypeSubscription, EventTypeSubscriptionCancelled, version),
		Reason:    reason,
	}
}

// SubscriptionModified records one plan, billing cycle or delivery slot
// change. Old and new values are serialized for audit. Billing cycle
// changes additionally carry the recomputed dates so replay never has to
// recompute them.
type SubscriptionModified struct {
	sharedDomain.BaseEvent
	Kind            string          `json:"kind"`
	OldValue        json.RawMessage `json:"old_value"`
	NewValue        json.RawMessage `json:"new_value"`
	PeriodEnd       *time.Time      `json:"period_end,omitempty"`
	NextBillingDate *time.Time      `json:"next_billing_date,omitempty"`
}

func NewSubscriptionModified(subscriptionID uuid.UUID, version int, kind string, oldValue, newValue json.RawMessage) *SubscriptionModified {
	return &SubscriptionModified{
		BaseEvent: sharedDomain.NewBaseEvent(subscriptionID, AggregateTypeSubscription, EventTypeSubscriptionModified, version),
		Kind:      kind,
		OldValue:  oldValue,
		NewValue:  newValue,
	}
}

type SubscriptionRenewed struct {
	sharedDomain.BaseEvent
	PeriodStart     time.Time `json:"period_start"`
	PeriodEnd       time.Time `json:"period_end"`
	NextBillingDate time.Time `json:"next_billing_date"`
}

func NewSubscriptionRenewed(subscriptionID uuid.UUID, version int, periodStart, periodEnd, nextBillingDate time.Time) *SubscriptionRenewed {
	return &SubscriptionRenewed{
		BaseEvent:       sharedDomain.NewBaseEvent(subscriptionID, AggregateTypeSubscription, EventTypeSubscriptionRenewed, version),
		PeriodStart:     periodStart,
		PeriodEnd:       periodEnd,
		NextBillingDate: nextBillingDate,
	}
}

type SubscriptionExpired struct {
	sharedDomain.BaseEvent
	Reason string `json:"reason"`
}

func NewSubscriptionExpired(subscriptionID uuid.UUID, version int, reason string) *SubscriptionExpired {
	return &SubscriptionExpired{
		BaseEvent: sharedDomain.NewBaseEvent(subscriptionID, AggregateTypeSubscription, EventTypeSubscriptionExpired, version),
		Reason:    reason,
	}
}

// OrderGeneratedFromSubscription references an order created for one
// billing period. The subscription status does not change.
type OrderGeneratedFromSubscription struct {
	sharedDomain.BaseEvent
	OrderID     uuid.UUID `json:"order_id"`
	PeriodStart time.Time `json:"period_start"`
}

func NewOrderGeneratedFromSubscription(subscriptionID uuid.UUID, version int, orderID uuid.UUID, periodStart time.Time) *OrderGeneratedFromSubscription {
	return &OrderGeneratedFromSubscription{
		BaseEvent:   sharedDomain.NewBaseEvent(subscriptionID, AggregateTypeSubscription, EventTypeOrderGenerated, version),
		OrderID:     orderID,
		PeriodStart: periodStart,
	}
}
