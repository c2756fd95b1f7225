package domain

import (
	"time"

	"github.com/google/uuid"

	sharedDomain "github.com/greenbasket/greenbasket/internal/shared/domain"
)

// BillingCycle determines the length of a billing period.
type BillingCycle string

const (
	BillingCycleWeekly   BillingCycle = "weekly"
	BillingCycleBiweekly BillingCycle = "biweekly"
	BillingCycleMonthly  BillingCycle = "monthly"
)

// IsValid checks whether the cycle is one of the supported cycles.
func (c BillingCycle) IsValid() bool {
	switch c {
	case BillingCycleWeekly, BillingCycleBiweekly, BillingCycleMonthly:
		return true
	default:
		return false
	}
}

// Days returns the fixed day count of one billing period.
func (c BillingCycle) Days() int {
	switch c {
	case BillingCycleWeekly:
		return 7
	case BillingCycleBiweekly:
		return 14
	case BillingCycleMonthly:
		return 30
	default:
		return 0
	}
}

// NextDate advances a date by one billing period.
func (c BillingCycle) NextDate(from time.Time) time.Time {
	return from.AddDate(0, 0, c.Days())
}

// SubscriptionItem is one planned recurring item. Pricing happens at order
// generation time against the catalog, so items carry no price.
type SubscriptionItem struct {
	produceItemID uuid.UUID
	name          string
	quantity      sharedDomain.Quantity
}

func NewSubscriptionItem(produceItemID uuid.UUID, name string, quantity sharedDomain.Quantity) (SubscriptionItem, error) {
	if produceItemID == uuid.Nil {
		return SubscriptionItem{}, sharedDomain.NewValidation("SUBSCRIPTION.INVALID_ITEM", "subscription item requires a produce item id")
	}
	if quantity.IsZero() {
		return SubscriptionItem{}, sharedDomain.NewValidation("SUBSCRIPTION.INVALID_ITEM", "subscription item quantity must be positive")
	}
	return SubscriptionItem{produceItemID: produceItemID, name: name, quantity: quantity}, nil
}

func (i SubscriptionItem) ProduceItemID() uuid.UUID        { return i.produceItemID }
func (i SubscriptionItem) Name() string                    { return i.name }
func (i SubscriptionItem) Quantity() sharedDomain.Quantity { return i.quantity }

// SubscriptionPlan describes what a subscription delivers and at what price.
type SubscriptionPlan struct {
	name        string
	description string
	price       sharedDomain.Money
	items       []SubscriptionItem
}

func NewSubscriptionPlan(name, description string, price sharedDomain.Money, items []SubscriptionItem) (SubscriptionPlan, error) {
	if name == "" {
		return SubscriptionPlan{}, sharedDomain.NewValidation("SUBSCRIPTION.INVALID_PLAN", "plan name is required")
	}
	if len(items) == 0 {
		return SubscriptionPlan{}, sharedDomain.NewValidation("SUBSCRIPTION.INVALID_PLAN", "plan requires at least one item")
	}
	return SubscriptionPlan{
		name:        name,
		description: description,
		price:       price,
		items:       append([]SubscriptionItem(nil), items...),
	}, nil
}

func (p SubscriptionPlan) Name() string              { return p.name }
func (p SubscriptionPlan) Description() string       { return p.description }
func (p SubscriptionPlan) Price() sharedDomain.Money { return p.price }
func (p SubscriptionPlan) Items() []SubscriptionItem {
	return append([]SubscriptionItem(nil), p.items...)
}

// PauseRecord is one entry in the pause history. EndDate is nil while the
// pause is open.
type PauseRecord struct {
	StartDate time.Time  `json:"start_date"`
	EndDate   *time.Time `json:"end_date,omitempty"`
	Reason    string     `json:"reason"`
}

// IsOpen reports whether the pause has not been closed yet.
func (p PauseRecord) IsOpen() bool { return p.EndDate == nil }
