package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	sharedDomain "github.com/greenbasket/greenbasket/internal/shared/domain"
)

// SubscriptionStatus is the lifecycle state of a subscription.
type SubscriptionStatus string

const (
	SubscriptionStatusActive    SubscriptionStatus = "ACTIVE"
	SubscriptionStatusPaused    SubscriptionStatus = "PAUSED"
	SubscriptionStatusCancelled SubscriptionStatus = "CANCELLED"
	SubscriptionStatusExpired   SubscriptionStatus = "EXPIRED"
)

// IsTerminal reports whether no further transitions are allowed.
func (s SubscriptionStatus) IsTerminal() bool {
	return s == SubscriptionStatusCancelled || s == SubscriptionStatusExpired
}

// SubscriptionState is the replayable state of a subscription. PeriodEnd is
// always PeriodStart plus the billing cycle's day count; every event that
// changes the cycle or the period carries the recomputed dates.
type SubscriptionState struct {
	UserID          uuid.UUID
	Plan            SubscriptionPlan
	Cycle           BillingCycle
	Slot            sharedDomain.DeliverySlot
	AddressID       uuid.UUID
	Status          SubscriptionStatus
	PeriodStart     time.Time
	PeriodEnd       time.Time
	NextBillingDate time.Time
	PauseHistory    []PauseRecord
	CancelReason    string
	ExpireReason    string
	LastOrderID     *uuid.UUID
}

func planToData(plan SubscriptionPlan) PlanData {
	items := make([]SubscriptionItemData, 0, len(plan.items))
	for _, item := range plan.items {
		items = append(items, SubscriptionItemData{
			ProduceItemID: item.produceItemID,
			Name:          item.name,
			QuantityValue: item.quantity.Value(),
			QuantityUnit:  string(item.quantity.Unit()),
		})
	}
	return PlanData{
		Name:        plan.name,
		Description: plan.description,
		PriceAmount: plan.price.Amount(),
		Currency:    plan.price.Currency(),
		Items:       items,
	}
}

func planFromData(data PlanData) (SubscriptionPlan, error) {
	price, err := sharedDomain.NewMoney(data.PriceAmount, data.Currency)
	if err != nil {
		return SubscriptionPlan{}, err
	}
	items := make([]SubscriptionItem, 0, len(data.Items))
	for _, d := range data.Items {
		qty, err := sharedDomain.NewQuantity(d.QuantityValue, sharedDomain.Unit(d.QuantityUnit))
		if err != nil {
			return SubscriptionPlan{}, err
		}
		item, err := NewSubscriptionItem(d.ProduceItemID, d.Name, qty)
		if err != nil {
			return SubscriptionPlan{}, err
		}
		items = append(items, item)
	}
	return NewSubscriptionPlan(data.Name, data.Description, price, items)
}

// reduceSubscription is the single state-transition function shared by live
// mutation and replay.
func reduceSubscription(state SubscriptionState, event sharedDomain.DomainEvent) (SubscriptionState, error) {
	switch e := event.(type) {
	case *SubscriptionCreated:
		plan, err := planFromData(e.Plan)
		if err != nil {
			return state, fmt.Errorf("invalid plan in creation event %s: %w", e.EventID(), err)
		}
		cycle := BillingCycle(e.BillingCycle)
		if !cycle.IsValid() {
			return state, fmt.Errorf("invalid billing cycle %q in creation event %s", e.BillingCycle, e.EventID())
		}
		return SubscriptionState{
			UserID:          e.UserID,
			Plan:            plan,
			Cycle:           cycle,
			Slot:            sharedDomain.RehydrateDeliverySlot(e.DeliveryDate, sharedDomain.SlotKind(e.SlotKind)),
			AddressID:       e.AddressID,
			Status:          SubscriptionStatusActive,
			PeriodStart:     e.PeriodStart,
			PeriodEnd:       e.PeriodEnd,
			NextBillingDate: e.NextBillingDate,
			PauseHistory:    make([]PauseRecord, 0),
		}, nil

	case *SubscriptionPaused:
		if state.Status != SubscriptionStatusActive {
			return state, invalidSubscriptionTransition(state.Status, SubscriptionStatusPaused)
		}
		state.PauseHistory = append(clonePauses(state.PauseHistory), PauseRecord{
			StartDate: e.PausedAt,
			EndDate:   e.ResumeDate,
			Reason:    e.Reason,
		})
		state.Status = SubscriptionStatusPaused
		return state, nil

	case *SubscriptionResumed:
		if state.Status != SubscriptionStatusPaused {
			return state, invalidSubscriptionTransition(state.Status, SubscriptionStatusActive)
		}
		pauses := clonePauses(state.PauseHistory)
		if n := len(pauses); n > 0 && pauses[n-1].IsOpen() {
			end := e.ResumedAt
			pauses[n-1].EndDate = &end
		}
		state.PauseHistory = pauses
		state.Status = SubscriptionStatusActive
		return state, nil

	case *SubscriptionCancelled:
		if state.Status.IsTerminal() {
			return state, invalidSubscriptionTransition(state.Status, SubscriptionStatusCancelled)
		}
		state.CancelReason = e.Reason
		state.Status = SubscriptionStatusCancelled
		return state, nil

	case *SubscriptionExpired:
		if state.Status.IsTerminal() {
			return state, invalidSubscriptionTransition(state.Status, SubscriptionStatusExpired)
		}
		state.ExpireReason = e.Reason
		state.Status = SubscriptionStatusExpired
		return state, nil

	case *SubscriptionModified:
		if state.Status.IsTerminal() {
			return state, sharedDomain.NewConflict("SUBSCRIPTION.INVALID_TRANSITION",
				fmt.Sprintf("cannot modify a %s subscription", state.Status))
		}
		return applyModification(state, e)

	case *SubscriptionRenewed:
		if state.Status.IsTerminal() {
			return state, sharedDomain.NewConflict("SUBSCRIPTION.INVALID_TRANSITION",
				fmt.Sprintf("cannot renew a %s subscription", state.Status))
		}
		state.PeriodStart = e.PeriodStart
		state.PeriodEnd = e.PeriodEnd
		state.NextBillingDate = e.NextBillingDate
		return state, nil

	case *OrderGeneratedFromSubscription:
		if state.Status != SubscriptionStatusActive {
			return state, sharedDomain.NewConflict("SUBSCRIPTION.NOT_ACTIVE",
				fmt.Sprintf("cannot generate an order for a %s subscription", state.Status))
		}
		orderID := e.OrderID
		state.LastOrderID = &orderID
		return state, nil

	default:
		return state, fmt.Errorf("unexpected event %T in subscription stream", event)
	}
}

func applyModification(state SubscriptionState, e *SubscriptionModified) (SubscriptionState, error) {
	switch e.Kind {
	case ModificationPlan:
		var data PlanData
		if err := json.Unmarshal(e.NewValue, &data); err != nil {
			return state, fmt.Errorf("malformed plan in modification event %s: %w", e.EventID(), err)
		}
		plan, err := planFromData(data)
		if err != nil {
			return state, fmt.Errorf("invalid plan in modification event %s: %w", e.EventID(), err)
		}
		state.Plan = plan
		return state, nil

	case ModificationBillingCycle:
		var cycle BillingCycle
		if err := json.Unmarshal(e.NewValue, &cycle); err != nil {
			return state, fmt.Errorf("malformed billing cycle in modification event %s: %w", e.EventID(), err)
		}
		if !cycle.IsValid() {
			return state, fmt.Errorf("invalid billing cycle %q in modification event %s", cycle, e.EventID())
		}
		if e.PeriodEnd == nil || e.NextBillingDate == nil {
			return state, fmt.Errorf("billing cycle modification event %s is missing recomputed dates", e.EventID())
		}
		state.Cycle = cycle
		state.PeriodEnd = *e.PeriodEnd
		state.NextBillingDate = *e.NextBillingDate
		return state, nil

	case ModificationDeliverySlot:
		var data SlotData
		if err := json.Unmarshal(e.NewValue, &data); err != nil {
			return state, fmt.Errorf("malformed delivery slot in modification event %s: %w", e.EventID(), err)
		}
		state.Slot = sharedDomain.RehydrateDeliverySlot(data.Date, sharedDomain.SlotKind(data.Kind))
		return state, nil

	default:
		return state, fmt.Errorf("unknown modification kind %q in event %s", e.Kind, e.EventID())
	}
}

func invalidSubscriptionTransition(from, to SubscriptionStatus) error {
	return sharedDomain.NewConflict("SUBSCRIPTION.INVALID_TRANSITION",
		fmt.Sprintf("cannot transition subscription from %s to %s", from, to))
}

func clonePauses(pauses []PauseRecord) []PauseRecord {
	return append([]PauseRecord(nil), pauses...)
}

// Subscription is the recurring-delivery aggregate root.
type Subscription struct {
	sharedDomain.BaseAggregateRoot
	state SubscriptionState
}

// NewSubscription creates an active subscription. The first billing period
// starts at creation; the next billing date falls on the period end.
func NewSubscription(
	userID uuid.UUID,
	plan SubscriptionPlan,
	cycle BillingCycle,
	slot sharedDomain.DeliverySlot,
	addressID uuid.UUID,
	now time.Time,
) (*Subscription, error) {
	if userID == uuid.Nil {
		return nil, sharedDomain.NewValidation("SUBSCRIPTION.INVALID_USER", "subscription requires a user id")
	}
	if !cycle.IsValid() {
		return nil, sharedDomain.NewValidation("SUBSCRIPTION.INVALID_CYCLE",
			fmt.Sprintf("unknown billing cycle %q", cycle))
	}
	if addressID == uuid.Nil {
		return nil, sharedDomain.NewValidation("SUBSCRIPTION.INVALID_ADDRESS", "subscription requires a delivery address id")
	}

	periodStart := now.UTC()
	periodEnd := cycle.NextDate(periodStart)

	sub := &Subscription{BaseAggregateRoot: sharedDomain.NewBaseAggregateRoot()}
	event := NewSubscriptionCreated(sub.ID(), sub.Version()+1, userID, planToData(plan), cycle,
		slot, addressID, periodStart, periodEnd, periodEnd)
	if err := sub.raise(event); err != nil {
		return nil, err
	}
	return sub, nil
}

// RehydrateSubscription rebuilds a subscription from its ordered event
// history. The stream must start with the creation event and have
// contiguous versions.
func RehydrateSubscription(events []sharedDomain.DomainEvent) (*Subscription, error) {
	if len(events) == 0 {
		return nil, sharedDomain.NewInternal("SUBSCRIPTION.EMPTY_HISTORY", "cannot rehydrate subscription from empty event history", nil)
	}
	first, ok := events[0].(*SubscriptionCreated)
	if !ok {
		return nil, sharedDomain.NewInternal("SUBSCRIPTION.CORRUPT_HISTORY",
			fmt.Sprintf("subscription history must start with %s, got %s", EventTypeSubscriptionCreated, events[0].RoutingKey()), nil)
	}

	var state SubscriptionState
	for i, event := range events {
		if event.Version() != i+1 {
			return nil, sharedDomain.NewInternal("SUBSCRIPTION.CORRUPT_HISTORY",
				fmt.Sprintf("subscription %s history has version %d at position %d", first.AggregateID(), event.Version(), i), nil)
		}
		next, err := reduceSubscription(state, event)
		if err != nil {
			return nil, sharedDomain.NewInternal("SUBSCRIPTION.CORRUPT_HISTORY", "subscription history does not replay", err)
		}
		state = next
	}

	last := events[len(events)-1]
	entity := sharedDomain.RehydrateBaseEntity(first.AggregateID(), first.OccurredAt(), last.OccurredAt())
	return &Subscription{
		BaseAggregateRoot: sharedDomain.RehydrateBaseAggregateRoot(entity, last.Version()),
		state:             state,
	}, nil
}

func (s *Subscription) raise(event sharedDomain.DomainEvent) error {
	next, err := reduceSubscription(s.state, event)
	if err != nil {
		return err
	}
	s.state = next
	s.AddDomainEvent(event)
	s.IncrementVersion()
	s.Touch()
	return nil
}

// Pause suspends an active subscription. A planned resume date closes the
// pause record up front; without one the pause stays open until Resume.
func (s *Subscription) Pause(reason string, resumeDate *time.Time, now time.Time) error {
	return s.raise(NewSubscriptionPaused(s.ID(), s.Version()+1, reason, now.UTC(), resumeDate))
}

// Resume reactivates a paused subscription, closing the open pause record.
func (s *Subscription) Resume(now time.Time) error {
	return s.raise(NewSubscriptionResumed(s.ID(), s.Version()+1, now.UTC()))
}

// Cancel permanently ends the subscription.
func (s *Subscription) Cancel(reason string) error {
	return s.raise(NewSubscriptionCancelled(s.ID(), s.Version()+1, reason))
}

// Expire permanently ends the subscription without customer intent.
func (s *Subscription) Expire(reason string) error {
	return s.raise(NewSubscriptionExpired(s.ID(), s.Version()+1, reason))
}

// ModifyPlan replaces the plan, keeping the old one in the event for audit.
func (s *Subscription) ModifyPlan(newPlan SubscriptionPlan) error {
	oldValue, err := json.Marshal(planToData(s.state.Plan))
	if err != nil {
		return err
	}
	newValue, err := json.Marshal(planToData(newPlan))
	if err != nil {
		return err
	}
	return s.raise(NewSubscriptionModified(s.ID(), s.Version()+1, ModificationPlan, oldValue, newValue))
}

// ModifyBillingCycle switches the cycle and recomputes the period end and
// next billing date from the unchanged period start.
func (s *Subscription) ModifyBillingCycle(newCycle BillingCycle) error {
	if !newCycle.IsValid() {
		return sharedDomain.NewValidation("SUBSCRIPTION.INVALID_CYCLE",
			fmt.Sprintf("unknown billing cycle %q", newCycle))
	}
	oldValue, err := json.Marshal(s.state.Cycle)
	if err != nil {
		return err
	}
	newValue, err := json.Marshal(newCycle)
	if err != nil {
		return err
	}

	event := NewSubscriptionModified(s.ID(), s.Version()+1, ModificationBillingCycle, oldValue, newValue)
	periodEnd := newCycle.NextDate(s.state.PeriodStart)
	event.PeriodEnd = &periodEnd
	event.NextBillingDate = &periodEnd
	return s.raise(event)
}

// ModifyDeliverySlot replaces the delivery slot.
func (s *Subscription) ModifyDeliverySlot(newSlot sharedDomain.DeliverySlot) error {
	oldValue, err := json.Marshal(SlotData{Date: s.state.Slot.Date(), Kind: string(s.state.Slot.Kind())})
	if err != nil {
		return err
	}
	newValue, err := json.Marshal(SlotData{Date: newSlot.Date(), Kind: string(newSlot.Kind())})
	if err != nil {
		return err
	}
	return s.raise(NewSubscriptionModified(s.ID(), s.Version()+1, ModificationDeliverySlot, oldValue, newValue))
}

// Renew rolls the billing period forward by one cycle.
func (s *Subscription) Renew() error {
	periodStart := s.state.PeriodEnd
	periodEnd := s.state.Cycle.NextDate(periodStart)
	return s.raise(NewSubscriptionRenewed(s.ID(), s.Version()+1, periodStart, periodEnd, periodEnd))
}

// GenerateOrder records that an order was created for the current period.
func (s *Subscription) GenerateOrder(orderID uuid.UUID) error {
	if orderID == uuid.Nil {
		return sharedDomain.NewValidation("SUBSCRIPTION.INVALID_ORDER", "order id is required")
	}
	return s.raise(NewOrderGeneratedFromSubscription(s.ID(), s.Version()+1, orderID, s.state.PeriodStart))
}

func (s *Subscription) UserID() uuid.UUID               { return s.state.UserID }
func (s *Subscription) Plan() SubscriptionPlan          { return s.state.Plan }
func (s *Subscription) Cycle() BillingCycle             { return s.state.Cycle }
func (s *Subscription) Slot() sharedDomain.DeliverySlot { return s.state.Slot }
func (s *Subscription) AddressID() uuid.UUID            { return s.state.AddressID }
func (s *Subscription) Status() SubscriptionStatus      { return s.state.Status }
func (s *Subscription) PeriodStart() time.Time          { return s.state.PeriodStart }
func (s *Subscription) PeriodEnd() time.Time            { return s.state.PeriodEnd }
func (s *Subscription) NextBillingDate() time.Time      { return s.state.NextBillingDate }
func (s *Subscription) CancelReason() string            { return s.state.CancelReason }
func (s *Subscription) ExpireReason() string            { return s.state.ExpireReason }
func (s *Subscription) LastOrderID() *uuid.UUID         { return s.state.LastOrderID }

// PauseHistory returns a copy of the pause records in order.
func (s *Subscription) PauseHistory() []PauseRecord {
	return clonePauses(s.state.PauseHistory)
}

// IsActive reports whether orders may be generated.
func (s *Subscription) IsActive() bool {
	return s.state.Status == SubscriptionStatusActive
}

// ShouldAutoRenew reports whether the renewal worker may roll the period.
func (s *Subscription) ShouldAutoRenew() bool {
	return s.state.Status == SubscriptionStatusActive
}

// State returns a copy of the reduced state, used for snapshots.
func (s *Subscription) State() SubscriptionState {
	state := s.state
	state.PauseHistory = clonePauses(s.state.PauseHistory)
	return state
}
