package domain

import "time"

// SameDayCutoffHour is the local time-of-day after which same-day delivery
// is no longer offered.
const SameDayCutoffHour = 11

// SlotKind classifies a delivery slot relative to the moment the order or
// subscription was created.
type SlotKind string

const (
	SlotSameDay SlotKind = "same_day"
	SlotNextDay SlotKind = "next_day"
)

// DeliverySlot is a calendar delivery date plus its same-day/next-day
// classification. Immutable.
type DeliverySlot struct {
	date time.Time
	kind SlotKind
}

// NewDeliverySlot computes the slot for the preferred delivery date given
// the creation instant. Dates in the past, and same-day requests placed
// after the cutoff, are moved to the earliest deliverable date.
func NewDeliverySlot(preferred time.Time, now time.Time) DeliverySlot {
	earliest := truncateToDay(now)
	if now.Hour() >= SameDayCutoffHour {
		earliest = earliest.AddDate(0, 0, 1)
	}

	date := truncateToDay(preferred)
	if preferred.IsZero() || date.Before(earliest) {
		date = earliest
	}

	kind := SlotNextDay
	if date.Equal(truncateToDay(now)) {
		kind = SlotSameDay
	}

	return DeliverySlot{date: date, kind: kind}
}

// RehydrateDeliverySlot recreates a slot from persisted state.
func RehydrateDeliverySlot(date time.Time, kind SlotKind) DeliverySlot {
	return DeliverySlot{date: truncateToDay(date), kind: kind}
}

func (s DeliverySlot) Date() time.Time { return s.date }
func (s DeliverySlot) Kind() SlotKind  { return s.kind }

// Equals checks value equality.
func (s DeliverySlot) Equals(other ValueObject) bool {
	o, ok := other.(DeliverySlot)
	if !ok {
		return false
	}
	return s.date.Equal(o.date) && s.kind == o.kind
}

func truncateToDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
