package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sharedDomain "github.com/greenbasket/greenbasket/internal/shared/domain"
)

var testNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func testPlan(t *testing.T) SubscriptionPlan {
	t.Helper()
	price, err := sharedDomain.NewMoney(1500, "EUR")
	require.NoError(t, err)
	qty, err := sharedDomain.NewQuantity(2, sharedDomain.UnitKilogram)
	require.NoError(t, err)
	item, err := NewSubscriptionItem(uuid.New(), "veggie box", qty)
	require.NoError(t, err)
	plan, err := NewSubscriptionPlan("Weekly Veggie Box", "seasonal vegetables", price, []SubscriptionItem{item})
	require.NoError(t, err)
	return plan
}

func activeSubscription(t *testing.T, cycle BillingCycle) *Subscription {
	t.Helper()
	slot := sharedDomain.NewDeliverySlot(testNow.AddDate(0, 0, 1), testNow)
	sub, err := NewSubscription(uuid.New(), testPlan(t), cycle, slot, uuid.New(), testNow)
	require.NoError(t, err)
	return sub
}

func TestNewSubscriptionPlan(t *testing.T) {
	price, err := sharedDomain.NewMoney(1000, "EUR")
	require.NoError(t, err)
	qty, err := sharedDomain.NewQuantity(1, sharedDomain.UnitPiece)
	require.NoError(t, err)
	item, err := NewSubscriptionItem(uuid.New(), "melon", qty)
	require.NoError(t, err)

	t.Run("requires a name", func(t *testing.T) {
		_, err := NewSubscriptionPlan("", "", price, []SubscriptionItem{item})
		assert.Equal(t, "SUBSCRIPTION.INVALID_PLAN", sharedDomain.CodeOf(err))
	})

	t.Run("requires items", func(t *testing.T) {
		_, err := NewSubscriptionPlan("Fruit Box", "", price, nil)
		assert.Equal(t, "SUBSCRIPTION.INVALID_PLAN", sharedDomain.CodeOf(err))
	})
}

func TestBillingCycleDays(t *testing.T) {
	assert.Equal(t, 7, BillingCycleWeekly.Days())
	assert.Equal(t, 14, BillingCycleBiweekly.Days())
	assert.Equal(t, 30, BillingCycleMonthly.Days())
	assert.False(t, BillingCycle("yearly").IsValid())
}

func TestNewSubscription(t *testing.T) {
	sub := activeSubscription(t, BillingCycleWeekly)

	assert.Equal(t, SubscriptionStatusActive, sub.Status())
	assert.Equal(t, 1, sub.Version())
	assert.Equal(t, testNow, sub.PeriodStart())
	assert.Equal(t, testNow.AddDate(0, 0, 7), sub.PeriodEnd())
	assert.Equal(t, sub.PeriodEnd(), sub.NextBillingDate())
	require.Len(t, sub.DomainEvents(), 1)
	assert.IsType(t, &SubscriptionCreated{}, sub.DomainEvents()[0])
}

func TestPauseAndResume(t *testing.T) {
	t.Run("pause then resume leaves one closed record", func(t *testing.T) {
		sub := activeSubscription(t, BillingCycleWeekly)

		require.NoError(t, sub.Pause("on vacation", nil, testNow))
		assert.Equal(t, SubscriptionStatusPaused, sub.Status())
		require.Len(t, sub.PauseHistory(), 1)
		assert.True(t, sub.PauseHistory()[0].IsOpen())

		resumedAt := testNow.AddDate(0, 0, 3)
		require.NoError(t, sub.Resume(resumedAt))

		assert.Equal(t, SubscriptionStatusActive, sub.Status())
		records := sub.PauseHistory()
		require.Len(t, records, 1)
		require.NotNil(t, records[0].EndDate)
		assert.Equal(t, resumedAt, *records[0].EndDate)
	})

	t.Run("pause with planned resume date stays closed", func(t *testing.T) {
		sub := activeSubscription(t, BillingCycleWeekly)
		resumeDate := testNow.AddDate(0, 0, 10)

		require.NoError(t, sub.Pause("travel", &resumeDate, testNow))
		records := sub.PauseHistory()
		require.Len(t, records, 1)
		assert.False(t, records[0].IsOpen())
	})

	t.Run("pause requires active", func(t *testing.T) {
		sub := activeSubscription(t, BillingCycleWeekly)
		require.NoError(t, sub.Pause("first", nil, testNow))

		err := sub.Pause("second", nil, testNow)
		assert.Equal(t, "SUBSCRIPTION.INVALID_TRANSITION", sharedDomain.CodeOf(err))
	})

	t.Run("resume requires paused", func(t *testing.T) {
		sub := activeSubscription(t, BillingCycleWeekly)
		err := sub.Resume(testNow)
		assert.Equal(t, "SUBSCRIPTION.INVALID_TRANSITION", sharedDomain.CodeOf(err))
	})
}

func TestCancelAndExpire(t *testing.T) {
	t.Run("cancel from paused", func(t *testing.T) {
		sub := activeSubscription(t, BillingCycleWeekly)
		require.NoError(t, sub.Pause("", nil, testNow))

		require.NoError(t, sub.Cancel("moving away"))
		assert.Equal(t, SubscriptionStatusCancelled, sub.Status())
		assert.Equal(t, "moving away", sub.CancelReason())
	})

	t.Run("cancel twice fails", func(t *testing.T) {
		sub := activeSubscription(t, BillingCycleWeekly)
		require.NoError(t, sub.Cancel("done"))

		err := sub.Cancel("again")
		assert.Equal(t, "SUBSCRIPTION.INVALID_TRANSITION", sharedDomain.CodeOf(err))
	})

	t.Run("expire after cancel fails", func(t *testing.T) {
		sub := activeSubscription(t, BillingCycleWeekly)
		require.NoError(t, sub.Cancel("done"))

		err := sub.Expire("payment lapsed")
		assert.Equal(t, "SUBSCRIPTION.INVALID_TRANSITION", sharedDomain.CodeOf(err))
	})
}

func TestModify(t *testing.T) {
	t.Run("billing cycle recomputes dates from unchanged period start", func(t *testing.T) {
		sub := activeSubscription(t, BillingCycleWeekly)
		start := sub.PeriodStart()

		require.NoError(t, sub.ModifyBillingCycle(BillingCycleMonthly))

		assert.Equal(t, BillingCycleMonthly, sub.Cycle())
		assert.Equal(t, start, sub.PeriodStart())
		assert.Equal(t, start.AddDate(0, 0, 30), sub.PeriodEnd())
		assert.Equal(t, sub.PeriodEnd(), sub.NextBillingDate())
	})

	t.Run("plan change keeps old value for audit", func(t *testing.T) {
		sub := activeSubscription(t, BillingCycleWeekly)
		oldName := sub.Plan().Name()

		price, err := sharedDomain.NewMoney(2000, "EUR")
		require.NoError(t, err)
		qty, err := sharedDomain.NewQuantity(3, sharedDomain.UnitPiece)
		require.NoError(t, err)
		item, err := NewSubscriptionItem(uuid.New(), "fruit mix", qty)
		require.NoError(t, err)
		newPlan, err := NewSubscriptionPlan("Family Fruit Box", "", price, []SubscriptionItem{item})
		require.NoError(t, err)

		require.NoError(t, sub.ModifyPlan(newPlan))

		assert.Equal(t, "Family Fruit Box", sub.Plan().Name())
		events := sub.DomainEvents()
		modified, ok := events[len(events)-1].(*SubscriptionModified)
		require.True(t, ok)
		assert.Equal(t, ModificationPlan, modified.Kind)
		assert.Contains(t, string(modified.OldValue), oldName)
	})

	t.Run("modify allowed while paused", func(t *testing.T) {
		sub := activeSubscription(t, BillingCycleWeekly)
		require.NoError(t, sub.Pause("", nil, testNow))

		slot := sharedDomain.NewDeliverySlot(testNow.AddDate(0, 0, 5), testNow)
		require.NoError(t, sub.ModifyDeliverySlot(slot))
	})

	t.Run("modify rejected when cancelled", func(t *testing.T) {
		sub := activeSubscription(t, BillingCycleWeekly)
		require.NoError(t, sub.Cancel("done"))

		err := sub.ModifyBillingCycle(BillingCycleBiweekly)
		assert.Equal(t, "SUBSCRIPTION.INVALID_TRANSITION", sharedDomain.CodeOf(err))
	})
}

func TestRenew(t *testing.T) {
	sub := activeSubscription(t, BillingCycleBiweekly)
	oldEnd := sub.PeriodEnd()

	require.NoError(t, sub.Renew())

	assert.Equal(t, oldEnd, sub.PeriodStart())
	assert.Equal(t, oldEnd.AddDate(0, 0, 14), sub.PeriodEnd())
	assert.Equal(t, sub.PeriodEnd(), sub.NextBillingDate())
}

func TestGenerateOrder(t *testing.T) {
	t.Run("records the order id without changing status", func(t *testing.T) {
		sub := activeSubscription(t, BillingCycleWeekly)
		orderID := uuid.New()

		require.NoError(t, sub.GenerateOrder(orderID))

		assert.Equal(t, SubscriptionStatusActive, sub.Status())
		require.NotNil(t, sub.LastOrderID())
		assert.Equal(t, orderID, *sub.LastOrderID())
	})

	t.Run("requires active", func(t *testing.T) {
		sub := activeSubscription(t, BillingCycleWeekly)
		require.NoError(t, sub.Pause("", nil, testNow))

		err := sub.GenerateOrder(uuid.New())
		assert.Equal(t, "SUBSCRIPTION.NOT_ACTIVE", sharedDomain.CodeOf(err))
	})
}

func TestRehydrateSubscription(t *testing.T) {
	t.Run("replay reproduces live state", func(t *testing.T) {
		sub := activeSubscription(t, BillingCycleWeekly)
		require.NoError(t, sub.Pause("vacation", nil, testNow))
		require.NoError(t, sub.Resume(testNow.AddDate(0, 0, 2)))
		require.NoError(t, sub.ModifyBillingCycle(BillingCycleMonthly))
		require.NoError(t, sub.Renew())

		replayed, err := RehydrateSubscription(sub.DomainEvents())
		require.NoError(t, err)

		assert.Equal(t, sub.ID(), replayed.ID())
		assert.Equal(t, sub.Version(), replayed.Version())
		assert.Equal(t, sub.State(), replayed.State())
		assert.Empty(t, replayed.DomainEvents())
	})

	t.Run("version equals event count", func(t *testing.T) {
		sub := activeSubscription(t, BillingCycleWeekly)
		require.NoError(t, sub.Pause("", nil, testNow))
		require.NoError(t, sub.Resume(testNow))
		require.NoError(t, sub.Renew())

		events := sub.DomainEvents()
		assert.Equal(t, len(events), sub.Version())
		assert.Equal(t, sub.Version(), events[len(events)-1].Version())
	})

	t.Run("history must start with creation", func(t *testing.T) {
		sub := activeSubscription(t, BillingCycleWeekly)
		require.NoError(t, sub.Pause("", nil, testNow))

		_, err := RehydrateSubscription(sub.DomainEvents()[1:])
		assert.Equal(t, "SUBSCRIPTION.CORRUPT_HISTORY", sharedDomain.CodeOf(err))
	})

	t.Run("empty history fails", func(t *testing.T) {
		_, err := RehydrateSubscription(nil)
		assert.Equal(t, "SUBSCRIPTION.EMPTY_HISTORY", sharedDomain.CodeOf(err))
	})
}
