package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	sharedDomain "github.com/greenbasket/greenbasket/internal/shared/domain"
	"github.com/greenbasket/greenbasket/internal/shared/infrastructure/eventstore"
	"github.com/greenbasket/greenbasket/internal/shared/infrastructure/persistence"
	"github.com/greenbasket/greenbasket/internal/subscriptions/domain"
)

// EventSourcedSubscriptionRepository persists subscriptions into the shared
// event log and keeps the snapshot and subscription_read_models row in
// step, joining the ambient transaction when one is in the context.
type EventSourcedSubscriptionRepository struct {
	store eventstore.Store
	codec *eventstore.Codec
	pool  *pgxpool.Pool
}

func NewEventSourcedSubscriptionRepository(store eventstore.Store, pool *pgxpool.Pool) *EventSourcedSubscriptionRepository {
	return &EventSourcedSubscriptionRepository{
		store: store,
		codec: NewSubscriptionEventCodec(),
		pool:  pool,
	}
}

type subscriptionSnapshot struct {
	UserID          uuid.UUID            `json:"user_id"`
	Plan            domain.PlanData      `json:"plan"`
	BillingCycle    string               `json:"billing_cycle"`
	DeliveryDate    time.Time            `json:"delivery_date"`
	SlotKind        string               `json:"slot_kind"`
	AddressID       uuid.UUID            `json:"address_id"`
	Status          string               `json:"status"`
	PeriodStart     time.Time            `json:"period_start"`
	PeriodEnd       time.Time            `json:"period_end"`
	NextBillingDate time.Time            `json:"next_billing_date"`
	PauseHistory    []domain.PauseRecord `json:"pause_history"`
	CancelReason    string               `json:"cancel_reason,omitempty"`
	ExpireReason    string               `json:"expire_reason,omitempty"`
	LastOrderID     *uuid.UUID           `json:"last_order_id,omitempty"`
}

func (r *EventSourcedSubscriptionRepository) Save(ctx context.Context, sub *domain.Subscription) error {
	events := sub.DomainEvents()
	if len(events) == 0 {
		return nil
	}

	records, err := eventstore.EncodeAll(events)
	if err != nil {
		return sharedDomain.NewInternal("SUBSCRIPTION.SERIALIZATION_FAILED", "failed to encode subscription events", err)
	}

	if err := r.store.Append(ctx, records); err != nil {
		if errors.Is(err, eventstore.ErrVersionConflict) {
			return sharedDomain.NewConflict("SUBSCRIPTION.VERSION_CONFLICT",
				"subscription was modified concurrently, reload and retry").WithCause(err)
		}
		return sharedDomain.NewInternal("SUBSCRIPTION.SAVE_FAILED", "failed to append subscription events", err)
	}

	if err := r.saveSnapshot(ctx, sub); err != nil {
		return sharedDomain.NewInternal("SUBSCRIPTION.SAVE_FAILED", "failed to save subscription snapshot", err)
	}
	if err := r.upsertReadModel(ctx, sub); err != nil {
		return sharedDomain.NewInternal("SUBSCRIPTION.SAVE_FAILED", "failed to update subscription read model", err)
	}

	// The uncommitted buffer stays intact: Save may run inside a wider
	// transaction that still fails, and the caller clears it on commit.
	return nil
}

func (r *EventSourcedSubscriptionRepository) saveSnapshot(ctx context.Context, sub *domain.Subscription) error {
	state := sub.State()
	payload, err := json.Marshal(subscriptionSnapshot{
		UserID:          state.UserID,
		Plan:            planData(state.Plan),
		BillingCycle:    string(state.Cycle),
		DeliveryDate:    state.Slot.Date(),
		SlotKind:        string(state.Slot.Kind()),
		AddressID:       state.AddressID,
		Status:          string(state.Status),
		PeriodStart:     state.PeriodStart,
		PeriodEnd:       state.PeriodEnd,
		NextBillingDate: state.NextBillingDate,
		PauseHistory:    state.PauseHistory,
		CancelReason:    state.CancelReason,
		ExpireReason:    state.ExpireReason,
		LastOrderID:     state.LastOrderID,
	})
	if err != nil {
		return err
	}

	return r.store.SaveSnapshot(ctx, eventstore.Snapshot{
		AggregateID:   sub.ID(),
		AggregateType: domain.AggregateTypeSubscription,
		Version:       sub.Version(),
		State:         payload,
		UpdatedAt:     time.Now().UTC(),
	})
}

func planData(plan domain.SubscriptionPlan) domain.PlanData {
	items := make([]domain.SubscriptionItemData, 0, len(plan.Items()))
	for _, item := range plan.Items() {
		items = append(items, domain.SubscriptionItemData{
			ProduceItemID: item.ProduceItemID(),
			Name:          item.Name(),
			QuantityValue: item.Quantity().Value(),
			QuantityUnit:  string(item.Quantity().Unit()),
		})
	}
	return domain.PlanData{
		Name:        plan.Name(),
		Description: plan.Description(),
		PriceAmount: plan.Price().Amount(),
		Currency:    plan.Price().Currency(),
		Items:       items,
	}
}

func (r *EventSourcedSubscriptionRepository) upsertReadModel(ctx context.Context, sub *domain.Subscription) error {
	// Read models live in postgres. In local mode the sqlite store keeps
	// only the event log and snapshots.
	if r.pool == nil {
		return nil
	}

	state := sub.State()
	data := planData(state.Plan)
	itemsJSON, err := json.Marshal(data.Items)
	if err != nil {
		return err
	}

	exec := persistence.Executor(ctx, r.pool)
	query := `
		INSERT INTO subscription_read_models (
			subscription_id, user_id, status, plan_name, billing_cycle,
			next_billing_date, current_period_start, current_period_end,
			delivery_date, delivery_slot, address_id, items, version,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (subscription_id) DO UPDATE SET
			status = EXCLUDED.status,
			plan_name = EXCLUDED.plan_name,
			billing_cycle = EXCLUDED.billing_cycle,
			next_billing_date = EXCLUDED.next_billing_date,
			current_period_start = EXCLUDED.current_period_start,
			current_period_end = EXCLUDED.current_period_end,
			delivery_date = EXCLUDED.delivery_date,
			delivery_slot = EXCLUDED.delivery_slot,
			items = EXCLUDED.items,
			version = EXCLUDED.version,
			updated_at = EXCLUDED.updated_at`
	_, err = exec.Exec(ctx, query,
		sub.ID(), state.UserID, string(state.Status), data.Name, string(state.Cycle),
		state.NextBillingDate, state.PeriodStart, state.PeriodEnd,
		state.Slot.Date(), string(state.Slot.Kind()), state.AddressID,
		itemsJSON, sub.Version(), sub.CreatedAt(), sub.UpdatedAt(),
	)
	return err
}

func (r *EventSourcedSubscriptionRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Subscription, error) {
	records, err := r.store.Load(ctx, domain.AggregateTypeSubscription, id)
	if err != nil {
		return nil, sharedDomain.NewInternal("SUBSCRIPTION.LOAD_FAILED", "failed to load subscription events", err)
	}
	if len(records) == 0 {
		return nil, domain.ErrSubscriptionNotFound
	}

	events, err := r.codec.DecodeAll(records)
	if err != nil {
		return nil, sharedDomain.NewInternal("SUBSCRIPTION.DESERIALIZATION_FAILED", "failed to decode subscription events", err)
	}
	return domain.RehydrateSubscription(events)
}

const subscriptionSummaryColumns = `
	subscription_id, user_id, status, plan_name, billing_cycle,
	next_billing_date, current_period_start, current_period_end,
	delivery_date, delivery_slot, address_id, jsonb_array_length(items),
	created_at, updated_at`

func (r *EventSourcedSubscriptionRepository) FindByUserID(ctx context.Context, userID uuid.UUID) ([]domain.SubscriptionSummary, error) {
	query := fmt.Sprintf(`SELECT %s FROM subscription_read_models WHERE user_id = $1 ORDER BY created_at DESC`, subscriptionSummaryColumns)
	return r.querySummaries(ctx, query, userID)
}

func (r *EventSourcedSubscriptionRepository) FindActive(ctx context.Context) ([]domain.SubscriptionSummary, error) {
	return r.FindByStatus(ctx, domain.SubscriptionStatusActive)
}

func (r *EventSourcedSubscriptionRepository) FindByStatus(ctx context.Context, status domain.SubscriptionStatus) ([]domain.SubscriptionSummary, error) {
	query := fmt.Sprintf(`SELECT %s FROM subscription_read_models WHERE status = $1 ORDER BY created_at DESC`, subscriptionSummaryColumns)
	return r.querySummaries(ctx, query, string(status))
}

// FindByNextBillingDate matches subscriptions due on or before the given
// date, used by the renewal worker.
func (r *EventSourcedSubscriptionRepository) FindByNextBillingDate(ctx context.Context, date time.Time) ([]domain.SubscriptionSummary, error) {
	query := fmt.Sprintf(`SELECT %s FROM subscription_read_models
		WHERE status = $1 AND next_billing_date <= $2
		ORDER BY next_billing_date`, subscriptionSummaryColumns)
	return r.querySummaries(ctx, query, string(domain.SubscriptionStatusActive), date)
}

func (r *EventSourcedSubscriptionRepository) querySummaries(ctx context.Context, query string, args ...any) ([]domain.SubscriptionSummary, error) {
	if r.pool == nil {
		return nil, sharedDomain.NewInternal("SUBSCRIPTION.READ_MODEL_UNAVAILABLE",
			"subscription listings require a postgres connection", nil)
	}

	exec := persistence.Executor(ctx, r.pool)
	rows, err := exec.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query subscription read models: %w", err)
	}
	defer rows.Close()

	summaries := make([]domain.SubscriptionSummary, 0)
	for rows.Next() {
		summary, err := scanSubscriptionSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan subscription read model: %w", err)
		}
		summaries = append(summaries, summary)
	}
	return summaries, rows.Err()
}

func scanSubscriptionSummary(row pgx.Row) (domain.SubscriptionSummary, error) {
	var (
		s      domain.SubscriptionSummary
		status string
		cycle  string
	)
	err := row.Scan(&s.ID, &s.UserID, &status, &s.PlanName, &cycle,
		&s.NextBillingDate, &s.PeriodStart, &s.PeriodEnd,
		&s.DeliveryDate, &s.SlotKind, &s.AddressID, &s.ItemCount,
		&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return domain.SubscriptionSummary{}, err
	}
	s.Status = domain.SubscriptionStatus(status)
	s.BillingCycle = domain.BillingCycle(cycle)
	return s, nil
}
