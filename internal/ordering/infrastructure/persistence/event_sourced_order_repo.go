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

	"github.com/greenbasket/greenbasket/internal/ordering/domain"
	sharedDomain "github.com/greenbasket/greenbasket/internal/shared/domain"
	"github.com/greenbasket/greenbasket/internal/shared/infrastructure/eventstore"
	"github.com/greenbasket/greenbasket/internal/shared/infrastructure/persistence"
)

// EventSourcedOrderRepository persists orders into the shared event log and
// keeps the snapshot and order_read_models row in step. Save joins the
// ambient transaction when one is in the context, so event log, snapshot,
// read model and outbox commit or roll back together.
type EventSourcedOrderRepository struct {
	store eventstore.Store
	codec *eventstore.Codec
	pool  *pgxpool.Pool
}

func NewEventSourcedOrderRepository(store eventstore.Store, pool *pgxpool.Pool) *EventSourcedOrderRepository {
	return &EventSourcedOrderRepository{
		store: store,
		codec: NewOrderEventCodec(),
		pool:  pool,
	}
}

// orderSnapshot is the serialized full-state projection kept per aggregate.
type orderSnapshot struct {
	UserID         uuid.UUID              `json:"user_id"`
	Items          []domain.OrderItemData `json:"items"`
	TotalAmount    int64                  `json:"total_amount"`
	Currency       string                 `json:"currency"`
	DeliveryDate   time.Time              `json:"delivery_date"`
	SlotKind       string                 `json:"slot_kind"`
	AddressID      uuid.UUID              `json:"address_id"`
	SubscriptionID *uuid.UUID             `json:"subscription_id,omitempty"`
	Status         string                 `json:"status"`
	RiderID        *uuid.UUID             `json:"rider_id,omitempty"`
	CancelReason   string                 `json:"cancel_reason,omitempty"`
	DeliveryProof  string                 `json:"delivery_proof,omitempty"`
}

func (r *EventSourcedOrderRepository) Save(ctx context.Context, order *domain.Order) error {
	events := order.DomainEvents()
	if len(events) == 0 {
		return nil
	}

	records, err := eventstore.EncodeAll(events)
	if err != nil {
		return sharedDomain.NewInternal("ORDER.SERIALIZATION_FAILED", "failed to encode order events", err)
	}

	if err := r.store.Append(ctx, records); err != nil {
		if errors.Is(err, eventstore.ErrVersionConflict) {
			return sharedDomain.NewConflict("ORDER.VERSION_CONFLICT",
				"order was modified concurrently, reload and retry").WithCause(err)
		}
		return sharedDomain.NewInternal("ORDER.SAVE_FAILED", "failed to append order events", err)
	}

	if err := r.saveSnapshot(ctx, order); err != nil {
		return sharedDomain.NewInternal("ORDER.SAVE_FAILED", "failed to save order snapshot", err)
	}
	if err := r.upsertReadModel(ctx, order); err != nil {
		return sharedDomain.NewInternal("ORDER.SAVE_FAILED", "failed to update order read model", err)
	}

	// The uncommitted buffer stays intact: Save may run inside a wider
	// transaction that still fails, and the caller clears it on commit.
	return nil
}

func (r *EventSourcedOrderRepository) saveSnapshot(ctx context.Context, order *domain.Order) error {
	state := order.State()
	items := make([]domain.OrderItemData, 0, len(state.Items))
	for _, item := range state.Items {
		items = append(items, domain.OrderItemData{
			ProduceItemID:   item.ProduceItemID(),
			Name:            item.Name(),
			QuantityValue:   item.Quantity().Value(),
			QuantityUnit:    string(item.Quantity().Unit()),
			LinePriceAmount: item.LinePrice().Amount(),
			Currency:        item.LinePrice().Currency(),
		})
	}

	payload, err := json.Marshal(orderSnapshot{
		UserID:         state.UserID,
		Items:          items,
		TotalAmount:    state.Total.Amount(),
		Currency:       state.Total.Currency(),
		DeliveryDate:   state.Slot.Date(),
		SlotKind:       string(state.Slot.Kind()),
		AddressID:      state.AddressID,
		SubscriptionID: state.SubscriptionID,
		Status:         string(state.Status),
		RiderID:        state.RiderID,
		CancelReason:   state.CancelReason,
		DeliveryProof:  state.DeliveryProof,
	})
	if err != nil {
		return err
	}

	return r.store.SaveSnapshot(ctx, eventstore.Snapshot{
		AggregateID:   order.ID(),
		AggregateType: domain.AggregateTypeOrder,
		Version:       order.Version(),
		State:         payload,
		UpdatedAt:     time.Now().UTC(),
	})
}

func (r *EventSourcedOrderRepository) upsertReadModel(ctx context.Context, order *domain.Order) error {
	// Read models live in postgres. In local mode the sqlite store keeps
	// only the event log and snapshots.
	if r.pool == nil {
		return nil
	}

	state := order.State()
	items := make([]domain.OrderItemData, 0, len(state.Items))
	for _, item := range state.Items {
		items = append(items, domain.OrderItemData{
			ProduceItemID:   item.ProduceItemID(),
			Name:            item.Name(),
			QuantityValue:   item.Quantity().Value(),
			QuantityUnit:    string(item.Quantity().Unit()),
			LinePriceAmount: item.LinePrice().Amount(),
			Currency:        item.LinePrice().Currency(),
		})
	}
	itemsJSON, err := json.Marshal(items)
	if err != nil {
		return err
	}

	exec := persistence.Executor(ctx, r.pool)
	query := `
		INSERT INTO order_read_models (
			order_id, user_id, status, total_amount, total_currency,
			delivery_date, delivery_slot, address_id, items, version,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (order_id) DO UPDATE SET
			status = EXCLUDED.status,
			total_amount = EXCLUDED.total_amount,
			total_currency = EXCLUDED.total_currency,
			delivery_date = EXCLUDED.delivery_date,
			delivery_slot = EXCLUDED.delivery_slot,
			items = EXCLUDED.items,
			version = EXCLUDED.version,
			updated_at = EXCLUDED.updated_at`
	_, err = exec.Exec(ctx, query,
		order.ID(), state.UserID, string(state.Status),
		state.Total.Amount(), state.Total.Currency(),
		state.Slot.Date(), string(state.Slot.Kind()),
		state.AddressID, itemsJSON, order.Version(),
		order.CreatedAt(), order.UpdatedAt(),
	)
	return err
}

func (r *EventSourcedOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	records, err := r.store.Load(ctx, domain.AggregateTypeOrder, id)
	if err != nil {
		return nil, sharedDomain.NewInternal("ORDER.LOAD_FAILED", "failed to load order events", err)
	}
	if len(records) == 0 {
		return nil, domain.ErrOrderNotFound
	}

	events, err := r.codec.DecodeAll(records)
	if err != nil {
		return nil, sharedDomain.NewInternal("ORDER.DESERIALIZATION_FAILED", "failed to decode order events", err)
	}
	return domain.RehydrateOrder(events)
}

const orderSummaryColumns = `
	order_id, user_id, status, total_amount, total_currency,
	delivery_date, delivery_slot, address_id, jsonb_array_length(items),
	created_at, updated_at`

func (r *EventSourcedOrderRepository) FindByUserID(ctx context.Context, userID uuid.UUID) ([]domain.OrderSummary, error) {
	query := fmt.Sprintf(`SELECT %s FROM order_read_models WHERE user_id = $1 ORDER BY created_at DESC`, orderSummaryColumns)
	return r.querySummaries(ctx, query, userID)
}

func (r *EventSourcedOrderRepository) FindByStatus(ctx context.Context, status domain.OrderStatus) ([]domain.OrderSummary, error) {
	query := fmt.Sprintf(`SELECT %s FROM order_read_models WHERE status = $1 ORDER BY created_at DESC`, orderSummaryColumns)
	return r.querySummaries(ctx, query, string(status))
}

func (r *EventSourcedOrderRepository) querySummaries(ctx context.Context, query string, args ...any) ([]domain.OrderSummary, error) {
	if r.pool == nil {
		return nil, sharedDomain.NewInternal("ORDER.READ_MODEL_UNAVAILABLE",
			"order listings require a postgres connection", nil)
	}

	exec := persistence.Executor(ctx, r.pool)
	rows, err := exec.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query order read models: %w", err)
	}
	defer rows.Close()

	summaries := make([]domain.OrderSummary, 0)
	for rows.Next() {
		summary, err := scanOrderSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order read model: %w", err)
		}
		summaries = append(summaries, summary)
	}
	return summaries, rows.Err()
}

func scanOrderSummary(row pgx.Row) (domain.OrderSummary, error) {
	var (
		s      domain.OrderSummary
		status string
	)
	err := row.Scan(&s.ID, &s.UserID, &status, &s.TotalAmount, &s.Currency,
		&s.DeliveryDate, &s.SlotKind, &s.AddressID, &s.ItemCount,
		&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return domain.OrderSummary{}, err
	}
	s.Status = domain.OrderStatus(status)
	return s, nil
}
