package migrations

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// postgresSchema is the full schema for the order and subscription core.
// Statements are idempotent so the migration can run at every startup.
var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS event_log (
		event_id UUID NOT NULL,
		aggregate_id UUID NOT NULL,
		aggregate_type TEXT NOT NULL,
		version INTEGER NOT NULL,
		event_type TEXT NOT NULL,
		payload JSONB NOT NULL,
		metadata JSONB NOT NULL DEFAULT '{}',
		occurred_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (aggregate_id, version)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_event_log_type ON event_log (aggregate_type, aggregate_id)`,

	`CREATE TABLE IF NOT EXISTS snapshots (
		aggregate_id UUID PRIMARY KEY,
		aggregate_type TEXT NOT NULL,
		version INTEGER NOT NULL,
		state JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS order_read_models (
		order_id UUID PRIMARY KEY,
		user_id UUID NOT NULL,
		status TEXT NOT NULL,
		total_amount BIGINT NOT NULL,
		total_currency TEXT NOT NULL,
		delivery_date DATE NOT NULL,
		delivery_slot TEXT NOT NULL,
		address_id UUID NOT NULL,
		items JSONB NOT NULL,
		version INTEGER NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_order_read_models_user ON order_read_models (user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_order_read_models_status ON order_read_models (status)`,

	`CREATE TABLE IF NOT EXISTS subscription_read_models (
		subscription_id UUID PRIMARY KEY,
		user_id UUID NOT NULL,
		status TEXT NOT NULL,
		plan_name TEXT NOT NULL,
		billing_cycle TEXT NOT NULL,
		next_billing_date DATE NOT NULL,
		current_period_start DATE NOT NULL,
		current_period_end DATE NOT NULL,
		delivery_date DATE NOT NULL,
		delivery_slot TEXT NOT NULL,
		address_id UUID NOT NULL,
		items JSONB NOT NULL,
		version INTEGER NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_subscription_read_models_user ON subscription_read_models (user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_subscription_read_models_status ON subscription_read_models (status)`,
	`CREATE INDEX IF NOT EXISTS idx_subscription_read_models_billing ON subscription_read_models (next_billing_date)`,

	`CREATE TABLE IF NOT EXISTS outbox_messages (
		id BIGSERIAL PRIMARY KEY,
		event_id UUID NOT NULL,
		aggregate_type TEXT NOT NULL,
		aggregate_id UUID NOT NULL,
		event_type TEXT NOT NULL,
		routing_key TEXT NOT NULL,
		payload JSONB NOT NULL,
		metadata JSONB NOT NULL DEFAULT '{}',
		created_at TIMESTAMPTZ NOT NULL,
		published_at TIMESTAMPTZ,
		next_retry_at TIMESTAMPTZ,
		retry_count INTEGER NOT NULL DEFAULT 0,
		last_error TEXT,
		dead_lettered_at TIMESTAMPTZ,
		dead_letter_reason TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_outbox_unpublished ON outbox_messages (created_at) WHERE published_at IS NULL`,

	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		email TEXT NOT NULL,
		full_name TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS user_addresses (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES users (id),
		line1 TEXT NOT NULL,
		city TEXT NOT NULL,
		postal_code TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_user_addresses_user ON user_addresses (user_id)`,

	`CREATE TABLE IF NOT EXISTS produce_items (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL,
		unit_price_amount BIGINT NOT NULL,
		unit_price_currency TEXT NOT NULL,
		available_quantity DOUBLE PRECISION NOT NULL,
		quantity_unit TEXT NOT NULL
	)`,
}

// ApplyPostgres applies the schema, statement by statement.
func ApplyPostgres(ctx context.Context, pool *pgxpool.Pool) error {
	for i, stmt := range postgresSchema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration statement %d failed: %w", i, err)
		}
	}
	return nil
}
