package eventstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	sharedPersistence "github.com/greenbasket/greenbasket/internal/shared/infrastructure/persistence"
)

const uniqueViolationCode = "23505"

// PostgresStore implements Store on PostgreSQL. When the context carries an
// ambient transaction the writes join it, so a repository can append
// events, snapshot, and read model in one atomic commit.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL event store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Append appends the batch to the event log. A unique-constraint violation
// on (aggregate_id, version) surfaces as ErrVersionConflict.
func (s *PostgresStore) Append(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	if _, ok := sharedPersistence.TxInfoFromContext(ctx); ok {
		return s.appendWith(ctx, sharedPersistence.Executor(ctx, s.pool), records)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := s.appendWith(ctx, tx, records); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) appendWith(ctx context.Context, exec sharedPersistence.DBExecutor, records []Record) error {
	query := `
		INSERT INTO event_log (
			event_id, aggregate_id, aggregate_type, version,
			event_type, payload, metadata, occurred_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	for _, rec := range records {
		_, err := exec.Exec(ctx, query,
			rec.EventID,
			rec.AggregateID,
			rec.AggregateType,
			rec.Version,
			rec.EventType,
			rec.Payload,
			rec.Metadata,
			rec.OccurredAt,
		)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
				return fmt.Errorf("append %s v%d: %w", rec.AggregateID, rec.Version, ErrVersionConflict)
			}
			return fmt.Errorf("append event %s: %w", rec.EventID, err)
		}
	}
	return nil
}

// Load returns the full event history for an aggregate ordered by version.
func (s *PostgresStore) Load(ctx context.Context, aggregateType string, aggregateID uuid.UUID) ([]Record, error) {
	exec := sharedPersistence.Executor(ctx, s.pool)

	query := `
		SELECT event_id, aggregate_id, aggregate_type, version,
		       event_type, payload, metadata, occurred_at
		FROM event_log
		WHERE aggregate_id = $1 AND aggregate_type = $2
		ORDER BY version ASC
	`

	rows, err := exec.Query(ctx, query, aggregateID, aggregateType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(
			&rec.EventID,
			&rec.AggregateID,
			&rec.AggregateType,
			&rec.Version,
			&rec.EventType,
			&rec.Payload,
			&rec.Metadata,
			&rec.OccurredAt,
		); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// SaveSnapshot upserts the snapshot row for an aggregate.
func (s *PostgresStore) SaveSnapshot(ctx context.Context, snap Snapshot) error {
	exec := sharedPersistence.Executor(ctx, s.pool)

	query := `
		INSERT INTO snapshots (aggregate_id, aggregate_type, version, state, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (aggregate_id) DO UPDATE SET
			aggregate_type = EXCLUDED.aggregate_type,
			version = EXCLUDED.version,
			state = EXCLUDED.state,
			updated_at = EXCLUDED.updated_at
	`

	_, err := exec.Exec(ctx, query,
		snap.AggregateID,
		snap.AggregateType,
		snap.Version,
		snap.State,
		snap.UpdatedAt,
	)
	return err
}

// LoadSnapshot returns the latest snapshot for an aggregate.
func (s *PostgresStore) LoadSnapshot(ctx context.Context, aggregateType string, aggregateID uuid.UUID) (Snapshot, error) {
	exec := sharedPersistence.Executor(ctx, s.pool)

	query := `
		SELECT aggregate_id, aggregate_type, version, state, updated_at
		FROM snapshots
		WHERE aggregate_id = $1 AND aggregate_type = $2
	`

	var snap Snapshot
	err := exec.QueryRow(ctx, query, aggregateID, aggregateType).Scan(
		&snap.AggregateID,
		&snap.AggregateType,
		&snap.Version,
		&snap.State,
		&snap.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Snapshot{}, ErrNoSnapshot
	}
	if err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}
