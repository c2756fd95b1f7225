package eventstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // pure Go SQLite driver
)

// SQLiteStore implements Store on SQLite for local mode. SQLite allows a
// single writer, so each Append runs in its own immediate transaction.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens (and if necessary initializes) a SQLite event
// store at the given path. Use ":memory:" for an ephemeral store.
func OpenSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite event store: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.init(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) init(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS event_log (
			event_id TEXT NOT NULL,
			aggregate_id TEXT NOT NULL,
			aggregate_type TEXT NOT NULL,
			version INTEGER NOT NULL,
			event_type TEXT NOT NULL,
			payload TEXT NOT NULL,
			metadata TEXT NOT NULL,
			occurred_at TEXT NOT NULL,
			PRIMARY KEY (aggregate_id, version)
		);
		CREATE TABLE IF NOT EXISTS snapshots (
			aggregate_id TEXT PRIMARY KEY,
			aggregate_type TEXT NOT NULL,
			version INTEGER NOT NULL,
			state TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Append appends the batch atomically; a primary-key clash on
// (aggregate_id, version) surfaces as ErrVersionConflict.
func (s *SQLiteStore) Append(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO event_log (
			event_id, aggregate_id, aggregate_type, version,
			event_type, payload, metadata, occurred_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	for _, rec := range records {
		_, err := tx.ExecContext(ctx, query,
			rec.EventID.String(),
			rec.AggregateID.String(),
			rec.AggregateType,
			rec.Version,
			rec.EventType,
			string(rec.Payload),
			string(rec.Metadata),
			rec.OccurredAt.UTC().Format(time.RFC3339Nano),
		)
		if err != nil {
			if isSQLiteConstraintErr(err) {
				return fmt.Errorf("append %s v%d: %w", rec.AggregateID, rec.Version, ErrVersionConflict)
			}
			return fmt.Errorf("append event %s: %w", rec.EventID, err)
		}
	}
	return tx.Commit()
}

// Load returns the full event history for an aggregate ordered by version.
func (s *SQLiteStore) Load(ctx context.Context, aggregateType string, aggregateID uuid.UUID) ([]Record, error) {
	query := `
		SELECT event_id, aggregate_id, aggregate_type, version,
		       event_type, payload, metadata, occurred_at
		FROM event_log
		WHERE aggregate_id = ? AND aggregate_type = ?
		ORDER BY version ASC
	`

	rows, err := s.db.QueryContext(ctx, query, aggregateID.String(), aggregateType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			rec                           Record
			eventID, aggID, payload, meta string
			occurredAt                    string
		)
		if err := rows.Scan(&eventID, &aggID, &rec.AggregateType, &rec.Version,
			&rec.EventType, &payload, &meta, &occurredAt); err != nil {
			return nil, err
		}
		if rec.EventID, err = uuid.Parse(eventID); err != nil {
			return nil, fmt.Errorf("malformed event id %q: %w", eventID, err)
		}
		if rec.AggregateID, err = uuid.Parse(aggID); err != nil {
			return nil, fmt.Errorf("malformed aggregate id %q: %w", aggID, err)
		}
		if rec.OccurredAt, err = time.Parse(time.RFC3339Nano, occurredAt); err != nil {
			return nil, fmt.Errorf("malformed timestamp %q: %w", occurredAt, err)
		}
		rec.Payload = []byte(payload)
		rec.Metadata = []byte(meta)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// SaveSnapshot upserts the snapshot row for an aggregate.
func (s *SQLiteStore) SaveSnapshot(ctx context.Context, snap Snapshot) error {
	query := `
		INSERT INTO snapshots (aggregate_id, aggregate_type, version, state, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (aggregate_id) DO UPDATE SET
			aggregate_type = excluded.aggregate_type,
			version = excluded.version,
			state = excluded.state,
			updated_at = excluded.updated_at
	`
	_, err := s.db.ExecContext(ctx, query,
		snap.AggregateID.String(),
		snap.AggregateType,
		snap.Version,
		string(snap.State),
		snap.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	return err
}

// LoadSnapshot returns the latest snapshot for an aggregate.
func (s *SQLiteStore) LoadSnapshot(ctx context.Context, aggregateType string, aggregateID uuid.UUID) (Snapshot, error) {
	query := `
		SELECT aggregate_id, aggregate_type, version, state, updated_at
		FROM snapshots
		WHERE aggregate_id = ? AND aggregate_type = ?
	`

	var (
		snap                  Snapshot
		aggID, state, updated string
	)
	err := s.db.QueryRowContext(ctx, query, aggregateID.String(), aggregateType).
		Scan(&aggID, &snap.AggregateType, &snap.Version, &state, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, ErrNoSnapshot
	}
	if err != nil {
		return Snapshot{}, err
	}
	if snap.AggregateID, err = uuid.Parse(aggID); err != nil {
		return Snapshot{}, fmt.Errorf("malformed aggregate id %q: %w", aggID, err)
	}
	if snap.UpdatedAt, err = time.Parse(time.RFC3339Nano, updated); err != nil {
		return Snapshot{}, fmt.Errorf("malformed timestamp %q: %w", updated, err)
	}
	snap.State = []byte(state)
	return snap, nil
}

func isSQLiteConstraintErr(err error) bool {
	// modernc.org/sqlite reports constraint violations in the error text;
	// it does not export a stable error type for them.
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "constraint failed")
}
