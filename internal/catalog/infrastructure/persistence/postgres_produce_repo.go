package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/greenbasket/greenbasket/internal/catalog/domain"
	sharedDomain "github.com/greenbasket/greenbasket/internal/shared/domain"
	"github.com/greenbasket/greenbasket/internal/shared/infrastructure/persistence"
)

// PostgresProduceRepository reads produce items from the produce_items table.
type PostgresProduceRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresProduceRepository(pool *pgxpool.Pool) *PostgresProduceRepository {
	return &PostgresProduceRepository{pool: pool}
}

const produceColumns = `id, name, unit_price_amount, unit_price_currency, available_value, available_unit`

func (r *PostgresProduceRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.ProduceItem, error) {
	exec := persistence.Executor(ctx, r.pool)

	query := fmt.Sprintf(`SELECT %s FROM produce_items WHERE id = $1`, produceColumns)
	item, err := scanProduceItem(exec.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find produce item: %w", err)
	}
	return item, nil
}

func (r *PostgresProduceRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.ProduceItem, error) {
	items := make(map[uuid.UUID]*domain.ProduceItem, len(ids))
	if len(ids) == 0 {
		return items, nil
	}

	exec := persistence.Executor(ctx, r.pool)

	query := fmt.Sprintf(`SELECT %s FROM produce_items WHERE id = ANY($1)`, produceColumns)
	rows, err := exec.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to find produce items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		item, err := scanProduceItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan produce item: %w", err)
		}
		items[item.ID()] = item
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate produce items: %w", err)
	}
	return items, nil
}

func scanProduceItem(row pgx.Row) (*domain.ProduceItem, error) {
	var (
		id        uuid.UUID
		name      string
		amount    int64
		currency  string
		available float64
		unit      string
	)
	if err := row.Scan(&id, &name, &amount, &currency, &available, &unit); err != nil {
		return nil, err
	}

	price, err := sharedDomain.NewMoney(amount, currency)
	if err != nil {
		return nil, fmt.Errorf("invalid stored price: %w", err)
	}
	qty, err := sharedDomain.NewQuantity(available, sharedDomain.Unit(unit))
	if err != nil {
		return nil, fmt.Errorf("invalid stored quantity: %w", err)
	}
	return domain.RehydrateProduceItem(id, name, price, qty), nil
}
