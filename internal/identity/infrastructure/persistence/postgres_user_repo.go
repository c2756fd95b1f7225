package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/greenbasket/greenbasket/internal/identity/domain"
	sharedPersistence "github.com/greenbasket/greenbasket/internal/shared/infrastructure/persistence"
)

// PostgresUserRepository implements domain.Repository using PostgreSQL.
type PostgresUserRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresUserRepository creates a new PostgreSQL user repository.
func NewPostgresUserRepository(pool *pgxpool.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

// FindByID loads a user with their addresses.
func (r *PostgresUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	exec := sharedPersistence.Executor(ctx, r.pool)

	var (
		email    string
		fullName string
	)
	err := exec.QueryRow(ctx,
		`SELECT email, full_name FROM users WHERE id = $1`, id,
	).Scan(&email, &fullName)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rows, err := exec.Query(ctx,
		`SELECT id, line1, city, postal_code FROM user_addresses WHERE user_id = $1`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var addresses []domain.Address
	for rows.Next() {
		var addr domain.Address
		if err := rows.Scan(&addr.ID, &addr.Line1, &addr.City, &addr.PostalCode); err != nil {
			return nil, err
		}
		addresses = append(addresses, addr)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return domain.RehydrateUser(id, email, fullName, addresses), nil
}
