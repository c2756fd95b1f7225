package persistence

import "context"

// PassthroughUnitOfWork satisfies the unit-of-work contract without opening
// a transaction. Used in local mode, where the SQLite event store makes each
// append individually durable and there is no shared database to coordinate.
type PassthroughUnitOfWork struct{}

// NewPassthroughUnitOfWork creates a unit of work that runs work directly
// on the caller's context.
func NewPassthroughUnitOfWork() *PassthroughUnitOfWork {
	return &PassthroughUnitOfWork{}
}

func (u *PassthroughUnitOfWork) Begin(ctx context.Context) (context.Context, error) {
	return ctx, nil
}

func (u *PassthroughUnitOfWork) Commit(ctx context.Context) error {
	return nil
}

func (u *PassthroughUnitOfWork) Rollback(ctx context.Context) error {
	return nil
}
