package locker

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PG is a PostgreSQL-backed lock implementation using a dedicated lock table.
// Acquisition is a conditional insert, so it fails fast instead of queueing.
type PG struct {
	pool   pgxExecutor
	holder string
}

type pgxExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// NewPG constructs a PostgreSQL-backed locker. holder identifies this node in
// the lock table for diagnostics.
func NewPG(pool *pgxpool.Pool, holder string) *PG {
	return &PG{pool: pool, holder: holder}
}

// NewPGWithExecutor constructs a PostgreSQL-backed locker over any executor.
func NewPGWithExecutor(e pgxExecutor, holder string) *PG {
	return &PG{pool: e, holder: holder}
}

// TryAcquire inserts the lock row if absent. A zero rows-affected result means
// another holder already has the lock.
func (l *PG) TryAcquire(ctx context.Context, wallet string) (bool, error) {
	const q = `
INSERT INTO sync_locks (wallet, holder, acquired_at)
VALUES ($1,$2,$3)
ON CONFLICT (wallet) DO NOTHING`
	tag, err := l.pool.Exec(ctx, q, wallet, l.holder, time.Now().UTC())
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// Release deletes the lock row. Deleting an absent row is not an error.
func (l *PG) Release(ctx context.Context, wallet string) error {
	const q = `DELETE FROM sync_locks WHERE wallet=$1 AND holder=$2`
	_, err := l.pool.Exec(ctx, q, wallet, l.holder)
	return err
}
