package ledger

import (
	"context"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PG is a PostgreSQL-backed outcome ledger using upsert with counter increment.
type PG struct{ pool pgxExecutor }

type pgxExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// NewPG constructs a PostgreSQL-backed ledger.
func NewPG(pool *pgxpool.Pool) *PG { return &PG{pool: pool} }

// NewPGWithExecutor constructs a PostgreSQL-backed ledger over any executor.
func NewPGWithExecutor(e pgxExecutor) *PG { return &PG{pool: e} }

// RecordSuccess increments the success counter for a wallet.
func (l *PG) RecordSuccess(ctx context.Context, wallet string) error {
	const q = `
INSERT INTO sync_outcomes (wallet, success_count, failure_count, updated_at)
VALUES ($1,1,0,now())
ON CONFLICT (wallet)
DO UPDATE SET success_count=sync_outcomes.success_count+1, updated_at=now()`
	_, err := l.pool.Exec(ctx, q, wallet)
	return err
}

// RecordFailure increments the failure counter for a wallet.
func (l *PG) RecordFailure(ctx context.Context, wallet string) error {
	const q = `
INSERT INTO sync_outcomes (wallet, success_count, failure_count, updated_at)
VALUES ($1,0,1,now())
ON CONFLICT (wallet)
DO UPDATE SET failure_count=sync_outcomes.failure_count+1, updated_at=now()`
	_, err := l.pool.Exec(ctx, q, wallet)
	return err
}
