package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/averbusem/unbroken-vpn-bot/internal/domain/ports/repository"
)

var _ repository.TransactionManager = (*PgxTxManager)(nil)

// PgxTxManager is the one-handler-one-unit-of-work primitive every service
// call opens. It also exposes WithUserTx, which layers a per-user
// pg_advisory_xact_lock on top so two concurrent operations for the same
// user never interleave their reads and writes to the Subscription row.
type PgxTxManager struct {
	pool *pgxpool.Pool
}

func NewTxManager(pool *pgxpool.Pool) *PgxTxManager {
	return &PgxTxManager{pool: pool}
}

func (m *PgxTxManager) WithTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	if fn == nil {
		return fmt.Errorf("nil tx function")
	}
	conn, err := m.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire conn: %w", err)
	}
	defer conn.Release()

	tx, err := conn.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// WithUserTx runs fn inside a unit-of-work that also holds
// pg_advisory_xact_lock(userID) for its duration, serializing every
// Subscription mutation for that user. The lock is released automatically
// on commit or rollback.
func (m *PgxTxManager) WithUserTx(ctx context.Context, userID int64, fn func(ctx context.Context, tx repository.Tx) error) error {
	return m.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		pgTx, ok := tx.(pgx.Tx)
		if !ok {
			return fmt.Errorf("WithUserTx: unexpected tx type %T", tx)
		}
		if _, err := pgTx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", userID); err != nil {
			return fmt.Errorf("advisory lock: %w", err)
		}
		return fn(ctx, tx)
	})
}
