package repository

import "context"

// Tx is an opaque transaction handle passed through to repository methods.
// nil means "run against the pool directly"; a concrete value (pgx.Tx for
// the postgres adapter) means "run inside this unit-of-work". Repositories
// must accept both.
type Tx interface{}

// TransactionManager runs fn inside a single unit-of-work: commit on a nil
// return, rollback otherwise. fn receives the same ctx plus a Tx to thread
// through repository calls.
//
// Two call sites break the one-handler-one-UoW rule by design: Payment's
// create_invoice and process_success each open their own TransactionManager
// call so the Payment row they write survives a later rollback in the
// caller's own unit-of-work (see PaymentService).
type TransactionManager interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// UserScopedTxManager additionally serializes a unit-of-work behind a
// per-user advisory lock, so two concurrent operations on the same user's
// Subscription row never interleave their reads and writes (spec's
// ordering guarantee: operations on a single Subscription are serialized
// by the unique user_id row).
type UserScopedTxManager interface {
	TransactionManager
	WithUserTx(ctx context.Context, userID int64, fn func(ctx context.Context, tx Tx) error) error
}
