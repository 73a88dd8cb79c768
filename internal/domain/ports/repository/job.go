package repository

import (
	"context"
	"time"

	"github.com/averbusem/unbroken-vpn-bot/internal/domain/model"
)

// JobRepository is the durable one-shot timer store backing the Scheduler.
// Add fails with domain.ErrAlreadyExists if id is taken; Replace is
// remove-if-present-then-insert and is how the Subscription Service plans
// both jobs, per the replace-is-idempotent contract in spec section 4.6
// (it also calls Remove for a NOTIFY job whose time has already passed).
type JobRepository interface {
	Add(ctx context.Context, qx Tx, j *model.Job) error
	Replace(ctx context.Context, qx Tx, j *model.Job) error
	Get(ctx context.Context, qx Tx, id string) (*model.Job, error)
	Remove(ctx context.Context, qx Tx, id string) error
	// Due returns jobs with run_at <= asOf that are not currently locked,
	// ordered by run_at, for the catch-up sweep and the polling loop.
	Due(ctx context.Context, qx Tx, asOf time.Time) ([]*model.Job, error)
	// Claim atomically marks an unlocked job as owned by owner, returning
	// false (no error) if it was already claimed or no longer exists. It is
	// the cross-process half of the single-flight-per-job_id guarantee.
	Claim(ctx context.Context, qx Tx, id, owner string) (bool, error)
	// Release clears a job's lock without removing it, for a handler that
	// failed and must remain eligible for the next sweep.
	Release(ctx context.Context, qx Tx, id string) error
}
