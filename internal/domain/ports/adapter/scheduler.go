package adapter

import (
	"context"

	"github.com/averbusem/unbroken-vpn-bot/internal/domain/model"
)

// Scheduler is the Subscription Service's view of the Job Store &
// Scheduler: enough to plan and cancel the DEACTIVATE/NOTIFY projection of
// a Subscription's lifecycle without depending on the scheduler's own
// dispatch internals.
type Scheduler interface {
	Add(ctx context.Context, j *model.Job) error
	Replace(ctx context.Context, j *model.Job) error
	Remove(ctx context.Context, id string) error
}
