// Package scheduler implements the durable one-shot timer store described
// by the Job Store & Scheduler component: a scheduler_jobs table plus a
// polling worker that also sweeps immediately after Add or Replace, catch-up
// firing on startup, and at-most-one concurrent execution per job_id. A job
// whose run_at lies in the future fires on the first poll tick after it.
package scheduler

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/averbusem/unbroken-vpn-bot/internal/domain"
	"github.com/averbusem/unbroken-vpn-bot/internal/domain/model"
	"github.com/averbusem/unbroken-vpn-bot/internal/domain/ports/repository"
	"github.com/averbusem/unbroken-vpn-bot/internal/infra/metrics"
)

// Handler executes a fired job's side effects inside its own unit-of-work.
// A returned error leaves the job in the store (lock released) so the next
// sweep retries it; handlers must therefore be idempotent.
type Handler func(ctx context.Context, args string) error

// Scheduler is both the facade the Subscription Service schedules through
// and the background dispatcher that fires due jobs.
type Scheduler struct {
	jobs      repository.JobRepository
	log       *zerolog.Logger
	pollEvery time.Duration
	owner     string

	handlers map[model.HandlerKey]Handler

	inflight   map[string]struct{}
	inflightMu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	wake   chan struct{}
}

// New builds a Scheduler. pollEvery bounds the worst-case latency between a
// job becoming due and being fired when no closer wake-up arrives; it
// defaults to 5s if non-positive.
func New(jobs repository.JobRepository, log *zerolog.Logger, pollEvery time.Duration) *Scheduler {
	if pollEvery <= 0 {
		pollEvery = 5 * time.Second
	}
	host, _ := os.Hostname()
	return &Scheduler{
		jobs:      jobs,
		log:       log,
		pollEvery: pollEvery,
		owner:     host,
		handlers:  make(map[model.HandlerKey]Handler),
		inflight:  make(map[string]struct{}),
		wake:      make(chan struct{}, 1),
	}
}

// Register binds a handler key (HandlerDeactivate, HandlerNotify) to the
// function the dispatcher invokes when a matching job fires. Call before Start.
func (s *Scheduler) Register(key model.HandlerKey, h Handler) {
	s.handlers[key] = h
}

// Add schedules a new job, failing with domain.ErrAlreadyExists if job_id is taken.
func (s *Scheduler) Add(ctx context.Context, j *model.Job) error {
	if err := s.jobs.Add(ctx, nil, j); err != nil {
		return err
	}
	s.nudge()
	return nil
}

// Replace is remove-if-present-then-insert: the Subscription Service's
// re-planning call, used on every end_date change (alongside Remove for a
// NOTIFY job whose time has already passed).
func (s *Scheduler) Replace(ctx context.Context, j *model.Job) error {
	if err := s.jobs.Replace(ctx, nil, j); err != nil {
		return err
	}
	s.nudge()
	return nil
}

func (s *Scheduler) Get(ctx context.Context, id string) (*model.Job, error) {
	return s.jobs.Get(ctx, nil, id)
}

func (s *Scheduler) Remove(ctx context.Context, id string) error {
	return s.jobs.Remove(ctx, nil, id)
}

// nudge wakes the dispatch loop ahead of its next poll tick, e.g. after Add
// schedules something sooner than the loop would otherwise notice.
func (s *Scheduler) nudge() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Start runs a catch-up sweep — firing every already-due job once — and
// then enters the steady-state poll loop in a background goroutine.
// Calling Start twice has no effect.
func (s *Scheduler) Start(parentCtx context.Context) {
	if s.ctx != nil {
		return
	}
	ctx, cancel := context.WithCancel(parentCtx)
	s.ctx = ctx
	s.cancel = cancel
	s.done = make(chan struct{})

	s.sweep(ctx)
	go s.loop()
}

// Stop cancels the dispatch loop and waits for the loop goroutine to exit.
// In-flight handlers launched by the last sweep continue detached; they
// are each idempotent and self-release their lock on failure.
func (s *Scheduler) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.ctx = nil
	s.cancel = nil
}

func (s *Scheduler) loop() {
	defer close(s.done)
	ticker := time.NewTicker(s.pollEvery)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.sweep(s.ctx)
		case <-s.wake:
			s.sweep(s.ctx)
		}
	}
}

// sweep lists due-and-unlocked jobs and dispatches each.
func (s *Scheduler) sweep(ctx context.Context) {
	due, err := s.jobs.Due(ctx, nil, time.Now().UTC())
	if err != nil {
		s.log.Error().Err(err).Msg("scheduler: failed to list due jobs")
		return
	}
	metrics.SetJobsDue(len(due))
	for _, j := range due {
		s.dispatch(ctx, j)
	}
}

// dispatch claims j (both in-process, to avoid re-handing it out before the
// store reflects the claim, and in the store's locked_by column, to survive
// multiple dispatcher instances) and fires its handler in its own goroutine
// so one slow job_id never delays the rest of the sweep.
func (s *Scheduler) dispatch(ctx context.Context, j *model.Job) {
	s.inflightMu.Lock()
	if _, busy := s.inflight[j.ID]; busy {
		s.inflightMu.Unlock()
		return
	}
	s.inflight[j.ID] = struct{}{}
	s.inflightMu.Unlock()

	claimed, err := s.jobs.Claim(ctx, nil, j.ID, s.owner)
	if err != nil || !claimed {
		s.inflightMu.Lock()
		delete(s.inflight, j.ID)
		s.inflightMu.Unlock()
		return
	}

	go s.fire(j)
}

func (s *Scheduler) fire(j *model.Job) {
	defer func() {
		s.inflightMu.Lock()
		delete(s.inflight, j.ID)
		s.inflightMu.Unlock()
	}()

	handler, ok := s.handlers[j.Handler]
	if !ok {
		s.log.Error().Str("job_id", j.ID).Str("handler", string(j.Handler)).Msg("scheduler: no handler registered")
		s.release(j.ID)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := handler(ctx, j.Args); err != nil {
		s.log.Error().Err(err).Str("job_id", j.ID).Msg("scheduler: handler failed, leaving job for retry")
		metrics.IncJobFired(string(j.Handler), "failed")
		s.release(j.ID)
		return
	}
	metrics.IncJobFired(string(j.Handler), "success")

	if err := s.jobs.Remove(ctx, nil, j.ID); err != nil && err != domain.ErrNotFound {
		s.log.Error().Err(err).Str("job_id", j.ID).Msg("scheduler: failed to remove completed job")
	}
}

func (s *Scheduler) release(id string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.jobs.Release(ctx, nil, id); err != nil {
		s.log.Error().Err(err).Str("job_id", id).Msg("scheduler: failed to release job lock")
	}
}
