package scheduler_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/averbusem/unbroken-vpn-bot/internal/domain"
	"github.com/averbusem/unbroken-vpn-bot/internal/domain/model"
	"github.com/averbusem/unbroken-vpn-bot/internal/domain/ports/repository"
	"github.com/averbusem/unbroken-vpn-bot/internal/infra/scheduler"
)

// fakeJobRepo is an in-memory stand-in for repository.JobRepository.
type fakeJobRepo struct {
	mu   sync.Mutex
	rows map[string]*model.Job
}

func newFakeJobRepo() *fakeJobRepo {
	return &fakeJobRepo{rows: make(map[string]*model.Job)}
}

func (f *fakeJobRepo) Add(_ context.Context, _ repository.Tx, j *model.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[j.ID]; ok {
		return domain.ErrAlreadyExists
	}
	cp := *j
	f.rows[j.ID] = &cp
	return nil
}

func (f *fakeJobRepo) Replace(_ context.Context, _ repository.Tx, j *model.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *j
	cp.LockedBy = ""
	cp.LockedAt = nil
	f.rows[j.ID] = &cp
	return nil
}

func (f *fakeJobRepo) Get(_ context.Context, _ repository.Tx, id string) (*model.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.rows[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *j
	return &cp, nil
}

func (f *fakeJobRepo) Remove(_ context.Context, _ repository.Tx, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.rows, id)
	return nil
}

func (f *fakeJobRepo) Due(_ context.Context, _ repository.Tx, asOf time.Time) ([]*model.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Job
	for _, j := range f.rows {
		if j.LockedBy == "" && !j.RunAt.After(asOf) {
			cp := *j
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeJobRepo) Claim(_ context.Context, _ repository.Tx, id, owner string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.rows[id]
	if !ok || j.LockedBy != "" {
		return false, nil
	}
	j.LockedBy = owner
	return true, nil
}

func (f *fakeJobRepo) Release(_ context.Context, _ repository.Tx, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if j, ok := f.rows[id]; ok {
		j.LockedBy = ""
	}
	return nil
}

func testLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met within deadline")
}

func TestScheduler_CatchUpSweepFiresOverdueJobsOnStart(t *testing.T) {
	repo := newFakeJobRepo()
	_ = repo.Add(context.Background(), nil, &model.Job{
		ID: "deactivate_sub-1", RunAt: time.Now().Add(-time.Hour), Handler: model.HandlerDeactivate, Args: `{"sub_id":"sub-1"}`,
	})

	var fired int32
	var mu sync.Mutex
	var firedIDs []string

	s := scheduler.New(repo, testLogger(), 50*time.Millisecond)
	s.Register(model.HandlerDeactivate, func(ctx context.Context, args string) error {
		mu.Lock()
		firedIDs = append(firedIDs, args)
		fired++
		mu.Unlock()
		return nil
	})

	s.Start(context.Background())
	defer s.Stop()

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return fired == 1
	})

	if _, err := repo.Get(context.Background(), nil, "deactivate_sub-1"); err != domain.ErrNotFound {
		t.Fatalf("expected job removed after successful handler, got err=%v", err)
	}
}

func TestScheduler_FailedHandlerLeavesJobForRetry(t *testing.T) {
	repo := newFakeJobRepo()
	_ = repo.Add(context.Background(), nil, &model.Job{
		ID: "notify_sub-2", RunAt: time.Now().Add(-time.Minute), Handler: model.HandlerNotify, Args: `{"sub_id":"sub-2"}`,
	})

	var calls int32
	var mu sync.Mutex

	s := scheduler.New(repo, testLogger(), 20*time.Millisecond)
	s.Register(model.HandlerNotify, func(ctx context.Context, args string) error {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n == 1 {
			return domain.ErrOperationFailed
		}
		return nil
	})

	s.Start(context.Background())
	defer s.Stop()

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return calls >= 2
	})

	if _, err := repo.Get(context.Background(), nil, "notify_sub-2"); err != nil && calls < 2 {
		t.Fatalf("job should still exist while retry pending: %v", err)
	}
}

func TestScheduler_ReplaceReschedulesAndWakesPromptly(t *testing.T) {
	repo := newFakeJobRepo()
	s := scheduler.New(repo, testLogger(), time.Hour) // long poll: only the wake channel should fire this

	var fired int32
	s.Register(model.HandlerDeactivate, func(ctx context.Context, args string) error {
		fired++
		return nil
	})

	s.Start(context.Background())
	defer s.Stop()

	if err := s.Replace(context.Background(), &model.Job{
		ID: "deactivate_sub-3", RunAt: time.Now().Add(-time.Second), Handler: model.HandlerDeactivate, Args: `{}`,
	}); err != nil {
		t.Fatalf("Replace: %v", err)
	}

	waitFor(t, func() bool { return fired == 1 })
}

func TestScheduler_AddRejectsDuplicateJobID(t *testing.T) {
	repo := newFakeJobRepo()
	s := scheduler.New(repo, testLogger(), time.Hour)

	j := &model.Job{ID: "deactivate_sub-4", RunAt: time.Now().Add(time.Hour), Handler: model.HandlerDeactivate, Args: `{}`}
	if err := s.Add(context.Background(), j); err != nil {
		t.Fatalf("first Add: %v", err)
	}
	if err := s.Add(context.Background(), j); err != domain.ErrAlreadyExists {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}
