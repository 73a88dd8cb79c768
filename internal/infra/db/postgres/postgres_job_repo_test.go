//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/averbusem/unbroken-vpn-bot/internal/domain"
	"github.com/averbusem/unbroken-vpn-bot/internal/domain/model"
)

func TestJobRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}

	ctx := context.Background()
	repo := NewJobRepo(testPool)

	t.Run("add rejects a duplicate id", func(t *testing.T) {
		cleanup(t)
		j := &model.Job{ID: "deactivate_sub-1", RunAt: time.Now().UTC(), Handler: model.HandlerDeactivate, Args: `{"sub_id":"sub-1"}`, CreatedAt: time.Now().UTC()}
		if err := repo.Add(ctx, nil, j); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
		if err := repo.Add(ctx, nil, j); err != domain.ErrAlreadyExists {
			t.Errorf("expected ErrAlreadyExists, got %v", err)
		}
	})

	t.Run("replace is a no-op beyond updating run_at", func(t *testing.T) {
		cleanup(t)
		id := "deactivate_sub-2"
		first := time.Now().UTC()
		j := &model.Job{ID: id, RunAt: first, Handler: model.HandlerDeactivate, Args: `{"sub_id":"sub-2"}`, CreatedAt: first}
		if err := repo.Replace(ctx, nil, j); err != nil {
			t.Fatalf("Replace (insert) failed: %v", err)
		}

		second := first.Add(24 * time.Hour)
		j.RunAt = second
		if err := repo.Replace(ctx, nil, j); err != nil {
			t.Fatalf("Replace (update) failed: %v", err)
		}

		got, err := repo.Get(ctx, nil, id)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if !got.RunAt.Equal(second) {
			t.Errorf("expected run_at=%v, got %v", second, got.RunAt)
		}
	})

	t.Run("due lists only jobs at or before the cutoff", func(t *testing.T) {
		cleanup(t)
		now := time.Now().UTC()
		past := &model.Job{ID: "deactivate_sub-3", RunAt: now.Add(-time.Hour), Handler: model.HandlerDeactivate, Args: `{"sub_id":"sub-3"}`, CreatedAt: now}
		future := &model.Job{ID: "deactivate_sub-4", RunAt: now.Add(time.Hour), Handler: model.HandlerDeactivate, Args: `{"sub_id":"sub-4"}`, CreatedAt: now}
		if err := repo.Add(ctx, nil, past); err != nil {
			t.Fatalf("Add past failed: %v", err)
		}
		if err := repo.Add(ctx, nil, future); err != nil {
			t.Fatalf("Add future failed: %v", err)
		}

		due, err := repo.Due(ctx, nil, now)
		if err != nil {
			t.Fatalf("Due failed: %v", err)
		}
		if len(due) != 1 || due[0].ID != "deactivate_sub-3" {
			t.Fatalf("expected only the past job due, got %+v", due)
		}
	})

	t.Run("remove of a missing job surfaces ErrNotFound", func(t *testing.T) {
		cleanup(t)
		if err := repo.Remove(ctx, nil, "does-not-exist"); err != domain.ErrNotFound {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}
