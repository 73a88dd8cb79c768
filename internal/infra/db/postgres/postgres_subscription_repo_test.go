//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/averbusem/unbroken-vpn-bot/internal/domain"
	"github.com/averbusem/unbroken-vpn-bot/internal/domain/model"
)

func TestSubscriptionRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}

	ctx := context.Background()
	repo := NewSubscriptionRepo(testPool)
	userRepo := NewUserRepo(testPool)
	tariffRepo := NewTariffRepo(testPool)

	setup := func(t *testing.T) (*model.User, *model.Tariff) {
		cleanup(t)
		u, _ := model.NewUser(1111111111, "user1", "abcdef12")
		if err := userRepo.Save(ctx, nil, u); err != nil {
			t.Fatalf("save user: %v", err)
		}
		tariff, _ := model.NewTariff("month", 30, 199.0)
		if err := tariffRepo.Save(ctx, nil, tariff); err != nil {
			t.Fatalf("save tariff: %v", err)
		}
		return u, tariff
	}

	t.Run("save then find by user id and by id", func(t *testing.T) {
		u, tariff := setup(t)

		end := time.Now().UTC().Add(30 * 24 * time.Hour)
		sub := &model.Subscription{
			ID: "sub-1", UserID: u.ID, TariffID: tariff.ID,
			VPNKey: "ss://key", VPNKeyID: "key-1", EndDate: end, IsActive: true,
			CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC(),
		}
		if err := repo.Save(ctx, nil, sub); err != nil {
			t.Fatalf("Save failed: %v", err)
		}

		byUser, err := repo.FindByUserID(ctx, nil, u.ID)
		if err != nil {
			t.Fatalf("FindByUserID failed: %v", err)
		}
		if byUser.ID != "sub-1" {
			t.Errorf("expected sub-1, got %s", byUser.ID)
		}

		byID, err := repo.FindByID(ctx, nil, "sub-1")
		if err != nil {
			t.Fatalf("FindByID failed: %v", err)
		}
		if !byID.IsActive || byID.VPNKeyID != "key-1" {
			t.Errorf("unexpected subscription state: %+v", byID)
		}
	})

	t.Run("update applies a partial mutation", func(t *testing.T) {
		u, tariff := setup(t)
		sub := &model.Subscription{
			ID: "sub-2", UserID: u.ID, TariffID: tariff.ID,
			VPNKey: "ss://key", VPNKeyID: "key-2", EndDate: time.Now().UTC(), IsActive: true,
			CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC(),
		}
		if err := repo.Save(ctx, nil, sub); err != nil {
			t.Fatalf("Save failed: %v", err)
		}

		newEnd := time.Now().UTC().Add(60 * 24 * time.Hour)
		cnt := 1
		err := repo.Update(ctx, nil, "sub-2", model.SubscriptionUpdate{EndDate: &newEnd, CntPayments: &cnt})
		if err != nil {
			t.Fatalf("Update failed: %v", err)
		}

		got, err := repo.FindByID(ctx, nil, "sub-2")
		if err != nil {
			t.Fatalf("FindByID failed: %v", err)
		}
		if got.VPNKeyID != "key-2" {
			t.Errorf("expected vpn_key_id to survive the partial update, got %q", got.VPNKeyID)
		}
		if got.CntPayments != 1 {
			t.Errorf("expected cnt_payments=1, got %d", got.CntPayments)
		}
	})

	t.Run("update of a missing subscription surfaces ErrSubscriptionNotFound", func(t *testing.T) {
		setup(t)
		cnt := 1
		err := repo.Update(ctx, nil, "does-not-exist", model.SubscriptionUpdate{CntPayments: &cnt})
		if err != domain.ErrSubscriptionNotFound {
			t.Errorf("expected ErrSubscriptionNotFound, got %v", err)
		}
	})
}
