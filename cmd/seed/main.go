// File: cmd/seed/main.go
package main

import (
	"context"
	"log"

	"github.com/averbusem/unbroken-vpn-bot/internal/config"
	"github.com/averbusem/unbroken-vpn-bot/internal/domain/model"
	"github.com/averbusem/unbroken-vpn-bot/internal/infra/db/postgres"
)

// seed populates the tariffs table with the trial plan plus a small set of
// paid plans. Safe to re-run: an existing tariff of the same name keeps its
// id, and Save upserts on id conflict.
func main() {
	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config load: %v", err)
	}

	pool, err := postgres.NewPgxPool(ctx, cfg.DatabaseDSN(), 5)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	tariffs := postgres.NewTariffRepo(pool)

	seeds := []struct {
		name         string
		durationDays int
		price        float64
	}{
		{model.TrialTariffName, 3, 0},
		{"monthly", 30, 99000},
		{"quarterly", 90, 249000},
		{"yearly", 365, 799000},
	}

	for _, sd := range seeds {
		t, err := model.NewTariff(sd.name, sd.durationDays, sd.price)
		if err != nil {
			log.Fatalf("build tariff %s: %v", sd.name, err)
		}
		if existing, ferr := tariffs.FindByName(ctx, nil, sd.name); ferr == nil {
			t.ID = existing.ID
		}
		if err := tariffs.Save(ctx, nil, t); err != nil {
			log.Printf("tariff upsert %s: %v", sd.name, err)
			continue
		}
		log.Printf("tariff upserted: %s (%d days, %.0f)", t.Name, t.DurationDays, t.Price)
	}

	log.Println("seed complete")
}
