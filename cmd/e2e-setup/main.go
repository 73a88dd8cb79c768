package main

import (
	"context"
	"log"

	"github.com/averbusem/unbroken-vpn-bot/internal/config"
	"github.com/averbusem/unbroken-vpn-bot/internal/domain/model"
	"github.com/averbusem/unbroken-vpn-bot/internal/infra/db/postgres"
	"github.com/averbusem/unbroken-vpn-bot/internal/infra/redis"

	"github.com/jackc/pgx/v4/pgxpool"
)

// This script is for setting up a clean, predictable database state
// for manual end-to-end testing.
func main() {
	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config load: %v", err)
	}

	// --- Connect to Postgres ---
	pool, err := postgres.NewPgxPool(ctx, cfg.DatabaseDSN(), 5)
	if err != nil {
		log.Fatalf("postgres connection failed: %v", err)
	}
	defer pool.Close()

	// --- Connect to Redis ---
	redisClient, err := redis.NewClient(ctx, &cfg.Redis)
	if err != nil {
		log.Fatalf("redis connection failed: %v", err)
	}
	defer redisClient.Close()

	log.Println("--- Starting E2E Environment Setup ---")

	// 1. Clean the Redis cache to remove any stale locks/idempotency keys.
	log.Println("[1/3] Wiping Redis cache...")
	if err := redisClient.FlushDB(ctx); err != nil {
		log.Fatalf("failed to flush redis: %v", err)
	}

	// 2. Clean the database completely.
	log.Println("[2/3] Wiping all existing database data...")
	_, err = pool.Exec(ctx, `
		TRUNCATE
			users, tariffs, subscriptions, referrals, payments, scheduler_jobs
		RESTART IDENTITY CASCADE;
	`)
	if err != nil {
		log.Fatalf("failed to truncate tables: %v", err)
	}

	// 3. Seed the standard tariffs the bot offers.
	log.Println("[3/3] Seeding standard tariffs...")
	seedTariffs(ctx, pool)

	log.Println("--- E2E Environment Setup Complete ---")
}

// seedTariffs mirrors cmd/seed so the e2e environment starts with the same
// plan catalog a real deployment would.
func seedTariffs(ctx context.Context, pool *pgxpool.Pool) {
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
		if err := tariffs.Save(ctx, nil, t); err != nil {
			log.Printf("failed to save tariff %s: %v", sd.name, err)
		}
	}
}
