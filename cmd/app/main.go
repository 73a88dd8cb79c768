// File: cmd/app/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/averbusem/unbroken-vpn-bot/internal/config"
	"github.com/averbusem/unbroken-vpn-bot/internal/domain/model"
	pg "github.com/averbusem/unbroken-vpn-bot/internal/infra/db/postgres"
	httpapi "github.com/averbusem/unbroken-vpn-bot/internal/infra/http"
	"github.com/averbusem/unbroken-vpn-bot/internal/infra/logging"
	"github.com/averbusem/unbroken-vpn-bot/internal/infra/metrics"
	"github.com/averbusem/unbroken-vpn-bot/internal/infra/notify"
	red "github.com/averbusem/unbroken-vpn-bot/internal/infra/redis"
	"github.com/averbusem/unbroken-vpn-bot/internal/infra/scheduler"
	"github.com/averbusem/unbroken-vpn-bot/internal/infra/vpn"
	"github.com/averbusem/unbroken-vpn-bot/internal/service"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := logging.New(cfg.Log, cfg.Mode == "TEST")
	log.Info().Str("mode", cfg.Mode).Msg("starting")

	metrics.MustRegister()
	metrics.SetBuildInfo("dev", "unknown")

	maxConns := int32(10)
	if cfg.Mode == "TEST" {
		maxConns = 1
	}
	pool, err := pg.TryConnect(ctx, cfg.DatabaseDSN(), maxConns, 30*time.Second)
	if err != nil {
		log.Fatal().Err(err).Msg("postgres connect")
	}
	defer pg.ClosePgxPool(pool)

	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("redis connect")
	}
	defer redisClient.Close()
	locker := red.NewLocker(redisClient)

	vpnClient, err := vpn.NewOutlineClient(cfg.VPN.APIURL, cfg.VPN.CertSHA256)
	if err != nil {
		log.Fatal().Err(err).Msg("vpn client")
	}
	sink := notify.NewTelegramSink(cfg.Bot.Token)

	// ---- Repositories ----
	users := pg.NewUserRepo(pool)
	tariffs := pg.NewTariffRepo(pool)
	subs := pg.NewSubscriptionRepo(pool)
	referrals := pg.NewReferralRepo(pool)
	payments := pg.NewPaymentRepo(pool)
	jobs := pg.NewJobRepo(pool)

	txManager := pg.NewTxManager(pool)

	// ---- Scheduler ----
	sched := scheduler.New(jobs, log, cfg.Scheduler.PollEvery)

	// ---- Services ----
	subSvc := service.NewSubscriptionService(subs, tariffs, users, vpnClient, sink, sched, txManager, log)
	paySvc := service.NewPaymentService(payments, tariffs, subSvc, txManager, log)

	// UserService and ReferralService are the core's onboarding/referral
	// entry points, driven by the chat front-end's /start and referral-code
	// commands; that front-end is this backend's one named out-of-scope
	// collaborator (spec §1), so nothing here calls them beyond construction.
	_ = service.NewUserService(users, subs, referrals, subSvc, txManager, log)
	_ = service.NewReferralService(users, referrals, log)

	sched.Register(model.HandlerDeactivate, func(ctx context.Context, args string) error {
		subID, err := service.ParseJobArgs(args)
		if err != nil {
			return err
		}
		return subSvc.Deactivate(logging.WithSubscriptionID(ctx, subID), subID)
	})
	sched.Register(model.HandlerNotify, func(ctx context.Context, args string) error {
		subID, err := service.ParseJobArgs(args)
		if err != nil {
			return err
		}
		return subSvc.Notify(logging.WithSubscriptionID(ctx, subID), subID)
	})
	sched.Start(ctx)
	defer sched.Stop()

	go reportPoolStats(ctx, pool)

	// ---- HTTP surface: payment webhook + healthz/readyz/metrics ----
	httpSrv := httpapi.NewServer(paySvc, pool, redisClient, locker, cfg.Redis.TTL, log)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: httpSrv.Handler(),
	}
	go func() {
		log.Info().Str("addr", server.Addr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("http server stopped")
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	log.Info().Msg("shutdown requested")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = server.Shutdown(shutdownCtx)

	cancel()
}

// reportPoolStats feeds the db_pool_stats gauge from the pgxpool's own
// counters until ctx is cancelled.
func reportPoolStats(ctx context.Context, pool *pgxpool.Pool) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stat := pool.Stat()
			metrics.SetDBPoolStats(stat.TotalConns(), stat.IdleConns(), stat.TotalConns()-stat.IdleConns())
		}
	}
}
