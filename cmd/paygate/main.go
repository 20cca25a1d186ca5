package main

import (
	"context"

	"github.com/tuncanbit/paygate/internal/application/accessservice"
	authservice "github.com/tuncanbit/paygate/internal/application/auth"
	"github.com/tuncanbit/paygate/internal/application/reconcileservice"
	"github.com/tuncanbit/paygate/internal/infrastructure/rpc"
	"github.com/tuncanbit/paygate/internal/ratelimit"
	"github.com/tuncanbit/paygate/internal/repositories/paymentrepo"
	"github.com/tuncanbit/paygate/internal/scheduler"
	"github.com/tuncanbit/paygate/internal/server"
	"github.com/tuncanbit/paygate/internal/server/websocket"
	"github.com/tuncanbit/paygate/pkg/config"
	"github.com/tuncanbit/paygate/pkg/logger"
)

func main() {
	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	log = logger.NewWithConfig(logger.Config{Level: cfg.Logging.Level, Pretty: cfg.Logging.Pretty})

	paymentRepo := paymentrepo.New(cfg.Payment.LedgerFile, log)
	walletClient := rpc.NewWalletClient(cfg.Wallet, log)
	limiter := ratelimit.New(cfg.RateLimit, log)

	wsHub := websocket.NewWsHub(log)
	go wsHub.Run()

	reconcileSvc := reconcileservice.New(paymentRepo, walletClient, cfg.Payment, log, wsHub)
	accessSvc := accessservice.New(paymentRepo, cfg.Payment, cfg.Access, log)
	authSvc := authservice.NewAuthService(cfg, log)

	sched := scheduler.New(log)
	sched.Register("reconcile", cfg.Payment.PollInterval, reconcileSvc.ReconcilePending)
	sched.Register("expiry-sweep", cfg.Payment.SweepInterval, reconcileSvc.SweepExpired)
	sched.Register("retention-prune", cfg.Payment.RetentionInterval, reconcileSvc.PruneConfirmed)
	sched.Register("ratelimit-sweep", cfg.RateLimit.SweepInterval, func(ctx context.Context) error {
		limiter.Sweep()
		return nil
	})
	sched.Start(context.Background())

	srv := server.New(cfg, reconcileSvc, accessSvc, authSvc, limiter, wsHub, log)
	srv.Start()

	// let any in-flight reconciliation pass finish before the final flush
	sched.Stop()
	if err := paymentRepo.Save(); err != nil {
		log.Error().Err(err).Msg("Failed to flush payment ledger on shutdown")
	} else {
		log.Info().Msg("Payment ledger flushed")
	}
}
