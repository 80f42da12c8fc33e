package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"email-lookup-service/internal/config"
	"email-lookup-service/internal/domain/ports/adapter"
	pg "email-lookup-service/internal/infra/db/postgres"
	"email-lookup-service/internal/infra/logging"
	"email-lookup-service/internal/infra/lookup"
	"email-lookup-service/internal/infra/metrics"
	"email-lookup-service/internal/infra/quota"
	red "email-lookup-service/internal/infra/redis"
	"email-lookup-service/internal/infra/sched"
	"email-lookup-service/internal/infra/web"
	"email-lookup-service/internal/infra/worker"
	"email-lookup-service/internal/usecase"
)

const tokenTTL = 24 * time.Hour

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, unlimited quota)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("dev mode enabled")
	}

	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.PoolSize)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()
	if err := pg.EnsureSchema(ctx, pool); err != nil {
		log.Fatalf("schema: %v", err)
	}

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	defer redisClient.Close()
	locker := red.NewLocker(redisClient)
	queue := red.NewDispatchQueue(redisClient, cfg.Worker.QueueKey, logger)

	// ---- Repositories ----
	jobRepo := pg.NewJobRepo(pool)
	txm := pg.NewTxManager(pool)

	// ---- Adapters ----
	lookupAdapter := lookup.NewHTTPAdapter(cfg.Lookup, logger)
	var quotaSvc adapter.QuotaService
	if cfg.Quota.BaseURL != "" {
		quotaSvc = quota.NewHTTPQuota(cfg.Quota)
	} else if cfg.Runtime.Dev {
		logger.Warn().Msg("no quota service configured; running unlimited")
		quotaSvc = quota.Unlimited{}
	} else {
		log.Fatalf("quota: base_url is required outside dev mode")
	}

	// ---- Worker, dispatcher ----
	batchWorker := worker.NewBatchWorker(jobRepo, lookupAdapter, locker, cfg.Worker.ItemInterval, logger)
	workerPool := worker.NewPool(cfg.Worker.PoolSize, logger)
	workerPool.Start(ctx)
	defer workerPool.Stop()
	dispatcher := worker.NewDispatcher(queue, workerPool, batchWorker, logger)
	go dispatcher.Start(ctx)

	// ---- Use cases ----
	submitUC := usecase.NewSubmitUseCase(jobRepo, quotaSvc, dispatcher, logger)
	jobUC := usecase.NewJobUseCase(jobRepo, logger)
	recoveryUC := usecase.NewRecoveryUseCase(jobRepo, txm, dispatcher, cfg.Recovery.Staleness, cfg.Recovery.MaxAttempts, logger)

	// Re-dispatch whatever a previous process left behind before taking
	// new traffic.
	if n, err := recoveryUC.RecoverStuckJobs(ctx); err != nil {
		logger.Error().Err(err).Msg("startup recovery sweep failed")
	} else if n > 0 {
		logger.Info().Int("count", n).Msg("recovered jobs from previous run")
	}

	recoveryWorker := sched.NewRecoveryWorker(cfg.Recovery.Interval, recoveryUC, logger)
	go func() { _ = recoveryWorker.Run(ctx) }()

	// ---- HTTP API ----
	auth := web.NewAuthManager(cfg.Server.JWTSecret, tokenTTL)
	srv := web.NewServer(submitUC, jobUC, auth, logger)
	server := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Server.Port), Handler: srv.Router()}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http api listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server error")
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown error")
	}
	cancel()
}
