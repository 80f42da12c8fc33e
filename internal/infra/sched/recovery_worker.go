package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"email-lookup-service/internal/usecase"
)

// RecoveryWorker periodically sweeps for jobs stuck in processing and hands
// them back to the recovery use case.
type RecoveryWorker struct {
	interval time.Duration
	recUC    usecase.RecoveryUseCase
	log      *zerolog.Logger
}

func NewRecoveryWorker(interval time.Duration, recUC usecase.RecoveryUseCase, logger *zerolog.Logger) *RecoveryWorker {
	recLog := logger.With().Str("component", "RecoveryWorker").Logger()
	return &RecoveryWorker{
		interval: interval,
		recUC:    recUC,
		log:      &recLog,
	}
}

func (w *RecoveryWorker) Run(ctx context.Context) error {
	w.log.Info().Msg("Starting recovery worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping recovery worker")
			return ctx.Err()
		case <-ticker.C:
			n, err := w.recUC.RecoverStuckJobs(ctx)
			if err != nil {
				w.log.Error().Err(err).Msg("recovery sweep error")
			}
			if n > 0 {
				w.log.Info().Int("count", n).Msg("stuck jobs recovered")
			}
		}
	}
}
