package worker

// integrity_cron.go
// Background goroutine that periodically runs the integrity check and,
// when enabled, auto-repair. Uses the Circuit Breaker so a struggling
// database stops the maintenance loop instead of being hammered by it.

import (
	"context"
	"time"

	"github.com/tipatpati/golden-phone-management-sub010/internal/infra"
	"github.com/tipatpati/golden-phone-management-sub010/internal/service"

	"github.com/rs/zerolog/log"
)

const defaultIntegrityInterval = 15 * time.Minute

// IntegrityCronConfig holds all dependencies for the maintenance goroutine.
type IntegrityCronConfig struct {
	Checker    service.IntegrityChecker
	Repair     service.RepairService
	CB         *infra.CircuitBreaker
	Interval   time.Duration
	AutoRepair bool
}

// StartIntegrityCron launches a background goroutine that ticks on the
// configured interval, runs the read-only check, and optionally repairs.
// It respects the context for graceful shutdown.
func StartIntegrityCron(ctx context.Context, cfg IntegrityCronConfig) {
	if cfg.Interval <= 0 {
		cfg.Interval = defaultIntegrityInterval
	}
	go func() {
		ticker := time.NewTicker(cfg.Interval)
		defer ticker.Stop()

		log.Info().
			Dur("interval", cfg.Interval).
			Bool("auto_repair", cfg.AutoRepair).
			Msg("integrity_cron: started")

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("integrity_cron: shutting down")
				return
			case <-ticker.C:
				runIntegrityTick(ctx, cfg)
			}
		}
	}()
}

func runIntegrityTick(ctx context.Context, cfg IntegrityCronConfig) {
	// If CB is open, skip entirely — don't hammer a struggling database
	if cfg.CB != nil && cfg.CB.State() == infra.CBOpen {
		log.Debug().Msg("integrity_cron: circuit breaker is open, skipping tick")
		return
	}

	run := func() error {
		report, err := cfg.Checker.RunCheck(ctx)
		if err != nil {
			return err
		}
		if report.Clean() {
			return nil
		}
		log.Warn().
			Int("findings", report.TotalFindings()).
			Msg("integrity_cron: divergence detected")
		if !cfg.AutoRepair {
			return nil
		}
		result, err := cfg.Repair.AutoRepair(ctx, report)
		if err != nil {
			return err
		}
		if result.Remaining > 0 || len(result.Errors) > 0 {
			log.Warn().
				Int("remaining", result.Remaining).
				Strs("errors", result.Errors).
				Msg("integrity_cron: repair did not fully converge")
		}
		return nil
	}

	var err error
	if cfg.CB != nil {
		err = cfg.CB.Execute(run)
	} else {
		err = run()
	}
	if err != nil {
		log.Error().Err(err).Msg("integrity_cron: tick failed")
	}
}
