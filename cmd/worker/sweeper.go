package main

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"bookreport-backend/internal/shared/config"
	"bookreport-backend/internal/shared/telemetry"
)

const sweepTimeout = time.Minute

type staleSweeper interface {
	SweepStale(ctx context.Context, staleAfter time.Duration) (int, error)
}

// startSweeper schedules the stale processing sweep on cfg.Schedule.
func startSweeper(svc staleSweeper, cfg config.SweepConfig) (*cron.Cron, error) {
	c := cron.New()
	if _, err := c.AddFunc(cfg.Schedule, sweepJob(svc, cfg.StaleAfter)); err != nil {
		return nil, fmt.Errorf("schedule %q: %w", cfg.Schedule, err)
	}
	c.Start()
	telemetry.Info("worker.sweeper_started", map[string]any{
		"schedule":    cfg.Schedule,
		"stale_after": cfg.StaleAfter.String(),
	})
	return c, nil
}

func sweepJob(svc staleSweeper, staleAfter time.Duration) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
		defer cancel()
		n, err := svc.SweepStale(ctx, staleAfter)
		if err != nil {
			telemetry.Error("worker.sweep_failed", map[string]any{"error": err.Error(), "swept": n})
		}
	}
}

func stopSweeper(c *cron.Cron) {
	if c == nil {
		return
	}
	<-c.Stop().Done()
}
