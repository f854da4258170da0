// Package schedule drives the Daemon Loop's tick cadence: a plain
// time.Ticker by default, or a cron expression via robfig/cron/v3 when
// one is configured, so an operator can restrict monitoring to, say,
// business hours or every-N-minutes-at-:05 instead of a fixed period.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// TickFunc is invoked once per scheduled tick.
type TickFunc func(ctx context.Context)

// TickScheduler paces calls to a TickFunc on either a fixed interval or
// a cron expression.
type TickScheduler struct {
	interval time.Duration
	cronExpr string
	logger   *slog.Logger
}

// New creates a TickScheduler. If cronExpr is non-empty it takes
// precedence over interval; interval is used as the fixed-period
// fallback otherwise.
func New(interval time.Duration, cronExpr string, logger *slog.Logger) *TickScheduler {
	return &TickScheduler{
		interval: interval,
		cronExpr: cronExpr,
		logger:   logger.With("component", "scheduler"),
	}
}

// Run blocks, invoking fn on every tick, until ctx is cancelled.
func (s *TickScheduler) Run(ctx context.Context, fn TickFunc) error {
	if s.cronExpr != "" {
		return s.runCron(ctx, fn)
	}
	return s.runTicker(ctx, fn)
}

func (s *TickScheduler) runTicker(ctx context.Context, fn TickFunc) error {
	s.logger.Info("tick scheduler started", "mode", "interval", "interval", s.interval)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("tick scheduler stopped")
			return nil
		case <-ticker.C:
			fn(ctx)
		}
	}
}

func (s *TickScheduler) runCron(ctx context.Context, fn TickFunc) error {
	c := cron.New(cron.WithParser(cron.NewParser(
		cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow,
	)))

	_, err := c.AddFunc(s.cronExpr, func() { fn(ctx) })
	if err != nil {
		return fmt.Errorf("invalid monitor_schedule %q: %w", s.cronExpr, err)
	}

	s.logger.Info("tick scheduler started", "mode", "cron", "schedule", s.cronExpr)
	c.Start()

	<-ctx.Done()
	<-c.Stop().Done()
	s.logger.Info("tick scheduler stopped")
	return nil
}
