package process

import (
	"context"
	"syscall"

	"github.com/processguard/processguard/internal/metrics"
	"github.com/processguard/processguard/internal/model"
)

// HealthCheck probes whether name's pid still responds. The actual
// FAILED transition on exit is owned by the monitor goroutine started
// in Start; this operation exists for the daemon tick to record a
// health-check sample even when nothing has changed, matching the
// spec's per-tick health_check step ahead of sample_metrics.
func (s *Supervisor) HealthCheck(name string) bool {
	proc, ok := s.registry.Get(name)
	if !ok || proc.Status != model.StateRunning || proc.PID == nil {
		return false
	}

	healthy := syscall.Kill(*proc.PID, syscall.Signal(0)) == nil
	metrics.RecordHealthCheck(name, healthy)
	return healthy
}

// AutoRestartSweep scans the registry for every FAILED process with
// auto_restart enabled and restart_count under its cap, and restarts
// each one the Crash Policy Engine's gate still permits.
func (s *Supervisor) AutoRestartSweep(ctx context.Context) {
	for _, proc := range s.registry.List() {
		if proc.Status != model.StateFailed {
			continue
		}
		if !proc.Config.AutoRestart || proc.RestartCount >= proc.Config.MaxRestarts {
			continue
		}

		if s.crash != nil {
			if ok, reason := s.crash.CanRestart(proc.Config.Name); !ok {
				s.logger.Info("auto-restart blocked by crash policy", "process", proc.Config.Name, "reason", reason)
				continue
			}
		}

		if err := s.Restart(ctx, proc.Config.Name); err != nil {
			s.logger.Error("auto-restart failed", "process", proc.Config.Name, "error", err)
		}
	}
}

// Cleanup force-stops every currently running process. Called on
// daemon shutdown.
func (s *Supervisor) Cleanup(ctx context.Context) {
	for _, proc := range s.registry.List() {
		if proc.Status != model.StateRunning {
			continue
		}
		if err := s.Stop(ctx, proc.Config.Name, true); err != nil {
			s.logger.Error("cleanup stop failed", "process", proc.Config.Name, "error", err)
		}
	}
}
