// Package daemon implements the Daemon Loop: the periodic driver that
// samples the host, evaluates thresholds, health-checks and samples
// every registered process, sweeps for auto-restarts, and garbage
// collects old logs, once per tick.
package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/processguard/processguard/internal/alert"
	"github.com/processguard/processguard/internal/audit"
	"github.com/processguard/processguard/internal/config"
	"github.com/processguard/processguard/internal/crashpolicy"
	"github.com/processguard/processguard/internal/hostprobe"
	"github.com/processguard/processguard/internal/logger"
	"github.com/processguard/processguard/internal/metrics"
	"github.com/processguard/processguard/internal/model"
	"github.com/processguard/processguard/internal/process"
	"github.com/processguard/processguard/internal/schedule"
	"github.com/processguard/processguard/internal/tracing"
)

const defaultBackoff = 5 * time.Second

// Loop owns one tick of orchestration across every other component:
// the host prober, the process registry/supervisor, the alert manager,
// the crash policy engine (consulted indirectly via the supervisor's
// auto-restart sweep), and the log store's retention sweep.
type Loop struct {
	cfg *config.Config

	registry   *process.Registry
	supervisor *process.Supervisor
	prober     *hostprobe.Prober
	alerts     *alert.Manager
	crash      *crashpolicy.Engine
	logStore   *logger.Store
	audit      *audit.Logger

	logger *slog.Logger

	backoff time.Duration
}

// New creates a Daemon Loop. All dependencies are assumed already
// wired (process registration, notification sinks, crash policies);
// Loop only orchestrates calls across them on a tick.
func New(
	cfg *config.Config,
	registry *process.Registry,
	supervisor *process.Supervisor,
	prober *hostprobe.Prober,
	alerts *alert.Manager,
	crash *crashpolicy.Engine,
	logStore *logger.Store,
	auditLogger *audit.Logger,
	log *slog.Logger,
) *Loop {
	return &Loop{
		cfg:        cfg,
		registry:   registry,
		supervisor: supervisor,
		prober:     prober,
		alerts:     alerts,
		crash:      crash,
		logStore:   logStore,
		audit:      auditLogger,
		logger:     log.With("component", "daemon"),
		backoff:    defaultBackoff,
	}
}

// Run starts the tick scheduler and blocks until ctx is cancelled.
// Shutdown is cooperative: the in-flight tick (if any) always
// completes before Run returns.
func (l *Loop) Run(ctx context.Context) error {
	interval := time.Duration(l.cfg.MonitorInterval) * time.Second
	if interval <= 0 {
		interval = 10 * time.Second
	}

	sched := schedule.New(interval, l.cfg.MonitorSchedule, l.logger)

	l.logger.Info("daemon loop starting", "interval", interval, "cron", l.cfg.MonitorSchedule)
	if l.audit != nil {
		l.audit.LogSystemStart("")
	}

	err := sched.Run(ctx, l.tick)

	l.logger.Info("daemon loop shutting down")
	l.supervisor.Cleanup(context.Background())
	if l.audit != nil {
		l.audit.LogSystemShutdown("context cancelled", true)
	}

	return err
}

// tick runs one full orchestration pass. An error from any single stage
// is logged and does not abort the remaining stages. A panic ends the
// tick: the deferred recover logs it, records it on the whole-tick span
// and sleeps for the backoff; otherwise the span records success.
func (l *Loop) tick(ctx context.Context) {
	ctx, span := tracing.StartDaemonTickSpan(ctx)
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("daemon tick panicked, backing off", "panic", r)
			tracing.RecordError(span, fmt.Errorf("panic: %v", r), "daemon.tick")
			time.Sleep(l.backoff)
			return
		}
		tracing.RecordSuccess(span)
	}()

	l.sampleHost(ctx)
	l.tickProcesses(ctx)
	l.supervisor.AutoRestartSweep(ctx)
	l.collectGarbage(ctx)
}

func (l *Loop) sampleHost(ctx context.Context) {
	_, span := tracing.StartProcessManagerSpan(ctx, "host_sample")
	defer span.End()

	sample := l.prober.Sample()
	l.alerts.CheckSystemAlerts(sample)
	metrics.SetSystemMetrics(sample.CPUPercent, sample.MemoryPercent, diskPercents(sample))
}

func diskPercents(sample model.SystemMetrics) map[string]float64 {
	out := make(map[string]float64, len(sample.DiskUsage))
	for mount, usage := range sample.DiskUsage {
		out[mount] = usage.Percent
	}
	return out
}

func (l *Loop) tickProcesses(ctx context.Context) {
	for _, name := range l.registry.Names() {
		l.tickProcess(ctx, name)
	}
}

func (l *Loop) tickProcess(ctx context.Context, name string) {
	ctx, span := tracing.StartProcessSpan(ctx, name, "tick")
	defer span.End()

	_, hcSpan := tracing.StartHealthCheckSpan(ctx, name, "liveness")
	l.supervisor.HealthCheck(name)
	hcSpan.End()

	sample, err := l.supervisor.SampleMetrics(name)
	if err != nil {
		tracing.RecordError(span, err, "sample_metrics")
		l.logger.Warn("sample_metrics failed", "process", name, "error", err)
		return
	}

	proc, ok := l.registry.Get(name)
	if !ok {
		return
	}
	l.alerts.CheckProcessAlerts(proc.Config, sample)

	if sample.Status == model.StateRunning {
		msg := fmt.Sprintf("cpu=%.1f%% mem=%.1f%% (%.1fMB) threads=%d", sample.CPUPercent, sample.MemoryPercent, sample.MemoryMB, sample.Threads)
		if err := l.logStore.Append(name, "DEBUG", msg); err != nil {
			l.logger.Warn("debug log append failed", "process", name, "error", err)
		}
	}

	tracing.SetAttributes(span, attribute.String("process.status", string(sample.Status)))
}

func (l *Loop) collectGarbage(ctx context.Context) {
	if !l.cfg.CleanupLogs {
		return
	}

	_, span := tracing.StartProcessManagerSpan(ctx, "log_gc")
	defer span.End()

	if err := l.logStore.GC(l.cfg.LogRetentionDays); err != nil {
		tracing.RecordError(span, err, "log_gc")
		l.logger.Warn("log gc failed", "error", err)
	}
}
