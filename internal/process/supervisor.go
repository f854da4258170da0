// Package process implements the Supervisor and Process Registry: the
// process lifecycle state machine, subprocess capture, and the
// auto-restart driver that consults the Crash Policy Engine before
// every restart attempt.
package process

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/processguard/processguard/internal/alert"
	"github.com/processguard/processguard/internal/audit"
	"github.com/processguard/processguard/internal/config"
	"github.com/processguard/processguard/internal/crashpolicy"
	"github.com/processguard/processguard/internal/logger"
	"github.com/processguard/processguard/internal/metrics"
	"github.com/processguard/processguard/internal/model"
)

// gracefulStopTimeout is the fixed deadline the spec's graceful stop
// path waits before escalating to KILL.
const gracefulStopTimeout = 10 * time.Second

// runningProcess tracks the live OS process backing one registered
// name. doneCh is closed exactly once, by the monitor goroutine's
// cmd.Wait(), so the stop path can block on it instead of calling
// Wait() a second time.
type runningProcess struct {
	mu            sync.Mutex
	cmd           *exec.Cmd
	pid           int
	doneCh        chan struct{}
	stdoutWriter  *logger.ProcessWriter
	stderrWriter  *logger.ProcessWriter
	stopRequested bool
	exitErr       error
}

// Supervisor spawns, signals, and reaps the child processes backing
// every entry in a Registry, driving each through the per-process
// state machine and sampling its resource usage.
type Supervisor struct {
	registry *Registry
	logStore *logger.Store
	resource *metrics.ResourceCollector
	crash    *crashpolicy.Engine
	alertMgr *alert.Manager
	audit    *audit.Logger
	logger   *slog.Logger

	mu         sync.Mutex
	running    map[string]*runningProcess
	loggingCfg map[string]*config.LoggingConfig
}

// New creates a Supervisor wired to its collaborators. resource,
// crash, and alertMgr may be nil in tests that only exercise the
// lifecycle state machine.
func New(registry *Registry, logStore *logger.Store, resource *metrics.ResourceCollector, crash *crashpolicy.Engine, alertMgr *alert.Manager, auditLogger *audit.Logger, log *slog.Logger) *Supervisor {
	return &Supervisor{
		registry:   registry,
		logStore:   logStore,
		resource:   resource,
		crash:      crash,
		alertMgr:   alertMgr,
		audit:      auditLogger,
		logger:     log.With("component", "supervisor"),
		running:    make(map[string]*runningProcess),
		loggingCfg: make(map[string]*config.LoggingConfig),
	}
}

// Register adds cfg to the Registry and lazily assigns a log file
// through the Log Store when the config doesn't already name one.
// logging configures the stdout/stderr ingestion pipeline (multiline,
// redaction, JSON extraction, filters); it may be nil.
func (s *Supervisor) Register(cfg *model.ProcessConfig, logging *config.LoggingConfig) error {
	if cfg.LogFile == "" && s.logStore != nil {
		path, err := s.logStore.CreateLogFile(cfg.Name)
		if err != nil {
			return fmt.Errorf("failed to assign log file for %s: %w", cfg.Name, err)
		}
		cfg.LogFile = path
	}
	if err := s.registry.Register(cfg); err != nil {
		return err
	}

	s.mu.Lock()
	s.loggingCfg[cfg.Name] = logging
	s.mu.Unlock()
	return nil
}

// Unregister stops name if running and asks the Log Store to delete
// its logs.
func (s *Supervisor) Unregister(ctx context.Context, name string) error {
	proc, ok := s.registry.Get(name)
	if !ok {
		return fmt.Errorf("process %q not registered", name)
	}
	if proc.Status == model.StateRunning || proc.Status == model.StateStopping {
		if err := s.Stop(ctx, name, false); err != nil {
			return fmt.Errorf("failed to stop %s before unregister: %w", name, err)
		}
	}
	if err := s.registry.Unregister(name); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.loggingCfg, name)
	s.mu.Unlock()
	if s.logStore != nil {
		if err := s.logStore.Remove(name); err != nil {
			s.logger.Warn("failed to purge logs on unregister", "process", name, "error", err)
		}
	}
	return nil
}

// Start consults the Crash Policy Engine's gate, then spawns name's
// configured command and transitions it through STARTING -> RUNNING,
// or to FAILED if the spawn itself fails. A disabled or quarantined
// process is rejected before anything is spawned.
func (s *Supervisor) Start(ctx context.Context, name string) error {
	proc, ok := s.registry.Get(name)
	if !ok {
		return fmt.Errorf("process %q not registered", name)
	}
	if s.crash != nil {
		if allowed, reason := s.crash.CanRestart(name); !allowed {
			return fmt.Errorf("cannot start %s: %s", name, reason)
		}
	}
	cfg := proc.Config

	s.registry.setStatus(name, model.StateStarting, nil)
	s.logger.Info("starting process", "process", name, "command", cfg.Command)

	run, err := s.spawn(cfg)
	if err != nil {
		s.registry.setStatus(name, model.StateFailed, nil)
		s.logger.Error("process spawn failed", "process", name, "error", err)
		return fmt.Errorf("failed to start %s: %w", name, err)
	}

	s.mu.Lock()
	s.running[name] = run
	s.mu.Unlock()

	s.registry.setStatus(name, model.StateRunning, &run.pid)
	s.logger.Info("process started", "process", name, "pid", run.pid)

	if s.audit != nil {
		s.audit.LogProcessStart(name, run.pid)
	}
	metrics.RecordProcessStart(name, float64(time.Now().Unix()))

	go s.monitor(name, run)

	return nil
}

// spawn builds and starts the exec.Cmd for cfg: inherited environment
// overlaid with the configured env_vars (configured wins), output
// attached to the Log Store's per-process pipeline when redirection
// is requested, and the child placed in its own process group on
// POSIX so a stop can signal the whole tree.
func (s *Supervisor) spawn(cfg *model.ProcessConfig) (*runningProcess, error) {
	cmd := exec.Command(cfg.Command[0], cfg.Command[1:]...)
	if cfg.WorkingDir != "" {
		cmd.Dir = cfg.WorkingDir
	}

	env := os.Environ()
	for k, v := range cfg.EnvVars {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}
	cmd.Env = env

	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	var stdoutWriter, stderrWriter *logger.ProcessWriter
	if cfg.RedirectOutput && s.logStore != nil {
		s.mu.Lock()
		loggingCfg := s.loggingCfg[cfg.Name]
		s.mu.Unlock()

		var err error
		stdoutWriter, err = logger.NewProcessWriter(s.logger, s.logStore, cfg.Name, "stdout", loggingCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create stdout writer: %w", err)
		}
		stderrWriter, err = logger.NewProcessWriter(s.logger, s.logStore, cfg.Name, "stderr", loggingCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create stderr writer: %w", err)
		}
		cmd.Stdout = stdoutWriter
		cmd.Stderr = stderrWriter
	} else {
		cmd.Stdout = io.Discard
		cmd.Stderr = io.Discard
	}

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	return &runningProcess{
		cmd:          cmd,
		pid:          cmd.Process.Pid,
		doneCh:       make(chan struct{}),
		stdoutWriter: stdoutWriter,
		stderrWriter: stderrWriter,
	}, nil
}

// monitor blocks on the child's exit, flushes its writers, and — if
// the exit wasn't requested by Stop — transitions the process to
// FAILED, records the crash with the Crash Policy Engine, and raises
// process alerts. It does not restart anything; the auto-restart
// sweep's next pass consults the gate before restarting it.
func (s *Supervisor) monitor(name string, run *runningProcess) {
	err := run.cmd.Wait()

	run.mu.Lock()
	run.exitErr = err
	stopRequested := run.stopRequested
	run.mu.Unlock()

	if run.stdoutWriter != nil {
		run.stdoutWriter.Flush()
	}
	if run.stderrWriter != nil {
		run.stderrWriter.Flush()
	}
	close(run.doneCh)

	s.mu.Lock()
	delete(s.running, name)
	s.mu.Unlock()

	if stopRequested {
		s.registry.setStatus(name, model.StateStopped, nil)
		s.logger.Info("process stopped", "process", name)
		metrics.RecordProcessStop(name, exitCodeOf(err))
		return
	}

	s.registry.setStatus(name, model.StateFailed, nil)
	reason := "exited"
	if err != nil {
		reason = err.Error()
	}
	s.logger.Warn("process exited unexpectedly", "process", name, "reason", reason)
	metrics.RecordProcessStop(name, exitCodeOf(err))

	exitCode := exitCodeOf(err)
	if s.audit != nil {
		s.audit.LogProcessCrash(name, run.pid, exitCode, "")
	}
	if s.crash != nil {
		s.crash.RecordCrash(name, reason, &exitCode)
	}
	if proc, ok := s.registry.Get(name); ok && s.alertMgr != nil {
		s.alertMgr.CheckProcessAlerts(proc.Config, model.ProcessMetrics{
			Timestamp: time.Now(),
			Status:    model.StateFailed,
			PID:       &run.pid,
		})
	}
}

func exitCodeOf(err error) int {
	if err == nil {
		return 0
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		return exitErr.ExitCode()
	}
	return -1
}

// Stop transitions name from RUNNING through STOPPING to STOPPED.
// Graceful sends TERM to the process group and waits up to 10 s
// before escalating to KILL; force sends KILL immediately.
func (s *Supervisor) Stop(ctx context.Context, name string, force bool) error {
	proc, ok := s.registry.Get(name)
	if !ok {
		return fmt.Errorf("process %q not registered", name)
	}
	if proc.Status != model.StateRunning {
		return nil
	}

	s.mu.Lock()
	run, ok := s.running[name]
	s.mu.Unlock()
	if !ok {
		s.registry.setStatus(name, model.StateStopped, nil)
		return nil
	}

	run.mu.Lock()
	run.stopRequested = true
	pid := run.pid
	run.mu.Unlock()

	s.registry.setStatus(name, model.StateStopping, &pid)
	s.logger.Info("stopping process", "process", name, "pid", pid, "force", force)

	if force {
		if err := run.cmd.Process.Kill(); err != nil {
			return fmt.Errorf("failed to kill %s: %w", name, err)
		}
		<-run.doneCh
		if s.audit != nil {
			s.audit.LogProcessStop(name, pid, "force_killed")
		}
		return nil
	}

	if err := signalProcessGroup(pid, syscall.SIGTERM); err != nil {
		s.logger.Warn("failed to signal process group, signaling process only", "process", name, "error", err)
		if err := run.cmd.Process.Signal(syscall.SIGTERM); err != nil {
			return fmt.Errorf("failed to send TERM to %s: %w", name, err)
		}
	}

	select {
	case <-run.doneCh:
		s.logger.Info("process stopped gracefully", "process", name)
		if s.audit != nil {
			s.audit.LogProcessStop(name, pid, "graceful_shutdown")
		}
	case <-time.After(gracefulStopTimeout):
		s.logger.Warn("process did not stop gracefully, force killing", "process", name, "timeout", gracefulStopTimeout)
		if err := run.cmd.Process.Kill(); err != nil {
			return fmt.Errorf("failed to kill %s after timeout: %w", name, err)
		}
		<-run.doneCh
		if s.audit != nil {
			s.audit.LogProcessStop(name, pid, "force_killed_after_timeout")
		}
	}

	if s.resource != nil {
		s.resource.RemoveBuffer(name)
	}
	return nil
}

// signalProcessGroup sends sig to pid's process group (negative pid),
// falling back to the caller when the pgid can't be resolved.
func signalProcessGroup(pid int, sig syscall.Signal) error {
	pgid, err := syscall.Getpgid(pid)
	if err != nil {
		return err
	}
	return syscall.Kill(-pgid, sig)
}

// Restart consults the Crash Policy Engine's gate before touching
// anything, then stops name if running, sleeps restart_delay_seconds,
// and starts it again, incrementing restart_count and setting
// last_restart on the registry entry.
func (s *Supervisor) Restart(ctx context.Context, name string) error {
	proc, ok := s.registry.Get(name)
	if !ok {
		return fmt.Errorf("process %q not registered", name)
	}
	if s.crash != nil {
		if allowed, reason := s.crash.CanRestart(name); !allowed {
			return fmt.Errorf("cannot restart %s: %s", name, reason)
		}
	}

	if proc.Status == model.StateRunning {
		if err := s.Stop(ctx, name, false); err != nil {
			return err
		}
	}

	delay := time.Duration(proc.Config.RestartDelaySeconds) * time.Second
	select {
	case <-time.After(delay):
	case <-ctx.Done():
		return ctx.Err()
	}

	s.registry.recordRestart(name)
	metrics.RecordProcessRestart(name, "crash")
	if proc, ok := s.registry.Get(name); ok && s.audit != nil {
		s.audit.LogProcessRestart(name, proc.RestartCount, "crash")
	}
	return s.Start(ctx, name)
}
