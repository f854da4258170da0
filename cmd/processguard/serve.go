package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/processguard/processguard/internal/alert"
	"github.com/processguard/processguard/internal/audit"
	"github.com/processguard/processguard/internal/config"
	"github.com/processguard/processguard/internal/crashpolicy"
	"github.com/processguard/processguard/internal/daemon"
	"github.com/processguard/processguard/internal/deps"
	"github.com/processguard/processguard/internal/hostprobe"
	"github.com/processguard/processguard/internal/logger"
	"github.com/processguard/processguard/internal/metrics"
	"github.com/processguard/processguard/internal/process"
	"github.com/processguard/processguard/internal/signals"
	"github.com/processguard/processguard/internal/tracing"
	"github.com/processguard/processguard/internal/watcher"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the process supervisor daemon",
	Long: `Start processguard in daemon mode: supervise the configured
processes, sample host and process telemetry on a tick, and serve
metrics and graceful shutdown.`,
	Run: runServe,
}

var (
	watchMode       bool
	tracingEnabled  bool
	tracingExporter string
	tracingEndpoint string
)

func init() {
	serveCmd.Flags().BoolVar(&watchMode, "watch", false, "Reload config on file change")
	serveCmd.Flags().BoolVar(&tracingEnabled, "tracing", false, "Enable OpenTelemetry tracing")
	serveCmd.Flags().StringVar(&tracingExporter, "tracing-exporter", "stdout", "Tracing exporter: stdout|otlp-grpc")
	serveCmd.Flags().StringVar(&tracingEndpoint, "tracing-endpoint", "", "OTLP gRPC endpoint (when --tracing-exporter=otlp-grpc)")
}

func runServe(cmd *cobra.Command, args []string) {
	cfgPath := getConfigPath()

	cfg, err := config.LoadFrom(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel, "json")
	slog.SetDefault(log)

	startOrder, err := startupOrder(cfg.Processes)
	if err != nil {
		log.Error("invalid process dependency graph", "error", err)
		os.Exit(1)
	}

	log.Info("processguard starting",
		"version", version,
		"pid", os.Getpid(),
		"config", cfgPath,
		"processes", len(cfg.Processes),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tracingProvider, err := tracing.NewProvider(ctx, tracing.TracerConfig{
		Enabled:     tracingEnabled,
		Exporter:    tracingExporter,
		Endpoint:    tracingEndpoint,
		SampleRate:  1.0,
		ServiceName: "processguard",
		Version:     version,
	}, log)
	if err != nil {
		log.Error("failed to initialize tracing", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracingProvider.Shutdown(shutdownCtx); err != nil {
			log.Warn("tracing shutdown error", "error", err)
		}
	}()

	logStore, err := logger.NewStore(cfg.LogBaseDir, log)
	if err != nil {
		log.Error("failed to create log store", "error", err)
		os.Exit(1)
	}

	auditLogger := audit.NewLogger(log, true)
	alertMgr := alert.New(cfg.Notifications.ToModelNotification(), log)
	alertMgr.SetAuditFunc(auditLogger.AlertAuditFunc())

	crashEngine := crashpolicy.New(cfg.Processes, log, alertMgr.CrashAlertFunc, auditLogger.CrashPolicyAuditFunc())

	registry := process.NewRegistry()
	resourceCollector := metrics.NewResourceCollector(10*time.Second, 360, log)
	supervisor := process.New(registry, logStore, resourceCollector, crashEngine, alertMgr, auditLogger, log)

	for _, name := range startOrder {
		proc := processByName(cfg.Processes, name)
		if err := supervisor.Register(proc.ToModelConfig(), proc.Logging); err != nil {
			log.Error("failed to register process", "process", name, "error", err)
			os.Exit(1)
		}
	}

	if cfg.AutoStartProcesses {
		for _, name := range startOrder {
			if err := supervisor.Start(ctx, name); err != nil {
				log.Error("failed to start process", "process", name, "error", err)
			}
		}
	}

	var metricsServer *metrics.Server
	if cfg.MetricsEnabled {
		metricsServer = metrics.NewServer(cfg.MetricsPort, cfg.MetricsPath, log)
		if err := metricsServer.Start(ctx); err != nil {
			log.Warn("failed to start metrics server, continuing without it", "error", err)
			metricsServer = nil
		} else {
			metrics.SetBuildInfo(version, "go1.x")
			metrics.SetManagerProcessCount(len(cfg.Processes))
			log.Info("metrics server started", "port", metricsServer.Port(), "path", cfg.MetricsPath)
		}
	}

	prober := hostprobe.New(log)
	loop := daemon.New(cfg, registry, supervisor, prober, alertMgr, crashEngine, logStore, auditLogger, log)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)

	go signals.ReapZombies(5 * time.Second)

	var configWatcher *watcher.Watcher
	if watchMode {
		configWatcher, err = watcher.New(watcher.Config{
			ConfigPath: cfgPath,
			Handler: func() error {
				newCfg, err := config.LoadFrom(cfgPath)
				if err != nil {
					return fmt.Errorf("failed to reload config: %w", err)
				}
				auditLogger.LogConfigReloaded(cfgPath)
				log.Info("config reloaded", "processes", len(newCfg.Processes))
				return nil
			},
			Logger:   log,
			Debounce: 2 * time.Second,
		})
		if err != nil {
			log.Error("failed to create config watcher", "error", err)
			os.Exit(1)
		}
		if err := configWatcher.Start(ctx); err != nil {
			log.Error("failed to start config watcher", "error", err)
			os.Exit(1)
		}
		defer configWatcher.Stop()
	}

	loopErrCh := make(chan error, 1)
	go func() { loopErrCh <- loop.Run(ctx) }()

	select {
	case sig := <-sigChan:
		log.Info("received shutdown signal", "signal", sig.String())
	case err := <-loopErrCh:
		if err != nil {
			log.Error("daemon loop exited with error", "error", err)
		}
	}

	cancel()
	<-loopErrCh

	if metricsServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := metricsServer.Stop(shutdownCtx); err != nil {
			log.Warn("metrics server shutdown error", "error", err)
		}
		shutdownCancel()
	}

	log.Info("processguard shutdown complete")
}

func startupOrder(processes []*config.Process) ([]string, error) {
	graph, err := deps.NewGraphFromConfig(processes)
	if err != nil {
		return nil, err
	}
	return graph.TopologicalSort()
}

func processByName(processes []*config.Process, name string) *config.Process {
	for _, p := range processes {
		if p.Name == name {
			return p
		}
	}
	return nil
}
