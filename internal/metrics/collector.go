package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Process metrics
	ProcessUp = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "processguard_process_up",
			Help: "Process status (1=running, 0=stopped)",
		},
		[]string{"name"},
	)

	ProcessRestarts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "processguard_process_restarts_total",
			Help: "Total number of process restarts",
		},
		[]string{"name", "reason"}, // reason: crash, manual, health_check
	)

	ProcessStartTime = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "processguard_process_start_time_seconds",
			Help: "Unix timestamp when process started",
		},
		[]string{"name"},
	)

	ProcessExitCode = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "processguard_process_last_exit_code",
			Help: "Last exit code of process",
		},
		[]string{"name"},
	)

	// Health check metrics (the Supervisor's own health_check operation,
	// not a configurable TCP/HTTP/exec probe)
	HealthCheckTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "processguard_health_check_total",
			Help: "Total number of health checks performed",
		},
		[]string{"name", "status"}, // status: success, failure
	)

	// Crash policy metrics
	ProcessDisabled = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "processguard_process_disabled",
			Help: "Whether a process is disabled by the crash policy engine (1=disabled)",
		},
		[]string{"name"},
	)

	ProcessQuarantined = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "processguard_process_quarantined",
			Help: "Whether a process is currently quarantined (1=quarantined)",
		},
		[]string{"name"},
	)

	CrashEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "processguard_crash_events_total",
			Help: "Total number of recorded crash events",
		},
		[]string{"name"},
	)

	// Alert metrics
	AlertsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "processguard_alerts_created_total",
			Help: "Total number of alerts created",
		},
		[]string{"kind", "level"},
	)

	// Manager (Registry) metrics
	ManagerProcessCount = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "processguard_manager_process_count",
			Help: "Total number of registered processes",
		},
	)

	ManagerStartTime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "processguard_manager_start_time_seconds",
			Help: "Unix timestamp when the daemon started",
		},
	)

	ShutdownDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "processguard_shutdown_duration_seconds",
			Help:    "Duration of graceful shutdown in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 180, 300},
		},
	)

	// Resource metrics (CPU, memory, etc.)
	ProcessCPUPercent = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "processguard_process_cpu_percent",
			Help: "Process CPU usage percentage (can exceed 100 on multi-core)",
		},
		[]string{"process"},
	)

	ProcessMemoryBytes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "processguard_process_memory_bytes",
			Help: "Process resident memory usage in bytes",
		},
		[]string{"process"},
	)

	ProcessMemoryPercent = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "processguard_process_memory_percent",
			Help: "Process memory usage as percentage of total system memory",
		},
		[]string{"process"},
	)

	ProcessThreads = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "processguard_process_threads",
			Help: "Number of threads in process",
		},
		[]string{"process"},
	)

	ProcessOpenFiles = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "processguard_process_open_files",
			Help: "Number of open file descriptors (Linux only)",
		},
		[]string{"process"},
	)

	ResourceCollectionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "processguard_resource_collection_duration_seconds",
			Help:    "Time taken to collect resource metrics for one sampling pass",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
		},
	)

	ResourceCollectionErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "processguard_resource_collection_errors_total",
			Help: "Total resource collection errors",
		},
		[]string{"process"},
	)

	// Host-level metrics, sampled by the Host Probe each tick
	SystemCPUPercent = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "processguard_system_cpu_percent",
			Help: "Host-wide CPU usage percentage",
		},
	)

	SystemMemoryPercent = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "processguard_system_memory_percent",
			Help: "Host-wide memory usage percentage",
		},
	)

	SystemDiskPercent = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "processguard_system_disk_percent",
			Help: "Disk usage percentage per mountpoint",
		},
		[]string{"mount"},
	)

	// Build info
	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "processguard_build_info",
			Help: "ProcessGuard build information",
		},
		[]string{"version", "go_version"},
	)
)

// RecordProcessStart records a process start event.
func RecordProcessStart(processName string, startTime float64) {
	ProcessUp.WithLabelValues(processName).Set(1)
	ProcessStartTime.WithLabelValues(processName).Set(startTime)
}

// RecordProcessStop records a process stop event.
func RecordProcessStop(processName string, exitCode int) {
	ProcessUp.WithLabelValues(processName).Set(0)
	ProcessExitCode.WithLabelValues(processName).Set(float64(exitCode))
}

// RecordProcessRestart records a process restart.
func RecordProcessRestart(processName, reason string) {
	ProcessRestarts.WithLabelValues(processName, reason).Inc()
}

// RecordHealthCheck records a health check result.
func RecordHealthCheck(processName string, healthy bool) {
	status := "success"
	if !healthy {
		status = "failure"
	}
	HealthCheckTotal.WithLabelValues(processName, status).Inc()
}

// RecordCrashEvent increments the crash counter for a process.
func RecordCrashEvent(processName string) {
	CrashEvents.WithLabelValues(processName).Inc()
}

// SetProcessDisabled reflects the crash policy engine's disabled set.
func SetProcessDisabled(processName string, disabled bool) {
	v := 0.0
	if disabled {
		v = 1.0
	}
	ProcessDisabled.WithLabelValues(processName).Set(v)
}

// SetProcessQuarantined reflects the crash policy engine's quarantined set.
func SetProcessQuarantined(processName string, quarantined bool) {
	v := 0.0
	if quarantined {
		v = 1.0
	}
	ProcessQuarantined.WithLabelValues(processName).Set(v)
}

// RecordAlertCreated increments the alert counter for a kind/level pair.
func RecordAlertCreated(kind, level string) {
	AlertsCreated.WithLabelValues(kind, level).Inc()
}

// SetManagerProcessCount sets the total number of registered processes.
func SetManagerProcessCount(count int) {
	ManagerProcessCount.Set(float64(count))
}

// SetManagerStartTime sets the daemon start time.
func SetManagerStartTime(startTime float64) {
	ManagerStartTime.Set(startTime)
}

// SetBuildInfo sets build information.
func SetBuildInfo(version, goVersion string) {
	BuildInfo.WithLabelValues(version, goVersion).Set(1)
}

// RecordShutdownDuration records the duration of graceful shutdown.
func RecordShutdownDuration(duration float64) {
	ShutdownDuration.Observe(duration)
}

// SetSystemMetrics records one host-level sample.
func SetSystemMetrics(cpuPercent, memoryPercent float64, diskPercent map[string]float64) {
	SystemCPUPercent.Set(cpuPercent)
	SystemMemoryPercent.Set(memoryPercent)
	for mount, percent := range diskPercent {
		SystemDiskPercent.WithLabelValues(mount).Set(percent)
	}
}
