// Package model holds the data types shared across the supervisor, crash
// policy engine, alert manager and log store: the process and system
// records every other package reads and mutates.
package model

import "time"

// ProcessKind labels the runtime a managed process is built on. It has no
// effect on spawning; it exists for config validation and metrics labeling.
type ProcessKind string

const (
	KindNodeJS  ProcessKind = "nodejs"
	KindPython  ProcessKind = "python"
	KindJava    ProcessKind = "java"
	KindGo      ProcessKind = "go"
	KindRust    ProcessKind = "rust"
	KindGeneric ProcessKind = "generic"
)

// State is a position in the Supervisor's per-process state machine.
type State string

const (
	StateStopped  State = "stopped"
	StateStarting State = "starting"
	StateRunning  State = "running"
	StateStopping State = "stopping"
	StateFailed   State = "failed"
	StateUnknown  State = "unknown"
)

// ProcessConfig is immutable after registration.
type ProcessConfig struct {
	Name       string            `json:"name"`
	Command    []string          `json:"command"`
	WorkingDir string            `json:"working_dir"`
	Kind       ProcessKind       `json:"process_kind"`
	EnvVars    map[string]string `json:"env_vars"`

	AutoRestart         bool `json:"auto_restart"`
	MaxRestarts         int  `json:"max_restarts"`
	RestartDelaySeconds int  `json:"restart_delay_seconds"`

	LogFile        string `json:"log_file,omitempty"`
	RedirectOutput bool   `json:"redirect_output"`

	CPULimit    *float64 `json:"cpu_limit,omitempty"`
	MemoryLimit *int64   `json:"memory_limit,omitempty"`

	AlertOnFailure    bool    `json:"alert_on_failure"`
	AlertOnHighCPU    bool    `json:"alert_on_high_cpu"`
	AlertOnHighMemory bool    `json:"alert_on_high_memory"`
	CPUThreshold      float64 `json:"cpu_threshold"`
	MemoryThreshold   float64 `json:"memory_threshold"`

	DependsOn []string `json:"depends_on,omitempty"`
}

// Connection describes one socket held open by a managed process.
type Connection struct {
	Local     string `json:"local"`
	Remote    string `json:"remote"`
	Status    string `json:"status"`
	Transport string `json:"transport"`
}

// ProcessMetrics is one sample taken of a managed process.
type ProcessMetrics struct {
	Timestamp      time.Time    `json:"timestamp"`
	PID            *int         `json:"pid,omitempty"`
	CPUPercent     float64      `json:"cpu_percent"`
	MemoryPercent  float64      `json:"memory_percent"`
	MemoryMB       float64      `json:"memory_mb"`
	OpenFiles      int          `json:"open_files"`
	Connections    []Connection `json:"connections"`
	Threads        int          `json:"threads"`
	Status         State        `json:"status"`
	UptimeSeconds  float64      `json:"uptime_seconds"`
}

// ManagedProcess is the Registry's mutable runtime record for one
// configured process: config plus current state plus metrics history.
type ManagedProcess struct {
	Config *ProcessConfig

	Status       State
	PID          *int
	StartedAt    *time.Time
	RestartCount int
	LastRestart  *time.Time

	MetricsHistory []ProcessMetrics
}

// AppendMetrics appends a sample to the process's history, compacting
// 1000 -> 500 (oldest dropped) when the cap is exceeded.
func (p *ManagedProcess) AppendMetrics(m ProcessMetrics) {
	p.MetricsHistory = append(p.MetricsHistory, m)
	if len(p.MetricsHistory) > 1000 {
		keep := 500
		p.MetricsHistory = append([]ProcessMetrics(nil), p.MetricsHistory[len(p.MetricsHistory)-keep:]...)
	}
}
