// Package alert implements the Alert Manager: threshold-driven alert
// creation with a per-kind cooldown, bounded history, and concurrent
// fan-out to email/webhook/Slack notification sinks.
package alert

import (
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/processguard/processguard/internal/model"
)

const cooldownDuration = 5 * time.Minute

// AuditFunc records an alert lifecycle transition (created, acknowledged,
// or resolved). action is one of "created", "acknowledged", "resolved".
type AuditFunc func(action string, alert *model.Alert)

// Manager tracks active alerts, alert history, and per-kind cooldowns,
// dispatching every newly-created alert to the configured notification
// sinks.
type Manager struct {
	logger *slog.Logger
	cfg    model.NotificationConfig
	audit  AuditFunc

	mu        sync.Mutex
	active    []*model.Alert
	history   []*model.Alert
	cooldowns map[string]time.Time

	nextID int
}

// New creates an Alert Manager with the given notification sinks.
func New(cfg model.NotificationConfig, logger *slog.Logger) *Manager {
	return &Manager{
		logger:    logger.With("component", "alert_manager"),
		cfg:       cfg,
		cooldowns: make(map[string]time.Time),
	}
}

// SetAuditFunc attaches an audit hook invoked on every alert lifecycle
// transition. Optional; the daemon wires it in at startup once the
// audit logger is available.
func (m *Manager) SetAuditFunc(fn AuditFunc) {
	m.audit = fn
}

// CrashAlertFunc adapts the manager for use as a crashpolicy.AlertFunc:
// a disable/quarantine alert always has a process name and is critical.
func (m *Manager) CrashAlertFunc(kind model.AlertKind, processName, message string) {
	m.CreateAlert(kind, model.LevelCritical, processName, titleFor(kind, processName), message, nil)
}

func titleFor(kind model.AlertKind, processName string) string {
	switch kind {
	case model.KindCrashDisabled:
		return fmt.Sprintf("Process %s disabled", processName)
	case model.KindCrashQuarantined:
		return fmt.Sprintf("Process %s quarantined", processName)
	default:
		return fmt.Sprintf("Alert for %s", processName)
	}
}

// CreateAlert creates and dispatches a new alert, unless one of the same
// kind for the same process (or "system" when processName is empty) is
// still within its cooldown window. Returns nil when suppressed.
func (m *Manager) CreateAlert(kind model.AlertKind, level model.AlertLevel, processName, title, message string, metadata map[string]interface{}) *model.Alert {
	scope := processName
	if scope == "" {
		scope = "system"
	}
	key := string(kind) + ":" + scope

	m.mu.Lock()
	if until, ok := m.cooldowns[key]; ok && time.Now().Before(until) {
		m.mu.Unlock()
		m.logger.Debug("alert suppressed by cooldown", "key", key)
		return nil
	}

	m.nextID++
	alert := &model.Alert{
		ID:          string(kind) + "_" + strconv.FormatInt(time.Now().UnixNano(), 10) + "_" + strconv.Itoa(m.nextID),
		Kind:        kind,
		Level:       level,
		Title:       title,
		Message:     message,
		ProcessName: processName,
		Timestamp:   time.Now(),
		Metadata:    metadata,
	}

	m.active = append(m.active, alert)
	m.history = append(m.history, alert)
	m.cooldowns[key] = time.Now().Add(cooldownDuration)

	if len(m.history) > 1000 {
		m.history = append([]*model.Alert(nil), m.history[len(m.history)-500:]...)
	}
	m.mu.Unlock()

	m.logger.Info("alert created", "kind", kind, "level", level, "process", processName, "title", title)
	if m.audit != nil {
		m.audit("created", alert)
	}
	m.dispatch(alert)

	return alert
}

// dispatch fans the alert out to every enabled sink concurrently;
// a sink failure is logged and does not affect the others.
func (m *Manager) dispatch(a *model.Alert) {
	var wg sync.WaitGroup

	if m.cfg.EmailEnabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := m.sendEmail(a); err != nil {
				m.logger.Error("email notification failed", "alert", a.ID, "error", err)
			}
		}()
	}

	if m.cfg.WebhookEnabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := m.sendWebhook(a); err != nil {
				m.logger.Error("webhook notification failed", "alert", a.ID, "error", err)
			}
		}()
	}

	if m.cfg.SlackEnabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := m.sendSlack(a); err != nil {
				m.logger.Error("slack notification failed", "alert", a.ID, "error", err)
			}
		}()
	}

	wg.Wait()
}

// Acknowledge marks an active alert acknowledged. Reports whether the
// alert was found.
func (m *Manager) Acknowledge(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.active {
		if a.ID == id {
			a.Acknowledged = true
			m.logger.Info("alert acknowledged", "alert", id)
			if m.audit != nil {
				m.audit("acknowledged", a)
			}
			return true
		}
	}
	return false
}

// Resolve marks an alert resolved and removes it from the active list.
func (m *Manager) Resolve(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, a := range m.active {
		if a.ID == id {
			a.Resolved = true
			m.active = append(m.active[:i], m.active[i+1:]...)
			m.logger.Info("alert resolved", "alert", id)
			if m.audit != nil {
				m.audit("resolved", a)
			}
			return true
		}
	}
	return false
}

// ActiveAlerts returns the currently unresolved alerts.
func (m *Manager) ActiveAlerts() []*model.Alert {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.Alert, len(m.active))
	copy(out, m.active)
	return out
}

// AlertHistory returns history entries timestamped within the last
// `hours` hours.
func (m *Manager) AlertHistory(hours int) []*model.Alert {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := time.Now().Add(-time.Duration(hours) * time.Hour)
	var out []*model.Alert
	for _, a := range m.history {
		if !a.Timestamp.Before(cutoff) {
			out = append(out, a)
		}
	}
	return out
}

// CheckProcessAlerts evaluates one process sample against its
// configured thresholds and raises process_failed/high_cpu/high_memory
// alerts as needed.
func (m *Manager) CheckProcessAlerts(cfg *model.ProcessConfig, metrics model.ProcessMetrics) {
	if metrics.Status == model.StateFailed && cfg.AlertOnFailure {
		m.CreateAlert(model.KindProcessFailed, model.LevelCritical, cfg.Name,
			fmt.Sprintf("Process %s has failed", cfg.Name),
			fmt.Sprintf("Process %s is no longer running and has failed.", cfg.Name),
			map[string]interface{}{"pid": metrics.PID, "uptime": metrics.UptimeSeconds})
	}

	if cfg.AlertOnHighCPU && metrics.CPUPercent > cfg.CPUThreshold {
		m.CreateAlert(model.KindHighCPU, model.LevelWarning, cfg.Name,
			fmt.Sprintf("High CPU usage for %s", cfg.Name),
			fmt.Sprintf("Process %s is using %.1f%% CPU (threshold: %.0f%%)", cfg.Name, metrics.CPUPercent, cfg.CPUThreshold),
			map[string]interface{}{"cpu_percent": metrics.CPUPercent, "threshold": cfg.CPUThreshold})
	}

	if cfg.AlertOnHighMemory && metrics.MemoryPercent > cfg.MemoryThreshold {
		m.CreateAlert(model.KindHighMemory, model.LevelWarning, cfg.Name,
			fmt.Sprintf("High memory usage for %s", cfg.Name),
			fmt.Sprintf("Process %s is using %.1f%% memory (threshold: %.0f%%)", cfg.Name, metrics.MemoryPercent, cfg.MemoryThreshold),
			map[string]interface{}{"memory_percent": metrics.MemoryPercent, "memory_mb": metrics.MemoryMB, "threshold": cfg.MemoryThreshold})
	}
}

const systemThreshold = 90.0

// CheckSystemAlerts evaluates one host sample against the fixed 90%
// thresholds for CPU, memory, and every mounted disk.
func (m *Manager) CheckSystemAlerts(metrics model.SystemMetrics) {
	if metrics.CPUPercent > systemThreshold {
		m.CreateAlert(model.KindSystemHighCPU, model.LevelCritical, "",
			"System CPU usage critical",
			fmt.Sprintf("System CPU usage is at %.1f%%", metrics.CPUPercent),
			map[string]interface{}{"cpu_percent": metrics.CPUPercent})
	}

	if metrics.MemoryPercent > systemThreshold {
		m.CreateAlert(model.KindSystemHighMemory, model.LevelCritical, "",
			"System memory usage critical",
			fmt.Sprintf("System memory usage is at %.1f%%", metrics.MemoryPercent),
			map[string]interface{}{"memory_percent": metrics.MemoryPercent, "memory_available": metrics.MemoryAvailable})
	}

	for mount, usage := range metrics.DiskUsage {
		if usage.Percent > systemThreshold {
			m.CreateAlert(model.KindDiskFull, model.LevelCritical, "",
				fmt.Sprintf("Disk space critical: %s", mount),
				fmt.Sprintf("Disk usage on %s is at %.1f%%", mount, usage.Percent),
				map[string]interface{}{"mount": mount, "percent": usage.Percent})
		}
	}
}
