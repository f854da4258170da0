package audit

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/processguard/processguard/internal/model"
)

// EventType represents the category of audit event
type EventType string

const (
	// Process Events
	EventProcessStart   EventType = "process.start"
	EventProcessStop    EventType = "process.stop"
	EventProcessRestart EventType = "process.restart"
	EventProcessCrash   EventType = "process.crash"

	// Configuration Events
	EventConfigLoad   EventType = "config.load"
	EventConfigChange EventType = "config.change"
	EventConfigReload EventType = "config.reload"

	// Crash Policy Events
	EventCrashPolicyDisabled    EventType = "crash_policy.disabled"
	EventCrashPolicyQuarantined EventType = "crash_policy.quarantined"
	EventCrashPolicyCascaded    EventType = "crash_policy.cascaded"
	EventCrashPolicyForceEnable EventType = "crash_policy.force_enable"

	// Alert Events
	EventAlertCreated      EventType = "alert.created"
	EventAlertAcknowledged EventType = "alert.acknowledged"
	EventAlertResolved     EventType = "alert.resolved"

	// System Events
	EventSystemStart    EventType = "system.start"
	EventSystemShutdown EventType = "system.shutdown"
	EventSystemError    EventType = "system.error"
)

// Status represents the outcome of an audited action
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
	StatusError   Status = "error"
)

// Actor represents who/what performed the action
type Actor struct {
	Type string `json:"type"` // "user", "system", "api"
	ID   string `json:"id"`   // User ID, system component name
	IP   string `json:"ip"`   // Source IP address
}

// Resource represents what was affected by the action
type Resource struct {
	Type string `json:"type"` // "process", "config", "api"
	ID   string `json:"id"`   // Process name, config key, endpoint
	Name string `json:"name"` // Human-readable name
}

// Event represents a single audit log entry
type Event struct {
	Timestamp time.Time              `json:"timestamp"`
	EventType EventType              `json:"event_type"`
	Actor     Actor                  `json:"actor"`
	Action    string                 `json:"action"`
	Resource  Resource               `json:"resource"`
	Status    Status                 `json:"status"`
	Message   string                 `json:"message"`
	Context   map[string]interface{} `json:"context,omitempty"`
}

// Logger provides structured audit logging
type Logger struct {
	logger  *slog.Logger
	enabled bool
}

// NewLogger creates a new audit logger
func NewLogger(log *slog.Logger, enabled bool) *Logger {
	return &Logger{
		logger:  log.With("subsystem", "audit"),
		enabled: enabled,
	}
}

// Log logs an audit event
func (l *Logger) Log(event Event) {
	if !l.enabled {
		return
	}

	// Set timestamp if not provided
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	// Convert to JSON for structured logging
	eventJSON, _ := json.Marshal(event)

	// Log at appropriate level based on status
	switch event.Status {
	case StatusFailure, StatusError:
		l.logger.Error("audit_event",
			"event_type", event.EventType,
			"actor", event.Actor.ID,
			"action", event.Action,
			"resource", event.Resource.ID,
			"status", event.Status,
			"message", event.Message,
			"event_json", string(eventJSON),
		)
	default:
		l.logger.Info("audit_event",
			"event_type", event.EventType,
			"actor", event.Actor.ID,
			"action", event.Action,
			"resource", event.Resource.ID,
			"status", event.Status,
			"message", event.Message,
			"event_json", string(eventJSON),
		)
	}
}

// LogProcessStart logs process start
func (l *Logger) LogProcessStart(processName string, pid int) {
	l.Log(Event{
		EventType: EventProcessStart,
		Actor: Actor{
			Type: "system",
			ID:   "supervisor",
		},
		Action: "start",
		Resource: Resource{
			Type: "process",
			ID:   processName,
			Name: processName,
		},
		Status:  StatusSuccess,
		Message: "Process started",
		Context: map[string]interface{}{
			"pid": pid,
		},
	})
}

// LogProcessStop logs process stop
func (l *Logger) LogProcessStop(processName string, pid int, reason string) {
	l.Log(Event{
		EventType: EventProcessStop,
		Actor: Actor{
			Type: "system",
			ID:   "supervisor",
		},
		Action: "stop",
		Resource: Resource{
			Type: "process",
			ID:   processName,
			Name: processName,
		},
		Status:  StatusSuccess,
		Message: "Process stopped",
		Context: map[string]interface{}{
			"pid":    pid,
			"reason": reason,
		},
	})
}

// LogProcessCrash logs process crash
func (l *Logger) LogProcessCrash(processName string, pid int, exitCode int, signal string) {
	l.Log(Event{
		EventType: EventProcessCrash,
		Actor: Actor{
			Type: "system",
			ID:   "supervisor",
		},
		Action: "crash",
		Resource: Resource{
			Type: "process",
			ID:   processName,
			Name: processName,
		},
		Status:  StatusError,
		Message: "Process crashed",
		Context: map[string]interface{}{
			"pid":       pid,
			"exit_code": exitCode,
			"signal":    signal,
		},
	})
}

// LogProcessRestart logs a restart driven by the auto-restart sweep or
// an operator-triggered Restart call.
func (l *Logger) LogProcessRestart(processName string, restartCount int, reason string) {
	l.Log(Event{
		EventType: EventProcessRestart,
		Actor: Actor{
			Type: "system",
			ID:   "supervisor",
		},
		Action: "restart",
		Resource: Resource{
			Type: "process",
			ID:   processName,
			Name: processName,
		},
		Status:  StatusSuccess,
		Message: "Process restarted",
		Context: map[string]interface{}{
			"restart_count": restartCount,
			"reason":        reason,
		},
	})
}

// LogConfigLoad logs configuration load
func (l *Logger) LogConfigLoad(configFile string, processCount int) {
	l.Log(Event{
		EventType: EventConfigLoad,
		Actor: Actor{
			Type: "system",
			ID:   "config_loader",
		},
		Action: "load",
		Resource: Resource{
			Type: "config",
			ID:   configFile,
		},
		Status:  StatusSuccess,
		Message: "Configuration loaded",
		Context: map[string]interface{}{
			"process_count": processCount,
		},
	})
}

// LogSystemStart logs daemon startup
func (l *Logger) LogSystemStart(version string) {
	l.Log(Event{
		EventType: EventSystemStart,
		Actor: Actor{
			Type: "system",
			ID:   "processguard",
		},
		Action: "start",
		Resource: Resource{
			Type: "system",
			ID:   "processguard",
		},
		Status:  StatusSuccess,
		Message: "processguard started",
		Context: map[string]interface{}{
			"version": version,
		},
	})
}

// LogSystemShutdown logs daemon shutdown
func (l *Logger) LogSystemShutdown(reason string, graceful bool) {
	status := StatusSuccess
	if !graceful {
		status = StatusError
	}

	l.Log(Event{
		EventType: EventSystemShutdown,
		Actor: Actor{
			Type: "system",
			ID:   "processguard",
		},
		Action: "shutdown",
		Resource: Resource{
			Type: "system",
			ID:   "processguard",
		},
		Status:  status,
		Message: "processguard shutdown",
		Context: map[string]interface{}{
			"reason":   reason,
			"graceful": graceful,
		},
	})
}

// LogSystemError logs system-level error
func (l *Logger) LogSystemError(component string, errorMsg string) {
	l.Log(Event{
		EventType: EventSystemError,
		Actor: Actor{
			Type: "system",
			ID:   component,
		},
		Action: "error",
		Resource: Resource{
			Type: "system",
			ID:   component,
		},
		Status:  StatusError,
		Message: errorMsg,
	})
}

// LogConfigReloaded logs when the watched config file is reloaded.
func (l *Logger) LogConfigReloaded(path string) {
	l.Log(Event{
		EventType: EventConfigReload,
		Actor: Actor{
			Type: "system",
			ID:   "config_watcher",
		},
		Action: "reload",
		Resource: Resource{
			Type: "config",
			ID:   path,
		},
		Status:  StatusSuccess,
		Message: fmt.Sprintf("configuration reloaded from %s", path),
	})
}

// CrashPolicyAuditFunc adapts the logger for use as a
// crashpolicy.AuditFunc. eventType arrives as a plain string (the
// crashpolicy package has no dependency on this one) and is cast back
// to EventType here; force_enable is routed to LogCrashPolicyForceEnable
// since it carries no reason.
func (l *Logger) CrashPolicyAuditFunc() func(eventType, processName, reason string) {
	return func(eventType, processName, reason string) {
		if EventType(eventType) == EventCrashPolicyForceEnable {
			l.LogCrashPolicyForceEnable(processName)
			return
		}
		l.LogCrashPolicyAction(EventType(eventType), processName, reason)
	}
}

// AlertAuditFunc adapts the logger for use as an alert.AuditFunc.
func (l *Logger) AlertAuditFunc() func(action string, a *model.Alert) {
	return func(action string, a *model.Alert) {
		switch action {
		case "created":
			l.LogAlertCreated(string(a.Kind), a.ProcessName, string(a.Level))
		case "acknowledged":
			l.LogAlertAcknowledged(a.ID)
		case "resolved":
			l.LogAlertResolved(a.ID)
		}
	}
}

// LogCrashPolicyAction logs a non-restart action the Crash Policy
// Engine took against a process (disable, quarantine, or cascade).
func (l *Logger) LogCrashPolicyAction(eventType EventType, processName, reason string) {
	l.Log(Event{
		EventType: eventType,
		Actor: Actor{
			Type: "system",
			ID:   "crash_policy",
		},
		Action: string(eventType),
		Resource: Resource{
			Type: "process",
			ID:   processName,
			Name: processName,
		},
		Status:  StatusError,
		Message: reason,
	})
}

// LogCrashPolicyForceEnable logs an administrative override clearing a
// process's disabled/quarantined state.
func (l *Logger) LogCrashPolicyForceEnable(processName string) {
	l.Log(Event{
		EventType: EventCrashPolicyForceEnable,
		Actor: Actor{
			Type: "system",
			ID:   "crash_policy",
		},
		Action: "force_enable",
		Resource: Resource{
			Type: "process",
			ID:   processName,
			Name: processName,
		},
		Status:  StatusSuccess,
		Message: fmt.Sprintf("process %s force-enabled", processName),
	})
}

// LogAlertCreated logs a newly dispatched alert.
func (l *Logger) LogAlertCreated(kind, processName, level string) {
	l.Log(Event{
		EventType: EventAlertCreated,
		Actor: Actor{
			Type: "system",
			ID:   "alert_manager",
		},
		Action: "create",
		Resource: Resource{
			Type: "alert",
			ID:   kind,
			Name: processName,
		},
		Status:  StatusSuccess,
		Message: fmt.Sprintf("alert %s created for %s", kind, processName),
		Context: map[string]interface{}{
			"level": level,
		},
	})
}

// LogAlertAcknowledged logs an alert acknowledgement.
func (l *Logger) LogAlertAcknowledged(alertID string) {
	l.Log(Event{
		EventType: EventAlertAcknowledged,
		Actor: Actor{
			Type: "system",
			ID:   "alert_manager",
		},
		Action: "acknowledge",
		Resource: Resource{
			Type: "alert",
			ID:   alertID,
		},
		Status:  StatusSuccess,
		Message: fmt.Sprintf("alert %s acknowledged", alertID),
	})
}

// LogAlertResolved logs an alert resolution.
func (l *Logger) LogAlertResolved(alertID string) {
	l.Log(Event{
		EventType: EventAlertResolved,
		Actor: Actor{
			Type: "system",
			ID:   "alert_manager",
		},
		Action: "resolve",
		Resource: Resource{
			Type: "alert",
			ID:   alertID,
		},
		Status:  StatusSuccess,
		Message: fmt.Sprintf("alert %s resolved", alertID),
	})
}
