// Package crashpolicy implements the Crash Policy Engine: per-process
// sliding-window crash counting, the disable/quarantine/cascade actions
// a policy triggers once its threshold is crossed, and the can_restart
// gate the Supervisor consults before every restart attempt.
package crashpolicy

import (
	"log/slog"
	"sync"
	"time"

	"github.com/processguard/processguard/internal/config"
	"github.com/processguard/processguard/internal/dag"
	"github.com/processguard/processguard/internal/model"
)

const crashHistoryCap = 100

// AlertFunc is called whenever the engine disables or quarantines a
// process, including dependents taken down by a cascade. It is wired
// to the Alert Manager by the daemon at startup.
type AlertFunc func(kind model.AlertKind, processName, message string)

// AuditFunc records a non-restart crash policy action (disable,
// quarantine, cascade) or a force-enable override. eventType is one of
// the audit package's EventCrashPolicy* constants, passed as a string
// to avoid an import cycle.
type AuditFunc func(eventType, processName, reason string)

// Engine tracks crash history and enforces crash policies for every
// configured process.
type Engine struct {
	logger *slog.Logger
	alert  AlertFunc
	audit  AuditFunc

	mu           sync.Mutex
	policies     map[string]model.CrashPolicy
	history      map[string][]model.CrashEvent // ring, cap crashHistoryCap
	disabled     map[string]time.Time
	quarantined  map[string]time.Time
	cascadeGraph *dag.Graph
}

// New creates a Crash Policy Engine for the given process list,
// building the depends_on -> dependents cascade graph up front.
func New(processes []*config.Process, logger *slog.Logger, alert AlertFunc, audit AuditFunc) *Engine {
	policies := make(map[string]model.CrashPolicy, len(processes))
	for _, p := range processes {
		if p.CrashPolicy != nil {
			policies[p.Name] = p.CrashPolicy.ToModelPolicy()
		} else {
			policies[p.Name] = model.DefaultCrashPolicy()
		}
	}

	return &Engine{
		logger:       logger.With("component", "crash_policy"),
		alert:        alert,
		audit:        audit,
		policies:     policies,
		history:      make(map[string][]model.CrashEvent),
		disabled:     make(map[string]time.Time),
		quarantined:  make(map[string]time.Time),
		cascadeGraph: dag.NewGraph(processes),
	}
}

// RecordCrash appends a crash event for name, evaluates the process's
// policy against its recent crash count, and executes whatever action
// the policy dictates (restart/disable/quarantine/kill_dependencies).
// It returns the action so the Supervisor can decide whether to
// proceed with its own restart attempt.
func (e *Engine) RecordCrash(name, reason string, exitCode *int) model.CrashAction {
	e.mu.Lock()
	defer e.mu.Unlock()

	event := model.CrashEvent{
		Timestamp: time.Now(),
		ProcessName: name,
		Reason:    reason,
		ExitCode:  exitCode,
	}
	ring := append(e.history[name], event)
	if len(ring) > crashHistoryCap {
		ring = ring[len(ring)-crashHistoryCap:]
	}
	e.history[name] = ring

	e.logger.Warn("crash recorded", "process", name, "reason", reason)

	action := e.evaluateLocked(name)
	e.executeLocked(name, action)
	return action
}

func (e *Engine) evaluateLocked(name string) model.CrashAction {
	policy, ok := e.policies[name]
	if !ok {
		policy = model.DefaultCrashPolicy()
	}

	cutoff := time.Now().Add(-time.Duration(policy.TimeWindowMinutes) * time.Minute)
	count := 0
	for _, ev := range e.history[name] {
		if ev.Timestamp.After(cutoff) {
			count++
		}
	}

	e.logger.Info("crash policy evaluation",
		"process", name, "crashes_in_window", count, "max_crashes", policy.MaxCrashes)

	if count >= policy.MaxCrashes {
		e.logger.Error("crash threshold exceeded", "process", name, "count", count, "max", policy.MaxCrashes)
		return policy.ActionOnThreshold
	}
	return model.ActionRestart
}

func (e *Engine) executeLocked(name string, action model.CrashAction) {
	switch action {
	case model.ActionRestart:
		// Normal restart: the Supervisor handles this itself.
	case model.ActionDisable:
		e.disableLocked(name)
	case model.ActionKillDependencies:
		e.disableLocked(name)
		e.cascadeLocked(name)
	case model.ActionQuarantine:
		e.quarantineLocked(name)
	}
}

func (e *Engine) disableLocked(name string) {
	delete(e.quarantined, name)
	e.disabled[name] = time.Now()
	reason := "process disabled due to excessive crashes"
	e.logger.Error(reason, "process", name)
	if e.alert != nil {
		e.alert(model.KindCrashDisabled, name, reason)
	}
	if e.audit != nil {
		e.audit("crash_policy.disabled", name, reason)
	}
}

func (e *Engine) quarantineLocked(name string) {
	delete(e.disabled, name)
	policy := e.policies[name]
	until := time.Now().Add(time.Duration(policy.QuarantineDurationMinutes) * time.Minute)
	e.quarantined[name] = until
	reason := "process quarantined after repeated crashes"
	e.logger.Warn("process quarantined", "process", name, "until", until)
	if e.alert != nil {
		e.alert(model.KindCrashQuarantined, name, reason)
	}
	if e.audit != nil {
		e.audit("crash_policy.quarantined", name, reason)
	}
}

// cascadeLocked disables every process that directly depends on name
// (one level, via Dependents); dependents of those dependents are not
// disabled by this cascade.
func (e *Engine) cascadeLocked(name string) {
	dependents := e.cascadeGraph.Dependents(name)
	if len(dependents) == 0 {
		return
	}
	e.logger.Error("cascading disable to dependents", "process", name, "dependents", dependents)
	for _, dep := range dependents {
		delete(e.quarantined, dep)
		e.disabled[dep] = time.Now()
		reason := "disabled because dependency " + name + " failed"
		if e.alert != nil {
			e.alert(model.KindCrashDisabled, dep, reason)
		}
		if e.audit != nil {
			e.audit("crash_policy.cascaded", dep, reason)
		}
	}
}

// CanRestart reports whether name is clear to restart: not disabled,
// and not within an unexpired quarantine. A quarantine found to have
// expired (now >= until) is cleared as a side effect.
func (e *Engine) CanRestart(name string) (bool, string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if disabledAt, ok := e.disabled[name]; ok {
		return false, "process disabled due to crashes at " + disabledAt.Format(time.RFC3339)
	}

	if until, ok := e.quarantined[name]; ok {
		if time.Now().Before(until) {
			return false, "process quarantined until " + until.Format(time.RFC3339)
		}
		delete(e.quarantined, name)
		e.logger.Info("process released from quarantine", "process", name)
	}

	return true, "process can be restarted"
}

// ForceEnable clears any disabled/quarantined state for name (admin
// override) and, only if something was actually cleared, resets its
// crash history so it gets a fresh start. Returns whether anything
// was cleared.
func (e *Engine) ForceEnable(name string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	removed := false
	if _, ok := e.disabled[name]; ok {
		delete(e.disabled, name)
		removed = true
	}
	if _, ok := e.quarantined[name]; ok {
		delete(e.quarantined, name)
		removed = true
	}
	if removed {
		delete(e.history, name)
		e.logger.Info("process force-enabled", "process", name)
		if e.audit != nil {
			e.audit("crash_policy.force_enable", name, "")
		}
	}
	return removed
}

// ResetCrashHistory clears recorded crash events for name without
// touching its disabled/quarantined state.
func (e *Engine) ResetCrashHistory(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.history, name)
}

// CleanupExpiredQuarantines drops quarantine entries whose window has
// elapsed (now >= until). The daemon loop does not call it; otherwise an
// expired entry is only cleared when CanRestart is asked about that process.
func (e *Engine) CleanupExpiredQuarantines() {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := time.Now()
	for name, until := range e.quarantined {
		if !now.Before(until) {
			delete(e.quarantined, name)
			e.logger.Info("expired quarantine removed", "process", name)
		}
	}
}

// Statistics is the per-process crash summary returned by
// CrashStatistics, mirroring the fields an operator needs to decide
// whether to force-enable a process.
type Statistics struct {
	ProcessName      string     `json:"process_name"`
	RecentCrashes    int        `json:"recent_crashes"`
	CrashesLast24h   int        `json:"crashes_last_24h"`
	MostCommonReason string     `json:"most_common_reason,omitempty"`
	CrashThreshold   int        `json:"crash_threshold"`
	IsDisabled       bool       `json:"is_disabled"`
	IsQuarantined    bool       `json:"is_quarantined"`
	DisabledAt       *time.Time `json:"disabled_at,omitempty"`
	QuarantinedUntil *time.Time `json:"quarantined_until,omitempty"`
	CanRestart       bool       `json:"can_restart"`
	LastCrash        *time.Time `json:"last_crash,omitempty"`
}

// CrashStatistics reports the current crash state for one process.
func (e *Engine) CrashStatistics(name string) Statistics {
	e.mu.Lock()
	defer e.mu.Unlock()

	policy, ok := e.policies[name]
	if !ok {
		policy = model.DefaultCrashPolicy()
	}

	cutoff := time.Now().Add(-time.Duration(policy.TimeWindowMinutes) * time.Minute)
	dayCutoff := time.Now().Add(-24 * time.Hour)
	recent := 0
	last24h := 0
	var lastCrash *time.Time
	reasonCounts := make(map[string]int)
	for i := range e.history[name] {
		ev := e.history[name][i]
		if ev.Timestamp.After(cutoff) {
			recent++
		}
		if ev.Timestamp.After(dayCutoff) {
			last24h++
		}
		reasonCounts[ev.Reason]++
		t := ev.Timestamp
		lastCrash = &t
	}

	var mostCommon string
	best := 0
	for reason, count := range reasonCounts {
		if count > best {
			best = count
			mostCommon = reason
		}
	}

	stats := Statistics{
		ProcessName:      name,
		RecentCrashes:    recent,
		CrashesLast24h:   last24h,
		MostCommonReason: mostCommon,
		CrashThreshold:   policy.MaxCrashes,
		LastCrash:        lastCrash,
	}

	if disabledAt, ok := e.disabled[name]; ok {
		stats.IsDisabled = true
		t := disabledAt
		stats.DisabledAt = &t
	}
	if until, ok := e.quarantined[name]; ok {
		stats.IsQuarantined = true
		t := until
		stats.QuarantinedUntil = &t
	}

	canRestart, _ := e.canRestartLocked(name)
	stats.CanRestart = canRestart
	return stats
}

func (e *Engine) canRestartLocked(name string) (bool, string) {
	if disabledAt, ok := e.disabled[name]; ok {
		return false, "process disabled due to crashes at " + disabledAt.Format(time.RFC3339)
	}
	if until, ok := e.quarantined[name]; ok && time.Now().Before(until) {
		return false, "process quarantined until " + until.Format(time.RFC3339)
	}
	return true, "process can be restarted"
}

// DisabledProcesses returns a snapshot of currently-disabled processes.
func (e *Engine) DisabledProcesses() map[string]time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]time.Time, len(e.disabled))
	for k, v := range e.disabled {
		out[k] = v
	}
	return out
}

// QuarantinedProcesses returns a snapshot of currently-quarantined processes.
func (e *Engine) QuarantinedProcesses() map[string]time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]time.Time, len(e.quarantined))
	for k, v := range e.quarantined {
		out[k] = v
	}
	return out
}
