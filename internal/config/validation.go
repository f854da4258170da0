package config

import (
	"fmt"
	"strings"
)

// ValidationSeverity represents the severity level of a validation issue.
type ValidationSeverity string

const (
	SeverityError      ValidationSeverity = "error"      // Blocking, must be fixed
	SeverityWarning    ValidationSeverity = "warning"    // Non-blocking, should review
	SeveritySuggestion ValidationSeverity = "suggestion" // Best practice recommendation
)

// ValidationIssue represents a single validation problem.
type ValidationIssue struct {
	Severity    ValidationSeverity
	Field       string
	Message     string
	Suggestion  string
	ProcessName string
}

// ValidationResult contains all validation issues found.
type ValidationResult struct {
	Errors      []ValidationIssue
	Warnings    []ValidationIssue
	Suggestions []ValidationIssue
}

func NewValidationResult() *ValidationResult {
	return &ValidationResult{}
}

func (vr *ValidationResult) AddError(field, message, suggestion string) {
	vr.Errors = append(vr.Errors, ValidationIssue{Severity: SeverityError, Field: field, Message: message, Suggestion: suggestion})
}

func (vr *ValidationResult) AddWarning(field, message, suggestion string) {
	vr.Warnings = append(vr.Warnings, ValidationIssue{Severity: SeverityWarning, Field: field, Message: message, Suggestion: suggestion})
}

func (vr *ValidationResult) AddSuggestion(field, message, suggestion string) {
	vr.Suggestions = append(vr.Suggestions, ValidationIssue{Severity: SeveritySuggestion, Field: field, Message: message, Suggestion: suggestion})
}

func (vr *ValidationResult) AddProcessError(processName, field, message, suggestion string) {
	vr.Errors = append(vr.Errors, ValidationIssue{
		Severity: SeverityError, Field: fmt.Sprintf("processes.%s.%s", processName, field),
		Message: message, Suggestion: suggestion, ProcessName: processName,
	})
}

func (vr *ValidationResult) AddProcessWarning(processName, field, message, suggestion string) {
	vr.Warnings = append(vr.Warnings, ValidationIssue{
		Severity: SeverityWarning, Field: fmt.Sprintf("processes.%s.%s", processName, field),
		Message: message, Suggestion: suggestion, ProcessName: processName,
	})
}

func (vr *ValidationResult) HasErrors() bool      { return len(vr.Errors) > 0 }
func (vr *ValidationResult) HasWarnings() bool    { return len(vr.Warnings) > 0 }
func (vr *ValidationResult) HasSuggestions() bool { return len(vr.Suggestions) > 0 }
func (vr *ValidationResult) TotalIssues() int {
	return len(vr.Errors) + len(vr.Warnings) + len(vr.Suggestions)
}

func (vr *ValidationResult) ToError() error {
	if !vr.HasErrors() {
		return nil
	}
	var lines []string
	lines = append(lines, fmt.Sprintf("configuration validation failed with %d error(s):", len(vr.Errors)))
	for _, err := range vr.Errors {
		lines = append(lines, fmt.Sprintf("  - [%s] %s", err.Field, err.Message))
		if err.Suggestion != "" {
			lines = append(lines, fmt.Sprintf("    -> %s", err.Suggestion))
		}
	}
	return fmt.Errorf("%s", strings.Join(lines, "\n"))
}

// Validate performs the structural checks Load requires to succeed.
func (c *Config) Validate() error {
	result, err := c.ValidateComprehensive()
	if err != nil {
		return err
	}
	_ = result
	return nil
}

// ValidateComprehensive performs full validation with errors, warnings,
// and suggestions — used directly by the check-config CLI command.
func (c *Config) ValidateComprehensive() (*ValidationResult, error) {
	result := NewValidationResult()

	c.validateGlobalSettings(result)
	c.validateProcesses(result)
	c.validateDependencies(result)
	c.lintConfiguration(result)

	if result.HasErrors() {
		return result, result.ToError()
	}
	return result, nil
}

func (c *Config) validateGlobalSettings(result *ValidationResult) {
	validLevels := []string{"DEBUG", "INFO", "WARN", "ERROR", "debug", "info", "warn", "error"}
	if !contains(validLevels, c.LogLevel) {
		result.AddError("log_level", fmt.Sprintf("invalid log level: %s", c.LogLevel), "must be one of DEBUG, INFO, WARN, ERROR")
	}

	if c.MonitorInterval < 1 {
		result.AddError("monitor_interval", "must be a positive number of seconds", "set to 10 (default) or another positive interval")
	} else if c.MonitorInterval < 2 {
		result.AddWarning("monitor_interval", fmt.Sprintf("very frequent ticks (%ds) increase overhead", c.MonitorInterval), "recommended: 5-30 seconds")
	}

	if c.LogRetentionDays < 0 {
		result.AddError("log_retention_days", "must not be negative", "set to 7 (default) or another non-negative number")
	}

	if c.MetricsEnabled && c.MetricsPort <= 0 {
		result.AddError("metrics_port", "metrics_enabled is true but metrics_port is not set", "set metrics_port (e.g. 9090)")
	}

	if len(c.Processes) == 0 {
		result.AddSuggestion("processes", "no processes configured", "add at least one process to manage")
	}
}

func (c *Config) validateProcesses(result *ValidationResult) {
	seen := make(map[string]bool)
	for _, proc := range c.Processes {
		if proc.Name == "" {
			result.AddError("processes", "a process entry has no name", "every process requires a unique name")
			continue
		}
		if seen[proc.Name] {
			result.AddProcessError(proc.Name, "name", "duplicate process name", "process names must be unique")
		}
		seen[proc.Name] = true

		if len(proc.Command) == 0 {
			result.AddProcessError(proc.Name, "command", "no command specified", `add a command array, e.g. ["/usr/bin/myapp", "--flag"]`)
		}
		if proc.MaxRestarts < 0 {
			result.AddProcessError(proc.Name, "max_restarts", "must not be negative", "set to 0 to disable restarts, or a positive limit")
		}
		if proc.RestartDelaySeconds < 0 {
			result.AddProcessError(proc.Name, "restart_delay_seconds", "must not be negative", "set to 0 or a positive delay")
		}
		if proc.AlertOnHighCPU && (proc.CPUThreshold <= 0 || proc.CPUThreshold > 100) {
			result.AddProcessWarning(proc.Name, "cpu_threshold", "alert_on_high_cpu is set but cpu_threshold is out of range", "use a percentage between 1 and 100")
		}
		if proc.AlertOnHighMemory && (proc.MemoryThreshold <= 0 || proc.MemoryThreshold > 100) {
			result.AddProcessWarning(proc.Name, "memory_threshold", "alert_on_high_memory is set but memory_threshold is out of range", "use a percentage between 1 and 100")
		}
		if proc.CrashPolicy != nil {
			validActions := []string{"restart", "disable", "quarantine", "kill_dependencies"}
			if !contains(validActions, proc.CrashPolicy.ActionOnThreshold) {
				result.AddProcessError(proc.Name, "crash_policy.action_on_threshold",
					fmt.Sprintf("invalid action: %s", proc.CrashPolicy.ActionOnThreshold),
					fmt.Sprintf("must be one of: %s", strings.Join(validActions, ", ")))
			}
			if proc.CrashPolicy.MaxCrashes < 1 {
				result.AddProcessError(proc.Name, "crash_policy.max_crashes", "must be at least 1", "set max_crashes to a positive count")
			}
		}
	}
}

func (c *Config) validateDependencies(result *ValidationResult) {
	index := make(map[string]*Process, len(c.Processes))
	for _, p := range c.Processes {
		index[p.Name] = p
	}

	visited := make(map[string]bool)
	recStack := make(map[string]bool)
	var hasCycle func(name string) bool
	hasCycle = func(name string) bool {
		visited[name] = true
		recStack[name] = true
		proc, ok := index[name]
		if ok {
			for _, dep := range proc.DependsOn {
				if !visited[dep] {
					if hasCycle(dep) {
						return true
					}
				} else if recStack[dep] {
					return true
				}
			}
		}
		recStack[name] = false
		return false
	}

	for name := range index {
		if !visited[name] {
			if hasCycle(name) {
				result.AddError("processes", fmt.Sprintf("circular dependency detected involving %s", name), "remove the cycle from depends_on")
			}
		}
	}

	for _, p := range c.Processes {
		for _, dep := range p.DependsOn {
			if _, ok := index[dep]; !ok {
				result.AddProcessError(p.Name, "depends_on", fmt.Sprintf("dependency %q is not defined", dep), fmt.Sprintf("add process %q or remove it from depends_on", dep))
			}
		}
	}
}

func (c *Config) lintConfiguration(result *ValidationResult) {
	if !c.MetricsEnabled {
		result.AddSuggestion("metrics_enabled", "metrics server is disabled", "enable metrics_enabled to expose Prometheus gauges")
	}
	notif := c.Notifications
	if !notif.EmailEnabled && !notif.WebhookEnabled && !notif.SlackEnabled {
		result.AddSuggestion("notifications", "no notification sink is enabled", "enable at least one of email/webhook/slack so alerts reach someone")
	}
}

func contains(slice []string, val string) bool {
	for _, item := range slice {
		if item == val {
			return true
		}
	}
	return false
}
