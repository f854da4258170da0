package config

import "github.com/processguard/processguard/internal/model"

// Config is the complete processguard configuration, loaded from JSON
// (default) or YAML at startup and watched for hot-reload thereafter.
type Config struct {
	LogLevel           string `json:"log_level" yaml:"log_level"`
	LogFile            string `json:"log_file" yaml:"log_file"`
	LogBaseDir         string `json:"log_base_dir" yaml:"log_base_dir"`
	MonitorInterval    int    `json:"monitor_interval" yaml:"monitor_interval"`
	MonitorSchedule    string `json:"monitor_schedule,omitempty" yaml:"monitor_schedule,omitempty"`
	AutoStartProcesses bool   `json:"auto_start_processes" yaml:"auto_start_processes"`
	CleanupLogs        bool   `json:"cleanup_logs" yaml:"cleanup_logs"`
	LogRetentionDays   int    `json:"log_retention_days" yaml:"log_retention_days"`

	MetricsEnabled bool   `json:"metrics_enabled" yaml:"metrics_enabled"`
	MetricsPort    int    `json:"metrics_port" yaml:"metrics_port"`
	MetricsPath    string `json:"metrics_path" yaml:"metrics_path"`

	TracingEnabled  bool   `json:"tracing_enabled" yaml:"tracing_enabled"`
	TracingExporter string `json:"tracing_exporter" yaml:"tracing_exporter"` // stdout | otlp-grpc
	TracingEndpoint string `json:"tracing_endpoint,omitempty" yaml:"tracing_endpoint,omitempty"`

	Processes     []*Process         `json:"processes" yaml:"processes"`
	Notifications NotificationConfig `json:"notifications" yaml:"notifications"`
}

// Process is one entry of Config.Processes: the on-disk shape of
// model.ProcessConfig plus its per-process CrashPolicy.
type Process struct {
	Name       string            `json:"name" yaml:"name"`
	Command    []string          `json:"command" yaml:"command"`
	WorkingDir string            `json:"working_dir" yaml:"working_dir"`
	Kind       string            `json:"process_kind" yaml:"process_kind"`
	EnvVars    map[string]string `json:"env_vars" yaml:"env_vars"`

	AutoRestart         bool `json:"auto_restart" yaml:"auto_restart"`
	MaxRestarts         int  `json:"max_restarts" yaml:"max_restarts"`
	RestartDelaySeconds int  `json:"restart_delay_seconds" yaml:"restart_delay_seconds"`

	LogFile        string       `json:"log_file,omitempty" yaml:"log_file,omitempty"`
	RedirectOutput bool         `json:"redirect_output" yaml:"redirect_output"`
	Logging        *LoggingConfig `json:"logging,omitempty" yaml:"logging,omitempty"`

	CPULimit    *float64 `json:"cpu_limit,omitempty" yaml:"cpu_limit,omitempty"`
	MemoryLimit *int64   `json:"memory_limit,omitempty" yaml:"memory_limit,omitempty"`

	AlertOnFailure    bool    `json:"alert_on_failure" yaml:"alert_on_failure"`
	AlertOnHighCPU    bool    `json:"alert_on_high_cpu" yaml:"alert_on_high_cpu"`
	AlertOnHighMemory bool    `json:"alert_on_high_memory" yaml:"alert_on_high_memory"`
	CPUThreshold      float64 `json:"cpu_threshold" yaml:"cpu_threshold"`
	MemoryThreshold   float64 `json:"memory_threshold" yaml:"memory_threshold"`

	DependsOn []string `json:"depends_on,omitempty" yaml:"depends_on,omitempty"`

	CrashPolicy *CrashPolicy `json:"crash_policy,omitempty" yaml:"crash_policy,omitempty"`
}

// LoggingConfig configures the per-process log ingestion pipeline that
// sits between a process's stdout/stderr and the Log Store: multiline
// joining, redaction, JSON extraction, level detection, and filtering.
type LoggingConfig struct {
	MinLevel       string                `json:"min_level,omitempty" yaml:"min_level,omitempty"`
	Redaction      *RedactionConfig      `json:"redaction,omitempty" yaml:"redaction,omitempty"`
	Multiline      *MultilineConfig      `json:"multiline,omitempty" yaml:"multiline,omitempty"`
	JSON           *JSONConfig           `json:"json,omitempty" yaml:"json,omitempty"`
	LevelDetection *LevelDetectionConfig `json:"level_detection,omitempty" yaml:"level_detection,omitempty"`
	Filters        *FilterConfig         `json:"filters,omitempty" yaml:"filters,omitempty"`
}

// RedactionConfig configures sensitive data redaction for compliance.
type RedactionConfig struct {
	Enabled  bool               `json:"enabled" yaml:"enabled"`
	Patterns []RedactionPattern `json:"patterns" yaml:"patterns"`
}

// RedactionPattern defines a regex pattern for redacting sensitive data.
type RedactionPattern struct {
	Name        string `json:"name" yaml:"name"`
	Pattern     string `json:"pattern" yaml:"pattern"`
	Replacement string `json:"replacement" yaml:"replacement"`
}

// MultilineConfig configures multiline log handling (e.g. stack traces).
type MultilineConfig struct {
	Enabled  bool   `json:"enabled" yaml:"enabled"`
	Pattern  string `json:"pattern" yaml:"pattern"`
	MaxLines int    `json:"max_lines" yaml:"max_lines"`
	Timeout  int    `json:"timeout" yaml:"timeout"`
}

// JSONConfig configures JSON log parsing.
type JSONConfig struct {
	Enabled        bool `json:"enabled" yaml:"enabled"`
	DetectAuto     bool `json:"detect_auto" yaml:"detect_auto"`
	ExtractLevel   bool `json:"extract_level" yaml:"extract_level"`
	ExtractMessage bool `json:"extract_message" yaml:"extract_message"`
	MergeFields    bool `json:"merge_fields" yaml:"merge_fields"`
}

// LevelDetectionConfig configures log level detection from log content.
type LevelDetectionConfig struct {
	Enabled      bool              `json:"enabled" yaml:"enabled"`
	Patterns     map[string]string `json:"patterns" yaml:"patterns"`
	DefaultLevel string            `json:"default_level" yaml:"default_level"`
}

// FilterConfig configures log filtering.
type FilterConfig struct {
	Exclude []string `json:"exclude" yaml:"exclude"`
	Include []string `json:"include" yaml:"include"`
}

// CrashPolicy is the on-disk shape of model.CrashPolicy.
type CrashPolicy struct {
	MaxCrashes                int    `json:"max_crashes" yaml:"max_crashes"`
	TimeWindowMinutes         int    `json:"time_window_minutes" yaml:"time_window_minutes"`
	ActionOnThreshold         string `json:"action_on_threshold" yaml:"action_on_threshold"` // restart|disable|quarantine|kill_dependencies
	QuarantineDurationMinutes int    `json:"quarantine_duration_minutes" yaml:"quarantine_duration_minutes"`
}

// NotificationConfig is the on-disk shape of model.NotificationConfig.
type NotificationConfig struct {
	EmailEnabled    bool     `json:"email_enabled" yaml:"email_enabled"`
	EmailSMTPServer string   `json:"email_smtp_server" yaml:"email_smtp_server"`
	EmailSMTPPort   int      `json:"email_smtp_port" yaml:"email_smtp_port"`
	EmailUsername   string   `json:"email_username" yaml:"email_username"`
	EmailPassword   string   `json:"email_password" yaml:"email_password"`
	EmailRecipients []string `json:"email_recipients" yaml:"email_recipients"`
	EmailUseTLS     bool     `json:"email_use_tls" yaml:"email_use_tls"`

	WebhookEnabled bool              `json:"webhook_enabled" yaml:"webhook_enabled"`
	WebhookURL     string            `json:"webhook_url" yaml:"webhook_url"`
	WebhookHeaders map[string]string `json:"webhook_headers" yaml:"webhook_headers"`

	SlackEnabled    bool   `json:"slack_enabled" yaml:"slack_enabled"`
	SlackWebhookURL string `json:"slack_webhook_url" yaml:"slack_webhook_url"`
}

// SetDefaults fills every field the spec assigns a default value to.
func (c *Config) SetDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "INFO"
	}
	if c.LogBaseDir == "" {
		c.LogBaseDir = "/var/log/processguard"
	}
	if c.MonitorInterval == 0 {
		c.MonitorInterval = 10
	}
	c.AutoStartProcesses = true
	c.CleanupLogs = true
	if c.LogRetentionDays == 0 {
		c.LogRetentionDays = 7
	}
	if c.MetricsPort == 0 {
		c.MetricsPort = 9090
	}
	if c.MetricsPath == "" {
		c.MetricsPath = "/metrics"
	}
	if c.TracingExporter == "" {
		c.TracingExporter = "stdout"
	}

	for _, proc := range c.Processes {
		if proc.Kind == "" {
			proc.Kind = string(model.KindGeneric)
		}
		if proc.MaxRestarts == 0 {
			proc.MaxRestarts = 5
		}
		if proc.RestartDelaySeconds == 0 {
			proc.RestartDelaySeconds = 2
		}
		if proc.CrashPolicy == nil {
			dp := model.DefaultCrashPolicy()
			proc.CrashPolicy = &CrashPolicy{
				MaxCrashes:                dp.MaxCrashes,
				TimeWindowMinutes:         dp.TimeWindowMinutes,
				ActionOnThreshold:         string(dp.ActionOnThreshold),
				QuarantineDurationMinutes: dp.QuarantineDurationMinutes,
			}
		}
		if proc.CrashPolicy.MaxCrashes == 0 {
			proc.CrashPolicy.MaxCrashes = 5
		}
		if proc.CrashPolicy.TimeWindowMinutes == 0 {
			proc.CrashPolicy.TimeWindowMinutes = 10
		}
		if proc.CrashPolicy.ActionOnThreshold == "" {
			proc.CrashPolicy.ActionOnThreshold = string(model.ActionDisable)
		}
		if proc.CrashPolicy.QuarantineDurationMinutes == 0 {
			proc.CrashPolicy.QuarantineDurationMinutes = 60
		}
		if proc.CPUThreshold == 0 {
			proc.CPUThreshold = 80
		}
		if proc.MemoryThreshold == 0 {
			proc.MemoryThreshold = 80
		}
	}

	if c.Notifications.EmailSMTPPort == 0 {
		c.Notifications.EmailSMTPPort = 587
	}
}

// ToModelConfig converts one on-disk Process entry to its runtime
// model.ProcessConfig form.
func (p *Process) ToModelConfig() *model.ProcessConfig {
	return &model.ProcessConfig{
		Name:                p.Name,
		Command:             p.Command,
		WorkingDir:          p.WorkingDir,
		Kind:                model.ProcessKind(p.Kind),
		EnvVars:             p.EnvVars,
		AutoRestart:         p.AutoRestart,
		MaxRestarts:         p.MaxRestarts,
		RestartDelaySeconds: p.RestartDelaySeconds,
		LogFile:             p.LogFile,
		RedirectOutput:      p.RedirectOutput,
		CPULimit:            p.CPULimit,
		MemoryLimit:         p.MemoryLimit,
		AlertOnFailure:      p.AlertOnFailure,
		AlertOnHighCPU:      p.AlertOnHighCPU,
		AlertOnHighMemory:   p.AlertOnHighMemory,
		CPUThreshold:        p.CPUThreshold,
		MemoryThreshold:     p.MemoryThreshold,
		DependsOn:           p.DependsOn,
	}
}

// ToModelPolicy converts the on-disk crash policy to its runtime form.
func (cp *CrashPolicy) ToModelPolicy() model.CrashPolicy {
	return model.CrashPolicy{
		MaxCrashes:                cp.MaxCrashes,
		TimeWindowMinutes:         cp.TimeWindowMinutes,
		ActionOnThreshold:         model.CrashAction(cp.ActionOnThreshold),
		QuarantineDurationMinutes: cp.QuarantineDurationMinutes,
	}
}

// ToModelNotification converts the on-disk notification config to its
// runtime form.
func (n *NotificationConfig) ToModelNotification() model.NotificationConfig {
	return model.NotificationConfig{
		EmailEnabled:    n.EmailEnabled,
		EmailSMTPServer: n.EmailSMTPServer,
		EmailSMTPPort:   n.EmailSMTPPort,
		EmailUsername:   n.EmailUsername,
		EmailPassword:   n.EmailPassword,
		EmailRecipients: n.EmailRecipients,
		EmailUseTLS:     n.EmailUseTLS,
		WebhookEnabled:  n.WebhookEnabled,
		WebhookURL:      n.WebhookURL,
		WebhookHeaders:  n.WebhookHeaders,
		SlackEnabled:    n.SlackEnabled,
		SlackWebhookURL: n.SlackWebhookURL,
	}
}
