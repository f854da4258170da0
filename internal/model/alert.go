package model

import "time"

// AlertLevel is the severity of an alert.
type AlertLevel string

const (
	LevelInfo     AlertLevel = "info"
	LevelWarning  AlertLevel = "warning"
	LevelCritical AlertLevel = "critical"
)

// AlertKind enumerates the alert taxonomy the Alert Manager produces.
type AlertKind string

const (
	KindProcessFailed     AlertKind = "process_failed"
	KindProcessRestarted  AlertKind = "process_restarted"
	KindHighCPU           AlertKind = "high_cpu"
	KindHighMemory        AlertKind = "high_memory"
	KindSystemHighCPU     AlertKind = "system_high_cpu"
	KindSystemHighMemory  AlertKind = "system_high_memory"
	KindDiskFull          AlertKind = "disk_full"
	KindProcessUnresponsive AlertKind = "process_unresponsive"
	KindCrashDisabled     AlertKind = "crash_disabled"
	KindCrashQuarantined  AlertKind = "crash_quarantined"
)

// Alert is a single raised alert.
type Alert struct {
	ID           string                 `json:"id"`
	Kind         AlertKind              `json:"kind"`
	Level        AlertLevel             `json:"level"`
	Title        string                 `json:"title"`
	Message      string                 `json:"message"`
	ProcessName  string                 `json:"process_name,omitempty"`
	Timestamp    time.Time              `json:"timestamp"`
	Acknowledged bool                   `json:"acknowledged"`
	Resolved     bool                   `json:"resolved"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

// NotificationConfig configures the Alert Manager's notification sinks.
type NotificationConfig struct {
	EmailEnabled      bool     `json:"email_enabled"`
	EmailSMTPServer   string   `json:"email_smtp_server"`
	EmailSMTPPort     int      `json:"email_smtp_port"`
	EmailUsername     string   `json:"email_username"`
	EmailPassword     string   `json:"email_password"`
	EmailRecipients   []string `json:"email_recipients"`
	EmailUseTLS       bool     `json:"email_use_tls"`

	WebhookEnabled bool              `json:"webhook_enabled"`
	WebhookURL     string            `json:"webhook_url"`
	WebhookHeaders map[string]string `json:"webhook_headers"`

	SlackEnabled    bool   `json:"slack_enabled"`
	SlackWebhookURL string `json:"slack_webhook_url"`
}
