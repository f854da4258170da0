package alert

import (
	"bytes"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/processguard/processguard/internal/model"
)

const notifySendTimeout = 5 * time.Second

var notifyHTTPClient = &http.Client{Timeout: notifySendTimeout}

// sendEmail sends a plain-text summary of the alert via SMTP, with
// STARTTLS when configured.
func (m *Manager) sendEmail(a *model.Alert) error {
	cfg := m.cfg

	processLabel := a.ProcessName
	if processLabel == "" {
		processLabel = "System"
	}

	metadataJSON, err := json.MarshalIndent(a.Metadata, "", "  ")
	if err != nil {
		metadataJSON = []byte("{}")
	}

	body := fmt.Sprintf(
		"Alert Details:\n- Type: %s\n- Level: %s\n- Time: %s\n- Process: %s\n\nMessage:\n%s\n\nMetadata:\n%s\n",
		a.Kind, a.Level, a.Timestamp.Format(time.RFC3339), processLabel, a.Message, metadataJSON)

	subject := fmt.Sprintf("[ProcessGuard] %s: %s", strings.ToUpper(string(a.Level)), a.Title)

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s\r\n", cfg.EmailUsername)
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(cfg.EmailRecipients, ", "))
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	fmt.Fprint(&msg, "\r\n")
	msg.WriteString(body)

	addr := cfg.EmailSMTPServer + ":" + strconv.Itoa(cfg.EmailSMTPPort)
	auth := smtp.PlainAuth("", cfg.EmailUsername, cfg.EmailPassword, cfg.EmailSMTPServer)

	if err := sendMailWithTimeout(addr, cfg.EmailSMTPServer, auth, cfg.EmailUsername, cfg.EmailRecipients, msg.Bytes(), cfg.EmailUseTLS, notifySendTimeout); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}

	m.logger.Info("email notification sent", "alert", a.ID)
	return nil
}

// sendMailWithTimeout mirrors smtp.SendMail but dials with a timeout
// instead of blocking indefinitely on a slow or unreachable server, and
// upgrades the connection with STARTTLS only when useTLS is set.
func sendMailWithTimeout(addr, host string, auth smtp.Auth, from string, to []string, msg []byte, useTLS bool, timeout time.Duration) error {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	conn.SetDeadline(time.Now().Add(timeout))
	defer conn.Close()

	c, err := smtp.NewClient(conn, host)
	if err != nil {
		return fmt.Errorf("new client: %w", err)
	}
	defer c.Close()

	if useTLS {
		if err := c.StartTLS(&tls.Config{ServerName: host}); err != nil {
			return fmt.Errorf("starttls: %w", err)
		}
	}
	if auth != nil {
		if ok, _ := c.Extension("AUTH"); ok {
			if err := c.Auth(auth); err != nil {
				return fmt.Errorf("auth: %w", err)
			}
		}
	}
	if err := c.Mail(from); err != nil {
		return fmt.Errorf("mail: %w", err)
	}
	for _, recipient := range to {
		if err := c.Rcpt(recipient); err != nil {
			return fmt.Errorf("rcpt %s: %w", recipient, err)
		}
	}
	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("data: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close: %w", err)
	}
	return c.Quit()
}

type webhookPayload struct {
	AlertID     string                 `json:"alert_id"`
	Kind        string                 `json:"kind"`
	Level       string                 `json:"level"`
	Title       string                 `json:"title"`
	Message     string                 `json:"message"`
	ProcessName string                 `json:"process_name,omitempty"`
	Timestamp   time.Time              `json:"timestamp"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// sendWebhook POSTs a JSON payload to the configured webhook URL with
// whatever custom headers the operator has attached.
func (m *Manager) sendWebhook(a *model.Alert) error {
	payload := webhookPayload{
		AlertID:     a.ID,
		Kind:        string(a.Kind),
		Level:       string(a.Level),
		Title:       a.Title,
		Message:     a.Message,
		ProcessName: a.ProcessName,
		Timestamp:   a.Timestamp,
		Metadata:    a.Metadata,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, m.cfg.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range m.cfg.WebhookHeaders {
		req.Header.Set(k, v)
	}

	resp, err := notifyHTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	m.logger.Info("webhook notification sent", "alert", a.ID)
	return nil
}

var slackColors = map[model.AlertLevel]string{
	model.LevelInfo:     "#36a64f",
	model.LevelWarning:  "#ff9500",
	model.LevelCritical: "#ff0000",
}

type slackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

type slackAttachment struct {
	Color  string       `json:"color"`
	Title  string       `json:"title"`
	Text   string       `json:"text"`
	Fields []slackField `json:"fields"`
}

type slackPayload struct {
	Attachments []slackAttachment `json:"attachments"`
}

// sendSlack POSTs a colored attachment describing the alert to the
// configured Slack incoming-webhook URL.
func (m *Manager) sendSlack(a *model.Alert) error {
	processLabel := a.ProcessName
	if processLabel == "" {
		processLabel = "System"
	}

	color, ok := slackColors[a.Level]
	if !ok {
		color = slackColors[model.LevelInfo]
	}

	payload := slackPayload{
		Attachments: []slackAttachment{{
			Color: color,
			Title: a.Title,
			Text:  a.Message,
			Fields: []slackField{
				{Title: "Type", Value: string(a.Kind), Short: true},
				{Title: "Level", Value: string(a.Level), Short: true},
				{Title: "Process", Value: processLabel, Short: true},
				{Title: "Time", Value: a.Timestamp.Format("2006-01-02 15:04:05"), Short: true},
			},
		}},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, m.cfg.SlackWebhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := notifyHTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack returned status %d", resp.StatusCode)
	}

	m.logger.Info("slack notification sent", "alert", a.ID)
	return nil
}
