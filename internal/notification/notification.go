// Package notification delivers playbook notify actions to external
// channels.
package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Message is the payload of a single notify dispatch.
type Message struct {
	Subject     string `json:"subject"`
	Body        string `json:"body,omitempty"`
	Severity    string `json:"severity,omitempty"`
	AlertID     string `json:"alert_id,omitempty"`
	CaseID      string `json:"case_id,omitempty"`
	ExecutionID string `json:"execution_id,omitempty"`
}

// Channel defines the interface for notification delivery. target is
// channel-specific: a URL override for webhooks, a channel name for Slack.
type Channel interface {
	Send(ctx context.Context, target string, msg *Message) error
	Type() string
}

// WebhookChannel sends notifications via HTTP POST.
type WebhookChannel struct {
	URL     string
	Timeout time.Duration
	client  *http.Client
}

// NewWebhookChannel creates a webhook notification channel.
func NewWebhookChannel(url string, timeout time.Duration) *WebhookChannel {
	return &WebhookChannel{
		URL:     url,
		Timeout: timeout,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (w *WebhookChannel) Type() string {
	return "webhook"
}

func (w *WebhookChannel) Send(ctx context.Context, target string, msg *Message) error {
	url := w.URL
	if target != "" {
		url = target
	}

	payload := map[string]interface{}{
		"subject":   msg.Subject,
		"body":      msg.Body,
		"severity":  msg.Severity,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if msg.AlertID != "" {
		payload["alert_id"] = msg.AlertID
	}
	if msg.CaseID != "" {
		payload["case_id"] = msg.CaseID
	}
	if msg.ExecutionID != "" {
		payload["execution_id"] = msg.ExecutionID
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Vantor-SOC/1.0")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	return nil
}

// SlackChannel sends notifications to Slack via webhook.
type SlackChannel struct {
	WebhookURL string
	Timeout    time.Duration
	client     *http.Client
}

// NewSlackChannel creates a Slack notification channel.
func NewSlackChannel(webhookURL string, timeout time.Duration) *SlackChannel {
	return &SlackChannel{
		WebhookURL: webhookURL,
		Timeout:    timeout,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (s *SlackChannel) Type() string {
	return "slack"
}

func (s *SlackChannel) Send(ctx context.Context, target string, msg *Message) error {
	fields := []map[string]interface{}{
		{
			"title": "Severity",
			"value": msg.Severity,
			"short": true,
		},
	}
	if msg.AlertID != "" {
		fields = append(fields, map[string]interface{}{
			"title": "Alert",
			"value": msg.AlertID,
			"short": true,
		})
	}
	if msg.CaseID != "" {
		fields = append(fields, map[string]interface{}{
			"title": "Case",
			"value": msg.CaseID,
			"short": true,
		})
	}

	attachment := map[string]interface{}{
		"color":  s.severityColor(msg.Severity),
		"fields": fields,
		"footer": "Vantor SOC",
		"ts":     time.Now().Unix(),
	}
	if msg.Body != "" {
		attachment["text"] = msg.Body
	}

	payload := map[string]interface{}{
		"text":        fmt.Sprintf("🚨 %s", msg.Subject),
		"attachments": []map[string]interface{}{attachment},
	}
	if target != "" {
		payload["channel"] = target
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.WebhookURL, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("create slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send slack notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("slack webhook returned status %d", resp.StatusCode)
	}

	return nil
}

func (s *SlackChannel) severityColor(severity string) string {
	switch severity {
	case "critical":
		return "#8B0000"
	case "high":
		return "#FF0000"
	case "medium":
		return "#FFA500"
	case "low":
		return "#FFFF00"
	case "informational":
		return "#0000FF"
	default:
		return "#808080"
	}
}

// LogChannel writes notifications to logs (for testing/debugging).
type LogChannel struct {
	logger func(format string, v ...interface{})
}

// NewLogChannel creates a log-based notification channel.
func NewLogChannel(logger func(format string, v ...interface{})) *LogChannel {
	return &LogChannel{logger: logger}
}

func (l *LogChannel) Type() string {
	return "log"
}

func (l *LogChannel) Send(ctx context.Context, target string, msg *Message) error {
	l.logger("NOTIFY [%s] %s (severity=%s, alert=%s, case=%s)",
		target, msg.Subject, msg.Severity, msg.AlertID, msg.CaseID)
	return nil
}

// Registry maps channel names to configured channels.
type Registry struct {
	channels map[string]Channel
}

// NewRegistry creates a channel registry.
func NewRegistry(channels ...Channel) *Registry {
	r := &Registry{channels: make(map[string]Channel)}
	for _, ch := range channels {
		r.channels[ch.Type()] = ch
	}
	return r
}

// Get returns the channel registered under the given name.
func (r *Registry) Get(name string) (Channel, bool) {
	ch, ok := r.channels[name]
	return ch, ok
}
