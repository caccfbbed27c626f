// Package ingest consumes detections from the message bus and turns them
// into alerts. Upstream detection pipelines publish to the ingest subject
// instead of calling the HTTP API.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/vantor-systems/vantor-soc/internal/messaging"
	"github.com/vantor-systems/vantor-soc/internal/models"
	"github.com/vantor-systems/vantor-soc/internal/service"
)

// submission is the wire envelope for a bus-submitted detection.
type submission struct {
	TenantID string                    `json:"tenant_id,omitempty"`
	Source   string                    `json:"submitted_by,omitempty"`
	Alert    models.CreateAlertRequest `json:"alert"`
}

// Consumer subscribes to inbound detections and creates alerts through the
// alert service, so bus-submitted alerts get the same validation, sequential
// IDs, and trigger evaluation as API-submitted ones.
type Consumer struct {
	bus    messaging.Subscriber
	alerts *service.AlertService
	logger *slog.Logger

	sub messaging.Subscription
}

// NewConsumer creates a detection consumer.
func NewConsumer(bus messaging.Subscriber, alerts *service.AlertService, logger *slog.Logger) *Consumer {
	return &Consumer{bus: bus, alerts: alerts, logger: logger}
}

// Start opens the queue subscription. Instances in the same queue group
// share inbound detections, each processed once.
func (c *Consumer) Start() error {
	sub, err := c.bus.QueueSubscribe(messaging.SubjectAlertsIngest, messaging.QueueSOCIngest, c.handle)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", messaging.SubjectAlertsIngest, err)
	}
	c.sub = sub
	c.logger.Info("alert ingest consumer started",
		"subject", messaging.SubjectAlertsIngest, "queue", messaging.QueueSOCIngest)
	return nil
}

// Stop closes the subscription. Safe to call before Start.
func (c *Consumer) Stop() {
	if c.sub == nil {
		return
	}
	if err := c.sub.Unsubscribe(); err != nil {
		c.logger.Warn("failed to unsubscribe ingest consumer", "error", err)
	}
	c.sub = nil
}

func (c *Consumer) handle(ctx context.Context, msg *messaging.Message) error {
	var sub submission
	if err := json.Unmarshal(msg.Data, &sub); err != nil {
		c.logger.Error("discarding malformed detection", "subject", msg.Subject, "error", err)
		return fmt.Errorf("decode detection: %w", err)
	}

	tenantID := sub.TenantID
	if tenantID == "" {
		tenantID = "default"
	}
	actor := sub.Source
	if actor == "" {
		actor = "ingest"
	}

	a, err := c.alerts.CreateAlert(ctx, &sub.Alert, tenantID, actor)
	if err != nil {
		c.logger.Error("failed to create alert from bus detection",
			"tenant_id", tenantID, "submitted_by", actor, "error", err)
		return err
	}

	c.logger.Info("alert created from bus detection",
		"alert_id", a.AlertID, "severity", a.Severity, "source", a.Source)
	return nil
}
