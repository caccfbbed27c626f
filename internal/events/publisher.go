package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/vantor-systems/vantor-soc/internal/messaging"
	"github.com/vantor-systems/vantor-soc/internal/models"
)

// Publisher publishes SOC lifecycle events to the message bus. A Publisher
// constructed with a nil bus is a no-op, so callers never need nil checks.
type Publisher struct {
	bus    messaging.Publisher
	logger *slog.Logger
}

// NewPublisher creates a new event publisher.
func NewPublisher(bus messaging.Publisher, logger *slog.Logger) *Publisher {
	return &Publisher{bus: bus, logger: logger}
}

// AlertCreated publishes an alert created event.
func (p *Publisher) AlertCreated(ctx context.Context, a *models.Alert) {
	p.publish(ctx, messaging.SubjectAlertsCreated, NewAlertEvent(a))
}

// AlertUpdated publishes an alert updated event.
func (p *Publisher) AlertUpdated(ctx context.Context, a *models.Alert) {
	p.publish(ctx, messaging.SubjectAlertsUpdated, NewAlertEvent(a))
}

// CaseCreated publishes a case created event.
func (p *Publisher) CaseCreated(ctx context.Context, c *models.Case) {
	p.publish(ctx, messaging.SubjectCasesCreated, NewCaseEvent(c))
}

// CaseEscalated publishes a case escalated event.
func (p *Publisher) CaseEscalated(ctx context.Context, c *models.Case) {
	p.publish(ctx, messaging.SubjectCasesEscalated, NewCaseEvent(c))
}

// CaseResolved publishes a case resolved event.
func (p *Publisher) CaseResolved(ctx context.Context, c *models.Case) {
	p.publish(ctx, messaging.SubjectCasesResolved, NewCaseEvent(c))
}

// ExecutionStarted publishes an execution started event.
func (p *Publisher) ExecutionStarted(ctx context.Context, ex *models.PlaybookExecution) {
	p.publish(ctx, messaging.SubjectExecutionsStarted, NewExecutionEvent(ex))
}

// ExecutionFinished publishes an execution terminal-transition event.
func (p *Publisher) ExecutionFinished(ctx context.Context, ex *models.PlaybookExecution) {
	p.publish(ctx, messaging.SubjectExecutionsFinished, NewExecutionEvent(ex))
}

// publish marshals data to JSON and publishes to the specified subject.
// Publish failures are logged, never propagated: the bus is advisory and
// must not fail the originating operation.
func (p *Publisher) publish(ctx context.Context, subject string, data interface{}) {
	if p == nil || p.bus == nil {
		return
	}
	bytes, err := json.Marshal(data)
	if err != nil {
		p.logError(subject, fmt.Errorf("failed to marshal message: %w", err))
		return
	}
	if err := p.bus.Publish(ctx, subject, bytes); err != nil {
		p.logError(subject, err)
	}
}

func (p *Publisher) logError(subject string, err error) {
	if p.logger != nil {
		p.logger.Warn("event publish failed", "subject", subject, "error", err)
	}
}
