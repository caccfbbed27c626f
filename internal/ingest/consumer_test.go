package ingest

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vantor-systems/vantor-soc/internal/idgen"
	"github.com/vantor-systems/vantor-soc/internal/messaging"
	"github.com/vantor-systems/vantor-soc/internal/models"
	"github.com/vantor-systems/vantor-soc/internal/repository"
	"github.com/vantor-systems/vantor-soc/internal/service"
)

// stubSubscriber records the subscription and hands the handler back to the
// test so messages can be delivered directly.
type stubSubscriber struct {
	subject string
	queue   string
	handler messaging.MessageHandler
}

func (s *stubSubscriber) QueueSubscribe(subject, queue string, handler messaging.MessageHandler) (messaging.Subscription, error) {
	s.subject = subject
	s.queue = queue
	s.handler = handler
	return &stubSubscription{subject: subject}, nil
}

func (s *stubSubscriber) Close() error { return nil }

type stubSubscription struct {
	subject      string
	unsubscribed bool
}

func (s *stubSubscription) Unsubscribe() error { s.unsubscribed = true; return nil }
func (s *stubSubscription) Subject() string    { return s.subject }
func (s *stubSubscription) IsValid() bool      { return !s.unsubscribed }

func newTestConsumer(t *testing.T) (*Consumer, *stubSubscriber, *repository.InMemoryRepository) {
	t.Helper()
	repo := repository.NewInMemoryRepository()
	alerts := service.NewAlertService(repo, idgen.NewGenerator(idgen.NewMemorySequencer()))
	bus := &stubSubscriber{}
	c := NewConsumer(bus, alerts, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, c.Start())
	return c, bus, repo
}

func deliver(t *testing.T, bus *stubSubscriber, payload string) error {
	t.Helper()
	require.NotNil(t, bus.handler)
	return bus.handler(context.Background(), &messaging.Message{
		Subject:   bus.subject,
		Data:      []byte(payload),
		Timestamp: time.Now().UTC(),
	})
}

func TestConsumerSubscribesIngestQueue(t *testing.T) {
	c, bus, _ := newTestConsumer(t)
	defer c.Stop()

	assert.Equal(t, messaging.SubjectAlertsIngest, bus.subject)
	assert.Equal(t, messaging.QueueSOCIngest, bus.queue)
}

func TestConsumerCreatesAlertFromDetection(t *testing.T) {
	c, bus, repo := newTestConsumer(t)
	defer c.Stop()

	err := deliver(t, bus, `{
		"tenant_id": "acme",
		"submitted_by": "edr-pipeline",
		"alert": {"title": "Beaconing host", "severity": "high", "source": "edr"}
	}`)
	require.NoError(t, err)

	alerts, total, err := repo.ListAlerts(context.Background(), &models.ListAlertsRequest{})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	assert.Equal(t, "Beaconing host", alerts[0].Title)
	assert.Equal(t, models.SeverityHigh, alerts[0].Severity)
	assert.Equal(t, "acme", alerts[0].TenantID)
	assert.Equal(t, "edr-pipeline", alerts[0].CreatedBy)
}

func TestConsumerDefaultsTenantAndActor(t *testing.T) {
	c, bus, repo := newTestConsumer(t)
	defer c.Stop()

	err := deliver(t, bus, `{"alert": {"title": "Port scan", "severity": "low", "source": "ids"}}`)
	require.NoError(t, err)

	alerts, total, err := repo.ListAlerts(context.Background(), &models.ListAlertsRequest{})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	assert.Equal(t, "default", alerts[0].TenantID)
	assert.Equal(t, "ingest", alerts[0].CreatedBy)
}

func TestConsumerRejectsMalformedDetections(t *testing.T) {
	c, bus, repo := newTestConsumer(t)
	defer c.Stop()

	tests := []struct {
		name    string
		payload string
	}{
		{"not json", `{{{`},
		{"invalid alert", `{"alert": {"severity": "high", "source": "edr"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, deliver(t, bus, tt.payload))
		})
	}

	_, total, err := repo.ListAlerts(context.Background(), &models.ListAlertsRequest{})
	require.NoError(t, err)
	assert.Zero(t, total)
}
