package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vantor-systems/vantor-soc/internal/events"
	"github.com/vantor-systems/vantor-soc/internal/messaging"
	"github.com/vantor-systems/vantor-soc/internal/models"
)

// recordingBus captures published subjects in order.
type recordingBus struct {
	mu       sync.Mutex
	subjects []string
}

func (b *recordingBus) Publish(ctx context.Context, subject string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subjects = append(b.subjects, subject)
	return nil
}

func (b *recordingBus) Close() error { return nil }

func (b *recordingBus) published() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.subjects...)
}

// recordingSink counts trigger sink invocations.
type recordingSink struct {
	created int
	updated int
	cases   int
}

func (s *recordingSink) AlertCreated(ctx context.Context, a *models.Alert) { s.created++ }
func (s *recordingSink) AlertUpdated(ctx context.Context, a *models.Alert) { s.updated++ }
func (s *recordingSink) CaseCreated(ctx context.Context, c *models.Case)   { s.cases++ }

func newRecordingPublisher() (*events.Publisher, *recordingBus) {
	bus := &recordingBus{}
	return events.NewPublisher(bus, slog.New(slog.NewTextHandler(io.Discard, nil))), bus
}

func TestAlertLifecyclePublishesEvents(t *testing.T) {
	svc, _ := newAlertService()
	pub, bus := newRecordingPublisher()
	svc.SetEventPublisher(pub)

	a := createTestAlert(t, svc)
	assert.Equal(t, []string{messaging.SubjectAlertsCreated}, bus.published())

	title := "updated title"
	_, err := svc.UpdateAlert(context.Background(), a.ID, &models.UpdateAlertRequest{Title: &title})
	require.NoError(t, err)

	_, err = svc.AssignAlert(context.Background(), a.ID, &models.AssignAlertRequest{Assignee: "analyst-2"})
	require.NoError(t, err)

	_, err = svc.ResolveAlert(context.Background(), a.ID, &models.ResolveAlertRequest{Notes: "benign"})
	require.NoError(t, err)

	assert.Equal(t, []string{
		messaging.SubjectAlertsCreated,
		messaging.SubjectAlertsUpdated,
		messaging.SubjectAlertsUpdated,
		messaging.SubjectAlertsUpdated,
	}, bus.published())
}

func TestCaseLifecyclePublishesEvents(t *testing.T) {
	caseSvc, _, _ := newCaseService()
	pub, bus := newRecordingPublisher()
	caseSvc.SetEventPublisher(pub)

	c := createTestCase(t, caseSvc)

	_, err := caseSvc.Escalate(context.Background(), c.ID, &models.EscalateCaseRequest{
		Target: "tier-2", Reason: "needs forensics",
	}, "analyst-1")
	require.NoError(t, err)

	_, err = caseSvc.Resolve(context.Background(), c.ID, &models.ResolveCaseRequest{
		Summary: "contained and cleaned",
	}, "analyst-1")
	require.NoError(t, err)

	assert.Equal(t, []string{
		messaging.SubjectCasesCreated,
		messaging.SubjectCasesEscalated,
		messaging.SubjectCasesResolved,
	}, bus.published())
}

func TestUnsetPublisherIsNoop(t *testing.T) {
	svc, _ := newAlertService()
	createTestAlert(t, svc)
}

func TestApplyEnrichmentSkipsTriggerSink(t *testing.T) {
	svc, _ := newAlertService()
	a := createTestAlert(t, svc)

	sink := &recordingSink{}
	svc.SetTriggerSink(sink)

	enriched, err := svc.ApplyEnrichment(context.Background(), a.ID, map[string]interface{}{
		"geoip": map[string]interface{}{"country": "NL"},
	})
	require.NoError(t, err)
	assert.Contains(t, enriched.Enrichment, "geoip")
	assert.Zero(t, sink.updated, "enrichment writes must not re-enter trigger evaluation")

	// A regular update still fires the sink.
	title := "renamed"
	_, err = svc.UpdateAlert(context.Background(), a.ID, &models.UpdateAlertRequest{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, 1, sink.updated)
}
