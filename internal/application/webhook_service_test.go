package application

import (
	"context"
	"errors"
	"testing"

	"github.com/lent0n/jira-github-integration/internal/domain"
	"github.com/lent0n/jira-github-integration/internal/ports"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubHandler struct {
	event    string
	calls    int
	err      error
	failures []string
}

func (h *stubHandler) CanHandle(event string) bool { return event == h.event }

func (h *stubHandler) Handle(ctx context.Context, event *domain.WebhookEvent) error {
	h.calls++
	event.Failures = h.failures
	return h.err
}

func newWebhookService(t *testing.T, handler *stubHandler, ledger ports.DeliveryLedger, pub ports.EventPublisher) *WebhookService {
	t.Helper()
	configs, _ := newTestConfigService()
	dispatcher := NewWebhookDispatcher(zerolog.Nop())
	dispatcher.RegisterHandler(handler)
	return NewWebhookService(configs, dispatcher, ledger, pub, zerolog.Nop())
}

func TestProcessSkipsRedeliveries(t *testing.T) {
	handler := &stubHandler{event: domain.EventPullRequest}
	pub := &fakePublisher{}
	svc := newWebhookService(t, handler, &fakeLedger{seen: map[string]bool{}}, pub)
	ctx := context.Background()

	first := &domain.WebhookEvent{Event: domain.EventPullRequest, DeliveryID: "d-1"}
	require.NoError(t, svc.Process(ctx, first))
	assert.Equal(t, OutcomeHandled, first.Outcome)

	again := &domain.WebhookEvent{Event: domain.EventPullRequest, DeliveryID: "d-1"}
	require.NoError(t, svc.Process(ctx, again))
	assert.Equal(t, OutcomeDuplicate, again.Outcome)

	assert.Equal(t, 1, handler.calls)
	assert.Len(t, pub.events, 1)
}

func TestProcessContinuesWhenLedgerFails(t *testing.T) {
	handler := &stubHandler{event: domain.EventPullRequest}
	svc := newWebhookService(t, handler, &fakeLedger{err: errors.New("redis down")}, nil)

	require.NoError(t, svc.Process(context.Background(), &domain.WebhookEvent{Event: domain.EventPullRequest, DeliveryID: "d-1"}))
	assert.Equal(t, 1, handler.calls)
}

func TestProcessIgnoresUnknownEvents(t *testing.T) {
	handler := &stubHandler{event: domain.EventPullRequest}
	svc := newWebhookService(t, handler, nil, nil)

	event := &domain.WebhookEvent{Event: "deployment_status"}
	require.NoError(t, svc.Process(context.Background(), event))
	assert.Equal(t, OutcomeIgnored, event.Outcome)
	assert.Zero(t, handler.calls)
}

func TestProcessReturnsHandlerError(t *testing.T) {
	handler := &stubHandler{event: domain.EventPullRequest, err: domain.NewValidationError("payload", "Invalid pull_request payload")}
	pub := &fakePublisher{}
	svc := newWebhookService(t, handler, nil, pub)

	err := svc.Process(context.Background(), &domain.WebhookEvent{Event: domain.EventPullRequest})
	assert.Error(t, err)
	assert.Empty(t, pub.events)
}

func TestProcessReleasesDeliveryOnFailedEffects(t *testing.T) {
	handler := &stubHandler{event: domain.EventPullRequest, failures: []string{"transition: jira down"}}
	ledger := &fakeLedger{seen: map[string]bool{}}
	svc := newWebhookService(t, handler, ledger, nil)
	ctx := context.Background()

	require.NoError(t, svc.Process(ctx, &domain.WebhookEvent{Event: domain.EventPullRequest, DeliveryID: "d-2"}))
	assert.False(t, ledger.seen["d-2"])

	handler.failures = nil
	require.NoError(t, svc.Process(ctx, &domain.WebhookEvent{Event: domain.EventPullRequest, DeliveryID: "d-2"}))
	assert.True(t, ledger.seen["d-2"])
	assert.Equal(t, 2, handler.calls)
}

func TestProcessReleasesDeliveryOnHandlerError(t *testing.T) {
	handler := &stubHandler{event: domain.EventPullRequest, err: domain.NewValidationError("payload", "Invalid pull_request payload")}
	ledger := &fakeLedger{seen: map[string]bool{}}
	svc := newWebhookService(t, handler, ledger, nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		err := svc.Process(ctx, &domain.WebhookEvent{Event: domain.EventPullRequest, DeliveryID: "d-3"})
		var verr *domain.ValidationError
		assert.True(t, errors.As(err, &verr))
	}
	assert.Equal(t, 2, handler.calls)
	assert.False(t, ledger.seen["d-3"])
}

func TestLoadConfigRequiresSecret(t *testing.T) {
	svc := newWebhookService(t, &stubHandler{}, nil, nil)

	_, err := svc.LoadConfig(context.Background())
	var cfgErr *domain.ConfigInvalidError
	assert.True(t, errors.As(err, &cfgErr))
}
