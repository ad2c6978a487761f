package application

import (
	"context"

	"github.com/lent0n/jira-github-integration/internal/domain"

	"github.com/rs/zerolog"
)

// Outcomes recorded on a WebhookEvent
const (
	OutcomeIgnored   = "ignored"
	OutcomeDuplicate = "duplicate"
	OutcomeHandled   = "handled"
)

// WebhookHandler processes one GitHub event type
type WebhookHandler interface {
	CanHandle(event string) bool
	Handle(ctx context.Context, event *domain.WebhookEvent) error
}

// WebhookDispatcher routes a verified event to the first handler that accepts it
type WebhookDispatcher struct {
	handlers []WebhookHandler
	logger   zerolog.Logger
}

// NewWebhookDispatcher creates an empty dispatcher
func NewWebhookDispatcher(logger zerolog.Logger) *WebhookDispatcher {
	return &WebhookDispatcher{logger: logger}
}

// RegisterHandler appends a handler. Registration order decides ties.
func (d *WebhookDispatcher) RegisterHandler(h WebhookHandler) {
	d.handlers = append(d.handlers, h)
}

// Dispatch runs the matching handler. Events nobody handles are ignored, not failed.
func (d *WebhookDispatcher) Dispatch(ctx context.Context, event *domain.WebhookEvent) error {
	for _, h := range d.handlers {
		if h.CanHandle(event.Event) {
			return h.Handle(ctx, event)
		}
	}
	event.Outcome = OutcomeIgnored
	d.logger.Debug().Str("event", event.Event).Msg("No handler for webhook event")
	return nil
}
