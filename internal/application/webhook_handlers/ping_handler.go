package webhook_handlers

import (
	"context"
	"encoding/json"

	"github.com/lent0n/jira-github-integration/internal/domain"

	"github.com/rs/zerolog"
)

// PingHandler acknowledges the ping GitHub sends when a hook is created
type PingHandler struct {
	logger zerolog.Logger
}

// NewPingHandler creates a new ping webhook handler
func NewPingHandler(logger zerolog.Logger) *PingHandler {
	return &PingHandler{logger: logger}
}

// CanHandle returns true for ping events
func (h *PingHandler) CanHandle(event string) bool {
	return event == domain.EventPing
}

// Handle logs the hook id
func (h *PingHandler) Handle(ctx context.Context, event *domain.WebhookEvent) error {
	var ping struct {
		Zen        string             `json:"zen"`
		HookID     int64              `json:"hook_id"`
		Repository *domain.Repository `json:"repository,omitempty"`
	}
	// a ping body is informational only
	_ = json.Unmarshal(event.Payload, &ping)
	if ping.Repository != nil {
		event.Repository = ping.Repository.FullName
	}
	event.Outcome = "pong"

	h.logger.Info().
		Int64("hookId", ping.HookID).
		Str("repository", event.Repository).
		Str("zen", ping.Zen).
		Msg("Received GitHub ping")
	return nil
}
