package webhook_handlers

import (
	"context"
	"encoding/json"

	"github.com/lent0n/jira-github-integration/internal/application"
	"github.com/lent0n/jira-github-integration/internal/domain"

	"github.com/rs/zerolog"
)

// PushHandler logs pushes to branches that reference an issue. Pushes change nothing in Jira.
type PushHandler struct {
	logger zerolog.Logger
}

// NewPushHandler creates a new push webhook handler
func NewPushHandler(logger zerolog.Logger) *PushHandler {
	return &PushHandler{logger: logger}
}

// CanHandle returns true for push events
func (h *PushHandler) CanHandle(event string) bool {
	return event == domain.EventPush
}

// Handle records the branch and issue key of the push
func (h *PushHandler) Handle(ctx context.Context, event *domain.WebhookEvent) error {
	var push struct {
		Ref        string             `json:"ref"`
		After      string             `json:"after"`
		Repository *domain.Repository `json:"repository,omitempty"`
		Pusher     *struct {
			Name string `json:"name"`
		} `json:"pusher,omitempty"`
	}
	if err := json.Unmarshal(event.Payload, &push); err != nil {
		return domain.NewValidationError("payload", "Invalid push payload")
	}
	if push.Repository != nil {
		event.Repository = push.Repository.FullName
	}
	event.IssueKey, _ = domain.ExtractIssueKey(push.Ref)
	event.Outcome = application.OutcomeIgnored

	log := h.logger.Debug().
		Str("repository", event.Repository).
		Str("ref", push.Ref).
		Str("after", push.After).
		Str("issueKey", event.IssueKey)
	if push.Pusher != nil {
		log = log.Str("pusher", push.Pusher.Name)
	}
	log.Msg("Push received")
	return nil
}
