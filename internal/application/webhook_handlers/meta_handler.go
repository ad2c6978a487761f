package webhook_handlers

import (
	"context"
	"encoding/json"

	"github.com/lent0n/jira-github-integration/internal/application"
	"github.com/lent0n/jira-github-integration/internal/domain"

	"github.com/rs/zerolog"
)

// MetaHandler forgets hooks that were deleted on GitHub
type MetaHandler struct {
	configs *application.ConfigService
	logger  zerolog.Logger
}

// NewMetaHandler creates a new meta webhook handler
func NewMetaHandler(configs *application.ConfigService, logger zerolog.Logger) *MetaHandler {
	return &MetaHandler{
		configs: configs,
		logger:  logger,
	}
}

// CanHandle returns true for meta events
func (h *MetaHandler) CanHandle(event string) bool {
	return event == domain.EventMeta
}

// Handle removes the deleted hook id from the stored config
func (h *MetaHandler) Handle(ctx context.Context, event *domain.WebhookEvent) error {
	var meta domain.MetaPayload
	if err := json.Unmarshal(event.Payload, &meta); err != nil {
		return domain.NewValidationError("payload", "Invalid meta payload")
	}
	event.Action = meta.Action
	if meta.Repository != nil {
		event.Repository = meta.Repository.FullName
	}
	if meta.Action != "deleted" {
		event.Outcome = application.OutcomeIgnored
		return nil
	}

	repo, err := h.configs.RemoveWebhook(ctx, meta.HookID)
	if err != nil {
		// the hook is gone on GitHub either way
		h.logger.Error().Err(err).Int64("hookId", meta.HookID).Msg("Failed to forget deleted webhook")
		event.Outcome = application.OutcomeIgnored
		return nil
	}
	if repo == "" {
		h.logger.Info().Int64("hookId", meta.HookID).Msg("Deleted webhook was not registered by this integration")
		event.Outcome = application.OutcomeIgnored
		return nil
	}

	event.Outcome = "webhook_removed"
	h.logger.Info().
		Int64("hookId", meta.HookID).
		Str("repository", repo).
		Msg("Webhook deleted on GitHub, removed from configuration")
	return nil
}
