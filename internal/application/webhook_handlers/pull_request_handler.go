package webhook_handlers

import (
	"context"
	"encoding/json"

	"github.com/lent0n/jira-github-integration/internal/application"
	"github.com/lent0n/jira-github-integration/internal/domain"
	"github.com/lent0n/jira-github-integration/internal/ports"

	"github.com/rs/zerolog"
)

// PullRequestHandler turns pull_request events into issue updates
type PullRequestHandler struct {
	sync   *application.SyncService
	pool   ports.GitHubClientPool
	logger zerolog.Logger
}

// NewPullRequestHandler creates a new pull request webhook handler
func NewPullRequestHandler(sync *application.SyncService, pool ports.GitHubClientPool, logger zerolog.Logger) *PullRequestHandler {
	return &PullRequestHandler{
		sync:   sync,
		pool:   pool,
		logger: logger,
	}
}

// CanHandle returns true for pull_request events
func (h *PullRequestHandler) CanHandle(event string) bool {
	return event == domain.EventPullRequest
}

// Handle extracts the issue key, routes the action and syncs the issue.
// Only an unparseable payload is an error.
func (h *PullRequestHandler) Handle(ctx context.Context, event *domain.WebhookEvent) error {
	var payload domain.PullRequestPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		return domain.NewValidationError("payload", "Invalid pull_request payload")
	}

	pr := &payload.PullRequest
	if pr.Number == 0 {
		pr.Number = payload.Number
	}
	event.Action = payload.Action
	if payload.Repository != nil {
		event.Repository = payload.Repository.FullName
	}

	log := h.logger.With().
		Str("deliveryId", event.DeliveryID).
		Str("action", payload.Action).
		Str("repository", event.Repository).
		Int("prNumber", pr.Number).
		Logger()

	issueKey, ok := domain.ExtractIssueKey(pr.Head.Ref, pr.Title)
	if !ok {
		event.Outcome = application.OutcomeIgnored
		log.Debug().Str("headRef", pr.Head.Ref).Msg("No issue key in pull request, ignoring")
		return nil
	}
	event.IssueKey = issueKey

	merged := pr.IsMerged()
	if payload.Action == "closed" && pr.Merged == nil {
		merged = h.lookupMerged(ctx, event.Config, payload.Repository, pr.Number)
	}

	action, ok := domain.RouteAction(payload.Action, merged)
	if !ok {
		event.Outcome = application.OutcomeIgnored
		log.Debug().Msg("Pull request action not synced")
		return nil
	}

	log.Info().Str("issueKey", issueKey).Str("syncAction", string(action)).Msg("Processing pull request webhook event")
	result := h.sync.Sync(ctx, event.Config, action, issueKey, pr, payload.Sender)
	event.Outcome = string(action)
	event.Failures = result.Errors
	return nil
}

// lookupMerged asks GitHub when a closed payload omits the merged flag. Any failure counts as not merged.
func (h *PullRequestHandler) lookupMerged(ctx context.Context, cfg *domain.IntegrationConfig, repo *domain.Repository, number int) bool {
	owner, name := repo.OwnerAndName()
	if !cfg.IsValid() || owner == "" || name == "" || number == 0 {
		return false
	}
	client, err := h.pool.GetClient(cfg.GitHubEnterpriseURL, cfg.GitHubToken, cfg.TrustCustomCertificates)
	if err != nil {
		h.logger.Warn().Err(err).Msg("Cannot check merged state without a GitHub client")
		return false
	}
	info, err := client.GetPullRequest(ctx, owner, name, number)
	if err != nil {
		h.logger.Warn().Err(err).Str("repository", owner+"/"+name).Int("prNumber", number).Msg("Failed to fetch pull request merged state")
		return false
	}
	return info.Merged
}
