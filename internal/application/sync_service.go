package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lent0n/jira-github-integration/internal/domain"
	"github.com/lent0n/jira-github-integration/internal/ports"

	"github.com/rs/zerolog"
)

// Sync effect names, used in logs and metrics
const (
	EffectTransition = "transition"
	EffectComment    = "comment"
	EffectRemoteLink = "remote_link"
)

// SyncResult records which effects of one sync succeeded
type SyncResult struct {
	Action       domain.SyncAction `json:"action"`
	IssueKey     string            `json:"issueKey"`
	Transitioned bool              `json:"transitioned"`
	Commented    bool              `json:"commented"`
	Linked       bool              `json:"linked"`
	Errors       []string          `json:"errors,omitempty"`
}

// SyncService applies a routed pull request action to the tracker.
// Effects run independently; a failed effect is logged and the next one still runs.
type SyncService struct {
	tracker  ports.IssueTracker
	recorder ports.SyncRecorder
	logger   zerolog.Logger
}

// NewSyncService creates a new sync service. recorder may be nil.
func NewSyncService(tracker ports.IssueTracker, recorder ports.SyncRecorder, logger zerolog.Logger) *SyncService {
	return &SyncService{
		tracker:  tracker,
		recorder: recorder,
		logger:   logger,
	}
}

// Sync runs transition, comment and remote link for the action. It never fails as a whole.
func (s *SyncService) Sync(
	ctx context.Context,
	cfg *domain.IntegrationConfig,
	action domain.SyncAction,
	issueKey string,
	pr *domain.PullRequest,
	sender *domain.User,
) *SyncResult {
	result := &SyncResult{Action: action, IssueKey: issueKey}
	log := s.logger.With().
		Str("issueKey", issueKey).
		Str("action", string(action)).
		Int("prNumber", pr.Number).
		Logger()

	if target := cfg.TransitionTarget(action.TransitionKey()); target != "" {
		err := s.tracker.TransitionIssue(ctx, issueKey, target)
		s.record(EffectTransition, err)
		if err != nil {
			log.Error().Err(err).Str("targetStatus", target).Msg("Failed to transition issue")
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", EffectTransition, err))
		} else {
			result.Transitioned = true
		}
	}

	err := s.tracker.AddComment(ctx, issueKey, syncComment(action, pr, sender))
	s.record(EffectComment, err)
	if err != nil {
		log.Error().Err(err).Msg("Failed to add comment")
		result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", EffectComment, err))
	} else {
		result.Commented = true
	}

	if pr.HTMLURL != "" {
		link := domain.RemoteLink{URL: pr.HTMLURL, Title: fmt.Sprintf("PR #%d: %s", pr.Number, pr.Title)}
		err = s.tracker.UpsertRemoteLink(ctx, issueKey, link)
		s.record(EffectRemoteLink, err)
		if err != nil {
			log.Error().Err(err).Msg("Failed to link pull request")
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", EffectRemoteLink, err))
		} else {
			result.Linked = true
		}
	}

	log.Info().
		Bool("transitioned", result.Transitioned).
		Bool("commented", result.Commented).
		Bool("linked", result.Linked).
		Int("failures", len(result.Errors)).
		Msg("Pull request synced to issue")
	return result
}

func (s *SyncService) record(effect string, err error) {
	if s.recorder != nil {
		s.recorder.SyncEffect(effect, err)
	}
}

// syncComment renders the Jira wiki markup comment for an action
func syncComment(action domain.SyncAction, pr *domain.PullRequest, sender *domain.User) string {
	var b strings.Builder
	link := fmt.Sprintf("[PR #%d|%s]", pr.Number, pr.HTMLURL)

	switch action {
	case domain.ActionPROpened:
		fmt.Fprintf(&b, "Pull request opened: %s\n", link)
		fmt.Fprintf(&b, "Title: %s\n", pr.Title)
		fmt.Fprintf(&b, "Author: @%s\n", firstLogin(pr.User))
		fmt.Fprintf(&b, "Branch: %s\n", pr.Head.Ref)
	case domain.ActionPRMerged:
		fmt.Fprintf(&b, "Pull request merged: %s\n", link)
		fmt.Fprintf(&b, "Merged by: @%s\n", firstLogin(pr.MergedBy, sender))
		fmt.Fprintf(&b, "Merged at: %s\n", formatTime(pr.MergedAt))
	case domain.ActionPRClosed:
		fmt.Fprintf(&b, "Pull request closed without merging: %s\n", link)
		fmt.Fprintf(&b, "Closed by: @%s\n", firstLogin(pr.ClosedBy, sender))
		fmt.Fprintf(&b, "Closed at: %s\n", formatTime(pr.ClosedAt))
	case domain.ActionPRReopened:
		fmt.Fprintf(&b, "Pull request reopened: %s\n", link)
		fmt.Fprintf(&b, "Reopened by: @%s\n", firstLogin(sender))
	}
	return b.String()
}

// GitHub sends closed_by only on issues, so the sender stands in for pull requests
func firstLogin(users ...*domain.User) string {
	for _, u := range users {
		if login := u.LoginOrEmpty(); login != "" {
			return login
		}
	}
	return "unknown"
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "unknown"
	}
	return t.UTC().Format(time.RFC3339)
}
