package ports

import (
	"context"

	"github.com/lent0n/jira-github-integration/internal/domain"
)

// IssueTracker defines the Jira operations the integration consumes
type IssueTracker interface {
	// GetIssue returns a domain.NotFoundError when the issue does not exist
	GetIssue(ctx context.Context, issueKey string) (*domain.Issue, error)

	// TransitionIssue moves the issue to the named status. Already being there is a no-op.
	TransitionIssue(ctx context.Context, issueKey, targetStatus string) error

	// AddComment appends a comment in Jira wiki markup
	AddComment(ctx context.Context, issueKey, body string) error

	// UpsertRemoteLink creates or updates the link keyed by its URL
	UpsertRemoteLink(ctx context.Context, issueKey string, link domain.RemoteLink) error

	// CanView reports whether the user may browse the issue
	CanView(ctx context.Context, username, issueKey string) (bool, error)

	// IssueURL is the browse URL of the issue
	IssueURL(issueKey string) string
}
