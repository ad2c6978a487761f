package ports

import (
	"context"

	"github.com/lent0n/jira-github-integration/internal/domain"
)

// GitHubClient defines the GitHub Enterprise REST operations the integration uses
type GitHubClient interface {
	// TestConnection probes the authenticated user endpoint.
	// It returns false on any non-200 response and an error only on transport failure.
	TestConnection(ctx context.Context) (bool, error)

	// Branches
	GetBranchSHA(ctx context.Context, owner, repo, branch string) (string, error)
	CreateBranch(ctx context.Context, owner, repo, name, fromSHA string) (*domain.CreatedBranch, error)
	ListBranches(ctx context.Context, owner, repo string) ([]string, error)

	// Pull requests
	CreatePullRequest(ctx context.Context, owner, repo, title, head, base, body string) (*domain.PullRequestInfo, error)
	GetPullRequest(ctx context.Context, owner, repo string, number int) (*domain.PullRequestInfo, error)

	// Webhooks
	RegisterWebhook(ctx context.Context, owner, repo, targetURL, secret string) (int64, error)
}

// GitHubClientPool hands out clients that share a connection pool per GitHub instance and token
type GitHubClientPool interface {
	GetClient(baseURL, token string, trustCustomCertificates bool) (GitHubClient, error)
}
