package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/lent0n/jira-github-integration/internal/domain"
	"github.com/lent0n/jira-github-integration/internal/ports"

	"github.com/rs/zerolog"
)

const (
	branchGuidance      = "Please check your GitHub configuration and repository permissions."
	pullRequestGuidance = "Please verify the branch exists and you have permission to create pull requests."
)

// GitHubService implements the user-triggered branch and pull request flows
type GitHubService struct {
	configs *ConfigService
	tracker ports.IssueTracker
	pool    ports.GitHubClientPool
	tokens  ports.TokenValidator
	logger  zerolog.Logger
}

// NewGitHubService creates a new GitHub application service
func NewGitHubService(
	configs *ConfigService,
	tracker ports.IssueTracker,
	pool ports.GitHubClientPool,
	tokens ports.TokenValidator,
	logger zerolog.Logger,
) *GitHubService {
	return &GitHubService{
		configs: configs,
		tracker: tracker,
		pool:    pool,
		tokens:  tokens,
		logger:  logger,
	}
}

// CreateBranchInput is the body of a branch creation request
type CreateBranchInput struct {
	IssueKey   string `json:"issueKey"`
	BaseBranch string `json:"baseBranch"`
	BranchName string `json:"branchName"`
}

// CreatePullRequestInput is the body of a pull request creation request
type CreatePullRequestInput struct {
	IssueKey     string `json:"issueKey"`
	SourceBranch string `json:"sourceBranch"`
	TargetBranch string `json:"targetBranch"`
	Title        string `json:"title"`
	Description  string `json:"description"`
}

// TestConnectionInput carries candidate credentials. Empty or masked values fall back to the stored config,
// the token only when the URL is the stored one.
type TestConnectionInput struct {
	GitHubEnterpriseURL     string `json:"githubEnterpriseUrl"`
	GitHubToken             string `json:"githubToken"`
	TrustCustomCertificates *bool  `json:"trustCustomCertificates,omitempty"`
}

// issueContext is what every user flow resolves before talking to GitHub
type issueContext struct {
	cfg     *domain.IntegrationConfig
	issue   *domain.Issue
	mapping *domain.RepositoryMapping
	client  ports.GitHubClient
}

func (s *GitHubService) resolve(ctx context.Context, issueKey string) (*issueContext, error) {
	cfg, err := s.configs.LoadValid(ctx)
	if err != nil {
		return nil, err
	}
	issue, err := s.tracker.GetIssue(ctx, issueKey)
	if err != nil {
		return nil, err
	}
	mapping := cfg.RepositoryMapping(issue.ProjectKey)
	if mapping == nil {
		return nil, &domain.NotFoundError{
			Resource: "repository mapping",
			ID:       issue.ProjectKey,
			Message:  "No repository mapping found for project: " + issue.ProjectKey,
		}
	}
	client, err := s.pool.GetClient(cfg.GitHubEnterpriseURL, cfg.GitHubToken, cfg.TrustCustomCertificates)
	if err != nil {
		return nil, err
	}
	return &issueContext{cfg: cfg, issue: issue, mapping: mapping, client: client}, nil
}

// CreateBranch creates a branch for the issue in its mapped repository.
// Commenting and linking afterwards are best effort.
func (s *GitHubService) CreateBranch(ctx context.Context, in CreateBranchInput) (*domain.CreatedBranch, error) {
	issueKey, err := domain.ValidateIssueKey(in.IssueKey)
	if err != nil {
		return nil, err
	}
	if in.BaseBranch != "" {
		if in.BaseBranch, err = domain.ValidateBranchName(in.BaseBranch); err != nil {
			return nil, err
		}
	}

	ic, err := s.resolve(ctx, issueKey)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(in.BranchName)
	if name == "" {
		name = domain.RenderBranchName(ic.mapping.BranchTemplate(ic.cfg.BranchNaming), ic.issue)
	}
	if name, err = domain.ValidateBranchName(name); err != nil {
		return nil, err
	}

	base := in.BaseBranch
	if base == "" {
		base = ic.mapping.DefaultBranch
	}
	owner, repo := ic.mapping.GitHubOwner, ic.mapping.GitHubRepo

	sha, err := ic.client.GetBranchSHA(ctx, owner, repo, base)
	if err != nil {
		return nil, &domain.GitHubOperationError{Op: "create branch", Guidance: branchGuidance, Err: err}
	}
	branch, err := ic.client.CreateBranch(ctx, owner, repo, name, sha)
	if err != nil {
		return nil, &domain.GitHubOperationError{Op: "create branch", Guidance: branchGuidance, Err: err}
	}
	branch.Name = name
	branch.HTMLURL = fmt.Sprintf("%s/%s/%s/tree/%s", ic.cfg.GitHubEnterpriseURL, owner, repo, name)

	s.logger.Info().
		Str("issueKey", issueKey).
		Str("repository", ic.mapping.FullName()).
		Str("branch", name).
		Str("baseBranch", base).
		Str("user", domain.GetUserFromContext(ctx)).
		Msg("Branch created for issue")

	s.bestEffort(ctx, issueKey,
		fmt.Sprintf("Branch created: [%s|%s]", name, branch.HTMLURL),
		domain.RemoteLink{URL: branch.HTMLURL, Title: "Branch: " + name},
	)
	return branch, nil
}

// CreatePullRequest opens a pull request for the issue, then best effort moves it to
// the pr_opened status, comments and links
func (s *GitHubService) CreatePullRequest(ctx context.Context, in CreatePullRequestInput) (*domain.PullRequestInfo, error) {
	issueKey, err := domain.ValidateIssueKey(in.IssueKey)
	if err != nil {
		return nil, err
	}
	source, err := domain.ValidateBranchName(in.SourceBranch)
	if err != nil {
		return nil, err
	}
	target := strings.TrimSpace(in.TargetBranch)
	if target != "" {
		if target, err = domain.ValidateBranchName(target); err != nil {
			return nil, err
		}
	}
	description, err := domain.ValidateDescription(in.Description)
	if err != nil {
		return nil, err
	}

	ic, err := s.resolve(ctx, issueKey)
	if err != nil {
		return nil, err
	}

	title := in.Title
	if strings.TrimSpace(title) == "" {
		title = fmt.Sprintf("%s: %s", issueKey, ic.issue.Summary)
	}
	if title, err = domain.ValidateTitle(title); err != nil {
		return nil, err
	}
	if target == "" {
		target = ic.mapping.DefaultBranch
	}
	body := fmt.Sprintf("Related to %s\n\n%s", s.tracker.IssueURL(issueKey), description)

	pr, err := ic.client.CreatePullRequest(ctx, ic.mapping.GitHubOwner, ic.mapping.GitHubRepo, title, source, target, body)
	if err != nil {
		return nil, &domain.GitHubOperationError{Op: "create pull request", Guidance: pullRequestGuidance, Err: err}
	}

	s.logger.Info().
		Str("issueKey", issueKey).
		Str("repository", ic.mapping.FullName()).
		Int("prNumber", pr.Number).
		Str("user", domain.GetUserFromContext(ctx)).
		Msg("Pull request created for issue")

	if status := ic.cfg.TransitionTarget(domain.TransitionPROpened); status != "" {
		if err := s.tracker.TransitionIssue(ctx, issueKey, status); err != nil {
			s.logger.Warn().Err(err).Str("issueKey", issueKey).Str("targetStatus", status).Msg("Failed to transition issue after pull request creation")
		}
	}
	s.bestEffort(ctx, issueKey,
		fmt.Sprintf("Pull request created: [PR #%d|%s]", pr.Number, pr.URL),
		domain.RemoteLink{URL: pr.URL, Title: fmt.Sprintf("PR #%d", pr.Number)},
	)
	return pr, nil
}

// IssueInfo lists branches in the mapped repository whose name contains the issue key
func (s *GitHubService) IssueInfo(ctx context.Context, issueKey string) (*domain.IssueGitHubInfo, error) {
	issueKey, err := domain.ValidateIssueKey(issueKey)
	if err != nil {
		return nil, err
	}
	ic, err := s.resolve(ctx, issueKey)
	if err != nil {
		return nil, err
	}
	names, err := ic.client.ListBranches(ctx, ic.mapping.GitHubOwner, ic.mapping.GitHubRepo)
	if err != nil {
		return nil, &domain.GitHubOperationError{Op: "list branches", Guidance: branchGuidance, Err: err}
	}

	info := &domain.IssueGitHubInfo{
		IssueKey:   issueKey,
		Repository: ic.mapping.FullName(),
		Branches:   []string{},
	}
	for _, name := range names {
		if strings.Contains(strings.ToUpper(name), issueKey) {
			info.Branches = append(info.Branches, name)
		}
	}
	return info, nil
}

// TestConnection checks candidate credentials against GitHub without saving them
func (s *GitHubService) TestConnection(ctx context.Context, in TestConnectionInput) (bool, error) {
	stored, err := s.configs.Load(ctx)
	if err != nil {
		return false, err
	}

	baseURL := strings.TrimSpace(in.GitHubEnterpriseURL)
	if baseURL == "" {
		baseURL = stored.GitHubEnterpriseURL
	}
	if baseURL, err = domain.ValidateURL("githubEnterpriseUrl", baseURL); err != nil {
		return false, err
	}
	baseURL = strings.TrimRight(baseURL, "/")
	token := strings.TrimSpace(in.GitHubToken)
	if token == "" || token == domain.MaskedValue {
		// The stored token only ever goes to the stored host
		if stored.GitHubToken != "" && !sameEndpoint(baseURL, stored.GitHubEnterpriseURL) {
			return false, domain.NewValidationError("githubToken", "GitHub token is required when testing a different URL")
		}
		token = stored.GitHubToken
	}
	if token == "" {
		return false, domain.NewValidationError("githubToken", "GitHub token is required")
	}
	trust := stored.TrustCustomCertificates
	if in.TrustCustomCertificates != nil {
		trust = *in.TrustCustomCertificates
	}

	return s.tokens.ValidateToken(ctx, baseURL, token, trust)
}

func (s *GitHubService) bestEffort(ctx context.Context, issueKey, comment string, link domain.RemoteLink) {
	if err := s.tracker.AddComment(ctx, issueKey, comment); err != nil {
		s.logger.Warn().Err(err).Str("issueKey", issueKey).Msg("Failed to add comment to issue")
	}
	if err := s.tracker.UpsertRemoteLink(ctx, issueKey, link); err != nil {
		s.logger.Warn().Err(err).Str("issueKey", issueKey).Msg("Failed to link issue")
	}
}

func sameEndpoint(a, b string) bool {
	return strings.EqualFold(strings.TrimRight(strings.TrimSpace(a), "/"), strings.TrimRight(strings.TrimSpace(b), "/"))
}
