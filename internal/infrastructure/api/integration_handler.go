package api

import (
	"net/http"

	"github.com/lent0n/jira-github-integration/internal/application"
	"github.com/lent0n/jira-github-integration/internal/domain"
	"github.com/lent0n/jira-github-integration/internal/ports"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// IntegrationHandler serves the user API behind UserAuth
type IntegrationHandler struct {
	github  *application.GitHubService
	tracker ports.IssueTracker
	logger  zerolog.Logger
}

// NewIntegrationHandler creates the branch, pull request and issue info endpoints
func NewIntegrationHandler(github *application.GitHubService, tracker ports.IssueTracker, logger zerolog.Logger) *IntegrationHandler {
	return &IntegrationHandler{
		github:  github,
		tracker: tracker,
		logger:  logger,
	}
}

// authorize checks that the caller may browse the issue and returns the normalized key
func (h *IntegrationHandler) authorize(r *http.Request, issueKey string) (string, error) {
	key, err := domain.ValidateIssueKey(issueKey)
	if err != nil {
		return "", err
	}
	user := domain.GetUserFromContext(r.Context())
	ok, err := h.tracker.CanView(r.Context(), user, key)
	if err != nil {
		return "", err
	}
	if !ok {
		h.logger.Warn().Str("user", user).Str("issueKey", key).Msg("User may not view issue")
		return "", &domain.AuthError{Message: "You do not have permission to view this issue", Forbidden: true}
	}
	return key, nil
}

// CreateBranch handles POST /api/v1/branch/create
func (h *IntegrationHandler) CreateBranch(w http.ResponseWriter, r *http.Request) {
	var in application.CreateBranchInput
	if !decodeJSON(w, r, &in) {
		return
	}
	key, err := h.authorize(r, in.IssueKey)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	in.IssueKey = key

	branch, err := h.github.CreateBranch(r.Context(), in)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"branchName": branch.Name,
		"branchUrl":  branch.HTMLURL,
		"sha":        branch.SHA,
	})
}

// CreatePullRequest handles POST /api/v1/pr/create
func (h *IntegrationHandler) CreatePullRequest(w http.ResponseWriter, r *http.Request) {
	var in application.CreatePullRequestInput
	if !decodeJSON(w, r, &in) {
		return
	}
	key, err := h.authorize(r, in.IssueKey)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	in.IssueKey = key

	pr, err := h.github.CreatePullRequest(r.Context(), in)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"prNumber": pr.Number,
		"prUrl":    pr.URL,
		"title":    pr.Title,
	})
}

// IssueInfo handles GET /api/v1/issue/{issueKey}/github-info
func (h *IntegrationHandler) IssueInfo(w http.ResponseWriter, r *http.Request) {
	key, err := h.authorize(r, chi.URLParam(r, "issueKey"))
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	info, err := h.github.IssueInfo(r.Context(), key)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}
