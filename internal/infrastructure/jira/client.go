package jira

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lent0n/jira-github-integration/internal/domain"
	"github.com/lent0n/jira-github-integration/internal/ports"

	"github.com/rs/zerolog"
)

const (
	apiPrefix      = "/rest/api/2"
	requestTimeout = 15 * time.Second
	applicationTag = "com.github"
)

// APIError is a non-2xx Jira response
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("Jira API error: %d - %s", e.StatusCode, e.Message)
}

// Client is the Jira REST v2 adapter, authenticated with basic auth
type Client struct {
	baseURL    string
	user       string
	apiToken   string
	httpClient *http.Client
	logger     zerolog.Logger
}

var _ ports.IssueTracker = (*Client)(nil)

// NewClient creates a Jira client. The base URL is the Jira web root.
func NewClient(baseURL, user, apiToken string, logger zerolog.Logger) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" || user == "" || apiToken == "" {
		return nil, fmt.Errorf("invalid Jira client parameters: base URL, user and API token must be provided")
	}
	return &Client{
		baseURL:    baseURL,
		user:       user,
		apiToken:   apiToken,
		httpClient: &http.Client{Timeout: requestTimeout},
		logger:     logger.With().Str("component", "jira").Logger(),
	}, nil
}

type issueResponse struct {
	Key    string `json:"key"`
	Fields struct {
		Summary   string `json:"summary"`
		IssueType *named `json:"issuetype"`
		Status    *named `json:"status"`
		Assignee  *struct {
			Name        string `json:"name"`
			DisplayName string `json:"displayName"`
		} `json:"assignee"`
		Project *struct {
			Key string `json:"key"`
		} `json:"project"`
	} `json:"fields"`
}

type named struct {
	Name string `json:"name"`
}

// GetIssue loads the fields the integration uses
func (c *Client) GetIssue(ctx context.Context, issueKey string) (*domain.Issue, error) {
	var res issueResponse
	path := "/issue/" + url.PathEscape(issueKey) + "?fields=summary,issuetype,status,assignee,project"
	if err := c.do(ctx, http.MethodGet, path, nil, &res); err != nil {
		if isStatus(err, http.StatusNotFound) {
			return nil, &domain.NotFoundError{Resource: "issue", ID: issueKey, Message: "Issue not found: " + issueKey}
		}
		return nil, fmt.Errorf("failed to get issue %s: %w", issueKey, err)
	}

	issue := &domain.Issue{
		Key:     res.Key,
		Summary: res.Fields.Summary,
	}
	if res.Fields.Project != nil {
		issue.ProjectKey = res.Fields.Project.Key
	}
	if issue.ProjectKey == "" {
		issue.ProjectKey, _, _ = strings.Cut(res.Key, "-")
	}
	if res.Fields.IssueType != nil {
		issue.IssueType = res.Fields.IssueType.Name
	}
	if res.Fields.Status != nil {
		issue.Status = res.Fields.Status.Name
	}
	if res.Fields.Assignee != nil {
		issue.Assignee = res.Fields.Assignee.DisplayName
	}
	return issue, nil
}

type transitionsResponse struct {
	Transitions []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
		To   named  `json:"to"`
	} `json:"transitions"`
}

// TransitionIssue moves the issue to the status named target (case-insensitive).
// An issue already in that status is left alone; no matching transition is an error.
func (c *Client) TransitionIssue(ctx context.Context, issueKey, targetStatus string) error {
	issue, err := c.GetIssue(ctx, issueKey)
	if err != nil {
		return err
	}
	if strings.EqualFold(issue.Status, targetStatus) {
		c.logger.Debug().Str("issueKey", issueKey).Str("status", targetStatus).Msg("Issue already in target status")
		return nil
	}

	var available transitionsResponse
	if err := c.do(ctx, http.MethodGet, "/issue/"+url.PathEscape(issueKey)+"/transitions", nil, &available); err != nil {
		return fmt.Errorf("failed to fetch transitions for %s: %w", issueKey, err)
	}

	transitionID := ""
	for _, t := range available.Transitions {
		if strings.EqualFold(t.To.Name, targetStatus) || strings.EqualFold(t.Name, targetStatus) {
			transitionID = t.ID
			break
		}
	}
	if transitionID == "" {
		return &domain.NotFoundError{
			Resource: "transition",
			ID:       targetStatus,
			Message:  fmt.Sprintf("no transition to status %q available for issue %s", targetStatus, issueKey),
		}
	}

	body := map[string]any{"transition": map[string]string{"id": transitionID}}
	if err := c.do(ctx, http.MethodPost, "/issue/"+url.PathEscape(issueKey)+"/transitions", body, nil); err != nil {
		return fmt.Errorf("failed to transition issue %s: %w", issueKey, err)
	}

	c.logger.Info().
		Str("issueKey", issueKey).
		Str("from", issue.Status).
		Str("to", targetStatus).
		Msg("Issue transitioned")
	return nil
}

// AddComment posts a wiki markup comment
func (c *Client) AddComment(ctx context.Context, issueKey, body string) error {
	if err := c.do(ctx, http.MethodPost, "/issue/"+url.PathEscape(issueKey)+"/comment", map[string]string{"body": body}, nil); err != nil {
		return fmt.Errorf("failed to add comment to %s: %w", issueKey, err)
	}
	c.logger.Debug().Str("issueKey", issueKey).Msg("Comment added")
	return nil
}

type remoteLinkRequest struct {
	GlobalID    string `json:"globalId"`
	Application struct {
		Type string `json:"type"`
		Name string `json:"name"`
	} `json:"application"`
	Object struct {
		URL   string `json:"url"`
		Title string `json:"title"`
	} `json:"object"`
}

// UpsertRemoteLink posts the link with globalId = URL; Jira updates an existing link with the same globalId
func (c *Client) UpsertRemoteLink(ctx context.Context, issueKey string, link domain.RemoteLink) error {
	var req remoteLinkRequest
	req.GlobalID = link.URL
	req.Application.Type = applicationTag
	req.Application.Name = "GitHub"
	req.Object.URL = link.URL
	req.Object.Title = link.Title

	if err := c.do(ctx, http.MethodPost, "/issue/"+url.PathEscape(issueKey)+"/remotelink", req, nil); err != nil {
		return fmt.Errorf("failed to link %s: %w", issueKey, err)
	}
	return nil
}

// CanView asks Jira whether username holds BROWSE_PROJECTS on the issue
func (c *Client) CanView(ctx context.Context, username, issueKey string) (bool, error) {
	if username == "" {
		return false, nil
	}
	q := url.Values{}
	q.Set("username", username)
	q.Set("issueKey", issueKey)
	q.Set("permissions", "BROWSE_PROJECTS")

	var users []struct {
		Name string `json:"name"`
	}
	if err := c.do(ctx, http.MethodGet, "/user/permission/search?"+q.Encode(), nil, &users); err != nil {
		if isStatus(err, http.StatusNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check permissions: %w", err)
	}
	for _, u := range users {
		if u.Name == username {
			return true, nil
		}
	}
	return false, nil
}

// IssueURL is the browse URL of the issue
func (c *Client) IssueURL(issueKey string) string {
	return c.baseURL + "/browse/" + issueKey
}

func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+apiPrefix+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(c.user, c.apiToken)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Str("method", method).Str("path", path).Msg("Jira request failed")
		return fmt.Errorf("jira request failed: %w", err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("failed to read Jira response: %w", err)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		c.logger.Warn().
			Int("statusCode", res.StatusCode).
			Str("method", method).
			Str("path", path).
			Msg("Jira returned an error")
		return &APIError{StatusCode: res.StatusCode, Message: errorMessage(data, res.Status)}
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to decode Jira response: %w", err)
		}
	}
	return nil
}

// errorMessage reads Jira's {"errorMessages": [...], "errors": {...}} shape
func errorMessage(data []byte, status string) string {
	var parsed struct {
		ErrorMessages []string          `json:"errorMessages"`
		Errors        map[string]string `json:"errors"`
	}
	if err := json.Unmarshal(data, &parsed); err == nil {
		msgs := append([]string(nil), parsed.ErrorMessages...)
		for field, msg := range parsed.Errors {
			msgs = append(msgs, field+": "+msg)
		}
		if len(msgs) > 0 {
			return strings.Join(msgs, "; ")
		}
	}
	return status
}

func isStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}
