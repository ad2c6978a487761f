package github

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/lent0n/jira-github-integration/internal/domain"
	"github.com/lent0n/jira-github-integration/internal/infrastructure/metrics"
	"github.com/lent0n/jira-github-integration/internal/ports"

	gogithub "github.com/google/go-github/v62/github"
	"github.com/rs/zerolog"
)

const (
	maxTotalConnections   = 20
	maxConnectionsPerHost = 10
	connectTimeout        = 5 * time.Second
	readTimeout           = 30 * time.Second

	acceptHeader = "application/vnd.github.v3+json"
	apiPrefix    = "/api/v3"

	// cap on error bodies kept in HostAPIError
	maxErrorBody = 4096
)

// Client is the GitHub Enterprise REST adapter. Every call goes through the retry loop.
type Client struct {
	baseURL     string
	apiURL      string
	token       string
	httpClient  *http.Client
	transport   *http.Transport
	rateLimiter *RateLimiter
	retryConfig RetryConfig
	metrics     *metrics.Metrics
	logger      zerolog.Logger
}

var _ ports.GitHubClient = (*Client)(nil)

// NewClient creates a client with default retry and no throttling
func NewClient(baseURL, token string, trustCustomCertificates bool) *Client {
	return NewClientWithOptions(baseURL, token, trustCustomCertificates, nil, DefaultRetryConfig(), nil, zerolog.Nop())
}

// NewClientWithOptions creates a client with rate limiting, retry and metrics options
func NewClientWithOptions(
	baseURL, token string,
	trustCustomCertificates bool,
	rateLimiter *RateLimiter,
	retryConfig RetryConfig,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	transport := newTransport(trustCustomCertificates)
	if trustCustomCertificates {
		logger.Warn().
			Str("baseUrl", baseURL).
			Msg("TLS certificate and hostname verification disabled for GitHub; transport security is reduced")
	}

	c := &Client{
		baseURL:   baseURL,
		apiURL:    baseURL + apiPrefix,
		token:     token,
		transport: transport,
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   connectTimeout + readTimeout,
		},
		rateLimiter: rateLimiter,
		retryConfig: retryConfig,
		metrics:     m,
		logger:      logger.With().Str("component", "github").Logger(),
	}
	if c.retryConfig.OnRetry == nil {
		c.retryConfig.OnRetry = func(attempt int, delay time.Duration, err error) {
			c.metrics.GitHubRetry()
			c.logger.Warn().
				Err(err).
				Int("attempt", attempt).
				Dur("delay", delay).
				Msg("Retrying GitHub API call")
		}
	}
	return c
}

func newTransport(trustCustomCertificates bool) *http.Transport {
	dialer := &net.Dialer{
		Timeout:   connectTimeout,
		KeepAlive: 30 * time.Second,
	}
	t := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		MaxIdleConns:          maxTotalConnections,
		MaxIdleConnsPerHost:   maxConnectionsPerHost,
		MaxConnsPerHost:       maxConnectionsPerHost,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   connectTimeout,
		ResponseHeaderTimeout: readTimeout,
		ExpectContinueTimeout: time.Second,
	}
	if trustCustomCertificates {
		t.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // explicit operator opt-in
	}
	return t
}

// BaseURL is the normalized web URL of the GitHub instance
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Close releases idle pooled connections
func (c *Client) Close() {
	c.transport.CloseIdleConnections()
}

// TestConnection probes GET /user
func (c *Client) TestConnection(ctx context.Context) (bool, error) {
	var user gogithub.User
	_, err := c.do(ctx, http.MethodGet, "/user", nil, &user)
	if err == nil {
		c.logger.Info().Str("login", user.GetLogin()).Msg("GitHub connection test succeeded")
		return true, nil
	}
	if isTransport(err) {
		return false, err
	}
	c.logger.Warn().Err(err).Msg("GitHub connection test failed")
	return false, nil
}

// GetBranchSHA returns the head commit SHA of a branch.
// Without an exact ref GitHub answers with an array of prefix matches, which counts as not found.
func (c *Client) GetBranchSHA(ctx context.Context, owner, repo, branch string) (string, error) {
	notFound := &domain.NotFoundError{Resource: "branch", ID: owner + "/" + repo + ":" + branch, Message: fmt.Sprintf("branch %s not found in %s/%s", branch, owner, repo)}
	var raw json.RawMessage
	path := fmt.Sprintf("%s/git/refs/heads/%s", repoPath(owner, repo), escapeRef(branch))
	if _, err := c.do(ctx, http.MethodGet, path, nil, &raw); err != nil {
		if domain.IsNotFound(err) {
			return "", notFound
		}
		return "", err
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '[' {
		return "", notFound
	}
	var ref gogithub.Reference
	if err := json.Unmarshal(raw, &ref); err != nil {
		return "", &domain.HostAPIError{Message: "failed to decode GitHub response"}
	}
	if ref.GetRef() != "" && ref.GetRef() != "refs/heads/"+branch {
		return "", notFound
	}
	sha := ref.GetObject().GetSHA()
	if sha == "" {
		return "", &domain.HostAPIError{Message: "branch reference has no object sha"}
	}
	return sha, nil
}

type createRefRequest struct {
	Ref string `json:"ref"`
	SHA string `json:"sha"`
}

// CreateBranch creates refs/heads/{name} pointing at fromSHA
func (c *Client) CreateBranch(ctx context.Context, owner, repo, name, fromSHA string) (*domain.CreatedBranch, error) {
	req := createRefRequest{Ref: "refs/heads/" + name, SHA: fromSHA}
	var ref gogithub.Reference
	if _, err := c.do(ctx, http.MethodPost, repoPath(owner, repo)+"/git/refs", req, &ref); err != nil {
		return nil, err
	}
	c.logger.Info().Str("repository", owner+"/"+repo).Str("branch", name).Msg("Created branch")
	return &domain.CreatedBranch{
		Ref:  ref.GetRef(),
		SHA:  ref.GetObject().GetSHA(),
		URL:  ref.GetURL(),
		Name: name,
	}, nil
}

// ListBranches returns branch names of the first page (100 branches)
func (c *Client) ListBranches(ctx context.Context, owner, repo string) ([]string, error) {
	var branches []*gogithub.Branch
	if _, err := c.do(ctx, http.MethodGet, repoPath(owner, repo)+"/branches?per_page=100", nil, &branches); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(branches))
	for _, b := range branches {
		names = append(names, b.GetName())
	}
	return names, nil
}

type createPullRequestRequest struct {
	Title string `json:"title"`
	Head  string `json:"head"`
	Base  string `json:"base"`
	Body  string `json:"body"`
}

// CreatePullRequest opens a pull request from head into base
func (c *Client) CreatePullRequest(ctx context.Context, owner, repo, title, head, base, body string) (*domain.PullRequestInfo, error) {
	req := createPullRequestRequest{Title: title, Head: head, Base: base, Body: body}
	var pr gogithub.PullRequest
	if _, err := c.do(ctx, http.MethodPost, repoPath(owner, repo)+"/pulls", req, &pr); err != nil {
		return nil, err
	}
	c.logger.Info().Str("repository", owner+"/"+repo).Int("number", pr.GetNumber()).Msg("Created pull request")
	return pullRequestInfo(&pr), nil
}

// GetPullRequest fetches a pull request including its merged flag
func (c *Client) GetPullRequest(ctx context.Context, owner, repo string, number int) (*domain.PullRequestInfo, error) {
	var pr gogithub.PullRequest
	path := repoPath(owner, repo) + "/pulls/" + strconv.Itoa(number)
	if _, err := c.do(ctx, http.MethodGet, path, nil, &pr); err != nil {
		return nil, err
	}
	return pullRequestInfo(&pr), nil
}

type hookConfig struct {
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
	Secret      string `json:"secret"`
}

type createHookRequest struct {
	Name   string     `json:"name"`
	Active bool       `json:"active"`
	Events []string   `json:"events"`
	Config hookConfig `json:"config"`
}

// RegisterWebhook creates an active JSON hook for pull_request and push events
func (c *Client) RegisterWebhook(ctx context.Context, owner, repo, targetURL, secret string) (int64, error) {
	req := createHookRequest{
		Name:   "web",
		Active: true,
		Events: []string{domain.EventPullRequest, domain.EventPush},
		Config: hookConfig{URL: targetURL, ContentType: "json", Secret: secret},
	}
	var hook gogithub.Hook
	if _, err := c.do(ctx, http.MethodPost, repoPath(owner, repo)+"/hooks", req, &hook); err != nil {
		return 0, err
	}
	c.logger.Info().Str("repository", owner+"/"+repo).Int64("webhookId", hook.GetID()).Msg("Registered webhook")
	return hook.GetID(), nil
}

type response struct {
	status int
	body   []byte
}

// do sends one logical request through the retry loop and decodes a 2xx body into out
func (c *Client) do(ctx context.Context, method, path string, payload any, out any) (int, error) {
	var encoded []byte
	if payload != nil {
		var err error
		encoded, err = json.Marshal(payload)
		if err != nil {
			return 0, fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	resp, err := Retry(ctx, c.retryConfig, IsRetryable, func(ctx context.Context, attempt int) (response, error) {
		return c.attempt(ctx, method, path, encoded, attempt)
	})
	if err != nil {
		c.logger.Error().
			Err(err).
			Str("method", method).
			Str("path", path).
			Msg("GitHub API call failed")
		return 0, err
	}

	if out != nil && len(resp.body) > 0 {
		if err := json.Unmarshal(resp.body, out); err != nil {
			return resp.status, fmt.Errorf("failed to decode GitHub response: %w", err)
		}
	}
	return resp.status, nil
}

func (c *Client) attempt(ctx context.Context, method, path string, body []byte, attempt int) (response, error) {
	op := method + " " + path
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return response{}, &domain.TransportError{Op: op, Err: err}
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.apiURL+path, reader)
	if err != nil {
		return response{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", acceptHeader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug().Str("method", method).Str("path", path).Int("attempt", attempt).Msg("Calling GitHub API")

	res, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.GitHubRequest(method, 0)
		return response{}, &domain.TransportError{Op: op, Err: err}
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		c.metrics.GitHubRequest(method, 0)
		return response{}, &domain.TransportError{Op: op, Err: err}
	}
	c.metrics.GitHubRequest(method, res.StatusCode)
	c.rateLimiter.Observe(res.Header, path)

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return response{}, &domain.HostAPIError{
			Message:    errorMessage(data, res.Status),
			StatusCode: res.StatusCode,
			RawBody:    truncate(string(data), maxErrorBody),
		}
	}
	return response{status: res.StatusCode, body: data}, nil
}

func pullRequestInfo(pr *gogithub.PullRequest) *domain.PullRequestInfo {
	return &domain.PullRequestInfo{
		Number: pr.GetNumber(),
		Title:  pr.GetTitle(),
		URL:    pr.GetHTMLURL(),
		State:  pr.GetState(),
		Merged: pr.GetMerged(),
	}
}

func repoPath(owner, repo string) string {
	return "/repos/" + url.PathEscape(owner) + "/" + url.PathEscape(repo)
}

// escapeRef escapes each segment of a ref name, keeping the slashes
func escapeRef(ref string) string {
	parts := strings.Split(ref, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}

// errorMessage prefers GitHub's {"message": ...} over the raw body
func errorMessage(body []byte, status string) string {
	var parsed struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Message != "" {
		return parsed.Message
	}
	if len(body) > 0 {
		return truncate(strings.TrimSpace(string(body)), 200)
	}
	return status
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func isTransport(err error) bool {
	var transportErr *domain.TransportError
	return errors.As(err, &transportErr)
}
