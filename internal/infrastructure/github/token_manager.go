package github

import (
	"context"
	"fmt"

	"github.com/lent0n/jira-github-integration/internal/domain"
	"github.com/lent0n/jira-github-integration/internal/ports"

	"github.com/rs/zerolog"
)

// TokenManager checks GitHub tokens against the instance they are meant for
type TokenManager struct {
	pool   ports.GitHubClientPool
	logger zerolog.Logger
}

var _ ports.TokenValidator = (*TokenManager)(nil)

// NewTokenManager creates a new token manager
func NewTokenManager(pool ports.GitHubClientPool, logger zerolog.Logger) *TokenManager {
	return &TokenManager{
		pool:   pool,
		logger: logger,
	}
}

// ValidateToken checks the token format and then probes GET /user with it.
// A rejected token returns false without error; a transport failure returns the error.
func (tm *TokenManager) ValidateToken(ctx context.Context, baseURL, token string, trustCustomCertificates bool) (bool, error) {
	if err := domain.ValidateGitHubToken(token); err != nil {
		tm.logger.Warn().Str("baseUrl", baseURL).Msg("GitHub token has an unexpected format, probing anyway")
	}

	client, err := tm.pool.GetClient(baseURL, token, trustCustomCertificates)
	if err != nil {
		return false, fmt.Errorf("failed to create GitHub client: %w", err)
	}

	ok, err := client.TestConnection(ctx)
	if err != nil {
		tm.logger.Warn().Err(err).Str("baseUrl", baseURL).Msg("Token validation network error")
		return false, err
	}
	if !ok {
		tm.logger.Warn().Str("baseUrl", baseURL).Msg("Token validation failed: token is invalid or revoked")
		return false, nil
	}

	tm.logger.Debug().Str("baseUrl", baseURL).Msg("Token validation successful")
	return true, nil
}
