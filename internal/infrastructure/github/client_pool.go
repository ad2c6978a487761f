package github

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"

	"github.com/lent0n/jira-github-integration/internal/domain"
	"github.com/lent0n/jira-github-integration/internal/infrastructure/metrics"
	"github.com/lent0n/jira-github-integration/internal/ports"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
)

const defaultPoolSize = 8

// ClientPool keeps one Client per (instance, token, TLS mode) so connections are reused
// across requests. A config change produces a new key; the old client ages out.
type ClientPool struct {
	mu          sync.Mutex
	clients     *lru.Cache[string, *Client]
	rateLimiter *RateLimiter
	retryConfig RetryConfig
	metrics     *metrics.Metrics
	logger      zerolog.Logger
}

var _ ports.GitHubClientPool = (*ClientPool)(nil)

// NewClientPoolWithOptions creates a pool whose clients share the rate limiter
func NewClientPoolWithOptions(logger zerolog.Logger, rateLimiter *RateLimiter, retryConfig RetryConfig, m *metrics.Metrics) *ClientPool {
	clients, err := lru.NewWithEvict[string, *Client](defaultPoolSize, func(_ string, c *Client) {
		c.Close()
	})
	if err != nil {
		// only fails for a non-positive size
		panic(err)
	}
	return &ClientPool{
		clients:     clients,
		rateLimiter: rateLimiter,
		retryConfig: retryConfig,
		metrics:     m,
		logger:      logger,
	}
}

// GetClient returns the pooled client for the instance and token, creating it if needed
func (p *ClientPool) GetClient(baseURL, token string, trustCustomCertificates bool) (ports.GitHubClient, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" || token == "" {
		return nil, &domain.ConfigInvalidError{Reason: "GitHub URL and token are required"}
	}

	key := poolKey(baseURL, token, trustCustomCertificates)

	p.mu.Lock()
	defer p.mu.Unlock()

	if c, ok := p.clients.Get(key); ok {
		return c, nil
	}
	c := NewClientWithOptions(baseURL, token, trustCustomCertificates, p.rateLimiter, p.retryConfig, p.metrics, p.logger)
	p.clients.Add(key, c)
	p.logger.Debug().Str("baseUrl", baseURL).Int("pooled", p.clients.Len()).Msg("Created GitHub client")
	return c, nil
}

// Purge closes and drops every pooled client
func (p *ClientPool) Purge() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clients.Purge()
}

// the token only enters the key hashed
func poolKey(baseURL, token string, trust bool) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s\x00%s\x00%t", baseURL, token, trust)))
	return hex.EncodeToString(sum[:])
}
