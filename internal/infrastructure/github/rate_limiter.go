package github

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/lent0n/jira-github-integration/internal/infrastructure/metrics"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// RateLimitWarningThreshold is the remaining quota below which a warning is logged
const RateLimitWarningThreshold = 100

const (
	headerRateLimitRemaining = "X-RateLimit-Remaining"
	headerRateLimitReset     = "X-RateLimit-Reset"
)

// RateLimiter throttles outbound calls client-side and tracks the quota GitHub reports.
// A nil *RateLimiter never blocks.
type RateLimiter struct {
	limiter *rate.Limiter
	metrics *metrics.Metrics
	logger  zerolog.Logger

	mu        sync.Mutex
	remaining int
	resetAt   time.Time
	known     bool
}

// NewRateLimiter allows requestsPerSecond with a burst of twice that. Zero or less disables throttling.
func NewRateLimiter(requestsPerSecond float64, m *metrics.Metrics, logger zerolog.Logger) *RateLimiter {
	limit := rate.Inf
	burst := 1
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
		burst = int(requestsPerSecond * 2)
		if burst < 1 {
			burst = 1
		}
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(limit, burst),
		metrics: m,
		logger:  logger,
	}
}

// Wait blocks until a request may be sent or ctx is done
func (rl *RateLimiter) Wait(ctx context.Context) error {
	if rl == nil {
		return nil
	}
	return rl.limiter.Wait(ctx)
}

// Observe records the quota headers of a response and warns when it runs low
func (rl *RateLimiter) Observe(h http.Header, path string) {
	if rl == nil {
		return
	}
	raw := h.Get(headerRateLimitRemaining)
	if raw == "" {
		return
	}
	remaining, err := strconv.Atoi(raw)
	if err != nil {
		return
	}

	var resetAt time.Time
	if epoch, err := strconv.ParseInt(h.Get(headerRateLimitReset), 10, 64); err == nil {
		resetAt = time.Unix(epoch, 0)
	}

	rl.mu.Lock()
	rl.remaining = remaining
	rl.resetAt = resetAt
	rl.known = true
	rl.mu.Unlock()

	rl.metrics.RateLimitRemaining(remaining)

	if remaining < RateLimitWarningThreshold {
		rl.logger.Warn().
			Int("remaining", remaining).
			Time("resetAt", resetAt).
			Str("path", path).
			Msg("GitHub API rate limit running low")
	}
}

// Remaining returns the last reported quota, if any response carried one
func (rl *RateLimiter) Remaining() (int, time.Time, bool) {
	if rl == nil {
		return 0, time.Time{}, false
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return rl.remaining, rl.resetAt, rl.known
}
