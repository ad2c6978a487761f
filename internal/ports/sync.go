package ports

import (
	"context"

	"github.com/lent0n/jira-github-integration/internal/domain"
)

// TokenValidator probes whether a token is accepted by a GitHub instance
type TokenValidator interface {
	ValidateToken(ctx context.Context, baseURL, token string, trustCustomCertificates bool) (bool, error)
}

// SyncRecorder counts the outcome of each sync side effect
type SyncRecorder interface {
	SyncEffect(effect string, err error)
}

// EventPublisher fans processed webhook events out to live subscribers
type EventPublisher interface {
	Publish(event *domain.WebhookEvent)
}
