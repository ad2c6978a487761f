package pubsub

import (
	"context"
	"testing"
	"time"

	"github.com/lent0n/jira-github-integration/internal/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishHonoursFilter(t *testing.T) {
	ps := NewWebhookPubSub(zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	all := ps.Subscribe(ctx, nil)
	prs := ps.Subscribe(ctx, &WebhookEventFilter{Events: []string{domain.EventPullRequest}, Repository: "acme/api"})

	ps.Publish(&domain.WebhookEvent{Event: domain.EventPush, Repository: "acme/api"})
	ps.Publish(&domain.WebhookEvent{Event: domain.EventPullRequest, Repository: "acme/web"})
	ps.Publish(&domain.WebhookEvent{Event: domain.EventPullRequest, Repository: "acme/api", Action: "opened"})

	assert.Len(t, all.Events, 3)
	require.Len(t, prs.Events, 1)
	got := <-prs.Events
	assert.Equal(t, "opened", got.Action)
}

func TestPublishDropsWhenBufferFull(t *testing.T) {
	ps := NewWebhookPubSub(zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub := ps.Subscribe(ctx, nil)
	for i := 0; i < channelBuffer+5; i++ {
		ps.Publish(&domain.WebhookEvent{Event: domain.EventPing})
	}
	assert.Len(t, sub.Events, channelBuffer)
}

func TestSubscriptionEndsWithContext(t *testing.T) {
	ps := NewWebhookPubSub(zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())

	sub := ps.Subscribe(ctx, nil)
	assert.Equal(t, 1, ps.Subscribers())

	cancel()
	select {
	case <-sub.Done:
	case <-time.After(time.Second):
		t.Fatal("subscription was not closed")
	}
	assert.Equal(t, 0, ps.Subscribers())

	ps.Unsubscribe(sub.ID)
	ps.Publish(&domain.WebhookEvent{Event: domain.EventPing})
}
