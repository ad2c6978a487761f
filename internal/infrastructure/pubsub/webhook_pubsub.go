package pubsub

import (
	"context"
	"fmt"
	"sync"

	"github.com/lent0n/jira-github-integration/internal/domain"

	"github.com/rs/zerolog"
)

const channelBuffer = 16

// WebhookEventChannel is one subscriber's stream of processed deliveries
type WebhookEventChannel struct {
	ID     string
	Filter *WebhookEventFilter
	Events chan *domain.WebhookEvent
	Done   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
}

// WebhookEventFilter narrows a subscription. Empty fields match everything.
type WebhookEventFilter struct {
	Events     []string // X-GitHub-Event names
	Repository string   // owner/repo
}

// WebhookPubSub fans processed deliveries out to live subscribers
type WebhookPubSub struct {
	mu       sync.RWMutex
	channels map[string]*WebhookEventChannel
	logger   zerolog.Logger
	nextID   int64
	idMu     sync.Mutex
}

// NewWebhookPubSub creates a new webhook pub/sub system
func NewWebhookPubSub(logger zerolog.Logger) *WebhookPubSub {
	return &WebhookPubSub{
		channels: make(map[string]*WebhookEventChannel),
		logger:   logger,
	}
}

// Subscribe registers a channel that lives until ctx is done or Unsubscribe is called
func (ps *WebhookPubSub) Subscribe(ctx context.Context, filter *WebhookEventFilter) *WebhookEventChannel {
	ps.idMu.Lock()
	ps.nextID++
	id := fmt.Sprintf("channel-%d", ps.nextID)
	ps.idMu.Unlock()

	subCtx, cancel := context.WithCancel(ctx)
	channel := &WebhookEventChannel{
		ID:     id,
		Filter: filter,
		Events: make(chan *domain.WebhookEvent, channelBuffer),
		Done:   make(chan struct{}),
		ctx:    subCtx,
		cancel: cancel,
	}

	ps.mu.Lock()
	ps.channels[id] = channel
	ps.mu.Unlock()

	ps.logger.Info().
		Str("channelId", id).
		Interface("filter", filter).
		Msg("Webhook subscription created")

	go func() {
		<-subCtx.Done()
		ps.Unsubscribe(id)
	}()

	return channel
}

// Unsubscribe closes and removes a channel. Unknown ids are ignored.
func (ps *WebhookPubSub) Unsubscribe(channelID string) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	channel, exists := ps.channels[channelID]
	if !exists {
		return
	}

	close(channel.Events)
	close(channel.Done)
	channel.cancel()
	delete(ps.channels, channelID)

	ps.logger.Info().
		Str("channelId", channelID).
		Msg("Webhook subscription removed")
}

// Publish never blocks: a subscriber with a full buffer misses the event
func (ps *WebhookPubSub) Publish(event *domain.WebhookEvent) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	delivered := 0
	for _, channel := range ps.channels {
		if !matchesFilter(event, channel.Filter) {
			continue
		}
		select {
		case channel.Events <- event:
			delivered++
		case <-channel.ctx.Done():
		default:
			ps.logger.Warn().
				Str("channelId", channel.ID).
				Msg("Channel buffer full, dropping event")
		}
	}

	if delivered > 0 {
		ps.logger.Debug().
			Str("event", event.Event).
			Str("repository", event.Repository).
			Int("subscribers", delivered).
			Msg("Published webhook event to subscribers")
	}
}

func matchesFilter(event *domain.WebhookEvent, filter *WebhookEventFilter) bool {
	if filter == nil {
		return true
	}
	if len(filter.Events) > 0 {
		found := false
		for _, e := range filter.Events {
			if event.Event == e {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return filter.Repository == "" || event.Repository == filter.Repository
}

// Subscribers returns the number of active subscriptions
func (ps *WebhookPubSub) Subscribers() int {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return len(ps.channels)
}
