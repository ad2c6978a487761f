package application

import (
	"context"

	"github.com/lent0n/jira-github-integration/internal/domain"
	"github.com/lent0n/jira-github-integration/internal/ports"

	"github.com/rs/zerolog"
)

// WebhookService runs a verified delivery through dedupe and the dispatcher
type WebhookService struct {
	configs    *ConfigService
	dispatcher *WebhookDispatcher
	ledger     ports.DeliveryLedger
	publisher  ports.EventPublisher
	logger     zerolog.Logger
}

// NewWebhookService creates a webhook service. ledger and publisher may be nil.
func NewWebhookService(
	configs *ConfigService,
	dispatcher *WebhookDispatcher,
	ledger ports.DeliveryLedger,
	publisher ports.EventPublisher,
	logger zerolog.Logger,
) *WebhookService {
	return &WebhookService{
		configs:    configs,
		dispatcher: dispatcher,
		ledger:     ledger,
		publisher:  publisher,
		logger:     logger,
	}
}

// LoadConfig returns the config needed to verify a delivery. A missing webhook secret is a server misconfiguration.
func (s *WebhookService) LoadConfig(ctx context.Context) (*domain.IntegrationConfig, error) {
	cfg, err := s.configs.Load(ctx)
	if err != nil {
		return nil, err
	}
	if cfg.WebhookSecret == "" {
		return nil, &domain.ConfigInvalidError{Reason: "Webhook secret not configured"}
	}
	return cfg, nil
}

// Process handles a delivery whose signature has already been checked.
// Only a malformed payload or an internal failure is returned; side effect failures are not.
// A delivery that errored or had failed side effects is released from the ledger so a redelivery runs again.
func (s *WebhookService) Process(ctx context.Context, event *domain.WebhookEvent) error {
	claimed := false
	if event.DeliveryID != "" && s.ledger != nil {
		first, err := s.ledger.MarkDelivered(ctx, event.DeliveryID)
		if err != nil {
			s.logger.Warn().Err(err).Str("deliveryId", event.DeliveryID).Msg("Delivery ledger unavailable, processing anyway")
		} else if !first {
			event.Outcome = OutcomeDuplicate
			s.logger.Info().Str("deliveryId", event.DeliveryID).Str("event", event.Event).Msg("Duplicate delivery skipped")
			return nil
		}
		claimed = err == nil
	}

	if err := s.dispatcher.Dispatch(ctx, event); err != nil {
		if claimed {
			s.release(ctx, event.DeliveryID)
		}
		return err
	}
	if event.Outcome == "" {
		event.Outcome = OutcomeHandled
	}
	if claimed && len(event.Failures) > 0 {
		s.release(ctx, event.DeliveryID)
	}

	if s.publisher != nil {
		s.publisher.Publish(event)
	}
	return nil
}

func (s *WebhookService) release(ctx context.Context, deliveryID string) {
	if err := s.ledger.Release(ctx, deliveryID); err != nil {
		s.logger.Warn().Err(err).Str("deliveryId", deliveryID).Msg("Failed to release delivery, redelivery will be skipped")
	}
}
