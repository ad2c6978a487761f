package api

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/lent0n/jira-github-integration/internal/application"
	"github.com/lent0n/jira-github-integration/internal/domain"
	githubinfra "github.com/lent0n/jira-github-integration/internal/infrastructure/github"
	"github.com/lent0n/jira-github-integration/internal/infrastructure/metrics"

	gogithub "github.com/google/go-github/v62/github"
	"github.com/rs/zerolog"
)

const (
	// GitHub caps payloads at 25 MB
	maxWebhookBody = 25 << 20
	maxRequestBody = 1 << 20

	outcomeRejected = "rejected"
	outcomeFailed   = "failed"
)

// WebhookHandler receives GitHub deliveries on POST /webhooks/github
type WebhookHandler struct {
	service *application.WebhookService
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

// NewWebhookHandler creates the inbound webhook endpoint. m may be nil.
func NewWebhookHandler(service *application.WebhookService, m *metrics.Metrics, logger zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{
		service: service,
		metrics: m,
		logger:  logger,
	}
}

// ServeHTTP verifies and routes one delivery. Side effect failures never change the status code.
func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	eventType := gogithub.WebHookType(r)
	deliveryID := gogithub.DeliveryID(r)
	outcome := outcomeRejected
	defer func() {
		h.metrics.WebhookDelivery(eventType, outcome, time.Since(start))
	}()

	log := h.logger.With().
		Str("event", eventType).
		Str("deliveryId", deliveryID).
		Logger()

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		log.Warn().Err(err).Msg("Failed to read webhook payload")
		writeError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}
	if len(body) == 0 {
		writeError(w, http.StatusBadRequest, "Empty payload")
		return
	}

	ctx := r.Context()
	cfg, err := h.service.LoadConfig(ctx)
	if err != nil {
		outcome = outcomeFailed
		log.Error().Err(err).Msg("Cannot verify webhook without configuration")
		writeError(w, http.StatusInternalServerError, "Webhook secret not configured")
		return
	}

	verifier := githubinfra.NewWebhookVerifier(cfg.WebhookSecret)
	if !verifier.Verify(body, r.Header.Get(githubinfra.SignatureHeader)) {
		log.Warn().Str("remoteAddr", r.RemoteAddr).Msg("Webhook signature verification failed")
		writeError(w, http.StatusUnauthorized, "Invalid signature")
		return
	}

	event := &domain.WebhookEvent{
		Event:      eventType,
		DeliveryID: deliveryID,
		Payload:    body,
		Config:     cfg,
		ReceivedAt: start.UTC(),
	}
	if err := h.service.Process(ctx, event); err != nil {
		var validationErr *domain.ValidationError
		if errors.As(err, &validationErr) {
			log.Warn().Err(err).Msg("Malformed webhook payload")
			writeError(w, http.StatusBadRequest, validationErr.Message)
			return
		}
		outcome = outcomeFailed
		log.Error().Err(err).Msg("Failed to process webhook event")
		writeError(w, http.StatusInternalServerError, msgInternal)
		return
	}

	outcome = event.Outcome
	log.Info().
		Str("action", event.Action).
		Str("repository", event.Repository).
		Str("issueKey", event.IssueKey).
		Str("outcome", event.Outcome).
		Dur("duration", time.Since(start)).
		Msg("Webhook processed")
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
