package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/lent0n/jira-github-integration/internal/application"
	"github.com/lent0n/jira-github-integration/internal/domain"
	"github.com/lent0n/jira-github-integration/internal/infrastructure/pubsub"

	"github.com/rs/zerolog"
)

const sseHeartbeat = 25 * time.Second

// ConfigHandler serves the admin API behind AdminAuth
type ConfigHandler struct {
	configs      *application.ConfigService
	github       *application.GitHubService
	registration *application.WebhookRegistrationService
	events       *pubsub.WebhookPubSub
	logger       zerolog.Logger
}

// NewConfigHandler creates the admin configuration endpoints
func NewConfigHandler(
	configs *application.ConfigService,
	github *application.GitHubService,
	registration *application.WebhookRegistrationService,
	events *pubsub.WebhookPubSub,
	logger zerolog.Logger,
) *ConfigHandler {
	return &ConfigHandler{
		configs:      configs,
		github:       github,
		registration: registration,
		events:       events,
		logger:       logger,
	}
}

// Get handles GET /api/v1/config
func (h *ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.configs.Masked(r.Context())
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

// Put handles PUT /api/v1/config
func (h *ConfigHandler) Put(w http.ResponseWriter, r *http.Request) {
	var in domain.IntegrationConfig
	if !decodeJSON(w, r, &in) {
		return
	}
	saved, err := h.configs.Save(r.Context(), &in)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, saved.Masked())
}

// Delete handles DELETE /api/v1/config
func (h *ConfigHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.configs.Delete(r.Context()); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// TestConnection handles POST /api/v1/config/test-connection
func (h *ConfigHandler) TestConnection(w http.ResponseWriter, r *http.Request) {
	var in application.TestConnectionInput
	if !decodeJSON(w, r, &in) {
		return
	}
	ok, err := h.github.TestConnection(r.Context(), in)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	resp := map[string]any{"success": ok}
	if ok {
		resp["message"] = "Connection successful"
	} else {
		resp["message"] = "GitHub rejected the token. Please check the token and its scopes."
	}
	writeJSON(w, http.StatusOK, resp)
}

// RegisterWebhooks handles POST /api/v1/config/register-webhooks
func (h *ConfigHandler) RegisterWebhooks(w http.ResponseWriter, r *http.Request) {
	results, err := h.registration.RegisterWebhooks(r.Context())
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	registered := 0
	for _, res := range results {
		if res.Success {
			registered++
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":    registered == len(results),
		"registered": registered,
		"results":    results,
	})
}

// GenerateSecret handles POST /api/v1/config/generate-secret
func (h *ConfigHandler) GenerateSecret(w http.ResponseWriter, r *http.Request) {
	secret, err := h.registration.GenerateSecret()
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"secret": secret})
}

// Events handles GET /api/v1/config/events, a server-sent event stream of processed deliveries.
// Optional query parameters: event (repeatable) and repository.
func (h *ConfigHandler) Events(w http.ResponseWriter, r *http.Request) {
	rc := http.NewResponseController(w)
	filter := &pubsub.WebhookEventFilter{
		Events:     r.URL.Query()["event"],
		Repository: r.URL.Query().Get("repository"),
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		h.logger.Error().Err(err).Msg("Streaming not supported by response writer")
		return
	}

	sub := h.events.Subscribe(r.Context(), filter)
	defer h.events.Unsubscribe(sub.ID)

	heartbeat := time.NewTicker(sseHeartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				return
			}
		case event, ok := <-sub.Events:
			if !ok {
				return
			}
			data, err := json.Marshal(event)
			if err != nil {
				h.logger.Error().Err(err).Msg("Failed to encode webhook event")
				continue
			}
			if _, err := fmt.Fprintf(w, "event: webhook\ndata: %s\n\n", data); err != nil {
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}
