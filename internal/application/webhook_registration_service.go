package application

import (
	"context"
	"strings"

	"github.com/lent0n/jira-github-integration/internal/domain"
	"github.com/lent0n/jira-github-integration/internal/ports"

	"github.com/rs/zerolog"
)

// WebhookRegistrationService registers the GitHub hooks that feed /webhooks/github
type WebhookRegistrationService struct {
	configs         *ConfigService
	pool            ports.GitHubClientPool
	generateSecret  func() (string, error)
	defaultEndpoint string
	logger          zerolog.Logger
}

// NewWebhookRegistrationService creates a new registration service.
// defaultEndpoint is used when the config carries no webhook URL.
func NewWebhookRegistrationService(
	configs *ConfigService,
	pool ports.GitHubClientPool,
	generateSecret func() (string, error),
	defaultEndpoint string,
	logger zerolog.Logger,
) *WebhookRegistrationService {
	return &WebhookRegistrationService{
		configs:         configs,
		pool:            pool,
		generateSecret:  generateSecret,
		defaultEndpoint: defaultEndpoint,
		logger:          logger,
	}
}

// RegisterWebhooks creates one hook per repository mapping and stores the ids.
// Repositories with a recorded hook id are reported as already registered and skipped.
// A failure for one repository does not stop the others.
func (s *WebhookRegistrationService) RegisterWebhooks(ctx context.Context) ([]domain.WebhookRegistration, error) {
	cfg, err := s.configs.LoadValid(ctx)
	if err != nil {
		return nil, err
	}
	if cfg.WebhookSecret == "" {
		return nil, &domain.ConfigInvalidError{Reason: "Webhook secret must be configured before registering webhooks"}
	}
	endpoint := strings.TrimSpace(cfg.WebhookURL)
	if endpoint == "" {
		endpoint = s.defaultEndpoint
	}

	client, err := s.pool.GetClient(cfg.GitHubEnterpriseURL, cfg.GitHubToken, cfg.TrustCustomCertificates)
	if err != nil {
		return nil, err
	}

	results := make([]domain.WebhookRegistration, 0, len(cfg.Repositories))
	ids := make(map[string]int64)
	for _, m := range cfg.Repositories {
		reg := domain.WebhookRegistration{Repository: m.FullName()}
		if existing := cfg.WebhookIDs[reg.Repository]; existing != 0 {
			reg.Success = true
			reg.AlreadyRegistered = true
			reg.WebhookID = existing
			results = append(results, reg)
			continue
		}
		id, err := client.RegisterWebhook(ctx, m.GitHubOwner, m.GitHubRepo, endpoint, cfg.WebhookSecret)
		if err != nil {
			s.logger.Error().Err(err).Str("repository", reg.Repository).Msg("Failed to register webhook")
			reg.Error = err.Error()
		} else {
			reg.Success = true
			reg.WebhookID = id
			ids[reg.Repository] = id
		}
		results = append(results, reg)
	}

	if err := s.configs.RecordWebhooks(ctx, ids); err != nil {
		return results, err
	}

	s.logger.Info().
		Int("registered", len(ids)).
		Int("repositories", len(cfg.Repositories)).
		Str("endpoint", endpoint).
		Msg("Webhook registration finished")
	return results, nil
}

// GenerateSecret returns a fresh webhook secret. It is not stored.
func (s *WebhookRegistrationService) GenerateSecret() (string, error) {
	return s.generateSecret()
}
