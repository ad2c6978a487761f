package application

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/lent0n/jira-github-integration/internal/domain"
	"github.com/lent0n/jira-github-integration/internal/ports"

	"github.com/rs/zerolog"
)

var projectKeyPattern = regexp.MustCompile(`^[A-Z][A-Z0-9]+$`)

var knownTransitions = map[string]bool{
	domain.TransitionPROpened:   true,
	domain.TransitionPRMerged:   true,
	domain.TransitionPRClosed:   true,
	domain.TransitionPRReopened: true,
}

// ConfigService loads and saves the integration config. Secrets are encrypted at rest
// and plaintext in the returned structs. Writes are serialized so concurrent
// load-modify-save cycles do not drop each other's changes.
type ConfigService struct {
	mu            sync.Mutex
	store         ports.ConfigStore
	encryptionSvc ports.EncryptionService
	logger        zerolog.Logger
}

// NewConfigService creates a new config service
func NewConfigService(store ports.ConfigStore, encryptionSvc ports.EncryptionService, logger zerolog.Logger) *ConfigService {
	return &ConfigService{
		store:         store,
		encryptionSvc: encryptionSvc,
		logger:        logger,
	}
}

// Load reads the config fresh from the store. A missing config is an empty one, not an error.
func (s *ConfigService) Load(ctx context.Context) (*domain.IntegrationConfig, error) {
	raw, err := s.store.Get(ctx, domain.ConfigStorageKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if raw == "" {
		return domain.NewIntegrationConfig(), nil
	}

	cfg := domain.NewIntegrationConfig()
	if err := json.Unmarshal([]byte(raw), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse stored configuration: %w", err)
	}

	if cfg.GitHubToken, err = s.reveal("githubToken", cfg.GitHubToken); err != nil {
		return nil, err
	}
	if cfg.WebhookSecret, err = s.reveal("webhookSecret", cfg.WebhookSecret); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

// LoadValid is Load plus the completeness check required before any GitHub call
func (s *ConfigService) LoadValid(ctx context.Context) (*domain.IntegrationConfig, error) {
	cfg, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Masked returns the stored config with secrets replaced by the mask
func (s *ConfigService) Masked(ctx context.Context) (*domain.IntegrationConfig, error) {
	cfg, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	return cfg.Masked(), nil
}

// Save validates the incoming config and replaces the stored one.
// A masked token or secret keeps the stored value; webhook ids survive when not sent.
func (s *ConfigService) Save(ctx context.Context, incoming *domain.IntegrationConfig) (*domain.IntegrationConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}

	cfg := *incoming
	cfg.Repositories = append([]domain.RepositoryMapping(nil), incoming.Repositories...)
	if cfg.GitHubToken == domain.MaskedValue {
		cfg.GitHubToken = existing.GitHubToken
	}
	if cfg.WebhookSecret == domain.MaskedValue {
		cfg.WebhookSecret = existing.WebhookSecret
	}
	if cfg.WebhookIDs == nil {
		cfg.WebhookIDs = existing.WebhookIDs
	}
	cfg.GitHubToken = strings.TrimSpace(cfg.GitHubToken)
	cfg.ApplyDefaults()

	if errs := validateConfig(&cfg); len(errs) > 0 {
		return nil, errs
	}

	if err := s.persist(ctx, &cfg); err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("githubUrl", cfg.GitHubEnterpriseURL).
		Int("repositories", len(cfg.Repositories)).
		Msg("Integration configuration saved")
	return &cfg, nil
}

// Delete removes the stored config
func (s *ConfigService) Delete(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Delete(ctx, domain.ConfigStorageKey); err != nil {
		return fmt.Errorf("failed to delete configuration: %w", err)
	}
	s.logger.Info().Msg("Integration configuration deleted")
	return nil
}

// RecordWebhooks merges registered hook ids into the stored config
func (s *ConfigService) RecordWebhooks(ctx context.Context, ids map[string]int64) error {
	if len(ids) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg, err := s.Load(ctx)
	if err != nil {
		return err
	}
	for repo, id := range ids {
		cfg.WebhookIDs[repo] = id
	}
	return s.persist(ctx, cfg)
}

// RemoveWebhook drops a hook id from the stored config and returns the repository it belonged to
func (s *ConfigService) RemoveWebhook(ctx context.Context, hookID int64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg, err := s.Load(ctx)
	if err != nil {
		return "", err
	}
	for repo, id := range cfg.WebhookIDs {
		if id == hookID {
			delete(cfg.WebhookIDs, repo)
			if err := s.persist(ctx, cfg); err != nil {
				return "", err
			}
			return repo, nil
		}
	}
	return "", nil
}

func (s *ConfigService) persist(ctx context.Context, cfg *domain.IntegrationConfig) error {
	stored := *cfg
	stored.UpdatedAt = time.Now().UTC()

	var err error
	if stored.GitHubToken, err = s.encryptionSvc.Encrypt(cfg.GitHubToken); err != nil {
		return err
	}
	if stored.WebhookSecret, err = s.encryptionSvc.Encrypt(cfg.WebhookSecret); err != nil {
		return err
	}

	data, err := json.Marshal(&stored)
	if err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}
	if err := s.store.Put(ctx, domain.ConfigStorageKey, string(data)); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}
	cfg.UpdatedAt = stored.UpdatedAt
	return nil
}

// reveal decrypts a stored secret. Values that do not look encrypted predate
// encryption at rest and are returned as is until the next save.
func (s *ConfigService) reveal(field, value string) (string, error) {
	if value == "" {
		return "", nil
	}
	if !s.encryptionSvc.IsEncrypted(value) {
		s.logger.Warn().Str("field", field).Msg("Stored secret is not encrypted; it will be encrypted on next save")
		return value, nil
	}
	plain, err := s.encryptionSvc.Decrypt(value)
	if err != nil {
		s.logger.Error().Err(err).Str("field", field).Msg("Failed to decrypt stored secret")
		return "", err
	}
	return plain, nil
}

func validateConfig(cfg *domain.IntegrationConfig) domain.ValidationErrors {
	var errs domain.ValidationErrors
	add := func(err error) {
		if v, ok := err.(*domain.ValidationError); ok {
			errs = append(errs, v)
		}
	}

	if _, err := domain.ValidateURL("githubEnterpriseUrl", cfg.GitHubEnterpriseURL); err != nil {
		add(err)
	}
	if cfg.GitHubToken == "" {
		add(domain.NewValidationError("githubToken", "GitHub token is required"))
	}
	if len(cfg.Repositories) == 0 {
		add(domain.NewValidationError("repositories", "At least one repository mapping is required"))
	}

	seen := map[string]bool{}
	for i, m := range cfg.Repositories {
		if !projectKeyPattern.MatchString(m.JiraProject) {
			add(domain.NewValidationError("repositories", "Repository mapping %d: invalid Jira project key %q", i+1, m.JiraProject))
		} else if seen[m.JiraProject] {
			add(domain.NewValidationError("repositories", "Repository mapping %d: project %s is already mapped", i+1, m.JiraProject))
		}
		seen[m.JiraProject] = true

		if _, err := domain.ValidateRepositoryName("githubOwner", m.GitHubOwner); err != nil {
			add(domain.NewValidationError("repositories", "Repository mapping %d: %s", i+1, err.Error()))
		}
		if _, err := domain.ValidateRepositoryName("githubRepo", m.GitHubRepo); err != nil {
			add(domain.NewValidationError("repositories", "Repository mapping %d: %s", i+1, err.Error()))
		}
		if _, err := domain.ValidateBranchName(m.DefaultBranch); err != nil {
			add(domain.NewValidationError("repositories", "Repository mapping %d: invalid default branch", i+1))
		}
	}

	for key := range cfg.TransitionMappings {
		if !knownTransitions[key] {
			add(domain.NewValidationError("transitionMappings", "Unknown transition mapping %q", key))
		}
	}
	if cfg.WebhookURL != "" {
		if _, err := domain.ValidateURL("webhookUrl", cfg.WebhookURL); err != nil {
			add(err)
		}
	}
	return errs
}
