package application

import (
	"context"
	"errors"
	"testing"

	"github.com/lent0n/jira-github-integration/internal/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterWebhooksPerRepository(t *testing.T) {
	ctx := context.Background()
	configs, _ := newTestConfigService()
	_, err := configs.Save(ctx, testConfig())
	require.NoError(t, err)

	gh := newFakeGitHub()
	gh.hookErrors["acme/web"] = &domain.HostAPIError{Message: "Validation Failed", StatusCode: 422}
	svc := NewWebhookRegistrationService(configs, &fakePool{client: gh}, nil, "https://app.example.com/webhooks/github", zerolog.Nop())

	results, err := svc.RegisterWebhooks(ctx)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, domain.WebhookRegistration{Repository: "acme/api", WebhookID: 101, Success: true}, results[0])
	assert.False(t, results[1].Success)
	assert.Contains(t, results[1].Error, "422")
	assert.Equal(t, "RegisterWebhook acme/api https://app.example.com/webhooks/github", gh.calls[0])

	cfg, err := configs.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"acme/api": 101}, cfg.WebhookIDs)
}

func TestRegisterWebhooksSkipsRecordedRepositories(t *testing.T) {
	ctx := context.Background()
	configs, _ := newTestConfigService()
	_, err := configs.Save(ctx, testConfig())
	require.NoError(t, err)

	gh := newFakeGitHub()
	svc := NewWebhookRegistrationService(configs, &fakePool{client: gh}, nil, "https://app.example.com/webhooks/github", zerolog.Nop())

	_, err = svc.RegisterWebhooks(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, gh.callCount())

	results, err := svc.RegisterWebhooks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, gh.callCount())
	for _, reg := range results {
		assert.True(t, reg.Success)
		assert.True(t, reg.AlreadyRegistered)
		assert.NotZero(t, reg.WebhookID)
	}

	cfg, err := configs.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, cfg.WebhookIDs, 2)
}

func TestRegisterWebhooksUsesConfiguredURL(t *testing.T) {
	ctx := context.Background()
	configs, _ := newTestConfigService()
	cfg := testConfig()
	cfg.WebhookURL = "https://proxy.example.com/hooks"
	_, err := configs.Save(ctx, cfg)
	require.NoError(t, err)

	gh := newFakeGitHub()
	svc := NewWebhookRegistrationService(configs, &fakePool{client: gh}, nil, "https://app.example.com/webhooks/github", zerolog.Nop())
	_, err = svc.RegisterWebhooks(ctx)
	require.NoError(t, err)
	assert.Equal(t, "RegisterWebhook acme/api https://proxy.example.com/hooks", gh.calls[0])
}

func TestRegisterWebhooksRequiresSecret(t *testing.T) {
	ctx := context.Background()
	configs, _ := newTestConfigService()
	cfg := testConfig()
	cfg.WebhookSecret = ""
	_, err := configs.Save(ctx, cfg)
	require.NoError(t, err)

	gh := newFakeGitHub()
	svc := NewWebhookRegistrationService(configs, &fakePool{client: gh}, nil, "https://app.example.com/webhooks/github", zerolog.Nop())
	_, err = svc.RegisterWebhooks(ctx)

	var cfgErr *domain.ConfigInvalidError
	require.True(t, errors.As(err, &cfgErr))
	assert.Zero(t, gh.callCount())
}

func TestGenerateSecretDelegates(t *testing.T) {
	configs, _ := newTestConfigService()
	svc := NewWebhookRegistrationService(configs, nil, func() (string, error) { return "generated", nil }, "", zerolog.Nop())

	secret, err := svc.GenerateSecret()
	require.NoError(t, err)
	assert.Equal(t, "generated", secret)
}
