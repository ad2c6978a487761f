package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lent0n/jira-github-integration/internal/application"
	"github.com/lent0n/jira-github-integration/internal/application/webhook_handlers"
	"github.com/lent0n/jira-github-integration/internal/config"
	apiinfra "github.com/lent0n/jira-github-integration/internal/infrastructure/api"
	"github.com/lent0n/jira-github-integration/internal/infrastructure/encryption"
	githubinfra "github.com/lent0n/jira-github-integration/internal/infrastructure/github"
	"github.com/lent0n/jira-github-integration/internal/infrastructure/jira"
	"github.com/lent0n/jira-github-integration/internal/infrastructure/metrics"
	"github.com/lent0n/jira-github-integration/internal/infrastructure/pubsub"
	"github.com/lent0n/jira-github-integration/internal/infrastructure/repository"
	"github.com/lent0n/jira-github-integration/internal/ports"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	// Initialize logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if err := config.LoadDotEnv(); err != nil {
		logger.Warn().Msg("Warning: .env file not found")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load configuration")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		logger.Warn().Str("logLevel", cfg.LogLevel).Msg("Unknown log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	// Secrets at rest. The shipped default key is refused.
	encryptionService, err := encryption.NewService(cfg.EncryptionKey)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize encryption service")
	}

	// Stores
	ctx := context.Background()
	configStore, ledger, closeStores := openStores(ctx, cfg, logger)
	defer closeStores()

	// Metrics
	appMetrics := metrics.New(prometheus.DefaultRegisterer)

	// GitHub gateway: shared rate limiter and retry policy for every pooled client
	rateLimiter := githubinfra.NewRateLimiter(cfg.GitHubRateLimitRPS, appMetrics, logger)
	clientPool := githubinfra.NewClientPoolWithOptions(logger, rateLimiter, githubinfra.DefaultRetryConfig(), appMetrics)
	tokenManager := githubinfra.NewTokenManager(clientPool, logger)

	tracker, err := jira.NewClient(cfg.JiraBaseURL, cfg.JiraUser, cfg.JiraAPIToken, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize Jira client")
	}

	// Initialize application services
	configService := application.NewConfigService(configStore, encryptionService, logger)
	syncService := application.NewSyncService(tracker, appMetrics, logger)
	githubService := application.NewGitHubService(configService, tracker, clientPool, tokenManager, logger)
	registrationService := application.NewWebhookRegistrationService(
		configService,
		clientPool,
		githubinfra.GenerateSecret,
		cfg.WebhookEndpoint(),
		logger,
	)

	// Initialize webhook dispatcher and register handlers
	webhookDispatcher := application.NewWebhookDispatcher(logger)
	webhookDispatcher.RegisterHandler(webhook_handlers.NewPullRequestHandler(syncService, clientPool, logger))
	webhookDispatcher.RegisterHandler(webhook_handlers.NewPingHandler(logger))
	webhookDispatcher.RegisterHandler(webhook_handlers.NewPushHandler(logger))
	webhookDispatcher.RegisterHandler(webhook_handlers.NewMetaHandler(configService, logger))

	// Processed deliveries are fanned out to the admin event stream
	webhookPubSub := pubsub.NewWebhookPubSub(logger)
	webhookService := application.NewWebhookService(configService, webhookDispatcher, ledger, webhookPubSub, logger)

	if cfg.AdminAPIToken == "" {
		logger.Warn().Msg("ADMIN_API_TOKEN is not set, the admin API is disabled")
	}

	router := apiinfra.NewRouter(apiinfra.RouterOptions{
		Webhooks:       apiinfra.NewWebhookHandler(webhookService, appMetrics, logger),
		Integration:    apiinfra.NewIntegrationHandler(githubService, tracker, logger),
		Config:         apiinfra.NewConfigHandler(configService, githubService, registrationService, webhookPubSub, logger),
		Metrics:        promhttp.Handler(),
		AdminToken:     cfg.AdminAPIToken,
		AllowedOrigins: cfg.AllowedOrigins,
		Version:        cfg.Version,
		Logger:         logger,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("store", cfg.Store).
			Str("webhookEndpoint", cfg.WebhookEndpoint()).
			Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	logger.Info().Msg("Shutting down API server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Graceful shutdown failed")
	}
	clientPool.Purge()
}

// openStores connects the configured backend and returns the config store, the delivery ledger and a closer
func openStores(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (ports.ConfigStore, ports.DeliveryLedger, func()) {
	switch cfg.Store {
	case config.StoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			logger.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("Failed to connect to Redis")
		}
		logger.Info().Str("addr", cfg.RedisAddr).Msg("Using Redis store")
		return repository.NewRedisConfigStore(client),
			repository.NewRedisDeliveryLedger(client, cfg.DeliveryTTL),
			func() { _ = client.Close() }

	case config.StoreMemory:
		logger.Warn().Msg("Using in-memory store, configuration is lost on restart")
		return repository.NewMemoryConfigStore(), repository.NewMemoryDeliveryLedger(cfg.DeliveryTTL), func() {}

	default:
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to connect to MongoDB")
		}
		db := client.Database(cfg.MongoDatabase)

		ledger := repository.NewMongoDeliveryLedger(db, cfg.DeliveryTTL)
		indexCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := ledger.EnsureIndexes(indexCtx); err != nil {
			logger.Fatal().Err(err).Msg("Failed to create delivery ledger indexes")
		}
		logger.Info().Str("database", cfg.MongoDatabase).Msg("Using MongoDB store")
		return repository.NewMongoConfigStore(db), ledger, func() { _ = client.Disconnect(context.Background()) }
	}
}
