package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store backends selectable with CONFIG_STORE
const (
	StoreMongo  = "mongo"
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

// Config is the process configuration read from the environment
type Config struct {
	Port     string
	AppURL   string
	LogLevel string
	Version  string

	EncryptionKey string
	AdminAPIToken string

	Store          string
	MongoURI       string
	MongoDatabase  string
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	DeliveryTTL    time.Duration
	AllowedOrigins []string

	JiraBaseURL  string
	JiraUser     string
	JiraAPIToken string

	GitHubRateLimitRPS float64
}

// WebhookEndpoint is the default target registered on GitHub hooks
func (c *Config) WebhookEndpoint() string {
	return strings.TrimRight(c.AppURL, "/") + "/webhooks/github"
}

// LoadDotEnv loads .env into the environment. A missing file is not an error for the caller to act on.
func LoadDotEnv(files ...string) error {
	return godotenv.Load(files...)
}

// Load reads the environment, applies defaults and reports every missing required variable at once
func Load() (*Config, error) {
	cfg := &Config{
		Port:          getEnv("PORT", "8080"),
		AppURL:        getEnv("APP_URL", "http://localhost:8080"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		Version:       getEnv("APP_VERSION", "dev"),
		EncryptionKey: os.Getenv("ENCRYPTION_KEY"),
		AdminAPIToken: os.Getenv("ADMIN_API_TOKEN"),
		Store:         strings.ToLower(getEnv("CONFIG_STORE", StoreMongo)),
		MongoURI:      getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDatabase: getEnv("MONGODB_DATABASE", "jira_github_integration"),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		JiraBaseURL:   os.Getenv("JIRA_BASE_URL"),
		JiraUser:      os.Getenv("JIRA_USER"),
		JiraAPIToken:  os.Getenv("JIRA_API_TOKEN"),
	}

	var problems []string

	var err error
	if cfg.RedisDB, err = strconv.Atoi(getEnv("REDIS_DB", "0")); err != nil {
		problems = append(problems, "REDIS_DB must be an integer")
	}
	if cfg.DeliveryTTL, err = time.ParseDuration(getEnv("DELIVERY_TTL", "24h")); err != nil || cfg.DeliveryTTL <= 0 {
		problems = append(problems, "DELIVERY_TTL must be a positive duration")
	}
	if cfg.GitHubRateLimitRPS, err = strconv.ParseFloat(getEnv("GITHUB_RATE_LIMIT_RPS", "10"), 64); err != nil || cfg.GitHubRateLimitRPS <= 0 {
		problems = append(problems, "GITHUB_RATE_LIMIT_RPS must be a positive number")
	}
	for _, o := range strings.Split(os.Getenv("CORS_ALLOWED_ORIGINS"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
		}
	}

	switch cfg.Store {
	case StoreMongo, StoreRedis, StoreMemory:
	default:
		problems = append(problems, fmt.Sprintf("CONFIG_STORE must be one of mongo, redis, memory (got %q)", cfg.Store))
	}

	var missing []string
	for name, value := range map[string]string{
		"ENCRYPTION_KEY": cfg.EncryptionKey,
		"JIRA_BASE_URL":  cfg.JiraBaseURL,
		"JIRA_USER":      cfg.JiraUser,
		"JIRA_API_TOKEN": cfg.JiraAPIToken,
	} {
		if value == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		problems = append(problems, "missing required environment variables: "+strings.Join(missing, ", "))
	}

	if len(problems) > 0 {
		return nil, fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
