package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds the configuration for the GameForge server.
type Config struct {
	// Server settings
	Port     string `envconfig:"SERVER_PORT" default:"8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// PostgreSQL settings
	DBHost     string `envconfig:"DB_HOST" required:"true"`
	DBPort     string `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" required:"true"`
	DBName     string `envconfig:"DB_NAME" required:"true"`
	DBSSLMode  string `envconfig:"DB_SSL_MODE" default:"disable"`
	DBMaxConns int    `envconfig:"DB_MAX_CONNECTIONS" default:"10"`
	// Secret field WITHOUT an envconfig tag, loaded from a secret file.
	DBPassword string

	// Redis settings (artifact cache for the play endpoint)
	RedisAddr        string        `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisDB          int           `envconfig:"REDIS_DB" default:"0"`
	ArtifactCacheTTL time.Duration `envconfig:"ARTIFACT_CACHE_TTL" default:"5m"`

	// Agent/completion service settings
	AIBaseURL     string        `envconfig:"AI_BASE_URL" default:"https://api.openai.com/v1"`
	AIModel       string        `envconfig:"AI_MODEL" default:"gpt-4o"`
	AIAssistantID string        `envconfig:"AI_ASSISTANT_ID" required:"true"`
	AITimeout     time.Duration `envconfig:"AI_TIMEOUT" default:"120s"`
	// Secret field WITHOUT an envconfig tag.
	AIAPIKey string

	// Session controller tuning
	CancelPollMaxAttempts int           `envconfig:"SESSION_CANCEL_POLL_MAX_ATTEMPTS" default:"10"`
	CancelPollBaseDelay   time.Duration `envconfig:"SESSION_CANCEL_POLL_BASE_DELAY" default:"500ms"`
	CancelPollMaxDelay    time.Duration `envconfig:"SESSION_CANCEL_POLL_MAX_DELAY" default:"5s"`
	SettlingDelay         time.Duration `envconfig:"SESSION_SETTLING_DELAY" default:"1s"`
	SubmitMaxRetries      int           `envconfig:"SESSION_SUBMIT_MAX_RETRIES" default:"5"`
	SubmitBaseBackoff     time.Duration `envconfig:"SESSION_SUBMIT_BASE_BACKOFF" default:"1s"`

	// Generation pipeline
	DispatchMaxAttempts int `envconfig:"GENERATION_DISPATCH_MAX_ATTEMPTS" default:"3"`

	// Identity/reputation service
	IdentityBaseURL string  `envconfig:"IDENTITY_BASE_URL" required:"true"`
	MinCreatorScore float64 `envconfig:"MIN_CREATOR_SCORE" default:"0.7"`
	// Secret field WITHOUT an envconfig tag.
	IdentityAPIKey string

	// Object storage for re-hosted images.
	// Blob URL as understood by gocloud.dev, e.g. "file:///var/lib/gameforge/images"
	// or "s3://gameforge-images?region=us-east-1".
	ImageBucketURL    string        `envconfig:"IMAGE_BUCKET_URL" default:"file:///tmp/gameforge-images"`
	ImagePublicBase   string        `envconfig:"IMAGE_PUBLIC_BASE" default:"/images"`
	ImageFetchTimeout time.Duration `envconfig:"IMAGE_FETCH_TIMEOUT" default:"30s"`
}

// GetDSN returns the PostgreSQL connection string.
func (c *Config) GetDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
}

// readSecret reads a Docker-style secret file from /run/secrets.
func readSecret(secretName string) (string, error) {
	filePath := fmt.Sprintf("/run/secrets/%s", secretName)
	secretBytes, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to read secret file %s: %w", filePath, err)
	}
	secret := strings.TrimSpace(string(secretBytes))
	if secret == "" {
		return "", fmt.Errorf("secret file %s is empty", filePath)
	}
	return secret, nil
}

// LoadConfig loads configuration from environment variables and secret files.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load gameforge-server configuration: %w", err)
	}

	var loadErr error
	cfg.DBPassword, loadErr = readSecret("db_password")
	if loadErr != nil {
		return nil, loadErr
	}
	cfg.AIAPIKey, loadErr = readSecret("ai_api_key")
	if loadErr != nil {
		return nil, loadErr
	}
	cfg.IdentityAPIKey, loadErr = readSecret("identity_api_key")
	if loadErr != nil {
		return nil, loadErr
	}

	log.Printf("GameForge server configuration loaded (secrets from files):")
	log.Printf("  Port: %s", cfg.Port)
	log.Printf("  LogLevel: %s", cfg.LogLevel)
	log.Printf("  DB DSN: postgres://%s:***@%s:%s/%s?sslmode=%s", cfg.DBUser, cfg.DBHost, cfg.DBPort, cfg.DBName, cfg.DBSSLMode)
	log.Printf("  Redis: %s (db %d)", cfg.RedisAddr, cfg.RedisDB)
	log.Printf("  AI Base URL: %s, Model: %s, Timeout: %v", cfg.AIBaseURL, cfg.AIModel, cfg.AITimeout)
	log.Printf("  Identity Base URL: %s", cfg.IdentityBaseURL)
	log.Printf("  Image Bucket: %s", cfg.ImageBucketURL)

	return &cfg, nil
}
