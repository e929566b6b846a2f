package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	OpenAIAPIKey   string `envconfig:"OPENAI_API_KEY"`
	EmbeddingModel string `envconfig:"EMBEDDING_MODEL" default:"text-embedding-3-small"`
	EmbeddingDim   int    `envconfig:"EMBEDDING_DIMENSIONS" default:"1536"`

	RetrieverTopK      int     `envconfig:"RETRIEVER_TOP_K" default:"5"`
	RetrieverThreshold float64 `envconfig:"RETRIEVER_THRESHOLD" default:"0.7"`
	MaxContextLength   int     `envconfig:"MAX_CONTEXT_LENGTH" default:"4000"`
	HybridScoring      bool    `envconfig:"HYBRID_SCORING" default:"true"`

	CachePath      string        `envconfig:"CACHE_PATH" default:"ragcore-cache.db"`
	CacheThreshold float64       `envconfig:"CACHE_THRESHOLD" default:"0.95"`
	CacheTTL       time.Duration `envconfig:"CACHE_TTL" default:"1h"`
	CacheMaxSize   int           `envconfig:"CACHE_MAX_SIZE" default:"1000"`

	MaintenanceInterval time.Duration `envconfig:"MAINTENANCE_INTERVAL" default:"15m"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"ragcore-documents"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	SentryDSN string `envconfig:"SENTRY_DSN"`

	// Static key for the HTTP API; requests are unauthenticated when empty.
	APIKey string `envconfig:"API_KEY"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("RAGCORE", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}
