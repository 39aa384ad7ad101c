package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Each variable is read as AQACS_<NAME> first, then as the bare <NAME>.
type Config struct {
	Port        string `envconfig:"PORT" default:"8080"`
	Debug       bool   `envconfig:"DEBUG" default:"false"`
	Environment string `envconfig:"ENVIRONMENT" default:"dev"`

	SnapshotID        string `envconfig:"SNAPSHOT_ID"`
	ActiveVersionFile string `envconfig:"ACTIVE_VERSION_FILE" default:"./snapshots/active_version.json"`
	SnapshotRoot      string `envconfig:"SNAPSHOT_ROOT" default:"./snapshots"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`
	S3Prefix    string `envconfig:"S3_PREFIX"`

	VectorBackend    string `envconfig:"VECTOR_BACKEND" default:"qdrant"`
	QdrantURL        string `envconfig:"QDRANT_URL" default:"http://localhost:6333"`
	QdrantAPIKey     string `envconfig:"QDRANT_API_KEY"`
	DatabaseURL      string `envconfig:"DATABASE_URL"`
	CollectionPrefix string `envconfig:"COLLECTION_PREFIX" default:"us_hts"`

	EmbeddingProvider   string `envconfig:"EMBEDDING_PROVIDER" default:"tei"`
	EmbeddingURL        string `envconfig:"EMBEDDING_URL" default:"http://localhost:8081"`
	EmbeddingModel      string `envconfig:"EMBEDDING_MODEL"`
	EmbeddingDimensions int    `envconfig:"EMBEDDING_DIMENSIONS"`
	OpenAIAPIKey        string `envconfig:"OPENAI_API_KEY"`
	InferenceToken      string `envconfig:"INFERENCE_TOKEN"`

	QAProvider      string  `envconfig:"QA_PROVIDER" default:"hf"`
	QAURL           string  `envconfig:"QA_URL" default:"http://localhost:8082"`
	QAModel         string  `envconfig:"QA_MODEL"`
	QAMinConfidence float64 `envconfig:"QA_MIN_CONFIDENCE" default:"0.2"`
	QAMaxContexts   int     `envconfig:"QA_MAX_CONTEXTS" default:"5"`
	QAWorkers       int     `envconfig:"QA_WORKERS" default:"4"`

	ContextMaxChars  int `envconfig:"CONTEXT_MAX_CHARS" default:"1200"`
	ContextMaxFields int `envconfig:"CONTEXT_MAX_FIELDS" default:"24"`
	ExcerptMaxChars  int `envconfig:"EXCERPT_MAX_CHARS" default:"400"`

	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"30s"`
	APIKeys        []string      `envconfig:"API_KEYS"`
	SentryDSN      string        `envconfig:"SENTRY_DSN"`
	Disclaimer     string        `envconfig:"DISCLAIMER"`
}

// Vector backends.
const (
	BackendQdrant   = "qdrant"
	BackendPgvector = "pgvector"
)

// Capability providers.
const (
	ProviderTEI    = "tei"
	ProviderOpenAI = "openai"
	ProviderHF     = "hf"
)

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("AQACS", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects unknown backends and providers, and settings that cannot
// work together.
func (c *Config) Validate() error {
	switch c.VectorBackend {
	case BackendQdrant:
	case BackendPgvector:
		if c.DatabaseURL == "" {
			return fmt.Errorf("invalid config: DATABASE_URL is required for the %s backend", BackendPgvector)
		}
	default:
		return fmt.Errorf("invalid config: unknown VECTOR_BACKEND %q", c.VectorBackend)
	}

	switch c.EmbeddingProvider {
	case ProviderTEI, ProviderOpenAI:
	default:
		return fmt.Errorf("invalid config: unknown EMBEDDING_PROVIDER %q", c.EmbeddingProvider)
	}

	switch c.QAProvider {
	case ProviderHF, ProviderOpenAI:
	default:
		return fmt.Errorf("invalid config: unknown QA_PROVIDER %q", c.QAProvider)
	}

	if (c.EmbeddingProvider == ProviderOpenAI || c.QAProvider == ProviderOpenAI) && !c.HasOpenAI() {
		return fmt.Errorf("invalid config: OPENAI_API_KEY is required for the %s provider", ProviderOpenAI)
	}

	if c.QAMinConfidence < 0 || c.QAMinConfidence > 1 {
		return fmt.Errorf("invalid config: QA_MIN_CONFIDENCE must be within [0, 1]")
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("invalid config: REQUEST_TIMEOUT must be positive")
	}

	return nil
}

// HasS3 reports whether snapshots are read from a bucket instead of
// SNAPSHOT_ROOT.
func (c *Config) HasS3() bool {
	return c.S3Bucket != ""
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

// AuthEnabled reports whether /v1 routes require a bearer key.
func (c *Config) AuthEnabled() bool {
	for _, k := range c.APIKeys {
		if k != "" {
			return true
		}
	}
	return false
}
