// Package config loads application configuration with multi-source priority.
//
// Sources, highest to lowest:
//  1. Environment variables (ASKDOC_* overrides, DATABASE_URL)
//  2. Config file (~/.askdoc/config.yaml or ./config.yaml)
//  3. Default values
//
// The similarity threshold deliberately has no default: retrieval quality
// depends on the embedding model in use, so the threshold must be configured
// explicitly and Load fails when it is missing.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Sentinel errors for configuration validation, checked with errors.Is().
var (
	// ErrThresholdNotSet indicates similarity_threshold was not configured.
	ErrThresholdNotSet = errors.New("similarity threshold not configured")

	// ErrInvalidThreshold indicates similarity_threshold is out of [0, 1].
	ErrInvalidThreshold = errors.New("invalid similarity threshold")

	// ErrInvalidMaxDocs indicates max_context_docs is out of [1, 10].
	ErrInvalidMaxDocs = errors.New("invalid max context docs")

	// ErrInvalidContextBudget indicates context_budget is not positive.
	ErrInvalidContextBudget = errors.New("invalid context budget")

	// ErrInvalidChunking indicates chunk_size/chunk_overlap are inconsistent.
	ErrInvalidChunking = errors.New("invalid chunking configuration")

	// ErrInvalidModelName indicates an empty model name.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidPostgresHost indicates an empty PostgreSQL host.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates a PostgreSQL port outside 1-65535.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates an empty PostgreSQL database name.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")
)

const (
	// DefaultEmbedderModel is the Gemini embedder used for chunk vectors.
	// Output is truncated to 768 dimensions to match the pgvector schema;
	// see knowledge.VectorDimension.
	DefaultEmbedderModel = "gemini-embedding-001"

	// DefaultChatModel is the provider-qualified generation model.
	DefaultChatModel = "gemini-2.5-flash"

	// DefaultMaxContextDocs caps how many chunks one query may pull in.
	DefaultMaxContextDocs = 10

	// MaxContextDocsLimit is the upper bound of the max_context_docs domain.
	MaxContextDocsLimit = 10

	// DefaultContextBudget is the context block character budget.
	DefaultContextBudget = 8000

	// thresholdUnset marks similarity_threshold as not configured. The real
	// domain is [0, 1], so a negative default is unambiguous.
	thresholdUnset = -1.0
)

// Config stores application configuration.
type Config struct {
	// Generation and embedding models
	ModelName     string `mapstructure:"model_name"`
	EmbedderModel string `mapstructure:"embedder_model"`

	// Retrieval parameters
	SimilarityThreshold float64 `mapstructure:"similarity_threshold"`
	MaxContextDocs      int     `mapstructure:"max_context_docs"`
	ContextBudget       int     `mapstructure:"context_budget"`

	// Ingestion chunking
	ChunkSize    int `mapstructure:"chunk_size"`
	ChunkOverlap int `mapstructure:"chunk_overlap"`

	// Storage (see storage.go for DSN helpers)
	PostgresHost     string `mapstructure:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password"`
	PostgresDBName   string `mapstructure:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > defaults.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}
	configDir := filepath.Join(home, ".askdoc")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".")

	setDefaults()
	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using defaults",
			"search_paths", []string{configDir, "."})
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// DATABASE_URL overrides the individual postgres_* settings.
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("model_name", DefaultChatModel)
	viper.SetDefault("embedder_model", DefaultEmbedderModel)

	// Retrieval. similarity_threshold intentionally defaults to the unset
	// marker; Validate rejects it unless configured.
	viper.SetDefault("similarity_threshold", thresholdUnset)
	viper.SetDefault("max_context_docs", DefaultMaxContextDocs)
	viper.SetDefault("context_budget", DefaultContextBudget)

	// Chunking
	viper.SetDefault("chunk_size", 1200)
	viper.SetDefault("chunk_overlap", 200)

	// PostgreSQL (matching docker-compose defaults)
	viper.SetDefault("postgres_host", "localhost")
	viper.SetDefault("postgres_port", 5432)
	viper.SetDefault("postgres_user", "askdoc")
	viper.SetDefault("postgres_password", "askdoc_dev_password")
	viper.SetDefault("postgres_db_name", "askdoc")
	viper.SetDefault("postgres_ssl_mode", "disable")
}

// bindEnvVariables binds ASKDOC_* overrides explicitly.
// GEMINI_API_KEY is read directly by Genkit, not via viper; the chat and
// ask commands check its presence before initializing providers.
func bindEnvVariables() {
	mustBind := func(key, envVar string) {
		if err := viper.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("model_name", "ASKDOC_MODEL_NAME")
	mustBind("embedder_model", "ASKDOC_EMBEDDER_MODEL")
	mustBind("similarity_threshold", "ASKDOC_SIMILARITY_THRESHOLD")
	mustBind("max_context_docs", "ASKDOC_MAX_CONTEXT_DOCS")
	mustBind("context_budget", "ASKDOC_CONTEXT_BUDGET")
	mustBind("postgres_host", "ASKDOC_POSTGRES_HOST")
	mustBind("postgres_port", "ASKDOC_POSTGRES_PORT")
	mustBind("postgres_user", "ASKDOC_POSTGRES_USER")
	mustBind("postgres_password", "ASKDOC_POSTGRES_PASSWORD")
	mustBind("postgres_db_name", "ASKDOC_POSTGRES_DB_NAME")
	mustBind("postgres_ssl_mode", "ASKDOC_POSTGRES_SSL_MODE")
}

// Validate checks the full configuration, fail-fast at startup.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.ModelName) == "" {
		return fmt.Errorf("%w: model_name must not be empty", ErrInvalidModelName)
	}
	if strings.TrimSpace(c.EmbedderModel) == "" {
		return fmt.Errorf("%w: embedder_model must not be empty", ErrInvalidModelName)
	}

	if c.SimilarityThreshold == thresholdUnset {
		return fmt.Errorf("%w: set similarity_threshold in config or ASKDOC_SIMILARITY_THRESHOLD", ErrThresholdNotSet)
	}
	if c.SimilarityThreshold < 0.0 || c.SimilarityThreshold > 1.0 {
		return fmt.Errorf("%w: %v not in [0.0, 1.0]", ErrInvalidThreshold, c.SimilarityThreshold)
	}
	if c.MaxContextDocs < 1 || c.MaxContextDocs > MaxContextDocsLimit {
		return fmt.Errorf("%w: %d not in [1, %d]", ErrInvalidMaxDocs, c.MaxContextDocs, MaxContextDocsLimit)
	}
	if c.ContextBudget <= 0 {
		return fmt.Errorf("%w: %d must be positive", ErrInvalidContextBudget, c.ContextBudget)
	}

	if c.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk_size %d must be positive", ErrInvalidChunking, c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: chunk_overlap %d must be in [0, chunk_size)", ErrInvalidChunking, c.ChunkOverlap)
	}

	if strings.TrimSpace(c.PostgresHost) == "" {
		return fmt.Errorf("%w: postgres_host must not be empty", ErrInvalidPostgresHost)
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: %d not in [1, 65535]", ErrInvalidPostgresPort, c.PostgresPort)
	}
	if strings.TrimSpace(c.PostgresDBName) == "" {
		return fmt.Errorf("%w: postgres_db_name must not be empty", ErrInvalidPostgresDBName)
	}

	return nil
}

// FullModelName returns the provider-qualified model name for Genkit.
// A name already containing "/" is returned as-is.
func (c *Config) FullModelName() string {
	if strings.Contains(c.ModelName, "/") {
		return c.ModelName
	}
	return "googleai/" + c.ModelName
}
