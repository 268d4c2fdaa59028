package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	PostgreSQL  PostgreSQLConfig
	Server      ServerConfig
	Catalog     CatalogConfig
	Chat        ChatConfig
	OpenAI      OpenAIConfig
	Embedding   EmbeddingConfig
	VectorIndex VectorIndexConfig
	Redis       RedisConfig
	Admin       AdminConfig
	Logging     LoggingConfig

	// VocabularyFile optionally overrides the compiled-in alias and topic rules.
	VocabularyFile string
}

// PostgreSQLConfig holds PostgreSQL database configuration
type PostgreSQLConfig struct {
	DSN                string // full connection string, takes precedence over the discrete fields
	Host               string
	Port               int
	User               string
	Password           string
	Database           string
	SSLMode            string
	MaxConnections     int
	MaxIdleConnections int
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int
	Host           string
	GinMode        string
	AllowedOrigins []string
}

// CatalogConfig controls candidate retrieval.
type CatalogConfig struct {
	Status            string // lexical base predicate; empty disables it
	RetrievalMode     string // "lexical" or "vector"
	LexicalLimit      int
	VectorLimit       int
	MaxLimit          int
	LexicalMinResults int
	RetrievalTimeout  time.Duration
	SiteBaseURL       string
}

// ChatConfig controls grounding and generation for chat turns.
type ChatConfig struct {
	HistoryWindow     int
	ToolsEnabled      bool
	GenerationTimeout time.Duration
	MaxMessageLength  int
	Temperature       float64
	MaxTokens         int
}

// OpenAIConfig holds the OpenAI-compatible API configuration
type OpenAIConfig struct {
	APIKey              string
	APIBase             string
	ChatModel           string
	ChatExtraBody       string // JSON merged into chat requests, e.g. {"chat_template_kwargs":{"thinking":false}}
	EmbeddingModel      string
	EmbeddingDimensions int
	EmbeddingExtraBody  string // JSON merged into embedding requests, e.g. {"truncate":"NONE"}
	Timeout             int
	Enabled             bool
}

// EmbeddingConfig controls the batch indexer.
type EmbeddingConfig struct {
	Concurrency   int
	RatePerSecond float64
	AmenityCap    int
}

// VectorIndexConfig holds HNSW build parameters.
type VectorIndexConfig struct {
	M              int
	EfConstruction int
}

// RedisConfig configures the query-embedding cache.
type RedisConfig struct {
	Address      string
	Password     string
	DB           int
	EmbeddingTTL time.Duration
}

// Enabled reports whether a Redis address was configured.
func (r RedisConfig) Enabled() bool {
	return r.Address != ""
}

// AdminConfig protects the administrative routes.
type AdminConfig struct {
	Token string
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (optional)
	_ = godotenv.Load()

	cfg := &Config{
		PostgreSQL: PostgreSQLConfig{
			DSN:                getEnv("DATABASE_URL", getEnv("POSTGRESQL_URI", getEnv("PG_DSN", ""))),
			Host:               getEnv("PG_HOST", "localhost"),
			Port:               getEnvAsInt("PG_PORT", 5432),
			User:               getEnv("PG_USER", "postgres"),
			Password:           getEnv("PG_PASSWORD", ""),
			Database:           getEnv("PG_DATABASE", "offplan_catalog"),
			SSLMode:            getEnv("PG_SSLMODE", "disable"),
			MaxConnections:     getEnvAsInt("PG_MAX_CONNECTIONS", 25),
			MaxIdleConnections: getEnvAsInt("PG_MAX_IDLE_CONNECTIONS", 5),
		},
		Server: ServerConfig{
			Port:           getEnvAsInt("SERVER_PORT", 8080),
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			GinMode:        getEnv("GIN_MODE", "release"),
			AllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		},
		Catalog: CatalogConfig{
			Status:            getEnv("CATALOG_STATUS", "off-plan"),
			RetrievalMode:     getEnv("CATALOG_RETRIEVAL_MODE", "lexical"),
			LexicalLimit:      getEnvAsInt("CATALOG_LEXICAL_LIMIT", 5),
			VectorLimit:       getEnvAsInt("CATALOG_VECTOR_LIMIT", 10),
			MaxLimit:          getEnvAsInt("CATALOG_MAX_LIMIT", 50),
			LexicalMinResults: getEnvAsInt("CATALOG_LEXICAL_MIN_RESULTS", 1),
			RetrievalTimeout:  getEnvAsDuration("CATALOG_RETRIEVAL_TIMEOUT", 5*time.Second),
			SiteBaseURL:       strings.TrimRight(getEnv("SITE_BASE_URL", ""), "/"),
		},
		Chat: ChatConfig{
			HistoryWindow:     getEnvAsInt("CHAT_HISTORY_WINDOW", 10),
			ToolsEnabled:      getEnvAsBool("CHAT_TOOLS_ENABLED", true),
			GenerationTimeout: getEnvAsDuration("CHAT_GENERATION_TIMEOUT", 30*time.Second),
			MaxMessageLength:  getEnvAsInt("CHAT_MAX_MESSAGE_LENGTH", 4000),
			Temperature:       getEnvAsFloat("CHAT_TEMPERATURE", 0.4),
			MaxTokens:         getEnvAsInt("CHAT_MAX_TOKENS", 800),
		},
		OpenAI: OpenAIConfig{
			APIKey:              getEnv("OPENAI_API_KEY", ""),
			APIBase:             strings.TrimRight(getEnv("OPENAI_API_BASE", "https://api.openai.com/v1"), "/"),
			ChatModel:           getEnv("OPENAI_CHAT_MODEL", "gpt-4o-mini"),
			ChatExtraBody:       getEnv("OPENAI_CHAT_EXTRA_BODY", ""),
			EmbeddingModel:      getEnv("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),
			EmbeddingDimensions: getEnvAsInt("OPENAI_EMBEDDING_DIMENSIONS", 1536),
			EmbeddingExtraBody:  getEnv("OPENAI_EMBEDDING_EXTRA_BODY", ""),
			Timeout:             getEnvAsInt("OPENAI_TIMEOUT", 30),
			Enabled:             getEnv("OPENAI_API_KEY", "") != "",
		},
		Embedding: EmbeddingConfig{
			Concurrency:   getEnvAsInt("EMBEDDING_CONCURRENCY", 2),
			RatePerSecond: getEnvAsFloat("EMBEDDING_RATE_PER_SECOND", 5),
			AmenityCap:    getEnvAsInt("EMBEDDING_AMENITY_CAP", 8),
		},
		VectorIndex: VectorIndexConfig{
			M:              getEnvAsInt("VECTOR_INDEX_M", 16),
			EfConstruction: getEnvAsInt("VECTOR_INDEX_EF_CONSTRUCTION", 64),
		},
		Redis: RedisConfig{
			Address:      getEnv("REDIS_ADDR", ""),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getEnvAsInt("REDIS_DB", 0),
			EmbeddingTTL: getEnvAsDuration("REDIS_EMBEDDING_TTL", 24*time.Hour),
		},
		Admin: AdminConfig{
			Token: getEnv("ADMIN_TOKEN", ""),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		VocabularyFile: getEnv("VOCABULARY_FILE", ""),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Catalog.RetrievalMode {
	case "lexical", "vector":
	default:
		return fmt.Errorf("CATALOG_RETRIEVAL_MODE must be lexical or vector, got %q", c.Catalog.RetrievalMode)
	}
	if c.Catalog.LexicalLimit <= 0 || c.Catalog.VectorLimit <= 0 {
		return fmt.Errorf("catalog limits must be positive")
	}
	if c.Catalog.MaxLimit < c.Catalog.LexicalLimit || c.Catalog.MaxLimit < c.Catalog.VectorLimit {
		return fmt.Errorf("CATALOG_MAX_LIMIT must be at least the per-mode limits")
	}
	if c.OpenAI.EmbeddingDimensions <= 0 {
		return fmt.Errorf("OPENAI_EMBEDDING_DIMENSIONS must be positive")
	}
	if c.Embedding.Concurrency <= 0 {
		c.Embedding.Concurrency = 1
	}
	if c.Chat.HistoryWindow < 0 {
		c.Chat.HistoryWindow = 0
	}
	return nil
}

// GetPostgreSQLDSN returns PostgreSQL connection string
func (c *Config) GetPostgreSQLDSN() string {
	if c.PostgreSQL.DSN != "" {
		return c.PostgreSQL.DSN
	}

	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.PostgreSQL.Host,
		c.PostgreSQL.Port,
		c.PostgreSQL.User,
		c.PostgreSQL.Password,
		c.PostgreSQL.Database,
		c.PostgreSQL.SSLMode,
	)
}

// VocabularyFileFromEnv returns VOCABULARY_FILE without loading the rest of
// the configuration.
func VocabularyFileFromEnv() string {
	_ = godotenv.Load()
	return getEnv("VOCABULARY_FILE", "")
}

// Helper functions

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid integer value for %s, using default %d", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		log.Printf("Warning: Invalid float value for %s, using default %f", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid boolean value for %s, using default %t", key, defaultValue)
		return defaultValue
	}
	return value
}

// getEnvAsDuration accepts Go durations ("5s") or a bare number of seconds.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	if seconds, err := strconv.Atoi(valueStr); err == nil {
		return time.Duration(seconds) * time.Second
	}
	log.Printf("Warning: Invalid duration value for %s, using default %s", key, defaultValue)
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
