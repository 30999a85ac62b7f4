package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds all configuration for the application
type Config struct {
	PostgreSQL PostgreSQLConfig
	Server     ServerConfig
	Logging    LoggingConfig
	OpenAI     OpenAIConfig
	Commerce   CommerceConfig
	Engine     EngineConfig
	Catalog    CatalogConfig
	Redis      RedisConfig
}

// PostgreSQLConfig holds PostgreSQL database configuration
type PostgreSQLConfig struct {
	DSN                string // full connection string, preferred when set
	Host               string
	Port               int
	User               string
	Password           string
	Database           string
	SSLMode            string
	MaxConnections     int
	MaxIdleConnections int
	Enabled            bool
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int
	Host           string
	GinMode        string
	AllowedOrigins string
	AllowedMethods string
	AllowedHeaders string
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// OpenAIConfig holds the generative fallback model configuration
type OpenAIConfig struct {
	APIKey          string
	APIBase         string
	ChatModel       string
	ChatTemperature float64
	ChatTopP        float64
	ChatMaxTokens   int
	ChatExtraBody   string // JSON string for extra_body (e.g., {"chat_template_kwargs":{"thinking":false}})
	Timeout         int
	Enabled         bool
}

// CommerceConfig holds the storefront REST backend configuration
type CommerceConfig struct {
	BaseURL        string
	ConsumerKey    string
	ConsumerSecret string
	Timeout        int
}

// EngineConfig holds the dialogue engine's business rules
type EngineConfig struct {
	ConfidenceThreshold float64
	FallbackEnabled     bool
	HistoryMax          int
	ProductSampleSize   int
	ResultsPerPage      int
}

// CatalogConfig holds catalog snapshot refresh configuration
type CatalogConfig struct {
	RefreshInterval time.Duration
	LoadTimeout     time.Duration
}

// RedisConfig holds the order ledger configuration
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	LedgerTTL time.Duration
	Enabled   bool
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
			Database:           getEnv("PG_DATABASE", "storefront"),
			SSLMode:            getEnv("PG_SSLMODE", "disable"),
			MaxConnections:     getEnvAsInt("PG_MAX_CONNECTIONS", 10),
			MaxIdleConnections: getEnvAsInt("PG_MAX_IDLE_CONNECTIONS", 2),
			Enabled:            getEnvAsBool("PG_ENABLED", true),
		},
		Server: ServerConfig{
			Port:           getEnvAsInt("SERVER_PORT", 8080),
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			GinMode:        getEnv("GIN_MODE", "release"),
			AllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
			AllowedMethods: getEnv("CORS_ALLOWED_METHODS", "GET,POST,OPTIONS"),
			AllowedHeaders: getEnv("CORS_ALLOWED_HEADERS", "Content-Type,Authorization"),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		OpenAI: OpenAIConfig{
			APIKey:          getEnv("OPENAI_API_KEY", ""),
			APIBase:         getEnv("OPENAI_API_BASE", "https://api.openai.com/v1"),
			ChatModel:       getEnv("OPENAI_CHAT_MODEL", "gpt-4o-mini"),
			ChatTemperature: getEnvAsFloat("OPENAI_CHAT_TEMPERATURE", 0.2),
			ChatTopP:        getEnvAsFloat("OPENAI_CHAT_TOP_P", 0.7),
			ChatMaxTokens:   getEnvAsInt("OPENAI_CHAT_MAX_TOKENS", 512),
			ChatExtraBody:   getEnv("OPENAI_CHAT_EXTRA_BODY", ""),
			Timeout:         getEnvAsInt("OPENAI_TIMEOUT", 8),
			Enabled:         getEnv("OPENAI_API_KEY", "") != "",
		},
		Commerce: CommerceConfig{
			BaseURL:        getEnv("COMMERCE_BASE_URL", "http://localhost:8081/wp-json/wc/v3"),
			ConsumerKey:    getEnv("COMMERCE_CONSUMER_KEY", ""),
			ConsumerSecret: getEnv("COMMERCE_CONSUMER_SECRET", ""),
			Timeout:        getEnvAsInt("COMMERCE_TIMEOUT", 15),
		},
		Engine: EngineConfig{
			ConfidenceThreshold: getEnvAsFloat("ENGINE_CONFIDENCE_THRESHOLD", 0.60),
			FallbackEnabled:     getEnvAsBool("ENGINE_FALLBACK_ENABLED", true),
			HistoryMax:          getEnvAsInt("ENGINE_HISTORY_MAX", 10),
			ProductSampleSize:   getEnvAsInt("ENGINE_PRODUCT_SAMPLE_SIZE", 40),
			ResultsPerPage:      getEnvAsInt("ENGINE_RESULTS_PER_PAGE", 12),
		},
		Catalog: CatalogConfig{
			RefreshInterval: getEnvAsDuration("CATALOG_REFRESH_INTERVAL", 15*time.Minute),
			LoadTimeout:     getEnvAsDuration("CATALOG_LOAD_TIMEOUT", 30*time.Second),
		},
		Redis: RedisConfig{
			Addr:      getEnv("REDIS_ADDR", ""),
			Password:  getEnv("REDIS_PASSWORD", ""),
			DB:        getEnvAsInt("REDIS_DB", 0),
			LedgerTTL: getEnvAsDuration("REDIS_LEDGER_TTL", 24*time.Hour),
			Enabled:   getEnv("REDIS_ADDR", "") != "",
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would make the engine misbehave
func (c *Config) Validate() error {
	if c.Engine.ConfidenceThreshold < 0 || c.Engine.ConfidenceThreshold > 1 {
		return fmt.Errorf("ENGINE_CONFIDENCE_THRESHOLD must be within [0,1], got %f", c.Engine.ConfidenceThreshold)
	}
	if c.Engine.HistoryMax <= 0 {
		return fmt.Errorf("ENGINE_HISTORY_MAX must be positive, got %d", c.Engine.HistoryMax)
	}
	if c.Catalog.RefreshInterval <= 0 {
		return fmt.Errorf("CATALOG_REFRESH_INTERVAL must be positive, got %s", c.Catalog.RefreshInterval)
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
		log.Warn().Str("key", key).Int("default", defaultValue).Msg("invalid integer value, using default")
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
		log.Warn().Str("key", key).Float64("default", defaultValue).Msg("invalid float value, using default")
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := strings.TrimSpace(os.Getenv(key))
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Warn().Str("key", key).Bool("default", defaultValue).Msg("invalid boolean value, using default")
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Warn().Str("key", key).Dur("default", defaultValue).Msg("invalid duration value, using default")
		return defaultValue
	}
	return value
}
