// Package config provides configuration management for linernotes.
// It loads settings from environment variables with the LINERNOTES_ prefix
// and provides sensible defaults for all configuration options.
//
// Operator settings that must survive restarts (e.g., the hallucinated-fill
// default) are persisted to the settings table in the database.
// LoadConfigFromDB reads from the database first and falls back to
// environment variables. SaveConfig writes those settings to the database.
package config

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"
)

// Config holds all configuration settings for the linernotes application.
type Config struct {
	Server     ServerConfig
	Storage    StorageConfig
	LLM        LLMConfig
	Providers  ProvidersConfig
	Curated    CuratedConfig
	Generation GenerationConfig
	Security   SecurityConfig
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port int    // Server port (default: 6464)
	Host string // Server host (default: 127.0.0.1)
}

// StorageConfig contains database and storage configuration.
type StorageConfig struct {
	StorageEngine string // Storage engine type: sqlite, postgres (default: sqlite)
	DataPath      string // Path to data directory for sqlite (default: ./data)
	PostgresDSN   string // Connection string when StorageEngine is postgres
}

// LLMConfig contains LLM provider configuration for the generative source.
type LLMConfig struct {
	LLMProvider          string // LLM provider: ollama, openai, anthropic (default: ollama)
	OllamaURL            string // Ollama API URL (default: http://localhost:11434)
	OllamaModel          string // Ollama model name for generation (default: qwen2.5:7b)
	OllamaEmbeddingModel string // Ollama model name for bio embeddings (default: nomic-embed-text)
	OpenAIAPIKey         string // OpenAI API key
	OpenAIModel          string // OpenAI model name (default: gpt-4)
	AnthropicAPIKey      string // Anthropic API key
	AnthropicModel       string // Anthropic model name (default: claude-haiku-4-5-20251001)
}

// ProvidersConfig contains the external metadata provider endpoints used by
// the musicgraph, encyclopedia and image sources.
type ProvidersConfig struct {
	MusicgraphURL        string // Music metadata API base URL (default: https://musicbrainz.org/ws/2)
	MusicgraphUserAgent  string // User-Agent sent to the metadata API (required by the public instance)
	MusicgraphIntervalMS int    // Minimum gap between metadata API requests in ms; self-hosted mirrors can run tighter (default: 1000)
	EncyclopediaURL      string // Encyclopedia API base URL (default: https://en.wikipedia.org/w/api.php)
	ImageAPIURL          string // Artist image API base URL (default: https://www.theaudiodb.com/api/v1/json)
	ImageAPIKey          string // Artist image API key (default: the free-tier key "2")
	TimeoutSeconds       int    // Per-request timeout for provider HTTP calls (default: 15)
}

// CuratedConfig configures the static curated collaboration table.
type CuratedConfig struct {
	OverridePath string // Path to an on-disk YAML override for the embedded table (default: none)
	Watch        bool   // Watch the override file and hot-reload on change (default: true)
}

// GenerationConfig contains network generation tuning.
type GenerationConfig struct {
	// EnrichWorkers bounds the concurrent metadata lookups per build.
	EnrichWorkers int

	// DefaultAllowHallucinations is applied when a request does not carry
	// the allowHallucinations query parameter.
	// Env var: LINERNOTES_ALLOW_HALLUCINATIONS_DEFAULT
	// Database key: allow_hallucinations_default
	DefaultAllowHallucinations bool
}

// SecurityConfig contains security and authentication settings.
type SecurityConfig struct {
	SecurityMode string // Security mode: development, production (default: development)
	APIToken     string // API authentication token
}

// LoadConfig loads configuration from environment variables with sensible defaults.
// All environment variables use the LINERNOTES_ prefix.
// Use LoadConfigFromDB to also read persisted operator settings from the database.
func LoadConfig() (*Config, error) {
	cfg := buildBaseConfig()
	return cfg, nil
}

// LoadConfigFromDB loads configuration from both environment variables and the
// database. The database value takes precedence over the environment variable
// for operator settings. Falls back to the environment variable when no DB
// entry exists.
//
// Returns an error if db is nil.
func LoadConfigFromDB(db *sql.DB) (*Config, error) {
	if db == nil {
		return nil, errors.New("config: database connection is required")
	}

	cfg := buildBaseConfig()

	// Load allow_hallucinations_default from settings table (DB takes
	// precedence over env var)
	raw, err := getSetting(db, "allow_hallucinations_default")
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("config: failed to load allow_hallucinations_default from database: %w", err)
	}

	if raw != "" {
		cfg.Generation.DefaultAllowHallucinations = raw == "true"
	}
	// If no DB value, the env var value from buildBaseConfig() stands

	return cfg, nil
}

// SaveConfig persists operator settings to the settings table in the
// database. Uses upsert semantics: inserts if not present, updates if already
// stored. This ensures the settings survive application restarts.
//
// Returns an error if db is nil.
func (c *Config) SaveConfig(db *sql.DB) error {
	if db == nil {
		return errors.New("config: database connection is required")
	}

	value := "false"
	if c.Generation.DefaultAllowHallucinations {
		value = "true"
	}
	if err := setSetting(db, "allow_hallucinations_default", value); err != nil {
		return fmt.Errorf("config: failed to save allow_hallucinations_default: %w", err)
	}

	return nil
}

// getSetting retrieves a single setting value by key from the settings table.
// Returns an empty string and sql.ErrNoRows if the key does not exist.
func getSetting(db *sql.DB, key string) (string, error) {
	var value string
	err := db.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if err != nil {
		return "", err
	}
	return value, nil
}

// setSetting writes a key-value pair to the settings table using upsert semantics.
func setSetting(db *sql.DB, key, value string) error {
	_, err := db.Exec(`
		INSERT INTO settings (key, value)
		VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = CURRENT_TIMESTAMP
	`, key, value)
	return err
}

// buildBaseConfig constructs a Config with values from environment variables
// and defaults. This is the shared base for both LoadConfig and LoadConfigFromDB.
func buildBaseConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: getEnvInt("LINERNOTES_PORT", 6464),
			Host: getEnv("LINERNOTES_HOST", "127.0.0.1"),
		},
		Storage: StorageConfig{
			StorageEngine: getEnv("LINERNOTES_STORAGE_ENGINE", "sqlite"),
			DataPath:      getEnv("LINERNOTES_DATA_PATH", "./data"),
			PostgresDSN:   getEnv("LINERNOTES_POSTGRES_DSN", ""),
		},
		LLM: LLMConfig{
			LLMProvider:          getEnv("LINERNOTES_LLM_PROVIDER", "ollama"),
			OllamaURL:            getEnv("LINERNOTES_OLLAMA_URL", "http://localhost:11434"),
			OllamaModel:          getEnv("LINERNOTES_OLLAMA_MODEL", "qwen2.5:7b"),
			OllamaEmbeddingModel: getEnv("LINERNOTES_EMBEDDING_MODEL", "nomic-embed-text"),
			OpenAIAPIKey:         getEnv("LINERNOTES_OPENAI_API_KEY", ""),
			OpenAIModel:          getEnv("LINERNOTES_OPENAI_MODEL", "gpt-4"),
			AnthropicAPIKey:      getEnv("LINERNOTES_ANTHROPIC_API_KEY", ""),
			AnthropicModel:       getEnv("LINERNOTES_ANTHROPIC_MODEL", "claude-haiku-4-5-20251001"),
		},
		Providers: ProvidersConfig{
			MusicgraphURL:        getEnv("LINERNOTES_MUSICGRAPH_URL", "https://musicbrainz.org/ws/2"),
			MusicgraphUserAgent:  getEnv("LINERNOTES_MUSICGRAPH_USER_AGENT", "linernotes/1.0 (https://github.com/crateful/linernotes)"),
			MusicgraphIntervalMS: getEnvInt("LINERNOTES_MUSICGRAPH_INTERVAL_MS", 1000),
			EncyclopediaURL:      getEnv("LINERNOTES_ENCYCLOPEDIA_URL", "https://en.wikipedia.org/w/api.php"),
			ImageAPIURL:          getEnv("LINERNOTES_IMAGE_API_URL", "https://www.theaudiodb.com/api/v1/json"),
			ImageAPIKey:          getEnv("LINERNOTES_IMAGE_API_KEY", "2"),
			TimeoutSeconds:       getEnvInt("LINERNOTES_PROVIDER_TIMEOUT_SECONDS", 15),
		},
		Curated: CuratedConfig{
			OverridePath: getEnv("LINERNOTES_CURATED_PATH", ""),
			Watch:        getEnvBool("LINERNOTES_CURATED_WATCH", true),
		},
		Generation: GenerationConfig{
			EnrichWorkers:              getEnvInt("LINERNOTES_ENRICH_WORKERS", 4),
			DefaultAllowHallucinations: getEnvBool("LINERNOTES_ALLOW_HALLUCINATIONS_DEFAULT", false),
		},
		Security: SecurityConfig{
			SecurityMode: getEnv("LINERNOTES_SECURITY_MODE", "development"),
			APIToken:     getEnv("LINERNOTES_API_TOKEN", ""),
		},
	}
}

// getEnv retrieves a string environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns a default value.
// If the environment variable exists but cannot be parsed as an integer,
// it returns the default value.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvBool retrieves a boolean environment variable or returns a default value.
// It recognizes "true", "1", "yes" as true and "false", "0", "no" as false (case-insensitive).
// If the environment variable exists but cannot be parsed as a boolean,
// it returns the default value.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		switch value {
		case "true", "1", "yes", "True", "TRUE", "Yes", "YES":
			return true
		case "false", "0", "no", "False", "FALSE", "No", "NO":
			return false
		}
	}
	return defaultValue
}
