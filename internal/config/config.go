package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Config holds all application configuration
// Supports environment variables with sensible defaults
//
// Environment Variables:
// LLM Configuration:
// - LLM_API_KEY: API key for the LLM provider (required for runs, not for
//   local commands)
// - LLM_API_URL: API endpoint URL (default: https://openrouter.ai/api/v1)
// - LLM_MODEL: Model name to use (default: openai/gpt-4o-mini)
// - LLM_MAX_TOKENS: Maximum tokens for responses (default: 8000)
// - LLM_TEMPERATURE: Temperature for responses (default: 0.7)
// - LLM_TIMEOUT: Request timeout in seconds (default: 30)
// - LLM_SITE_URL: Site URL for HTTP referer header (optional)
// - LLM_APP_NAME: Application name for X-Title header (optional)
//
// Search Configuration (for web search tool):
// - SEARCH_API_KEY: Tavily API key (empty disables the search tool)
// - SEARCH_API_URL: Tavily API URL (default: https://api.tavily.com/search)
//
// Pipeline Configuration:
// - RECENCY_WINDOW_HOURS: Suppress re-searching a query attempted within
//   this window (default: 12)
// - SEARCH_CONCURRENCY: Parallel search workers (default: 1)
// - ENRICH_CONCURRENCY: Parallel enrichment workers (default: 1)
//
// Storage Configuration:
// - JOBSCOUT_BACKEND: file | sqlite | postgres (default: file)
// - JOBSCOUT_DATA_DIR: Data directory (default: <user config dir>/jobscout)
// - DATABASE_URL: PostgreSQL connection string (required for postgres)
// - REDIS_URL: Redis connection string (optional, enables run events and
//   the cross-process run lock)
//
// Daemon Configuration:
// - CRON_EXPR: Schedule for daemon runs (default: 0 0 * * *)
//
// Agent Configuration:
// - AGENT_MAX_ITERATIONS: Max tool calling iterations (default: 10)

type Config struct {
	// LLM Configuration
	LLM LLMConfig `json:"llm"`

	// Search Configuration (for web search tool)
	Search SearchConfig `json:"search"`

	// Pipeline Configuration
	Pipeline PipelineConfig `json:"pipeline"`

	// Storage Configuration
	Storage StorageConfig `json:"storage"`

	// Daemon Configuration
	Daemon DaemonConfig `json:"daemon"`

	// Agent Configuration
	Agent AgentConfig `json:"agent"`
}

// LLMConfig holds the configuration for LLM client
// Supports any LLM provider (OpenRouter, OpenAI, Anthropic, etc.)
type LLMConfig struct {
	APIKey      string  `json:"api_key"`
	APIURL      string  `json:"api_url"`
	Model       string  `json:"model"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
	Timeout     int     `json:"timeout"`
	SiteURL     string  `json:"site_url"`
	AppName     string  `json:"app_name"`
}

// SearchConfig holds the configuration for web search tool
type SearchConfig struct {
	APIKey string `json:"api_key"` // Tavily API key
	APIURL string `json:"api_url"` // Tavily API URL
}

// PipelineConfig holds the ingestion pipeline knobs
type PipelineConfig struct {
	RecencyWindowHours int `json:"recency_window_hours"`
	SearchConcurrency  int `json:"search_concurrency"`
	EnrichConcurrency  int `json:"enrich_concurrency"`
}

// StorageConfig selects and locates the persistence backend
type StorageConfig struct {
	Backend     string `json:"backend"` // file, sqlite, or postgres
	DataDir     string `json:"data_dir"`
	DatabaseURL string `json:"database_url"`
	RedisURL    string `json:"redis_url"`
}

// DaemonConfig holds the configuration for scheduled runs
type DaemonConfig struct {
	CronExpr string `json:"cron_expr"`
}

// AgentConfig holds the configuration for the agent
type AgentConfig struct {
	MaxIterations int `json:"max_iterations"` // Max tool calling iterations
}

// Backend names accepted by JOBSCOUT_BACKEND.
const (
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Option is a function type for configuring Config
type Option func(*Config)

// NewFromEnv creates a new Config instance with values from environment variables and options
func NewFromEnv(opts ...Option) (*Config, error) {
	config := &Config{
		LLM: LLMConfig{
			APIKey:      getEnvString("LLM_API_KEY", ""),
			APIURL:      getEnvString("LLM_API_URL", "https://openrouter.ai/api/v1"),
			Model:       getEnvString("LLM_MODEL", "openai/gpt-4o-mini"),
			MaxTokens:   getEnvInt("LLM_MAX_TOKENS", 8000),
			Temperature: getEnvFloat("LLM_TEMPERATURE", 0.7),
			Timeout:     getEnvInt("LLM_TIMEOUT", 30),
			SiteURL:     getEnvString("LLM_SITE_URL", ""),
			AppName:     getEnvString("LLM_APP_NAME", ""),
		},
		Search: SearchConfig{
			APIKey: getEnvString("SEARCH_API_KEY", ""),
			APIURL: getEnvString("SEARCH_API_URL", "https://api.tavily.com/search"),
		},
		Pipeline: PipelineConfig{
			RecencyWindowHours: getEnvInt("RECENCY_WINDOW_HOURS", 12),
			SearchConcurrency:  getEnvInt("SEARCH_CONCURRENCY", 1),
			EnrichConcurrency:  getEnvInt("ENRICH_CONCURRENCY", 1),
		},
		Storage: StorageConfig{
			Backend:     getEnvString("JOBSCOUT_BACKEND", BackendFile),
			DataDir:     getEnvString("JOBSCOUT_DATA_DIR", ""),
			DatabaseURL: getEnvString("DATABASE_URL", ""),
			RedisURL:    getEnvString("REDIS_URL", ""),
		},
		Daemon: DaemonConfig{
			CronExpr: getEnvString("CRON_EXPR", "0 0 * * *"),
		},
		Agent: AgentConfig{
			MaxIterations: getEnvInt("AGENT_MAX_ITERATIONS", 10),
		},
	}

	if config.Storage.DataDir == "" {
		dir, err := defaultDataDir()
		if err != nil {
			return nil, fmt.Errorf("resolve data dir: %w", err)
		}
		config.Storage.DataDir = dir
	}

	// Apply custom options
	for _, opt := range opts {
		opt(config)
	}

	// Validate required configuration
	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// validate checks if all required configuration is properly set.
// LLM_API_KEY is deliberately not checked here: local commands like listing
// jobs never talk to the LLM, and the client validates its own key when a
// run actually needs one.
func (c *Config) validate() error {
	switch c.Storage.Backend {
	case BackendFile, BackendSQLite:
	case BackendPostgres:
		if c.Storage.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown backend %q (want file, sqlite, or postgres)", c.Storage.Backend)
	}
	return nil
}

// DBPath is the SQLite database location under the data dir.
func (c *Config) DBPath() string {
	return filepath.Join(c.Storage.DataDir, "jobscout.db")
}

// WALPath is the per-user recovery log location under the data dir.
func (c *Config) WALPath(user string) string {
	return filepath.Join(c.Storage.DataDir, "recovery-"+user+".jsonl")
}

// ProfilePath is the profile file location under the data dir.
func (c *Config) ProfilePath() string {
	return filepath.Join(c.Storage.DataDir, ProfileFileName)
}

func defaultDataDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "jobscout"), nil
}

// getEnvString gets a string value from environment variables with default
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer value from environment variables with default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloat gets a float value from environment variables with default
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
