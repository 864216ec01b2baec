package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string            `toml:"environment"` // "development" or "production"
	Server      ServerConfig      `toml:"server"`
	Storage     StorageConfig     `toml:"storage"`
	Logging     LoggingConfig     `toml:"logging"`
	Tasks       TasksConfig       `toml:"tasks"`
	Claude      ClaudeConfig      `toml:"claude"`
	Gemini      GeminiConfig      `toml:"gemini"`
	Extraction  ExtractionConfig  `toml:"extraction"`
	Maintenance MaintenanceConfig `toml:"maintenance"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

type StorageConfig struct {
	Badger       BadgerConfig `toml:"badger"`
	QueryTimeout string       `toml:"query_timeout"` // e.g. "8s" - lookup paths race this against the query
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

type LoggingConfig struct {
	Level      string   `toml:"level"`       // "debug", "info", "warn", "error"
	Output     []string `toml:"output"`      // "stdout", "file"
	TimeFormat string   `toml:"time_format"` // Time format for logs (default: "15:04:05")
}

// TasksConfig controls the batch-task orchestration subsystem.
//
// Task records live in process memory only: a restart loses every
// in-flight task. This is a known limitation carried over deliberately;
// the TaskStore interface exists so a durable implementation can be
// substituted without touching the orchestrator.
type TasksConfig struct {
	Retention     string `toml:"retention"`       // e.g. "1h" - terminal records are evicted after this window
	BatchSize     int    `toml:"batch_size"`      // items processed concurrently per group (default 3)
	RatePerSecond int    `toml:"rate_per_second"` // generation-service request budget (default 2)
}

// ClaudeConfig contains Anthropic Claude API configuration
type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	Timeout     string  `toml:"timeout"`
	MaxTokens   int     `toml:"max_tokens"`
	Temperature float32 `toml:"temperature"`
}

// GeminiConfig contains Google Gemini API configuration (embeddings)
type GeminiConfig struct {
	APIKey         string `toml:"api_key"`
	EmbedModelName string `toml:"embed_model_name"`
	EmbedDimension int    `toml:"embed_dimension"`
	Timeout        string `toml:"timeout"`
}

// ExtractionConfig configures the out-of-process frame extraction tool.
// Any executable that accepts a media locator argument and prints the
// extraction JSON contract to stdout is substitutable here.
type ExtractionConfig struct {
	ToolPath string `toml:"tool_path"`
	Timeout  string `toml:"timeout"`
}

type MaintenanceConfig struct {
	Enabled  bool   `toml:"enabled"`
	Schedule string `toml:"schedule"` // cron schedule format
}

// DefaultConfig returns the baseline configuration before file/env overrides
func DefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8085,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path:           "./data/vendere",
				ResetOnStartup: false,
			},
			QueryTimeout: "8s",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Output:     []string{"stdout"},
			TimeFormat: "15:04:05",
		},
		Tasks: TasksConfig{
			Retention:     "1h",
			BatchSize:     3,
			RatePerSecond: 2,
		},
		Claude: ClaudeConfig{
			Model:       "claude-sonnet-4-20250514",
			Timeout:     "120s",
			MaxTokens:   4096,
			Temperature: 0.2,
		},
		Gemini: GeminiConfig{
			EmbedModelName: "gemini-embedding-001",
			EmbedDimension: 768,
			Timeout:        "30s",
		},
		Extraction: ExtractionConfig{
			ToolPath: "./scripts/extract_frames.py",
			Timeout:  "5m",
		},
		Maintenance: MaintenanceConfig{
			Enabled:  true,
			Schedule: "0 * * * *",
		},
	}
}

// LoadFromFiles loads configuration with precedence: defaults -> files (in
// order, later files override earlier ones) -> environment variables.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := DefaultConfig()

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// applyEnvOverrides applies VENDERE_* environment variable overrides
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("VENDERE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			config.Server.Port = port
		}
	}
	if v := os.Getenv("VENDERE_HOST"); v != "" {
		config.Server.Host = v
	}
	if v := os.Getenv("VENDERE_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
	if v := os.Getenv("VENDERE_STORAGE_PATH"); v != "" {
		config.Storage.Badger.Path = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		config.Claude.APIKey = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		config.Gemini.APIKey = v
	}
	if v := os.Getenv("VENDERE_EXTRACTION_TOOL"); v != "" {
		config.Extraction.ToolPath = v
	}
}

// ApplyFlagOverrides applies command-line flag overrides (highest priority)
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port != 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// Validate checks configuration invariants that would otherwise surface as
// confusing runtime failures.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Tasks.BatchSize <= 0 {
		return fmt.Errorf("tasks.batch_size must be positive, got %d", c.Tasks.BatchSize)
	}
	if _, err := time.ParseDuration(c.Tasks.Retention); err != nil {
		return fmt.Errorf("invalid tasks.retention %q: %w", c.Tasks.Retention, err)
	}
	if _, err := time.ParseDuration(c.Storage.QueryTimeout); err != nil {
		return fmt.Errorf("invalid storage.query_timeout %q: %w", c.Storage.QueryTimeout, err)
	}
	return nil
}

// TaskRetention returns the parsed task retention window
func (c *Config) TaskRetention() time.Duration {
	d, err := time.ParseDuration(c.Tasks.Retention)
	if err != nil {
		return time.Hour
	}
	return d
}

// QueryTimeout returns the parsed storage lookup timeout
func (c *Config) QueryTimeout() time.Duration {
	d, err := time.ParseDuration(c.Storage.QueryTimeout)
	if err != nil {
		return 8 * time.Second
	}
	return d
}
