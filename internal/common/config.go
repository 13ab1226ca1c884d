package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string            `toml:"environment" validate:"omitempty,oneof=development production"`
	Server      ServerConfig      `toml:"server"`
	Storage     StorageConfig     `toml:"storage"`
	Logging     LoggingConfig     `toml:"logging"`
	Apply       ApplyConfig       `toml:"apply"`
	Browser     BrowserConfig     `toml:"browser"`
	Resume      ResumeConfig      `toml:"resume"`
	LLM         LLMConfig         `toml:"llm"`
	Maintenance MaintenanceConfig `toml:"maintenance"`
}

type ServerConfig struct {
	Port int    `toml:"port" validate:"gte=0,lte=65535"`
	Host string `toml:"host"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path" validate:"required"`
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

type LoggingConfig struct {
	Level      string   `toml:"level" validate:"omitempty,oneof=debug info warn error"`
	Output     []string `toml:"output"`      // "stdout", "file"
	TimeFormat string   `toml:"time_format"` // Time format for logs (default: "15:04:05.000")
}

// ApplyConfig controls the apply orchestrator and its workers.
type ApplyConfig struct {
	// Concurrency is the apply lease capacity. Clamped to 1-5; default 1 so
	// only one apply worker drives a browser at a time.
	Concurrency int `toml:"concurrency" validate:"omitempty,gte=1,lte=5"`
	// ConfirmTimeout is how long a worker waits at the confirmation gate.
	ConfirmTimeout time.Duration `toml:"confirm_timeout"`
	// KeepaliveInterval is the SSE ping interval for idle streams.
	KeepaliveInterval time.Duration `toml:"keepalive_interval"`
	// PageLoadTimeout bounds external ATS navigation.
	PageLoadTimeout time.Duration `toml:"page_load_timeout"`
	// ScreenshotDir receives timestamped debug screenshots.
	ScreenshotDir string `toml:"screenshot_dir"`
	// RequireConfirmation gates submission on a human confirm. semi_auto and
	// easy_apply_only modes always confirm; full_auto honours this flag.
	RequireConfirmation bool `toml:"require_confirmation"`
	// QueueSize bounds the per-session event queue.
	QueueSize int `toml:"queue_size" validate:"omitempty,gte=16"`
}

// BrowserConfig controls chromedp contexts used by browser platforms.
type BrowserConfig struct {
	Headless bool `toml:"headless"`
	// UserDataDir is the root for per-platform persistent profile directories.
	UserDataDir string        `toml:"user_data_dir"`
	UserAgent   string        `toml:"user_agent"`
	WaitTime    time.Duration `toml:"wait_time"` // settle time after navigation
	// NavPerMinute rate-limits outbound navigations across all workers.
	NavPerMinute int `toml:"nav_per_minute" validate:"omitempty,gte=1"`
}

// ResumeConfig controls resume artifacts and the tailoring pipelines.
type ResumeConfig struct {
	// DefaultPath is the fallback resume returned by the resolver.
	DefaultPath string `toml:"default_path" validate:"required"`
	// ArtifactsDir receives tailored resumes and cover letters.
	ArtifactsDir string `toml:"artifacts_dir"`
}

// LLMConfig selects and configures the content-generation provider.
type LLMConfig struct {
	Provider        string `toml:"provider" validate:"omitempty,oneof=gemini claude"`
	GoogleAPIKey    string `toml:"google_api_key"`
	AnthropicAPIKey string `toml:"anthropic_api_key"`
	Model           string `toml:"model"`
	Timeout         string `toml:"timeout"`
}

// MaintenanceConfig controls the cron cleanup of screenshots and artifacts.
type MaintenanceConfig struct {
	Enabled       bool   `toml:"enabled"`
	Schedule      string `toml:"schedule"`       // cron expression, default "0 3 * * *"
	RetentionDays int    `toml:"retention_days"` // default 14
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8085,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data/pursuit",
			},
		},
		Logging: LoggingConfig{
			Level:      "info",
			Output:     []string{"stdout"},
			TimeFormat: "15:04:05.000",
		},
		Apply: ApplyConfig{
			Concurrency:         1,
			ConfirmTimeout:      300 * time.Second,
			KeepaliveInterval:   15 * time.Second,
			PageLoadTimeout:     120 * time.Second,
			ScreenshotDir:       "./data/screenshots",
			RequireConfirmation: true,
			QueueSize:           256,
		},
		Browser: BrowserConfig{
			Headless:     false,
			UserDataDir:  "./data/browser",
			WaitTime:     3 * time.Second,
			NavPerMinute: 20,
		},
		Resume: ResumeConfig{
			DefaultPath:  "./data/resume/default.pdf",
			ArtifactsDir: "./data/tailored",
		},
		LLM: LLMConfig{
			Provider: "gemini",
			Timeout:  "120s",
		},
		Maintenance: MaintenanceConfig{
			Enabled:       true,
			Schedule:      "0 3 * * *",
			RetentionDays: 14,
		},
	}
}

// LoadFromFiles loads configuration from one or more TOML files.
// Later files override earlier ones; env vars override files.
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

// Validate checks configuration invariants via struct tags.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// applyEnvOverrides applies PURSUIT_* environment variable overrides
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("PURSUIT_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	if port := os.Getenv("PURSUIT_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("PURSUIT_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if badgerPath := os.Getenv("PURSUIT_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}
	if level := os.Getenv("PURSUIT_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("PURSUIT_LOG_OUTPUT"); output != "" {
		config.Logging.Output = strings.Split(output, ",")
	}
	if key := os.Getenv("PURSUIT_LLM_GOOGLE_API_KEY"); key != "" {
		config.LLM.GoogleAPIKey = key
	}
	if key := os.Getenv("PURSUIT_LLM_ANTHROPIC_API_KEY"); key != "" {
		config.LLM.AnthropicAPIKey = key
	}
	if provider := os.Getenv("PURSUIT_LLM_PROVIDER"); provider != "" {
		config.LLM.Provider = provider
	}
	if resume := os.Getenv("PURSUIT_RESUME_DEFAULT_PATH"); resume != "" {
		config.Resume.DefaultPath = resume
	}
	if dir := os.Getenv("PURSUIT_RESUME_ARTIFACTS_DIR"); dir != "" {
		config.Resume.ArtifactsDir = dir
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

// LeaseCapacity returns the apply lease capacity clamped to the 1-5 policy range.
func (c *ApplyConfig) LeaseCapacity() int {
	if c.Concurrency < 1 {
		return 1
	}
	if c.Concurrency > 5 {
		return 5
	}
	return c.Concurrency
}

// IsDevelopment returns true when running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment != "production"
}
