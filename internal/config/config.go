// Package config loads the relay configuration: defaults, then an optional
// YAML file, then OMBRIDGE_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// WebhookSecrets holds the shared-secret token expected from each inbound
// integration. Requests with a mismatched token never reach a handler.
type WebhookSecrets struct {
	Command     string `mapstructure:"command"`
	Git         string `mapstructure:"git"`
	Board       string `mapstructure:"board"`
	Tracker     string `mapstructure:"tracker"`
	Email       string `mapstructure:"email"`
	TimeTracker string `mapstructure:"timetracker"`
}

// Config holds all relay configuration.
type Config struct {
	Environment string `mapstructure:"environment"`
	Port        string `mapstructure:"port"`

	MetricsEnabled bool `mapstructure:"metrics_enabled"`
	MetricsPort    int  `mapstructure:"metrics_port"`

	// Backend task/time-tracking service.
	BackendBaseURL    string `mapstructure:"backend_base_url"`
	BackendAPIVersion string `mapstructure:"backend_api_version"`
	BackendAuthToken  string `mapstructure:"backend_auth_token"`
	BackendAppToken   string `mapstructure:"backend_app_token"`

	// Chat platform API, used for direct messages from the git relay.
	ChatAPIBaseURL string `mapstructure:"chat_api_base_url"`
	ChatBotToken   string `mapstructure:"chat_bot_token"`

	// Time-tracker API, used for user lookups on entry sync.
	TimeTrackerAPIBaseURL string `mapstructure:"timetracker_api_base_url"`
	TimeTrackerAPIKey     string `mapstructure:"timetracker_api_key"`

	Secrets WebhookSecrets `mapstructure:"secrets"`

	SessionTTL      time.Duration `mapstructure:"session_ttl"`
	SessionCapacity int           `mapstructure:"session_capacity"`

	// Defaults applied to tasks imported from relays until creator/project
	// mapping lives in the backend.
	ImportProject string `mapstructure:"import_project"`
	ImportUser    string `mapstructure:"import_user"`
}

// Load reads configuration from ombridge-config.yaml (searched in . and
// $HOME) and the environment. A missing file is not an error.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("ombridge-config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME")

	v.SetDefault("environment", "development")
	v.SetDefault("port", "8080")
	v.SetDefault("metrics_enabled", true)
	v.SetDefault("metrics_port", 9091)
	v.SetDefault("backend_base_url", "http://localhost:3000")
	v.SetDefault("backend_api_version", "1.0")
	v.SetDefault("chat_api_base_url", "https://slack.com/api")
	v.SetDefault("session_ttl", 2*time.Hour)
	v.SetDefault("session_capacity", 4096)
	v.SetDefault("import_project", "")
	v.SetDefault("import_user", "")
	v.SetDefault("backend_auth_token", "")
	v.SetDefault("backend_app_token", "")
	v.SetDefault("chat_bot_token", "")
	v.SetDefault("timetracker_api_base_url", "")
	v.SetDefault("timetracker_api_key", "")
	// Every key needs a registered default so environment overrides reach
	// Unmarshal.
	v.SetDefault("secrets.command", "")
	v.SetDefault("secrets.git", "")
	v.SetDefault("secrets.board", "")
	v.SetDefault("secrets.tracker", "")
	v.SetDefault("secrets.email", "")
	v.SetDefault("secrets.timetracker", "")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	v.SetEnvPrefix("OMBRIDGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the fields without which the relay cannot run.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("port cannot be empty")
	}
	if c.BackendBaseURL == "" {
		return fmt.Errorf("backend_base_url cannot be empty")
	}
	if c.Secrets.Command == "" {
		return fmt.Errorf("secrets.command cannot be empty")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("session_ttl must be positive")
	}
	if c.SessionCapacity <= 0 {
		return fmt.Errorf("session_capacity must be positive")
	}
	return nil
}

// IsDevelopment reports whether the relay runs outside production.
func (c *Config) IsDevelopment() bool {
	return !strings.EqualFold(c.Environment, "production")
}
