// Package config loads bidmate configuration from YAML with environment
// overrides.
package config

import (
	"fmt"
	"time"
)

// ConfigError represents a configuration error.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s", e.Message)
}

// Config is the root configuration for bidmate.
type Config struct {
	API     APIConfig     `yaml:"api,omitempty"`
	Search  SearchConfig  `yaml:"search,omitempty"`
	Session SessionConfig `yaml:"session,omitempty"`
	Logging LoggingConfig `yaml:"logging,omitempty"`
}

// APIConfig locates the remote estimation service.
type APIConfig struct {
	BaseURL string `yaml:"baseUrl,omitempty"`
	Token   string `yaml:"token,omitempty"` // supports ${ENV_VAR} references
	OrgID   string `yaml:"orgId,omitempty"`
}

// SearchConfig controls the catalogue search coordinator.
type SearchConfig struct {
	DebounceMs int `yaml:"debounceMs,omitempty"`
}

// SessionConfig controls where the active session is remembered.
type SessionConfig struct {
	Store string `yaml:"store,omitempty"` // "sqlite" | "memory"
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level        string `yaml:"level,omitempty"`        // "silent" | "fatal" | "error" | "warn" | "info" | "debug" | "trace"
	ConsoleStyle string `yaml:"consoleStyle,omitempty"` // "pretty" | "compact" | "json"
}

// SearchDebounce returns the configured search debounce window as a duration.
func (c Config) SearchDebounce() time.Duration {
	return time.Duration(c.Search.DebounceMs) * time.Millisecond
}

// Defaults returns a Config with sensible defaults applied.
func Defaults() Config {
	return Config{
		Search: SearchConfig{
			DebounceMs: 300,
		},
		Session: SessionConfig{
			Store: "sqlite",
		},
		Logging: LoggingConfig{
			Level:        "info",
			ConsoleStyle: "pretty",
		},
	}
}
