// Package config loads and validates planpilot's configuration. Configuration
// lives in ~/.planpilot/config.yaml and every key can be overridden through
// PLANPILOT_* environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration for the planpilot service.
type Config struct {
	Server  ServerConfig  `mapstructure:"server" yaml:"server"`
	LLM     LLMConfig     `mapstructure:"llm" yaml:"llm"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// ServerConfig contains the HTTP listener settings.
type ServerConfig struct {
	// Host is the bind address for the HTTP API
	Host string `mapstructure:"host" yaml:"host"`
	// Port is the listen port for the HTTP API
	Port int `mapstructure:"port" yaml:"port"`
	// ReadTimeoutSec bounds how long a request body read may take
	ReadTimeoutSec int `mapstructure:"read_timeout_sec" yaml:"read_timeout_sec"`
	// WriteTimeoutSec bounds how long a response write may take. Provider
	// chains can legitimately spend the 20s warm-up window plus several
	// upstream calls, so this stays generous.
	WriteTimeoutSec int `mapstructure:"write_timeout_sec" yaml:"write_timeout_sec"`
	// IdleTimeoutSec bounds keep-alive connection idleness
	IdleTimeoutSec int `mapstructure:"idle_timeout_sec" yaml:"idle_timeout_sec"`
	// ShutdownTimeoutSec bounds graceful shutdown on SIGINT/SIGTERM
	ShutdownTimeoutSec int `mapstructure:"shutdown_timeout_sec" yaml:"shutdown_timeout_sec"`
}

// LLMConfig contains configuration for the text-generation providers.
type LLMConfig struct {
	// PreferredProvider optionally names the provider to try first. An empty
	// value keeps the default order; an unknown name is ignored with a
	// warning when the orchestrator starts.
	PreferredProvider string `mapstructure:"preferred_provider" yaml:"preferred_provider"`
	// Providers maps provider names to their specific configuration
	Providers map[string]ProviderConfig `mapstructure:"providers" yaml:"providers"`
}

// ProviderConfig contains configuration for a single provider.
type ProviderConfig struct {
	// Endpoint is the API base URL
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`
	// APIKey is the authentication credential. When empty it is resolved
	// from the provider's conventional environment variable; if that is
	// also unset the provider is unavailable for the process lifetime.
	APIKey string `mapstructure:"api_key" yaml:"api_key,omitempty"`
	// Model is the model identifier sent with every request
	Model string `mapstructure:"model" yaml:"model"`
	// TimeoutSec is the HTTP client timeout for one request
	TimeoutSec int `mapstructure:"timeout_sec" yaml:"timeout_sec"`
}

// LoggingConfig contains configuration for application logging.
type LoggingConfig struct {
	// Level is the log level ("debug", "info", "warn", "error")
	Level string `mapstructure:"level" yaml:"level"`
	// Colored enables ANSI colors on console output
	Colored bool `mapstructure:"colored" yaml:"colored"`
}

// ProviderGroq, ProviderGemini and ProviderHuggingFace are the known provider
// names, in default orchestration order (fastest and cheapest first).
const (
	ProviderGroq        = "groq"
	ProviderGemini      = "gemini"
	ProviderHuggingFace = "huggingface"
)

// DefaultProviderOrder returns the default orchestration order.
func DefaultProviderOrder() []string {
	return []string{ProviderGroq, ProviderGemini, ProviderHuggingFace}
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:               "0.0.0.0",
			Port:               8090,
			ReadTimeoutSec:     15,
			WriteTimeoutSec:    120,
			IdleTimeoutSec:     60,
			ShutdownTimeoutSec: 10,
		},
		LLM: LLMConfig{
			PreferredProvider: "",
			Providers: map[string]ProviderConfig{
				ProviderGroq: {
					Endpoint:   "https://api.groq.com/openai/v1",
					Model:      "llama-3.3-70b-versatile",
					TimeoutSec: 30,
				},
				ProviderGemini: {
					Endpoint:   "https://generativelanguage.googleapis.com/v1beta",
					Model:      "gemini-1.5-flash",
					TimeoutSec: 30,
				},
				ProviderHuggingFace: {
					Endpoint:   "https://api-inference.huggingface.co",
					Model:      "mistralai/Mistral-7B-Instruct-v0.3",
					TimeoutSec: 60,
				},
			},
		},
		Logging: LoggingConfig{
			Level:   "info",
			Colored: true,
		},
	}
}

// DefaultPath returns the default config file location (~/.planpilot/config.yaml).
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".planpilot", "config.yaml"), nil
}

// Load reads configuration from the default location and merges environment
// variables. If no config file exists, one is created with default values.
func Load() (*Config, error) {
	path, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath reads configuration from a specific file path and merges
// environment variables. A missing file is created with default values.
func LoadFromPath(path string) (*Config, error) {
	path = expandPath(path)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := writeConfigFile(path, Default()); err != nil {
			return nil, fmt.Errorf("failed to write default config: %w", err)
		}
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Environment overrides, e.g. PLANPILOT_LLM_PREFERRED_PROVIDER.
	v.SetEnvPrefix("PLANPILOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// SaveToPath writes the current configuration to a specific file path.
func (c *Config) SaveToPath(path string) error {
	path = expandPath(path)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return writeConfigFile(path, c)
}

// Validate checks the configuration for common errors. An unknown
// preferred_provider is deliberately not an error here: the orchestrator
// ignores it with a warning and keeps the default order.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if len(c.LLM.Providers) == 0 {
		return fmt.Errorf("llm.providers cannot be empty")
	}
	for name, p := range c.LLM.Providers {
		if p.TimeoutSec < 0 {
			return fmt.Errorf("llm.providers.%s.timeout_sec cannot be negative", name)
		}
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level '%s', must be one of: debug, info, warn, error", c.Logging.Level)
	}

	return nil
}

// Provider returns the configuration for a named provider, falling back to
// the built-in defaults when the config file omits the entry.
func (c *Config) Provider(name string) ProviderConfig {
	if p, ok := c.LLM.Providers[name]; ok {
		return p
	}
	if p, ok := Default().LLM.Providers[name]; ok {
		return p
	}
	return ProviderConfig{}
}

// configFileHeader is prepended to every config file this package writes, so
// a fresh file documents its own override mechanisms.
const configFileHeader = `# planpilot configuration.
# Every key can be overridden with a PLANPILOT_* environment variable,
# e.g. PLANPILOT_SERVER_PORT=9090 or PLANPILOT_LLM_PREFERRED_PROVIDER=gemini.
# Provider credentials are read from GROQ_API_KEY, GEMINI_API_KEY and
# HF_API_KEY when api_key is left empty here.

`

// writeConfigFile serializes a Config to YAML using the yaml struct tags.
func writeConfigFile(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, append([]byte(configFileHeader), data...), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// expandPath expands ~ to the user's home directory in a path string.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(homeDir, path[1:])
	}
	return path
}
