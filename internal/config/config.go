// Package config loads codemate configuration. Settings are resolved in
// three layers: the user config (~/.codemate/config.json), an optional
// project-local .codemate.yaml overlay, and environment variables. Later
// layers win.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Provider identifiers.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// DefaultHistoryLimit is the number of user/assistant exchange pairs kept
// in the rolling chat window.
const DefaultHistoryLimit = 2

// GeminiConfig holds credentials and model selection for the Gemini backend.
type GeminiConfig struct {
	APIKey  string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	Model   string `json:"model,omitempty" yaml:"model,omitempty"`
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
}

// OpenAIConfig holds credentials for an OpenAI-compatible backend.
// BaseURL may point at a self-hosted vLLM endpoint.
type OpenAIConfig struct {
	APIKey  string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	Model   string `json:"model,omitempty" yaml:"model,omitempty"`
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
}

// Config is the resolved codemate configuration.
type Config struct {
	Provider     string       `json:"provider,omitempty" yaml:"provider,omitempty"`
	Gemini       GeminiConfig `json:"gemini,omitempty" yaml:"gemini,omitempty"`
	OpenAI       OpenAIConfig `json:"openai,omitempty" yaml:"openai,omitempty"`
	HistoryLimit int          `json:"history_limit,omitempty" yaml:"history_limit,omitempty"`
	SystemPrompt string       `json:"system_prompt,omitempty" yaml:"system_prompt,omitempty"`
	StorePath    string       `json:"store_path,omitempty" yaml:"store_path,omitempty"`
	Debug        bool         `json:"debug,omitempty" yaml:"debug,omitempty"`
}

// ConfigurationError reports missing or invalid provider settings. It is
// raised before any network call is attempted.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Reason
}

// Default returns the built-in defaults.
func Default() Config {
	return Config{
		Provider:     ProviderGemini,
		HistoryLimit: DefaultHistoryLimit,
	}
}

// DefaultUserConfigPath returns ~/.codemate/config.json.
func DefaultUserConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".codemate", "config.json")
}

// DefaultStorePath returns ~/.codemate/history.db.
func DefaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".codemate", "history.db")
}

// Load resolves configuration from the user config file, an optional
// project overlay, and the environment. A missing user config is not an
// error; defaults plus env vars may be enough to run.
func Load(userPath, projectPath string) (Config, error) {
	cfg := Default()

	if userPath != "" {
		data, err := os.ReadFile(userPath)
		switch {
		case err == nil:
			if err := json.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("failed to parse %s: %w", userPath, err)
			}
		case !os.IsNotExist(err):
			return cfg, fmt.Errorf("failed to read %s: %w", userPath, err)
		}
	}

	if projectPath != "" {
		data, err := os.ReadFile(projectPath)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("failed to parse %s: %w", projectPath, err)
			}
		case !os.IsNotExist(err):
			return cfg, fmt.Errorf("failed to read %s: %w", projectPath, err)
		}
	}

	applyEnv(&cfg)

	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = DefaultHistoryLimit
	}
	if cfg.StorePath == "" {
		cfg.StorePath = DefaultStorePath()
	}
	return cfg, nil
}

// applyEnv overlays environment variables onto cfg.
// CODEMATE_PROVIDER > config provider; API keys fall back to the
// conventional env var names when the config carries none.
func applyEnv(cfg *Config) {
	if v := os.Getenv("CODEMATE_PROVIDER"); v != "" {
		cfg.Provider = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" && cfg.Gemini.APIKey == "" {
		cfg.Gemini.APIKey = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" && cfg.OpenAI.APIKey == "" {
		cfg.OpenAI.APIKey = v
	}
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" && cfg.OpenAI.BaseURL == "" {
		cfg.OpenAI.BaseURL = v
	}
	if v := os.Getenv("CODEMATE_HISTORY_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.HistoryLimit = n
		}
	}
	if v := os.Getenv("CODEMATE_DEBUG"); v == "1" || v == "true" {
		cfg.Debug = true
	}
}

// Validate checks that the active provider is usable. Returns a
// *ConfigurationError describing the first problem found.
func (c Config) Validate() error {
	switch c.Provider {
	case ProviderGemini:
		if c.Gemini.APIKey == "" {
			return &ConfigurationError{Reason: "gemini api key not set; set gemini.api_key or GEMINI_API_KEY"}
		}
	case ProviderOpenAI:
		if c.OpenAI.APIKey == "" && c.OpenAI.BaseURL == "" {
			return &ConfigurationError{Reason: "openai api key not set; set openai.api_key or OPENAI_API_KEY"}
		}
	default:
		return &ConfigurationError{Reason: fmt.Sprintf("unknown provider %q (expected %s or %s)", c.Provider, ProviderGemini, ProviderOpenAI)}
	}
	return nil
}
