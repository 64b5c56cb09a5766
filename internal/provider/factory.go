package provider

import (
	"errors"

	"codemate/internal/config"
)

var errEmptyResponse = errors.New("empty response")

// New builds the client for the configured provider. Missing credentials
// surface as a *config.ConfigurationError before any network call.
func New(cfg config.Config) (Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Provider {
	case config.ProviderGemini:
		return NewGeminiClient(cfg.Gemini), nil
	case config.ProviderOpenAI:
		return NewOpenAIClient(cfg.OpenAI), nil
	default:
		// Validate already rejected unknown providers.
		return nil, &config.ConfigurationError{Reason: "unknown provider " + cfg.Provider}
	}
}
