package llm

import (
	"strings"
	"time"

	"github.com/Kurukshetran/nl2sql/internal/config"
)

// ConfigFromSettings builds a client configuration for the given model.
// An empty model falls back to the configured generation model.
func ConfigFromSettings(settings config.LLMConfig, model string) Config {
	if model == "" {
		model = settings.Model
	}

	timeout := defaultTimeout
	if d, err := time.ParseDuration(settings.Timeout); err == nil {
		timeout = d
	}

	return Config{
		Provider:    strings.ToLower(settings.Provider),
		Model:       model,
		APIKey:      settings.APIKey,
		BaseURL:     settings.BaseURL,
		Temperature: settings.Temperature,
		MaxTokens:   settings.MaxTokens,
		Timeout:     timeout,
	}
}

// GenerationConfig returns the configuration used by the query pipeline
func GenerationConfig(settings config.LLMConfig) Config {
	return ConfigFromSettings(settings, settings.Model)
}

// EnrichmentConfig returns the configuration used to describe tables
func EnrichmentConfig(settings config.LLMConfig) Config {
	return ConfigFromSettings(settings, settings.EnrichmentModel)
}
