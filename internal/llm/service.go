package llm

import (
	"context"
	"time"
)

// Service defines the interface for completion requests
type Service interface {
	// Complete sends one system/user prompt pair and returns the raw text reply
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Config represents LLM service configuration
type Config struct {
	Provider    string        `json:"provider"` // openai, anthropic, ollama, local
	Model       string        `json:"model"`
	APIKey      string        `json:"-"`
	BaseURL     string        `json:"base_url,omitempty"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Timeout     time.Duration `json:"timeout,omitempty"`
}

// Provider constants for different LLM providers
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderLocal     = "local"
	ProviderOllama    = "ollama"
)

const (
	defaultTimeout   = 60 * time.Second
	defaultMaxTokens = 1000
)
