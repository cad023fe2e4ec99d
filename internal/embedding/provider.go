package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Kurukshetran/nl2sql/internal/config"
)

// Provider defines the interface for embedding providers
type Provider interface {
	// GenerateEmbedding generates an embedding for the given text
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)

	// GetDimensions returns the dimensionality of embeddings produced by this provider
	GetDimensions() int

	// IsEnabled returns whether the provider is enabled and ready to use
	IsEnabled() bool

	// GetName returns the provider name for identification
	GetName() string
}

// Config represents embedding provider configuration
type Config struct {
	Provider   string        `json:"provider"`   // "openai" or "disabled"
	Model      string        `json:"model"`      // Model name
	Dimensions int           `json:"dimensions"` // Expected embedding dimensions
	APIKey     string        `json:"-"`
	BaseURL    string        `json:"base_url,omitempty"`
	Timeout    time.Duration `json:"timeout,omitempty"`
}

// ErrDisabled is returned by a provider that is switched off
var ErrDisabled = errors.New("embedding provider is disabled")

const (
	ProviderOpenAI   = "openai"
	ProviderDisabled = "disabled"

	defaultModel      = "text-embedding-3-small"
	defaultDimensions = 1536
	defaultTimeout    = 60 * time.Second
)

// DefaultConfig returns default embedding configuration
func DefaultConfig() Config {
	return Config{
		Provider:   ProviderOpenAI,
		Model:      defaultModel,
		Dimensions: defaultDimensions,
		Timeout:    defaultTimeout,
	}
}

// ConfigFromSettings builds a provider configuration from application settings
func ConfigFromSettings(settings config.EmbeddingConfig, apiKey string) Config {
	cfg := DefaultConfig()
	cfg.Provider = strings.ToLower(settings.Provider)
	cfg.APIKey = apiKey
	cfg.BaseURL = settings.BaseURL

	if settings.Model != "" {
		cfg.Model = settings.Model
	}

	if settings.Dimensions > 0 {
		cfg.Dimensions = settings.Dimensions
	}

	return cfg
}

// NewProvider creates the provider named by the configuration. A remote
// provider without credentials degrades to the disabled provider.
func NewProvider(config Config) (Provider, error) {
	switch config.Provider {
	case ProviderDisabled, "":
		return &DisabledProvider{}, nil
	case ProviderOpenAI, "remote":
		if config.APIKey == "" {
			return &DisabledProvider{}, nil
		}

		return NewRemoteProvider(config)
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", config.Provider)
	}
}

// DisabledProvider is a no-op provider for when embeddings are disabled
type DisabledProvider struct{}

func (p *DisabledProvider) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	return nil, ErrDisabled
}

func (p *DisabledProvider) GetDimensions() int {
	return 0
}

func (p *DisabledProvider) IsEnabled() bool {
	return false
}

func (p *DisabledProvider) GetName() string {
	return ProviderDisabled
}
