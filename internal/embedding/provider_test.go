package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kurukshetran/nl2sql/internal/config"
)

func TestNewProvider(t *testing.T) {
	tests := []struct {
		name     string
		config   Config
		wantName string
		enabled  bool
		wantErr  bool
	}{
		{
			name:     "disabled",
			config:   Config{Provider: ProviderDisabled},
			wantName: ProviderDisabled,
		},
		{
			name:     "openai without key degrades",
			config:   Config{Provider: ProviderOpenAI, Model: defaultModel},
			wantName: ProviderDisabled,
		},
		{
			name:     "openai with key",
			config:   Config{Provider: ProviderOpenAI, Model: defaultModel, APIKey: "sk"},
			wantName: "remote:" + defaultModel,
			enabled:  true,
		},
		{
			name:    "unknown",
			config:  Config{Provider: "bert"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, err := NewProvider(tt.config)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantName, provider.GetName())
			assert.Equal(t, tt.enabled, provider.IsEnabled())
		})
	}
}

func TestDisabledProvider(t *testing.T) {
	p := &DisabledProvider{}

	_, err := p.GenerateEmbedding(context.Background(), "x")
	assert.ErrorIs(t, err, ErrDisabled)
	assert.Zero(t, p.GetDimensions())
}

func TestConfigFromSettings(t *testing.T) {
	cfg := ConfigFromSettings(config.EmbeddingConfig{
		Provider:   "OpenAI",
		Model:      "",
		Dimensions: 0,
	}, "sk")

	assert.Equal(t, ProviderOpenAI, cfg.Provider)
	assert.Equal(t, defaultModel, cfg.Model)
	assert.Equal(t, defaultDimensions, cfg.Dimensions)
	assert.Equal(t, "sk", cfg.APIKey)
}

func TestRemoteProviderGenerateEmbedding(t *testing.T) {
	var got embeddingRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		_ = json.NewEncoder(w).Encode(embeddingResponse{
			Data: []embeddingData{{Index: 0, Embedding: []float32{0.1, 0.2, 0.3}}},
		})
	}))
	defer server.Close()

	provider, err := NewRemoteProvider(Config{
		Model:      defaultModel,
		Dimensions: 3,
		APIKey:     "sk-test",
		BaseURL:    server.URL,
	})
	require.NoError(t, err)

	vector, err := provider.GenerateEmbedding(context.Background(), "Table: Orders\norders")
	require.NoError(t, err)

	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vector)
	assert.Equal(t, defaultModel, got.Model)
	assert.Equal(t, "Table: Orders\norders", got.Input)
	assert.Equal(t, 3, got.Dimensions)
}

func TestRemoteProviderDimensionMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(embeddingResponse{
			Data: []embeddingData{{Embedding: []float32{0.1}}},
		})
	}))
	defer server.Close()

	provider, err := NewRemoteProvider(Config{Dimensions: 3, APIKey: "sk", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = provider.GenerateEmbedding(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dimension mismatch")
}

func TestRemoteProviderHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"bad key"}}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	provider, err := NewRemoteProvider(Config{APIKey: "sk", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = provider.GenerateEmbedding(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}

func TestNewRemoteProviderRequiresKey(t *testing.T) {
	_, err := NewRemoteProvider(Config{})
	assert.Error(t, err)
}
