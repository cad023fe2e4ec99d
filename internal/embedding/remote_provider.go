package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// RemoteProvider calls an OpenAI-compatible /embeddings endpoint
type RemoteProvider struct {
	config     Config
	httpClient *http.Client
}

type embeddingRequest struct {
	Model      string `json:"model"`
	Input      string `json:"input"`
	Dimensions int    `json:"dimensions,omitempty"`
}

type embeddingResponse struct {
	Data  []embeddingData `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

type embeddingData struct {
	Index     int       `json:"index"`
	Embedding []float32 `json:"embedding"`
}

// NewRemoteProvider creates a provider for the configured API
func NewRemoteProvider(config Config) (*RemoteProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("API key is required for remote embeddings")
	}

	if config.Model == "" {
		config.Model = defaultModel
	}

	if config.BaseURL == "" {
		config.BaseURL = "https://api.openai.com/v1"
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &RemoteProvider{
		config:     config,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

func (p *RemoteProvider) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embeddingRequest{
		Model:      p.config.Model,
		Input:      text,
		Dimensions: p.config.Dimensions,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		p.config.BaseURL+"/embeddings",
		bytes.NewReader(body),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.config.APIKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed embeddingResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse embedding response: %w", err)
	}

	if parsed.Error != nil {
		return nil, fmt.Errorf("embedding API error: %s", parsed.Error.Message)
	}

	if len(parsed.Data) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}

	vector := parsed.Data[0].Embedding
	if p.config.Dimensions > 0 && len(vector) != p.config.Dimensions {
		return nil, fmt.Errorf("dimension mismatch: expected %d, got %d",
			p.config.Dimensions, len(vector))
	}

	return vector, nil
}

func (p *RemoteProvider) GetDimensions() int {
	return p.config.Dimensions
}

func (p *RemoteProvider) IsEnabled() bool {
	return p.config.APIKey != ""
}

func (p *RemoteProvider) GetName() string {
	return "remote:" + p.config.Model
}
