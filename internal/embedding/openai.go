package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mmerah/ai-gamemaster/internal/config"
)

// =============================================================================
// OPENAI-COMPATIBLE EMBEDDING ENGINE
// =============================================================================

// openaiEngine generates embeddings through an OpenAI-compatible
// /v1/embeddings endpoint. Works against api.openai.com and local servers
// (llama.cpp, vLLM, LM Studio) that speak the same protocol.
type openaiEngine struct {
	baseURL string
	apiKey  string
	model   string
	dim     int
	client  *http.Client
}

func newOpenAIEngine(cfg config.EmbeddingConfig) (*openaiEngine, error) {
	baseURL := strings.TrimSuffix(cfg.Endpoint, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("openai embedding model is required")
	}
	timeout, err := time.ParseDuration(cfg.Timeout)
	if err != nil || timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &openaiEngine{
		baseURL: baseURL,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		dim:     cfg.Dimension,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

// Embed generates a single embedding.
func (e *openaiEngine) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch generates embeddings for multiple texts in a single API call.
func (e *openaiEngine) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	reqBody, err := json.Marshal(openaiEmbedRequest{Input: texts, Model: e.model})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/embeddings", bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openai request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var result openaiEmbedResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if result.Error != nil {
		return nil, fmt.Errorf("openai error: %s: %s", result.Error.Type, result.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("openai returned status %d: %s", resp.StatusCode, string(body))
	}

	// Responses carry an index per item; reassemble in input order.
	vecs := make([][]float32, len(texts))
	for _, d := range result.Data {
		if d.Index < 0 || d.Index >= len(texts) {
			return nil, fmt.Errorf("invalid index %d in embeddings response", d.Index)
		}
		if e.dim > 0 && len(d.Embedding) != e.dim {
			return nil, fmt.Errorf("openai model %s returned %d dimensions, expected %d",
				e.model, len(d.Embedding), e.dim)
		}
		vecs[d.Index] = Normalize(d.Embedding)
	}
	for i, v := range vecs {
		if v == nil {
			return nil, fmt.Errorf("embeddings response missing item %d", i)
		}
	}
	return vecs, nil
}

// Dimensions returns the configured dimensionality.
func (e *openaiEngine) Dimensions() int { return e.dim }

// Name returns the engine name.
func (e *openaiEngine) Name() string {
	return fmt.Sprintf("openai:%s", e.model)
}

// HealthCheck verifies the endpoint responds to a models listing.
func (e *openaiEngine) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"/models", nil)
	if err != nil {
		return err
	}
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("openai endpoint unreachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 500 {
		return fmt.Errorf("openai health check returned status %d", resp.StatusCode)
	}
	return nil
}

// =============================================================================
// OPENAI API TYPES
// =============================================================================

type openaiEmbedRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type openaiEmbedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Usage struct {
		PromptTokens int `json:"prompt_tokens"`
		TotalTokens  int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}
