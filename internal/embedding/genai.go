package embedding

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/mmerah/ai-gamemaster/internal/config"
)

// =============================================================================
// GOOGLE GENAI EMBEDDING ENGINE
// =============================================================================

// genaiEngine generates embeddings using Google's Gemini API.
type genaiEngine struct {
	client *genai.Client
	model  string
	dim    int
}

func newGenAIEngine(cfg config.EmbeddingConfig) (*genaiEngine, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("genai API key is required (set GEMINI_API_KEY)")
	}
	model := cfg.Model
	if model == "" {
		model = "gemini-embedding-001"
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &genaiEngine{
		client: client,
		model:  model,
		dim:    cfg.Dimension,
	}, nil
}

// Embed generates an embedding for a single text.
func (e *genaiEngine) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch generates embeddings for multiple texts. GenAI has native batch
// support.
func (e *genaiEngine) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}

	result, err := e.client.Models.EmbedContent(ctx,
		e.model,
		contents,
		&genai.EmbedContentConfig{
			TaskType: "SEMANTIC_SIMILARITY",
		},
	)
	if err != nil {
		return nil, fmt.Errorf("genai embed failed: %w", err)
	}
	if len(result.Embeddings) != len(texts) {
		return nil, fmt.Errorf("genai returned %d embeddings for %d texts", len(result.Embeddings), len(texts))
	}

	embeddings := make([][]float32, len(result.Embeddings))
	for i, emb := range result.Embeddings {
		if e.dim > 0 && len(emb.Values) != e.dim {
			return nil, fmt.Errorf("genai model %s returned %d dimensions, expected %d",
				e.model, len(emb.Values), e.dim)
		}
		embeddings[i] = Normalize(emb.Values)
	}
	return embeddings, nil
}

// Dimensions returns the configured dimensionality.
func (e *genaiEngine) Dimensions() int { return e.dim }

// Name returns the engine name.
func (e *genaiEngine) Name() string {
	return fmt.Sprintf("genai:%s", e.model)
}
