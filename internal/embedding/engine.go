// Package embedding generates vector embeddings for catalog entities and
// queries. Supports Ollama (local), OpenAI-compatible endpoints, Google
// GenAI (cloud), and a deterministic hash stub for tests and degraded mode.
package embedding

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/mmerah/ai-gamemaster/internal/config"
	"github.com/mmerah/ai-gamemaster/internal/domain"
	"github.com/mmerah/ai-gamemaster/internal/logging"
)

// =============================================================================
// ENGINE INTERFACE
// =============================================================================

// Engine generates unit-normalized vector embeddings for text.
type Engine interface {
	// Embed generates an embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the dimensionality of embeddings.
	Dimensions() int

	// Name returns the engine name.
	Name() string
}

// HealthChecker is an optional interface for engines backed by a network
// service. Engines that implement it can be probed before batch work starts.
type HealthChecker interface {
	// HealthCheck verifies the embedding service is reachable.
	// Returns nil if healthy, error otherwise.
	HealthCheck(ctx context.Context) error
}

// =============================================================================
// FACTORY
// =============================================================================

// NewEngine creates an embedding engine from configuration.
func NewEngine(cfg config.EmbeddingConfig) (Engine, error) {
	timer := logging.StartTimer(logging.CategoryEmbedding, "NewEngine")
	defer timer.Stop()

	logging.EmbeddingDebug("Engine config: provider=%s, model=%s, dimension=%d, endpoint=%s, batch=%d",
		cfg.Provider, cfg.Model, cfg.Dimension, cfg.Endpoint, cfg.BatchSize)

	var (
		engine Engine
		err    error
	)
	switch cfg.Provider {
	case "ollama":
		engine, err = newOllamaEngine(cfg)
	case "openai":
		engine, err = newOpenAIEngine(cfg)
	case "genai":
		engine, err = newGenAIEngine(cfg)
	case "hash":
		engine = NewHashEngine(cfg.Dimension)
	default:
		return nil, &domain.InvalidArgumentError{
			Arg:    "embedding.provider",
			Value:  cfg.Provider,
			Reason: fmt.Sprintf("must be one of %v", config.ValidEmbeddingProviders),
		}
	}
	if err != nil {
		logging.Get(logging.CategoryEmbedding).Error("Failed to create embedding engine: %v", err)
		return nil, err
	}

	logging.Embedding("Embedding engine ready: name=%s, dimensions=%d", engine.Name(), engine.Dimensions())
	return engine, nil
}

// NewEngineWithFallback creates the configured engine, probing its health
// when it supports that, and swaps in the deterministic hash stub when the
// engine cannot be built or its service is unreachable. Retrieval quality
// degrades under the stub but similarity ordering of identical inputs does
// not change.
func NewEngineWithFallback(cfg config.EmbeddingConfig) Engine {
	engine, err := NewEngine(cfg)
	if err != nil {
		logging.Get(logging.CategoryEmbedding).Warn(
			"Embedding provider %q unavailable (%v), falling back to hash stub", cfg.Provider, err)
		return NewHashEngine(cfg.Dimension)
	}

	if hc, ok := engine.(HealthChecker); ok {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := hc.HealthCheck(ctx); err != nil {
			logging.Get(logging.CategoryEmbedding).Warn(
				"Embedding provider %q failed health check (%v), falling back to hash stub", cfg.Provider, err)
			return NewHashEngine(cfg.Dimension)
		}
	}
	return engine
}

var (
	sharedMu sync.Mutex
	shared   Engine
)

// Shared returns the process-wide embedding engine, constructing it on first
// use. The engine is shared because some backends hold connection pools or
// model handles that are expensive to duplicate.
func Shared(cfg config.EmbeddingConfig) Engine {
	sharedMu.Lock()
	defer sharedMu.Unlock()
	if shared == nil {
		shared = NewCachingEngine(NewEngineWithFallback(cfg), 0)
	}
	return shared
}

// ResetShared clears the process-wide engine. Tests use this to force
// reconstruction under a different configuration.
func ResetShared() {
	sharedMu.Lock()
	defer sharedMu.Unlock()
	shared = nil
}

// =============================================================================
// VECTOR MATH
// =============================================================================

// Normalize scales vec to unit length in place and returns it. Zero vectors
// are returned unchanged.
func Normalize(vec []float32) []float32 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return vec
	}
	norm := math.Sqrt(sum)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec
}

// CosineSimilarity calculates the cosine similarity between two vectors.
// Returns a value between -1 and 1, where 1 means identical, 0 means
// orthogonal.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, &domain.InvalidArgumentError{
			Arg:    "vector",
			Value:  fmt.Sprintf("%d", len(b)),
			Reason: fmt.Sprintf("dimension mismatch: %d != %d", len(a), len(b)),
		}
	}

	var dot, aMag, bMag float64
	for i := 0; i < len(a); i++ {
		dot += float64(a[i]) * float64(b[i])
		aMag += float64(a[i]) * float64(a[i])
		bMag += float64(b[i]) * float64(b[i])
	}
	if aMag == 0 || bMag == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(aMag) * math.Sqrt(bMag)), nil
}
