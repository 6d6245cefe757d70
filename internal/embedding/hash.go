package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"

	"github.com/mmerah/ai-gamemaster/internal/logging"
)

// =============================================================================
// DETERMINISTIC HASH STUB
// =============================================================================

// HashEngine derives embeddings from a SHA-256 hash of the input. The vectors
// carry no semantic signal, but identical inputs always produce identical
// unit-norm vectors, so ranking of exact-duplicate content stays stable. Used
// in tests and as the degraded-mode fallback when no real provider is
// reachable.
type HashEngine struct {
	dim int
}

// NewHashEngine creates a hash stub of the given dimension (default 384).
func NewHashEngine(dim int) *HashEngine {
	if dim <= 0 {
		dim = 384
	}
	logging.Get(logging.CategoryEmbedding).Warn(
		"Hash embedding stub active (dim=%d): vectors are deterministic but carry no semantic signal", dim)
	return &HashEngine{dim: dim}
}

// Embed derives a deterministic unit-norm vector from text.
func (e *HashEngine) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, e.dim)
	seed := sha256.Sum256([]byte(text))
	block := seed[:]

	i := 0
	for i < e.dim {
		for j := 0; j+4 <= len(block) && i < e.dim; j += 4 {
			bits := binary.LittleEndian.Uint32(block[j : j+4])
			vec[i] = float32(int32(bits)) / float32(math.MaxInt32)
			i++
		}
		next := sha256.Sum256(block)
		block = next[:]
	}
	return Normalize(vec), nil
}

// EmbedBatch embeds each text independently.
func (e *HashEngine) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

// Dimensions returns the configured dimensionality.
func (e *HashEngine) Dimensions() int { return e.dim }

// Name returns the engine name.
func (e *HashEngine) Name() string { return "hash" }
