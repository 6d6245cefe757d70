package embedding

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/mmerah/ai-gamemaster/internal/logging"
)

// =============================================================================
// CACHING WRAPPER
// =============================================================================

// defaultCacheCapacity bounds the embedding cache. Query texts repeat heavily
// within a session (the planner emits near-identical queries per action), so
// a few thousand entries covers the working set.
const defaultCacheCapacity = 2048

// CachingEngine wraps an Engine with an in-memory cache and request
// coalescing: concurrent embeds of the same text hit the backend once.
type CachingEngine struct {
	inner Engine
	cap   int

	mu    sync.Mutex
	cache map[string][]float32
	order []string // insertion order, evicted front-first

	group singleflight.Group
}

// NewCachingEngine wraps inner with a cache of the given capacity
// (default 2048).
func NewCachingEngine(inner Engine, capacity int) *CachingEngine {
	if capacity <= 0 {
		capacity = defaultCacheCapacity
	}
	return &CachingEngine{
		inner: inner,
		cap:   capacity,
		cache: make(map[string][]float32),
	}
}

// Embed returns a cached vector when one exists, otherwise embeds through
// the backend. Concurrent calls for the same text coalesce into one backend
// request.
func (c *CachingEngine) Embed(ctx context.Context, text string) ([]float32, error) {
	if vec, ok := c.get(text); ok {
		return vec, nil
	}

	v, err, _ := c.group.Do(text, func() (any, error) {
		// A racing caller may have populated the cache while this call
		// waited on the flight group.
		if vec, ok := c.get(text); ok {
			return vec, nil
		}
		vec, err := c.inner.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		c.put(text, vec)
		return vec, nil
	})
	if err != nil {
		return nil, err
	}
	return cloneVector(v.([]float32)), nil
}

// EmbedBatch serves cache hits locally and embeds only the misses through
// the backend, preserving input order.
func (c *CachingEngine) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))

	var missTexts []string
	var missAt []int
	for i, text := range texts {
		if vec, ok := c.get(text); ok {
			out[i] = vec
			continue
		}
		missTexts = append(missTexts, text)
		missAt = append(missAt, i)
	}
	if len(missTexts) == 0 {
		return out, nil
	}

	logging.EmbeddingDebug("EmbedBatch: %d/%d texts missed cache", len(missTexts), len(texts))
	vecs, err := c.inner.EmbedBatch(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	for i, vec := range vecs {
		c.put(missTexts[i], vec)
		out[missAt[i]] = cloneVector(vec)
	}
	return out, nil
}

// Dimensions returns the backend dimensionality.
func (c *CachingEngine) Dimensions() int { return c.inner.Dimensions() }

// Name returns the backend engine name.
func (c *CachingEngine) Name() string { return c.inner.Name() }

// HealthCheck delegates to the backend when it supports probing.
func (c *CachingEngine) HealthCheck(ctx context.Context) error {
	if hc, ok := c.inner.(HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}

// CacheSize returns the number of cached vectors.
func (c *CachingEngine) CacheSize() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.cache)
}

func (c *CachingEngine) get(text string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	vec, ok := c.cache[text]
	if !ok {
		return nil, false
	}
	return cloneVector(vec), true
}

func (c *CachingEngine) put(text string, vec []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.cache[text]; exists {
		return
	}
	for len(c.cache) >= c.cap && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.cache, oldest)
	}
	c.cache[text] = cloneVector(vec)
	c.order = append(c.order, text)
}

// cloneVector copies a vector so cached entries never alias caller slices.
func cloneVector(vec []float32) []float32 {
	out := make([]float32, len(vec))
	copy(out, vec)
	return out
}
