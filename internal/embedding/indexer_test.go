package embedding

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmerah/ai-gamemaster/internal/config"
	"github.com/mmerah/ai-gamemaster/internal/domain"
	"github.com/mmerah/ai-gamemaster/internal/store"
)

func newIndexerStore(t *testing.T) *store.ContentStore {
	t.Helper()
	s, err := store.Open(config.StoreConfig{
		Path:            ":memory:",
		PoolSize:        1,
		BusyTimeoutMS:   5000,
		VectorExtension: true,
	}, 4)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	ctx := context.Background()
	require.NoError(t, s.UpsertPack(ctx, domain.ContentPack{
		ID: "srd", Name: "SRD", Version: "5.1", IsActive: true,
	}))
	return s
}

func seedSpell(t *testing.T, s *store.ContentStore, idx string, level int) {
	t.Helper()
	spell := &domain.Spell{
		BaseEntity: domain.BaseEntity{
			Index:         idx,
			Name:          strings.ToUpper(idx[:1]) + idx[1:],
			URL:           "/api/spells/" + idx,
			ContentPackID: "srd",
		},
		Level:  level,
		School: &domain.APIReference{Index: "evocation", Name: "Evocation", URL: "/api/magic-schools/evocation"},
	}
	require.NoError(t, s.UpsertEntity(context.Background(), domain.KindSpells, spell))
}

func TestIndexerEmbedsMissingRows(t *testing.T) {
	s := newIndexerStore(t)
	ctx := context.Background()

	seedSpell(t, s, "fireball", 3)
	seedSpell(t, s, "shield", 1)
	require.NoError(t, s.UpsertEntity(ctx, domain.KindMonsters, &domain.Monster{
		BaseEntity: domain.BaseEntity{
			Index: "goblin", Name: "Goblin", URL: "/api/monsters/goblin", ContentPackID: "srd",
		},
		Type: "humanoid", Size: "Small", HitPoints: 7, ChallengeRating: 0.25,
	}))

	var texts []string
	engine := &mockEngine{
		EmbedBatchFunc: func(ctx context.Context, in []string) ([][]float32, error) {
			texts = append(texts, in...)
			out := make([][]float32, len(in))
			for i := range in {
				out[i] = []float32{1, 0, 0, 0}
			}
			return out, nil
		},
	}

	counts, err := NewIndexer(s, engine, 32).Run(ctx, false)
	require.NoError(t, err)

	assert.Equal(t, 2, counts[domain.KindSpells])
	assert.Equal(t, 1, counts[domain.KindMonsters])
	assert.Equal(t, 0, counts[domain.KindClasses])

	stats, _, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats[domain.KindSpells].Embedded)

	// The indexing text is the kind-specific view, not raw JSON.
	joined := strings.Join(texts, "\n")
	assert.Contains(t, joined, "Spell: Fireball | Level 3")
	assert.Contains(t, joined, "Monster: Goblin | Type: humanoid")
}

func TestIndexerIsIdempotent(t *testing.T) {
	s := newIndexerStore(t)
	ctx := context.Background()
	seedSpell(t, s, "fireball", 3)

	engine := &mockEngine{}
	ix := NewIndexer(s, engine, 32)

	counts, err := ix.Run(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[domain.KindSpells])

	counts, err = ix.Run(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 0, counts[domain.KindSpells], "second run must skip embedded rows")
}

func TestIndexerForceReembedsEverything(t *testing.T) {
	s := newIndexerStore(t)
	ctx := context.Background()
	seedSpell(t, s, "fireball", 3)

	var batchCalls int
	engine := &mockEngine{
		EmbedBatchFunc: func(ctx context.Context, in []string) ([][]float32, error) {
			batchCalls++
			out := make([][]float32, len(in))
			for i := range in {
				out[i] = []float32{0, 1, 0, 0}
			}
			return out, nil
		},
	}
	ix := NewIndexer(s, engine, 32)

	_, err := ix.Run(ctx, false)
	require.NoError(t, err)
	counts, err := ix.Run(ctx, true)
	require.NoError(t, err)

	assert.Equal(t, 1, counts[domain.KindSpells])
	assert.Equal(t, 2, batchCalls)
}

func TestIndexerBatchesRequests(t *testing.T) {
	s := newIndexerStore(t)
	ctx := context.Background()
	for _, idx := range []string{"a", "b", "c", "d", "e"} {
		seedSpell(t, s, idx, 1)
	}

	var sizes []int
	engine := &mockEngine{
		EmbedBatchFunc: func(ctx context.Context, in []string) ([][]float32, error) {
			sizes = append(sizes, len(in))
			out := make([][]float32, len(in))
			for i := range in {
				out[i] = []float32{1, 0, 0, 0}
			}
			return out, nil
		},
	}

	_, err := NewIndexer(s, engine, 2).Run(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2, 1}, sizes)
}

func TestIndexerRejectsWrongEngineDimension(t *testing.T) {
	s := newIndexerStore(t)
	ctx := context.Background()
	seedSpell(t, s, "fireball", 3)

	engine := &mockEngine{
		EmbedBatchFunc: func(ctx context.Context, in []string) ([][]float32, error) {
			out := make([][]float32, len(in))
			for i := range in {
				out[i] = []float32{1, 0} // store expects 4
			}
			return out, nil
		},
	}

	_, err := NewIndexer(s, engine, 32).Run(ctx, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dimensions")
}
