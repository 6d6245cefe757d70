package kb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/mmerah/ai-gamemaster/internal/config"
	"github.com/mmerah/ai-gamemaster/internal/domain"
	"github.com/mmerah/ai-gamemaster/internal/store"
)

func TestMain(m *testing.M) {
	// opencensus (linked via the genai SDK's dependencies) starts a global
	// stats worker in init(); it is not stoppable from this repo's code.
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

// fakeEngine maps known texts to fixed vectors so similarity outcomes are
// scripted; everything else embeds to the query axis.
type fakeEngine struct {
	vecs map[string][]float32
	dim  int
}

func (f *fakeEngine) Embed(_ context.Context, text string) ([]float32, error) {
	if v, ok := f.vecs[text]; ok {
		return v, nil
	}
	v := make([]float32, f.dim)
	v[0] = 1
	return v, nil
}

func (f *fakeEngine) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := f.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (f *fakeEngine) Dimensions() int { return f.dim }
func (f *fakeEngine) Name() string    { return "fake" }

var (
	axisQuery = []float32{1, 0, 0, 0}
	// cos 0.70711 against the query axis: distance ~0.765, similarity ~0.566.
	vecMid = []float32{0.70711, 0.70711, 0, 0}
	// orthogonal: distance sqrt(2), similarity ~0.414.
	vecFar = []float32{0, 1, 0, 0}
)

type kbFixture struct {
	store   *store.ContentStore
	engine  *fakeEngine
	manager *Manager
}

func newFixture(t *testing.T) *kbFixture {
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

	engine := &fakeEngine{dim: 4, vecs: map[string][]float32{}}
	manager := NewManager(s, engine, NewCampaignStore(engine), config.DefaultConfig().RAG)
	return &kbFixture{store: s, engine: engine, manager: manager}
}

func (f *kbFixture) addSpell(t *testing.T, idx, name string, level int, vec []float32) {
	t.Helper()
	ctx := context.Background()
	spell := &domain.Spell{
		BaseEntity: domain.BaseEntity{
			Index: idx, Name: name, URL: "/api/spells/" + idx, ContentPackID: "srd",
		},
		Level:  level,
		School: &domain.APIReference{Index: "evocation", Name: "Evocation", URL: "/api/magic-schools/evocation"},
	}
	require.NoError(t, f.store.UpsertEntity(ctx, domain.KindSpells, spell))
	require.NoError(t, f.store.UpdateEmbedding(ctx, domain.KindSpells, idx, "srd", vec))
}

func (f *kbFixture) addMonster(t *testing.T, idx, name string, cr float64, vec []float32) {
	t.Helper()
	ctx := context.Background()
	monster := &domain.Monster{
		BaseEntity: domain.BaseEntity{
			Index: idx, Name: name, URL: "/api/monsters/" + idx, ContentPackID: "srd",
		},
		Type: "dragon", Size: "Huge", HitPoints: 256, ChallengeRating: cr,
	}
	require.NoError(t, f.store.UpsertEntity(ctx, domain.KindMonsters, monster))
	require.NoError(t, f.store.UpdateEmbedding(ctx, domain.KindMonsters, idx, "srd", vec))
}

func TestSearchAllSourcesByDefault(t *testing.T) {
	f := newFixture(t)
	res, err := f.manager.Search(context.Background(), "anything", nil, 3, 0.2)
	require.NoError(t, err)
	assert.Equal(t, 25, res.TotalQueries, "empty kbTypes must fan out to every catalog table")
	assert.GreaterOrEqual(t, res.ElapsedMS, 0.0)
}

func TestSearchRoutesLogicalTypes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.manager.Search(ctx, "fireball", []string{"spells"}, 3, 0.2)
	require.NoError(t, err)
	assert.Equal(t, 1, res.TotalQueries)

	res, err = f.manager.Search(ctx, "strength", []string{"mechanics"}, 3, 0.2)
	require.NoError(t, err)
	assert.Equal(t, 7, res.TotalQueries)

	res, err = f.manager.Search(ctx, "wizard", []string{"character_options", "equipment"}, 3, 0.2)
	require.NoError(t, err)
	assert.Equal(t, 14, res.TotalQueries)
}

func TestSearchScoresAndOrders(t *testing.T) {
	f := newFixture(t)
	f.addSpell(t, "fireball", "Fireball", 3, axisQuery)
	f.addSpell(t, "shield", "Shield", 1, vecMid)
	f.addMonster(t, "adult-red-dragon", "Adult Red Dragon", 17, vecFar)

	res, err := f.manager.Search(context.Background(), "a ball of fire", []string{"spells", "monsters"}, 5, 0.2)
	require.NoError(t, err)
	require.Len(t, res.Items, 3)

	assert.Equal(t, "spells", res.Items[0].Source)
	assert.Equal(t, "fireball", res.Items[0].Metadata["index"])
	assert.InDelta(t, 1.0, res.Items[0].RelevanceScore, 1e-6, "zero distance maps to similarity 1")
	assert.InDelta(t, 0.566, res.Items[1].RelevanceScore, 0.01)
	assert.InDelta(t, 0.414, res.Items[2].RelevanceScore, 0.01)
	assert.Contains(t, res.Items[0].Content, "Spell: Fireball | Level 3")
}

func TestSearchThresholdFilters(t *testing.T) {
	f := newFixture(t)
	f.addSpell(t, "fireball", "Fireball", 3, axisQuery)
	f.addSpell(t, "shield", "Shield", 1, vecFar)

	res, err := f.manager.Search(context.Background(), "fire", []string{"spells"}, 5, 0.5)
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "fireball", res.Items[0].Metadata["index"])
}

func TestSearchGlobalCap(t *testing.T) {
	f := newFixture(t)
	for _, idx := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		f.addSpell(t, idx, "Spell "+idx, 1, axisQuery)
	}

	res, err := f.manager.Search(context.Background(), "spell", []string{"spells"}, 10, 0.1)
	require.NoError(t, err)
	assert.Len(t, res.Items, 5, "global cap holds results to MaxTotalResults")
}

func TestSearchDedupesIdenticalContent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.UpsertPack(ctx, domain.ContentPack{
		ID: "homebrew", Name: "Homebrew", Version: "1.0", IsActive: true,
	}))

	f.addSpell(t, "fireball", "Fireball", 3, axisQuery)
	dup := &domain.Spell{
		BaseEntity: domain.BaseEntity{
			Index: "fireball", Name: "Fireball", URL: "/api/spells/fireball", ContentPackID: "homebrew",
		},
		Level:  3,
		School: &domain.APIReference{Index: "evocation", Name: "Evocation", URL: "/api/magic-schools/evocation"},
	}
	require.NoError(t, f.store.UpsertEntity(ctx, domain.KindSpells, dup))
	require.NoError(t, f.store.UpdateEmbedding(ctx, domain.KindSpells, "fireball", "homebrew", axisQuery))

	res, err := f.manager.Search(ctx, "fire", []string{"spells"}, 5, 0.2)
	require.NoError(t, err)
	assert.Len(t, res.Items, 1, "identical content from two packs dedupes to one item")
}

func TestSearchSkipsUnknownType(t *testing.T) {
	f := newFixture(t)
	res, err := f.manager.Search(context.Background(), "anything", []string{"bogus"}, 3, 0.2)
	require.NoError(t, err)
	assert.Equal(t, 0, res.TotalQueries)
	assert.Empty(t, res.Items)
}

func TestSearchNoActivePacksReturnsEmpty(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addSpell(t, "fireball", "Fireball", 3, axisQuery)
	require.NoError(t, f.store.SetPackActive(ctx, "srd", false))

	res, err := f.manager.Search(ctx, "fire", []string{"spells"}, 5, 0.2)
	require.NoError(t, err)
	assert.Equal(t, 1, res.TotalQueries, "the source still counts as queried")
	assert.Empty(t, res.Items)
}

func TestSearchMemoryCollections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.engine.vecs["The Amulet of Vor was lost in the sunken crypt."] = axisQuery
	f.engine.vecs["Farmers in Barovia grow turnips."] = vecFar
	require.NoError(t, f.manager.Campaigns().ActivateCampaign(ctx, "ravenloft", []LoreDocument{
		{Key: "amulet", Content: "The Amulet of Vor was lost in the sunken crypt."},
		{Key: "turnips", Content: "Farmers in Barovia grow turnips."},
	}))

	res, err := f.manager.Search(ctx, "where is the amulet", []string{"lore_ravenloft"}, 3, 0.5)
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "lore_ravenloft", res.Items[0].Source)
	assert.Contains(t, res.Items[0].Content, "Amulet of Vor")
	assert.Equal(t, 1, res.TotalQueries)
}

func TestSearchIncludesCampaignsInDefaultFanout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.manager.Campaigns().ActivateCampaign(ctx, "ravenloft", []LoreDocument{
		{Key: "k", Content: "doc"},
	}))

	res, err := f.manager.Search(ctx, "anything", nil, 3, 0.2)
	require.NoError(t, err)
	assert.Equal(t, 27, res.TotalQueries, "25 tables + lore + events for the active campaign")
}

func TestSearchPartialFailureStillCounts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// A query vector of the wrong dimension fails every table search but
	// must not fail the overall call.
	f.engine.vecs["bad dims"] = []float32{1, 0}
	require.NoError(t, f.manager.Campaigns().ActivateCampaign(ctx, "c1", []LoreDocument{
		{Key: "k", Content: "doc"},
	}))

	res, err := f.manager.Search(ctx, "bad dims", []string{"spells", "lore_c1"}, 3, 0.0)
	require.NoError(t, err)
	assert.Equal(t, 2, res.TotalQueries)
	assert.Empty(t, res.Items, "mismatched vectors cannot score against any document")
}
