package ingest

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmerah/ai-gamemaster/internal/config"
	"github.com/mmerah/ai-gamemaster/internal/domain"
	"github.com/mmerah/ai-gamemaster/internal/repo"
	"github.com/mmerah/ai-gamemaster/internal/store"
)

const spellsJSON = `[
  {
    "index": "fireball",
    "name": "Fireball",
    "url": "/api/spells/fireball",
    "desc": ["A bright streak flashes from your pointing finger to a point you choose and blossoms with a low roar into an explosion of flame."],
    "higher_level": ["When you cast this spell using a spell slot of 4th level or higher, the damage increases by 1d6 for each slot level above 3rd."],
    "range": "150 feet",
    "components": ["V", "S", "M"],
    "material": "A tiny ball of bat guano and sulfur.",
    "duration": "Instantaneous",
    "casting_time": "1 action",
    "level": 3,
    "damage": {
      "damage_type": {"index": "fire", "name": "Fire", "url": "/api/damage-types/fire"},
      "damage_at_slot_level": {"3": "8d6", "4": "9d6"}
    },
    "dc": {
      "dc_type": {"index": "dex", "name": "DEX", "url": "/api/ability-scores/dex"},
      "dc_success": "half"
    },
    "area_of_effect": {"type": "sphere", "size": 20},
    "school": {"index": "evocation", "name": "Evocation", "url": "/api/magic-schools/evocation"},
    "classes": [
      {"index": "sorcerer", "name": "Sorcerer", "url": "/api/classes/sorcerer"},
      {"index": "wizard", "name": "Wizard", "url": "/api/classes/wizard"}
    ]
  },
  {
    "index": "magic-missile",
    "name": "Magic Missile",
    "url": "/api/spells/magic-missile",
    "desc": ["You create three glowing darts of magical force."],
    "range": "120 feet",
    "components": ["V", "S"],
    "duration": "Instantaneous",
    "casting_time": "1 action",
    "level": 1,
    "school": {"index": "evocation", "name": "Evocation", "url": "/api/magic-schools/evocation"}
  }
]`

const monstersJSON = `[
  {
    "index": "goblin",
    "name": "Goblin",
    "url": "/api/monsters/goblin",
    "size": "Small",
    "type": "humanoid",
    "alignment": "neutral evil",
    "armor_class": [{"type": "armor", "value": 15}],
    "hit_points": 7,
    "hit_dice": "2d6",
    "challenge_rating": 0.25,
    "xp": 50
  }
]`

const subclassesJSON = `[
  {
    "index": "evocation",
    "name": "Evoker",
    "url": "/api/subclasses/evocation",
    "class": {"index": "wizard", "name": "Wizard", "url": "/api/classes/wizard"},
    "subclass_flavor": "Arcane Tradition",
    "desc": ["You focus your study on magic that creates powerful elemental effects."]
  }
]`

func newIngestStore(t *testing.T) *store.ContentStore {
	t.Helper()
	s, err := store.Open(config.StoreConfig{
		Path:            ":memory:",
		PoolSize:        1,
		BusyTimeoutMS:   5000,
		VectorExtension: true,
	}, 4)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func writeFixture(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func srdPack() domain.ContentPack {
	return domain.ContentPack{
		ID: "srd", Name: "Systems Reference Document", Version: "5.1", IsActive: true,
	}
}

func TestMigrateWritesRowsAndRecordsHistory(t *testing.T) {
	s := newIngestStore(t)
	dir := t.TempDir()
	writeFixture(t, dir, "spells.json", spellsJSON)
	writeFixture(t, dir, "monsters.json", monstersJSON)

	report, err := NewMigrator(s).Run(context.Background(), dir, srdPack())
	require.NoError(t, err)

	assert.Equal(t, "srd", report.PackID)
	assert.Equal(t, 2, report.Files)
	assert.Equal(t, 3, report.Written)
	assert.Equal(t, 0, report.Skipped)
	assert.Equal(t, KindCount{Read: 2, Written: 2}, report.ByKind[domain.KindSpells])
	assert.Equal(t, KindCount{Read: 1, Written: 1}, report.ByKind[domain.KindMonsters])

	ctx := context.Background()
	stats, packs, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, stats[domain.KindSpells].Rows)
	assert.EqualValues(t, 1, stats[domain.KindMonsters].Rows)
	assert.EqualValues(t, 0, stats[domain.KindSpells].Embedded)
	assert.EqualValues(t, 1, packs)

	pack, err := s.GetPack(ctx, "srd")
	require.NoError(t, err)
	assert.True(t, pack.IsActive)
	assert.Equal(t, "5.1", pack.Version)

	history, err := s.MigrationHistory(ctx, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, dir, history[0].Source)
	assert.Equal(t, "srd", history[0].PackID)
	assert.Equal(t, 3, history[0].Items)
	assert.Contains(t, history[0].Details, "written=3")
}

func TestMigrateSkipsInvalidRecords(t *testing.T) {
	s := newIngestStore(t)
	dir := t.TempDir()
	writeFixture(t, dir, "spells.json", `[
		{
			"index": "shield",
			"name": "Shield",
			"url": "/api/spells/shield",
			"level": 1
		},
		"not an object",
		{
			"index": "overleveled",
			"name": "Overleveled",
			"url": "/api/spells/overleveled",
			"level": 12
		}
	]`)

	report, err := NewMigrator(s).Run(context.Background(), dir, srdPack())
	require.NoError(t, err, "record-level failures must not fail the run")

	assert.Equal(t, KindCount{Read: 3, Written: 1, Skipped: 2}, report.ByKind[domain.KindSpells])

	stats, _, err := s.Stats(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats[domain.KindSpells].Rows)
}

// Stored documents must reserialize to the ingested JSON: the only deltas
// allowed are the pack-id column (stored outside the document) and documented
// field renames carried by struct tags.
func TestMigrateRoundTripPreservesDocuments(t *testing.T) {
	s := newIngestStore(t)
	dir := t.TempDir()
	writeFixture(t, dir, "spells.json", spellsJSON)
	writeFixture(t, dir, "subclasses.json", subclassesJSON)

	_, err := NewMigrator(s).Run(context.Background(), dir, srdPack())
	require.NoError(t, err)

	var spells []json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(spellsJSON), &spells))
	assertRoundTrip(t, s, domain.KindSpells, "fireball", spells[0])
	assertRoundTrip(t, s, domain.KindSpells, "magic-missile", spells[1])

	var subclasses []json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(subclassesJSON), &subclasses))
	assertRoundTrip(t, s, domain.KindSubclasses, "evocation", subclasses[0])

	// The JSON "class" key binds to the renamed Go field.
	r, err := repo.NewKindRepository(s, domain.KindSubclasses)
	require.NoError(t, err)
	e, err := r.GetByIndex(context.Background(), "evocation")
	require.NoError(t, err)
	sc, ok := e.(*domain.Subclass)
	require.True(t, ok)
	require.NotNil(t, sc.ClassRef)
	assert.Equal(t, "wizard", sc.ClassRef.Index)
}

func assertRoundTrip(t *testing.T, s *store.ContentStore, kind, idx string, input json.RawMessage) {
	t.Helper()
	r, err := repo.NewKindRepository(s, kind)
	require.NoError(t, err)
	e, err := r.GetByIndex(context.Background(), idx)
	require.NoError(t, err)
	out, err := json.Marshal(e)
	require.NoError(t, err)

	var want, got map[string]any
	require.NoError(t, json.Unmarshal(input, &want))
	require.NoError(t, json.Unmarshal(out, &got))
	delete(got, "content_pack_id")
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("%s/%s round-trip mismatch (-input +stored):\n%s", kind, idx, diff)
	}
}

func TestMigrateRerunIsIdempotent(t *testing.T) {
	s := newIngestStore(t)
	dir := t.TempDir()
	writeFixture(t, dir, "spells.json", spellsJSON)

	ctx := context.Background()
	m := NewMigrator(s)
	first, err := m.Run(ctx, dir, srdPack())
	require.NoError(t, err)
	second, err := m.Run(ctx, dir, srdPack())
	require.NoError(t, err)

	assert.Equal(t, first.Written, second.Written)

	stats, _, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, stats[domain.KindSpells].Rows, "rerun must not duplicate rows")

	history, err := s.MigrationHistory(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, history, 2, "each run records its own provenance")
}

func TestMigrateCorruptFileFails(t *testing.T) {
	s := newIngestStore(t)
	dir := t.TempDir()
	writeFixture(t, dir, "spells.json", `{not json`)

	_, err := NewMigrator(s).Run(context.Background(), dir, srdPack())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing")
}

func TestMigrateMissingDirectoryFails(t *testing.T) {
	s := newIngestStore(t)
	_, err := NewMigrator(s).Run(context.Background(),
		filepath.Join(t.TempDir(), "does-not-exist"), srdPack())
	require.Error(t, err)
}

func TestMigrateInvalidPackFails(t *testing.T) {
	s := newIngestStore(t)
	_, err := NewMigrator(s).Run(context.Background(), t.TempDir(),
		domain.ContentPack{ID: "srd"}) // missing version
	require.Error(t, err)
	var vErr *domain.ValidationError
	require.ErrorAs(t, err, &vErr)
}

func TestMigrateIgnoresUnknownJSONFiles(t *testing.T) {
	s := newIngestStore(t)
	dir := t.TempDir()
	writeFixture(t, dir, "spellz.json", spellsJSON)
	writeFixture(t, dir, "README.md", "# not json at all")

	report, err := NewMigrator(s).Run(context.Background(), dir, srdPack())
	require.NoError(t, err)
	assert.Equal(t, 0, report.Files)
	assert.Equal(t, 0, report.Written)
}
