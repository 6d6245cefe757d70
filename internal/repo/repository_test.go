package repo

import (
	"context"
	"errors"
	"testing"

	"github.com/mmerah/ai-gamemaster/internal/config"
	"github.com/mmerah/ai-gamemaster/internal/domain"
	"github.com/mmerah/ai-gamemaster/internal/store"
)

func newTestHub(t *testing.T) (*Hub, *store.ContentStore) {
	t.Helper()
	s, err := store.Open(config.StoreConfig{
		Path:          ":memory:",
		PoolSize:      1,
		BusyTimeoutMS: 5000,
	}, 4)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	seedCatalog(t, s)
	return NewHub(s), s
}

func seedCatalog(t *testing.T, s *store.ContentStore) {
	t.Helper()
	ctx := context.Background()

	packs := []domain.ContentPack{
		{ID: "srd", Name: "SRD", Version: "5.1", IsActive: true},
		{ID: "homebrew", Name: "Homebrew", Version: "0.1", IsActive: true},
		{ID: "legacy", Name: "Legacy", Version: "0.9", IsActive: false},
	}
	for _, p := range packs {
		if err := s.UpsertPack(ctx, p); err != nil {
			t.Fatalf("UpsertPack(%s): %v", p.ID, err)
		}
	}

	base := func(idx, name, kindSeg, pack string) domain.BaseEntity {
		return domain.BaseEntity{
			Index: idx, Name: name, URL: "/api/" + kindSeg + "/" + idx, ContentPackID: pack,
		}
	}

	spells := []*domain.Spell{
		{BaseEntity: base("fireball", "Fireball", "spells", "srd"), Level: 3,
			School:  &domain.APIReference{Index: "evocation", Name: "Evocation", URL: "/api/magic-schools/evocation"},
			Classes: []domain.APIReference{{Index: "wizard", Name: "Wizard", URL: "/api/classes/wizard"}}},
		{BaseEntity: base("fireball", "Custom Fireball", "spells", "homebrew"), Level: 3,
			School: &domain.APIReference{Index: "evocation", Name: "Evocation", URL: "/api/magic-schools/evocation"}},
		{BaseEntity: base("shield", "Shield", "spells", "srd"), Level: 1,
			School: &domain.APIReference{Index: "abjuration", Name: "Abjuration", URL: "/api/magic-schools/abjuration"}},
		{BaseEntity: base("identify", "Identify", "spells", "srd"), Level: 1, Ritual: true,
			School: &domain.APIReference{Index: "divination", Name: "Divination", URL: "/api/magic-schools/divination"}},
		{BaseEntity: base("lost-incantation", "Lost Incantation", "spells", "legacy"), Level: 2},
	}
	for _, sp := range spells {
		if err := s.UpsertEntity(ctx, domain.KindSpells, sp); err != nil {
			t.Fatalf("seed spell %s: %v", sp.Index, err)
		}
	}

	classes := []*domain.Class{
		{BaseEntity: base("wizard", "Wizard", "classes", "srd"), HitDie: 6,
			Spellcasting: &domain.SpellcastingInfo{Level: 1}},
		{BaseEntity: base("fighter", "Fighter", "classes", "srd"), HitDie: 10},
	}
	for _, c := range classes {
		if err := s.UpsertEntity(ctx, domain.KindClasses, c); err != nil {
			t.Fatalf("seed class %s: %v", c.Index, err)
		}
	}

	monsters := []*domain.Monster{
		{BaseEntity: base("goblin", "Goblin", "monsters", "srd"),
			ChallengeRating: 0.25, Type: "humanoid", Size: "Small", HitPoints: 7},
		{BaseEntity: base("adult-red-dragon", "Adult Red Dragon", "monsters", "srd"),
			ChallengeRating: 17, Type: "dragon", Size: "Huge", HitPoints: 256},
	}
	for _, m := range monsters {
		if err := s.UpsertEntity(ctx, domain.KindMonsters, m); err != nil {
			t.Fatalf("seed monster %s: %v", m.Index, err)
		}
	}

	equipment := []*domain.Equipment{
		{BaseEntity: base("longsword", "Longsword", "equipment", "srd"),
			EquipmentCategory: &domain.APIReference{Index: "weapon", Name: "Weapon", URL: "/api/equipment-categories/weapon"},
			WeaponCategory:    "Martial", WeaponRange: "Melee"},
		{BaseEntity: base("rope-hempen", "Rope, hempen (50 feet)", "equipment", "srd"),
			EquipmentCategory: &domain.APIReference{Index: "adventuring-gear", Name: "Adventuring Gear", URL: "/api/equipment-categories/adventuring-gear"}},
	}
	for _, e := range equipment {
		if err := s.UpsertEntity(ctx, domain.KindEquipment, e); err != nil {
			t.Fatalf("seed equipment %s: %v", e.Index, err)
		}
	}

	schools := []*domain.MagicSchool{
		{BaseEntity: base("evocation", "Evocation", "magic-schools", "srd")},
		{BaseEntity: base("abjuration", "Abjuration", "magic-schools", "srd")},
		{BaseEntity: base("divination", "Divination", "magic-schools", "srd")},
	}
	for _, m := range schools {
		if err := s.UpsertEntity(ctx, domain.KindMagicSchools, m); err != nil {
			t.Fatalf("seed school %s: %v", m.Index, err)
		}
	}
}

func spellsRepo(t *testing.T, h *Hub) *KindRepository {
	t.Helper()
	r, ok := h.Kind(domain.KindSpells)
	if !ok {
		t.Fatal("spells repository missing from hub")
	}
	return r
}

func TestNewKindRepositoryRejectsUnknownKind(t *testing.T) {
	_, s := newTestHub(t)
	_, err := NewKindRepository(s, "artifact_weapons")
	var argErr *domain.InvalidArgumentError
	if !errors.As(err, &argErr) {
		t.Fatalf("expected InvalidArgumentError, got %T: %v", err, err)
	}
}

func TestGetByIndexPackPriority(t *testing.T) {
	h, _ := newTestHub(t)
	r := spellsRepo(t, h)
	ctx := context.Background()

	got, err := r.GetByIndex(ctx, "fireball", "homebrew", "srd")
	if err != nil {
		t.Fatalf("GetByIndex failed: %v", err)
	}
	if got.GetName() != "Custom Fireball" {
		t.Errorf("priority [homebrew srd]: got %q, want Custom Fireball", got.GetName())
	}
	if got.GetContentPackID() != "homebrew" {
		t.Errorf("pack id = %q, want homebrew", got.GetContentPackID())
	}

	got, err = r.GetByIndex(ctx, "fireball", "srd", "homebrew")
	if err != nil {
		t.Fatalf("GetByIndex failed: %v", err)
	}
	if got.GetName() != "Fireball" {
		t.Errorf("priority [srd homebrew]: got %q, want Fireball", got.GetName())
	}

	// No priority: either active pack may win, but the choice must be stable.
	first, err := r.GetByIndex(ctx, "fireball")
	if err != nil {
		t.Fatalf("GetByIndex failed: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := r.GetByIndex(ctx, "fireball")
		if err != nil {
			t.Fatalf("GetByIndex failed: %v", err)
		}
		if again.GetContentPackID() != first.GetContentPackID() {
			t.Fatalf("resolution unstable: %q then %q (iteration %d)",
				first.GetContentPackID(), again.GetContentPackID(), i)
		}
	}
}

func TestGetByNameCaseInsensitive(t *testing.T) {
	h, _ := newTestHub(t)
	r := spellsRepo(t, h)

	got, err := r.GetByName(context.Background(), "fIREBALL", "srd")
	if err != nil {
		t.Fatalf("GetByName failed: %v", err)
	}
	if got.GetIndex() != "fireball" {
		t.Errorf("got %q, want fireball", got.GetIndex())
	}

	if _, err := r.GetByName(context.Background(), "meteor swarm"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("GetByName(meteor swarm) = %v, want ErrNotFound", err)
	}
}

func TestInactivePackVisibility(t *testing.T) {
	h, _ := newTestHub(t)
	r := spellsRepo(t, h)
	ctx := context.Background()

	if _, err := r.GetByIndex(ctx, "lost-incantation"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("inactive pack visible without priority: %v", err)
	}

	got, err := r.GetByIndex(ctx, "lost-incantation", "legacy")
	if err != nil {
		t.Fatalf("priority should reach the inactive pack: %v", err)
	}
	if got.GetContentPackID() != "legacy" {
		t.Errorf("pack id = %q, want legacy", got.GetContentPackID())
	}
}

func TestListAllDedupesByIndex(t *testing.T) {
	h, _ := newTestHub(t)
	r := spellsRepo(t, h)

	es, err := r.ListAll(context.Background(), "srd")
	if err != nil {
		t.Fatalf("ListAll failed: %v", err)
	}
	// fireball, identify, shield (legacy stays hidden; homebrew loses the tie)
	if len(es) != 3 {
		t.Fatalf("got %d entities, want 3: %v", len(es), entityIndices(es))
	}
	for _, e := range es {
		if e.GetIndex() == "fireball" && e.GetName() != "Fireball" {
			t.Errorf("srd priority should win the fireball override, got %q", e.GetName())
		}
	}
	for i := 1; i < len(es); i++ {
		if es[i-1].GetIndex() >= es[i].GetIndex() {
			t.Errorf("entities not ordered by index: %v", entityIndices(es))
		}
	}
}

func entityIndices(es []domain.Entity) []string {
	out := make([]string, len(es))
	for i, e := range es {
		out[i] = e.GetIndex()
	}
	return out
}

func TestSearchSubstring(t *testing.T) {
	h, _ := newTestHub(t)
	r := spellsRepo(t, h)

	es, err := r.Search(context.Background(), "FIRE", "srd")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(es) != 1 || es[0].GetIndex() != "fireball" {
		t.Errorf("Search(FIRE) = %v, want [fireball]", entityIndices(es))
	}

	es, err = r.Search(context.Background(), "zzz")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(es) != 0 {
		t.Errorf("Search(zzz) = %v, want empty", entityIndices(es))
	}
}

func TestFilterByPromotedColumns(t *testing.T) {
	h, _ := newTestHub(t)
	r := spellsRepo(t, h)
	ctx := context.Background()

	es, err := r.FilterBy(ctx, map[string]any{"level": 1}, "srd")
	if err != nil {
		t.Fatalf("FilterBy failed: %v", err)
	}
	if len(es) != 2 {
		t.Errorf("FilterBy(level=1) = %v, want identify+shield", entityIndices(es))
	}

	es, err = r.FilterBy(ctx, map[string]any{"level": 3, "school": "evocation"}, "srd")
	if err != nil {
		t.Fatalf("FilterBy failed: %v", err)
	}
	if len(es) != 1 || es[0].GetIndex() != "fireball" {
		t.Errorf("FilterBy(level=3, school=evocation) = %v", entityIndices(es))
	}

	_, err = r.FilterBy(ctx, map[string]any{"casting_time": "1 action"})
	var argErr *domain.InvalidArgumentError
	if !errors.As(err, &argErr) {
		t.Errorf("expected InvalidArgumentError for unpromoted field, got %v", err)
	}
}

func TestExistsCountIndicesNames(t *testing.T) {
	h, _ := newTestHub(t)
	r := spellsRepo(t, h)
	ctx := context.Background()

	ok, err := r.Exists(ctx, "fireball")
	if err != nil || !ok {
		t.Errorf("Exists(fireball) = %v, %v", ok, err)
	}
	ok, err = r.Exists(ctx, "lost-incantation")
	if err != nil || ok {
		t.Errorf("Exists(lost-incantation) = %v (inactive pack), %v", ok, err)
	}

	n, err := r.Count(ctx)
	if err != nil || n != 3 {
		t.Errorf("Count = %d, %v; want 3 distinct indices", n, err)
	}

	idxs, err := r.Indices(ctx)
	if err != nil {
		t.Fatalf("Indices failed: %v", err)
	}
	want := []string{"fireball", "identify", "shield"}
	if len(idxs) != len(want) {
		t.Fatalf("Indices = %v, want %v", idxs, want)
	}
	for i := range want {
		if idxs[i] != want[i] {
			t.Errorf("Indices[%d] = %q, want %q", i, idxs[i], want[i])
		}
	}

	names, err := r.Names(ctx, "homebrew")
	if err != nil {
		t.Fatalf("Names failed: %v", err)
	}
	foundCustom := false
	for _, n := range names {
		if n == "Custom Fireball" {
			foundCustom = true
		}
		if n == "Fireball" {
			t.Error("Names carries the shadowed base name alongside the override")
		}
	}
	if !foundCustom {
		t.Errorf("Names = %v, want the homebrew override name", names)
	}
}

func TestCorruptRowSkipped(t *testing.T) {
	h, s := newTestHub(t)
	r := spellsRepo(t, h)
	ctx := context.Background()

	// Bypass UpsertEntity validation to plant a row whose document fails
	// domain checks on the way out.
	_, err := s.DB().Exec(
		`INSERT INTO spells (idx, name, url, content_pack_id, data) VALUES ('bad', 'Bad', '/api/spells/bad', 'srd', '{"index":"bad"}')`)
	if err != nil {
		t.Fatalf("raw insert failed: %v", err)
	}

	if _, err := r.GetByIndex(ctx, "bad"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("corrupt row should resolve to ErrNotFound, got %v", err)
	}

	es, err := r.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll failed: %v", err)
	}
	for _, e := range es {
		if e.GetIndex() == "bad" {
			t.Error("corrupt row returned from ListAll")
		}
	}
	if len(es) != 3 {
		t.Errorf("ListAll = %v, want the 3 good rows", entityIndices(es))
	}
}

func TestValuesUsableAfterClose(t *testing.T) {
	h, s := newTestHub(t)
	r := spellsRepo(t, h)

	e, err := r.GetByIndex(context.Background(), "shield", "srd")
	if err != nil {
		t.Fatalf("GetByIndex failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	sp, ok := e.(*domain.Spell)
	if !ok {
		t.Fatalf("entity type = %T, want *domain.Spell", e)
	}
	if sp.Name != "Shield" || sp.Level != 1 || sp.School.Index != "abjuration" {
		t.Errorf("entity unusable after store close: %+v", sp)
	}
}

func TestClassRepository(t *testing.T) {
	h, _ := newTestHub(t)
	ctx := context.Background()

	cs, err := h.Classes.ByHitDie(ctx, 10)
	if err != nil {
		t.Fatalf("ByHitDie failed: %v", err)
	}
	if len(cs) != 1 || cs[0].Index != "fighter" {
		t.Errorf("ByHitDie(10) = %v", classIndices(cs))
	}

	casters, err := h.Classes.Spellcasters(ctx)
	if err != nil {
		t.Fatalf("Spellcasters failed: %v", err)
	}
	if len(casters) != 1 || casters[0].Index != "wizard" {
		t.Errorf("Spellcasters = %v", classIndices(casters))
	}

	if _, err := h.Classes.ByHitDie(ctx, 0); err == nil {
		t.Error("ByHitDie(0) should fail")
	}
}

func classIndices(cs []*domain.Class) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Index
	}
	return out
}

func TestSpellRepository(t *testing.T) {
	h, _ := newTestHub(t)
	ctx := context.Background()

	sps, err := h.Spells.ByLevel(ctx, 3, "srd")
	if err != nil {
		t.Fatalf("ByLevel failed: %v", err)
	}
	if len(sps) != 1 || sps[0].Index != "fireball" {
		t.Errorf("ByLevel(3) returned %d spells", len(sps))
	}

	if _, err := h.Spells.ByLevel(ctx, 10); err == nil {
		t.Error("ByLevel(10) should fail")
	}

	rituals, err := h.Spells.Rituals(ctx)
	if err != nil {
		t.Fatalf("Rituals failed: %v", err)
	}
	if len(rituals) != 1 || rituals[0].Index != "identify" {
		t.Errorf("Rituals returned %d spells", len(rituals))
	}

	wizardSpells, err := h.Spells.ByClass(ctx, "wizard", "srd")
	if err != nil {
		t.Fatalf("ByClass failed: %v", err)
	}
	if len(wizardSpells) != 1 || wizardSpells[0].Index != "fireball" {
		t.Errorf("ByClass(wizard) returned %d spells", len(wizardSpells))
	}

	ev, err := h.Spells.BySchool(ctx, "evocation", "srd")
	if err != nil {
		t.Fatalf("BySchool failed: %v", err)
	}
	if len(ev) != 1 || ev[0].Index != "fireball" {
		t.Errorf("BySchool(evocation) returned %d spells", len(ev))
	}
}

func TestMonsterRepository(t *testing.T) {
	h, _ := newTestHub(t)
	ctx := context.Background()

	low, err := h.Monsters.ByCRRange(ctx, 0, 1)
	if err != nil {
		t.Fatalf("ByCRRange failed: %v", err)
	}
	if len(low) != 1 || low[0].Index != "goblin" {
		t.Errorf("ByCRRange(0,1) returned %d monsters", len(low))
	}

	if _, err := h.Monsters.ByCRRange(ctx, 5, 1); err == nil {
		t.Error("inverted CR range should fail")
	}

	dragons, err := h.Monsters.ByType(ctx, "Dragon")
	if err != nil {
		t.Fatalf("ByType failed: %v", err)
	}
	if len(dragons) != 1 || dragons[0].Index != "adult-red-dragon" {
		t.Errorf("ByType(Dragon) returned %d monsters", len(dragons))
	}

	small, err := h.Monsters.BySize(ctx, "small")
	if err != nil {
		t.Fatalf("BySize failed: %v", err)
	}
	if len(small) != 1 || small[0].Index != "goblin" {
		t.Errorf("BySize(small) returned %d monsters", len(small))
	}
}

func TestEquipmentRepository(t *testing.T) {
	h, _ := newTestHub(t)
	ctx := context.Background()

	weapons, err := h.Equipment.Weapons(ctx)
	if err != nil {
		t.Fatalf("Weapons failed: %v", err)
	}
	if len(weapons) != 1 || weapons[0].Index != "longsword" {
		t.Errorf("Weapons returned %d items", len(weapons))
	}

	gear, err := h.Equipment.ByCategory(ctx, "adventuring-gear")
	if err != nil {
		t.Fatalf("ByCategory failed: %v", err)
	}
	if len(gear) != 1 || gear[0].Index != "rope-hempen" {
		t.Errorf("ByCategory(adventuring-gear) returned %d items", len(gear))
	}
}
