package domain

import (
	"strings"
	"testing"
)

func TestSpellEmbeddingText(t *testing.T) {
	spell := Spell{
		BaseEntity: BaseEntity{Index: "fireball", Name: "Fireball", URL: "/api/spells/fireball"},
		Level:      3,
		School:     &APIReference{Index: "evocation", Name: "Evocation", URL: "/api/magic-schools/evocation"},
		Desc:       []string{"A bright streak flashes from your pointing finger.", "Each creature in a 20-foot-radius sphere must make a Dexterity saving throw."},
	}

	text := spell.EmbeddingText()
	for _, want := range []string{"Spell: Fireball", "Level 3", "School: Evocation", "20-foot-radius"} {
		if !strings.Contains(text, want) {
			t.Errorf("EmbeddingText missing %q, got: %s", want, text)
		}
	}
}

func TestMonsterEmbeddingText(t *testing.T) {
	monster := Monster{
		BaseEntity:      BaseEntity{Index: "goblin", Name: "Goblin", URL: "/api/monsters/goblin"},
		Type:            "humanoid",
		ChallengeRating: 0.25,
		HitPoints:       7,
		ArmorClass:      []ArmorClassEntry{{Type: "armor", Value: 15}},
		Alignment:       "neutral evil",
	}

	text := monster.EmbeddingText()
	for _, want := range []string{"Monster: Goblin", "Type: humanoid", "CR 1/4", "HP 7", "AC 15"} {
		if !strings.Contains(text, want) {
			t.Errorf("EmbeddingText missing %q, got: %s", want, text)
		}
	}
}

func TestFormatCR(t *testing.T) {
	cases := []struct {
		cr   float64
		want string
	}{
		{0, "0"},
		{0.125, "1/8"},
		{0.25, "1/4"},
		{0.5, "1/2"},
		{1, "1"},
		{13, "13"},
	}
	for _, tc := range cases {
		if got := FormatCR(tc.cr); got != tc.want {
			t.Errorf("FormatCR(%v) = %q, want %q", tc.cr, got, tc.want)
		}
	}
}

func TestBaseEntityValidate(t *testing.T) {
	valid := BaseEntity{Index: "fireball", Name: "Fireball", URL: "/api/spells/fireball"}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid entity failed validation: %v", err)
	}

	cases := []struct {
		name   string
		entity BaseEntity
		field  string
	}{
		{"missing index", BaseEntity{Name: "Fireball", URL: "/x"}, "index"},
		{"missing name", BaseEntity{Index: "fireball", URL: "/x"}, "name"},
		{"missing url", BaseEntity{Index: "fireball", Name: "Fireball"}, "url"},
	}
	for _, tc := range cases {
		err := tc.entity.Validate()
		if err == nil {
			t.Errorf("%s: expected validation error", tc.name)
			continue
		}
		verr, ok := err.(*ValidationError)
		if !ok {
			t.Errorf("%s: expected *ValidationError, got %T", tc.name, err)
			continue
		}
		if verr.Field != tc.field {
			t.Errorf("%s: field = %q, want %q", tc.name, verr.Field, tc.field)
		}
	}
}

func TestSpellValidateLevelRange(t *testing.T) {
	spell := Spell{
		BaseEntity: BaseEntity{Index: "broken", Name: "Broken", URL: "/api/spells/broken"},
		Level:      10,
	}
	if err := spell.Validate(); err == nil {
		t.Error("spell level 10 should fail validation")
	}

	cantrip := Spell{
		BaseEntity: BaseEntity{Index: "guidance", Name: "Guidance", URL: "/api/spells/guidance"},
		Level:      0,
	}
	if err := cantrip.Validate(); err != nil {
		t.Errorf("cantrip should validate, got: %v", err)
	}
}

func TestMonsterValidate(t *testing.T) {
	monster := Monster{
		BaseEntity:      BaseEntity{Index: "bad", Name: "Bad", URL: "/api/monsters/bad"},
		ChallengeRating: -1,
	}
	if err := monster.Validate(); err == nil {
		t.Error("negative CR should fail validation")
	}
}

func TestKindRegistryComplete(t *testing.T) {
	if len(Kinds) != 25 {
		t.Fatalf("expected 25 kinds, got %d", len(Kinds))
	}

	seen := make(map[string]bool)
	for _, k := range Kinds {
		if seen[k.Name] {
			t.Errorf("duplicate kind %q", k.Name)
		}
		seen[k.Name] = true

		entity := k.New()
		if entity == nil {
			t.Errorf("kind %q factory returned nil", k.Name)
			continue
		}
		// Every factory product must accept a pack id through the interface.
		entity.SetContentPackID("test-pack")
		if entity.GetContentPackID() != "test-pack" {
			t.Errorf("kind %q did not retain pack id", k.Name)
		}
	}
}

func TestIsKindWhitelist(t *testing.T) {
	if !IsKind("spells") {
		t.Error("spells should be a known kind")
	}
	if !IsKind("weapon_properties") {
		t.Error("weapon_properties should be a known kind")
	}
	for _, bad := range []string{"content_packs", "spells; DROP TABLE spells", "", "users"} {
		if IsKind(bad) {
			t.Errorf("%q must not pass the kind whitelist", bad)
		}
	}
}

func TestEmbeddingTextAllKinds(t *testing.T) {
	// Every kind overrides the base fallback with a labeled format, so even a
	// zero-value row renders a non-empty, prefixed indexing text.
	for _, k := range Kinds {
		entity := k.New()
		if text := entity.EmbeddingText(); text == "" {
			t.Errorf("kind %q produced empty embedding text", k.Name)
		}
	}
}
