package repo

import (
	"context"
	"fmt"

	"github.com/mmerah/ai-gamemaster/internal/domain"
	"github.com/mmerah/ai-gamemaster/internal/store"
)

// The four specialized repositories add domain filters on top of the plain
// kind repository. Filters on promoted columns run in SQL; filters on
// document-only fields decode and sieve in process, which is fine at
// catalog scale.

// ClassRepository serves character classes.
type ClassRepository struct {
	*KindRepository
}

func NewClassRepository(s *store.ContentStore) *ClassRepository {
	r, _ := NewKindRepository(s, domain.KindClasses)
	return &ClassRepository{KindRepository: r}
}

// ByHitDie returns classes with the given hit die (8 for d8, and so on).
func (r *ClassRepository) ByHitDie(ctx context.Context, die int, packPriority ...string) ([]*domain.Class, error) {
	if die <= 0 {
		return nil, &domain.InvalidArgumentError{Arg: "die", Value: die, Reason: "must be positive"}
	}
	es, err := r.FilterBy(ctx, map[string]any{"hit_die": die}, packPriority...)
	if err != nil {
		return nil, err
	}
	return classSlice(es), nil
}

// Spellcasters returns every class with a spellcasting block.
func (r *ClassRepository) Spellcasters(ctx context.Context, packPriority ...string) ([]*domain.Class, error) {
	es, err := r.FilterBy(ctx, map[string]any{"spellcasting": true}, packPriority...)
	if err != nil {
		return nil, err
	}
	return classSlice(es), nil
}

// SpellRepository serves spells.
type SpellRepository struct {
	*KindRepository
}

func NewSpellRepository(s *store.ContentStore) *SpellRepository {
	r, _ := NewKindRepository(s, domain.KindSpells)
	return &SpellRepository{KindRepository: r}
}

// ByLevel returns spells of one level; 0 is cantrips.
func (r *SpellRepository) ByLevel(ctx context.Context, level int, packPriority ...string) ([]*domain.Spell, error) {
	if level < 0 || level > 9 {
		return nil, &domain.InvalidArgumentError{Arg: "level", Value: level, Reason: "must be between 0 and 9"}
	}
	es, err := r.FilterBy(ctx, map[string]any{"level": level}, packPriority...)
	if err != nil {
		return nil, err
	}
	return spellSlice(es), nil
}

// BySchool returns spells of one school of magic, by school index.
func (r *SpellRepository) BySchool(ctx context.Context, school string, packPriority ...string) ([]*domain.Spell, error) {
	es, err := r.FilterBy(ctx, map[string]any{"school": school}, packPriority...)
	if err != nil {
		return nil, err
	}
	return spellSlice(es), nil
}

// ByClass returns spells on a class's spell list, by class index. Class
// lists live inside the document, so this filters in process.
func (r *SpellRepository) ByClass(ctx context.Context, classIdx string, packPriority ...string) ([]*domain.Spell, error) {
	es, err := r.ListAll(ctx, packPriority...)
	if err != nil {
		return nil, err
	}
	var out []*domain.Spell
	for _, e := range es {
		sp, ok := e.(*domain.Spell)
		if !ok {
			continue
		}
		for _, c := range sp.Classes {
			if c.Index == classIdx {
				out = append(out, sp)
				break
			}
		}
	}
	return out, nil
}

// Rituals returns every spell castable as a ritual.
func (r *SpellRepository) Rituals(ctx context.Context, packPriority ...string) ([]*domain.Spell, error) {
	es, err := r.FilterBy(ctx, map[string]any{"ritual": true}, packPriority...)
	if err != nil {
		return nil, err
	}
	return spellSlice(es), nil
}

// MonsterRepository serves monster stat blocks.
type MonsterRepository struct {
	*KindRepository
}

func NewMonsterRepository(s *store.ContentStore) *MonsterRepository {
	r, _ := NewKindRepository(s, domain.KindMonsters)
	return &MonsterRepository{KindRepository: r}
}

// ByCRRange returns monsters with challenge rating in [min, max].
func (r *MonsterRepository) ByCRRange(ctx context.Context, min, max float64, packPriority ...string) ([]*domain.Monster, error) {
	if min < 0 || max < min {
		return nil, &domain.InvalidArgumentError{Arg: "cr range",
			Value: fmt.Sprintf("[%v, %v]", min, max), Reason: "need 0 <= min <= max"}
	}
	es, err := r.listWhere(ctx, "ByCRRange",
		"challenge_rating >= ? AND challenge_rating <= ?", []any{min, max}, packPriority)
	if err != nil {
		return nil, err
	}
	return monsterSlice(es), nil
}

// ByType returns monsters of one creature type (dragon, undead, ...).
func (r *MonsterRepository) ByType(ctx context.Context, typ string, packPriority ...string) ([]*domain.Monster, error) {
	es, err := r.listWhere(ctx, "ByType", "type = ? COLLATE NOCASE", []any{typ}, packPriority)
	if err != nil {
		return nil, err
	}
	return monsterSlice(es), nil
}

// BySize returns monsters of one size category (Tiny through Gargantuan).
func (r *MonsterRepository) BySize(ctx context.Context, size string, packPriority ...string) ([]*domain.Monster, error) {
	es, err := r.listWhere(ctx, "BySize", "size = ? COLLATE NOCASE", []any{size}, packPriority)
	if err != nil {
		return nil, err
	}
	return monsterSlice(es), nil
}

// EquipmentRepository serves mundane equipment.
type EquipmentRepository struct {
	*KindRepository
}

func NewEquipmentRepository(s *store.ContentStore) *EquipmentRepository {
	r, _ := NewKindRepository(s, domain.KindEquipment)
	return &EquipmentRepository{KindRepository: r}
}

// ByCategory returns equipment in one equipment category, by category index.
func (r *EquipmentRepository) ByCategory(ctx context.Context, category string, packPriority ...string) ([]*domain.Equipment, error) {
	es, err := r.FilterBy(ctx, map[string]any{"category": category}, packPriority...)
	if err != nil {
		return nil, err
	}
	return equipmentSlice(es), nil
}

// Weapons returns every item carrying weapon stats.
func (r *EquipmentRepository) Weapons(ctx context.Context, packPriority ...string) ([]*domain.Equipment, error) {
	es, err := r.listWhere(ctx, "Weapons",
		"weapon_category IS NOT NULL AND weapon_category != ''", nil, packPriority)
	if err != nil {
		return nil, err
	}
	return equipmentSlice(es), nil
}

// Armor returns every item carrying armor stats.
func (r *EquipmentRepository) Armor(ctx context.Context, packPriority ...string) ([]*domain.Equipment, error) {
	es, err := r.listWhere(ctx, "Armor",
		"armor_category IS NOT NULL AND armor_category != ''", nil, packPriority)
	if err != nil {
		return nil, err
	}
	return equipmentSlice(es), nil
}

func classSlice(es []domain.Entity) []*domain.Class {
	out := make([]*domain.Class, 0, len(es))
	for _, e := range es {
		if c, ok := e.(*domain.Class); ok {
			out = append(out, c)
		}
	}
	return out
}

func spellSlice(es []domain.Entity) []*domain.Spell {
	out := make([]*domain.Spell, 0, len(es))
	for _, e := range es {
		if s, ok := e.(*domain.Spell); ok {
			out = append(out, s)
		}
	}
	return out
}

func monsterSlice(es []domain.Entity) []*domain.Monster {
	out := make([]*domain.Monster, 0, len(es))
	for _, e := range es {
		if m, ok := e.(*domain.Monster); ok {
			out = append(out, m)
		}
	}
	return out
}

func equipmentSlice(es []domain.Entity) []*domain.Equipment {
	out := make([]*domain.Equipment, 0, len(es))
	for _, e := range es {
		if eq, ok := e.(*domain.Equipment); ok {
			out = append(out, eq)
		}
	}
	return out
}
