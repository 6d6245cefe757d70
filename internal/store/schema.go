package store

import (
	"fmt"
	"strings"

	"github.com/mmerah/ai-gamemaster/internal/domain"
	"github.com/mmerah/ai-gamemaster/internal/logging"
)

// Every kind table shares the same backbone: identity columns, the full
// entity as a JSON document, and the embedding blob. Kinds with fields the
// repository layer filters on get those fields promoted into real columns;
// ColumnSpec declares each promotion exactly once and drives the CREATE
// TABLE DDL, the upsert statements, and the column-migration pass.
type ColumnSpec struct {
	Name string
	Type string
	// Value extracts the column value from the entity. Returns nil (SQL
	// NULL) when the entity is not the expected concrete type.
	Value func(e domain.Entity) any
}

var promotedColumns = map[string][]ColumnSpec{
	domain.KindSpells: {
		{"level", "INTEGER", func(e domain.Entity) any {
			if s, ok := e.(*domain.Spell); ok {
				return s.Level
			}
			return nil
		}},
		{"school", "TEXT", func(e domain.Entity) any {
			if s, ok := e.(*domain.Spell); ok && s.School != nil {
				return s.School.Index
			}
			return nil
		}},
		{"concentration", "INTEGER", func(e domain.Entity) any {
			if s, ok := e.(*domain.Spell); ok {
				return s.Concentration
			}
			return nil
		}},
		{"ritual", "INTEGER", func(e domain.Entity) any {
			if s, ok := e.(*domain.Spell); ok {
				return s.Ritual
			}
			return nil
		}},
	},
	domain.KindMonsters: {
		{"challenge_rating", "REAL", func(e domain.Entity) any {
			if m, ok := e.(*domain.Monster); ok {
				return m.ChallengeRating
			}
			return nil
		}},
		{"type", "TEXT", func(e domain.Entity) any {
			if m, ok := e.(*domain.Monster); ok {
				return m.Type
			}
			return nil
		}},
		{"size", "TEXT", func(e domain.Entity) any {
			if m, ok := e.(*domain.Monster); ok {
				return m.Size
			}
			return nil
		}},
		{"hit_points", "INTEGER", func(e domain.Entity) any {
			if m, ok := e.(*domain.Monster); ok {
				return m.HitPoints
			}
			return nil
		}},
	},
	domain.KindClasses: {
		{"hit_die", "INTEGER", func(e domain.Entity) any {
			if c, ok := e.(*domain.Class); ok {
				return c.HitDie
			}
			return nil
		}},
		{"spellcasting", "INTEGER", func(e domain.Entity) any {
			if c, ok := e.(*domain.Class); ok {
				return c.IsSpellcaster()
			}
			return nil
		}},
	},
	domain.KindEquipment: {
		{"category", "TEXT", func(e domain.Entity) any {
			if eq, ok := e.(*domain.Equipment); ok && eq.EquipmentCategory != nil {
				return eq.EquipmentCategory.Index
			}
			return nil
		}},
		{"weapon_category", "TEXT", func(e domain.Entity) any {
			if eq, ok := e.(*domain.Equipment); ok {
				return eq.WeaponCategory
			}
			return nil
		}},
		{"armor_category", "TEXT", func(e domain.Entity) any {
			if eq, ok := e.(*domain.Equipment); ok {
				return eq.ArmorCategory
			}
			return nil
		}},
	},
	domain.KindMagicItems: {
		{"rarity", "TEXT", func(e domain.Entity) any {
			if m, ok := e.(*domain.MagicItem); ok && m.Rarity != nil {
				return m.Rarity.Name
			}
			return nil
		}},
	},
	domain.KindProficiencies: {
		{"type", "TEXT", func(e domain.Entity) any {
			if p, ok := e.(*domain.Proficiency); ok {
				return p.Type
			}
			return nil
		}},
	},
	domain.KindLanguages: {
		{"type", "TEXT", func(e domain.Entity) any {
			if l, ok := e.(*domain.Language); ok {
				return l.Type
			}
			return nil
		}},
	},
	domain.KindFeatures: {
		{"level", "INTEGER", func(e domain.Entity) any {
			if f, ok := e.(*domain.Feature); ok {
				return f.Level
			}
			return nil
		}},
		{"class_idx", "TEXT", func(e domain.Entity) any {
			if f, ok := e.(*domain.Feature); ok && f.ClassRef != nil {
				return f.ClassRef.Index
			}
			return nil
		}},
	},
	domain.KindLevels: {
		{"level", "INTEGER", func(e domain.Entity) any {
			if l, ok := e.(*domain.Level); ok {
				return l.Level
			}
			return nil
		}},
		{"class_idx", "TEXT", func(e domain.Entity) any {
			if l, ok := e.(*domain.Level); ok && l.ClassRef != nil {
				return l.ClassRef.Index
			}
			return nil
		}},
	},
}

// PromotedColumns returns the promoted column specs for a kind. The
// repository layer uses this to validate FilterBy fields before building
// SQL; kinds without promotions return nil.
func PromotedColumns(kind string) []ColumnSpec {
	return promotedColumns[kind]
}

const packsDDL = `CREATE TABLE IF NOT EXISTS content_packs (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	version TEXT NOT NULL,
	author TEXT NOT NULL DEFAULT '',
	is_active INTEGER NOT NULL DEFAULT 1,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

const migrationHistoryDDL = `CREATE TABLE IF NOT EXISTS migration_history (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	source TEXT NOT NULL,
	pack_id TEXT NOT NULL,
	items INTEGER NOT NULL,
	details TEXT NOT NULL DEFAULT '',
	applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

// kindTableDDL builds the CREATE TABLE statement for one kind, backbone
// columns plus that kind's promotions.
func kindTableDDL(kind string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", kind)
	b.WriteString("\tidx TEXT NOT NULL,\n")
	b.WriteString("\tname TEXT NOT NULL,\n")
	b.WriteString("\turl TEXT NOT NULL DEFAULT '',\n")
	b.WriteString("\tcontent_pack_id TEXT NOT NULL,\n")
	b.WriteString("\tdata TEXT NOT NULL,\n")
	b.WriteString("\tembedding BLOB")
	for _, c := range promotedColumns[kind] {
		fmt.Fprintf(&b, ",\n\t%s %s", c.Name, c.Type)
	}
	b.WriteString(",\n\tPRIMARY KEY (idx, content_pack_id)\n)")
	return b.String()
}

// ensureSchema creates every table and index the store serves from. All
// statements are IF NOT EXISTS, so reopening an existing file is a no-op.
func (s *ContentStore) ensureSchema() error {
	timer := logging.StartTimer(logging.CategoryStore, "store.ensureSchema")
	defer timer.Stop()

	if _, err := s.db.Exec(packsDDL); err != nil {
		return &domain.DatabaseError{Op: "ensureSchema", Context: "content_packs", Err: err}
	}
	if _, err := s.db.Exec(migrationHistoryDDL); err != nil {
		return &domain.DatabaseError{Op: "ensureSchema", Context: "migration_history", Err: err}
	}

	for _, k := range domain.Kinds {
		if _, err := s.db.Exec(kindTableDDL(k.Name)); err != nil {
			return &domain.DatabaseError{Op: "ensureSchema", Context: k.Name, Err: err}
		}
		idx := fmt.Sprintf(
			"CREATE INDEX IF NOT EXISTS idx_%s_name ON %s(name COLLATE NOCASE)",
			k.Name, k.Name)
		if _, err := s.db.Exec(idx); err != nil {
			return &domain.DatabaseError{Op: "ensureSchema", Context: k.Name + " name index", Err: err}
		}
	}

	logging.StoreDebug("Schema ensured: %d kind tables + content_packs + migration_history",
		len(domain.Kinds))
	return nil
}
