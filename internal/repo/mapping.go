// Package repo is the only layer that reads catalog rows. Every public call
// runs its queries, decodes rows into pure domain values, and returns;
// returned values never hold database state and stay usable after the store
// is closed.
package repo

import (
	"sync"

	"github.com/mmerah/ai-gamemaster/internal/store"
)

// FieldMapping records how a kind's domain fields map onto store columns:
// the renamed identity column, the JSON document column, and the promoted
// columns FilterBy may reference. Purely a lookup-speed affordance; it never
// changes query semantics.
type FieldMapping struct {
	Kind string
	// Renames maps domain field names to column names. "index" is stored as
	// "idx" because INDEX is reserved in SQL.
	Renames map[string]string
	// JSONColumns holds the columns carrying JSON documents.
	JSONColumns []string
	// FilterFields is the set of fields FilterBy accepts for this kind.
	FilterFields map[string]bool
}

var (
	mappingMu sync.Mutex
	mappings  = make(map[string]*FieldMapping)
)

// mappingFor returns the process-wide mapping for a kind, building it under
// the lock on first use. Repositories capture the pointer at construction,
// so reads afterwards never touch the lock.
func mappingFor(kind string) *FieldMapping {
	mappingMu.Lock()
	defer mappingMu.Unlock()
	if m, ok := mappings[kind]; ok {
		return m
	}
	m := &FieldMapping{
		Kind:         kind,
		Renames:      map[string]string{"index": "idx"},
		JSONColumns:  []string{"data"},
		FilterFields: make(map[string]bool),
	}
	for _, c := range store.PromotedColumns(kind) {
		m.FilterFields[c.Name] = true
	}
	mappings[kind] = m
	return m
}
