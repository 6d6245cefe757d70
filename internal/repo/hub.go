package repo

import (
	"github.com/mmerah/ai-gamemaster/internal/domain"
	"github.com/mmerah/ai-gamemaster/internal/logging"
	"github.com/mmerah/ai-gamemaster/internal/store"
)

// Hub wires one repository per catalog kind plus the four specialized
// repositories over a single store. Build it once at startup and share it;
// repositories are stateless beyond their store handle.
type Hub struct {
	store *store.ContentStore
	kinds map[string]*KindRepository

	Classes   *ClassRepository
	Spells    *SpellRepository
	Monsters  *MonsterRepository
	Equipment *EquipmentRepository
}

// NewHub builds repositories for all 25 kinds.
func NewHub(s *store.ContentStore) *Hub {
	h := &Hub{
		store: s,
		kinds: make(map[string]*KindRepository, len(domain.Kinds)),
	}
	for _, k := range domain.Kinds {
		r, _ := NewKindRepository(s, k.Name)
		h.kinds[k.Name] = r
	}
	h.Classes = &ClassRepository{KindRepository: h.kinds[domain.KindClasses]}
	h.Spells = &SpellRepository{KindRepository: h.kinds[domain.KindSpells]}
	h.Monsters = &MonsterRepository{KindRepository: h.kinds[domain.KindMonsters]}
	h.Equipment = &EquipmentRepository{KindRepository: h.kinds[domain.KindEquipment]}

	logging.RepoDebug("Hub ready: %d kind repositories", len(h.kinds))
	return h
}

// Kind returns the repository for a kind name.
func (h *Hub) Kind(name string) (*KindRepository, bool) {
	r, ok := h.kinds[name]
	return r, ok
}

// Store exposes the underlying store for jobs that need pack metadata.
func (h *Hub) Store() *store.ContentStore { return h.store }
