// Package kb routes semantic searches across the catalog tables and
// per-campaign memory collections, returning scored snippets for retrieval.
package kb

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mmerah/ai-gamemaster/internal/config"
	"github.com/mmerah/ai-gamemaster/internal/domain"
	"github.com/mmerah/ai-gamemaster/internal/embedding"
	"github.com/mmerah/ai-gamemaster/internal/logging"
	"github.com/mmerah/ai-gamemaster/internal/store"
)

// =============================================================================
// RESULT TYPES
// =============================================================================

// Item is one scored knowledge snippet.
type Item struct {
	Content        string
	Source         string
	RelevanceScore float64
	Metadata       map[string]any
}

// Results is the outcome of one knowledge base search.
type Results struct {
	Items        []Item
	TotalQueries int
	ElapsedMS    float64
}

// =============================================================================
// SOURCE ROUTING
// =============================================================================

// kbTypeTables binds each logical knowledge base type to its backing catalog
// tables. Per-campaign lore_<id> / events_<id> sources resolve to in-memory
// collections instead.
var kbTypeTables = map[string][]string{
	"rules": {
		domain.KindRules, domain.KindRuleSections,
	},
	"spells": {
		domain.KindSpells,
	},
	"monsters": {
		domain.KindMonsters,
	},
	"equipment": {
		domain.KindEquipment, domain.KindEquipmentCategories, domain.KindMagicItems,
		domain.KindMagicSchools, domain.KindWeaponProperties,
	},
	"character_options": {
		domain.KindBackgrounds, domain.KindClasses, domain.KindFeats, domain.KindFeatures,
		domain.KindLevels, domain.KindRaces, domain.KindSubclasses, domain.KindSubraces,
		domain.KindTraits,
	},
	"mechanics": {
		domain.KindAbilityScores, domain.KindAlignments, domain.KindConditions,
		domain.KindDamageTypes, domain.KindLanguages, domain.KindProficiencies,
		domain.KindSkills,
	},
}

// KnownTypes returns the fixed logical knowledge base types, sorted.
func KnownTypes() []string {
	types := make([]string, 0, len(kbTypeTables))
	for t := range kbTypeTables {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// memorySource describes one resolved in-memory collection.
type memorySource struct {
	name       string // e.g. "lore_ravenloft"
	campaignID string
	collection string // "lore" or "events"
}

// =============================================================================
// MANAGER
// =============================================================================

// Manager executes semantic searches. Reentrant: the store serializes its own
// sessions, the engine caches under a lock, and campaign memory is guarded by
// the campaign store.
type Manager struct {
	store     *store.ContentStore
	engine    embedding.Engine
	campaigns *CampaignStore
	cfg       config.RAGConfig
}

// NewManager wires a search manager over the content store, embedding engine,
// and campaign memory. The engine is wrapped in the caching layer unless the
// caller already did that, so repeated query texts embed once.
func NewManager(s *store.ContentStore, engine embedding.Engine, campaigns *CampaignStore, cfg config.RAGConfig) *Manager {
	if _, ok := engine.(*embedding.CachingEngine); !ok {
		engine = embedding.NewCachingEngine(engine, 0)
	}
	return &Manager{store: s, engine: engine, campaigns: campaigns, cfg: cfg}
}

// Campaigns exposes the campaign memory store.
func (m *Manager) Campaigns() *CampaignStore { return m.campaigns }

// Search embeds the query once and runs it against every resolved source.
// Empty kbTypes means all known sources. Failures of individual sources are
// logged and skipped; the search fails only when the query itself cannot be
// embedded or the pack registry is unreadable.
func (m *Manager) Search(ctx context.Context, query string, kbTypes []string, k int, scoreThreshold float64) (*Results, error) {
	start := time.Now()
	timer := logging.StartTimer(logging.CategoryKB, "Search")
	defer timer.Stop()

	if k <= 0 {
		k = m.cfg.MaxTotalResults
	}

	queryVec, err := m.engine.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	tables, memories := m.resolveSources(kbTypes)
	logging.KBDebug("Search %q resolved to %d tables and %d memory collections",
		query, len(tables), len(memories))

	activePacks, err := m.store.ActivePackIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolving active packs: %w", err)
	}

	var items []Item
	totalQueries := 0

	for _, table := range tables {
		totalQueries++
		if len(activePacks) == 0 {
			continue
		}
		nn, err := m.store.NearestNeighbors(ctx, table, queryVec, k, activePacks)
		if err != nil {
			logging.Get(logging.CategoryKB).Warn("Search source %s failed: %v", table, err)
			continue
		}
		for _, res := range nn {
			item, ok := m.tableItem(table, res)
			if !ok {
				continue
			}
			if item.RelevanceScore < scoreThreshold {
				continue
			}
			items = append(items, item)
		}
	}

	for _, mem := range memories {
		totalQueries++
		for _, sd := range m.campaigns.search(mem.campaignID, mem.collection, queryVec, k, scoreThreshold) {
			items = append(items, Item{
				Content:        sd.doc.content,
				Source:         mem.name,
				RelevanceScore: sd.score,
				Metadata:       sd.doc.metadata,
			})
		}
	}

	sortItems(items)
	items = dedupeItems(items)
	if limit := m.cfg.MaxTotalResults; limit > 0 && len(items) > limit {
		items = items[:limit]
	}

	elapsed := float64(time.Since(start).Microseconds()) / 1000.0
	logging.KB("Search %q: %d items from %d queries in %.1fms", query, len(items), totalQueries, elapsed)
	return &Results{Items: items, TotalQueries: totalQueries, ElapsedMS: elapsed}, nil
}

// resolveSources expands logical kb types into catalog tables and memory
// collections. Unknown types log and drop rather than failing the search.
func (m *Manager) resolveSources(kbTypes []string) ([]string, []memorySource) {
	if len(kbTypes) == 0 {
		kbTypes = KnownTypes()
		for _, id := range m.campaigns.ActiveCampaigns() {
			kbTypes = append(kbTypes, "lore_"+id, "events_"+id)
		}
	}

	var tables []string
	var memories []memorySource
	seenTable := make(map[string]bool)
	seenMemory := make(map[string]bool)

	for _, t := range kbTypes {
		switch {
		case kbTypeTables[t] != nil:
			for _, table := range kbTypeTables[t] {
				if !seenTable[table] {
					seenTable[table] = true
					tables = append(tables, table)
				}
			}
		case strings.HasPrefix(t, "lore_"):
			if !seenMemory[t] {
				seenMemory[t] = true
				memories = append(memories, memorySource{
					name: t, campaignID: strings.TrimPrefix(t, "lore_"), collection: "lore",
				})
			}
		case strings.HasPrefix(t, "events_"):
			if !seenMemory[t] {
				seenMemory[t] = true
				memories = append(memories, memorySource{
					name: t, campaignID: strings.TrimPrefix(t, "events_"), collection: "events",
				})
			}
		default:
			logging.Get(logging.CategoryKB).Warn("Unknown knowledge base type %q skipped", t)
		}
	}
	return tables, memories
}

// tableItem converts one nearest-neighbor row into a scored item. L2 distance
// d maps to similarity 1/(1+d), keeping scores in (0,1].
func (m *Manager) tableItem(table string, res store.NNResult) (Item, bool) {
	kind, ok := domain.KindByName(table)
	if !ok {
		return Item{}, false
	}
	e := kind.New()
	if err := json.Unmarshal(res.Data, e); err != nil {
		logging.Get(logging.CategoryKB).Warn("Corrupt %s row %s/%s skipped: %v",
			table, res.PackID, res.Index, err)
		return Item{}, false
	}
	e.SetContentPackID(res.PackID)

	return Item{
		Content:        e.EmbeddingText(),
		Source:         table,
		RelevanceScore: 1.0 / (1.0 + res.Distance),
		Metadata: map[string]any{
			"index":           res.Index,
			"name":            res.Name,
			"url":             res.URL,
			"content_pack_id": res.PackID,
		},
	}, true
}

// sortItems orders by score descending with a deterministic tiebreak.
func sortItems(items []Item) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].RelevanceScore != items[j].RelevanceScore {
			return items[i].RelevanceScore > items[j].RelevanceScore
		}
		if items[i].Source != items[j].Source {
			return items[i].Source < items[j].Source
		}
		return items[i].Content < items[j].Content
	})
}

// dedupeItems drops later duplicates keyed by (source, content prefix). Items
// arrive sorted, so the highest-scoring copy survives.
func dedupeItems(items []Item) []Item {
	seen := make(map[string]bool, len(items))
	out := items[:0]
	for _, item := range items {
		prefix := item.Content
		if len(prefix) > 100 {
			prefix = prefix[:100]
		}
		key := item.Source + "|" + prefix
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, item)
	}
	return out
}
