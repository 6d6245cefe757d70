// Package retrieval executes planned queries against the knowledge base and
// filters the combined results down to a small, high-signal context block.
package retrieval

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mmerah/ai-gamemaster/internal/config"
	"github.com/mmerah/ai-gamemaster/internal/kb"
	"github.com/mmerah/ai-gamemaster/internal/logging"
	"github.com/mmerah/ai-gamemaster/internal/planner"
)

// Searcher is the knowledge base surface the orchestrator consumes.
// *kb.Manager satisfies it.
type Searcher interface {
	Search(ctx context.Context, query string, kbTypes []string, k int, scoreThreshold float64) (*kb.Results, error)
}

// =============================================================================
// ORCHESTRATOR
// =============================================================================

// Orchestrator runs planned queries in priority order and applies per-source
// caps, a relevance floor, action-keyword boosting, near-duplicate removal,
// and a global cap. Individual source failures are logged, never raised.
type Orchestrator struct {
	kb  Searcher
	cfg config.RAGConfig
}

// NewOrchestrator wires an orchestrator over a knowledge base.
func NewOrchestrator(searcher Searcher, cfg config.RAGConfig) *Orchestrator {
	return &Orchestrator{kb: searcher, cfg: cfg}
}

// Retrieve executes the plan for one player action. The action text drives
// keyword boosting; queries carry their own search text.
func (o *Orchestrator) Retrieve(ctx context.Context, action string, queries []planner.Query) *kb.Results {
	start := time.Now()
	timer := logging.StartTimer(logging.CategoryRetrieval, "Retrieve")
	defer timer.Stop()

	if !o.cfg.Enabled || len(queries) == 0 {
		return &kb.Results{}
	}

	ordered := make([]planner.Query, len(queries))
	copy(ordered, queries)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Kind.Priority() < ordered[j].Kind.Priority()
	})

	var collected []kb.Item
	totalQueries := 0
	for _, q := range ordered {
		res, err := o.kb.Search(ctx, q.Text, q.KBTypeFilter, o.cfg.MaxResultsPerSource, o.cfg.ScoreThreshold)
		if err != nil {
			logging.Get(logging.CategoryRetrieval).Warn("Query %s failed: %v", q, err)
			continue
		}
		totalQueries += res.TotalQueries
		collected = append(collected, res.Items...)
	}

	items := o.capPerSource(collected)
	items = o.applyFloor(items)
	items = o.boostByAction(action, items)
	sortByScore(items)
	items = o.dedupeNearDuplicates(items)
	if limit := o.cfg.MaxTotalResults; limit > 0 && len(items) > limit {
		items = items[:limit]
	}

	elapsed := float64(time.Since(start).Microseconds()) / 1000.0
	logging.Retrieval("Retrieved %d items from %d queries (%d raw) in %.1fms",
		len(items), totalQueries, len(collected), elapsed)
	return &kb.Results{Items: items, TotalQueries: totalQueries, ElapsedMS: elapsed}
}

// capPerSource keeps each source's best items, bounded by the per-source cap.
func (o *Orchestrator) capPerSource(items []kb.Item) []kb.Item {
	limit := o.cfg.MaxResultsPerSource
	if limit <= 0 || len(items) == 0 {
		return items
	}

	grouped := make(map[string][]kb.Item)
	var sources []string
	for _, item := range items {
		if _, seen := grouped[item.Source]; !seen {
			sources = append(sources, item.Source)
		}
		grouped[item.Source] = append(grouped[item.Source], item)
	}
	sort.Strings(sources)

	var out []kb.Item
	for _, source := range sources {
		group := grouped[source]
		sortByScore(group)
		if len(group) > limit {
			group = group[:limit]
		}
		out = append(out, group...)
	}
	return out
}

// applyFloor drops items under the similarity threshold before boosting.
func (o *Orchestrator) applyFloor(items []kb.Item) []kb.Item {
	out := items[:0]
	for _, item := range items {
		if item.RelevanceScore >= o.cfg.SimilarityThreshold {
			out = append(out, item)
		}
	}
	return out
}

// boostByAction raises scores of items sharing words with the raw action:
// min(weight * matches, cap).
func (o *Orchestrator) boostByAction(action string, items []kb.Item) []kb.Item {
	actionWords := wordSet(action, 0)
	if len(actionWords) == 0 {
		return items
	}
	for i := range items {
		matches := 0
		for word := range wordSet(items[i].Content, 0) {
			if actionWords[word] {
				matches++
			}
		}
		if matches == 0 {
			continue
		}
		boost := o.cfg.KeywordBoostWeight * float64(matches)
		if boost > o.cfg.KeywordBoostCap {
			boost = o.cfg.KeywordBoostCap
		}
		items[i].RelevanceScore += boost
	}
	return items
}

// dedupeNearDuplicates removes items whose normalized content prefix is
// Jaccard-similar to an already-kept item. Items arrive sorted, so the
// higher-scoring copy survives.
func (o *Orchestrator) dedupeNearDuplicates(items []kb.Item) []kb.Item {
	window := o.cfg.DedupTokenWindow
	if window <= 0 {
		window = 15
	}
	threshold := o.cfg.DedupJaccard
	if threshold <= 0 {
		threshold = 0.7
	}

	var kept []kb.Item
	var keptSets []map[string]bool
	for _, item := range items {
		set := wordSet(item.Content, window)
		dup := false
		for _, other := range keptSets {
			if jaccard(set, other) > threshold {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		kept = append(kept, item)
		keptSets = append(keptSets, set)
	}
	return kept
}

// FormatContext renders results as the context block injected into prompts.
// Empty results render as an empty string.
func FormatContext(res *kb.Results) string {
	if res == nil || len(res.Items) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("=== RELEVANT KNOWLEDGE ===\n")
	for _, item := range res.Items {
		fmt.Fprintf(&b, "[%s] %s\n", item.Source, item.Content)
	}
	b.WriteString("=== END RELEVANT KNOWLEDGE ===")
	return b.String()
}

// =============================================================================
// SCORING HELPERS
// =============================================================================

// sortByScore orders by score descending, ties by (source, index) ascending.
func sortByScore(items []kb.Item) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].RelevanceScore != items[j].RelevanceScore {
			return items[i].RelevanceScore > items[j].RelevanceScore
		}
		if items[i].Source != items[j].Source {
			return items[i].Source < items[j].Source
		}
		return itemIndex(items[i]) < itemIndex(items[j])
	})
}

// itemIndex is the tiebreak key: the catalog index when present, else the
// content itself.
func itemIndex(item kb.Item) string {
	if v, ok := item.Metadata["index"].(string); ok && v != "" {
		return v
	}
	return item.Content
}

// wordSet tokenizes to lowercase alphanumeric words. A positive limit keeps
// only the first limit tokens.
func wordSet(s string, limit int) map[string]bool {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte(' ')
		}
	}
	fields := strings.Fields(b.String())
	if limit > 0 && len(fields) > limit {
		fields = fields[:limit]
	}
	set := make(map[string]bool, len(fields))
	for _, f := range fields {
		set[f] = true
	}
	return set
}

// jaccard is intersection size over union size; two empty sets count as
// identical.
func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	inter := 0
	for w := range a {
		if b[w] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 1
	}
	return float64(inter) / float64(union)
}
