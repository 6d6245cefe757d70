package kb

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mmerah/ai-gamemaster/internal/embedding"
	"github.com/mmerah/ai-gamemaster/internal/logging"
)

// =============================================================================
// CAMPAIGN MEMORY
// =============================================================================

// LoreDocument is one campaign-specific lore entry loaded at activation.
type LoreDocument struct {
	Key      string
	Content  string
	Metadata map[string]any
}

// EventRecord is one appended campaign event.
type EventRecord struct {
	ID        string
	Timestamp time.Time
	Summary   string
	Keywords  []string
}

// memoryDoc is a stored document with its cached embedding.
type memoryDoc struct {
	key      string
	content  string
	metadata map[string]any
	vec      []float32
}

// campaignMemory holds one campaign's in-memory collections.
type campaignMemory struct {
	lore   []memoryDoc
	events []memoryDoc
}

// CampaignStore keeps per-campaign lore and event collections in memory with
// embeddings cached at write time, so searches never re-embed documents.
// Safe for concurrent use.
type CampaignStore struct {
	engine embedding.Engine

	mu        sync.RWMutex
	campaigns map[string]*campaignMemory
}

// NewCampaignStore creates an empty campaign store backed by the given
// embedding engine.
func NewCampaignStore(engine embedding.Engine) *CampaignStore {
	return &CampaignStore{
		engine:    engine,
		campaigns: make(map[string]*campaignMemory),
	}
}

// ActivateCampaign loads (or replaces) a campaign's lore collection, embedding
// every document once up front.
func (cs *CampaignStore) ActivateCampaign(ctx context.Context, campaignID string, lore []LoreDocument) error {
	timer := logging.StartTimer(logging.CategoryCampaign, "ActivateCampaign")
	defer timer.Stop()

	texts := make([]string, len(lore))
	for i, doc := range lore {
		texts[i] = doc.Content
	}

	var vecs [][]float32
	if len(texts) > 0 {
		var err error
		vecs, err = cs.engine.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("embedding lore for campaign %s: %w", campaignID, err)
		}
		if len(vecs) != len(lore) {
			return fmt.Errorf("engine returned %d vectors for %d lore documents", len(vecs), len(lore))
		}
	}

	docs := make([]memoryDoc, len(lore))
	for i, doc := range lore {
		docs[i] = memoryDoc{
			key:      doc.Key,
			content:  doc.Content,
			metadata: doc.Metadata,
			vec:      vecs[i],
		}
	}

	cs.mu.Lock()
	mem := cs.campaigns[campaignID]
	if mem == nil {
		mem = &campaignMemory{}
		cs.campaigns[campaignID] = mem
	}
	mem.lore = docs
	cs.mu.Unlock()

	logging.Campaign("Campaign %s activated with %d lore documents", campaignID, len(docs))
	return nil
}

// DeactivateCampaign drops a campaign's collections.
func (cs *CampaignStore) DeactivateCampaign(campaignID string) {
	cs.mu.Lock()
	delete(cs.campaigns, campaignID)
	cs.mu.Unlock()
	logging.Campaign("Campaign %s deactivated", campaignID)
}

// RecordEvent appends an event to a campaign's event collection, embedding it
// immediately. The campaign is created on first event if it was never
// activated. Events are append-only; the record carries a wall-clock
// timestamp and a generated id.
func (cs *CampaignStore) RecordEvent(ctx context.Context, campaignID, summary string, keywords []string) (*EventRecord, error) {
	if strings.TrimSpace(summary) == "" {
		return nil, fmt.Errorf("event summary must not be empty")
	}

	text := summary
	if len(keywords) > 0 {
		text = summary + " | " + strings.Join(keywords, ", ")
	}
	vec, err := cs.engine.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embedding event for campaign %s: %w", campaignID, err)
	}

	rec := &EventRecord{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Summary:   summary,
		Keywords:  keywords,
	}

	cs.mu.Lock()
	mem := cs.campaigns[campaignID]
	if mem == nil {
		mem = &campaignMemory{}
		cs.campaigns[campaignID] = mem
	}
	mem.events = append(mem.events, memoryDoc{
		key:     rec.ID,
		content: summary,
		metadata: map[string]any{
			"event_id":  rec.ID,
			"timestamp": rec.Timestamp.Format(time.RFC3339),
			"keywords":  keywords,
		},
		vec: vec,
	})
	cs.mu.Unlock()

	logging.CampaignDebug("Campaign %s event recorded: %s", campaignID, rec.ID)
	return rec, nil
}

// ActiveCampaigns returns the ids of campaigns holding any collection, sorted.
func (cs *CampaignStore) ActiveCampaigns() []string {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	ids := make([]string, 0, len(cs.campaigns))
	for id := range cs.campaigns {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// EventCount returns the number of recorded events for a campaign.
func (cs *CampaignStore) EventCount(campaignID string) int {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	if mem := cs.campaigns[campaignID]; mem != nil {
		return len(mem.events)
	}
	return 0
}

// scoredDoc pairs a document with its query similarity.
type scoredDoc struct {
	doc   memoryDoc
	score float64
}

// search ranks one campaign collection against a query vector by cosine
// similarity clamped to [0,1], filters by threshold, and returns the top k.
func (cs *CampaignStore) search(campaignID, collection string, queryVec []float32, k int, threshold float64) []scoredDoc {
	cs.mu.RLock()
	mem := cs.campaigns[campaignID]
	var docs []memoryDoc
	if mem != nil {
		switch collection {
		case "lore":
			docs = mem.lore
		case "events":
			docs = mem.events
		}
	}
	// Copy the slice header under the lock; docs themselves are immutable
	// once stored.
	snapshot := make([]memoryDoc, len(docs))
	copy(snapshot, docs)
	cs.mu.RUnlock()

	scored := make([]scoredDoc, 0, len(snapshot))
	for _, doc := range snapshot {
		cos, err := embedding.CosineSimilarity(queryVec, doc.vec)
		if err != nil {
			logging.CampaignDebug("Skipping %s/%s doc %s: %v", campaignID, collection, doc.key, err)
			continue
		}
		score := cos
		if score < 0 {
			score = 0
		} else if score > 1 {
			score = 1
		}
		if score < threshold {
			continue
		}
		scored = append(scored, scoredDoc{doc: doc, score: score})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		return scored[i].doc.key < scored[j].doc.key
	})
	if k > 0 && len(scored) > k {
		scored = scored[:k]
	}
	return scored
}
