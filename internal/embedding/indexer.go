package embedding

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mmerah/ai-gamemaster/internal/domain"
	"github.com/mmerah/ai-gamemaster/internal/logging"
	"github.com/mmerah/ai-gamemaster/internal/store"
)

// =============================================================================
// INDEXING JOB
// =============================================================================

// DefaultBatchSize is the number of texts sent per EmbedBatch call.
const DefaultBatchSize = 32

// Indexer walks the catalog kind by kind and writes an embedding for every
// row that lacks one. The job is idempotent and resumable: rows already
// carrying a vector of the store's dimension are skipped unless forced, so
// an interrupted run picks up where it stopped.
type Indexer struct {
	store     *store.ContentStore
	engine    Engine
	batchSize int
}

// NewIndexer creates an indexing job over the given store and engine.
func NewIndexer(s *store.ContentStore, engine Engine, batchSize int) *Indexer {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Indexer{store: s, engine: engine, batchSize: batchSize}
}

// pendingText pairs a row needing an embedding with its formatted text.
type pendingText struct {
	index  string
	packID string
	text   string
}

// Run embeds every row missing a correct-dimension vector and returns the
// number of rows embedded per kind. With force set, all rows re-embed.
func (ix *Indexer) Run(ctx context.Context, force bool) (map[string]int, error) {
	timer := logging.StartTimer(logging.CategoryEmbedding, "Indexer.Run")
	defer timer.Stop()

	logging.Embedding("Indexing catalog with engine=%s (force=%v, batch=%d)",
		ix.engine.Name(), force, ix.batchSize)

	counts := make(map[string]int)
	for _, kind := range domain.Kinds {
		if err := ctx.Err(); err != nil {
			return counts, err
		}
		n, err := ix.indexKind(ctx, kind, force)
		if err != nil {
			return counts, fmt.Errorf("indexing %s: %w", kind.Name, err)
		}
		counts[kind.Name] = n
	}
	return counts, nil
}

func (ix *Indexer) indexKind(ctx context.Context, kind domain.KindInfo, force bool) (int, error) {
	rows, err := ix.store.RowsForIndexing(ctx, kind.Name)
	if err != nil {
		return 0, err
	}

	want := ix.store.Dimension()
	var pending []pendingText
	for _, row := range rows {
		if !force && row.Dim == want {
			continue
		}
		text, err := ix.rowText(kind, row)
		if err != nil {
			logging.Get(logging.CategoryEmbedding).Warn(
				"Skipping undecodable %s row %s/%s: %v", kind.Name, row.PackID, row.Index, err)
			continue
		}
		pending = append(pending, pendingText{index: row.Index, packID: row.PackID, text: text})
	}
	if len(pending) == 0 {
		logging.EmbeddingDebug("%s: all %d rows already embedded", kind.Name, len(rows))
		return 0, nil
	}

	embedded := 0
	for start := 0; start < len(pending); start += ix.batchSize {
		if err := ctx.Err(); err != nil {
			return embedded, err
		}
		end := start + ix.batchSize
		if end > len(pending) {
			end = len(pending)
		}
		batch := pending[start:end]

		texts := make([]string, len(batch))
		for i, p := range batch {
			texts[i] = p.text
		}
		vecs, err := ix.engine.EmbedBatch(ctx, texts)
		if err != nil {
			return embedded, fmt.Errorf("embedding batch at row %d: %w", start, err)
		}
		if len(vecs) != len(batch) {
			return embedded, fmt.Errorf("engine returned %d vectors for %d texts", len(vecs), len(batch))
		}

		for i, vec := range vecs {
			if len(vec) != want {
				return embedded, fmt.Errorf("engine %s returned %d dimensions, store expects %d",
					ix.engine.Name(), len(vec), want)
			}
			if err := ix.store.UpdateEmbedding(ctx, kind.Name, batch[i].index, batch[i].packID, vec); err != nil {
				return embedded, err
			}
			embedded++
		}
	}

	logging.Embedding("%s: embedded %d/%d rows", kind.Name, embedded, len(rows))
	return embedded, nil
}

// rowText decodes a stored row back into its entity and formats the
// kind-specific embedding text.
func (ix *Indexer) rowText(kind domain.KindInfo, row store.PendingRow) (string, error) {
	e := kind.New()
	if err := json.Unmarshal(row.Data, e); err != nil {
		return "", err
	}
	e.SetContentPackID(row.PackID)
	return e.EmbeddingText(), nil
}
