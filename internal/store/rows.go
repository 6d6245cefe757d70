package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mmerah/ai-gamemaster/internal/domain"
	"github.com/mmerah/ai-gamemaster/internal/logging"
)

// UpsertEntity writes one catalog row. Conflicts on (idx, content_pack_id)
// update the document and promoted columns in place; a stored embedding is
// preserved so re-ingesting does not force a re-index.
func (s *ContentStore) UpsertEntity(ctx context.Context, kind string, e domain.Entity) error {
	if !domain.IsKind(kind) {
		return &domain.InvalidArgumentError{Arg: "kind", Value: kind, Reason: "not a catalog kind"}
	}
	if err := e.Validate(); err != nil {
		return err
	}
	packID := e.GetContentPackID()
	if packID == "" {
		return &domain.InvalidArgumentError{Arg: "entity", Value: e.GetIndex(),
			Reason: "entity carries no content pack id"}
	}

	// The pack id lives in its own column; the data document must not carry
	// it, so rows move between packs without a JSON rewrite.
	e.SetContentPackID("")
	data, err := json.Marshal(e)
	e.SetContentPackID(packID)
	if err != nil {
		return &domain.DatabaseError{Op: "UpsertEntity", Context: kind, Err: err}
	}

	cols := []string{"idx", "name", "url", "content_pack_id", "data"}
	args := []any{e.GetIndex(), e.GetName(), e.GetURL(), packID, string(data)}
	for _, c := range promotedColumns[kind] {
		cols = append(cols, c.Name)
		args = append(args, c.Value(e))
	}

	updates := make([]string, 0, len(cols)-2)
	for _, c := range cols {
		if c == "idx" || c == "content_pack_id" {
			continue
		}
		updates = append(updates, fmt.Sprintf("%s = excluded.%s", c, c))
	}

	stmt := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT(idx, content_pack_id) DO UPDATE SET %s",
		kind,
		strings.Join(cols, ", "),
		strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", "),
		strings.Join(updates, ", "))

	if _, err := s.db.ExecContext(ctx, stmt, args...); err != nil {
		return &domain.DatabaseError{Op: "UpsertEntity",
			Context: fmt.Sprintf("%s/%s", kind, e.GetIndex()), Err: err}
	}
	return nil
}

// UpdateEmbedding stores the vector for one row. The vector must match the
// store's configured dimension exactly.
func (s *ContentStore) UpdateEmbedding(ctx context.Context, kind, idx, packID string, vec []float32) error {
	if !domain.IsKind(kind) {
		return &domain.InvalidArgumentError{Arg: "kind", Value: kind, Reason: "not a catalog kind"}
	}
	if len(vec) != s.dim {
		return &domain.InvalidArgumentError{Arg: "vec", Value: len(vec),
			Reason: fmt.Sprintf("dimension mismatch: store configured for %d", s.dim)}
	}

	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf("UPDATE %s SET embedding = ? WHERE idx = ? AND content_pack_id = ?", kind),
		EncodeVector(vec), idx, packID)
	if err != nil {
		return &domain.DatabaseError{Op: "UpdateEmbedding",
			Context: fmt.Sprintf("%s/%s", kind, idx), Err: err}
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s/%s in pack %s: %w", kind, idx, packID, domain.ErrNotFound)
	}
	return nil
}

// PendingRow is one catalog row as the indexing job sees it: enough to
// rebuild the embedding text and to decide whether the stored vector is
// already usable.
type PendingRow struct {
	Index  string
	PackID string
	Data   []byte
	// Dim is the stored embedding's element count; 0 when the row has none.
	Dim int
}

// RowsForIndexing returns every row of a kind with its current embedding
// dimension. The indexing job filters on Dim to skip rows that already
// carry a correct vector.
func (s *ContentStore) RowsForIndexing(ctx context.Context, kind string) ([]PendingRow, error) {
	if !domain.IsKind(kind) {
		return nil, &domain.InvalidArgumentError{Arg: "kind", Value: kind, Reason: "not a catalog kind"}
	}

	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf("SELECT idx, content_pack_id, data, embedding FROM %s ORDER BY content_pack_id, idx", kind))
	if err != nil {
		return nil, &domain.DatabaseError{Op: "RowsForIndexing", Context: kind, Err: err}
	}
	defer rows.Close()

	var out []PendingRow
	for rows.Next() {
		var r PendingRow
		var data string
		var blob []byte
		if err := rows.Scan(&r.Index, &r.PackID, &data, &blob); err != nil {
			return nil, &domain.DatabaseError{Op: "RowsForIndexing", Context: kind, Err: err}
		}
		r.Data = []byte(data)
		if len(blob) > 0 && len(blob)%4 == 0 {
			r.Dim = len(blob) / 4
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.DatabaseError{Op: "RowsForIndexing", Context: kind, Err: err}
	}
	logging.StoreDebug("RowsForIndexing(%s): %d rows", kind, len(out))
	return out, nil
}
