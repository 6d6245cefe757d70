package store

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/mmerah/ai-gamemaster/internal/domain"
	"github.com/mmerah/ai-gamemaster/internal/logging"
)

// NNResult is one nearest-neighbor hit. Distance is L2 between unit
// vectors on both search paths, so callers map it to similarity the same
// way regardless of how the store executed the query.
type NNResult struct {
	Index    string
	Name     string
	URL      string
	PackID   string
	Data     []byte
	Distance float64
}

// NearestNeighbors returns the k rows of a kind table closest to the query
// vector, nearest first. Rows without an embedding never match. A non-empty
// packIDs list restricts matches to those packs.
//
// When the vector extension (or its compat shim) is available the ranking
// runs inside SQLite; otherwise rows are scanned and cosine-ranked in
// process with distances converted to the same L2 scale.
func (s *ContentStore) NearestNeighbors(ctx context.Context, kind string, query []float32, k int, packIDs []string) ([]NNResult, error) {
	if !domain.IsKind(kind) {
		return nil, &domain.InvalidArgumentError{Arg: "kind", Value: kind, Reason: "not a catalog kind"}
	}
	if len(query) != s.dim {
		return nil, &domain.InvalidArgumentError{Arg: "query", Value: len(query),
			Reason: fmt.Sprintf("dimension mismatch: store configured for %d", s.dim)}
	}
	if k <= 0 {
		k = 5
	}

	if s.VecAvailable() {
		return s.vecSearch(ctx, kind, query, k, packIDs)
	}
	return s.linearSearch(ctx, kind, query, k, packIDs)
}

func (s *ContentStore) vecSearch(ctx context.Context, kind string, query []float32, k int, packIDs []string) ([]NNResult, error) {
	where, args := packFilter(packIDs)
	args = append([]any{EncodeVector(query)}, args...)
	args = append(args, k)

	stmt := fmt.Sprintf(`
		SELECT idx, name, url, content_pack_id, data, vec_distance_l2(embedding, ?) AS distance
		FROM %s
		WHERE embedding IS NOT NULL%s
		ORDER BY distance, idx
		LIMIT ?`, kind, where)

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, &domain.DatabaseError{Op: "NearestNeighbors", Context: kind, Err: err}
	}
	defer rows.Close()

	var out []NNResult
	for rows.Next() {
		var r NNResult
		var data string
		if err := rows.Scan(&r.Index, &r.Name, &r.URL, &r.PackID, &data, &r.Distance); err != nil {
			return nil, &domain.DatabaseError{Op: "NearestNeighbors", Context: kind, Err: err}
		}
		r.Data = []byte(data)
		out = append(out, r)
	}
	return out, rows.Err()
}

// linearSearch is the fallback: identical contract, higher latency.
func (s *ContentStore) linearSearch(ctx context.Context, kind string, query []float32, k int, packIDs []string) ([]NNResult, error) {
	where, args := packFilter(packIDs)
	stmt := fmt.Sprintf(`
		SELECT idx, name, url, content_pack_id, data, embedding
		FROM %s
		WHERE embedding IS NOT NULL%s`, kind, where)

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, &domain.DatabaseError{Op: "NearestNeighbors", Context: kind, Err: err}
	}
	defer rows.Close()

	var out []NNResult
	for rows.Next() {
		var r NNResult
		var data string
		var blob []byte
		if err := rows.Scan(&r.Index, &r.Name, &r.URL, &r.PackID, &data, &blob); err != nil {
			return nil, &domain.DatabaseError{Op: "NearestNeighbors", Context: kind, Err: err}
		}
		vec, err := DecodeVector(blob)
		if err != nil || len(vec) != s.dim {
			logging.StoreDebug("Skipping %s/%s: unusable embedding (%v, dim %d)",
				kind, r.Index, err, len(vec))
			continue
		}
		r.Data = []byte(data)
		r.Distance = cosineToL2(cosineSimilarity(query, vec))
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.DatabaseError{Op: "NearestNeighbors", Context: kind, Err: err}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Distance != out[j].Distance {
			return out[i].Distance < out[j].Distance
		}
		return out[i].Index < out[j].Index
	})
	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}

func packFilter(packIDs []string) (string, []any) {
	if len(packIDs) == 0 {
		return "", nil
	}
	args := make([]any, len(packIDs))
	for i, id := range packIDs {
		args[i] = id
	}
	return fmt.Sprintf(" AND content_pack_id IN (%s)",
		strings.TrimSuffix(strings.Repeat("?, ", len(packIDs)), ", ")), args
}
