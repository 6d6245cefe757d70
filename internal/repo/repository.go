package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/mmerah/ai-gamemaster/internal/domain"
	"github.com/mmerah/ai-gamemaster/internal/logging"
	"github.com/mmerah/ai-gamemaster/internal/store"
)

// KindRepository serves one catalog kind. All methods take an optional
// content-pack priority list: point lookups return the first match walking
// the priority ids in order, then any active pack; list operations show one
// row per index, the highest-priority pack winning. With no priority, only
// active packs are visible, and results are stable for the process lifetime
// (pack id order breaks ties).
type KindRepository struct {
	store   *store.ContentStore
	kind    domain.KindInfo
	mapping *FieldMapping
}

// NewKindRepository builds a repository for one of the 25 catalog kinds.
func NewKindRepository(s *store.ContentStore, kind string) (*KindRepository, error) {
	k, ok := domain.KindByName(kind)
	if !ok {
		return nil, &domain.InvalidArgumentError{Arg: "kind", Value: kind, Reason: "not a catalog kind"}
	}
	return &KindRepository{store: s, kind: k, mapping: mappingFor(kind)}, nil
}

// Kind returns the table/kind name this repository serves.
func (r *KindRepository) Kind() string { return r.kind.Name }

// GetByIndex returns the entity with the given index, or domain.ErrNotFound.
func (r *KindRepository) GetByIndex(ctx context.Context, idx string, packPriority ...string) (domain.Entity, error) {
	return r.pointLookup(ctx, "GetByIndex", "idx = ?", []any{idx}, idx, packPriority)
}

// GetByName returns the entity with the given name, compared
// case-insensitively, or domain.ErrNotFound.
func (r *KindRepository) GetByName(ctx context.Context, name string, packPriority ...string) (domain.Entity, error) {
	return r.pointLookup(ctx, "GetByName", "name = ? COLLATE NOCASE", []any{name}, name, packPriority)
}

// ListAll returns every visible entity, one per index, ordered by index.
func (r *KindRepository) ListAll(ctx context.Context, packPriority ...string) ([]domain.Entity, error) {
	return r.listWhere(ctx, "ListAll", "1 = 1", nil, packPriority)
}

// Search returns entities whose name contains the substring,
// case-insensitively.
func (r *KindRepository) Search(ctx context.Context, substring string, packPriority ...string) ([]domain.Entity, error) {
	return r.listWhere(ctx, "Search",
		"instr(lower(name), lower(?)) > 0", []any{substring}, packPriority)
}

// FilterBy returns entities matching every field=value pair. Fields must be
// promoted columns of this kind; anything else is an InvalidArgumentError.
func (r *KindRepository) FilterBy(ctx context.Context, filters map[string]any, packPriority ...string) ([]domain.Entity, error) {
	if len(filters) == 0 {
		return r.ListAll(ctx, packPriority...)
	}

	fields := make([]string, 0, len(filters))
	for f := range filters {
		if !r.mapping.FilterFields[f] {
			return nil, &domain.InvalidArgumentError{Arg: "filter", Value: f,
				Reason: fmt.Sprintf("not a filterable column of %s", r.kind.Name)}
		}
		fields = append(fields, f)
	}
	sort.Strings(fields)

	conds := make([]string, len(fields))
	args := make([]any, len(fields))
	for i, f := range fields {
		conds[i] = f + " = ?"
		args[i] = filters[f]
	}
	return r.listWhere(ctx, "FilterBy", strings.Join(conds, " AND "), args, packPriority)
}

// Exists reports whether any visible pack carries the index.
func (r *KindRepository) Exists(ctx context.Context, idx string, packPriority ...string) (bool, error) {
	packs, err := r.visiblePacks(ctx, packPriority)
	if err != nil {
		return false, err
	}
	if len(packs) == 0 {
		return false, nil
	}
	where, packArgs := packsClause(packs)
	var n int
	err = r.store.DB().QueryRowContext(ctx,
		fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE idx = ? AND %s", r.kind.Name, where),
		append([]any{idx}, packArgs...)...).Scan(&n)
	if err != nil {
		return false, &domain.DatabaseError{Op: "Exists", Context: r.kind.Name, Err: err}
	}
	return n > 0, nil
}

// Count returns the number of distinct indices visible.
func (r *KindRepository) Count(ctx context.Context, packPriority ...string) (int, error) {
	packs, err := r.visiblePacks(ctx, packPriority)
	if err != nil {
		return 0, err
	}
	if len(packs) == 0 {
		return 0, nil
	}
	where, packArgs := packsClause(packs)
	var n int
	err = r.store.DB().QueryRowContext(ctx,
		fmt.Sprintf("SELECT COUNT(DISTINCT idx) FROM %s WHERE %s", r.kind.Name, where),
		packArgs...).Scan(&n)
	if err != nil {
		return 0, &domain.DatabaseError{Op: "Count", Context: r.kind.Name, Err: err}
	}
	return n, nil
}

// Indices returns every visible index, sorted.
func (r *KindRepository) Indices(ctx context.Context, packPriority ...string) ([]string, error) {
	packs, err := r.visiblePacks(ctx, packPriority)
	if err != nil {
		return nil, err
	}
	if len(packs) == 0 {
		return nil, nil
	}
	where, packArgs := packsClause(packs)
	rows, err := r.store.DB().QueryContext(ctx,
		fmt.Sprintf("SELECT DISTINCT idx FROM %s WHERE %s ORDER BY idx", r.kind.Name, where),
		packArgs...)
	if err != nil {
		return nil, &domain.DatabaseError{Op: "Indices", Context: r.kind.Name, Err: err}
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var idx string
		if err := rows.Scan(&idx); err != nil {
			return nil, &domain.DatabaseError{Op: "Indices", Context: r.kind.Name, Err: err}
		}
		out = append(out, idx)
	}
	return out, rows.Err()
}

// Names returns the display names of every visible entity, sorted. Where
// packs override the same index, the winning pack's name is reported.
func (r *KindRepository) Names(ctx context.Context, packPriority ...string) ([]string, error) {
	cands, err := r.dedupedRows(ctx, "Names", "1 = 1", nil, packPriority)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(cands))
	for _, c := range cands {
		names = append(names, c.name)
	}
	sort.Strings(names)
	return names, nil
}

// --- internals ---

type candidateRow struct {
	idx    string
	name   string
	packID string
	data   []byte
	rank   int
}

// visiblePacks builds the ordered pack set for one call: the priority ids
// as given, then the remaining active packs.
func (r *KindRepository) visiblePacks(ctx context.Context, priority []string) ([]string, error) {
	active, err := r.store.ActivePackIDs(ctx)
	if err != nil {
		return nil, err
	}
	if len(priority) == 0 {
		return active, nil
	}
	seen := make(map[string]bool, len(priority)+len(active))
	out := make([]string, 0, len(priority)+len(active))
	for _, id := range priority {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	for _, id := range active {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out, nil
}

func packsClause(packs []string) (string, []any) {
	args := make([]any, len(packs))
	for i, id := range packs {
		args[i] = id
	}
	return fmt.Sprintf("content_pack_id IN (%s)",
		strings.TrimSuffix(strings.Repeat("?, ", len(packs)), ", ")), args
}

// pointLookup returns the best-ranked row matching the condition, skipping
// rows that fail to decode so a corrupt override never shadows a valid base
// entity.
func (r *KindRepository) pointLookup(ctx context.Context, op, cond string, condArgs []any, key string, priority []string) (domain.Entity, error) {
	cands, err := r.dedupedRowsAll(ctx, op, cond, condArgs, priority)
	if err != nil {
		return nil, err
	}
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].rank != cands[j].rank {
			return cands[i].rank < cands[j].rank
		}
		return cands[i].packID < cands[j].packID
	})
	for _, c := range cands {
		e, err := r.decode(c.data, c.packID)
		if err != nil {
			logging.Get(logging.CategoryRepo).Warn("Skipping bad row %s/%s in pack %s: %v",
				r.kind.Name, c.idx, c.packID, err)
			continue
		}
		return e, nil
	}
	return nil, fmt.Errorf("%s %q: %w", r.kind.Label, key, domain.ErrNotFound)
}

// listWhere runs a filtered scan, dedupes by index with the pack ranking,
// decodes, and returns entities ordered by index. Rows that fail validation
// are logged and skipped; the rest of the batch still returns.
func (r *KindRepository) listWhere(ctx context.Context, op, cond string, condArgs []any, priority []string) ([]domain.Entity, error) {
	cands, err := r.dedupedRows(ctx, op, cond, condArgs, priority)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Entity, 0, len(cands))
	for _, c := range cands {
		e, err := r.decode(c.data, c.packID)
		if err != nil {
			logging.Get(logging.CategoryRepo).Warn("Skipping bad row %s/%s in pack %s: %v",
				r.kind.Name, c.idx, c.packID, err)
			continue
		}
		out = append(out, e)
	}
	logging.RepoDebug("%s(%s): %d entities", op, r.kind.Name, len(out))
	return out, nil
}

// dedupedRows keeps the best-ranked row per index, sorted by index.
func (r *KindRepository) dedupedRows(ctx context.Context, op, cond string, condArgs []any, priority []string) ([]candidateRow, error) {
	all, err := r.dedupedRowsAll(ctx, op, cond, condArgs, priority)
	if err != nil {
		return nil, err
	}
	best := make(map[string]candidateRow, len(all))
	for _, c := range all {
		cur, ok := best[c.idx]
		if !ok || c.rank < cur.rank || (c.rank == cur.rank && c.packID < cur.packID) {
			best[c.idx] = c
		}
	}
	out := make([]candidateRow, 0, len(best))
	for _, c := range best {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].idx < out[j].idx })
	return out, nil
}

// dedupedRowsAll fetches every matching row in the visible packs, tagged
// with its pack rank. No dedupe; point lookups want all candidates.
func (r *KindRepository) dedupedRowsAll(ctx context.Context, op, cond string, condArgs []any, priority []string) ([]candidateRow, error) {
	packs, err := r.visiblePacks(ctx, priority)
	if err != nil {
		return nil, err
	}
	if len(packs) == 0 {
		return nil, nil
	}
	rank := make(map[string]int, len(packs))
	for i, id := range packs {
		rank[id] = i
	}

	where, packArgs := packsClause(packs)
	stmt := fmt.Sprintf("SELECT idx, name, content_pack_id, data FROM %s WHERE (%s) AND %s",
		r.kind.Name, cond, where)

	rows, err := r.store.DB().QueryContext(ctx, stmt, append(condArgs, packArgs...)...)
	if err != nil {
		return nil, &domain.DatabaseError{Op: op, Context: r.kind.Name, Err: err}
	}
	defer rows.Close()

	var out []candidateRow
	for rows.Next() {
		var c candidateRow
		var data string
		if err := rows.Scan(&c.idx, &c.name, &c.packID, &data); err != nil {
			return nil, &domain.DatabaseError{Op: op, Context: r.kind.Name, Err: err}
		}
		c.data = []byte(data)
		c.rank = rank[c.packID]
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.DatabaseError{Op: op, Context: r.kind.Name, Err: err}
	}
	return out, nil
}

// decode turns a data document into a validated domain value. The pack id
// is stamped from the column, never trusted from the document.
func (r *KindRepository) decode(data []byte, packID string) (domain.Entity, error) {
	e := r.kind.New()
	if err := json.Unmarshal(data, e); err != nil {
		return nil, err
	}
	e.SetContentPackID(packID)
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}
