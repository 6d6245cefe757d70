package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mmerah/ai-gamemaster/internal/domain"
	"github.com/mmerah/ai-gamemaster/internal/logging"
)

// UpsertPack creates or updates a content pack row. CreatedAt is preserved
// on update; UpdatedAt always moves to now.
func (s *ContentStore) UpsertPack(ctx context.Context, p domain.ContentPack) error {
	if err := p.Validate(); err != nil {
		return err
	}
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO content_packs (id, name, description, version, author, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			version = excluded.version,
			author = excluded.author,
			is_active = excluded.is_active,
			updated_at = excluded.updated_at`,
		p.ID, p.Name, p.Description, p.Version, p.Author, p.IsActive, now, now)
	if err != nil {
		return &domain.DatabaseError{Op: "UpsertPack", Context: p.ID, Err: err}
	}
	logging.StoreDebug("Pack upserted: %s (version %s, active=%v)", p.ID, p.Version, p.IsActive)
	return nil
}

// GetPack returns one pack by id, or domain.ErrNotFound.
func (s *ContentStore) GetPack(ctx context.Context, id string) (domain.ContentPack, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, version, author, is_active, created_at, updated_at
		FROM content_packs WHERE id = ?`, id)
	p, err := scanPack(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ContentPack{}, fmt.Errorf("content pack %q: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domain.ContentPack{}, &domain.DatabaseError{Op: "GetPack", Context: id, Err: err}
	}
	return p, nil
}

// ListPacks returns every pack, active or not, ordered by id.
func (s *ContentStore) ListPacks(ctx context.Context) ([]domain.ContentPack, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, version, author, is_active, created_at, updated_at
		FROM content_packs ORDER BY id`)
	if err != nil {
		return nil, &domain.DatabaseError{Op: "ListPacks", Err: err}
	}
	defer rows.Close()

	var out []domain.ContentPack
	for rows.Next() {
		p, err := scanPack(rows)
		if err != nil {
			return nil, &domain.DatabaseError{Op: "ListPacks", Err: err}
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ActivePackIDs returns the ids of all active packs, ordered by id. This is
// the default visibility set for lookups with no priority list.
func (s *ContentStore) ActivePackIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id FROM content_packs WHERE is_active = 1 ORDER BY id")
	if err != nil {
		return nil, &domain.DatabaseError{Op: "ActivePackIDs", Err: err}
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, &domain.DatabaseError{Op: "ActivePackIDs", Err: err}
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// SetPackActive toggles a pack's activation flag. Takes effect for
// repositories constructed afterwards; running sessions keep the visibility
// they started with.
func (s *ContentStore) SetPackActive(ctx context.Context, id string, active bool) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE content_packs SET is_active = ?, updated_at = ? WHERE id = ?",
		active, time.Now().UTC().Format(time.RFC3339), id)
	if err != nil {
		return &domain.DatabaseError{Op: "SetPackActive", Context: id, Err: err}
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("content pack %q: %w", id, domain.ErrNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPack(r rowScanner) (domain.ContentPack, error) {
	var p domain.ContentPack
	var created, updated string
	if err := r.Scan(&p.ID, &p.Name, &p.Description, &p.Version, &p.Author,
		&p.IsActive, &created, &updated); err != nil {
		return domain.ContentPack{}, err
	}
	p.CreatedAt = parseStoredTime(created)
	p.UpdatedAt = parseStoredTime(updated)
	return p, nil
}

// parseStoredTime accepts both the RFC3339 stamps this code writes and the
// "YYYY-MM-DD HH:MM:SS" form SQLite's CURRENT_TIMESTAMP default produces.
func parseStoredTime(s string) time.Time {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
		return t
	}
	return time.Time{}
}
