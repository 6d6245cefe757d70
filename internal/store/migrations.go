package store

import (
	"context"
	"fmt"

	"github.com/mmerah/ai-gamemaster/internal/domain"
	"github.com/mmerah/ai-gamemaster/internal/logging"
)

// Migration adds one column to one table when an older database predates
// that column. Migrations never drop or rewrite data.
type Migration struct {
	Table  string
	Column string
	Def    string
}

// pendingMigrations covers every promoted filter column. Databases created
// before a field was promoted carry only the data JSON; the migration pass
// adds the column so filtered scans work without a full re-ingest (values
// backfill on the next migrate run, since upserts rewrite promoted columns).
var pendingMigrations = func() []Migration {
	var ms []Migration
	for _, k := range domain.Kinds {
		for _, c := range promotedColumns[k.Name] {
			ms = append(ms, Migration{Table: k.Name, Column: c.Name, Def: c.Type})
		}
	}
	return ms
}()

// runMigrations applies the pending column migrations. Failures on a single
// column are logged and skipped; a column that already exists in another
// form must not block opening the store.
func (s *ContentStore) runMigrations() error {
	timer := logging.StartTimer(logging.CategoryStore, "store.runMigrations")
	defer timer.Stop()

	applied := 0
	skipped := 0
	for _, m := range pendingMigrations {
		if !s.tableExists(m.Table) {
			skipped++
			continue
		}
		if s.columnExists(m.Table, m.Column) {
			skipped++
			continue
		}
		stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", m.Table, m.Column, m.Def)
		if _, err := s.db.Exec(stmt); err != nil {
			logging.Get(logging.CategoryStore).Warn("Migration failed (may already exist): %s.%s: %v",
				m.Table, m.Column, err)
			skipped++
			continue
		}
		logging.Store("Migration applied: added %s.%s", m.Table, m.Column)
		applied++
	}

	logging.StoreDebug("Schema migrations complete: applied=%d, skipped=%d", applied, skipped)
	return nil
}

func (s *ContentStore) tableExists(table string) bool {
	var count int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table,
	).Scan(&count)
	if err != nil {
		logging.StoreDebug("Table existence check failed for %s: %v", table, err)
		return false
	}
	return count > 0
}

func (s *ContentStore) columnExists(table, column string) bool {
	rows, err := s.db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		logging.StoreDebug("PRAGMA table_info(%s) failed: %v", table, err)
		return false
	}
	defer rows.Close()

	for rows.Next() {
		var cid, notnull, pk int
		var name, ctype string
		var dflt any
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			continue
		}
		if name == column {
			return true
		}
	}
	return false
}

// RecordMigration appends one row to migration_history. The ingestion job
// calls this once per completed run so verification can show provenance.
func (s *ContentStore) RecordMigration(ctx context.Context, source, packID string, items int, details string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO migration_history (source, pack_id, items, details) VALUES (?, ?, ?, ?)",
		source, packID, items, details)
	if err != nil {
		return &domain.DatabaseError{Op: "RecordMigration", Context: source, Err: err}
	}
	return nil
}

// MigrationRecord is one row of migration_history.
type MigrationRecord struct {
	ID        int64
	Source    string
	PackID    string
	Items     int
	Details   string
	AppliedAt string
}

// MigrationHistory returns the most recent migration records, newest first.
func (s *ContentStore) MigrationHistory(ctx context.Context, limit int) ([]MigrationRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, source, pack_id, items, details, applied_at FROM migration_history ORDER BY id DESC LIMIT ?",
		limit)
	if err != nil {
		return nil, &domain.DatabaseError{Op: "MigrationHistory", Err: err}
	}
	defer rows.Close()

	var out []MigrationRecord
	for rows.Next() {
		var r MigrationRecord
		if err := rows.Scan(&r.ID, &r.Source, &r.PackID, &r.Items, &r.Details, &r.AppliedAt); err != nil {
			return nil, &domain.DatabaseError{Op: "MigrationHistory", Err: err}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
