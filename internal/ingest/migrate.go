// Package ingest implements the one-shot migration job: a directory of
// SRD-shaped JSON files, one per catalog kind, loaded into the content store
// under a single content pack. The catalog is read-only at runtime; this job
// and the indexing job are its only writers.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mmerah/ai-gamemaster/internal/domain"
	"github.com/mmerah/ai-gamemaster/internal/logging"
	"github.com/mmerah/ai-gamemaster/internal/store"
)

// =============================================================================
// MIGRATION JOB
// =============================================================================

// KindCount tallies one kind's outcome.
type KindCount struct {
	Read    int
	Written int
	Skipped int
}

// Report is the outcome of one migration run.
type Report struct {
	PackID  string
	Files   int
	Written int
	Skipped int
	ByKind  map[string]KindCount
}

// Migrator loads catalog JSON into the content store. Records that fail to
// decode or validate are logged and skipped; rows never lose a stored
// embedding on re-ingest, so migrate followed by index stays cheap.
type Migrator struct {
	store *store.ContentStore
}

// NewMigrator creates a migration job over the given store.
func NewMigrator(s *store.ContentStore) *Migrator {
	return &Migrator{store: s}
}

// Run ingests every <kind>.json file under dir into the given pack. The pack
// row is upserted first so every catalog row references a registered pack.
// Kinds with no input file are skipped; a file that cannot be read or parsed
// fails the run. Completion appends one migration_history row recording
// provenance.
func (m *Migrator) Run(ctx context.Context, dir string, pack domain.ContentPack) (*Report, error) {
	timer := logging.StartTimer(logging.CategoryIngest, "Migrator.Run")
	defer timer.Stop()

	if err := pack.Validate(); err != nil {
		return nil, err
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("input directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, &domain.InvalidArgumentError{Arg: "dir", Value: dir, Reason: "not a directory"}
	}

	if err := m.store.UpsertPack(ctx, pack); err != nil {
		return nil, err
	}
	logging.Ingest("Migrating %s into pack %s (version %s)", dir, pack.ID, pack.Version)
	m.warnUnknownFiles(dir)

	report := &Report{PackID: pack.ID, ByKind: make(map[string]KindCount)}
	for _, kind := range domain.Kinds {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		path := filepath.Join(dir, kind.Name+".json")
		if _, err := os.Stat(path); err != nil {
			if os.IsNotExist(err) {
				logging.IngestDebug("%s: no input file", kind.Name)
				continue
			}
			return report, fmt.Errorf("stat %s: %w", path, err)
		}

		count, err := m.migrateFile(ctx, kind, path, pack.ID)
		report.ByKind[kind.Name] = count
		report.Files++
		report.Written += count.Written
		report.Skipped += count.Skipped
		if err != nil {
			return report, err
		}
	}

	details := fmt.Sprintf("files=%d written=%d skipped=%d", report.Files, report.Written, report.Skipped)
	if err := m.store.RecordMigration(ctx, dir, pack.ID, report.Written, details); err != nil {
		return report, err
	}
	logging.Ingest("Migration complete: %s", details)
	return report, nil
}

// migrateFile loads one kind's records. The file must hold a JSON array; each
// element decodes into the kind's entity type. Undecodable or invalid records
// warn and skip; a database failure aborts.
func (m *Migrator) migrateFile(ctx context.Context, kind domain.KindInfo, path, packID string) (KindCount, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return KindCount{}, fmt.Errorf("reading %s: %w", path, err)
	}
	var records []json.RawMessage
	if err := json.Unmarshal(data, &records); err != nil {
		return KindCount{}, fmt.Errorf("parsing %s: %w", path, err)
	}

	count := KindCount{Read: len(records)}
	for i, raw := range records {
		if err := ctx.Err(); err != nil {
			return count, err
		}
		e := kind.New()
		if err := json.Unmarshal(raw, e); err != nil {
			logging.Get(logging.CategoryIngest).Warn("%s[%d]: undecodable record skipped: %v",
				kind.Name, i, err)
			count.Skipped++
			continue
		}
		e.SetContentPackID(packID)
		if err := e.Validate(); err != nil {
			logging.Get(logging.CategoryIngest).Warn("%s[%d] (%q): invalid record skipped: %v",
				kind.Name, i, e.GetIndex(), err)
			count.Skipped++
			continue
		}
		if err := m.store.UpsertEntity(ctx, kind.Name, e); err != nil {
			return count, fmt.Errorf("writing %s/%s: %w", kind.Name, e.GetIndex(), err)
		}
		count.Written++
	}

	logging.Ingest("%s: %d/%d rows written (%d skipped)", kind.Name, count.Written, count.Read, count.Skipped)
	return count, nil
}

// warnUnknownFiles flags JSON files whose stem is not a catalog kind, so a
// typo in an input file name surfaces instead of silently ingesting nothing.
func (m *Migrator) warnUnknownFiles(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		stem := strings.TrimSuffix(entry.Name(), ".json")
		if !domain.IsKind(stem) {
			logging.Get(logging.CategoryIngest).Warn("Ignoring %s: %q is not a catalog kind",
				entry.Name(), stem)
		}
	}
}
