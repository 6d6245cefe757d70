// Package store implements the embedded content store: one SQLite file
// holding the 25 catalog kind tables plus content_packs and
// migration_history, with a vector column per row for semantic search.
//
// Vector search runs through sqlite-vec when the extension is available
// (probed at open time) and falls back to an in-process linear scan with
// identical result semantics when it is not.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/mmerah/ai-gamemaster/internal/config"
	"github.com/mmerah/ai-gamemaster/internal/domain"
	"github.com/mmerah/ai-gamemaster/internal/logging"
)

// ContentStore is the single handle to the embedded catalog database. It is
// safe for concurrent use; database/sql pools the underlying connections.
type ContentStore struct {
	db   *sql.DB
	path string
	dim  int

	mu           sync.Mutex
	closed       bool
	vecAvailable bool
}

// Open opens (creating if necessary) the content store at cfg.Path and
// prepares it for serving: schema, migrations, pragmas, and vector-extension
// detection. dim is the configured embedding dimension; vectors written to
// or read from any kind table must have exactly this many elements.
//
// Open failures are fatal for the process and surface as *ConnectionError.
func Open(cfg config.StoreConfig, dim int) (*ContentStore, error) {
	timer := logging.StartTimer(logging.CategoryStore, "store.Open")
	defer timer.Stop()

	logging.Store("Opening content store at %s (dim=%d)", cfg.Path, dim)

	if cfg.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, &domain.ConnectionError{Path: cfg.Path, Err: err}
		}
	}

	db, err := sql.Open(driverName, cfg.Path)
	if err != nil {
		return nil, &domain.ConnectionError{Path: cfg.Path, Err: err}
	}

	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = 1
	}
	db.SetMaxOpenConns(poolSize)
	db.SetMaxIdleConns(poolSize)
	if cfg.RecycleSeconds > 0 {
		db.SetConnMaxLifetime(time.Duration(cfg.RecycleSeconds) * time.Second)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, &domain.ConnectionError{Path: cfg.Path, Err: err}
	}

	s := &ContentStore{db: db, path: cfg.Path, dim: dim}
	if err := s.applyPragmas(cfg); err != nil {
		db.Close()
		return nil, &domain.ConnectionError{Path: cfg.Path, Err: err}
	}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	if cfg.VectorExtension {
		s.detectVecExtension()
	}
	if s.vecAvailable {
		logging.Store("Vector extension detected; ANN queries enabled")
	} else {
		logging.Get(logging.CategoryStore).Warn(
			"Vector extension unavailable; falling back to in-process linear scan")
	}

	logging.Store("Content store ready (%d kind tables)", len(domain.Kinds))
	return s, nil
}

// applyPragmas configures the connection for concurrent indexing and reads.
// busy_timeout never drops below 5000ms; WAL is skipped for in-memory
// databases.
func (s *ContentStore) applyPragmas(cfg config.StoreConfig) error {
	busy := cfg.BusyTimeoutMS
	if busy < 5000 {
		busy = 5000
	}
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", busy)); err != nil {
		return fmt.Errorf("failed to set busy_timeout: %w", err)
	}

	if s.path != ":memory:" {
		if _, err := s.db.Exec("PRAGMA journal_mode = WAL"); err != nil {
			logging.StoreDebug("Failed to set journal_mode=WAL: %v", err)
		}
	}

	synchronous := cfg.Synchronous
	if synchronous == "" {
		synchronous = "NORMAL"
	}
	switch strings.ToUpper(synchronous) {
	case "OFF", "NORMAL", "FULL", "EXTRA":
		if _, err := s.db.Exec("PRAGMA synchronous = " + strings.ToUpper(synchronous)); err != nil {
			logging.StoreDebug("Failed to set synchronous=%s: %v", synchronous, err)
		}
	default:
		return &domain.InvalidArgumentError{Arg: "synchronous", Value: synchronous,
			Reason: "must be OFF, NORMAL, FULL, or EXTRA"}
	}

	if _, err := s.db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		logging.StoreDebug("Failed to enable foreign_keys: %v", err)
	}
	return nil
}

// detectVecExtension probes the distance function the search path depends
// on. The cgo build gets vec_distance_l2 from the sqlite-vec extension; the
// pure-Go build gets it from the compat shim.
func (s *ContentStore) detectVecExtension() {
	probe := EncodeVector([]float32{1, 0, 0, 0})
	var d float64
	if err := s.db.QueryRow("SELECT vec_distance_l2(?, ?)", probe, probe).Scan(&d); err != nil {
		logging.StoreDebug("vec_distance_l2 probe failed: %v", err)
		s.vecAvailable = false
		return
	}
	s.vecAvailable = true
}

// VecAvailable reports whether ANN queries run through the vector extension.
func (s *ContentStore) VecAvailable() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.vecAvailable
}

// DB exposes the raw handle for the repository layer and one-shot jobs.
func (s *ContentStore) DB() *sql.DB { return s.db }

// Dimension returns the configured embedding dimension.
func (s *ContentStore) Dimension() int { return s.dim }

// Close releases the database handle. Safe to call more than once.
func (s *ContentStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.db.Close(); err != nil {
		return &domain.ConnectionError{Path: s.path, Err: err}
	}
	logging.StoreDebug("Content store closed: %s", s.path)
	return nil
}

// TableStats holds per-table row and embedding coverage counts.
type TableStats struct {
	Rows     int64
	Embedded int64
}

// Stats returns row counts and embedding coverage for every kind table plus
// the pack count. Used by the verification job.
func (s *ContentStore) Stats(ctx context.Context) (map[string]TableStats, int64, error) {
	stats := make(map[string]TableStats, len(domain.Kinds))
	for _, k := range domain.Kinds {
		var ts TableStats
		row := s.db.QueryRowContext(ctx,
			fmt.Sprintf("SELECT COUNT(*), COUNT(embedding) FROM %s", k.Name))
		if err := row.Scan(&ts.Rows, &ts.Embedded); err != nil {
			return nil, 0, &domain.DatabaseError{Op: "Stats", Context: k.Name, Err: err}
		}
		stats[k.Name] = ts
	}
	var packs int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM content_packs").Scan(&packs); err != nil {
		return nil, 0, &domain.DatabaseError{Op: "Stats", Context: "content_packs", Err: err}
	}
	return stats, packs, nil
}
