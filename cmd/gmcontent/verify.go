package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mmerah/ai-gamemaster/internal/domain"
	"github.com/mmerah/ai-gamemaster/internal/store"
)

var sampleRows int

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check catalog schema, row counts, and embedding coverage",
	Long: `Confirms every kind table exists alongside the pack and migration tables,
decodes a few stored documents per kind, and checks that every stored
embedding matches the configured dimension. Rows that still await indexing
are reported but do not fail the check.`,
	Args: cobra.NoArgs,
	RunE: runVerify,
}

func init() {
	verifyCmd.Flags().IntVar(&sampleRows, "sample", 0, "Print up to N sample rows per kind")
}

func runVerify(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()
	ctx := cmd.Context()

	if err := checkSchema(ctx, s); err != nil {
		return fmt.Errorf("verification failed: %w", err)
	}

	stats, packCount, err := s.Stats(ctx)
	if err != nil {
		return fmt.Errorf("verification failed: %w", err)
	}

	fmt.Printf("Content store: %s (dim=%d, vec extension=%v)\n",
		cfg.Store.Path, s.Dimension(), s.VecAvailable())
	fmt.Printf("Packs: %d\n\n", packCount)

	wantBytes := s.Dimension() * 4
	var totalRows, totalEmbedded int64
	for _, kind := range domain.Kinds {
		ts := stats[kind.Name]
		totalRows += ts.Rows
		totalEmbedded += ts.Embedded
		fmt.Printf("  %-22s %5d rows, %5d embedded\n", kind.Name, ts.Rows, ts.Embedded)
		if ts.Rows == 0 {
			continue
		}
		if err := checkKind(ctx, s, kind, wantBytes); err != nil {
			return fmt.Errorf("verification failed: %w", err)
		}
	}
	fmt.Printf("\nTotal: %d rows, %d embedded\n", totalRows, totalEmbedded)
	if totalEmbedded < totalRows {
		fmt.Printf("Note: %d rows await indexing (run \"gmcontent index\")\n", totalRows-totalEmbedded)
	}

	printPacks(ctx, s)
	printHistory(ctx, s)
	if sampleRows > 0 {
		printSamples(ctx, s)
	}

	fmt.Println("\nVerification passed")
	return nil
}

// checkSchema confirms every kind table plus the pack and migration tables
// exist in the database.
func checkSchema(ctx context.Context, s *store.ContentStore) error {
	rows, err := s.DB().QueryContext(ctx, "SELECT name FROM sqlite_master WHERE type='table'")
	if err != nil {
		return fmt.Errorf("schema scan: %v", err)
	}
	defer rows.Close()

	present := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return fmt.Errorf("schema scan: %v", err)
		}
		present[name] = true
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("schema scan: %v", err)
	}

	required := make([]string, 0, len(domain.Kinds)+2)
	for _, k := range domain.Kinds {
		required = append(required, k.Name)
	}
	required = append(required, "content_packs", "migration_history")
	for _, table := range required {
		if !present[table] {
			return fmt.Errorf("missing table %q", table)
		}
	}
	return nil
}

// checkKind decodes a few stored documents and confirms every stored
// embedding in the table has the expected byte length.
func checkKind(ctx context.Context, s *store.ContentStore, kind domain.KindInfo, wantBytes int) error {
	rows, err := s.DB().QueryContext(ctx, fmt.Sprintf(
		"SELECT idx, data FROM %s LIMIT 3", kind.Name))
	if err != nil {
		return fmt.Errorf("%s: %v", kind.Name, err)
	}
	defer rows.Close()

	for rows.Next() {
		var idx, data string
		if err := rows.Scan(&idx, &data); err != nil {
			return fmt.Errorf("%s: %v", kind.Name, err)
		}
		e := kind.New()
		if err := json.Unmarshal([]byte(data), e); err != nil {
			return fmt.Errorf("%s/%s does not decode: %v", kind.Name, idx, err)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("%s: %v", kind.Name, err)
	}

	var idx string
	var got int
	err = s.DB().QueryRowContext(ctx, fmt.Sprintf(
		"SELECT idx, length(embedding) FROM %s WHERE embedding IS NOT NULL AND length(embedding) != ? LIMIT 1",
		kind.Name), wantBytes).Scan(&idx, &got)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil
	case err != nil:
		return fmt.Errorf("%s embedding scan: %v", kind.Name, err)
	default:
		return fmt.Errorf("%s/%s embedding is %d bytes, want %d", kind.Name, idx, got, wantBytes)
	}
}

func printPacks(ctx context.Context, s *store.ContentStore) {
	packs, err := s.ListPacks(ctx)
	if err != nil || len(packs) == 0 {
		return
	}
	fmt.Println("\nContent packs:")
	for _, p := range packs {
		state := "inactive"
		if p.IsActive {
			state = "active"
		}
		fmt.Printf("  %s %s (%s)\n", p.ID, p.Version, state)
	}
}

func printHistory(ctx context.Context, s *store.ContentStore) {
	records, err := s.MigrationHistory(ctx, 5)
	if err != nil || len(records) == 0 {
		return
	}
	fmt.Println("\nRecent migrations:")
	for _, r := range records {
		fmt.Printf("  %s: %d items into %s (%s)\n", r.AppliedAt, r.Items, r.PackID, r.Details)
	}
}

// printSamples lists a few rows per kind the way a human would eyeball the
// catalog: pack, index, and the text the embedder sees.
func printSamples(ctx context.Context, s *store.ContentStore) {
	fmt.Println("\nSample content:")
	for _, kind := range domain.Kinds {
		rows, err := s.DB().QueryContext(ctx, fmt.Sprintf(
			"SELECT idx, content_pack_id, data FROM %s ORDER BY idx LIMIT %d", kind.Name, sampleRows))
		if err != nil {
			continue
		}
		printed := 0
		for rows.Next() {
			var idx, packID, data string
			if rows.Scan(&idx, &packID, &data) != nil {
				continue
			}
			e := kind.New()
			if json.Unmarshal([]byte(data), e) != nil {
				continue
			}
			if printed == 0 {
				fmt.Printf("\n=== %s ===\n", kind.Name)
			}
			printed++
			fmt.Printf("%d. [%s] %s\n", printed, packID, truncate(e.EmbeddingText(), 100))
		}
		rows.Close()
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
