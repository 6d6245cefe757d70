package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/mmerah/ai-gamemaster/internal/domain"
	"github.com/mmerah/ai-gamemaster/internal/ingest"
)

var (
	packID       string
	packName     string
	packVersion  string
	packAuthor   string
	packDesc     string
	packInactive bool
)

var migrateCmd = &cobra.Command{
	Use:   "migrate [input-dir]",
	Short: "Load SRD-shaped JSON files into the content store",
	Long: `Reads one JSON file per catalog kind (spells.json, monsters.json, ...) from
the input directory and writes every record as a catalog row tagged with the
given content pack. Records that fail validation are logged and skipped; an
unparsable file aborts the run. Re-running is safe: rows update in place and
stored embeddings survive.`,
	Args: cobra.ExactArgs(1),
	RunE: runMigrate,
}

func init() {
	migrateCmd.Flags().StringVar(&packID, "pack", "srd", "Content pack id rows are tagged with")
	migrateCmd.Flags().StringVar(&packName, "pack-name", "", "Content pack display name (defaults to the id)")
	migrateCmd.Flags().StringVar(&packVersion, "pack-version", "1.0", "Content pack version")
	migrateCmd.Flags().StringVar(&packAuthor, "pack-author", "", "Content pack author")
	migrateCmd.Flags().StringVar(&packDesc, "pack-description", "", "Content pack description")
	migrateCmd.Flags().BoolVar(&packInactive, "inactive", false, "Register the pack without activating it")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	name := packName
	if name == "" {
		name = packID
	}
	pack := domain.ContentPack{
		ID:          packID,
		Name:        name,
		Description: packDesc,
		Version:     packVersion,
		Author:      packAuthor,
		IsActive:    !packInactive,
	}

	report, err := ingest.NewMigrator(s).Run(cmd.Context(), args[0], pack)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	kinds := make([]string, 0, len(report.ByKind))
	for kind := range report.ByKind {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	for _, kind := range kinds {
		c := report.ByKind[kind]
		fmt.Printf("  %-22s %4d written, %d skipped\n", kind, c.Written, c.Skipped)
	}
	fmt.Printf("Migrated %d rows from %d files into pack %q (%d skipped)\n",
		report.Written, report.Files, report.PackID, report.Skipped)
	return nil
}
