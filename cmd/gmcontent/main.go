// Command gmcontent maintains the embedded rules catalog through three
// one-shot jobs: migrate (JSON files to catalog rows), index (rows to vector
// embeddings), and verify (schema and content checks). Each job exits 0 on
// success and 1 with a single-line reason on failure.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mmerah/ai-gamemaster/internal/config"
	"github.com/mmerah/ai-gamemaster/internal/logging"
	"github.com/mmerah/ai-gamemaster/internal/store"
)

var (
	// Global flags
	configPath string
	dbPath     string
	verbose    bool

	// Resolved configuration, set by the root PersistentPreRunE.
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "gmcontent",
	Short: "Game-master content catalog jobs (migrate, index, verify)",
	Long: `gmcontent maintains the embedded rules catalog used by the game master.

  migrate  load SRD-shaped JSON files into the content store
  index    generate vector embeddings for catalog rows
  verify   check schema, row counts, and embedding coverage

The catalog is read-only at runtime; these jobs are its only writers.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if dbPath != "" {
			cfg.Store.Path = dbPath
		}
		if verbose {
			cfg.Logging.Level = "debug"
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		if err := logging.Initialize(cfg.Logging.Dir, cfg.Logging.Level); err != nil {
			return fmt.Errorf("failed to initialize logging: %w", err)
		}
		for cat, level := range cfg.Logging.Categories {
			if err := logging.SetCategoryLevel(logging.Category(cat), level); err != nil {
				return fmt.Errorf("invalid log level for category %s: %w", cat, err)
			}
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.CloseAll()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "gamemaster.yaml", "Path to the configuration file")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Content database path (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(verifyCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// openStore opens the content store from the resolved configuration.
func openStore() (*store.ContentStore, error) {
	return store.Open(cfg.Store, cfg.Embedding.Dimension)
}
