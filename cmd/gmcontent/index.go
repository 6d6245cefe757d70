package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mmerah/ai-gamemaster/internal/domain"
	"github.com/mmerah/ai-gamemaster/internal/embedding"
)

var indexForce bool

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Generate vector embeddings for catalog rows",
	Long: `Walks every kind table and embeds rows that do not yet carry a vector of the
configured dimension. Idempotent and resumable: an interrupted run picks up
where it stopped. Use --force after changing the embedding model so every row
re-embeds under the new engine.`,
	Args: cobra.NoArgs,
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().BoolVar(&indexForce, "force", false, "Re-embed rows that already carry a vector")
}

func runIndex(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	engine := embedding.Shared(cfg.Embedding)
	counts, err := embedding.NewIndexer(s, engine, cfg.Embedding.BatchSize).Run(cmd.Context(), indexForce)
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	total := 0
	for _, kind := range domain.Kinds {
		n := counts[kind.Name]
		if n == 0 {
			continue
		}
		total += n
		fmt.Printf("  %-22s %d embedded\n", kind.Name, n)
	}
	fmt.Printf("Indexed %d rows with engine %s\n", total, engine.Name())
	return nil
}
