package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"prism/internal/training"
)

var harvestOutput string

// harvestCmd extracts DPO training pairs from the best-of-two log.
var harvestCmd = &cobra.Command{
	Use:   "harvest",
	Short: "Extract preference training pairs from validated best-of-two items",
	Long: `Reads the best-of-two log and emits one chosen/rejected training
pair per entry whose human validation selected a candidate and passed
the Q-matrix alignment check. Re-running over the same log produces
the same pairs in the same order.`,
	RunE: runHarvest,
}

func runHarvest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	st := newStore(cfg)
	entries, err := st.ReadBo2Log()
	if err != nil {
		return err
	}

	pairs, stats := training.Harvest(entries)

	if err := os.MkdirAll(filepath.Dir(harvestOutput), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	f, err := os.Create(harvestOutput)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	for i := range pairs {
		if err := enc.Encode(&pairs[i]); err != nil {
			return fmt.Errorf("writing pair: %w", err)
		}
	}

	fmt.Printf("Harvest complete: %d pair(s) written to %s\n", len(pairs), harvestOutput)
	fmt.Printf("  Entries processed:    %d\n", stats.Processed)
	fmt.Printf("  Skipped (no choice):  %d\n", stats.SkippedNoChoice)
	fmt.Printf("  Skipped (alignment):  %d\n", stats.SkippedNoAlign)
	fmt.Printf("  Skipped (undecided):  %d\n", stats.SkippedUndecided)
	return nil
}

func init() {
	harvestCmd.Flags().StringVarP(&harvestOutput, "output", "o", "", "output JSONL file for training pairs")
	_ = harvestCmd.MarkFlagRequired("output")
	rootCmd.AddCommand(harvestCmd)
}
