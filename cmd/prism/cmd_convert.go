package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"prism/internal/generation"
	"prism/internal/pipeline"
)

var (
	convertItem   string
	convertDryRun bool
)

// convertCmd runs the conversion pipeline over pending source items.
var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert pending source items into diagnostic item records",
	Long: `Enumerates source items, skips ones already converted, and drives
each remaining item through extraction, generation, and audit. One item
failing is recorded in the run log and does not stop the batch.`,
	RunE: runConvert,
}

func runConvert(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st := newStore(cfg)
	items, err := st.LoadSourceItems(convertItem)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Println("No source items found to process.")
		return nil
	}
	fmt.Printf("Found %d source item(s) to check.\n", len(items))

	var gen pipeline.Generator
	if convertDryRun {
		gen = nil // never called on the dry-run path
	} else {
		if cfg.LLM.APIKey == "" {
			return fmt.Errorf("no API key configured (set ANTHROPIC_API_KEY or GEMINI_API_KEY)")
		}
		client, err := generation.NewClient(ctx, cfg)
		if err != nil {
			return err
		}
		gen = generation.NewService(client, logger)
	}

	governor := pipeline.NewRateGovernor(cfg.Pipeline.RateQuota, cfg.GetRateWindow(), logger)
	seq := pipeline.NewSequencer(gen, st, governor, cfg.Pipeline, logger)
	seq.SetDryRun(convertDryRun)

	if err := seq.Run(ctx, items); err != nil {
		logger.Warn("conversion interrupted", zap.Error(err))
		return err
	}

	fmt.Println("Done.")
	return nil
}

func init() {
	convertCmd.Flags().StringVar(&convertItem, "item", "", "process only this item ID")
	convertCmd.Flags().BoolVar(&convertDryRun, "dry-run", false, "enumerate items without calling the generation service")
	rootCmd.AddCommand(convertCmd)
}
