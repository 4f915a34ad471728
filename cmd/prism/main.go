// Command prism converts raw assessment items into diagnostic item records
// through a generate-and-audit pipeline, runs the human validation flow for
// best-of-two items, harvests preference-training pairs, and reports
// automation readiness.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"prism/internal/config"
	"prism/internal/store"
)

var (
	// Global flags
	configPath string
	verbose    bool

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command.
var rootCmd = &cobra.Command{
	Use:   "prism",
	Short: "prism - diagnostic item conversion pipeline",
	Long: `prism drives raw assessment items through a three-stage
generate-and-audit pipeline, producing diagnostic item records:

  1. Extraction: derive the cognitive Q-matrix from the seed item
  2. Generation: produce probe/transfer candidates (single or best-of-two)
  3. Audit: judge the draft, regenerating with feedback up to the retry bound

Best-of-two items are arbitrated by a human validator ('prism review');
resolved decisions are harvested into preference-training pairs
('prism harvest') and aggregated into an automation readiness verdict
('prism readiness').`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zapConfig := zap.NewProductionConfig()
		if verbose {
			zapConfig.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zapConfig.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// loadConfig loads the configuration honoring the --config flag.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// newStore builds the local store for the loaded configuration.
func newStore(cfg *config.Config) *store.Local {
	return store.NewLocal(cfg, logger)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "prism.yaml", "path to configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		// Verdict sentinels already printed their report; everything else
		// gets an error line.
		if !errors.Is(err, errNotReady) && !errors.Is(err, errCheckFailed) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
