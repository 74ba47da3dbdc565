// Command fundflow classifies contract transaction histories into fund-flow
// case sequences and derives case frequency features from them.
//
// Usage:
//
//	fundflow taxonomy dump|verify|load
//	fundflow sequences [address...]
//	fundflow features [address...]
//	fundflow serve
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"fundflow-lab/internal/config"
	"fundflow-lab/internal/logging"
)

var (
	// Global flags
	configPath string
	verbose    bool
	useMemory  bool

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "fundflow",
	Short: "Fund-flow case engine",
	Long: `fundflow assigns every top-level transaction of a contract a fund-flow case:
who sent it, whether it created the contract or failed, and in which direction
value moved for the creator, the contract, the sender and everybody else.

The ordered case ids of a contract form its sequence; case frequencies over a
sequence are features for downstream classifiers.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if verbose {
			cfg.Log.Level = "debug"
		}
		if useMemory {
			cfg.Storage.UseMemory = true
		}

		logger, err = logging.New(cfg.Log)
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

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging")
	rootCmd.PersistentFlags().BoolVar(&useMemory, "memory", false, "Use in-memory stores (nothing persists between runs)")

	rootCmd.AddCommand(taxonomyCmd, sequencesCmd, featuresCmd, serveCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
