package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"fundflow-lab/internal/domain"
	"fundflow-lab/internal/features"
	"fundflow-lab/internal/fundflow"
	"fundflow-lab/internal/observability"
	"fundflow-lab/internal/pipeline"
)

var (
	seqFixtures bool
	seqCSVPath  string
)

var sequencesCmd = &cobra.Command{
	Use:   "sequences [address...]",
	Short: "Classify stored transactions into fund-flow sequences",
	Long: `Builds and stores the fund-flow sequence of every given contract, or of
every stored contract when no address is given. Contracts that already have
a sequence are skipped.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		stores, cleanup, err := openStores(ctx, cfg.Storage)
		if err != nil {
			return err
		}
		defer cleanup()

		if seqFixtures {
			if err := pipeline.LoadFixtures(ctx, stores.contracts, stores.transactions); err != nil {
				return fmt.Errorf("load fixtures: %w", err)
			}
		}

		tax, err := loadTaxonomy()
		if err != nil {
			return err
		}
		if _, err := syncCases(cmd, stores.cases, tax); err != nil {
			return err
		}

		runner := pipeline.New(pipeline.Options{
			Contracts:    stores.contracts,
			Transactions: stores.transactions,
			Sequences:    stores.sequences,
			Classifier:   fundflow.NewClassifier(tax, fundflow.WithTolerance(cfg.ToleranceDecimal())),
			Workers:      cfg.Pipeline.Workers,
			FailFast:     cfg.Pipeline.FailFast,
			Logger:       logger,
			Metrics:      observability.DefaultMetrics,
		})

		result, err := runner.Run(ctx, toAddresses(args))
		if result != nil {
			printRunResult(cmd, result)
		}
		if err != nil {
			return err
		}

		if seqCSVPath != "" {
			seqs, err := stores.sequences.GetAll(ctx)
			if err != nil {
				return fmt.Errorf("read sequences: %w", err)
			}
			if err := writeOutput(cmd.OutOrStdout(), seqCSVPath, features.RenderSequencesCSV(seqs)); err != nil {
				return err
			}
			logger.Info("sequences exported", zap.String("path", seqCSVPath), zap.Int("rows", len(seqs)))
		}
		return nil
	},
}

func init() {
	sequencesCmd.Flags().BoolVar(&seqFixtures, "fixtures", false, "Load the demonstration dataset first")
	sequencesCmd.Flags().StringVar(&seqCSVPath, "csv", "", "Export all stored sequences as CSV (\"-\" for stdout)")
}

func printRunResult(cmd *cobra.Command, r *pipeline.RunResult) {
	w := cmd.ErrOrStderr()
	fmt.Fprintf(w, "contracts processed:     %d\n", r.ContractsProcessed)
	fmt.Fprintf(w, "sequences stored:        %d\n", r.SequencesStored)
	fmt.Fprintf(w, "already processed:       %d\n", r.AlreadyProcessed)
	fmt.Fprintf(w, "transactions classified: %d\n", r.TransactionsClassified)
	fmt.Fprintf(w, "failed:                  %d\n", r.Failed)
	for _, e := range r.Errors {
		fmt.Fprintf(w, "  error: %s\n", e)
	}
}

func toAddresses(args []string) []domain.Address {
	if len(args) == 0 {
		return nil
	}
	out := make([]domain.Address, len(args))
	for i, a := range args {
		out[i] = domain.Address(a)
	}
	return out
}
