package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"fundflow-lab/internal/features"
	"fundflow-lab/internal/observability"
)

var featCSVPath string

var featuresCmd = &cobra.Command{
	Use:   "features [address...]",
	Short: "Compute case frequency features from stored sequences",
	Long: `Computes the relative frequency of every taxonomy case inside the stored
sequence of each given contract, or of every stored sequence when no address
is given. Sequences built with a different taxonomy are rejected.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		stores, cleanup, err := openStores(ctx, cfg.Storage)
		if err != nil {
			return err
		}
		defer cleanup()

		tax, err := loadTaxonomy()
		if err != nil {
			return err
		}

		builder := features.NewBuilder(stores.sequences, stores.frequencies, tax, logger, observability.DefaultMetrics)
		result, err := builder.Build(ctx, toAddresses(args))
		if err != nil {
			return err
		}

		w := cmd.ErrOrStderr()
		fmt.Fprintf(w, "contracts processed: %d\n", result.ContractsProcessed)
		fmt.Fprintf(w, "rows written:        %d\n", result.RowsWritten)
		fmt.Fprintf(w, "already built:       %d\n", result.AlreadyBuilt)
		for _, e := range result.Errors {
			fmt.Fprintf(w, "  error: %s\n", e)
		}

		if featCSVPath != "" {
			out := features.RenderFrequencyCSV(result.Features, tax.Len())
			if err := writeOutput(cmd.OutOrStdout(), featCSVPath, out); err != nil {
				return err
			}
			logger.Info("features exported", zap.String("path", featCSVPath), zap.Int("rows", len(result.Features)))
		}
		return nil
	},
}

func init() {
	featuresCmd.Flags().StringVar(&featCSVPath, "csv", "", "Export the dense frequency matrix as CSV (\"-\" for stdout)")
}
