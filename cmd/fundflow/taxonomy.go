package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"fundflow-lab/internal/domain"
	"fundflow-lab/internal/fundflow"
	"fundflow-lab/internal/observability"
	"fundflow-lab/internal/storage"
)

var taxonomyCmd = &cobra.Command{
	Use:   "taxonomy",
	Short: "Build, persist and verify the case taxonomy",
}

var taxonomyDumpCmd = &cobra.Command{
	Use:   "dump [path]",
	Short: "Write the taxonomy artifact (\"-\" for stdout)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfg.Taxonomy.ArtifactPath
		if len(args) == 1 {
			path = args[0]
		}

		tax, err := fundflow.BuildTaxonomy()
		if err != nil {
			return err
		}

		if path == "-" {
			return fundflow.WriteArtifact(cmd.OutOrStdout(), tax)
		}

		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create artifact: %w", err)
		}
		if err := fundflow.WriteArtifact(f, tax); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("close artifact: %w", err)
		}

		logger.Info("taxonomy written",
			zap.String("path", path),
			zap.Int("cases", tax.Len()),
			zap.String("digest", tax.Digest()))
		return nil
	},
}

var taxonomyVerifyCmd = &cobra.Command{
	Use:   "verify [path]",
	Short: "Check a taxonomy artifact against a fresh build",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfg.Taxonomy.ArtifactPath
		if len(args) == 1 {
			path = args[0]
		}

		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open artifact: %w", err)
		}
		defer f.Close()

		tax, err := fundflow.LoadArtifact(f)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d cases, digest %s\n", path, tax.Len(), tax.Digest())
		return nil
	},
}

var taxonomyLoadCmd = &cobra.Command{
	Use:   "load",
	Short: "Store the case dictionary, or verify the stored one",
	Args:  cobra.NoArgs,
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

		inserted, err := syncCases(cmd, stores.cases, tax)
		if err != nil {
			return err
		}
		if inserted {
			fmt.Fprintf(cmd.OutOrStdout(), "stored %d cases\n", tax.Len())
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "stored dictionary matches %d cases\n", tax.Len())
		}
		return nil
	},
}

func init() {
	taxonomyCmd.AddCommand(taxonomyDumpCmd, taxonomyVerifyCmd, taxonomyLoadCmd)
}

// loadTaxonomy builds the taxonomy and, when the configured artifact exists,
// checks that it agrees with the build.
func loadTaxonomy() (*fundflow.Taxonomy, error) {
	var (
		tax *fundflow.Taxonomy
		err error
	)

	f, openErr := os.Open(cfg.Taxonomy.ArtifactPath)
	switch {
	case openErr == nil:
		tax, err = fundflow.LoadArtifact(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("taxonomy artifact %s: %w", cfg.Taxonomy.ArtifactPath, err)
		}
	case errors.Is(openErr, os.ErrNotExist):
		logger.Debug("no taxonomy artifact, building", zap.String("path", cfg.Taxonomy.ArtifactPath))
		if tax, err = fundflow.BuildTaxonomy(); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("open taxonomy artifact: %w", openErr)
	}

	observability.DefaultMetrics.TaxonomyCases.Set(float64(tax.Len()))
	return tax, nil
}

// syncCases inserts the dictionary into an empty case store, or verifies a
// populated one. It reports whether rows were inserted.
func syncCases(cmd *cobra.Command, store storage.CaseStore, tax *fundflow.Taxonomy) (bool, error) {
	ctx := cmd.Context()

	existing, err := store.GetAll(ctx)
	if err != nil {
		return false, fmt.Errorf("read stored cases: %w", err)
	}

	if len(existing) > 0 {
		stored := make(map[int]string, len(existing))
		for _, e := range existing {
			stored[e.ID] = e.Value
		}
		return false, fundflow.VerifyEntries(tax, stored)
	}

	entries := make([]*domain.FundFlowCaseEntry, 0, tax.Len())
	for _, e := range tax.Entries() {
		entries = append(entries, &domain.FundFlowCaseEntry{ID: e.ID, Value: e.Name})
	}
	if err := store.InsertBulk(ctx, entries); err != nil {
		return false, fmt.Errorf("store cases: %w", err)
	}
	return true, nil
}

// writeOutput writes content to path, or to w when path is "-".
func writeOutput(w io.Writer, path, content string) error {
	if path == "-" {
		_, err := io.WriteString(w, content)
		return err
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
