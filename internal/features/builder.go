package features

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"fundflow-lab/internal/domain"
	"fundflow-lab/internal/fundflow"
	"fundflow-lab/internal/observability"
	"fundflow-lab/internal/storage"
)

// ContractFeatures is the frequency vector of one contract.
type ContractFeatures struct {
	Address     domain.Address
	Frequencies Frequencies
}

// BuildResult contains results from a feature build.
type BuildResult struct {
	ContractsProcessed int
	RowsWritten        int
	AlreadyBuilt       int
	Features           []ContractFeatures // in input order, failed contracts omitted
	Errors             []string
}

// Builder computes case frequencies for stored sequences.
type Builder struct {
	sequences   storage.SequenceStore
	frequencies storage.CaseFrequencyStore
	taxonomy    *fundflow.Taxonomy
	digest      string
	logger      *zap.Logger
	metrics     *observability.Metrics
}

// NewBuilder creates a new Builder. A nil frequencies store computes features
// without persisting them.
func NewBuilder(
	sequences storage.SequenceStore,
	frequencies storage.CaseFrequencyStore,
	taxonomy *fundflow.Taxonomy,
	logger *zap.Logger,
	metrics *observability.Metrics,
) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = observability.DefaultMetrics
	}
	return &Builder{
		sequences:   sequences,
		frequencies: frequencies,
		taxonomy:    taxonomy,
		digest:      taxonomy.Digest(),
		logger:      logger.Named("features"),
		metrics:     metrics,
	}
}

// Build computes the features of every address. With no addresses, every
// stored sequence is used. Sequences tagged with a different taxonomy digest
// fail with fundflow.ErrArtifactMismatch.
func (b *Builder) Build(ctx context.Context, addresses []domain.Address) (*BuildResult, error) {
	seqs, err := b.load(ctx, addresses)
	if err != nil {
		return nil, err
	}

	result := &BuildResult{}
	for _, seq := range seqs {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.ContractsProcessed++

		f, err := b.compute(seq)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", seq.ContractAddress, err))
			b.logger.Warn("features skipped", zap.String("contract", seq.ContractAddress.String()), zap.Error(err))
			continue
		}
		result.Features = append(result.Features, ContractFeatures{Address: seq.ContractAddress, Frequencies: f})

		if b.frequencies == nil {
			continue
		}
		rows := f.Rows(seq.ContractAddress)
		err = b.frequencies.InsertBulk(ctx, rows)
		switch {
		case errors.Is(err, storage.ErrDuplicateKey):
			result.AlreadyBuilt++
		case err != nil:
			result.Errors = append(result.Errors, fmt.Sprintf("%s: store frequencies: %v", seq.ContractAddress, err))
			b.logger.Warn("features not stored", zap.String("contract", seq.ContractAddress.String()), zap.Error(err))
		default:
			result.RowsWritten += len(rows)
			b.metrics.FrequencyRowsWritten.Add(float64(len(rows)))
		}
	}

	b.logger.Info("features done",
		zap.Int("contracts", result.ContractsProcessed),
		zap.Int("rows", result.RowsWritten),
		zap.Int("already_built", result.AlreadyBuilt),
		zap.Int("errors", len(result.Errors)))

	return result, nil
}

func (b *Builder) load(ctx context.Context, addresses []domain.Address) ([]*domain.FundFlowSequence, error) {
	if len(addresses) == 0 {
		seqs, err := b.sequences.GetAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("load sequences: %w", err)
		}
		return seqs, nil
	}

	seqs := make([]*domain.FundFlowSequence, 0, len(addresses))
	for _, addr := range addresses {
		seq, err := b.sequences.GetByAddress(ctx, addr)
		if err != nil {
			return nil, fmt.Errorf("load sequence %s: %w", addr, err)
		}
		seqs = append(seqs, seq)
	}
	return seqs, nil
}

func (b *Builder) compute(seq *domain.FundFlowSequence) (Frequencies, error) {
	if seq.TaxonomyDigest != b.digest {
		return Frequencies{}, fmt.Errorf("%w: sequence digest %s, taxonomy digest %s",
			fundflow.ErrArtifactMismatch, seq.TaxonomyDigest, b.digest)
	}
	return ComputeCaseFrequencies(seq.Cases, b.taxonomy.Len())
}
