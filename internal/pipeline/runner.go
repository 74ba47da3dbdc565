// Package pipeline turns stored contract histories into fund-flow sequences.
//
// Each contract is handled by one worker: load the contract, its top-level
// transactions (most recent first) and their sub-transfers, classify every
// transaction and persist the resulting sequence. Contracts are independent,
// so a failure discards only that contract's sequence unless FailFast is set.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"fundflow-lab/internal/domain"
	"fundflow-lab/internal/fundflow"
	"fundflow-lab/internal/idhash"
	"fundflow-lab/internal/observability"
	"fundflow-lab/internal/storage"
)

// Contract outcome labels.
const (
	StatusOK        = "ok"
	StatusDuplicate = "duplicate"
	StatusFailed    = "failed"
)

// Options for creating a Runner.
type Options struct {
	// Required
	Contracts    storage.ContractStore
	Transactions storage.TransactionStore
	Sequences    storage.SequenceStore
	Classifier   *fundflow.Classifier

	Workers  int  // concurrent contracts, defaults to 1
	FailFast bool // stop the run on the first contract failure

	// Optional
	Logger  *zap.Logger
	Metrics *observability.Metrics
	Clock   func() time.Time
}

// Runner builds and stores sequences for many contracts concurrently.
type Runner struct {
	contracts    storage.ContractStore
	transactions storage.TransactionStore
	sequences    storage.SequenceStore
	classifier   *fundflow.Classifier
	digest       string

	workers  int
	failFast bool

	logger  *zap.Logger
	metrics *observability.Metrics
	clock   func() time.Time
}

// New creates a new Runner.
func New(opts Options) *Runner {
	r := &Runner{
		contracts:    opts.Contracts,
		transactions: opts.Transactions,
		sequences:    opts.Sequences,
		classifier:   opts.Classifier,
		digest:       opts.Classifier.Taxonomy().Digest(),
		workers:      opts.Workers,
		failFast:     opts.FailFast,
		logger:       opts.Logger,
		metrics:      opts.Metrics,
		clock:        opts.Clock,
	}
	if r.workers < 1 {
		r.workers = 1
	}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}
	r.logger = r.logger.Named("pipeline")
	if r.metrics == nil {
		r.metrics = observability.DefaultMetrics
	}
	if r.clock == nil {
		r.clock = func() time.Time { return time.Now().UTC() }
	}
	return r
}

// RunResult contains results from a pipeline run.
type RunResult struct {
	ContractsProcessed     int      `json:"contracts_processed"`
	SequencesStored        int      `json:"sequences_stored"`
	AlreadyProcessed       int      `json:"already_processed"`
	TransactionsClassified int      `json:"transactions_classified"`
	Failed                 int      `json:"failed"`
	Errors                 []string `json:"errors,omitempty"`
}

// Run builds and stores the sequence of every address. With no addresses,
// every stored contract is processed.
//
// Per-contract failures are collected in RunResult.Errors. With FailFast the
// first failure cancels the remaining work and is returned. A canceled ctx
// stops scheduling new contracts and returns ctx.Err().
func (r *Runner) Run(ctx context.Context, addresses []domain.Address) (*RunResult, error) {
	start := r.clock()
	result := &RunResult{}

	if len(addresses) == 0 {
		all, err := r.contracts.ListAddresses(ctx)
		if err != nil {
			r.metrics.RecordPipelineRun("sequences", StatusFailed, r.clock().Sub(start))
			return nil, fmt.Errorf("list contracts: %w", err)
		}
		addresses = all
	}

	r.logger.Info("building sequences",
		zap.Int("contracts", len(addresses)),
		zap.Int("workers", r.workers),
		zap.Bool("fail_fast", r.failFast))

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)

	for _, addr := range addresses {
		if gctx.Err() != nil {
			break
		}

		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}

			status, length, err := r.processContract(gctx, addr)
			if interrupted(gctx, err) {
				return nil
			}

			mu.Lock()
			defer mu.Unlock()

			result.ContractsProcessed++
			switch {
			case err != nil:
				result.Failed++
				result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", addr, err))
				if r.failFast {
					return fmt.Errorf("contract %s: %w", addr, err)
				}
			case status == StatusDuplicate:
				result.AlreadyProcessed++
			default:
				result.SequencesStored++
				result.TransactionsClassified += length
			}
			return nil
		})
	}

	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}

	status := StatusOK
	if err != nil {
		status = StatusFailed
	}
	r.metrics.RecordPipelineRun("sequences", status, r.clock().Sub(start))

	r.logger.Info("sequences done",
		zap.Int("processed", result.ContractsProcessed),
		zap.Int("stored", result.SequencesStored),
		zap.Int("already_processed", result.AlreadyProcessed),
		zap.Int("failed", result.Failed),
		zap.Int("transactions", result.TransactionsClassified))

	return result, err
}

// processContract builds and stores one sequence. It returns the outcome
// status and the sequence length.
func (r *Runner) processContract(ctx context.Context, addr domain.Address) (string, int, error) {
	start := time.Now()
	log := r.logger.With(zap.String("contract", addr.String()))

	seq, err := r.Build(ctx, addr)
	if interrupted(ctx, err) {
		log.Debug("sequence build interrupted", zap.Error(err))
		return StatusFailed, 0, err
	}
	if err != nil {
		r.metrics.RecordContractFailure(err)
		log.Warn("sequence discarded",
			zap.String("reason", observability.FailureReason(err)),
			zap.Error(err))
		return StatusFailed, 0, err
	}

	err = r.timed("sequences", "insert", func() error { return r.sequences.Insert(ctx, seq) })
	if errors.Is(err, storage.ErrDuplicateKey) {
		r.metrics.RecordContract(StatusDuplicate, 0, 0)
		log.Debug("sequence already stored")
		return StatusDuplicate, 0, nil
	}
	if err != nil {
		err = fmt.Errorf("store sequence: %w", err)
		r.metrics.RecordContractFailure(err)
		log.Warn("sequence not stored", zap.Error(err))
		return StatusFailed, 0, err
	}

	r.metrics.RecordContract(StatusOK, len(seq.Cases), time.Since(start))
	log.Debug("sequence stored", zap.Int("length", len(seq.Cases)))
	return StatusOK, len(seq.Cases), nil
}

// interrupted reports whether err comes from ctx being canceled, either by the
// caller or by a fail-fast failure of another contract. Such contracts are not
// recorded as failed.
func interrupted(ctx context.Context, err error) bool {
	return err != nil && ctx.Err() != nil && errors.Is(err, context.Canceled)
}

// Build loads a contract history and classifies it without storing anything.
func (r *Runner) Build(ctx context.Context, addr domain.Address) (*domain.FundFlowSequence, error) {
	var contract *domain.Contract
	err := r.timed("contracts", "get", func() (err error) {
		contract, err = r.contracts.GetByAddress(ctx, addr)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("load contract: %w", err)
	}

	var txs []*domain.Transaction
	err = r.timed("transactions", "get_by_contract", func() (err error) {
		txs, err = r.transactions.GetByContract(ctx, addr)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}

	var subs []*domain.SubTransfer
	err = r.timed("transactions", "get_sub_transfers", func() (err error) {
		subs, err = r.transactions.GetSubTransfersByContract(ctx, addr)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("load sub-transfers: %w", err)
	}

	fundflow.SortTransactions(txs)

	cases, err := r.classifier.BuildSequence(contract.Creator, contract.Address, txs, fundflow.GroupSubTransfers(subs))
	if err != nil {
		return nil, err
	}

	return &domain.FundFlowSequence{
		SequenceID:      idhash.ComputeSequenceID(addr.String(), r.digest, cases),
		ContractAddress: addr,
		Cases:           cases,
		TaxonomyDigest:  r.digest,
		CreatedAt:       r.clock().UnixMilli(),
	}, nil
}

func (r *Runner) timed(store, operation string, fn func() error) error {
	start := time.Now()
	err := fn()
	r.metrics.RecordStoreOperation(store, operation, time.Since(start), err)
	return err
}
