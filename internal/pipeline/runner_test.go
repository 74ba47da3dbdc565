package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"fundflow-lab/internal/domain"
	"fundflow-lab/internal/fundflow"
	"fundflow-lab/internal/idhash"
	"fundflow-lab/internal/observability"
	"fundflow-lab/internal/storage"
	"fundflow-lab/internal/storage/memory"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var fixedNow = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

type testEnv struct {
	contracts    *memory.ContractStore
	transactions *memory.TransactionStore
	sequences    *memory.SequenceStore
	metrics      *observability.Metrics
	classifier   *fundflow.Classifier
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		contracts:    memory.NewContractStore(),
		transactions: memory.NewTransactionStore(),
		sequences:    memory.NewSequenceStore(),
		metrics:      observability.NewMetrics("test", prometheus.NewRegistry()),
		classifier:   fundflow.NewClassifier(fundflow.MustBuildTaxonomy()),
	}
	require.NoError(t, LoadFixtures(context.Background(), env.contracts, env.transactions))
	return env
}

func (e *testEnv) runner(t *testing.T, workers int, failFast bool) *Runner {
	return e.runnerWith(t, e.sequences, workers, failFast)
}

func (e *testEnv) runnerWith(t *testing.T, seqs storage.SequenceStore, workers int, failFast bool) *Runner {
	return New(Options{
		Contracts:    e.contracts,
		Transactions: e.transactions,
		Sequences:    seqs,
		Classifier:   e.classifier,
		Workers:      workers,
		FailFast:     failFast,
		Logger:       zaptest.NewLogger(t),
		Metrics:      e.metrics,
		Clock:        func() time.Time { return fixedNow },
	})
}

func TestRunner_Fixtures(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	result, err := env.runner(t, 4, false).Run(ctx, nil)
	require.NoError(t, err)

	assert.Equal(t, 3, result.ContractsProcessed)
	assert.Equal(t, 2, result.SequencesStored)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 5, result.TransactionsClassified)
	require.Len(t, result.Errors, 1)
	assert.True(t, strings.HasPrefix(result.Errors[0], FixtureSelfCreating.String()), result.Errors[0])

	funded, err := env.sequences.GetByAddress(ctx, FixtureFunded)
	require.NoError(t, err)
	if diff := cmp.Diff([]byte{182, 206, 84, 40}, funded.Cases); diff != "" {
		t.Errorf("funded sequence mismatch (-want +got):\n%s", diff)
	}

	digest := env.classifier.Taxonomy().Digest()
	assert.Equal(t, digest, funded.TaxonomyDigest)
	assert.Equal(t, idhash.ComputeSequenceID(FixtureFunded.String(), digest, funded.Cases), funded.SequenceID)
	assert.Equal(t, fixedNow.UnixMilli(), funded.CreatedAt)

	internal, err := env.sequences.GetByAddress(ctx, FixtureInternal)
	require.NoError(t, err)
	assert.Equal(t, []byte{202}, internal.Cases)

	_, err = env.sequences.GetByAddress(ctx, FixtureSelfCreating)
	assert.ErrorIs(t, err, storage.ErrNotFound, "failed contract must not leave a partial sequence")

	assert.Equal(t, 2.0, testutil.ToFloat64(env.metrics.ContractsProcessed.WithLabelValues(StatusOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.ContractFailures.WithLabelValues(observability.ReasonInvariant)))
}

func TestRunner_RerunIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.runner(t, 2, false).Run(ctx, nil)
	require.NoError(t, err)
	before, err := env.sequences.GetAll(ctx)
	require.NoError(t, err)

	result, err := env.runner(t, 2, false).Run(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, result.AlreadyProcessed)
	assert.Equal(t, 0, result.SequencesStored)

	after, err := env.sequences.GetAll(ctx)
	require.NoError(t, err)
	if diff := cmp.Diff(before, after); diff != "" {
		t.Errorf("stored sequences changed on rerun (-before +after):\n%s", diff)
	}
}

func TestRunner_FailFast(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	result, err := env.runner(t, 1, true).Run(ctx, []domain.Address{FixtureSelfCreating, FixtureFunded})
	require.Error(t, err)
	assert.ErrorIs(t, err, fundflow.ErrInvariantViolation)
	assert.Contains(t, err.Error(), FixtureSelfCreating.String())

	assert.Equal(t, 1, result.ContractsProcessed)
	_, err = env.sequences.GetByAddress(ctx, FixtureFunded)
	assert.ErrorIs(t, err, storage.ErrNotFound, "no contract is scheduled after a fail-fast stop")
}

// blockingContractStore holds lookups of one address until ctx is canceled.
type blockingContractStore struct {
	storage.ContractStore
	blocked domain.Address
}

func (s blockingContractStore) GetByAddress(ctx context.Context, addr domain.Address) (*domain.Contract, error) {
	if addr == s.blocked {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return s.ContractStore.GetByAddress(ctx, addr)
}

func TestRunner_FailFastDoesNotCountInterruptedContracts(t *testing.T) {
	env := newTestEnv(t)
	const slow = domain.Address("0xs10w")

	runner := New(Options{
		Contracts:    blockingContractStore{ContractStore: env.contracts, blocked: slow},
		Transactions: env.transactions,
		Sequences:    env.sequences,
		Classifier:   env.classifier,
		Workers:      2,
		FailFast:     true,
		Logger:       zaptest.NewLogger(t),
		Metrics:      env.metrics,
	})

	result, err := runner.Run(context.Background(), []domain.Address{slow, FixtureSelfCreating})
	require.ErrorIs(t, err, fundflow.ErrInvariantViolation)

	assert.Equal(t, 1, result.ContractsProcessed)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Errors, 1)
	assert.True(t, strings.HasPrefix(result.Errors[0], FixtureSelfCreating.String()), result.Errors[0])
	assert.Equal(t, 0.0, testutil.ToFloat64(env.metrics.ContractFailures.WithLabelValues(observability.ReasonCanceled)))
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.ContractFailures.WithLabelValues(observability.ReasonInvariant)))
}

func TestRunner_UnknownContract(t *testing.T) {
	env := newTestEnv(t)

	result, err := env.runner(t, 1, false).Run(context.Background(), []domain.Address{"0xdead"})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.ContractFailures.WithLabelValues(observability.ReasonNotFound)))
}

func TestRunner_CanceledContext(t *testing.T) {
	env := newTestEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := env.runner(t, 4, false).Run(ctx, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, result.SequencesStored)
}

type failingSequenceStore struct {
	storage.SequenceStore
}

func (failingSequenceStore) Insert(context.Context, *domain.FundFlowSequence) error {
	return errors.New("connection reset")
}

func TestRunner_StoreFailure(t *testing.T) {
	env := newTestEnv(t)

	result, err := env.runnerWith(t, failingSequenceStore{}, 2, false).
		Run(context.Background(), []domain.Address{FixtureFunded, FixtureInternal})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Failed)
	assert.Equal(t, 2.0, testutil.ToFloat64(env.metrics.ContractFailures.WithLabelValues(observability.ReasonStorage)))
	assert.Equal(t, 2.0, testutil.ToFloat64(env.metrics.StoreOperationErrors.WithLabelValues("sequences", "insert")))
}

func TestRunner_Build(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	seq, err := env.runner(t, 1, false).Build(ctx, FixtureFunded)
	require.NoError(t, err)
	assert.Equal(t, []byte{182, 206, 84, 40}, seq.Cases)

	_, err = env.sequences.GetByAddress(ctx, FixtureFunded)
	assert.ErrorIs(t, err, storage.ErrNotFound, "Build must not store")
}

func TestRunner_ManyContractsConcurrently(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	const n = 64
	var addrs []domain.Address
	for i := 0; i < n; i++ {
		addr := domain.Address(fmt.Sprintf("0xbbbb%036x", i))
		addrs = append(addrs, addr)

		require.NoError(t, env.contracts.Insert(ctx, &domain.Contract{Address: addr, Creator: FixtureCreator}))

		var txs []*domain.Transaction
		for j := 0; j <= i%5; j++ {
			txs = append(txs, &domain.Transaction{
				Hash:             fmt.Sprintf("0x%d-%d", i, j),
				CrawledFrom:      addr,
				Source:           FixtureUser,
				Target:           addrPtr(addr),
				Value:            decimal.NewFromInt(int64(j)),
				BlockNumber:      int64(j),
				TransactionIndex: 0,
			})
		}
		require.NoError(t, env.transactions.InsertBulk(ctx, txs))
	}

	result, err := env.runner(t, 8, false).Run(ctx, addrs)
	require.NoError(t, err)
	assert.Equal(t, n, result.SequencesStored)
	assert.Empty(t, result.Errors)

	for i, addr := range addrs {
		seq, err := env.sequences.GetByAddress(ctx, addr)
		require.NoError(t, err)
		assert.Len(t, seq.Cases, i%5+1)
	}
}
