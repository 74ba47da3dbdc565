package main

import (
	"context"
	"fmt"

	"fundflow-lab/internal/config"
	"fundflow-lab/internal/storage"
	chstore "fundflow-lab/internal/storage/clickhouse"
	"fundflow-lab/internal/storage/memory"
	"fundflow-lab/internal/storage/migrations"
	pgstore "fundflow-lab/internal/storage/postgres"
)

// allStores holds all storage implementations.
type allStores struct {
	contracts    storage.ContractStore
	transactions storage.TransactionStore
	sequences    storage.SequenceStore
	cases        storage.CaseStore
	frequencies  storage.CaseFrequencyStore
	memory       bool
}

// openStores connects the configured backends and applies migrations.
// Frequencies go to ClickHouse when a DSN is configured and stay in memory otherwise.
func openStores(ctx context.Context, sc config.StorageConfig) (*allStores, func(), error) {
	if sc.UseMemory {
		stores := &allStores{
			contracts:    memory.NewContractStore(),
			transactions: memory.NewTransactionStore(),
			sequences:    memory.NewSequenceStore(),
			cases:        memory.NewCaseStore(),
			frequencies:  memory.NewCaseFrequencyStore(),
			memory:       true,
		}
		return stores, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, sc.PostgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("migrate postgres: %w", err)
	}

	stores := &allStores{
		contracts:    pgstore.NewContractStore(pool),
		transactions: pgstore.NewTransactionStore(pool),
		sequences:    pgstore.NewSequenceStore(pool),
		cases:        pgstore.NewCaseStore(pool),
		frequencies:  memory.NewCaseFrequencyStore(),
	}
	cleanup := func() { pool.Close() }

	if sc.ClickhouseDSN != "" {
		chConn, err := migrations.RunClickhouseMigrations(ctx, sc.ClickhouseDSN)
		if err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("migrate clickhouse: %w", err)
		}
		stores.frequencies = chstore.NewCaseFrequencyStore(chConn)
		cleanup = func() {
			chConn.Close()
			pool.Close()
		}
	}

	return stores, cleanup, nil
}
