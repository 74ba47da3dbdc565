package pipeline

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"fundflow-lab/internal/domain"
	"fundflow-lab/internal/storage"
)

// Fixture accounts.
const (
	FixtureCreator = domain.Address("0xc0ffee0000000000000000000000000000000001")
	FixtureUser    = domain.Address("0x5e5e000000000000000000000000000000000002")
	FixtureThird   = domain.Address("0x7777000000000000000000000000000000000003")

	// FixtureFunded is created with value, paid by its creator and by a user,
	// and forwards the user's payment to its creator.
	FixtureFunded = domain.Address("0xaaaa000000000000000000000000000000000001")
	// FixtureSelfCreating has a sub-transfer that creates its own source,
	// which is rejected as an invariant violation.
	FixtureSelfCreating = domain.Address("0xaaaa000000000000000000000000000000000002")
	// FixtureInternal was created by another contract, so its history has
	// no top-level creation transaction.
	FixtureInternal = domain.Address("0xaaaa000000000000000000000000000000000003")
)

// LoadFixtures populates stores with a small demonstration dataset.
func LoadFixtures(
	ctx context.Context,
	contractStore storage.ContractStore,
	txStore storage.TransactionStore,
) error {
	contracts := []*domain.Contract{
		{Address: FixtureFunded, Creator: FixtureCreator, CreationTxHash: "0xf1", BlockNumber: 100, Timestamp: 1704067200},
		{Address: FixtureSelfCreating, Creator: FixtureCreator, CreationTxHash: "0xf5", BlockNumber: 100, Timestamp: 1704067200},
		{Address: FixtureInternal, Creator: FixtureThird, CreationTxHash: "0xf7", BlockNumber: 90, Timestamp: 1704067000, CreatedInternal: true},
	}
	if err := contractStore.InsertBulk(ctx, contracts); err != nil {
		return fmt.Errorf("load fixture contracts: %w", err)
	}

	txs := []*domain.Transaction{
		fixtureCreation(FixtureFunded, "0xf1", 100, 100),
		fixtureCall(FixtureFunded, "0xf2", FixtureCreator, 5, 110, 0),
		fixtureCall(FixtureFunded, "0xf3", FixtureUser, 0, 120, 0),
		fixtureCall(FixtureFunded, "0xf4", FixtureUser, 50, 120, 7),

		fixtureCreation(FixtureSelfCreating, "0xf5", 0, 100),
		fixtureCall(FixtureSelfCreating, "0xf6", FixtureUser, 0, 101, 0),

		fixtureCall(FixtureInternal, "0xf8", FixtureUser, 1, 95, 2),
	}
	if err := txStore.InsertBulk(ctx, txs); err != nil {
		return fmt.Errorf("load fixture transactions: %w", err)
	}

	subs := []*domain.SubTransfer{
		{
			Hash:        "0xf4",
			CrawledFrom: FixtureFunded,
			Source:      FixtureFunded,
			Target:      addrPtr(FixtureCreator),
			Value:       decimal.NewFromInt(50),
			BlockNumber: 120,
		},
		{
			Hash:            "0xf6",
			CrawledFrom:     FixtureSelfCreating,
			Source:          FixtureThird,
			ContractAddress: addrPtr(FixtureThird),
			Value:           decimal.NewFromInt(7),
			BlockNumber:     101,
		},
	}
	if err := txStore.InsertSubTransfers(ctx, subs); err != nil {
		return fmt.Errorf("load fixture sub-transfers: %w", err)
	}

	return nil
}

func addrPtr(a domain.Address) *domain.Address {
	return &a
}

func fixtureCreation(contract domain.Address, hash string, value int64, block int64) *domain.Transaction {
	return &domain.Transaction{
		Hash:            hash,
		CrawledFrom:     contract,
		Source:          FixtureCreator,
		ContractAddress: addrPtr(contract),
		Value:           decimal.NewFromInt(value),
		BlockNumber:     block,
		Timestamp:       1704067200,
	}
}

func fixtureCall(contract domain.Address, hash string, from domain.Address, value int64, block int64, index int) *domain.Transaction {
	return &domain.Transaction{
		Hash:             hash,
		CrawledFrom:      contract,
		Source:           from,
		Target:           addrPtr(contract),
		Value:            decimal.NewFromInt(value),
		BlockNumber:      block,
		TransactionIndex: index,
		Timestamp:        1704067200 + (block-100)*12,
	}
}
