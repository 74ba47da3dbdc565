// Package fundflow turns a contract's transaction history into a sequence of
// fund-flow case ids.
//
// A fund-flow case describes one top-level transaction: who sent it, whether
// it was the contract creation, whether anything failed, and which accounts
// ended with a positive or negative balance delta. BuildTaxonomy enumerates
// every case once; Classifier maps transactions onto it. Nothing in this
// package performs I/O or keeps state between calls.
package fundflow

import (
	"github.com/shopspring/decimal"

	"fundflow-lab/internal/domain"
)

// Classifier maps transactions to taxonomy ids. It only reads its taxonomy,
// so one Classifier can be shared by many goroutines.
type Classifier struct {
	taxonomy  *Taxonomy
	tolerance decimal.Decimal
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithTolerance sets the absolute delta below which a balance is unchanged.
func WithTolerance(tolerance decimal.Decimal) Option {
	return func(c *Classifier) {
		c.tolerance = tolerance.Abs()
	}
}

// NewClassifier creates a Classifier over a built taxonomy.
func NewClassifier(taxonomy *Taxonomy, opts ...Option) *Classifier {
	c := &Classifier{
		taxonomy:  taxonomy,
		tolerance: DefaultTolerance,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Taxonomy returns the taxonomy the classifier resolves against.
func (c *Classifier) Taxonomy() *Taxonomy {
	return c.taxonomy
}

// Classify returns the case id of a top-level transaction of contract.
func (c *Classifier) Classify(
	creator, contract domain.Address,
	tx *domain.Transaction,
	subs []*domain.SubTransfer,
) (uint8, error) {
	fc, err := c.Derive(creator, contract, tx, subs)
	if err != nil {
		return 0, err
	}
	return c.resolve(tx.Hash, fc)
}

// Derive computes the case of a top-level transaction without resolving its id.
func (c *Classifier) Derive(
	creator, contract domain.Address,
	tx *domain.Transaction,
	subs []*domain.SubTransfer,
) (Case, error) {
	if err := checkTopLevel(creator, contract, tx); err != nil {
		return nil, err
	}

	deltas, err := AggregateDeltas(contract, tx, subs)
	if err != nil {
		return nil, err
	}

	otherSender := tx.Source != creator

	balanceCreator, balanceContract, balanceSender := Unchanged, Unchanged, Unchanged
	var otherPositive, otherNegative bool

	for _, addr := range deltas.Accounts() {
		bucket := BucketOf(deltas.Get(addr), c.tolerance)
		switch {
		case addr == creator:
			balanceCreator = bucket
		case addr == contract:
			balanceContract = bucket
		case otherSender && addr == tx.Source:
			balanceSender = bucket
		default:
			otherPositive = otherPositive || bucket == Positive
			otherNegative = otherNegative || bucket == Negative
		}
	}

	if !otherSender {
		return CreatorCase{
			Creation:             tx.IsCreation(),
			Error:                deltas.Errored(),
			BalanceCreator:       balanceCreator,
			BalanceContract:      balanceContract,
			BalanceOtherPositive: otherPositive,
			BalanceOtherNegative: otherNegative,
		}, nil
	}
	return OtherCase{
		Error:                deltas.Errored(),
		BalanceCreator:       balanceCreator,
		BalanceContract:      balanceContract,
		BalanceSender:        balanceSender,
		BalanceOtherPositive: otherPositive,
		BalanceOtherNegative: otherNegative,
	}, nil
}

// resolve validates a derived case and looks up its id.
func (c *Classifier) resolve(txHash string, fc Case) (uint8, error) {
	if !IsValid(fc) {
		return 0, &ClassificationError{TxHash: txHash, Canonical: fc.Canonical()}
	}
	id, ok := c.taxonomy.Lookup(fc)
	if !ok || id > MaxCases {
		return 0, &ClassificationError{TxHash: txHash, Canonical: fc.Canonical()}
	}
	return uint8(id), nil
}

// checkTopLevel enforces the shape of a top-level transaction of contract.
func checkTopLevel(creator, contract domain.Address, tx *domain.Transaction) error {
	if tx == nil {
		return invariantf("", "missing transaction")
	}
	if tx.Source == "" {
		return invariantf(tx.Hash, "transaction has no source")
	}

	if tx.IsCreation() {
		if tx.Source != creator {
			return invariantf(tx.Hash, "creation sent by %s, contract creator is %s", tx.Source, creator)
		}
		if tx.ContractAddress != nil && *tx.ContractAddress != contract {
			return invariantf(tx.Hash, "creation created %s, expected %s", *tx.ContractAddress, contract)
		}
		return nil
	}

	if *tx.Target == tx.Source {
		return invariantf(tx.Hash, "source and target are both %s", tx.Source)
	}
	if *tx.Target != contract {
		return invariantf(tx.Hash, "transaction targets %s, expected contract %s", *tx.Target, contract)
	}
	if tx.ContractAddress != nil {
		return invariantf(tx.Hash, "non-creation transaction records created contract %s", *tx.ContractAddress)
	}
	return nil
}
