package fundflow

import (
	"sort"

	"github.com/shopspring/decimal"

	"fundflow-lab/internal/domain"
)

// Deltas is the net value movement per account caused by one top-level
// transaction and its sub-transfers. It is immutable once aggregated.
type Deltas struct {
	values  map[domain.Address]decimal.Decimal
	errored bool
}

// Get returns the net delta of an account, zero if it was never touched.
func (d Deltas) Get(addr domain.Address) decimal.Decimal {
	return d.values[addr]
}

// Has reports whether the account took part in a value movement.
func (d Deltas) Has(addr domain.Address) bool {
	_, ok := d.values[addr]
	return ok
}

// Accounts returns every touched account in lexical order.
func (d Deltas) Accounts() []domain.Address {
	out := make([]domain.Address, 0, len(d.values))
	for a := range d.values {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Errored reports whether the transaction or any sub-transfer failed.
func (d Deltas) Errored() bool {
	return d.errored
}

// Len returns the number of touched accounts.
func (d Deltas) Len() int {
	return len(d.values)
}

// Sum returns the total of all deltas. It is zero for every well-formed input.
func (d Deltas) Sum() decimal.Decimal {
	total := decimal.Zero
	for _, v := range d.values {
		total = total.Add(v)
	}
	return total
}

// ledger accumulates deltas before they are frozen into Deltas.
type ledger map[domain.Address]decimal.Decimal

func (l ledger) move(from, to domain.Address, value decimal.Decimal) {
	l[from] = l[from].Sub(value)
	l[to] = l[to].Add(value)
}

// AggregateDeltas computes the net delta of every account for a top-level
// transaction of contract and its sub-transfers. Sub-transfer order does not
// matter; every sub-transfer must carry the parent hash.
func AggregateDeltas(contract domain.Address, tx *domain.Transaction, subs []*domain.SubTransfer) (Deltas, error) {
	if tx == nil {
		return Deltas{}, invariantf("", "missing transaction")
	}

	l := make(ledger)
	errored := tx.IsError

	// The contract is the implicit receiver of a call and the created account
	// of a creation.
	if !tx.Value.IsZero() {
		l.move(tx.Source, contract, tx.Value)
	}

	for _, sub := range subs {
		if sub == nil {
			return Deltas{}, invariantf(tx.Hash, "nil sub-transfer")
		}
		if sub.Hash != tx.Hash {
			return Deltas{}, invariantf(tx.Hash, "sub-transfer hash %s does not match parent", sub.Hash)
		}
		errored = errored || sub.IsError

		// Zero-value sub-transfers move nothing; failed creations often
		// carry no created address.
		if sub.Value.IsZero() {
			continue
		}
		to, err := subTransferReceiver(tx.Hash, sub)
		if err != nil {
			return Deltas{}, err
		}
		l.move(sub.Source, to, sub.Value)
	}

	return Deltas{values: l, errored: errored}, nil
}

// subTransferReceiver resolves the account credited by a sub-transfer: its
// target, or the contract it created.
func subTransferReceiver(txHash string, sub *domain.SubTransfer) (domain.Address, error) {
	if !sub.IsCreation() {
		return *sub.Target, nil
	}
	if sub.ContractAddress == nil || *sub.ContractAddress == "" {
		return "", invariantf(txHash, "creation sub-transfer from %s has no created address", sub.Source)
	}
	if *sub.ContractAddress == sub.Source {
		return "", invariantf(txHash, "contract %s cannot create itself", sub.Source)
	}
	return *sub.ContractAddress, nil
}
