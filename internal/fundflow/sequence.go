package fundflow

import (
	"sort"

	"fundflow-lab/internal/domain"
)

// BuildSequence classifies every top-level transaction of a contract and
// returns the case ids in input order. txs must already be ordered most recent
// first (see SortTransactions). subsByHash maps a transaction hash to its
// sub-transfers. Any failure discards the whole sequence.
func (c *Classifier) BuildSequence(
	creator, contract domain.Address,
	txs []*domain.Transaction,
	subsByHash map[string][]*domain.SubTransfer,
) ([]byte, error) {
	sequence := make([]byte, 0, len(txs))
	var creationHash string

	for _, tx := range txs {
		if tx == nil {
			return nil, invariantf("", "nil transaction in history of %s", contract)
		}
		if tx.IsCreation() {
			if creationHash != "" {
				return nil, invariantf(tx.Hash, "second creation transaction, first was %s", creationHash)
			}
			if tx.Source != creator {
				return nil, invariantf(tx.Hash, "creation sent by %s, contract creator is %s", tx.Source, creator)
			}
			creationHash = tx.Hash
		}

		id, err := c.Classify(creator, contract, tx, subsByHash[tx.Hash])
		if err != nil {
			return nil, err
		}
		sequence = append(sequence, id)
	}

	return sequence, nil
}

// SortTransactions orders transactions by block number descending, then by
// transaction index descending. The sort is stable.
func SortTransactions(txs []*domain.Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		if txs[i].BlockNumber != txs[j].BlockNumber {
			return txs[i].BlockNumber > txs[j].BlockNumber
		}
		return txs[i].TransactionIndex > txs[j].TransactionIndex
	})
}

// GroupSubTransfers indexes sub-transfers by their parent hash, keeping input order.
func GroupSubTransfers(subs []*domain.SubTransfer) map[string][]*domain.SubTransfer {
	out := make(map[string][]*domain.SubTransfer)
	for _, s := range subs {
		out[s.Hash] = append(out[s.Hash], s)
	}
	return out
}
