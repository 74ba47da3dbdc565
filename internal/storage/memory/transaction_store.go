package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"fundflow-lab/internal/domain"
	"fundflow-lab/internal/fundflow"
	"fundflow-lab/internal/storage"
)

// TransactionStore is an in-memory implementation of storage.TransactionStore.
type TransactionStore struct {
	mu     sync.RWMutex
	txs    map[string]*domain.Transaction // keyed by crawled_from|hash
	subs   []*domain.SubTransfer
	nextID int64
}

// NewTransactionStore creates a new in-memory transaction store.
func NewTransactionStore() *TransactionStore {
	return &TransactionStore{
		txs:    make(map[string]*domain.Transaction),
		nextID: 1,
	}
}

// transactionKey generates a unique key for a top-level transaction.
func transactionKey(crawledFrom domain.Address, hash string) string {
	return fmt.Sprintf("%s|%s", crawledFrom, hash)
}

// InsertBulk adds top-level transactions atomically.
func (s *TransactionStore) InsertBulk(_ context.Context, txs []*domain.Transaction) error {
	if len(txs) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(txs))
	for _, tx := range txs {
		if tx == nil || tx.Hash == "" || tx.CrawledFrom == "" {
			return storage.ErrInvalidInput
		}
		key := transactionKey(tx.CrawledFrom, tx.Hash)
		if _, exists := s.txs[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, tx := range txs {
		s.txs[transactionKey(tx.CrawledFrom, tx.Hash)] = copyTransaction(tx)
	}
	return nil
}

// InsertSubTransfers adds sub-transfers atomically, assigning IDs in input order.
func (s *TransactionStore) InsertSubTransfers(_ context.Context, subs []*domain.SubTransfer) error {
	if len(subs) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sub := range subs {
		if sub == nil || sub.Hash == "" || sub.CrawledFrom == "" {
			return storage.ErrInvalidInput
		}
	}

	for _, sub := range subs {
		subCopy := copySubTransfer(sub)
		subCopy.ID = s.nextID
		s.nextID++
		s.subs = append(s.subs, subCopy)
	}
	return nil
}

// GetByContract retrieves the top-level transactions crawled from a contract,
// ordered by block_number DESC, transaction_index DESC.
func (s *TransactionStore) GetByContract(_ context.Context, contract domain.Address) ([]*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Transaction
	for _, tx := range s.txs {
		if tx.CrawledFrom == contract {
			result = append(result, copyTransaction(tx))
		}
	}

	// Hash breaks ties so map iteration order never leaks out
	sort.Slice(result, func(i, j int) bool { return result[i].Hash < result[j].Hash })
	fundflow.SortTransactions(result)

	return result, nil
}

// GetSubTransfersByContract retrieves the sub-transfers crawled from a contract,
// ordered by hash ASC, id ASC.
func (s *TransactionStore) GetSubTransfersByContract(_ context.Context, contract domain.Address) ([]*domain.SubTransfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.SubTransfer
	for _, sub := range s.subs {
		if sub.CrawledFrom == contract {
			result = append(result, copySubTransfer(sub))
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		if result[i].Hash != result[j].Hash {
			return result[i].Hash < result[j].Hash
		}
		return result[i].ID < result[j].ID
	})

	return result, nil
}

func copyAddress(a *domain.Address) *domain.Address {
	if a == nil {
		return nil
	}
	v := *a
	return &v
}

func copyTransaction(tx *domain.Transaction) *domain.Transaction {
	txCopy := *tx
	txCopy.Target = copyAddress(tx.Target)
	txCopy.ContractAddress = copyAddress(tx.ContractAddress)
	return &txCopy
}

func copySubTransfer(sub *domain.SubTransfer) *domain.SubTransfer {
	subCopy := *sub
	subCopy.Target = copyAddress(sub.Target)
	subCopy.ContractAddress = copyAddress(sub.ContractAddress)
	return &subCopy
}

var _ storage.TransactionStore = (*TransactionStore)(nil)
