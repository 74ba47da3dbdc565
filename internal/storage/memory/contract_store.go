package memory

import (
	"context"
	"sort"
	"sync"

	"fundflow-lab/internal/domain"
	"fundflow-lab/internal/storage"
)

// ContractStore is an in-memory implementation of storage.ContractStore.
type ContractStore struct {
	mu   sync.RWMutex
	data map[domain.Address]*domain.Contract // keyed by address
}

// NewContractStore creates a new in-memory contract store.
func NewContractStore() *ContractStore {
	return &ContractStore{
		data: make(map[domain.Address]*domain.Contract),
	}
}

// Insert adds a new contract. Returns ErrDuplicateKey if address exists.
func (s *ContractStore) Insert(_ context.Context, c *domain.Contract) error {
	if c == nil || c.Address == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[c.Address]; exists {
		return storage.ErrDuplicateKey
	}

	// Store a copy to prevent external mutation
	contractCopy := *c
	s.data[c.Address] = &contractCopy
	return nil
}

// InsertBulk adds multiple contracts atomically. Fails entire batch on any duplicate.
func (s *ContractStore) InsertBulk(_ context.Context, contracts []*domain.Contract) error {
	if len(contracts) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[domain.Address]struct{}, len(contracts))
	for _, c := range contracts {
		if c == nil || c.Address == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := s.data[c.Address]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[c.Address]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[c.Address] = struct{}{}
	}

	for _, c := range contracts {
		contractCopy := *c
		s.data[c.Address] = &contractCopy
	}
	return nil
}

// GetByAddress retrieves a contract by its address. Returns ErrNotFound if not exists.
func (s *ContractStore) GetByAddress(_ context.Context, address domain.Address) (*domain.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, exists := s.data[address]
	if !exists {
		return nil, storage.ErrNotFound
	}

	contractCopy := *c
	return &contractCopy, nil
}

// ListAddresses returns every stored contract address, ordered ASC.
func (s *ContractStore) ListAddresses(_ context.Context) ([]domain.Address, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Address, 0, len(s.data))
	for addr := range s.data {
		result = append(result, addr)
	}
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })

	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.ContractStore = (*ContractStore)(nil)
