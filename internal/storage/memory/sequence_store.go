package memory

import (
	"context"
	"sort"
	"sync"

	"fundflow-lab/internal/domain"
	"fundflow-lab/internal/storage"
)

// SequenceStore is an in-memory implementation of storage.SequenceStore.
type SequenceStore struct {
	mu   sync.RWMutex
	data map[domain.Address]*domain.FundFlowSequence // keyed by contract_address
}

// NewSequenceStore creates a new in-memory sequence store.
func NewSequenceStore() *SequenceStore {
	return &SequenceStore{
		data: make(map[domain.Address]*domain.FundFlowSequence),
	}
}

// Insert adds a new sequence. Returns ErrDuplicateKey if contract_address exists.
func (s *SequenceStore) Insert(_ context.Context, seq *domain.FundFlowSequence) error {
	if seq == nil || seq.ContractAddress == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[seq.ContractAddress]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[seq.ContractAddress] = copySequence(seq)
	return nil
}

// GetByAddress retrieves the sequence of a contract. Returns ErrNotFound if not exists.
func (s *SequenceStore) GetByAddress(_ context.Context, address domain.Address) (*domain.FundFlowSequence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seq, exists := s.data[address]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return copySequence(seq), nil
}

// GetAll retrieves all sequences, ordered by contract_address ASC.
func (s *SequenceStore) GetAll(_ context.Context) ([]*domain.FundFlowSequence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.FundFlowSequence, 0, len(s.data))
	for _, seq := range s.data {
		result = append(result, copySequence(seq))
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ContractAddress < result[j].ContractAddress
	})

	return result, nil
}

func copySequence(seq *domain.FundFlowSequence) *domain.FundFlowSequence {
	seqCopy := *seq
	seqCopy.Cases = append([]byte(nil), seq.Cases...)
	return &seqCopy
}

var _ storage.SequenceStore = (*SequenceStore)(nil)
