package memory

import (
	"context"
	"sort"
	"sync"

	"fundflow-lab/internal/domain"
	"fundflow-lab/internal/storage"
)

// CaseStore is an in-memory implementation of storage.CaseStore.
type CaseStore struct {
	mu   sync.RWMutex
	data map[int]*domain.FundFlowCaseEntry // keyed by id
}

// NewCaseStore creates a new in-memory case store.
func NewCaseStore() *CaseStore {
	return &CaseStore{
		data: make(map[int]*domain.FundFlowCaseEntry),
	}
}

// InsertBulk adds multiple cases atomically. Fails entire batch on duplicate id.
func (s *CaseStore) InsertBulk(_ context.Context, entries []*domain.FundFlowCaseEntry) error {
	if len(entries) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[int]struct{}, len(entries))
	for _, e := range entries {
		if e == nil || e.ID <= 0 || e.Value == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := s.data[e.ID]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[e.ID]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[e.ID] = struct{}{}
	}

	for _, e := range entries {
		entryCopy := *e
		s.data[e.ID] = &entryCopy
	}
	return nil
}

// GetAll retrieves all cases, ordered by id ASC.
func (s *CaseStore) GetAll(_ context.Context) ([]*domain.FundFlowCaseEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.FundFlowCaseEntry, 0, len(s.data))
	for _, e := range s.data {
		entryCopy := *e
		result = append(result, &entryCopy)
	}

	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })

	return result, nil
}

var _ storage.CaseStore = (*CaseStore)(nil)
