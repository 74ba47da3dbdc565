package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"fundflow-lab/internal/domain"
	"fundflow-lab/internal/storage"
)

// CaseFrequencyStore is an in-memory implementation of storage.CaseFrequencyStore.
type CaseFrequencyStore struct {
	mu   sync.RWMutex
	data map[string]*domain.CaseFrequency // keyed by contract_address|case_id
}

// NewCaseFrequencyStore creates a new in-memory case frequency store.
func NewCaseFrequencyStore() *CaseFrequencyStore {
	return &CaseFrequencyStore{
		data: make(map[string]*domain.CaseFrequency),
	}
}

func caseFrequencyKey(contract domain.Address, caseID int) string {
	return fmt.Sprintf("%s|%d", contract, caseID)
}

// InsertBulk adds multiple rows. Fails entire batch on duplicate (contract_address, case_id).
func (s *CaseFrequencyStore) InsertBulk(_ context.Context, rows []*domain.CaseFrequency) error {
	if len(rows) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(rows))
	for _, r := range rows {
		if r == nil || r.ContractAddress == "" || r.CaseID <= 0 {
			return storage.ErrInvalidInput
		}
		key := caseFrequencyKey(r.ContractAddress, r.CaseID)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, r := range rows {
		rowCopy := *r
		s.data[caseFrequencyKey(r.ContractAddress, r.CaseID)] = &rowCopy
	}
	return nil
}

// GetByContract retrieves the rows of a contract, ordered by case_id ASC.
func (s *CaseFrequencyStore) GetByContract(_ context.Context, contract domain.Address) ([]*domain.CaseFrequency, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.CaseFrequency
	for _, r := range s.data {
		if r.ContractAddress == contract {
			rowCopy := *r
			result = append(result, &rowCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool { return result[i].CaseID < result[j].CaseID })

	return result, nil
}

var _ storage.CaseFrequencyStore = (*CaseFrequencyStore)(nil)
