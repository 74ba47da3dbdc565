package clickhouse

import (
	"context"
	"fmt"

	"fundflow-lab/internal/domain"
	"fundflow-lab/internal/storage"
)

// CaseFrequencyStore implements storage.CaseFrequencyStore using ClickHouse.
type CaseFrequencyStore struct {
	conn *Conn
}

// NewCaseFrequencyStore creates a new CaseFrequencyStore.
func NewCaseFrequencyStore(conn *Conn) *CaseFrequencyStore {
	return &CaseFrequencyStore{conn: conn}
}

// Compile-time interface check.
var _ storage.CaseFrequencyStore = (*CaseFrequencyStore)(nil)

type caseFrequencyKey struct {
	contract domain.Address
	caseID   int
}

// InsertBulk adds multiple rows. Fails entire batch on duplicate (contract_address, case_id).
// MergeTree does not enforce uniqueness, so duplicates are checked before the insert.
func (s *CaseFrequencyStore) InsertBulk(ctx context.Context, rows []*domain.CaseFrequency) error {
	if len(rows) == 0 {
		return nil
	}

	seen := make(map[caseFrequencyKey]struct{}, len(rows))
	contracts := make(map[domain.Address]struct{})
	for _, r := range rows {
		if r == nil || r.ContractAddress == "" || r.CaseID <= 0 || r.CaseID > 255 {
			return storage.ErrInvalidInput
		}
		k := caseFrequencyKey{r.ContractAddress, r.CaseID}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
		contracts[r.ContractAddress] = struct{}{}
	}

	for contract := range contracts {
		existing, err := s.existingCaseIDs(ctx, contract)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		for _, id := range existing {
			if _, clash := seen[caseFrequencyKey{contract, id}]; clash {
				return storage.ErrDuplicateKey
			}
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO fund_flow_case_frequencies (
			contract_address, case_id, count, sequence_length, frequency
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, r := range rows {
		err = batch.Append(
			string(r.ContractAddress),
			uint8(r.CaseID),
			uint32(r.Count),
			uint32(r.SequenceLength),
			r.Frequency,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByContract retrieves the rows of a contract, ordered by case_id ASC.
func (s *CaseFrequencyStore) GetByContract(ctx context.Context, contract domain.Address) ([]*domain.CaseFrequency, error) {
	query := `
		SELECT contract_address, case_id, count, sequence_length, frequency
		FROM fund_flow_case_frequencies FINAL
		WHERE contract_address = ?
		ORDER BY case_id ASC
	`

	rows, err := s.conn.Query(ctx, query, string(contract))
	if err != nil {
		return nil, fmt.Errorf("query by contract: %w", err)
	}
	defer rows.Close()

	return scanCaseFrequencies(rows)
}

func (s *CaseFrequencyStore) existingCaseIDs(ctx context.Context, contract domain.Address) ([]int, error) {
	rows, err := s.conn.Query(ctx,
		`SELECT case_id FROM fund_flow_case_frequencies WHERE contract_address = ?`,
		string(contract),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id uint8
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, int(id))
	}
	return ids, rows.Err()
}

// scanCaseFrequencies scans multiple rows.
func scanCaseFrequencies(rows chRows) ([]*domain.CaseFrequency, error) {
	var result []*domain.CaseFrequency

	for rows.Next() {
		var (
			r                     domain.CaseFrequency
			addr                  string
			caseID                uint8
			count, sequenceLength uint32
		)
		if err := rows.Scan(&addr, &caseID, &count, &sequenceLength, &r.Frequency); err != nil {
			return nil, fmt.Errorf("scan case frequency row: %w", err)
		}

		r.ContractAddress = domain.Address(addr)
		r.CaseID = int(caseID)
		r.Count = int(count)
		r.SequenceLength = int(sequenceLength)
		result = append(result, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate case frequency rows: %w", err)
	}

	return result, nil
}
