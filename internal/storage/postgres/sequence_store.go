package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"fundflow-lab/internal/domain"
	"fundflow-lab/internal/storage"
)

// SequenceStore implements storage.SequenceStore using PostgreSQL.
type SequenceStore struct {
	pool *Pool
}

// NewSequenceStore creates a new SequenceStore.
func NewSequenceStore(pool *Pool) *SequenceStore {
	return &SequenceStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SequenceStore = (*SequenceStore)(nil)

// Insert adds a new sequence. Returns ErrDuplicateKey if contract_address exists.
func (s *SequenceStore) Insert(ctx context.Context, seq *domain.FundFlowSequence) error {
	if seq == nil || seq.ContractAddress == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO fund_flow_sequences (
			contract_address, sequence_id, cases, taxonomy_digest, created_at
		) VALUES ($1, $2, $3, $4, $5)
	`

	cases := seq.Cases
	if cases == nil {
		cases = []byte{}
	}

	_, err := s.pool.Exec(ctx, query,
		string(seq.ContractAddress),
		seq.SequenceID,
		cases,
		seq.TaxonomyDigest,
		seq.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert sequence: %w", err)
	}
	return nil
}

// GetByAddress retrieves the sequence of a contract. Returns ErrNotFound if not exists.
func (s *SequenceStore) GetByAddress(ctx context.Context, address domain.Address) (*domain.FundFlowSequence, error) {
	query := `
		SELECT contract_address, sequence_id, cases, taxonomy_digest, created_at
		FROM fund_flow_sequences
		WHERE contract_address = $1
	`

	rows, err := s.pool.Query(ctx, query, string(address))
	if err != nil {
		return nil, fmt.Errorf("get sequence by address: %w", err)
	}
	defer rows.Close()

	seqs, err := scanSequences(rows)
	if err != nil {
		return nil, err
	}
	if len(seqs) == 0 {
		return nil, storage.ErrNotFound
	}
	return seqs[0], nil
}

// GetAll retrieves all sequences, ordered by contract_address ASC.
func (s *SequenceStore) GetAll(ctx context.Context) ([]*domain.FundFlowSequence, error) {
	query := `
		SELECT contract_address, sequence_id, cases, taxonomy_digest, created_at
		FROM fund_flow_sequences
		ORDER BY contract_address ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all sequences: %w", err)
	}
	defer rows.Close()

	return scanSequences(rows)
}

// scanSequences scans multiple rows into a slice of FundFlowSequence.
func scanSequences(rows pgx.Rows) ([]*domain.FundFlowSequence, error) {
	var seqs []*domain.FundFlowSequence

	for rows.Next() {
		var (
			seq  domain.FundFlowSequence
			addr string
		)
		if err := rows.Scan(&addr, &seq.SequenceID, &seq.Cases, &seq.TaxonomyDigest, &seq.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan sequence row: %w", err)
		}
		seq.ContractAddress = domain.Address(addr)
		seqs = append(seqs, &seq)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sequence rows: %w", err)
	}

	return seqs, nil
}
