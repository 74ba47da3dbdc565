package storage

import (
	"context"

	"fundflow-lab/internal/domain"
)

// ContractStore provides access to contracts storage.
type ContractStore interface {
	// Insert adds a new contract. Returns ErrDuplicateKey if address exists.
	Insert(ctx context.Context, c *domain.Contract) error

	// InsertBulk adds multiple contracts atomically. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, contracts []*domain.Contract) error

	// GetByAddress retrieves a contract by its address. Returns ErrNotFound if not exists.
	GetByAddress(ctx context.Context, address domain.Address) (*domain.Contract, error)

	// ListAddresses returns every stored contract address, ordered ASC.
	ListAddresses(ctx context.Context) ([]domain.Address, error)
}

// TransactionStore provides access to the transactions and sub_transfers storage.
// Both are keyed by the contract they were crawled from.
type TransactionStore interface {
	// InsertBulk adds top-level transactions atomically.
	// Fails entire batch on duplicate (crawled_from, hash).
	InsertBulk(ctx context.Context, txs []*domain.Transaction) error

	// InsertSubTransfers adds sub-transfers atomically. IDs are assigned by
	// the store in input order; input IDs are ignored.
	InsertSubTransfers(ctx context.Context, subs []*domain.SubTransfer) error

	// GetByContract retrieves the top-level transactions crawled from a contract,
	// ordered by block_number DESC, transaction_index DESC.
	GetByContract(ctx context.Context, contract domain.Address) ([]*domain.Transaction, error)

	// GetSubTransfersByContract retrieves the sub-transfers crawled from a contract,
	// ordered by hash ASC, id ASC.
	GetSubTransfersByContract(ctx context.Context, contract domain.Address) ([]*domain.SubTransfer, error)
}

// SequenceStore provides access to fund_flow_sequences storage.
type SequenceStore interface {
	// Insert adds a new sequence. Returns ErrDuplicateKey if contract_address exists.
	Insert(ctx context.Context, s *domain.FundFlowSequence) error

	// GetByAddress retrieves the sequence of a contract. Returns ErrNotFound if not exists.
	GetByAddress(ctx context.Context, address domain.Address) (*domain.FundFlowSequence, error)

	// GetAll retrieves all sequences, ordered by contract_address ASC.
	GetAll(ctx context.Context) ([]*domain.FundFlowSequence, error)
}

// CaseStore provides access to the fund_flow_cases dictionary.
type CaseStore interface {
	// InsertBulk adds multiple cases atomically. Fails entire batch on duplicate id.
	InsertBulk(ctx context.Context, entries []*domain.FundFlowCaseEntry) error

	// GetAll retrieves all cases, ordered by id ASC.
	GetAll(ctx context.Context) ([]*domain.FundFlowCaseEntry, error)
}

// CaseFrequencyStore provides access to fund_flow_case_frequencies storage.
type CaseFrequencyStore interface {
	// InsertBulk adds multiple rows. Fails entire batch on duplicate (contract_address, case_id).
	InsertBulk(ctx context.Context, rows []*domain.CaseFrequency) error

	// GetByContract retrieves the rows of a contract, ordered by case_id ASC.
	GetByContract(ctx context.Context, contract domain.Address) ([]*domain.CaseFrequency, error)
}
