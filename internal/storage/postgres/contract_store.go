package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"fundflow-lab/internal/domain"
	"fundflow-lab/internal/storage"
)

// ContractStore implements storage.ContractStore using PostgreSQL.
type ContractStore struct {
	pool *Pool
}

// NewContractStore creates a new ContractStore.
func NewContractStore(pool *Pool) *ContractStore {
	return &ContractStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ContractStore = (*ContractStore)(nil)

const insertContractQuery = `
	INSERT INTO contracts (
		address, creator, creation_tx_hash, block_number, timestamp, created_internal
	) VALUES ($1, $2, $3, $4, $5, $6)
`

// Insert adds a new contract. Returns ErrDuplicateKey if address exists.
func (s *ContractStore) Insert(ctx context.Context, c *domain.Contract) error {
	if c == nil || c.Address == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, insertContractQuery, contractArgs(c)...)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert contract: %w", err)
	}
	return nil
}

// InsertBulk adds multiple contracts atomically. Fails entire batch on any duplicate.
func (s *ContractStore) InsertBulk(ctx context.Context, contracts []*domain.Contract) error {
	if len(contracts) == 0 {
		return nil
	}
	for _, c := range contracts {
		if c == nil || c.Address == "" {
			return storage.ErrInvalidInput
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, c := range contracts {
		if _, err := tx.Exec(ctx, insertContractQuery, contractArgs(c)...); err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert contract in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetByAddress retrieves a contract by its address. Returns ErrNotFound if not exists.
func (s *ContractStore) GetByAddress(ctx context.Context, address domain.Address) (*domain.Contract, error) {
	query := `
		SELECT address, creator, creation_tx_hash, block_number, timestamp, created_internal
		FROM contracts
		WHERE address = $1
	`

	var (
		c                     domain.Contract
		addr, creator, txHash string
	)
	err := s.pool.QueryRow(ctx, query, string(address)).Scan(
		&addr, &creator, &txHash, &c.BlockNumber, &c.Timestamp, &c.CreatedInternal,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get contract by address: %w", err)
	}

	c.Address = domain.Address(addr)
	c.Creator = domain.Address(creator)
	c.CreationTxHash = txHash
	return &c, nil
}

// ListAddresses returns every stored contract address, ordered ASC.
func (s *ContractStore) ListAddresses(ctx context.Context) ([]domain.Address, error) {
	rows, err := s.pool.Query(ctx, `SELECT address FROM contracts ORDER BY address ASC`)
	if err != nil {
		return nil, fmt.Errorf("list contract addresses: %w", err)
	}
	defer rows.Close()

	addrs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Address, error) {
		var a string
		err := row.Scan(&a)
		return domain.Address(a), err
	})
	if err != nil {
		return nil, fmt.Errorf("scan contract addresses: %w", err)
	}
	return addrs, nil
}

func contractArgs(c *domain.Contract) []any {
	return []any{
		string(c.Address),
		string(c.Creator),
		c.CreationTxHash,
		c.BlockNumber,
		c.Timestamp,
		c.CreatedInternal,
	}
}
