package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"fundflow-lab/internal/domain"
	"fundflow-lab/internal/storage"
)

// TransactionStore implements storage.TransactionStore using PostgreSQL.
// Top-level transactions live in normal_transactions, sub-transfers in
// internal_transactions.
type TransactionStore struct {
	pool *Pool
}

// NewTransactionStore creates a new TransactionStore.
func NewTransactionStore(pool *Pool) *TransactionStore {
	return &TransactionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TransactionStore = (*TransactionStore)(nil)

// InsertBulk adds top-level transactions atomically.
func (s *TransactionStore) InsertBulk(ctx context.Context, txs []*domain.Transaction) error {
	if len(txs) == 0 {
		return nil
	}
	for _, t := range txs {
		if t == nil || t.Hash == "" || t.CrawledFrom == "" {
			return storage.ErrInvalidInput
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO normal_transactions (
			crawled_from, hash, source, target, contract_address, value,
			is_error, block_number, transaction_index, timestamp
		) VALUES ($1, $2, $3, $4, $5, $6::numeric, $7, $8, $9, $10)
	`

	for _, t := range txs {
		_, err := tx.Exec(ctx, query,
			string(t.CrawledFrom),
			t.Hash,
			string(t.Source),
			nullableAddress(t.Target),
			nullableAddress(t.ContractAddress),
			numericArg(t.Value),
			t.IsError,
			t.BlockNumber,
			t.TransactionIndex,
			t.Timestamp,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert transaction in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// InsertSubTransfers adds sub-transfers atomically. IDs come from the BIGSERIAL column.
func (s *TransactionStore) InsertSubTransfers(ctx context.Context, subs []*domain.SubTransfer) error {
	if len(subs) == 0 {
		return nil
	}
	for _, sub := range subs {
		if sub == nil || sub.Hash == "" || sub.CrawledFrom == "" {
			return storage.ErrInvalidInput
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO internal_transactions (
			hash, crawled_from, source, target, contract_address, value, is_error, block_number
		) VALUES ($1, $2, $3, $4, $5, $6::numeric, $7, $8)
	`

	for _, sub := range subs {
		_, err := tx.Exec(ctx, query,
			sub.Hash,
			string(sub.CrawledFrom),
			string(sub.Source),
			nullableAddress(sub.Target),
			nullableAddress(sub.ContractAddress),
			numericArg(sub.Value),
			sub.IsError,
			sub.BlockNumber,
		)
		if err != nil {
			return fmt.Errorf("insert sub-transfer in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetByContract retrieves the top-level transactions crawled from a contract,
// ordered by block_number DESC, transaction_index DESC.
func (s *TransactionStore) GetByContract(ctx context.Context, contract domain.Address) ([]*domain.Transaction, error) {
	query := `
		SELECT crawled_from, hash, source, target, contract_address, value::text,
			is_error, block_number, transaction_index, timestamp
		FROM normal_transactions
		WHERE crawled_from = $1
		ORDER BY block_number DESC, transaction_index DESC, hash ASC
	`

	rows, err := s.pool.Query(ctx, query, string(contract))
	if err != nil {
		return nil, fmt.Errorf("get transactions by contract: %w", err)
	}
	defer rows.Close()

	return scanTransactions(rows)
}

// GetSubTransfersByContract retrieves the sub-transfers crawled from a contract,
// ordered by hash ASC, id ASC.
func (s *TransactionStore) GetSubTransfersByContract(ctx context.Context, contract domain.Address) ([]*domain.SubTransfer, error) {
	query := `
		SELECT id, hash, crawled_from, source, target, contract_address, value::text, is_error, block_number
		FROM internal_transactions
		WHERE crawled_from = $1
		ORDER BY hash ASC, id ASC
	`

	rows, err := s.pool.Query(ctx, query, string(contract))
	if err != nil {
		return nil, fmt.Errorf("get sub-transfers by contract: %w", err)
	}
	defer rows.Close()

	return scanSubTransfers(rows)
}

// scanTransactions scans multiple rows into a slice of Transaction.
func scanTransactions(rows pgx.Rows) ([]*domain.Transaction, error) {
	var txs []*domain.Transaction

	for rows.Next() {
		var (
			t                          domain.Transaction
			crawledFrom, source, value string
			target, created            *string
		)

		err := rows.Scan(
			&crawledFrom,
			&t.Hash,
			&source,
			&target,
			&created,
			&value,
			&t.IsError,
			&t.BlockNumber,
			&t.TransactionIndex,
			&t.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("scan transaction row: %w", err)
		}

		t.CrawledFrom = domain.Address(crawledFrom)
		t.Source = domain.Address(source)
		t.Target = addressFromNullable(target)
		t.ContractAddress = addressFromNullable(created)
		if t.Value, err = parseNumeric(value); err != nil {
			return nil, fmt.Errorf("transaction %s: %w", t.Hash, err)
		}

		txs = append(txs, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transaction rows: %w", err)
	}

	return txs, nil
}

// scanSubTransfers scans multiple rows into a slice of SubTransfer.
func scanSubTransfers(rows pgx.Rows) ([]*domain.SubTransfer, error) {
	var subs []*domain.SubTransfer

	for rows.Next() {
		var (
			sub                        domain.SubTransfer
			crawledFrom, source, value string
			target, created            *string
		)

		err := rows.Scan(
			&sub.ID,
			&sub.Hash,
			&crawledFrom,
			&source,
			&target,
			&created,
			&value,
			&sub.IsError,
			&sub.BlockNumber,
		)
		if err != nil {
			return nil, fmt.Errorf("scan sub-transfer row: %w", err)
		}

		sub.CrawledFrom = domain.Address(crawledFrom)
		sub.Source = domain.Address(source)
		sub.Target = addressFromNullable(target)
		sub.ContractAddress = addressFromNullable(created)
		if sub.Value, err = parseNumeric(value); err != nil {
			return nil, fmt.Errorf("sub-transfer %d: %w", sub.ID, err)
		}

		subs = append(subs, &sub)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sub-transfer rows: %w", err)
	}

	return subs, nil
}
