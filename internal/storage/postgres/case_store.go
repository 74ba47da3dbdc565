package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"fundflow-lab/internal/domain"
	"fundflow-lab/internal/storage"
)

// CaseStore implements storage.CaseStore using PostgreSQL.
type CaseStore struct {
	pool *Pool
}

// NewCaseStore creates a new CaseStore.
func NewCaseStore(pool *Pool) *CaseStore {
	return &CaseStore{pool: pool}
}

// Compile-time interface check.
var _ storage.CaseStore = (*CaseStore)(nil)

// InsertBulk adds multiple cases atomically. Fails entire batch on duplicate id.
func (s *CaseStore) InsertBulk(ctx context.Context, entries []*domain.FundFlowCaseEntry) error {
	if len(entries) == 0 {
		return nil
	}
	for _, e := range entries {
		if e == nil || e.ID <= 0 || e.Value == "" {
			return storage.ErrInvalidInput
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, e := range entries {
		_, err := tx.Exec(ctx, `INSERT INTO fund_flow_cases (id, value) VALUES ($1, $2)`, e.ID, e.Value)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert case in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetAll retrieves all cases, ordered by id ASC.
func (s *CaseStore) GetAll(ctx context.Context) ([]*domain.FundFlowCaseEntry, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, value FROM fund_flow_cases ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("get all cases: %w", err)
	}
	defer rows.Close()

	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.FundFlowCaseEntry, error) {
		var e domain.FundFlowCaseEntry
		err := row.Scan(&e.ID, &e.Value)
		return &e, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan case rows: %w", err)
	}
	return entries, nil
}
