package domain

import "github.com/shopspring/decimal"

// Transaction represents a top-level transaction crawled for a contract.
// Corresponds to normal_transactions table in PostgreSQL.
type Transaction struct {
	Hash             string          // PRIMARY KEY with CrawledFrom
	CrawledFrom      Address         // contract whose history contains this transaction
	Source           Address         // sender account
	Target           *Address        // receiver, nil for contract creations
	ContractAddress  *Address        // created contract, set only for creations
	Value            decimal.Decimal // value in base units (wei)
	IsError          bool            // execution reported an error
	BlockNumber      int64           // block ordinal
	TransactionIndex int             // position inside the block
	Timestamp        int64           // block time, Unix seconds
}

// IsCreation reports whether the transaction created a contract.
func (t *Transaction) IsCreation() bool {
	return t.Target == nil
}

// SubTransfer represents a value movement caused by executing a top-level
// transaction. It shares the parent hash.
// Corresponds to internal_transactions table in PostgreSQL.
type SubTransfer struct {
	ID              int64           // BIGSERIAL primary key, assigned by the store
	Hash            string          // parent transaction hash
	CrawledFrom     Address         // contract whose history contains the parent
	Source          Address         // sender account
	Target          *Address        // receiver, nil when the sub-transfer created a contract
	ContractAddress *Address        // created contract, set only for creations
	Value           decimal.Decimal // value in base units (wei)
	IsError         bool            // execution reported an error
	BlockNumber     int64           // block ordinal
}

// IsCreation reports whether the sub-transfer created a contract.
func (s *SubTransfer) IsCreation() bool {
	return s.Target == nil
}
