package domain

// Contract represents a crawled smart contract.
// Corresponds to contracts table in PostgreSQL.
type Contract struct {
	Address         Address // PRIMARY KEY, contract account
	Creator         Address // account that sent the creation transaction
	CreationTxHash  string  // hash of the creation transaction (may be internal)
	BlockNumber     int64   // block of the creation transaction
	Timestamp       int64   // creation time, Unix seconds
	CreatedInternal bool    // created by another contract through a sub-transfer
}
