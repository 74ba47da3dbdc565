package domain

// FundFlowSequence is the ordered fund-flow case ids of one contract,
// most recent transaction first. Each id fits one byte.
// Corresponds to fund_flow_sequences table in PostgreSQL.
type FundFlowSequence struct {
	SequenceID      string  // SHA256(contract_address|taxonomy_digest|hex(cases))
	ContractAddress Address // PRIMARY KEY
	Cases           []byte  // case ids, one per top-level transaction
	TaxonomyDigest  string  // digest of the taxonomy used to assign ids
	CreatedAt       int64   // record creation timestamp (ms)
}

// FundFlowCaseEntry is one row of the persisted case dictionary.
// Corresponds to fund_flow_cases table in PostgreSQL.
type FundFlowCaseEntry struct {
	ID    int    // 1-based case id
	Value string // canonical case text
}

// CaseFrequency is the relative frequency of one case inside a contract sequence.
// Corresponds to fund_flow_case_frequencies table in ClickHouse.
type CaseFrequency struct {
	ContractAddress Address
	CaseID          int
	Count           int
	SequenceLength  int
	Frequency       float64 // Count / SequenceLength, 0 for empty sequences
}
