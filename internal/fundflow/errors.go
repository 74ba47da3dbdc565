package fundflow

import (
	"errors"
	"fmt"
)

// Engine errors. None of them are transient: callers decide whether to abort
// the batch or skip the offending contract.
var (
	// ErrInvariantViolation is returned for malformed or logically impossible
	// transaction data.
	ErrInvariantViolation = errors.New("transaction invariant violated")

	// ErrClassification is returned when a derived case is not in the taxonomy.
	ErrClassification = errors.New("fund flow case not in taxonomy")

	// ErrTaxonomyBuild is returned when the case enumeration is inconsistent.
	ErrTaxonomyBuild = errors.New("fund flow taxonomy build failed")

	// ErrArtifactMismatch is returned when a persisted taxonomy differs from a fresh build.
	ErrArtifactMismatch = errors.New("taxonomy artifact does not match definition")
)

// InvariantError describes which transaction broke which invariant.
type InvariantError struct {
	TxHash string
	Reason string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("%s: transaction %s: %s", ErrInvariantViolation, e.TxHash, e.Reason)
}

func (e *InvariantError) Unwrap() error {
	return ErrInvariantViolation
}

func invariantf(txHash, format string, args ...any) error {
	return &InvariantError{TxHash: txHash, Reason: fmt.Sprintf(format, args...)}
}

// ClassificationError carries the transaction and the case text that failed to resolve.
type ClassificationError struct {
	TxHash    string
	Canonical string
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("%s: transaction %s was transformed into an invalid case: %s",
		ErrClassification, e.TxHash, e.Canonical)
}

func (e *ClassificationError) Unwrap() error {
	return ErrClassification
}
