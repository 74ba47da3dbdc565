package domain

import "strings"

// Address is an account identifier (EOA or contract), stored lower-case.
type Address string

// NewAddress normalizes a raw hex address for map keys and comparisons.
func NewAddress(raw string) Address {
	return Address(strings.ToLower(strings.TrimSpace(raw)))
}

// String returns the address text.
func (a Address) String() string {
	return string(a)
}

// AddressPtr returns a pointer to a normalized address, nil for empty input.
func AddressPtr(raw string) *Address {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	a := NewAddress(raw)
	return &a
}
