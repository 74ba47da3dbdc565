package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeTaxonomyDigest computes a deterministic digest of an ordered case list.
// Formula: SHA256(1|name_1\n2|name_2\n...)
// Returns hex-encoded hash (64 characters).
func ComputeTaxonomyDigest(names []string) string {
	h := sha256.New()
	for i, name := range names {
		fmt.Fprintf(h, "%d|%s\n", i+1, name)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// ComputeSequenceID computes a deterministic id for a contract sequence.
// Formula: SHA256(contract_address|taxonomy_digest|hex(cases))
// Returns hex-encoded hash (64 characters).
func ComputeSequenceID(contractAddress, taxonomyDigest string, cases []byte) string {
	data := fmt.Sprintf("%s|%s|%s",
		contractAddress,
		taxonomyDigest,
		hex.EncodeToString(cases),
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
