package fundflow

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArtifact_RoundTrip(t *testing.T) {
	tax := MustBuildTaxonomy()

	var buf bytes.Buffer
	require.NoError(t, WriteArtifact(&buf, tax))

	loaded, err := LoadArtifact(&buf)
	require.NoError(t, err)
	assert.Equal(t, tax.Names(), loaded.Names())
}

func TestArtifact_ByteIdenticalAcrossBuilds(t *testing.T) {
	var a, b bytes.Buffer
	require.NoError(t, WriteArtifact(&a, MustBuildTaxonomy()))
	require.NoError(t, WriteArtifact(&b, MustBuildTaxonomy()))
	assert.Equal(t, a.Bytes(), b.Bytes())
}

func TestArtifact_Mismatch(t *testing.T) {
	tax := MustBuildTaxonomy()

	tests := []struct {
		name   string
		mutate func(a *Artifact)
	}{
		{"wrong version", func(a *Artifact) { a.Version = 2 }},
		{"missing case", func(a *Artifact) { a.Cases = a.Cases[1:] }},
		{"swapped ids", func(a *Artifact) { a.Cases[0].ID, a.Cases[1].ID = a.Cases[1].ID, a.Cases[0].ID }},
		{"renamed case", func(a *Artifact) { a.Cases[5].Value = strings.ToUpper(a.Cases[5].Value) }},
		{"stale digest", func(a *Artifact) { a.Digest = "00" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := tax.Artifact()
			tt.mutate(&a)

			data, err := json.Marshal(a)
			require.NoError(t, err)

			_, err = LoadArtifact(bytes.NewReader(data))
			assert.ErrorIs(t, err, ErrArtifactMismatch)
		})
	}
}

func TestArtifact_Malformed(t *testing.T) {
	_, err := LoadArtifact(strings.NewReader("{not json"))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrArtifactMismatch)
}

func TestVerifyEntries(t *testing.T) {
	tax := MustBuildTaxonomy()

	entries := make(map[int]string, tax.Len())
	for _, e := range tax.Entries() {
		entries[e.ID] = e.Name
	}
	require.NoError(t, VerifyEntries(tax, entries))

	entries[3], entries[4] = entries[4], entries[3]
	assert.ErrorIs(t, VerifyEntries(tax, entries), ErrArtifactMismatch)

	delete(entries, 3)
	assert.ErrorIs(t, VerifyEntries(tax, entries), ErrArtifactMismatch)
}
