package fundflow

import (
	"encoding/json"
	"fmt"
	"io"

	"fundflow-lab/internal/idhash"
)

// ArtifactVersion is the current taxonomy artifact format.
const ArtifactVersion = 1

// Artifact is the persisted form of a taxonomy, shared with the feature
// aggregation step so both sides agree on case ids across process runs.
type Artifact struct {
	Version int             `json:"version"`
	Digest  string          `json:"digest"`
	Cases   []ArtifactEntry `json:"cases"`
}

// ArtifactEntry is one persisted case.
type ArtifactEntry struct {
	ID    int    `json:"id"`
	Value string `json:"value"`
}

// Digest returns the taxonomy digest used to tag sequences.
func (t *Taxonomy) Digest() string {
	return idhash.ComputeTaxonomyDigest(t.Names())
}

// Artifact returns the persisted form of the taxonomy.
func (t *Taxonomy) Artifact() Artifact {
	a := Artifact{
		Version: ArtifactVersion,
		Digest:  t.Digest(),
		Cases:   make([]ArtifactEntry, len(t.entries)),
	}
	for i, e := range t.entries {
		a.Cases[i] = ArtifactEntry{ID: e.ID, Value: e.Name}
	}
	return a
}

// WriteArtifact serializes the taxonomy as indented JSON.
func WriteArtifact(w io.Writer, t *Taxonomy) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(t.Artifact()); err != nil {
		return fmt.Errorf("encode taxonomy artifact: %w", err)
	}
	return nil
}

// LoadArtifact reads a persisted taxonomy and returns a freshly built one
// after checking that both agree on every id.
func LoadArtifact(r io.Reader) (*Taxonomy, error) {
	var a Artifact
	if err := json.NewDecoder(r).Decode(&a); err != nil {
		return nil, fmt.Errorf("decode taxonomy artifact: %w", err)
	}

	t, err := BuildTaxonomy()
	if err != nil {
		return nil, err
	}
	if err := VerifyArtifact(t, a); err != nil {
		return nil, err
	}
	return t, nil
}

// VerifyArtifact checks a persisted taxonomy against t.
func VerifyArtifact(t *Taxonomy, a Artifact) error {
	if a.Version != ArtifactVersion {
		return fmt.Errorf("%w: version %d, want %d", ErrArtifactMismatch, a.Version, ArtifactVersion)
	}
	if len(a.Cases) != t.Len() {
		return fmt.Errorf("%w: %d cases, want %d", ErrArtifactMismatch, len(a.Cases), t.Len())
	}
	for i, c := range a.Cases {
		want := t.entries[i]
		if c.ID != want.ID || c.Value != want.Name {
			return fmt.Errorf("%w: entry %d is (%d, %q), want (%d, %q)",
				ErrArtifactMismatch, i, c.ID, c.Value, want.ID, want.Name)
		}
	}
	if a.Digest != t.Digest() {
		return fmt.Errorf("%w: digest %s, want %s", ErrArtifactMismatch, a.Digest, t.Digest())
	}
	return nil
}

// VerifyEntries checks a persisted case dictionary (id, value pairs in any
// order) against t.
func VerifyEntries(t *Taxonomy, entries map[int]string) error {
	if len(entries) != t.Len() {
		return fmt.Errorf("%w: %d stored cases, want %d", ErrArtifactMismatch, len(entries), t.Len())
	}
	for _, e := range t.entries {
		if got, ok := entries[e.ID]; !ok || got != e.Name {
			return fmt.Errorf("%w: stored case %d is %q, want %q", ErrArtifactMismatch, e.ID, got, e.Name)
		}
	}
	return nil
}
