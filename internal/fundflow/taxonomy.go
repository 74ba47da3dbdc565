package fundflow

import (
	"fmt"
	"math"
	"strings"
)

// attribute is one key of a case definition with its values in declared order.
type attribute struct {
	key    string
	values []string
}

// definition lists the attributes of one sender category in canonical order.
type definition struct {
	sender     Sender
	attributes []attribute
}

var (
	booleanValues = []string{boolText(true), boolText(false)}
	balanceValues = []string{bucketValues[0].String(), bucketValues[1].String(), bucketValues[2].String()}
)

// definitions is iterated in order; the order fixes every case id.
var definitions = []definition{
	{
		sender: SenderCreator,
		attributes: []attribute{
			{keySender, []string{string(SenderCreator)}},
			{keyCreation, booleanValues},
			{keyError, booleanValues},
			{keyBalanceCreator, balanceValues},
			{keyBalanceContract, balanceValues},
			{keyBalanceOtherPositive, booleanValues},
			{keyBalanceOtherNegative, booleanValues},
		},
	},
	{
		sender: SenderOther,
		attributes: []attribute{
			{keySender, []string{string(SenderOther)}},
			{keyError, booleanValues},
			{keyBalanceCreator, balanceValues},
			{keyBalanceContract, balanceValues},
			{keyBalanceSender, balanceValues},
			{keyBalanceOtherPositive, booleanValues},
			{keyBalanceOtherNegative, booleanValues},
		},
	},
}

func definitionFor(s Sender) (definition, bool) {
	for _, d := range definitions {
		if d.sender == s {
			return d, true
		}
	}
	return definition{}, false
}

// MaxCases is the largest taxonomy whose ids still fit one byte.
const MaxCases = math.MaxUint8

// Entry is one taxonomy case with its id.
type Entry struct {
	ID   int
	Name string
	Case Case
}

// Taxonomy maps canonical case text to ids and back. It is immutable after
// BuildTaxonomy and safe for concurrent use.
type Taxonomy struct {
	entries []Entry        // index i holds id i+1
	ids     map[string]int // canonical text -> id
}

// BuildTaxonomy enumerates every valid fund-flow case and numbers them from 1
// in enumeration order.
func BuildTaxonomy() (*Taxonomy, error) {
	t := &Taxonomy{ids: make(map[string]int)}

	for _, def := range definitions {
		bound := make([]string, 0, len(def.attributes))
		err := enumerate(def, bound, func(c Case) error {
			name := c.Canonical()
			if _, dup := t.ids[name]; dup {
				return fmt.Errorf("%w: duplicate case %q", ErrTaxonomyBuild, name)
			}
			id := len(t.entries) + 1
			if id > MaxCases {
				return fmt.Errorf("%w: more than %d cases", ErrTaxonomyBuild, MaxCases)
			}
			t.ids[name] = id
			t.entries = append(t.entries, Entry{ID: id, Name: name, Case: c})
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	return t, nil
}

// MustBuildTaxonomy is BuildTaxonomy for process start-up.
func MustBuildTaxonomy() *Taxonomy {
	t, err := BuildTaxonomy()
	if err != nil {
		panic(err)
	}
	return t
}

// enumerate binds the next attribute to each of its values and emits valid
// leaves once every attribute of the definition is bound.
func enumerate(def definition, bound []string, emit func(Case) error) error {
	depth := len(bound)
	if depth == len(def.attributes) {
		text := joinAttributes(bound...)
		c, err := ParseCase(text)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrTaxonomyBuild, err)
		}
		if c.Canonical() != text {
			return fmt.Errorf("%w: case %q renders as %q", ErrTaxonomyBuild, text, c.Canonical())
		}
		if !IsValid(c) {
			return nil
		}
		return emit(c)
	}

	attr := def.attributes[depth]
	for _, v := range attr.values {
		if err := enumerate(def, append(bound, pair(attr.key, v)), emit); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of cases.
func (t *Taxonomy) Len() int {
	return len(t.entries)
}

// ID returns the id of a canonical case text.
func (t *Taxonomy) ID(canonical string) (int, bool) {
	id, ok := t.ids[canonical]
	return id, ok
}

// Lookup returns the id of a case.
func (t *Taxonomy) Lookup(c Case) (int, bool) {
	if c == nil {
		return 0, false
	}
	return t.ID(c.Canonical())
}

// Name returns the canonical text of an id.
func (t *Taxonomy) Name(id int) (string, bool) {
	if id < 1 || id > len(t.entries) {
		return "", false
	}
	return t.entries[id-1].Name, true
}

// Case returns the case of an id.
func (t *Taxonomy) Case(id int) (Case, bool) {
	if id < 1 || id > len(t.entries) {
		return nil, false
	}
	return t.entries[id-1].Case, true
}

// Entries returns all cases ordered by id. The slice is a copy.
func (t *Taxonomy) Entries() []Entry {
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Names returns canonical texts ordered by id.
func (t *Taxonomy) Names() []string {
	out := make([]string, len(t.entries))
	for i, e := range t.entries {
		out[i] = e.Name
	}
	return out
}

// String lists the taxonomy one case per line.
func (t *Taxonomy) String() string {
	var sb strings.Builder
	for _, e := range t.entries {
		fmt.Fprintf(&sb, "%d\t%s\n", e.ID, e.Name)
	}
	return sb.String()
}
