package fundflow

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildTaxonomy_Size(t *testing.T) {
	tax, err := BuildTaxonomy()
	require.NoError(t, err)

	assert.Equal(t, 244, tax.Len())
	assert.LessOrEqual(t, tax.Len(), MaxCases)

	var creator, other int
	for _, e := range tax.Entries() {
		switch e.Case.Sender() {
		case SenderCreator:
			creator++
		case SenderOther:
			other++
		}
	}
	assert.Equal(t, 88, creator)
	assert.Equal(t, 156, other)
}

func TestBuildTaxonomy_Deterministic(t *testing.T) {
	first := MustBuildTaxonomy()
	for i := 0; i < 5; i++ {
		again := MustBuildTaxonomy()
		if diff := cmp.Diff(first.Names(), again.Names()); diff != "" {
			t.Fatalf("taxonomy changed between builds (-first +again):\n%s", diff)
		}
	}
	assert.Equal(t, first.Digest(), MustBuildTaxonomy().Digest())
}

func TestBuildTaxonomy_IDsContiguousAndUnique(t *testing.T) {
	tax := MustBuildTaxonomy()

	seen := make(map[string]int)
	for i, e := range tax.Entries() {
		assert.Equal(t, i+1, e.ID, "ids must be contiguous from 1")
		if prev, dup := seen[e.Name]; dup {
			t.Fatalf("case %q has ids %d and %d", e.Name, prev, e.ID)
		}
		seen[e.Name] = e.ID

		id, ok := tax.ID(e.Name)
		require.True(t, ok)
		assert.Equal(t, e.ID, id)

		name, ok := tax.Name(e.ID)
		require.True(t, ok)
		assert.Equal(t, e.Name, name)
	}
}

// TestBuildTaxonomy_ValidityLaw re-derives the positive/negative flags from
// the raw text of every case, without going through the typed cases.
func TestBuildTaxonomy_ValidityLaw(t *testing.T) {
	tax := MustBuildTaxonomy()

	for _, name := range tax.Names() {
		var hasPositive, hasNegative bool
		for _, kv := range strings.Split(name, ", ") {
			key, value, ok := strings.Cut(kv, "=")
			require.True(t, ok, kv)
			switch {
			case key == "balance_other_positive":
				hasPositive = hasPositive || value == "True"
			case key == "balance_other_negative":
				hasNegative = hasNegative || value == "True"
			case value == "positive":
				hasPositive = true
			case value == "negative":
				hasNegative = true
			}
		}
		if hasPositive != hasNegative {
			t.Errorf("case violates validity law: %s", name)
		}
	}
}

func TestBuildTaxonomy_EnumerationOrder(t *testing.T) {
	tax := MustBuildTaxonomy()

	first, _ := tax.Name(1)
	assert.Equal(t, "sender=creator, creation=True, error=True, balance_creator=positive, "+
		"balance_contract=positive, balance_other_positive=True, balance_other_negative=True", first)

	last, _ := tax.Name(tax.Len())
	assert.Equal(t, "sender=other, error=False, balance_creator=negative, balance_contract=negative, "+
		"balance_sender=negative, balance_other_positive=True, balance_other_negative=False", last)

	creationFunded := CreatorCase{
		Creation:        true,
		BalanceCreator:  Negative,
		BalanceContract: Positive,
	}
	id, ok := tax.Lookup(creationFunded)
	require.True(t, ok)
	assert.Equal(t, idCreationFunded, id)

	// every creator case precedes every other-sender case
	for _, e := range tax.Entries() {
		if e.Case.Sender() == SenderOther {
			assert.Greater(t, e.ID, 88)
		} else {
			assert.LessOrEqual(t, e.ID, 88)
		}
	}
}

func TestTaxonomy_OutOfRange(t *testing.T) {
	tax := MustBuildTaxonomy()

	_, ok := tax.Name(0)
	assert.False(t, ok)
	_, ok = tax.Case(tax.Len() + 1)
	assert.False(t, ok)
	_, ok = tax.Lookup(nil)
	assert.False(t, ok)

	// an invalid case is never in the taxonomy
	_, ok = tax.Lookup(OtherCase{BalanceSender: Negative})
	assert.False(t, ok)
}

func TestParseCase(t *testing.T) {
	tax := MustBuildTaxonomy()
	for _, e := range tax.Entries() {
		c, err := ParseCase(e.Name)
		require.NoError(t, err)
		assert.Equal(t, e.Case, c)
	}

	bad := []string{
		"",
		"sender=nobody",
		"sender=other, error=False",
		"sender=creator, error=False, creation=True, balance_creator=positive, balance_contract=positive, balance_other_positive=True, balance_other_negative=True",
		"sender=creator, creation=yes, error=False, balance_creator=positive, balance_contract=positive, balance_other_positive=True, balance_other_negative=True",
		"sender=other, error=False, balance_creator=up, balance_contract=positive, balance_sender=negative, balance_other_positive=True, balance_other_negative=True",
		"sender=other, error=False, error=False, balance_creator=positive, balance_contract=positive, balance_sender=negative, balance_other_positive=True",
	}
	for _, text := range bad {
		_, err := ParseCase(text)
		assert.Error(t, err, text)
	}
}

func TestEnumerate_PropagatesEmitError(t *testing.T) {
	stop := errors.New("stop")
	var emitted int
	err := enumerate(definitions[0], nil, func(Case) error {
		emitted++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, emitted)
}
