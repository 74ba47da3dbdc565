// Package features derives per-contract case frequency features from stored
// fund-flow sequences.
package features

import (
	"errors"
	"fmt"

	"fundflow-lab/internal/domain"
)

// ErrCaseOutOfRange is returned when a sequence holds an id outside 1..n.
var ErrCaseOutOfRange = errors.New("case id out of range")

// Frequencies holds the per-case counts of one sequence.
type Frequencies struct {
	counts []int // index id-1
	length int
}

// ComputeCaseFrequencies counts every case of seq against a taxonomy of n cases.
func ComputeCaseFrequencies(seq []byte, n int) (Frequencies, error) {
	f := Frequencies{counts: make([]int, n), length: len(seq)}
	for i, id := range seq {
		if id == 0 || int(id) > n {
			return Frequencies{}, fmt.Errorf("%w: id %d at position %d, taxonomy has %d cases", ErrCaseOutOfRange, id, i, n)
		}
		f.counts[id-1]++
	}
	return f, nil
}

// Len returns the number of cases counted against.
func (f Frequencies) Len() int { return len(f.counts) }

// SequenceLength returns the length of the counted sequence.
func (f Frequencies) SequenceLength() int { return f.length }

// Count returns how often id occurs. Ids outside 1..Len count as zero.
func (f Frequencies) Count(id int) int {
	if id < 1 || id > len(f.counts) {
		return 0
	}
	return f.counts[id-1]
}

// Frequency returns Count(id) / SequenceLength, or 0 for an empty sequence.
func (f Frequencies) Frequency(id int) float64 {
	if f.length == 0 {
		return 0
	}
	return float64(f.Count(id)) / float64(f.length)
}

// Rows returns one row per case that occurs at least once, ordered by case id.
func (f Frequencies) Rows(contract domain.Address) []*domain.CaseFrequency {
	var rows []*domain.CaseFrequency
	for i, c := range f.counts {
		if c == 0 {
			continue
		}
		id := i + 1
		rows = append(rows, &domain.CaseFrequency{
			ContractAddress: contract,
			CaseID:          id,
			Count:           c,
			SequenceLength:  f.length,
			Frequency:       f.Frequency(id),
		})
	}
	return rows
}
