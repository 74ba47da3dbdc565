package fundflow

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Bucket is the tolerance-quantized sign of an account's net delta.
type Bucket uint8

// Bucket values. The zero value is Unchanged, so omitted case fields mean no
// balance change.
const (
	Unchanged Bucket = iota
	Positive
	Negative
)

// bucketValues is the declared order used by the taxonomy enumeration.
var bucketValues = [...]Bucket{Positive, Unchanged, Negative}

// String returns the canonical bucket name.
func (b Bucket) String() string {
	switch b {
	case Positive:
		return "positive"
	case Unchanged:
		return "unchanged"
	case Negative:
		return "negative"
	default:
		return fmt.Sprintf("bucket(%d)", uint8(b))
	}
}

// ParseBucket parses a canonical bucket name.
func ParseBucket(s string) (Bucket, error) {
	switch s {
	case "positive":
		return Positive, nil
	case "unchanged":
		return Unchanged, nil
	case "negative":
		return Negative, nil
	default:
		return 0, fmt.Errorf("unknown balance bucket %q", s)
	}
}

// DefaultTolerance is the absolute delta below which a balance counts as unchanged.
// Deltas are exact base units, so for integer values this means exactly zero.
var DefaultTolerance = decimal.New(1, -6)

// BucketOf quantizes a delta using the given tolerance.
func BucketOf(delta, tolerance decimal.Decimal) Bucket {
	if delta.IsZero() || delta.Abs().LessThan(tolerance) {
		return Unchanged
	}
	if delta.IsPositive() {
		return Positive
	}
	return Negative
}
