package fundflow

import (
	"fmt"
	"strings"
)

// Sender is the role of the account that sent a top-level transaction.
type Sender string

// Sender categories in enumeration order.
const (
	SenderCreator Sender = "creator"
	SenderOther   Sender = "other"
)

// Attribute keys of the canonical case text.
const (
	keySender               = "sender"
	keyCreation             = "creation"
	keyError                = "error"
	keyBalanceCreator       = "balance_creator"
	keyBalanceContract      = "balance_contract"
	keyBalanceSender        = "balance_sender"
	keyBalanceOtherPositive = "balance_other_positive"
	keyBalanceOtherNegative = "balance_other_negative"
)

const attributeSeparator = ", "

// Case is one fund-flow taxonomy entry. It is implemented by CreatorCase and
// OtherCase only.
type Case interface {
	// Sender returns the sender category of the case.
	Sender() Sender
	// Canonical returns the deterministic key=value text used as lookup key.
	Canonical() string
	// HasPositive reports whether any bucket is positive or another account gained.
	HasPositive() bool
	// HasNegative reports whether any bucket is negative or another account lost.
	HasNegative() bool

	isCase()
}

// CreatorCase is a transaction sent by the contract creator.
type CreatorCase struct {
	Creation             bool
	Error                bool
	BalanceCreator       Bucket
	BalanceContract      Bucket
	BalanceOtherPositive bool
	BalanceOtherNegative bool
}

func (CreatorCase) isCase() {}

// Sender returns SenderCreator.
func (CreatorCase) Sender() Sender { return SenderCreator }

// Canonical returns the case text in creator attribute order.
func (c CreatorCase) Canonical() string {
	return joinAttributes(
		pair(keySender, string(SenderCreator)),
		pair(keyCreation, boolText(c.Creation)),
		pair(keyError, boolText(c.Error)),
		pair(keyBalanceCreator, c.BalanceCreator.String()),
		pair(keyBalanceContract, c.BalanceContract.String()),
		pair(keyBalanceOtherPositive, boolText(c.BalanceOtherPositive)),
		pair(keyBalanceOtherNegative, boolText(c.BalanceOtherNegative)),
	)
}

// HasPositive implements Case.
func (c CreatorCase) HasPositive() bool {
	return c.BalanceOtherPositive || c.BalanceCreator == Positive || c.BalanceContract == Positive
}

// HasNegative implements Case.
func (c CreatorCase) HasNegative() bool {
	return c.BalanceOtherNegative || c.BalanceCreator == Negative || c.BalanceContract == Negative
}

// OtherCase is a transaction sent by an account other than the creator.
type OtherCase struct {
	Error                bool
	BalanceCreator       Bucket
	BalanceContract      Bucket
	BalanceSender        Bucket
	BalanceOtherPositive bool
	BalanceOtherNegative bool
}

func (OtherCase) isCase() {}

// Sender returns SenderOther.
func (OtherCase) Sender() Sender { return SenderOther }

// Canonical returns the case text in other-sender attribute order.
func (c OtherCase) Canonical() string {
	return joinAttributes(
		pair(keySender, string(SenderOther)),
		pair(keyError, boolText(c.Error)),
		pair(keyBalanceCreator, c.BalanceCreator.String()),
		pair(keyBalanceContract, c.BalanceContract.String()),
		pair(keyBalanceSender, c.BalanceSender.String()),
		pair(keyBalanceOtherPositive, boolText(c.BalanceOtherPositive)),
		pair(keyBalanceOtherNegative, boolText(c.BalanceOtherNegative)),
	)
}

// HasPositive implements Case.
func (c OtherCase) HasPositive() bool {
	return c.BalanceOtherPositive ||
		c.BalanceCreator == Positive || c.BalanceContract == Positive || c.BalanceSender == Positive
}

// HasNegative implements Case.
func (c OtherCase) HasNegative() bool {
	return c.BalanceOtherNegative ||
		c.BalanceCreator == Negative || c.BalanceContract == Negative || c.BalanceSender == Negative
}

// IsValid applies the validity law: value can neither appear nor vanish, so a
// case shows a positive delta if and only if it shows a negative one.
func IsValid(c Case) bool {
	if c == nil {
		return false
	}
	return c.HasPositive() == c.HasNegative()
}

// ParseCase parses canonical case text. The key set and order must match the
// sender's definition exactly.
func ParseCase(canonical string) (Case, error) {
	parts := strings.Split(canonical, attributeSeparator)
	values := make(map[string]string, len(parts))
	keys := make([]string, 0, len(parts))
	for _, p := range parts {
		key, value, ok := strings.Cut(p, "=")
		if !ok {
			return nil, fmt.Errorf("malformed attribute %q", p)
		}
		if _, dup := values[key]; dup {
			return nil, fmt.Errorf("duplicate attribute %q", key)
		}
		values[key] = value
		keys = append(keys, key)
	}

	def, ok := definitionFor(Sender(values[keySender]))
	if !ok {
		return nil, fmt.Errorf("unknown sender %q", values[keySender])
	}
	if len(keys) != len(def.attributes) {
		return nil, fmt.Errorf("sender %s expects %d attributes, got %d", def.sender, len(def.attributes), len(keys))
	}
	for i, attr := range def.attributes {
		if keys[i] != attr.key {
			return nil, fmt.Errorf("attribute %d is %q, want %q", i, keys[i], attr.key)
		}
	}

	p := caseParser{values: values}
	var c Case
	switch def.sender {
	case SenderCreator:
		c = CreatorCase{
			Creation:             p.boolean(keyCreation),
			Error:                p.boolean(keyError),
			BalanceCreator:       p.bucket(keyBalanceCreator),
			BalanceContract:      p.bucket(keyBalanceContract),
			BalanceOtherPositive: p.boolean(keyBalanceOtherPositive),
			BalanceOtherNegative: p.boolean(keyBalanceOtherNegative),
		}
	case SenderOther:
		c = OtherCase{
			Error:                p.boolean(keyError),
			BalanceCreator:       p.bucket(keyBalanceCreator),
			BalanceContract:      p.bucket(keyBalanceContract),
			BalanceSender:        p.bucket(keyBalanceSender),
			BalanceOtherPositive: p.boolean(keyBalanceOtherPositive),
			BalanceOtherNegative: p.boolean(keyBalanceOtherNegative),
		}
	}
	if p.err != nil {
		return nil, p.err
	}
	return c, nil
}

// caseParser keeps the first conversion error.
type caseParser struct {
	values map[string]string
	err    error
}

func (p *caseParser) boolean(key string) bool {
	switch p.values[key] {
	case "True":
		return true
	case "False":
		return false
	}
	if p.err == nil {
		p.err = fmt.Errorf("attribute %s: invalid boolean %q", key, p.values[key])
	}
	return false
}

func (p *caseParser) bucket(key string) Bucket {
	b, err := ParseBucket(p.values[key])
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("attribute %s: %w", key, err)
	}
	return b
}

func pair(key, value string) string {
	return key + "=" + value
}

func joinAttributes(pairs ...string) string {
	return strings.Join(pairs, attributeSeparator)
}

// boolText renders booleans the way the persisted case dictionary does.
func boolText(b bool) string {
	if b {
		return "True"
	}
	return "False"
}
