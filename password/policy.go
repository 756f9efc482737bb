package password

import (
	"errors"
	"fmt"
	"unicode"
)

// policy names as they appear in the configuration
const (
	PolicyBasic = "basic"
	PolicyHigh  = "high"
)

var (
	// ErrPasswordTooShort indicates the candidate misses the length floor
	ErrPasswordTooShort = errors.New("password does not meet the minimum length")
	// ErrPasswordTooWeak indicates the candidate misses a character class
	// required by the high policy
	ErrPasswordTooWeak = errors.New(
		"password needs upper case, lower case, a digit and a special character",
	)
)

// Policy validates password candidates against the configured rules
type Policy struct {
	minLength int
	high      bool
}

// NewPolicy builds a policy, unknown names fall back to basic
func NewPolicy(name string, minLength int) *Policy {
	return &Policy{
		minLength: minLength,
		high:      name == PolicyHigh,
	}
}

// Validate returns nil when the candidate satisfies the policy
func (p *Policy) Validate(candidate string) error {
	if len(candidate) < p.minLength {
		return fmt.Errorf("%w: %d characters required", ErrPasswordTooShort, p.minLength)
	}
	if !p.high {
		return nil
	}
	var upper, lower, digit, special bool
	for _, r := range candidate {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		default:
			special = true
		}
	}
	if !upper || !lower || !digit || !special {
		return ErrPasswordTooWeak
	}
	return nil
}
