package counters

import (
	"github.com/aescanero/layoutcounter/pkg/domain"
)

// Validator checks update request parameters
type Validator struct{}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{}
}

// Validate parses the key and delta of an update request. The key is checked
// first so an unknown key is reported even when the value is also malformed.
func (v *Validator) Validate(rawKey, rawValue string) (domain.Key, int64, error) {
	key, err := domain.ParseKey(rawKey)
	if err != nil {
		return "", 0, err
	}

	delta, err := domain.ParseDelta(rawValue)
	if err != nil {
		return "", 0, err
	}

	return key, delta, nil
}
