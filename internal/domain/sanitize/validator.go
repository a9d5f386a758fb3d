package sanitize

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Rejection reasons reported by the Validator.
const (
	ReasonMissing      = "is required"
	ReasonTooLong      = "exceeds 64 characters"
	ReasonInvalidChars = "contains characters outside [A-Za-z0-9_.:-]"
)

// ValidationError names the field that failed and why.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// Invalid builds a ValidationError.
func Invalid(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// Validator turns raw identifiers into accepted ids or a rejection.
//
// In lenient mode (the default) ids are normalized with CleanID and only an
// empty result is rejected. Strict mode rejects ids that CleanID would have
// had to truncate or rewrite.
type Validator struct {
	Strict bool
}

// ID validates raw as the identifier named field.
func (v Validator) ID(field, raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", Invalid(field, ReasonMissing)
	}
	if v.Strict {
		if utf8.RuneCountInString(trimmed) > MaxIDLen {
			return "", Invalid(field, ReasonTooLong)
		}
		if strings.IndexFunc(trimmed, func(r rune) bool { return !isIDRune(r) }) >= 0 {
			return "", Invalid(field, ReasonInvalidChars)
		}
		return trimmed, nil
	}
	id := CleanID(trimmed)
	if id == "" {
		return "", Invalid(field, ReasonMissing)
	}
	return id, nil
}

// OptionalID is ID for fields that may be absent; an absent value returns "".
func (v Validator) OptionalID(field, raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}
	return v.ID(field, raw)
}
