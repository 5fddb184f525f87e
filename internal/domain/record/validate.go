package record

import (
	"errors"
	"fmt"
	"time"
)

const MaxBatchSize = 100

var (
	ErrValidation       = errors.New("validation failed")
	ErrBulkInvalid      = errors.New("bulk submission invalid")
	ErrDuplicateInBatch = errors.New("duplicate record in batch")
)

// ValidationError names the offending field. It matches ErrValidation and,
// for batch rules, ErrBulkInvalid or ErrDuplicateInBatch as well.
type ValidationError struct {
	Field   string
	Rule    string
	Message string
	kind    error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Unwrap() []error {
	if e.kind == nil {
		return []error{ErrValidation}
	}
	return []error{ErrValidation, e.kind}
}

func fieldErr(field, rule, msg string) *ValidationError {
	return &ValidationError{Field: field, Rule: rule, Message: msg}
}

// Validate checks a single normalized draft against now.
func Validate(d Draft, now time.Time) error {
	return validateAt(d, now, "")
}

func validateAt(d Draft, now time.Time, prefix string) error {
	if d.Category == "" {
		return fieldErr(prefix+"testCategory", "required", "test category is required")
	}
	if d.Type == "" {
		return fieldErr(prefix+"testType", "required", "test type is required")
	}
	if d.Unit == "" {
		return fieldErr(prefix+"unit", "required", "unit is required")
	}

	if d.Value == nil {
		return fieldErr(prefix+"testValue", "required", "test value is required")
	}
	// written this way so NaN fails too
	if !(*d.Value > 0) {
		return fieldErr(prefix+"testValue", "gt", "test value must be greater than 0")
	}

	if d.MinRange != nil && d.MaxRange != nil && !(*d.MaxRange > *d.MinRange) {
		return fieldErr(prefix+"maxRange", "gtfield", "max range must be greater than min range")
	}

	if d.TestDate == nil || d.TestDate.IsZero() {
		return fieldErr(prefix+"testDate", "required", "test date is required")
	}
	// compare instants, not wall clocks
	if d.TestDate.UTC().After(now.UTC()) {
		return fieldErr(prefix+"testDate", "not_future", "test date cannot be in the future")
	}

	return nil
}

type batchKey struct {
	testType string
	day      string
	category string
}

// ValidateBatch applies the single-record rules to every draft plus the
// batch rules: size, a shared category and no repeated (type, day, category).
func ValidateBatch(drafts []Draft, now time.Time) error {
	if len(drafts) == 0 {
		return &ValidationError{Field: "records", Rule: "min", Message: "at least one record is required", kind: ErrBulkInvalid}
	}
	if len(drafts) > MaxBatchSize {
		return &ValidationError{
			Field:   "records",
			Rule:    "max",
			Message: fmt.Sprintf("cannot submit more than %d records at once", MaxBatchSize),
			kind:    ErrBulkInvalid,
		}
	}

	for i, d := range drafts {
		if err := validateAt(d, now, fmt.Sprintf("records[%d].", i)); err != nil {
			return err
		}
	}

	category := drafts[0].Category
	for i, d := range drafts[1:] {
		if d.Category != category {
			return &ValidationError{
				Field:   fmt.Sprintf("records[%d].testCategory", i+1),
				Rule:    "same_category",
				Message: "all records in a batch must share the same test category",
				kind:    ErrBulkInvalid,
			}
		}
	}

	seen := make(map[batchKey]struct{}, len(drafts))
	for i, d := range drafts {
		day := d.TestDate.UTC().Format(time.DateOnly)
		key := batchKey{testType: d.Type, day: day, category: d.Category}
		if _, dup := seen[key]; dup {
			return &ValidationError{
				Field:   fmt.Sprintf("records[%d]", i),
				Rule:    "unique",
				Message: fmt.Sprintf("duplicate test %q on %s", d.Type, day),
				kind:    ErrDuplicateInBatch,
			}
		}
		seen[key] = struct{}{}
	}

	return nil
}
