package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors of the order lifecycle. Callers branch with errors.Is; the
// HTTP layer maps them to reason strings in responses.
var (
	ErrInvalidPromotion        = errors.New("invalid promotion code")
	ErrPromotionExpired        = errors.New("promotion expired")
	ErrMinimumOrderNotMet      = errors.New("minimum order not met")
	ErrPromotionNotEligible    = errors.New("promotion not valid for selected products")
	ErrPromotionAlreadyApplied = errors.New("promotion already applied")
	ErrPromotionNoLongerValid  = errors.New("promotion no longer valid")
	ErrInvalidTransition       = errors.New("invalid kitchen transition")
	ErrSubmissionFailed        = errors.New("order submission failed")
	ErrPersistence             = errors.New("persistence error")
	ErrNotFound                = errors.New("not found")
	ErrOrderAlreadyAccepted    = errors.New("order already accepted")
	ErrInvalidStep             = errors.New("checkout step not reachable")
	ErrEmptyCart               = errors.New("cart is empty")
)

type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError carries the full list of offending fields so the checkout
// flow can mark each one, not just the first.
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	names := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		names[i] = f.Field
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(names, ", "))
}

func (e *ValidationError) Add(field, reason string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Reason: reason})
}

func (e *ValidationError) Empty() bool { return len(e.Fields) == 0 }

// AsValidation unwraps err into a *ValidationError if it is one.
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
