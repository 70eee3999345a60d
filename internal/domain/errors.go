package domain

import (
	"errors"
	"fmt"
)

// ErrInsufficientData marks a soft failure: fewer observations than a model or
// window requires. Callers degrade to a simpler estimator or exclude the item.
var ErrInsufficientData = errors.New("insufficient data")

// ErrUnknownModel is returned when a volatility model name cannot be parsed.
var ErrUnknownModel = errors.New("unknown volatility model")

// DegenerateInputError is a hard failure: the inputs cannot produce a meaningful
// result (non-positive portfolio variance, zero market value, empty weights).
type DegenerateInputError struct {
	Op     string
	Reason string
}

func (e *DegenerateInputError) Error() string {
	return fmt.Sprintf("%s: degenerate input: %s", e.Op, e.Reason)
}

// NewDegenerateInput builds a DegenerateInputError with a formatted reason.
func NewDegenerateInput(op, format string, args ...interface{}) error {
	return &DegenerateInputError{Op: op, Reason: fmt.Sprintf(format, args...)}
}

// IsDegenerateInput reports whether err (or anything it wraps) is a DegenerateInputError.
func IsDegenerateInput(err error) bool {
	var de *DegenerateInputError
	return errors.As(err, &de)
}
