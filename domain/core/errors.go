package core

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across the audit domain. Callers classify
// failures with errors.Is against these rather than matching text.
var (
	// Contest and audit construction errors
	ErrInvalidContest     = errors.New("invalid contest")
	ErrInvalidAuditParams = errors.New("invalid audit parameters")

	// Round execution errors
	ErrInvalidRound  = errors.New("invalid round")
	ErrAuditComplete = errors.New("audit already complete")

	// Numeric and solver errors
	ErrNumericFailure = errors.New("numeric failure")
	ErrUnattainable   = errors.New("target stopping probability unattainable")

	// Lookup errors
	ErrNotFound      = errors.New("resource not found")
	ErrAuditNotFound = fmt.Errorf("%w: audit", ErrNotFound)
)

// Constructors that attach the offending detail to a sentinel.
func NewInvalidContestError(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidContest, reason)
}

func NewInvalidParamsError(field string, reason string) error {
	return fmt.Errorf("%w: %s %s", ErrInvalidAuditParams, field, reason)
}

func NewInvalidRoundError(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidRound, reason)
}

// Classification helpers for the HTTP and CLI boundaries.
func IsInvalidContest(err error) bool {
	return errors.Is(err, ErrInvalidContest)
}

func IsInvalidRound(err error) bool {
	return errors.Is(err, ErrInvalidRound) || errors.Is(err, ErrAuditComplete)
}

func IsUnattainable(err error) bool {
	return errors.Is(err, ErrUnattainable)
}

func IsNumericFailure(err error) bool {
	return errors.Is(err, ErrNumericFailure)
}
