package errors

import (
	"errors"
	"fmt"
)

// NotFoundError signals that a referenced trip, booking or payment is absent.
type NotFoundError struct {
	Resource string
	Err      error
}

func (e NotFoundError) Error() string {
	if e.Resource == "" {
		return "not found"
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

func (e NotFoundError) Unwrap() error { return e.Err }

// ValidationError signals a missing or malformed request field.
type ValidationError struct {
	Field string
	Msg   string
}

func (e ValidationError) Error() string {
	if e.Field != "" && e.Msg != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Msg)
	}
	if e.Msg != "" {
		return e.Msg
	}
	if e.Field != "" {
		return fmt.Sprintf("invalid %s", e.Field)
	}
	return "validation error"
}

// ConflictError signals a concurrent status transition conflict: the write
// that establishes a terminal state wins, a later different terminal write
// is rejected.
type ConflictError struct {
	Resource string
	Msg      string
}

func (e ConflictError) Error() string {
	switch {
	case e.Msg != "" && e.Resource != "":
		return fmt.Sprintf("%s conflict: %s", e.Resource, e.Msg)
	case e.Msg != "":
		return e.Msg
	case e.Resource != "":
		return fmt.Sprintf("%s conflict", e.Resource)
	}
	return "conflict"
}

// ProviderVerificationError signals a webhook signature mismatch. The request
// is rejected without side effects.
type ProviderVerificationError struct {
	Msg string
}

func (e ProviderVerificationError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return "provider signature verification failed"
}

// InvariantViolationError signals that the booking and payment ledgers
// disagree after a supposedly-atomic propagation. It is logged at high
// severity and surfaced to the alerting channel, never swallowed.
type InvariantViolationError struct {
	Msg string
	Err error
}

func (e InvariantViolationError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return "ledger invariant violation"
}

func (e InvariantViolationError) Unwrap() error { return e.Err }

func IsNotFound(err error) bool {
	var target NotFoundError
	return errors.As(err, &target)
}

func IsValidation(err error) bool {
	var target ValidationError
	return errors.As(err, &target)
}

func IsConflict(err error) bool {
	var target ConflictError
	return errors.As(err, &target)
}

func IsProviderVerification(err error) bool {
	var target ProviderVerificationError
	return errors.As(err, &target)
}

func IsInvariantViolation(err error) bool {
	var target InvariantViolationError
	return errors.As(err, &target)
}
