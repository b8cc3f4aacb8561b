package errors

import (
	"errors"
	"fmt"
)

// Kind classifies an error into one of the recoverable categories the
// booking core can raise. Callers branch on the kind, never on message text.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindValidation
	KindConflict
	KindInvalidTransition
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindInvalidTransition:
		return "invalid_transition"
	default:
		return "internal"
	}
}

// AppError represents an application error
type AppError struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Error constructors

// NotFound reports a missing Provider, Patient, Slot or Appointment.
// The resource name is part of the contract and must identify the entity.
func NotFound(resource string) *AppError {
	return &AppError{
		Kind:    KindNotFound,
		Message: fmt.Sprintf("%s not found", resource),
	}
}

func Validation(message string) *AppError {
	return &AppError{
		Kind:    KindValidation,
		Message: message,
	}
}

func Conflict(message string) *AppError {
	return &AppError{
		Kind:    KindConflict,
		Message: message,
	}
}

// InvalidTransition names both the current and the requested status.
func InvalidTransition(current, requested string) *AppError {
	return &AppError{
		Kind:    KindInvalidTransition,
		Message: fmt.Sprintf("invalid status transition: %s -> %s", current, requested),
	}
}

func Internal(err error) *AppError {
	return &AppError{
		Kind:    KindInternal,
		Message: "internal error",
		Err:     err,
	}
}

// KindOf returns the kind of err, unwrapping as needed. Non-AppError
// chains are reported as internal.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

func IsNotFound(err error) bool          { return KindOf(err) == KindNotFound }
func IsValidation(err error) bool        { return KindOf(err) == KindValidation }
func IsConflict(err error) bool          { return KindOf(err) == KindConflict }
func IsInvalidTransition(err error) bool { return KindOf(err) == KindInvalidTransition }
