package models

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by every engine component. Callers match them with errors.Is.
var (
	ErrNotFound           = errors.New("not found")
	ErrIllegalTransition  = errors.New("illegal transition")
	ErrExpired            = errors.New("receipt expired")
	ErrForbidden          = errors.New("forbidden")
	ErrDuplicateAdvance   = errors.New("receipt already has an active advance")
	ErrAlreadyResolved    = errors.New("dispute already resolved")
	ErrNotPending         = errors.New("not pending")
	ErrOverCollateralized = errors.New("advance exceeds max loan-to-value")
	ErrConflict           = errors.New("conflict")
	ErrReceiptNotActive   = errors.New("receipt not active")
	ErrNotListable        = errors.New("receipt cannot be listed for sale")
	ErrValidation         = errors.New("validation error")
)

// TransitionError reports a status edge missing from a transition table.
type TransitionError struct {
	Entity string
	From   string
	To     string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: %s -> %s not permitted", e.Entity, e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrIllegalTransition }

// FieldError describes a validation error for a specific field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError contains a list of field-level validation errors.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation: %s: %s", e.Errors[0].Field, e.Errors[0].Message)
	}
	return fmt.Sprintf("validation: %d errors", len(e.Errors))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError creates a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Errors: []FieldError{{Field: field, Message: message}}}
}
