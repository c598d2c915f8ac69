package errors

import (
	stderrors "errors"
	"fmt"
)

type ValidationDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError rejects a request before any state is touched. Message is
// meant to be shown to the user as-is.
type ValidationError struct {
	Message string
	Details []ValidationDetail
}

func (e *ValidationError) Error() string {
	return e.Message
}

func NewValidationError(message string, details ...ValidationDetail) *ValidationError {
	return &ValidationError{
		Message: message,
		Details: details,
	}
}

func IsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if stderrors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string {
	return e.Message
}

func NewNotFoundError(message string) *NotFoundError {
	return &NotFoundError{Message: message}
}

func IsNotFoundError(err error) (*NotFoundError, bool) {
	var nfe *NotFoundError
	if stderrors.As(err, &nfe) {
		return nfe, true
	}
	return nil, false
}

// ConflictError reports a request that is well formed but not allowed in the
// current state, e.g. an invalid status transition or an over-payment.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

func NewConflictError(message string) *ConflictError {
	return &ConflictError{Message: message}
}

func IsConflictError(err error) (*ConflictError, bool) {
	var ce *ConflictError
	if stderrors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// ConsistencyError reports shared state that breaks an invariant, such as two
// open orders for one table. TableNumber is zero when not table scoped.
type ConsistencyError struct {
	Message     string
	TableNumber int
}

func (e *ConsistencyError) Error() string {
	if e.TableNumber > 0 {
		return fmt.Sprintf("%s (table %d)", e.Message, e.TableNumber)
	}
	return e.Message
}

func NewConsistencyError(message string, tableNumber int) *ConsistencyError {
	return &ConsistencyError{
		Message:     message,
		TableNumber: tableNumber,
	}
}

func IsConsistencyError(err error) (*ConsistencyError, bool) {
	var ce *ConsistencyError
	if stderrors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

type InternalError struct {
	Message string
	Cause   error
}

func (e *InternalError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *InternalError) Unwrap() error {
	return e.Cause
}

func NewInternalError(message string, cause error) *InternalError {
	return &InternalError{
		Message: message,
		Cause:   cause,
	}
}
