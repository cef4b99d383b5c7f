package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/listq/internal/listop"
)

// FailureError describes why an operation did not take effect.
//
// It is carried in Outcome.Err and FailureRecord.Err. Codes map one to one
// onto FailureKind so listeners can switch on either.
type FailureError struct {
	// Code identifies the failure category.
	Code FailureCode

	// Op is the operation name ("AddItemAt", "Diff", ...).
	Op string

	// OperationID is the ID assigned at submit time, empty for diff faults.
	OperationID string

	// Reason is set for DROPPED failures.
	Reason DropReason

	// Message is a human-readable description.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// FailureCode categorizes failures.
type FailureCode string

const (
	// ErrCodeValidation indicates a precondition did not hold (bad index,
	// missing item, wrong goroutine).
	ErrCodeValidation FailureCode = "VALIDATION"

	// ErrCodeException indicates a recovered panic or unexpected error
	// during apply or diff.
	ErrCodeException FailureCode = "EXCEPTION"

	// ErrCodeDropped indicates the operation was discarded before it was
	// applied.
	ErrCodeDropped FailureCode = "DROPPED"
)

// Error implements the error interface.
func (e *FailureError) Error() string {
	if e.Code == ErrCodeDropped {
		return fmt.Sprintf("%s: %s dropped (%s)", e.Code, e.Op, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %s", e.Code, e.Op, e.Message)
}

// Unwrap returns the underlying cause.
func (e *FailureError) Unwrap() error {
	return e.Err
}

// Sentinel errors returned by the engine API.
var (
	// ErrStopped is reported for operations submitted after Stop or left
	// queued when Run exits on context cancellation.
	ErrStopped = errors.New("engine stopped")

	// ErrAlreadyRunning is returned by Run when another goroutine owns the lane.
	ErrAlreadyRunning = errors.New("engine lane already running")

	// ErrWrongGoroutine is wrapped in validation failures raised by the
	// thread check.
	ErrWrongGoroutine = errors.New("called off the designated goroutine")
)

// IsValidation reports whether err is a validation failure.
// Uses errors.As to handle wrapped errors.
func IsValidation(err error) bool {
	var fe *FailureError
	if errors.As(err, &fe) {
		return fe.Code == ErrCodeValidation
	}
	return false
}

// IsException reports whether err is a recovered fault.
func IsException(err error) bool {
	var fe *FailureError
	if errors.As(err, &fe) {
		return fe.Code == ErrCodeException
	}
	return false
}

// IsDropped reports whether err is a drop, and returns its reason.
func IsDropped(err error) (DropReason, bool) {
	var fe *FailureError
	if errors.As(err, &fe) && fe.Code == ErrCodeDropped {
		return fe.Reason, true
	}
	return "", false
}

func newValidationError(op, id string, cause error) *FailureError {
	msg := cause.Error()
	var ve *listop.ValidationError
	if errors.As(cause, &ve) {
		msg = ve.Message
	}
	return &FailureError{
		Code:        ErrCodeValidation,
		Op:          op,
		OperationID: id,
		Message:     msg,
		Err:         cause,
	}
}

func newExceptionError(op, id string, cause error) *FailureError {
	return &FailureError{
		Code:        ErrCodeException,
		Op:          op,
		OperationID: id,
		Message:     cause.Error(),
		Err:         cause,
	}
}

func newDroppedError(op, id string, reason DropReason) *FailureError {
	fe := &FailureError{
		Code:        ErrCodeDropped,
		Op:          op,
		OperationID: id,
		Reason:      reason,
		Message:     string(reason),
	}
	if reason == DropStopped {
		fe.Err = ErrStopped
	}
	return fe
}

// panicError converts a recovered value into an error.
func panicError(r any) error {
	if err, ok := r.(error); ok {
		return fmt.Errorf("panic: %w", err)
	}
	return fmt.Errorf("panic: %v", r)
}
