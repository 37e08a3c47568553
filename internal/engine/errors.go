package engine

import (
	"errors"
	"fmt"
)

// EngineError is an error in driving the engine, as opposed to a failure
// of the simulated model (those are model.SimError).
type EngineError struct {
	// Code identifies the error category.
	Code EngineErrorCode

	// Message is a human-readable description.
	Message string

	// Status is the lifecycle status when the error occurred.
	Status Status

	// Details contains additional context.
	Details map[string]string
}

// EngineErrorCode categorizes engine errors.
type EngineErrorCode string

const (
	// ErrCodeInvalidState indicates an operation not allowed in the
	// current lifecycle status.
	ErrCodeInvalidState EngineErrorCode = "INVALID_STATE"

	// ErrCodeUnknownHandle indicates an observer handle that is not
	// registered.
	ErrCodeUnknownHandle EngineErrorCode = "UNKNOWN_HANDLE"

	// ErrCodeSnapshotMismatch indicates a snapshot that does not fit the
	// configured engine.
	ErrCodeSnapshotMismatch EngineErrorCode = "SNAPSHOT_MISMATCH"
)

// Error implements the error interface.
func (e *EngineError) Error() string {
	return fmt.Sprintf("%s: %s (status=%s)", e.Code, e.Message, e.Status)
}

// IsStateError returns true if the error is an invalid state error.
// Uses errors.As to handle wrapped errors.
func IsStateError(err error) bool {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Code == ErrCodeInvalidState
	}
	return false
}

// IsSnapshotMismatch returns true if the error is a snapshot mismatch.
func IsSnapshotMismatch(err error) bool {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Code == ErrCodeSnapshotMismatch
	}
	return false
}

func newStateError(op string, s Status) *EngineError {
	return &EngineError{
		Code:    ErrCodeInvalidState,
		Message: fmt.Sprintf("cannot %s", op),
		Status:  s,
		Details: map[string]string{"operation": op},
	}
}

func newSnapshotMismatch(s Status, format string, args ...any) *EngineError {
	return &EngineError{
		Code:    ErrCodeSnapshotMismatch,
		Message: fmt.Sprintf(format, args...),
		Status:  s,
	}
}
