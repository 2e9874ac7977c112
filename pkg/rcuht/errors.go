package rcuht

import (
	"errors"
	"fmt"
)

// Error is a table error with a structured code.
type Error struct {
	Code    string // Error code (e.g., "RCU-KEY-4040")
	Message string // Human-readable message
	Details string // Optional additional details
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewError creates an Error with the given code and message.
func NewError(code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *Error) WithDetails(details string) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Cause:   e.Cause,
	}
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *Error) WithCause(cause error) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		Cause:   cause,
	}
}

// ErrorCode extracts the code from err if it is an *Error.
func ErrorCode(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// ============================================================================
// Table Errors (TBL)
// ============================================================================

var (
	// ErrInvalidParameters indicates rejected construction arguments.
	ErrInvalidParameters = NewError("RCU-TBL-4000", "invalid table parameters")

	// ErrTableBusy indicates Close was called while thread contexts exist.
	ErrTableBusy = NewError("RCU-TBL-4090", "table has live thread contexts")

	// ErrTableClosed indicates use of a closed table.
	ErrTableClosed = NewError("RCU-TBL-4100", "table closed")
)

// ============================================================================
// Key Errors (KEY)
// ============================================================================

var (
	// ErrNotFound indicates Remove found no entry for the key.
	ErrNotFound = NewError("RCU-KEY-4040", "key not found")

	// ErrDeleteFailed indicates the store refused to unlink an entry.
	ErrDeleteFailed = NewError("RCU-KEY-5000", "delete failed")
)

// ============================================================================
// Lock Errors (LCK)
// ============================================================================

var (
	// ErrLockPoisoned indicates a write session panicked mid-mutation.
	ErrLockPoisoned = NewError("RCU-LCK-5000", "writer lock poisoned")

	// ErrWriteReentry indicates a second write session on one context.
	ErrWriteReentry = NewError("RCU-LCK-4090", "write session already open on this context")
)

// ============================================================================
// Context and Session Errors (CTX, SES)
// ============================================================================

var (
	// ErrContextClosed indicates use or double close of a thread context.
	ErrContextClosed = NewError("RCU-CTX-4000", "thread context closed")

	// ErrWrongGoroutine indicates a thread context used off its goroutine.
	ErrWrongGoroutine = NewError("RCU-CTX-4030", "thread context used from another goroutine")

	// ErrSessionsOpen indicates a context closed with sessions still open.
	ErrSessionsOpen = NewError("RCU-CTX-4090", "sessions still open")

	// ErrSessionClosed indicates use of a closed session or a stale Ref.
	ErrSessionClosed = NewError("RCU-SES-4000", "session closed")
)

// DeleteError reports a nonzero store status from a delete.
// It matches ErrDeleteFailed with errors.Is.
type DeleteError struct {
	Code int
}

func (e *DeleteError) Error() string {
	return fmt.Sprintf("[%s] %s: store status %d", ErrDeleteFailed.Code, ErrDeleteFailed.Message, e.Code)
}

// Is reports whether target is ErrDeleteFailed.
func (e *DeleteError) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == ErrDeleteFailed.Code
}
