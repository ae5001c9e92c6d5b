// Package exception provides the error types shared by cropwx components.
// Every error raised by a component carries the module it came from, a concise
// message, and the wrapped cause, so the CLI and HTTP layers can classify it
// without parsing strings.
package exception

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// BatchError is the base error of the module.
type BatchError struct {
	// Module indicates where the error occurred (e.g., "parser", "loader", "query", "config").
	Module string
	// Message is a concise description of the error.
	Message string
	// OriginalErr is the wrapped original error.
	OriginalErr error
	// StackTrace is the stack trace at the time of the error (for debugging).
	StackTrace string
}

func captureStack() string {
	buf := make([]byte, 2048)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}

// NewBatchError creates a new BatchError instance.
func NewBatchError(module, message string, originalErr error) *BatchError {
	return &BatchError{
		Module:      module,
		Message:     message,
		OriginalErr: originalErr,
		StackTrace:  captureStack(),
	}
}

// NewBatchErrorf creates a new BatchError using a format string.
// When the last argument is an error it is taken as the wrapped cause and is
// not used for formatting.
//
//	NewBatchErrorf("loader", "failed to stage rows into %s", table, err)
func NewBatchErrorf(module, format string, a ...interface{}) *BatchError {
	var originalErr error
	args := a
	if len(args) > 0 {
		if err, ok := args[len(args)-1].(error); ok {
			originalErr = err
			args = args[:len(args)-1]
		}
	}
	return NewBatchError(module, fmt.Sprintf(format, args...), originalErr)
}

// Error implements the error interface.
func (e *BatchError) Error() string {
	if e.OriginalErr != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Module, e.Message, e.OriginalErr)
	}
	return fmt.Sprintf("[%s] %s", e.Module, e.Message)
}

// Unwrap returns the original error for errors.Unwrap.
func (e *BatchError) Unwrap() error {
	return e.OriginalErr
}

// IsBatchError reports whether err is, or wraps, a BatchError.
func IsBatchError(err error) bool {
	var be *BatchError
	return errors.As(err, &be)
}

// IsTemporary reports whether an error looks like a transient transport failure.
func IsTemporary(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrConnection) {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "broken pipe")
}

// ExtractErrorMessage extracts a clean message from an error.
// Typed errors of this package yield their Message; anything else yields Error().
func ExtractErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var m interface{ message() string }
	if errors.As(err, &m) {
		return m.message()
	}
	return err.Error()
}

func (e *BatchError) message() string { return e.Message }
