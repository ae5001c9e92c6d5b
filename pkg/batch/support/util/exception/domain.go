package exception

import (
	"errors"
	"fmt"
)

// Sentinels matched with errors.Is by the classifying predicates below.
var (
	ErrParse      = errors.New("parse error")
	ErrConnection = errors.New("connection error")
	ErrSchema     = errors.New("schema error")
	ErrValidation = errors.New("validation error")
)

// ParseError reports a malformed line in an input file.
type ParseError struct {
	*BatchError
	// File is the path of the offending file.
	File string
	// Line is the 1-based line number, or 0 when the whole file is at fault.
	Line int
}

// NewParseError creates a ParseError for file:line.
func NewParseError(file string, line int, reason string, err error) *ParseError {
	msg := fmt.Sprintf("%s:%d: %s", file, line, reason)
	if line == 0 {
		msg = fmt.Sprintf("%s: %s", file, reason)
	}
	return &ParseError{
		BatchError: NewBatchError("parser", msg, join(ErrParse, err)),
		File:       file,
		Line:       line,
	}
}

// ConnectionError reports that the database could not be reached or the session broke.
type ConnectionError struct {
	*BatchError
}

// NewConnectionError wraps err as a ConnectionError raised by module.
func NewConnectionError(module, message string, err error) *ConnectionError {
	return &ConnectionError{BatchError: NewBatchError(module, message, join(ErrConnection, err))}
}

// SchemaError reports that the target tables could not be created or verified.
type SchemaError struct {
	*BatchError
}

// NewSchemaError wraps err as a SchemaError raised by module.
func NewSchemaError(module, message string, err error) *SchemaError {
	return &SchemaError{BatchError: NewBatchError(module, message, join(ErrSchema, err))}
}

// ValidationError reports an unacceptable caller-supplied value.
type ValidationError struct {
	*BatchError
	// Field names the offending parameter.
	Field string
}

// NewValidationError creates a ValidationError for field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		BatchError: NewBatchError("query", message, ErrValidation),
		Field:      field,
	}
}

// Unwrap keeps the embedded BatchError reachable from errors.As in addition to its cause.
func (e *ParseError) Unwrap() []error      { return []error{e.BatchError, e.OriginalErr} }
func (e *ConnectionError) Unwrap() []error { return []error{e.BatchError, e.OriginalErr} }
func (e *SchemaError) Unwrap() []error     { return []error{e.BatchError, e.OriginalErr} }
func (e *ValidationError) Unwrap() []error { return []error{e.BatchError, e.OriginalErr} }

// IsParseError reports whether err is, or wraps, a ParseError.
func IsParseError(err error) bool { return errors.Is(err, ErrParse) }

// IsConnectionError reports whether err is, or wraps, a ConnectionError.
func IsConnectionError(err error) bool { return errors.Is(err, ErrConnection) }

// IsSchemaError reports whether err is, or wraps, a SchemaError.
func IsSchemaError(err error) bool { return errors.Is(err, ErrSchema) }

// IsValidationError reports whether err is, or wraps, a ValidationError.
func IsValidationError(err error) bool { return errors.Is(err, ErrValidation) }

func join(sentinel, err error) error {
	if err == nil {
		return sentinel
	}
	return errors.Join(sentinel, err)
}
