package rowset

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors, one per failure class. Typed errors below report
// errors.Is against their sentinel so callers can branch on the class
// without knowing the concrete type.
var (
	// ErrSchemaViolation is returned when a model registration is rejected.
	ErrSchemaViolation = errors.New("rowset: schema violation")

	// ErrOutOfBounds is returned when an ordinal or index precondition fails,
	// or a structure is used in a state that does not allow the operation.
	ErrOutOfBounds = errors.New("rowset: bounds violation")

	// ErrTypeMismatch is returned when an expression operand does not fit
	// the signature of its operator or function.
	ErrTypeMismatch = errors.New("rowset: type mismatch")

	// ErrTypeMapping is returned when a logical type has no physical mapping.
	ErrTypeMapping = errors.New("rowset: type not supported")

	// ErrNotSupported is returned when a dialect cannot express an operator,
	// function or transport.
	ErrNotSupported = errors.New("rowset: not supported")

	// ErrConversion is returned when a value cannot be converted to the
	// logical type of a column.
	ErrConversion = errors.New("rowset: conversion failed")

	// ErrExecution is returned when the database rejects a statement.
	ErrExecution = errors.New("rowset: execution failed")

	// ErrCanceled is returned when execution stops because its context ended.
	ErrCanceled = errors.New("rowset: canceled")
)

// SchemaError represents a rejected model registration.
type SchemaError struct {
	Model   string // Model name
	Member  string // Column, constraint or child name (if applicable)
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *SchemaError) Error() string {
	var b strings.Builder
	b.WriteString("rowset: schema violation")
	if e.Model != "" {
		b.WriteString(" on model ")
		b.WriteString(e.Model)
	}
	if e.Member != "" {
		b.WriteString(" member ")
		b.WriteString(e.Member)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying error.
func (e *SchemaError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches ErrSchemaViolation.
func (e *SchemaError) Is(target error) bool {
	return target == ErrSchemaViolation
}

// NewSchemaError returns a new SchemaError.
func NewSchemaError(model, member, message string) *SchemaError {
	return &SchemaError{Model: model, Member: member, Message: message}
}

// IsSchemaError reports whether the error is a SchemaError.
func IsSchemaError(err error) bool {
	var e *SchemaError
	return errors.As(err, &e)
}

// BoundsError represents a failed index or state precondition.
type BoundsError struct {
	Op      string // Operation, e.g. "insert", "remove"
	Index   int    // Offending index, -1 if not applicable
	Count   int    // Valid upper bound at the time of the call
	Message string
}

// Error implements the error interface.
func (e *BoundsError) Error() string {
	if e.Index >= 0 || e.Count > 0 {
		return fmt.Sprintf("rowset: %s: index %d out of range [0, %d]: %s", e.Op, e.Index, e.Count, e.Message)
	}
	return fmt.Sprintf("rowset: %s: %s", e.Op, e.Message)
}

// Is reports whether the target matches ErrOutOfBounds.
func (e *BoundsError) Is(target error) bool {
	return target == ErrOutOfBounds
}

// NewBoundsError returns a BoundsError for an index outside [0, count].
func NewBoundsError(op string, index, count int) *BoundsError {
	return &BoundsError{Op: op, Index: index, Count: count, Message: "index out of range"}
}

// NewStateError returns a BoundsError for a state precondition.
func NewStateError(op, message string) *BoundsError {
	return &BoundsError{Op: op, Index: -1, Message: message}
}

// IsBoundsError reports whether the error is a BoundsError.
func IsBoundsError(err error) bool {
	var e *BoundsError
	return errors.As(err, &e)
}

// TypeMismatchError reports an operand that does not fit an operation.
type TypeMismatchError struct {
	Op       string   // Operator or function name
	Operands []string // Logical types of the operands
	Message  string
}

// Error implements the error interface.
func (e *TypeMismatchError) Error() string {
	msg := fmt.Sprintf("rowset: type mismatch: %s(%s)", e.Op, strings.Join(e.Operands, ", "))
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

// Is reports whether the target matches ErrTypeMismatch.
func (e *TypeMismatchError) Is(target error) bool {
	return target == ErrTypeMismatch
}

// NewTypeMismatchError returns a new TypeMismatchError.
func NewTypeMismatchError(op, message string, operands ...string) *TypeMismatchError {
	return &TypeMismatchError{Op: op, Operands: operands, Message: message}
}

// IsTypeMismatch reports whether the error is a TypeMismatchError.
func IsTypeMismatch(err error) bool {
	var e *TypeMismatchError
	return errors.As(err, &e)
}

// TypeMappingError reports a logical type with no physical mapping.
type TypeMappingError struct {
	Dialect string
	Column  string // Column name, empty for anonymous expressions
	Type    string // Logical type
}

// Error implements the error interface.
func (e *TypeMappingError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("rowset: type %s of column %q not supported by %s", e.Type, e.Column, e.Dialect)
	}
	return fmt.Sprintf("rowset: type %s not supported by %s", e.Type, e.Dialect)
}

// Is reports whether the target matches ErrTypeMapping.
func (e *TypeMappingError) Is(target error) bool {
	return target == ErrTypeMapping
}

// IsTypeMappingError reports whether the error is a TypeMappingError.
func IsTypeMappingError(err error) bool {
	var e *TypeMappingError
	return errors.As(err, &e)
}

// NotSupportedError reports an operator, function or transport a dialect
// cannot express.
type NotSupportedError struct {
	Dialect string
	Kind    string // "operator", "function", "transport", ...
	Name    string
}

// Error implements the error interface.
func (e *NotSupportedError) Error() string {
	return fmt.Sprintf("rowset: %s %q not supported by %s", e.Kind, e.Name, e.Dialect)
}

// Is reports whether the target matches ErrNotSupported.
func (e *NotSupportedError) Is(target error) bool {
	return target == ErrNotSupported
}

// NewNotSupportedError returns a new NotSupportedError.
func NewNotSupportedError(dialect, kind, name string) *NotSupportedError {
	return &NotSupportedError{Dialect: dialect, Kind: kind, Name: name}
}

// IsNotSupported reports whether the error is a NotSupportedError.
func IsNotSupported(err error) bool {
	var e *NotSupportedError
	return errors.As(err, &e)
}

// ConversionError reports a value that cannot be converted to the logical
// type of a column.
type ConversionError struct {
	Column string
	Value  any
	Err    error
}

// Error implements the error interface.
func (e *ConversionError) Error() string {
	return fmt.Sprintf("rowset: cannot convert %#v for column %q: %v", e.Value, e.Column, e.Err)
}

// Unwrap returns the underlying error.
func (e *ConversionError) Unwrap() error {
	return e.Err
}

// Is reports whether the target matches ErrConversion.
func (e *ConversionError) Is(target error) bool {
	return target == ErrConversion
}

// NewConversionError returns a new ConversionError.
func NewConversionError(column string, value any, err error) *ConversionError {
	return &ConversionError{Column: column, Value: value, Err: err}
}

// IsConversionError reports whether the error is a ConversionError.
func IsConversionError(err error) bool {
	var e *ConversionError
	return errors.As(err, &e)
}

// ExecutionError wraps an error returned by the database driver.
type ExecutionError struct {
	Op  string // "exec", "query", "bulk insert", ...
	Err error
}

// Error implements the error interface.
func (e *ExecutionError) Error() string {
	return fmt.Sprintf("rowset: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// Is reports whether the target matches ErrExecution.
func (e *ExecutionError) Is(target error) bool {
	return target == ErrExecution
}

// NewExecutionError returns a new ExecutionError.
func NewExecutionError(op string, err error) *ExecutionError {
	return &ExecutionError{Op: op, Err: err}
}

// IsExecutionError reports whether the error is an ExecutionError.
func IsExecutionError(err error) bool {
	var e *ExecutionError
	return errors.As(err, &e)
}

// Canceled wraps a context error so that it matches ErrCanceled while
// keeping the original cause in the chain.
func Canceled(cause error) error {
	return fmt.Errorf("%w: %w", ErrCanceled, cause)
}

// IsCanceled reports whether the error resulted from context cancellation.
func IsCanceled(err error) bool {
	return errors.Is(err, ErrCanceled)
}

// AggregateError represents multiple errors collected during an operation.
type AggregateError struct {
	Errors []error
}

// Error returns the error string.
func (e *AggregateError) Error() string {
	if len(e.Errors) == 0 {
		return "rowset: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	var sb strings.Builder
	sb.WriteString("rowset: multiple errors:")
	for i, err := range e.Errors {
		fmt.Fprintf(&sb, "\n  [%d] %v", i+1, err)
	}
	return sb.String()
}

// Unwrap returns the collected errors.
func (e *AggregateError) Unwrap() []error {
	return e.Errors
}

// NewAggregateError returns a new AggregateError if there are errors,
// otherwise returns nil.
func NewAggregateError(errs ...error) error {
	var filtered []error
	for _, err := range errs {
		if err != nil {
			filtered = append(filtered, err)
		}
	}
	if len(filtered) == 0 {
		return nil
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &AggregateError{Errors: filtered}
}
