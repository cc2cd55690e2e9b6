// Package errors provides custom error types for the retailsync pipeline.
// These errors enable programmatic error checking with errors.Is / errors.As
// and carry enough context to build the run-level report.
//
// The taxonomy follows the pipeline's propagation policy:
//
//   - ValidationError: a malformed single input value (e.g. an empty label). Local.
//   - DataError: a malformed record (e.g. an unparseable period). Collected per record.
//   - ConfigError: an invalid pipeline configuration. Fatal, raised before processing.
//   - ConflictError: an internal invariant violation during resolution. Fatal.
package errors

import (
	"errors"
	"fmt"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Is, As and Join are re-exported so callers only need one errors import.
var (
	Is   = errors.Is
	As   = errors.As
	Join = errors.Join
)

// Common sentinel errors for the retailsync pipeline
var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates that a single input value was malformed
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidData indicates that a record could not be used
	ErrInvalidData = errors.New("invalid data")

	// ErrInvalidConfig indicates that the pipeline configuration is invalid
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrConflict indicates an invariant violation during entity resolution
	ErrConflict = errors.New("resolution conflict")

	// ErrCanceled indicates that an operation was canceled
	ErrCanceled = errors.New("operation canceled")

	// ErrUnsupported indicates that a format or driver is not supported
	ErrUnsupported = errors.New("unsupported")
)

// ValidationError represents a malformed single input value.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// Is implements errors.Is support
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a new ValidationError
func NewValidationError(field string, value any, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// DataError represents a record that could not be used by the pipeline.
// Index is the record's position within its source batch.
type DataError struct {
	Source  string
	Index   int
	Field   string
	Value   any
	Message string
	Err     error
}

// Error implements the error interface
func (e *DataError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("data error in %s record %d (%s): %s", e.Source, e.Index, e.Field, e.Message)
	}
	return fmt.Sprintf("data error in %s record %d: %s", e.Source, e.Index, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *DataError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *DataError) Is(target error) bool {
	return target == ErrInvalidData
}

// NewDataError creates a new DataError
func NewDataError(source string, index int, field string, value any, message string) *DataError {
	return &DataError{
		Source:  source,
		Index:   index,
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// ConfigError represents a configuration error
type ConfigError struct {
	Component string
	Field     string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	switch {
	case e.Component != "" && e.Field != "":
		return fmt.Sprintf("configuration error in %s.%s: %s", e.Component, e.Field, e.Message)
	case e.Component != "":
		return fmt.Sprintf("configuration error in %s: %s", e.Component, e.Message)
	default:
		return fmt.Sprintf("configuration error: %s", e.Message)
	}
}

// Unwrap implements errors.Unwrap
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *ConfigError) Is(target error) bool {
	return target == ErrInvalidConfig
}

// NewConfigError creates a new ConfigError
func NewConfigError(component, field, message string) *ConfigError {
	return &ConfigError{
		Component: component,
		Field:     field,
		Message:   message,
	}
}

// ConflictError signals that the candidate links handed to the resolver
// break the matcher contract. It indicates a defect upstream of resolution,
// not a data quality issue.
type ConflictError struct {
	Members []string
	Message string
}

// Error implements the error interface
func (e *ConflictError) Error() string {
	if len(e.Members) > 0 {
		return fmt.Sprintf("resolution conflict for %v: %s", e.Members, e.Message)
	}
	return fmt.Sprintf("resolution conflict: %s", e.Message)
}

// Is implements errors.Is support
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// NewConflictError creates a new ConflictError
func NewConflictError(message string, members ...string) *ConflictError {
	return &ConflictError{Members: members, Message: message}
}

// CanceledError records which stage observed cancellation.
type CanceledError struct {
	Stage string
	Err   error
}

// Error implements the error interface
func (e *CanceledError) Error() string {
	return fmt.Sprintf("%s canceled: %v", e.Stage, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *CanceledError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *CanceledError) Is(target error) bool {
	return target == ErrCanceled
}

// NewCanceledError creates a new CanceledError
func NewCanceledError(stage string, err error) *CanceledError {
	return &CanceledError{Stage: stage, Err: err}
}

// ParseError represents an error when parsing data formats
type ParseError struct {
	Format  string // "csv", "json", "yaml"
	File    string
	Line    int
	Message string
	Err     error
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.File != "" && e.Line > 0 {
		return fmt.Sprintf("parse error in %s at %s:%d: %s", e.Format, e.File, e.Line, e.Message)
	}
	if e.File != "" {
		return fmt.Sprintf("parse error in %s file %s: %s", e.Format, e.File, e.Message)
	}
	return fmt.Sprintf("%s parse error: %s", e.Format, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewParseError creates a new ParseError
func NewParseError(format, file string, message string, err error) *ParseError {
	return &ParseError{
		Format:  format,
		File:    file,
		Message: message,
		Err:     err,
	}
}

// IOError represents an error during I/O operations
type IOError struct {
	Operation string // "read", "write", "open", "close"
	Path      string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("IO error during %s of %s: %s", e.Operation, e.Path, e.Message)
	}
	return fmt.Sprintf("IO error during %s: %s", e.Operation, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *IOError) Unwrap() error {
	return e.Err
}

// NewIOError creates a new IOError
func NewIOError(operation, path string, err error) *IOError {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &IOError{
		Operation: operation,
		Path:      path,
		Message:   message,
		Err:       err,
	}
}

// ResourceError represents an error during resource operations
type ResourceError struct {
	Operation string // "open", "migrate", "save", "load"
	Resource  string // "store", "run", "series"
	ID        string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *ResourceError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("failed to %s %s %s: %s", e.Operation, e.Resource, e.ID, e.Message)
	}
	return fmt.Sprintf("failed to %s %s: %s", e.Operation, e.Resource, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ResourceError) Unwrap() error {
	return e.Err
}

// NewResourceError creates a new ResourceError
func NewResourceError(operation, resource, id string, err error) *ResourceError {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &ResourceError{
		Operation: operation,
		Resource:  resource,
		ID:        id,
		Message:   message,
		Err:       err,
	}
}

// Helper functions for error checking

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsDataError checks if an error is a record-level data error
func IsDataError(err error) bool {
	return errors.Is(err, ErrInvalidData)
}

// IsConfigError checks if an error is a configuration error
func IsConfigError(err error) bool {
	return errors.Is(err, ErrInvalidConfig)
}

// IsConflict checks if an error is a resolution conflict
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsCanceled checks if an error is a cancellation error
func IsCanceled(err error) bool {
	return errors.Is(err, ErrCanceled)
}

// IsFatal reports whether an error must abort the whole run.
func IsFatal(err error) bool {
	return IsConfigError(err) || IsConflict(err) || IsCanceled(err)
}

// Helper wrapping functions for common patterns

// WrapValidation wraps an error as a ValidationError
func WrapValidation(field string, err error) error {
	if err == nil {
		return nil
	}
	return &ValidationError{Field: field, Message: err.Error()}
}

// WrapIO wraps an error as an IOError
func WrapIO(operation, path string, err error) error {
	if err == nil {
		return nil
	}
	return NewIOError(operation, path, err)
}

// WrapResource wraps an error as a ResourceError
func WrapResource(operation, resource, id string, err error) error {
	if err == nil {
		return nil
	}
	return NewResourceError(operation, resource, id, err)
}

// WrapParse wraps an error as a ParseError
func WrapParse(format, file string, err error) error {
	if err == nil {
		return nil
	}
	return NewParseError(format, file, err.Error(), err)
}

// WrapCanceled wraps a context error as a CanceledError.
func WrapCanceled(stage string, err error) error {
	if err == nil {
		return nil
	}
	return NewCanceledError(stage, err)
}

// AsDataError converts any record-level error into a DataError for the
// given source and record index. ValidationErrors keep their field.
func AsDataError(source string, index int, err error) *DataError {
	if err == nil {
		return nil
	}
	var de *DataError
	if errors.As(err, &de) {
		out := *de
		out.Source = source
		out.Index = index
		return &out
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return &DataError{
			Source:  source,
			Index:   index,
			Field:   ve.Field,
			Value:   ve.Value,
			Message: ve.Message,
			Err:     err,
		}
	}
	return &DataError{Source: source, Index: index, Message: err.Error(), Err: err}
}
