package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrTypeDatabase    ErrorType = "database"
	ErrTypeCache       ErrorType = "cache"
	ErrTypeValidation  ErrorType = "validation"
	ErrTypeNotFound    ErrorType = "not_found"
	ErrTypeConfig      ErrorType = "config"
	ErrTypeUnsupported ErrorType = "unsupported"
	ErrTypeFileSystem  ErrorType = "filesystem"
	ErrTypeInternal    ErrorType = "internal"
)

// Error represents a structured error with type and optional suggestions
type Error struct {
	Type        ErrorType
	Message     string
	Cause       error
	Suggestions []string
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}

	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// WithSuggestion adds a suggestion for resolving the error
func (e *Error) WithSuggestion(suggestion string) *Error {
	e.Suggestions = append(e.Suggestions, suggestion)
	return e
}

// New creates a new structured error
func New(errType ErrorType, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
	}
}

// Newf creates a new structured error with formatted message
func Newf(errType ErrorType, format string, args ...any) *Error {
	return &Error{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, errType ErrorType, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an existing error with formatted message
func Wrapf(err error, errType ErrorType, format string, args ...any) *Error {
	return &Error{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
		Cause:   err,
	}
}

// IsType checks if an error is of a specific type
func IsType(err error, errType ErrorType) bool {
	var structErr *Error
	if errors.As(err, &structErr) {
		return structErr.Type == errType
	}

	return false
}

// GetSuggestions returns the suggestions of the first structured error in
// the chain
func GetSuggestions(err error) []string {
	var structErr *Error
	if errors.As(err, &structErr) {
		return structErr.Suggestions
	}

	return nil
}

// GetType returns the error type if it's a structured error
func GetType(err error) ErrorType {
	var structErr *Error
	if errors.As(err, &structErr) {
		return structErr.Type
	}

	return ErrTypeInternal
}

// NewConfigError wraps a failure to load or validate configuration
func NewConfigError(err error, field string) *Error {
	message := "failed to load configuration"
	if field != "" {
		message = fmt.Sprintf("invalid configuration (field: %s)", field)
	}

	return Wrap(err, ErrTypeConfig, message).
		WithSuggestion("Check the file named by GEM_SUPPORT_CONFIG and any GEM_SUPPORT_* variables").
		WithSuggestion("Run with --help to see valid configuration options")
}

// NewUsageError reports malformed command-line arguments
func NewUsageError(problem, usage string) *Error {
	return New(ErrTypeValidation, problem).WithSuggestion("Usage: " + usage)
}

// NewOccurrenceNotFoundError reports that an occurrence of search could not
// be resolved in the subject
func NewOccurrenceNotFoundError(search string, occurrence int) *Error {
	ordinal := "last"
	if occurrence > 0 {
		ordinal = fmt.Sprintf("#%d", occurrence)
	}

	return Newf(ErrTypeNotFound, "occurrence %s of %q not found", ordinal, search).
		WithSuggestion("Occurrences start at 1; use 0 for the last match")
}

// NewDatabaseError wraps a connection failure for the given driver
func NewDatabaseError(err error, driver string) *Error {
	return Wrapf(err, ErrTypeDatabase, "failed to connect using driver %q", driver).
		WithSuggestion("Check GEM_SUPPORT_DB_DSN points at a reachable database").
		WithSuggestion("Run 'gem-support config' to inspect the active settings")
}

// NewUnsupportedDriverError reports a driver name that has no schema source
func NewUnsupportedDriverError(driver string, supported []string) *Error {
	return Newf(ErrTypeUnsupported, "unsupported database driver %q", driver).
		WithSuggestion(fmt.Sprintf("Use one of: %v", supported))
}
