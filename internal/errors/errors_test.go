package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	err := New(ErrTypeValidation, "test error message")

	assert.Equal(t, ErrTypeValidation, err.Type)
	assert.Equal(t, "test error message", err.Message)
	assert.NoError(t, err.Cause)
}

func TestNewf(t *testing.T) {
	err := Newf(ErrTypeDatabase, "failed to connect to %s", "database")

	assert.Equal(t, ErrTypeDatabase, err.Type)
	assert.Equal(t, "failed to connect to database", err.Message)
}

func TestWrap(t *testing.T) {
	originalErr := errors.New("original error")
	wrappedErr := Wrap(originalErr, ErrTypeCache, "cache operation failed")

	assert.Equal(t, ErrTypeCache, wrappedErr.Type)
	assert.Equal(t, "cache operation failed", wrappedErr.Message)
	assert.Equal(t, originalErr, wrappedErr.Cause)
}

func TestWrapf(t *testing.T) {
	originalErr := errors.New("connection refused")
	wrappedErr := Wrapf(
		originalErr,
		ErrTypeDatabase,
		"failed to connect to %s:%d",
		"localhost",
		5432,
	)

	assert.Equal(t, ErrTypeDatabase, wrappedErr.Type)
	assert.Equal(t, "failed to connect to localhost:5432", wrappedErr.Message)
	assert.Equal(t, originalErr, wrappedErr.Cause)
}

func TestErrorString(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		expected string
	}{
		{
			name: "error without cause",
			err: &Error{
				Type:    ErrTypeValidation,
				Message: "invalid input",
			},
			expected: "validation: invalid input",
		},
		{
			name: "error with cause",
			err: &Error{
				Type:    ErrTypeDatabase,
				Message: "query failed",
				Cause:   errors.New("connection timeout"),
			},
			expected: "database: query failed (caused by: connection timeout)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestUnwrap(t *testing.T) {
	originalErr := errors.New("original error")
	wrappedErr := Wrap(originalErr, ErrTypeCache, "wrapped error")

	assert.Equal(t, originalErr, wrappedErr.Unwrap())
}

func TestWithSuggestion(t *testing.T) {
	err := New(ErrTypeDatabase, "connection refused")
	err = err.WithSuggestion("Start the database server")
	err = err.WithSuggestion("Check the DSN")

	assert.Len(t, err.Suggestions, 2)
	assert.Contains(t, err.Suggestions, "Start the database server")
	assert.Contains(t, err.Suggestions, "Check the DSN")
}

func TestIsType(t *testing.T) {
	structErr := New(ErrTypeValidation, "validation error")
	regularErr := errors.New("regular error")

	assert.True(t, IsType(structErr, ErrTypeValidation))
	assert.False(t, IsType(structErr, ErrTypeDatabase))
	assert.False(t, IsType(regularErr, ErrTypeValidation))
}

func TestGetType(t *testing.T) {
	structErr := New(ErrTypeNotFound, "table not found")
	regularErr := errors.New("regular error")

	assert.Equal(t, ErrTypeNotFound, GetType(structErr))
	assert.Equal(t, ErrTypeInternal, GetType(regularErr))
}

func TestNewConfigError(t *testing.T) {
	cause := errors.New("yaml: line 3: bad indentation")
	err := NewConfigError(cause, "")

	assert.Equal(t, ErrTypeConfig, err.Type)
	assert.Equal(t, "failed to load configuration", err.Message)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Suggestions, "Run with --help to see valid configuration options")
}

func TestNewConfigErrorWithField(t *testing.T) {
	err := NewConfigError(errors.New("unknown level"), "logging.level")

	assert.Equal(t, ErrTypeConfig, err.Type)
	assert.Contains(t, err.Message, "logging.level")
}

func TestNewUsageError(t *testing.T) {
	err := NewUsageError("expected 2 arguments", "gem-support str after <subject> <search>")

	assert.True(t, IsType(err, ErrTypeValidation))
	assert.Equal(t, []string{"Usage: gem-support str after <subject> <search>"}, err.Suggestions)
}

func TestNewOccurrenceNotFoundError(t *testing.T) {
	assert.Equal(t, `occurrence #2 of "/" not found`, NewOccurrenceNotFoundError("/", 2).Message)
	assert.Equal(t, `occurrence last of "/" not found`, NewOccurrenceNotFoundError("/", 0).Message)
	assert.Equal(t, ErrTypeNotFound, NewOccurrenceNotFoundError("x", 1).Type)
}

func TestErrorTypeString(t *testing.T) {
	tests := []struct {
		errType  ErrorType
		expected string
	}{
		{ErrTypeDatabase, "database"},
		{ErrTypeCache, "cache"},
		{ErrTypeValidation, "validation"},
		{ErrTypeNotFound, "not_found"},
		{ErrTypeConfig, "config"},
		{ErrTypeUnsupported, "unsupported"},
		{ErrTypeFileSystem, "filesystem"},
		{ErrTypeInternal, "internal"},
	}

	for _, tt := range tests {
		t.Run(string(tt.errType), func(t *testing.T) {
			assert.Equal(t, tt.expected, string(tt.errType))
		})
	}
}

func TestNewDatabaseError(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := NewDatabaseError(cause, "postgres")

	assert.Equal(t, ErrTypeDatabase, err.Type)
	assert.Contains(t, err.Message, `"postgres"`)
	assert.ErrorIs(t, err, cause)
	assert.Len(t, err.Suggestions, 2)
}

func TestNewUnsupportedDriverError(t *testing.T) {
	err := NewUnsupportedDriverError("oracle", []string{"duckdb", "sqlite3"})

	assert.True(t, IsType(err, ErrTypeUnsupported))
	assert.Equal(t, `unsupported: unsupported database driver "oracle"`, err.Error())
	assert.Equal(t, []string{"Use one of: [duckdb sqlite3]"}, err.Suggestions)
}

func TestGetSuggestions(t *testing.T) {
	structured := New(ErrTypeNotFound, "no match").WithSuggestion("Try a different search")
	wrapped := fmt.Errorf("lookup: %w", structured)

	assert.Equal(t, []string{"Try a different search"}, GetSuggestions(wrapped))
	assert.Nil(t, GetSuggestions(errors.New("plain")))
}
