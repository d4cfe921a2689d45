package exl

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Error is a loader failure tagged with a code so callers can decide whether
// it is fatal for the run, the file, or a single record.
type Error struct {
	// Code identifies the error kind
	Code ErrorCode

	// Message is the primary error message
	Message string

	// Context provides additional details (file, field, index)
	Context map[string]interface{}

	// Cause is the underlying error (if any)
	Cause error
}

// ErrorCode identifies categories of errors
type ErrorCode string

const (
	// Startup errors
	ErrorCodeConfiguration ErrorCode = "CONFIGURATION_ERROR"

	// Per-file errors
	ErrorCodeParse      ErrorCode = "PARSE_ERROR"
	ErrorCodeExtraction ErrorCode = "EXTRACTION_ERROR"

	// Per-record errors
	ErrorCodeMissingKeyField  ErrorCode = "MISSING_KEY_FIELD"
	ErrorCodeEncoding         ErrorCode = "ENCODING_ERROR"
	ErrorCodeCacheUnavailable ErrorCode = "CACHE_UNAVAILABLE"

	// Non-fatal: the document has no instrument container
	ErrorCodeNoInstruments ErrorCode = "NO_INSTRUMENTS"
)

// ErrNoInstruments is the errors.Is target for documents with no instrument
// container. ExtractInstruments returns a fresh copy, so this value is never
// handed out and must not be modified.
var ErrNoInstruments = noInstruments()

func noInstruments() *Error {
	return NewError(ErrorCodeNoInstruments, "document contains no instrument entries")
}

// Error implements the error interface
func (e *Error) Error() string {
	var parts []string

	parts = append(parts, fmt.Sprintf("[%s] %s", e.Code, e.Message))

	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		contextParts := make([]string, 0, len(keys))
		for _, k := range keys {
			contextParts = append(contextParts, fmt.Sprintf("%s=%v", k, e.Context[k]))
		}
		parts = append(parts, fmt.Sprintf("Context: %s", strings.Join(contextParts, ", ")))
	}

	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("Cause: %v", e.Cause))
	}

	return strings.Join(parts, "; ")
}

// Unwrap returns the underlying error for errors.Is/As compatibility
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error carrying the same code, so errors.Is(err, ErrNoInstruments)
// works regardless of the context attached.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// NewError creates a new Error with the given code and message
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Context: make(map[string]interface{}),
	}
}

// WithContext adds context information to the error
func (e *Error) WithContext(key string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithCause adds the underlying cause to the error
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// CodeOf returns the code of the first *Error in err's chain, or "" if none.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// ErrParse creates an error for a document that could not be read or parsed
func ErrParse(file string, cause error) *Error {
	return NewError(ErrorCodeParse, "Unable to parse document").
		WithContext("file", file).
		WithCause(cause)
}

// ErrMissingField creates an extraction error for an absent document field
func ErrMissingField(field string) *Error {
	return NewError(ErrorCodeExtraction, fmt.Sprintf("Document is missing field '%s'", field)).
		WithContext("field", field)
}

// ErrMissingKeyField creates an error for an instrument without a required lookup key
func ErrMissingKeyField(field string) *Error {
	return NewError(ErrorCodeMissingKeyField, fmt.Sprintf("Instrument is missing key field '%s'", field)).
		WithContext("field", field)
}

// ErrCacheUnavailable creates an error for a failed cache write
func ErrCacheUnavailable(hash string, cause error) *Error {
	return NewError(ErrorCodeCacheUnavailable, "Cache write failed").
		WithContext("hash", hash).
		WithCause(cause)
}

// ErrConfiguration creates an error for a missing or invalid startup option
func ErrConfiguration(option string, message string) *Error {
	return NewError(ErrorCodeConfiguration, message).
		WithContext("option", option)
}
