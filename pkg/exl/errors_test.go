package exl

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError(t *testing.T) {
	err := NewError(ErrorCodeParse, "Unable to parse document")

	assert.Equal(t, ErrorCodeParse, err.Code)
	assert.Equal(t, "Unable to parse document", err.Message)

	errStr := err.Error()
	assert.Contains(t, errStr, string(ErrorCodeParse))
	assert.Contains(t, errStr, "Unable to parse document")
}

func TestErrorWithContext(t *testing.T) {
	err := NewError(ErrorCodeExtraction, "missing").
		WithContext("field", "exl.name").
		WithContext("file", "/data/a.exl")

	// Context is rendered in key order
	assert.Contains(t, err.Error(), "Context: field=exl.name, file=/data/a.exl")
}

func TestErrorWithCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := ErrCacheUnavailable("RICCache", cause)

	assert.Same(t, cause, err.Cause)
	assert.Contains(t, err.Error(), "connection refused")
	assert.True(t, errors.Is(err, cause), "errors.Is should follow Unwrap")
}

func TestErrorIsMatchesCode(t *testing.T) {
	wrapped := fmt.Errorf("file a.exl: %w", NewError(ErrorCodeNoInstruments, "none here"))

	assert.True(t, errors.Is(wrapped, ErrNoInstruments))
	assert.False(t, errors.Is(wrapped, NewError(ErrorCodeParse, "")))
}

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"coded", ErrMissingKeyField(FieldRIC), ErrorCodeMissingKeyField},
		{"wrapped", fmt.Errorf("outer: %w", ErrParse("a.exl", errors.New("eof"))), ErrorCodeParse},
		{"plain", errors.New("boom"), ""},
		{"nil", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CodeOf(tt.err))
		})
	}
}

func TestErrConfiguration(t *testing.T) {
	err := ErrConfiguration("idir", "input directory is required")

	assert.Equal(t, ErrorCodeConfiguration, err.Code)
	assert.True(t, strings.Contains(err.Error(), "option=idir"))
}
