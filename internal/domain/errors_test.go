// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSentinelErrors(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		expected     string
		expectedType ErrorType
	}{
		{"ErrMeetingNotFound", ErrMeetingNotFound, "meeting not found", ErrorTypeNotFound},
		{"ErrAgentNotFound", ErrAgentNotFound, "agent not found", ErrorTypeNotFound},
		{"ErrMissingMeetingID", ErrMissingMeetingID, "missing meeting ID", ErrorTypeValidation},
		{"ErrServiceUnavailable", ErrServiceUnavailable, "service unavailable", ErrorTypeUnavailable},
		{"ErrInvalidSignature", ErrInvalidSignature, "invalid signature", ErrorTypeUnauthorized},
		{"ErrPreconditionFailed", ErrPreconditionFailed, "meeting status precondition failed", ErrorTypeConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
			assert.Equal(t, tt.expectedType, GetErrorType(tt.err))
		})
	}
}

func TestSentinelErrorsAreDistinct(t *testing.T) {
	errorVars := []error{
		ErrMeetingNotFound,
		ErrAgentNotFound,
		ErrMissingMeetingID,
		ErrServiceUnavailable,
		ErrInvalidSignature,
		ErrPreconditionFailed,
	}

	for i, err1 := range errorVars {
		for j, err2 := range errorVars {
			if i != j && errors.Is(err1, err2) {
				t.Errorf("errors should be distinct: %v and %v are considered equal", err1, err2)
			}
		}
	}
}

func TestGetErrorType(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected ErrorType
	}{
		{"validation", NewValidationError("bad input"), ErrorTypeValidation},
		{"not found", NewNotFoundError("missing"), ErrorTypeNotFound},
		{"conflict", NewConflictError("modified"), ErrorTypeConflict},
		{"internal", NewInternalError("boom"), ErrorTypeInternal},
		{"unavailable", NewUnavailableError("down"), ErrorTypeUnavailable},
		{"unauthorized", NewUnauthorizedError("nope"), ErrorTypeUnauthorized},
		{"wrapped domain error", fmt.Errorf("context: %w", NewNotFoundError("missing")), ErrorTypeNotFound},
		{"plain error defaults to internal", errors.New("plain"), ErrorTypeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetErrorType(tt.err))
		})
	}
}

func TestDomainError_ErrorAndUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewInternalError("failed to reach store", cause)

	assert.Equal(t, "failed to reach store: connection refused", err.Error())
	assert.ErrorIs(t, err, cause)

	bare := NewValidationError("name is required")
	assert.Equal(t, "name is required", bare.Error())
	assert.Nil(t, bare.Unwrap())
}
