package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorKind_Classification(t *testing.T) {
	cause := errors.New("upstream")

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"validation", NewValidationError("a1", "t1", "missing param"), KindValidation},
		{"execution", NewExecutionError("a1", "t1", "handler failed", cause), KindExecution},
		{"communication", NewCommunicationError("a1", "send failed", cause), KindCommunication},
		{"timeout", NewTimeoutError("a1", "t1", nil), KindTimeout},
		{"timeout wrapped in execution", NewExecutionError("a1", "t1", "deadline", NewTimeoutError("a1", "t1", nil)), KindTimeout},
		{"plain error", cause, KindInternal},
		{"fmt wrapped execution", fmt.Errorf("outer: %w", NewExecutionError("a1", "t1", "inner", nil)), KindExecution},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ErrorKind(tt.err))
		})
	}
}

func TestExecutionError_PreservesCause(t *testing.T) {
	cause := errors.New("rate limited")
	err := NewExecutionError("writer-1", "task-1", "provider call failed", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "writer-1")
	assert.Contains(t, err.Error(), "task-1")
	assert.Contains(t, err.Error(), "rate limited")
}

func TestCommunicationError_PreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewCommunicationError("mgr-1", "publish to inbox failed", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused")
}
