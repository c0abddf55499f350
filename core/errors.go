package core

import (
	"errors"
	"fmt"
)

// Sentinel errors used across the runtime and its transports.
var (
	// ErrUnsupportedTaskType is returned when no handler is registered for a
	// task's type tag.
	ErrUnsupportedTaskType = errors.New("unsupported task type")

	// ErrAgentStopped is returned when a task is submitted to an agent that
	// has been shut down.
	ErrAgentStopped = errors.New("agent stopped")

	// ErrCapacityExceeded is returned when a submission could not be admitted
	// before the configured submit timeout elapsed.
	ErrCapacityExceeded = errors.New("agent capacity exceeded")

	// ErrBusClosed is returned by bus operations after Close.
	ErrBusClosed = errors.New("bus closed")

	// ErrCacheMiss indicates no entry (fresh or stale) exists for a key.
	ErrCacheMiss = errors.New("cache miss")
)

// Error kind labels surfaced on failed Results. Callers branch on these
// rather than unwrapping concrete types across process boundaries.
const (
	KindValidation    = "validation"
	KindExecution     = "execution"
	KindCommunication = "communication"
	KindTimeout       = "timeout"
	KindInternal      = "internal"
)

// ValidationError reports a task that failed pre-admission checks: wrong
// target role, missing required parameter, or a stopped agent. Validation
// failures are never retried automatically.
type ValidationError struct {
	AgentID string
	TaskID  string
	Reason  string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("agent %s: task %s rejected: %s", e.AgentID, e.TaskID, e.Reason)
}

// NewValidationError constructs a ValidationError.
func NewValidationError(agentID, taskID, reason string) *ValidationError {
	return &ValidationError{AgentID: agentID, TaskID: taskID, Reason: reason}
}

// ExecutionError wraps any failure raised by a handler or a collaborator it
// called (LLM provider, platform client, cache fetch). The original cause is
// always preserved for unwrapping; it never escapes an agent boundary raw.
type ExecutionError struct {
	AgentID string
	TaskID  string
	Msg     string
	Cause   error
}

// Error implements the error interface.
func (e *ExecutionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("agent %s: task %s: %s: %v", e.AgentID, e.TaskID, e.Msg, e.Cause)
	}
	return fmt.Sprintf("agent %s: task %s: %s", e.AgentID, e.TaskID, e.Msg)
}

// Unwrap exposes the original cause to errors.Is / errors.As.
func (e *ExecutionError) Unwrap() error { return e.Cause }

// NewExecutionError constructs an ExecutionError wrapping cause.
func NewExecutionError(agentID, taskID, msg string, cause error) *ExecutionError {
	return &ExecutionError{AgentID: agentID, TaskID: taskID, Msg: msg, Cause: cause}
}

// CommunicationError wraps a bus send/receive failure with the same context
// fields as ExecutionError.
type CommunicationError struct {
	AgentID string
	TaskID  string
	Msg     string
	Cause   error
}

// Error implements the error interface.
func (e *CommunicationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("agent %s: %s: %v", e.AgentID, e.Msg, e.Cause)
	}
	return fmt.Sprintf("agent %s: %s", e.AgentID, e.Msg)
}

// Unwrap exposes the original transport failure.
func (e *CommunicationError) Unwrap() error { return e.Cause }

// NewCommunicationError constructs a CommunicationError wrapping cause.
func NewCommunicationError(agentID, msg string, cause error) *CommunicationError {
	return &CommunicationError{AgentID: agentID, Msg: msg, Cause: cause}
}

// TimeoutError reports that a task exceeded its configured execution
// deadline. The runtime cancels the in-flight operation and frees capacity
// before producing it.
type TimeoutError struct {
	AgentID string
	TaskID  string
	Cause   error
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("agent %s: task %s exceeded execution deadline", e.AgentID, e.TaskID)
}

// Unwrap exposes the underlying context error.
func (e *TimeoutError) Unwrap() error { return e.Cause }

// NewTimeoutError constructs a TimeoutError.
func NewTimeoutError(agentID, taskID string, cause error) *TimeoutError {
	return &TimeoutError{AgentID: agentID, TaskID: taskID, Cause: cause}
}

// ErrorKind classifies an error into one of the taxonomy labels recorded on
// failed Results. Wrapped causes are inspected via errors.As, so a
// TimeoutError inside an ExecutionError still classifies as timeout.
func ErrorKind(err error) string {
	var (
		ve *ValidationError
		te *TimeoutError
		ce *CommunicationError
		ee *ExecutionError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &ve):
		return KindValidation
	case errors.As(err, &te):
		return KindTimeout
	case errors.As(err, &ce):
		return KindCommunication
	case errors.As(err, &ee):
		return KindExecution
	default:
		return KindInternal
	}
}
