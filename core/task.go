package core

import (
	"time"

	"github.com/google/uuid"
)

// TaskType tags a task with the operation it requests. Each agent role
// supports a fixed set of types registered at construction time.
type TaskType string

// Priority orders tasks when a caller cares about relative urgency. The
// runtime itself does not reorder submissions; priority travels with the task
// so delegators and external queues can apply their own policy.
type Priority int

const (
	// PriorityLow marks background work.
	PriorityLow Priority = iota
	// PriorityNormal is the default for interactive submissions.
	PriorityNormal
	// PriorityHigh marks work that should preempt queued submissions.
	PriorityHigh
)

// Task is the immutable unit of requested work. It captures:
//   - Correlation (ID, OriginID)
//   - Routing (TargetRole)
//   - The operation and its named parameters (Type, Params)
//   - Ordering hints (Priority, DependsOn)
//   - A high precision UTC creation timestamp
//
// Tasks are never mutated after construction. Retried work is represented by
// a new Task (see Retry); the runtime treats every Task as a distinct attempt.
type Task struct {
	ID         string         `json:"id"`
	Type       TaskType       `json:"type"`
	Priority   Priority       `json:"priority"`
	Params     map[string]any `json:"params,omitempty"`
	OriginID   string         `json:"origin_id"`
	TargetRole Role           `json:"target_role"`
	CreatedAt  time.Time      `json:"created_at"`
	DependsOn  []string       `json:"depends_on,omitempty"`
}

// NewTask creates a task with a generated id and UTC timestamp. originID
// identifies the submitting agent (or an external caller identifier).
func NewTask(taskType TaskType, targetRole Role, originID string, params map[string]any) Task {
	return Task{
		ID:         NewID(),
		Type:       taskType,
		Priority:   PriorityNormal,
		Params:     params,
		OriginID:   originID,
		TargetRole: targetRole,
		CreatedAt:  time.Now().UTC(),
	}
}

// WithPriority returns a copy of the task carrying the given priority.
func (t Task) WithPriority(p Priority) Task {
	t.Priority = p
	return t
}

// WithDependsOn returns a copy of the task that depends on the given task ids.
func (t Task) WithDependsOn(ids ...string) Task {
	t.DependsOn = append([]string(nil), ids...)
	return t
}

// Param returns the named parameter and whether it is present.
func (t Task) Param(name string) (any, bool) {
	v, ok := t.Params[name]
	return v, ok
}

// StringParam returns the named parameter as a string. Missing or non-string
// parameters yield the empty string.
func (t Task) StringParam(name string) string {
	if v, ok := t.Params[name]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// Retry constructs a fresh Task representing a new attempt of the same work:
// a new id and timestamp, identical type, routing, parameters and
// dependencies. Retry is a caller-side policy; the runtime never retries on
// its own.
func (t Task) Retry() Task {
	n := t
	n.ID = NewID()
	n.CreatedAt = time.Now().UTC()
	return n
}

// TaskStatus enumerates the terminal outcomes of one execution attempt.
type TaskStatus string

const (
	// StatusSucceeded indicates the handler returned an output mapping.
	StatusSucceeded TaskStatus = "succeeded"
	// StatusFailed indicates validation, execution or timeout failure.
	StatusFailed TaskStatus = "failed"
)

// Result is the immutable outcome of executing one task. Exactly one Result
// is produced per Submit call; terminal results are never mutated.
type Result struct {
	TaskID     string         `json:"task_id"`
	Status     TaskStatus     `json:"status"`
	Output     map[string]any `json:"output,omitempty"`
	Err        string         `json:"error,omitempty"`
	ErrKind    string         `json:"error_kind,omitempty"`
	Warnings   []string       `json:"warnings,omitempty"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
}

// NewSuccessResult constructs a succeeded result for the given task.
func NewSuccessResult(taskID string, output map[string]any, started time.Time) Result {
	return Result{
		TaskID:     taskID,
		Status:     StatusSucceeded,
		Output:     output,
		StartedAt:  started,
		FinishedAt: time.Now().UTC(),
	}
}

// NewFailureResult constructs a failed result for the given task. The error
// kind is derived from the error's position in the core taxonomy.
func NewFailureResult(taskID string, err error, started time.Time) Result {
	return Result{
		TaskID:     taskID,
		Status:     StatusFailed,
		Err:        err.Error(),
		ErrKind:    ErrorKind(err),
		StartedAt:  started,
		FinishedAt: time.Now().UTC(),
	}
}

// Succeeded reports whether the result is terminal-success.
func (r Result) Succeeded() bool { return r.Status == StatusSucceeded }

// Duration returns the wall time between start and finish.
func (r Result) Duration() time.Duration { return r.FinishedAt.Sub(r.StartedAt) }

// NewID generates a new unique identifier for tasks, results and messages.
//
// Returns a string representation of a new UUID.
func NewID() string { return uuid.NewString() }
