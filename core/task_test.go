package core

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTask(t *testing.T) {
	task := NewTask("write_blog_post", RoleContentWriter, "caller-1", map[string]any{"topic": "launch"})

	assert.NotEmpty(t, task.ID)
	assert.Equal(t, TaskType("write_blog_post"), task.Type)
	assert.Equal(t, RoleContentWriter, task.TargetRole)
	assert.Equal(t, "caller-1", task.OriginID)
	assert.Equal(t, PriorityNormal, task.Priority)
	assert.WithinDuration(t, time.Now().UTC(), task.CreatedAt, time.Second)
}

func TestTask_ParamHelpers(t *testing.T) {
	task := NewTask("write_blog_post", RoleContentWriter, "caller-1", map[string]any{
		"topic": "launch",
		"count": 3,
	})

	v, ok := task.Param("topic")
	require.True(t, ok)
	assert.Equal(t, "launch", v)

	assert.Equal(t, "launch", task.StringParam("topic"))
	assert.Equal(t, "", task.StringParam("count"), "non-string params read as empty")
	assert.Equal(t, "", task.StringParam("missing"))
}

func TestTask_Retry(t *testing.T) {
	orig := NewTask("audit_page", RoleSEOSpecialist, "mgr-1", map[string]any{"url": "https://example.com"}).
		WithPriority(PriorityHigh).
		WithDependsOn("dep-1")

	retry := orig.Retry()

	assert.NotEqual(t, orig.ID, retry.ID, "retry is a new attempt with its own id")
	assert.Equal(t, orig.Type, retry.Type)
	assert.Equal(t, orig.TargetRole, retry.TargetRole)
	assert.Equal(t, orig.Params, retry.Params)
	assert.Equal(t, orig.Priority, retry.Priority)
	assert.Equal(t, orig.DependsOn, retry.DependsOn)
	assert.False(t, retry.CreatedAt.Before(orig.CreatedAt))
}

func TestResult_Constructors(t *testing.T) {
	started := time.Now().UTC().Add(-50 * time.Millisecond)

	ok := NewSuccessResult("task-1", map[string]any{"text": "done"}, started)
	assert.True(t, ok.Succeeded())
	assert.Equal(t, "task-1", ok.TaskID)
	assert.Empty(t, ok.ErrKind)
	assert.GreaterOrEqual(t, ok.Duration(), 50*time.Millisecond)

	cause := errors.New("boom")
	failed := NewFailureResult("task-2", NewExecutionError("agent-1", "task-2", "handler failed", cause), started)
	assert.False(t, failed.Succeeded())
	assert.Equal(t, KindExecution, failed.ErrKind)
	assert.Contains(t, failed.Err, "boom")
}

func TestRole_TierAndValidity(t *testing.T) {
	assert.Equal(t, TierCoordinator, RoleCoordinator.Tier())
	assert.Equal(t, TierManager, RoleContentManager.Tier())
	assert.Equal(t, TierSpecialist, RoleSEOSpecialist.Tier())

	assert.True(t, RoleAnalyticsReporter.Valid())
	assert.False(t, Role("intern").Valid())

	assert.Len(t, ManagerRoles(), 3)
	assert.Len(t, SpecialistRoles(), 5)
}

func TestNewMessage_Kinds(t *testing.T) {
	req := NewRequestMessage("coord-1", "mgr-1", map[string]any{"op": "report"})
	assert.Equal(t, KindRequest, req.Kind)
	assert.NotEmpty(t, req.ID)

	res := NewResultMessage("mgr-1", "coord-1", "task-9", nil)
	assert.Equal(t, KindResult, res.Kind)
	assert.Equal(t, "task-9", res.Payload["task_id"])
}
