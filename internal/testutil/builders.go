package testutil

import (
	"fmt"
	"time"

	"github.com/growmesh/growmesh/core"
)

// TaskBuilder provides a fluent helper for constructing tasks in tests.
// Example:
//
//	task := testutil.NewTaskBuilder("write_blog_post", core.RoleContentWriter).
//		Param("topic", "launch").Build()
//
// Chain only the parts you need; sensible defaults are applied.
type TaskBuilder struct {
	taskType core.TaskType
	role     core.Role
	originID string
	params   map[string]any
	priority *core.Priority
}

// NewTaskBuilder creates a builder with default origin "test-caller".
func NewTaskBuilder(taskType core.TaskType, role core.Role) *TaskBuilder {
	return &TaskBuilder{taskType: taskType, role: role, originID: "test-caller", params: map[string]any{}}
}

// Origin sets the submitting agent id (chainable).
func (b *TaskBuilder) Origin(id string) *TaskBuilder { b.originID = id; return b }

// Param sets one named parameter (chainable).
func (b *TaskBuilder) Param(name string, value any) *TaskBuilder {
	b.params[name] = value
	return b
}

// Priority sets the task priority (chainable).
func (b *TaskBuilder) Priority(p core.Priority) *TaskBuilder { b.priority = &p; return b }

// Build constructs the task.
func (b *TaskBuilder) Build() core.Task {
	task := core.NewTask(b.taskType, b.role, b.originID, b.params)
	if b.priority != nil {
		task = task.WithPriority(*b.priority)
	}
	return task
}

// Config returns a validated mock-provider config for the role, with test
// friendly timeouts. Overrides mutate the config before validation.
func Config(role core.Role, overrides ...func(c *core.Config)) (core.Config, error) {
	cfg := core.Config{
		AgentID:            fmt.Sprintf("test-%s", role),
		Role:               role,
		Provider:           core.ProviderMock,
		MaxConcurrentTasks: 2,
		SubmitTimeout:      100 * time.Millisecond,
		TaskTimeout:        time.Second,
		DrainTimeout:       time.Second,
	}
	for _, fn := range overrides {
		fn(&cfg)
	}
	return core.NewConfig(cfg)
}

// HierarchyConfigs returns one validated config per role in the sealed role
// set: the coordinator, every manager and every specialist. Agent ids follow
// the "<role>-1" convention.
func HierarchyConfigs() ([]core.Config, error) {
	roles := append([]core.Role{core.RoleCoordinator}, core.ManagerRoles()...)
	roles = append(roles, core.SpecialistRoles()...)

	configs := make([]core.Config, 0, len(roles))
	for _, role := range roles {
		cfg, err := Config(role, func(c *core.Config) {
			c.AgentID = string(role) + "-1"
		})
		if err != nil {
			return nil, err
		}
		configs = append(configs, cfg)
	}
	return configs, nil
}
