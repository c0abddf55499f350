package agent

import (
	"fmt"

	"github.com/growmesh/growmesh/core"
)

// ManagerOpsBuilder produces a manager's sealed operation set at
// construction time. The manager receives itself mid-construction so
// handlers can close over Dispatch; the registry is populated exactly once,
// before the constructor returns.
type ManagerOpsBuilder func(m *Manager) map[core.TaskType]HandlerSpec

// CoordinatorOpsBuilder is the coordinator counterpart of ManagerOpsBuilder.
type CoordinatorOpsBuilder func(c *Coordinator) map[core.TaskType]HandlerSpec

// Manager is a middle-tier agent: a Runtime for its own operations plus a
// delegator over the specialist agents injected at construction. Requests
// from the coordinator land here and fan out exactly one tier down; a
// specialist failure never aborts its siblings.
type Manager struct {
	*Runtime
	*delegator
}

// NewManager constructs a manager over its specialists. The specialists are
// fixed for the manager's lifetime; there is no post-construction
// registration.
func NewManager(cfg core.Config, specialists []Delegate, buildOps ManagerOpsBuilder, optFns ...func(o *Options)) (*Manager, error) {
	if cfg.Role.Tier() != core.TierManager {
		return nil, fmt.Errorf("agent %s: role %q is not a manager role", cfg.AgentID, cfg.Role)
	}

	opts := collectOptions(optFns)
	d, err := newDelegator(cfg.AgentID, core.TierSpecialist, specialists, opts.Logger)
	if err != nil {
		return nil, err
	}

	m := &Manager{Runtime: NewRuntime(cfg, NewRegistry(), optFns...), delegator: d}
	if buildOps != nil {
		for taskType, spec := range buildOps(m) {
			m.Registry().Register(taskType, spec)
		}
	}
	return m, nil
}

// Coordinator is the single top-tier agent: a Runtime for campaign-level
// operations plus a delegator over the managers injected at construction.
// It never reaches a specialist directly; every request descends through the
// owning manager.
type Coordinator struct {
	*Runtime
	*delegator
}

// NewCoordinator constructs the coordinator over its managers.
func NewCoordinator(cfg core.Config, managers []Delegate, buildOps CoordinatorOpsBuilder, optFns ...func(o *Options)) (*Coordinator, error) {
	if cfg.Role != core.RoleCoordinator {
		return nil, fmt.Errorf("agent %s: role %q is not the coordinator role", cfg.AgentID, cfg.Role)
	}

	opts := collectOptions(optFns)
	d, err := newDelegator(cfg.AgentID, core.TierManager, managers, opts.Logger)
	if err != nil {
		return nil, err
	}

	c := &Coordinator{Runtime: NewRuntime(cfg, NewRegistry(), optFns...), delegator: d}
	if buildOps != nil {
		for taskType, spec := range buildOps(c) {
			c.Registry().Register(taskType, spec)
		}
	}
	return c, nil
}

func collectOptions(optFns []func(o *Options)) Options {
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}
	return opts
}
