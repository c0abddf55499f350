// Package growmesh provides a high-level façade over the agent runtime and
// transport packages for assembling a marketing agent hierarchy. Most
// applications interact with this package by:
//  1. Loading agent configurations (config.Load or hand-built core.Config values)
//  2. Creating a Mesh via New() (optionally overriding transports, providers
//     and platform clients)
//  3. Submitting tasks synchronously (Submit) and shutting down (Shutdown)
//
// The façade wires the coordinator, managers and specialists from the
// configurations alone: each role receives its fixed operation set and
// managers are connected to the specialist roles they own. All defaults are
// safe for local development and testing; production deployments supply real
// provider adapters, platform clients and durable transports.
package growmesh

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/growmesh/growmesh/agent"
	"github.com/growmesh/growmesh/bus"
	"github.com/growmesh/growmesh/cache"
	"github.com/growmesh/growmesh/core"
	"github.com/growmesh/growmesh/history"
	"github.com/growmesh/growmesh/logging"
	"github.com/growmesh/growmesh/platform"
	"github.com/growmesh/growmesh/provider"
)

// managerChildren fixes which specialist roles report to which manager.
var managerChildren = map[core.Role][]core.Role{
	core.RoleContentManager:   {core.RoleContentWriter, core.RoleSEOSpecialist},
	core.RoleSocialManager:    {core.RoleSocialPoster, core.RoleEmailSpecialist},
	core.RoleAnalyticsManager: {core.RoleAnalyticsReporter},
}

// Options configures the Mesh instance.
type Options struct {
	// Bus carries notifications between agents. Defaults to an in-memory
	// bus owned (and closed) by the mesh.
	Bus core.Bus
	// Cache backs quota-bound specialist operations. Defaults to an
	// in-memory cache owned (and closed) by the mesh.
	Cache core.Cache
	// Providers maps provider names (core.ProviderAnthropic etc.) to
	// adapters. The mock provider is always available.
	Providers map[string]provider.Provider
	// Platform clients used by the specialist handler sets. Default to the
	// in-memory fakes.
	Analytics platform.AnalyticsClient
	Social    platform.SocialClient
	Email     platform.EmailClient
	// History records every task submitted through the mesh. Defaults to a
	// bounded in-memory store.
	History history.Store
	// Logger defaults to NoOpLogger.
	Logger logging.Logger
}

// Mesh aggregates a coordinator hierarchy built from agent configurations.
type Mesh struct {
	opts        Options
	coordinator *agent.Coordinator

	ownsBus   bool
	ownsCache bool

	mu     sync.Mutex
	byRole map[core.Role][]submitter
	byID   map[string]submitter
	next   map[core.Role]int
	closed bool
}

type submitter interface {
	AgentID() string
	Role() core.Role
	Submit(ctx context.Context, task core.Task) core.Result
	Stop(ctx context.Context) error
}

// New builds a mesh from the given agent configurations. The set must
// contain exactly one coordinator; managers and specialists are optional but
// a manager without its specialists can only fail the affected delegations.
func New(configs []core.Config, optFns ...func(o *Options)) (*Mesh, error) {
	opts := Options{
		Providers: map[string]provider.Provider{},
		Analytics: platform.NewFakeAnalytics(),
		Social:    platform.NewFakeSocial(),
		Email:     platform.NewFakeEmail(),
		History:   history.NewInMemoryStore(),
		Logger:    logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	ownsBus, ownsCache := false, false
	if opts.Bus == nil {
		opts.Bus = bus.NewInMemoryBus()
		ownsBus = true
	}
	if opts.Cache == nil {
		opts.Cache = cache.NewInMemoryCache()
		ownsCache = true
	}

	m := &Mesh{
		opts:      opts,
		ownsBus:   ownsBus,
		ownsCache: ownsCache,
		byRole:    make(map[core.Role][]submitter),
		byID:      make(map[string]submitter),
		next:      make(map[core.Role]int),
	}

	if err := m.build(configs); err != nil {
		m.closeTransports()
		return nil, err
	}
	return m, nil
}

// WithBus injects a shared message bus. The caller keeps ownership.
func WithBus(b core.Bus) func(o *Options) {
	return func(o *Options) { o.Bus = b }
}

// WithCache injects a shared cache. The caller keeps ownership.
func WithCache(c core.Cache) func(o *Options) {
	return func(o *Options) { o.Cache = c }
}

// WithProvider registers a provider adapter under its configured name.
func WithProvider(name string, p provider.Provider) func(o *Options) {
	return func(o *Options) {
		if o.Providers == nil {
			o.Providers = map[string]provider.Provider{}
		}
		o.Providers[name] = p
	}
}

// WithPlatformClients injects the marketing platform clients.
func WithPlatformClients(analytics platform.AnalyticsClient, social platform.SocialClient, email platform.EmailClient) func(o *Options) {
	return func(o *Options) {
		o.Analytics = analytics
		o.Social = social
		o.Email = email
	}
}

// WithHistory injects the store recording submitted tasks and results.
func WithHistory(s history.Store) func(o *Options) {
	return func(o *Options) { o.History = s }
}

// WithLogger injects the logger used by every agent in the hierarchy.
func WithLogger(l logging.Logger) func(o *Options) {
	return func(o *Options) { o.Logger = l }
}

func (m *Mesh) providerFor(cfg core.Config) (provider.Provider, error) {
	if p, ok := m.opts.Providers[cfg.Provider]; ok {
		return p, nil
	}
	if cfg.Provider == core.ProviderMock {
		return provider.NewMockProvider(), nil
	}
	return nil, fmt.Errorf("growmesh: agent %s: no %s provider registered", cfg.AgentID, cfg.Provider)
}

func (m *Mesh) runtimeOptions() []func(o *agent.Options) {
	return []func(o *agent.Options){
		agent.WithBus(m.opts.Bus),
		agent.WithCache(m.opts.Cache),
		agent.WithLogger(m.opts.Logger),
	}
}

// build constructs the hierarchy bottom-up: specialists first, then managers
// over their specialist roles, then the single coordinator over the managers.
func (m *Mesh) build(configs []core.Config) error {
	var managerCfgs, specialistCfgs []core.Config
	var coordinatorCfg *core.Config

	for i, cfg := range configs {
		switch cfg.Role.Tier() {
		case core.TierCoordinator:
			if coordinatorCfg != nil {
				return fmt.Errorf("growmesh: multiple coordinators (%s, %s)", coordinatorCfg.AgentID, cfg.AgentID)
			}
			coordinatorCfg = &configs[i]
		case core.TierManager:
			managerCfgs = append(managerCfgs, cfg)
		case core.TierSpecialist:
			specialistCfgs = append(specialistCfgs, cfg)
		}
	}
	if coordinatorCfg == nil {
		return fmt.Errorf("growmesh: no coordinator defined")
	}

	specialists := make(map[core.Role][]agent.Delegate)
	for _, cfg := range specialistCfgs {
		p, err := m.providerFor(cfg)
		if err != nil {
			return err
		}
		ops, err := m.specialistOps(cfg, p)
		if err != nil {
			return err
		}
		s, err := agent.NewSpecialist(cfg, ops, m.runtimeOptions()...)
		if err != nil {
			return err
		}
		specialists[cfg.Role] = append(specialists[cfg.Role], s)
		m.track(s)
	}

	managers := make([]agent.Delegate, 0, len(managerCfgs))
	for _, cfg := range managerCfgs {
		p, err := m.providerFor(cfg)
		if err != nil {
			return err
		}
		var subs []agent.Delegate
		for _, role := range managerChildren[cfg.Role] {
			subs = append(subs, specialists[role]...)
		}
		mgr, err := agent.NewManager(cfg, subs, m.managerOps(cfg.Role, p), m.runtimeOptions()...)
		if err != nil {
			return err
		}
		managers = append(managers, mgr)
		m.track(mgr)
	}

	p, err := m.providerFor(*coordinatorCfg)
	if err != nil {
		return err
	}
	coord, err := agent.NewCoordinator(*coordinatorCfg, managers, agent.CoordinatorOps(p), m.runtimeOptions()...)
	if err != nil {
		return err
	}
	m.coordinator = coord
	m.track(coord)
	return nil
}

func (m *Mesh) specialistOps(cfg core.Config, p provider.Provider) (map[core.TaskType]agent.HandlerSpec, error) {
	switch cfg.Role {
	case core.RoleContentWriter:
		return agent.ContentWriterOps(cfg, p), nil
	case core.RoleSEOSpecialist:
		return agent.SEOSpecialistOps(cfg, p, m.opts.Analytics, m.opts.Cache), nil
	case core.RoleEmailSpecialist:
		return agent.EmailSpecialistOps(cfg, p, m.opts.Email, m.opts.Cache), nil
	case core.RoleSocialPoster:
		return agent.SocialPosterOps(cfg, p, m.opts.Social), nil
	case core.RoleAnalyticsReporter:
		return agent.AnalyticsReporterOps(cfg, p, m.opts.Analytics, m.opts.Cache), nil
	default:
		return nil, fmt.Errorf("growmesh: no operation set for specialist role %q", cfg.Role)
	}
}

func (m *Mesh) managerOps(role core.Role, p provider.Provider) agent.ManagerOpsBuilder {
	switch role {
	case core.RoleContentManager:
		return agent.ContentManagerOps(p)
	case core.RoleSocialManager:
		return agent.SocialManagerOps(p)
	default:
		return agent.AnalyticsManagerOps(p)
	}
}

func (m *Mesh) track(s submitter) {
	m.byRole[s.Role()] = append(m.byRole[s.Role()], s)
	m.byID[s.AgentID()] = s
}

// Coordinator returns the hierarchy's top agent.
func (m *Mesh) Coordinator() *agent.Coordinator { return m.coordinator }

// Agent looks an agent up by id.
func (m *Mesh) Agent(id string) (agent.Delegate, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byID[id]
	return s, ok
}

// Submit routes a task to an agent of its target role and blocks until the
// result settles. Same-role agents are rotated round-robin. A role with no
// agent yields a failed validation result, mirroring delegation semantics.
// Every submission and its result is recorded in the history store.
func (m *Mesh) Submit(ctx context.Context, task core.Task) core.Result {
	m.mu.Lock()
	pool := m.byRole[task.TargetRole]
	if len(pool) == 0 {
		m.mu.Unlock()
		result := core.NewFailureResult(task.ID,
			core.NewValidationError("mesh", task.ID, fmt.Sprintf("no agent for role %q", task.TargetRole)),
			task.CreatedAt)
		m.opts.History.Append(history.Record{Task: task, Result: result})
		return result
	}
	target := pool[m.next[task.TargetRole]%len(pool)]
	m.next[task.TargetRole]++
	m.mu.Unlock()

	result := target.Submit(ctx, task)
	m.opts.History.Append(history.Record{Task: task, Result: result})
	return result
}

// History exposes the record of tasks submitted through the mesh.
func (m *Mesh) History() history.Store { return m.opts.History }

// Shutdown stops every agent top-down (coordinator, managers, specialists)
// so no agent keeps delegating into stopped subordinates, then closes the
// transports the mesh owns. Idempotent.
func (m *Mesh) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	var errs []error
	for _, tier := range []core.Tier{core.TierCoordinator, core.TierManager, core.TierSpecialist} {
		for role, pool := range m.byRole {
			if role.Tier() != tier {
				continue
			}
			for _, s := range pool {
				if err := s.Stop(ctx); err != nil {
					errs = append(errs, err)
				}
			}
		}
	}
	if err := m.closeTransports(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (m *Mesh) closeTransports() error {
	var errs []error
	if m.ownsBus && m.opts.Bus != nil {
		if err := m.opts.Bus.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if m.ownsCache && m.opts.Cache != nil {
		if err := m.opts.Cache.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
