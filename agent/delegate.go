package agent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/growmesh/growmesh/core"
	"github.com/growmesh/growmesh/logging"
)

// Delegate is the view a delegating agent holds of a subordinate: identity,
// role and synchronous task submission. Runtime satisfies it, so managers
// and coordinators compose without special casing.
type Delegate interface {
	AgentID() string
	Role() core.Role
	Submit(ctx context.Context, task core.Task) core.Result
}

// Call is one delegated task within a fan-out round. Required marks outputs
// the aggregate cannot succeed without; optional failures degrade to
// warnings.
type Call struct {
	Task     core.Task
	Required bool
}

// Aggregate collects a delegation round after the join barrier: every call
// has settled before it is built. Outputs and Results are keyed by delegate
// agent id; when the same delegate settles more than one call in a round the
// later entries are keyed "<agent id>#<task type>" so no result is dropped.
type Aggregate struct {
	Outputs  map[string]map[string]any
	Results  map[string]core.Result
	Warnings []string
	Failed   bool
}

// Output flattens the aggregate into a single result mapping suitable for a
// handler return value.
func (a Aggregate) Output() map[string]any {
	out := make(map[string]any, len(a.Outputs)+1)
	for agentID, o := range a.Outputs {
		out[agentID] = o
	}
	if len(a.Warnings) > 0 {
		out["warnings"] = append([]string(nil), a.Warnings...)
	}
	return out
}

// delegator owns the downward edges of one delegating agent. Subordinates
// are injected at construction and never change; requests flow exactly one
// tier down and responses flow back up the same path.
type delegator struct {
	ownerID   string
	childTier core.Tier
	logger    logging.Logger

	mu   sync.Mutex
	subs map[core.Role][]Delegate
	next map[core.Role]int
}

func newDelegator(ownerID string, childTier core.Tier, subs []Delegate, logger logging.Logger) (*delegator, error) {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	d := &delegator{
		ownerID:   ownerID,
		childTier: childTier,
		logger:    logger,
		subs:      make(map[core.Role][]Delegate),
		next:      make(map[core.Role]int),
	}
	for _, sub := range subs {
		role := sub.Role()
		if role.Tier() != childTier {
			return nil, fmt.Errorf("agent %s: subordinate %s has tier %s, want %s",
				ownerID, sub.AgentID(), role.Tier(), childTier)
		}
		d.subs[role] = append(d.subs[role], sub)
	}
	return d, nil
}

// pick selects a delegate for a role, rotating through the pool so repeated
// rounds spread load across same-role subordinates.
func (d *delegator) pick(role core.Role) (Delegate, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	pool := d.subs[role]
	if len(pool) == 0 {
		return nil, false
	}
	i := d.next[role] % len(pool)
	d.next[role]++
	return pool[i], true
}

// Roles returns the subordinate roles this delegator can reach.
func (d *delegator) Roles() []core.Role {
	d.mu.Lock()
	defer d.mu.Unlock()
	roles := make([]core.Role, 0, len(d.subs))
	for role := range d.subs {
		roles = append(roles, role)
	}
	return roles
}

// settled is one call's outcome flowing back through the join barrier.
type settled struct {
	agentID  string
	taskType core.TaskType
	required bool
	result   core.Result
}

// Dispatch fans the calls out to subordinates concurrently and blocks until
// every call has settled (the join barrier), then aggregates by policy: a
// required delegate's failure fails the whole round, an optional failure is
// recorded as a warning, and sibling results are always collected. Protocol
// misuse (a call targeting the wrong tier, or a role with no subordinate) is
// reported per call, not as a panic.
func (d *delegator) Dispatch(ctx context.Context, calls []Call) Aggregate {
	start := time.Now()
	results := make(chan settled, len(calls))

	var wg sync.WaitGroup
	for _, call := range calls {
		target := call.Task.TargetRole

		if target.Tier() != d.childTier {
			results <- settled{
				agentID:  string(target),
				taskType: call.Task.Type,
				required: call.Required,
				result: core.NewFailureResult(call.Task.ID,
					core.NewValidationError(d.ownerID, call.Task.ID,
						fmt.Sprintf("delegation must descend one tier: role %q is %s, want %s", target, target.Tier(), d.childTier)),
					start),
			}
			continue
		}

		sub, ok := d.pick(target)
		if !ok {
			results <- settled{
				agentID:  string(target),
				taskType: call.Task.Type,
				required: call.Required,
				result: core.NewFailureResult(call.Task.ID,
					core.NewValidationError(d.ownerID, call.Task.ID,
						fmt.Sprintf("no subordinate for role %q", target)),
					start),
			}
			continue
		}

		wg.Add(1)
		go func(call Call, sub Delegate) {
			defer wg.Done()
			results <- settled{
				agentID:  sub.AgentID(),
				taskType: call.Task.Type,
				required: call.Required,
				result:   sub.Submit(ctx, call.Task),
			}
		}(call, sub)
	}

	wg.Wait()
	close(results)

	agg := Aggregate{
		Outputs: make(map[string]map[string]any),
		Results: make(map[string]core.Result),
	}
	failures := 0
	for s := range results {
		// A single-member pool can settle two calls under the same agent id;
		// collisions are re-keyed by task type so neither result is lost.
		key := s.agentID
		if _, taken := agg.Results[key]; taken {
			key = fmt.Sprintf("%s#%s", s.agentID, s.taskType)
			for n := 2; ; n++ {
				if _, taken := agg.Results[key]; !taken {
					break
				}
				key = fmt.Sprintf("%s#%s#%d", s.agentID, s.taskType, n)
			}
		}
		agg.Results[key] = s.result
		if s.result.Succeeded() {
			agg.Outputs[key] = s.result.Output
			continue
		}
		failures++
		if s.required {
			agg.Failed = true
		}
		agg.Warnings = append(agg.Warnings, fmt.Sprintf("%s: %s", s.agentID, s.result.Err))
	}

	d.logger.Info("delegation round settled", "agent_id", d.ownerID,
		"calls", len(calls), "failures", failures, "duration", time.Since(start))
	return agg
}
