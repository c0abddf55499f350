package agent

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/growmesh/growmesh/core"
)

// fakeDelegate is a scripted subordinate for delegation tests. A round can
// fan two calls onto the same delegate concurrently, so the call counter is
// guarded.
type fakeDelegate struct {
	id     string
	role   core.Role
	output map[string]any
	err    error
	delay  time.Duration

	mu    sync.Mutex
	calls int
}

func (f *fakeDelegate) AgentID() string { return f.id }

func (f *fakeDelegate) Role() core.Role { return f.role }

func (f *fakeDelegate) Submit(_ context.Context, task core.Task) core.Result {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	started := time.Now().UTC()
	if f.err != nil {
		return core.NewFailureResult(task.ID, f.err, started)
	}
	return core.NewSuccessResult(task.ID, f.output, started)
}

func newManagerDelegator(t *testing.T, subs ...Delegate) *delegator {
	t.Helper()
	d, err := newDelegator("mgr-1", core.TierSpecialist, subs, nil)
	require.NoError(t, err)
	return d
}

func TestDispatchOptionalFailureDegradesToWarning(t *testing.T) {
	writer := &fakeDelegate{id: "writer-1", role: core.RoleContentWriter, output: map[string]any{"text": "draft"}}
	seo := &fakeDelegate{id: "seo-1", role: core.RoleSEOSpecialist, err: errors.New("quota exhausted")}
	email := &fakeDelegate{id: "email-1", role: core.RoleEmailSpecialist, output: map[string]any{"campaign_id": "c-9"}}
	d := newManagerDelegator(t, writer, seo, email)

	agg := d.Dispatch(context.Background(), []Call{
		{Task: core.NewTask("write_blog_post", core.RoleContentWriter, "mgr-1", nil), Required: true},
		{Task: core.NewTask("analyze_keywords", core.RoleSEOSpecialist, "mgr-1", nil), Required: false},
		{Task: core.NewTask("send_campaign", core.RoleEmailSpecialist, "mgr-1", nil), Required: true},
	})

	assert.False(t, agg.Failed, "optional failure must not fail the round")
	assert.Len(t, agg.Results, 3, "every call settles before aggregation")
	assert.Len(t, agg.Outputs, 2)
	require.Len(t, agg.Warnings, 1)
	assert.Contains(t, agg.Warnings[0], "seo-1")
	assert.Contains(t, agg.Warnings[0], "quota exhausted")

	out := agg.Output()
	assert.Equal(t, map[string]any{"text": "draft"}, out["writer-1"])
	assert.Equal(t, map[string]any{"campaign_id": "c-9"}, out["email-1"])
	assert.NotEmpty(t, out["warnings"])
}

func TestDispatchRequiredFailureFailsRound(t *testing.T) {
	writer := &fakeDelegate{id: "writer-1", role: core.RoleContentWriter, err: errors.New("provider down")}
	seo := &fakeDelegate{id: "seo-1", role: core.RoleSEOSpecialist, output: map[string]any{"keywords": []string{"a"}}}
	d := newManagerDelegator(t, writer, seo)

	agg := d.Dispatch(context.Background(), []Call{
		{Task: core.NewTask("write_blog_post", core.RoleContentWriter, "mgr-1", nil), Required: true},
		{Task: core.NewTask("analyze_keywords", core.RoleSEOSpecialist, "mgr-1", nil), Required: false},
	})

	assert.True(t, agg.Failed)
	assert.Len(t, agg.Outputs, 1, "sibling results are still collected")
	assert.Contains(t, agg.Results, "seo-1")
	require.Len(t, agg.Warnings, 1)
	assert.Contains(t, agg.Warnings[0], "writer-1")
}

func TestDispatchSiblingsRunDespiteSlowFailure(t *testing.T) {
	slow := &fakeDelegate{id: "writer-1", role: core.RoleContentWriter, err: errors.New("slow failure"), delay: 30 * time.Millisecond}
	fast := &fakeDelegate{id: "seo-1", role: core.RoleSEOSpecialist, output: map[string]any{}}
	d := newManagerDelegator(t, slow, fast)

	agg := d.Dispatch(context.Background(), []Call{
		{Task: core.NewTask("write_blog_post", core.RoleContentWriter, "mgr-1", nil), Required: false},
		{Task: core.NewTask("analyze_keywords", core.RoleSEOSpecialist, "mgr-1", nil), Required: true},
	})

	assert.False(t, agg.Failed)
	assert.Equal(t, 1, slow.calls)
	assert.Equal(t, 1, fast.calls)
	assert.Len(t, agg.Results, 2)
}

func TestDispatchRejectsWrongTier(t *testing.T) {
	writer := &fakeDelegate{id: "writer-1", role: core.RoleContentWriter, output: map[string]any{}}
	d := newManagerDelegator(t, writer)

	agg := d.Dispatch(context.Background(), []Call{
		{Task: core.NewTask("generate_report", core.RoleAnalyticsManager, "mgr-1", nil), Required: true},
	})

	assert.True(t, agg.Failed)
	result := agg.Results[string(core.RoleAnalyticsManager)]
	assert.Equal(t, core.KindValidation, result.ErrKind)
	assert.Contains(t, result.Err, "one tier")
	assert.Zero(t, writer.calls)
}

func TestDispatchNoSubordinateForRole(t *testing.T) {
	writer := &fakeDelegate{id: "writer-1", role: core.RoleContentWriter, output: map[string]any{}}
	d := newManagerDelegator(t, writer)

	agg := d.Dispatch(context.Background(), []Call{
		{Task: core.NewTask("analyze_keywords", core.RoleSEOSpecialist, "mgr-1", nil), Required: false},
	})

	assert.False(t, agg.Failed)
	result := agg.Results[string(core.RoleSEOSpecialist)]
	assert.Equal(t, core.KindValidation, result.ErrKind)
	assert.Contains(t, result.Err, "no subordinate")
}

func TestDispatchRoundRobinAcrossPool(t *testing.T) {
	a := &fakeDelegate{id: "writer-a", role: core.RoleContentWriter, output: map[string]any{}}
	b := &fakeDelegate{id: "writer-b", role: core.RoleContentWriter, output: map[string]any{}}
	d := newManagerDelegator(t, a, b)

	for i := 0; i < 4; i++ {
		d.Dispatch(context.Background(), []Call{
			{Task: core.NewTask("write_blog_post", core.RoleContentWriter, "mgr-1", nil), Required: true},
		})
	}

	assert.Equal(t, 2, a.calls)
	assert.Equal(t, 2, b.calls)
}

func TestDispatchTwoCallsSameDelegateKeepsBothResults(t *testing.T) {
	reporter := &fakeDelegate{id: "reporter-1", role: core.RoleAnalyticsReporter, output: map[string]any{"metrics": "ok"}}
	d := newManagerDelegator(t, reporter)

	agg := d.Dispatch(context.Background(), []Call{
		{Task: core.NewTask("generate_report", core.RoleAnalyticsReporter, "mgr-1", nil), Required: true},
		{Task: core.NewTask("trend_analysis", core.RoleAnalyticsReporter, "mgr-1", nil), Required: false},
	})

	assert.False(t, agg.Failed)
	assert.Equal(t, 2, reporter.calls)
	require.Len(t, agg.Results, 2, "a single-member pool must not collapse two calls into one entry")
	require.Len(t, agg.Outputs, 2)
	assert.Contains(t, agg.Results, "reporter-1")

	var rekeyed string
	for key := range agg.Results {
		if key != "reporter-1" {
			rekeyed = key
		}
	}
	assert.True(t, strings.HasPrefix(rekeyed, "reporter-1#"), "colliding entry is re-keyed, got %q", rekeyed)
}

func TestNewDelegatorRejectsWrongTierSubordinate(t *testing.T) {
	mgr := &fakeDelegate{id: "mgr-2", role: core.RoleContentManager}
	_, err := newDelegator("mgr-1", core.TierSpecialist, []Delegate{mgr}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tier")
}

func TestNewManagerRequiresManagerRole(t *testing.T) {
	cfg := testConfig(t, core.RoleContentWriter)
	_, err := NewManager(cfg, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a manager role")
}

func TestNewCoordinatorRequiresCoordinatorRole(t *testing.T) {
	cfg := testConfig(t, core.RoleContentManager)
	_, err := NewCoordinator(cfg, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "coordinator role")
}

func TestNewCoordinatorRejectsSpecialistSubordinates(t *testing.T) {
	cfg := testConfig(t, core.RoleCoordinator)
	writer := &fakeDelegate{id: "writer-1", role: core.RoleContentWriter}
	_, err := NewCoordinator(cfg, []Delegate{writer}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tier")
}
