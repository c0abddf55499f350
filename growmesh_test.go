package growmesh

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/growmesh/growmesh/core"
	"github.com/growmesh/growmesh/internal/testutil"
	"github.com/growmesh/growmesh/platform"
	"github.com/growmesh/growmesh/provider"
)

func meshConfigs(t *testing.T) []core.Config {
	t.Helper()
	configs, err := testutil.HierarchyConfigs()
	require.NoError(t, err)
	return configs
}

func TestMeshRunCampaign(t *testing.T) {
	p := provider.NewMockProvider().WithResponse("blog post", "campaign article")
	analytics := platform.NewFakeAnalytics().SetMetrics("web", platform.Metrics{"visits": 99})

	mesh, err := New(meshConfigs(t),
		WithProvider(core.ProviderMock, p),
		WithPlatformClients(analytics, platform.NewFakeSocial(), platform.NewFakeEmail()),
	)
	require.NoError(t, err)
	defer mesh.Shutdown(context.Background())

	task := testutil.NewTaskBuilder("run_campaign", core.RoleCoordinator).
		Origin("external").
		Param("topic", "product launch").
		Param("content", "launch announcement").
		Priority(core.PriorityHigh).
		Build()
	result := mesh.Submit(context.Background(), task)

	require.True(t, result.Succeeded(), "campaign failed: %s", result.Err)
	assert.Contains(t, result.Output, "content_manager-1")
	assert.Contains(t, result.Output, "social_manager-1")
}

func TestMeshSubmitDirectlyToSpecialist(t *testing.T) {
	mesh, err := New(meshConfigs(t))
	require.NoError(t, err)
	defer mesh.Shutdown(context.Background())

	result := mesh.Submit(context.Background(),
		core.NewTask("generate_headline", core.RoleContentWriter, "external", map[string]any{"topic": "offsite"}))
	require.True(t, result.Succeeded())
	assert.NotEmpty(t, result.Output["text"])

	rec, ok := mesh.History().ByTask(result.TaskID)
	require.True(t, ok, "submissions are recorded")
	assert.True(t, rec.Result.Succeeded())
	assert.Equal(t, "external", rec.Task.OriginID)
}

func TestMeshSubmitUnknownRole(t *testing.T) {
	mesh, err := New(meshConfigs(t)[:1])
	require.NoError(t, err)
	defer mesh.Shutdown(context.Background())

	result := mesh.Submit(context.Background(),
		core.NewTask("write_blog_post", core.RoleContentWriter, "external", map[string]any{"topic": "x"}))
	require.False(t, result.Succeeded())
	assert.Equal(t, core.KindValidation, result.ErrKind)
	assert.Contains(t, result.Err, "no agent for role")
}

func TestMeshRequiresExactlyOneCoordinator(t *testing.T) {
	configs := meshConfigs(t)

	_, err := New(configs[1:])
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no coordinator")

	second, cfgErr := core.NewConfig(core.Config{
		AgentID: "coordinator-2", Role: core.RoleCoordinator,
		Provider: core.ProviderMock, MaxConcurrentTasks: 1,
	})
	require.NoError(t, cfgErr)
	_, err = New(append(configs, second))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "multiple coordinators")
}

func TestMeshRequiresRegisteredProvider(t *testing.T) {
	cfg, err := core.NewConfig(core.Config{
		AgentID: "coordinator-1", Role: core.RoleCoordinator,
		Provider: core.ProviderAnthropic, Model: "claude-sonnet-4-20250514",
		MaxConcurrentTasks: 1,
	})
	require.NoError(t, err)

	_, err = New([]core.Config{cfg})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no anthropic provider registered")
}

func TestMeshShutdownStopsAgents(t *testing.T) {
	mesh, err := New(meshConfigs(t))
	require.NoError(t, err)

	require.NoError(t, mesh.Shutdown(context.Background()))
	require.NoError(t, mesh.Shutdown(context.Background()), "shutdown is idempotent")

	result := mesh.Submit(context.Background(),
		core.NewTask("generate_headline", core.RoleContentWriter, "external", map[string]any{"topic": "x"}))
	require.False(t, result.Succeeded())
	assert.Equal(t, core.KindValidation, result.ErrKind)
}

func TestMeshAgentLookup(t *testing.T) {
	mesh, err := New(meshConfigs(t))
	require.NoError(t, err)
	defer mesh.Shutdown(context.Background())

	a, ok := mesh.Agent("content_writer-1")
	require.True(t, ok)
	assert.Equal(t, core.RoleContentWriter, a.Role())

	_, ok = mesh.Agent("nobody")
	assert.False(t, ok)

	require.NotNil(t, mesh.Coordinator())
	assert.Equal(t, core.RoleCoordinator, mesh.Coordinator().Role())
}
