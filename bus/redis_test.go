package bus

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/growmesh/growmesh/core"
)

func testRedisBus(t *testing.T, optFns ...func(o *RedisBusOptions)) (*RedisBus, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	b, err := NewRedisBus(context.Background(), srv.Addr(), optFns...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	return b, srv
}

func TestRedisBus_SendReceive(t *testing.T) {
	b, _ := testRedisBus(t)
	ctx := context.Background()

	msg := core.NewRequestMessage("coord-1", "mgr-1", map[string]any{"op": "report"})
	require.NoError(t, b.Send(ctx, msg))

	got, err := b.Receive(ctx, "mgr-1", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, msg.ID, got[0].ID)
	assert.Equal(t, core.KindRequest, got[0].Kind)
	assert.Equal(t, "report", got[0].Payload["op"])

	got, err = b.Receive(ctx, "mgr-1", 10)
	require.NoError(t, err)
	assert.Empty(t, got, "messages are consumed at most once")
}

func TestRedisBus_DuplicateIDsIgnored(t *testing.T) {
	b, _ := testRedisBus(t)
	ctx := context.Background()

	msg := core.NewNotificationMessage("coord-1", "mgr-1", map[string]any{"n": 1})
	require.NoError(t, b.Send(ctx, msg))
	require.NoError(t, b.Send(ctx, msg))

	got, err := b.Receive(ctx, "mgr-1", 10)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestRedisBus_FailedPushDoesNotPoisonRetry(t *testing.T) {
	b, srv := testRedisBus(t)
	ctx := context.Background()

	// A string value under the inbox key makes RPUSH fail with WRONGTYPE
	// after the id has already entered the seen set.
	require.NoError(t, srv.Set(b.inboxKey("mgr-1"), "blocker"))

	msg := core.NewRequestMessage("coord-1", "mgr-1", map[string]any{"op": "report"})
	err := b.Send(ctx, msg)
	require.Error(t, err)
	assert.Equal(t, core.KindCommunication, core.ErrorKind(err))

	// Once the transport recovers, a retry of the identical message must be
	// delivered, not dropped as a duplicate of the failed attempt.
	srv.Del(b.inboxKey("mgr-1"))
	require.NoError(t, b.Send(ctx, msg))

	got, err := b.Receive(ctx, "mgr-1", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, msg.ID, got[0].ID)
}

func TestRedisBus_SerializationFailureLeavesNoTrace(t *testing.T) {
	b, _ := testRedisBus(t)
	ctx := context.Background()

	msg := core.NewRequestMessage("coord-1", "mgr-1", map[string]any{"bad": func() {}})
	err := b.Send(ctx, msg)
	require.Error(t, err)
	assert.Equal(t, core.KindCommunication, core.ErrorKind(err))

	msg.Payload = map[string]any{"op": "report"}
	require.NoError(t, b.Send(ctx, msg), "the failed attempt must not mark the id as seen")

	got, err := b.Receive(ctx, "mgr-1", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, msg.ID, got[0].ID)
}

func TestRedisBus_OverflowEvictsOldest(t *testing.T) {
	b, _ := testRedisBus(t, func(o *RedisBusOptions) { o.InboxCapacity = 2 })
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, b.Send(ctx, core.NewNotificationMessage("s", "r", map[string]any{"i": i})))
	}

	got, err := b.Receive(ctx, "r", 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, float64(1), got[0].Payload["i"])
	assert.Equal(t, float64(2), got[1].Payload["i"])
}

func TestRedisBus_MissingRecipient(t *testing.T) {
	b, _ := testRedisBus(t)

	msg := core.NewNotificationMessage("s", "", nil)
	err := b.Send(context.Background(), msg)
	require.Error(t, err)
	assert.Equal(t, core.KindCommunication, core.ErrorKind(err))
}
