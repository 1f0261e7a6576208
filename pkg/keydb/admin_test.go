package keydb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestAdmin_QueueOperations(t *testing.T) {
	qc, mr := newTestClient(t, func(c *Config) { c.Namespace = "app" })
	raw := newRawClient(t, mr)
	ctx := context.Background()
	admin := qc.Admin()

	n, err := admin.QueueLength(ctx, "jobs")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	require.NoError(t, raw.RPush(ctx, "app:jobs", "a", "b", "c").Err())

	n, err = admin.QueueLength(ctx, "jobs")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	head, err := admin.QueuePeek(ctx, "jobs", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, head)

	purged, err := admin.QueuePurge(ctx, "jobs")
	require.NoError(t, err)
	assert.Equal(t, int64(3), purged)
	assert.False(t, mr.Exists("app:jobs"))
}

func TestAdmin_ChannelSubscribers(t *testing.T) {
	qc, mr := newTestClient(t)
	raw := newRawClient(t, mr)
	ctx := context.Background()

	qc.Subscribe("events", func(ctx context.Context, msg string) error { return nil })
	waitSubscribed(t, raw, "events")

	counts, err := qc.Admin().ChannelSubscribers(ctx, "events", "quiet")
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"events": 1, "quiet": 0}, counts)

	empty, err := qc.Admin().ChannelSubscribers(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestAdmin_DeadLetterDelegation(t *testing.T) {
	_, mr := newTestClient(t)
	raw := newRawClient(t, mr)
	ctx := context.Background()

	admin := NewAdmin(raw, newTestConfig(t, mr), zaptest.NewLogger(t).Sugar())
	require.NoError(t, raw.RPush(ctx, "jobs:dlq", "x", "y").Err())

	size, err := admin.DLQSize(ctx, "jobs")
	require.NoError(t, err)
	assert.Equal(t, int64(2), size)

	entries, err := admin.DLQPeek(ctx, "jobs", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, entries)

	replayed, err := admin.DLQReplay(ctx, "jobs", 1)
	require.NoError(t, err)
	assert.Equal(t, 1, replayed)
	assert.Equal(t, []string{"x"}, raw.LRange(ctx, "jobs", 0, -1).Val())

	purged, err := admin.DLQPurge(ctx, "jobs")
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)
}
