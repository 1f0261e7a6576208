package keydb

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/Gylaii/keydb-client-lib/pkg/metrics"
)

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Queue.BlockTimeout = 500 * time.Millisecond

	qc, err := New(cfg)
	require.Error(t, err)
	assert.Nil(t, qc)
	assert.Contains(t, err.Error(), "block_timeout")
}

func TestQueueClient_Ping(t *testing.T) {
	qc, _ := newTestClient(t)
	require.NoError(t, qc.Ping(context.Background()))
}

func TestQueueClient_ShutdownIsIdempotent(t *testing.T) {
	qc, _ := newTestClient(t)

	qc.Subscribe("events", func(ctx context.Context, msg string) error { return nil })
	qc.DequeueLoop(context.Background(), "jobs", func(ctx context.Context, msg string) error { return nil })

	assert.NotPanics(t, func() {
		qc.Shutdown()
		qc.Shutdown()
	})
}

func TestQueueClient_ShutdownFlushesQueuedCommands(t *testing.T) {
	mr := miniredis.RunT(t)
	qc, err := New(newTestConfig(t, mr), WithLogger(zaptest.NewLogger(t).Sugar()))
	require.NoError(t, err)

	for i := 0; i < 100; i++ {
		qc.Enqueue("jobs", "x")
	}
	qc.Shutdown()

	n, err := mr.List("jobs")
	require.NoError(t, err)
	assert.Len(t, n, 100)
}

func TestQueueClient_ShutdownStopsAllGoroutines(t *testing.T) {
	mr := miniredis.RunT(t)
	ignore := goleak.IgnoreCurrent()

	qc, err := New(newTestConfig(t, mr), WithLogger(zaptest.NewLogger(t).Sugar()))
	require.NoError(t, err)

	qc.Subscribe("events", func(ctx context.Context, msg string) error { return nil })
	qc.DequeueLoop(context.Background(), "jobs", func(ctx context.Context, msg string) error { return nil })
	waitSubscribed(t, newRawClient(t, mr), "events")

	qc.Publish("events", "x")
	qc.Enqueue("jobs", "x")
	qc.Shutdown()

	goleak.VerifyNone(t, ignore,
		// Server side of the connections just closed.
		goleak.IgnoreAnyFunction("github.com/alicebob/miniredis/v2/server.(*Server).servePeer"),
	)
}

func TestQueueClient_OperationsAfterShutdownDoNotPanic(t *testing.T) {
	qc, mr := newTestClient(t)
	qc.Shutdown()

	assert.NotPanics(t, func() {
		qc.Publish("events", "x")
		qc.Enqueue("jobs", "x")
		qc.Subscribe("events", func(ctx context.Context, msg string) error { return nil })
		qc.Unsubscribe("events")
		qc.DequeueLoop(context.Background(), "jobs", func(ctx context.Context, msg string) error { return nil })
	})

	assert.False(t, mr.Exists("jobs"))
}

func TestQueueClient_UnreachableStoreDoesNotPanic(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Store.Host = "127.0.0.1"
	cfg.Store.Port = 1 // nothing listens here
	cfg.Store.ReadTimeout = 100 * time.Millisecond
	cfg.Store.WriteTimeout = 100 * time.Millisecond
	cfg.Queue.BlockTimeout = time.Second
	cfg.Queue.RetryDelay = 50 * time.Millisecond
	cfg.ShutdownTimeout = 5 * time.Second

	qc, err := New(cfg, WithLogger(zaptest.NewLogger(t).Sugar()))
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		qc.Publish("events", "x")
		qc.Enqueue("jobs", "x")
		qc.Subscribe("events", func(ctx context.Context, msg string) error { return nil })
		qc.DequeueLoop(context.Background(), "jobs", func(ctx context.Context, msg string) error { return nil })
		time.Sleep(100 * time.Millisecond)
		qc.Shutdown()
	})

	assert.Error(t, qc.Ping(context.Background()))
}

func TestQueueClient_RecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	qc, err := New(newTestConfig(t, mr),
		WithLogger(zaptest.NewLogger(t).Sugar()),
		WithMetrics(m),
	)
	require.NoError(t, err)
	t.Cleanup(qc.Shutdown)

	qc.Enqueue("jobs", "a")
	qc.Enqueue("jobs", "b")
	qc.Publish("events", "c")

	expected := `
# HELP keydb_queue_enqueued_total Total RPUSH calls by status
# TYPE keydb_queue_enqueued_total counter
keydb_queue_enqueued_total{status="success"} 2
# HELP keydb_pubsub_published_total Total PUBLISH calls by status
# TYPE keydb_pubsub_published_total counter
keydb_pubsub_published_total{status="success"} 1
`
	require.Eventually(t, func() bool {
		return testutil.GatherAndCompare(reg, strings.NewReader(expected),
			"keydb_queue_enqueued_total", "keydb_pubsub_published_total") == nil
	}, 2*time.Second, 10*time.Millisecond)

	handled := make(chan struct{}, 2)
	qc.DequeueLoop(context.Background(), "jobs", func(ctx context.Context, msg string) error {
		handled <- struct{}{}
		return nil
	})
	for i := 0; i < 2; i++ {
		select {
		case <-handled:
		case <-time.After(2 * time.Second):
			t.Fatal("queue handler not called")
		}
	}

	expected = `
# HELP keydb_queue_active_loops Number of running dequeue loops
# TYPE keydb_queue_active_loops gauge
keydb_queue_active_loops 1
`
	require.Eventually(t, func() bool {
		return testutil.GatherAndCompare(reg, strings.NewReader(expected), "keydb_queue_active_loops") == nil
	}, 2*time.Second, 10*time.Millisecond)
}
