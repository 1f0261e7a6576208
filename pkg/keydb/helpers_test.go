package keydb

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// newTestConfig returns a config pointing at mr with short timeouts.
func newTestConfig(t *testing.T, mr *miniredis.Miniredis) Config {
	t.Helper()

	host, portStr, err := net.SplitHostPort(mr.Addr())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.Store.Host = host
	cfg.Store.Port = port
	cfg.Queue.BlockTimeout = time.Second
	cfg.Queue.RetryDelay = 50 * time.Millisecond
	cfg.ShutdownTimeout = 5 * time.Second
	return cfg
}

// newTestClient starts a miniredis server and a QueueClient connected to it.
// Both are torn down at test cleanup.
func newTestClient(t *testing.T, mutate ...func(*Config)) (*QueueClient, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	cfg := newTestConfig(t, mr)
	for _, m := range mutate {
		m(&cfg)
	}

	qc, err := New(cfg, WithLogger(zaptest.NewLogger(t).Sugar()))
	require.NoError(t, err)
	t.Cleanup(qc.Shutdown)

	return qc, mr
}

// newRawClient returns a plain go-redis client for assertions.
func newRawClient(t *testing.T, mr *miniredis.Miniredis) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

// waitSubscribed blocks until channel has at least one subscriber.
func waitSubscribed(t *testing.T, client *redis.Client, channel string) {
	t.Helper()

	require.Eventually(t, func() bool {
		counts, err := client.PubSubNumSub(context.Background(), channel).Result()
		return err == nil && counts[channel] > 0
	}, 2*time.Second, 10*time.Millisecond, "channel %s never got a subscriber", channel)
}
