package keydb

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Gylaii/keydb-client-lib/internal/logging"
)

// Admin provides queue inspection and dead-letter management.
type Admin struct {
	client *redis.Client
	config Config
	dlq    *DeadLetter
}

// NewAdmin creates an Admin on top of client. The caller keeps ownership of
// client.
func NewAdmin(client *redis.Client, config Config, logger *zap.SugaredLogger) *Admin {
	if logger == nil {
		logger = logging.Default()
	}
	return &Admin{
		client: client,
		config: config,
		dlq:    newDeadLetter(client, config, logger, nil),
	}
}

// QueueLength returns the number of messages waiting in queue.
// Uses: LLEN {queue}
func (a *Admin) QueueLength(ctx context.Context, queue string) (int64, error) {
	return a.client.LLen(ctx, QueueKey(a.config.Namespace, queue)).Result()
}

// QueuePeek returns up to count messages from the head of queue (next to be
// popped first) without removing them.
// Uses: LRANGE {queue} 0 {count-1}
func (a *Admin) QueuePeek(ctx context.Context, queue string, count int64) ([]string, error) {
	if count <= 0 {
		return []string{}, nil
	}
	return a.client.LRange(ctx, QueueKey(a.config.Namespace, queue), 0, count-1).Result()
}

// QueuePurge deletes queue and returns how many messages it held.
func (a *Admin) QueuePurge(ctx context.Context, queue string) (int64, error) {
	return purgeList(ctx, a.client, QueueKey(a.config.Namespace, queue))
}

// ChannelSubscribers returns the subscriber count of each channel, keyed by
// the channel name as given (without namespace).
// Uses: PUBSUB NUMSUB {channel...}
func (a *Admin) ChannelSubscribers(ctx context.Context, channels ...string) (map[string]int64, error) {
	if len(channels) == 0 {
		return map[string]int64{}, nil
	}

	keys := make([]string, len(channels))
	for i, ch := range channels {
		keys[i] = ChannelKey(a.config.Namespace, ch)
	}

	counts, err := a.client.PubSubNumSub(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("pubsub numsub: %w", err)
	}

	result := make(map[string]int64, len(channels))
	for i, ch := range channels {
		result[ch] = counts[keys[i]]
	}
	return result, nil
}

// DLQSize delegates to DeadLetter.Size.
func (a *Admin) DLQSize(ctx context.Context, queue string) (int64, error) {
	return a.dlq.Size(ctx, queue)
}

// DLQPeek delegates to DeadLetter.Peek.
func (a *Admin) DLQPeek(ctx context.Context, queue string, count int64) ([]string, error) {
	return a.dlq.Peek(ctx, queue, count)
}

// DLQReplay delegates to DeadLetter.Replay.
func (a *Admin) DLQReplay(ctx context.Context, queue string, count int64) (int, error) {
	return a.dlq.Replay(ctx, queue, count)
}

// DLQPurge delegates to DeadLetter.Purge.
func (a *Admin) DLQPurge(ctx context.Context, queue string) (int64, error) {
	return a.dlq.Purge(ctx, queue)
}
