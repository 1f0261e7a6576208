package keydb

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Gylaii/keydb-client-lib/pkg/metrics"
)

// DeadLetter manages the "{queue}:dlq" lists that collect messages whose
// dequeue handler failed.
type DeadLetter struct {
	client  *redis.Client
	config  Config
	logger  *zap.SugaredLogger
	metrics *metrics.Metrics
}

func newDeadLetter(client *redis.Client, config Config, logger *zap.SugaredLogger, m *metrics.Metrics) *DeadLetter {
	return &DeadLetter{
		client:  client,
		config:  config,
		logger:  logger,
		metrics: m,
	}
}

// Move appends message to the dead-letter list of queue, trimming the list
// to the newest config.DeadLetter.MaxLen entries when MaxLen > 0.
//
// Redis commands: RPUSH {dlq} {message} [LTRIM {dlq} -{maxLen} -1]
func (d *DeadLetter) Move(ctx context.Context, queue, message string) error {
	dlqKey := DLQKey(d.config.Namespace, queue)

	_, err := d.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, dlqKey, message)
		if maxLen := d.config.DeadLetter.MaxLen; maxLen > 0 {
			pipe.LTrim(ctx, dlqKey, -maxLen, -1)
		}
		return nil
	})
	d.metrics.RecordDeadLetter(err)
	if err != nil {
		return fmt.Errorf("move to %s: %w", dlqKey, err)
	}

	d.logger.Warnw("message moved to dead-letter list", "dlq", dlqKey)
	return nil
}

// Peek returns up to count entries from the head of the dead-letter list
// (oldest first) without removing them.
func (d *DeadLetter) Peek(ctx context.Context, queue string, count int64) ([]string, error) {
	if count <= 0 {
		return []string{}, nil
	}
	return d.client.LRange(ctx, DLQKey(d.config.Namespace, queue), 0, count-1).Result()
}

// Replay moves up to count entries, oldest first, from the dead-letter list
// back to the tail of queue. Each move is atomic (LMOVE).
// Returns the number of entries moved.
func (d *DeadLetter) Replay(ctx context.Context, queue string, count int64) (int, error) {
	dlqKey := DLQKey(d.config.Namespace, queue)
	queueKey := QueueKey(d.config.Namespace, queue)

	replayed := 0
	for i := int64(0); i < count; i++ {
		err := d.client.LMove(ctx, dlqKey, queueKey, "LEFT", "RIGHT").Err()
		if errors.Is(err, redis.Nil) {
			break
		}
		if err != nil {
			return replayed, fmt.Errorf("replay from %s: %w", dlqKey, err)
		}
		replayed++
	}

	if replayed > 0 {
		d.logger.Infow("replayed dead-letter entries", "dlq", dlqKey, "queue", queueKey, "count", replayed)
	}

	return replayed, nil
}

// Purge removes the dead-letter list. Returns the number of entries removed
// (0 if the list didn't exist).
func (d *DeadLetter) Purge(ctx context.Context, queue string) (int64, error) {
	return purgeList(ctx, d.client, DLQKey(d.config.Namespace, queue))
}

// Size returns the current number of entries in the dead-letter list.
func (d *DeadLetter) Size(ctx context.Context, queue string) (int64, error) {
	return d.client.LLen(ctx, DLQKey(d.config.Namespace, queue)).Result()
}

// purgeList reads LLEN and deletes key in one transaction.
func purgeList(ctx context.Context, client *redis.Client, key string) (int64, error) {
	var length *redis.IntCmd
	_, err := client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		length = pipe.LLen(ctx, key)
		pipe.Del(ctx, key)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("purge %s: %w", key, err)
	}
	return length.Val(), nil
}
