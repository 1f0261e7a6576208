package keydb

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Gylaii/keydb-client-lib/pkg/metrics"
)

// Enqueue appends message to the tail of queue without waiting for the
// result. Calls are sent in order, so a single producer's messages keep
// their order in the list. Failures are logged.
//
// Redis command: RPUSH {namespace}:{queue} {message}
func (c *QueueClient) Enqueue(queue, message string) {
	key := QueueKey(c.config.Namespace, queue)

	if !c.send(command{kind: kindEnqueue, key: key, message: message}) {
		c.logger.Warnw("enqueue dropped", "queue", key, "error", ErrClosed)
		return
	}
	c.logger.Debugw("enqueue queued", "queue", key)
}

// DequeueLoop starts a goroutine that pops messages from the head of queue
// and passes each to handler, one at a time:
//
//   - message: call handler, then pop again
//   - timeout (config.Queue.BlockTimeout): pop again
//   - store error: log, wait config.Queue.RetryDelay, pop again
//
// A handler error or panic is logged and, with the dead-letter list enabled,
// the message is appended to "{queue}:dlq". The loop ends as soon as ctx is
// cancelled or the client shuts down: a pending pop is aborted, and a message
// popped during cancellation is pushed back to the head of queue instead of
// being handled.
//
// Redis command: BLPOP {namespace}:{queue} {timeout}
func (c *QueueClient) DequeueLoop(ctx context.Context, queue string, handler Handler) {
	key := QueueKey(c.config.Namespace, queue)

	if !c.track() {
		c.logger.Warnw("dequeue loop not started", "queue", key, "error", ErrClosed)
		return
	}

	go func() {
		defer c.wg.Done()
		c.runDequeueLoop(ctx, queue, key, handler)
	}()
}

func (c *QueueClient) runDequeueLoop(ctx context.Context, queue, key string, handler Handler) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(c.ctx, cancel)
	defer stop()

	c.metrics.IncActiveLoops()
	defer c.metrics.DecActiveLoops()

	c.logger.Infow("dequeue loop started", "queue", key)
	defer c.logger.Infow("dequeue loop stopped", "queue", key)

	pop := c.newPopConn()
	defer func() {
		if err := pop.close(); err != nil {
			c.logger.Debugw("closing pop connection", "queue", key, "error", err)
		}
	}()
	// Cancellation drops the socket so a pending BLPOP returns at once.
	stopAbort := context.AfterFunc(ctx, pop.abort)
	defer stopAbort()

	bo := newRetryBackOff(c.config.Queue)

	for ctx.Err() == nil {
		result, err := pop.client.BLPop(ctx, c.config.Queue.BlockTimeout, key).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				// Timeout, pop again
				continue
			}
			if ctx.Err() != nil {
				return
			}

			c.metrics.IncDequeueErrors()
			delay := nextDelay(bo, c.config.Queue.RetryDelay)
			c.logger.Errorw("blocking pop failed", "queue", key, "retry_in", delay, "error", err)

			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
			continue
		}

		bo.Reset()

		// BLPOP replies [key, value]
		if len(result) != 2 {
			c.logger.Warnw("unexpected blocking pop reply", "queue", key, "reply", result)
			continue
		}

		c.handleDequeued(ctx, queue, key, result[1], handler)
	}
}

func (c *QueueClient) handleDequeued(ctx context.Context, queue, key, message string, handler Handler) {
	// Popped as the loop was stopping; hand it back to the next consumer.
	if ctx.Err() != nil {
		c.requeue(ctx, key, message)
		return
	}

	err := c.invoke(ctx, metrics.SourceQueue, message, handler)
	if err == nil {
		return
	}

	c.logger.Errorw("queue handler failed", "queue", key, "error", err)

	if !c.config.DeadLetter.Enabled {
		return
	}

	// Detached from ctx so a message popped just before shutdown is still kept.
	dlqCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.config.Store.WriteTimeout)
	defer cancel()

	if err := c.deadLetter.Move(dlqCtx, queue, message); err != nil {
		c.logger.Errorw("dead-letter append failed", "queue", key, "error", err)
	}
}

// requeue puts message back at the head of the list it was popped from.
//
// Redis command: LPUSH {namespace}:{queue} {message}
func (c *QueueClient) requeue(ctx context.Context, key, message string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.config.Store.WriteTimeout)
	defer cancel()

	if err := c.client.LPush(ctx, key, message).Err(); err != nil {
		c.logger.Errorw("requeue after cancel failed, message lost", "queue", key, "error", err)
		return
	}
	c.logger.Infow("message requeued after cancel", "queue", key)
}
