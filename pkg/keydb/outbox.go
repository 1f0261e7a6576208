package keydb

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// maxBatch caps how many queued commands share one pipeline round trip.
const maxBatch = 128

type commandKind int

const (
	kindPublish commandKind = iota
	kindEnqueue
)

type command struct {
	kind    commandKind
	key     string
	message string
}

// send queues cmd for the writer. It blocks while the outbox is full and
// reports false once Shutdown began.
func (c *QueueClient) send(cmd command) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return false
	}
	c.outbox <- cmd
	return true
}

// runWriter drains the outbox in order, pipelining whatever is already
// queued, until the outbox is closed and empty.
func (c *QueueClient) runWriter() {
	defer c.wg.Done()

	for cmd := range c.outbox {
		batch := append(make([]command, 0, maxBatch), cmd)
		open := true

	fill:
		for open && len(batch) < maxBatch {
			select {
			case next, ok := <-c.outbox:
				if !ok {
					open = false
					break fill
				}
				batch = append(batch, next)
			default:
				break fill
			}
		}

		c.flush(batch)
		if !open {
			return
		}
	}
}

// flush sends batch in one pipeline. It runs detached from shutdown so that
// commands accepted before Shutdown still reach the store.
func (c *QueueClient) flush(batch []command) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.ctx),
		c.config.Store.WriteTimeout+c.config.Store.ReadTimeout)
	defer cancel()

	pipe := c.client.Pipeline()
	cmds := make([]*redis.IntCmd, len(batch))
	for i, cmd := range batch {
		switch cmd.kind {
		case kindPublish:
			cmds[i] = pipe.Publish(ctx, cmd.key, cmd.message)
		case kindEnqueue:
			cmds[i] = pipe.RPush(ctx, cmd.key, cmd.message)
		}
	}

	// Per-command errors are inspected below.
	_, _ = pipe.Exec(ctx)

	for i, cmd := range batch {
		err := cmds[i].Err()
		switch cmd.kind {
		case kindPublish:
			c.metrics.RecordPublish(err)
			if err != nil {
				c.logger.Errorw("publish failed", "channel", cmd.key, "error", err)
			}
		case kindEnqueue:
			c.metrics.RecordEnqueue(err)
			if err != nil {
				c.logger.Errorw("enqueue failed", "queue", cmd.key, "error", err)
			}
		}
	}
}
