package keydb

import (
	"github.com/redis/go-redis/v9"

	"github.com/Gylaii/keydb-client-lib/pkg/metrics"
)

// Publish sends message to channel without waiting for the result.
// Calls are sent in order. Failures are logged.
//
// Redis command: PUBLISH {namespace}:{channel} {message}
func (c *QueueClient) Publish(channel, message string) {
	key := ChannelKey(c.config.Namespace, channel)

	if !c.send(command{kind: kindPublish, key: key, message: message}) {
		c.logger.Warnw("publish dropped", "channel", key, "error", ErrClosed)
		return
	}
	c.logger.Debugw("publish queued", "channel", key)
}

// Subscribe registers handler for every message delivered on channel.
// Handler errors and panics are logged and do not unsubscribe.
// Registering several handlers on one channel invokes each of them.
// If the store is unreachable the failure is logged and the subscription
// takes effect once the pub/sub connection comes back.
//
// Redis command: SUBSCRIBE {namespace}:{channel}
func (c *QueueClient) Subscribe(channel string, handler Handler) {
	key := ChannelKey(c.config.Namespace, channel)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		c.logger.Warnw("subscribe dropped", "channel", key, "error", ErrClosed)
		return
	}

	c.subs = append(c.subs, subscription{channel: key, handler: handler})
	c.metrics.SetSubscriptions(len(c.subs))

	startDispatch := !c.dispatching
	if startDispatch {
		c.dispatching = true
		c.wg.Add(1)
	}
	c.mu.Unlock()

	// go-redis records the channel even when this fails and resubscribes
	// it on reconnect.
	if err := c.pubsub.Subscribe(c.ctx, key); err != nil {
		c.logger.Errorw("subscribe failed, will retry on reconnect", "channel", key, "error", err)
	} else {
		c.logger.Infow("subscribed", "channel", key)
	}

	// Channel drives reconnects, so the dispatcher starts regardless.
	if startDispatch {
		go c.dispatch(c.pubsub.Channel(redis.WithChannelSize(c.config.Subscriber.DispatchBuffer)))
	}
}

// Unsubscribe drops every handler registered for channel.
//
// Redis command: UNSUBSCRIBE {namespace}:{channel}
func (c *QueueClient) Unsubscribe(channel string) {
	key := ChannelKey(c.config.Namespace, channel)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		c.logger.Warnw("unsubscribe dropped", "channel", key, "error", ErrClosed)
		return
	}

	kept := c.subs[:0]
	for _, s := range c.subs {
		if s.channel != key {
			kept = append(kept, s)
		}
	}
	clear(c.subs[len(kept):])
	c.subs = kept
	c.metrics.SetSubscriptions(len(c.subs))
	c.mu.Unlock()

	if err := c.pubsub.Unsubscribe(c.ctx, key); err != nil {
		c.logger.Errorw("unsubscribe failed", "channel", key, "error", err)
		return
	}

	c.logger.Infow("unsubscribed", "channel", key)
}

// dispatch delivers messages from the pub/sub connection to matching
// handlers, one message at a time, until shutdown.
func (c *QueueClient) dispatch(ch <-chan *redis.Message) {
	defer c.wg.Done()

	for {
		select {
		case <-c.ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			c.deliver(msg)
		}
	}
}

func (c *QueueClient) deliver(msg *redis.Message) {
	c.mu.RLock()
	subs := make([]subscription, len(c.subs))
	copy(subs, c.subs)
	c.mu.RUnlock()

	for _, s := range subs {
		if s.channel != msg.Channel {
			continue
		}
		if err := c.invoke(c.ctx, metrics.SourceChannel, msg.Payload, s.handler); err != nil {
			c.logger.Errorw("channel handler failed", "channel", msg.Channel, "error", err)
		}
	}
}
