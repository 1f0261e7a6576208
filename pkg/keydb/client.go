package keydb

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Gylaii/keydb-client-lib/internal/logging"
	"github.com/Gylaii/keydb-client-lib/pkg/metrics"
)

// Handler processes a message. A returned error or a panic is logged and
// never propagated.
type Handler func(ctx context.Context, message string) error

// Option configures a QueueClient.
type Option func(*QueueClient)

// WithLogger sets the logger. Defaults to a zap production logger.
func WithLogger(logger *zap.SugaredLogger) Option {
	return func(c *QueueClient) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics sets the metrics sink. Nil disables metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *QueueClient) {
		c.metrics = m
	}
}

// QueueClient publishes and subscribes to channels and pushes to and pops
// from list-backed queues over one command connection and one pub/sub
// connection.
type QueueClient struct {
	client     *redis.Client
	pubsub     *redis.PubSub
	config     Config
	deadLetter *DeadLetter
	logger     *zap.SugaredLogger
	metrics    *metrics.Metrics

	// Lifecycle
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once

	// PUBLISH and RPUSH in call order
	outbox chan command

	// Subscriptions
	subs        []subscription
	dispatching bool
}

type subscription struct {
	channel string
	handler Handler
}

// New validates config and creates a QueueClient with its own connections.
// Connections are dialed lazily by the first command.
func New(config Config, opts ...Option) (*QueueClient, error) {
	config = config.WithDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return NewWithClient(redis.NewClient(config.redisOptions()), config, opts...), nil
}

// NewWithClient creates a QueueClient on top of an existing client.
// The QueueClient takes ownership: Shutdown closes client.
func NewWithClient(client *redis.Client, config Config, opts ...Option) *QueueClient {
	config = config.WithDefaults()
	ctx, cancel := context.WithCancel(context.Background())

	c := &QueueClient{
		client: client,
		config: config,
		ctx:    ctx,
		cancel: cancel,
		outbox: make(chan command, config.Store.SendBuffer),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logging.Default()
	}

	// No channels yet; Subscribe adds them.
	c.pubsub = client.Subscribe(ctx)
	c.deadLetter = newDeadLetter(client, config, c.logger, c.metrics)

	c.wg.Add(1)
	go c.runWriter()

	return c
}

// Config returns the resolved configuration.
func (c *QueueClient) Config() Config {
	return c.config
}

// DeadLetter returns the dead-letter list manager.
func (c *QueueClient) DeadLetter() *DeadLetter {
	return c.deadLetter
}

// Admin returns an Admin sharing the command connection.
func (c *QueueClient) Admin() *Admin {
	return &Admin{
		client: c.client,
		config: c.config,
		dlq:    c.deadLetter,
	}
}

// Ping checks the command connection.
func (c *QueueClient) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping %s: %w", c.config.Addr(), err)
	}
	return nil
}

// Shutdown flushes queued publishes and pushes, stops every loop and the
// dispatcher, waits for in-flight work (up to config.ShutdownTimeout), then
// closes both connections.
// Errors are logged. Calls after the first are no-ops.
func (c *QueueClient) Shutdown() {
	c.closeOnce.Do(c.shutdown)
}

func (c *QueueClient) shutdown() {
	c.mu.Lock()
	c.closed = true
	close(c.outbox)
	c.mu.Unlock()

	c.cancel()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(c.config.ShutdownTimeout):
		c.logger.Warnw("shutdown timeout exceeded, closing connections with work in flight",
			"timeout", c.config.ShutdownTimeout)
	}

	var errs []error
	if err := c.pubsub.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close pubsub connection: %w", err))
	}
	if err := c.client.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close connection: %w", err))
	}

	if err := errors.Join(errs...); err != nil {
		c.metrics.IncShutdownErrors()
		c.logger.Errorw("error closing connections", "error", err)
		return
	}

	c.logger.Infow("connections closed", "addr", c.config.Addr())
}

// track registers a background task. It reports false once Shutdown began.
func (c *QueueClient) track() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return false
	}
	c.wg.Add(1)
	return true
}

// invoke runs handler, converting a panic into ErrHandlerPanic.
func (c *QueueClient) invoke(ctx context.Context, source, message string, handler Handler) (err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrHandlerPanic, r)
		}
		c.metrics.RecordHandled(source, err, time.Since(start).Seconds())
	}()

	return handler(ctx, message)
}
