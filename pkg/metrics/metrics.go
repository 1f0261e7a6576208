package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	Namespace = "keydb"

	// Status label values for success/error metrics
	StatusSuccess = "success"
	StatusError   = "error"

	// Source label values for handler metrics
	SourceChannel = "channel"
	SourceQueue   = "queue"

	Queue      = "queue"
	PubSub     = "pubsub"
	DeadLetter = "dead_letter"
)

// Labels holds constant labels applied to all metrics.
type Labels struct {
	Environment string // Deployment environment (e.g., "production", "staging")
	Instance    string // Process or pod identifier
}

// toPrometheusLabels converts Labels to prometheus.Labels map.
// Only non-empty labels are included to avoid empty label values.
func (l Labels) toPrometheusLabels() prometheus.Labels {
	labels := prometheus.Labels{}
	if l.Environment != "" {
		labels["environment"] = l.Environment
	}
	if l.Instance != "" {
		labels["instance_name"] = l.Instance
	}
	return labels
}

type Metrics struct {
	// Pub/sub
	published     *prometheus.CounterVec
	subscriptions prometheus.Gauge

	// Queues
	enqueued      *prometheus.CounterVec
	dequeueErrors prometheus.Counter
	activeLoops   prometheus.Gauge

	// Handlers
	handled         *prometheus.CounterVec   // by source, status
	handlerDuration *prometheus.HistogramVec // by source

	// Dead-letter list
	deadLettered *prometheus.CounterVec // by status

	// Teardown
	shutdownErrors prometheus.Counter
}

// New creates a new Metrics instance and registers all metrics with the provided registerer.
func New(reg prometheus.Registerer) (*Metrics, error) {
	return NewWithLabels(reg, Labels{})
}

// NewWithLabels creates a new Metrics instance with constant labels applied to all metrics.
func NewWithLabels(reg prometheus.Registerer, labels Labels) (*Metrics, error) {
	promLabels := labels.toPrometheusLabels()
	if len(promLabels) > 0 {
		reg = prometheus.WrapRegistererWith(promLabels, reg)
	}

	return newMetrics(reg)
}

func newMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: PubSub,
			Name:      "published_total",
			Help:      "Total PUBLISH calls by status",
		}, []string{"status"}),
		subscriptions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: PubSub,
			Name:      "subscriptions",
			Help:      "Number of registered channel handlers",
		}),
		enqueued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: Queue,
			Name:      "enqueued_total",
			Help:      "Total RPUSH calls by status",
		}, []string{"status"}),
		dequeueErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: Queue,
			Name:      "dequeue_errors_total",
			Help:      "Total blocking pop failures (timeouts excluded)",
		}),
		activeLoops: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: Queue,
			Name:      "active_loops",
			Help:      "Number of running dequeue loops",
		}),
		handled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "messages_handled_total",
			Help:      "Total messages passed to handlers by source and status",
		}, []string{"source", "status"}),
		handlerDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "handler_duration_seconds",
			Help:      "Handler execution time by source",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"source"}),
		deadLettered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: DeadLetter,
			Name:      "moved_total",
			Help:      "Total messages moved to a dead-letter list by status",
		}, []string{"status"}),
		shutdownErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "shutdown_errors_total",
			Help:      "Total errors raised while closing connections",
		}),
	}

	err := errors.Join(
		reg.Register(m.published),
		reg.Register(m.subscriptions),
		reg.Register(m.enqueued),
		reg.Register(m.dequeueErrors),
		reg.Register(m.activeLoops),
		reg.Register(m.handled),
		reg.Register(m.handlerDuration),
		reg.Register(m.deadLettered),
		reg.Register(m.shutdownErrors),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

func status(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusSuccess
}

// RecordPublish records a PUBLISH outcome.
func (m *Metrics) RecordPublish(err error) {
	if m == nil {
		return
	}
	m.published.WithLabelValues(status(err)).Inc()
}

// SetSubscriptions sets the registered channel handler gauge.
func (m *Metrics) SetSubscriptions(n int) {
	if m == nil {
		return
	}
	m.subscriptions.Set(float64(n))
}

// RecordEnqueue records an RPUSH outcome.
func (m *Metrics) RecordEnqueue(err error) {
	if m == nil {
		return
	}
	m.enqueued.WithLabelValues(status(err)).Inc()
}

// IncDequeueErrors increments the blocking pop failure counter.
func (m *Metrics) IncDequeueErrors() {
	if m == nil {
		return
	}
	m.dequeueErrors.Inc()
}

// IncActiveLoops increments the running dequeue loop gauge.
func (m *Metrics) IncActiveLoops() {
	if m == nil {
		return
	}
	m.activeLoops.Inc()
}

// DecActiveLoops decrements the running dequeue loop gauge.
func (m *Metrics) DecActiveLoops() {
	if m == nil {
		return
	}
	m.activeLoops.Dec()
}

// RecordHandled records a handler invocation.
func (m *Metrics) RecordHandled(source string, err error, durationSeconds float64) {
	if m == nil {
		return
	}
	m.handled.WithLabelValues(source, status(err)).Inc()
	m.handlerDuration.WithLabelValues(source).Observe(durationSeconds)
}

// RecordDeadLetter records a dead-letter append outcome.
func (m *Metrics) RecordDeadLetter(err error) {
	if m == nil {
		return
	}
	m.deadLettered.WithLabelValues(status(err)).Inc()
}

// IncShutdownErrors increments the teardown error counter.
func (m *Metrics) IncShutdownErrors() {
	if m == nil {
		return
	}
	m.shutdownErrors.Inc()
}
