// Package metrics exposes Prometheus collectors for the gateway session and the
// REST client. Every method is safe to call on a nil *Metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Config configures the collectors.
type Config struct {
	// Namespace is the metrics namespace (default: "tsukuyomi").
	Namespace string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// Option configures the collectors.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

func defaultConfig() Config {
	return Config{
		Namespace: "tsukuyomi",
		Registry:  prometheus.DefaultRegisterer,
	}
}

type Metrics struct {
	ping         prometheus.Gauge
	reconnects   *prometheus.CounterVec
	dispatches   *prometheus.CounterVec
	closes       *prometheus.CounterVec
	decodeErrors prometheus.Counter
	zombies      prometheus.Counter
	requests     *prometheus.CounterVec
	rateLimited  *prometheus.CounterVec
}

// New registers the collectors. Registering twice on the same registry panics,
// so create one Metrics per registry.
func New(opts ...Option) *Metrics {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}

	factory := promauto.With(config.Registry)

	return &Metrics{
		ping: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   "gateway",
			Name:        "ping_seconds",
			Help:        "Round trip between the last heartbeat and its ACK",
			ConstLabels: config.ConstLabels,
		}),

		reconnects: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   "gateway",
			Name:        "reconnects_total",
			Help:        "Reconnects by kind (resume or identify)",
			ConstLabels: config.ConstLabels,
		}, []string{"kind"}),

		dispatches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   "gateway",
			Name:        "dispatches_total",
			Help:        "Dispatch events received by event name",
			ConstLabels: config.ConstLabels,
		}, []string{"event"}),

		closes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   "gateway",
			Name:        "closes_total",
			Help:        "Connection closes by close code and the action taken",
			ConstLabels: config.ConstLabels,
		}, []string{"code", "action"}),

		decodeErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   "gateway",
			Name:        "decode_errors_total",
			Help:        "Frames dropped because they could not be decoded",
			ConstLabels: config.ConstLabels,
		}),

		zombies: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   "gateway",
			Name:        "zombie_connections_total",
			Help:        "Connections force-closed for missing heartbeat ACKs",
			ConstLabels: config.ConstLabels,
		}),

		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   "rest",
			Name:        "requests_total",
			Help:        "REST requests by method and status code",
			ConstLabels: config.ConstLabels,
		}, []string{"method", "status"}),

		rateLimited: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   "rest",
			Name:        "rate_limited_total",
			Help:        "429 responses by scope (bucket or global)",
			ConstLabels: config.ConstLabels,
		}, []string{"scope"}),
	}
}

func (m *Metrics) ObservePing(latency time.Duration) {
	if m == nil {
		return
	}
	m.ping.Set(latency.Seconds())
}

func (m *Metrics) Reconnect(resume bool) {
	if m == nil {
		return
	}
	kind := "identify"
	if resume {
		kind = "resume"
	}
	m.reconnects.WithLabelValues(kind).Inc()
}

func (m *Metrics) Dispatch(event string) {
	if m == nil {
		return
	}
	m.dispatches.WithLabelValues(event).Inc()
}

func (m *Metrics) Close(code int, action string) {
	if m == nil {
		return
	}
	m.closes.WithLabelValues(strconv.Itoa(code), action).Inc()
}

func (m *Metrics) DecodeError() {
	if m == nil {
		return
	}
	m.decodeErrors.Inc()
}

func (m *Metrics) Zombie() {
	if m == nil {
		return
	}
	m.zombies.Inc()
}

func (m *Metrics) Request(method string, status int) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, strconv.Itoa(status)).Inc()
}

func (m *Metrics) RateLimited(global bool) {
	if m == nil {
		return
	}
	scope := "bucket"
	if global {
		scope = "global"
	}
	m.rateLimited.WithLabelValues(scope).Inc()
}
