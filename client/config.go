package client

import (
	"time"

	"go.uber.org/zap"

	"github.com/yonatandev1/tsukuyomi/gateway"
	"github.com/yonatandev1/tsukuyomi/metrics"
	"github.com/yonatandev1/tsukuyomi/rest"
	"github.com/yonatandev1/tsukuyomi/state"
)

// DefaultWaitGuildTimeout is how long READY is held back for guilds to stream
// in when the GuildMembers intent is set.
const DefaultWaitGuildTimeout = 3500 * time.Millisecond

func DefaultConfig() *Config {
	return &Config{
		WaitGuildTimeout: DefaultWaitGuildTimeout,
		CacheLimits:      state.DefaultLimits,
	}
}

type Config struct {
	// GatewayURL skips the GET /gateway lookup on Login when set.
	GatewayURL       string
	WaitGuildTimeout time.Duration
	CacheLimits      state.Limits

	Logger  *zap.Logger
	Metrics *metrics.Metrics

	GatewayConfigOpts []gateway.ConfigOpt
	RESTConfigOpts    []rest.ConfigOpt
}

type ConfigOpt func(config *Config)

func (c *Config) Apply(opts []ConfigOpt) {
	for _, opt := range opts {
		opt(c)
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
}

func WithGatewayURL(url string) ConfigOpt {
	return func(config *Config) {
		config.GatewayURL = url
	}
}

func WithWaitGuildTimeout(timeout time.Duration) ConfigOpt {
	return func(config *Config) {
		config.WaitGuildTimeout = timeout
	}
}

func WithCacheLimits(limits state.Limits) ConfigOpt {
	return func(config *Config) {
		config.CacheLimits = limits
	}
}

// WithLogger is passed on to the gateway session and the REST client.
func WithLogger(logger *zap.Logger) ConfigOpt {
	return func(config *Config) {
		config.Logger = logger
	}
}

// WithMetrics is passed on to the gateway session and the REST client.
func WithMetrics(m *metrics.Metrics) ConfigOpt {
	return func(config *Config) {
		config.Metrics = m
	}
}

func WithGatewayConfigOpts(opts ...gateway.ConfigOpt) ConfigOpt {
	return func(config *Config) {
		config.GatewayConfigOpts = append(config.GatewayConfigOpts, opts...)
	}
}

func WithRESTConfigOpts(opts ...rest.ConfigOpt) ConfigOpt {
	return func(config *Config) {
		config.RESTConfigOpts = append(config.RESTConfigOpts, opts...)
	}
}
