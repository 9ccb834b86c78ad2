package gateway

import (
	"runtime"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/yonatandev1/tsukuyomi/discord"
	"github.com/yonatandev1/tsukuyomi/metrics"
	"github.com/yonatandev1/tsukuyomi/ratelimit"
	"github.com/yonatandev1/tsukuyomi/store"
)

// Handlers receive what the session surfaces. Each may be nil. They are
// called from the session's goroutines and must not block for long.
type Handlers struct {
	// Dispatch receives every dispatch event, in arrival order.
	Dispatch func(e *Event)
	// Debug receives a line for every state transition and retry.
	Debug func(message string)
	// Reconnecting is called before a reconnect attempt starts.
	Reconnecting func(resume bool)
	// Closed is called when the session stops for good: a fatal close code,
	// or any close while AutoReconnect is off.
	Closed func(err *CloseError)
}

func DefaultConfig() *Config {
	return &Config{
		URL:            DefaultURL,
		Version:        DefaultVersion,
		Intents:        discord.IntentsNonPrivileged,
		LargeThreshold: 50,
		Properties: IdentifyProperties{
			OS:      runtime.GOOS,
			Browser: "tsukuyomi",
			Device:  "tsukuyomi",
		},
		AutoReconnect:  true,
		ReconnectDelay: 5 * time.Second,
		Heartbeat:      DefaultHeartbeatConfig(),
		Dialer:         websocket.DefaultDialer,
		Logger:         zap.NewNop(),
		StoreKey:       "default",
	}
}

type Config struct {
	URL            string
	Version        int
	Intents        discord.Intents
	Compress       bool
	LargeThreshold int
	Properties     IdentifyProperties

	AutoReconnect  bool
	ReconnectDelay time.Duration
	Heartbeat      HeartbeatConfig

	RateLimiter           ratelimit.RateLimiter
	RateLimiterConfigOpts []ratelimit.RateLimiterConfigOpt

	Dialer  *websocket.Dialer
	Logger  *zap.Logger
	Metrics *metrics.Metrics

	// Store persists the resume state across restarts under StoreKey.
	Store    store.Store
	StoreKey string

	Handlers Handlers
}

type ConfigOpt func(config *Config)

func (c *Config) Apply(opts []ConfigOpt) {
	for _, opt := range opts {
		opt(c)
	}
	if c.RateLimiter == nil {
		c.RateLimiter = ratelimit.NewRateLimiter(c.RateLimiterConfigOpts...)
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	if c.Dialer == nil {
		c.Dialer = websocket.DefaultDialer
	}
}

func WithURL(url string) ConfigOpt {
	return func(config *Config) {
		config.URL = url
	}
}

func WithVersion(version int) ConfigOpt {
	return func(config *Config) {
		config.Version = version
	}
}

func WithIntents(intents discord.Intents) ConfigOpt {
	return func(config *Config) {
		config.Intents = intents
	}
}

// WithCompress asks the server for a zlib-stream compressed connection.
func WithCompress(compress bool) ConfigOpt {
	return func(config *Config) {
		config.Compress = compress
	}
}

func WithLargeThreshold(threshold int) ConfigOpt {
	return func(config *Config) {
		config.LargeThreshold = threshold
	}
}

func WithProperties(properties IdentifyProperties) ConfigOpt {
	return func(config *Config) {
		config.Properties = properties
	}
}

func WithAutoReconnect(autoReconnect bool) ConfigOpt {
	return func(config *Config) {
		config.AutoReconnect = autoReconnect
	}
}

// WithReconnectDelay sets the pause between failed reconnect attempts.
func WithReconnectDelay(delay time.Duration) ConfigOpt {
	return func(config *Config) {
		config.ReconnectDelay = delay
	}
}

func WithHeartbeatConfig(heartbeat HeartbeatConfig) ConfigOpt {
	return func(config *Config) {
		config.Heartbeat = heartbeat
	}
}

func WithRateLimiter(rateLimiter ratelimit.RateLimiter) ConfigOpt {
	return func(config *Config) {
		config.RateLimiter = rateLimiter
	}
}

func WithRateLimiterConfigOpts(opts ...ratelimit.RateLimiterConfigOpt) ConfigOpt {
	return func(config *Config) {
		config.RateLimiterConfigOpts = append(config.RateLimiterConfigOpts, opts...)
	}
}

func WithDialer(dialer *websocket.Dialer) ConfigOpt {
	return func(config *Config) {
		config.Dialer = dialer
	}
}

func WithLogger(logger *zap.Logger) ConfigOpt {
	return func(config *Config) {
		config.Logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) ConfigOpt {
	return func(config *Config) {
		config.Metrics = m
	}
}

func WithStore(s store.Store, key string) ConfigOpt {
	return func(config *Config) {
		config.Store = s
		if key != "" {
			config.StoreKey = key
		}
	}
}

func WithHandlers(handlers Handlers) ConfigOpt {
	return func(config *Config) {
		config.Handlers = handlers
	}
}
