package rest

import (
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/yonatandev1/tsukuyomi/metrics"
)

const (
	DefaultBaseURL    = "https://discord.com/api"
	DefaultVersion    = 10
	DefaultMaxRetries = 3
	DefaultTimeout    = 15 * time.Second

	defaultTracerName = "github.com/yonatandev1/tsukuyomi/rest"
)

func DefaultConfig() *Config {
	return &Config{
		BaseURL:    DefaultBaseURL,
		Version:    DefaultVersion,
		MaxRetries: DefaultMaxRetries,
		Timeout:    DefaultTimeout,
		UserAgent:  "DiscordBot (https://github.com/yonatandev1/tsukuyomi, 1.0)",
		TracerName: defaultTracerName,
	}
}

type Config struct {
	BaseURL string
	Version int
	// MaxRetries is how often a 429 is retried before giving up.
	MaxRetries int
	Timeout    time.Duration
	UserAgent  string

	HTTPClient *fasthttp.Client
	Logger     *zap.Logger
	Metrics    *metrics.Metrics
	TracerName string
}

type ConfigOpt func(config *Config)

func (c *Config) Apply(opts []ConfigOpt) {
	for _, opt := range opts {
		opt(c)
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &fasthttp.Client{}
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
}

func WithBaseURL(baseURL string) ConfigOpt {
	return func(config *Config) {
		config.BaseURL = baseURL
	}
}

func WithVersion(version int) ConfigOpt {
	return func(config *Config) {
		config.Version = version
	}
}

func WithMaxRetries(maxRetries int) ConfigOpt {
	return func(config *Config) {
		config.MaxRetries = maxRetries
	}
}

func WithTimeout(timeout time.Duration) ConfigOpt {
	return func(config *Config) {
		config.Timeout = timeout
	}
}

func WithUserAgent(userAgent string) ConfigOpt {
	return func(config *Config) {
		config.UserAgent = userAgent
	}
}

func WithHTTPClient(client *fasthttp.Client) ConfigOpt {
	return func(config *Config) {
		config.HTTPClient = client
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

func WithTracerName(name string) ConfigOpt {
	return func(config *Config) {
		config.TracerName = name
	}
}
