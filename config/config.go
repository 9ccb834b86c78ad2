// Package config loads tsukuyomi.yaml for the command line tool.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yonatandev1/tsukuyomi/bitfield"
	"github.com/yonatandev1/tsukuyomi/discord"
	"github.com/yonatandev1/tsukuyomi/gateway"
	"github.com/yonatandev1/tsukuyomi/log"
	"github.com/yonatandev1/tsukuyomi/rest"
	"github.com/yonatandev1/tsukuyomi/state"
	"github.com/yonatandev1/tsukuyomi/store"
)

// Config represents a tsukuyomi.yaml file. Missing values keep the defaults
// returned by Default.
type Config struct {
	Token            string        `yaml:"token"`
	Intents          []string      `yaml:"intents"`
	AutoReconnect    bool          `yaml:"auto_reconnect"`
	WaitGuildTimeout Duration      `yaml:"wait_guild_timeout"`
	Cache            state.Limits  `yaml:"cache"`
	Log              LogConfig     `yaml:"log"`
	WS               WSConfig      `yaml:"ws"`
	REST             RESTConfig    `yaml:"rest"`
	Metrics          MetricsConfig `yaml:"metrics"`
	Store            StoreConfig   `yaml:"store"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// WSConfig holds the gateway connection settings. An empty Gateway is looked
// up through the API on login.
type WSConfig struct {
	Gateway        string                     `yaml:"gateway"`
	Version        int                        `yaml:"version"`
	Compress       bool                       `yaml:"compress"`
	LargeThreshold int                        `yaml:"large_threshold"`
	ReconnectDelay Duration                   `yaml:"reconnect_delay"`
	Properties     gateway.IdentifyProperties `yaml:"properties"`
}

type RESTConfig struct {
	API        string   `yaml:"api"`
	Version    int      `yaml:"version"`
	MaxRetries int      `yaml:"max_retries"`
	Timeout    Duration `yaml:"timeout"`
}

// MetricsConfig enables the Prometheus endpoint when Addr is set.
type MetricsConfig struct {
	Addr      string `yaml:"addr"`
	Namespace string `yaml:"namespace"`
}

// StoreConfig enables resume state persistence in redis when RedisURL is set.
type StoreConfig struct {
	RedisURL string   `yaml:"redis_url"`
	Prefix   string   `yaml:"prefix"`
	TTL      Duration `yaml:"ttl"`
	Key      string   `yaml:"key"`
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "3.5s").
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}

func Default() *Config {
	ws := gateway.DefaultConfig()
	api := rest.DefaultConfig()

	return &Config{
		Intents:          discord.IntentsNonPrivileged.Names(),
		AutoReconnect:    true,
		WaitGuildTimeout: Duration{3500 * time.Millisecond},
		Cache:            state.DefaultLimits,
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		WS: WSConfig{
			Version:        ws.Version,
			Compress:       ws.Compress,
			LargeThreshold: ws.LargeThreshold,
			ReconnectDelay: Duration{ws.ReconnectDelay},
			Properties:     ws.Properties,
		},
		REST: RESTConfig{
			API:        api.BaseURL,
			Version:    api.Version,
			MaxRetries: api.MaxRetries,
			Timeout:    Duration{api.Timeout},
		},
		Metrics: MetricsConfig{
			Namespace: "tsukuyomi",
		},
		Store: StoreConfig{
			Prefix: store.DefaultPrefix,
			TTL:    Duration{store.DefaultTTL},
			Key:    "default",
		},
	}
}

// Load reads a YAML config file, expands environment variables and
// unmarshals it over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, fmt.Errorf("cannot read config file %q: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("invalid config in %s: %w", path, err)
	}
	return cfg, nil
}

func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal([]byte(ExpandEnv(string(data))), cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// IntentBits resolves the configured intent names.
func (c *Config) IntentBits() (discord.Intents, error) {
	return bitfield.Parse[discord.Intent](c.Intents...)
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Token == "" {
		errs = append(errs, errors.New("token is required"))
	}
	if _, err := c.IntentBits(); err != nil {
		errs = append(errs, fmt.Errorf("intents: %w", err))
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if c.Log.Format != "console" && c.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("log.format: must be console or json, got %q", c.Log.Format))
	}
	if c.WS.Version <= 0 {
		errs = append(errs, fmt.Errorf("ws.version: must be positive, got %d", c.WS.Version))
	}
	if c.WS.LargeThreshold < 50 || c.WS.LargeThreshold > 250 {
		errs = append(errs, fmt.Errorf("ws.large_threshold: must be between 50 and 250, got %d", c.WS.LargeThreshold))
	}
	if c.REST.Version <= 0 {
		errs = append(errs, fmt.Errorf("rest.version: must be positive, got %d", c.REST.Version))
	}
	if c.REST.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("rest.max_retries: must not be negative, got %d", c.REST.MaxRetries))
	}
	if c.WaitGuildTimeout.Duration < 0 {
		errs = append(errs, errors.New("wait_guild_timeout: must not be negative"))
	}
	if c.Store.RedisURL != "" && c.Store.Key == "" {
		errs = append(errs, errors.New("store.key is required with store.redis_url"))
	}

	return errors.Join(errs...)
}
