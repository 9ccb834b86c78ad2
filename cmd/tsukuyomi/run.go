package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yonatandev1/tsukuyomi/client"
	"github.com/yonatandev1/tsukuyomi/config"
	"github.com/yonatandev1/tsukuyomi/gateway"
	"github.com/yonatandev1/tsukuyomi/log"
	"github.com/yonatandev1/tsukuyomi/metrics"
	"github.com/yonatandev1/tsukuyomi/rest"
	"github.com/yonatandev1/tsukuyomi/store"
)

func newRunCmd(configPath *string) *cobra.Command {
	var status bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Connect to the gateway and log every event",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}

			level, err := log.ParseLevel(cfg.Log.Level)
			if err != nil {
				return err
			}
			logger := newLogger(cfg.Log.Format, level, cmd.OutOrStdout())
			defer logger.Sync() //nolint:errcheck

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if cfg.Log.Format == "console" {
				fmt.Fprintf(cmd.OutOrStdout(), banner, version)
			}

			deps, err := wire(cfg, logger)
			if err != nil {
				return err
			}
			defer deps.close()

			c := client.New(cfg.Token, deps.options...)
			logEvents(c, logger)

			go func() {
				err := config.Watch(ctx, *configPath, time.Second, func(next *config.Config) {
					reloaded, err := log.ParseLevel(next.Log.Level)
					if err != nil || reloaded.Level() == level.Level() {
						return
					}
					level.SetLevel(reloaded.Level())
					logger.Info("log level changed", zap.Stringer("level", reloaded.Level()))
				}, func(err error) {
					logger.Warn("config reload failed", zap.Error(err))
				})
				if err != nil {
					logger.Warn("config watcher stopped", zap.Error(err))
				}
			}()

			if err := c.Login(ctx); err != nil {
				_ = c.Close()
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return fmt.Errorf("login: %w", err)
			}

			if status && cfg.Log.Format == "console" {
				go printStatus(ctx, cmd.OutOrStdout(), c)
			}

			<-ctx.Done()
			logger.Info("shutting down")

			if deps.resumable {
				return c.CloseResumable()
			}
			return c.Close()
		},
	}

	cmd.Flags().BoolVar(&status, "status", false, "show a live cache summary")

	return cmd
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func newLogger(format string, level zap.AtomicLevel, w io.Writer) *zap.Logger {
	if format == "json" {
		return log.New(level, nil)
	}
	return log.NewConsole(level, w)
}

type dependencies struct {
	options   []client.ConfigOpt
	resumable bool
	closers   []func()
}

func (d *dependencies) close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
}

// wire turns the config into client options and starts the metrics server
// and the resume store it asks for.
func wire(cfg *config.Config, logger *zap.Logger) (*dependencies, error) {
	intents, err := cfg.IntentBits()
	if err != nil {
		return nil, err
	}

	deps := &dependencies{}

	gatewayOpts := []gateway.ConfigOpt{
		gateway.WithVersion(cfg.WS.Version),
		gateway.WithIntents(intents),
		gateway.WithCompress(cfg.WS.Compress),
		gateway.WithLargeThreshold(cfg.WS.LargeThreshold),
		gateway.WithProperties(cfg.WS.Properties),
		gateway.WithAutoReconnect(cfg.AutoReconnect),
		gateway.WithReconnectDelay(cfg.WS.ReconnectDelay.Duration),
	}

	if cfg.Store.RedisURL != "" {
		s, err := store.NewRedisStore(store.RedisConfig{
			URL:    cfg.Store.RedisURL,
			Prefix: cfg.Store.Prefix,
			TTL:    cfg.Store.TTL.Duration,
		})
		if err != nil {
			return nil, err
		}
		deps.closers = append(deps.closers, func() { _ = s.Close() })
		deps.resumable = true
		gatewayOpts = append(gatewayOpts, gateway.WithStore(s, cfg.Store.Key))
	}

	deps.options = []client.ConfigOpt{
		client.WithLogger(logger),
		client.WithCacheLimits(cfg.Cache),
		client.WithWaitGuildTimeout(cfg.WaitGuildTimeout.Duration),
		client.WithGatewayConfigOpts(gatewayOpts...),
		client.WithRESTConfigOpts(restOptions(cfg)...),
	}
	if cfg.WS.Gateway != "" {
		deps.options = append(deps.options, client.WithGatewayURL(cfg.WS.Gateway))
	}

	if cfg.Metrics.Addr != "" {
		m := metrics.New(metrics.WithNamespace(cfg.Metrics.Namespace))
		deps.options = append(deps.options, client.WithMetrics(m))

		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		server := &http.Server{Addr: cfg.Metrics.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", zap.Error(err))
			}
		}()
		logger.Info("serving metrics", zap.String("addr", cfg.Metrics.Addr))

		deps.closers = append(deps.closers, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = server.Shutdown(ctx)
		})
	}

	return deps, nil
}

func restOptions(cfg *config.Config) []rest.ConfigOpt {
	return []rest.ConfigOpt{
		rest.WithBaseURL(cfg.REST.API),
		rest.WithVersion(cfg.REST.Version),
		rest.WithMaxRetries(cfg.REST.MaxRetries),
		rest.WithTimeout(cfg.REST.Timeout.Duration),
	}
}

func logEvents(c *client.Client, logger *zap.Logger) {
	client.On(c, func(e *client.ReadyEvent) {
		if e.User == nil {
			logger.Info("resumed a stored session")
			return
		}
		logger.Info("ready", zap.String("user", e.User.Tag()), zap.Int("guilds", c.State.Guilds.Len()))
	})
	client.On(c, func(e *client.ReconnectingEvent) {
		logger.Warn("reconnecting", zap.Bool("resume", e.Resume))
	})
	client.On(c, func(e *client.DebugEvent) {
		logger.Debug(e.Message)
	})
	client.On(c, func(e *client.ErrorEvent) {
		logger.Error("client error", zap.Error(e.Err))
	})
	client.On(c, func(e *client.GuildCreateEvent) {
		logger.Info("joined guild", zap.String("guild", e.Guild.Name), zap.Int("members", e.Guild.MemberCount))
	})
	client.On(c, func(e *client.GuildAvailableEvent) {
		logger.Info("guild available", zap.String("guild", e.Guild.Name))
	})
	client.On(c, func(e *client.GuildUnavailableEvent) {
		logger.Warn("guild unavailable", zap.String("guild", e.Guild.ID.String()))
	})
	client.On(c, func(e *client.GuildDeleteEvent) {
		logger.Info("left guild", zap.String("guild", e.Guild.Name))
	})
	client.On(c, func(e *client.MessageCreateEvent) {
		author := "unknown"
		if e.Message.Author != nil {
			author = e.Message.Author.Tag()
		}
		logger.Info("message",
			zap.String("channel", e.Message.ChannelID.String()),
			zap.String("author", author),
			zap.String("content", e.Message.Content),
		)
	})
	client.On(c, func(e *client.InteractionCreateEvent) {
		logger.Info("interaction", zap.String("id", e.Interaction.ID.String()), zap.Int("type", int(e.Interaction.Type)))
	})
}
