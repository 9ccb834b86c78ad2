// Package client ties a gateway session, the entity cache and the REST client
// together and turns dispatch events into typed events.
//
// Dispatches, REST reconciliation and listeners all run on one goroutine per
// Client, in the order they arrived. Listeners must not block it for long.
// Cached entities are patched in place on that goroutine, so other goroutines
// read them through View.
package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/yonatandev1/tsukuyomi/discord"
	"github.com/yonatandev1/tsukuyomi/gateway"
	"github.com/yonatandev1/tsukuyomi/internal/timer"
	"github.com/yonatandev1/tsukuyomi/rest"
	"github.com/yonatandev1/tsukuyomi/state"
)

var ErrClosed = errors.New("client: closed")

type Client struct {
	config Config
	logger *zap.Logger

	Gateway *gateway.Session
	REST    *rest.Client
	State   *state.Cache

	user      atomic.Pointer[discord.User]
	readyFlag atomic.Bool

	listenersMu sync.RWMutex
	listeners   []func(Event)

	waitersMu sync.Mutex
	waiters   []chan error

	queueMu sync.Mutex
	queue   []func()
	wake    chan struct{}
	done    chan struct{}
	stopped chan struct{}
	once    sync.Once

	// owned by the loop goroutine
	ready      bool
	readyGen   uint64
	readyTimer *timer.Timer
}

func New(token string, opts ...ConfigOpt) *Client {
	config := DefaultConfig()
	config.Apply(opts)

	c := &Client{
		config:  *config,
		logger:  config.Logger.Named("client"),
		State:   state.New(config.CacheLimits),
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}

	gatewayOpts := append([]gateway.ConfigOpt{
		gateway.WithLogger(config.Logger),
		gateway.WithMetrics(config.Metrics),
	}, config.GatewayConfigOpts...)
	gatewayOpts = append(gatewayOpts, gateway.WithHandlers(gateway.Handlers{
		Dispatch:     c.onDispatch,
		Debug:        c.onDebug,
		Reconnecting: c.onReconnecting,
		Closed:       c.onClosed,
	}))
	c.Gateway = gateway.New(token, gatewayOpts...)

	restOpts := append([]rest.ConfigOpt{
		rest.WithLogger(config.Logger),
		rest.WithMetrics(config.Metrics),
	}, config.RESTConfigOpts...)
	c.REST = rest.New(token, restOpts...)

	go c.run()

	return c
}

// Login connects and waits for Ready. It returns the close error when the
// session ends before that, for example on an invalid token.
func (c *Client) Login(ctx context.Context) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	if c.config.GatewayURL != "" {
		c.Gateway.SetURL(c.config.GatewayURL)
	} else if url, err := c.GatewayURL(ctx); err != nil {
		c.logger.Warn("could not fetch gateway url, using default", zap.Error(err))
	} else {
		c.Gateway.SetURL(url)
	}

	wait := make(chan error, 1)
	c.waitersMu.Lock()
	c.waiters = append(c.waiters, wait)
	c.waitersMu.Unlock()

	if err := c.Gateway.Connect(ctx); err != nil {
		return err
	}

	select {
	case err := <-wait:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) notifyWaiters(err error) {
	c.waitersMu.Lock()
	waiters := c.waiters
	c.waiters = nil
	c.waitersMu.Unlock()

	for _, wait := range waiters {
		wait <- err
	}
}

// Close ends the session and destroys the cache.
func (c *Client) Close() error {
	return c.shutdown(c.Gateway.Close)
}

// CloseResumable disconnects but keeps the session resumable, so the next
// process sharing the resume store can pick it up.
func (c *Client) CloseResumable() error {
	return c.shutdown(c.Gateway.CloseResumable)
}

func (c *Client) shutdown(closeGateway func() error) error {
	err := closeGateway()

	c.once.Do(func() {
		close(c.done)
	})
	<-c.stopped

	c.State.Destroy()
	c.notifyWaiters(ErrClosed)

	return err
}

// User is the current user, known once READY arrived.
func (c *Client) User() *discord.User {
	return c.user.Load()
}

func (c *Client) Ready() bool {
	return c.readyFlag.Load()
}

// AddListener registers fn for every event.
func (c *Client) AddListener(fn func(Event)) {
	c.listenersMu.Lock()
	defer c.listenersMu.Unlock()

	c.listeners = append(c.listeners, fn)
}

// On registers fn for events of type E, for example
//
//	client.On(c, func(e *client.MessageCreateEvent) { ... })
func On[E Event](c *Client, fn func(E)) {
	c.AddListener(func(e Event) {
		if event, ok := e.(E); ok {
			fn(event)
		}
	})
}

func (c *Client) emit(e Event) {
	c.listenersMu.RLock()
	listeners := c.listeners
	c.listenersMu.RUnlock()

	for _, listener := range listeners {
		c.call(listener, e)
	}
}

func (c *Client) call(listener func(Event), e Event) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("client: listener panicked on %T: %v", e, r)
			if _, ok := e.(*ErrorEvent); ok {
				c.logger.Error("error listener panicked", zap.Error(err))
				return
			}
			c.emit(&ErrorEvent{Err: err})
		}
	}()

	listener(e)
}

// post queues fn for the loop and reports whether it was queued. The queue is
// unbounded so the socket reader never waits for listeners. A queued fn may
// still never run when the client closes before the loop reaches it.
func (c *Client) post(fn func()) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	c.queueMu.Lock()
	c.queue = append(c.queue, fn)
	c.queueMu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}
	return true
}

// exec runs fn on the loop and returns its result. Once the loop has stopped
// fn runs on the caller instead; the cache is destroyed by then so it only
// builds detached objects. fn runs at most once.
func exec[T any](ctx context.Context, c *Client, fn func() T) (T, error) {
	var (
		claimed  atomic.Bool
		finished = make(chan struct{})
		result   T
		ok       bool
	)

	run := func() {
		if !claimed.CompareAndSwap(false, true) {
			return
		}
		defer close(finished)
		result = fn()
		ok = true
	}

	if !c.post(run) {
		<-c.stopped
		run()
	}

	select {
	case <-finished:
	case <-c.stopped:
		// the loop exits without draining its queue
		run()
		<-finished
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}

	if !ok {
		var zero T
		return zero, errors.New("client: cache update panicked")
	}
	return result, nil
}

// View runs fn on the loop, where reading cached entities cannot race with
// the updates dispatches apply to them. fn must not keep entities around for
// reading later.
func (c *Client) View(ctx context.Context, fn func(*state.Cache)) error {
	_, err := exec(ctx, c, func() struct{} {
		fn(c.State)
		return struct{}{}
	})
	return err
}

func (c *Client) run() {
	defer close(c.stopped)
	defer func() {
		c.readyTimer.Cancel()
	}()

	for {
		select {
		case <-c.done:
			return
		case <-c.wake:
		}

		for {
			c.queueMu.Lock()
			if len(c.queue) == 0 {
				c.queueMu.Unlock()
				break
			}
			fn := c.queue[0]
			c.queue[0] = nil
			c.queue = c.queue[1:]
			c.queueMu.Unlock()

			c.safely(fn)

			select {
			case <-c.done:
				return
			default:
			}
		}
	}
}

func (c *Client) safely(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			c.emit(&ErrorEvent{Err: fmt.Errorf("client: handler panicked: %v", r)})
		}
	}()

	fn()
}

func (c *Client) onDispatch(e *gateway.Event) {
	c.post(func() {
		if err := c.route(e); err != nil {
			c.logger.Debug("dispatch failed", zap.String("event", e.Type), zap.Error(err))
			c.emit(&ErrorEvent{Err: err})
		}
	})
}

func (c *Client) onDebug(message string) {
	c.post(func() {
		c.emit(&DebugEvent{Message: message})
	})
}

func (c *Client) onReconnecting(resume bool) {
	c.post(func() {
		if !resume {
			c.resetReady()
		}
		c.emit(&ReconnectingEvent{Resume: resume})
	})
}

func (c *Client) onClosed(err *gateway.CloseError) {
	c.post(func() {
		c.resetReady()
		c.emit(&ErrorEvent{Err: err})
	})
	c.notifyWaiters(err)
}

// scheduleReady opens the gate after WaitGuildTimeout when guild members are
// requested, so the first GUILD_CREATE burst lands before Ready.
func (c *Client) scheduleReady() {
	c.readyTimer.Cancel()
	c.readyGen++
	generation := c.readyGen

	open := func() {
		if c.readyGen == generation {
			c.markReady()
		}
	}

	if c.Gateway.Config().Intents.Has(discord.IntentGuildMembers) {
		c.readyTimer = timer.AfterFunc(c.config.WaitGuildTimeout, func() { c.post(open) })
		return
	}
	c.post(open)
}

func (c *Client) markReady() {
	if c.ready {
		return
	}
	c.ready = true
	c.readyFlag.Store(true)

	c.emit(&ReadyEvent{User: c.user.Load()})
	c.notifyWaiters(nil)
}

func (c *Client) resetReady() {
	c.readyTimer.Cancel()
	c.readyTimer = nil
	c.readyGen++
	c.ready = false
	c.readyFlag.Store(false)
}
