// Package ratelimit throttles outbound gateway commands.
package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sasha-s/go-csync"
)

// ErrClosed is returned by Wait after Close, until the next Reset.
var ErrClosed = errors.New("ratelimit: limiter closed")

type RateLimiter interface {
	// Close fails every pending and future Wait until Reset.
	Close()
	// Reset refills the budget and reopens a closed limiter.
	Reset()
	// Wait blocks until a command may be sent. A nil return must be paired
	// with Unlock.
	Wait(ctx context.Context) error
	// Unlock consumes the slot obtained by Wait.
	Unlock()
}

func NewRateLimiter(opts ...RateLimiterConfigOpt) RateLimiter {
	config := DefaultRateLimiterConfig()
	config.Apply(opts)

	return &rateLimiterImpl{
		config: *config,
		closed: make(chan struct{}),
		open:   true,
	}
}

type rateLimiterImpl struct {
	mu csync.Mutex

	reset     time.Time
	remaining int

	stateMu sync.Mutex
	closed  chan struct{}
	open    bool

	config RateLimiterConfig
}

func (l *rateLimiterImpl) Close() {
	l.stateMu.Lock()
	defer l.stateMu.Unlock()

	if l.open {
		close(l.closed)
		l.open = false
	}
}

func (l *rateLimiterImpl) Reset() {
	l.stateMu.Lock()
	if !l.open {
		l.closed = make(chan struct{})
		l.open = true
	}
	l.stateMu.Unlock()

	if err := l.mu.CLock(context.Background()); err != nil {
		return
	}
	l.reset = time.Time{}
	l.remaining = 0
	l.mu.Unlock()
}

func (l *rateLimiterImpl) closedChan() (<-chan struct{}, bool) {
	l.stateMu.Lock()
	defer l.stateMu.Unlock()

	return l.closed, l.open
}

func (l *rateLimiterImpl) Wait(ctx context.Context) error {
	closed, open := l.closedChan()
	if !open {
		return ErrClosed
	}

	if err := l.mu.CLock(ctx); err != nil {
		return err
	}

	now := time.Now()

	var until time.Time

	if l.remaining == 0 && l.reset.After(now) {
		until = l.reset
	}

	if until.After(now) {
		timer := time.NewTimer(until.Sub(now))
		defer timer.Stop()

		select {
		case <-ctx.Done():
			l.mu.Unlock()
			return ctx.Err()
		case <-closed:
			l.mu.Unlock()
			return ErrClosed
		case <-timer.C:
		}
	}

	return nil
}

func (l *rateLimiterImpl) Unlock() {
	now := time.Now()
	if !l.reset.After(now) {
		l.reset = now.Add(l.config.Window)
		l.remaining = l.config.CommandsPerMinute
	}
	if l.remaining > 0 {
		l.remaining--
	}
	l.mu.Unlock()
}

func DefaultRateLimiterConfig() *RateLimiterConfig {
	return &RateLimiterConfig{
		CommandsPerMinute: 120,
		Window:            time.Minute,
	}
}

type RateLimiterConfig struct {
	// CommandsPerMinute is the budget per Window; the name follows the
	// protocol's default one-minute window.
	CommandsPerMinute int
	Window            time.Duration
}

type RateLimiterConfigOpt func(config *RateLimiterConfig)

func (c *RateLimiterConfig) Apply(opts []RateLimiterConfigOpt) {
	for _, opt := range opts {
		opt(c)
	}
}

func WithCommandsPerMinute(commandsPerMinute int) RateLimiterConfigOpt {
	return func(config *RateLimiterConfig) {
		config.CommandsPerMinute = commandsPerMinute
	}
}

func WithWindow(window time.Duration) RateLimiterConfigOpt {
	return func(config *RateLimiterConfig) {
		config.Window = window
	}
}
