package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func send(t *testing.T, l RateLimiter) {
	t.Helper()
	require.NoError(t, l.Wait(context.Background()))
	l.Unlock()
}

func TestBudgetExhaustionWaitsForWindow(t *testing.T) {
	l := NewRateLimiter(WithCommandsPerMinute(2), WithWindow(80*time.Millisecond))

	start := time.Now()
	send(t, l)
	send(t, l)
	assert.Less(t, time.Since(start), 40*time.Millisecond)

	send(t, l)
	assert.GreaterOrEqual(t, time.Since(start), 70*time.Millisecond)
}

func TestWaitHonoursContext(t *testing.T) {
	l := NewRateLimiter(WithCommandsPerMinute(1), WithWindow(time.Minute))
	send(t, l)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := l.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCloseFailsPendingWaitAndResetReopens(t *testing.T) {
	l := NewRateLimiter(WithCommandsPerMinute(1), WithWindow(time.Minute))
	send(t, l)

	errs := make(chan error, 1)
	go func() { errs <- l.Wait(context.Background()) }()

	time.Sleep(20 * time.Millisecond)
	l.Close()

	select {
	case err := <-errs:
		assert.ErrorIs(t, err, ErrClosed)
	case <-time.After(time.Second):
		t.Fatal("Close did not release the pending Wait")
	}

	assert.ErrorIs(t, l.Wait(context.Background()), ErrClosed)

	l.Reset()
	send(t, l)
}
