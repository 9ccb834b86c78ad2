package timer

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAfterFuncFires(t *testing.T) {
	fired := make(chan struct{})
	tm := AfterFunc(5*time.Millisecond, func() { close(fired) })

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("timer never fired")
	}

	assert.False(t, tm.Pending())
	assert.False(t, tm.Cancel(), "cancel after fire must report false")
}

func TestCancelPreventsCallback(t *testing.T) {
	var calls atomic.Int32
	tm := AfterFunc(20*time.Millisecond, func() { calls.Add(1) })

	require.True(t, tm.Pending())
	require.True(t, tm.Cancel())
	assert.False(t, tm.Cancel())

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, calls.Load())
}

func TestNilTimer(t *testing.T) {
	var tm *Timer
	assert.False(t, tm.Cancel())
	assert.False(t, tm.Pending())
}
