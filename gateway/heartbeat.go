package gateway

import (
	"sync"
	"time"

	"github.com/yonatandev1/tsukuyomi/internal/timer"
)

// HeartbeatConfig holds the liveness timeouts.
type HeartbeatConfig struct {
	// AckTimeout is how long a sent heartbeat may stay unacknowledged.
	AckTimeout time.Duration
	// Grace and SecondGrace are waited one after the other once a tick finds
	// the previous heartbeat unacknowledged.
	Grace       time.Duration
	SecondGrace time.Duration
}

func DefaultHeartbeatConfig() HeartbeatConfig {
	return HeartbeatConfig{
		AckTimeout:  15 * time.Second,
		Grace:       10 * time.Second,
		SecondGrace: 5 * time.Second,
	}
}

// HeartbeatMonitor sends a heartbeat every interval and calls zombie when the
// server stops acknowledging them. zombie is called at most once per Start.
//
// Every timer callback carries the generation it was armed in; Start and Stop
// bump the generation so stale callbacks return without acting.
type HeartbeatMonitor struct {
	config HeartbeatConfig
	send   func() error
	zombie func()

	mu         sync.Mutex
	generation uint64
	running    bool
	interval   time.Duration
	acked      bool
	lastSent   time.Time
	lastAck    time.Time
	latency    time.Duration

	ticker   *timer.Timer
	watchdog *timer.Timer
	grace    *timer.Timer
}

func NewHeartbeatMonitor(config HeartbeatConfig, send func() error, zombie func()) *HeartbeatMonitor {
	return &HeartbeatMonitor{
		config: config,
		send:   send,
		zombie: zombie,
	}
}

// Start restarts the monitor with a new interval. The first heartbeat goes
// out after one interval. A non-positive interval leaves the monitor stopped.
func (h *HeartbeatMonitor) Start(interval time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.stopLocked()
	if interval <= 0 {
		return
	}

	h.running = true
	h.interval = interval
	h.acked = true

	generation := h.generation
	h.ticker = timer.AfterFunc(interval, func() { h.tick(generation) })
}

// Stop cancels every pending timer. It never blocks on a running callback.
func (h *HeartbeatMonitor) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.stopLocked()
}

func (h *HeartbeatMonitor) stopLocked() {
	h.generation++
	h.running = false

	h.ticker.Cancel()
	h.watchdog.Cancel()
	h.grace.Cancel()
	h.ticker, h.watchdog, h.grace = nil, nil, nil
}

func (h *HeartbeatMonitor) tick(generation uint64) {
	h.mu.Lock()
	if generation != h.generation {
		h.mu.Unlock()
		return
	}

	h.ticker = timer.AfterFunc(h.interval, func() { h.tick(generation) })

	if !h.acked {
		// Sending more would not help a connection that stopped answering.
		if !h.grace.Pending() {
			h.grace = timer.AfterFunc(h.config.Grace, func() { h.graceExpired(generation, false) })
		}
		h.mu.Unlock()
		return
	}

	h.acked = false
	h.lastSent = time.Now()
	h.watchdog.Cancel()
	h.watchdog = timer.AfterFunc(h.config.AckTimeout, func() { h.expired(generation) })
	h.mu.Unlock()

	_ = h.send()
}

func (h *HeartbeatMonitor) graceExpired(generation uint64, second bool) {
	h.mu.Lock()
	if generation != h.generation || h.acked {
		h.mu.Unlock()
		return
	}

	if !second {
		h.grace = timer.AfterFunc(h.config.SecondGrace, func() { h.graceExpired(generation, true) })
		h.mu.Unlock()
		return
	}

	h.stopLocked()
	h.mu.Unlock()

	h.zombie()
}

func (h *HeartbeatMonitor) expired(generation uint64) {
	h.mu.Lock()
	if generation != h.generation || h.acked {
		h.mu.Unlock()
		return
	}

	h.stopLocked()
	h.mu.Unlock()

	h.zombie()
}

// Ack records a heartbeat ACK and returns the round trip of the heartbeat
// it acknowledges.
func (h *HeartbeatMonitor) Ack() time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.acked = true
	h.lastAck = time.Now()
	if !h.lastSent.IsZero() {
		h.latency = h.lastAck.Sub(h.lastSent)
	}

	h.watchdog.Cancel()
	h.grace.Cancel()

	return h.latency
}

// Beat sends a heartbeat right away, outside the regular cadence, as the
// server may request. It does not arm the watchdog.
func (h *HeartbeatMonitor) Beat() error {
	h.mu.Lock()
	h.lastSent = time.Now()
	h.mu.Unlock()

	return h.send()
}

func (h *HeartbeatMonitor) Running() bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.running
}

func (h *HeartbeatMonitor) Acked() bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.acked
}

func (h *HeartbeatMonitor) Interval() time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.interval
}

func (h *HeartbeatMonitor) Latency() time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.latency
}

func (h *HeartbeatMonitor) LastSent() time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.lastSent
}

func (h *HeartbeatMonitor) LastAck() time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.lastAck
}
