// Package gateway keeps a session with the real-time gateway alive: it
// connects, identifies or resumes, heartbeats, and decides after every close
// whether to resume, start over or give up.
package gateway

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/yonatandev1/tsukuyomi/decoder"
)

var (
	ErrNotConnected     = errors.New("gateway: not connected")
	ErrAlreadyConnected = errors.New("gateway: connection already exists")
	ErrClosed           = errors.New("gateway: session closed")
)

func New(token string, opts ...ConfigOpt) *Session {
	config := DefaultConfig()
	config.Apply(opts)

	s := &Session{
		config: *config,
		token:  token,
		logger: config.Logger.Named("gateway"),
	}
	s.heartbeat = NewHeartbeatMonitor(config.Heartbeat, s.sendHeartbeat, s.onZombie)

	return s
}

type Session struct {
	config Config
	token  string
	logger *zap.Logger

	heartbeat *HeartbeatMonitor

	// writeMu serializes writes on the socket.
	writeMu sync.Mutex

	mu            sync.Mutex
	state         State
	conn          *websocket.Conn
	decoder       decoder.FrameDecoder
	listening     chan struct{}
	sessionID     string
	sequence      int64
	hasSequence   bool
	resumeURL     string
	shouldResume  bool
	resumePending bool
	restored      bool
	closed        bool
	ctx           context.Context
	cancel        context.CancelFunc
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

func (s *Session) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.sessionID
}

// Sequence returns the last sequence number received and whether any was.
func (s *Session) Sequence() (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.sequence, s.hasSequence
}

func (s *Session) ResumeURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.resumeURL
}

// Ping is the round trip of the last acknowledged heartbeat.
func (s *Session) Ping() time.Duration {
	return s.heartbeat.Latency()
}

func (s *Session) Heartbeat() *HeartbeatMonitor {
	return s.heartbeat
}

func (s *Session) Intents() int64 {
	return int64(s.config.Intents)
}

func (s *Session) Config() Config {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.config
}

// SetURL replaces the gateway URL used for connections that do not resume.
func (s *Session) SetURL(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.config.URL = url
}

func (s *Session) clearSessionLocked() {
	s.sessionID = ""
	s.sequence = 0
	s.hasSequence = false
	s.resumeURL = ""
	s.shouldResume = false
	s.resumePending = false
}

// trackSequenceLocked keeps the value a pending resume frame was built from.
func (s *Session) trackSequenceLocked(e *Event) {
	if e.Sequence == nil || s.resumePending {
		return
	}
	s.sequence = *e.Sequence
	s.hasSequence = true
}

func (s *Session) debug(message string, fields ...zap.Field) {
	s.logger.Debug(message, fields...)
	if s.config.Handlers.Debug != nil {
		s.config.Handlers.Debug(message)
	}
}
