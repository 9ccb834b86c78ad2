// Package gatewaytest runs an in-process gateway for tests. It speaks just
// enough of the protocol to drive a session through its states.
package gatewaytest

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/json-iterator/go"
	"github.com/klauspost/compress/zlib"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Timeout bounds every wait of the helpers.
const Timeout = 5 * time.Second

// Frame is a frame sent by the client.
type Frame struct {
	Op   int                 `json:"op"`
	Data jsoniter.RawMessage `json:"d"`
}

type Server struct {
	t   testing.TB
	srv *httptest.Server

	// HeartbeatInterval is announced in hello (default 41250ms).
	HeartbeatInterval time.Duration
	// AutoAck acknowledges every heartbeat (default true).
	AutoAck bool

	mu    sync.Mutex
	conns chan *Conn
}

// NewServer starts a server that is shut down when the test ends. Change
// settings through the setters once clients may be connected.
func NewServer(t testing.TB) *Server {
	s := &Server{
		t:                 t,
		HeartbeatInterval: 41250 * time.Millisecond,
		AutoAck:           true,
		conns:             make(chan *Conn, 16),
	}

	s.srv = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.srv.Close)

	return s
}

// URL is the ws:// address of the server.
func (s *Server) URL() string {
	return "ws" + strings.TrimPrefix(s.srv.URL, "http")
}

func (s *Server) settings() (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.HeartbeatInterval, s.AutoAck
}

// SetHeartbeatInterval changes the interval announced to later connections.
func (s *Server) SetHeartbeatInterval(interval time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.HeartbeatInterval = interval
}

// SetAutoAck changes whether heartbeats are acknowledged, also for open
// connections.
func (s *Server) SetAutoAck(autoAck bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.AutoAck = autoAck
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	c := &Conn{
		ws:     ws,
		Query:  r.URL.Query(),
		frames: make(chan Frame, 64),
		closed: make(chan struct{}),
		server: s,
	}
	if c.Query.Get("compress") == "zlib-stream" {
		c.zw = zlib.NewWriter(&c.buf)
	}

	interval, _ := s.settings()
	c.Send(map[string]any{"op": 10, "d": map[string]any{"heartbeat_interval": interval.Milliseconds()}})

	s.conns <- c
	c.read()
}

// Accept returns the next connection, failing the test after Timeout.
func (s *Server) Accept() *Conn {
	s.t.Helper()

	select {
	case c := <-s.conns:
		return c
	case <-time.After(Timeout):
		s.t.Fatal("gatewaytest: no connection")
		return nil
	}
}

// NoConnection fails the test if a client connects within d.
func (s *Server) NoConnection(d time.Duration) {
	s.t.Helper()

	select {
	case c := <-s.conns:
		s.t.Fatalf("gatewaytest: unexpected connection with query %v", c.Query)
	case <-time.After(d):
	}
}

type Conn struct {
	ws     *websocket.Conn
	server *Server

	// Query holds the query parameters of the upgrade request.
	Query url.Values

	writeMu sync.Mutex
	zw      *zlib.Writer
	buf     bytes.Buffer

	frames    chan Frame
	closed    chan struct{}
	closeCode int
}

func (c *Conn) read() {
	defer close(c.closed)
	defer close(c.frames)

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) {
				c.closeCode = closeErr.Code
			}
			return
		}

		var f Frame
		if err := json.Unmarshal(data, &f); err != nil {
			continue
		}

		if _, autoAck := c.server.settings(); f.Op == 1 && autoAck {
			c.Send(map[string]any{"op": 11})
		}

		select {
		case c.frames <- f:
		default:
		}
	}
}

// Send writes v as JSON, compressed when the client asked for zlib-stream.
func (c *Conn) Send(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.zw == nil {
		_ = c.ws.WriteMessage(websocket.TextMessage, data)
		return
	}

	c.buf.Reset()
	_, _ = c.zw.Write(data)
	_ = c.zw.Flush()
	_ = c.ws.WriteMessage(websocket.BinaryMessage, c.buf.Bytes())
}

func (c *Conn) Dispatch(event string, sequence int64, data any) {
	c.Send(map[string]any{"op": 0, "t": event, "s": sequence, "d": data})
}

// Ready dispatches READY with the given session id. The resume URL points
// back at this server.
func (c *Conn) Ready(sequence int64, sessionID string, data map[string]any) {
	if data == nil {
		data = map[string]any{}
	}
	data["session_id"] = sessionID
	data["resume_gateway_url"] = c.server.URL()
	if _, ok := data["user"]; !ok {
		data["user"] = map[string]any{"id": "1", "username": "tsukuyomi", "bot": true}
	}
	if _, ok := data["guilds"]; !ok {
		data["guilds"] = []any{}
	}
	c.Dispatch("READY", sequence, data)
}

// CloseWith sends a close frame with code and drops the connection.
func (c *Conn) CloseWith(code int, reason string) {
	c.writeMu.Lock()
	_ = c.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(time.Second))
	c.writeMu.Unlock()

	_ = c.ws.Close()
}

// Expect returns the next frame with the given opcode, skipping others.
func (c *Conn) Expect(op int) Frame {
	c.server.t.Helper()

	deadline := time.After(Timeout)
	for {
		select {
		case f, ok := <-c.frames:
			if !ok {
				c.server.t.Fatalf("gatewaytest: connection closed while waiting for op %d", op)
			}
			if f.Op == op {
				return f
			}
		case <-deadline:
			c.server.t.Fatalf("gatewaytest: no frame with op %d", op)
		}
	}
}

// WaitClosed waits for the client to go away and returns the close code it
// sent, or 0 when it sent none.
func (c *Conn) WaitClosed() int {
	c.server.t.Helper()

	select {
	case <-c.closed:
		return c.closeCode
	case <-time.After(Timeout):
		c.server.t.Fatal("gatewaytest: connection still open")
		return 0
	}
}
