package gateway

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yonatandev1/tsukuyomi/bitfield"
	"github.com/yonatandev1/tsukuyomi/discord"
	"github.com/yonatandev1/tsukuyomi/internal/gatewaytest"
	"github.com/yonatandev1/tsukuyomi/store"
)

type recorder struct {
	mu           sync.Mutex
	dispatches   []string
	reconnecting []bool
	closed       []*CloseError
}

func (r *recorder) handlers() Handlers {
	return Handlers{
		Dispatch: func(e *Event) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.dispatches = append(r.dispatches, e.Type)
		},
		Reconnecting: func(resume bool) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.reconnecting = append(r.reconnecting, resume)
		},
		Closed: func(err *CloseError) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.closed = append(r.closed, err)
		},
	}
}

func (r *recorder) closedErrors() []*CloseError {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*CloseError(nil), r.closed...)
}

func (r *recorder) reconnects() []bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]bool(nil), r.reconnecting...)
}

func newTestSession(t *testing.T, srv *gatewaytest.Server, opts ...ConfigOpt) (*Session, *recorder) {
	t.Helper()

	r := &recorder{}
	opts = append([]ConfigOpt{
		WithURL(srv.URL()),
		WithHandlers(r.handlers()),
		WithReconnectDelay(10 * time.Millisecond),
	}, opts...)

	s := New("token", opts...)
	t.Cleanup(func() { _ = s.Close() })

	return s, r
}

func waitState(t *testing.T, s *Session, state State) {
	t.Helper()
	require.Eventually(t, func() bool { return s.State() == state }, gatewaytest.Timeout, 5*time.Millisecond,
		"state is %s, want %s", s.State(), state)
}

// connectReady runs the handshake up to READY with the given session id.
func connectReady(t *testing.T, s *Session, srv *gatewaytest.Server, sessionID string) *gatewaytest.Conn {
	t.Helper()

	require.NoError(t, s.Connect(context.Background()))
	c := srv.Accept()
	c.Expect(OpIdentify)
	c.Ready(1, sessionID, nil)
	waitState(t, s, StateSteady)

	return c
}

func TestIdentifyThenReady(t *testing.T) {
	srv := gatewaytest.NewServer(t)
	intents := bitfield.New(discord.IntentGuilds, discord.IntentGuildMessages)
	s, r := newTestSession(t, srv, WithIntents(intents))

	require.NoError(t, s.Connect(context.Background()))
	c := srv.Accept()

	assert.Equal(t, "10", c.Query.Get("v"))
	assert.Equal(t, "json", c.Query.Get("encoding"))
	assert.Empty(t, c.Query.Get("compress"))

	f := c.Expect(OpIdentify)

	var identify identifyPayload
	require.NoError(t, json.Unmarshal(f.Data, &identify))
	assert.Equal(t, "token", identify.Token)
	assert.Equal(t, intents, identify.Intents)
	assert.False(t, identify.Compress)
	assert.Equal(t, 50, identify.LargeThreshold)
	assert.Equal(t, "tsukuyomi", identify.Properties.Browser)

	assert.Equal(t, StateIdentifying, s.State())

	c.Ready(1, "abc123", nil)
	waitState(t, s, StateSteady)

	assert.Equal(t, "abc123", s.SessionID())
	assert.Equal(t, srv.URL(), s.ResumeURL())
	sequence, ok := s.Sequence()
	assert.True(t, ok)
	assert.Equal(t, int64(1), sequence)

	require.Eventually(t, func() bool {
		r.mu.Lock()
		defer r.mu.Unlock()
		return len(r.dispatches) == 1 && r.dispatches[0] == EventReady
	}, time.Second, 5*time.Millisecond)

	assert.ErrorIs(t, s.Connect(context.Background()), ErrAlreadyConnected)
}

func TestResumableCloseResumes(t *testing.T) {
	srv := gatewaytest.NewServer(t)
	s, r := newTestSession(t, srv)

	c := connectReady(t, s, srv, "abc123")
	c.Dispatch("MESSAGE_CREATE", 42, map[string]any{"id": "1", "channel_id": "2"})
	require.Eventually(t, func() bool {
		seq, _ := s.Sequence()
		return seq == 42
	}, time.Second, 5*time.Millisecond)

	c.CloseWith(CloseUnknownError, "unknown error")

	c2 := srv.Accept()
	f := c2.Expect(OpResume)

	var resume resumePayload
	require.NoError(t, json.Unmarshal(f.Data, &resume))
	assert.Equal(t, "token", resume.Token)
	assert.Equal(t, "abc123", resume.SessionID)
	assert.Equal(t, int64(42), resume.Sequence)
	assert.Equal(t, []bool{true}, r.reconnects())

	c2.Dispatch(EventResumed, 43, nil)
	waitState(t, s, StateSteady)

	assert.Equal(t, "abc123", s.SessionID())
	seq, _ := s.Sequence()
	assert.Equal(t, int64(43), seq)
}

func TestFatalCloseDoesNotReconnect(t *testing.T) {
	srv := gatewaytest.NewServer(t)
	s, r := newTestSession(t, srv)

	require.NoError(t, s.Connect(context.Background()))
	c := srv.Accept()
	c.Expect(OpIdentify)

	c.CloseWith(CloseAuthenticationFailed, "Authentication failed.")

	require.Eventually(t, func() bool { return len(r.closedErrors()) == 1 }, gatewaytest.Timeout, 5*time.Millisecond)
	closeErr := r.closedErrors()[0]
	assert.Equal(t, CloseAuthenticationFailed, closeErr.Code)
	assert.True(t, closeErr.Fatal())

	srv.NoConnection(200 * time.Millisecond)
	assert.Equal(t, StateDisconnected, s.State())
	assert.Empty(t, r.reconnects())
	assert.Empty(t, s.SessionID())
}

func TestNormalCloseReidentifies(t *testing.T) {
	srv := gatewaytest.NewServer(t)
	s, r := newTestSession(t, srv)

	c := connectReady(t, s, srv, "abc123")
	c.CloseWith(CloseNormal, "")

	c2 := srv.Accept()
	c2.Expect(OpIdentify)

	assert.Empty(t, s.SessionID())
	_, ok := s.Sequence()
	assert.False(t, ok)
	assert.Equal(t, []bool{false}, r.reconnects())
}

func TestAutoReconnectDisabled(t *testing.T) {
	srv := gatewaytest.NewServer(t)
	s, r := newTestSession(t, srv, WithAutoReconnect(false))

	c := connectReady(t, s, srv, "abc123")
	c.CloseWith(CloseUnknownError, "")

	require.Eventually(t, func() bool { return len(r.closedErrors()) == 1 }, gatewaytest.Timeout, 5*time.Millisecond)
	assert.Equal(t, ActionResume, r.closedErrors()[0].Action)
	srv.NoConnection(100 * time.Millisecond)
	assert.Equal(t, StateDisconnected, s.State())

	// the session survives for an explicit reconnect
	require.NoError(t, s.Connect(context.Background()))
	srv.Accept().Expect(OpResume)
}

func TestReconnectOpcodeResumes(t *testing.T) {
	srv := gatewaytest.NewServer(t)
	s, _ := newTestSession(t, srv)

	c := connectReady(t, s, srv, "abc123")
	c.Send(map[string]any{"op": OpReconnect, "d": nil})

	assert.Equal(t, CloseReconnectRequested, c.WaitClosed())
	srv.Accept().Expect(OpResume)
}

func TestInvalidSession(t *testing.T) {
	srv := gatewaytest.NewServer(t)
	s, _ := newTestSession(t, srv)

	c := connectReady(t, s, srv, "abc123")
	c.Send(map[string]any{"op": OpInvalidSession, "d": true})
	assert.Equal(t, CloseInvalidSession, c.WaitClosed())

	c2 := srv.Accept()
	c2.Expect(OpResume)

	c2.Send(map[string]any{"op": OpInvalidSession, "d": false})
	c2.WaitClosed()

	srv.Accept().Expect(OpIdentify)
	assert.Empty(t, s.SessionID())
}

func TestHeartbeatRequest(t *testing.T) {
	srv := gatewaytest.NewServer(t)
	s, _ := newTestSession(t, srv)

	c := connectReady(t, s, srv, "abc123")
	c.Dispatch("MESSAGE_CREATE", 7, map[string]any{})
	require.Eventually(t, func() bool {
		seq, _ := s.Sequence()
		return seq == 7
	}, time.Second, 5*time.Millisecond)

	c.Send(map[string]any{"op": OpHeartbeat, "d": nil})
	f := c.Expect(OpHeartbeat)
	assert.JSONEq(t, "7", string(f.Data))

	require.Eventually(t, func() bool { return !s.Heartbeat().LastAck().IsZero() }, time.Second, 5*time.Millisecond)
}

func TestZombieConnectionResumes(t *testing.T) {
	srv := gatewaytest.NewServer(t)
	srv.SetHeartbeatInterval(20 * time.Millisecond)
	srv.SetAutoAck(false)

	s, r := newTestSession(t, srv, WithHeartbeatConfig(HeartbeatConfig{
		AckTimeout:  50 * time.Millisecond,
		Grace:       time.Hour,
		SecondGrace: time.Hour,
	}))

	c := connectReady(t, s, srv, "abc123")

	c.Expect(OpHeartbeat)
	assert.Equal(t, CloseZombie, c.WaitClosed())

	srv.SetAutoAck(true)
	c2 := srv.Accept()
	c2.Expect(OpResume)

	assert.Equal(t, []bool{true}, r.reconnects())
}

func TestSendBeforeConnect(t *testing.T) {
	s := New("token")
	err := s.Send(context.Background(), frame{OpHeartbeat, nil})
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.Equal(t, StateDisconnected, s.State())
}

func TestSequenceFrozenWhileResumePending(t *testing.T) {
	s := New("token")
	seq := func(v int64) *Event { return &Event{Sequence: &v} }

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := int64(1); i <= 42; i++ {
		s.trackSequenceLocked(seq(i))
	}
	assert.Equal(t, int64(42), s.sequence)

	s.resumePending = true
	s.trackSequenceLocked(seq(50))
	assert.Equal(t, int64(42), s.sequence)

	s.resumePending = false
	s.trackSequenceLocked(&Event{})
	assert.Equal(t, int64(42), s.sequence)
	s.trackSequenceLocked(seq(43))
	assert.Equal(t, int64(43), s.sequence)
}

func TestResumeFromStore(t *testing.T) {
	srv := gatewaytest.NewServer(t)
	memory := store.NewMemoryStore(0)
	require.NoError(t, memory.Save(context.Background(), "bot", &store.ResumeState{
		SessionID: "abc123",
		Sequence:  42,
		ResumeURL: srv.URL(),
	}))

	s, _ := newTestSession(t, srv, WithStore(memory, "bot"))
	require.NoError(t, s.Connect(context.Background()))

	c := srv.Accept()
	var resume resumePayload
	require.NoError(t, json.Unmarshal(c.Expect(OpResume).Data, &resume))
	assert.Equal(t, "abc123", resume.SessionID)
	assert.Equal(t, int64(42), resume.Sequence)

	// the server refuses: the stored state is dropped
	c.Send(map[string]any{"op": OpInvalidSession, "d": false})
	srv.Accept().Expect(OpIdentify)

	_, err := memory.Load(context.Background(), "bot")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestReadyPersistsState(t *testing.T) {
	srv := gatewaytest.NewServer(t)
	memory := store.NewMemoryStore(0)

	s, _ := newTestSession(t, srv, WithStore(memory, "bot"))
	connectReady(t, s, srv, "abc123")

	var state *store.ResumeState
	require.Eventually(t, func() bool {
		var err error
		state, err = memory.Load(context.Background(), "bot")
		return err == nil
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, "abc123", state.SessionID)
	assert.Equal(t, srv.URL(), state.ResumeURL)

	require.NoError(t, s.CloseResumable())
	state, err := memory.Load(context.Background(), "bot")
	require.NoError(t, err)
	assert.Equal(t, "abc123", state.SessionID)
}

func TestClose(t *testing.T) {
	srv := gatewaytest.NewServer(t)
	s, r := newTestSession(t, srv)

	c := connectReady(t, s, srv, "abc123")

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	assert.Equal(t, CloseNormal, c.WaitClosed())
	srv.NoConnection(100 * time.Millisecond)

	assert.Equal(t, StateDisconnected, s.State())
	assert.Empty(t, s.SessionID())
	assert.Empty(t, r.reconnects())
	assert.False(t, s.Heartbeat().Running())
	assert.ErrorIs(t, s.Send(context.Background(), frame{OpHeartbeat, nil}), ErrNotConnected)
}

func TestCompressedStream(t *testing.T) {
	srv := gatewaytest.NewServer(t)
	s, _ := newTestSession(t, srv, WithCompress(true))

	require.NoError(t, s.Connect(context.Background()))
	c := srv.Accept()
	assert.Equal(t, "zlib-stream", c.Query.Get("compress"))

	c.Expect(OpIdentify)
	c.Ready(1, "abc123", nil)
	waitState(t, s, StateSteady)

	c.Dispatch("MESSAGE_CREATE", 2, map[string]any{"content": "hi"})
	require.Eventually(t, func() bool {
		seq, _ := s.Sequence()
		return seq == 2
	}, time.Second, 5*time.Millisecond)
}

func TestRequestGuildMembers(t *testing.T) {
	srv := gatewaytest.NewServer(t)
	s, _ := newTestSession(t, srv)

	c := connectReady(t, s, srv, "abc123")
	require.NoError(t, s.RequestGuildMembers(context.Background(), RequestGuildMembers{GuildID: "10", Nonce: "n"}))

	f := c.Expect(OpRequestGuildMembers)
	assert.JSONEq(t, `{"guild_id":"10","query":"","limit":0,"nonce":"n"}`, string(f.Data))
}

func TestHelloWithoutIntervalIsDropped(t *testing.T) {
	srv := gatewaytest.NewServer(t)
	srv.SetHeartbeatInterval(0)
	s, _ := newTestSession(t, srv)

	require.NoError(t, s.Connect(context.Background()))
	c := srv.Accept()

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, StateAwaitingHello, s.State())
	assert.False(t, s.Heartbeat().Running())

	c.Send(map[string]any{"op": OpHello, "d": map[string]any{"heartbeat_interval": 41250}})
	c.Expect(OpIdentify)
	assert.True(t, s.Heartbeat().Running())
	assert.Equal(t, 41250*time.Millisecond, s.Heartbeat().Interval())
}
