package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/yonatandev1/tsukuyomi/decoder"
	"github.com/yonatandev1/tsukuyomi/store"
)

const writeWait = 5 * time.Second

// Connect opens the connection and returns once the socket is up; the
// handshake continues in the background. The first Connect loads any resume
// state persisted by a previous process.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.conn != nil {
		s.mu.Unlock()
		return ErrAlreadyConnected
	}
	if s.ctx == nil || s.closed {
		s.ctx, s.cancel = context.WithCancel(context.Background())
		s.closed = false
	}
	restore := !s.restored && s.config.Store != nil
	s.restored = true
	s.mu.Unlock()

	if restore {
		s.restore(ctx)
	}

	return s.connect(ctx)
}

func (s *Session) restore(ctx context.Context) {
	state, err := s.config.Store.Load(ctx, s.config.StoreKey)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.logger.Warn("could not load resume state", zap.Error(err))
		}
		return
	}

	s.mu.Lock()
	s.sessionID = state.SessionID
	s.sequence = state.Sequence
	s.hasSequence = true
	s.resumeURL = state.ResumeURL
	s.shouldResume = state.SessionID != ""
	s.mu.Unlock()

	s.debug(fmt.Sprintf("restored session %s at sequence %d", state.SessionID, state.Sequence))
}

func (s *Session) gatewayURL() (string, error) {
	base := s.config.URL
	if s.shouldResume && s.resumeURL != "" {
		base = s.resumeURL
	}

	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("gateway: invalid url %q: %w", base, err)
	}
	if u.Path == "" {
		u.Path = "/"
	}

	query := u.Query()
	query.Set("v", strconv.Itoa(s.config.Version))
	query.Set("encoding", "json")
	if s.config.Compress {
		query.Set("compress", "zlib-stream")
	}
	u.RawQuery = query.Encode()

	return u.String(), nil
}

func (s *Session) connect(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.conn != nil {
		s.mu.Unlock()
		return ErrAlreadyConnected
	}
	s.state = StateConnecting
	gatewayURL, err := s.gatewayURL()
	s.mu.Unlock()

	if err != nil {
		return err
	}

	s.debug(fmt.Sprintf("connecting to %s", gatewayURL))

	header := http.Header{}
	header.Set("User-Agent", userAgent)

	conn, _, err := s.config.Dialer.DialContext(ctx, gatewayURL, header)
	if err != nil {
		s.mu.Lock()
		if s.conn == nil && !s.closed {
			s.state = StateDisconnected
		}
		s.mu.Unlock()
		return fmt.Errorf("gateway: dial: %w", err)
	}

	var dec decoder.FrameDecoder
	if s.config.Compress {
		dec = decoder.NewStream()
	} else {
		dec = decoder.New()
	}

	s.mu.Lock()
	if s.closed || s.conn != nil {
		closed := s.closed
		s.mu.Unlock()
		_ = conn.Close()
		_ = dec.Close()
		if closed {
			return ErrClosed
		}
		return ErrAlreadyConnected
	}
	listening := make(chan struct{})
	s.conn = conn
	s.decoder = dec
	s.listening = listening
	s.state = StateAwaitingHello
	s.mu.Unlock()

	s.config.RateLimiter.Reset()

	go s.listen(conn, dec, listening)

	return nil
}

func (s *Session) listen(conn *websocket.Conn, dec decoder.FrameDecoder, listening <-chan struct{}) {
	for {
		messageType, message, err := conn.ReadMessage()
		if err != nil {
			code, reason := CloseAbnormal, err.Error()

			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) {
				code, reason = closeErr.Code, closeErr.Text
			}

			s.disconnect(conn, code, reason, ClassifyCloseCode(code), false)
			return
		}

		select {
		case <-listening:
			return
		default:
		}

		e, err := dec.Decode(messageType, message)
		if err != nil {
			s.config.Metrics.DecodeError()
			s.debug(fmt.Sprintf("dropping frame: %v", err))
			continue
		}
		if e == nil {
			continue
		}

		s.onEvent(conn, e)
	}
}

func (s *Session) onEvent(conn *websocket.Conn, e *Event) {
	switch e.Operation {
	case OpHello:
		s.onHello(conn, e)

	case OpHeartbeat:
		s.debug("heartbeat requested by the server")
		if err := s.heartbeat.Beat(); err != nil {
			s.debug(fmt.Sprintf("could not send requested heartbeat: %v", err))
		}

	case OpHeartbeatAck:
		latency := s.heartbeat.Ack()
		s.config.Metrics.ObservePing(latency)
		s.logger.Debug("heartbeat acknowledged", zap.Duration("latency", latency))

	case OpReconnect:
		s.debug("reconnect requested by the server")
		s.disconnect(conn, CloseReconnectRequested, "", ActionResume, true)

	case OpInvalidSession:
		var resumable bool
		_ = json.Unmarshal(e.RawData, &resumable)

		action := ActionReconnect
		if resumable {
			action = ActionResume
		}

		s.debug(fmt.Sprintf("session invalidated, resumable: %t", resumable))
		s.disconnect(conn, CloseInvalidSession, "", action, true)

	case OpDispatch:
		s.onDispatch(conn, e)

	default:
		s.debug(fmt.Sprintf("ignoring opcode %d", e.Operation))
	}
}

func (s *Session) onHello(conn *websocket.Conn, e *Event) {
	var hello helloPayload
	if err := json.Unmarshal(e.RawData, &hello); err != nil {
		s.debug(fmt.Sprintf("dropping malformed hello: %v", err))
		return
	}

	interval := time.Duration(hello.HeartbeatInterval) * time.Millisecond
	if interval <= 0 {
		s.debug(fmt.Sprintf("dropping hello with heartbeat interval %d", hello.HeartbeatInterval))
		return
	}

	s.mu.Lock()
	if s.conn != conn {
		s.mu.Unlock()
		return
	}

	s.heartbeat.Start(interval)

	var payload frame
	resume := s.shouldResume && s.sessionID != "" && s.hasSequence
	if resume {
		s.state = StateResuming
		s.resumePending = true
		payload = frame{OpResume, resumePayload{
			Token:     s.token,
			SessionID: s.sessionID,
			Sequence:  s.sequence,
		}}
	} else {
		s.state = StateIdentifying
		s.clearSessionLocked()
		payload = frame{OpIdentify, identifyPayload{
			Token:          s.token,
			Intents:        s.config.Intents,
			Properties:     s.config.Properties,
			Compress:       false,
			LargeThreshold: s.config.LargeThreshold,
		}}
	}
	sessionID, sequence := s.sessionID, s.sequence
	s.mu.Unlock()

	if resume {
		s.debug(fmt.Sprintf("hello received (heartbeat every %s), resuming session %s at sequence %d", interval, sessionID, sequence))
	} else {
		s.debug(fmt.Sprintf("hello received (heartbeat every %s), identifying", interval))
	}

	err := s.Send(s.lifetime(), payload)

	if resume {
		s.mu.Lock()
		if s.conn == conn {
			s.resumePending = false
		}
		s.mu.Unlock()
	}

	if err != nil {
		s.debug(fmt.Sprintf("could not send handshake: %v", err))
	}
}

func (s *Session) onDispatch(conn *websocket.Conn, e *Event) {
	s.mu.Lock()
	if s.conn != conn {
		s.mu.Unlock()
		return
	}

	s.trackSequenceLocked(e)

	var persist bool
	switch e.Type {
	case EventReady:
		var ready readyPayload
		if err := json.Unmarshal(e.RawData, &ready); err == nil {
			s.sessionID = ready.SessionID
			s.resumeURL = ready.ResumeGatewayURL
		}
		s.state = StateSteady
		s.shouldResume = false
		persist = true

	case EventResumed:
		s.state = StateSteady
		s.shouldResume = false
	}
	sessionID := s.sessionID
	s.mu.Unlock()

	switch e.Type {
	case EventReady:
		s.logger.Info("session ready", zap.String("session_id", sessionID))
		s.debug(fmt.Sprintf("session %s ready", sessionID))
	case EventResumed:
		s.debug(fmt.Sprintf("session %s resumed", sessionID))
	}

	if persist {
		s.saveResumeState()
	}

	s.config.Metrics.Dispatch(e.Type)

	if s.config.Handlers.Dispatch != nil {
		s.config.Handlers.Dispatch(e)
	}
}

// disconnect tears conn down and acts on the close. Only the first call for
// a given conn does anything. local is set when we close the socket
// ourselves and the server must be told the code.
func (s *Session) disconnect(conn *websocket.Conn, code int, reason string, action CloseAction, local bool) {
	s.mu.Lock()
	if s.conn != conn || conn == nil {
		s.mu.Unlock()
		return
	}

	s.heartbeat.Stop()

	close(s.listening)
	dec := s.decoder
	s.conn, s.decoder, s.listening = nil, nil, nil
	s.state = StateClosing

	switch action {
	case ActionResume:
		s.shouldResume = s.sessionID != "" && s.hasSequence
	default:
		s.clearSessionLocked()
	}
	resume := s.shouldResume

	reconnect := s.config.AutoReconnect && !s.closed && action != ActionFatal
	if reconnect {
		s.state = StateReconnecting
	} else {
		s.state = StateDisconnected
	}
	ctx := s.ctx
	s.mu.Unlock()

	s.config.RateLimiter.Close()

	if local {
		s.writeMu.Lock()
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(writeWait))
		s.writeMu.Unlock()
	}
	_ = conn.Close()
	_ = dec.Close()

	s.config.Metrics.Close(code, action.String())

	if !resume {
		s.deleteResumeState()
	}

	closeErr := &CloseError{Code: code, Reason: reason, Action: action}
	s.debug(fmt.Sprintf("connection closed with code %d (%s), action: %s", code, DescribeCloseCode(code), action))

	if !reconnect {
		if action == ActionFatal {
			s.logger.Error("session closed for good", zap.Error(closeErr))
		}
		if s.config.Handlers.Closed != nil {
			s.config.Handlers.Closed(closeErr)
		}
		return
	}

	s.config.Metrics.Reconnect(resume)
	if s.config.Handlers.Reconnecting != nil {
		s.config.Handlers.Reconnecting(resume)
	}

	go s.reconnect(ctx)
}

func (s *Session) reconnect(ctx context.Context) {
	for attempt := 1; ; attempt++ {
		if ctx.Err() != nil {
			return
		}

		err := s.connect(ctx)
		if err == nil || errors.Is(err, ErrClosed) || errors.Is(err, ErrAlreadyConnected) {
			return
		}

		s.debug(fmt.Sprintf("reconnect attempt %d failed: %v, retrying in %s", attempt, err, s.config.ReconnectDelay))

		t := time.NewTimer(s.config.ReconnectDelay)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
	}
}

func (s *Session) onZombie() {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()

	s.config.Metrics.Zombie()
	s.debug("heartbeat not acknowledged, closing zombie connection")
	s.disconnect(conn, CloseZombie, "", ClassifyCloseCode(CloseZombie), true)
}

// Close ends the session with a normal closure, which invalidates it on the
// server, and forgets the session. Reconnect attempts in flight are cancelled.
func (s *Session) Close() error {
	return s.close(CloseNormal, false)
}

// CloseResumable disconnects but keeps the session resumable, in memory and
// in the store, so a later Connect (or another process) can resume it.
func (s *Session) CloseResumable() error {
	return s.close(CloseReconnectRequested, true)
}

func (s *Session) close(code int, keepSession bool) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true

	s.heartbeat.Stop()

	conn, dec := s.conn, s.decoder
	if s.listening != nil {
		close(s.listening)
	}
	s.conn, s.decoder, s.listening = nil, nil, nil
	s.state = StateDisconnected

	if keepSession {
		s.shouldResume = s.sessionID != "" && s.hasSequence
	} else {
		s.clearSessionLocked()
	}

	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.config.RateLimiter.Close()

	var err error
	if conn != nil {
		s.writeMu.Lock()
		err = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, ""), time.Now().Add(writeWait))
		s.writeMu.Unlock()
		_ = conn.Close()
		_ = dec.Close()
	}

	if keepSession {
		s.saveResumeState()
	} else {
		s.deleteResumeState()
	}

	s.debug(fmt.Sprintf("session closed with code %d", code))

	if err != nil && !errors.Is(err, websocket.ErrCloseSent) {
		return fmt.Errorf("gateway: close: %w", err)
	}
	return nil
}

// Send writes one frame. It waits for the command rate limit and fails with
// ErrNotConnected when there is no open socket.
func (s *Session) Send(ctx context.Context, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("gateway: encode: %w", err)
	}

	s.mu.Lock()
	connected := s.conn != nil
	s.mu.Unlock()

	if !connected {
		return ErrNotConnected
	}

	if err := s.config.RateLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("gateway: rate limiter: %w", err)
	}
	defer s.config.RateLimiter.Unlock()

	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()

	if conn == nil {
		return ErrNotConnected
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, data)
}

func (s *Session) sendHeartbeat() error {
	s.mu.Lock()
	var sequence *int64
	if s.hasSequence {
		value := s.sequence
		sequence = &value
	}
	s.mu.Unlock()

	if err := s.Send(s.lifetime(), frame{OpHeartbeat, sequence}); err != nil {
		return err
	}

	s.saveResumeState()
	return nil
}

// RequestGuildMembers asks for the members of a guild. They arrive as
// GUILD_MEMBERS_CHUNK dispatches.
func (s *Session) RequestGuildMembers(ctx context.Context, request RequestGuildMembers) error {
	if request.Query == nil && len(request.UserIDs) == 0 {
		query := ""
		request.Query = &query
	}
	return s.Send(ctx, frame{OpRequestGuildMembers, request})
}

func (s *Session) lifetime() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx == nil {
		return context.Background()
	}
	return s.ctx
}

func (s *Session) saveResumeState() {
	if s.config.Store == nil {
		return
	}

	s.mu.Lock()
	state := &store.ResumeState{
		SessionID: s.sessionID,
		Sequence:  s.sequence,
		ResumeURL: s.resumeURL,
	}
	s.mu.Unlock()

	if state.SessionID == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeWait)
	defer cancel()

	if err := s.config.Store.Save(ctx, s.config.StoreKey, state); err != nil {
		s.logger.Warn("could not save resume state", zap.Error(err))
	}
}

func (s *Session) deleteResumeState() {
	if s.config.Store == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeWait)
	defer cancel()

	if err := s.config.Store.Delete(ctx, s.config.StoreKey); err != nil {
		s.logger.Warn("could not delete resume state", zap.Error(err))
	}
}
