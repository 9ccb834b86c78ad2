package client

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"

	"github.com/yonatandev1/tsukuyomi/discord"
	"github.com/yonatandev1/tsukuyomi/gateway"
	"github.com/yonatandev1/tsukuyomi/internal/gatewaytest"
	"github.com/yonatandev1/tsukuyomi/rest"
	"github.com/yonatandev1/tsukuyomi/state"
)

func newTestClient(t *testing.T, srv *gatewaytest.Server, opts ...ConfigOpt) (*Client, <-chan Event) {
	t.Helper()

	opts = append([]ConfigOpt{
		WithGatewayURL(srv.URL()),
		WithGatewayConfigOpts(gateway.WithReconnectDelay(10 * time.Millisecond)),
	}, opts...)

	c := New("token", opts...)
	t.Cleanup(func() { _ = c.Close() })

	events := make(chan Event, 1024)
	c.AddListener(func(e Event) { events <- e })

	return c, events
}

// restServer answers REST calls in memory.
func restServer(t *testing.T, handler fasthttp.RequestHandler) ConfigOpt {
	t.Helper()

	ln := fasthttputil.NewInmemoryListener()
	server := &fasthttp.Server{Handler: handler}
	go server.Serve(ln) //nolint:errcheck
	t.Cleanup(func() { _ = ln.Close() })

	return WithRESTConfigOpts(
		rest.WithBaseURL("http://discord.test/api"),
		rest.WithHTTPClient(&fasthttp.Client{
			Dial: func(string) (net.Conn, error) { return ln.Dial() },
		}),
	)
}

func next[E Event](t *testing.T, events <-chan Event) E {
	t.Helper()

	deadline := time.After(gatewaytest.Timeout)
	for {
		select {
		case e := <-events:
			if event, ok := e.(E); ok {
				return event
			}
		case <-deadline:
			var zero E
			t.Fatalf("no %T emitted", zero)
			return zero
		}
	}
}

func login(t *testing.T, c *Client, srv *gatewaytest.Server, data map[string]any) *gatewaytest.Conn {
	t.Helper()

	errc := make(chan error, 1)
	go func() { errc <- c.Login(context.Background()) }()

	conn := srv.Accept()
	conn.Expect(gateway.OpIdentify)
	conn.Ready(1, "abc123", data)

	select {
	case err := <-errc:
		require.NoError(t, err)
	case <-time.After(gatewaytest.Timeout):
		t.Fatal("login did not return")
	}
	return conn
}

func memberCount(t *testing.T, c *Client, guildID discord.Snowflake) int {
	t.Helper()

	count := -1
	require.NoError(t, c.View(context.Background(), func(s *state.Cache) {
		if g, ok := s.Guild(guildID); ok {
			count = g.MemberCount
		}
	}))
	return count
}

func guild(id string, extra map[string]any) map[string]any {
	g := map[string]any{"id": id, "name": "guild " + id}
	for k, v := range extra {
		g[k] = v
	}
	return g
}

func TestLoginReady(t *testing.T) {
	srv := gatewaytest.NewServer(t)
	c, events := newTestClient(t, srv)

	login(t, c, srv, nil)

	ready := next[*ReadyEvent](t, events)
	require.NotNil(t, ready.User)
	assert.Equal(t, discord.Snowflake("1"), ready.User.ID)
	assert.Same(t, ready.User, c.User())
	assert.True(t, c.Ready())
	assert.Equal(t, "abc123", c.Gateway.SessionID())
}

func TestLoginFatalClose(t *testing.T) {
	srv := gatewaytest.NewServer(t)
	c, events := newTestClient(t, srv)

	errc := make(chan error, 1)
	go func() { errc <- c.Login(context.Background()) }()

	conn := srv.Accept()
	conn.Expect(gateway.OpIdentify)
	conn.CloseWith(gateway.CloseAuthenticationFailed, "Authentication failed.")

	var err error
	select {
	case err = <-errc:
	case <-time.After(gatewaytest.Timeout):
		t.Fatal("login did not return")
	}

	var closeErr *gateway.CloseError
	require.ErrorAs(t, err, &closeErr)
	assert.Equal(t, gateway.CloseAuthenticationFailed, closeErr.Code)
	assert.True(t, closeErr.Fatal())

	errEvent := next[*ErrorEvent](t, events)
	assert.ErrorAs(t, errEvent.Err, &closeErr)
	assert.False(t, c.Ready())

	srv.NoConnection(100 * time.Millisecond)
}

func TestLoginUsesGatewayURLFromAPI(t *testing.T) {
	srv := gatewaytest.NewServer(t)

	c := New("token", restServer(t, func(ctx *fasthttp.RequestCtx) {
		assert.Equal(t, "/api/v10/gateway", string(ctx.Path()))
		ctx.SetBodyString(`{"url":"` + srv.URL() + `"}`)
	}))
	t.Cleanup(func() { _ = c.Close() })

	login(t, c, srv, nil)
	assert.True(t, c.Ready())
}

func TestLoginAfterClose(t *testing.T) {
	srv := gatewaytest.NewServer(t)
	c, _ := newTestClient(t, srv)

	require.NoError(t, c.Close())
	require.ErrorIs(t, c.Login(context.Background()), ErrClosed)
}

func TestGuildDeleteUnavailableKeepsGuild(t *testing.T) {
	srv := gatewaytest.NewServer(t)
	c, events := newTestClient(t, srv)

	conn := login(t, c, srv, map[string]any{
		"guilds": []any{map[string]any{"id": "100", "unavailable": true}},
	})
	next[*ReadyEvent](t, events)

	conn.Dispatch("GUILD_CREATE", 2, guild("100", nil))
	available := next[*GuildAvailableEvent](t, events)
	assert.Equal(t, "guild 100", available.Guild.Name)
	assert.False(t, available.Guild.Unavailable)

	conn.Dispatch("GUILD_DELETE", 3, map[string]any{"id": "100", "unavailable": true})
	unavailable := next[*GuildUnavailableEvent](t, events)
	assert.Same(t, available.Guild, unavailable.Guild)
	assert.True(t, unavailable.Guild.Unavailable)

	g, ok := c.State.Guild("100")
	require.True(t, ok)
	assert.Same(t, available.Guild, g)
	assert.Equal(t, "guild 100", g.Name)
}

func TestGuildDeleteRemovesGuild(t *testing.T) {
	srv := gatewaytest.NewServer(t)
	c, events := newTestClient(t, srv)

	conn := login(t, c, srv, nil)
	next[*ReadyEvent](t, events)

	conn.Dispatch("GUILD_CREATE", 2, guild("100", map[string]any{
		"channels": []any{map[string]any{"id": "200", "type": 0, "name": "general"}},
	}))
	created := next[*GuildCreateEvent](t, events)
	_, ok := c.State.Channel("200")
	require.True(t, ok)

	conn.Dispatch("GUILD_DELETE", 3, map[string]any{"id": "100"})
	deleted := next[*GuildDeleteEvent](t, events)
	assert.NotSame(t, created.Guild, deleted.Guild)
	assert.Equal(t, "guild 100", deleted.Guild.Name)
	assert.Equal(t, 1, deleted.Guild.Channels.Len())

	_, ok = c.State.Guild("100")
	assert.False(t, ok)
	_, ok = c.State.Channel("200")
	assert.False(t, ok)
}

func TestReadyWaitsForGuildsWithMembersIntent(t *testing.T) {
	srv := gatewaytest.NewServer(t)
	intents := discord.IntentsNonPrivileged.Add(discord.IntentGuildMembers)
	c, events := newTestClient(t, srv,
		WithWaitGuildTimeout(150*time.Millisecond),
		WithGatewayConfigOpts(gateway.WithIntents(intents)),
	)

	errc := make(chan error, 1)
	start := time.Now()
	go func() { errc <- c.Login(context.Background()) }()

	conn := srv.Accept()
	conn.Expect(gateway.OpIdentify)

	conn.Ready(1, "abc123", map[string]any{
		"guilds": []any{map[string]any{"id": "100", "unavailable": true}},
	})
	conn.Dispatch("GUILD_CREATE", 2, guild("100", nil))

	select {
	case err := <-errc:
		require.NoError(t, err)
	case <-time.After(gatewaytest.Timeout):
		t.Fatal("login did not return")
	}
	assert.GreaterOrEqual(t, time.Since(start), 140*time.Millisecond)

	g, ok := c.State.Guild("100")
	require.True(t, ok)
	assert.False(t, g.Unavailable)

	next[*ReadyEvent](t, events)
	for len(events) > 0 {
		switch e := (<-events).(type) {
		case *GuildCreateEvent, *GuildAvailableEvent:
			t.Fatalf("bootstrap guild emitted as %T", e)
		}
	}
}

func TestMessageLifecycle(t *testing.T) {
	srv := gatewaytest.NewServer(t)
	c, events := newTestClient(t, srv)

	conn := login(t, c, srv, nil)
	next[*ReadyEvent](t, events)

	conn.Dispatch("GUILD_CREATE", 2, guild("100", map[string]any{
		"channels": []any{map[string]any{"id": "200", "type": 0, "name": "general"}},
	}))
	next[*GuildCreateEvent](t, events)

	author := map[string]any{"id": "300", "username": "kaguya"}
	conn.Dispatch("MESSAGE_CREATE", 3, map[string]any{
		"id": "400", "channel_id": "200", "guild_id": "100", "content": "first",
		"author": author, "member": map[string]any{"nick": "princess"},
	})
	created := next[*MessageCreateEvent](t, events)
	assert.Equal(t, "first", created.Message.Content)
	require.NotNil(t, created.Message.Member)
	assert.Equal(t, "princess", created.Message.Member.DisplayName())

	member, ok := c.State.Member("100", "300")
	require.True(t, ok)
	assert.Same(t, created.Message.Author, member.User)

	conn.Dispatch("MESSAGE_UPDATE", 4, map[string]any{"id": "400", "channel_id": "200", "content": "second"})
	updated := next[*MessageUpdateEvent](t, events)
	assert.Same(t, created.Message, updated.Message)
	assert.Equal(t, "first", updated.Old.Content)
	assert.Equal(t, "second", updated.Message.Content)

	conn.Dispatch("MESSAGE_DELETE", 5, map[string]any{"id": "400", "channel_id": "200", "guild_id": "100"})
	deleted := next[*MessageDeleteEvent](t, events)
	assert.Equal(t, discord.Snowflake("100"), deleted.GuildID)
	require.NotNil(t, deleted.Message)
	assert.Equal(t, "second", deleted.Message.Content)

	_, ok = c.State.Message("200", "400")
	assert.False(t, ok)
}

func TestMembersAndRoles(t *testing.T) {
	srv := gatewaytest.NewServer(t)
	c, events := newTestClient(t, srv)

	conn := login(t, c, srv, nil)
	next[*ReadyEvent](t, events)

	conn.Dispatch("GUILD_CREATE", 2, guild("100", map[string]any{"member_count": 1}))
	next[*GuildCreateEvent](t, events)

	conn.Dispatch("GUILD_ROLE_CREATE", 3, map[string]any{"guild_id": "100", "role": map[string]any{"id": "500", "name": "mod", "permissions": "8"}})
	role := next[*RoleCreateEvent](t, events).Role
	assert.True(t, role.Permissions.Has(discord.PermissionAdministrator))

	conn.Dispatch("GUILD_MEMBER_ADD", 4, map[string]any{"guild_id": "100", "user": map[string]any{"id": "300", "username": "kaguya"}})
	added := next[*GuildMemberAddEvent](t, events)
	assert.Equal(t, 2, memberCount(t, c, "100"))

	conn.Dispatch("GUILD_MEMBER_UPDATE", 5, map[string]any{"guild_id": "100", "user": map[string]any{"id": "300"}, "roles": []string{"500"}})
	updated := next[*GuildMemberUpdateEvent](t, events)
	assert.Same(t, added.Member, updated.Member)
	assert.False(t, updated.Old.HasRole("500"))
	assert.True(t, updated.Member.HasRole("500"))

	conn.Dispatch("GUILD_ROLE_DELETE", 6, map[string]any{"guild_id": "100", "role_id": "500"})
	assert.Equal(t, "mod", next[*RoleDeleteEvent](t, events).Role.Name)

	conn.Dispatch("GUILD_MEMBER_REMOVE", 7, map[string]any{"guild_id": "100", "user": map[string]any{"id": "300"}})
	removed := next[*GuildMemberRemoveEvent](t, events)
	assert.NotSame(t, added.Member, removed.Member)
	assert.Equal(t, discord.Snowflake("300"), removed.Member.ID())
	assert.Equal(t, 1, memberCount(t, c, "100"))

	_, ok := c.State.Member("100", "300")
	assert.False(t, ok)
}

func TestListenerPanicBecomesErrorEvent(t *testing.T) {
	srv := gatewaytest.NewServer(t)
	c, events := newTestClient(t, srv)

	On(c, func(e *ChannelCreateEvent) {
		if e.Channel.ID == "1" {
			panic("boom")
		}
	})

	conn := login(t, c, srv, nil)
	next[*ReadyEvent](t, events)

	conn.Dispatch("CHANNEL_CREATE", 2, map[string]any{"id": "1", "type": 1})
	errEvent := next[*ErrorEvent](t, events)
	assert.ErrorContains(t, errEvent.Err, "boom")

	conn.Dispatch("CHANNEL_CREATE", 3, map[string]any{"id": "2", "type": 1})
	assert.Equal(t, discord.Snowflake("2"), next[*ChannelCreateEvent](t, events).Channel.ID)
}

func TestUndecodableDispatchBecomesErrorEvent(t *testing.T) {
	srv := gatewaytest.NewServer(t)
	c, events := newTestClient(t, srv)

	conn := login(t, c, srv, nil)
	next[*ReadyEvent](t, events)

	conn.Dispatch("MESSAGE_CREATE", 2, []int{1, 2})
	errEvent := next[*ErrorEvent](t, events)
	assert.ErrorContains(t, errEvent.Err, "MESSAGE_CREATE")

	conn.Dispatch("SOMETHING_NEW", 3, map[string]any{})
	conn.Dispatch("USER_UPDATE", 4, map[string]any{"id": "1", "username": "renamed"})
	updated := next[*UserUpdateEvent](t, events)
	assert.Equal(t, "tsukuyomi", updated.Old.Username)
	assert.Equal(t, "renamed", c.User().Username)
}

func TestFreshReconnectResetsReady(t *testing.T) {
	srv := gatewaytest.NewServer(t)
	c, events := newTestClient(t, srv)

	readyDuringReconnect := make(chan bool, 1)
	On(c, func(e *ReconnectingEvent) {
		if !e.Resume {
			readyDuringReconnect <- c.Ready()
		}
	})

	conn := login(t, c, srv, nil)
	next[*ReadyEvent](t, events)

	conn.CloseWith(gateway.CloseSessionTimedOut, "")

	select {
	case ready := <-readyDuringReconnect:
		assert.False(t, ready)
	case <-time.After(gatewaytest.Timeout):
		t.Fatal("no reconnect")
	}

	conn = srv.Accept()
	conn.Expect(gateway.OpIdentify)
	conn.Ready(1, "def456", nil)
	next[*ReadyEvent](t, events)
	assert.True(t, c.Ready())
}

func TestResumeKeepsReady(t *testing.T) {
	srv := gatewaytest.NewServer(t)
	c, events := newTestClient(t, srv)

	conn := login(t, c, srv, nil)
	next[*ReadyEvent](t, events)

	conn.CloseWith(gateway.CloseUnknownError, "")
	assert.True(t, next[*ReconnectingEvent](t, events).Resume)
	assert.True(t, c.Ready())

	conn = srv.Accept()
	conn.Expect(gateway.OpResume)
	conn.Dispatch(gateway.EventResumed, 2, map[string]any{})

	conn.Dispatch("CHANNEL_CREATE", 3, map[string]any{"id": "2", "type": 1})
	next[*ChannelCreateEvent](t, events)
	assert.True(t, c.Ready())
}

func TestFetchReconcilesCache(t *testing.T) {
	srv := gatewaytest.NewServer(t)
	c, _ := newTestClient(t, srv, restServer(t, func(ctx *fasthttp.RequestCtx) {
		switch string(ctx.Path()) {
		case "/api/v10/channels/200":
			ctx.SetBodyString(`{"id":"200","type":0,"name":"general"}`)
		case "/api/v10/users/300":
			ctx.SetBodyString(`{"id":"300","username":"kaguya"}`)
		case "/api/v10/channels/200/messages":
			ctx.SetBodyString(`{"id":"400","channel_id":"200","content":"hello","author":{"id":"300"}}`)
		default:
			ctx.SetStatusCode(fasthttp.StatusNotFound)
			ctx.SetBodyString(`{"message":"Unknown","code":10000}`)
		}
	}))

	ctx := context.Background()

	ch, err := c.FetchChannel(ctx, "200")
	require.NoError(t, err)
	again, err := c.FetchChannel(ctx, "200")
	require.NoError(t, err)
	assert.Same(t, ch, again)

	u, err := c.FetchUser(ctx, "300")
	require.NoError(t, err)

	m, err := c.SendMessage(ctx, "200", MessageCreate{Content: "hello"})
	require.NoError(t, err)
	assert.Same(t, u, m.Author)
	cached, ok := ch.Messages.Get("400")
	require.True(t, ok)
	assert.Same(t, m, cached)

	_, err = c.FetchGuild(ctx, "999")
	assert.True(t, rest.IsNotFound(err))

	require.NoError(t, c.Close())
	detached, err := c.FetchUser(ctx, "300")
	require.NoError(t, err)
	assert.NotSame(t, u, detached)
	assert.Equal(t, 0, c.State.Users.Len())
}

func TestCloseUnblocksLogin(t *testing.T) {
	srv := gatewaytest.NewServer(t)
	c, _ := newTestClient(t, srv)

	errc := make(chan error, 1)
	go func() { errc <- c.Login(context.Background()) }()
	srv.Accept().Expect(gateway.OpIdentify)

	require.NoError(t, c.Close())

	select {
	case err := <-errc:
		assert.True(t, errors.Is(err, ErrClosed))
	case <-time.After(gatewaytest.Timeout):
		t.Fatal("login did not return")
	}
}

func TestFetchDuringCloseReturnsDetachedEntity(t *testing.T) {
	requested := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once

	srv := gatewaytest.NewServer(t)
	c, _ := newTestClient(t, srv, restServer(t, func(ctx *fasthttp.RequestCtx) {
		once.Do(func() { close(requested) })
		<-release
		ctx.SetBodyString(`{"id":"300","username":"kaguya"}`)
	}))

	type result struct {
		user *discord.User
		err  error
	}
	results := make(chan result, 1)
	go func() {
		u, err := c.FetchUser(context.Background(), "300")
		results <- result{u, err}
	}()

	<-requested
	require.NoError(t, c.Close())
	close(release)

	select {
	case r := <-results:
		require.NoError(t, r.err)
		assert.Equal(t, "kaguya", r.user.Username)
	case <-time.After(gatewaytest.Timeout):
		t.Fatal("fetch did not return")
	}

	_, ok := c.State.User("300")
	assert.False(t, ok)
}

func TestExecHonoursContext(t *testing.T) {
	srv := gatewaytest.NewServer(t)
	c, _ := newTestClient(t, srv)

	block := make(chan struct{})
	require.True(t, c.post(func() { <-block }))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ran := make(chan struct{})
	v, err := exec(ctx, c, func() int {
		close(ran)
		return 1
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, v)

	close(block)
	select {
	case <-ran:
	case <-time.After(gatewaytest.Timeout):
		t.Fatal("queued update never ran")
	}

	v, err = exec(context.Background(), c, func() int { return 2 })
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}

func TestExecAfterPanicReportsError(t *testing.T) {
	srv := gatewaytest.NewServer(t)
	c, events := newTestClient(t, srv)

	_, err := exec(context.Background(), c, func() *discord.User { panic("boom") })
	assert.Error(t, err)
	next[*ErrorEvent](t, events)
}
