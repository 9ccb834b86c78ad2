package client

import (
	"fmt"

	"github.com/json-iterator/go"

	"github.com/yonatandev1/tsukuyomi/discord"
	"github.com/yonatandev1/tsukuyomi/gateway"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// route applies one dispatch to the cache and emits the matching event.
// Before Ready the cache is still updated but nothing is emitted.
func (c *Client) route(e *gateway.Event) error {
	switch e.Type {
	case gateway.EventReady:
		var p discord.ReadyPayload
		if err := decode(e, &p); err != nil {
			return err
		}
		c.onReady(&p)

	case gateway.EventResumed:
		// A session restored from the store never sees READY.
		if !c.ready {
			c.scheduleReady()
		}

	case "GUILD_CREATE":
		var p discord.GuildPayload
		if err := decode(e, &p); err != nil {
			return err
		}
		old, cached := c.State.Guild(p.ID)
		wasUnavailable := cached && old.Unavailable
		if p.Unavailable == nil {
			available := false
			p.Unavailable = &available
		}
		g := c.State.AddGuild(&p)
		if wasUnavailable {
			c.dispatch(&GuildAvailableEvent{Guild: g})
		} else {
			c.dispatch(&GuildCreateEvent{Guild: g})
		}

	case "GUILD_UPDATE":
		var p discord.GuildPayload
		if err := decode(e, &p); err != nil {
			return err
		}
		var old *discord.Guild
		if g, ok := c.State.Guild(p.ID); ok {
			old = g.Clone()
		}
		c.dispatch(&GuildUpdateEvent{Old: old, Guild: c.State.AddGuild(&p)})

	case "GUILD_DELETE":
		var p discord.UnavailableGuildPayload
		if err := decode(e, &p); err != nil {
			return err
		}
		if p.Unavailable {
			unavailable := true
			g := c.State.AddGuild(&discord.GuildPayload{ID: p.ID, Unavailable: &unavailable})
			c.dispatch(&GuildUnavailableEvent{Guild: g})
			return nil
		}
		if g, ok := c.State.RemoveGuild(p.ID); ok {
			c.dispatch(&GuildDeleteEvent{Guild: g})
		}

	case "CHANNEL_CREATE":
		var p discord.ChannelPayload
		if err := decode(e, &p); err != nil {
			return err
		}
		c.dispatch(&ChannelCreateEvent{Channel: c.State.AddChannel(&p)})

	case "CHANNEL_UPDATE":
		var p discord.ChannelPayload
		if err := decode(e, &p); err != nil {
			return err
		}
		var old *discord.Channel
		if ch, ok := c.State.Channel(p.ID); ok {
			old = ch.Clone()
		}
		c.dispatch(&ChannelUpdateEvent{Old: old, Channel: c.State.AddChannel(&p)})

	case "CHANNEL_DELETE":
		var p discord.ChannelPayload
		if err := decode(e, &p); err != nil {
			return err
		}
		ch, ok := c.State.RemoveChannel(p.ID)
		if !ok {
			ch = discord.NewChannel(&p)
		}
		c.dispatch(&ChannelDeleteEvent{Channel: ch})

	case "GUILD_MEMBER_ADD":
		var p discord.MemberPayload
		if err := decode(e, &p); err != nil {
			return err
		}
		m := c.State.AddMember(p.GuildID, &p)
		if g, ok := c.State.Guild(p.GuildID); ok {
			g.MemberCount++
		}
		c.dispatch(&GuildMemberAddEvent{Member: m})

	case "GUILD_MEMBER_UPDATE":
		var p discord.MemberPayload
		if err := decode(e, &p); err != nil {
			return err
		}
		var old *discord.Member
		if p.User != nil {
			if m, ok := c.State.Member(p.GuildID, p.User.ID); ok {
				old = m.Clone()
			}
		}
		c.dispatch(&GuildMemberUpdateEvent{Old: old, Member: c.State.AddMember(p.GuildID, &p)})

	case "GUILD_MEMBER_REMOVE":
		var p discord.GuildMemberRemovePayload
		if err := decode(e, &p); err != nil {
			return err
		}
		m, ok := c.State.RemoveMember(p.GuildID, p.User.ID)
		if !ok {
			m = discord.NewMember(p.GuildID, c.State.AddUser(&p.User), &discord.MemberPayload{})
		}
		if g, ok := c.State.Guild(p.GuildID); ok && g.MemberCount > 0 {
			g.MemberCount--
		}
		c.dispatch(&GuildMemberRemoveEvent{GuildID: p.GuildID, Member: m})

	case "GUILD_MEMBERS_CHUNK":
		var p discord.GuildMembersChunkPayload
		if err := decode(e, &p); err != nil {
			return err
		}
		members := make([]*discord.Member, 0, len(p.Members))
		for i := range p.Members {
			members = append(members, c.State.AddMember(p.GuildID, &p.Members[i]))
		}
		c.dispatch(&GuildMembersChunkEvent{
			GuildID:    p.GuildID,
			Members:    members,
			ChunkIndex: p.ChunkIndex,
			ChunkCount: p.ChunkCount,
			NotFound:   p.NotFound,
			Nonce:      p.Nonce,
		})

	case "GUILD_ROLE_CREATE":
		var p discord.GuildRolePayload
		if err := decode(e, &p); err != nil {
			return err
		}
		c.dispatch(&RoleCreateEvent{Role: c.State.AddRole(p.GuildID, &p.Role)})

	case "GUILD_ROLE_UPDATE":
		var p discord.GuildRolePayload
		if err := decode(e, &p); err != nil {
			return err
		}
		var old *discord.Role
		if r, ok := c.State.Role(p.GuildID, p.Role.ID); ok {
			old = r.Clone()
		}
		c.dispatch(&RoleUpdateEvent{Old: old, Role: c.State.AddRole(p.GuildID, &p.Role)})

	case "GUILD_ROLE_DELETE":
		var p discord.GuildRoleDeletePayload
		if err := decode(e, &p); err != nil {
			return err
		}
		if r, ok := c.State.RemoveRole(p.GuildID, p.RoleID); ok {
			c.dispatch(&RoleDeleteEvent{Role: r})
		}

	case "MESSAGE_CREATE":
		var p discord.MessagePayload
		if err := decode(e, &p); err != nil {
			return err
		}
		c.dispatch(&MessageCreateEvent{Message: c.State.AddMessage(&p)})

	case "MESSAGE_UPDATE":
		var p discord.MessagePayload
		if err := decode(e, &p); err != nil {
			return err
		}
		var old *discord.Message
		if m, ok := c.State.Message(p.ChannelID, p.ID); ok {
			old = m.Clone()
		}
		c.dispatch(&MessageUpdateEvent{Old: old, Message: c.State.AddMessage(&p)})

	case "MESSAGE_DELETE":
		var p discord.MessageDeletePayload
		if err := decode(e, &p); err != nil {
			return err
		}
		event := &MessageDeleteEvent{ID: p.ID, ChannelID: p.ChannelID}
		if p.GuildID != nil {
			event.GuildID = *p.GuildID
		}
		if m, ok := c.State.RemoveMessage(p.ChannelID, p.ID); ok {
			event.Message = m
		}
		c.dispatch(event)

	case "INTERACTION_CREATE":
		var p discord.InteractionPayload
		if err := decode(e, &p); err != nil {
			return err
		}
		c.dispatch(&InteractionCreateEvent{Interaction: c.State.AddInteraction(&p)})

	case "USER_UPDATE":
		var p discord.UserPayload
		if err := decode(e, &p); err != nil {
			return err
		}
		var old *discord.User
		if u, ok := c.State.User(p.ID); ok {
			old = u.Clone()
		}
		u := c.State.AddUser(&p)
		if current := c.user.Load(); current != nil && current.ID == u.ID {
			c.user.Store(u)
		}
		c.dispatch(&UserUpdateEvent{Old: old, User: u})
	}

	return nil
}

func (c *Client) onReady(p *discord.ReadyPayload) {
	c.resetReady()
	c.user.Store(c.State.AddUser(&p.User))

	for i := range p.Guilds {
		g := p.Guilds[i]
		if g.Unavailable == nil {
			unavailable := true
			g.Unavailable = &unavailable
		}
		c.State.AddGuild(&g)
	}

	c.scheduleReady()
}

// dispatch emits e once the client is ready.
func (c *Client) dispatch(e Event) {
	if c.ready {
		c.emit(e)
	}
}

func decode(e *gateway.Event, v any) error {
	if err := json.Unmarshal(e.RawData, v); err != nil {
		return fmt.Errorf("client: decode %s: %w", e.Type, err)
	}
	return nil
}
