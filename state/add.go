package state

import (
	"github.com/yonatandev1/tsukuyomi/cache"
	"github.com/yonatandev1/tsukuyomi/discord"
)

// Every Add method merges the payload into the cached entity with the same id
// and returns it, or builds, caches and returns a new one.

func (c *Cache) AddUser(p *discord.UserPayload) *discord.User {
	if u, ok := c.Users.Get(p.ID); ok {
		u.Patch(p)
		return u
	}

	u := discord.NewUser(p)
	if !c.Destroyed() {
		c.Users.Set(u.ID, u)
	}
	return u
}

// AddGuild also merges the roles, channels and members the payload carries.
func (c *Cache) AddGuild(p *discord.GuildPayload) *discord.Guild {
	g, ok := c.Guilds.Get(p.ID)
	if !ok {
		g = c.newGuild(p.ID)
		if !c.Destroyed() {
			c.Guilds.Set(g.ID, g)
		}
	}

	g.Patch(p)

	for i := range p.Roles {
		c.addRole(g, &p.Roles[i])
	}
	for _, channels := range [][]discord.ChannelPayload{p.Channels, p.Threads} {
		for i := range channels {
			ch := channels[i]
			ch.GuildID = &g.ID
			c.addChannel(g, &ch)
		}
	}
	for i := range p.Members {
		c.addMember(g, &p.Members[i])
	}

	return g
}

func (c *Cache) newGuild(id discord.Snowflake) *discord.Guild {
	return &discord.Guild{
		ID:       id,
		Members:  cache.New[discord.Snowflake, *discord.Member](c.limits.Members),
		Roles:    cache.New[discord.Snowflake, *discord.Role](c.limits.Roles),
		Channels: cache.New[discord.Snowflake, *discord.Channel](c.limits.Channels),
	}
}

// AddChannel caches the channel globally and, when its guild is cached, in
// the guild too.
func (c *Cache) AddChannel(p *discord.ChannelPayload) *discord.Channel {
	var g *discord.Guild
	if p.GuildID != nil {
		g, _ = c.Guilds.Get(*p.GuildID)
	}
	return c.addChannel(g, p)
}

func (c *Cache) addChannel(g *discord.Guild, p *discord.ChannelPayload) *discord.Channel {
	ch, ok := c.Channels.Get(p.ID)
	if ok {
		ch.Patch(p)
	} else {
		ch = discord.NewChannel(p)
	}

	if ch.Type.Text() && ch.Messages == nil {
		ch.Messages = cache.New[discord.Snowflake, *discord.Message](c.limits.Messages)
	}

	if c.Destroyed() {
		return ch
	}

	if !ok {
		c.Channels.Set(ch.ID, ch)
	}
	if g != nil {
		g.Channels.Set(ch.ID, ch)
	}
	return ch
}

// AddMember returns a detached member when the guild is not cached.
func (c *Cache) AddMember(guildID discord.Snowflake, p *discord.MemberPayload) *discord.Member {
	g, ok := c.Guilds.Get(guildID)
	if !ok {
		return discord.NewMember(guildID, c.resolveUser(p.User), p)
	}
	return c.addMember(g, p)
}

func (c *Cache) addMember(g *discord.Guild, p *discord.MemberPayload) *discord.Member {
	user := c.resolveUser(p.User)
	if user == nil {
		return discord.NewMember(g.ID, nil, p)
	}

	if m, ok := g.Members.Get(user.ID); ok {
		m.User = user
		m.Patch(p)
		return m
	}

	m := discord.NewMember(g.ID, user, p)
	if !c.Destroyed() {
		g.Members.Set(user.ID, m)
	}
	return m
}

func (c *Cache) resolveUser(p *discord.UserPayload) *discord.User {
	if p == nil {
		return nil
	}
	return c.AddUser(p)
}

// AddRole returns a detached role when the guild is not cached.
func (c *Cache) AddRole(guildID discord.Snowflake, p *discord.RolePayload) *discord.Role {
	g, ok := c.Guilds.Get(guildID)
	if !ok {
		return discord.NewRole(guildID, p)
	}
	return c.addRole(g, p)
}

func (c *Cache) addRole(g *discord.Guild, p *discord.RolePayload) *discord.Role {
	if r, ok := g.Roles.Get(p.ID); ok {
		r.Patch(p)
		return r
	}

	r := discord.NewRole(g.ID, p)
	if !c.Destroyed() {
		g.Roles.Set(r.ID, r)
	}
	return r
}

// AddMessage caches the message in its channel and resolves its author and
// member. A message of an uncached channel is returned detached.
func (c *Cache) AddMessage(p *discord.MessagePayload) *discord.Message {
	ch, chOK := c.Channels.Get(p.ChannelID)

	var m *discord.Message
	var cached bool
	if chOK && ch.Messages != nil {
		m, cached = ch.Messages.Get(p.ID)
	}

	if cached {
		m.Patch(p)
	} else {
		m = discord.NewMessage(p)
	}

	if p.Author != nil {
		m.Author = c.AddUser(p.Author)
	}
	if p.Member != nil && m.GuildID != "" {
		member := *p.Member
		if member.User == nil {
			member.User = p.Author
		}
		m.Member = c.AddMember(m.GuildID, &member)
	}

	if chOK {
		ch.LastMessageID = m.ID
		if !cached && ch.Messages != nil && !c.Destroyed() {
			ch.Messages.Set(m.ID, m)
		}
	}

	return m
}

// AddInteraction resolves the users and members an interaction carries.
// Interactions themselves are not cached.
func (c *Cache) AddInteraction(p *discord.InteractionPayload) *discord.Interaction {
	i := discord.NewInteraction(p)

	if p.Member != nil && i.GuildID != "" {
		i.Member = c.AddMember(i.GuildID, p.Member)
		i.User = i.Member.User
	}
	if p.User != nil {
		i.User = c.AddUser(p.User)
	}
	if p.Message != nil {
		i.Message = c.AddMessage(p.Message)
	}

	return i
}
