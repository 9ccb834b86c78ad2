package state

import (
	"github.com/yonatandev1/tsukuyomi/discord"
)

// Every Remove method returns a snapshot of the entity taken before it was
// dropped, so it can be handed out after the cached copy is gone.

// RemoveGuild drops the guild, its sub-stores and its channels.
func (c *Cache) RemoveGuild(id discord.Snowflake) (*discord.Guild, bool) {
	g, ok := c.Guilds.Get(id)
	if !ok {
		return nil, false
	}

	snapshot := g.Clone()

	for _, channelID := range g.Channels.Keys() {
		c.Channels.Delete(channelID)
	}
	clearGuild(g)
	c.Guilds.Delete(id)

	return snapshot, true
}

func (c *Cache) RemoveChannel(id discord.Snowflake) (*discord.Channel, bool) {
	ch, ok := c.Channels.Get(id)
	if !ok {
		return nil, false
	}

	snapshot := ch.Clone()

	if g, ok := c.Guilds.Get(ch.GuildID); ok {
		g.Channels.Delete(id)
	}
	if ch.Messages != nil {
		ch.Messages.Clear()
	}
	c.Channels.Delete(id)

	return snapshot, true
}

func (c *Cache) RemoveMember(guildID, userID discord.Snowflake) (*discord.Member, bool) {
	g, ok := c.Guilds.Get(guildID)
	if !ok {
		return nil, false
	}

	m, ok := g.Members.Get(userID)
	if !ok {
		return nil, false
	}

	snapshot := m.Clone()
	g.Members.Delete(userID)

	return snapshot, true
}

func (c *Cache) RemoveRole(guildID, roleID discord.Snowflake) (*discord.Role, bool) {
	g, ok := c.Guilds.Get(guildID)
	if !ok {
		return nil, false
	}

	r, ok := g.Roles.Delete(roleID)
	if !ok {
		return nil, false
	}

	return r.Clone(), true
}

func (c *Cache) RemoveMessage(channelID, messageID discord.Snowflake) (*discord.Message, bool) {
	ch, ok := c.Channels.Get(channelID)
	if !ok || ch.Messages == nil {
		return nil, false
	}

	m, ok := ch.Messages.Delete(messageID)
	if !ok {
		return nil, false
	}

	return m.Clone(), true
}
