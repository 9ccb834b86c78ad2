// Package state keeps the canonical copy of every entity the gateway has
// told us about.
//
// A Cache has a single writer: the goroutine that routes dispatch events and
// reconciles REST responses. The stores are safe for concurrent use, but the
// writer patches entities in place, so their fields may only be read on the
// writer goroutine or from a Clone taken there.
package state

import (
	"sync/atomic"

	"github.com/yonatandev1/tsukuyomi/cache"
	"github.com/yonatandev1/tsukuyomi/discord"
)

// Limits bounds each category of the cache. A limit <= 0 means unbounded.
type Limits struct {
	Guilds   int `yaml:"guilds"`
	Channels int `yaml:"channels"`
	Users    int `yaml:"users"`
	Members  int `yaml:"members"`
	Roles    int `yaml:"roles"`
	Messages int `yaml:"messages"`
}

// DefaultLimits keeps everything except messages, which are capped per channel.
var DefaultLimits = Limits{Messages: 200}

type Cache struct {
	limits Limits

	Guilds   *cache.Store[discord.Snowflake, *discord.Guild]
	Channels *cache.Store[discord.Snowflake, *discord.Channel]
	Users    *cache.Store[discord.Snowflake, *discord.User]

	destroyed atomic.Bool
}

func New(limits Limits) *Cache {
	c := &Cache{
		limits:   limits,
		Guilds:   cache.New[discord.Snowflake, *discord.Guild](limits.Guilds),
		Channels: cache.New[discord.Snowflake, *discord.Channel](limits.Channels),
		Users:    cache.New[discord.Snowflake, *discord.User](limits.Users),
	}

	// Eviction callbacks run with the evicting store locked. Guilds evictions
	// lock Channels and Channels evictions read-lock Guilds; both only happen
	// on the writer goroutine, so they never run at the same time.
	c.Guilds.OnEvict(func(_ discord.Snowflake, g *discord.Guild) {
		for _, channelID := range g.Channels.Keys() {
			c.Channels.Delete(channelID)
		}
		clearGuild(g)
	})
	c.Channels.OnEvict(func(id discord.Snowflake, ch *discord.Channel) {
		if g, ok := c.Guilds.Get(ch.GuildID); ok {
			g.Channels.Delete(id)
		}
		if ch.Messages != nil {
			ch.Messages.Clear()
		}
	})

	return c
}

func (c *Cache) Limits() Limits {
	return c.limits
}

// Destroy empties every store. Later Add calls build detached entities and
// Remove calls find nothing.
func (c *Cache) Destroy() {
	if c.destroyed.Swap(true) {
		return
	}

	c.Guilds.Each(func(_ discord.Snowflake, g *discord.Guild) bool {
		clearGuild(g)
		return true
	})
	c.Guilds.Clear()
	c.Channels.Clear()
	c.Users.Clear()
}

func (c *Cache) Destroyed() bool {
	return c.destroyed.Load()
}

func (c *Cache) Guild(id discord.Snowflake) (*discord.Guild, bool) {
	return c.Guilds.Get(id)
}

func (c *Cache) Channel(id discord.Snowflake) (*discord.Channel, bool) {
	return c.Channels.Get(id)
}

func (c *Cache) User(id discord.Snowflake) (*discord.User, bool) {
	return c.Users.Get(id)
}

func (c *Cache) Member(guildID, userID discord.Snowflake) (*discord.Member, bool) {
	g, ok := c.Guilds.Get(guildID)
	if !ok {
		return nil, false
	}
	return g.Member(userID)
}

func (c *Cache) Role(guildID, roleID discord.Snowflake) (*discord.Role, bool) {
	g, ok := c.Guilds.Get(guildID)
	if !ok {
		return nil, false
	}
	return g.Role(roleID)
}

func (c *Cache) Message(channelID, messageID discord.Snowflake) (*discord.Message, bool) {
	ch, ok := c.Channels.Get(channelID)
	if !ok || ch.Messages == nil {
		return nil, false
	}
	return ch.Messages.Get(messageID)
}

func clearGuild(g *discord.Guild) {
	g.Members.Clear()
	g.Roles.Clear()
	g.Channels.Clear()
}
