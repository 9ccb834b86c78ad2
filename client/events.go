package client

import (
	"github.com/yonatandev1/tsukuyomi/discord"
)

// Event is implemented by every event a Client emits. Entities in events are
// the cached objects, except where a field is documented as a snapshot.
type Event interface {
	event()
}

type ReadyEvent struct {
	User *discord.User
}

// ReconnectingEvent is emitted before every reconnect attempt.
type ReconnectingEvent struct {
	Resume bool
}

type DebugEvent struct {
	Message string
}

// ErrorEvent carries a failed event handler, a listener panic or the close
// error that ended the session.
type ErrorEvent struct {
	Err error
}

type GuildCreateEvent struct {
	Guild *discord.Guild
}

// GuildAvailableEvent is emitted when a guild that was unavailable comes back.
type GuildAvailableEvent struct {
	Guild *discord.Guild
}

// GuildUpdateEvent carries a snapshot of the guild before the update in Old,
// which is nil when the guild was not cached.
type GuildUpdateEvent struct {
	Old   *discord.Guild
	Guild *discord.Guild
}

// GuildDeleteEvent holds a snapshot of the removed guild.
type GuildDeleteEvent struct {
	Guild *discord.Guild
}

// GuildUnavailableEvent is emitted for an outage. The guild stays cached.
type GuildUnavailableEvent struct {
	Guild *discord.Guild
}

type ChannelCreateEvent struct {
	Channel *discord.Channel
}

type ChannelUpdateEvent struct {
	Old     *discord.Channel
	Channel *discord.Channel
}

type ChannelDeleteEvent struct {
	Channel *discord.Channel
}

type GuildMemberAddEvent struct {
	Member *discord.Member
}

type GuildMemberUpdateEvent struct {
	Old    *discord.Member
	Member *discord.Member
}

// GuildMemberRemoveEvent holds a snapshot of the member, or a member holding
// only the user when it was not cached.
type GuildMemberRemoveEvent struct {
	GuildID discord.Snowflake
	Member  *discord.Member
}

type GuildMembersChunkEvent struct {
	GuildID    discord.Snowflake
	Members    []*discord.Member
	ChunkIndex int
	ChunkCount int
	NotFound   []discord.Snowflake
	Nonce      string
}

type RoleCreateEvent struct {
	Role *discord.Role
}

type RoleUpdateEvent struct {
	Old  *discord.Role
	Role *discord.Role
}

type RoleDeleteEvent struct {
	Role *discord.Role
}

type MessageCreateEvent struct {
	Message *discord.Message
}

type MessageUpdateEvent struct {
	Old     *discord.Message
	Message *discord.Message
}

// MessageDeleteEvent holds a snapshot in Message when the message was
// cached, and nil otherwise.
type MessageDeleteEvent struct {
	ID        discord.Snowflake
	ChannelID discord.Snowflake
	GuildID   discord.Snowflake
	Message   *discord.Message
}

type InteractionCreateEvent struct {
	Interaction *discord.Interaction
}

type UserUpdateEvent struct {
	Old  *discord.User
	User *discord.User
}

func (*ReadyEvent) event()             {}
func (*ReconnectingEvent) event()      {}
func (*DebugEvent) event()             {}
func (*ErrorEvent) event()             {}
func (*GuildCreateEvent) event()       {}
func (*GuildAvailableEvent) event()    {}
func (*GuildUpdateEvent) event()       {}
func (*GuildDeleteEvent) event()       {}
func (*GuildUnavailableEvent) event()  {}
func (*ChannelCreateEvent) event()     {}
func (*ChannelUpdateEvent) event()     {}
func (*ChannelDeleteEvent) event()     {}
func (*GuildMemberAddEvent) event()    {}
func (*GuildMemberUpdateEvent) event() {}
func (*GuildMemberRemoveEvent) event() {}
func (*GuildMembersChunkEvent) event() {}
func (*RoleCreateEvent) event()        {}
func (*RoleUpdateEvent) event()        {}
func (*RoleDeleteEvent) event()        {}
func (*MessageCreateEvent) event()     {}
func (*MessageUpdateEvent) event()     {}
func (*MessageDeleteEvent) event()     {}
func (*InteractionCreateEvent) event() {}
func (*UserUpdateEvent) event()        {}
