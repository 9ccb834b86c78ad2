package discord

import (
	"github.com/yonatandev1/tsukuyomi/cache"
)

type ChannelType int

const (
	ChannelTypeGuildText          ChannelType = 0
	ChannelTypeDM                 ChannelType = 1
	ChannelTypeGuildVoice         ChannelType = 2
	ChannelTypeGroupDM            ChannelType = 3
	ChannelTypeGuildCategory      ChannelType = 4
	ChannelTypeGuildAnnouncement  ChannelType = 5
	ChannelTypeAnnouncementThread ChannelType = 10
	ChannelTypePublicThread       ChannelType = 11
	ChannelTypePrivateThread      ChannelType = 12
	ChannelTypeGuildStageVoice    ChannelType = 13
	ChannelTypeGuildForum         ChannelType = 15
)

// Text reports whether messages can be posted in channels of this type.
func (t ChannelType) Text() bool {
	switch t {
	case ChannelTypeGuildText, ChannelTypeDM, ChannelTypeGroupDM, ChannelTypeGuildAnnouncement,
		ChannelTypeAnnouncementThread, ChannelTypePublicThread, ChannelTypePrivateThread,
		ChannelTypeGuildVoice, ChannelTypeGuildStageVoice:
		return true
	}
	return false
}

type ChannelPayload struct {
	ID            Snowflake           `json:"id"`
	Type          *int                `json:"type,omitempty"`
	GuildID       *Snowflake          `json:"guild_id,omitempty"`
	Name          *string             `json:"name,omitempty"`
	Topic         Nullable[string]    `json:"topic"`
	Position      *int                `json:"position,omitempty"`
	ParentID      Nullable[Snowflake] `json:"parent_id"`
	NSFW          *bool               `json:"nsfw,omitempty"`
	LastMessageID Nullable[Snowflake] `json:"last_message_id"`
	RateLimit     *int                `json:"rate_limit_per_user,omitempty"`
}

type Channel struct {
	ID            Snowflake
	Type          ChannelType
	GuildID       Snowflake
	Name          string
	Topic         string
	Position      int
	ParentID      Snowflake
	NSFW          bool
	LastMessageID Snowflake
	RateLimit     int

	// Messages is nil for channels that cannot hold messages.
	Messages *cache.Store[Snowflake, *Message]
}

func NewChannel(p *ChannelPayload) *Channel {
	c := &Channel{ID: p.ID}
	c.Patch(p)
	return c
}

func (c *Channel) Patch(p *ChannelPayload) {
	if p.Type != nil {
		c.Type = ChannelType(*p.Type)
	}
	if p.GuildID != nil {
		c.GuildID = *p.GuildID
	}
	if p.Name != nil {
		c.Name = *p.Name
	}
	p.Topic.patch(&c.Topic)
	if p.Position != nil {
		c.Position = *p.Position
	}
	p.ParentID.patch(&c.ParentID)
	if p.NSFW != nil {
		c.NSFW = *p.NSFW
	}
	p.LastMessageID.patch(&c.LastMessageID)
	if p.RateLimit != nil {
		c.RateLimit = *p.RateLimit
	}
}

// Clone returns a snapshot whose message store is a copy of the current one.
func (c *Channel) Clone() *Channel {
	clone := *c
	if c.Messages != nil {
		clone.Messages = c.Messages.Clone()
	}
	return &clone
}

func (c *Channel) Mention() string {
	return "<#" + string(c.ID) + ">"
}
