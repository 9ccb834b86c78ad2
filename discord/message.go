package discord

import (
	"time"

	"github.com/json-iterator/go"
)

type MessagePayload struct {
	ID              Snowflake      `json:"id"`
	ChannelID       Snowflake      `json:"channel_id"`
	GuildID         *Snowflake     `json:"guild_id,omitempty"`
	Author          *UserPayload   `json:"author,omitempty"`
	Member          *MemberPayload `json:"member,omitempty"`
	Content         *string        `json:"content,omitempty"`
	Timestamp       *time.Time     `json:"timestamp,omitempty"`
	EditedTimestamp *time.Time     `json:"edited_timestamp,omitempty"`
	TTS             *bool          `json:"tts,omitempty"`
	MentionEveryone *bool          `json:"mention_everyone,omitempty"`
	Mentions        []UserPayload  `json:"mentions,omitempty"`
	Pinned          *bool          `json:"pinned,omitempty"`
	Type            *int           `json:"type,omitempty"`
	Flags           *uint64        `json:"flags,omitempty"`
	Nonce           *string        `json:"nonce,omitempty"`

	// Embeds, components and attachments are passed through untouched.
	Embeds      jsoniter.RawMessage `json:"embeds,omitempty"`
	Components  jsoniter.RawMessage `json:"components,omitempty"`
	Attachments jsoniter.RawMessage `json:"attachments,omitempty"`
}

type Message struct {
	ID              Snowflake
	ChannelID       Snowflake
	GuildID         Snowflake
	Author          *User
	Member          *Member
	Content         string
	Timestamp       time.Time
	EditedTimestamp time.Time
	TTS             bool
	MentionEveryone bool
	Mentions        []Snowflake
	Pinned          bool
	Type            int
	Flags           MessageFlags

	Embeds      jsoniter.RawMessage
	Components  jsoniter.RawMessage
	Attachments jsoniter.RawMessage
}

// NewMessage builds a message. Author and Member are resolved by the caller.
func NewMessage(p *MessagePayload) *Message {
	m := &Message{ID: p.ID, ChannelID: p.ChannelID}
	m.Patch(p)
	return m
}

func (m *Message) Patch(p *MessagePayload) {
	if p.GuildID != nil {
		m.GuildID = *p.GuildID
	}
	if p.Content != nil {
		m.Content = *p.Content
	}
	if p.Timestamp != nil {
		m.Timestamp = *p.Timestamp
	}
	if p.EditedTimestamp != nil {
		m.EditedTimestamp = *p.EditedTimestamp
	}
	if p.TTS != nil {
		m.TTS = *p.TTS
	}
	if p.MentionEveryone != nil {
		m.MentionEveryone = *p.MentionEveryone
	}
	if p.Mentions != nil {
		m.Mentions = make([]Snowflake, 0, len(p.Mentions))
		for _, u := range p.Mentions {
			m.Mentions = append(m.Mentions, u.ID)
		}
	}
	if p.Pinned != nil {
		m.Pinned = *p.Pinned
	}
	if p.Type != nil {
		m.Type = *p.Type
	}
	if p.Flags != nil {
		m.Flags = MessageFlags(*p.Flags)
	}
	if p.Embeds != nil {
		m.Embeds = append(jsoniter.RawMessage(nil), p.Embeds...)
	}
	if p.Components != nil {
		m.Components = append(jsoniter.RawMessage(nil), p.Components...)
	}
	if p.Attachments != nil {
		m.Attachments = append(jsoniter.RawMessage(nil), p.Attachments...)
	}
}

func (m *Message) Clone() *Message {
	c := *m
	c.Mentions = append([]Snowflake(nil), m.Mentions...)
	if m.Author != nil {
		c.Author = m.Author.Clone()
	}
	if m.Member != nil {
		c.Member = m.Member.Clone()
	}
	return &c
}

func (m *Message) Edited() bool {
	return !m.EditedTimestamp.IsZero()
}
