package discord

import (
	"github.com/json-iterator/go"
)

type InteractionType int

const (
	InteractionTypePing                           InteractionType = 1
	InteractionTypeApplicationCommand             InteractionType = 2
	InteractionTypeMessageComponent               InteractionType = 3
	InteractionTypeApplicationCommandAutocomplete InteractionType = 4
	InteractionTypeModalSubmit                    InteractionType = 5
)

type InteractionPayload struct {
	ID            Snowflake           `json:"id"`
	ApplicationID Snowflake           `json:"application_id"`
	Type          InteractionType     `json:"type"`
	GuildID       *Snowflake          `json:"guild_id,omitempty"`
	ChannelID     *Snowflake          `json:"channel_id,omitempty"`
	Member        *MemberPayload      `json:"member,omitempty"`
	User          *UserPayload        `json:"user,omitempty"`
	Token         string              `json:"token"`
	Version       int                 `json:"version"`
	Message       *MessagePayload     `json:"message,omitempty"`
	Data          jsoniter.RawMessage `json:"data,omitempty"`
	Locale        *string             `json:"locale,omitempty"`
}

// Interaction is never cached. User is set for both guild and DM
// interactions; Member only inside a guild.
type Interaction struct {
	ID            Snowflake
	ApplicationID Snowflake
	Type          InteractionType
	GuildID       Snowflake
	ChannelID     Snowflake
	Member        *Member
	User          *User
	Token         string
	Version       int
	Message       *Message
	Locale        string

	// Data is the command or component payload, undecoded.
	Data jsoniter.RawMessage
}

func NewInteraction(p *InteractionPayload) *Interaction {
	i := &Interaction{
		ID:            p.ID,
		ApplicationID: p.ApplicationID,
		Type:          p.Type,
		Token:         p.Token,
		Version:       p.Version,
		Data:          p.Data,
	}
	if p.GuildID != nil {
		i.GuildID = *p.GuildID
	}
	if p.ChannelID != nil {
		i.ChannelID = *p.ChannelID
	}
	if p.Locale != nil {
		i.Locale = *p.Locale
	}
	return i
}
