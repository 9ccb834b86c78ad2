package discord

import (
	"time"

	"github.com/yonatandev1/tsukuyomi/cache"
)

type GuildPayload struct {
	ID          Snowflake        `json:"id"`
	Name        *string          `json:"name,omitempty"`
	Icon        Nullable[string] `json:"icon"`
	OwnerID     *Snowflake       `json:"owner_id,omitempty"`
	Unavailable *bool            `json:"unavailable,omitempty"`
	MemberCount *int             `json:"member_count,omitempty"`
	Large       *bool            `json:"large,omitempty"`
	Features    []string         `json:"features,omitempty"`
	JoinedAt    *time.Time       `json:"joined_at,omitempty"`
	Roles       []RolePayload    `json:"roles,omitempty"`
	Channels    []ChannelPayload `json:"channels,omitempty"`
	Threads     []ChannelPayload `json:"threads,omitempty"`
	Members     []MemberPayload  `json:"members,omitempty"`
}

// Guild owns the guild-scoped stores. They are created by the cache that
// holds the guild and dropped with it.
type Guild struct {
	ID          Snowflake
	Name        string
	Icon        string
	OwnerID     Snowflake
	Unavailable bool
	MemberCount int
	Large       bool
	Features    []string
	JoinedAt    time.Time

	Members  *cache.Store[Snowflake, *Member]
	Roles    *cache.Store[Snowflake, *Role]
	Channels *cache.Store[Snowflake, *Channel]
}

// Patch copies the scalar fields present in p. Roles, channels and members
// are merged by the cache.
func (g *Guild) Patch(p *GuildPayload) {
	if p.Name != nil {
		g.Name = *p.Name
	}
	p.Icon.patch(&g.Icon)
	if p.OwnerID != nil {
		g.OwnerID = *p.OwnerID
	}
	if p.Unavailable != nil {
		g.Unavailable = *p.Unavailable
	}
	if p.MemberCount != nil {
		g.MemberCount = *p.MemberCount
	}
	if p.Large != nil {
		g.Large = *p.Large
	}
	if p.Features != nil {
		g.Features = append([]string(nil), p.Features...)
	}
	if p.JoinedAt != nil {
		g.JoinedAt = *p.JoinedAt
	}
}

// Clone returns a snapshot whose stores are copies of the current ones.
func (g *Guild) Clone() *Guild {
	c := *g
	c.Features = append([]string(nil), g.Features...)
	if g.Members != nil {
		c.Members = g.Members.Clone()
	}
	if g.Roles != nil {
		c.Roles = g.Roles.Clone()
	}
	if g.Channels != nil {
		c.Channels = g.Channels.Clone()
	}
	return &c
}

func (g *Guild) Member(id Snowflake) (*Member, bool) {
	if g.Members == nil {
		return nil, false
	}
	return g.Members.Get(id)
}

func (g *Guild) Role(id Snowflake) (*Role, bool) {
	if g.Roles == nil {
		return nil, false
	}
	return g.Roles.Get(id)
}

func (g *Guild) Channel(id Snowflake) (*Channel, bool) {
	if g.Channels == nil {
		return nil, false
	}
	return g.Channels.Get(id)
}
