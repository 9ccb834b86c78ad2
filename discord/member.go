package discord

import "time"

type MemberPayload struct {
	GuildID  Snowflake        `json:"guild_id,omitempty"`
	User     *UserPayload     `json:"user,omitempty"`
	Nick     Nullable[string] `json:"nick"`
	Avatar   Nullable[string] `json:"avatar"`
	Roles    []Snowflake      `json:"roles,omitempty"`
	JoinedAt *time.Time       `json:"joined_at,omitempty"`
	Deaf     *bool            `json:"deaf,omitempty"`
	Mute     *bool            `json:"mute,omitempty"`
	Pending  *bool            `json:"pending,omitempty"`
}

// Member is a user's membership in one guild. User is the cached user and is
// shared by every member record of that user.
type Member struct {
	GuildID  Snowflake
	User     *User
	Nick     string
	Avatar   string
	Roles    []Snowflake
	JoinedAt time.Time
	Deaf     bool
	Mute     bool
	Pending  bool
}

func NewMember(guildID Snowflake, user *User, p *MemberPayload) *Member {
	m := &Member{GuildID: guildID, User: user}
	m.Patch(p)
	return m
}

func (m *Member) ID() Snowflake {
	if m.User == nil {
		return ""
	}
	return m.User.ID
}

// Patch copies the fields present in p; a null clears the field. The user is patched by the owner of
// the user cache, not here.
func (m *Member) Patch(p *MemberPayload) {
	p.Nick.patch(&m.Nick)
	p.Avatar.patch(&m.Avatar)
	if p.Roles != nil {
		m.Roles = append([]Snowflake(nil), p.Roles...)
	}
	if p.JoinedAt != nil {
		m.JoinedAt = *p.JoinedAt
	}
	if p.Deaf != nil {
		m.Deaf = *p.Deaf
	}
	if p.Mute != nil {
		m.Mute = *p.Mute
	}
	if p.Pending != nil {
		m.Pending = *p.Pending
	}
}

func (m *Member) Clone() *Member {
	c := *m
	c.Roles = append([]Snowflake(nil), m.Roles...)
	if m.User != nil {
		c.User = m.User.Clone()
	}
	return &c
}

// DisplayName is the nickname, falling back to the global name and the username.
func (m *Member) DisplayName() string {
	if m.Nick != "" {
		return m.Nick
	}
	if m.User == nil {
		return ""
	}
	if m.User.GlobalName != "" {
		return m.User.GlobalName
	}
	return m.User.Username
}

func (m *Member) HasRole(id Snowflake) bool {
	for _, role := range m.Roles {
		if role == id {
			return true
		}
	}
	return false
}
