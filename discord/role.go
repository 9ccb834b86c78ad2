package discord

type RolePayload struct {
	ID          Snowflake `json:"id"`
	Name        *string   `json:"name,omitempty"`
	Color       *int      `json:"color,omitempty"`
	Hoist       *bool     `json:"hoist,omitempty"`
	Position    *int      `json:"position,omitempty"`
	Permissions *string   `json:"permissions,omitempty"`
	Managed     *bool     `json:"managed,omitempty"`
	Mentionable *bool     `json:"mentionable,omitempty"`
}

type Role struct {
	ID          Snowflake
	GuildID     Snowflake
	Name        string
	Color       int
	Hoist       bool
	Position    int
	Permissions Permissions
	Managed     bool
	Mentionable bool
}

func NewRole(guildID Snowflake, p *RolePayload) *Role {
	r := &Role{ID: p.ID, GuildID: guildID}
	r.Patch(p)
	return r
}

// Patch copies the fields present in p. An unparsable permissions string
// leaves the current mask untouched.
func (r *Role) Patch(p *RolePayload) {
	if p.Name != nil {
		r.Name = *p.Name
	}
	if p.Color != nil {
		r.Color = *p.Color
	}
	if p.Hoist != nil {
		r.Hoist = *p.Hoist
	}
	if p.Position != nil {
		r.Position = *p.Position
	}
	if p.Permissions != nil {
		if perms, err := ParsePermissions(*p.Permissions); err == nil {
			r.Permissions = perms
		}
	}
	if p.Managed != nil {
		r.Managed = *p.Managed
	}
	if p.Mentionable != nil {
		r.Mentionable = *p.Mentionable
	}
}

func (r *Role) Clone() *Role {
	c := *r
	return &c
}

func (r *Role) Mention() string {
	return "<@&" + string(r.ID) + ">"
}
