package discord

// UserPayload is a user as sent by the API. Nil fields were absent.
type UserPayload struct {
	ID            Snowflake        `json:"id"`
	Username      *string          `json:"username,omitempty"`
	Discriminator *string          `json:"discriminator,omitempty"`
	GlobalName    Nullable[string] `json:"global_name"`
	Avatar        Nullable[string] `json:"avatar"`
	Bot           *bool            `json:"bot,omitempty"`
	System        *bool            `json:"system,omitempty"`
	PublicFlags   *int             `json:"public_flags,omitempty"`
}

type User struct {
	ID            Snowflake
	Username      string
	Discriminator string
	GlobalName    string
	Avatar        string
	Bot           bool
	System        bool
	PublicFlags   int
}

func NewUser(p *UserPayload) *User {
	u := &User{ID: p.ID}
	u.Patch(p)
	return u
}

// Patch copies the fields present in p; a null clears the field.
func (u *User) Patch(p *UserPayload) {
	if p.Username != nil {
		u.Username = *p.Username
	}
	if p.Discriminator != nil {
		u.Discriminator = *p.Discriminator
	}
	p.GlobalName.patch(&u.GlobalName)
	p.Avatar.patch(&u.Avatar)
	if p.Bot != nil {
		u.Bot = *p.Bot
	}
	if p.System != nil {
		u.System = *p.System
	}
	if p.PublicFlags != nil {
		u.PublicFlags = *p.PublicFlags
	}
}

func (u *User) Clone() *User {
	c := *u
	return &c
}

// Tag is username#discriminator, or the bare username for accounts migrated
// off discriminators.
func (u *User) Tag() string {
	if u.Discriminator == "" || u.Discriminator == "0" {
		return u.Username
	}
	return u.Username + "#" + u.Discriminator
}

func (u *User) Mention() string {
	return "<@" + string(u.ID) + ">"
}
