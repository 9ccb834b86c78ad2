package discord

// Payloads of dispatch events that are not a bare entity.

type ReadyPayload struct {
	Version          int            `json:"v"`
	User             UserPayload    `json:"user"`
	Guilds           []GuildPayload `json:"guilds"`
	SessionID        string         `json:"session_id"`
	ResumeGatewayURL string         `json:"resume_gateway_url"`
	Application      struct {
		ID Snowflake `json:"id"`
	} `json:"application"`
}

type GuildMemberRemovePayload struct {
	GuildID Snowflake   `json:"guild_id"`
	User    UserPayload `json:"user"`
}

type GuildMembersChunkPayload struct {
	GuildID    Snowflake       `json:"guild_id"`
	Members    []MemberPayload `json:"members"`
	ChunkIndex int             `json:"chunk_index"`
	ChunkCount int             `json:"chunk_count"`
	NotFound   []Snowflake     `json:"not_found,omitempty"`
	Nonce      string          `json:"nonce,omitempty"`
}

type GuildRolePayload struct {
	GuildID Snowflake   `json:"guild_id"`
	Role    RolePayload `json:"role"`
}

type GuildRoleDeletePayload struct {
	GuildID Snowflake `json:"guild_id"`
	RoleID  Snowflake `json:"role_id"`
}

type MessageDeletePayload struct {
	ID        Snowflake  `json:"id"`
	ChannelID Snowflake  `json:"channel_id"`
	GuildID   *Snowflake `json:"guild_id,omitempty"`
}

// UnavailableGuildPayload is the body of GUILD_DELETE.
type UnavailableGuildPayload struct {
	ID          Snowflake `json:"id"`
	Unavailable bool      `json:"unavailable"`
}
