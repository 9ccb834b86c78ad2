package gateway

import (
	"github.com/json-iterator/go"

	"github.com/yonatandev1/tsukuyomi/decoder"
	"github.com/yonatandev1/tsukuyomi/discord"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Event is a decoded frame.
type Event = decoder.Event

type frame struct {
	Op   int `json:"op"`
	Data any `json:"d"`
}

type helloPayload struct {
	HeartbeatInterval int64 `json:"heartbeat_interval"`
}

// IdentifyProperties describe the connecting client.
type IdentifyProperties struct {
	OS      string `json:"os" yaml:"os"`
	Browser string `json:"browser" yaml:"browser"`
	Device  string `json:"device" yaml:"device"`
}

type identifyPayload struct {
	Token          string             `json:"token"`
	Intents        discord.Intents    `json:"intents"`
	Properties     IdentifyProperties `json:"properties"`
	Compress       bool               `json:"compress"`
	LargeThreshold int                `json:"large_threshold"`
}

type resumePayload struct {
	Token     string `json:"token"`
	SessionID string `json:"session_id"`
	Sequence  int64  `json:"seq"`
}

// readyPayload is the part of READY the session keeps for itself.
type readyPayload struct {
	SessionID        string `json:"session_id"`
	ResumeGatewayURL string `json:"resume_gateway_url"`
}

// RequestGuildMembers asks for GUILD_MEMBERS_CHUNK events. Set either Query
// (with Limit, 0 meaning all) or UserIDs.
type RequestGuildMembers struct {
	GuildID   discord.Snowflake   `json:"guild_id"`
	Query     *string             `json:"query,omitempty"`
	Limit     int                 `json:"limit"`
	Presences bool                `json:"presences,omitempty"`
	UserIDs   []discord.Snowflake `json:"user_ids,omitempty"`
	Nonce     string              `json:"nonce,omitempty"`
}
