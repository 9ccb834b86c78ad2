package gateway

// Opcodes
const (
	OpDispatch            = 0
	OpHeartbeat           = 1
	OpIdentify            = 2
	OpPresenceUpdate      = 3
	OpVoiceStateUpdate    = 4
	OpResume              = 6
	OpReconnect           = 7
	OpRequestGuildMembers = 8
	OpInvalidSession      = 9
	OpHello               = 10
	OpHeartbeatAck        = 11
)

// Close codes. 4900 and above are never sent by the server; the session uses
// them when it closes the socket itself.
const (
	CloseNormal               = 1000
	CloseGoingAway            = 1001
	CloseAbnormal             = 1006
	CloseUnknownError         = 4000
	CloseUnknownOpcode        = 4001
	CloseDecodeError          = 4002
	CloseNotAuthenticated     = 4003
	CloseAuthenticationFailed = 4004
	CloseAlreadyAuthenticated = 4005
	CloseInvalidSeq           = 4007
	CloseRateLimited          = 4008
	CloseSessionTimedOut      = 4009
	CloseInvalidShard         = 4010
	CloseShardingRequired     = 4011
	CloseInvalidAPIVersion    = 4012
	CloseInvalidIntents       = 4013
	CloseDisallowedIntents    = 4014
	CloseZombie               = 4900
	CloseReconnectRequested   = 4901
	CloseInvalidSession       = 4902
)

const (
	DefaultURL     = "wss://gateway.discord.gg"
	DefaultVersion = 10

	userAgent = "DiscordBot (https://github.com/yonatandev1/tsukuyomi, 1.0)"
)

// Dispatch events the session itself looks at.
const (
	EventReady   = "READY"
	EventResumed = "RESUMED"
)
