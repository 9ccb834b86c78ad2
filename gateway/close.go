package gateway

import (
	"fmt"
)

// CloseAction is what the session does after its socket closed.
type CloseAction int

const (
	// ActionReconnect opens a new connection and identifies from scratch.
	ActionReconnect CloseAction = iota
	// ActionResume opens a new connection and resumes the session.
	ActionResume
	// ActionFatal gives up. The user must fix the cause and connect again.
	ActionFatal
)

func (a CloseAction) String() string {
	switch a {
	case ActionReconnect:
		return "reconnect"
	case ActionResume:
		return "resume"
	case ActionFatal:
		return "fatal"
	}
	return fmt.Sprintf("CloseAction(%d)", int(a))
}

var fatalCloseCodes = map[int]bool{
	CloseAuthenticationFailed: true,
	CloseInvalidShard:         true,
	CloseShardingRequired:     true,
	CloseInvalidAPIVersion:    true,
	CloseInvalidIntents:       true,
	CloseDisallowedIntents:    true,
}

var resumableCloseCodes = map[int]bool{
	CloseAbnormal:             true,
	CloseUnknownError:         true,
	CloseUnknownOpcode:        true,
	CloseDecodeError:          true,
	CloseNotAuthenticated:     true,
	CloseAlreadyAuthenticated: true,
	CloseRateLimited:          true,
	CloseZombie:               true,
}

// ClassifyCloseCode checks the fatal set first, then the resumable set.
// Every other code, 1000 included, reconnects without resuming.
func ClassifyCloseCode(code int) CloseAction {
	switch {
	case fatalCloseCodes[code]:
		return ActionFatal
	case resumableCloseCodes[code]:
		return ActionResume
	default:
		return ActionReconnect
	}
}

var closeDescriptions = map[int]string{
	CloseNormal:               "normal closure",
	CloseGoingAway:            "going away",
	CloseAbnormal:             "abnormal closure",
	CloseUnknownError:         "unknown error",
	CloseUnknownOpcode:        "unknown opcode",
	CloseDecodeError:          "decode error",
	CloseNotAuthenticated:     "not authenticated",
	CloseAuthenticationFailed: "authentication failed",
	CloseAlreadyAuthenticated: "already authenticated",
	CloseInvalidSeq:           "invalid seq",
	CloseRateLimited:          "rate limited",
	CloseSessionTimedOut:      "session timed out",
	CloseInvalidShard:         "invalid shard",
	CloseShardingRequired:     "sharding required",
	CloseInvalidAPIVersion:    "invalid API version",
	CloseInvalidIntents:       "invalid intents",
	CloseDisallowedIntents:    "disallowed intents",
	CloseZombie:               "heartbeat not acknowledged",
	CloseReconnectRequested:   "reconnect requested",
	CloseInvalidSession:       "invalid session",
}

func DescribeCloseCode(code int) string {
	if description, ok := closeDescriptions[code]; ok {
		return description
	}
	return "unknown close code"
}

// CloseError describes why a connection ended.
type CloseError struct {
	Code   int
	Reason string
	Action CloseAction
}

func (e *CloseError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("gateway: closed with code %d (%s): %s", e.Code, DescribeCloseCode(e.Code), e.Reason)
	}
	return fmt.Sprintf("gateway: closed with code %d (%s)", e.Code, DescribeCloseCode(e.Code))
}

func (e *CloseError) Fatal() bool {
	return e.Action == ActionFatal
}
