package gateway

import "fmt"

type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateAwaitingHello
	StateIdentifying
	StateResuming
	StateSteady
	StateClosing
	StateReconnecting
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateAwaitingHello:
		return "awaiting hello"
	case StateIdentifying:
		return "identifying"
	case StateResuming:
		return "resuming"
	case StateSteady:
		return "steady"
	case StateClosing:
		return "closing"
	case StateReconnecting:
		return "reconnecting"
	}
	return fmt.Sprintf("State(%d)", int(s))
}
