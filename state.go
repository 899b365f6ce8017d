package radio

// State of the connection.
type State int32

const (
	// StateConnecting means there is no open transport.
	StateConnecting State = iota
	// StateAwaitingID means the transport is open but the server has not
	// assigned a connection identifier yet.
	StateAwaitingID
	// StateReady means packets are sent without queueing.
	StateReady
	// StateClosed is terminal, set by Disconnect.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAwaitingID:
		return "awaiting_id"
	case StateReady:
		return "ready"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Status of a channel subscription.
type Status int32

const (
	StatusUnsubscribed Status = iota
	StatusPending
	StatusSubscribed
)

func (s Status) String() string {
	switch s {
	case StatusUnsubscribed:
		return "unsubscribed"
	case StatusPending:
		return "pending"
	case StatusSubscribed:
		return "subscribed"
	default:
		return "unknown"
	}
}
