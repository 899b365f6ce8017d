package radio

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed returned by operations on a Connector after Disconnect.
	ErrClosed = errors.New("radio: connector closed")
	// ErrQueueFull returned by Emit when MaxQueueSize packets are already
	// waiting for the connection to become ready.
	ErrQueueFull = errors.New("radio: outbound queue full")
	// ErrNotConnected returned when a packet must go out but there is no
	// transport.
	ErrNotConnected = errors.New("radio: not connected")
	// ErrWhisperRateLimited returned by Whisper when WhisperRateLimit is exceeded.
	ErrWhisperRateLimited = errors.New("radio: whisper rate limit exceeded")
	// ErrUnsubscribed returned while waiting for a channel which was
	// unsubscribed in the meantime.
	ErrUnsubscribed = errors.New("radio: channel unsubscribed")
)

// ProtocolError describes an inbound packet which could not be routed.
// It is fatal to that packet only, the connection stays open.
type ProtocolError struct {
	Event  string
	Reason string
	// Err is the decoding error, if any.
	Err error
}

func (e *ProtocolError) Error() string {
	reason := e.Reason
	if e.Err != nil {
		reason += ": " + e.Err.Error()
	}
	if e.Event == "" {
		return "radio: protocol error: " + reason
	}
	return fmt.Sprintf("radio: protocol error: %s (event %q)", reason, e.Event)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// AuthorizationError returned when the authorization endpoint refused
// or failed to grant a subscribe or unsubscribe action.
type AuthorizationError struct {
	Action  Action
	Channel string
	Err     error
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("radio: %s %q not authorized: %v", e.Action, e.Channel, e.Err)
}

func (e *AuthorizationError) Unwrap() error {
	return e.Err
}
