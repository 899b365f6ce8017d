package radio

import (
	"github.com/radiocast/radio/internal/protocol"
)

// PrivateChannel is a channel which also carries client-originated events.
type PrivateChannel struct {
	*Channel
}

type whisperMessage struct {
	Channel string `json:"channel"`
	Data    any    `json:"data"`
}

// Whisper sends a client event to other subscribers of the channel. It does
// not involve the authorization endpoint and is queued like any other packet
// until the connection is ready.
func (ch *PrivateChannel) Whisper(event string, data any) error {
	if ch.limiter != nil && !ch.limiter.Allow() {
		return ErrWhisperRateLimited
	}
	return ch.conn.Emit(protocol.ClientEvent(event), whisperMessage{Channel: ch.name, Data: data})
}

// ListenForWhisper binds callback to a client event sent with Whisper.
func (ch *PrivateChannel) ListenForWhisper(event string, cb Callback) *PrivateChannel {
	ch.bind(protocol.ClientEvent(event), cb)
	return ch
}
