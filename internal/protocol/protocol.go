// Package protocol contains the JSON envelope used on the wire between
// a radio client and a broadcasting server.
package protocol

import (
	"errors"
	"fmt"

	"github.com/segmentio/encoding/json"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Reserved event names.
const (
	EventConnection = "connection"
	EventPing       = "ping"
	EventPong       = "pong"
	EventSubscribe  = "subscribe"

	ClientEventPrefix = "client-"
)

var (
	ErrMalformed    = errors.New("malformed frame")
	ErrMissingEvent = errors.New("missing event name")
)

// Envelope is a unit of wire communication.
type Envelope struct {
	Event   string `json:"event"`
	Message any    `json:"message"`
}

var emptyMessage = struct{}{}

// Encode serializes an envelope. A nil message is encoded as an empty object.
func Encode(event string, message any) ([]byte, error) {
	if message == nil {
		message = emptyMessage
	}
	data, err := json.Marshal(Envelope{Event: event, Message: message})
	if err != nil {
		return nil, fmt.Errorf("error encoding %q envelope: %w", event, err)
	}
	return data, nil
}

// Packet is a decoded inbound envelope.
type Packet struct {
	Event string
	// Channel is the full name of the addressed channel, empty when the
	// packet is not addressed to a channel.
	Channel string
	// ClientID is set for connection packets only.
	ClientID string
	// Payload is the raw JSON delivered to channel listeners.
	Payload []byte
}

// Decode parses an inbound frame. The addressed channel is taken from a
// top-level "channel" field (the whole message is the payload then) or
// from "message.channel" (payload is "message.data").
func Decode(frame []byte) (Packet, error) {
	if !gjson.ValidBytes(frame) {
		return Packet{}, ErrMalformed
	}
	root := gjson.ParseBytes(frame)
	if !root.IsObject() {
		return Packet{}, ErrMalformed
	}
	event := root.Get("event")
	if event.Type != gjson.String || event.Str == "" {
		return Packet{}, ErrMissingEvent
	}
	p := Packet{Event: event.Str}
	message := root.Get("message")

	if p.Event == EventConnection {
		clientID := message.Get("client_id")
		if !clientID.Exists() {
			clientID = root.Get("client_id")
		}
		p.ClientID = clientID.String()
		return p, nil
	}

	var payload gjson.Result
	if ch := root.Get("channel"); ch.Exists() {
		p.Channel = ch.String()
		payload = message
	} else if message.IsObject() {
		p.Channel = message.Get("channel").String()
		payload = message.Get("data")
	}
	if payload.Raw != "" {
		p.Payload = []byte(payload.Raw)
	} else {
		p.Payload = []byte("null")
	}
	return p, nil
}

// Stamp sets message.socket_id on an encoded envelope. Envelopes whose
// message is not an object are returned unchanged.
func Stamp(packet []byte, socketID string) ([]byte, error) {
	if !gjson.GetBytes(packet, "message").IsObject() {
		return packet, nil
	}
	return sjson.SetBytes(packet, "message.socket_id", socketID)
}

// ClientEvent returns the wire name of a client-originated event.
func ClientEvent(name string) string {
	return ClientEventPrefix + name
}
