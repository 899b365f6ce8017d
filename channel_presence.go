package radio

import (
	"encoding/json"

	"github.com/tidwall/gjson"
)

// Presence events.
const (
	EventPresenceSubscribed = "presence:subscribed"
	EventPresenceJoining    = "presence:joining"
	EventPresenceLeaving    = "presence:leaving"
)

// PresenceChannel is a private channel which reports its members.
type PresenceChannel struct {
	*PrivateChannel
}

// Here registers callback called with user_info of every current member
// once the subscription is confirmed by the server.
func (ch *PresenceChannel) Here(cb func(members []json.RawMessage)) *PresenceChannel {
	ch.bind(EventPresenceSubscribed, func(data json.RawMessage) {
		records := gjson.ParseBytes(data).Array()
		members := make([]json.RawMessage, 0, len(records))
		for _, record := range records {
			members = append(members, userInfo(record))
		}
		cb(members)
	})
	return ch
}

// Joining registers callback called with user_info of a member who joined.
func (ch *PresenceChannel) Joining(cb func(member json.RawMessage)) *PresenceChannel {
	ch.bind(EventPresenceJoining, func(data json.RawMessage) {
		cb(userInfo(gjson.ParseBytes(data)))
	})
	return ch
}

// Leaving registers callback called with user_info of a member who left.
func (ch *PresenceChannel) Leaving(cb func(member json.RawMessage)) *PresenceChannel {
	ch.bind(EventPresenceLeaving, func(data json.RawMessage) {
		cb(userInfo(gjson.ParseBytes(data)))
	})
	return ch
}

func userInfo(record gjson.Result) json.RawMessage {
	info := record.Get("user_info")
	if !info.Exists() {
		return json.RawMessage("null")
	}
	return json.RawMessage(info.Raw)
}
