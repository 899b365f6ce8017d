package protocol

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestEncode(t *testing.T) {
	t.Parallel()

	data, err := Encode(EventPong, nil)
	require.NoError(t, err)
	require.JSONEq(t, `{"event":"pong","message":{}}`, string(data))

	data, err = Encode("client-typing", map[string]any{"channel": "private-room", "data": 1})
	require.NoError(t, err)
	require.JSONEq(t, `{"event":"client-typing","message":{"channel":"private-room","data":1}}`, string(data))
}

func TestDecode(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		frame   string
		packet  Packet
		payload string
		err     error
	}{
		{
			name:   "connection",
			frame:  `{"event":"connection","message":{"client_id":"abc"}}`,
			packet: Packet{Event: EventConnection, ClientID: "abc"},
		},
		{
			name:   "connection_top_level_id",
			frame:  `{"event":"connection","client_id":"abc"}`,
			packet: Packet{Event: EventConnection, ClientID: "abc"},
		},
		{
			name:    "ping",
			frame:   `{"event":"ping","message":{}}`,
			packet:  Packet{Event: EventPing},
			payload: "null",
		},
		{
			name:    "top_level_channel",
			frame:   `{"event":"presence:subscribed","channel":"presence-room","message":[{"user_info":{"id":1}}]}`,
			packet:  Packet{Event: "presence:subscribed", Channel: "presence-room"},
			payload: `[{"user_info":{"id":1}}]`,
		},
		{
			name:    "nested_channel",
			frame:   `{"event":"App\\Events\\Shipped","message":{"channel":"orders","data":{"id":5}}}`,
			packet:  Packet{Event: `App\Events\Shipped`, Channel: "orders"},
			payload: `{"id":5}`,
		},
		{
			name:    "nested_channel_without_data",
			frame:   `{"event":"x","message":{"channel":"orders"}}`,
			packet:  Packet{Event: "x", Channel: "orders"},
			payload: "null",
		},
		{
			name:  "not_json",
			frame: `{"event":`,
			err:   ErrMalformed,
		},
		{
			name:  "not_object",
			frame: `[1,2]`,
			err:   ErrMalformed,
		},
		{
			name:  "empty_event",
			frame: `{"event":"","message":{}}`,
			err:   ErrMissingEvent,
		},
		{
			name:  "numeric_event",
			frame: `{"event":1}`,
			err:   ErrMissingEvent,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := Decode([]byte(tc.frame))
			if tc.err != nil {
				require.ErrorIs(t, err, tc.err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.packet.Event, p.Event)
			require.Equal(t, tc.packet.Channel, p.Channel)
			require.Equal(t, tc.packet.ClientID, p.ClientID)
			if tc.payload != "" {
				require.JSONEq(t, tc.payload, string(p.Payload))
			}
		})
	}
}

func TestStamp(t *testing.T) {
	t.Parallel()

	packet, err := Encode("whatever", map[string]any{"a": 1})
	require.NoError(t, err)
	stamped, err := Stamp(packet, "sock-1")
	require.NoError(t, err)
	require.Equal(t, "sock-1", gjson.GetBytes(stamped, "message.socket_id").String())
	require.Equal(t, int64(1), gjson.GetBytes(stamped, "message.a").Int())

	packet, err = Encode("list", []int{1, 2})
	require.NoError(t, err)
	stamped, err = Stamp(packet, "sock-1")
	require.NoError(t, err)
	require.Equal(t, packet, stamped)
}
