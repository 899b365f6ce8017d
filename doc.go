// Package radio is a client for a channel-broadcasting WebSocket server.
//
// A Connector keeps one connection and multiplexes channels over it:
//
//	c, err := radio.New(cfg)
//	...
//	_ = c.Connect(ctx)
//	ch, err := c.Channel("orders").Wait(ctx)
//	...
//	ch.Listen("OrderShipped", func(data json.RawMessage) { ... })
//
// Packets emitted before the server assigns a connection identifier are
// queued and flushed in order once it does. Every channel subscribes through
// an authorization endpoint and subscribes again after each reconnect.
package radio
