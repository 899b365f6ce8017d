// Package wstransport is a client WebSocket transport built on
// gorilla/websocket. It knows nothing about the radio protocol: it dials,
// delivers frames to a Handler one at a time and reports closure once.
package wstransport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Defaults.
const (
	DefaultHandshakeTimeout = 10 * time.Second
	DefaultWriteTimeout     = time.Second
	DefaultMessageSizeLimit = 65536 // 64KB
)

const closeFrameWait = time.Second

// ErrClosed returned from Send after Close.
var ErrClosed = errors.New("transport closed")

// Handler receives transport notifications. OnMessage calls are never
// concurrent, OnClose is called exactly once after the last OnMessage.
type Handler interface {
	OnOpen(t *Transport)
	OnMessage(data []byte)
	OnClose(err error)
}

type Options struct {
	Subprotocols     []string
	Header           http.Header
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	ReadBufferSize   int
	WriteBufferSize  int
	// MessageSizeLimit bounds inbound frames, negative disables the limit.
	MessageSizeLimit int64
}

// Transport is a wrapper over websocket connection.
type Transport struct {
	mu      sync.Mutex
	writeMu sync.Mutex
	conn    *websocket.Conn
	closed  bool
	closeCh chan struct{}
	opts    Options
}

// Dial establishes exactly one WebSocket connection. On success OnOpen is
// called before Dial returns and frames start flowing to the handler.
func Dial(ctx context.Context, url string, opts Options, h Handler) (*Transport, error) {
	if opts.HandshakeTimeout == 0 {
		opts.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = DefaultWriteTimeout
	}
	if opts.MessageSizeLimit == 0 {
		opts.MessageSizeLimit = DefaultMessageSizeLimit
	}
	dialer := &websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: opts.HandshakeTimeout,
		Subprotocols:     opts.Subprotocols,
		ReadBufferSize:   opts.ReadBufferSize,
		WriteBufferSize:  opts.WriteBufferSize,
	}
	conn, resp, err := dialer.DialContext(ctx, url, opts.Header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("error dialing %s (status %d): %w", url, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("error dialing %s: %w", url, err)
	}
	if opts.MessageSizeLimit > 0 {
		conn.SetReadLimit(opts.MessageSizeLimit)
	}
	t := &Transport{
		conn:    conn,
		closeCh: make(chan struct{}),
		opts:    opts,
	}
	h.OnOpen(t)
	go t.readLoop(h)
	return t, nil
}

func (t *Transport) readLoop(h Handler) {
	var err error
	for {
		var data []byte
		_, data, err = t.conn.ReadMessage()
		if err != nil {
			break
		}
		h.OnMessage(data)
	}
	t.mu.Lock()
	closedByUs := t.closed
	if !t.closed {
		t.closed = true
		close(t.closeCh)
	}
	t.mu.Unlock()
	_ = t.conn.Close()
	if closedByUs || websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		err = nil
	}
	h.OnClose(err)
}

// Subprotocol returns the negotiated subprotocol.
func (t *Transport) Subprotocol() string {
	return t.conn.Subprotocol()
}

// Send writes one text frame.
func (t *Transport) Send(data []byte) error {
	select {
	case <-t.closeCh:
		return ErrClosed
	default:
	}
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if t.opts.WriteTimeout > 0 {
		_ = t.conn.SetWriteDeadline(time.Now().Add(t.opts.WriteTimeout))
	}
	err := t.conn.WriteMessage(websocket.TextMessage, data)
	if err != nil {
		return err
	}
	if t.opts.WriteTimeout > 0 {
		_ = t.conn.SetWriteDeadline(time.Time{})
	}
	return nil
}

// Close closes transport. It's safe to call Close many times.
func (t *Transport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	close(t.closeCh)
	t.mu.Unlock()

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	t.writeMu.Lock()
	_ = t.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeFrameWait))
	t.writeMu.Unlock()
	return t.conn.Close()
}
