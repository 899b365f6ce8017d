package radio

import (
	"context"
	"net/http"

	"github.com/radiocast/radio/internal/wstransport"
)

// Transport is an open bidirectional message-passing socket.
type Transport interface {
	Send(data []byte) error
	Close() error
}

// TransportHandler receives transport notifications. OnMessage calls must
// not be concurrent and OnClose is called once per successful Dial.
type TransportHandler interface {
	OnOpen(t Transport)
	OnMessage(data []byte)
	OnClose(err error)
}

// Dialer establishes exactly one transport per Dial call. Dialer must call
// OnOpen before Dial returns nil. No retries happen inside a Dialer.
type Dialer interface {
	Dial(ctx context.Context, url string, protocols []string, h TransportHandler) error
}

type websocketDialer struct {
	opts wstransport.Options
}

func newWebsocketDialer(cfg Config) *websocketDialer {
	var header http.Header
	if len(cfg.Headers) > 0 {
		header = http.Header{}
		for k, v := range cfg.Headers {
			header.Set(k, v)
		}
	}
	return &websocketDialer{opts: wstransport.Options{
		Header:           header,
		HandshakeTimeout: cfg.HandshakeTimeout,
		WriteTimeout:     cfg.WriteTimeout,
		MessageSizeLimit: cfg.MessageSizeLimit,
	}}
}

func (d *websocketDialer) Dial(ctx context.Context, url string, protocols []string, h TransportHandler) error {
	opts := d.opts
	opts.Subprotocols = protocols
	_, err := wstransport.Dial(ctx, url, opts, websocketHandler{h: h})
	return err
}

type websocketHandler struct {
	h TransportHandler
}

func (w websocketHandler) OnOpen(t *wstransport.Transport) { w.h.OnOpen(t) }
func (w websocketHandler) OnMessage(data []byte)         { w.h.OnMessage(data) }
func (w websocketHandler) OnClose(err error)             { w.h.OnClose(err) }
