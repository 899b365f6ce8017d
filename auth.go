package radio

import (
	"context"

	"github.com/radiocast/radio/internal/authhttp"
)

// Action requested from the authorization endpoint.
type Action string

const (
	ActionSubscribe   Action = authhttp.ActionSubscribe
	ActionUnsubscribe Action = authhttp.ActionUnsubscribe
)

// Authorizer grants permission to subscribe to or unsubscribe from
// a channel. A nil error means granted.
type Authorizer interface {
	Authorize(ctx context.Context, action Action, channel string, socketID string) error
}

type httpAuthorizer struct {
	caller *authhttp.Caller
}

func newHTTPAuthorizer(cfg Config) *httpAuthorizer {
	return &httpAuthorizer{caller: authhttp.New(cfg.AuthEndpoint, authhttp.Options{
		Timeout: cfg.AuthTimeout,
		Headers: cfg.AuthHeaders,
	})}
}

func (a *httpAuthorizer) Authorize(ctx context.Context, action Action, channel string, socketID string) error {
	return a.caller.Call(ctx, authhttp.Request{
		Action:      string(action),
		ChannelName: channel,
		SocketID:    socketID,
	})
}

type allowAuthorizer struct{}

func (allowAuthorizer) Authorize(context.Context, Action, string, string) error {
	return nil
}
