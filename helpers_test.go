package radio

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

type testTransport struct {
	mu     sync.Mutex
	sent   []string
	closed bool
}

func (t *testTransport) Send(data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return errors.New("closed")
	}
	t.sent = append(t.sent, string(data))
	return nil
}

func (t *testTransport) Close() error {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
	return nil
}

func (t *testTransport) frames() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.sent...)
}

func (t *testTransport) events() []string {
	var events []string
	for _, frame := range t.frames() {
		events = append(events, gjson.Get(frame, "event").String())
	}
	return events
}

type testSession struct {
	handler   TransportHandler
	transport *testTransport
}

func (s *testSession) message(frame string) {
	s.handler.OnMessage([]byte(frame))
}

func (s *testSession) close(err error) {
	s.handler.OnClose(err)
}

// testDialer opens a testTransport synchronously on every Dial.
type testDialer struct {
	mu       sync.Mutex
	sessions []*testSession
	err      error
}

func (d *testDialer) Dial(_ context.Context, _ string, _ []string, h TransportHandler) error {
	d.mu.Lock()
	if d.err != nil {
		err := d.err
		d.mu.Unlock()
		return err
	}
	s := &testSession{handler: h, transport: &testTransport{}}
	d.sessions = append(d.sessions, s)
	d.mu.Unlock()
	h.OnOpen(s.transport)
	return nil
}

func (d *testDialer) last() *testSession {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sessions[len(d.sessions)-1]
}

func (d *testDialer) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.sessions)
}

type authCall struct {
	Action  Action
	Channel string
}

// testAuthorizer records calls and denies channels listed in deny.
type testAuthorizer struct {
	mu    sync.Mutex
	calls []authCall
	deny  map[string]bool
	block chan struct{}
}

func newTestAuthorizer() *testAuthorizer {
	return &testAuthorizer{deny: map[string]bool{}}
}

func (a *testAuthorizer) Authorize(ctx context.Context, action Action, channel string, _ string) error {
	a.mu.Lock()
	a.calls = append(a.calls, authCall{Action: action, Channel: channel})
	denied := a.deny[channel]
	block := a.block
	a.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if denied {
		return errors.New("forbidden")
	}
	return nil
}

func (a *testAuthorizer) setDeny(channel string, deny bool) {
	a.mu.Lock()
	a.deny[channel] = deny
	a.mu.Unlock()
}

func (a *testAuthorizer) setBlock(block chan struct{}) {
	a.mu.Lock()
	a.block = block
	a.mu.Unlock()
}

func (a *testAuthorizer) count(action Action, channel string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for _, call := range a.calls {
		if call.Action == action && call.Channel == channel {
			n++
		}
	}
	return n
}

type errorSink struct {
	mu     sync.Mutex
	errors []error
}

func (s *errorSink) handle(err error) {
	s.mu.Lock()
	s.errors = append(s.errors, err)
	s.mu.Unlock()
}

func (s *errorSink) all() []error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]error(nil), s.errors...)
}

type testEnv struct {
	connector  *Connector
	dialer     *testDialer
	authorizer *testAuthorizer
	errors     *errorSink
}

func newTestEnv(t *testing.T, modify func(cfg *Config)) *testEnv {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Host = "ws://radio.test/app"
	cfg.Reconnect = false
	if modify != nil {
		modify(&cfg)
	}
	env := &testEnv{
		dialer:     &testDialer{},
		authorizer: newTestAuthorizer(),
		errors:     &errorSink{},
	}
	c, err := New(cfg,
		WithDialer(env.dialer),
		WithAuthorizer(env.authorizer),
		WithErrorHandler(env.errors.handle),
		WithLogger(zerolog.Nop()),
	)
	require.NoError(t, err)
	env.connector = c
	t.Cleanup(func() { _ = c.Disconnect() })
	return env
}

// ready connects and confirms connection id.
func (e *testEnv) ready(t *testing.T, socketID string) *testSession {
	t.Helper()
	require.NoError(t, e.connector.Connect(context.Background()))
	s := e.dialer.last()
	s.message(`{"event":"connection","message":{"client_id":"` + socketID + `"}}`)
	require.Equal(t, StateReady, e.connector.State())
	return s
}

func waitFuture[T any](t *testing.T, f *Future[T]) (T, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	v, err := f.Wait(ctx)
	require.NotErrorIs(t, err, context.DeadlineExceeded)
	return v, err
}
