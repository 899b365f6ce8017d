package radio

import (
	"encoding/json"
	"slices"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Callback receives the payload of an event.
type Callback func(data json.RawMessage)

// Channel is a named subscription multiplexed over the shared connection.
type Channel struct {
	name    string
	conn    *Connector
	log     zerolog.Logger
	limiter *rate.Limiter

	mu     sync.Mutex
	events map[string][]Callback
	status Status
	sub    *Future[*Channel]
	// onEstablished runs each time the connection becomes ready again.
	// It is not reachable from inbound packets.
	onEstablished func()
}

func newChannel(c *Connector, name string) *Channel {
	ch := &Channel{
		name:   name,
		conn:   c,
		log:    c.log.With().Str("channel", name).Logger(),
		events: make(map[string][]Callback),
	}
	if c.config.WhisperRateLimit > 0 {
		burst := c.config.WhisperBurst
		if burst <= 0 {
			burst = 1
		}
		ch.limiter = rate.NewLimiter(rate.Limit(c.config.WhisperRateLimit), burst)
	}
	ch.configureReconnector()
	return ch
}

// Name returns the full channel name including namespace prefix.
func (ch *Channel) Name() string {
	return ch.name
}

// Status returns the subscription status.
func (ch *Channel) Status() Status {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.status
}

func (ch *Channel) subscription() *Future[*Channel] {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.sub
}

// configureReconnector makes every reconnection re-run subscribe.
func (ch *Channel) configureReconnector() {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	if ch.onEstablished == nil {
		ch.onEstablished = func() { ch.subscribe() }
	}
}

func (ch *Channel) reconnector() func() {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.onEstablished
}

func (ch *Channel) subscribe() *Future[*Channel] {
	f := newFuture[*Channel]()
	ch.mu.Lock()
	ch.status = StatusPending
	ch.sub = f
	ch.mu.Unlock()

	go func() {
		err := ch.conn.authorize(ActionSubscribe, ch.name)
		ch.mu.Lock()
		if ch.sub == f {
			if err != nil {
				ch.status = StatusUnsubscribed
			} else {
				ch.status = StatusSubscribed
			}
		}
		ch.mu.Unlock()
		if err != nil {
			ch.log.Warn().Err(err).Msg("subscribe failed")
			f.resolve(nil, &AuthorizationError{Action: ActionSubscribe, Channel: ch.name, Err: err})
			return
		}
		ch.log.Debug().Msg("subscribed")
		f.resolve(ch, nil)
	}()
	return f
}

// Unsubscribe asks the authorization endpoint to unsubscribe and unbinds
// all listeners once the call completes, whatever its outcome.
func (ch *Channel) Unsubscribe() *Future[*Channel] {
	unsubscribed := newFuture[*Channel]()
	unsubscribed.resolve(nil, ErrUnsubscribed)
	ch.mu.Lock()
	ch.status = StatusUnsubscribed
	ch.sub = unsubscribed
	ch.mu.Unlock()

	f := newFuture[*Channel]()
	go func() {
		err := ch.conn.authorize(ActionUnsubscribe, ch.name)
		ch.mu.Lock()
		resubscribed := ch.sub != unsubscribed
		ch.mu.Unlock()
		if !resubscribed {
			ch.Unbind()
		}
		if err != nil {
			ch.log.Warn().Err(err).Msg("unsubscribe failed")
			f.resolve(nil, &AuthorizationError{Action: ActionUnsubscribe, Channel: ch.name, Err: err})
			return
		}
		f.resolve(ch, nil)
	}()
	return f
}

// Listen binds callback to a namespaced event.
func (ch *Channel) Listen(event string, cb Callback) *Channel {
	ch.bind(ch.conn.formatter.Format(event), cb)
	return ch
}

// StopListening removes all callbacks of a namespaced event.
func (ch *Channel) StopListening(event string) *Channel {
	ch.mu.Lock()
	delete(ch.events, ch.conn.formatter.Format(event))
	ch.mu.Unlock()
	return ch
}

func (ch *Channel) bind(event string, cb Callback) {
	ch.mu.Lock()
	ch.events[event] = append(ch.events[event], cb)
	ch.mu.Unlock()
}

// Unbind removes every callback bound to the channel and stops
// resubscription on reconnect.
func (ch *Channel) Unbind() {
	ch.mu.Lock()
	clear(ch.events)
	ch.onEstablished = nil
	ch.mu.Unlock()
}

// dispatch calls callbacks of event in bind order. No lock is held while
// callbacks run.
func (ch *Channel) dispatch(event string, data json.RawMessage) {
	ch.mu.Lock()
	callbacks := slices.Clone(ch.events[event])
	ch.mu.Unlock()
	for _, cb := range callbacks {
		cb(data)
	}
}
