package radio

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/radiocast/radio/internal/backoff"
	"github.com/radiocast/radio/internal/eventformat"
	"github.com/radiocast/radio/internal/protocol"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Channel name prefixes.
const (
	PrivatePrefix  = "private-"
	PresencePrefix = "presence-"
)

// Connector keeps one connection to a broadcasting server and multiplexes
// channels over it.
type Connector struct {
	config       Config
	log          zerolog.Logger
	dialer       Dialer
	authorizer   Authorizer
	formatter    *eventformat.Formatter
	backoff      backoff.Backoff
	errorHandler func(error)

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	state      State
	generation uint64
	transport  Transport
	socketID   string
	sessions   int
	queue      [][]byte
	channels   map[string]*Channel
	// established are one-shot continuations run on the next transition
	// to StateReady, or with ErrClosed on Disconnect.
	established    []func(error)
	reconnectTimer *time.Timer
	retries        int
}

// New creates Connector. Call Connect to open the connection.
func New(cfg Config, opts ...Option) (*Connector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &Connector{
		config:    cfg,
		log:       log.Logger,
		formatter: eventformat.New(cfg.Namespace),
		backoff: backoff.Backoff{
			Min: cfg.ReconnectMinDelay,
			Max: cfg.ReconnectMaxDelay,
		},
		ctx:      ctx,
		cancel:   cancel,
		state:    StateConnecting,
		channels: make(map[string]*Channel),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With().Str("component", "radio").Logger()
	if c.dialer == nil {
		c.dialer = newWebsocketDialer(cfg)
	}
	if c.authorizer == nil {
		if cfg.AuthEndpoint != "" {
			c.authorizer = newHTTPAuthorizer(cfg)
		} else {
			c.authorizer = allowAuthorizer{}
		}
	}
	if c.errorHandler == nil {
		c.errorHandler = func(err error) {
			c.log.Error().Err(err).Msg("radio error")
		}
	}
	return c, nil
}

// Connect dials the server. Calling Connect on a connected Connector
// replaces the transport and starts a new session.
func (c *Connector) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.generation++
	gen := c.generation
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
	c.mu.Unlock()
	return c.dial(ctx, gen)
}

func (c *Connector) dial(ctx context.Context, gen uint64) error {
	err := c.dialer.Dial(ctx, c.config.Host, c.config.Protocols, &connHandler{c: c, generation: gen})
	if err != nil {
		return fmt.Errorf("error connecting to %s: %w", c.config.Host, err)
	}
	return nil
}

// Disconnect closes the connection and destroys all channels. Pending
// channel resolutions fail with ErrClosed.
func (c *Connector) Disconnect() error {
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return nil
	}
	c.setStateLocked(StateClosed)
	t := c.transport
	c.transport = nil
	c.socketID = ""
	c.queue = nil
	queueSizeGauge.Set(0)
	channels := c.channels
	c.channels = make(map[string]*Channel)
	waiters := c.established
	c.established = nil
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
	c.mu.Unlock()

	c.cancel()
	for _, ch := range channels {
		ch.Unbind()
	}
	for _, w := range waiters {
		w(ErrClosed)
	}
	c.log.Info().Msg("disconnected")
	if t != nil {
		return t.Close()
	}
	return nil
}

// State returns the current connection state.
func (c *Connector) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SocketID returns the identifier assigned by the server, empty until
// the connection is ready.
func (c *Connector) SocketID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.socketID
}

// Channels returns sorted full names of registered channels.
func (c *Connector) Channels() []string {
	c.mu.Lock()
	names := make([]string, 0, len(c.channels))
	for name := range c.channels {
		names = append(names, name)
	}
	c.mu.Unlock()
	sort.Strings(names)
	return names
}

func (c *Connector) setStateLocked(s State) {
	c.state = s
	connectorStateGauge.Set(float64(s))
}

// Emit sends a packet. Until the connection is ready packets are queued and
// flushed in order once the server assigns a connection identifier.
func (c *Connector) Emit(event string, message any) error {
	packet, err := protocol.Encode(event, message)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state {
	case StateClosed:
		return ErrClosed
	case StateReady:
		return c.sendLocked(packet)
	}
	if c.config.MaxQueueSize > 0 && len(c.queue) >= c.config.MaxQueueSize {
		packetsOutDropped.Inc()
		return ErrQueueFull
	}
	c.queue = append(c.queue, packet)
	packetsOutQueued.Inc()
	queueSizeGauge.Set(float64(len(c.queue)))
	return nil
}

func (c *Connector) sendLocked(packet []byte) error {
	if c.transport == nil {
		return ErrNotConnected
	}
	if err := c.transport.Send(packet); err != nil {
		packetsOutSendFailure.Inc()
		return fmt.Errorf("error sending packet: %w", err)
	}
	packetsOutSent.Inc()
	return nil
}

type connHandler struct {
	c          *Connector
	generation uint64
}

func (h *connHandler) OnOpen(t Transport)    { h.c.onOpen(h.generation, t) }
func (h *connHandler) OnMessage(data []byte) { h.c.onMessage(h.generation, data) }
func (h *connHandler) OnClose(err error)     { h.c.onClose(h.generation, err) }

func (c *Connector) onOpen(gen uint64, t Transport) {
	c.mu.Lock()
	if c.state == StateClosed || gen != c.generation {
		c.mu.Unlock()
		_ = t.Close()
		return
	}
	prev := c.transport
	c.transport = t
	c.socketID = ""
	if c.sessions > 0 && len(c.queue) > 0 {
		// A new session starts with an empty queue.
		packetsOutDiscarded.Add(float64(len(c.queue)))
		c.queue = nil
		queueSizeGauge.Set(0)
	}
	c.setStateLocked(StateAwaitingID)
	c.mu.Unlock()

	if prev != nil {
		_ = prev.Close()
	}
	c.log.Debug().Str("host", c.config.Host).Msg("transport open, awaiting connection id")
}

func (c *Connector) onMessage(gen uint64, data []byte) {
	c.mu.Lock()
	stale := gen != c.generation || c.state == StateClosed
	c.mu.Unlock()
	if stale {
		return
	}
	c.receive(data)
}

func (c *Connector) onClose(gen uint64, err error) {
	c.mu.Lock()
	if c.state == StateClosed || gen != c.generation {
		c.mu.Unlock()
		return
	}
	c.transport = nil
	c.socketID = ""
	c.setStateLocked(StateConnecting)
	if !c.config.Reconnect {
		c.mu.Unlock()
		c.log.Warn().Err(err).Msg("connection closed")
		return
	}
	delay := c.backoff.Duration(c.retries)
	c.retries++
	c.generation++
	next := c.generation
	c.reconnectTimer = time.AfterFunc(delay, func() {
		c.redial(next)
	})
	c.mu.Unlock()
	c.log.Warn().Err(err).Str("delay", delay.String()).Msg("connection closed, reconnecting")
}

func (c *Connector) redial(gen uint64) {
	c.mu.Lock()
	if c.state == StateClosed || gen != c.generation {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()
	reconnectCount.Inc()
	if err := c.dial(c.ctx, gen); err != nil {
		c.onClose(gen, err)
	}
}

// receive routes one inbound frame.
func (c *Connector) receive(data []byte) {
	p, err := protocol.Decode(data)
	if err != nil {
		c.reportProtocolError(&ProtocolError{Reason: "undecodable frame", Err: err})
		return
	}
	switch p.Event {
	case protocol.EventConnection:
		packetsInConnection.Inc()
		if p.ClientID == "" {
			c.reportProtocolError(&ProtocolError{Event: p.Event, Reason: "missing client_id"})
			return
		}
		c.connectionEstablished(p.ClientID)
	case protocol.EventPing:
		packetsInPing.Inc()
		c.pong()
	case protocol.EventSubscribe:
		packetsInSubscribe.Inc()
	default:
		if p.Channel == "" {
			c.reportProtocolError(&ProtocolError{Event: p.Event, Reason: "unrecognized event"})
			return
		}
		c.route(p)
	}
}

func (c *Connector) reportProtocolError(err *ProtocolError) {
	protocolErrorCount.Inc()
	c.errorHandler(err)
}

// pong bypasses the queue: the server expects it in any state.
func (c *Connector) pong() {
	packet, err := protocol.Encode(protocol.EventPong, nil)
	if err != nil {
		return
	}
	c.mu.Lock()
	err = c.sendLocked(packet)
	c.mu.Unlock()
	if err != nil {
		c.log.Warn().Err(err).Msg("error sending pong")
	}
}

func (c *Connector) connectionEstablished(socketID string) {
	c.mu.Lock()
	if c.state == StateClosed || c.transport == nil {
		c.mu.Unlock()
		return
	}
	if c.state == StateReady {
		c.socketID = socketID
		c.mu.Unlock()
		c.log.Debug().Str("socket_id", socketID).Msg("connection id updated")
		return
	}
	c.socketID = socketID
	c.sessions++
	c.retries = 0
	c.setStateLocked(StateReady)
	queue := c.queue
	c.queue = nil
	queueSizeGauge.Set(0)
	for _, packet := range queue {
		stamped, err := protocol.Stamp(packet, socketID)
		if err != nil {
			stamped = packet
		}
		if err := c.sendLocked(stamped); err != nil {
			c.log.Warn().Err(err).Msg("error flushing queued packet")
		}
	}
	channels := make([]*Channel, 0, len(c.channels))
	for _, ch := range c.channels {
		channels = append(channels, ch)
	}
	waiters := c.established
	c.established = nil
	c.mu.Unlock()

	c.log.Info().Str("socket_id", socketID).Int("flushed", len(queue)).Msg("connection established")
	for _, ch := range channels {
		c.resubscribe(ch)
	}
	for _, w := range waiters {
		w(nil)
	}
}

// resubscribe runs the reconnect hook of ch unless ch has left the
// registry since the snapshot was taken.
func (c *Connector) resubscribe(ch *Channel) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateClosed || c.channels[ch.name] != ch {
		return
	}
	if hook := ch.reconnector(); hook != nil {
		hook()
	}
}

func (c *Connector) route(p protocol.Packet) {
	c.mu.Lock()
	ch, ok := c.channels[p.Channel]
	c.mu.Unlock()
	if !ok {
		packetsInUnrouted.Inc()
		c.log.Debug().Str("channel", p.Channel).Str("event", p.Event).Msg("packet for unknown channel")
		return
	}
	packetsInChannel.Inc()
	ch.dispatch(p.Event, p.Payload)
}

// Channel resolves a public channel.
func (c *Connector) Channel(name string) *Future[*Channel] {
	f := newFuture[*Channel]()
	c.resolve(name, f.resolve)
	return f
}

// PrivateChannel resolves a private channel, name is given without prefix.
func (c *Connector) PrivateChannel(name string) *Future[*PrivateChannel] {
	f := newFuture[*PrivateChannel]()
	c.resolve(PrivatePrefix+name, func(ch *Channel, err error) {
		if err != nil {
			f.resolve(nil, err)
			return
		}
		f.resolve(&PrivateChannel{Channel: ch}, nil)
	})
	return f
}

// PresenceChannel resolves a presence channel, name is given without prefix.
func (c *Connector) PresenceChannel(name string) *Future[*PresenceChannel] {
	f := newFuture[*PresenceChannel]()
	c.resolve(PresencePrefix+name, func(ch *Channel, err error) {
		if err != nil {
			f.resolve(nil, err)
			return
		}
		f.resolve(&PresenceChannel{PrivateChannel: &PrivateChannel{Channel: ch}}, nil)
	})
	return f
}

// Listen resolves a public channel and binds callback to its event.
func (c *Connector) Listen(ctx context.Context, name string, event string, cb Callback) (*Channel, error) {
	ch, err := c.Channel(name).Wait(ctx)
	if err != nil {
		return nil, err
	}
	return ch.Listen(event, cb), nil
}

// resolve constructs or reuses the channel once the connection is ready and
// calls done when its subscription settles. Concurrent requests for the
// same name are not deduplicated.
func (c *Connector) resolve(name string, done func(*Channel, error)) {
	c.mu.Lock()
	switch c.state {
	case StateClosed:
		c.mu.Unlock()
		done(nil, ErrClosed)
		return
	case StateReady:
		ch := c.channelLocked(name)
		c.mu.Unlock()
		c.await(ch, done)
		return
	}
	c.established = append(c.established, func(err error) {
		if err != nil {
			done(nil, err)
			return
		}
		c.mu.Lock()
		if c.state == StateClosed {
			c.mu.Unlock()
			done(nil, ErrClosed)
			return
		}
		ch := c.channelLocked(name)
		c.mu.Unlock()
		c.await(ch, done)
	})
	c.mu.Unlock()
}

func (c *Connector) channelLocked(name string) *Channel {
	ch, ok := c.channels[name]
	if !ok {
		ch = newChannel(c, name)
		c.channels[name] = ch
		ch.subscribe()
		return ch
	}
	if ch.Status() == StatusUnsubscribed {
		ch.configureReconnector()
		ch.subscribe()
	}
	return ch
}

func (c *Connector) await(ch *Channel, done func(*Channel, error)) {
	sub := ch.subscription()
	complete := func(err error) {
		if err != nil {
			done(nil, err)
			return
		}
		c.log.Debug().Str("channel", ch.Name()).Msg("channel resolved")
		done(ch, nil)
	}
	select {
	case <-sub.Done():
		complete(sub.err)
		return
	default:
	}
	go func() {
		_, err := sub.Wait(c.ctx)
		if err != nil && c.ctx.Err() != nil {
			err = ErrClosed
		}
		complete(err)
	}()
}

// Leave unsubscribes from a channel in all namespaces and forgets it.
func (c *Connector) Leave(name string) {
	for _, fullName := range []string{name, PrivatePrefix + name, PresencePrefix + name} {
		c.LeaveChannel(fullName)
	}
}

// LeaveChannel unsubscribes from a channel given by its full name.
func (c *Connector) LeaveChannel(fullName string) {
	c.mu.Lock()
	ch, ok := c.channels[fullName]
	if ok {
		delete(c.channels, fullName)
	}
	c.mu.Unlock()
	if !ok {
		return
	}
	ch.Unsubscribe()
	c.log.Debug().Str("channel", fullName).Msg("channel left")
}

func (c *Connector) authorize(action Action, channel string) error {
	return c.authorizer.Authorize(c.ctx, action, channel, c.SocketID())
}
