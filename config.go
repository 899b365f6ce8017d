package radio

import (
	"errors"
	"time"

	"github.com/radiocast/radio/internal/backoff"
	"github.com/radiocast/radio/internal/eventformat"

	"github.com/rs/zerolog"
)

// Config of a Connector. Zero values of optional fields mean defaults,
// start from DefaultConfig to get the recommended ones.
type Config struct {
	// Host is a WebSocket URL of the broadcasting server, ex. ws://localhost:6001/app.
	Host string `mapstructure:"host" json:"host"`
	// Protocols are WebSocket subprotocols offered during handshake.
	Protocols []string `mapstructure:"protocols" json:"protocols"`
	// Headers are sent with the WebSocket handshake request.
	Headers map[string]string `mapstructure:"headers" json:"headers"`
	// HandshakeTimeout bounds the WebSocket handshake.
	HandshakeTimeout time.Duration `mapstructure:"handshake_timeout" json:"handshake_timeout"`
	// WriteTimeout bounds a single frame write.
	WriteTimeout time.Duration `mapstructure:"write_timeout" json:"write_timeout"`
	// MessageSizeLimit bounds inbound frame size in bytes.
	MessageSizeLimit int64 `mapstructure:"message_size_limit" json:"message_size_limit"`

	// AuthEndpoint is called with subscribe and unsubscribe actions. When empty
	// every action is granted locally.
	AuthEndpoint string `mapstructure:"auth_endpoint" json:"auth_endpoint"`
	// AuthHeaders are added to every authorization call.
	AuthHeaders map[string]string `mapstructure:"auth_headers" json:"auth_headers"`
	// AuthTimeout bounds a single authorization call.
	AuthTimeout time.Duration `mapstructure:"auth_timeout" json:"auth_timeout"`

	// Namespace prefixes event names passed to Listen.
	Namespace string `mapstructure:"namespace" json:"namespace"`

	// Reconnect enables redialing after the transport was closed by the
	// remote side or by a network error.
	Reconnect         bool          `mapstructure:"reconnect" json:"reconnect"`
	ReconnectMinDelay time.Duration `mapstructure:"reconnect_min_delay" json:"reconnect_min_delay"`
	ReconnectMaxDelay time.Duration `mapstructure:"reconnect_max_delay" json:"reconnect_max_delay"`

	// MaxQueueSize caps packets queued before the connection is ready.
	// Zero means no limit.
	MaxQueueSize int `mapstructure:"max_queue_size" json:"max_queue_size"`

	// WhisperRateLimit is a max number of whispers per second per channel.
	// Zero means no limit.
	WhisperRateLimit float64 `mapstructure:"whisper_rate_limit" json:"whisper_rate_limit"`
	WhisperBurst     int     `mapstructure:"whisper_burst" json:"whisper_burst"`
}

// DefaultConfig returns Config with defaults set.
func DefaultConfig() Config {
	return Config{
		Namespace:         eventformat.DefaultNamespace,
		Reconnect:         true,
		ReconnectMinDelay: backoff.DefaultMin,
		ReconnectMaxDelay: backoff.DefaultMax,
		HandshakeTimeout:  10 * time.Second,
		WriteTimeout:      time.Second,
		MessageSizeLimit:  65536,
	}
}

// Validate checks Config.
func (c Config) Validate() error {
	if c.Host == "" {
		return errors.New("host required")
	}
	if c.MaxQueueSize < 0 {
		return errors.New("max_queue_size must not be negative")
	}
	if c.WhisperRateLimit < 0 {
		return errors.New("whisper_rate_limit must not be negative")
	}
	if c.ReconnectMaxDelay > 0 && c.ReconnectMaxDelay < c.ReconnectMinDelay {
		return errors.New("reconnect_max_delay must not be less than reconnect_min_delay")
	}
	return nil
}

// Option configures Connector.
type Option func(*Connector)

// WithLogger sets a logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Connector) {
		c.log = logger
	}
}

// WithErrorHandler sets a sink for errors which happen outside of any
// caller's stack, such as ProtocolError for a malformed inbound packet.
func WithErrorHandler(h func(error)) Option {
	return func(c *Connector) {
		c.errorHandler = h
	}
}

// WithDialer replaces the WebSocket transport.
func WithDialer(d Dialer) Option {
	return func(c *Connector) {
		c.dialer = d
	}
}

// WithAuthorizer replaces the HTTP authorization collaborator.
func WithAuthorizer(a Authorizer) Option {
	return func(c *Connector) {
		c.authorizer = a
	}
}
