// Package authhttp calls the application's authorization endpoint which
// grants permission to subscribe to or unsubscribe from a channel.
package authhttp

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/encoding/json"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// DefaultMaxIdleConnsPerHost is a reasonable value for all HTTP clients.
const DefaultMaxIdleConnsPerHost = 255

// DefaultTimeout bounds a single authorization call.
const DefaultTimeout = 10 * time.Second

const (
	ActionSubscribe   = "subscribe"
	ActionUnsubscribe = "unsubscribe"
)

// Request is a body of authorization call.
type Request struct {
	Action      string `json:"action"`
	ChannelName string `json:"channel_name"`
	// SocketID is sent in X-Socket-ID header when not empty.
	SocketID string `json:"-"`
}

// StatusError returned when endpoint responds with non-2xx status code.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected HTTP status code: %d", e.StatusCode)
}

type Options struct {
	// Timeout of the whole call, DefaultTimeout used if zero.
	Timeout time.Duration
	// Headers are static headers added to every call, for example
	// Authorization or X-CSRF-TOKEN.
	Headers map[string]string
	// HTTPClient overrides the default client.
	HTTPClient *http.Client
}

// Caller is responsible for calling authorization endpoint over HTTP.
type Caller struct {
	endpoint      string
	httpClient    *http.Client
	staticHeaders map[string]string
}

// New creates Caller.
func New(endpoint string, opts Options) *Caller {
	client := opts.HTTPClient
	if client == nil {
		client = defaultHTTPClient(opts.Timeout)
	}
	return &Caller{
		endpoint:      endpoint,
		httpClient:    client,
		staticHeaders: opts.Headers,
	}
}

func defaultHTTPClient(timeout time.Duration) *http.Client {
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConnsPerHost = DefaultMaxIdleConnsPerHost
	return &http.Client{
		Transport: otelhttp.NewTransport(transport),
		Timeout:   timeout,
	}
}

func (c *Caller) requestHeaders(req Request) http.Header {
	header := http.Header{}
	for k, v := range c.staticHeaders {
		header.Set(k, v)
	}
	header.Set("Content-Type", "application/json")
	header.Set("Accept", "application/json")
	header.Set("X-Request-Id", uuid.NewString())
	if req.SocketID != "" {
		header.Set("X-Socket-ID", req.SocketID)
	}
	return header
}

// Call posts request to the endpoint. Any 2xx status means success.
func (c *Caller) Call(ctx context.Context, req Request) error {
	started := time.Now()
	err := c.call(ctx, req)
	callDurationSummary.WithLabelValues(req.Action).Observe(time.Since(started).Seconds())
	if err != nil {
		callErrorCount.WithLabelValues(req.Action).Inc()
	}
	return err
}

func (c *Caller) call(ctx context.Context, req Request) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("error encoding request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("error constructing HTTP request: %w", err)
	}
	httpReq.Header = c.requestHeaders(req)
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("HTTP request error: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{StatusCode: resp.StatusCode}
	}
	return nil
}
