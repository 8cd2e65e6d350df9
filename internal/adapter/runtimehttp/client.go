// Package runtimehttp invokes agent runtimes over HTTP.
package runtimehttp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/Strob0t/a2agate/internal/domain/envelope"
	"github.com/Strob0t/a2agate/internal/port/runtime"
	"github.com/Strob0t/a2agate/internal/resilience"
)

const (
	// DefaultPath is appended to a card's base address.
	DefaultPath = "/invoke"

	headerCorrelationID  = "X-Correlation-ID"
	headerCallerIdentity = "X-Caller-Identity"
	headerSessionID      = "X-Session-ID"

	maxReplyBytes = 4 << 20
	maxErrorBody  = 512
)

// Client POSTs forwarded task calls to {baseAddress}{path}. Calls carry no
// client-level timeout; the router bounds each call through ctx.
type Client struct {
	path       string
	httpClient *http.Client
	breakers   *resilience.Set
}

var _ runtime.Runtime = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithBreakers routes every call through the breaker for its base address.
func WithBreakers(s *resilience.Set) Option {
	return func(c *Client) { c.breakers = s }
}

// WithHTTPClient replaces the default instrumented HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a runtime client. An empty path means DefaultPath.
func NewClient(path string, opts ...Option) *Client {
	if path == "" {
		path = DefaultPath
	}
	c := &Client{
		path: path,
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(&http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConnsPerHost: 16,
				IdleConnTimeout:     90 * time.Second,
			}),
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Invoke sends call to the runtime at baseAddress.
func (c *Client) Invoke(ctx context.Context, baseAddress string, call *envelope.TaskCall) (runtime.Reply, error) {
	body, err := json.Marshal(call)
	if err != nil {
		return runtime.Reply{}, fmt.Errorf("marshal task call: %w", err)
	}

	var reply runtime.Reply
	do := func() error {
		var err error
		reply, err = c.doRequest(ctx, strings.TrimRight(baseAddress, "/")+c.path, call, body)
		return err
	}

	if c.breakers != nil {
		err = c.breakers.For(baseAddress).Execute(do)
	} else {
		err = do()
	}
	return reply, err
}

func (c *Client) doRequest(ctx context.Context, url string, call *envelope.TaskCall, body []byte) (runtime.Reply, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return runtime.Reply{}, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(headerCorrelationID, call.CorrelationID)
	if call.CallerIdentity != "" {
		req.Header.Set(headerCallerIdentity, call.CallerIdentity)
	}
	if call.SessionID != "" {
		req.Header.Set(headerSessionID, call.SessionID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return runtime.Reply{}, fmt.Errorf("http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBytes))
	if err != nil {
		return runtime.Reply{}, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := strings.TrimSpace(string(data))
		if len(msg) > maxErrorBody {
			msg = msg[:maxErrorBody]
		}
		return runtime.Reply{}, &runtime.StatusError{StatusCode: resp.StatusCode, Body: msg}
	}

	return runtime.Reply{
		Content:   string(data),
		SessionID: resp.Header.Get(headerSessionID),
	}, nil
}
