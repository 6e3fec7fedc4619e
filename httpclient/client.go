package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/hyodoblog/mojiokoshi-line-bot/resilience"
)

// errorBodyLimit bounds how much of a failed stream response is kept.
const errorBodyLimit = 64 << 10

// Request is one outbound call. Body may be []byte, url.Values (form) or
// any JSON-encodable value.
type Request struct {
	Method  string
	Path    string
	Headers map[string]string
	Query   map[string]string
	Body    any
}

// Response is a fully buffered answer.
type Response struct {
	Status  int
	Headers http.Header
	Body    []byte
}

// StreamResponse carries an unread body. Close it when done.
type StreamResponse struct {
	Status        int
	ContentLength int64
	Body          io.ReadCloser
}

// Close releases the connection.
func (r *StreamResponse) Close() error { return r.Body.Close() }

// Client sends requests to a single remote.
type Client struct {
	cfg    Config
	http   *http.Client
	stream *http.Client
	cb     *resilience.CircuitBreaker
}

// New builds a Client. A nil CircuitBreaker or Retry in cfg disables it.
func New(cfg Config) (*Client, error) {
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	c := &Client{
		cfg:    cfg,
		http:   &http.Client{Transport: transport, Timeout: cfg.Timeout},
		stream: &http.Client{Transport: transport},
	}
	if cfg.CircuitBreaker != nil {
		c.cb = resilience.NewCircuitBreaker(*cfg.CircuitBreaker)
	}
	return c, nil
}

// Unwrap exposes the buffered *http.Client for SDKs that take one.
func (c *Client) Unwrap() *http.Client { return c.http }

// IsAvailable is false while the circuit breaker is open. It makes no call.
func (c *Client) IsAvailable(context.Context) bool {
	return c.cb == nil || c.cb.State() != resilience.StateOpen
}

// Do sends req and buffers the answer. A non-2xx answer returns both the
// response and an *Error.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	if c.cfg.Retry == nil {
		return c.guarded(ctx, req)
	}
	return resilience.Retry(ctx, *c.cfg.Retry, func() (*Response, error) {
		return c.guarded(ctx, req)
	})
}

// DoStream sends req and hands back the body unread. It is never retried.
func (c *Client) DoStream(ctx context.Context, req Request) (*StreamResponse, error) {
	httpReq, err := c.build(ctx, req)
	if err != nil {
		return nil, err
	}
	resp, err := c.stream.Do(httpReq)
	if err != nil {
		return nil, transportError(ctx, err)
	}
	if e := classify(resp.StatusCode, nil); e != nil {
		e.Body, _ = io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		_ = resp.Body.Close()
		return nil, e
	}
	return &StreamResponse{Status: resp.StatusCode, ContentLength: resp.ContentLength, Body: resp.Body}, nil
}

func (c *Client) guarded(ctx context.Context, req Request) (*Response, error) {
	if c.cb == nil {
		return c.send(ctx, req)
	}
	var (
		resp    *Response
		sendErr error
	)
	err := c.cb.Execute(func() error {
		resp, sendErr = c.send(ctx, req)
		// a rejected request says nothing about the remote's health
		if e, ok := sendErr.(*Error); ok && !e.Retryable {
			return nil
		}
		return sendErr
	})
	if sendErr != nil {
		return resp, sendErr
	}
	if err != nil {
		return nil, failure(KindOpen, false, fmt.Errorf("%s: %w", c.cfg.Name, err))
	}
	return resp, nil
}

func (c *Client) send(ctx context.Context, req Request) (*Response, error) {
	httpReq, err := c.build(ctx, req)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, transportError(ctx, err)
	}
	defer func() { _ = resp.Body.Close() }()

	var r io.Reader = resp.Body
	if limit := c.cfg.MaxResponseBytes; limit > 0 {
		r = io.LimitReader(resp.Body, limit+1)
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, failure(KindConnection, true, fmt.Errorf("read body: %w", err))
	}
	if limit := c.cfg.MaxResponseBytes; limit > 0 && int64(len(body)) > limit {
		return nil, failure(KindBody, false, fmt.Errorf("response exceeds %d bytes", limit))
	}

	out := &Response{Status: resp.StatusCode, Headers: resp.Header, Body: body}
	if e := classify(resp.StatusCode, body); e != nil {
		return out, e
	}
	return out, nil
}

func (c *Client) build(ctx context.Context, req Request) (*http.Request, error) {
	target := req.Path
	if c.cfg.BaseURL != "" && !strings.Contains(req.Path, "://") {
		target = strings.TrimRight(c.cfg.BaseURL, "/") + "/" + strings.TrimLeft(req.Path, "/")
	}
	body, contentType, err := encode(req.Body)
	if err != nil {
		return nil, failure(KindBody, false, err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, failure(KindBody, false, err)
	}
	if len(req.Query) > 0 {
		q := httpReq.URL.Query()
		for k, v := range req.Query {
			q.Set(k, v)
		}
		httpReq.URL.RawQuery = q.Encode()
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	for k, v := range c.cfg.Headers {
		httpReq.Header.Set(k, v)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	if c.cfg.Auth != nil {
		if err := c.cfg.Auth(httpReq); err != nil {
			return nil, failure(KindAuth, true, fmt.Errorf("credentials: %w", err))
		}
	}
	return httpReq, nil
}

func encode(body any) (io.Reader, string, error) {
	switch v := body.(type) {
	case nil:
		return nil, "", nil
	case []byte:
		return bytes.NewReader(v), "", nil
	case url.Values:
		return strings.NewReader(v.Encode()), "application/x-www-form-urlencoded", nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, "", fmt.Errorf("encode body: %w", err)
		}
		return bytes.NewReader(data), "application/json", nil
	}
}

func transportError(ctx context.Context, err error) *Error {
	if ctx.Err() != nil {
		return failure(KindTimeout, true, err)
	}
	return failure(KindConnection, true, err)
}
