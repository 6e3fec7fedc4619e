package httpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// TypedResponse is a response whose JSON body was decoded into T.
type TypedResponse[T any] struct {
	Status int
	Data   T
}

// RequestOption adjusts a single request.
type RequestOption func(*Request)

// WithHeader sets a request header.
func WithHeader(key, value string) RequestOption {
	return func(r *Request) {
		if r.Headers == nil {
			r.Headers = map[string]string{}
		}
		r.Headers[key] = value
	}
}

// WithQueryParam sets a query parameter.
func WithQueryParam(key, value string) RequestOption {
	return func(r *Request) {
		if r.Query == nil {
			r.Query = map[string]string{}
		}
		r.Query[key] = value
	}
}

// Get decodes the JSON answer of a GET into T.
func Get[T any](c *Client, ctx context.Context, path string, opts ...RequestOption) (*TypedResponse[T], error) {
	return typed[T](c, ctx, http.MethodGet, path, nil, opts)
}

// Post sends body and decodes the JSON answer into T. When the remote
// answers with an error whose body still decodes as T, both are returned.
func Post[T any](c *Client, ctx context.Context, path string, body any, opts ...RequestOption) (*TypedResponse[T], error) {
	return typed[T](c, ctx, http.MethodPost, path, body, opts)
}

func typed[T any](c *Client, ctx context.Context, method, path string, body any, opts []RequestOption) (*TypedResponse[T], error) {
	req := Request{Method: method, Path: path, Body: body}
	for _, opt := range opts {
		opt(&req)
	}
	resp, err := c.Do(ctx, req)
	if resp == nil {
		return nil, err
	}
	out := &TypedResponse[T]{Status: resp.Status}
	if len(resp.Body) == 0 {
		return out, err
	}
	if decErr := json.Unmarshal(resp.Body, &out.Data); decErr != nil {
		if err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("httpclient: decode response: %w", decErr)
	}
	return out, err
}
