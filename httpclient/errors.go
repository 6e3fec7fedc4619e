package httpclient

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failed exchange.
type Kind string

const (
	KindTimeout    Kind = "timeout"
	KindConnection Kind = "connection"
	KindAuth       Kind = "auth"
	KindNotFound   Kind = "not_found"
	KindRateLimit  Kind = "rate_limit"
	KindRejected   Kind = "rejected"
	KindServer     Kind = "server"
	KindOpen       Kind = "circuit_open"
	KindBody       Kind = "body"
)

// Error describes a request that did not produce a usable 2xx response.
type Error struct {
	Kind      Kind
	Status    int
	Body      []byte
	Retryable bool
	Err       error
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Status > 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return "httpclient: " + msg
}

func (e *Error) Unwrap() error { return e.Err }

func failure(kind Kind, retryable bool, err error) *Error {
	return &Error{Kind: kind, Retryable: retryable, Err: err}
}

// NewServerError reports a 5xx answer. These are retried.
func NewServerError(status int, body []byte) *Error {
	return &Error{Kind: KindServer, Status: status, Body: body, Retryable: true}
}

// NewAuthError reports a 401 or 403 answer.
func NewAuthError(status int, body []byte) *Error {
	return &Error{Kind: KindAuth, Status: status, Body: body}
}

// classify maps a status code to an *Error, or nil for 2xx.
func classify(status int, body []byte) *Error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return NewAuthError(status, body)
	case status == http.StatusNotFound:
		return &Error{Kind: KindNotFound, Status: status, Body: body}
	case status == http.StatusTooManyRequests:
		return &Error{Kind: KindRateLimit, Status: status, Body: body, Retryable: true}
	case status >= 500:
		return NewServerError(status, body)
	default:
		return &Error{Kind: KindRejected, Status: status, Body: body}
	}
}

func kindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// IsAuth reports whether the remote refused our credentials, or they
// could not be obtained.
func IsAuth(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindAuth
}

// IsOpen reports whether the circuit breaker refused the call.
func IsOpen(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindOpen
}

// IsRetryable reports whether err is an *Error worth another attempt.
func IsRetryable(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Retryable
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return 0
}
