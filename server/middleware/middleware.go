// Package middleware holds the net/http wrappers every request to the bot
// passes through, Gin routes and probes alike.
package middleware

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/hyodoblog/mojiokoshi-line-bot/errors"
)

// Middleware decorates a handler.
type Middleware func(http.Handler) http.Handler

// Chain applies mws so that the first one sees the request first. Nil
// entries are ignored.
func Chain(mws ...Middleware) Middleware {
	return func(h http.Handler) http.Handler {
		for i := range mws {
			if mw := mws[len(mws)-1-i]; mw != nil {
				h = mw(h)
			}
		}
		return h
	}
}

// probe reports whether path is one of the health endpoints, which are
// neither logged nor traced.
func probe(path string) bool {
	switch path {
	case "/health", "/ready", "/info":
		return true
	}
	return false
}

// recorder remembers the status a handler answered with.
type recorder struct {
	http.ResponseWriter
	status int
}

func record(w http.ResponseWriter) *recorder {
	return &recorder{ResponseWriter: w}
}

func (r *recorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *recorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

// Status is the answered status, 200 if the handler wrote nothing.
func (r *recorder) Status() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}

func (r *recorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap lets http.ResponseController reach the wrapped writer.
func (r *recorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

// writeError answers outside Gin in the same envelope the handlers use.
func writeError(w http.ResponseWriter, e *apperrors.AppError) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(e.HTTPStatus)
	_ = json.NewEncoder(w).Encode(e.ToResponse())
}
