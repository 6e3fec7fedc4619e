package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	apperrors "github.com/hyodoblog/mojiokoshi-line-bot/errors"
	"github.com/hyodoblog/mojiokoshi-line-bot/logger"
)

// Recovery turns a panicking handler into a logged INTERNAL_ERROR reply.
// http.ErrAbortHandler is re-raised so net/http can drop the connection.
func Recovery(log *logger.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				v := recover()
				if v == nil {
					return
				}
				if v == http.ErrAbortHandler {
					panic(v)
				}
				log.WithContext(r.Context()).Error("handler panicked", logger.Fields(
					logger.FieldError, fmt.Sprint(v),
					"stack", string(debug.Stack()),
					"method", r.Method,
					"path", r.URL.Path,
				))
				writeError(w, apperrors.Internal(fmt.Errorf("panic: %v", v)))
			}()
			next.ServeHTTP(w, r)
		})
	}
}
