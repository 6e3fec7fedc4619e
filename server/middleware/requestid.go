package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/hyodoblog/mojiokoshi-line-bot/logger"
)

// HeaderRequestID is read from and echoed on every request.
const HeaderRequestID = "X-Request-Id"

// RequestID tags the request, reusing an incoming X-Request-Id or minting a
// UUID, and puts the ID in the context for the logger.
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(HeaderRequestID)
			if id == "" {
				id = uuid.NewString()
				r.Header.Set(HeaderRequestID, id)
			}
			w.Header().Set(HeaderRequestID, id)
			next.ServeHTTP(w, r.WithContext(logger.ContextWithRequestID(r.Context(), id)))
		})
	}
}
