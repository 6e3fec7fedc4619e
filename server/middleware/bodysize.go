package middleware

import (
	"net/http"

	apperrors "github.com/hyodoblog/mojiokoshi-line-bot/errors"
	"github.com/hyodoblog/mojiokoshi-line-bot/util"
)

// BodySizeLimit refuses bodies over limit ("1MB", "256KB"; 1MB when
// unparsable). Declared lengths are refused up front, streamed bodies
// fail on read.
func BodySizeLimit(limit string) Middleware {
	n := util.ParseSize(limit, 1<<20)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > n {
				writeError(w, apperrors.TooLarge(n))
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, n)
			next.ServeHTTP(w, r)
		})
	}
}
