package middleware

import (
	"net/http"
	"time"

	"github.com/hyodoblog/mojiokoshi-line-bot/logger"
)

// AccessLog writes one entry per request: info below 400, warn for client
// errors such as a bad signature, error from 500.
func AccessLog(log *logger.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if probe(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}
			began := time.Now()
			rec := record(w)
			next.ServeHTTP(rec, r)

			status := rec.Status()
			fields := logger.DurationFields("http_request", time.Since(began))
			fields["method"] = r.Method
			fields["path"] = r.URL.Path
			fields[logger.FieldStatus] = status

			l := log.WithContext(r.Context())
			switch {
			case status >= http.StatusInternalServerError:
				l.Error("request served", fields)
			case status >= http.StatusBadRequest:
				l.Warn("request served", fields)
			default:
				l.Info("request served", fields)
			}
		})
	}
}
