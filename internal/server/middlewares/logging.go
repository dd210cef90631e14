package middlewares

import (
	"net/http"
	"time"

	"github.com/zeusync/methodwatch/internal/core/observability/log"
)

// Logging logs one line per request. Server errors are logged at Error,
// everything else at Debug.
func Logging(logger log.Log) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := newStatusRecorder(w)

			next.ServeHTTP(rec, r)

			fields := []log.Field{
				log.String("method", r.Method),
				log.String("path", r.URL.Path),
				log.Int("status", rec.Status()),
				log.Int("bytes", rec.bytes),
				log.Duration("duration", time.Since(start)),
				log.String("remote_addr", r.RemoteAddr),
				log.String("proto", r.Proto),
			}
			if rec.Status() >= http.StatusInternalServerError {
				logger.Error("Request failed", fields...)
			} else {
				logger.Debug("Request handled", fields...)
			}
		})
	}
}
