package middleware

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/assogest/assogest/internal/logging"
)

// Tracing assigns every request a trace ID, echoes it in the X-Trace-ID
// response header and logs the request once it completes.
func Tracing(log *logging.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			traceID := r.Header.Get("X-Trace-ID")
			if traceID == "" {
				traceID = logging.NewTraceID()
			}

			ctx := logging.WithTraceID(r.Context(), traceID)
			w.Header().Set("X-Trace-ID", traceID)

			sw := newStatusWriter(w)
			start := time.Now()

			next.ServeHTTP(sw, r.WithContext(ctx))

			log.Info().
				Str("trace_id", traceID).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", sw.status).
				Dur("duration", time.Since(start)).
				Msg("request")
		})
	}
}
