package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/assogest/assogest/internal/app/metrics"
)

// Metrics records the request counter and latency histogram per route.
func Metrics() mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			metrics.IncInFlight()
			sw := newStatusWriter(w)
			start := time.Now()

			next.ServeHTTP(sw, r)

			metrics.DecInFlight()
			metrics.RecordHTTPRequest(r.Method, routePattern(r), strconv.Itoa(sw.status), time.Since(start))
		})
	}
}

// routePattern returns the mux route template when the request matched one,
// so /participants/42 and /participants/43 land on the same series. Unmatched
// requests keep their raw path.
func routePattern(r *http.Request) string {
	route := mux.CurrentRoute(r)
	if route == nil {
		return r.URL.Path
	}
	tpl, err := route.GetPathTemplate()
	if err != nil {
		return r.URL.Path
	}
	return tpl
}
