package middleware

import (
	"net/http"
	"time"

	"github.com/minhngo-dev/thiepcuoi-backend/pkg/metrics"
)

// Metrics records per-route request counts, latencies and in-flight gauge.
// Routes are labelled by chi pattern, not raw path, to keep cardinality flat.
func Metrics(m *metrics.HTTPMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			m.IncInFlight()
			defer m.DecInFlight()

			rec := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)

			m.ObserveRequest(routePattern(r), r.Method, defaultStatus(rec.status), time.Since(start))
		})
	}
}
