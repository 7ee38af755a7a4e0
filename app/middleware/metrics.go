package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zuricore/identity-service/app/metrics"
)

// Metrics records request count and latency per route pattern. The chi route
// pattern is used instead of the raw path so IDs do not explode cardinality.
func Metrics() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			endpoint := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil && len(rctx.RoutePatterns) > 0 {
				endpoint = rctx.RoutePatterns[len(rctx.RoutePatterns)-1]
			}
			metrics.RecordHTTPRequest(r.Method, endpoint, ww.Status(), time.Since(start))
		})
	}
}
