package middleware

import (
	"customer-api/internal/infrastructure/monitoring"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const unmatchedRoute = "unmatched"

func MetricsMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				statusCode := ww.Status()
				if statusCode == 0 {
					statusCode = http.StatusOK
				}
				monitoring.RecordHTTPRequest(r.Method, routePattern(r), http.StatusText(statusCode), time.Since(start))
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

// routePattern keeps the path label bounded: raw URLs carry customer ids.
func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return unmatchedRoute
	}
	if pattern := rctx.RoutePattern(); pattern != "" {
		return pattern
	}
	return unmatchedRoute
}
