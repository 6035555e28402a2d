// Package requesttime pins one "now" per request. The strike window, the
// ledger timestamp and any notice timestamps of a single evaluation all read
// it, so they agree even when the request straddles a clock tick.
package requesttime

import (
	"net/http"
	"time"

	"chatguard/pkg/requestcontext"
)

// Middleware pins the wall clock in UTC.
var Middleware = WithClock(time.Now)

// WithClock pins now() instead; tests use it to place requests on either side
// of a window boundary.
func WithClock(now func() time.Time) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := requestcontext.WithTime(r.Context(), now().UTC())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
