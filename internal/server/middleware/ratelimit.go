package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"
)

// RateLimit returns middleware limiting each client IP to requestsPerMinute
// over a sliding window. The auth endpoints run with a much tighter budget
// than the rest of the API to slow down credential stuffing.
func RateLimit(requestsPerMinute int) func(http.Handler) http.Handler {
	return httprate.LimitByIP(requestsPerMinute, time.Minute)
}
