package middleware

import (
	"log"
	"net/http"
	"time"
)

// RequestLogging logs one line per API request with method, path, status
// and latency.
func RequestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &statusRecorder{ResponseWriter: w, statusCode: 200}
		next.ServeHTTP(wrapped, r)

		log.Printf("[API] %s %s -> %d (%s)", r.Method, r.URL.Path, wrapped.statusCode, time.Since(start))
	})
}
