package ratelimit

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// SubjectHeader optionally scopes the rate limit key to a subject in
// addition to the client IP.
const SubjectHeader = "X-Subject-ID"

// Middleware wraps a handler with rate limiting. Rejected requests
// receive 429 with X-RateLimit-* headers.
func Middleware(limiter Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientID := clientKey(r)

			allowed, info, _ := limiter.Allow(r.Context(), clientID)

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
			w.Header().Set("X-RateLimit-Reset", info.ResetAt.UTC().Format(time.RFC3339))

			if !allowed {
				w.Header().Set("Retry-After", strconv.Itoa(int(time.Until(info.ResetAt).Seconds())+1))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				fmt.Fprintf(w, `{"error":"rate limit exceeded","limit":%d,"resetAt":%q}`,
					info.Limit, info.ResetAt.UTC().Format(time.RFC3339))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientKey builds the limiter key from the client IP, preferring
// X-Forwarded-For for proxied requests, plus the subject header when
// present.
func clientKey(r *http.Request) string {
	ip := r.RemoteAddr
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		ip = strings.TrimSpace(strings.Split(forwarded, ",")[0])
	} else if host, _, ok := strings.Cut(r.RemoteAddr, ":"); ok {
		ip = host
	}

	if subject := r.Header.Get(SubjectHeader); subject != "" {
		return ip + ":" + subject
	}
	return ip
}
