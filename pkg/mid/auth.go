package mid

import (
	"crypto/subtle"
	"net/http"
	"regexp"

	"golang.org/x/time/rate"
)

var bearerRe = regexp.MustCompile(`(?i)^Bearer\s+(.+)$`)

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	m := bearerRe.FindStringSubmatch(header)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// Bearer rejects requests whose bearer token does not equal secret with a
// 401 envelope. An empty secret rejects every request.
func Bearer(secret string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := BearerToken(r.Header.Get("Authorization"))
			if !ok || secret == "" || subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
				Error(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimit answers 429 once l has no tokens left. A nil limiter disables it.
func RateLimit(l *rate.Limiter) Middleware {
	return func(next http.Handler) http.Handler {
		if l == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow() {
				Error(w, http.StatusTooManyRequests, "Too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
