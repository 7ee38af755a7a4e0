package middleware

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RouteLimit names a route's budget: at most Capacity requests per Window per
// principal.
type RouteLimit struct {
	Name     string
	Capacity int
	Window   time.Duration
}

// PrincipalFunc extracts the rate-limit principal for a request.
type PrincipalFunc func(*http.Request) string

// PrincipalIP keys the limit on the client IP, best effort behind proxies.
func PrincipalIP() PrincipalFunc {
	return func(r *http.Request) string {
		if xf := r.Header.Get("X-Forwarded-For"); xf != "" {
			if first, _, found := strings.Cut(xf, ","); found || first != "" {
				return "ip:" + strings.TrimSpace(first)
			}
		}
		if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
			return "ip:" + host
		}
		return "ip:unknown"
	}
}

// PrincipalUserOrIP keys the limit on the authenticated user, falling back to
// the client IP for anonymous requests.
func PrincipalUserOrIP() PrincipalFunc {
	byIP := PrincipalIP()
	return func(r *http.Request) string {
		if uid, ok := UserIDFromContext(r.Context()); ok {
			return fmt.Sprintf("user:%d", uid)
		}
		return byIP(r)
	}
}

// Counting and expiry must happen in one step so concurrent requests cannot
// create a counter that never expires.
var rateLimitScript = redis.NewScript(`
local hits = redis.call("INCR", KEYS[1])
if hits == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
return {hits, ttl}
`)

// RateLimit applies a fixed-window counter in Redis per route and principal.
// Redis errors fail open so an outage does not lock everyone out.
func RateLimit(rdb *redis.Client, limit RouteLimit, principal PrincipalFunc) func(http.Handler) http.Handler {
	if principal == nil {
		principal = PrincipalIP()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := fmt.Sprintf("rl:%s:%s", limit.Name, principal(r))

			res, err := rateLimitScript.Run(r.Context(), rdb, []string{key}, limit.Window.Milliseconds()).Int64Slice()
			if err != nil || len(res) != 2 {
				next.ServeHTTP(w, r)
				return
			}
			hits, ttlMs := res[0], res[1]

			if hits > int64(limit.Capacity) {
				if ttlMs > 0 {
					w.Header().Set("Retry-After", strconv.FormatInt((ttlMs+999)/1000, 10))
				}
				writeJSONError(w, http.StatusTooManyRequests, "TOO_MANY_REQUESTS", "too many requests")
				return
			}

			remaining := int64(limit.Capacity) - hits
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
			next.ServeHTTP(w, r)
		})
	}
}
