package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/fraudlab/cardsim-backend/internal/api/httpx"
	"github.com/redis/go-redis/v9"
)

var fixedWindowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
  ttl = tonumber(ARGV[1])
end
return {current, ttl}
`)

// RedisRateLimit enforces a fixed window per (scope, actor) across
// processes. A Redis error fails open; throttling is best-effort and must
// never block the state machine.
func RedisRateLimit(client redis.UniversalClient, scope string, limit int, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if client == nil || limit <= 0 || window <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject, ok := UserID(r.Context())
			if !ok {
				subject = r.RemoteAddr
			}
			key := "cardsim:rate:" + scope + ":" + subject

			raw, err := fixedWindowScript.Run(r.Context(), client, []string{key}, window.Milliseconds()).Result()
			if err != nil {
				slog.Warn("redis rate limit", "scope", scope, "err", err)
				next.ServeHTTP(w, r)
				return
			}
			values, ok := raw.([]interface{})
			if !ok || len(values) != 2 {
				next.ServeHTTP(w, r)
				return
			}
			count, _ := values[0].(int64)
			ttlMs, _ := values[1].(int64)
			if count > int64(limit) {
				retryAfter := int((ttlMs + 999) / 1000)
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				httpx.WriteError(w, http.StatusTooManyRequests, "rate_limited", "too many requests", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
