package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	rediskey "storefront/pkg/redis"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	rd "github.com/redis/go-redis/v9"
)

// luaRateLimit is a sliding window over a sorted set.
// KEYS[1]=key, ARGV[1]=now, ARGV[2]=window start, ARGV[3]=window seconds,
// ARGV[4]=member, ARGV[5]=limit. Returns the count including this request, or -1
// when the limit is reached.
const luaRateLimit = `
local key = KEYS[1]
local now = tonumber(ARGV[1])
local windowStart = tonumber(ARGV[2])
local windowSec = tonumber(ARGV[3])
local member = ARGV[4]

redis.call('ZREMRANGEBYSCORE', key, '0', windowStart)

local count = redis.call('ZCARD', key)

if count < tonumber(ARGV[5]) then
  redis.call('ZADD', key, now, member)
  redis.call('EXPIRE', key, windowSec)
  return count + 1
else
  return -1
end
`

// RedisRateLimit limits each caller to limit requests per window within scope.
// The caller is the authenticated principal, or the client IP before authentication.
// A nil client or a Redis error lets the request through.
func RedisRateLimit(rdb *rd.Client, scope string, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rdb == nil {
			c.Next()
			return
		}

		caller := "ip:" + c.ClientIP()
		if p, ok := Principal(c); ok {
			caller = "user:" + strconv.FormatUint(uint64(p.ID), 10)
		}
		key := rediskey.RateLimitKey(scope, caller)

		now := time.Now()
		windowSec := int64(window.Seconds())
		if windowSec < 1 {
			windowSec = 1
		}
		// millisecond scores keep bursts inside one second apart
		nowMs := now.UnixMilli()
		windowStart := nowMs - windowSec*1000
		member := fmt.Sprintf("%d-%d", nowMs, now.UnixNano())

		res, err := rdb.Eval(c.Request.Context(), luaRateLimit, []string{key},
			nowMs, windowStart, windowSec, member, limit).Int()
		if err != nil {
			log.Warn().Err(err).Str("key", key).Msg("rate limiter unavailable")
			c.Next()
			return
		}

		if res < 0 {
			c.Header("Retry-After", strconv.FormatInt(windowSec, 10))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"code": http.StatusTooManyRequests,
				"msg":  "Too many requests, please try again later",
			})
			return
		}
		c.Next()
	}
}
