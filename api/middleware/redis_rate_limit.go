package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

type windowCounter interface {
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// windowScript increments the window counter and starts its expiry in the
// same step, so a counter key never exists without a TTL.
const windowScript = `
local count = redis.call("INCR", KEYS[1])
if count == 1 or redis.call("PTTL", KEYS[1]) < 0 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return count
`

// RedisRateLimiter counts requests per client IP in fixed windows shared by
// every instance. Redis failures let the request through.
type RedisRateLimiter struct {
	counter windowCounter
	prefix  string
	limit   int64
	window  time.Duration
	timeout time.Duration
	logger  logrus.FieldLogger
}

func NewRedisRateLimiter(client *redis.Client, name string, limit int, window time.Duration, logger logrus.FieldLogger) *RedisRateLimiter {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if window <= 0 {
		window = time.Second
	}
	return &RedisRateLimiter{
		counter: client,
		prefix:  "useraccount:ratelimit:" + name + ":",
		limit:   int64(limit),
		window:  window,
		timeout: 250 * time.Millisecond,
		logger:  logger,
	}
}

func (l *RedisRateLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !l.allow(c.Request().Context(), c.RealIP()) {
				return echo.NewHTTPError(http.StatusTooManyRequests, "too many requests")
			}
			return next(c)
		}
	}
}

func (l *RedisRateLimiter) allow(ctx context.Context, ip string) bool {
	if l.limit <= 0 {
		return true
	}
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	key := l.prefix + ip
	count, err := l.counter.Eval(ctx, windowScript, []string{key}, l.window.Milliseconds()).Int64()
	if err != nil {
		l.logger.WithError(err).WithField("key", key).Error("redis rate limiter error")
		return true
	}
	return count <= l.limit
}
