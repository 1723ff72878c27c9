package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

// Limiter throttles requests per client IP.
type Limiter interface {
	Middleware() echo.MiddlewareFunc
}

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client IP in process memory. Buckets
// idle for longer than ttl are swept; a zero ttl keeps them forever.
type RateLimiter struct {
	mu        sync.Mutex
	clients   map[string]*clientBucket
	limit     rate.Limit
	burst     int
	ttl       time.Duration
	lastSweep time.Time
	now       func() time.Time
}

func NewRateLimiter(r rate.Limit, burst int, ttl time.Duration) *RateLimiter {
	return &RateLimiter{
		clients: make(map[string]*clientBucket),
		limit:   r,
		burst:   burst,
		ttl:     ttl,
		now:     time.Now,
	}
}

func (l *RateLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			now := l.now()
			reservation := l.bucket(c.RealIP(), now).ReserveN(now, 1)
			if !reservation.OK() {
				return echo.NewHTTPError(http.StatusTooManyRequests, "too many requests")
			}
			if delay := reservation.DelayFrom(now); delay > 0 {
				reservation.CancelAt(now)
				c.Response().Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(delay.Seconds()))))
				return echo.NewHTTPError(http.StatusTooManyRequests, "too many requests")
			}
			return next(c)
		}
	}
}

func (l *RateLimiter) bucket(ip string, now time.Time) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	client, ok := l.clients[ip]
	if !ok {
		client = &clientBucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[ip] = client
	}
	client.lastSeen = now
	l.sweep(now)
	return client.limiter
}

// sweep runs at most once per ttl and must be called with mu held.
func (l *RateLimiter) sweep(now time.Time) {
	if l.ttl <= 0 || now.Sub(l.lastSweep) < l.ttl {
		return
	}
	l.lastSweep = now
	cutoff := now.Add(-l.ttl)
	for ip, client := range l.clients {
		if client.lastSeen.Before(cutoff) {
			delete(l.clients, ip)
		}
	}
}
