package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"broadway/utils"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const defaultRequestsPerMinute = 100

// visitor is one client's token bucket and when it was last seen.
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// clientLimits hands out a token bucket per client IP. Buckets idle for longer than ttl are dropped.
type clientLimits struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	every    rate.Limit
	burst    int
	ttl      time.Duration
	now      func() time.Time
}

func newClientLimits(perMinute int) *clientLimits {
	if perMinute <= 0 {
		perMinute = defaultRequestsPerMinute
	}
	return &clientLimits{
		visitors: make(map[string]*visitor),
		every:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    perMinute,
		ttl:      10 * time.Minute,
		now:      time.Now,
	}
}

// reserve takes a token for ip and reports how long to wait when none is left.
func (l *clientLimits) reserve(ip string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	v, ok := l.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.every, l.burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = now
	l.sweep(now)

	r := v.limiter.ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// sweep must be called with mu held.
func (l *clientLimits) sweep(now time.Time) {
	for ip, v := range l.visitors {
		if now.Sub(v.lastSeen) > l.ttl {
			delete(l.visitors, ip)
		}
	}
}

// RateLimitMiddleware allows perMinute requests per client IP with a burst of the same size.
func RateLimitMiddleware(perMinute int) gin.HandlerFunc {
	limits := newClientLimits(perMinute)
	return func(c *gin.Context) {
		ip := getClientIP(c)
		ok, wait := limits.reserve(ip)
		if !ok {
			secs := int(wait/time.Second) + 1
			c.Header("Retry-After", strconv.Itoa(secs))
			utils.JSONError(c, http.StatusTooManyRequests, "Rate limit exceeded. Try again later.", "client "+ip)
			c.Abort()
			return
		}
		c.Next()
	}
}
