package api

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/vytor/quests/internal/errors"
	"github.com/vytor/quests/internal/logger"
	"golang.org/x/time/rate"
)

// IPLimiter keeps one token bucket per client address.
type IPLimiter struct {
	mu       sync.Mutex
	limiters map[string]*visitor
	every    rate.Limit
	burst    int
	idle     time.Duration
	now      func() time.Time
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewIPLimiter allows perMinute requests per address with the given burst.
func NewIPLimiter(perMinute, burst int) *IPLimiter {
	return &IPLimiter{
		limiters: make(map[string]*visitor),
		every:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    burst,
		idle:     10 * time.Minute,
		now:      time.Now,
	}
}

// Allow reports whether a request from addr may proceed now.
func (l *IPLimiter) Allow(addr string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	v, ok := l.limiters[addr]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.every, l.burst)}
		l.limiters[addr] = v
	}
	v.lastSeen = now
	l.sweep(now)
	return v.limiter.AllowN(now, 1)
}

// sweep drops addresses idle for longer than l.idle. Callers hold l.mu.
func (l *IPLimiter) sweep(now time.Time) {
	for addr, v := range l.limiters {
		if now.Sub(v.lastSeen) > l.idle {
			delete(l.limiters, addr)
		}
	}
}

func (l *IPLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		addr := clientIP(r)
		if !l.Allow(addr) {
			logger.FromContext(r.Context()).Warn("rate limit exceeded: addr=%s", addr)
			w.Header().Set("Retry-After", "60")
			handleError(w, r, errors.NewRateLimitedError())
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
