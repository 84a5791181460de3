package middleware

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimit throttles each user (or client IP before login) to perMinute
// requests with the given burst. It guards the routes that call the LLM.
func RateLimit(perMinute, burst int) gin.HandlerFunc {
	if perMinute <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	set := newLimiterSet(perMinute, burst)

	return func(c *gin.Context) {
		k := c.ClientIP()
		if uid := c.GetInt("user_id"); uid != 0 {
			k = fmt.Sprintf("uid:%d", uid)
		}
		if !set.allow(k) {
			c.Header("Retry-After", "10")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests, try again shortly"})
			return
		}
		c.Next()
	}
}

type visitor struct {
	lim  *rate.Limiter
	seen time.Time
}

// limiterSet keeps one token bucket per key. Keys idle for longer than idle
// are dropped; by then their bucket has refilled, so nothing is lost.
type limiterSet struct {
	mu        sync.Mutex
	every     rate.Limit
	burst     int
	idle      time.Duration
	m         map[string]*visitor
	lastSweep time.Time
	now       func() time.Time
}

func newLimiterSet(perMinute, burst int) *limiterSet {
	if burst < 1 {
		burst = 1
	}
	interval := time.Minute / time.Duration(perMinute)
	idle := 10 * time.Minute
	if refill := interval * time.Duration(burst); refill > idle {
		idle = refill
	}
	return &limiterSet{
		every: rate.Every(interval),
		burst: burst,
		idle:  idle,
		m:     map[string]*visitor{},
		now:   time.Now,
	}
}

func (s *limiterSet) allow(k string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.Sub(s.lastSweep) >= s.idle {
		for key, v := range s.m {
			if now.Sub(v.seen) >= s.idle {
				delete(s.m, key)
			}
		}
		s.lastSweep = now
	}

	v, ok := s.m[k]
	if !ok {
		v = &visitor{lim: rate.NewLimiter(s.every, s.burst)}
		s.m[k] = v
	}
	v.seen = now
	return v.lim.AllowN(now, 1)
}

func (s *limiterSet) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.m)
}
