package frontdoor

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const (
	limiterSweepEvery = 5 * time.Minute
	limiterMaxIdle    = 10 * time.Minute
)

// limiterSet holds one token bucket per client IP.
type limiterSet struct {
	rps   rate.Limit
	burst int
	now   func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket
}

type bucket struct {
	*rate.Limiter
	lastSeen time.Time
}

func newLimiterSet(rps, burst int) *limiterSet {
	return &limiterSet{
		rps:     rate.Limit(rps),
		burst:   burst,
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
}

// allow takes a token from ip's bucket, creating the bucket on first use.
func (s *limiterSet) allow(ip string) bool {
	s.mu.Lock()
	b, ok := s.buckets[ip]
	if !ok {
		b = &bucket{Limiter: rate.NewLimiter(s.rps, s.burst)}
		s.buckets[ip] = b
	}
	now := s.now()
	b.lastSeen = now
	s.mu.Unlock()

	return b.AllowN(now, 1)
}

// sweep drops buckets idle for longer than maxIdle and reports how many
// remain.
func (s *limiterSet) sweep(maxIdle time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := s.now().Add(-maxIdle)
	for ip, b := range s.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(s.buckets, ip)
		}
	}
	return len(s.buckets)
}

func (s *limiterSet) sweepUntilDone(ctx context.Context) {
	ticker := time.NewTicker(limiterSweepEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.sweep(limiterMaxIdle)
		case <-ctx.Done():
			return
		}
	}
}

// RateLimiter limits each client IP to rps requests per second with the given
// burst. Idle clients are forgotten until ctx is done.
func RateLimiter(ctx context.Context, rps, burst int) gin.HandlerFunc {
	set := newLimiterSet(rps, burst)
	go set.sweepUntilDone(ctx)

	return func(c *gin.Context) {
		if set.allow(c.ClientIP()) {
			c.Next()
			return
		}
		c.Header("Retry-After", "1")
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error": "rate limit exceeded",
		})
	}
}
