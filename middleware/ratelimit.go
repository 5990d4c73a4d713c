package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const limiterIdleTTL = 10 * time.Minute

// clientLimiters holds one token bucket per client IP and evicts buckets
// for clients that have gone quiet.
type clientLimiters struct {
	mu      sync.Mutex
	rps     rate.Limit
	burst   int
	buckets map[string]*clientBucket
}

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newClientLimiters(r rate.Limit, b int) *clientLimiters {
	cl := &clientLimiters{
		rps:     r,
		burst:   b,
		buckets: make(map[string]*clientBucket),
	}
	go cl.evictLoop()
	return cl
}

func (cl *clientLimiters) allow(ip string) bool {
	cl.mu.Lock()
	bucket, ok := cl.buckets[ip]
	if !ok {
		bucket = &clientBucket{limiter: rate.NewLimiter(cl.rps, cl.burst)}
		cl.buckets[ip] = bucket
	}
	bucket.lastSeen = time.Now()
	cl.mu.Unlock()
	return bucket.limiter.Allow()
}

func (cl *clientLimiters) evictLoop() {
	ticker := time.NewTicker(limiterIdleTTL / 2)
	defer ticker.Stop()
	for range ticker.C {
		cutoff := time.Now().Add(-limiterIdleTTL)
		cl.mu.Lock()
		for ip, bucket := range cl.buckets {
			if bucket.lastSeen.Before(cutoff) {
				delete(cl.buckets, ip)
			}
		}
		cl.mu.Unlock()
	}
}

// RateLimit provides per-IP token-bucket rate limiting.
// r = requests per second, b = burst size.
func RateLimit(r rate.Limit, b int) gin.HandlerFunc {
	limiters := newClientLimiters(r, b)
	return func(c *gin.Context) {
		if !limiters.allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
