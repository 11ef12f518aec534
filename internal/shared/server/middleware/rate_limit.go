package middleware

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"skills-backend/internal/shared/server/respond"
)

const (
	defaultRateLimitGroup = "DEFAULT"
	// bucketIdleTTL is how long an untouched bucket survives before the sweep drops it.
	bucketIdleTTL = 10 * time.Minute
	sweepEvery    = 256
)

// GroupByRoute returns a GroupFor func keyed by "METHOD /full/path" using the
// registered route pattern, e.g. "GET /api/v1/resume/runs/:id".
func GroupByRoute(routes map[string]string) func(*gin.Context) string {
	return func(c *gin.Context) string {
		return routes[c.Request.Method+" "+c.FullPath()]
	}
}

// RateLimitRule is a token bucket: Rate tokens per second, at most Burst held.
type RateLimitRule struct {
	Rate  float64
	Burst int
}

// RateLimitConfig maps requests to a named group and each group to a rule.
// Requests whose group has no rule pass through.
type RateLimitConfig struct {
	Rules        map[string]RateLimitRule
	DefaultGroup string
	GroupFor     func(*gin.Context) string
	Limiter      *RateLimiter
}

// RateLimiter holds one bucket per owner and group.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*rateBucket
	now     func() time.Time
	calls   int
}

type rateBucket struct {
	tokens float64
	last   time.Time
}

// NewRateLimiter constructs a RateLimiter; now defaults to time.Now.
func NewRateLimiter(now func() time.Time) *RateLimiter {
	if now == nil {
		now = time.Now
	}
	return &RateLimiter{
		buckets: make(map[string]*rateBucket),
		now:     now,
	}
}

// RateLimit rejects requests over their group's budget with 429 and a
// Retry-After header. The bucket key is the owner id, or the client IP for
// anonymous requests.
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	if cfg.Limiter == nil {
		cfg.Limiter = NewRateLimiter(nil)
	}
	if cfg.DefaultGroup == "" {
		cfg.DefaultGroup = defaultRateLimitGroup
	}
	return func(c *gin.Context) {
		group := cfg.DefaultGroup
		if cfg.GroupFor != nil {
			if g := strings.TrimSpace(cfg.GroupFor(c)); g != "" {
				group = g
			}
		}
		rule, ok := cfg.Rules[group]
		if !ok {
			c.Next()
			return
		}

		principal := strings.TrimSpace(UserIDFromContext(c))
		if principal == "" {
			principal = "ip:" + c.ClientIP()
		}
		allowed, retryAfter := cfg.Limiter.Allow(principal+"|"+group, rule)
		if allowed {
			c.Next()
			return
		}

		retryAfterMs := retryAfter.Milliseconds()
		if retryAfterMs <= 0 {
			retryAfterMs = 1000
		}
		c.Header("Retry-After", strconv.FormatInt((retryAfterMs+999)/1000, 10))
		respond.Error(c, http.StatusTooManyRequests, "rate_limited", "Too many requests. Please slow down.", gin.H{
			"group":        group,
			"retryAfterMs": retryAfterMs,
		})
	}
}

// Allow takes one token from the bucket for key. When the bucket is empty it
// reports how long until the next token.
func (l *RateLimiter) Allow(key string, rule RateLimitRule) (bool, time.Duration) {
	if l == nil || rule.Rate <= 0 || rule.Burst <= 0 {
		return true, 0
	}
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.calls++
	if l.calls%sweepEvery == 0 {
		l.sweepLocked(now)
	}

	bucket, ok := l.buckets[key]
	if !ok {
		bucket = &rateBucket{tokens: float64(rule.Burst), last: now}
		l.buckets[key] = bucket
	}
	if elapsed := now.Sub(bucket.last).Seconds(); elapsed > 0 {
		bucket.tokens = math.Min(float64(rule.Burst), bucket.tokens+elapsed*rule.Rate)
		bucket.last = now
	}
	if bucket.tokens >= 1 {
		bucket.tokens--
		return true, 0
	}
	wait := (1 - bucket.tokens) / rule.Rate
	return false, time.Duration(math.Ceil(wait*1000)) * time.Millisecond
}

// Len reports how many buckets are tracked.
func (l *RateLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

func (l *RateLimiter) sweepLocked(now time.Time) {
	for key, b := range l.buckets {
		if now.Sub(b.last) > bucketIdleTTL {
			delete(l.buckets, key)
		}
	}
}
