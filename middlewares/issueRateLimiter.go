package middlewares

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// LimitWindow is the period issue creation is counted over.
const LimitWindow = 24 * time.Hour

// IssueLimiter decides whether key may create another issue.
type IssueLimiter interface {
	Allow(ctx context.Context, key string) (allowed bool, retryAfter time.Duration, err error)
}

// RedisLimiter counts creations per key in a fixed window using INCR and
// EXPIRE, so the count is shared by every process using the same Redis.
type RedisLimiter struct {
	client *redis.Client
	prefix string
	limit  int
}

func NewRedisLimiter(client *redis.Client, prefix string, limit int) *RedisLimiter {
	return &RedisLimiter{client: client, prefix: prefix, limit: limit}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	userKey := l.prefix + ":" + key

	count, err := l.client.Incr(ctx, userKey).Result()
	if err != nil {
		return false, 0, fmt.Errorf("incrementing %s: %w", userKey, err)
	}

	// The window starts with the first creation.
	if count == 1 {
		if err := l.client.Expire(ctx, userKey, LimitWindow).Err(); err != nil {
			return false, 0, fmt.Errorf("setting TTL on %s: %w", userKey, err)
		}
	}

	if count > int64(l.limit) {
		retryAfter, _ := l.client.TTL(ctx, userKey).Result()
		return false, retryAfter, nil
	}
	return true, 0, nil
}

// LocalLimiter is a per-key token bucket held in memory. It allows a burst
// of limit creations and refills one every window/limit.
type LocalLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    int
	window   time.Duration
}

func NewLocalLimiter(limit int, window time.Duration) *LocalLimiter {
	return &LocalLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    limit,
		window:   window,
	}
}

func (l *LocalLimiter) Allow(_ context.Context, key string) (bool, time.Duration, error) {
	l.mu.Lock()
	lim, ok := l.limiters[key]
	if !ok {
		lim = rate.NewLimiter(rate.Every(l.window/time.Duration(l.limit)), l.limit)
		l.limiters[key] = lim
	}
	l.mu.Unlock()

	if lim.Allow() {
		return true, 0, nil
	}
	r := lim.Reserve()
	delay := r.Delay()
	r.Cancel()
	return false, delay, nil
}

// IssueRateLimiter caps issue creation per session. It must run after
// SessionMiddleware.
func IssueRateLimiter(limiter IssueLimiter, logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, ok := CurrentSession(c)
		if !ok || session.Token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
			c.Abort()
			return
		}

		allowed, retryAfter, err := limiter.Allow(c.Request.Context(), session.Token)
		if err != nil {
			logger.Error("rate limiter failed", "err", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
			c.Abort()
			return
		}

		if !allowed {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"retry_after": retryAfter.Seconds(),
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
