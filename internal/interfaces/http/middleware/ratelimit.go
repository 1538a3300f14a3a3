package middleware

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/sapogeth/qylysh-higgsfiled/internal/infrastructure/persistence/redis"
	"github.com/sapogeth/qylysh-higgsfiled/internal/interfaces/http/dto"
	"github.com/sapogeth/qylysh-higgsfiled/pkg/errors"
	"github.com/sapogeth/qylysh-higgsfiled/pkg/logger"
)

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerSecond int
	// Burst 仅进程内限流器使用
	Burst     int
	KeyPrefix string
}

// RateLimiter 限流器接口，返回是否放行与剩余配额
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, int, error)
}

// RateLimit 按客户端 IP + 路由限流；limiter 出错时放行
func RateLimit(cfg RateLimitConfig, limiter RateLimiter) gin.HandlerFunc {
	if !cfg.Enabled || limiter == nil {
		return func(c *gin.Context) {
			c.Next()
		}
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 100
	}
	limitHeader := strconv.Itoa(cfg.RequestsPerSecond)

	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		key := redis.BuildRateLimitKey(cfg.KeyPrefix, c.ClientIP(), route)

		allowed, remaining, err := limiter.Allow(c.Request.Context(), key, cfg.RequestsPerSecond, time.Second)
		if err != nil {
			logger.Warn(c.Request.Context(), "rate limiter unavailable, allowing request", "error", err.Error())
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", limitHeader)
		c.Header("X-RateLimit-Remaining", strconv.Itoa(max(remaining, 0)))
		if !allowed {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, dto.ErrorResponse{
				Code:    http.StatusTooManyRequests,
				Message: "rate limit exceeded",
				Error:   &dto.ErrorDetail{ErrorCode: string(errors.CodeTooManyRequests)},
				TraceID: c.GetString(string(logger.TraceIDKey)),
			})
			return
		}

		c.Next()
	}
}

// LocalRateLimiter 进程内令牌桶限流器，Redis 不可用时使用
// 每个键一个 rate.Limiter，闲置后由 go-cache 过期回收
type LocalRateLimiter struct {
	burst    int
	mu       sync.Mutex
	limiters *gocache.Cache
}

// NewLocalRateLimiter 创建进程内限流器
func NewLocalRateLimiter(burst int) *LocalRateLimiter {
	return &LocalRateLimiter{
		burst:    burst,
		limiters: gocache.New(10*time.Minute, 5*time.Minute),
	}
}

// Allow 实现 RateLimiter
func (l *LocalRateLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (bool, int, error) {
	lim := l.get(key, limit, window)
	ok := lim.Allow()
	l.limiters.SetDefault(key, lim)
	return ok, int(lim.Tokens()), nil
}

func (l *LocalRateLimiter) get(key string, limit int, window time.Duration) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if v, ok := l.limiters.Get(key); ok {
		return v.(*rate.Limiter)
	}
	burst := l.burst
	if burst < limit {
		burst = limit
	}
	lim := rate.NewLimiter(rate.Limit(float64(limit)/window.Seconds()), burst)
	l.limiters.SetDefault(key, lim)
	return lim
}
