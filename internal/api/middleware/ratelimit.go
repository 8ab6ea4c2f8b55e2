package middleware

import (
	"context"
	"customer-api/internal/config"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

const limiterCleanupInterval = 10 * time.Minute

// RateLimiterMiddleware limits requests per client IP. With a Redis client it
// counts requests in a fixed window shared by all replicas. Without one it
// keeps a token bucket per IP in process.
type RateLimiterMiddleware struct {
	redisClient *redis.Client
	window      time.Duration

	limiters sync.Map
	cfg      config.RateLimitConfig
	logger   *slog.Logger
	stop     chan struct{}
	stopOnce sync.Once
}

func NewRateLimiterMiddleware(cfg config.RateLimitConfig, redisClient *redis.Client, logger *slog.Logger) *RateLimiterMiddleware {
	rl := &RateLimiterMiddleware{
		redisClient: redisClient,
		window:      1 * time.Second,
		cfg:         cfg,
		logger:      logger.With("component", "RateLimiter"),
		stop:        make(chan struct{}),
	}

	switch {
	case !cfg.Enabled:
		rl.logger.Info("Rate limiting is disabled via configuration.")
	case redisClient != nil:
		rl.logger.Info("Rate limiter using Redis fixed window", "limit", rl.windowLimit(), "window", rl.window)
	default:
		rl.logger.Info("Rate limiter using in-process token buckets", "rps", cfg.RPS, "burst", cfg.Burst)
		go rl.cleanupLimiters(limiterCleanupInterval)
	}

	return rl
}

// Close stops the bucket cleanup goroutine. The Redis client is owned by the caller.
func (rl *RateLimiterMiddleware) Close() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

func (rl *RateLimiterMiddleware) getLimiter(ip string) *rate.Limiter {
	if limiter, ok := rl.limiters.Load(ip); ok {
		return limiter.(*rate.Limiter)
	}
	limiter, _ := rl.limiters.LoadOrStore(ip, rate.NewLimiter(rate.Limit(rl.cfg.RPS), rl.cfg.Burst))
	return limiter.(*rate.Limiter)
}

func (rl *RateLimiterMiddleware) cleanupLimiters(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.evictIdle()
		}
	}
}

// evictIdle drops limiters whose bucket has refilled completely.
func (rl *RateLimiterMiddleware) evictIdle() {
	now := time.Now()
	rl.limiters.Range(func(key, value any) bool {
		limiter := value.(*rate.Limiter)
		if limiter.TokensAt(now) >= float64(limiter.Burst()) {
			rl.limiters.Delete(key)
		}
		return true
	})
}

// windowLimit is the number of requests a client may make per window in Redis mode.
func (rl *RateLimiterMiddleware) windowLimit() int64 {
	limit := int64(rl.cfg.RPS * rl.window.Seconds())
	if limit < 1 {
		return 1
	}
	return limit
}

// allowRedis lets the request through whenever Redis cannot be reached.
func (rl *RateLimiterMiddleware) allowRedis(ctx context.Context, ip string) bool {
	key := fmt.Sprintf("ratelimit:%s", ip)

	pipe := rl.redisClient.Pipeline()
	incrCmd := pipe.Incr(ctx, key)
	ttlCmd := pipe.TTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		rl.logger.ErrorContext(ctx, "Redis pipeline failed during rate limiting check", "error", err, "ip", ip, "key", key)
		return true
	}

	count, err := incrCmd.Result()
	if err != nil {
		rl.logger.ErrorContext(ctx, "Failed to get INCR result after pipeline exec", "error", err, "ip", ip, "key", key)
		return true
	}

	// -1 means the key has no expiry yet, -2 that it vanished between commands.
	if ttl, err := ttlCmd.Result(); err != nil || ttl < 0 {
		if err := rl.redisClient.Expire(ctx, key, rl.window).Err(); err != nil {
			rl.logger.ErrorContext(ctx, "Failed to set Redis EXPIRE for rate limit key", "error", err, "ip", ip, "key", key)
		}
	}

	return count <= rl.windowLimit()
}

func (rl *RateLimiterMiddleware) allow(ctx context.Context, ip string) bool {
	if rl.redisClient != nil {
		return rl.allowRedis(ctx, ip)
	}
	return rl.getLimiter(ip).Allow()
}

func (rl *RateLimiterMiddleware) extractIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		return strings.TrimSpace(ips[0])
	}

	if xRealIP := r.Header.Get("X-Real-IP"); xRealIP != "" {
		return xRealIP
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

func (rl *RateLimiterMiddleware) Middleware(next http.Handler) http.Handler {
	if !rl.cfg.Enabled {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := rl.extractIP(r)

		if !rl.allow(r.Context(), ip) {
			rl.logger.WarnContext(r.Context(), "Rate limit exceeded", slog.String("ip", ip))
			w.Header().Set("Content-Type", "application/json")
			if rl.redisClient != nil {
				w.Header().Set("Retry-After", fmt.Sprintf("%.0f", rl.window.Seconds()))
			}
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]string{
					"message": "Rate limit exceeded",
				},
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}
