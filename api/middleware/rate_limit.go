/*
 * @module api/middleware/rate_limit
 * @description 评估接口限流中间件，基于Redis按全局与API Key两层计数
 * @architecture 中间件模式 - HTTP请求拦截和验证
 * @documentReference ai_docs/rule_evaluation_req.md
 * @stateFlow 规则构造 -> Redis计数检查 -> 放行或429
 * @rules 限流器初始化失败或Redis临时不可用时放行请求，限流只降级不阻断
 * @dependencies rulehub-service/service/rate_limiter, github.com/go-chi/render
 * @refs api/routes.go, service/rate_limiter/redis_rate_limiter.go
 */

package middleware

import (
	"log/slog"
	"net/http"
	"os"
	"strconv"

	"rulehub-service/service/rate_limiter"

	"github.com/go-chi/render"
)

// RateLimitMiddleware 评估接口限流中间件
type RateLimitMiddleware struct {
	limiter     *rate_limiter.RedisRateLimiter // 为nil时限流关闭
	globalLimit int
	keyLimit    int
	window      int
}

// NewRateLimitMiddleware 创建限流中间件实例
// EVAL_RATE_LIMIT_ENABLED=true 时启用，限流参数来自环境变量：
//
//	EVAL_RATE_LIMIT_GLOBAL  窗口内全局最大请求数，默认1000
//	EVAL_RATE_LIMIT_PER_KEY 窗口内单个API Key最大请求数，默认100
//	EVAL_RATE_LIMIT_WINDOW  时间窗口秒数，默认60
func NewRateLimitMiddleware() *RateLimitMiddleware {
	m := &RateLimitMiddleware{
		globalLimit: getEnvInt("EVAL_RATE_LIMIT_GLOBAL", 1000),
		keyLimit:    getEnvInt("EVAL_RATE_LIMIT_PER_KEY", 100),
		window:      getEnvInt("EVAL_RATE_LIMIT_WINDOW", 60),
	}

	if os.Getenv("EVAL_RATE_LIMIT_ENABLED") != "true" {
		return m
	}

	limiter, err := rate_limiter.NewRedisRateLimiter()
	if err != nil {
		slog.Warn("限流器初始化失败，限流关闭", "error", err)
		return m
	}

	m.limiter = limiter
	return m
}

// Enabled 限流是否启用
func (m *RateLimitMiddleware) Enabled() bool {
	return m.limiter != nil
}

// Middleware 限流中间件处理函数
func (m *RateLimitMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.Enabled() {
			next.ServeHTTP(w, r)
			return
		}

		rules := []rate_limiter.RateLimitRule{
			{
				Type:        rate_limiter.LimitTypeGlobal,
				TimeWindow:  m.window,
				MaxRequests: m.globalLimit,
			},
		}
		if key := r.Header.Get(APIKeyHeader); key != "" {
			rules = append(rules, rate_limiter.RateLimitRule{
				Type:        rate_limiter.LimitTypeAPIKey,
				TargetID:    keyFingerprint(key),
				TimeWindow:  m.window,
				MaxRequests: m.keyLimit,
			})
		}

		result, err := m.limiter.CheckRateLimit(r.Context(), rules)
		if err != nil {
			// Redis临时故障时放行，不让限流成为单点
			slog.Warn("限流检查失败，本次请求放行", "error", err)
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt, 10))

		if !result.Allowed {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			render.JSON(w, r, map[string]interface{}{
				"status":  http.StatusTooManyRequests,
				"message": result.Message,
				"error":   "Too Many Requests",
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}

// getEnvInt 获取整型环境变量，解析失败返回默认值
func getEnvInt(key string, defaultValue int) int {
	if raw := os.Getenv(key); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			return value
		}
	}
	return defaultValue
}
