/*
 * @module api/middleware/apikey_auth
 * @description API Key鉴权中间件，基于bcrypt哈希校验调用方密钥
 * @architecture 中间件模式 - HTTP请求拦截和验证
 * @documentReference ai_docs/rule_evaluation_req.md
 * @stateFlow Key提取 -> bcrypt校验 -> 校验结果缓存 -> 下一个处理器
 * @rules 未配置密钥哈希时鉴权关闭；校验成功的Key短期缓存避免重复bcrypt开销
 * @dependencies golang.org/x/crypto/bcrypt, github.com/go-chi/render
 * @refs api/routes.go
 */

package middleware

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/render"
	"golang.org/x/crypto/bcrypt"
)

// APIKeyHeader 调用方密钥所在的请求头
const APIKeyHeader = "X-API-Key"

// APIKeyAuthMiddleware API Key认证中间件
type APIKeyAuthMiddleware struct {
	keyHash []byte // bcrypt哈希，为空表示鉴权关闭
	// 校验通过的Key指纹缓存，避免每个请求都跑一次bcrypt
	verified   map[string]time.Time
	cacheMutex sync.RWMutex
	cacheTTL   time.Duration
	// 白名单路径（不需要鉴权）
	whitelistPaths []string
}

// NewAPIKeyAuthMiddleware 创建API Key认证中间件实例
// 密钥哈希来自环境变量 EVAL_API_KEY_HASH（bcrypt格式），未设置时鉴权关闭
func NewAPIKeyAuthMiddleware() *APIKeyAuthMiddleware {
	var keyHash []byte
	if hash := os.Getenv("EVAL_API_KEY_HASH"); hash != "" {
		keyHash = []byte(hash)
	}

	return &APIKeyAuthMiddleware{
		keyHash:  keyHash,
		verified: make(map[string]time.Time),
		cacheTTL: 5 * time.Minute,
		whitelistPaths: []string{
			"/health",  // 健康检查
			"/ready",   // 就绪检查
			"/metrics", // Prometheus抓取
			"/swagger", // Swagger文档
		},
	}
}

// Enabled 鉴权是否启用
func (m *APIKeyAuthMiddleware) Enabled() bool {
	return len(m.keyHash) > 0
}

// IsWhitelistPath 检查路径是否在白名单中
func (m *APIKeyAuthMiddleware) IsWhitelistPath(path string) bool {
	for _, whitelistPath := range m.whitelistPaths {
		if strings.HasPrefix(path, whitelistPath) {
			return true
		}
	}
	return false
}

// Middleware 认证中间件处理函数
func (m *APIKeyAuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.Enabled() || m.IsWhitelistPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		key := r.Header.Get(APIKeyHeader)
		if key == "" {
			m.respondUnauthorized(w, r, "缺少"+APIKeyHeader+"请求头")
			return
		}

		fingerprint := keyFingerprint(key)
		if m.isVerified(fingerprint) {
			next.ServeHTTP(w, r)
			return
		}

		if err := bcrypt.CompareHashAndPassword(m.keyHash, []byte(key)); err != nil {
			m.respondUnauthorized(w, r, "API Key无效")
			return
		}

		m.markVerified(fingerprint)
		next.ServeHTTP(w, r)
	})
}

// keyFingerprint 密钥指纹，缓存键不保存明文
func keyFingerprint(key string) string {
	digest := sha256.Sum256([]byte(key))
	return hex.EncodeToString(digest[:])
}

// isVerified 查询校验缓存
func (m *APIKeyAuthMiddleware) isVerified(fingerprint string) bool {
	m.cacheMutex.RLock()
	defer m.cacheMutex.RUnlock()

	expiresAt, ok := m.verified[fingerprint]
	return ok && time.Now().Before(expiresAt)
}

// markVerified 写入校验缓存
func (m *APIKeyAuthMiddleware) markVerified(fingerprint string) {
	m.cacheMutex.Lock()
	defer m.cacheMutex.Unlock()

	m.verified[fingerprint] = time.Now().Add(m.cacheTTL)
}

// respondUnauthorized 返回401未授权响应
func (m *APIKeyAuthMiddleware) respondUnauthorized(w http.ResponseWriter, r *http.Request, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	render.JSON(w, r, map[string]interface{}{
		"status":  http.StatusUnauthorized,
		"message": message,
		"error":   "Unauthorized",
	})
}
