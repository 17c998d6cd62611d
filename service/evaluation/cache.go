/*
 * @module service/evaluation/cache
 * @description 评估结果缓存，按规则内容哈希键控并受TTL约束，支持内存与Redis两种后端
 * @architecture 工具层 - 缓存能力
 * @documentReference ai_docs/rule_evaluation_req.md
 * @stateFlow 内容哈希 -> 缓存查找 -> 命中复用/未命中计算后写入 -> TTL过期清理
 * @rules 缓存键包含配置版本，配置更新后旧缓存自动失效；缓存故障降级为直接计算
 * @dependencies github.com/go-redis/redis/v8, crypto/sha256
 * @refs service/evaluation/batch_coordinator.go, service/maintenance
 */

package evaluation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"rulehub-service/service/models"

	"github.com/go-redis/redis/v8"
)

// CacheStats 缓存运行统计
type CacheStats struct {
	Backend string `json:"backend"`
	Entries int    `json:"entries"`
	Hits    int64  `json:"hits"`
	Misses  int64  `json:"misses"`
}

// ResultCache 评估结果缓存
type ResultCache interface {
	Get(ctx context.Context, key string) (*models.EvaluationResult, bool)
	Set(ctx context.Context, key string, result *models.EvaluationResult, ttl time.Duration)
	Sweep(ctx context.Context)
	Stats(ctx context.Context) CacheStats
}

// ContentHash 规则内容哈希，携带配置版本使配置更新后旧缓存失效
func ContentHash(rule *models.RuleRecord, configVersion string) string {
	payload, err := json.Marshal(rule)
	if err != nil {
		payload = []byte(rule.ID)
	}
	digest := sha256.Sum256(append(payload, []byte("|"+configVersion)...))
	return hex.EncodeToString(digest[:])
}

// ===== 内存缓存 =====

type memoryEntry struct {
	result    *models.EvaluationResult
	expiresAt time.Time
}

// MemoryCache 进程内TTL缓存
type MemoryCache struct {
	mutex   sync.RWMutex
	entries map[string]memoryEntry
	hits    atomic.Int64
	misses  atomic.Int64
}

// NewMemoryCache 创建内存缓存
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryEntry)}
}

// Get 查找缓存，过期条目视为未命中
func (c *MemoryCache) Get(ctx context.Context, key string) (*models.EvaluationResult, bool) {
	c.mutex.RLock()
	entry, ok := c.entries[key]
	c.mutex.RUnlock()

	if !ok || time.Now().After(entry.expiresAt) {
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return entry.result, true
}

// Set 写入缓存
func (c *MemoryCache) Set(ctx context.Context, key string, result *models.EvaluationResult, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	c.mutex.Lock()
	c.entries[key] = memoryEntry{result: result, expiresAt: time.Now().Add(ttl)}
	c.mutex.Unlock()
}

// Sweep 清理过期条目
func (c *MemoryCache) Sweep(ctx context.Context) {
	now := time.Now()
	c.mutex.Lock()
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
	c.mutex.Unlock()
}

// Stats 缓存统计
func (c *MemoryCache) Stats(ctx context.Context) CacheStats {
	c.mutex.RLock()
	entries := len(c.entries)
	c.mutex.RUnlock()

	return CacheStats{
		Backend: "memory",
		Entries: entries,
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
	}
}

// ===== Redis缓存 =====

const redisKeyPrefix = "rulehub:eval:"

// RedisCache 基于Redis的分布式结果缓存，多实例部署时共享
type RedisCache struct {
	client *redis.Client
	hits   atomic.Int64
	misses atomic.Int64
}

// NewRedisCache 从环境变量创建Redis缓存
func NewRedisCache() (*RedisCache, error) {
	host := getEnvWithDefault("REDIS_HOST", "localhost")
	port := getEnvWithDefault("REDIS_PORT", "6379")
	password := os.Getenv("REDIS_PASSWORD")
	db := 0
	if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
		fmt.Sscanf(dbStr, "%d", &db)
	}

	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%s", host, port),
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis连接失败: %w", err)
	}

	slog.Info("Redis结果缓存初始化成功", "redis_host", host, "redis_port", port)
	return &RedisCache{client: client}, nil
}

// Get 查找缓存，Redis故障降级为未命中
func (c *RedisCache) Get(ctx context.Context, key string) (*models.EvaluationResult, bool) {
	payload, err := c.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if err != nil {
		c.misses.Add(1)
		return nil, false
	}

	var result models.EvaluationResult
	if err := json.Unmarshal(payload, &result); err != nil {
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return &result, true
}

// Set 写入缓存，失败仅记录日志
func (c *RedisCache) Set(ctx context.Context, key string, result *models.EvaluationResult, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, redisKeyPrefix+key, payload, ttl).Err(); err != nil {
		slog.Warn("评估结果写入Redis缓存失败", "error", err)
	}
}

// Sweep Redis按TTL自动过期，无需主动清理
func (c *RedisCache) Sweep(ctx context.Context) {}

// Stats 缓存统计，条目数通过SCAN统计
func (c *RedisCache) Stats(ctx context.Context) CacheStats {
	stats := CacheStats{
		Backend: "redis",
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
	}

	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, redisKeyPrefix+"*", 200).Result()
		if err != nil {
			break
		}
		stats.Entries += len(keys)
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return stats
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
