package sources

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/BaSui01/medgraph/types"
)

// DefaultCacheTTL 是缓存条目的默认保留时间。
const DefaultCacheTTL = 10 * time.Minute

// CachedSource 用 Redis 缓存包装任意来源客户端。
// 缓存读写故障只记日志并降级为直连，从不让缓存层
// 成为新的失败来源。
type CachedSource struct {
	inner     RetrieveClient
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
	logger    *zap.Logger
}

// NewCachedSource 创建缓存装饰器。ttl <= 0 使用默认 TTL。
func NewCachedSource(inner RetrieveClient, client *redis.Client, keyPrefix string, ttl time.Duration, logger *zap.Logger) *CachedSource {
	if keyPrefix == "" {
		keyPrefix = "medgraph:source:"
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedSource{
		inner:     inner,
		client:    client,
		keyPrefix: keyPrefix,
		ttl:       ttl,
		logger:    logger.With(zap.String("component", "source_cache")),
	}
}

// cacheKey 由查询参数派生缓存键；参数相同则命中同一条目。
func (c *CachedSource) cacheKey(question, mode string, topK int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%d", question, mode, topK)))
	return c.keyPrefix + hex.EncodeToString(sum[:16])
}

// Retrieve 实现 RetrieveClient。
func (c *CachedSource) Retrieve(ctx context.Context, question, mode string, topK int) (*types.RawSourceResult, error) {
	key := c.cacheKey(question, mode, topK)

	data, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var cached types.RawSourceResult
		if err := json.Unmarshal(data, &cached); err == nil {
			c.logger.Debug("cache hit", zap.String("key", key))
			return &cached, nil
		}
		// 损坏的条目当作未命中处理
		c.logger.Warn("cache entry corrupted", zap.String("key", key))
	} else if err != redis.Nil {
		c.logger.Warn("cache read failed", zap.Error(err))
	}

	result, err := c.inner.Retrieve(ctx, question, mode, topK)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(result); err == nil {
		if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.logger.Warn("cache write failed", zap.Error(err))
		}
	}
	return result, nil
}
