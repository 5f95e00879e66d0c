package sources

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/BaSui01/medgraph/types"
)

// RateLimitedSource 用令牌桶限流包装任意来源客户端，
// 保护配额受限或脆弱的上游服务。超限的调用会阻塞等待令牌，
// ctx 到期则放弃并返回 ctx 错误，由派发器记录为该来源的失败。
type RateLimitedSource struct {
	inner   RetrieveClient
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewRateLimitedSource 创建限流装饰器。
// rps 是每秒允许的请求数，burst 是突发容量。
func NewRateLimitedSource(inner RetrieveClient, rps float64, burst int, logger *zap.Logger) *RateLimitedSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RateLimitedSource{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		logger:  logger.With(zap.String("component", "source_ratelimit")),
	}
}

// Retrieve 实现 RetrieveClient。
func (r *RateLimitedSource) Retrieve(ctx context.Context, question, mode string, topK int) (*types.RawSourceResult, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		r.logger.Warn("rate limit wait aborted", zap.Error(err))
		return nil, err
	}
	return r.inner.Retrieve(ctx, question, mode, topK)
}
