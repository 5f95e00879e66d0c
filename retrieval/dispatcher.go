package retrieval

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/BaSui01/medgraph/types"
)

// SourceClient 是外部知识源的统一检索契约。
// 实现方必须尊重 ctx 的取消/超时；引擎内部不做重试，
// 重试策略（若有）属于来源自身的客户端。
type SourceClient interface {
	Retrieve(ctx context.Context, question, mode string, topK int) (*types.RawSourceResult, error)
}

// SourceScorer 从原始结果估计来源相关度，用于后续优先级排序。
// 默认实现是一个显式的占位策略，可替换为学习型打分器。
type SourceScorer interface {
	ScoreSource(raw *types.RawSourceResult) float64
}

// HeuristicScorer 按答案长度与命中数估计来源相关度：
// avg(min(1, len(answer)/500), min(1, count/10))。
// 这不是真实相关度，只用于给来源排出相对优先级。
type HeuristicScorer struct{}

// ScoreSource 实现 SourceScorer。
func (HeuristicScorer) ScoreSource(raw *types.RawSourceResult) float64 {
	if raw == nil {
		return 0
	}
	answerScore := float64(len(raw.Answer)) / 500
	if answerScore > 1 {
		answerScore = 1
	}
	countScore := float64(raw.RetrievalCount) / 10
	if countScore > 1 {
		countScore = 1
	}
	return (answerScore + countScore) / 2
}

// DispatchResult 是单个来源的派发结果：失败时 Raw 为 nil，
// 失败原因只出现在 Outcome.Error 中，从不向上抛出。
type DispatchResult struct {
	Descriptor types.SourceDescriptor
	Raw        *types.RawSourceResult
	Outcome    types.GraphSourceOutcome
}

// Dispatcher 将同一逻辑查询并发派发给多个知识源。
// 每个来源有独立超时；单源失败/超时被就地记录，不影响兄弟调用。
type Dispatcher struct {
	clients       map[types.SourceID]SourceClient
	scorer        SourceScorer
	maxConcurrent int64
	logger        *zap.Logger
	tracer        trace.Tracer
}

// NewDispatcher 创建派发器。clients 将来源 ID 映射到其客户端；
// maxConcurrent 限制同时在途的来源数（0 表示不限制）。
func NewDispatcher(clients map[types.SourceID]SourceClient, scorer SourceScorer, maxConcurrent int64, logger *zap.Logger) *Dispatcher {
	if scorer == nil {
		scorer = HeuristicScorer{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		clients:       clients,
		scorer:        scorer,
		maxConcurrent: maxConcurrent,
		logger:        logger.With(zap.String("component", "dispatcher")),
		tracer:        otel.Tracer("medgraph/retrieval"),
	}
}

// Dispatch 对每个来源并发发起一次检索，恰好返回每个来源一条结果。
// 只在参数非法（空查询、空来源列表、超时非正）时返回错误；
// 部分甚至全部来源失败都不是错误。整个调用在所有来源完成或
// 超时后返回，上界是 perSourceTimeout 而不是各来源之和。
func (d *Dispatcher) Dispatch(ctx context.Context, query string, sources []types.SourceDescriptor, perSourceTimeout time.Duration, topK int) ([]DispatchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, types.NewError(types.ErrInvalidRequest, "query must not be blank")
	}
	if len(sources) == 0 {
		return nil, types.NewError(types.ErrInvalidRequest, "at least one source is required")
	}
	if perSourceTimeout <= 0 {
		return nil, types.NewError(types.ErrInvalidRequest, "per-source timeout must be positive")
	}
	if topK <= 0 {
		return nil, types.NewError(types.ErrInvalidRequest, "top_k must be positive")
	}

	var sem *semaphore.Weighted
	if d.maxConcurrent > 0 {
		sem = semaphore.NewWeighted(d.maxConcurrent)
	}

	// 每个来源写自己的槽位，汇合只发生在 wg.Wait 之后
	results := make([]DispatchResult, len(sources))

	var wg sync.WaitGroup
	for i, desc := range sources {
		wg.Add(1)
		go func(slot int, desc types.SourceDescriptor) {
			defer wg.Done()
			results[slot] = d.dispatchOne(ctx, sem, query, desc, perSourceTimeout, topK)
		}(i, desc)
	}
	wg.Wait()

	succeeded := 0
	for _, r := range results {
		if r.Outcome.Succeeded {
			succeeded++
		}
	}
	d.logger.Info("dispatch completed",
		zap.String("query", truncateStr(query, 80)),
		zap.Int("sources", len(sources)),
		zap.Int("succeeded", succeeded))

	return results, nil
}

// dispatchOne 执行单个来源的检索，把任何失败转换成 Outcome 记录。
func (d *Dispatcher) dispatchOne(ctx context.Context, sem *semaphore.Weighted, query string, desc types.SourceDescriptor, timeout time.Duration, topK int) DispatchResult {
	outcome := types.GraphSourceOutcome{
		SourceID: desc.SourceID,
		Kind:     desc.Kind,
	}
	result := DispatchResult{Descriptor: desc, Outcome: outcome}

	client, ok := d.clients[desc.SourceID]
	if !ok {
		result.Outcome.Error = "no client registered for source"
		d.logger.Warn("source client missing", zap.String("source_id", string(desc.SourceID)))
		return result
	}

	if sem != nil {
		if err := sem.Acquire(ctx, 1); err != nil {
			result.Outcome.Error = err.Error()
			return result
		}
		defer sem.Release(1)
	}

	spanCtx, span := d.tracer.Start(ctx, "retrieval.dispatch_source",
		trace.WithAttributes(
			attribute.String("source.id", string(desc.SourceID)),
			attribute.String("source.kind", string(desc.Kind)),
		))
	defer span.End()

	tctx, cancel := context.WithTimeout(spanCtx, timeout)
	defer cancel()

	start := time.Now()
	raw, err := d.retrieveWithTimeout(tctx, client, query, desc.RetrievalMode, topK)
	result.Outcome.LatencyMS = time.Since(start).Milliseconds()

	if err != nil {
		// 超时与来源异常都被限制在派发边界内
		result.Outcome.Error = err.Error()
		d.logger.Warn("source retrieval failed",
			zap.String("source_id", string(desc.SourceID)),
			zap.Error(err))
		return result
	}

	result.Raw = raw
	result.Outcome.Succeeded = true
	result.Outcome.RelevanceSummary = d.scorer.ScoreSource(raw)
	span.SetAttributes(attribute.Int("source.retrieval_count", raw.RetrievalCount))
	return result
}

// retrieveWithTimeout 在独立 goroutine 中调用客户端，
// 保证超时到期后派发任务立即结束，不被不尊重 ctx 的客户端阻塞。
func (d *Dispatcher) retrieveWithTimeout(ctx context.Context, client SourceClient, query, mode string, topK int) (*types.RawSourceResult, error) {
	type reply struct {
		raw *types.RawSourceResult
		err error
	}
	done := make(chan reply, 1)

	go func() {
		raw, err := client.Retrieve(ctx, query, mode, topK)
		done <- reply{raw: raw, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return nil, types.NewError(types.ErrSourceUnavailable, "source retrieve failed").WithCause(r.err)
		}
		if r.raw == nil {
			return nil, types.NewError(types.ErrSourceUnavailable, "source returned nil result")
		}
		return r.raw, nil
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			return nil, types.NewError(types.ErrTimeout, "timeout")
		}
		return nil, types.NewError(types.ErrSourceUnavailable, "dispatch cancelled").WithCause(ctx.Err())
	}
}
