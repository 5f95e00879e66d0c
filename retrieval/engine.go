package retrieval

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/BaSui01/medgraph/internal/metrics"
	"github.com/BaSui01/medgraph/types"
)

// QueryOptions 控制一次查询的派发、去重、排序与预算行为。
type QueryOptions struct {
	// PerSourceTimeout 单源检索超时
	PerSourceTimeout time.Duration `json:"per_source_timeout"`
	// TopK 每个来源请求的命中数
	TopK int `json:"top_k"`
	// Combine 合并配置（预算、权重与策略）
	Combine CombineOptions `json:"combine"`
	// PriorityOrder 答案聚合的来源优先级，空时使用默认顺序
	PriorityOrder []types.SourceKind `json:"priority_order,omitempty"`
}

// DefaultQueryOptions 返回默认查询配置。
func DefaultQueryOptions() QueryOptions {
	return QueryOptions{
		PerSourceTimeout: 10 * time.Second,
		TopK:             5,
		Combine:          DefaultCombineOptions(),
	}
}

// EngineConfig 配置聚合引擎。
type EngineConfig struct {
	// Scorer 来源相关度估计策略，nil 使用 HeuristicScorer
	Scorer SourceScorer
	// Estimator token 估算策略，nil 使用 chars/2 估算
	Estimator TokenEstimator
	// MaxConcurrentSources 同时在途的来源数上限，0 不限制
	MaxConcurrentSources int64
	// MaxFragmentsPerSource 单源片段上限，用于约束 O(n²) 去重成本；0 不限制
	MaxFragmentsPerSource int
	// Strict 为 true 时，零来源成功按错误返回而不是降级答案
	Strict bool
	// Metrics 可选的指标收集器
	Metrics *metrics.Collector
}

// Engine 是跨源检索聚合引擎的对外门面。
// 一次 Query 内创建的所有数据在调用方消费结果后即可丢弃；
// 引擎不做跨查询缓存，缓存属于外部存储引擎。
type Engine struct {
	dispatcher *Dispatcher
	combiner   *Combiner
	aggregator *Aggregator
	estimator  TokenEstimator
	cfg        EngineConfig
	logger     *zap.Logger
	tracer     trace.Tracer
}

// NewEngine 创建聚合引擎。clients 将来源 ID 映射到其客户端。
func NewEngine(clients map[types.SourceID]SourceClient, cfg EngineConfig, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	estimator := cfg.Estimator
	if estimator == nil {
		estimator = NewCharEstimator(0)
	}
	return &Engine{
		dispatcher: NewDispatcher(clients, cfg.Scorer, cfg.MaxConcurrentSources, logger),
		combiner:   NewCombiner(logger),
		aggregator: NewAggregator(logger),
		estimator:  estimator,
		cfg:        cfg,
		logger:     logger.With(zap.String("component", "engine")),
		tracer:     otel.Tracer("medgraph/retrieval"),
	}
}

// Query 对给定来源执行一次完整的聚合查询：
// 派发 → 抽取 → 去重 → 排序 → 预算合并 → 答案聚合。
// 校验错误在派发前同步返回；单源失败只出现在 Sources[] 中。
// 默认模式下零来源成功返回降级答案；Strict 模式下返回错误。
func (e *Engine) Query(ctx context.Context, question string, sources []types.SourceDescriptor, opts QueryOptions) (*types.QueryResult, error) {
	start := time.Now()
	queryID := uuid.NewString()

	ctx, span := e.tracer.Start(ctx, "retrieval.query",
		trace.WithAttributes(
			attribute.String("query.id", queryID),
			attribute.Int("query.sources", len(sources)),
		))
	defer span.End()

	// 所有校验先于派发，绝不部分执行
	if err := opts.Combine.Validate(); err != nil {
		e.cfg.Metrics.RecordQuery("invalid", time.Since(start))
		return nil, err
	}

	results, err := e.dispatcher.Dispatch(ctx, question, sources, opts.PerSourceTimeout, opts.TopK)
	if err != nil {
		e.cfg.Metrics.RecordQuery("invalid", time.Since(start))
		return nil, err
	}

	perSource := make(map[types.SourceID][]types.ContextFragment)
	answers := make(map[types.SourceID]string)
	outcomes := make([]types.GraphSourceOutcome, 0, len(results))
	retrievalCount := 0
	succeeded := 0

	for _, r := range results {
		outcome := r.Outcome

		if outcome.Succeeded {
			succeeded++
			retrievalCount += r.Raw.RetrievalCount
			answers[outcome.SourceID] = r.Raw.Answer

			extractor := ExtractorForKind(r.Descriptor.Kind, e.estimator, e.cfg.MaxFragmentsPerSource, e.logger)
			fragments := extractor.Extract(r.Raw, outcome.SourceID, outcome.RelevanceSummary)
			outcome.FragmentCount = len(fragments)
			perSource[outcome.SourceID] = fragments

			e.cfg.Metrics.RecordSourceDispatch(string(outcome.Kind), "success", time.Duration(outcome.LatencyMS)*time.Millisecond)
		} else {
			status := "error"
			if strings.HasPrefix(outcome.Error, "["+string(types.ErrTimeout)+"]") {
				status = "timeout"
			}
			e.cfg.Metrics.RecordSourceDispatch(string(outcome.Kind), status, time.Duration(outcome.LatencyMS)*time.Millisecond)
		}

		outcomes = append(outcomes, outcome)
	}

	if succeeded == 0 && e.cfg.Strict {
		e.cfg.Metrics.RecordQuery("failed", time.Since(start))
		return nil, types.NewError(types.ErrAllSourcesFailed, "all sources failed in strict mode")
	}

	combined, err := e.combiner.Combine(perSource, opts.Combine)
	if err != nil {
		// 合并配置已在入口校验过，这里只能是编程错误
		e.cfg.Metrics.RecordQuery("invalid", time.Since(start))
		return nil, err
	}
	e.cfg.Metrics.RecordCombination(combined.TotalTokens, combined.FragmentCount())

	answer := e.aggregator.Aggregate(outcomes, answers, opts.PriorityOrder)

	status := "success"
	if succeeded == 0 {
		status = "degraded"
	}
	e.cfg.Metrics.RecordQuery(status, time.Since(start))
	span.SetAttributes(
		attribute.Int("query.succeeded_sources", succeeded),
		attribute.Int("query.total_tokens", combined.TotalTokens),
	)

	latency := time.Since(start).Milliseconds()
	e.logger.Info("query completed",
		zap.String("query_id", queryID),
		zap.String("question", truncateStr(question, 80)),
		zap.Int("sources", len(sources)),
		zap.Int("succeeded", succeeded),
		zap.Int("fragments", combined.FragmentCount()),
		zap.Int("total_tokens", combined.TotalTokens),
		zap.Int64("latency_ms", latency))

	return &types.QueryResult{
		QueryID:        queryID,
		Answer:         answer,
		Context:        *combined,
		Sources:        outcomes,
		RetrievalCount: retrievalCount,
		LatencyMS:      latency,
	}, nil
}
