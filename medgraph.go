// Package medgraph provides a top-level convenience entry point for running
// cross-source retrieval aggregation with minimal boilerplate.
//
// Usage:
//
//	import "github.com/BaSui01/medgraph"
//
//	client, err := medgraph.New(
//	    medgraph.WithSource("dict", types.SourceDictionary, dictClient),
//	    medgraph.WithSource("docs", types.SourceVector, vectorClient),
//	)
//	result, err := client.Ask(ctx, "How is type 2 diabetes treated?")
//
// This is a thin wrapper around [retrieval.Engine]; use the retrieval package
// directly when you need per-query option control.
package medgraph

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/BaSui01/medgraph/internal/metrics"
	"github.com/BaSui01/medgraph/retrieval"
	"github.com/BaSui01/medgraph/sources"
	"github.com/BaSui01/medgraph/types"
)

// Client 把引擎和一组固定的来源绑在一起，提供单行提问入口。
type Client struct {
	engine      *retrieval.Engine
	descriptors []types.SourceDescriptor
	queryOpts   retrieval.QueryOptions
}

type options struct {
	clients     map[types.SourceID]retrieval.SourceClient
	descriptors []types.SourceDescriptor
	engineCfg   retrieval.EngineConfig
	queryOpts   retrieval.QueryOptions
	logger      *zap.Logger
}

// Option configures the client created by [New].
type Option func(*options)

// WithSource 注册一个知识源。
func WithSource(id types.SourceID, kind types.SourceKind, client retrieval.SourceClient) Option {
	return func(o *options) {
		o.clients[id] = client
		o.descriptors = append(o.descriptors, types.SourceDescriptor{SourceID: id, Kind: kind})
	}
}

// WithSourceDescriptor 注册一个带完整描述符的知识源，
// 用于需要指定 RetrievalMode 的来源。
func WithSourceDescriptor(desc types.SourceDescriptor, client retrieval.SourceClient) Option {
	return func(o *options) {
		o.clients[desc.SourceID] = client
		o.descriptors = append(o.descriptors, desc)
	}
}

// WithRegistry 批量注册一个来源注册表中的全部来源。
func WithRegistry(reg *sources.Registry) Option {
	return func(o *options) {
		for _, desc := range reg.Descriptors() {
			if client, ok := reg.Get(desc.SourceID); ok {
				o.clients[desc.SourceID] = client
				o.descriptors = append(o.descriptors, desc)
			}
		}
	}
}

// WithLogger sets a custom zap logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithStrict 让零来源成功按错误返回而不是降级答案。
func WithStrict() Option {
	return func(o *options) { o.engineCfg.Strict = true }
}

// WithMaxConcurrentSources 限制同时在途的来源数。
func WithMaxConcurrentSources(n int64) Option {
	return func(o *options) { o.engineCfg.MaxConcurrentSources = n }
}

// WithTokenEstimator 设置 token 估算策略。
func WithTokenEstimator(e retrieval.TokenEstimator) Option {
	return func(o *options) { o.engineCfg.Estimator = e }
}

// WithMetrics 挂接 Prometheus 指标收集器。
func WithMetrics(c *metrics.Collector) Option {
	return func(o *options) { o.engineCfg.Metrics = c }
}

// WithQueryOptions 覆盖默认查询配置。
func WithQueryOptions(opts retrieval.QueryOptions) Option {
	return func(o *options) { o.queryOpts = opts }
}

// New creates a [Client] with minimal configuration.
// At minimum, one source must be registered via [WithSource].
func New(opts ...Option) (*Client, error) {
	o := &options{
		clients:   make(map[types.SourceID]retrieval.SourceClient),
		queryOpts: retrieval.DefaultQueryOptions(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if len(o.descriptors) == 0 {
		return nil, fmt.Errorf("at least one source is required")
	}

	return &Client{
		engine:      retrieval.NewEngine(o.clients, o.engineCfg, o.logger),
		descriptors: o.descriptors,
		queryOpts:   o.queryOpts,
	}, nil
}

// Ask 用默认查询配置对所有注册来源执行一次聚合查询。
func (c *Client) Ask(ctx context.Context, question string) (*types.QueryResult, error) {
	return c.engine.Query(ctx, question, c.descriptors, c.queryOpts)
}

// Query 用调用方给定的查询配置执行一次聚合查询。
func (c *Client) Query(ctx context.Context, question string, opts retrieval.QueryOptions) (*types.QueryResult, error) {
	return c.engine.Query(ctx, question, c.descriptors, opts)
}

// Engine 返回底层检索引擎。
func (c *Client) Engine() *retrieval.Engine {
	return c.engine
}
