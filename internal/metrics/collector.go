package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Collector 检索引擎指标收集器
type Collector struct {
	// 查询指标
	queriesTotal  *prometheus.CounterVec
	queryDuration *prometheus.HistogramVec

	// 来源指标
	sourceDispatches *prometheus.CounterVec
	sourceLatency    *prometheus.HistogramVec

	// 合并指标
	combinedTokens    prometheus.Histogram
	fragmentsSelected prometheus.Histogram

	logger *zap.Logger
}

// NewCollector 创建指标收集器并注册到给定的 registerer。
// registerer 为 nil 时使用 prometheus.DefaultRegisterer。
func NewCollector(namespace string, registerer prometheus.Registerer, logger *zap.Logger) *Collector {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	auto := promauto.With(registerer)

	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	// 查询指标
	c.queriesTotal = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_total",
			Help:      "Total number of aggregation queries",
		},
		[]string{"status"},
	)

	c.queryDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_duration_seconds",
			Help:      "Aggregation query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"status"},
	)

	// 来源指标
	c.sourceDispatches = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_dispatches_total",
			Help:      "Total number of per-source dispatches",
		},
		[]string{"source_kind", "status"},
	)

	c.sourceLatency = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "source_latency_seconds",
			Help:      "Per-source retrieval latency in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"source_kind"},
	)

	// 合并指标
	c.combinedTokens = auto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "combined_context_tokens",
			Help:      "Token count of the combined context",
			Buckets:   prometheus.ExponentialBuckets(16, 2, 12),
		},
	)

	c.fragmentsSelected = auto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fragments_selected",
			Help:      "Number of fragments retained after combination",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		},
	)

	return c
}

// RecordQuery 记录一次查询的状态与耗时。
func (c *Collector) RecordQuery(status string, duration time.Duration) {
	if c == nil {
		return
	}
	c.queriesTotal.WithLabelValues(status).Inc()
	c.queryDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// RecordSourceDispatch 记录一次来源派发的结果。
func (c *Collector) RecordSourceDispatch(sourceKind, status string, latency time.Duration) {
	if c == nil {
		return
	}
	c.sourceDispatches.WithLabelValues(sourceKind, status).Inc()
	c.sourceLatency.WithLabelValues(sourceKind).Observe(latency.Seconds())
}

// RecordCombination 记录合并后的上下文规模。
func (c *Collector) RecordCombination(totalTokens, fragmentCount int) {
	if c == nil {
		return
	}
	c.combinedTokens.Observe(float64(totalTokens))
	c.fragmentsSelected.Observe(float64(fragmentCount))
}
