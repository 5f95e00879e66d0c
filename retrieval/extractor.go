package retrieval

import (
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/medgraph/types"
)

// MinChunkChars 是向量块抽取器保留片段的最小内容长度，
// 用于过滤接近空白的文本块。
const MinChunkChars = 20

// relevanceDecay 是片段在来源内的位置衰减因子：
// 来源返回的命中按相关度降序排列，排位越靠后估计相关度越低。
const relevanceDecay = 0.95

// Extractor 将单个来源的原始检索结果归一化为 ContextFragment 集合。
// 纯转换，不做网络或 LLM 调用；来源内的片段顺序在抽取后保持不变。
type Extractor interface {
	Extract(raw *types.RawSourceResult, sourceID types.SourceID, baseRelevance float64) []types.ContextFragment
}

// GraphExtractor 处理图谱类来源（患者/文献/词典）的原始命中，
// 产出 entity 与 relationship 两类片段。
// 约定：包含 "->" 关系箭头的上下文行是关系描述，其余是实体描述。
type GraphExtractor struct {
	estimator    TokenEstimator
	maxFragments int
	logger       *zap.Logger
}

// NewGraphExtractor 创建图谱抽取器。
// maxFragments 限制单源片段数（0 表示不限制），用于约束下游
// O(n²) 内容去重的候选集规模。
func NewGraphExtractor(estimator TokenEstimator, maxFragments int, logger *zap.Logger) *GraphExtractor {
	if estimator == nil {
		estimator = NewCharEstimator(0)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GraphExtractor{
		estimator:    estimator,
		maxFragments: maxFragments,
		logger:       logger.With(zap.String("component", "graph_extractor")),
	}
}

// Extract 将图谱来源的上下文行转换为 entity/relationship 片段。
func (e *GraphExtractor) Extract(raw *types.RawSourceResult, sourceID types.SourceID, baseRelevance float64) []types.ContextFragment {
	if raw == nil {
		return nil
	}

	fragments := make([]types.ContextFragment, 0, len(raw.Context))
	relevance := clamp01(baseRelevance)

	for _, line := range raw.Context {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if e.maxFragments > 0 && len(fragments) >= e.maxFragments {
			e.logger.Debug("fragment cap reached, dropping remainder",
				zap.String("source_id", string(sourceID)),
				zap.Int("cap", e.maxFragments))
			break
		}

		kind := types.FragmentEntity
		if strings.Contains(line, "->") {
			kind = types.FragmentRelationship
		}

		fragments = append(fragments, types.ContextFragment{
			Content:         line,
			Kind:            kind,
			Relevance:       relevance,
			SourceID:        sourceID,
			EstimatedTokens: e.estimator.EstimateTokens(line),
		})

		// 位置衰减：来源命中按相关度降序返回
		relevance = clamp01(relevance * relevanceDecay)
	}

	return fragments
}

// VectorExtractor 处理向量块来源的原始命中，产出 chunk 片段。
// 内容长度小于 MinChunkChars 的块被丢弃。
type VectorExtractor struct {
	estimator    TokenEstimator
	maxFragments int
	logger       *zap.Logger
}

// NewVectorExtractor 创建向量块抽取器。
func NewVectorExtractor(estimator TokenEstimator, maxFragments int, logger *zap.Logger) *VectorExtractor {
	if estimator == nil {
		estimator = NewCharEstimator(0)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VectorExtractor{
		estimator:    estimator,
		maxFragments: maxFragments,
		logger:       logger.With(zap.String("component", "vector_extractor")),
	}
}

// Extract 将向量来源的文本块转换为 chunk 片段。
func (e *VectorExtractor) Extract(raw *types.RawSourceResult, sourceID types.SourceID, baseRelevance float64) []types.ContextFragment {
	if raw == nil {
		return nil
	}

	fragments := make([]types.ContextFragment, 0, len(raw.Context))
	relevance := clamp01(baseRelevance)

	for _, chunk := range raw.Context {
		chunk = strings.TrimSpace(chunk)
		if len(chunk) < MinChunkChars {
			continue
		}
		if e.maxFragments > 0 && len(fragments) >= e.maxFragments {
			break
		}

		fragments = append(fragments, types.ContextFragment{
			Content:         chunk,
			Kind:            types.FragmentChunk,
			Relevance:       relevance,
			SourceID:        sourceID,
			EstimatedTokens: e.estimator.EstimateTokens(chunk),
		})

		relevance = clamp01(relevance * relevanceDecay)
	}

	return fragments
}

// ExtractorForKind 返回来源种类对应的抽取器：
// 图谱类来源（patient/literature/dictionary）使用 GraphExtractor，
// 向量来源使用 VectorExtractor。
func ExtractorForKind(kind types.SourceKind, estimator TokenEstimator, maxFragments int, logger *zap.Logger) Extractor {
	if kind == types.SourceVector {
		return NewVectorExtractor(estimator, maxFragments, logger)
	}
	return NewGraphExtractor(estimator, maxFragments, logger)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
