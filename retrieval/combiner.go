package retrieval

import (
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/BaSui01/medgraph/types"
)

// weightSumTolerance 是类别权重求和的允许误差。
const weightSumTolerance = 1e-6

// CombineOptions 控制一次合并的预算与策略。
type CombineOptions struct {
	// MaxTotalTokens 全局 token 预算上限
	MaxTotalTokens int `json:"max_total_tokens"`
	// CategoryWeights 每类别的预算权重，必须求和为 1.0（±1e-6）
	CategoryWeights map[types.FragmentKind]float64 `json:"category_weights"`
	// DedupMethod 类别内去重策略
	DedupMethod DedupMethod `json:"dedup_method"`
	// DedupThreshold 内容去重阈值，0 使用默认值
	DedupThreshold float64 `json:"dedup_threshold"`
	// RankMethod 类别内排序策略，默认 score
	RankMethod RankMethod `json:"rank_method"`
	// MMRLambda MMR 插值参数
	MMRLambda float64 `json:"mmr_lambda"`
}

// DefaultCombineOptions 返回默认合并配置。
func DefaultCombineOptions() CombineOptions {
	return CombineOptions{
		MaxTotalTokens: 4000,
		CategoryWeights: map[types.FragmentKind]float64{
			types.FragmentEntity:       0.3,
			types.FragmentRelationship: 0.3,
			types.FragmentChunk:        0.4,
		},
		DedupMethod:    DedupContent,
		DedupThreshold: DefaultDedupThreshold,
		RankMethod:     RankScore,
		MMRLambda:      DefaultMMRLambda,
	}
}

// Validate 检查合并配置。
func (o CombineOptions) Validate() error {
	if o.MaxTotalTokens < 0 {
		return types.NewError(types.ErrInvalidRequest, "max_total_tokens must be >= 0")
	}
	if o.DedupThreshold < 0 || o.DedupThreshold > 1 {
		return types.NewError(types.ErrInvalidRequest, "dedup_threshold must be within [0,1]")
	}
	if o.MMRLambda < 0 || o.MMRLambda > 1 {
		return types.NewError(types.ErrInvalidRequest, "mmr_lambda must be within [0,1]")
	}

	sum := 0.0
	for kind, w := range o.CategoryWeights {
		if !kind.Valid() {
			return types.NewError(types.ErrInvalidWeights, fmt.Sprintf("unknown fragment kind %q", kind))
		}
		if w < 0 {
			return types.NewError(types.ErrInvalidWeights, fmt.Sprintf("negative weight for kind %q", kind))
		}
		sum += w
	}
	if math.Abs(sum-1.0) > weightSumTolerance {
		return types.NewError(types.ErrInvalidWeights, fmt.Sprintf("category weights must sum to 1.0, got %.6f", sum))
	}
	return nil
}

// Combiner 在全局 token 预算内融合多个来源的片段集合。
type Combiner struct {
	dedup  *Deduplicator
	ranker *Ranker
	logger *zap.Logger
}

// NewCombiner 创建合并器。
func NewCombiner(logger *zap.Logger) *Combiner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Combiner{
		dedup:  NewDeduplicator(logger),
		ranker: NewRanker(logger),
		logger: logger.With(zap.String("component", "combiner")),
	}
}

// Combine 合并各来源的片段并施加预算。
// 每个类别的 token 上限是 max_total_tokens × weight[kind]；类别内先去重、
// 再排序、然后贪心装填，第一个放不下的片段被整体丢弃，从不截断内容。
// 后置条件：TotalTokens ≤ MaxTotalTokens。某类别未用完的预算不会
// 转移给其他类别（这是刻意的简化，可作为调优项改进）。
func (c *Combiner) Combine(perSource map[types.SourceID][]types.ContextFragment, opts CombineOptions) (*types.CombinedContext, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	// 按类别汇集全部来源的片段；遍历来源按 ID 排序保证确定性
	byKind := make(map[types.FragmentKind][]types.ContextFragment)
	sourceIDs := make([]types.SourceID, 0, len(perSource))
	for id := range perSource {
		sourceIDs = append(sourceIDs, id)
	}
	sort.Slice(sourceIDs, func(i, j int) bool { return sourceIDs[i] < sourceIDs[j] })
	for _, id := range sourceIDs {
		for _, f := range perSource[id] {
			byKind[f.Kind] = append(byKind[f.Kind], f)
		}
	}

	combined := &types.CombinedContext{}
	usedSources := make(map[types.SourceID]bool)

	for _, kind := range types.AllFragmentKinds() {
		fragments := byKind[kind]
		if len(fragments) == 0 {
			continue
		}

		ceiling := int(float64(opts.MaxTotalTokens) * opts.CategoryWeights[kind])
		if ceiling <= 0 {
			continue
		}

		deduped := c.dedup.Deduplicate(fragments, opts.DedupMethod, opts.DedupThreshold)
		ranked := c.ranker.Rank(deduped, opts.RankMethod, opts.MMRLambda)

		running := 0
		selected := make([]types.RankedFragment, 0, len(ranked))
		for _, rf := range ranked {
			if running+rf.EstimatedTokens > ceiling {
				// 放不下的片段整体丢弃，保持片段完整
				break
			}
			running += rf.EstimatedTokens
			rf.Rank = len(selected) + 1
			selected = append(selected, rf)
			usedSources[rf.SourceID] = true
		}

		switch kind {
		case types.FragmentEntity:
			combined.Entities = selected
		case types.FragmentRelationship:
			combined.Relationships = selected
		case types.FragmentChunk:
			combined.Chunks = selected
		}
		combined.TotalTokens += running

		c.logger.Debug("category combined",
			zap.String("kind", string(kind)),
			zap.Int("candidates", len(fragments)),
			zap.Int("selected", len(selected)),
			zap.Int("ceiling", ceiling),
			zap.Int("tokens", running))
	}

	combined.SourcesUsed = make([]types.SourceID, 0, len(usedSources))
	for id := range usedSources {
		combined.SourcesUsed = append(combined.SourcesUsed, id)
	}
	sort.Slice(combined.SourcesUsed, func(i, j int) bool {
		return combined.SourcesUsed[i] < combined.SourcesUsed[j]
	})

	return combined, nil
}
