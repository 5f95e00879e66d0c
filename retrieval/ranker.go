package retrieval

import (
	"sort"

	"go.uber.org/zap"

	"github.com/BaSui01/medgraph/types"
)

// RankMethod 表示排序策略。
type RankMethod string

const (
	// RankScore 按相关度稳定降序
	RankScore RankMethod = "score"
	// RankMMR Maximal Marginal Relevance，平衡相关度与冗余度
	RankMMR RankMethod = "mmr"
)

// Valid reports whether m is a known rank method.
func (m RankMethod) Valid() bool {
	return m == RankScore || m == RankMMR
}

// DefaultMMRLambda 是 MMR 的默认插值参数。
const DefaultMMRLambda = 0.7

// Ranker 对片段集合排序并产出带 1-based 排名的 RankedFragment。
// 输入从不被修改，排序总是返回新集合。
type Ranker struct {
	logger *zap.Logger
}

// NewRanker 创建排序器。
func NewRanker(logger *zap.Logger) *Ranker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ranker{logger: logger.With(zap.String("component", "ranker"))}
}

// Rank 按指定策略排序。lambda 仅 MMR 使用，需在 [0,1] 内：
// lambda=1 退化为纯相关度排序，lambda=0 最大化多样性。
func (r *Ranker) Rank(fragments []types.ContextFragment, method RankMethod, lambda float64) []types.RankedFragment {
	switch method {
	case RankMMR:
		return r.rankMMR(fragments, lambda)
	default:
		return r.rankByScore(fragments)
	}
}

// rankByScore 按相关度稳定降序排序，相关度相同时保持输入顺序。
func (r *Ranker) rankByScore(fragments []types.ContextFragment) []types.RankedFragment {
	order := make([]int, len(fragments))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return fragments[order[a]].Relevance > fragments[order[b]].Relevance
	})

	ranked := make([]types.RankedFragment, len(order))
	for pos, idx := range order {
		ranked[pos] = types.RankedFragment{
			ContextFragment: fragments[idx],
			Rank:            pos + 1,
			SelectionScore:  fragments[idx].Relevance,
		}
	}
	return ranked
}

// rankMMR 迭代选择：每轮在剩余候选中最大化
// lambda·relevance(c) − (1−lambda)·max_similarity(c, selected)，
// 相似度为与所有已选片段的 Jaccard 最大值；并列时取输入顺序靠前者。
func (r *Ranker) rankMMR(fragments []types.ContextFragment, lambda float64) []types.RankedFragment {
	lambda = clamp01(lambda)

	n := len(fragments)
	ranked := make([]types.RankedFragment, 0, n)
	selected := make([]int, 0, n)
	remaining := make([]bool, n)
	for i := range remaining {
		remaining[i] = true
	}

	for len(selected) < n {
		bestIdx := -1
		bestScore := 0.0

		for i := 0; i < n; i++ {
			if !remaining[i] {
				continue
			}

			var score float64
			if len(selected) == 0 {
				// 首个选择：纯相关度最高者
				score = fragments[i].Relevance
			} else {
				maxSim := 0.0
				for _, s := range selected {
					sim := JaccardSimilarity(fragments[i].Content, fragments[s].Content)
					if sim > maxSim {
						maxSim = sim
					}
				}
				score = lambda*fragments[i].Relevance - (1-lambda)*maxSim
			}

			// 严格大于：并列时保留输入顺序靠前的候选
			if bestIdx < 0 || score > bestScore {
				bestIdx = i
				bestScore = score
			}
		}

		remaining[bestIdx] = false
		selected = append(selected, bestIdx)
		ranked = append(ranked, types.RankedFragment{
			ContextFragment: fragments[bestIdx],
			Rank:            len(ranked) + 1,
			SelectionScore:  bestScore,
		})
	}

	return ranked
}
