package retrieval

import (
	"sort"

	"go.uber.org/zap"

	"github.com/BaSui01/medgraph/types"
)

// DedupMethod 表示去重策略。
type DedupMethod string

const (
	// DedupNone 原样返回，用于片段已知唯一的场景
	DedupNone DedupMethod = "none"
	// DedupFingerprint 指纹哈希精确去重，O(n)，保留首个出现
	DedupFingerprint DedupMethod = "fingerprint"
	// DedupContent Jaccard 相似度近重去重，O(n²)，保留高分副本
	DedupContent DedupMethod = "content"
)

// Valid reports whether m is a known dedup method.
func (m DedupMethod) Valid() bool {
	switch m {
	case DedupNone, DedupFingerprint, DedupContent:
		return true
	}
	return false
}

const (
	// DefaultDedupThreshold 实体/自动合并场景的默认相似度阈值
	DefaultDedupThreshold = 0.85
	// DefaultSimilarityThreshold 通用相似检索场景的默认阈值
	DefaultSimilarityThreshold = 0.7
)

// DedupStats 记录一次去重的统计信息。
type DedupStats struct {
	Input         int `json:"input"`
	Kept          int `json:"kept"`
	ByFingerprint int `json:"by_fingerprint"`
	BySimilarity  int `json:"by_similarity"`
}

// Deduplicator 移除近重复片段。
// 内容策略是 O(n²)，调用方应先限制单源片段数来约束成本。
type Deduplicator struct {
	logger *zap.Logger
}

// NewDeduplicator 创建去重器。
func NewDeduplicator(logger *zap.Logger) *Deduplicator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Deduplicator{logger: logger.With(zap.String("component", "deduplicator"))}
}

// Deduplicate 按指定策略去重并返回新切片，输入不被修改。
// threshold 仅内容策略使用；threshold <= 0 时使用 DefaultDedupThreshold。
// 对任意输入幂等：Deduplicate(Deduplicate(F)) == Deduplicate(F)。
func (d *Deduplicator) Deduplicate(fragments []types.ContextFragment, method DedupMethod, threshold float64) []types.ContextFragment {
	stats := DedupStats{Input: len(fragments)}

	var result []types.ContextFragment
	switch method {
	case DedupFingerprint:
		result = d.dedupByFingerprint(fragments, &stats)
	case DedupContent:
		if threshold <= 0 {
			threshold = DefaultDedupThreshold
		}
		result = d.dedupByContent(fragments, threshold, &stats)
	default:
		// DedupNone 以及未知策略：原样返回副本
		result = append([]types.ContextFragment(nil), fragments...)
	}

	stats.Kept = len(result)
	if stats.Kept < stats.Input {
		d.logger.Debug("deduplication dropped fragments",
			zap.Int("input", stats.Input),
			zap.Int("kept", stats.Kept),
			zap.Int("by_fingerprint", stats.ByFingerprint),
			zap.Int("by_similarity", stats.BySimilarity))
	}
	return result
}

// dedupByFingerprint 按归一化内容指纹折叠片段，保留首个出现，顺序不变。
func (d *Deduplicator) dedupByFingerprint(fragments []types.ContextFragment, stats *DedupStats) []types.ContextFragment {
	seen := make(map[string]bool, len(fragments))
	kept := make([]types.ContextFragment, 0, len(fragments))

	for _, f := range fragments {
		fp := ContentFingerprint(f.Content)
		if seen[fp] {
			stats.ByFingerprint++
			continue
		}
		seen[fp] = true
		kept = append(kept, f)
	}
	return kept
}

// dedupByContent 按 Jaccard 相似度去重。
// 发现近重复对时保留相关度更高的一个，即使低分的先被看到。
// 实现方式：按相关度降序贪心保留，再恢复输入相对顺序；
// 保留集内任意两片段相似度 < threshold，因此结果对再次去重稳定。
func (d *Deduplicator) dedupByContent(fragments []types.ContextFragment, threshold float64, stats *DedupStats) []types.ContextFragment {
	order := make([]int, len(fragments))
	for i := range order {
		order[i] = i
	}
	// 稳定排序：相关度相同时先出现的优先
	sort.SliceStable(order, func(a, b int) bool {
		return fragments[order[a]].Relevance > fragments[order[b]].Relevance
	})

	keptIdx := make([]int, 0, len(fragments))
	for _, idx := range order {
		candidate := fragments[idx]
		isDuplicate := false

		for _, ki := range keptIdx {
			if JaccardSimilarity(candidate.Content, fragments[ki].Content) >= threshold {
				isDuplicate = true
				stats.BySimilarity++
				break
			}
		}

		if !isDuplicate {
			keptIdx = append(keptIdx, idx)
		}
	}

	// 恢复输入顺序
	sort.Ints(keptIdx)
	kept := make([]types.ContextFragment, 0, len(keptIdx))
	for _, idx := range keptIdx {
		kept = append(kept, fragments[idx])
	}
	return kept
}
