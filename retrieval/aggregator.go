package retrieval

import (
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/medgraph/types"
)

// FallbackAnswer 是零来源成功时返回的固定降级答案。
const FallbackAnswer = "No knowledge source was able to answer this question."

// answerSeparator 是多源答案之间的可见分隔符。
const answerSeparator = "\n\n---\n\n"

// sourceLabels 将来源种类映射为人类可读标签。
var sourceLabels = map[types.SourceKind]string{
	types.SourceDictionary: "Medical Dictionary",
	types.SourceLiterature: "Literature & Guidelines",
	types.SourcePatient:    "Patient History",
	types.SourceVector:     "Document Excerpts",
}

// SourceLabel 返回来源种类的人类可读标签。
func SourceLabel(kind types.SourceKind) string {
	if label, ok := sourceLabels[kind]; ok {
		return label
	}
	return string(kind)
}

// Aggregator 将多个来源的答案组合成最终答案。
type Aggregator struct {
	logger *zap.Logger
}

// NewAggregator 创建答案聚合器。
func NewAggregator(logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{logger: logger.With(zap.String("component", "aggregator"))}
}

// Aggregate 按来源优先级组合答案：
//   - 恰好一个来源成功 → 原样返回其答案；
//   - 多个来源成功 → 按 priorityOrder 拼接，每段带来源标签；
//   - 零来源成功 → 返回固定降级答案。
//
// priorityOrder 为空时使用 types.DefaultPriorityOrder。
func (a *Aggregator) Aggregate(outcomes []types.GraphSourceOutcome, answers map[types.SourceID]string, priorityOrder []types.SourceKind) string {
	if len(priorityOrder) == 0 {
		priorityOrder = types.DefaultPriorityOrder()
	}

	var succeeded []types.GraphSourceOutcome
	for _, o := range outcomes {
		if o.Succeeded {
			succeeded = append(succeeded, o)
		}
	}

	switch len(succeeded) {
	case 0:
		a.logger.Warn("no source succeeded, returning fallback answer")
		return FallbackAnswer
	case 1:
		return answers[succeeded[0].SourceID]
	}

	// 按优先级排序；同种类内按来源 ID 保证确定性
	rank := make(map[types.SourceKind]int, len(priorityOrder))
	for i, kind := range priorityOrder {
		rank[kind] = i
	}
	sort.SliceStable(succeeded, func(i, j int) bool {
		ri, iOK := rank[succeeded[i].Kind]
		rj, jOK := rank[succeeded[j].Kind]
		if iOK != jOK {
			return iOK // 列出的种类排在未列出的前面
		}
		if ri != rj {
			return ri < rj
		}
		return succeeded[i].SourceID < succeeded[j].SourceID
	})

	parts := make([]string, 0, len(succeeded))
	for _, o := range succeeded {
		answer := strings.TrimSpace(answers[o.SourceID])
		if answer == "" {
			continue
		}
		parts = append(parts, "["+SourceLabel(o.Kind)+"] "+answer)
	}

	if len(parts) == 0 {
		return FallbackAnswer
	}
	return strings.Join(parts, answerSeparator)
}
