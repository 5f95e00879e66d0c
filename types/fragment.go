package types

// FragmentKind 表示上下文片段的类别。
type FragmentKind string

const (
	// FragmentEntity 图检索产出的实体描述
	FragmentEntity FragmentKind = "entity"
	// FragmentRelationship 图检索产出的关系描述
	FragmentRelationship FragmentKind = "relationship"
	// FragmentChunk 向量检索产出的原始文本块
	FragmentChunk FragmentKind = "chunk"
)

// AllFragmentKinds 按固定顺序列出全部片段类别。
func AllFragmentKinds() []FragmentKind {
	return []FragmentKind{FragmentEntity, FragmentRelationship, FragmentChunk}
}

// Valid reports whether k is a known fragment kind.
func (k FragmentKind) Valid() bool {
	switch k {
	case FragmentEntity, FragmentRelationship, FragmentChunk:
		return true
	}
	return false
}

// ContextFragment 是检索证据的归一化单元。
// 由 ContextExtractor 创建；去重/排序/合并阶段只读消费，不做原地修改。
type ContextFragment struct {
	Content         string         `json:"content"`
	Kind            FragmentKind   `json:"kind"`
	Relevance       float64        `json:"relevance"` // ∈ [0,1]
	SourceID        SourceID       `json:"source_id"`
	EstimatedTokens int            `json:"estimated_tokens"`
	Metadata        map[string]any `json:"metadata,omitempty"`
}

// RankedFragment 是带有最终排名的片段。
// SelectionScore 仅在 MMR 排序下与 Relevance 不同。
type RankedFragment struct {
	ContextFragment
	Rank           int     `json:"rank"` // 1-based
	SelectionScore float64 `json:"selection_score"`
}

// CombinedContext 是预算约束下融合后的最终上下文。
// 不变式：TotalTokens 不超过合并时配置的 max_total_tokens。
type CombinedContext struct {
	Entities      []RankedFragment `json:"entities"`
	Relationships []RankedFragment `json:"relationships"`
	Chunks        []RankedFragment `json:"chunks"`
	TotalTokens   int              `json:"total_tokens"`
	SourcesUsed   []SourceID       `json:"sources_used"`
}

// FragmentCount 返回全部类别的片段总数。
func (c *CombinedContext) FragmentCount() int {
	return len(c.Entities) + len(c.Relationships) + len(c.Chunks)
}

// Kind 返回指定类别的片段切片。
func (c *CombinedContext) Kind(kind FragmentKind) []RankedFragment {
	switch kind {
	case FragmentEntity:
		return c.Entities
	case FragmentRelationship:
		return c.Relationships
	case FragmentChunk:
		return c.Chunks
	}
	return nil
}
