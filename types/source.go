package types

// SourceID 唯一标识一个可查询的知识后端。
type SourceID string

// SourceKind 表示知识源的种类。
type SourceKind string

const (
	// SourcePatient 患者病史图谱
	SourcePatient SourceKind = "patient"
	// SourceLiterature 文献/指南图谱
	SourceLiterature SourceKind = "literature"
	// SourceDictionary 医学词典图谱
	SourceDictionary SourceKind = "dictionary"
	// SourceVector 原始向量块存储
	SourceVector SourceKind = "vector"
)

// Valid reports whether k is a known source kind.
func (k SourceKind) Valid() bool {
	switch k {
	case SourcePatient, SourceLiterature, SourceDictionary, SourceVector:
		return true
	}
	return false
}

// DefaultPriorityOrder 是答案聚合的默认来源优先级。
// 词典权威性最高，向量块没有作者答案、排在最后。
func DefaultPriorityOrder() []SourceKind {
	return []SourceKind{SourceDictionary, SourceLiterature, SourcePatient, SourceVector}
}

// SourceDescriptor 标识一个可查询后端。由调用方/配置提供，创建后不再修改。
type SourceDescriptor struct {
	SourceID      SourceID   `json:"source_id" yaml:"source_id"`
	Kind          SourceKind `json:"kind" yaml:"kind"`
	RetrievalMode string     `json:"retrieval_mode" yaml:"retrieval_mode"`
}

// RawSourceResult 是单个知识源 retrieve() 调用的原始结果。
// 由 SourceDispatcher 短暂持有，被 ContextExtractor 消费一次。
type RawSourceResult struct {
	Answer         string   `json:"answer"`
	Context        []string `json:"context"`
	RetrievalCount int      `json:"retrieval_count"`
	LatencyMS      int64    `json:"latency_ms"`
}

// GraphSourceOutcome 是每个被派发来源的记账记录。
// 无论成功与否，每个被请求的来源都恰好产生一条。
type GraphSourceOutcome struct {
	SourceID         SourceID   `json:"source_id"`
	Kind             SourceKind `json:"kind"`
	FragmentCount    int        `json:"fragment_count"`
	RelevanceSummary float64    `json:"relevance_summary"`
	LatencyMS        int64      `json:"latency_ms"`
	Succeeded        bool       `json:"succeeded"`
	Error            string     `json:"error,omitempty"`
}

// QueryResult 是引擎 Query 的最终返回。
type QueryResult struct {
	QueryID        string               `json:"query_id"`
	Answer         string               `json:"answer"`
	Context        CombinedContext      `json:"context"`
	Sources        []GraphSourceOutcome `json:"sources"`
	RetrievalCount int                  `json:"retrieval_count"`
	LatencyMS      int64                `json:"latency_ms"`
}
