package sources

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/BaSui01/medgraph/types"
)

// DefaultEmbeddingDim 是哈希嵌入器的默认维度。
const DefaultEmbeddingDim = 256

// Embedder 把文本映射为稠密向量。
// 生产部署注入真实嵌入服务的客户端；HashEmbedder 是
// 无外部依赖的确定性退路，用于测试与离线环境。
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// HashEmbedder 用词哈希词袋生成 L2 归一化向量。
// 同样的文本永远得到同样的向量，不需要网络。
type HashEmbedder struct {
	dim int
}

// NewHashEmbedder 创建哈希嵌入器，dim <= 0 使用默认维度。
func NewHashEmbedder(dim int) *HashEmbedder {
	if dim <= 0 {
		dim = DefaultEmbeddingDim
	}
	return &HashEmbedder{dim: dim}
}

// Embed 实现 Embedder。
func (e *HashEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	vec := make([]float64, e.dim)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(word))
		vec[int(h.Sum32())%e.dim]++
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		return vec, nil
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] /= norm
	}
	return vec, nil
}

type vectorDoc struct {
	content string
	vec     []float64
}

// MemoryVectorSource 是进程内的向量块来源：文本块在 Add 时嵌入，
// Retrieve 时按余弦相似度取 topK。适合小语料与测试；
// 大语料应换成外部向量库的客户端实现。
type MemoryVectorSource struct {
	mu       sync.RWMutex
	docs     []vectorDoc
	embedder Embedder
	minScore float64
	logger   *zap.Logger
}

// NewMemoryVectorSource 创建内存向量来源。
// embedder 为 nil 时使用 HashEmbedder；minScore 过滤低于
// 该余弦相似度的命中（0 表示不过滤）。
func NewMemoryVectorSource(embedder Embedder, minScore float64, logger *zap.Logger) *MemoryVectorSource {
	if embedder == nil {
		embedder = NewHashEmbedder(0)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemoryVectorSource{
		embedder: embedder,
		minScore: minScore,
		logger:   logger.With(zap.String("component", "vector_source")),
	}
}

// Add 嵌入并索引一批文本块。
func (s *MemoryVectorSource) Add(ctx context.Context, chunks ...string) error {
	for _, chunk := range chunks {
		chunk = strings.TrimSpace(chunk)
		if chunk == "" {
			continue
		}
		vec, err := s.embedder.Embed(ctx, chunk)
		if err != nil {
			return fmt.Errorf("embed chunk failed: %w", err)
		}
		s.mu.Lock()
		s.docs = append(s.docs, vectorDoc{content: chunk, vec: vec})
		s.mu.Unlock()
	}
	return nil
}

// Len 返回已索引的块数。
func (s *MemoryVectorSource) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// Retrieve 实现 retrieval.SourceClient。
func (s *MemoryVectorSource) Retrieve(ctx context.Context, question, mode string, topK int) (*types.RawSourceResult, error) {
	qvec, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed question failed: %w", err)
	}

	type scored struct {
		content string
		score   float64
	}

	s.mu.RLock()
	hits := make([]scored, 0, len(s.docs))
	for _, d := range s.docs {
		score := cosine(qvec, d.vec)
		if score > s.minScore || (s.minScore == 0 && score > 0) {
			hits = append(hits, scored{content: d.content, score: score})
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })
	if topK > 0 && len(hits) > topK {
		hits = hits[:topK]
	}

	result := &types.RawSourceResult{RetrievalCount: len(hits)}
	for _, h := range hits {
		result.Context = append(result.Context, h.content)
	}
	if len(hits) > 0 {
		result.Answer = hits[0].content
	}

	s.logger.Debug("vector retrieval",
		zap.String("mode", mode),
		zap.Int("hits", len(hits)))
	return result, nil
}

// cosine 计算两个等长向量的余弦相似度。
// 向量已在嵌入时归一化，点积即余弦。
func cosine(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot float64
	for i := range a {
		dot += a[i] * b[i]
	}
	return dot
}
