package retrieval

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/BaSui01/medgraph/types"
)

func chunkFrag(content string, relevance float64, tokens int) types.ContextFragment {
	return types.ContextFragment{
		Content:         content,
		Kind:            types.FragmentChunk,
		Relevance:       relevance,
		SourceID:        "vec",
		EstimatedTokens: tokens,
	}
}

func TestCombine_TokenBudgetScenario(t *testing.T) {
	t.Parallel()

	// spec 场景：预算 100、{entity:0.5, chunk:0.5}、五个 30-token 块
	// → chunk 上限 50，恰好保留 1 个，总计 30
	chunks := make([]types.ContextFragment, 5)
	for i := range chunks {
		chunks[i] = chunkFrag(fmt.Sprintf("distinct chunk number %d with medical content", i), 0.9-float64(i)*0.1, 30)
	}

	c := NewCombiner(nil)
	combined, err := c.Combine(map[types.SourceID][]types.ContextFragment{"vec": chunks}, CombineOptions{
		MaxTotalTokens: 100,
		CategoryWeights: map[types.FragmentKind]float64{
			types.FragmentEntity: 0.5,
			types.FragmentChunk:  0.5,
		},
		DedupMethod: DedupNone,
		RankMethod:  RankScore,
	})

	require.NoError(t, err)
	require.Len(t, combined.Chunks, 1)
	assert.Equal(t, 30, combined.TotalTokens)
	assert.LessOrEqual(t, combined.TotalTokens, 100)
	assert.Equal(t, []types.SourceID{"vec"}, combined.SourcesUsed)
}

func TestCombine_WeightValidation(t *testing.T) {
	t.Parallel()

	c := NewCombiner(nil)
	input := map[types.SourceID][]types.ContextFragment{}

	tests := []struct {
		name    string
		opts    CombineOptions
		errCode types.ErrorCode
	}{
		{
			name: "weights sum below one",
			opts: CombineOptions{MaxTotalTokens: 100, CategoryWeights: map[types.FragmentKind]float64{
				types.FragmentEntity: 0.5,
			}},
			errCode: types.ErrInvalidWeights,
		},
		{
			name: "weights sum above one",
			opts: CombineOptions{MaxTotalTokens: 100, CategoryWeights: map[types.FragmentKind]float64{
				types.FragmentEntity: 0.7,
				types.FragmentChunk:  0.7,
			}},
			errCode: types.ErrInvalidWeights,
		},
		{
			name: "negative weight",
			opts: CombineOptions{MaxTotalTokens: 100, CategoryWeights: map[types.FragmentKind]float64{
				types.FragmentEntity: 1.5,
				types.FragmentChunk:  -0.5,
			}},
			errCode: types.ErrInvalidWeights,
		},
		{
			name: "unknown kind",
			opts: CombineOptions{MaxTotalTokens: 100, CategoryWeights: map[types.FragmentKind]float64{
				types.FragmentKind("paragraph"): 1.0,
			}},
			errCode: types.ErrInvalidWeights,
		},
		{
			name: "negative budget",
			opts: CombineOptions{MaxTotalTokens: -1, CategoryWeights: map[types.FragmentKind]float64{
				types.FragmentChunk: 1.0,
			}},
			errCode: types.ErrInvalidRequest,
		},
		{
			name: "threshold out of range",
			opts: CombineOptions{MaxTotalTokens: 100, DedupThreshold: 1.5, CategoryWeights: map[types.FragmentKind]float64{
				types.FragmentChunk: 1.0,
			}},
			errCode: types.ErrInvalidRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Combine(input, tt.opts)
			require.Error(t, err)
			assert.Equal(t, tt.errCode, types.GetErrorCode(err))
		})
	}
}

func TestCombine_WeightToleranceAccepted(t *testing.T) {
	t.Parallel()

	c := NewCombiner(nil)
	_, err := c.Combine(nil, CombineOptions{
		MaxTotalTokens: 100,
		CategoryWeights: map[types.FragmentKind]float64{
			types.FragmentEntity:       0.3333333,
			types.FragmentRelationship: 0.3333333,
			types.FragmentChunk:        0.3333334,
		},
	})
	assert.NoError(t, err)
}

func TestCombine_DedupAcrossSources(t *testing.T) {
	t.Parallel()

	perSource := map[types.SourceID][]types.ContextFragment{
		"dict": {{Content: "Insulin: peptide hormone regulating glucose", Kind: types.FragmentEntity, Relevance: 0.9, SourceID: "dict", EstimatedTokens: 10}},
		"lit":  {{Content: "insulin: peptide hormone regulating glucose", Kind: types.FragmentEntity, Relevance: 0.6, SourceID: "lit", EstimatedTokens: 10}},
	}

	c := NewCombiner(nil)
	combined, err := c.Combine(perSource, CombineOptions{
		MaxTotalTokens: 100,
		CategoryWeights: map[types.FragmentKind]float64{
			types.FragmentEntity: 1.0,
		},
		DedupMethod:    DedupContent,
		DedupThreshold: 0.9,
	})

	require.NoError(t, err)
	require.Len(t, combined.Entities, 1)
	// 跨来源近重复保留高分者
	assert.Equal(t, types.SourceID("dict"), combined.Entities[0].SourceID)
	assert.Equal(t, []types.SourceID{"dict"}, combined.SourcesUsed)
}

func TestCombine_UnusedBudgetNotRedistributed(t *testing.T) {
	t.Parallel()

	// entity 类别空置，其 50 token 预算不转移给 chunk
	chunks := []types.ContextFragment{
		chunkFrag("chunk one with enough content", 0.9, 40),
		chunkFrag("chunk two with different words", 0.8, 40),
	}

	c := NewCombiner(nil)
	combined, err := c.Combine(map[types.SourceID][]types.ContextFragment{"vec": chunks}, CombineOptions{
		MaxTotalTokens: 100,
		CategoryWeights: map[types.FragmentKind]float64{
			types.FragmentEntity: 0.5,
			types.FragmentChunk:  0.5,
		},
		DedupMethod: DedupNone,
	})

	require.NoError(t, err)
	// chunk 上限 50：装下一个 40，第二个 40 放不下
	require.Len(t, combined.Chunks, 1)
	assert.Equal(t, 40, combined.TotalTokens)
}

func TestCombine_ZeroBudget(t *testing.T) {
	t.Parallel()

	c := NewCombiner(nil)
	combined, err := c.Combine(map[types.SourceID][]types.ContextFragment{
		"vec": {chunkFrag("some chunk content here", 0.9, 10)},
	}, CombineOptions{
		MaxTotalTokens: 0,
		CategoryWeights: map[types.FragmentKind]float64{
			types.FragmentChunk: 1.0,
		},
	})

	require.NoError(t, err)
	assert.Equal(t, 0, combined.TotalTokens)
	assert.Empty(t, combined.Chunks)
	assert.Empty(t, combined.SourcesUsed)
}

func TestCombine_GreedyStopsAtFirstOverflow(t *testing.T) {
	t.Parallel()

	chunks := []types.ContextFragment{
		chunkFrag("alpha beta gamma delta epsilon", 0.9, 60), // 放不下，被丢弃
		chunkFrag("zeta eta theta iota kappa", 0.8, 20),
	}

	c := NewCombiner(nil)
	combined, err := c.Combine(map[types.SourceID][]types.ContextFragment{"vec": chunks}, CombineOptions{
		MaxTotalTokens: 50,
		CategoryWeights: map[types.FragmentKind]float64{
			types.FragmentChunk: 1.0,
		},
		DedupMethod: DedupNone,
	})

	require.NoError(t, err)
	// 贪心在第一个放不下的片段处停止
	assert.Empty(t, combined.Chunks)
	assert.Equal(t, 0, combined.TotalTokens)
}

// 性质：任意有效预算与片段集合下，TotalTokens ≤ MaxTotalTokens。
func TestProperty_Combine_TokenBudgetInvariant(t *testing.T) {
	c := NewCombiner(nil)

	rapid.Check(t, func(rt *rapid.T) {
		maxTokens := rapid.IntRange(0, 500).Draw(rt, "maxTokens")

		perSource := map[types.SourceID][]types.ContextFragment{}
		numSources := rapid.IntRange(1, 3).Draw(rt, "numSources")
		for s := 0; s < numSources; s++ {
			id := types.SourceID(fmt.Sprintf("src%d", s))
			n := rapid.IntRange(0, 8).Draw(rt, fmt.Sprintf("n_%d", s))
			fragments := make([]types.ContextFragment, n)
			for i := range fragments {
				kind := rapid.SampledFrom(types.AllFragmentKinds()).Draw(rt, fmt.Sprintf("kind_%d_%d", s, i))
				words := rapid.IntRange(1, 8).Draw(rt, fmt.Sprintf("words_%d_%d", s, i))
				fragments[i] = types.ContextFragment{
					Content:         strings.Repeat("word ", words),
					Kind:            kind,
					Relevance:       rapid.Float64Range(0, 1).Draw(rt, fmt.Sprintf("rel_%d_%d", s, i)),
					SourceID:        id,
					EstimatedTokens: rapid.IntRange(1, 100).Draw(rt, fmt.Sprintf("tok_%d_%d", s, i)),
				}
			}
			perSource[id] = fragments
		}

		opts := DefaultCombineOptions()
		opts.MaxTotalTokens = maxTokens
		opts.RankMethod = rapid.SampledFrom([]RankMethod{RankScore, RankMMR}).Draw(rt, "rank")
		opts.DedupMethod = rapid.SampledFrom([]DedupMethod{DedupNone, DedupFingerprint, DedupContent}).Draw(rt, "dedup")

		combined, err := c.Combine(perSource, opts)
		require.NoError(rt, err)
		assert.LessOrEqual(rt, combined.TotalTokens, maxTokens)

		// TotalTokens 与各类别估算之和一致
		sum := 0
		for _, kind := range types.AllFragmentKinds() {
			for _, f := range combined.Kind(kind) {
				sum += f.EstimatedTokens
			}
		}
		assert.Equal(rt, sum, combined.TotalTokens)
	})
}
