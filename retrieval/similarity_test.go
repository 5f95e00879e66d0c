package retrieval

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJaccardSimilarity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		a, b     string
		expected float64
	}{
		{
			name:     "identical text",
			a:        "insulin treats diabetes",
			b:        "insulin treats diabetes",
			expected: 1.0,
		},
		{
			name:     "case insensitive",
			a:        "Insulin Treats Diabetes",
			b:        "insulin treats diabetes",
			expected: 1.0,
		},
		{
			name:     "no overlap",
			a:        "hypertension causes strokes",
			b:        "metformin lowers glucose",
			expected: 0.0,
		},
		{
			name:     "both empty",
			a:        "",
			b:        "",
			expected: 1.0,
		},
		{
			name:     "one empty",
			a:        "insulin",
			b:        "",
			expected: 0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, JaccardSimilarity(tt.a, tt.b), 1e-9)
		})
	}
}

func TestJaccardSimilarity_PartialOverlap(t *testing.T) {
	t.Parallel()

	// {insulin, treats, diabetes} vs {diabetes, is, treated, with, insulin}
	// intersection = {insulin, diabetes} = 2, union = 6
	got := JaccardSimilarity("Insulin treats diabetes", "Diabetes is treated with insulin")
	assert.InDelta(t, 2.0/6.0, got, 1e-9)
}

func TestJaccardSimilarity_Symmetric(t *testing.T) {
	t.Parallel()

	a := "chronic kidney disease stage three"
	b := "stage three kidney disease follow-up"
	assert.Equal(t, JaccardSimilarity(a, b), JaccardSimilarity(b, a))
}

func TestContentFingerprint(t *testing.T) {
	t.Parallel()

	base := ContentFingerprint("Insulin treats diabetes")

	// 仅大小写/空白差异 → 同一指纹
	assert.Equal(t, base, ContentFingerprint("insulin   treats\tdiabetes"))
	assert.Equal(t, base, ContentFingerprint("  INSULIN TREATS DIABETES  "))

	// 词序不同 → 不同指纹
	assert.NotEqual(t, base, ContentFingerprint("diabetes treats insulin"))
	assert.Len(t, base, 16)
}

func TestTokenSet(t *testing.T) {
	t.Parallel()

	set := TokenSet("Aspirin aspirin reduces   fever")
	assert.Len(t, set, 3)
	assert.True(t, set["aspirin"])
	assert.True(t, set["reduces"])
	assert.True(t, set["fever"])
}
