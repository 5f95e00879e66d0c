package retrieval

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCharEstimator(t *testing.T) {
	t.Parallel()

	est := NewCharEstimator(2)

	tests := []struct {
		name     string
		text     string
		expected int
	}{
		{name: "empty returns zero", text: "", expected: 0},
		{name: "single char rounds up to one", text: "a", expected: 1},
		{name: "short content at least one", text: "ab", expected: 1},
		{name: "ten chars", text: strings.Repeat("x", 10), expected: 5},
		{name: "odd length truncates", text: strings.Repeat("x", 11), expected: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, est.EstimateTokens(tt.text))
		})
	}
}

func TestCharEstimator_DefaultRatio(t *testing.T) {
	t.Parallel()

	// ratio <= 0 回退到默认值 2
	est := NewCharEstimator(-1)
	assert.Equal(t, 5, est.EstimateTokens(strings.Repeat("x", 10)))
}

func TestCharEstimator_NonEmptyAtLeastOne(t *testing.T) {
	t.Parallel()

	est := NewCharEstimator(100)
	assert.Equal(t, 1, est.EstimateTokens("short"))
}
