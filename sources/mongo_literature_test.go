package sources

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

func TestLiteratureFilter(t *testing.T) {
	t.Parallel()

	filter := literatureFilter("statin therapy guidelines")
	require.NotNil(t, filter)

	or, ok := filter["$or"].([]bson.M)
	require.True(t, ok)
	require.Len(t, or, 3)

	title := or[0]["title"].(bson.M)
	assert.Equal(t, "statin|therapy|guidelines", title["$regex"])
	assert.Equal(t, "i", title["$options"])
}

func TestLiteratureFilter_EscapesRegexMeta(t *testing.T) {
	t.Parallel()

	filter := literatureFilter("dose (mg/kg)")
	require.NotNil(t, filter)

	or := filter["$or"].([]bson.M)
	title := or[0]["title"].(bson.M)
	// 正则元字符不允许泄入查询模式
	assert.Equal(t, `dose|mg/kg`, title["$regex"])
}

func TestLiteratureFilter_NoUsableWords(t *testing.T) {
	t.Parallel()

	assert.Nil(t, literatureFilter("a b c"))
	assert.Nil(t, literatureFilter("   "))
}
