package retrieval

import (
	"crypto/sha256"
	"fmt"
	"strings"
)

// JaccardSimilarity 计算两段文本的 Jaccard 相似度（基于小写词集合）。
// 两段皆为空视为完全相同，返回 1.0。
func JaccardSimilarity(text1, text2 string) float64 {
	words1 := TokenSet(text1)
	words2 := TokenSet(text2)

	if len(words1) == 0 && len(words2) == 0 {
		return 1.0
	}

	intersection := 0
	for w := range words1 {
		if words2[w] {
			intersection++
		}
	}

	union := len(words1) + len(words2) - intersection
	if union == 0 {
		return 0.0
	}

	return float64(intersection) / float64(union)
}

// TokenSet 将文本小写分词为集合。
func TokenSet(text string) map[string]bool {
	words := strings.Fields(strings.ToLower(text))
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

// ContentFingerprint 返回内容指纹：小写、空白归一化后取 sha256 前 8 字节。
// 仅大小写或空白不同的内容产生相同指纹。
func ContentFingerprint(content string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(content)), " ")
	h := sha256.Sum256([]byte(normalized))
	return fmt.Sprintf("%x", h[:8])
}

// 将字符串截断为最大字符数，用于日志输出。
func truncateStr(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
