package retrieval

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
	"go.uber.org/zap"
)

// TokenEstimator 估算一段内容占用的 token 数。
// 估算值直接进入预算装填，因此契约是：非空内容至少返回 1。
// 字符比率估算是公认的占位策略，可替换为真实分词器而不影响合并语义。
type TokenEstimator interface {
	EstimateTokens(text string) int
}

// CharEstimator 按固定字符比率估算 token 数：max(1, chars/ratio)。
type CharEstimator struct {
	ratio int
}

// NewCharEstimator 创建字符比率估算器。ratio <= 0 时使用默认值 2。
func NewCharEstimator(ratio int) *CharEstimator {
	if ratio <= 0 {
		ratio = 2
	}
	return &CharEstimator{ratio: ratio}
}

// EstimateTokens 返回 max(1, len(text)/ratio)；空内容返回 0。
func (e *CharEstimator) EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	n := len(text) / e.ratio
	if n < 1 {
		return 1
	}
	return n
}

// TiktokenEstimator 将 tiktoken 适配为 TokenEstimator。
// 编码失败时回退到字符估算并记录警告日志。
type TiktokenEstimator struct {
	enc      *tiktoken.Tiktoken
	fallback *CharEstimator
	logger   *zap.Logger
}

// NewTiktokenEstimator 创建基于 tiktoken 的估算器。
// model 指定 tiktoken 模型（如 "gpt-4o", "gpt-3.5-turbo"）。
func NewTiktokenEstimator(model string, logger *zap.Logger) (*TiktokenEstimator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		return nil, fmt.Errorf("create tiktoken encoding for %s: %w", model, err)
	}
	return &TiktokenEstimator{
		enc:      enc,
		fallback: NewCharEstimator(0),
		logger:   logger,
	}, nil
}

// EstimateTokens 返回 tiktoken 编码后的 token 数，非空内容至少为 1。
func (e *TiktokenEstimator) EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	tokens := e.enc.Encode(text, nil, nil)
	if len(tokens) == 0 {
		e.logger.Warn("tiktoken produced zero tokens, falling back to estimate",
			zap.String("text", truncateStr(text, 50)))
		return e.fallback.EstimateTokens(text)
	}
	return len(tokens)
}
