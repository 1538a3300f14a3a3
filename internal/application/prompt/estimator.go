// Package prompt 将分镜帧压缩为受 token 预算约束的图像生成提示词
package prompt

import (
	"context"
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/sapogeth/qylysh-higgsfiled/pkg/logger"
	"github.com/sapogeth/qylysh-higgsfiled/pkg/metrics"
)

// CharsPerToken 无分词器时的估算比例
const CharsPerToken = 4

// Tokenizer 目标图像模型文本编码器的分词能力
type Tokenizer interface {
	Encode(text string) ([]int, error)
	Decode(ids []int) (string, error)
}

// Estimator token 计数与截断
type Estimator interface {
	Count(text string) int
	Truncate(text string, maxTokens int) string
	// Exact 是否基于真实分词器
	Exact() bool
}

// NewEstimator 优先使用分词器，缺失时退化为字符估算并记录告警
func NewEstimator(ctx context.Context, tok Tokenizer) Estimator {
	if tok == nil {
		logger.Warn(ctx, "tokenizer unavailable, prompt budgeting runs in degraded character-estimate mode",
			"chars_per_token", CharsPerToken)
		metrics.TokenizerDegradedTotal.Inc()
		return HeuristicEstimator{}
	}
	return &TokenizerEstimator{tok: tok}
}

// HeuristicEstimator 1 token ≈ 4 字符的降级估算
type HeuristicEstimator struct{}

// Count 估算 token 数
func (HeuristicEstimator) Count(text string) int {
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return 0
	}
	return int(math.Ceil(float64(n) / CharsPerToken))
}

// Truncate 按字符数截断，切点落在词中间时退回到上一个空格或逗号
func (HeuristicEstimator) Truncate(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return ""
	}
	limit := maxTokens * CharsPerToken
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	runes := []rune(text)
	cut := runes[:limit]
	if !isBreak(runes[limit]) {
		for i := len(cut) - 1; i > 0; i-- {
			if isBreak(cut[i]) {
				cut = cut[:i]
				break
			}
		}
	}
	return strings.TrimSpace(string(cut))
}

func isBreak(r rune) bool {
	return r == ',' || unicode.IsSpace(r)
}

// Exact 始终为 false
func (HeuristicEstimator) Exact() bool { return false }

// TokenizerEstimator 基于真实分词器的计数与截断
type TokenizerEstimator struct {
	tok      Tokenizer
	fallback HeuristicEstimator
}

// Count 编码后计数，编码失败时按字符估算
func (e *TokenizerEstimator) Count(text string) int {
	if text == "" {
		return 0
	}
	ids, err := e.tok.Encode(text)
	if err != nil {
		logger.Warn(context.Background(), "tokenizer encode failed, using character estimate", "error", err.Error())
		return e.fallback.Count(text)
	}
	return len(ids)
}

// Truncate 解码前 maxTokens 个 token
func (e *TokenizerEstimator) Truncate(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return ""
	}
	ids, err := e.tok.Encode(text)
	if err != nil {
		return e.fallback.Truncate(text, maxTokens)
	}
	if len(ids) <= maxTokens {
		return text
	}
	out, err := e.tok.Decode(ids[:maxTokens])
	if err != nil {
		return e.fallback.Truncate(text, maxTokens)
	}
	return strings.TrimSpace(out)
}

// Exact 始终为 true
func (e *TokenizerEstimator) Exact() bool { return true }
