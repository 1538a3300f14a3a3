// Package tokenizer 加载 HuggingFace tokenizer.json 作为提示词预算的精确分词器
package tokenizer

import (
	"context"
	"os"
	"strings"

	hftokenizer "github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"

	apperrors "github.com/sapogeth/qylysh-higgsfiled/pkg/errors"
	"github.com/sapogeth/qylysh-higgsfiled/pkg/logger"
)

// CLIPTokenizer CLIP 文本编码器分词，不含 BOS/EOS
type CLIPTokenizer struct {
	tk *hftokenizer.Tokenizer
}

// Load 从 tokenizer.json 加载
func Load(path string) (*CLIPTokenizer, error) {
	if strings.TrimSpace(path) == "" {
		return nil, apperrors.New(apperrors.CodeTokenizerUnavailable, "tokenizer path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeTokenizerUnavailable, "tokenizer file not found").WithDetail(path)
	}
	tk, err := pretrained.FromFile(path)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeTokenizerUnavailable, "load tokenizer").WithDetail(path)
	}
	return &CLIPTokenizer{tk: tk}, nil
}

// LoadOrNil 加载失败时记录告警并返回 nil，调用方据此进入字符估算模式
func LoadOrNil(ctx context.Context, path string) *CLIPTokenizer {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	tok, err := Load(path)
	if err != nil {
		logger.Warn(ctx, "tokenizer load failed", "path", path, "error", err.Error())
		return nil
	}
	return tok
}

// Encode 编码为 token id
func (t *CLIPTokenizer) Encode(text string) ([]int, error) {
	en, err := t.tk.EncodeSingle(text, false)
	if err != nil {
		return nil, err
	}
	return en.Ids, nil
}

// Decode 解码，跳过特殊 token
func (t *CLIPTokenizer) Decode(ids []int) (string, error) {
	return strings.TrimSpace(t.tk.Decode(ids, true)), nil
}
