// Package llm Eino ChatModel 工厂
package llm

import (
	"context"
	"strings"
	"sync"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"

	"github.com/sapogeth/qylysh-higgsfiled/internal/config"
	apperrors "github.com/sapogeth/qylysh-higgsfiled/pkg/errors"
)

// EinoFactory 按提供商名惰性创建并复用 ChatModel
type EinoFactory struct {
	cfg    config.LLMConfig
	models map[string]model.BaseChatModel
	mu     sync.RWMutex
}

// NewEinoFactory 创建 Eino LLM 工厂
func NewEinoFactory(cfg *config.Config) *EinoFactory {
	return &EinoFactory{
		cfg:    cfg.LLM,
		models: make(map[string]model.BaseChatModel),
	}
}

// Configured 是否存在可用（含 API Key）的提供商
func (f *EinoFactory) Configured() bool {
	for _, p := range f.cfg.Providers {
		if strings.TrimSpace(p.APIKey) != "" {
			return true
		}
	}
	return false
}

// Get 获取指定名称的 ChatModel，名称为空时使用默认提供商
func (f *EinoFactory) Get(ctx context.Context, name string) (model.BaseChatModel, error) {
	if strings.TrimSpace(name) == "" {
		name = f.cfg.DefaultProvider
	}

	f.mu.RLock()
	m, ok := f.models[name]
	f.mu.RUnlock()
	if ok {
		return m, nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok = f.models[name]; ok {
		return m, nil
	}

	p, ok := f.cfg.Providers[name]
	if !ok {
		return nil, apperrors.ErrLLMCallFailed.WithDetail("provider " + name + " not configured")
	}
	if strings.TrimSpace(p.APIKey) == "" {
		return nil, apperrors.ErrLLMCallFailed.WithDetail("provider " + name + " has no api key")
	}

	temperature := float32(p.Temperature)
	maxTokens := p.MaxTokens
	chatModel, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:      p.APIKey,
		BaseURL:     p.BaseURL,
		Model:       p.Model,
		MaxTokens:   &maxTokens,
		Temperature: &temperature,
		Timeout:     p.Timeout,
	})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeLLMCallFailed, "create chat model for "+name)
	}

	f.models[name] = chatModel
	return chatModel, nil
}
