package llm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sapogeth/qylysh-higgsfiled/internal/config"
	apperrors "github.com/sapogeth/qylysh-higgsfiled/pkg/errors"
)

func testConfig() *config.Config {
	return &config.Config{LLM: config.LLMConfig{
		DefaultProvider: "openai",
		Providers: map[string]config.ProviderConfig{
			"openai": {APIKey: "sk-test", BaseURL: "http://127.0.0.1:1/v1", Model: "gpt-4o-mini", MaxTokens: 2000, Temperature: 0.7, Timeout: time.Second},
			"empty":  {Model: "gpt-4o-mini"},
		},
	}}
}

func TestEinoFactory_Get(t *testing.T) {
	ctx := context.Background()
	f := NewEinoFactory(testConfig())

	t.Run("default provider is cached", func(t *testing.T) {
		a, err := f.Get(ctx, "")
		require.NoError(t, err)
		b, err := f.Get(ctx, "openai")
		require.NoError(t, err)
		assert.True(t, a == b)
	})

	t.Run("unknown provider", func(t *testing.T) {
		_, err := f.Get(ctx, "missing")
		assert.True(t, apperrors.HasCode(err, apperrors.CodeLLMCallFailed))
	})

	t.Run("provider without key", func(t *testing.T) {
		_, err := f.Get(ctx, "empty")
		assert.True(t, apperrors.HasCode(err, apperrors.CodeLLMCallFailed))
	})
}

func TestEinoFactory_Configured(t *testing.T) {
	assert.True(t, NewEinoFactory(testConfig()).Configured())
	assert.False(t, NewEinoFactory(&config.Config{}).Configured())
}
