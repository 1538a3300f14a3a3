package storyboard

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/sapogeth/qylysh-higgsfiled/pkg/errors"
)

func TestGenerators(t *testing.T) {
	g := NewGenerators(&fakeGenerator{name: "lora"}, nil, &fakeGenerator{name: "gemini"})

	assert.Equal(t, 2, g.Len())
	assert.Equal(t, []string{"gemini", "lora"}, g.Names())

	gen, err := g.Get("lora")
	require.NoError(t, err)
	assert.Equal(t, "lora", gen.Name())

	_, err = g.Get("dalle")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeProviderNotFound))
}

func TestInvoke(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		gen := &fakeGenerator{name: "lora", script: []genReply{{data: []byte("img")}}}
		data, err := Invoke(ctx, gen, GenerationRequest{Positive: "p"})
		require.NoError(t, err)
		assert.Equal(t, []byte("img"), data)
	})

	t.Run("empty image is an error", func(t *testing.T) {
		gen := &fakeGenerator{name: "lora", script: []genReply{{data: nil}}}
		_, err := Invoke(ctx, gen, GenerationRequest{})
		assert.True(t, apperrors.HasCode(err, apperrors.CodeGenerationFailed))
	})

	t.Run("plain errors are wrapped", func(t *testing.T) {
		gen := &fakeGenerator{name: "lora", script: []genReply{{err: errBackendDown}}}
		_, err := Invoke(ctx, gen, GenerationRequest{})
		assert.True(t, apperrors.HasCode(err, apperrors.CodeGenerationFailed))
		assert.ErrorIs(t, err, errBackendDown)
	})

	t.Run("app errors pass through", func(t *testing.T) {
		gen := &fakeGenerator{name: "lora", script: []genReply{{err: apperrors.ErrTooManyRequests}}}
		_, err := Invoke(ctx, gen, GenerationRequest{})
		assert.True(t, apperrors.HasCode(err, apperrors.CodeTooManyRequests))
	})
}
