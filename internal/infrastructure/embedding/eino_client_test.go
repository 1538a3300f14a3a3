package embedding

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sapogeth/qylysh-higgsfiled/internal/config"
	apperrors "github.com/sapogeth/qylysh-higgsfiled/pkg/errors"
)

func TestNewEinoTextEmbedder_RequiresBaseURL(t *testing.T) {
	_, err := NewEinoTextEmbedder(context.Background(), &config.EmbeddingConfig{Model: "clip"})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeEmbeddingFailed))
}

func TestEinoTextEmbedder_EmbedTexts(t *testing.T) {
	t.Run("passes texts through", func(t *testing.T) {
		fake := &fakeEino{vectors: [][]float64{{0.1, 0.2}, {0.3, 0.4}}}
		e := newEinoTextEmbedder(fake)

		vecs, err := e.EmbedTexts(context.Background(), []string{"a", "b"})
		require.NoError(t, err)
		assert.Equal(t, fake.vectors, vecs)
		assert.Equal(t, []string{"a", "b"}, fake.got)
	})

	t.Run("empty input skips backend", func(t *testing.T) {
		fake := &fakeEino{}
		vecs, err := newEinoTextEmbedder(fake).EmbedTexts(context.Background(), nil)
		require.NoError(t, err)
		assert.Empty(t, vecs)
		assert.Nil(t, fake.got)
	})

	t.Run("backend error", func(t *testing.T) {
		fake := &fakeEino{err: errBackendDown}
		_, err := newEinoTextEmbedder(fake).EmbedTexts(context.Background(), []string{"a"})
		require.Error(t, err)
		assert.ErrorIs(t, err, errBackendDown)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeEmbeddingFailed))
	})

	t.Run("count mismatch", func(t *testing.T) {
		fake := &fakeEino{vectors: [][]float64{{1}}}
		_, err := newEinoTextEmbedder(fake).EmbedTexts(context.Background(), []string{"a", "b"})
		assert.Error(t, err)
	})
}

func TestComposite(t *testing.T) {
	images := &countingEmbedder{}
	texts := &countingEmbedder{}
	c := Composite{Images: images, Texts: texts}

	_, err := c.EmbedImages(context.Background(), [][]byte{[]byte("img")})
	require.NoError(t, err)
	_, err = c.EmbedTexts(context.Background(), []string{"txt"})
	require.NoError(t, err)

	assert.Len(t, images.imageCalls, 1)
	assert.Empty(t, images.textCalls)
	assert.Len(t, texts.textCalls, 1)
	assert.Empty(t, texts.imageCalls)
}
