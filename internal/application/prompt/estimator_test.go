package prompt

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeuristicEstimator(t *testing.T) {
	var est HeuristicEstimator

	assert.Equal(t, 0, est.Count(""))
	assert.Equal(t, 1, est.Count("abcd"))
	assert.Equal(t, 2, est.Count("abcde"))
	assert.Equal(t, 2, est.Count("базар"))

	assert.Equal(t, "abcdefgh", est.Truncate("abcdefghijkl", 2))
	assert.Equal(t, "short", est.Truncate("short", 10))
	assert.Equal(t, "", est.Truncate("anything", 0))
	assert.False(t, est.Exact())

	t.Run("backs off to word boundary", func(t *testing.T) {
		assert.Equal(t, "flat", est.Truncate("flat colors", 2))
		assert.Equal(t, "2D storybook", est.Truncate("2D storybook illustration", 4))
		assert.Equal(t, "warm palette", est.Truncate("warm palette, folk style", 3))
		assert.Equal(t, "ab cd ef", est.Truncate("ab cd ef gh", 2))
	})
}

func TestTokenizerEstimator(t *testing.T) {
	ctx := context.Background()

	t.Run("decodes first tokens", func(t *testing.T) {
		est := NewEstimator(ctx, newWordTokenizer())
		assert.True(t, est.Exact())
		assert.Equal(t, 5, est.Count("one two, three four"))
		assert.Equal(t, "one two,", est.Truncate("one two, three four", 3))
		assert.Equal(t, "one two", est.Truncate("one two", 5))
	})

	t.Run("falls back when encode fails", func(t *testing.T) {
		est := NewEstimator(ctx, brokenTokenizer{})
		assert.Equal(t, 2, est.Count("abcdefgh"))
		assert.Equal(t, "abcd", est.Truncate("abcdefgh", 1))
	})

	t.Run("nil tokenizer degrades", func(t *testing.T) {
		est := NewEstimator(ctx, nil)
		assert.IsType(t, HeuristicEstimator{}, est)
	})
}
