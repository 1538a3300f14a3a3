package prompt

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sapogeth/qylysh-higgsfiled/internal/domain/entity"
)

func TestAnalyzeQuality(t *testing.T) {
	e := newTestEnhancer(t, testProfile(), NewEstimator(context.Background(), newWordTokenizer()))

	t.Run("complete prompt", func(t *testing.T) {
		p := "aldar_kose_character, 2D storybook illustration, Kazakh steppe, soft light " + strings.Repeat("word ", 50)
		q := e.AnalyzeQuality(p)
		assert.True(t, q.HasCharacterTrigger)
		assert.True(t, q.HasStyleKeywords)
		assert.True(t, q.HasCulturalElements)
		assert.True(t, q.HasLighting)
		assert.Equal(t, 100, q.QualityScore)
	})

	t.Run("bare prompt", func(t *testing.T) {
		q := e.AnalyzeQuality("a man walks")
		assert.Equal(t, 3, q.WordCount)
		assert.Equal(t, 0, q.QualityScore)
	})
}

func TestExtractKeyElements(t *testing.T) {
	got := ExtractKeyElements("Aldar rides his horse past the yurt toward the bazaar and talks to a merchant")

	assert.Equal(t, entity.KeyElements{
		Characters: []string{"aldar", "merchant"},
		Objects:    []string{"yurt", "horse"},
		Locations:  []string{"bazaar", "yurt"},
		Actions:    []string{"ride", "talk"},
	}, got)
}
