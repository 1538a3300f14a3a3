package evaluation

import (
	"context"
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sapogeth/qylysh-higgsfiled/internal/domain/entity"
	apperrors "github.com/sapogeth/qylysh-higgsfiled/pkg/errors"
	"github.com/sapogeth/qylysh-higgsfiled/pkg/imaging"
)

func TestCompareWithReferences(t *testing.T) {
	ctx := context.Background()
	emb := newFakeEmbedder()
	c := NewComparator(buildIndex(t, emb, solidPNG(t, red), solidPNG(t, blue)), emb, DefaultFeedbackThresholds())

	m, err := c.CompareWithReferences(ctx, solidPNG(t, red), "gemini")
	require.NoError(t, err)

	assert.Equal(t, "gemini", m.Provider)
	require.Len(t, m.IndividualCLIPScores, 2)
	assert.InDelta(t, 1.0, m.IndividualCLIPScores[0], 1e-9)
	assert.Less(t, m.IndividualCLIPScores[1], m.IndividualCLIPScores[0])
	assert.InDelta(t, 1.0, m.CLIPSimilarityMax, 1e-9)
	assert.InDelta(t, (m.IndividualCLIPScores[0]+m.IndividualCLIPScores[1])/2, m.CLIPSimilarityAvg, 1e-12)

	require.Len(t, m.IndividualSSIMScores, 2)
	assert.InDelta(t, 1.0, m.IndividualSSIMScores[0], 1e-9)

	want := math.Max(0, math.Min(1, 0.4*m.CLIPSimilarityAvg+0.4*m.FeatureMatchingScore+0.2*m.SSIMAvg))
	assert.InDelta(t, want, m.QualityScore, 1e-12)
	assert.LessOrEqual(t, m.QualityScore, 1.0)
	assert.GreaterOrEqual(t, m.QualityScore, 0.0)
}

func TestCompareWithReferencesScoreBounds(t *testing.T) {
	ctx := context.Background()
	ref := solidPNG(t, red)
	emb := &opposingEmbedder{reference: ref, vector: []float64{1, 0}}
	c := NewComparator(buildIndex(t, emb, ref), emb, FeedbackThresholds{})

	m, err := c.CompareWithReferences(ctx, solidPNG(t, blue), "local")
	require.NoError(t, err)

	assert.Less(t, m.CLIPSimilarityAvg, 0.0)
	assert.Less(t, m.FeatureMatchingScore, 0.0)
	assert.Equal(t, 0.0, m.QualityScore)
}

func TestQualityScoreClamp(t *testing.T) {
	tests := []struct {
		name string
		in   entity.QualityMetrics
		want float64
	}{
		{"negative similarity", entity.QualityMetrics{CLIPSimilarityAvg: -1, FeatureMatchingScore: -1, SSIMAvg: 0.9}, 0},
		{"in range", entity.QualityMetrics{CLIPSimilarityAvg: 0.5, FeatureMatchingScore: 0.5, SSIMAvg: 0.5}, 0.5},
		{"above one", entity.QualityMetrics{CLIPSimilarityAvg: 1.2, FeatureMatchingScore: 1.2, SSIMAvg: 1}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, QualityScore(tt.in), 1e-12)
		})
	}
}

func TestCompareWithReferencesSkipsMissingGray(t *testing.T) {
	emb := newFakeEmbedder()
	c := NewComparator(buildIndex(t, emb, solidPNG(t, red), []byte("opaque")), emb, FeedbackThresholds{})

	m, err := c.CompareWithReferences(context.Background(), solidPNG(t, red), "local")
	require.NoError(t, err)
	assert.Len(t, m.IndividualCLIPScores, 2)
	assert.Len(t, m.IndividualSSIMScores, 1)
}

func TestCompareWithReferencesErrors(t *testing.T) {
	ctx := context.Background()
	emb := newFakeEmbedder()
	c := NewComparator(buildIndex(t, emb, solidPNG(t, red)), emb, FeedbackThresholds{})

	_, err := c.CompareWithReferences(ctx, []byte("broken"), "local")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeImageDecodeFailed))

	emb.imageCalls = 0
	_, err = c.CompareWithReferences(ctx, oversizedPNG(t, 8000, 8000), "local")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeImageDecodeFailed))
	assert.ErrorIs(t, err, imaging.ErrImageTooLarge)
	assert.Zero(t, emb.imageCalls)

	emb.imageErr = errBackendDown
	_, err = c.CompareWithReferences(ctx, solidPNG(t, red), "local")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeEmbeddingFailed))
}

func TestCompareProviders(t *testing.T) {
	ctx := context.Background()
	emb := newFakeEmbedder()
	c := NewComparator(buildIndex(t, emb, solidPNG(t, red)), emb, FeedbackThresholds{})

	t.Run("ranks and skips", func(t *testing.T) {
		report := c.CompareProviders(ctx, map[string][]byte{
			"gemini": solidPNG(t, red),
			"local":  solidPNG(t, blue),
			"broken": []byte("broken"),
			"empty":  nil,
		}, []string{"local", "gemini", "broken", "empty"})

		require.Len(t, report.Ranking, 2)
		assert.Len(t, report.Comparisons, 2)
		assert.Equal(t, "gemini", report.Ranking[0].Provider)
		assert.Equal(t, "local", report.Ranking[1].Provider)
		assert.Equal(t, "gemini", report.BestProvider)
		assert.Equal(t, report.Ranking[0].QualityScore, report.BestScore)
		assert.GreaterOrEqual(t, report.Ranking[0].QualityScore, report.Ranking[1].QualityScore)
	})

	t.Run("ties keep input order", func(t *testing.T) {
		img := solidPNG(t, green)
		report := c.CompareProviders(ctx, map[string][]byte{"a": img, "b": img, "c": img}, []string{"b", "c", "a"})
		require.Len(t, report.Ranking, 3)
		assert.Equal(t, "b", report.Ranking[0].Provider)
		assert.Equal(t, "c", report.Ranking[1].Provider)
		assert.Equal(t, "a", report.Ranking[2].Provider)
	})

	t.Run("total failure gives empty ranking", func(t *testing.T) {
		report := c.CompareProviders(ctx, map[string][]byte{"x": []byte("bad"), "y": nil}, nil)
		assert.Empty(t, report.Ranking)
		assert.Empty(t, report.BestProvider)
		assert.Equal(t, 0.0, report.BestScore)
	})
}

func TestProviderOrder(t *testing.T) {
	images := map[string][]byte{"c": nil, "a": nil, "b": nil, "d": nil}
	assert.Equal(t, []string{"d", "b", "a", "c"}, ProviderOrder(images, []string{"d", "b", "missing", "d"}))
	assert.Equal(t, []string{"a", "b", "c", "d"}, ProviderOrder(images, nil))
}

func TestSSIM(t *testing.T) {
	gradient := image.NewGray(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			gradient.SetGray(x, y, color.Gray{Y: uint8(x*7 + y)})
		}
	}
	inverted := image.NewGray(gradient.Bounds())
	for i, v := range gradient.Pix {
		inverted.Pix[i] = 255 - v
	}

	assert.InDelta(t, 1.0, SSIM(gradient, gradient), 1e-12)
	assert.Less(t, SSIM(gradient, inverted), 0.0)
	assert.Equal(t, 0.0, SSIM(image.NewGray(image.Rect(0, 0, 5, 5)), image.NewGray(image.Rect(0, 0, 5, 5))))
}
