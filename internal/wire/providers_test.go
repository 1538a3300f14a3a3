package wire

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sapogeth/qylysh-higgsfiled/internal/application/evaluation"
	"github.com/sapogeth/qylysh-higgsfiled/internal/config"
)

func TestOptionalProvidersDegradeToNil(t *testing.T) {
	ctx := context.Background()
	cfg := &config.Config{}

	assert.Nil(t, ProvideRedisCache(nil))
	assert.Nil(t, ProvideRateLimiter(nil))
	assert.Nil(t, ProvideJobPublisher(nil, cfg))
	assert.Nil(t, ProvideEvaluationRunRepository(nil))
	assert.Nil(t, ProvideArchivePort(ProvideGenerationArchive(nil, cfg)))
	assert.Nil(t, ProvideEmbedder(ctx, cfg, nil), "empty endpoint disables embedding")
	assert.Nil(t, ProvideComparator(ctx, cfg, nil))
	assert.Nil(t, ProvideFeatureAnalyzer(nil))
	assert.Nil(t, ProvidePlanChain(ProvideLLMFactory(cfg)))

	client, cleanup, err := ProvideMilvusClientOptional(ctx, cfg)
	require.NoError(t, err)
	assert.Nil(t, client)
	cleanup()

	svc, err := ProvideStoryboardService(nil, nil, nil, nil, cfg)
	require.NoError(t, err)
	assert.Nil(t, svc)
}

func TestProvideEmbedderSharesOneLock(t *testing.T) {
	ctx := context.Background()

	t.Run("uncached", func(t *testing.T) {
		cfg := &config.Config{}
		cfg.Embedding.Endpoint = "http://localhost:8001"
		emb := ProvideEmbedder(ctx, cfg, nil)
		require.IsType(t, &evaluation.SerialEmbedder{}, emb)
		assert.Same(t, emb, evaluation.Serialize(emb))
	})

	t.Run("cached", func(t *testing.T) {
		cfg := &config.Config{}
		cfg.Embedding.Endpoint = "http://localhost:8001"
		cfg.Cache.Embedding.Enabled = true
		assert.IsType(t, &evaluation.SerialEmbedder{}, ProvideEmbedder(ctx, cfg, nil))
	})
}

func TestProvideValidatorOverrides(t *testing.T) {
	cfg := &config.Config{}
	cfg.Validation.MinDimension = 256
	cfg.Validation.MaxPixels = 1_000_000
	v := ProvideValidator(cfg)
	assert.Equal(t, 256, v.Thresholds().MinDimension)
	assert.Equal(t, 1_000_000, v.Thresholds().MaxPixels)
	assert.Positive(t, v.Thresholds().MinSharpness)
}

func TestDisabledBackendsAnswerUnavailable(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{}

	health := ProvideHealthHandler(cfg, nil, nil, nil)
	evaluations := ProvideEvaluationHandler(nil, nil)
	storyboards := ProvideStoryboardHandler(nil, nil)

	r := gin.New()
	r.GET("/ready", health.Ready)
	r.GET("/v1/evaluations/:id", evaluations.Get)
	r.POST("/v1/storyboards", storyboards.Create)

	tests := []struct {
		method, path string
		want         int
	}{
		{http.MethodGet, "/ready", http.StatusOK},
		{http.MethodGet, "/v1/evaluations/x", http.StatusServiceUnavailable},
		{http.MethodPost, "/v1/storyboards", http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
		assert.Equal(t, tt.want, rec.Code, tt.path)
	}
}
