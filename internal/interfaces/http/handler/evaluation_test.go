package handler

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sapogeth/qylysh-higgsfiled/internal/application/validation"
	"github.com/sapogeth/qylysh-higgsfiled/internal/domain/entity"
	"github.com/sapogeth/qylysh-higgsfiled/internal/domain/repository"
	"github.com/sapogeth/qylysh-higgsfiled/internal/interfaces/http/dto"
	apperrors "github.com/sapogeth/qylysh-higgsfiled/pkg/errors"
)

func solidPNG(t *testing.T, size int, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newEvaluationRouter(svc EvaluationService, cmp ProviderComparator) *gin.Engine {
	h := NewEvaluationHandler(svc, cmp)
	r := gin.New()
	r.POST("/v1/evaluations/compare", h.Compare)
	r.POST("/v1/evaluations/feedback", h.Feedback)
	r.POST("/v1/evaluations/similar", h.Similar)
	r.POST("/v1/evaluations/run", h.Run)
	r.POST("/v1/evaluations", h.Create)
	r.GET("/v1/evaluations", h.List)
	r.GET("/v1/evaluations/:id", h.Get)
	return r
}

func TestImageHandlerValidate(t *testing.T) {
	h := NewImageHandler(validation.NewValidator(validation.DefaultThresholds()))
	r := gin.New()
	r.POST("/v1/images/validate", h.Validate)

	t.Run("corrupted bytes are reported, not rejected", func(t *testing.T) {
		rec, env := doMultipart(t, r, "/v1/images/validate", upload{"image", "broken.png", []byte("not an image")})
		require.Equal(t, http.StatusOK, rec.Code)

		var resp dto.ValidateImageResponse
		require.NoError(t, json.Unmarshal(env.Data, &resp))
		assert.False(t, resp.Valid)
		assert.True(t, resp.Metrics.Corrupted)
		assert.Zero(t, resp.QualityScore)
	})

	t.Run("flat image is invalid", func(t *testing.T) {
		rec, env := doMultipart(t, r, "/v1/images/validate",
			upload{"image", "gray.png", solidPNG(t, 600, color.Gray{Y: 128})})
		require.Equal(t, http.StatusOK, rec.Code)

		var resp dto.ValidateImageResponse
		require.NoError(t, json.Unmarshal(env.Data, &resp))
		assert.False(t, resp.Valid)
		assert.False(t, resp.Metrics.Corrupted)
		assert.Equal(t, 600, resp.Metrics.Width)
		assert.NotEmpty(t, resp.Metrics.Issues)
	})

	t.Run("missing file field", func(t *testing.T) {
		rec, _ := doMultipart(t, r, "/v1/images/validate", upload{"other", "a.png", []byte{1}})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("empty file", func(t *testing.T) {
		rec, env := doMultipart(t, r, "/v1/images/validate", upload{"image", "empty.png", nil})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		require.NotNil(t, env.Error)
		assert.Equal(t, string(apperrors.CodeInvalidParam), env.Error.ErrorCode)
	})
}

func TestEvaluationHandlerCompare(t *testing.T) {
	cmp := &fakeComparator{}
	r := newEvaluationRouter(newFakeEvaluationService(), cmp)

	rec, env := doMultipart(t, r, "/v1/evaluations/compare",
		upload{"lora", "lora.png", bytes.Repeat([]byte{1}, 30)},
		upload{"gemini", "gemini.png", bytes.Repeat([]byte{1}, 70)},
	)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"gemini", "lora"}, cmp.lastOrder)

	var report entity.ComparisonReport
	require.NoError(t, json.Unmarshal(env.Data, &report))
	assert.Equal(t, "gemini", report.BestProvider)
	assert.InDelta(t, 0.7, report.BestScore, 1e-9)
	assert.Len(t, report.Comparisons, 2)

	rec, _ = doMultipart(t, r, "/v1/evaluations/compare")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEvaluationHandlerFeedback(t *testing.T) {
	r := newEvaluationRouter(newFakeEvaluationService(), &fakeComparator{})

	rec, env := doJSON(t, r, http.MethodPost, "/v1/evaluations/feedback", map[string]any{
		"candidate":       map[string]any{"provider": "lora", "quality_score": 0.5},
		"competitor":      map[string]any{"provider": "gemini", "quality_score": 0.8},
		"competitor_name": "gemini",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var fb entity.Feedback
	require.NoError(t, json.Unmarshal(env.Data, &fb))
	assert.Equal(t, "gemini", fb.BestCompetitor)
	assert.InDelta(t, 0.3, fb.ScoreGap, 1e-9)
	assert.True(t, fb.NeedsImprovement)

	rec, _ = doJSON(t, r, http.MethodPost, "/v1/evaluations/feedback", map[string]any{"candidate": map[string]any{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEvaluationHandlerLifecycle(t *testing.T) {
	svc := newFakeEvaluationService()
	r := newEvaluationRouter(svc, &fakeComparator{})

	rec, env := doJSON(t, r, http.MethodPost, "/v1/evaluations", map[string]any{
		"frame":     map[string]any{"description": "  Aldar tricks the merchant  ", "shot_type": "close up"},
		"providers": []string{"gemini", "lora"},
	})
	require.Equal(t, http.StatusAccepted, rec.Code)

	var created dto.EvaluationResponse
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, "run-1", created.ID)
	assert.Equal(t, string(entity.EvaluationPending), created.Status)
	require.Len(t, svc.submitted, 1)
	assert.Equal(t, "Aldar tricks the merchant", svc.submitted[0].Description)
	assert.Equal(t, entity.ShotCloseUp, svc.submitted[0].ShotType)

	rec, env = doJSON(t, r, http.MethodGet, "/v1/evaluations/run-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got dto.EvaluationResponse
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, []string{"gemini", "lora"}, got.Providers)
	assert.Equal(t, []string{}, got.Ranking)

	rec, env = doJSON(t, r, http.MethodGet, "/v1/evaluations/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, string(apperrors.CodeEvaluationNotFound), env.Error.ErrorCode)

	rec, env = doJSON(t, r, http.MethodGet, "/v1/evaluations?status=pending&best_provider=gemini&page=2&page_size=500", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, entity.EvaluationPending, svc.lastFilter.Status)
	assert.Equal(t, "gemini", svc.lastFilter.BestProvider)
	assert.Equal(t, repository.Pagination{Page: 2, PageSize: 100}, svc.lastPage)
	var meta dto.PageMeta
	require.NoError(t, json.Unmarshal(env.Meta, &meta))
	assert.Equal(t, 1, meta.Total)
}

func TestEvaluationHandlerSubmitErrors(t *testing.T) {
	svc := newFakeEvaluationService()
	svc.submitErr = apperrors.ErrServiceUnavailable.WithDetail("async evaluation requires persistence and messaging")
	r := newEvaluationRouter(svc, &fakeComparator{})

	rec, _ := doJSON(t, r, http.MethodPost, "/v1/evaluations", map[string]any{
		"frame": map[string]any{"description": "Aldar"},
	})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec, _ = doJSON(t, r, http.MethodPost, "/v1/evaluations", map[string]any{"frame": map[string]any{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEvaluationHandlerRun(t *testing.T) {
	r := newEvaluationRouter(newFakeEvaluationService(), &fakeComparator{})

	rec, env := doJSON(t, r, http.MethodPost, "/v1/evaluations/run", map[string]any{
		"frame":     map[string]any{"description": "Aldar at the yurt"},
		"providers": []string{"gemini"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var run dto.EvaluationResponse
	require.NoError(t, json.Unmarshal(env.Data, &run))
	assert.Equal(t, string(entity.EvaluationCompleted), run.Status)
	assert.Equal(t, "gemini", run.BestProvider)
	assert.NotEmpty(t, run.CompletedAt)
}

func TestEvaluationHandlerSimilar(t *testing.T) {
	svc := newFakeEvaluationService()
	svc.similar = []repository.SimilarGeneration{{ID: "g1", RunID: "run-1", Provider: "gemini", Score: 0.93}}
	r := newEvaluationRouter(svc, &fakeComparator{})

	rec, env := doMultipart(t, r, "/v1/evaluations/similar?top_k=500", upload{"image", "q.png", []byte{1, 2, 3}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, maxSimilarTopK, svc.lastTopK)

	var hits []dto.SimilarGenerationResponse
	require.NoError(t, json.Unmarshal(env.Data, &hits))
	require.Len(t, hits, 1)
	assert.Equal(t, "run-1", hits[0].RunID)

	rec, _ = doMultipart(t, r, "/v1/evaluations/similar", upload{"image", "q.png", []byte{1}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, defaultSimilarTopK, svc.lastTopK)

	rec, _ = doMultipart(t, r, "/v1/evaluations/similar?top_k=zero", upload{"image", "q.png", []byte{1}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEvaluationHandlerDisabled(t *testing.T) {
	r := newEvaluationRouter(nil, nil)

	rec, env := doJSON(t, r, http.MethodGet, "/v1/evaluations/run-1", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, string(apperrors.CodeServiceUnavailable), env.Error.ErrorCode)

	rec, _ = doMultipart(t, r, "/v1/evaluations/compare", upload{"gemini", "g.png", []byte{1}})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
