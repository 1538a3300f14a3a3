package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sapogeth/qylysh-higgsfiled/internal/application/prompt"
	"github.com/sapogeth/qylysh-higgsfiled/internal/interfaces/http/dto"
)

func newPromptRouter(t *testing.T) (*gin.Engine, *prompt.Enhancer) {
	t.Helper()
	enhancer, err := prompt.NewEnhancer(testProfile(), prompt.NewEstimator(context.Background(), nil), prompt.DefaultOptions())
	require.NoError(t, err)

	h := NewPromptHandler(enhancer)
	r := gin.New()
	r.POST("/v1/prompts/enhance", h.Enhance)
	r.POST("/v1/prompts/enhance-batch", h.EnhanceBatch)
	r.POST("/v1/prompts/variation", h.Variation)
	r.POST("/v1/prompts/analyze", h.Analyze)
	r.GET("/v1/prompts/negative", h.Negative)
	return r, enhancer
}

func TestPromptHandlerEnhance(t *testing.T) {
	r, enhancer := newPromptRouter(t)

	t.Run("english frame", func(t *testing.T) {
		rec, env := doJSON(t, r, http.MethodPost, "/v1/prompts/enhance", map[string]any{
			"description": "Aldar walks across the steppe",
			"shot_type":   "wide",
			"setting":     "Kazakh steppe",
		})
		require.Equal(t, http.StatusOK, rec.Code)

		var resp dto.EnhancePromptResponse
		require.NoError(t, json.Unmarshal(env.Data, &resp))
		assert.True(t, strings.HasPrefix(resp.Positive, "Aldar walks across the steppe"))
		assert.Contains(t, resp.Positive, "felt kalpak hat")
		assert.Equal(t, "english", string(resp.Path))
		assert.Equal(t, testProfile().NegativePrompt, resp.Negative)
		assert.LessOrEqual(t, resp.TokenCount, resp.TokenBudget)
		assert.False(t, resp.ExactTokens)
		assert.Equal(t, enhancer.Budget(), resp.TokenBudget)
	})

	t.Run("cyrillic frame takes the compact path", func(t *testing.T) {
		rec, env := doJSON(t, r, http.MethodPost, "/v1/prompts/enhance", map[string]any{
			"description": "Алдар Көсе базарда жүр",
		})
		require.Equal(t, http.StatusOK, rec.Code)

		var resp dto.EnhancePromptResponse
		require.NoError(t, json.Unmarshal(env.Data, &resp))
		assert.Equal(t, "non_english", string(resp.Path))
		assert.True(t, strings.HasPrefix(resp.Positive, "market"))
	})

	t.Run("missing description", func(t *testing.T) {
		rec, _ := doJSON(t, r, http.MethodPost, "/v1/prompts/enhance", map[string]any{"shot_type": "wide"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestPromptHandlerEnhanceBatch(t *testing.T) {
	r, enhancer := newPromptRouter(t)

	rec, env := doJSON(t, r, http.MethodPost, "/v1/prompts/enhance-batch", map[string]any{
		"frames": []map[string]any{
			{"description": "Aldar greets the villagers"},
			{"description": "Aldar rides away", "shot_type": "establishing"},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp dto.EnhanceBatchResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	require.Len(t, resp.Prompts, 2)
	assert.True(t, strings.HasPrefix(resp.Prompts[0].Positive, "Aldar greets the villagers"))
	assert.True(t, strings.HasPrefix(resp.Prompts[1].Positive, "Aldar rides away"))
	assert.Equal(t, enhancer.NegativePrompt(), resp.Prompts[1].Negative)

	rec, _ = doJSON(t, r, http.MethodPost, "/v1/prompts/enhance-batch", map[string]any{"frames": []any{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPromptHandlerVariation(t *testing.T) {
	r, _ := newPromptRouter(t)
	frame := map[string]any{"description": "Aldar sits by the yurt", "shot_type": "medium"}

	t.Run("seeded variation is repeatable", func(t *testing.T) {
		body := map[string]any{"frame": frame, "variation": "lighting", "seed": 7}
		_, first := doJSON(t, r, http.MethodPost, "/v1/prompts/variation", body)
		rec, second := doJSON(t, r, http.MethodPost, "/v1/prompts/variation", body)
		require.Equal(t, http.StatusOK, rec.Code)

		var a, b dto.VariationResponse
		require.NoError(t, json.Unmarshal(first.Data, &a))
		require.NoError(t, json.Unmarshal(second.Data, &b))
		assert.Equal(t, a.Positive, b.Positive)
		assert.Equal(t, "lighting", a.Variation)

		modifier := a.Positive[strings.LastIndex(a.Positive, ", ")+2:]
		assert.Contains(t, prompt.ModifierSpace(prompt.VariationLighting), modifier)
	})

	t.Run("unknown variation", func(t *testing.T) {
		rec, env := doJSON(t, r, http.MethodPost, "/v1/prompts/variation", map[string]any{"frame": frame, "variation": "zoom"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		require.NotNil(t, env.Error)
		assert.Equal(t, "2003", env.Error.ErrorCode)
	})
}

func TestPromptHandlerAnalyze(t *testing.T) {
	r, _ := newPromptRouter(t)

	rec, env := doJSON(t, r, http.MethodPost, "/v1/prompts/analyze", map[string]any{
		"prompt":      "aldar_kose_character in a yurt, 2D cel-shaded storybook illustration, warm daylight",
		"description": "Aldar rides a horse to the bazaar",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp dto.AnalyzePromptResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.True(t, resp.Quality.HasCharacterTrigger)
	assert.GreaterOrEqual(t, resp.Quality.QualityScore, 30)
	require.NotNil(t, resp.KeyElements)

	rec, env = doJSON(t, r, http.MethodPost, "/v1/prompts/analyze", map[string]any{"prompt": "a cat"})
	require.Equal(t, http.StatusOK, rec.Code)
	var bare dto.AnalyzePromptResponse
	require.NoError(t, json.Unmarshal(env.Data, &bare))
	assert.Nil(t, bare.KeyElements)
	assert.False(t, bare.Quality.HasCharacterTrigger)
}

func TestPromptHandlerNegative(t *testing.T) {
	r, _ := newPromptRouter(t)

	rec, env := doJSON(t, r, http.MethodGet, "/v1/prompts/negative", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp dto.NegativePromptResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.Equal(t, testProfile().NegativePrompt, resp.Negative)
}
