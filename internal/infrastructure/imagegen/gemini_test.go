package imagegen

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/sapogeth/qylysh-higgsfiled/internal/application/storyboard"
	"github.com/sapogeth/qylysh-higgsfiled/internal/config"
	apperrors "github.com/sapogeth/qylysh-higgsfiled/pkg/errors"
)

type fakeModels struct {
	resp *genai.GenerateContentResponse
	err  error

	model    string
	contents []*genai.Content
	cfg      *genai.GenerateContentConfig
}

func (m *fakeModels) GenerateContent(_ context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	m.model, m.contents, m.cfg = model, contents, cfg
	return m.resp, m.err
}

func imageResponse(data []byte) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{
				{Text: "here is your image"},
				{InlineData: &genai.Blob{MIMEType: "image/png", Data: data}},
			}},
		}},
	}
}

func TestGeminiGenerator_Generate(t *testing.T) {
	ctx := context.Background()

	t.Run("returns inline image", func(t *testing.T) {
		fake := &fakeModels{resp: imageResponse([]byte("img"))}
		gen := newGeminiGenerator("gemini", fake, config.ImageProviderConfig{Width: 1024, Height: 768, Temperature: 0.4})

		seed := int64(7)
		data, err := gen.Generate(ctx, storyboard.GenerationRequest{Positive: "aldar on horse", Negative: "3D", Seed: &seed})
		require.NoError(t, err)
		assert.Equal(t, []byte("img"), data)

		assert.Equal(t, defaultGeminiModel, fake.model)
		require.Len(t, fake.contents, 1)
		text := fake.contents[0].Parts[0].Text
		assert.Contains(t, text, "aldar on horse")
		assert.Contains(t, text, "Avoid: 3D")
		assert.Equal(t, "4:3", fake.cfg.ImageConfig.AspectRatio)
		require.NotNil(t, fake.cfg.Seed)
		assert.Equal(t, int32(7), *fake.cfg.Seed)
		require.NotNil(t, fake.cfg.Temperature)
		assert.InDelta(t, 0.4, *fake.cfg.Temperature, 1e-6)
	})

	t.Run("no image", func(t *testing.T) {
		fake := &fakeModels{resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: "refused"}}},
		}}}}
		gen := newGeminiGenerator("gemini", fake, config.ImageProviderConfig{})
		_, err := gen.Generate(ctx, storyboard.GenerationRequest{Positive: "x"})
		assert.True(t, apperrors.HasCode(err, apperrors.CodeGenerationFailed))
		assert.Nil(t, fake.cfg.Seed)
		assert.Nil(t, fake.cfg.Temperature)
	})

	t.Run("api error", func(t *testing.T) {
		fake := &fakeModels{err: errors.New("quota exceeded")}
		gen := newGeminiGenerator("gemini", fake, config.ImageProviderConfig{Model: "custom-image"})
		_, err := gen.Generate(ctx, storyboard.GenerationRequest{Positive: "x"})
		assert.True(t, apperrors.HasCode(err, apperrors.CodeGenerationFailed))
		assert.Equal(t, "custom-image", fake.model)
	})

	t.Run("empty response", func(t *testing.T) {
		gen := newGeminiGenerator("gemini", &fakeModels{}, config.ImageProviderConfig{})
		_, err := gen.Generate(ctx, storyboard.GenerationRequest{Positive: "x"})
		assert.True(t, apperrors.HasCode(err, apperrors.CodeGenerationFailed))
	})
}

func TestAspectRatio(t *testing.T) {
	tests := []struct {
		w, h int
		want string
	}{
		{0, 0, "1:1"},
		{768, 768, "1:1"},
		{1024, 768, "4:3"},
		{1920, 1080, "16:9"},
		{1080, 1920, "9:16"},
		{1200, 800, "3:2"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, AspectRatio(tt.w, tt.h))
	}
}

func TestBuild(t *testing.T) {
	ctx := context.Background()

	t.Run("skips misconfigured providers", func(t *testing.T) {
		gens, err := Build(ctx, config.ImageGenConfig{Providers: map[string]config.ImageProviderConfig{
			"lora":    {Kind: "remote", Endpoint: "http://127.0.0.1:9"},
			"gemini":  {Kind: "gemini"},
			"mystery": {Kind: "dalle"},
		}})
		require.NoError(t, err)
		assert.Equal(t, []string{"lora"}, gens.Names())
	})

	t.Run("nothing usable", func(t *testing.T) {
		_, err := Build(ctx, config.ImageGenConfig{})
		assert.True(t, apperrors.HasCode(err, apperrors.CodeProviderNotFound))
	})
}
