package imagegen

import (
	"context"
	"strings"

	"google.golang.org/genai"

	"github.com/sapogeth/qylysh-higgsfiled/internal/application/storyboard"
	"github.com/sapogeth/qylysh-higgsfiled/internal/config"
	apperrors "github.com/sapogeth/qylysh-higgsfiled/pkg/errors"
)

const defaultGeminiModel = "gemini-2.5-flash-image"

// ContentGenerator genai.Models 的最小子集
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiGenerator 使用 Gemini 图像模型生成；负向提示词并入文本说明
type GeminiGenerator struct {
	name        string
	models      ContentGenerator
	model       string
	aspectRatio string
	temperature *float32
}

// NewGeminiGenerator 创建 Gemini API 客户端
func NewGeminiGenerator(ctx context.Context, name string, cfg config.ImageProviderConfig) (*GeminiGenerator, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, apperrors.ErrInvalidParam.WithDetail("gemini generator " + name + " has no api key")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeGenerationFailed, "create gemini client")
	}
	return newGeminiGenerator(name, client.Models, cfg), nil
}

func newGeminiGenerator(name string, models ContentGenerator, cfg config.ImageProviderConfig) *GeminiGenerator {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultGeminiModel
	}
	g := &GeminiGenerator{
		name:        name,
		models:      models,
		model:       model,
		aspectRatio: AspectRatio(cfg.Width, cfg.Height),
	}
	if cfg.Temperature > 0 {
		g.temperature = genai.Ptr(float32(cfg.Temperature))
	}
	return g
}

// Name 生成方名称
func (g *GeminiGenerator) Name() string { return g.name }

// Generate 生成一张图，返回第一个内联图像
func (g *GeminiGenerator) Generate(ctx context.Context, req storyboard.GenerationRequest) ([]byte, error) {
	text := req.Positive
	if req.Negative != "" {
		text += "\n\nAvoid: " + req.Negative
	}

	cfg := &genai.GenerateContentConfig{
		ResponseModalities: []string{"IMAGE"},
		ImageConfig:        &genai.ImageConfig{AspectRatio: g.aspectRatio},
		Temperature:        g.temperature,
	}
	if req.Seed != nil {
		cfg.Seed = genai.Ptr(int32(*req.Seed))
	}

	resp, err := g.models.GenerateContent(ctx, g.model, []*genai.Content{{
		Role:  genai.RoleUser,
		Parts: []*genai.Part{{Text: text}},
	}}, cfg)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeGenerationFailed, "gemini generate content").WithDetail(g.name)
	}
	return firstInlineImage(resp, g.name)
}

func firstInlineImage(resp *genai.GenerateContentResponse, name string) ([]byte, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, apperrors.ErrGenerationFailed.WithDetail(name + ": empty response")
	}
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part != nil && part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return part.InlineData.Data, nil
			}
		}
	}
	return nil, apperrors.ErrGenerationFailed.WithDetail(name + ": no image in response")
}

// AspectRatio 将像素尺寸映射为 Gemini 支持的最接近比例
func AspectRatio(width, height int) string {
	if width <= 0 || height <= 0 {
		return "1:1"
	}
	ratios := []struct {
		label string
		value float64
	}{
		{"1:1", 1}, {"4:3", 4.0 / 3}, {"3:4", 3.0 / 4}, {"16:9", 16.0 / 9}, {"9:16", 9.0 / 16},
		{"3:2", 3.0 / 2}, {"2:3", 2.0 / 3},
	}
	target := float64(width) / float64(height)
	best, bestDiff := ratios[0].label, -1.0
	for _, r := range ratios {
		diff := r.value - target
		if diff < 0 {
			diff = -diff
		}
		if bestDiff < 0 || diff < bestDiff {
			best, bestDiff = r.label, diff
		}
	}
	return best
}
