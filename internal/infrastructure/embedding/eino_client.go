package embedding

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/embedding/openai"
	"github.com/cloudwego/eino/components/embedding"

	"github.com/sapogeth/qylysh-higgsfiled/internal/config"
	apperrors "github.com/sapogeth/qylysh-higgsfiled/pkg/errors"
	"github.com/sapogeth/qylysh-higgsfiled/pkg/tracer"
)

// ImageEmbedder 图像编码能力
type ImageEmbedder interface {
	EmbedImages(ctx context.Context, images [][]byte) ([][]float64, error)
}

// TextEmbedder 文本编码能力
type TextEmbedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float64, error)
}

// EinoTextEmbedder 基于 Eino OpenAI 兼容接口的文本编码器
type EinoTextEmbedder struct {
	embedder embedding.Embedder
}

// NewEinoTextEmbedder 创建文本编码器；服务端需托管与图像侧相同的 CLIP 模型
func NewEinoTextEmbedder(ctx context.Context, cfg *config.EmbeddingConfig) (*EinoTextEmbedder, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = cfg.Endpoint
	}
	if baseURL == "" {
		return nil, apperrors.ErrEmbeddingFailed.WithDetail("embedding base_url is required")
	}

	embedder, err := openai.NewEmbedder(ctx, &openai.EmbeddingConfig{
		APIKey:  cfg.APIKey,
		BaseURL: baseURL,
		Model:   cfg.Model,
		Timeout: cfg.Timeout,
	})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeEmbeddingFailed, "create eino embedder")
	}
	return newEinoTextEmbedder(embedder), nil
}

func newEinoTextEmbedder(embedder embedding.Embedder) *EinoTextEmbedder {
	return &EinoTextEmbedder{embedder: embedder}
}

// EmbedTexts 编码文本
func (e *EinoTextEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return [][]float64{}, nil
	}
	ctx, span := tracer.Start(ctx, "embedding.eino.text")
	defer span.End()

	vecs, err := e.embedder.EmbedStrings(ctx, texts)
	if err != nil {
		return nil, tracer.RecordError(span, apperrors.Wrap(err, apperrors.CodeEmbeddingFailed, "eino embed strings"))
	}
	if len(vecs) != len(texts) {
		return nil, tracer.RecordError(span, apperrors.ErrEmbeddingFailed.WithDetail(
			fmt.Sprintf("expected %d embeddings, got %d", len(texts), len(vecs))))
	}
	return vecs, nil
}

// Composite 图像与文本分别由不同后端编码
type Composite struct {
	Images ImageEmbedder
	Texts  TextEmbedder
}

// EmbedImages 编码图像
func (c Composite) EmbedImages(ctx context.Context, images [][]byte) ([][]float64, error) {
	return c.Images.EmbedImages(ctx, images)
}

// EmbedTexts 编码文本
func (c Composite) EmbedTexts(ctx context.Context, texts []string) ([][]float64, error) {
	return c.Texts.EmbedTexts(ctx, texts)
}
