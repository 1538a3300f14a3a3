// Package embedding 提供多模态 Embedding 服务客户端
package embedding

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/sapogeth/qylysh-higgsfiled/internal/config"
	apperrors "github.com/sapogeth/qylysh-higgsfiled/pkg/errors"
	"github.com/sapogeth/qylysh-higgsfiled/pkg/metrics"
	"github.com/sapogeth/qylysh-higgsfiled/pkg/tracer"
)

const (
	kindImage = "image"
	kindText  = "text"

	defaultModel     = "openai/clip-vit-base-patch32"
	defaultBatchSize = 32
)

// Client 自托管 CLIP 服务客户端，图像与文本共用同一向量空间
type Client struct {
	endpoint   string
	model      string
	batchSize  int
	httpClient *http.Client
}

type imageRequest struct {
	Images []string `json:"images"`
	Model  string   `json:"model"`
}

type textRequest struct {
	Texts []string `json:"texts"`
	Model string   `json:"model"`
}

type embedResponse struct {
	Embeddings [][]float64 `json:"embeddings"`
	Error      string      `json:"error,omitempty"`
}

// NewClient 创建 CLIP 服务客户端
func NewClient(cfg *config.EmbeddingConfig) (*Client, error) {
	endpoint := strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/")
	if endpoint == "" {
		return nil, apperrors.ErrEmbeddingFailed.WithDetail("embedding endpoint is required")
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		endpoint:   endpoint,
		model:      model,
		batchSize:  batchSize,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// Model 模型名
func (c *Client) Model() string { return c.model }

// EmbedImages 批量编码图像（原始字节，服务端解码）
func (c *Client) EmbedImages(ctx context.Context, images [][]byte) ([][]float64, error) {
	encoded := make([]string, len(images))
	for i, img := range images {
		if len(img) == 0 {
			return nil, apperrors.ErrEmbeddingFailed.WithDetail(fmt.Sprintf("image %d is empty", i))
		}
		encoded[i] = base64.StdEncoding.EncodeToString(img)
	}
	return c.embed(ctx, kindImage, len(encoded), func(start, end int) any {
		return &imageRequest{Images: encoded[start:end], Model: c.model}
	})
}

// EmbedTexts 批量编码文本
func (c *Client) EmbedTexts(ctx context.Context, texts []string) ([][]float64, error) {
	return c.embed(ctx, kindText, len(texts), func(start, end int) any {
		return &textRequest{Texts: texts[start:end], Model: c.model}
	})
}

func (c *Client) embed(ctx context.Context, kind string, n int, build func(start, end int) any) ([][]float64, error) {
	if n == 0 {
		return [][]float64{}, nil
	}
	ctx, span := tracer.Start(ctx, "embedding."+kind)
	span.SetAttributes(
		attribute.String("embedding.model", c.model),
		attribute.Int("embedding.count", n),
	)
	defer span.End()

	started := time.Now()
	all := make([][]float64, 0, n)
	for i := 0; i < n; i += c.batchSize {
		end := i + c.batchSize
		if end > n {
			end = n
		}
		vecs, err := c.doBatch(ctx, kind, build(i, end))
		if err != nil {
			metrics.EmbeddingDuration.WithLabelValues(kind, "error").Observe(time.Since(started).Seconds())
			return nil, tracer.RecordError(span, err)
		}
		if len(vecs) != end-i {
			err := apperrors.ErrEmbeddingFailed.WithDetail(
				fmt.Sprintf("expected %d embeddings, got %d", end-i, len(vecs)))
			metrics.EmbeddingDuration.WithLabelValues(kind, "error").Observe(time.Since(started).Seconds())
			return nil, tracer.RecordError(span, err)
		}
		all = append(all, vecs...)
	}
	metrics.EmbeddingDuration.WithLabelValues(kind, "success").Observe(time.Since(started).Seconds())
	return all, nil
}

func (c *Client) doBatch(ctx context.Context, kind string, payload any) ([][]float64, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeEmbeddingFailed, "encode embed request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/embed/"+kind, bytes.NewReader(body))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeEmbeddingFailed, "build embed request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeEmbeddingFailed, "embedding request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, apperrors.ErrEmbeddingFailed.WithDetail(
			fmt.Sprintf("status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(snippet))))
	}

	var out embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeEmbeddingFailed, "decode embed response")
	}
	if out.Error != "" {
		return nil, apperrors.ErrEmbeddingFailed.WithDetail(out.Error)
	}
	return out.Embeddings, nil
}
