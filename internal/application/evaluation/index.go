package evaluation

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	apperrors "github.com/sapogeth/qylysh-higgsfiled/pkg/errors"
	"github.com/sapogeth/qylysh-higgsfiled/pkg/imaging"
	"github.com/sapogeth/qylysh-higgsfiled/pkg/logger"
)

// DefaultSSIMSize SSIM 比较前统一缩放的边长
const DefaultSSIMSize = 256

// ReferenceImage 参考图原始字节
type ReferenceImage struct {
	Name string
	Data []byte
}

// Reference 已嵌入的参考图
type Reference struct {
	Name   string
	Vector []float64
	// Gray 为空表示无法解码，SSIM 时跳过
	Gray *image.Gray
}

// Index 参考图与关键特征短语的嵌入索引，构建后只读
type Index struct {
	refs       []Reference
	phrases    []string
	phraseVecs [][]float64
	ssimSize   int
}

// IndexOption 索引构建选项
type IndexOption func(*Index)

// WithSSIMSize 设置 SSIM 缩放边长
func WithSSIMSize(size int) IndexOption {
	return func(i *Index) {
		if size > 0 {
			i.ssimSize = size
		}
	}
}

// LoadReferences 读取参考图文件，任一缺失即失败
func LoadReferences(paths []string) ([]ReferenceImage, error) {
	if len(paths) == 0 {
		return nil, apperrors.ErrReferenceMissing.WithDetail("no reference images configured")
	}
	refs := make([]ReferenceImage, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeReferenceMissing, "reference image unreadable").WithDetail(p)
		}
		refs = append(refs, ReferenceImage{Name: filepath.Base(p), Data: data})
	}
	return refs, nil
}

// NewIndex 一次性嵌入全部参考图与关键短语并归一化
func NewIndex(ctx context.Context, embedder Embedder, refs []ReferenceImage, phrases []string, opts ...IndexOption) (*Index, error) {
	if len(refs) == 0 {
		return nil, apperrors.ErrReferenceMissing.WithDetail("no reference images")
	}
	cleaned := make([]string, 0, len(phrases))
	for _, p := range phrases {
		if p = strings.TrimSpace(p); p != "" {
			cleaned = append(cleaned, p)
		}
	}
	if len(cleaned) == 0 {
		return nil, apperrors.ErrKeyPhrasesMissing
	}

	idx := &Index{phrases: cleaned, ssimSize: DefaultSSIMSize}
	for _, opt := range opts {
		opt(idx)
	}

	data := make([][]byte, len(refs))
	for i, r := range refs {
		if len(r.Data) == 0 {
			return nil, apperrors.ErrReferenceMissing.WithDetail(r.Name)
		}
		data[i] = r.Data
	}

	imageVecs, err := embedder.EmbedImages(ctx, data)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeEmbeddingFailed, "embed reference images")
	}
	if len(imageVecs) != len(refs) {
		return nil, apperrors.Newf(apperrors.CodeEmbeddingFailed, "expected %d reference embeddings, got %d", len(refs), len(imageVecs))
	}

	idx.refs = make([]Reference, len(refs))
	for i, r := range refs {
		vec, err := normalize(imageVecs[i])
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeEmbeddingFailed, "normalize reference embedding").WithDetail(r.Name)
		}
		ref := Reference{Name: r.Name, Vector: vec}
		if img, _, err := imaging.Decode(r.Data); err == nil {
			ref.Gray = imaging.ResizeGray(img, idx.ssimSize)
		} else {
			logger.Warn(ctx, "reference image not decodable, excluded from structural similarity",
				"reference", r.Name, "error", err.Error())
		}
		idx.refs[i] = ref
	}

	textVecs, err := embedder.EmbedTexts(ctx, cleaned)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeEmbeddingFailed, "embed key phrases")
	}
	if len(textVecs) != len(cleaned) {
		return nil, apperrors.Newf(apperrors.CodeEmbeddingFailed, "expected %d phrase embeddings, got %d", len(cleaned), len(textVecs))
	}
	idx.phraseVecs = make([][]float64, len(cleaned))
	for i, v := range textVecs {
		vec, err := normalize(v)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeEmbeddingFailed, fmt.Sprintf("normalize phrase %q", cleaned[i]))
		}
		idx.phraseVecs[i] = vec
	}

	logger.Info(ctx, "reference index built",
		"references", len(idx.refs),
		"phrases", len(idx.phrases),
		"ssim_size", idx.ssimSize,
	)
	return idx, nil
}

// References 参考图列表
func (i *Index) References() []Reference { return i.refs }

// Phrases 关键特征短语
func (i *Index) Phrases() []string { return append([]string(nil), i.phrases...) }

// SSIMSize SSIM 缩放边长
func (i *Index) SSIMSize() int { return i.ssimSize }
