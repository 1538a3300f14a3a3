package evaluation

import (
	"context"
	"math"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/sapogeth/qylysh-higgsfiled/internal/domain/entity"
	apperrors "github.com/sapogeth/qylysh-higgsfiled/pkg/errors"
	"github.com/sapogeth/qylysh-higgsfiled/pkg/imaging"
	"github.com/sapogeth/qylysh-higgsfiled/pkg/logger"
	"github.com/sapogeth/qylysh-higgsfiled/pkg/metrics"
	"github.com/sapogeth/qylysh-higgsfiled/pkg/tracer"
)

// 综合分权重
const (
	weightCLIP    = 0.4
	weightFeature = 0.4
	weightSSIM    = 0.2
)

// Comparator 参考图比对与生成方排名
type Comparator struct {
	index    *Index
	embedder Embedder
	feedback FeedbackThresholds
}

// NewComparator 创建比对器，embedder 经 Serialize 串行化
func NewComparator(index *Index, embedder Embedder, feedback FeedbackThresholds) *Comparator {
	return &Comparator{
		index:    index,
		embedder: Serialize(embedder),
		feedback: feedback.withDefaults(),
	}
}

// Index 参考索引
func (c *Comparator) Index() *Index { return c.index }

// EmbedImage 调用嵌入后端并归一化
func (c *Comparator) EmbedImage(ctx context.Context, data []byte) ([]float64, error) {
	start := time.Now()
	vecs, err := c.embedder.EmbedImages(ctx, [][]byte{data})
	status := "success"
	if err != nil || len(vecs) != 1 {
		status = "error"
	}
	metrics.EmbeddingDuration.WithLabelValues("image", status).Observe(time.Since(start).Seconds())

	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeEmbeddingFailed, "embed generated image")
	}
	if len(vecs) != 1 {
		return nil, apperrors.Newf(apperrors.CodeEmbeddingFailed, "expected 1 embedding, got %d", len(vecs))
	}
	vec, err := normalize(vecs[0])
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeEmbeddingFailed, "normalize generated image embedding")
	}
	return vec, nil
}

// CompareWithReferences 计算单图与参考集的 CLIP 相似度、特征匹配、SSIM 与综合分
func (c *Comparator) CompareWithReferences(ctx context.Context, data []byte, provider string) (entity.QualityMetrics, error) {
	ctx, span := tracer.Start(ctx, "evaluation.CompareWithReferences")
	defer span.End()
	span.SetAttributes(attribute.String("provider", provider))

	img, _, err := imaging.Decode(data)
	if err != nil {
		return entity.QualityMetrics{}, tracer.RecordError(span, apperrors.Wrap(err, apperrors.CodeImageDecodeFailed, "decode generated image"))
	}

	vec, err := c.EmbedImage(ctx, data)
	if err != nil {
		return entity.QualityMetrics{}, tracer.RecordError(span, err)
	}

	refs := c.index.References()
	clip := make([]float64, len(refs))
	for i, ref := range refs {
		clip[i] = dot(vec, ref.Vector)
	}

	feature := make([]float64, len(c.index.phraseVecs))
	for i, pv := range c.index.phraseVecs {
		feature[i] = dot(vec, pv)
	}

	gray := imaging.ResizeGray(img, c.index.SSIMSize())
	ssims := make([]float64, 0, len(refs))
	for _, ref := range refs {
		if ref.Gray == nil {
			continue
		}
		ssims = append(ssims, SSIM(gray, ref.Gray))
	}

	m := entity.QualityMetrics{
		Provider:             provider,
		CLIPSimilarityAvg:    mean(clip),
		CLIPSimilarityMax:    maxOf(clip),
		FeatureMatchingScore: mean(feature),
		SSIMAvg:              mean(ssims),
		IndividualCLIPScores: clip,
		IndividualSSIMScores: ssims,
	}
	m.QualityScore = QualityScore(m)

	metrics.ComparisonScore.WithLabelValues(provider).Observe(m.QualityScore)
	logger.Debug(ctx, "compared image with references",
		"provider", provider,
		"clip_avg", m.CLIPSimilarityAvg,
		"feature", m.FeatureMatchingScore,
		"ssim", m.SSIMAvg,
		"score", m.QualityScore,
	)
	return m, nil
}

// QualityScore 0.4·clip_avg + 0.4·feature + 0.2·ssim，截断到 [0,1]
// 余弦相似度与 SSIM 都可能为负
func QualityScore(m entity.QualityMetrics) float64 {
	score := weightCLIP*m.CLIPSimilarityAvg + weightFeature*m.FeatureMatchingScore + weightSSIM*m.SSIMAvg
	return math.Max(0, math.Min(1, score))
}

// CompareProviders 比对各生成方的图像并按综合分降序排名，同分保持输入顺序
// 空图跳过；单个生成方比对失败记录日志后跳过
func (c *Comparator) CompareProviders(ctx context.Context, images map[string][]byte, order []string) entity.ComparisonReport {
	ctx, span := tracer.Start(ctx, "evaluation.CompareProviders")
	defer span.End()

	report := entity.ComparisonReport{
		Comparisons: make(map[string]entity.QualityMetrics),
		Ranking:     []entity.RankEntry{},
	}

	for _, provider := range ProviderOrder(images, order) {
		data := images[provider]
		if len(data) == 0 {
			continue
		}
		m, err := c.CompareWithReferences(logger.WithContext(ctx, logger.ProviderKey, provider), data, provider)
		if err != nil {
			logger.Warn(ctx, "provider skipped in comparison", "provider", provider, "error", err.Error())
			continue
		}
		report.Comparisons[provider] = m
		report.Ranking = append(report.Ranking, entity.RankEntry{Provider: provider, QualityScore: m.QualityScore})
	}

	sort.SliceStable(report.Ranking, func(i, j int) bool {
		return report.Ranking[i].QualityScore > report.Ranking[j].QualityScore
	})
	if len(report.Ranking) > 0 {
		report.BestProvider = report.Ranking[0].Provider
		report.BestScore = report.Ranking[0].QualityScore
	}
	span.SetAttributes(
		attribute.Int("ranked", len(report.Ranking)),
		attribute.String("best_provider", report.BestProvider),
	)
	return report
}

// ProviderOrder 先按给定顺序，其余按名称排序追加
func ProviderOrder(images map[string][]byte, order []string) []string {
	out := make([]string, 0, len(images))
	seen := make(map[string]bool, len(images))
	for _, name := range order {
		if _, ok := images[name]; ok && !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	rest := make([]string, 0, len(images)-len(out))
	for name := range images {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

// BestCompetitor 排名中除候选方以外的最高分生成方
func BestCompetitor(report entity.ComparisonReport, candidate string) (string, entity.QualityMetrics, bool) {
	for _, r := range report.Ranking {
		if r.Provider == candidate {
			continue
		}
		return r.Provider, report.Comparisons[r.Provider], true
	}
	return "", entity.QualityMetrics{}, false
}
