package evaluation

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/sapogeth/qylysh-higgsfiled/internal/domain/entity"
	apperrors "github.com/sapogeth/qylysh-higgsfiled/pkg/errors"
	"github.com/sapogeth/qylysh-higgsfiled/pkg/logger"
)

// FeatureCategory 一个视觉维度及其候选描述
type FeatureCategory struct {
	Name    string
	Options []string
}

// DefaultFeatureCategories 角色外观分析维度
var DefaultFeatureCategories = []FeatureCategory{
	{Name: "face_shape", Options: []string{"round face", "oval face", "square face", "angular face", "friendly round face"}},
	{Name: "eyes", Options: []string{"narrow eyes", "wide eyes", "almond-shaped eyes", "round eyes", "small eyes"}},
	{Name: "facial_hair", Options: []string{"mustache", "thin mustache", "thick mustache", "beard", "clean shaven", "no facial hair"}},
	{Name: "hair_style", Options: []string{"topknot", "bun", "short hair", "long hair", "black hair", "ponytail"}},
	{Name: "clothing_color", Options: []string{"orange robe", "red robe", "blue robe", "brown robe", "yellow robe", "patterned robe"}},
	{Name: "art_style", Options: []string{"2D illustration", "cartoon style", "realistic painting", "watercolor", "digital art", "children's book style"}},
	{Name: "expression", Options: []string{"smiling", "laughing", "serious", "happy", "neutral expression"}},
	{Name: "background", Options: []string{"steppe landscape", "outdoor scene", "plain background", "detailed background", "minimalist background"}},
}

// DefaultKeyFeatures 分析结果不足时的关键特征
var DefaultKeyFeatures = []string{
	"round friendly face",
	"narrow eyes",
	"mustache",
	"orange robe",
	"2D illustration",
}

// priorityCategories 对角色一致性最关键的维度
var priorityCategories = []string{"face_shape", "eyes", "facial_hair", "clothing_color", "art_style"}

const (
	// logitScale 余弦相似度到 softmax logit 的缩放
	logitScale = 100.0

	trainingPromptMinConfidence = 0.15
	keyFeatureMinConfidence     = 0.2
	alternativesKept            = 2
)

// FeatureAnalyzer 基于图文相似度识别角色外观特征
type FeatureAnalyzer struct {
	embedder   Embedder
	categories []FeatureCategory

	optMu      sync.Mutex
	optionVecs map[string][][]float64
}

// NewFeatureAnalyzer 创建特征分析器，categories 为空时使用默认维度；embedder 经 Serialize 串行化
func NewFeatureAnalyzer(embedder Embedder, categories []FeatureCategory) *FeatureAnalyzer {
	if len(categories) == 0 {
		categories = DefaultFeatureCategories
	}
	return &FeatureAnalyzer{embedder: Serialize(embedder), categories: categories}
}

// Categories 分析维度
func (a *FeatureAnalyzer) Categories() []FeatureCategory { return a.categories }

// loadOptions 首次使用时嵌入全部候选描述，失败后下次调用重试
func (a *FeatureAnalyzer) loadOptions(ctx context.Context) error {
	a.optMu.Lock()
	defer a.optMu.Unlock()
	if a.optionVecs != nil {
		return nil
	}

	var texts []string
	for _, c := range a.categories {
		texts = append(texts, c.Options...)
	}
	vecs, err := a.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeEmbeddingFailed, "embed feature options")
	}
	if len(vecs) != len(texts) {
		return apperrors.Newf(apperrors.CodeEmbeddingFailed, "expected %d option embeddings, got %d", len(texts), len(vecs))
	}

	loaded := make(map[string][][]float64, len(a.categories))
	pos := 0
	for _, c := range a.categories {
		list := make([][]float64, len(c.Options))
		for i := range c.Options {
			v, err := normalize(vecs[pos])
			if err != nil {
				return apperrors.Wrap(err, apperrors.CodeEmbeddingFailed, "normalize feature option").WithDetail(c.Options[i])
			}
			list[i] = v
			pos++
		}
		loaded[c.Name] = list
	}
	a.optionVecs = loaded
	return nil
}

// AnalyzeImage 对每个维度取 softmax 后置信度最高的描述
func (a *FeatureAnalyzer) AnalyzeImage(ctx context.Context, data []byte) (entity.ImageFeatures, error) {
	if err := a.loadOptions(ctx); err != nil {
		return nil, err
	}

	vecs, err := a.embedder.EmbedImages(ctx, [][]byte{data})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeEmbeddingFailed, "embed image for feature analysis")
	}
	if len(vecs) != 1 {
		return nil, apperrors.Newf(apperrors.CodeEmbeddingFailed, "expected 1 embedding, got %d", len(vecs))
	}
	img, err := normalize(vecs[0])
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeEmbeddingFailed, "normalize image embedding")
	}

	out := make(entity.ImageFeatures, len(a.categories))
	for _, c := range a.categories {
		options := a.optionVecs[c.Name]
		if len(options) == 0 {
			continue
		}
		logits := make([]float64, len(options))
		for i, ov := range options {
			logits[i] = logitScale * dot(img, ov)
		}
		probs := softmax(logits)

		order := make([]int, len(probs))
		for i := range order {
			order[i] = i
		}
		sort.SliceStable(order, func(i, j int) bool { return probs[order[i]] > probs[order[j]] })

		alts := make([]entity.FeatureOption, 0, alternativesKept)
		for _, i := range order[:min(alternativesKept, len(order))] {
			alts = append(alts, entity.FeatureOption{Feature: c.Options[i], Confidence: probs[i]})
		}
		out[c.Name] = entity.FeatureMatch{
			TopMatch:     alts[0].Feature,
			Confidence:   alts[0].Confidence,
			Alternatives: alts,
		}
	}
	return out, nil
}

// AnalyzeImages 逐图分析后聚合，失败的图记录日志并跳过
func (a *FeatureAnalyzer) AnalyzeImages(ctx context.Context, images [][]byte) (map[string]entity.AggregatedFeature, error) {
	results := make([]entity.ImageFeatures, 0, len(images))
	for i, data := range images {
		res, err := a.AnalyzeImage(ctx, data)
		if err != nil {
			logger.Warn(ctx, "feature analysis failed for image", "image_index", i, "error", err.Error())
			continue
		}
		results = append(results, res)
	}
	if len(results) == 0 {
		return nil, apperrors.New(apperrors.CodeEmbeddingFailed, "no image could be analyzed")
	}
	return a.Aggregate(results), nil
}

// Aggregate 每个维度按出现次数、再按平均置信度选出代表特征
func (a *FeatureAnalyzer) Aggregate(results []entity.ImageFeatures) map[string]entity.AggregatedFeature {
	out := make(map[string]entity.AggregatedFeature, len(a.categories))
	for _, c := range a.categories {
		var detections []entity.Detection
		pos := make(map[string]int)
		sums := make(map[string]float64)
		for _, r := range results {
			m, ok := r[c.Name]
			if !ok || m.TopMatch == "" {
				continue
			}
			i, seen := pos[m.TopMatch]
			if !seen {
				i = len(detections)
				pos[m.TopMatch] = i
				detections = append(detections, entity.Detection{Feature: m.TopMatch})
			}
			detections[i].Count++
			sums[m.TopMatch] += m.Confidence
		}
		if len(detections) == 0 {
			continue
		}
		for i := range detections {
			detections[i].AvgConfidence = sums[detections[i].Feature] / float64(detections[i].Count)
		}
		sort.SliceStable(detections, func(i, j int) bool {
			if detections[i].Count != detections[j].Count {
				return detections[i].Count > detections[j].Count
			}
			return detections[i].AvgConfidence > detections[j].AvgConfidence
		})
		best := detections[0]
		out[c.Name] = entity.AggregatedFeature{
			Feature:       best.Feature,
			Appearances:   best.Count,
			AvgConfidence: best.AvgConfidence,
			AllDetections: detections,
		}
	}
	return out
}

// TrainingPrompt 拼接置信度高于 0.15 的特征，维度顺序固定
func (a *FeatureAnalyzer) TrainingPrompt(agg map[string]entity.AggregatedFeature) string {
	parts := make([]string, 0, len(agg))
	for _, c := range a.categories {
		if f, ok := agg[c.Name]; ok && f.AvgConfidence > trainingPromptMinConfidence {
			parts = append(parts, f.Feature)
		}
	}
	return strings.Join(parts, ", ")
}

// KeyFeatures 优先维度中置信度高于 0.2 的特征，结果为空时返回默认特征
func KeyFeatures(agg map[string]entity.AggregatedFeature) []string {
	out := make([]string, 0, len(priorityCategories))
	for _, name := range priorityCategories {
		if f, ok := agg[name]; ok && f.AvgConfidence > keyFeatureMinConfidence {
			out = append(out, f.Feature)
		}
	}
	if len(out) == 0 {
		return append([]string(nil), DefaultKeyFeatures...)
	}
	return out
}

func softmax(logits []float64) []float64 {
	if len(logits) == 0 {
		return nil
	}
	hi := maxOf(logits)
	out := make([]float64, len(logits))
	var sum float64
	for i, l := range logits {
		out[i] = math.Exp(l - hi)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}
