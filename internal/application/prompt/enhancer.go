package prompt

import (
	"context"
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/sapogeth/qylysh-higgsfiled/internal/domain/entity"
	apperrors "github.com/sapogeth/qylysh-higgsfiled/pkg/errors"
	"github.com/sapogeth/qylysh-higgsfiled/pkg/logger"
	"github.com/sapogeth/qylysh-higgsfiled/pkg/metrics"
)

// Options 预算与语言路由参数
type Options struct {
	TokenBudget      int
	HardLimit        int
	SceneWordLimit   int
	CyrillicRatio    float64
	MaxKeywords      int
	FallbackKeywords string
}

// DefaultOptions 默认参数：75 token 预算，77 为模型硬上限
func DefaultOptions() Options {
	return Options{
		TokenBudget:      75,
		HardLimit:        77,
		SceneWordLimit:   15,
		CyrillicRatio:    0.3,
		MaxKeywords:      3,
		FallbackKeywords: "folk tale scene",
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.TokenBudget <= 0 {
		o.TokenBudget = d.TokenBudget
	}
	if o.HardLimit < o.TokenBudget {
		o.HardLimit = o.TokenBudget + 2
	}
	if o.SceneWordLimit <= 0 {
		o.SceneWordLimit = d.SceneWordLimit
	}
	if o.CyrillicRatio <= 0 {
		o.CyrillicRatio = d.CyrillicRatio
	}
	if o.MaxKeywords <= 0 {
		o.MaxKeywords = d.MaxKeywords
	}
	if strings.TrimSpace(o.FallbackKeywords) == "" {
		o.FallbackKeywords = d.FallbackKeywords
	}
	return o
}

// Enhancer 提示词增强器，无状态，可并发调用
type Enhancer struct {
	profile   entity.CharacterProfile
	estimator Estimator
	opts      Options
}

// NewEnhancer 创建提示词增强器
func NewEnhancer(profile entity.CharacterProfile, estimator Estimator, opts Options) (*Enhancer, error) {
	if err := profile.Validate(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInvalidParam, "invalid character profile")
	}
	if estimator == nil {
		estimator = HeuristicEstimator{}
	}
	return &Enhancer{
		profile:   profile,
		estimator: estimator,
		opts:      opts.withDefaults(),
	}, nil
}

// Profile 返回角色设定副本
func (e *Enhancer) Profile() entity.CharacterProfile { return e.profile }

// Estimator 返回当前 token 估算器
func (e *Enhancer) Estimator() Estimator { return e.estimator }

// Budget 正向提示词 token 预算
func (e *Enhancer) Budget() int { return e.opts.TokenBudget }

// Enhance 将帧描述转换为预算内的正向提示词
func (e *Enhancer) Enhance(ctx context.Context, frame entity.Frame) string {
	out, _ := e.enhance(ctx, frame)
	return out
}

// EnhanceWithPath 同 Enhance，并返回所走的语言路径
func (e *Enhancer) EnhanceWithPath(ctx context.Context, frame entity.Frame) (string, entity.PromptPath) {
	return e.enhance(ctx, frame)
}

func (e *Enhancer) enhance(ctx context.Context, frame entity.Frame) (string, entity.PromptPath) {
	frame = frame.Normalize()

	var (
		raw  string
		path entity.PromptPath
	)
	if IsNonEnglish(frame.Description, e.opts.CyrillicRatio) {
		path = entity.PromptPathNonEnglish
		raw = e.buildNonEnglish(ctx, frame)
	} else {
		path = entity.PromptPathEnglish
		raw = e.buildEnglish(frame)
	}

	out := e.fit(Clean(raw), e.opts.TokenBudget)

	metrics.PromptEnhanceTotal.WithLabelValues(string(path)).Inc()
	metrics.PromptTokens.WithLabelValues(string(path), strconv.FormatBool(e.estimator.Exact())).
		Observe(float64(e.estimator.Count(out)))
	return out, path
}

// buildNonEnglish 精简路径：关键词 + 身份 + 风格 + 风格锁定
func (e *Enhancer) buildNonEnglish(ctx context.Context, frame entity.Frame) string {
	keywords := TranslateKeywords(frame.Description, e.opts.MaxKeywords)
	if len(keywords) == 0 {
		logger.Warn(ctx, "no known keyword in non-English description, using generic scene label",
			"description_runes", len([]rune(frame.Description)),
			"label", e.opts.FallbackKeywords,
		)
		metrics.PromptKeywordMissTotal.Inc()
		keywords = []string{e.opts.FallbackKeywords}
	}

	parts := append(keywords, e.profile.IdentityClause(), e.profile.StyleClause, e.profile.StyleLock)
	return strings.Join(parts, ", ")
}

// buildEnglish 必选部分始终保留，可选部分按顺序追加，超预算即停止
func (e *Enhancer) buildEnglish(frame entity.Frame) string {
	current := strings.Join([]string{
		firstWords(frame.Description, e.opts.SceneWordLimit),
		e.profile.IdentityClause(),
		e.profile.StyleClause,
	}, ", ")

	for _, optional := range e.optionalParts(frame) {
		if optional == "" {
			continue
		}
		candidate := current + ", " + optional
		if e.estimator.Count(Clean(candidate)) > e.opts.TokenBudget {
			break
		}
		current = candidate
	}
	return current
}

// optionalParts 镜头标签、简化场景、质量后缀
func (e *Enhancer) optionalParts(frame entity.Frame) []string {
	suffix := make([]string, 0, 2)
	for _, s := range []string{e.profile.QualitySuffix, e.profile.StyleLock} {
		if s != "" {
			suffix = append(suffix, s)
		}
	}
	return []string{
		ShotLabel(frame.ShotType),
		SimplifySetting(frame.Setting),
		strings.Join(suffix, ", "),
	}
}

// fit 截断至预算内；截断后的清理可能改变计数，逐步收紧直至满足
func (e *Enhancer) fit(prompt string, budget int) string {
	if e.estimator.Count(prompt) <= budget {
		return prompt
	}
	metrics.PromptTruncatedTotal.Inc()
	for limit := budget; limit > 0; limit-- {
		out := Clean(e.estimator.Truncate(prompt, limit))
		if e.estimator.Count(out) <= budget {
			return out
		}
	}
	return ""
}

// NegativePrompt 返回角色负向提示词
func (e *Enhancer) NegativePrompt() string {
	return e.profile.NegativePrompt
}

// EnhanceBatch 批量增强，顺序与输入一致
func (e *Enhancer) EnhanceBatch(ctx context.Context, frames []entity.Frame) []entity.EnhancedPrompt {
	out := make([]entity.EnhancedPrompt, 0, len(frames))
	for _, f := range frames {
		out = append(out, entity.EnhancedPrompt{
			Positive: e.Enhance(ctx, f),
			Negative: e.NegativePrompt(),
		})
	}
	return out
}

// ModifierSpace 返回变化类别可能追加的全部修饰语
func ModifierSpace(variation Variation) []string {
	if mods, ok := variationModifiers[variation]; ok {
		return append([]string(nil), mods...)
	}
	return append([]string(nil), defaultVariationModifiers...)
}

// ParseVariation 解析变化类别；空值表示通用修饰语，未知值返回错误
func ParseVariation(raw string) (Variation, error) {
	v := Variation(strings.ToLower(strings.TrimSpace(raw)))
	if v == "" {
		return v, nil
	}
	if _, ok := variationModifiers[v]; !ok {
		return "", apperrors.New(apperrors.CodeUnknownVariation, "unknown variation").WithDetail(raw)
	}
	return v, nil
}

// CreateVariationPrompt 在基础提示词后追加随机修饰语，仅用于重新生成
// rng 为空时使用全局随机源
func (e *Enhancer) CreateVariationPrompt(ctx context.Context, frame entity.Frame, variation Variation, rng *rand.Rand) string {
	base := e.Enhance(ctx, frame)
	mods := ModifierSpace(variation)

	var idx int
	if rng != nil {
		idx = rng.IntN(len(mods))
	} else {
		idx = rand.IntN(len(mods))
	}
	modifier := mods[idx]

	varied := base + ", " + modifier
	if e.estimator.Count(varied) > e.opts.HardLimit {
		room := e.opts.HardLimit - e.estimator.Count(", "+modifier)
		varied = e.fit(base, room) + ", " + modifier
	}
	return varied
}

// Clean 合并空白与重复逗号并去掉首尾逗号，幂等
func Clean(prompt string) string {
	pieces := strings.Split(prompt, ",")
	kept := pieces[:0]
	for _, p := range pieces {
		p = strings.Join(strings.Fields(p), " ")
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ", ")
}

// ShotLabel 镜头类型短标签，未知类型返回 medium shot
func ShotLabel(shot entity.ShotType) string {
	if label, ok := shotLabels[shot]; ok {
		return label
	}
	return defaultShotLabel
}

// SimplifySetting 仅保留地点：去掉 " at <时间>" 后缀与修饰词
func SimplifySetting(setting string) string {
	if idx := strings.Index(setting, settingTimeSeparator); idx >= 0 {
		setting = setting[:idx]
	}
	words := strings.Fields(setting)
	kept := words[:0]
	for _, w := range words {
		if settingFillerWords[strings.ToLower(strings.Trim(w, ",."))] {
			continue
		}
		kept = append(kept, w)
	}
	return strings.Join(kept, " ")
}

// firstWords 保留前 n 个词
func firstWords(text string, n int) string {
	words := strings.Fields(text)
	if len(words) > n {
		words = words[:n]
	}
	return strings.Join(words, " ")
}
