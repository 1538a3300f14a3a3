package storyboard

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/sapogeth/qylysh-higgsfiled/internal/application/prompt"
	"github.com/sapogeth/qylysh-higgsfiled/internal/application/validation"
	"github.com/sapogeth/qylysh-higgsfiled/internal/domain/entity"
	apperrors "github.com/sapogeth/qylysh-higgsfiled/pkg/errors"
	"github.com/sapogeth/qylysh-higgsfiled/pkg/imaging"
	"github.com/sapogeth/qylysh-higgsfiled/pkg/logger"
	"github.com/sapogeth/qylysh-higgsfiled/pkg/metrics"
)

const timestampLayout = "20060102_150405"

// RendererConfig 出图并发、限速与重生成参数
type RendererConfig struct {
	Concurrency             int
	RequestsPerMinute       int
	MaxRegenerationAttempts int
	OutputDir               string
	URLPrefix               string
}

func (c RendererConfig) withDefaults() RendererConfig {
	if c.Concurrency <= 0 {
		c.Concurrency = 2
	}
	if c.MaxRegenerationAttempts < 0 {
		c.MaxRegenerationAttempts = 0
	}
	if c.OutputDir == "" {
		c.OutputDir = "output/generated"
	}
	if c.URLPrefix == "" {
		c.URLPrefix = "/static/generated"
	}
	return c
}

// FrameResult 单帧渲染结果
type FrameResult struct {
	Frame        entity.Frame             `json:"frame"`
	Validation   entity.ValidationMetrics `json:"validation"`
	QualityScore float64                  `json:"quality_score"`
	Attempts     int                      `json:"regeneration_attempts"`
	Regenerated  bool                     `json:"regenerated"`
	Error        string                   `json:"error,omitempty"`
}

// Renderer 逐帧出图：增强提示词、生成、校验，不合格时以构图变化和新种子重生成
type Renderer struct {
	enhancer  *prompt.Enhancer
	validator *validation.Validator
	generator ImageGenerator
	limiter   *rate.Limiter
	cfg       RendererConfig

	now    func() time.Time
	fileID func() string
	rngMu  sync.Mutex
	rng    *rand.Rand
}

// RendererOption 渲染器选项
type RendererOption func(*Renderer)

// WithClock 替换时间源
func WithClock(now func() time.Time) RendererOption {
	return func(r *Renderer) { r.now = now }
}

// WithFileID 替换文件名后缀生成器
func WithFileID(id func() string) RendererOption {
	return func(r *Renderer) { r.fileID = id }
}

// WithRand 替换随机源（变化修饰语与种子）
func WithRand(rng *rand.Rand) RendererOption {
	return func(r *Renderer) { r.rng = rng }
}

// NewRenderer 创建渲染器；RequestsPerMinute 非正表示不限速
func NewRenderer(enhancer *prompt.Enhancer, validator *validation.Validator, generator ImageGenerator, cfg RendererConfig, opts ...RendererOption) (*Renderer, error) {
	if enhancer == nil || validator == nil || generator == nil {
		return nil, apperrors.ErrInvalidParam.WithDetail("renderer requires enhancer, validator and generator")
	}
	cfg = cfg.withDefaults()

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60), 1)
	}

	r := &Renderer{
		enhancer:  enhancer,
		validator: validator,
		generator: generator,
		limiter:   limiter,
		cfg:       cfg,
		now:       time.Now,
		fileID:    shortID,
		rng:       rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x9e3779b97f4a7c15)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Provider 生成方名称
func (r *Renderer) Provider() string { return r.generator.Name() }

// RenderAll 并发渲染全部帧，结果顺序与输入一致；单帧失败只记录不中断
func (r *Renderer) RenderAll(ctx context.Context, frames []entity.Frame) ([]FrameResult, error) {
	if err := os.MkdirAll(r.cfg.OutputDir, 0o755); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeStorageError, "create output dir")
	}

	results := make([]FrameResult, len(frames))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Concurrency)
	for i, f := range frames {
		g.Go(func() error {
			if f.Index == 0 {
				f.Index = i + 1
			}
			fctx := logger.WithFrame(gctx, f.Index, r.generator.Name())
			res, err := r.RenderFrame(fctx, f)
			if err != nil {
				logger.Error(fctx, "frame rendering failed", err)
				res.Error = err.Error()
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()
	return results, ctx.Err()
}

// RenderFrame 渲染一帧；重生成仍不合格时接受最后一张
func (r *Renderer) RenderFrame(ctx context.Context, frame entity.Frame) (FrameResult, error) {
	frame = frame.Normalize()
	res := FrameResult{Frame: frame}

	positive := r.enhancer.Enhance(ctx, frame)
	negative := r.enhancer.NegativePrompt()

	data, err := r.generate(ctx, GenerationRequest{Positive: positive, Negative: negative})
	if err != nil {
		return res, err
	}
	valid, vm := r.validator.Validate(data)

	for !valid && res.Attempts < r.cfg.MaxRegenerationAttempts {
		res.Attempts++
		logger.Warn(ctx, "frame quality too low, regenerating",
			"attempt", res.Attempts,
			"quality_score", r.validator.QualityScore(vm),
			"issues", vm.Issues,
		)

		variedPositive, seed := r.variation(ctx, frame)
		next, err := r.generate(ctx, GenerationRequest{Positive: variedPositive, Negative: negative, Seed: &seed})
		if err != nil {
			logger.Error(ctx, "regeneration failed, keeping previous image", err, "attempt", res.Attempts)
			break
		}
		data, positive = next, variedPositive
		res.Regenerated = true
		valid, vm = r.validator.Validate(data)
	}
	metrics.RegenerationAttempts.WithLabelValues(r.generator.Name()).Observe(float64(res.Attempts))

	res.Validation = vm
	res.QualityScore = r.validator.QualityScore(vm)
	res.Frame.PromptUsed = positive

	filePath, url, err := r.save(frame.Index, data)
	if err != nil {
		return res, err
	}
	res.Frame.ImagePath = filePath
	res.Frame.ImageURL = url
	return res, nil
}

func (r *Renderer) generate(ctx context.Context, req GenerationRequest) ([]byte, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeGenerationFailed, "rate limiter wait")
	}
	return Invoke(ctx, r.generator, req)
}

func (r *Renderer) variation(ctx context.Context, frame entity.Frame) (string, int64) {
	r.rngMu.Lock()
	defer r.rngMu.Unlock()
	varied := r.enhancer.CreateVariationPrompt(ctx, frame, prompt.VariationComposition, r.rng)
	return varied, r.rng.Int64N(1 << 31)
}

func shortID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// save 统一落盘为 PNG；无法解码的字节原样写入
func (r *Renderer) save(index int, data []byte) (string, string, error) {
	if img, format, err := imaging.Decode(data); err == nil && format != "png" {
		if encoded, encErr := imaging.EncodePNG(img); encErr == nil {
			data = encoded
		}
	}

	// 同一秒内的并发请求靠随机后缀区分
	name := fmt.Sprintf("frame_%03d_%s_%s.png", index, r.now().Format(timestampLayout), r.fileID())
	filePath := filepath.Join(r.cfg.OutputDir, name)
	if err := os.WriteFile(filePath, data, 0o644); err != nil {
		return "", "", apperrors.Wrap(err, apperrors.CodeStorageError, "write frame image")
	}
	return filePath, path.Join(r.cfg.URLPrefix, name), nil
}
