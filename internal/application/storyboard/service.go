package storyboard

import (
	"context"
	"time"

	"github.com/sapogeth/qylysh-higgsfiled/internal/application/prompt"
	"github.com/sapogeth/qylysh-higgsfiled/internal/application/validation"
	apperrors "github.com/sapogeth/qylysh-higgsfiled/pkg/errors"
	"github.com/sapogeth/qylysh-higgsfiled/pkg/logger"
)

// Result 一次完整分镜生成的结果
type Result struct {
	Plan      *Plan         `json:"plan"`
	Provider  string        `json:"provider"`
	Frames    []FrameResult `json:"frames"`
	Failed    int           `json:"failed"`
	ElapsedMS int64         `json:"elapsed_ms"`
}

// Service 规划 + 渲染
type Service struct {
	planner         *Planner
	renderers       map[string]*Renderer
	defaultProvider string
}

// NewService 为每个生成方各建一个渲染器（各自限速）
func NewService(planner *Planner, enhancer *prompt.Enhancer, validator *validation.Validator, generators *Generators, defaultProvider string, cfg RendererConfig, opts ...RendererOption) (*Service, error) {
	if planner == nil {
		return nil, apperrors.ErrInvalidParam.WithDetail("planner is required")
	}
	if generators == nil || generators.Len() == 0 {
		return nil, apperrors.ErrProviderNotFound.WithDetail("no image generator configured")
	}

	renderers := make(map[string]*Renderer, generators.Len())
	for _, name := range generators.Names() {
		gen, _ := generators.Get(name)
		r, err := NewRenderer(enhancer, validator, gen, cfg, opts...)
		if err != nil {
			return nil, err
		}
		renderers[name] = r
	}
	if _, ok := renderers[defaultProvider]; !ok {
		defaultProvider = generators.Names()[0]
	}
	return &Service{planner: planner, renderers: renderers, defaultProvider: defaultProvider}, nil
}

// Planner 规划器
func (s *Service) Planner() *Planner { return s.planner }

// DefaultProvider 默认生成方
func (s *Service) DefaultProvider() string { return s.defaultProvider }

// Create 规划并渲染分镜；provider 为空时使用默认生成方
func (s *Service) Create(ctx context.Context, story string, frameCount int, provider string) (*Result, error) {
	if provider == "" {
		provider = s.defaultProvider
	}
	renderer, ok := s.renderers[provider]
	if !ok {
		return nil, apperrors.ErrProviderNotFound.WithDetail(provider)
	}

	start := time.Now()
	plan, err := s.planner.Plan(ctx, story, frameCount)
	if err != nil {
		return nil, err
	}

	frames, err := renderer.RenderAll(ctx, plan.Frames)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeGenerationFailed, "storyboard rendering interrupted")
	}

	res := &Result{Plan: plan, Provider: provider, Frames: frames}
	for _, f := range frames {
		if f.Error != "" {
			res.Failed++
		}
	}
	res.ElapsedMS = time.Since(start).Milliseconds()

	logger.Info(ctx, "storyboard generated",
		"provider", provider,
		"source", string(plan.Source),
		"frames", len(frames),
		"failed", res.Failed,
		"elapsed_ms", res.ElapsedMS,
	)
	return res, nil
}
