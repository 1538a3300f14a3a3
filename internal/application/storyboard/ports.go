// Package storyboard 故事分镜规划、逐帧出图与质量门控
package storyboard

import (
	"context"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"

	apperrors "github.com/sapogeth/qylysh-higgsfiled/pkg/errors"
	"github.com/sapogeth/qylysh-higgsfiled/pkg/metrics"
	"github.com/sapogeth/qylysh-higgsfiled/pkg/tracer"
)

// GenerationRequest 单次出图请求
type GenerationRequest struct {
	Positive string
	Negative string
	// Seed 为空表示由生成方决定
	Seed *int64
}

// ImageGenerator 图像生成能力，返回编码后的图像字节
type ImageGenerator interface {
	Generate(ctx context.Context, req GenerationRequest) ([]byte, error)
	Name() string
}

// Generators 按名称索引的生成方集合
type Generators struct {
	byName map[string]ImageGenerator
}

// NewGenerators 创建生成方集合，同名后者覆盖前者
func NewGenerators(gens ...ImageGenerator) *Generators {
	g := &Generators{byName: make(map[string]ImageGenerator, len(gens))}
	for _, gen := range gens {
		if gen != nil {
			g.byName[gen.Name()] = gen
		}
	}
	return g
}

// Get 获取生成方
func (g *Generators) Get(name string) (ImageGenerator, error) {
	gen, ok := g.byName[name]
	if !ok {
		return nil, apperrors.ErrProviderNotFound.WithDetail(name)
	}
	return gen, nil
}

// Names 全部生成方名称（有序）
func (g *Generators) Names() []string {
	names := make([]string, 0, len(g.byName))
	for name := range g.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len 生成方数量
func (g *Generators) Len() int { return len(g.byName) }

// Invoke 调用生成方并记录耗时与追踪
func Invoke(ctx context.Context, gen ImageGenerator, req GenerationRequest) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "imagegen.Generate")
	defer span.End()
	span.SetAttributes(attribute.String("provider", gen.Name()))

	start := time.Now()
	data, err := gen.Generate(ctx, req)
	status := "success"
	if err == nil && len(data) == 0 {
		err = apperrors.ErrGenerationFailed.WithDetail("empty image")
	}
	if err != nil {
		status = "error"
	}
	metrics.GenerationDuration.WithLabelValues(gen.Name(), status).Observe(time.Since(start).Seconds())

	if err != nil {
		if !apperrors.IsAppError(err) {
			err = apperrors.Wrap(err, apperrors.CodeGenerationFailed, "image generation failed").WithDetail(gen.Name())
		}
		return nil, tracer.RecordError(span, err)
	}
	return data, nil
}
