package imagegen

import (
	"context"
	"sort"
	"strings"

	"github.com/sapogeth/qylysh-higgsfiled/internal/application/storyboard"
	"github.com/sapogeth/qylysh-higgsfiled/internal/config"
	apperrors "github.com/sapogeth/qylysh-higgsfiled/pkg/errors"
	"github.com/sapogeth/qylysh-higgsfiled/pkg/logger"
)

const (
	KindGemini = "gemini"
	KindRemote = "remote"
)

// Build 按配置创建全部生成方；缺少凭据的生成方跳过并告警，一个都没有时报错
func Build(ctx context.Context, cfg config.ImageGenConfig) (*storyboard.Generators, error) {
	names := make([]string, 0, len(cfg.Providers))
	for name := range cfg.Providers {
		names = append(names, name)
	}
	sort.Strings(names)

	gens := make([]storyboard.ImageGenerator, 0, len(names))
	for _, name := range names {
		gen, err := buildOne(ctx, name, cfg.Providers[name])
		if err != nil {
			logger.Warn(ctx, "image generator disabled", "provider", name, "error", err.Error())
			continue
		}
		gens = append(gens, gen)
	}
	if len(gens) == 0 {
		return nil, apperrors.ErrProviderNotFound.WithDetail("no image generator could be configured")
	}
	return storyboard.NewGenerators(gens...), nil
}

func buildOne(ctx context.Context, name string, p config.ImageProviderConfig) (storyboard.ImageGenerator, error) {
	switch strings.ToLower(strings.TrimSpace(p.Kind)) {
	case KindGemini:
		return NewGeminiGenerator(ctx, name, p)
	case KindRemote:
		return NewRemoteGenerator(name, p)
	default:
		return nil, apperrors.ErrInvalidParam.WithDetail("unknown generator kind: " + p.Kind)
	}
}
