package storyboard

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/sapogeth/qylysh-higgsfiled/internal/domain/entity"
	wfmodel "github.com/sapogeth/qylysh-higgsfiled/internal/workflow/model"
	wfnode "github.com/sapogeth/qylysh-higgsfiled/internal/workflow/node"
	apperrors "github.com/sapogeth/qylysh-higgsfiled/pkg/errors"
	"github.com/sapogeth/qylysh-higgsfiled/pkg/logger"
	"github.com/sapogeth/qylysh-higgsfiled/pkg/metrics"
)

// PlanChain 分镜规划 LLM 链
type PlanChain interface {
	Invoke(ctx context.Context, in *wfmodel.StoryboardPlanInput) (*schema.Message, error)
}

// PlanSource 分镜来源
type PlanSource string

const (
	PlanSourceLLM      PlanSource = "llm"
	PlanSourceFallback PlanSource = "fallback"
)

// Plan 规划结果
type Plan struct {
	Prompt string         `json:"prompt"`
	Source PlanSource     `json:"source"`
	Frames []entity.Frame `json:"frames"`
}

// PlannerConfig 帧数范围与模型参数
type PlannerConfig struct {
	MinFrames     int
	MaxFrames     int
	DefaultFrames int
	Provider      string
	Model         string
	Temperature   *float32
	MaxTokens     *int
}

func (c PlannerConfig) withDefaults() PlannerConfig {
	if c.MinFrames <= 0 {
		c.MinFrames = 5
	}
	if c.MaxFrames < c.MinFrames {
		c.MaxFrames = c.MinFrames + 4
	}
	if c.DefaultFrames < c.MinFrames || c.DefaultFrames > c.MaxFrames {
		c.DefaultFrames = (c.MinFrames + c.MaxFrames) / 2
	}
	return c
}

// Planner 将一句话故事拆成分镜帧；模型不可用或输出无效时退化为模板帧
type Planner struct {
	chain   PlanChain
	profile entity.CharacterProfile
	cfg     PlannerConfig
}

// NewPlanner chain 可为空，此时总是返回模板帧
func NewPlanner(chain PlanChain, profile entity.CharacterProfile, cfg PlannerConfig) *Planner {
	return &Planner{chain: chain, profile: profile, cfg: cfg.withDefaults()}
}

// FrameCount 将请求帧数收敛到允许范围，非正数取默认值
func (p *Planner) FrameCount(requested int) int {
	switch {
	case requested <= 0:
		return p.cfg.DefaultFrames
	case requested < p.cfg.MinFrames:
		return p.cfg.MinFrames
	case requested > p.cfg.MaxFrames:
		return p.cfg.MaxFrames
	default:
		return requested
	}
}

// Plan 规划分镜
func (p *Planner) Plan(ctx context.Context, prompt string, frameCount int) (*Plan, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, apperrors.ErrInvalidParam.WithDetail("story prompt is empty")
	}
	n := p.FrameCount(frameCount)

	frames, reason := p.planWithLLM(ctx, prompt, n)
	if reason == "" {
		return &Plan{Prompt: prompt, Source: PlanSourceLLM, Frames: frames}, nil
	}

	metrics.PlannerFallbackTotal.WithLabelValues(reason).Inc()
	return &Plan{
		Prompt: prompt,
		Source: PlanSourceFallback,
		Frames: FallbackFrames(n, p.profile.LightingHint),
	}, nil
}

// planWithLLM 返回非空 reason 表示需要退化
func (p *Planner) planWithLLM(ctx context.Context, prompt string, n int) ([]entity.Frame, string) {
	if p.chain == nil {
		return nil, "unconfigured"
	}

	msg, err := p.chain.Invoke(ctx, &wfmodel.StoryboardPlanInput{
		Prompt:        prompt,
		FrameCount:    n,
		CharacterName: p.characterName(),
		Appearance:    p.profile.IdentityClause(),
		LightingHint:  p.profile.LightingHint,
		Morals:        entity.Morals,
		ShotTypes:     shotTypeNames(),
		Provider:      p.cfg.Provider,
		Model:         p.cfg.Model,
		Temperature:   p.cfg.Temperature,
		MaxTokens:     p.cfg.MaxTokens,
	})
	if err != nil {
		logger.Warn(ctx, "storyboard planning failed, using template frames", "error", err.Error())
		return nil, "llm_error"
	}
	if msg == nil {
		return nil, "llm_error"
	}

	frames, err := ParsePlannedFrames(msg.Content, p.profile.LightingHint)
	if err != nil {
		logger.Warn(ctx, "storyboard plan is not valid json, using template frames",
			"error", err.Error(),
			"content_len", len(msg.Content),
		)
		return nil, "invalid_json"
	}
	if len(frames) < p.cfg.MinFrames {
		logger.Warn(ctx, "storyboard plan has too few frames, using template frames",
			"frames", len(frames),
			"min", p.cfg.MinFrames,
		)
		return nil, "too_few_frames"
	}
	if len(frames) > n {
		frames = frames[:n]
	}
	return frames, ""
}

// ParsePlannedFrames 解析模型输出，兼容裸数组与 {"frames": [...]} 两种形态
// 缺少描述的帧被丢弃，序号按保留顺序重排
func ParsePlannedFrames(content, lightingHint string) ([]entity.Frame, error) {
	raw := wfnode.ExtractJSONObject(content)
	if raw == "" {
		return nil, fmt.Errorf("empty plan")
	}

	var planned []wfmodel.PlannedFrame
	if strings.HasPrefix(raw, "{") {
		var wrapped struct {
			Frames []wfmodel.PlannedFrame `json:"frames"`
		}
		if err := json.Unmarshal([]byte(raw), &wrapped); err != nil {
			return nil, err
		}
		planned = wrapped.Frames
	} else if err := json.Unmarshal([]byte(raw), &planned); err != nil {
		return nil, err
	}

	frames := make([]entity.Frame, 0, len(planned))
	for _, pf := range planned {
		if strings.TrimSpace(pf.Description) == "" {
			continue
		}
		f := entity.Frame{
			Index:        len(frames) + 1,
			Description:  pf.Description,
			ShotType:     entity.ShotType(pf.ShotType),
			Setting:      pf.Setting,
			KeyObjects:   pf.KeyObjects,
			Rhyme:        strings.TrimSpace(pf.Rhyme),
			Moral:        strings.ToLower(strings.TrimSpace(pf.Moral)),
			LightingHint: strings.TrimSpace(pf.LightingHint),
		}
		if f.LightingHint == "" {
			f.LightingHint = lightingHint
		}
		frames = append(frames, f.Normalize())
	}
	if len(frames) == 0 {
		return nil, fmt.Errorf("plan has no usable frames")
	}
	return frames, nil
}

func (p *Planner) characterName() string {
	if p.profile.DisplayName != "" {
		return p.profile.DisplayName
	}
	return p.profile.Name
}

func shotTypeNames() []string {
	names := make([]string, 0, len(entity.ShotTypes))
	for _, s := range entity.ShotTypes {
		names = append(names, string(s))
	}
	return names
}
