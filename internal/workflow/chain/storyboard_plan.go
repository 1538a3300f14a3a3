// Package chain 基于 Eino compose 的 LLM 工作流
package chain

import (
	"context"
	"fmt"
	"strings"
	"sync"

	openaiopts "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	llmctx "github.com/sapogeth/qylysh-higgsfiled/internal/domain/service"
	wfmodel "github.com/sapogeth/qylysh-higgsfiled/internal/workflow/model"
	wfnode "github.com/sapogeth/qylysh-higgsfiled/internal/workflow/node"
	workflowport "github.com/sapogeth/qylysh-higgsfiled/internal/workflow/port"
	workflowprompt "github.com/sapogeth/qylysh-higgsfiled/internal/workflow/prompt"
	"github.com/sapogeth/qylysh-higgsfiled/pkg/logger"
)

const storyboardWorkflow = "storyboard_plan"

// StoryboardPlanChain init -> template -> llm -> finalize
type StoryboardPlanChain struct {
	factory  workflowport.ChatModelFactory
	registry *workflowprompt.Registry

	chainOnce sync.Once
	chain     compose.Runnable[*wfmodel.StoryboardPlanInput, *schema.Message]
	chainErr  error
}

func NewStoryboardPlanChain(factory workflowport.ChatModelFactory) *StoryboardPlanChain {
	return &StoryboardPlanChain{
		factory:  factory,
		registry: workflowprompt.NewRegistry(),
	}
}

func (c *StoryboardPlanChain) Invoke(ctx context.Context, in *wfmodel.StoryboardPlanInput) (*schema.Message, error) {
	if c == nil || c.factory == nil {
		return nil, fmt.Errorf("llm factory not configured")
	}
	if in == nil {
		return nil, fmt.Errorf("input is nil")
	}

	chain, err := c.getChain()
	if err != nil {
		return nil, err
	}
	return chain.Invoke(ctx, in)
}

type storyboardPlanState struct {
	In       *wfmodel.StoryboardPlanInput
	Messages []*schema.Message
	OutMsg   *schema.Message
}

func (c *StoryboardPlanChain) getChain() (compose.Runnable[*wfmodel.StoryboardPlanInput, *schema.Message], error) {
	c.chainOnce.Do(func() {
		c.chain, c.chainErr = c.buildChain(context.Background())
	})
	return c.chain, c.chainErr
}

func (c *StoryboardPlanChain) buildChain(ctx context.Context) (compose.Runnable[*wfmodel.StoryboardPlanInput, *schema.Message], error) {
	chain := compose.NewChain[*wfmodel.StoryboardPlanInput, *schema.Message]()

	chain.AppendLambda(
		compose.InvokableLambda(func(_ context.Context, in *wfmodel.StoryboardPlanInput) (*storyboardPlanState, error) {
			if in == nil {
				return nil, fmt.Errorf("input is nil")
			}
			if strings.TrimSpace(in.Prompt) == "" {
				return nil, fmt.Errorf("story prompt is empty")
			}
			return &storyboardPlanState{In: in}, nil
		}),
		compose.WithNodeName("storyboard.init"),
	)

	chain.AppendLambda(
		compose.InvokableLambda(func(ctx context.Context, st *storyboardPlanState) (*storyboardPlanState, error) {
			msgs, err := c.formatMessages(ctx, st.In)
			if err != nil {
				return nil, err
			}
			st.Messages = msgs
			return st, nil
		}),
		compose.WithNodeName("storyboard.template"),
	)

	chain.AppendLambda(
		compose.InvokableLambda(func(ctx context.Context, st *storyboardPlanState) (*storyboardPlanState, error) {
			provider := strings.TrimSpace(st.In.Provider)
			ctx = llmctx.WithLLMCall(ctx, storyboardWorkflow, provider)
			chatModel, err := c.factory.Get(ctx, provider)
			if err != nil {
				return nil, err
			}

			outMsg, err := chatModel.Generate(ctx, st.Messages, buildStoryboardModelOptions(st.In, true)...)
			if err != nil && wfnode.IsResponseFormatUnsupportedError(err) {
				logger.Warn(ctx, "llm json_schema not supported, fallback to prompt-only",
					"provider", provider,
					"model", strings.TrimSpace(st.In.Model),
					"error", err.Error(),
				)
				outMsg, err = chatModel.Generate(ctx, st.Messages, buildStoryboardModelOptions(st.In, false)...)
			}
			if err != nil {
				return nil, err
			}
			if outMsg == nil {
				return nil, fmt.Errorf("empty llm response")
			}
			st.OutMsg = outMsg
			return st, nil
		}),
		compose.WithNodeName("storyboard.llm"),
	)

	chain.AppendLambda(
		compose.InvokableLambda(func(_ context.Context, st *storyboardPlanState) (*schema.Message, error) {
			if st == nil || st.OutMsg == nil {
				return nil, fmt.Errorf("state is nil")
			}
			return st.OutMsg, nil
		}),
		compose.WithNodeName("storyboard.finalize"),
	)

	return chain.Compile(ctx)
}

func (c *StoryboardPlanChain) formatMessages(ctx context.Context, in *wfmodel.StoryboardPlanInput) ([]*schema.Message, error) {
	tpl, err := c.registry.ChatTemplate(workflowprompt.PromptStoryboardPlanV1)
	if err != nil {
		return nil, err
	}
	vars := map[string]any{
		"character_name": strings.TrimSpace(in.CharacterName),
		"frame_count":    in.FrameCount,
		"morals":         quoteList(in.Morals),
		"shot_types":     quoteList(in.ShotTypes),
		"lighting_hint":  strings.TrimSpace(in.LightingHint),
		"appearance":     strings.TrimSpace(in.Appearance),
		"prompt":         strings.TrimSpace(in.Prompt),
	}
	return tpl.Format(ctx, vars)
}

func quoteList(items []string) string {
	quoted := make([]string, 0, len(items))
	for _, it := range items {
		quoted = append(quoted, "'"+it+"'")
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

func buildStoryboardModelOptions(in *wfmodel.StoryboardPlanInput, enableSchema bool) []model.Option {
	opts := make([]model.Option, 0, 4)
	if in.Temperature != nil {
		opts = append(opts, model.WithTemperature(*in.Temperature))
	}
	if in.MaxTokens != nil {
		opts = append(opts, model.WithMaxTokens(*in.MaxTokens))
	}
	if m := strings.TrimSpace(in.Model); m != "" {
		opts = append(opts, model.WithModel(m))
	}

	if enableSchema {
		opts = append(opts, openaiopts.WithExtraFields(map[string]any{
			"response_format": map[string]any{
				"type": "json_schema",
				"json_schema": map[string]any{
					"name":   storyboardWorkflow,
					"strict": false,
					"schema": storyboardJSONSchema(in),
				},
			},
		}))
	}
	return opts
}

// storyboardJSONSchema json_schema 的根必须是对象，帧数组放在 frames 字段下
func storyboardJSONSchema(in *wfmodel.StoryboardPlanInput) map[string]any {
	frame := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []any{"rhyme", "moral", "shot_type", "setting", "key_objects", "lighting_hint", "description"},
		"properties": map[string]any{
			"rhyme":         map[string]any{"type": "string"},
			"moral":         enumOrString(in.Morals),
			"shot_type":     enumOrString(in.ShotTypes),
			"setting":       map[string]any{"type": "string"},
			"key_objects":   map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"lighting_hint": map[string]any{"type": "string"},
			"description":   map[string]any{"type": "string"},
		},
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []any{"frames"},
		"properties": map[string]any{
			"frames": map[string]any{
				"type":     "array",
				"minItems": in.FrameCount,
				"maxItems": in.FrameCount,
				"items":    frame,
			},
		},
	}
}

func enumOrString(values []string) map[string]any {
	if len(values) == 0 {
		return map[string]any{"type": "string"}
	}
	enum := make([]any, 0, len(values))
	for _, v := range values {
		enum = append(enum, v)
	}
	return map[string]any{"type": "string", "enum": enum}
}
