// Package callback Eino 全局回调：LLM 调用的 span 与指标
package callback

import (
	"context"
	"time"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/embedding"
	"github.com/cloudwego/eino/components/model"
	cbtemplate "github.com/cloudwego/eino/utils/callbacks"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/sapogeth/qylysh-higgsfiled/internal/domain/service"
	"github.com/sapogeth/qylysh-higgsfiled/pkg/metrics"
)

type startTimeKey struct{}

// 关键短语文本向量走 eino embedder，按同一 LLM 用量指标计费
const embeddingWorkflow = "key_phrase_embedding"

func newChatModelHandler() *cbtemplate.ModelCallbackHandler {
	return &cbtemplate.ModelCallbackHandler{
		OnStart: onModelStart,
		OnEnd:   onModelEnd,
		OnError: onModelError,
	}
}

func onModelStart(ctx context.Context, info *einocb.RunInfo, input *model.CallbackInput) context.Context {
	ctx = context.WithValue(ctx, startTimeKey{}, time.Now())
	call := service.LLMCallFromContext(ctx)

	attrs := []attribute.KeyValue{
		attribute.String("eino.workflow", call.Workflow),
		attribute.String("llm.provider", call.Provider),
		attribute.String("llm.model", modelFromInput(input)),
	}
	if info != nil {
		attrs = append(attrs, attribute.String("eino.node_name", info.Name))
	}
	ctx, _ = otel.Tracer("eino").Start(ctx, "llm.generate", trace.WithAttributes(attrs...))
	return ctx
}

func onModelEnd(ctx context.Context, _ *einocb.RunInfo, output *model.CallbackOutput) context.Context {
	call := service.LLMCallFromContext(ctx)
	modelName := modelFromOutput(output)

	metrics.LLMCallTotal.WithLabelValues(call.Workflow, call.Provider, modelName, "success").Inc()
	observeDuration(ctx, call, modelName)

	span := trace.SpanFromContext(ctx)
	if output != nil && output.TokenUsage != nil {
		usage := output.TokenUsage
		metrics.LLMTokensUsed.WithLabelValues(call.Workflow, call.Provider, modelName, "prompt").Add(float64(usage.PromptTokens))
		metrics.LLMTokensUsed.WithLabelValues(call.Workflow, call.Provider, modelName, "completion").Add(float64(usage.CompletionTokens))
		span.SetAttributes(
			attribute.Int("llm.prompt_tokens", usage.PromptTokens),
			attribute.Int("llm.completion_tokens", usage.CompletionTokens),
		)
	}
	span.End()
	return ctx
}

func onModelError(ctx context.Context, _ *einocb.RunInfo, err error) context.Context {
	call := service.LLMCallFromContext(ctx)

	metrics.LLMCallTotal.WithLabelValues(call.Workflow, call.Provider, "", "error").Inc()
	observeDuration(ctx, call, "")

	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.End()
	return ctx
}

func observeDuration(ctx context.Context, call service.LLMCall, modelName string) {
	start, ok := ctx.Value(startTimeKey{}).(time.Time)
	if !ok || start.IsZero() {
		return
	}
	metrics.LLMCallDuration.WithLabelValues(call.Workflow, call.Provider, modelName).Observe(time.Since(start).Seconds())
}

func modelFromInput(in *model.CallbackInput) string {
	if in == nil || in.Config == nil {
		return ""
	}
	return in.Config.Model
}

func modelFromOutput(out *model.CallbackOutput) string {
	if out == nil || out.Config == nil {
		return ""
	}
	return out.Config.Model
}

func newEmbeddingHandler() *cbtemplate.EmbeddingCallbackHandler {
	return &cbtemplate.EmbeddingCallbackHandler{OnEnd: onEmbeddingEnd}
}

func onEmbeddingEnd(ctx context.Context, _ *einocb.RunInfo, output *embedding.CallbackOutput) context.Context {
	if output == nil || output.TokenUsage == nil {
		return ctx
	}
	modelName := ""
	if output.Config != nil {
		modelName = output.Config.Model
	}
	provider := service.LLMCallFromContext(ctx).Provider
	metrics.LLMTokensUsed.WithLabelValues(embeddingWorkflow, provider, modelName, "prompt").
		Add(float64(output.TokenUsage.PromptTokens))
	return ctx
}
