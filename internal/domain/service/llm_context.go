// Package service 领域服务间共享的上下文约定
package service

import (
	"context"
	"strings"
)

const unknownLabel = "unknown"

type llmCallKey struct{}

// LLMCall 一次 LLM 调用的归属信息，供 callbacks 打点
type LLMCall struct {
	Workflow string
	Provider string
}

// WithLLMCall 注入工作流名与提供商，空值保留已有值
func WithLLMCall(ctx context.Context, workflow, provider string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	call := LLMCallFromContext(ctx)
	if w := strings.TrimSpace(workflow); w != "" {
		call.Workflow = w
	}
	if p := strings.TrimSpace(provider); p != "" {
		call.Provider = p
	}
	return context.WithValue(ctx, llmCallKey{}, call)
}

// LLMCallFromContext 读取调用归属，缺失字段为 "unknown"
func LLMCallFromContext(ctx context.Context) LLMCall {
	call := LLMCall{Workflow: unknownLabel, Provider: unknownLabel}
	if ctx == nil {
		return call
	}
	if v, ok := ctx.Value(llmCallKey{}).(LLMCall); ok {
		if v.Workflow != "" {
			call.Workflow = v.Workflow
		}
		if v.Provider != "" {
			call.Provider = v.Provider
		}
	}
	return call
}
