package dto

import (
	"github.com/sapogeth/qylysh-higgsfiled/internal/domain/entity"
)

// FrameRequest 分镜帧请求
type FrameRequest struct {
	Index        int      `json:"index"`
	Description  string   `json:"description" binding:"required"`
	ShotType     string   `json:"shot_type"`
	Setting      string   `json:"setting"`
	KeyObjects   []string `json:"key_objects,omitempty"`
	Dialogue     string   `json:"dialogue,omitempty"`
	LightingHint string   `json:"lighting_hint,omitempty"`
}

// ToFrame 转换为领域帧
func (r FrameRequest) ToFrame() entity.Frame {
	return entity.Frame{
		Index:        r.Index,
		Description:  r.Description,
		ShotType:     entity.ParseShotType(r.ShotType),
		Setting:      r.Setting,
		KeyObjects:   r.KeyObjects,
		Dialogue:     r.Dialogue,
		LightingHint: r.LightingHint,
	}.Normalize()
}

// EnhancePromptResponse 增强提示词响应
type EnhancePromptResponse struct {
	Positive    string            `json:"positive"`
	Negative    string            `json:"negative"`
	Path        entity.PromptPath `json:"path"`
	TokenCount  int               `json:"token_count"`
	TokenBudget int               `json:"token_budget"`
	ExactTokens bool              `json:"exact_tokens"`
}

// EnhanceBatchRequest 批量增强请求
type EnhanceBatchRequest struct {
	Frames []FrameRequest `json:"frames" binding:"required,min=1,max=32,dive"`
}

// EnhanceBatchResponse 批量增强响应
type EnhanceBatchResponse struct {
	Prompts []entity.EnhancedPrompt `json:"prompts"`
}

// VariationRequest 重新生成用的变化提示词请求
type VariationRequest struct {
	Frame     FrameRequest `json:"frame"`
	Variation string       `json:"variation"`
	Seed      *uint64      `json:"seed,omitempty"`
}

// VariationResponse 变化提示词响应
type VariationResponse struct {
	Positive  string `json:"positive"`
	Negative  string `json:"negative"`
	Variation string `json:"variation"`
}

// AnalyzePromptRequest 提示词分析请求
type AnalyzePromptRequest struct {
	Prompt      string `json:"prompt" binding:"required"`
	Description string `json:"description"`
}

// AnalyzePromptResponse 提示词分析响应
type AnalyzePromptResponse struct {
	Quality     entity.PromptQuality `json:"quality"`
	KeyElements *entity.KeyElements  `json:"key_elements,omitempty"`
}

// NegativePromptResponse 负向提示词响应
type NegativePromptResponse struct {
	Negative string `json:"negative"`
}
