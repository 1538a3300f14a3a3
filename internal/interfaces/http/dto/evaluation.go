package dto

import (
	"encoding/json"
	"time"

	"github.com/sapogeth/qylysh-higgsfiled/internal/domain/entity"
	"github.com/sapogeth/qylysh-higgsfiled/internal/domain/repository"
)

// ValidateImageResponse 单图校验响应
type ValidateImageResponse struct {
	Valid            bool                     `json:"valid"`
	QualityScore     float64                  `json:"quality_score"`
	ShouldRegenerate bool                     `json:"should_regenerate"`
	Metrics          entity.ValidationMetrics `json:"metrics"`
}

// FeedbackRequest 候选方与竞争者指标
type FeedbackRequest struct {
	Candidate      entity.QualityMetrics `json:"candidate"`
	Competitor     entity.QualityMetrics `json:"competitor"`
	CompetitorName string                `json:"competitor_name" binding:"required"`
}

// CreateEvaluationRequest 创建评估请求
type CreateEvaluationRequest struct {
	Frame     FrameRequest `json:"frame"`
	Providers []string     `json:"providers"`
}

// ListEvaluationsRequest 评估列表过滤与分页
type ListEvaluationsRequest struct {
	PageRequest
	Status       string `form:"status"`
	BestProvider string `form:"best_provider"`
}

// ToFilter 转换为仓储过滤条件
func (r ListEvaluationsRequest) ToFilter() *repository.EvaluationFilter {
	return &repository.EvaluationFilter{
		Status:       entity.EvaluationStatus(r.Status),
		BestProvider: r.BestProvider,
	}
}

// EvaluationResponse 评估记录响应
type EvaluationResponse struct {
	ID               string          `json:"id"`
	Status           string          `json:"status"`
	Description      string          `json:"description"`
	ShotType         string          `json:"shot_type"`
	Setting          string          `json:"setting,omitempty"`
	PositivePrompt   string          `json:"positive_prompt,omitempty"`
	Providers        []string        `json:"providers"`
	Ranking          []string        `json:"ranking"`
	BestProvider     string          `json:"best_provider,omitempty"`
	BestScore        float64         `json:"best_score"`
	NeedsImprovement bool            `json:"needs_improvement"`
	Report           json.RawMessage `json:"report,omitempty"`
	Feedback         json.RawMessage `json:"feedback,omitempty"`
	ErrorMessage     string          `json:"error_message,omitempty"`
	CreatedAt        string          `json:"created_at"`
	CompletedAt      string          `json:"completed_at,omitempty"`
}

// ToEvaluationResponse 转换评估记录
func ToEvaluationResponse(run *entity.EvaluationRun) *EvaluationResponse {
	if run == nil {
		return nil
	}
	resp := &EvaluationResponse{
		ID:               run.ID,
		Status:           string(run.Status),
		Description:      run.Description,
		ShotType:         string(run.ShotType),
		Setting:          run.Setting,
		PositivePrompt:   run.PositivePrompt,
		Providers:        nonNil(run.Providers),
		Ranking:          nonNil(run.Ranking),
		BestProvider:     run.BestProvider,
		BestScore:        run.BestScore,
		NeedsImprovement: run.NeedsImprovement,
		Report:           run.Report,
		Feedback:         run.Feedback,
		ErrorMessage:     run.ErrorMessage,
		CreatedAt:        run.CreatedAt.Format(time.RFC3339),
	}
	if run.CompletedAt != nil {
		resp.CompletedAt = run.CompletedAt.Format(time.RFC3339)
	}
	return resp
}

// ToEvaluationListResponse 转换评估记录列表
func ToEvaluationListResponse(runs []*entity.EvaluationRun) []*EvaluationResponse {
	out := make([]*EvaluationResponse, 0, len(runs))
	for _, r := range runs {
		out = append(out, ToEvaluationResponse(r))
	}
	return out
}

// SimilarGenerationResponse 近似生成命中
type SimilarGenerationResponse struct {
	ID       string  `json:"id"`
	RunID    string  `json:"run_id"`
	Provider string  `json:"provider"`
	Score    float32 `json:"score"`
}

// ToSimilarResponse 转换近似检索结果
func ToSimilarResponse(hits []repository.SimilarGeneration) []SimilarGenerationResponse {
	out := make([]SimilarGenerationResponse, 0, len(hits))
	for _, h := range hits {
		out = append(out, SimilarGenerationResponse{ID: h.ID, RunID: h.RunID, Provider: h.Provider, Score: h.Score})
	}
	return out
}

// FeatureAnalysisResponse 角色外观特征分析响应
type FeatureAnalysisResponse struct {
	Images         int                                 `json:"images"`
	Features       map[string]entity.AggregatedFeature `json:"features"`
	TrainingPrompt string                              `json:"training_prompt"`
	KeyFeatures    []string                            `json:"key_features"`
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
