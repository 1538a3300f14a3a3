package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/sapogeth/qylysh-higgsfiled/internal/application/evaluation"
	"github.com/sapogeth/qylysh-higgsfiled/internal/application/storyboard"
	"github.com/sapogeth/qylysh-higgsfiled/internal/domain/entity"
	"github.com/sapogeth/qylysh-higgsfiled/internal/interfaces/http/dto"
	apperrors "github.com/sapogeth/qylysh-higgsfiled/pkg/errors"
)

// StoryboardCreator 规划并渲染分镜
type StoryboardCreator interface {
	Create(ctx context.Context, story string, frameCount int, provider string) (*storyboard.Result, error)
}

// FeatureAnalyzer 角色外观特征分析
type FeatureAnalyzer interface {
	AnalyzeImages(ctx context.Context, images [][]byte) (map[string]entity.AggregatedFeature, error)
	TrainingPrompt(agg map[string]entity.AggregatedFeature) string
}

// StoryboardHandler 分镜与特征分析处理器
type StoryboardHandler struct {
	creator  StoryboardCreator
	analyzer FeatureAnalyzer
}

// NewStoryboardHandler 创建分镜处理器；未配置生成方或嵌入后端时对应依赖为空
func NewStoryboardHandler(creator StoryboardCreator, analyzer FeatureAnalyzer) *StoryboardHandler {
	return &StoryboardHandler{creator: creator, analyzer: analyzer}
}

// Create 规划故事并逐帧出图
// @Summary 生成分镜
// @Description 规划 5~9 帧，逐帧增强提示词、出图、校验，不合格时重新生成
// @Tags Storyboards
// @Accept json
// @Produce json
// @Param body body dto.CreateStoryboardRequest true "故事"
// @Success 200 {object} dto.Response[storyboard.Result]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse "生成方不存在"
// @Failure 503 {object} dto.ErrorResponse
// @Router /v1/storyboards [post]
func (h *StoryboardHandler) Create(c *gin.Context) {
	if h.creator == nil {
		dto.AppError(c, apperrors.ErrServiceUnavailable.WithDetail("no image generator configured"))
		return
	}
	var req dto.CreateStoryboardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	res, err := h.creator.Create(c.Request.Context(), req.Story, req.FrameCount, req.Provider)
	if err != nil {
		respondError(c, err, "failed to create storyboard")
		return
	}
	dto.Success(c, res)
}

// AnalyzeFeatures 分析一组角色图像的外观特征
// @Summary 角色特征分析
// @Tags Features
// @Accept multipart/form-data
// @Produce json
// @Param images formData file true "角色图像（可多张）"
// @Success 200 {object} dto.Response[dto.FeatureAnalysisResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 503 {object} dto.ErrorResponse
// @Router /v1/features/analyze [post]
func (h *StoryboardHandler) AnalyzeFeatures(c *gin.Context) {
	if h.analyzer == nil {
		dto.AppError(c, apperrors.ErrServiceUnavailable.WithDetail("feature analysis requires an embedding backend"))
		return
	}
	form, ok := multipartForm(c)
	if !ok {
		return
	}
	files := form.File["images"]
	if len(files) == 0 {
		dto.BadRequest(c, "at least one image is required")
		return
	}

	images := make([][]byte, 0, len(files))
	for _, fh := range files {
		data, err := readFile(fh)
		if err != nil {
			respondError(c, err, "failed to read image")
			return
		}
		images = append(images, data)
	}

	agg, err := h.analyzer.AnalyzeImages(c.Request.Context(), images)
	if err != nil {
		respondError(c, err, "feature analysis failed")
		return
	}
	dto.Success(c, &dto.FeatureAnalysisResponse{
		Images:         len(images),
		Features:       agg,
		TrainingPrompt: h.analyzer.TrainingPrompt(agg),
		KeyFeatures:    evaluation.KeyFeatures(agg),
	})
}
