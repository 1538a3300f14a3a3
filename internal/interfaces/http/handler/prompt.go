package handler

import (
	"math/rand/v2"

	"github.com/gin-gonic/gin"

	"github.com/sapogeth/qylysh-higgsfiled/internal/application/prompt"
	"github.com/sapogeth/qylysh-higgsfiled/internal/domain/entity"
	"github.com/sapogeth/qylysh-higgsfiled/internal/interfaces/http/dto"
)

// PromptHandler 提示词增强处理器
type PromptHandler struct {
	enhancer *prompt.Enhancer
}

// NewPromptHandler 创建提示词处理器
func NewPromptHandler(enhancer *prompt.Enhancer) *PromptHandler {
	return &PromptHandler{enhancer: enhancer}
}

// Enhance 增强单帧提示词
// @Summary 增强提示词
// @Description 将帧描述转换为 77 token 以内、带角色身份与风格锁定的正向提示词
// @Tags Prompts
// @Accept json
// @Produce json
// @Param body body dto.FrameRequest true "分镜帧"
// @Success 200 {object} dto.Response[dto.EnhancePromptResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Router /v1/prompts/enhance [post]
func (h *PromptHandler) Enhance(c *gin.Context) {
	var req dto.FrameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	positive, path := h.enhancer.EnhanceWithPath(c.Request.Context(), req.ToFrame())
	est := h.enhancer.Estimator()
	dto.Success(c, &dto.EnhancePromptResponse{
		Positive:    positive,
		Negative:    h.enhancer.NegativePrompt(),
		Path:        path,
		TokenCount:  est.Count(positive),
		TokenBudget: h.enhancer.Budget(),
		ExactTokens: est.Exact(),
	})
}

// EnhanceBatch 批量增强
// @Summary 批量增强提示词
// @Tags Prompts
// @Accept json
// @Produce json
// @Param body body dto.EnhanceBatchRequest true "分镜帧列表"
// @Success 200 {object} dto.Response[dto.EnhanceBatchResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Router /v1/prompts/enhance-batch [post]
func (h *PromptHandler) EnhanceBatch(c *gin.Context) {
	var req dto.EnhanceBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	frames := make([]entity.Frame, 0, len(req.Frames))
	for _, f := range req.Frames {
		frames = append(frames, f.ToFrame())
	}
	dto.Success(c, &dto.EnhanceBatchResponse{
		Prompts: h.enhancer.EnhanceBatch(c.Request.Context(), frames),
	})
}

// Variation 生成重新出图用的变化提示词
// @Summary 变化提示词
// @Description 在增强提示词后追加 angle/lighting/composition 类随机修饰语
// @Tags Prompts
// @Accept json
// @Produce json
// @Param body body dto.VariationRequest true "帧与变化类别"
// @Success 200 {object} dto.Response[dto.VariationResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Router /v1/prompts/variation [post]
func (h *PromptHandler) Variation(c *gin.Context) {
	var req dto.VariationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	variation, err := prompt.ParseVariation(req.Variation)
	if err != nil {
		respondError(c, err, "invalid variation")
		return
	}

	var rng *rand.Rand
	if req.Seed != nil {
		rng = rand.New(rand.NewPCG(*req.Seed, *req.Seed))
	}
	dto.Success(c, &dto.VariationResponse{
		Positive:  h.enhancer.CreateVariationPrompt(c.Request.Context(), req.Frame.ToFrame(), variation, rng),
		Negative:  h.enhancer.NegativePrompt(),
		Variation: string(variation),
	})
}

// Analyze 分析提示词质量
// @Summary 提示词质量分析
// @Tags Prompts
// @Accept json
// @Produce json
// @Param body body dto.AnalyzePromptRequest true "提示词"
// @Success 200 {object} dto.Response[dto.AnalyzePromptResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Router /v1/prompts/analyze [post]
func (h *PromptHandler) Analyze(c *gin.Context) {
	var req dto.AnalyzePromptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	resp := &dto.AnalyzePromptResponse{Quality: h.enhancer.AnalyzeQuality(req.Prompt)}
	if req.Description != "" {
		elements := prompt.ExtractKeyElements(req.Description)
		resp.KeyElements = &elements
	}
	dto.Success(c, resp)
}

// Negative 返回负向提示词
// @Summary 负向提示词
// @Tags Prompts
// @Produce json
// @Success 200 {object} dto.Response[dto.NegativePromptResponse]
// @Router /v1/prompts/negative [get]
func (h *PromptHandler) Negative(c *gin.Context) {
	dto.Success(c, &dto.NegativePromptResponse{Negative: h.enhancer.NegativePrompt()})
}
