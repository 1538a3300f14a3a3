package router

import (
	"github.com/gin-gonic/gin"
)

// RegisterV1Routes 注册 v1 版本路由
func RegisterV1Routes(v1 *gin.RouterGroup, h *Handlers) {
	// 提示词增强
	prompts := v1.Group("/prompts")
	{
		prompts.POST("/enhance", h.Prompt.Enhance)
		prompts.POST("/enhance-batch", h.Prompt.EnhanceBatch)
		prompts.POST("/variation", h.Prompt.Variation)
		prompts.POST("/analyze", h.Prompt.Analyze)
		prompts.GET("/negative", h.Prompt.Negative)
	}

	// 单图质量校验
	v1.POST("/images/validate", h.Image.Validate)

	// 多提供方评估
	evaluations := v1.Group("/evaluations")
	{
		evaluations.POST("/compare", h.Evaluation.Compare)
		evaluations.POST("/feedback", h.Evaluation.Feedback)
		evaluations.POST("/similar", h.Evaluation.Similar)
		evaluations.POST("/run", h.Evaluation.Run)
		evaluations.POST("", h.Evaluation.Create)
		evaluations.GET("", h.Evaluation.List)
		evaluations.GET("/:id", h.Evaluation.Get)
	}

	// 分镜生成
	v1.POST("/storyboards", h.Storyboard.Create)
	v1.POST("/features/analyze", h.Storyboard.AnalyzeFeatures)
}
