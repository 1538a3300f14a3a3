package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/sapogeth/qylysh-higgsfiled/internal/application/validation"
	"github.com/sapogeth/qylysh-higgsfiled/internal/interfaces/http/dto"
	"github.com/sapogeth/qylysh-higgsfiled/pkg/logger"
)

// ImageHandler 单图质量校验处理器
type ImageHandler struct {
	validator *validation.Validator
}

// NewImageHandler 创建图像处理器
func NewImageHandler(validator *validation.Validator) *ImageHandler {
	return &ImageHandler{validator: validator}
}

// Validate 校验上传图像
// 损坏的图像返回 200 且 valid=false，不视为请求错误
// @Summary 图像质量校验
// @Tags Images
// @Accept multipart/form-data
// @Produce json
// @Param image formData file true "待校验图像"
// @Success 200 {object} dto.Response[dto.ValidateImageResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 413 {object} dto.ErrorResponse
// @Router /v1/images/validate [post]
func (h *ImageHandler) Validate(c *gin.Context) {
	fh, err := c.FormFile("image")
	if err != nil {
		bindError(c, err)
		return
	}
	data, err := readFile(fh)
	if err != nil {
		respondError(c, err, "failed to read image")
		return
	}

	valid, m := h.validator.Validate(data)
	logger.Debug(c.Request.Context(), "image validated",
		"filename", fh.Filename,
		"valid", valid,
		"issues", len(m.Issues),
	)
	dto.Success(c, &dto.ValidateImageResponse{
		Valid:            valid,
		QualityScore:     h.validator.QualityScore(m),
		ShouldRegenerate: h.validator.ShouldRegenerate(m),
		Metrics:          m,
	})
}
