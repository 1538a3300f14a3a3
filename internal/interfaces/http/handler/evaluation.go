package handler

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/sapogeth/qylysh-higgsfiled/internal/domain/entity"
	"github.com/sapogeth/qylysh-higgsfiled/internal/domain/repository"
	"github.com/sapogeth/qylysh-higgsfiled/internal/interfaces/http/dto"
	apperrors "github.com/sapogeth/qylysh-higgsfiled/pkg/errors"
	"github.com/sapogeth/qylysh-higgsfiled/pkg/logger"
)

const (
	defaultSimilarTopK = 5
	maxSimilarTopK     = 50
)

// EvaluationService 评估用例
type EvaluationService interface {
	Evaluate(ctx context.Context, frame entity.Frame, providers []string) (*entity.EvaluationRun, error)
	Submit(ctx context.Context, frame entity.Frame, providers []string) (*entity.EvaluationRun, error)
	Get(ctx context.Context, id string) (*entity.EvaluationRun, error)
	List(ctx context.Context, filter *repository.EvaluationFilter, pagination repository.Pagination) (*repository.PagedResult[*entity.EvaluationRun], error)
	FindSimilar(ctx context.Context, image []byte, topK int) ([]repository.SimilarGeneration, error)
}

// ProviderComparator 参考图比对与反馈
type ProviderComparator interface {
	CompareProviders(ctx context.Context, images map[string][]byte, order []string) entity.ComparisonReport
	GenerateFeedback(candidate, competitor entity.QualityMetrics, competitorName string) entity.Feedback
}

// EvaluationHandler 评估处理器；嵌入后端未配置时 service/comparator 为空
type EvaluationHandler struct {
	service    EvaluationService
	comparator ProviderComparator
}

// NewEvaluationHandler 创建评估处理器
func NewEvaluationHandler(service EvaluationService, comparator ProviderComparator) *EvaluationHandler {
	return &EvaluationHandler{service: service, comparator: comparator}
}

var errEvaluationDisabled = apperrors.ErrServiceUnavailable.WithDetail("evaluation requires an embedding backend")

// Compare 对上传的各生成方图像与参考集比对并排名
// 每个文件字段名即生成方名称
// @Summary 多生成方比对
// @Tags Evaluations
// @Accept multipart/form-data
// @Produce json
// @Success 200 {object} dto.Response[entity.ComparisonReport]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 503 {object} dto.ErrorResponse
// @Router /v1/evaluations/compare [post]
func (h *EvaluationHandler) Compare(c *gin.Context) {
	if h.comparator == nil {
		dto.AppError(c, errEvaluationDisabled)
		return
	}
	form, ok := multipartForm(c)
	if !ok {
		return
	}
	providers := sortedFileFields(form)
	if len(providers) == 0 {
		dto.BadRequest(c, "at least one provider image is required")
		return
	}

	images := make(map[string][]byte, len(providers))
	for _, name := range providers {
		data, err := readFile(form.File[name][0])
		if err != nil {
			respondError(c, err, "failed to read provider image")
			return
		}
		images[name] = data
	}

	report := h.comparator.CompareProviders(c.Request.Context(), images, providers)
	dto.Success(c, report)
}

// Feedback 根据候选方与竞争者指标生成改进建议
// @Summary 改进反馈
// @Tags Evaluations
// @Accept json
// @Produce json
// @Param body body dto.FeedbackRequest true "指标"
// @Success 200 {object} dto.Response[entity.Feedback]
// @Failure 400 {object} dto.ErrorResponse
// @Router /v1/evaluations/feedback [post]
func (h *EvaluationHandler) Feedback(c *gin.Context) {
	if h.comparator == nil {
		dto.AppError(c, errEvaluationDisabled)
		return
	}
	var req dto.FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	dto.Success(c, h.comparator.GenerateFeedback(req.Candidate, req.Competitor, req.CompetitorName))
}

// Create 提交异步评估任务
// @Summary 提交评估任务
// @Description 落库待执行记录并投递到评估队列，由 eval-worker 执行
// @Tags Evaluations
// @Accept json
// @Produce json
// @Param body body dto.CreateEvaluationRequest true "评估帧与生成方"
// @Success 202 {object} dto.Response[dto.EvaluationResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 503 {object} dto.ErrorResponse
// @Router /v1/evaluations [post]
func (h *EvaluationHandler) Create(c *gin.Context) {
	if h.service == nil {
		dto.AppError(c, errEvaluationDisabled)
		return
	}
	var req dto.CreateEvaluationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	ctx := c.Request.Context()
	run, err := h.service.Submit(ctx, req.Frame.ToFrame(), req.Providers)
	if err != nil {
		respondError(c, err, "failed to submit evaluation")
		return
	}
	logger.Info(ctx, "evaluation submitted", "run_id", run.ID, "providers", len(run.Providers))
	dto.Accepted(c, dto.ToEvaluationResponse(run))
}

// Run 同步执行评估
// @Summary 同步评估
// @Tags Evaluations
// @Accept json
// @Produce json
// @Param body body dto.CreateEvaluationRequest true "评估帧与生成方"
// @Success 200 {object} dto.Response[dto.EvaluationResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 422 {object} dto.ErrorResponse
// @Router /v1/evaluations/run [post]
func (h *EvaluationHandler) Run(c *gin.Context) {
	if h.service == nil {
		dto.AppError(c, errEvaluationDisabled)
		return
	}
	var req dto.CreateEvaluationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	run, err := h.service.Evaluate(c.Request.Context(), req.Frame.ToFrame(), req.Providers)
	if err != nil {
		respondError(c, err, "evaluation failed")
		return
	}
	dto.Success(c, dto.ToEvaluationResponse(run))
}

// List 分页查询评估记录
// @Summary 评估记录列表
// @Tags Evaluations
// @Produce json
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Param status query string false "状态"
// @Param best_provider query string false "最佳生成方"
// @Success 200 {object} dto.Response[[]dto.EvaluationResponse]
// @Router /v1/evaluations [get]
func (h *EvaluationHandler) List(c *gin.Context) {
	if h.service == nil {
		dto.AppError(c, errEvaluationDisabled)
		return
	}
	var req dto.ListEvaluationsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindError(c, err)
		return
	}

	result, err := h.service.List(c.Request.Context(), req.ToFilter(), req.Pagination())
	if err != nil {
		respondError(c, err, "failed to list evaluations")
		return
	}
	dto.SuccessWithPage(c,
		dto.ToEvaluationListResponse(result.Items),
		dto.NewPageMeta(result.Page, result.PageSize, int(result.Total)),
	)
}

// Get 查询评估记录
// @Summary 评估记录详情
// @Tags Evaluations
// @Produce json
// @Param id path string true "评估 ID"
// @Success 200 {object} dto.Response[dto.EvaluationResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/evaluations/{id} [get]
func (h *EvaluationHandler) Get(c *gin.Context) {
	if h.service == nil {
		dto.AppError(c, errEvaluationDisabled)
		return
	}
	run, err := h.service.Get(c.Request.Context(), dto.BindEvaluationID(c))
	if err != nil {
		respondError(c, err, "failed to get evaluation")
		return
	}
	dto.Success(c, dto.ToEvaluationResponse(run))
}

// Similar 检索与上传图像相近的历史生成
// @Summary 近似生成检索
// @Tags Evaluations
// @Accept multipart/form-data
// @Produce json
// @Param image formData file true "查询图像"
// @Param top_k query int false "返回数量"
// @Success 200 {object} dto.Response[[]dto.SimilarGenerationResponse]
// @Failure 503 {object} dto.ErrorResponse
// @Router /v1/evaluations/similar [post]
func (h *EvaluationHandler) Similar(c *gin.Context) {
	if h.service == nil {
		dto.AppError(c, errEvaluationDisabled)
		return
	}
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

	topK := defaultSimilarTopK
	if raw := c.Query("top_k"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			dto.BadRequest(c, "top_k must be a positive integer")
			return
		}
		topK = min(v, maxSimilarTopK)
	}

	hits, err := h.service.FindSimilar(c.Request.Context(), data, topK)
	if err != nil {
		respondError(c, err, "similarity search failed")
		return
	}
	dto.Success(c, dto.ToSimilarResponse(hits))
}
