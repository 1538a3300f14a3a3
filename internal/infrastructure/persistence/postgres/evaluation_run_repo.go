package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/sapogeth/qylysh-higgsfiled/internal/domain/entity"
	"github.com/sapogeth/qylysh-higgsfiled/internal/domain/repository"
	apperrors "github.com/sapogeth/qylysh-higgsfiled/pkg/errors"
)

// EvaluationRunRepository 评估记录仓储实现
type EvaluationRunRepository struct {
	client *Client
}

// NewEvaluationRunRepository 创建评估记录仓储
func NewEvaluationRunRepository(client *Client) *EvaluationRunRepository {
	return &EvaluationRunRepository{client: client}
}

// Create 创建评估记录
func (r *EvaluationRunRepository) Create(ctx context.Context, run *entity.EvaluationRun) error {
	ctx, span := tracer.Start(ctx, "postgres.EvaluationRunRepository.Create")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Create(run).Error; err != nil {
		span.RecordError(err)
		return apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to create evaluation run")
	}
	return nil
}

// GetByID 根据 ID 获取评估记录，不存在时返回 ErrEvaluationNotFound
func (r *EvaluationRunRepository) GetByID(ctx context.Context, id string) (*entity.EvaluationRun, error) {
	ctx, span := tracer.Start(ctx, "postgres.EvaluationRunRepository.GetByID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var run entity.EvaluationRun
	if err := db.First(&run, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrEvaluationNotFound.WithDetail(id)
		}
		span.RecordError(err)
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to get evaluation run")
	}
	return &run, nil
}

// Update 更新评估记录
func (r *EvaluationRunRepository) Update(ctx context.Context, run *entity.EvaluationRun) error {
	ctx, span := tracer.Start(ctx, "postgres.EvaluationRunRepository.Update")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Save(run).Error; err != nil {
		span.RecordError(err)
		return apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to update evaluation run")
	}
	return nil
}

// List 分页列出评估记录，按创建时间倒序
func (r *EvaluationRunRepository) List(ctx context.Context, filter *repository.EvaluationFilter, pagination repository.Pagination) (*repository.PagedResult[*entity.EvaluationRun], error) {
	ctx, span := tracer.Start(ctx, "postgres.EvaluationRunRepository.List")
	defer span.End()

	db := getDB(ctx, r.client.db)
	query := db.Model(&entity.EvaluationRun{})

	// 应用过滤条件
	if filter != nil {
		if filter.Status != "" {
			query = query.Where("status = ?", filter.Status)
		}
		if filter.BestProvider != "" {
			query = query.Where("best_provider = ?", filter.BestProvider)
		}
	}

	// 获取总数
	var total int64
	if err := query.Count(&total).Error; err != nil {
		span.RecordError(err)
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to count evaluation runs")
	}

	// 获取列表，不加载报告正文
	var runs []*entity.EvaluationRun
	if err := query.Omit("report").
		Order("created_at DESC").
		Offset(pagination.Offset()).
		Limit(pagination.Limit()).
		Find(&runs).Error; err != nil {
		span.RecordError(err)
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to list evaluation runs")
	}

	return repository.NewPagedResult(runs, total, pagination), nil
}
