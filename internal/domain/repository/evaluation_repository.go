package repository

import (
	"context"

	"github.com/sapogeth/qylysh-higgsfiled/internal/domain/entity"
)

// EvaluationFilter 评估记录过滤条件
type EvaluationFilter struct {
	Status       entity.EvaluationStatus
	BestProvider string
}

// EvaluationRunRepository 评估记录仓储接口
type EvaluationRunRepository interface {
	// Create 创建评估记录
	Create(ctx context.Context, run *entity.EvaluationRun) error

	// GetByID 根据 ID 获取评估记录
	GetByID(ctx context.Context, id string) (*entity.EvaluationRun, error)

	// Update 更新评估记录
	Update(ctx context.Context, run *entity.EvaluationRun) error

	// List 分页列出评估记录，按创建时间倒序
	List(ctx context.Context, filter *EvaluationFilter, pagination Pagination) (*PagedResult[*entity.EvaluationRun], error)
}
