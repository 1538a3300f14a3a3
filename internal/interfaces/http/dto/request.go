package dto

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/sapogeth/qylysh-higgsfiled/internal/domain/repository"
)

// PageRequest 分页查询参数，越界值由仓储层归一化
type PageRequest struct {
	Page     int `form:"page" json:"page"`
	PageSize int `form:"page_size" json:"page_size"`
}

// Pagination 转换为仓储层分页参数
func (r PageRequest) Pagination() repository.Pagination {
	return repository.NewPagination(r.Page, r.PageSize)
}

// BindEvaluationID 路径中的评估记录 ID
func BindEvaluationID(c *gin.Context) string {
	return strings.TrimSpace(c.Param("id"))
}
