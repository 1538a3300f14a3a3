package entity

import (
	"encoding/json"
	"time"

	"github.com/lib/pq"
)

// EvaluationStatus 评估任务状态
type EvaluationStatus string

const (
	EvaluationPending   EvaluationStatus = "pending"
	EvaluationRunning   EvaluationStatus = "running"
	EvaluationCompleted EvaluationStatus = "completed"
	EvaluationFailed    EvaluationStatus = "failed"
)

// EvaluationRun 一次跨生成方评估的持久化记录
type EvaluationRun struct {
	ID               string           `json:"id" gorm:"type:uuid;primaryKey"`
	Status           EvaluationStatus `json:"status" gorm:"type:varchar(16);index"`
	Description      string           `json:"description" gorm:"type:text"`
	ShotType         ShotType         `json:"shot_type" gorm:"type:varchar(32)"`
	Setting          string           `json:"setting,omitempty" gorm:"type:text"`
	PositivePrompt   string           `json:"positive_prompt" gorm:"type:text"`
	Providers        pq.StringArray   `json:"providers" gorm:"type:text[]"`
	Ranking          pq.StringArray   `json:"ranking" gorm:"type:text[]"`
	BestProvider     string           `json:"best_provider" gorm:"type:varchar(64)"`
	BestScore        float64          `json:"best_score"`
	NeedsImprovement bool             `json:"needs_improvement"`
	Report           json.RawMessage  `json:"report,omitempty" gorm:"type:jsonb"`
	Feedback         json.RawMessage  `json:"feedback,omitempty" gorm:"type:jsonb"`
	ReportPath       string           `json:"report_path,omitempty" gorm:"type:text"`
	ErrorMessage     string           `json:"error_message,omitempty" gorm:"type:text"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
	CompletedAt      *time.Time       `json:"completed_at,omitempty"`
}

// TableName 表名
func (EvaluationRun) TableName() string {
	return "evaluation_runs"
}

// NewEvaluationRun 创建待执行的评估记录
func NewEvaluationRun(id string, frame Frame, providers []string) *EvaluationRun {
	return &EvaluationRun{
		ID:          id,
		Status:      EvaluationPending,
		Description: frame.Description,
		ShotType:    frame.ShotType,
		Setting:     frame.Setting,
		Providers:   pq.StringArray(providers),
		CreatedAt:   time.Now(),
	}
}

// Frame 还原评估所用的帧
func (r *EvaluationRun) Frame() Frame {
	return Frame{Description: r.Description, ShotType: r.ShotType, Setting: r.Setting}
}

// Finished 是否已结束
func (r *EvaluationRun) Finished() bool {
	return r.Status == EvaluationCompleted || r.Status == EvaluationFailed
}

// Start 标记开始
func (r *EvaluationRun) Start() {
	r.Status = EvaluationRunning
	r.UpdatedAt = time.Now()
}

// Complete 标记完成
func (r *EvaluationRun) Complete() {
	now := time.Now()
	r.Status = EvaluationCompleted
	r.UpdatedAt = now
	r.CompletedAt = &now
}

// Fail 标记失败
func (r *EvaluationRun) Fail(err error) {
	now := time.Now()
	r.Status = EvaluationFailed
	if err != nil {
		r.ErrorMessage = err.Error()
	}
	r.UpdatedAt = now
	r.CompletedAt = &now
}
