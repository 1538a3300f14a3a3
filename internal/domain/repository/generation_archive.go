package repository

import "context"

// ArchivedGeneration 归档的一次生成结果（图像向量 + 评分）
type ArchivedGeneration struct {
	ID           string
	RunID        string
	Provider     string
	FrameIndex   int
	QualityScore float64
	Vector       []float32
}

// SimilarGeneration 近似检索命中
type SimilarGeneration struct {
	ID       string
	RunID    string
	Provider string
	Score    float32
}

// GenerationArchive 生成图向量归档
type GenerationArchive interface {
	// Store 写入归档记录
	Store(ctx context.Context, records []ArchivedGeneration) error

	// SearchSimilar 检索与给定向量最相近的历史生成
	SearchSimilar(ctx context.Context, vector []float32, topK int) ([]SimilarGeneration, error)
}
