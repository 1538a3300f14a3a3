// Package evaluation 评估生成图与参考肖像的一致性，对生成方排名并给出改进反馈
package evaluation

import (
	"context"
	"sync"
)

// Embedder 多模态嵌入能力，图像与文本落在同一向量空间
type Embedder interface {
	EmbedImages(ctx context.Context, images [][]byte) ([][]float64, error)
	EmbedTexts(ctx context.Context, texts []string) ([][]float64, error)
}

// SerialEmbedder 所有调用共用一把锁，嵌入后端按非线程安全处理
type SerialEmbedder struct {
	mu    sync.Mutex
	inner Embedder
}

// Serialize 包装为串行嵌入器；nil 或已包装时原样返回
// 比对器、特征分析器与参考索引需共用同一个返回值才能共用锁
func Serialize(e Embedder) Embedder {
	if e == nil {
		return nil
	}
	if s, ok := e.(*SerialEmbedder); ok {
		return s
	}
	return &SerialEmbedder{inner: e}
}

func (s *SerialEmbedder) EmbedImages(ctx context.Context, images [][]byte) ([][]float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.EmbedImages(ctx, images)
}

func (s *SerialEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.EmbedTexts(ctx, texts)
}
