package embedding

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cloudwego/eino/components/embedding"
)

var errBackendDown = errors.New("backend down")

// countingEmbedder 以内容长度构造向量，并记录调用
type countingEmbedder struct {
	mu         sync.Mutex
	imageCalls [][][]byte
	textCalls  [][]string
	err        error
}

func (e *countingEmbedder) EmbedImages(_ context.Context, images [][]byte) ([][]float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.imageCalls = append(e.imageCalls, images)
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float64, len(images))
	for i, img := range images {
		out[i] = []float64{float64(len(img)), 1}
	}
	return out, nil
}

func (e *countingEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.textCalls = append(e.textCalls, texts)
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float64, len(texts))
	for i, t := range texts {
		out[i] = []float64{float64(len(t)), 2}
	}
	return out, nil
}

// memoryStore 内存版二级缓存
type memoryStore struct {
	mu      sync.Mutex
	data    map[string][]float64
	ttls    map[string]time.Duration
	readErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: map[string][]float64{}, ttls: map[string]time.Duration{}}
}

func (s *memoryStore) GetVector(_ context.Context, key string) ([]float64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readErr != nil {
		return nil, false, s.readErr
	}
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *memoryStore) SetVector(_ context.Context, key string, vec []float64, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = vec
	s.ttls[key] = ttl
	return nil
}

// fakeEino 实现 eino embedding.Embedder
type fakeEino struct {
	vectors [][]float64
	err     error
	got     []string
}

func (f *fakeEino) EmbedStrings(_ context.Context, texts []string, _ ...embedding.Option) ([][]float64, error) {
	f.got = texts
	return f.vectors, f.err
}
