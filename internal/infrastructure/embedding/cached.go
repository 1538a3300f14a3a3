package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/sapogeth/qylysh-higgsfiled/internal/config"
	apperrors "github.com/sapogeth/qylysh-higgsfiled/pkg/errors"
	"github.com/sapogeth/qylysh-higgsfiled/pkg/logger"
	"github.com/sapogeth/qylysh-higgsfiled/pkg/metrics"
)

// Embedder 图像 + 文本编码
type Embedder interface {
	ImageEmbedder
	TextEmbedder
}

// VectorStore 二级向量缓存（Redis）
type VectorStore interface {
	GetVector(ctx context.Context, key string) ([]float64, bool, error)
	SetVector(ctx context.Context, key string, vec []float64, ttl time.Duration) error
}

// CachedEmbedder 两级缓存的 Embedder：进程内 go-cache + 可选 Redis
// 同一批未命中的请求经 singleflight 合并
type CachedEmbedder struct {
	inner    Embedder
	store    VectorStore
	memory   *gocache.Cache
	model    string
	prefix   string
	redisTTL time.Duration
	group    singleflight.Group
}

// NewCachedEmbedder 创建带缓存的 Embedder，store 可为空
func NewCachedEmbedder(inner Embedder, store VectorStore, model string, cfg config.EmbeddingCacheConfig) *CachedEmbedder {
	memoryTTL := cfg.MemoryTTL
	if memoryTTL <= 0 {
		memoryTTL = 30 * time.Minute
	}
	cleanup := cfg.CleanupTick
	if cleanup <= 0 {
		cleanup = 10 * time.Minute
	}
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "emb:"
	}
	return &CachedEmbedder{
		inner:    inner,
		store:    store,
		memory:   gocache.New(memoryTTL, cleanup),
		model:    model,
		prefix:   prefix,
		redisTTL: cfg.RedisTTL,
	}
}

// EmbedImages 编码图像，命中缓存的不再请求后端
func (c *CachedEmbedder) EmbedImages(ctx context.Context, images [][]byte) ([][]float64, error) {
	return c.lookup(ctx, kindImage, images, func(ctx context.Context, idx []int) ([][]float64, error) {
		batch := make([][]byte, len(idx))
		for j, i := range idx {
			batch[j] = images[i]
		}
		return c.inner.EmbedImages(ctx, batch)
	})
}

// EmbedTexts 编码文本
func (c *CachedEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float64, error) {
	payloads := make([][]byte, len(texts))
	for i, t := range texts {
		payloads[i] = []byte(t)
	}
	return c.lookup(ctx, kindText, payloads, func(ctx context.Context, idx []int) ([][]float64, error) {
		batch := make([]string, len(idx))
		for j, i := range idx {
			batch[j] = texts[i]
		}
		return c.inner.EmbedTexts(ctx, batch)
	})
}

// Key 缓存键：前缀 + 类型 + sha256(模型, 内容)
func (c *CachedEmbedder) Key(kind string, payload []byte) string {
	h := sha256.New()
	h.Write([]byte(c.model))
	h.Write([]byte{0})
	h.Write(payload)
	return c.prefix + kind + ":" + hex.EncodeToString(h.Sum(nil))
}

func (c *CachedEmbedder) lookup(
	ctx context.Context,
	kind string,
	payloads [][]byte,
	load func(context.Context, []int) ([][]float64, error),
) ([][]float64, error) {
	out := make([][]float64, len(payloads))
	keys := make([]string, len(payloads))
	var missing []int

	for i, p := range payloads {
		keys[i] = c.Key(kind, p)
		if v, ok := c.fromMemory(keys[i]); ok {
			out[i] = v
			continue
		}
		if v, ok := c.fromStore(ctx, keys[i]); ok {
			out[i] = v
			c.memory.SetDefault(keys[i], v)
			continue
		}
		missing = append(missing, i)
	}
	if len(missing) == 0 {
		return out, nil
	}

	flightKeys := make([]string, len(missing))
	for j, i := range missing {
		flightKeys[j] = keys[i]
	}
	res, err, _ := c.group.Do(strings.Join(flightKeys, ","), func() (any, error) {
		return load(ctx, missing)
	})
	if err != nil {
		return nil, err
	}
	vecs := res.([][]float64)
	if len(vecs) != len(missing) {
		return nil, apperrors.ErrEmbeddingFailed.WithDetail(
			fmt.Sprintf("expected %d embeddings, got %d", len(missing), len(vecs)))
	}

	for j, i := range missing {
		out[i] = vecs[j]
		c.memory.SetDefault(keys[i], vecs[j])
		if c.store == nil {
			continue
		}
		if err := c.store.SetVector(ctx, keys[i], vecs[j], c.redisTTL); err != nil {
			// 缓存写入失败不影响返回结果
			logger.Warn(ctx, "failed to write embedding cache", "kind", kind, "error", err.Error())
		}
	}
	return out, nil
}

func (c *CachedEmbedder) fromMemory(key string) ([]float64, bool) {
	if v, ok := c.memory.Get(key); ok {
		metrics.EmbeddingCacheTotal.WithLabelValues("memory", "hit").Inc()
		return v.([]float64), true
	}
	metrics.EmbeddingCacheTotal.WithLabelValues("memory", "miss").Inc()
	return nil, false
}

func (c *CachedEmbedder) fromStore(ctx context.Context, key string) ([]float64, bool) {
	if c.store == nil {
		return nil, false
	}
	v, ok, err := c.store.GetVector(ctx, key)
	if err != nil {
		logger.Warn(ctx, "embedding cache read failed", "error", err.Error())
		return nil, false
	}
	if !ok {
		metrics.EmbeddingCacheTotal.WithLabelValues("redis", "miss").Inc()
		return nil, false
	}
	metrics.EmbeddingCacheTotal.WithLabelValues("redis", "hit").Inc()
	return v, true
}
