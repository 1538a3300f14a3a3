package milvus

import (
	"context"
	"fmt"
	"time"

	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/sapogeth/qylysh-higgsfiled/internal/domain/repository"
	apperrors "github.com/sapogeth/qylysh-higgsfiled/pkg/errors"
	"github.com/sapogeth/qylysh-higgsfiled/pkg/metrics"
)

// GenerationArchive 生成图向量归档（Milvus 实现）
type GenerationArchive struct {
	client *Client
	dim    int
	metric entity.MetricType
}

// NewGenerationArchive 创建归档仓储
func NewGenerationArchive(client *Client, dim int) *GenerationArchive {
	if dim <= 0 {
		dim = DefaultVectorDimension
	}
	metric := entity.COSINE
	if client != nil && client.config.MetricType != "" {
		metric = entity.MetricType(client.config.MetricType)
	}
	return &GenerationArchive{client: client, dim: dim, metric: metric}
}

func (a *GenerationArchive) collection() string {
	return a.client.CollectionName(CollectionGenerations)
}

func (a *GenerationArchive) observe(op string, started time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.MilvusOpDuration.WithLabelValues(CollectionGenerations, op).Observe(time.Since(started).Seconds())
	metrics.MilvusOpTotal.WithLabelValues(CollectionGenerations, op, status).Inc()
}

// EnsureCollection 确保集合与索引可用（不存在则创建），不做破坏性操作
func (a *GenerationArchive) EnsureCollection(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "milvus.EnsureCollection",
		trace.WithAttributes(attribute.String("collection", a.collection())))
	defer span.End()

	exists, err := a.client.HasCollection(ctx, CollectionGenerations)
	if err != nil {
		span.RecordError(err)
		return apperrors.Wrap(err, apperrors.CodeVectorDBError, "check collection")
	}
	if !exists {
		schema := GenerationsSchema(a.collection(), a.dim)
		if err := a.client.milvus.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
			span.RecordError(err)
			return apperrors.Wrap(err, apperrors.CodeVectorDBError, "create collection")
		}

		idx, err := entity.NewIndexHNSW(a.metric, a.client.config.HNSWM, a.client.config.HNSWEfConstruction)
		if err != nil {
			span.RecordError(err)
			return apperrors.Wrap(err, apperrors.CodeVectorDBError, "build index params")
		}
		if err := a.client.milvus.CreateIndex(ctx, a.collection(), fieldVector, idx, false); err != nil {
			span.RecordError(err)
			return apperrors.Wrap(err, apperrors.CodeVectorDBError, "create index")
		}
	}

	// 已加载时 Milvus 同样返回成功
	if err := a.client.LoadCollection(ctx, CollectionGenerations); err != nil {
		span.RecordError(err)
		return apperrors.Wrap(err, apperrors.CodeVectorDBError, "load collection")
	}
	return nil
}

// Store 写入归档记录
func (a *GenerationArchive) Store(ctx context.Context, records []repository.ArchivedGeneration) (err error) {
	if len(records) == 0 {
		return nil
	}
	ctx, span := tracer.Start(ctx, "milvus.Store",
		trace.WithAttributes(attribute.Int("count", len(records))))
	defer span.End()

	started := time.Now()
	defer func() { a.observe("insert", started, err) }()

	columns, err := buildColumns(records, a.dim)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if _, err = a.client.milvus.Insert(ctx, a.collection(), "", columns...); err != nil {
		span.RecordError(err)
		return apperrors.Wrap(err, apperrors.CodeVectorDBError, "insert generations")
	}
	return nil
}

// SearchSimilar 检索与给定向量最相近的历史生成
func (a *GenerationArchive) SearchSimilar(ctx context.Context, vector []float32, topK int) (hits []repository.SimilarGeneration, err error) {
	if len(vector) != a.dim {
		return nil, apperrors.ErrInvalidParam.WithDetail(
			fmt.Sprintf("vector dimension %d, expected %d", len(vector), a.dim))
	}
	if topK <= 0 {
		topK = 5
	}
	ctx, span := tracer.Start(ctx, "milvus.SearchSimilar",
		trace.WithAttributes(attribute.Int("top_k", topK)))
	defer span.End()

	started := time.Now()
	defer func() { a.observe("search", started, err) }()

	sp, err := entity.NewIndexHNSWSearchParam(128)
	if err != nil {
		span.RecordError(err)
		return nil, apperrors.Wrap(err, apperrors.CodeVectorDBError, "build search params")
	}

	results, err := a.client.milvus.Search(ctx,
		a.collection(),
		nil,
		"",
		[]string{fieldID, fieldRunID, fieldProvider},
		[]entity.Vector{entity.FloatVector(vector)},
		fieldVector,
		a.metric,
		topK,
		sp,
	)
	if err != nil {
		span.RecordError(err)
		return nil, apperrors.Wrap(err, apperrors.CodeVectorDBError, "search generations")
	}

	for _, result := range results {
		for i := 0; i < result.ResultCount; i++ {
			hit := repository.SimilarGeneration{Score: result.Scores[i]}
			if col, ok := result.Fields.GetColumn(fieldID).(*entity.ColumnVarChar); ok {
				hit.ID = col.Data()[i]
			}
			if col, ok := result.Fields.GetColumn(fieldRunID).(*entity.ColumnVarChar); ok {
				hit.RunID = col.Data()[i]
			}
			if col, ok := result.Fields.GetColumn(fieldProvider).(*entity.ColumnVarChar); ok {
				hit.Provider = col.Data()[i]
			}
			hits = append(hits, hit)
		}
	}

	span.SetAttributes(attribute.Int("result_count", len(hits)))
	return hits, nil
}

// buildColumns 记录转列式数据，维度不符时报错
func buildColumns(records []repository.ArchivedGeneration, dim int) ([]entity.Column, error) {
	n := len(records)
	ids := make([]string, n)
	vectors := make([][]float32, n)
	runIDs := make([]string, n)
	providers := make([]string, n)
	frames := make([]int64, n)
	scores := make([]float32, n)

	for i, rec := range records {
		if len(rec.Vector) != dim {
			return nil, apperrors.ErrInvalidParam.WithDetail(
				fmt.Sprintf("record %s has dimension %d, expected %d", rec.ID, len(rec.Vector), dim))
		}
		ids[i] = rec.ID
		vectors[i] = rec.Vector
		runIDs[i] = rec.RunID
		providers[i] = rec.Provider
		frames[i] = int64(rec.FrameIndex)
		scores[i] = float32(rec.QualityScore)
	}

	return []entity.Column{
		entity.NewColumnVarChar(fieldID, ids),
		entity.NewColumnFloatVector(fieldVector, dim, vectors),
		entity.NewColumnVarChar(fieldRunID, runIDs),
		entity.NewColumnVarChar(fieldProvider, providers),
		entity.NewColumnInt64(fieldFrameIndex, frames),
		entity.NewColumnFloat(fieldQualityScore, scores),
	}, nil
}
