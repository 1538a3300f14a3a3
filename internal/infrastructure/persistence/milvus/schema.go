package milvus

import (
	"strconv"

	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

const (
	// CollectionGenerations 生成图向量集合
	CollectionGenerations = "generations"

	// DefaultVectorDimension CLIP ViT-B/32 输出维度
	DefaultVectorDimension = 512

	fieldID           = "id"
	fieldVector       = "vector"
	fieldRunID        = "run_id"
	fieldProvider     = "provider"
	fieldFrameIndex   = "frame_index"
	fieldQualityScore = "quality_score"
)

// GenerationsSchema 生成图向量 Collection Schema
func GenerationsSchema(name string, dim int) *entity.Schema {
	if dim <= 0 {
		dim = DefaultVectorDimension
	}
	return &entity.Schema{
		CollectionName: name,
		Description:    "Generated storyboard image embeddings per provider",
		Fields: []*entity.Field{
			{
				Name:       fieldID,
				DataType:   entity.FieldTypeVarChar,
				PrimaryKey: true,
				AutoID:     false,
				TypeParams: map[string]string{
					"max_length": "64",
				},
			},
			{
				Name:     fieldVector,
				DataType: entity.FieldTypeFloatVector,
				TypeParams: map[string]string{
					"dim": strconv.Itoa(dim),
				},
			},
			{
				Name:     fieldRunID,
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "64",
				},
			},
			{
				Name:     fieldProvider,
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "64",
				},
			},
			{
				Name:     fieldFrameIndex,
				DataType: entity.FieldTypeInt64,
			},
			{
				Name:     fieldQualityScore,
				DataType: entity.FieldTypeFloat,
			},
		},
	}
}
