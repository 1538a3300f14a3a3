package milvus

import (
	"testing"

	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sapogeth/qylysh-higgsfiled/internal/config"
	"github.com/sapogeth/qylysh-higgsfiled/internal/domain/repository"
)

func TestGenerationsSchema(t *testing.T) {
	schema := GenerationsSchema("storyboard_generations", 0)
	assert.Equal(t, "storyboard_generations", schema.CollectionName)
	require.Len(t, schema.Fields, 6)

	assert.True(t, schema.Fields[0].PrimaryKey)
	assert.Equal(t, fieldVector, schema.Fields[1].Name)
	assert.Equal(t, "512", schema.Fields[1].TypeParams["dim"])
	assert.Equal(t, "768", GenerationsSchema("x", 768).Fields[1].TypeParams["dim"])
}

func TestBuildColumns(t *testing.T) {
	records := []repository.ArchivedGeneration{
		{ID: "g1", RunID: "r1", Provider: "gemini", FrameIndex: 1, QualityScore: 0.8, Vector: []float32{1, 0, 0}},
		{ID: "g2", RunID: "r1", Provider: "lora", FrameIndex: 1, QualityScore: 0.6, Vector: []float32{0, 1, 0}},
	}

	t.Run("columns", func(t *testing.T) {
		cols, err := buildColumns(records, 3)
		require.NoError(t, err)
		require.Len(t, cols, 6)
		for _, c := range cols {
			assert.Equal(t, 2, c.Len(), c.Name())
		}
		ids, ok := cols[0].(*entity.ColumnVarChar)
		require.True(t, ok)
		assert.Equal(t, []string{"g1", "g2"}, ids.Data())
	})

	t.Run("dimension mismatch", func(t *testing.T) {
		_, err := buildColumns(records, 4)
		assert.Error(t, err)
	})
}

func TestNewGenerationArchive(t *testing.T) {
	c := &Client{config: &config.MilvusConfig{CollectionPrefix: "storyboard", MetricType: "IP"}}
	a := NewGenerationArchive(c, 0)
	assert.Equal(t, DefaultVectorDimension, a.dim)
	assert.Equal(t, entity.IP, a.metric)
	assert.Equal(t, "storyboard_generations", a.collection())

	plain := NewGenerationArchive(&Client{config: &config.MilvusConfig{}}, 512)
	assert.Equal(t, entity.COSINE, plain.metric)
	assert.Equal(t, CollectionGenerations, plain.collection())
}

func TestClientConfig(t *testing.T) {
	anon := clientConfig(&config.MilvusConfig{Host: "milvus", Port: 19530, User: "root"})
	assert.Equal(t, "milvus:19530", anon.Address)
	assert.Empty(t, anon.Username, "password missing disables auth")

	auth := clientConfig(&config.MilvusConfig{Host: "milvus", Port: 19530, User: "root", Password: "secret"})
	assert.Equal(t, "root", auth.Username)
	assert.Equal(t, "secret", auth.Password)
}

func TestCollectionName(t *testing.T) {
	c := &Client{config: &config.MilvusConfig{CollectionPrefix: "storyboard"}}
	assert.Equal(t, "storyboard_generations", c.CollectionName(CollectionGenerations))

	c = &Client{config: &config.MilvusConfig{}}
	assert.Equal(t, CollectionGenerations, c.CollectionName(CollectionGenerations))
}
