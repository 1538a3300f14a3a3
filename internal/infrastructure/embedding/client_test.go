package embedding

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sapogeth/qylysh-higgsfiled/internal/config"
	apperrors "github.com/sapogeth/qylysh-higgsfiled/pkg/errors"
)

func newCLIPServer(t *testing.T, calls *int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/embed/image", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		var req imageRequest
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		out := embedResponse{}
		for _, img := range req.Images {
			raw, err := base64.StdEncoding.DecodeString(img)
			assert.NoError(t, err)
			out.Embeddings = append(out.Embeddings, []float64{float64(len(raw)), 0})
		}
		_ = json.NewEncoder(w).Encode(out)
	})
	mux.HandleFunc("/embed/text", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		var req textRequest
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		assert.Equal(t, "clip-test", req.Model)
		out := embedResponse{}
		for _, text := range req.Texts {
			out.Embeddings = append(out.Embeddings, []float64{0, float64(len(text))})
		}
		_ = json.NewEncoder(w).Encode(out)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestNewClient(t *testing.T) {
	t.Run("endpoint required", func(t *testing.T) {
		_, err := NewClient(&config.EmbeddingConfig{})
		require.Error(t, err)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeEmbeddingFailed))
	})

	t.Run("defaults", func(t *testing.T) {
		c, err := NewClient(&config.EmbeddingConfig{Endpoint: "http://clip:8001/"})
		require.NoError(t, err)
		assert.Equal(t, "http://clip:8001", c.endpoint)
		assert.Equal(t, defaultModel, c.Model())
		assert.Equal(t, defaultBatchSize, c.batchSize)
	})
}

func TestClient_EmbedImages(t *testing.T) {
	var calls int32
	srv := newCLIPServer(t, &calls)
	c, err := NewClient(&config.EmbeddingConfig{Endpoint: srv.URL, Model: "clip-test", BatchSize: 2})
	require.NoError(t, err)

	images := [][]byte{[]byte("a"), []byte("bb"), []byte("ccc")}
	vecs, err := c.EmbedImages(context.Background(), images)
	require.NoError(t, err)
	require.Len(t, vecs, 3)
	for i, v := range vecs {
		assert.Equal(t, float64(len(images[i])), v[0])
	}
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls), "3 images with batch size 2")

	t.Run("empty image rejected", func(t *testing.T) {
		_, err := c.EmbedImages(context.Background(), [][]byte{{}})
		assert.Error(t, err)
	})

	t.Run("empty input", func(t *testing.T) {
		vecs, err := c.EmbedImages(context.Background(), nil)
		require.NoError(t, err)
		assert.Empty(t, vecs)
	})
}

func TestClient_EmbedTexts(t *testing.T) {
	var calls int32
	srv := newCLIPServer(t, &calls)
	c, err := NewClient(&config.EmbeddingConfig{Endpoint: srv.URL, Model: "clip-test"})
	require.NoError(t, err)

	vecs, err := c.EmbedTexts(context.Background(), []string{"orange chapan", "kalpak"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	assert.Equal(t, []float64{0, 13}, vecs[0])
	assert.Equal(t, []float64{0, 6}, vecs[1])
}

func TestClient_Errors(t *testing.T) {
	t.Run("non 2xx", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "model not loaded", http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		c, err := NewClient(&config.EmbeddingConfig{Endpoint: srv.URL})
		require.NoError(t, err)
		_, err = c.EmbedTexts(context.Background(), []string{"x"})
		require.Error(t, err)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeEmbeddingFailed))
		assert.Contains(t, apperrors.AsAppError(err).Detail, "status=503")
	})

	t.Run("count mismatch", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_ = json.NewEncoder(w).Encode(embedResponse{Embeddings: [][]float64{{1}}})
		}))
		defer srv.Close()

		c, err := NewClient(&config.EmbeddingConfig{Endpoint: srv.URL})
		require.NoError(t, err)
		_, err = c.EmbedTexts(context.Background(), []string{"x", "y"})
		require.Error(t, err)
		assert.Contains(t, apperrors.AsAppError(err).Detail, "expected 2 embeddings, got 1")
	})

	t.Run("error field", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_ = json.NewEncoder(w).Encode(embedResponse{Error: "cuda oom"})
		}))
		defer srv.Close()

		c, err := NewClient(&config.EmbeddingConfig{Endpoint: srv.URL})
		require.NoError(t, err)
		_, err = c.EmbedImages(context.Background(), [][]byte{[]byte("png")})
		require.Error(t, err)
		assert.Equal(t, "cuda oom", apperrors.AsAppError(err).Detail)
	})
}
