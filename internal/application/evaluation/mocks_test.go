package evaluation

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sapogeth/qylysh-higgsfiled/internal/application/storyboard"
	"github.com/sapogeth/qylysh-higgsfiled/internal/domain/entity"
	"github.com/sapogeth/qylysh-higgsfiled/internal/domain/repository"
	apperrors "github.com/sapogeth/qylysh-higgsfiled/pkg/errors"
	"github.com/sapogeth/qylysh-higgsfiled/pkg/imaging"
)

var (
	red   = color.RGBA{R: 220, G: 30, B: 30, A: 255}
	blue  = color.RGBA{R: 30, G: 30, B: 220, A: 255}
	green = color.RGBA{R: 30, G: 220, B: 30, A: 255}
)

func solidPNG(t *testing.T, c color.RGBA) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 48, 48))
	for y := 0; y < 48; y++ {
		for x := 0; x < 48; x++ {
			img.Set(x, y, c)
		}
	}
	data, err := imaging.EncodePNG(img)
	require.NoError(t, err)
	return data
}

// oversizedPNG 4×4 灰度 PNG，IHDR 改写为 w×h 并重算 CRC
func oversizedPNG(t *testing.T, w, h uint32) []byte {
	t.Helper()
	data, err := imaging.EncodePNG(image.NewGray(image.Rect(0, 0, 4, 4)))
	require.NoError(t, err)
	binary.BigEndian.PutUint32(data[16:20], w)
	binary.BigEndian.PutUint32(data[20:24], h)
	binary.BigEndian.PutUint32(data[29:33], crc32.ChecksumIEEE(data[12:29]))
	return data
}

// fakeEmbedder 图像向量取主色，文本向量查表
type fakeEmbedder struct {
	mu         sync.Mutex
	texts      map[string][]float64
	imageErr   error
	textErr    error
	imageCalls int
}

func newFakeEmbedder() *fakeEmbedder {
	return &fakeEmbedder{texts: map[string][]float64{
		"red cloak":  {1, 0, 0, 0},
		"blue cloak": {0, 0, 1, 0},
	}}
}

func (f *fakeEmbedder) EmbedImages(_ context.Context, images [][]byte) ([][]float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.imageCalls++
	if f.imageErr != nil {
		return nil, f.imageErr
	}
	out := make([][]float64, len(images))
	for i, data := range images {
		out[i] = colorVector(data)
	}
	return out, nil
}

func (f *fakeEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float64, error) {
	if f.textErr != nil {
		return nil, f.textErr
	}
	out := make([][]float64, len(texts))
	for i, t := range texts {
		if v, ok := f.texts[t]; ok {
			out[i] = v
			continue
		}
		out[i] = []float64{0, 0, 0, 1}
	}
	return out, nil
}

// colorVector 平均颜色加常数分量；无法解码时返回固定向量
func colorVector(data []byte) []float64 {
	img, _, err := imaging.Decode(data)
	if err != nil {
		return []float64{0.5, 0.5, 0.5, 0.1}
	}
	b := img.Bounds()
	var r, g, bl float64
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			cr, cg, cb, _ := img.At(x, y).RGBA()
			r += float64(cr >> 8)
			g += float64(cg >> 8)
			bl += float64(cb >> 8)
		}
	}
	n := float64(b.Dx()*b.Dy()) * 255
	return []float64{r / n, g / n, bl / n, 0.1}
}

// fakeGenerator 返回固定图像或错误
type fakeGenerator struct {
	name  string
	data  []byte
	err   error
	mu    sync.Mutex
	calls []storyboard.GenerationRequest
}

func (g *fakeGenerator) Name() string { return g.name }

func (g *fakeGenerator) Generate(_ context.Context, req storyboard.GenerationRequest) ([]byte, error) {
	g.mu.Lock()
	g.calls = append(g.calls, req)
	g.mu.Unlock()
	if g.err != nil {
		return nil, g.err
	}
	return g.data, nil
}

// opposingEmbedder 参考图与短语取 vector，其余图像取其反向
type opposingEmbedder struct {
	reference []byte
	vector    []float64
}

func (o *opposingEmbedder) EmbedImages(_ context.Context, images [][]byte) ([][]float64, error) {
	out := make([][]float64, len(images))
	for i, data := range images {
		if bytes.Equal(data, o.reference) {
			out[i] = o.vector
			continue
		}
		v := make([]float64, len(o.vector))
		for j := range o.vector {
			v[j] = -o.vector[j]
		}
		v[len(v)-1] += 0.01
		out[i] = v
	}
	return out, nil
}

func (o *opposingEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i := range texts {
		out[i] = o.vector
	}
	return out, nil
}

// overlapEmbedder 记录同时在途的调用数峰值
type overlapEmbedder struct {
	inner  Embedder
	active atomic.Int32
	peak   atomic.Int32
}

func (o *overlapEmbedder) enter() func() {
	n := o.active.Add(1)
	for {
		p := o.peak.Load()
		if n <= p || o.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(time.Millisecond)
	return func() { o.active.Add(-1) }
}

func (o *overlapEmbedder) EmbedImages(ctx context.Context, images [][]byte) ([][]float64, error) {
	defer o.enter()()
	return o.inner.EmbedImages(ctx, images)
}

func (o *overlapEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float64, error) {
	defer o.enter()()
	return o.inner.EmbedTexts(ctx, texts)
}

// memoryRunRepo 内存评估记录仓储
type memoryRunRepo struct {
	mu   sync.Mutex
	runs map[string]entity.EvaluationRun
}

func newMemoryRunRepo() *memoryRunRepo {
	return &memoryRunRepo{runs: make(map[string]entity.EvaluationRun)}
}

func (r *memoryRunRepo) Create(_ context.Context, run *entity.EvaluationRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs[run.ID] = *run
	return nil
}

func (r *memoryRunRepo) GetByID(_ context.Context, id string) (*entity.EvaluationRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[id]
	if !ok {
		return nil, apperrors.ErrEvaluationNotFound
	}
	return &run, nil
}

func (r *memoryRunRepo) Update(_ context.Context, run *entity.EvaluationRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs[run.ID] = *run
	return nil
}

func (r *memoryRunRepo) List(_ context.Context, _ *repository.EvaluationFilter, p repository.Pagination) (*repository.PagedResult[*entity.EvaluationRun], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := make([]*entity.EvaluationRun, 0, len(r.runs))
	for _, run := range r.runs {
		run := run
		items = append(items, &run)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return repository.NewPagedResult(items, int64(len(items)), p), nil
}

// memoryArchive 记录归档调用
type memoryArchive struct {
	mu      sync.Mutex
	records []repository.ArchivedGeneration
	queries [][]float32
}

func (a *memoryArchive) Store(_ context.Context, records []repository.ArchivedGeneration) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.records = append(a.records, records...)
	return nil
}

func (a *memoryArchive) SearchSimilar(_ context.Context, vec []float32, topK int) ([]repository.SimilarGeneration, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.queries = append(a.queries, vec)
	var hits []repository.SimilarGeneration
	for _, r := range a.records {
		if len(hits) == topK {
			break
		}
		hits = append(hits, repository.SimilarGeneration{ID: r.ID, RunID: r.RunID, Provider: r.Provider, Score: 1})
	}
	return hits, nil
}

// recordingPublisher 记录投递的任务
type recordingPublisher struct {
	ids []string
	err error
}

func (p *recordingPublisher) PublishEvaluation(_ context.Context, runID string) error {
	if p.err != nil {
		return p.err
	}
	p.ids = append(p.ids, runID)
	return nil
}

var errBackendDown = errors.New("backend down")

func testProfile() entity.CharacterProfile {
	return entity.CharacterProfile{
		Name:           "Aldar Kose",
		DisplayName:    "Aldar Köse",
		EyeColor:       "dark brown",
		Hair:           "black hair in a small topknot",
		FacialHair:     "distinct small mustache",
		Clothing:       "orange patterned chapan robe",
		Hat:            "felt kalpak hat",
		StyleClause:    "2D storybook illustration",
		StyleLock:      "consistent style",
		QualitySuffix:  "detailed",
		NegativePrompt: "3D, photorealistic",
	}
}

func buildIndex(t *testing.T, emb Embedder, refs ...[]byte) *Index {
	t.Helper()
	images := make([]ReferenceImage, len(refs))
	for i, data := range refs {
		images[i] = ReferenceImage{Name: "ref", Data: data}
	}
	idx, err := NewIndex(context.Background(), emb, images, []string{"red cloak"}, WithSSIMSize(32))
	require.NoError(t, err)
	return idx
}
