package storyboard

import (
	"context"
	"errors"
	"image"
	"image/color"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/require"

	"github.com/sapogeth/qylysh-higgsfiled/internal/application/prompt"
	"github.com/sapogeth/qylysh-higgsfiled/internal/application/validation"
	"github.com/sapogeth/qylysh-higgsfiled/internal/domain/entity"
	wfmodel "github.com/sapogeth/qylysh-higgsfiled/internal/workflow/model"
	"github.com/sapogeth/qylysh-higgsfiled/pkg/imaging"
)

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
		StyleClause:    "2D cel-shaded storybook illustration",
		StyleLock:      "consistent cel-shaded style",
		QualitySuffix:  "masterpiece",
		NegativePrompt: "3D, photorealistic",
		LightingHint:   "warm daylight",
	}
}

// noiseImage 各通道在 [20,235] 内均匀随机，足以通过校验
func noiseImage(w, h int, seed uint64) *image.RGBA {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b9))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8(20 + rng.IntN(216)),
				G: uint8(20 + rng.IntN(216)),
				B: uint8(20 + rng.IntN(216)),
				A: 255,
			})
		}
	}
	return img
}

func solidImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 128, G: 128, B: 128, A: 255})
		}
	}
	return img
}

func goodPNG(t *testing.T) []byte {
	t.Helper()
	data, err := imaging.EncodePNG(noiseImage(64, 64, 7))
	require.NoError(t, err)
	return data
}

func badPNG(t *testing.T) []byte {
	t.Helper()
	data, err := imaging.EncodePNG(solidImage(64, 64))
	require.NoError(t, err)
	return data
}

func testValidator() *validation.Validator {
	th := validation.DefaultThresholds()
	th.MinDimension = 32
	return validation.NewValidator(th)
}

func testEnhancer(t *testing.T) *prompt.Enhancer {
	t.Helper()
	e, err := prompt.NewEnhancer(testProfile(), nil, prompt.DefaultOptions())
	require.NoError(t, err)
	return e
}

// fakeGenerator 依次返回脚本化结果，用尽后重复最后一个
type fakeGenerator struct {
	name string

	mu     sync.Mutex
	script []genReply
	calls  []GenerationRequest
}

type genReply struct {
	data []byte
	err  error
}

func (g *fakeGenerator) Name() string { return g.name }

func (g *fakeGenerator) Generate(_ context.Context, req GenerationRequest) ([]byte, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, req)
	if len(g.script) == 0 {
		return nil, errBackendDown
	}
	reply := g.script[0]
	if len(g.script) > 1 {
		g.script = g.script[1:]
	}
	return reply.data, reply.err
}

func (g *fakeGenerator) Calls() []GenerationRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]GenerationRequest(nil), g.calls...)
}

// fakeChain 返回固定内容或错误
type fakeChain struct {
	content string
	err     error
	inputs  []*wfmodel.StoryboardPlanInput
}

func (c *fakeChain) Invoke(_ context.Context, in *wfmodel.StoryboardPlanInput) (*schema.Message, error) {
	c.inputs = append(c.inputs, in)
	if c.err != nil {
		return nil, c.err
	}
	return schema.AssistantMessage(c.content, nil), nil
}
