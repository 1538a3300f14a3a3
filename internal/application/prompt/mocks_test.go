package prompt

import (
	"errors"
	"strings"

	"github.com/sapogeth/qylysh-higgsfiled/internal/domain/entity"
)

// wordTokenizer 将每个词与逗号各计为一个 token
type wordTokenizer struct {
	vocab   map[string]int
	reverse []string
}

func newWordTokenizer() *wordTokenizer {
	return &wordTokenizer{vocab: make(map[string]int)}
}

func (w *wordTokenizer) Encode(text string) ([]int, error) {
	fields := strings.Fields(strings.ReplaceAll(text, ",", " , "))
	ids := make([]int, 0, len(fields))
	for _, f := range fields {
		id, ok := w.vocab[f]
		if !ok {
			id = len(w.reverse)
			w.vocab[f] = id
			w.reverse = append(w.reverse, f)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (w *wordTokenizer) Decode(ids []int) (string, error) {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		if id < 0 || id >= len(w.reverse) {
			return "", errors.New("unknown token id")
		}
		parts = append(parts, w.reverse[id])
	}
	return strings.ReplaceAll(strings.Join(parts, " "), " ,", ","), nil
}

// brokenTokenizer 模拟分词器故障
type brokenTokenizer struct{}

func (brokenTokenizer) Encode(string) ([]int, error)  { return nil, errors.New("vocab not loaded") }
func (brokenTokenizer) Decode([]int) (string, error) { return "", errors.New("vocab not loaded") }

func testProfile() entity.CharacterProfile {
	return entity.CharacterProfile{
		Name:           "Aldar Kose",
		DisplayName:    "Aldar Köse",
		TriggerWord:    "aldar_kose_character",
		EyeColor:       "dark brown",
		Hair:           "black hair in a small topknot",
		FacialHair:     "distinct small mustache",
		Clothing:       "orange patterned chapan robe with traditional Kazakh ornaments",
		Hat:            "felt kalpak hat",
		Expression:     "friendly, clever, mischievous",
		StyleClause:    "2D cel-shaded storybook illustration, flat colors, warm palette, Kazakh folk style",
		StyleLock:      "consistent cel-shaded style, clean lineart, consistent line thickness",
		QualitySuffix:  "detailed, masterpiece",
		NegativePrompt: "3D, photorealistic, blue eyes, no hat",
		LightingHint:   "sunlight from the left, warm daylight, soft shadows",
	}
}
