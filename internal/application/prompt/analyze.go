package prompt

import (
	"strings"

	"github.com/sapogeth/qylysh-higgsfiled/internal/domain/entity"
)

// AnalyzeQuality 评估提示词是否覆盖触发词、风格、文化元素与光照
func (e *Enhancer) AnalyzeQuality(prompt string) entity.PromptQuality {
	lower := strings.ToLower(prompt)
	words := len(strings.Fields(prompt))

	q := entity.PromptQuality{
		Length:              len([]rune(prompt)),
		WordCount:           words,
		TokenCount:          e.estimator.Count(prompt),
		HasCharacterTrigger: e.profile.TriggerWord != "" && strings.Contains(prompt, e.profile.TriggerWord),
		HasStyleKeywords:    containsAny(lower, styleKeywords),
		HasCulturalElements: containsAny(lower, culturalKeywords),
		HasLighting:         containsAny(lower, lightingKeywords),
	}

	if q.HasCharacterTrigger {
		q.QualityScore += 30
	}
	if q.HasStyleKeywords {
		q.QualityScore += 20
	}
	if q.HasCulturalElements {
		q.QualityScore += 20
	}
	if q.HasLighting {
		q.QualityScore += 10
	}
	if words >= 50 && words <= 150 {
		q.QualityScore += 20
	}
	return q
}

// ExtractKeyElements 按关键词表抽取角色、物件、地点与动作
func ExtractKeyElements(description string) entity.KeyElements {
	lower := strings.ToLower(description)
	return entity.KeyElements{
		Characters: matchedKeywords(lower, characterElementKeywords),
		Objects:    matchedKeywords(lower, objectElementKeywords),
		Locations:  matchedKeywords(lower, locationElementKeywords),
		Actions:    matchedKeywords(lower, actionElementKeywords),
	}
}

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}

func matchedKeywords(text string, keywords []string) []string {
	out := []string{}
	for _, k := range keywords {
		if strings.Contains(text, k) {
			out = append(out, k)
		}
	}
	return out
}
