package entity

// EnhancedPrompt 增强后的正/负向提示词
type EnhancedPrompt struct {
	Positive string `json:"positive"`
	Negative string `json:"negative"`
}

// PromptPath 提示词构建路径
type PromptPath string

const (
	PromptPathEnglish    PromptPath = "english"
	PromptPathNonEnglish PromptPath = "non_english"
)

// PromptQuality 提示词质量分析结果
type PromptQuality struct {
	Length              int  `json:"length"`
	WordCount           int  `json:"word_count"`
	TokenCount          int  `json:"token_count"`
	HasCharacterTrigger bool `json:"has_character_trigger"`
	HasStyleKeywords    bool `json:"has_style_keywords"`
	HasCulturalElements bool `json:"has_cultural_elements"`
	HasLighting         bool `json:"has_lighting"`
	QualityScore        int  `json:"quality_score"`
}

// KeyElements 描述中的关键视觉元素
type KeyElements struct {
	Characters []string `json:"characters"`
	Objects    []string `json:"objects"`
	Locations  []string `json:"locations"`
	Actions    []string `json:"actions"`
}
