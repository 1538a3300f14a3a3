package config

import "github.com/sapogeth/qylysh-higgsfiled/internal/domain/entity"

// 默认风格与负向提示词
const (
	DefaultStyleClause = "2D cel-shaded storybook illustration, flat colors, Kazakh folk style"
	DefaultStyleLock   = "consistent cel-shaded style, clean lineart, consistent line thickness"

	DefaultNegativePrompt = "3D, CGI, photorealistic, realistic, ray tracing, render, Unreal, Octane, 8k, HDR, " +
		"hyper-detailed skin, glossy plastic look, harsh specular highlights, lens flare, depth of field, " +
		"modern clothes, text, watermark, caption, logo, signature, blurry, ugly, deformed, extra limbs, duplicate, " +
		"blue eyes, green eyes, grey eyes, blonde hair, white hair, red hair, no hat, missing hat, different hat, " +
		"different clothing, wrong robe color, western clothing, jeans, t-shirt"
)

// DefaultCharacter 内置角色设定
// 无分词器时按 4 字符/token 估算，身份与风格子句需给 15 词场景和镜头标签留出预算
func DefaultCharacter() CharacterConfig {
	return CharacterConfig{
		Name:           "Aldar Kose",
		DisplayName:    "Aldar Köse",
		TriggerWord:    "aldar_kose_character",
		EyeColor:       "dark brown",
		Hair:           "black hair in a small topknot",
		FacialHair:     "distinct small mustache",
		Clothing:       "orange chapan robe",
		Hat:            "felt kalpak hat",
		Expression:     "friendly, clever, mischievous",
		StyleClause:    DefaultStyleClause,
		StyleLock:      DefaultStyleLock,
		QualitySuffix:  "detailed, masterpiece",
		NegativePrompt: DefaultNegativePrompt,
		LightingHint:   "sunlight from the left, warm daylight, soft shadows",
	}
}

// Profile 转换为领域层只读角色设定
func (c CharacterConfig) Profile() entity.CharacterProfile {
	return entity.CharacterProfile{
		Name:           c.Name,
		DisplayName:    c.DisplayName,
		TriggerWord:    c.TriggerWord,
		EyeColor:       c.EyeColor,
		Hair:           c.Hair,
		FacialHair:     c.FacialHair,
		Clothing:       c.Clothing,
		Hat:            c.Hat,
		Expression:     c.Expression,
		StyleClause:    c.StyleClause,
		StyleLock:      c.StyleLock,
		QualitySuffix:  c.QualitySuffix,
		NegativePrompt: c.NegativePrompt,
		LightingHint:   c.LightingHint,
	}
}
