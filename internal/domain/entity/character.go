package entity

import (
	"fmt"
	"strings"
)

// CharacterProfile 固定角色的视觉设定，进程内只读
type CharacterProfile struct {
	Name           string `json:"name"`
	DisplayName    string `json:"display_name"`
	TriggerWord    string `json:"trigger_word"`
	EyeColor       string `json:"eye_color"`
	Hair           string `json:"hair"`
	FacialHair     string `json:"facial_hair"`
	Clothing       string `json:"clothing"`
	Hat            string `json:"hat"`
	Expression     string `json:"expression"`
	StyleClause    string `json:"style_clause"`
	StyleLock      string `json:"style_lock"`
	QualitySuffix  string `json:"quality_suffix"`
	NegativePrompt string `json:"negative_prompt"`
	LightingHint   string `json:"lighting_hint"`
}

// label 优先使用带变音符的展示名
func (p CharacterProfile) label() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return p.Name
}

// EyePhrase 眼睛描述
func (p CharacterProfile) EyePhrase() string {
	if p.EyeColor == "" {
		return ""
	}
	return p.EyeColor + " eyes"
}

// IdentityClause 构建角色身份子句
func (p CharacterProfile) IdentityClause() string {
	parts := make([]string, 0, 6)
	for _, s := range []string{p.label(), p.EyePhrase(), p.Hair, p.FacialHair} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	if p.Clothing != "" {
		parts = append(parts, fmt.Sprintf("wearing %s", p.Clothing))
	}
	if p.Hat != "" {
		parts = append(parts, p.Hat)
	}
	return strings.Join(parts, ", ")
}

// IdentityMarkers 每个英文提示词必须原样包含的身份标记
func (p CharacterProfile) IdentityMarkers() []string {
	markers := make([]string, 0, 3)
	for _, s := range []string{p.EyePhrase(), p.Hair, p.FacialHair} {
		if s != "" {
			markers = append(markers, s)
		}
	}
	return markers
}

// Validate 检查必填字段
func (p CharacterProfile) Validate() error {
	if p.label() == "" {
		return fmt.Errorf("character name is required")
	}
	if p.StyleClause == "" {
		return fmt.Errorf("style clause is required")
	}
	if p.NegativePrompt == "" {
		return fmt.Errorf("negative prompt is required")
	}
	return nil
}
