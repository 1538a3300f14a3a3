// Package entity 定义领域实体
package entity

import "strings"

// ShotType 镜头类型
type ShotType string

const (
	ShotEstablishing ShotType = "establishing"
	ShotWide         ShotType = "wide"
	ShotMedium       ShotType = "medium"
	ShotTwoShot      ShotType = "two-shot"
	ShotCloseUp      ShotType = "close-up"
	ShotOverShoulder ShotType = "over-shoulder"
)

// ShotTypes 全部已知镜头类型（按叙事景别由远及近）
var ShotTypes = []ShotType{
	ShotEstablishing,
	ShotWide,
	ShotMedium,
	ShotTwoShot,
	ShotCloseUp,
	ShotOverShoulder,
}

// IsKnown 判断是否为已知镜头类型
func (s ShotType) IsKnown() bool {
	for _, known := range ShotTypes {
		if s == known {
			return true
		}
	}
	return false
}

// ParseShotType 宽松解析镜头类型，空值视为 medium
func ParseShotType(raw string) ShotType {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return ShotMedium
	}
	s = strings.ReplaceAll(s, "_", "-")
	switch s {
	case "closeup", "close up":
		return ShotCloseUp
	case "twoshot", "two shot":
		return ShotTwoShot
	case "over shoulder", "overshoulder", "over-the-shoulder":
		return ShotOverShoulder
	}
	return ShotType(s)
}

// Frame 分镜中的一帧
type Frame struct {
	Index        int      `json:"index"`
	Description  string   `json:"description"`
	ShotType     ShotType `json:"shot_type"`
	Setting      string   `json:"setting"`
	KeyObjects   []string `json:"key_objects,omitempty"`
	Dialogue     string   `json:"dialogue,omitempty"`
	Rhyme        string   `json:"rhyme,omitempty"`
	Moral        string   `json:"moral,omitempty"`
	LightingHint string   `json:"lighting_hint,omitempty"`

	// 生成后附加
	ImagePath  string `json:"image_path,omitempty"`
	ImageURL   string `json:"image_url,omitempty"`
	PromptUsed string `json:"prompt_used,omitempty"`
}

// Normalize 填充缺省字段，返回副本
func (f Frame) Normalize() Frame {
	f.Description = strings.TrimSpace(f.Description)
	f.Setting = strings.TrimSpace(f.Setting)
	f.ShotType = ParseShotType(string(f.ShotType))
	return f
}

// Moral 故事寓意
const (
	MoralKindness    = "kindness"
	MoralJustice     = "justice"
	MoralHospitality = "hospitality"
	MoralWisdom      = "wisdom"
	MoralCourage     = "courage"
	MoralGenerosity  = "generosity"
)

// Morals 可选寓意列表
var Morals = []string{
	MoralKindness,
	MoralJustice,
	MoralHospitality,
	MoralWisdom,
	MoralCourage,
	MoralGenerosity,
}
