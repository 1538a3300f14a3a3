// Package model 工作流输入输出
package model

// StoryboardPlanInput 分镜规划链的输入
type StoryboardPlanInput struct {
	Prompt     string
	FrameCount int

	CharacterName string
	Appearance    string
	LightingHint  string
	Morals        []string
	ShotTypes     []string

	Provider string
	Model    string

	Temperature *float32
	MaxTokens   *int
}

// PlannedFrame 模型返回的单帧结构
type PlannedFrame struct {
	Rhyme        string   `json:"rhyme"`
	Moral        string   `json:"moral"`
	ShotType     string   `json:"shot_type"`
	Setting      string   `json:"setting"`
	KeyObjects   []string `json:"key_objects"`
	LightingHint string   `json:"lighting_hint"`
	Description  string   `json:"description"`
}
