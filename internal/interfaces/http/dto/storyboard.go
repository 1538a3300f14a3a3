package dto

// CreateStoryboardRequest 分镜生成请求
type CreateStoryboardRequest struct {
	Story      string `json:"story" binding:"required"`
	FrameCount int    `json:"frame_count"`
	Provider   string `json:"provider"`
}
