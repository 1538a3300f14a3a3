package entity

// ValidationMetrics 单图质量校验结果
type ValidationMetrics struct {
	Corrupted    bool     `json:"corrupted"`
	Width        int      `json:"width"`
	Height       int      `json:"height"`
	Sharpness    float64  `json:"sharpness"`
	Brightness   float64  `json:"brightness"`
	Contrast     float64  `json:"contrast"`
	Monochrome   bool     `json:"monochrome"`
	HasArtifacts bool     `json:"has_artifacts"`
	Issues       []string `json:"issues"`
	IsValid      bool     `json:"is_valid"`
}

// AddIssue 记录问题
func (m *ValidationMetrics) AddIssue(issue string) {
	m.Issues = append(m.Issues, issue)
}
