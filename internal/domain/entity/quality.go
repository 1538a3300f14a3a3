package entity

// QualityMetrics 单张生成图与参考图的比对结果
type QualityMetrics struct {
	Provider             string    `json:"provider"`
	CLIPSimilarityAvg    float64   `json:"clip_similarity_avg"`
	CLIPSimilarityMax    float64   `json:"clip_similarity_max"`
	FeatureMatchingScore float64   `json:"feature_matching_score"`
	SSIMAvg              float64   `json:"ssim_avg"`
	QualityScore         float64   `json:"quality_score"`
	IndividualCLIPScores []float64 `json:"individual_clip_scores"`
	IndividualSSIMScores []float64 `json:"individual_ssim_scores"`
}

// RankEntry 排名条目
type RankEntry struct {
	Provider     string  `json:"provider"`
	QualityScore float64 `json:"quality_score"`
}

// ComparisonReport 多生成方对比报告
type ComparisonReport struct {
	Comparisons  map[string]QualityMetrics `json:"comparisons"`
	Ranking      []RankEntry               `json:"ranking"`
	BestProvider string                    `json:"best_provider"`
	BestScore    float64                   `json:"best_score"`
}

// Priority 建议优先级
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// FeedbackArea 反馈维度
type FeedbackArea string

const (
	AreaCLIPSimilarity       FeedbackArea = "clip_similarity"
	AreaFeatureMatching      FeedbackArea = "feature_matching"
	AreaStructuralSimilarity FeedbackArea = "structural_similarity"
	AreaTraining             FeedbackArea = "training"
)

// Recommendation 单条改进建议
type Recommendation struct {
	Area     FeedbackArea `json:"area"`
	Message  string       `json:"message"`
	Priority Priority     `json:"priority"`
}

// Feedback 候选生成方相对最佳竞争者的改进反馈
type Feedback struct {
	CandidateScore   float64          `json:"lora_score"`
	BestCompetitor   string           `json:"best_competitor"`
	CompetitorScore  float64          `json:"competitor_score"`
	ScoreGap         float64          `json:"score_gap"`
	NeedsImprovement bool             `json:"needs_improvement"`
	Recommendations  []Recommendation `json:"recommendations"`
}
