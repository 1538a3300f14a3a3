package evaluation

import (
	"fmt"

	"github.com/sapogeth/qylysh-higgsfiled/internal/domain/entity"
)

// FeedbackThresholds 建议优先级阈值
type FeedbackThresholds struct {
	HighGap     float64
	SSIMGap     float64
	TrainingGap float64
}

// DefaultFeedbackThresholds 默认阈值
func DefaultFeedbackThresholds() FeedbackThresholds {
	return FeedbackThresholds{HighGap: 0.1, SSIMGap: 0.05, TrainingGap: 0.15}
}

func (t FeedbackThresholds) withDefaults() FeedbackThresholds {
	d := DefaultFeedbackThresholds()
	if t.HighGap <= 0 {
		t.HighGap = d.HighGap
	}
	if t.SSIMGap <= 0 {
		t.SSIMGap = d.SSIMGap
	}
	if t.TrainingGap <= 0 {
		t.TrainingGap = d.TrainingGap
	}
	return t
}

// GenerateFeedback 对比候选生成方与最佳竞争者，候选方落后时逐项给出建议
func (c *Comparator) GenerateFeedback(candidate, competitor entity.QualityMetrics, competitorName string) entity.Feedback {
	return BuildFeedback(candidate, competitor, competitorName, c.feedback)
}

// BuildFeedback 同 GenerateFeedback，阈值显式传入
func BuildFeedback(candidate, competitor entity.QualityMetrics, competitorName string, th FeedbackThresholds) entity.Feedback {
	th = th.withDefaults()
	fb := entity.Feedback{
		CandidateScore:   candidate.QualityScore,
		BestCompetitor:   competitorName,
		CompetitorScore:  competitor.QualityScore,
		ScoreGap:         competitor.QualityScore - candidate.QualityScore,
		NeedsImprovement: competitor.QualityScore > candidate.QualityScore,
		Recommendations:  []entity.Recommendation{},
	}
	if !fb.NeedsImprovement {
		return fb
	}

	if gap := competitor.CLIPSimilarityAvg - candidate.CLIPSimilarityAvg; gap > 0 {
		fb.Recommendations = append(fb.Recommendations, entity.Recommendation{
			Area:     entity.AreaCLIPSimilarity,
			Message:  fmt.Sprintf("improve semantic similarity to the references (behind by %.3f)", gap),
			Priority: priority(gap, th.HighGap, entity.PriorityHigh, entity.PriorityMedium),
		})
	}
	if gap := competitor.FeatureMatchingScore - candidate.FeatureMatchingScore; gap > 0 {
		fb.Recommendations = append(fb.Recommendations, entity.Recommendation{
			Area:     entity.AreaFeatureMatching,
			Message:  fmt.Sprintf("improve matching of key character features (behind by %.3f)", gap),
			Priority: priority(gap, th.HighGap, entity.PriorityHigh, entity.PriorityMedium),
		})
	}
	if gap := competitor.SSIMAvg - candidate.SSIMAvg; gap > 0 {
		fb.Recommendations = append(fb.Recommendations, entity.Recommendation{
			Area:     entity.AreaStructuralSimilarity,
			Message:  fmt.Sprintf("improve structural similarity (behind by %.3f)", gap),
			Priority: priority(gap, th.SSIMGap, entity.PriorityMedium, entity.PriorityLow),
		})
	}
	if fb.ScoreGap > th.TrainingGap {
		fb.Recommendations = append(fb.Recommendations, entity.Recommendation{
			Area:     entity.AreaTraining,
			Message:  "increase training steps or adjust the learning rate",
			Priority: entity.PriorityHigh,
		})
	}
	return fb
}

func priority(gap, threshold float64, above, below entity.Priority) entity.Priority {
	if gap > threshold {
		return above
	}
	return below
}
