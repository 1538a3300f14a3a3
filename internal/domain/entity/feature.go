package entity

// FeatureMatch 单一类别的最佳匹配
type FeatureMatch struct {
	TopMatch     string          `json:"top_match"`
	Confidence   float64         `json:"confidence"`
	Alternatives []FeatureOption `json:"alternatives"`
}

// FeatureOption 候选特征及其置信度
type FeatureOption struct {
	Feature    string  `json:"feature"`
	Confidence float64 `json:"confidence"`
}

// ImageFeatures 单张图像按类别的分析结果
type ImageFeatures map[string]FeatureMatch

// AggregatedFeature 多图聚合后的类别特征
type AggregatedFeature struct {
	Feature       string      `json:"feature"`
	Appearances   int         `json:"appearances"`
	AvgConfidence float64     `json:"avg_confidence"`
	AllDetections []Detection `json:"all_detections"`
}

// Detection 聚合中的一次特征出现统计
type Detection struct {
	Feature       string  `json:"feature"`
	Count         int     `json:"count"`
	AvgConfidence float64 `json:"avg_confidence"`
}
