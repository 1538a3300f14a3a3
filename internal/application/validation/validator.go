// Package validation 对生成图做轻量质量校验，决定是否需要重新生成
package validation

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/sapogeth/qylysh-higgsfiled/internal/domain/entity"
	"github.com/sapogeth/qylysh-higgsfiled/pkg/imaging"
	"github.com/sapogeth/qylysh-higgsfiled/pkg/metrics"
)

// Thresholds 质量门限
type Thresholds struct {
	MinDimension       int
	MinSharpness       float64
	MinContrast        float64
	MinChannelStd      float64
	MaxExtremeFraction float64
	MaxPixels          int
}

// DefaultThresholds 默认门限
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinDimension:       512,
		MinSharpness:       50,
		MinContrast:        30,
		MinChannelStd:      10,
		MaxExtremeFraction: 0.3,
		MaxPixels:          imaging.DefaultMaxPixels,
	}
}

func (t Thresholds) withDefaults() Thresholds {
	d := DefaultThresholds()
	if t.MinDimension <= 0 {
		t.MinDimension = d.MinDimension
	}
	if t.MinSharpness <= 0 {
		t.MinSharpness = d.MinSharpness
	}
	if t.MinContrast <= 0 {
		t.MinContrast = d.MinContrast
	}
	if t.MinChannelStd <= 0 {
		t.MinChannelStd = d.MinChannelStd
	}
	if t.MaxExtremeFraction <= 0 {
		t.MaxExtremeFraction = d.MaxExtremeFraction
	}
	if t.MaxPixels <= 0 {
		t.MaxPixels = d.MaxPixels
	}
	return t
}

// 近黑/近白像素判定
const (
	blackLevel = 10
	whiteLevel = 245
)

// Validator 质量校验器，无状态
type Validator struct {
	th Thresholds
}

// NewValidator 创建校验器，零值门限取默认值
func NewValidator(th Thresholds) *Validator {
	return &Validator{th: th.withDefaults()}
}

// Thresholds 当前门限
func (v *Validator) Thresholds() Thresholds { return v.th }

// Validate 解码并校验图像字节；解码失败或超出像素上限视为损坏，不返回错误
func (v *Validator) Validate(data []byte) (bool, entity.ValidationMetrics) {
	img, _, err := imaging.DecodeLimited(data, v.th.MaxPixels)
	if errors.Is(err, imaging.ErrImageTooLarge) {
		ok, m := v.corrupted()
		m.AddIssue(fmt.Sprintf("image exceeds %d pixels", v.th.MaxPixels))
		return ok, m
	}
	if err != nil {
		return v.corrupted()
	}
	return v.ValidateImage(img)
}

// ValidateImage 按顺序执行尺寸、清晰度、对比度、单色与伪影检查
func (v *Validator) ValidateImage(img image.Image) (bool, entity.ValidationMetrics) {
	if img == nil || img.Bounds().Empty() {
		return v.corrupted()
	}

	b := img.Bounds()
	m := entity.ValidationMetrics{
		Width:  b.Dx(),
		Height: b.Dy(),
		Issues: []string{},
	}
	s := measure(img)

	if m.Width < v.th.MinDimension || m.Height < v.th.MinDimension {
		m.AddIssue(fmt.Sprintf("image too small: %dx%d", m.Width, m.Height))
	}

	m.Sharpness = s.sharpness
	if m.Sharpness < v.th.MinSharpness {
		m.AddIssue(fmt.Sprintf("image too blurry: sharpness %.1f < %.0f", m.Sharpness, v.th.MinSharpness))
	}

	m.Brightness = s.brightness
	m.Contrast = s.contrast
	if m.Contrast < v.th.MinContrast {
		m.AddIssue(fmt.Sprintf("low contrast: %.1f < %.0f", m.Contrast, v.th.MinContrast))
	}

	for _, std := range s.channelStd {
		if std < v.th.MinChannelStd {
			m.Monochrome = true
			break
		}
	}
	if m.Monochrome {
		m.AddIssue("image appears to be monochrome or failed")
	}

	if s.blackFraction > v.th.MaxExtremeFraction || s.whiteFraction > v.th.MaxExtremeFraction {
		m.HasArtifacts = true
		m.AddIssue("detected visual artifacts")
	}

	m.IsValid = len(m.Issues) == 0
	v.observe(m)
	return m.IsValid, m
}

func (v *Validator) corrupted() (bool, entity.ValidationMetrics) {
	m := entity.ValidationMetrics{Corrupted: true}
	m.AddIssue("image file is corrupted")
	metrics.ValidationTotal.WithLabelValues("corrupted").Inc()
	metrics.ValidationScore.Observe(0)
	return false, m
}

func (v *Validator) observe(m entity.ValidationMetrics) {
	status := "invalid"
	if m.IsValid {
		status = "valid"
	}
	metrics.ValidationTotal.WithLabelValues(status).Inc()
	metrics.ValidationScore.Observe(v.QualityScore(m))
}

// ShouldRegenerate 未通过校验即需重新生成，次数上限由调用方控制
func (v *Validator) ShouldRegenerate(m entity.ValidationMetrics) bool {
	return !m.IsValid
}

// QualityScore 0-100 的质量分
func (v *Validator) QualityScore(m entity.ValidationMetrics) float64 {
	if m.Corrupted {
		return 0
	}
	score := 100.0
	if m.Monochrome {
		score -= 40
	}
	if m.HasArtifacts {
		score -= 20
	}
	if m.Sharpness < v.th.MinSharpness {
		score -= (v.th.MinSharpness - m.Sharpness) / 2
	}
	if m.Contrast < v.th.MinContrast {
		score -= v.th.MinContrast - m.Contrast
	}
	return math.Max(0, math.Min(100, score))
}

// stats 单次遍历得到的像素统计
type stats struct {
	sharpness     float64
	brightness    float64
	contrast      float64
	channelStd    [3]float64
	blackFraction float64
	whiteFraction float64
}

func measure(img image.Image) stats {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	n := float64(w * h)

	gray := make([]float64, w*h)
	var (
		sum, sumSq      [3]float64
		graySum, graySq float64
		blacks, whites  int
	)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			ch := [3]float64{float64(c.R), float64(c.G), float64(c.B)}
			for i, val := range ch {
				sum[i] += val
				sumSq[i] += val * val
			}
			g := float64(color.GrayModel.Convert(color.NRGBA{R: c.R, G: c.G, B: c.B, A: 255}).(color.Gray).Y)
			gray[y*w+x] = g
			graySum += g
			graySq += g * g

			if c.R < blackLevel && c.G < blackLevel && c.B < blackLevel {
				blacks++
			}
			if c.R > whiteLevel && c.G > whiteLevel && c.B > whiteLevel {
				whites++
			}
		}
	}

	var s stats
	s.brightness = graySum / n
	s.contrast = stddev(graySum, graySq, n)
	for i := range sum {
		s.channelStd[i] = stddev(sum[i], sumSq[i], n)
	}
	s.blackFraction = float64(blacks) / n
	s.whiteFraction = float64(whites) / n
	s.sharpness = gradientMean(gray, w, h)
	return s
}

// gradientMean 纵向与横向相邻像素绝对差均值之和
func gradientMean(gray []float64, w, h int) float64 {
	var total float64
	if h > 1 {
		var sum float64
		for y := 1; y < h; y++ {
			for x := 0; x < w; x++ {
				sum += math.Abs(gray[y*w+x] - gray[(y-1)*w+x])
			}
		}
		total += sum / float64((h-1)*w)
	}
	if w > 1 {
		var sum float64
		for y := 0; y < h; y++ {
			for x := 1; x < w; x++ {
				sum += math.Abs(gray[y*w+x] - gray[y*w+x-1])
			}
		}
		total += sum / float64(h*(w-1))
	}
	return total
}

func stddev(sum, sumSq, n float64) float64 {
	mean := sum / n
	v := sumSq/n - mean*mean
	if v < 0 {
		return 0
	}
	return math.Sqrt(v)
}
