package evaluation

import (
	"errors"
	"math"
)

var errZeroVector = errors.New("embedding has zero norm")

// normalize 返回单位向量副本
func normalize(v []float64) ([]float64, error) {
	var sq float64
	for _, x := range v {
		sq += x * x
	}
	if sq == 0 || math.IsNaN(sq) {
		return nil, errZeroVector
	}
	n := math.Sqrt(sq)
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = x / n
	}
	return out, nil
}

// dot 单位向量点积即余弦相似度
func dot(a, b []float64) float64 {
	n := min(len(a), len(b))
	var s float64
	for i := 0; i < n; i++ {
		s += a[i] * b[i]
	}
	return s
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var s float64
	for _, x := range xs {
		s += x
	}
	return s / float64(len(xs))
}

func maxOf(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := xs[0]
	for _, x := range xs[1:] {
		if x > m {
			m = x
		}
	}
	return m
}

// ToFloat32 向量库存储用
func ToFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}
