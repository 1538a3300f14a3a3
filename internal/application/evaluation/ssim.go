package evaluation

import "image"

const (
	ssimWindow = 7
	ssimK1     = 0.01
	ssimK2     = 0.03
	ssimRange  = 255.0
)

// SSIM 7×7 均匀窗口、样本协方差的结构相似度，仅统计完整落在图内的窗口
// 两图尺寸不同时按公共区域计算
func SSIM(a, b *image.Gray) float64 {
	ab, bb := a.Bounds(), b.Bounds()
	w, h := min(ab.Dx(), bb.Dx()), min(ab.Dy(), bb.Dy())
	if w < ssimWindow || h < ssimWindow {
		return 0
	}

	stride := w + 1
	size := stride * (h + 1)
	sx := make([]float64, size)
	sy := make([]float64, size)
	sxx := make([]float64, size)
	syy := make([]float64, size)
	sxy := make([]float64, size)

	for y := 0; y < h; y++ {
		var rx, ry, rxx, ryy, rxy float64
		for x := 0; x < w; x++ {
			px := float64(a.GrayAt(ab.Min.X+x, ab.Min.Y+y).Y)
			py := float64(b.GrayAt(bb.Min.X+x, bb.Min.Y+y).Y)
			rx += px
			ry += py
			rxx += px * px
			ryy += py * py
			rxy += px * py

			i := (y+1)*stride + x + 1
			sx[i] = sx[i-stride] + rx
			sy[i] = sy[i-stride] + ry
			sxx[i] = sxx[i-stride] + rxx
			syy[i] = syy[i-stride] + ryy
			sxy[i] = sxy[i-stride] + rxy
		}
	}

	box := func(t []float64, x0, y0 int) float64 {
		x1, y1 := x0+ssimWindow, y0+ssimWindow
		return t[y1*stride+x1] - t[y0*stride+x1] - t[y1*stride+x0] + t[y0*stride+x0]
	}

	const np = float64(ssimWindow * ssimWindow)
	covNorm := np / (np - 1)
	c1 := (ssimK1 * ssimRange) * (ssimK1 * ssimRange)
	c2 := (ssimK2 * ssimRange) * (ssimK2 * ssimRange)

	var total float64
	var count int
	for y0 := 0; y0+ssimWindow <= h; y0++ {
		for x0 := 0; x0+ssimWindow <= w; x0++ {
			ux := box(sx, x0, y0) / np
			uy := box(sy, x0, y0) / np
			uxx := box(sxx, x0, y0) / np
			uyy := box(syy, x0, y0) / np
			uxy := box(sxy, x0, y0) / np

			vx := covNorm * (uxx - ux*ux)
			vy := covNorm * (uyy - uy*uy)
			vxy := covNorm * (uxy - ux*uy)

			num := (2*ux*uy + c1) * (2*vxy + c2)
			den := (ux*ux + uy*uy + c1) * (vx + vy + c2)
			total += num / den
			count++
		}
	}
	return total / float64(count)
}
