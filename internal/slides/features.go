package slides

import (
	"image"
	"math"
)

// Heuristic constants calibrated against slide-style footage.
const (
	// edgeMagnitudeThreshold marks a Sobel gradient magnitude as an edge.
	edgeMagnitudeThreshold = 200.0
	// textGradientThreshold binarizes the morphological gradient; pixels
	// above it belong to fine high-contrast structures, a proxy for glyphs.
	textGradientThreshold = 30
)

// backgroundUniformity is 1 for a perfectly flat background and falls
// toward 0 as intensity variance grows.
func backgroundUniformity(img *image.Gray) float64 {
	bounds := img.Bounds()
	n := float64(bounds.Dx() * bounds.Dy())
	if n == 0 {
		return 0
	}

	var sum, sqSum float64
	for y := 0; y < bounds.Dy(); y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+bounds.Dx()]
		for _, v := range row {
			f := float64(v)
			sum += f
			sqSum += f * f
		}
	}

	mean := sum / n
	variance := sqSum/n - mean*mean
	if variance < 0 {
		variance = 0
	}
	stdDev := math.Sqrt(variance)

	u := 1.0 - stdDev/128.0
	if u < 0 {
		return 0
	}
	return u
}

// edgeMap holds the Sobel pass output: a binary edge mask plus the raw
// gradients, which the circle detector reuses for vote directions.
type edgeMap struct {
	w, h  int
	edges []bool
	gradX []float64
	gradY []float64
}

func (m *edgeMap) at(x, y int) bool {
	return m.edges[y*m.w+x]
}

// sobelEdges runs a 3x3 Sobel operator and thresholds gradient magnitude.
func sobelEdges(img *image.Gray) *edgeMap {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	m := &edgeMap{
		w:     w,
		h:     h,
		edges: make([]bool, w*h),
		gradX: make([]float64, w*h),
		gradY: make([]float64, w*h),
	}

	px := func(x, y int) float64 {
		return float64(img.Pix[y*img.Stride+x])
	}

	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			gx := -px(x-1, y-1) + px(x+1, y-1) +
				-2*px(x-1, y) + 2*px(x+1, y) +
				-px(x-1, y+1) + px(x+1, y+1)
			gy := -px(x-1, y-1) - 2*px(x, y-1) - px(x+1, y-1) +
				px(x-1, y+1) + 2*px(x, y+1) + px(x+1, y+1)

			i := y*w + x
			m.gradX[i] = gx
			m.gradY[i] = gy
			if math.Hypot(gx, gy) >= edgeMagnitudeThreshold {
				m.edges[i] = true
			}
		}
	}
	return m
}

// density returns the fraction of pixels marked as edges.
func (m *edgeMap) density() float64 {
	if m.w*m.h == 0 {
		return 0
	}
	count := 0
	for _, e := range m.edges {
		if e {
			count++
		}
	}
	return float64(count) / float64(m.w*m.h)
}

// textDensity estimates the fraction of pixels belonging to glyph-like
// structures via a 3x3 morphological gradient (dilation minus erosion)
// thresholded at a fixed level.
func textDensity(img *image.Gray) float64 {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w*h == 0 {
		return 0
	}

	count := 0
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var lo, hi uint8 = 255, 0
			for dy := -1; dy <= 1; dy++ {
				yy := y + dy
				if yy < 0 || yy >= h {
					continue
				}
				for dx := -1; dx <= 1; dx++ {
					xx := x + dx
					if xx < 0 || xx >= w {
						continue
					}
					v := img.Pix[yy*img.Stride+xx]
					if v < lo {
						lo = v
					}
					if v > hi {
						hi = v
					}
				}
			}
			if int(hi)-int(lo) > textGradientThreshold {
				count++
			}
		}
	}
	return float64(count) / float64(w*h)
}
