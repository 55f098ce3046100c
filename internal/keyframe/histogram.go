package keyframe

import (
	"image"
	"image/color"
	"math"
)

// histogram is a 256-bin intensity histogram, min-max normalized to [0,1].
type histogram [256]float64

// intensityHistogram computes the normalized histogram of a grayscale frame.
func intensityHistogram(img *image.Gray) histogram {
	var counts [256]float64
	bounds := img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		row := img.Pix[(y-bounds.Min.Y)*img.Stride : (y-bounds.Min.Y)*img.Stride+bounds.Dx()]
		for _, v := range row {
			counts[v]++
		}
	}

	lo, hi := counts[0], counts[0]
	for _, c := range counts[1:] {
		if c < lo {
			lo = c
		}
		if c > hi {
			hi = c
		}
	}

	var h histogram
	if hi > lo {
		for i, c := range counts {
			h[i] = (c - lo) / (hi - lo)
		}
	}
	return h
}

// correlation is the standard normalized cross-correlation of two
// histograms: 1.0 for identical distributions, near 0 for unrelated ones.
func correlation(a, b histogram) float64 {
	var meanA, meanB float64
	for i := range a {
		meanA += a[i]
		meanB += b[i]
	}
	meanA /= float64(len(a))
	meanB /= float64(len(b))

	var num, denA, denB float64
	for i := range a {
		da := a[i] - meanA
		db := b[i] - meanB
		num += da * db
		denA += da * da
		denB += db * db
	}

	den := math.Sqrt(denA * denB)
	if den == 0 {
		if a == b {
			return 1.0
		}
		return 0.0
	}
	return num / den
}

// perceptualDiff scores how different two sampled frames look, in [0,1].
// 0 means identical intensity distributions.
func perceptualDiff(prev, cur histogram) float64 {
	d := 1.0 - correlation(prev, cur)
	if d < 0 {
		return 0
	}
	if d > 1 {
		return 1
	}
	return d
}

// toGray converts a decoded frame to single-channel intensity using the
// usual luminance weights.
func toGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	bounds := img.Bounds()
	gray := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			lum := 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(b>>8)
			if lum > 255 {
				lum = 255
			}
			gray.SetGray(x, y, color.Gray{Y: uint8(lum)})
		}
	}
	return gray
}
