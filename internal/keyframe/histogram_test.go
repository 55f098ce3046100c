package keyframe

import (
	"image"
	"image/color"
	"testing"
)

func flatGray(w, h int, v uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = v
	}
	return img
}

func TestPerceptualDiffIdenticalFrames(t *testing.T) {
	a := intensityHistogram(flatGray(64, 48, 128))
	b := intensityHistogram(flatGray(64, 48, 128))

	if diff := perceptualDiff(a, b); diff != 0.0 {
		t.Errorf("identical frames: diff = %v, want 0.0", diff)
	}
}

func TestPerceptualDiffDisjointFrames(t *testing.T) {
	a := intensityHistogram(flatGray(64, 48, 32))
	b := intensityHistogram(flatGray(64, 48, 224))

	if diff := perceptualDiff(a, b); diff < 0.9 {
		t.Errorf("disjoint frames: diff = %v, want near 1.0", diff)
	}
}

func TestPerceptualDiffRange(t *testing.T) {
	grad := image.NewGray(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			grad.Pix[y*grad.Stride+x] = uint8(x * 4)
		}
	}
	a := intensityHistogram(grad)
	b := intensityHistogram(flatGray(64, 64, 128))

	diff := perceptualDiff(a, b)
	if diff < 0 || diff > 1 {
		t.Errorf("diff = %v, want within [0,1]", diff)
	}
}

func TestToGrayLuminance(t *testing.T) {
	rgb := image.NewRGBA(image.Rect(0, 0, 2, 1))
	rgb.Set(0, 0, color.White)
	rgb.Set(1, 0, color.Black)

	gray := toGray(rgb)
	if got := gray.GrayAt(0, 0).Y; got != 255 {
		t.Errorf("white pixel = %d, want 255", got)
	}
	if got := gray.GrayAt(1, 0).Y; got != 0 {
		t.Errorf("black pixel = %d, want 0", got)
	}
}
