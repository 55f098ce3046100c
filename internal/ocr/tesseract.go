package ocr

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/veralux/lectern/pkg/util"
)

// tesseractMinConfidence drops words the engine itself is unsure about.
// Tesseract reports confidence on a 0-100 scale.
const tesseractMinConfidence = 30

// TesseractEngine shells out to the local tesseract binary with a basic
// contrast/sharpness enhancement pass as preprocessing.
type TesseractEngine struct {
	logger  zerolog.Logger
	binary  string
	tempDir string
}

// NewTesseractEngine creates the local OCR fallback.
func NewTesseractEngine(logger zerolog.Logger, binaryPath, tempDir string) *TesseractEngine {
	if binaryPath == "" {
		binaryPath = "tesseract"
	}
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &TesseractEngine{
		logger:  logger.With().Str("engine", "tesseract").Logger(),
		binary:  binaryPath,
		tempDir: tempDir,
	}
}

func (t *TesseractEngine) Name() string { return "tesseract" }

func (t *TesseractEngine) Available() bool {
	_, err := exec.LookPath(t.binary)
	return err == nil
}

// Recognize enhances the frame, feeds it through tesseract's TSV output and
// groups surviving words into line blocks.
func (t *TesseractEngine) Recognize(ctx context.Context, img image.Image) (*Recognition, error) {
	if !t.Available() {
		return nil, ErrEngineUnavailable
	}

	f, err := util.TempFile(t.tempDir, "lectern_ocr_", ".png")
	if err != nil {
		return nil, err
	}
	framePath := f.Name()
	defer util.CleanupFiles(framePath)

	enhanced := enhanceForOCR(img)
	if err := png.Encode(f, enhanced); err != nil {
		f.Close()
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, t.binary, framePath, "stdout", "tsv")
	out, err := cmd.Output()
	if err != nil {
		if ee, ok := err.(*exec.ExitError); ok {
			return nil, fmt.Errorf("tesseract failed: %s", strings.TrimSpace(string(ee.Stderr)))
		}
		return nil, fmt.Errorf("run tesseract: %w", err)
	}

	return parseTesseractTSV(string(out)), nil
}

// parseTesseractTSV converts word-level TSV rows into line blocks. Columns:
// level page block par line word left top width height conf text.
func parseTesseractTSV(output string) *Recognition {
	type lineKey struct{ block, par, line string }
	type lineAgg struct {
		words                  []string
		confSum                float64
		confN                  int
		minX, minY, maxX, maxY int
	}

	lines := make(map[lineKey]*lineAgg)
	var order []lineKey

	for i, row := range strings.Split(output, "\n") {
		if i == 0 {
			continue // header
		}
		cols := strings.Split(row, "\t")
		if len(cols) < 12 || cols[0] != "5" {
			continue
		}
		conf, err := strconv.ParseFloat(cols[10], 64)
		if err != nil || conf < tesseractMinConfidence {
			continue
		}
		word := strings.TrimSpace(cols[11])
		if word == "" {
			continue
		}

		left, _ := strconv.Atoi(cols[6])
		top, _ := strconv.Atoi(cols[7])
		width, _ := strconv.Atoi(cols[8])
		height, _ := strconv.Atoi(cols[9])

		key := lineKey{cols[2], cols[3], cols[4]}
		agg, ok := lines[key]
		if !ok {
			agg = &lineAgg{minX: left, minY: top, maxX: left + width, maxY: top + height}
			lines[key] = agg
			order = append(order, key)
		}
		agg.words = append(agg.words, word)
		agg.confSum += conf
		agg.confN++
		if left < agg.minX {
			agg.minX = left
		}
		if top < agg.minY {
			agg.minY = top
		}
		if left+width > agg.maxX {
			agg.maxX = left + width
		}
		if top+height > agg.maxY {
			agg.maxY = top + height
		}
	}

	rec := &Recognition{Blocks: make([]Block, 0, len(order))}
	var parts []string
	var confSum float64
	for _, key := range order {
		agg := lines[key]
		text := strings.Join(agg.words, " ")
		conf := agg.confSum / float64(agg.confN) / 100.0
		rec.Blocks = append(rec.Blocks, Block{
			Text:       text,
			Confidence: conf,
			X:          agg.minX,
			Y:          agg.minY,
			Width:      agg.maxX - agg.minX,
			Height:     agg.maxY - agg.minY,
		})
		parts = append(parts, text)
		confSum += conf
	}
	rec.Text = strings.Join(parts, "\n")
	if len(order) > 0 {
		rec.Confidence = confSum / float64(len(order))
	}
	return rec
}

// enhanceForOCR applies a linear contrast stretch followed by a light
// sharpening kernel. Glyph edges matter more to the engine than tone.
func enhanceForOCR(img image.Image) *image.Gray {
	bounds := img.Bounds()
	gray := image.NewGray(bounds)

	var lo, hi uint8 = 255, 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			lum := 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(b>>8)
			v := uint8(lum)
			gray.SetGray(x, y, color.Gray{Y: v})
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
	}

	if hi > lo {
		scale := 255.0 / float64(hi-lo)
		for i, v := range gray.Pix {
			s := float64(v-lo) * scale
			if s > 255 {
				s = 255
			}
			gray.Pix[i] = uint8(s)
		}
	}

	return sharpen(gray)
}

// sharpen applies a 3x3 unsharp kernel (center 5, cross -1).
func sharpen(img *image.Gray) *image.Gray {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	out := image.NewGray(img.Bounds())
	copy(out.Pix, img.Pix)

	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			v := 5*int(img.Pix[y*img.Stride+x]) -
				int(img.Pix[(y-1)*img.Stride+x]) -
				int(img.Pix[(y+1)*img.Stride+x]) -
				int(img.Pix[y*img.Stride+x-1]) -
				int(img.Pix[y*img.Stride+x+1])
			if v < 0 {
				v = 0
			}
			if v > 255 {
				v = 255
			}
			out.Pix[y*out.Stride+x] = uint8(v)
		}
	}
	return out
}
