package pipeline

import (
	"context"
	"fmt"
	"image"
	"regexp"

	"github.com/marshmallow3210/patent-drawing-parser/api/internal/imaging"
	"github.com/marshmallow3210/patent-drawing-parser/api/internal/ocr"
)

var reFigureTag = regexp.MustCompile(`(?i)FIG[.\s]*\d+`)

// rotationAngles is the evaluation order; earlier angles win ties.
var rotationAngles = [...]int{0, 90, 180, 270}

const (
	rotationProxySide = 1000

	// once an orientation shows this many figure tags the remaining
	// angles are not evaluated
	rotationEarlyExit = 2
)

// Corrector finds the upright orientation of a page by counting figure tags
// recognized at each quarter turn.
type Corrector struct {
	detector ocr.Detector
}

func NewCorrector(detector ocr.Detector) *Corrector {
	return &Corrector{detector: detector}
}

// Correct returns img turned to its best orientation together with the
// counter-clockwise angle applied. For angle 0 img is returned unchanged.
func (c *Corrector) Correct(ctx context.Context, img image.Image) (image.Image, int, error) {
	proxy := imaging.Thumbnail(img, rotationProxySide)

	best, bestCount := 0, -1

	for _, angle := range rotationAngles {
		candidate := proxy

		if angle != 0 {
			rotated, err := imaging.Rotate(proxy, angle)
			if err != nil {
				return nil, 0, err
			}
			candidate = rotated
		}

		text, err := c.detector.Text(ctx, candidate)
		if err != nil {
			return nil, 0, fmt.Errorf("detect text at %d degrees: %w", angle, err)
		}

		count := CountFigureTags(text)

		if count > bestCount {
			best, bestCount = angle, count
		}

		if count >= rotationEarlyExit {
			break
		}
	}

	if best == 0 {
		return img, 0, nil
	}

	rotated, err := imaging.Rotate(img, best)
	if err != nil {
		return nil, 0, err
	}

	return rotated, best, nil
}

// CountFigureTags counts "FIG 3" style tags in text, case-insensitively.
func CountFigureTags(text string) int {
	return len(reFigureTag.FindAllStringIndex(text, -1))
}
