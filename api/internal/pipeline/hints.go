package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/marshmallow3210/patent-drawing-parser/api/internal/ocr"
)

type HintType string

const (
	HintFigureLabel HintType = "figure_label"
	HintComponent   HintType = "component"
)

const (
	minHintConfidence = 20
	maxNumericHint    = 6

	// hint boxes are expressed on a 0..hintScale grid
	hintScale = 1000
)

var (
	reFigureTagPrefix = regexp.MustCompile(`(?i)^FIG[.\s]*\d+`)
	reComponentToken  = regexp.MustCompile(`^\d+[A-Za-z]?['"]{0,2}$`)
)

// Hint is a label candidate found by local OCR. Box is
// [ymin, xmin, ymax, xmax] normalized to 0..1000.
type Hint struct {
	Type HintType `json:"type"`
	Text string   `json:"text"`
	Box  [4]int   `json:"box_2d"`
}

// ExtractHints runs word detection on img and keeps plausible labels.
func ExtractHints(ctx context.Context, detector ocr.Detector, img image.Image) ([]Hint, error) {
	words, err := detector.Words(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("detect words: %w", err)
	}

	b := img.Bounds()

	return FilterHints(words, b.Dx(), b.Dy()), nil
}

// FilterHints keeps confident tokens that look like a figure tag or a
// component label, in detector order. The result is never nil.
func FilterHints(words []ocr.Word, width, height int) []Hint {
	hints := make([]Hint, 0, len(words))

	if width <= 0 || height <= 0 {
		return hints
	}

	for _, w := range words {
		text := strings.TrimSpace(w.Text)

		if text == "" || w.Confidence < minHintConfidence {
			continue
		}

		// "0" is almost always a misread stroke
		if (isDigits(text) && len(text) > maxNumericHint) || text == "0" {
			continue
		}

		var typ HintType
		switch {
		case reFigureTagPrefix.MatchString(text):
			typ = HintFigureLabel
		case reComponentToken.MatchString(text), utf8.RuneCountInString(text) == 1:
			typ = HintComponent
		default:
			continue
		}

		hints = append(hints, Hint{
			Type: typ,
			Text: text,
			Box:  normalizeBox(w.Box, width, height),
		})
	}

	return hints
}

func normalizeBox(r image.Rectangle, width, height int) [4]int {
	return [4]int{
		r.Min.Y * hintScale / height,
		r.Min.X * hintScale / width,
		r.Max.Y * hintScale / height,
		r.Max.X * hintScale / width,
	}
}

func isDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}

// WriteHintLog appends one page block to the diagnostic hint log.
func WriteHintLog(w io.Writer, page int, hints []Hint) error {
	if hints == nil {
		hints = []Hint{}
	}

	body, err := json.MarshalIndent(hints, "", "  ")
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(w, "=== Page %d OCR Hints (Normalized 0-1000) ===\n%s\n\n", page, body)
	return err
}
