// Package tesseract implements ocr.Detector with the Tesseract engine via
// gosseract. Tesseract must be installed on the host:
//
//	apt-get install tesseract-ocr libtesseract-dev
package tesseract

import (
	"context"
	"fmt"
	"image"
	"strconv"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/marshmallow3210/patent-drawing-parser/api/internal/imaging"
	"github.com/marshmallow3210/patent-drawing-parser/api/internal/ocr"
)

var _ ocr.Detector = (*Engine)(nil)

// DefaultDPI is the resolution hint passed to Tesseract for every image.
const DefaultDPI = 300

// Engine runs Tesseract in sparse text mode.
type Engine struct {
	languages []string
	dpi       int

	clientFactory func() *gosseract.Client
}

// New returns an engine for the given languages ("eng" when empty).
func New(languages ...string) *Engine {
	if len(languages) == 0 {
		languages = []string{"eng"}
	}

	return &Engine{
		languages: languages,
		dpi:       DefaultDPI,

		clientFactory: gosseract.NewClient,
	}
}

func (e *Engine) Name() string { return "tesseract" }

// Text returns the full sparse-mode text of img.
func (e *Engine) Text(ctx context.Context, img image.Image) (string, error) {
	c, err := e.client(ctx, img)
	if err != nil {
		return "", err
	}
	defer c.Close()

	text, err := c.Text()
	if err != nil {
		return "", fmt.Errorf("tesseract text: %w", err)
	}

	return text, nil
}

// Words returns word level boxes of img.
func (e *Engine) Words(ctx context.Context, img image.Image) ([]ocr.Word, error) {
	c, err := e.client(ctx, img)
	if err != nil {
		return nil, err
	}
	defer c.Close()

	boxes, err := c.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, fmt.Errorf("tesseract boxes: %w", err)
	}

	words := make([]ocr.Word, 0, len(boxes))

	for _, b := range boxes {
		words = append(words, ocr.Word{
			Text:       strings.TrimSpace(b.Word),
			Confidence: b.Confidence,
			Box:        b.Box,
		})
	}

	return words, nil
}

// client prepares a fresh gosseract client loaded with img; clients are not
// safe for concurrent use.
func (e *Engine) client(ctx context.Context, img image.Image) (*gosseract.Client, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := imaging.EncodePNG(img)
	if err != nil {
		return nil, err
	}

	c := e.clientFactory()

	if err := c.SetLanguage(e.languages...); err != nil {
		c.Close()
		return nil, fmt.Errorf("set languages: %w", err)
	}

	if err := c.SetPageSegMode(gosseract.PSM_SPARSE_TEXT); err != nil {
		c.Close()
		return nil, fmt.Errorf("set psm: %w", err)
	}

	if err := c.SetVariable("user_defined_dpi", strconv.Itoa(e.dpi)); err != nil {
		c.Close()
		return nil, fmt.Errorf("set dpi: %w", err)
	}

	if err := c.SetImageFromBytes(data); err != nil {
		c.Close()
		return nil, fmt.Errorf("set image: %w", err)
	}

	return c, nil
}
