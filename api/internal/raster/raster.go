// Package raster renders document pages to images.
package raster

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/gen2brain/go-fitz"
)

// ErrNoPages is returned for documents without a single page.
var ErrNoPages = errors.New("document has no pages")

// Rasterizer renders every page of the document at path, in page order.
type Rasterizer interface {
	Rasterize(ctx context.Context, path string, dpi int) ([]image.Image, error)
}

// MuPDF renders PDF (and other MuPDF readable) documents.
type MuPDF struct{}

func New() *MuPDF {
	return &MuPDF{}
}

func (m *MuPDF) Rasterize(ctx context.Context, path string, dpi int) ([]image.Image, error) {
	if dpi <= 0 {
		return nil, fmt.Errorf("invalid dpi %d", dpi)
	}

	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("open document: %w", err)
	}
	defer doc.Close()

	n := doc.NumPage()
	if n == 0 {
		return nil, ErrNoPages
	}

	pages := make([]image.Image, 0, n)

	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		img, err := doc.ImageDPI(i, float64(dpi))
		if err != nil {
			return nil, fmt.Errorf("render page %d: %w", i+1, err)
		}

		pages = append(pages, img)
	}

	return pages, nil
}
