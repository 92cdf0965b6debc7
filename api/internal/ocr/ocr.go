// Package ocr defines the local text detection contract used to ground the
// model: raw page text for orientation voting and positioned words for hints.
package ocr

import (
	"context"
	"image"
)

// Word is one detected token with its pixel box and a 0-100 confidence.
type Word struct {
	Text       string
	Confidence float64
	Box        image.Rectangle
}

// Detector runs sparse text detection on an image.
type Detector interface {
	Name() string

	// Text returns the recognized text of the whole image.
	Text(ctx context.Context, img image.Image) (string, error)

	// Words returns word level detections in the engine's reading order.
	Words(ctx context.Context, img image.Image) ([]Word, error)
}
