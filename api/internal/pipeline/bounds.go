package pipeline

import (
	"image"
	"math"

	"github.com/marshmallow3210/patent-drawing-parser/api/internal/imaging"
)

const boundsProxyWidth = 800

// Box is a content region in full-resolution page coordinates.
type Box struct {
	Left, Top, Right, Bottom float64
}

// Unify returns the union of the content regions of all images, or nil when
// none of them has any content. Detection runs on 800px wide proxies and the
// per-page boxes are scaled back by each page's own ratio.
func Unify(images []image.Image) *Box {
	var box *Box

	for _, img := range images {
		if img.Bounds().Empty() {
			continue
		}

		proxy, ratio := imaging.ResizeWidth(img, boundsProxyWidth)

		r, ok := imaging.ContentBounds(proxy)
		if !ok {
			continue
		}

		b := Box{
			Left:   float64(r.Min.X) * ratio,
			Top:    float64(r.Min.Y) * ratio,
			Right:  float64(r.Max.X) * ratio,
			Bottom: float64(r.Max.Y) * ratio,
		}

		if box == nil {
			box = &b
			continue
		}

		box.Left = math.Min(box.Left, b.Left)
		box.Top = math.Min(box.Top, b.Top)
		box.Right = math.Max(box.Right, b.Right)
		box.Bottom = math.Max(box.Bottom, b.Bottom)
	}

	return box
}

// CropRect pads box on every side and clamps it to a width x height page.
func CropRect(width, height int, box Box, padding int) image.Rectangle {
	p := float64(padding)

	l := math.Max(0, box.Left-p)
	t := math.Max(0, box.Top-p)
	r := math.Min(float64(width), box.Right+p)
	b := math.Min(float64(height), box.Bottom+p)

	return image.Rectangle{
		Min: image.Pt(int(math.RoundToEven(l)), int(math.RoundToEven(t))),
		Max: image.Pt(int(math.RoundToEven(r)), int(math.RoundToEven(b))),
	}
}

// Crop cuts img to the padded box. A nil box, or a box that leaves nothing
// of this page, returns img unchanged.
func Crop(img image.Image, box *Box, padding int) image.Image {
	if box == nil {
		return img
	}

	b := img.Bounds()
	r := CropRect(b.Dx(), b.Dy(), *box, padding)

	if r.Empty() {
		return img
	}

	return imaging.Crop(img, r)
}
