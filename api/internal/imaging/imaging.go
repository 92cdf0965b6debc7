// Package imaging holds the raster operations used to normalize scanned
// drawing pages: lossless quarter-turn rotation, proxy scaling, content
// bounds detection and cropping.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/tiff"
)

// ToRGBA returns img as an *image.RGBA anchored at the origin. Images that
// already satisfy this are returned as-is.
func ToRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) {
		return rgba
	}

	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)

	return dst
}

// Rotate turns img counter-clockwise by a multiple of 90 degrees. The canvas
// is expanded so nothing is clipped: 90 and 270 swap width and height.
func Rotate(img image.Image, degrees int) (*image.RGBA, error) {
	degrees = ((degrees % 360) + 360) % 360

	if degrees%90 != 0 {
		return nil, fmt.Errorf("unsupported rotation %d", degrees)
	}

	src := ToRGBA(img)
	w, h := src.Rect.Dx(), src.Rect.Dy()

	var dst *image.RGBA

	switch degrees {
	case 0:
		dst = image.NewRGBA(image.Rect(0, 0, w, h))
		copy(dst.Pix, src.Pix)
		return dst, nil

	case 180:
		dst = image.NewRGBA(image.Rect(0, 0, w, h))

	default:
		dst = image.NewRGBA(image.Rect(0, 0, h, w))
	}

	for y := 0; y < h; y++ {
		row := src.Pix[y*src.Stride : y*src.Stride+w*4]

		for x := 0; x < w; x++ {
			var dx, dy int

			switch degrees {
			case 90:
				dx, dy = y, w-1-x
			case 180:
				dx, dy = w-1-x, h-1-y
			case 270:
				dx, dy = h-1-y, x
			}

			o := dy*dst.Stride + dx*4
			copy(dst.Pix[o:o+4], row[x*4:x*4+4])
		}
	}

	return dst, nil
}

// Thumbnail downsizes img so that neither side exceeds maxSide, keeping the
// aspect ratio. Smaller images are returned unchanged.
func Thumbnail(img image.Image, maxSide int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	if w <= maxSide && h <= maxSide {
		return img
	}

	scale := math.Min(float64(maxSide)/float64(w), float64(maxSide)/float64(h))

	tw := max(1, int(math.Round(float64(w)*scale)))
	th := max(1, int(math.Round(float64(h)*scale)))

	dst := image.NewRGBA(image.Rect(0, 0, tw, th))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)

	return dst
}

// ResizeWidth scales img to the given width with nearest-neighbour sampling
// and returns the proxy together with the original/proxy width ratio.
func ResizeWidth(img image.Image, width int) (image.Image, float64) {
	b := img.Bounds()

	ratio := float64(b.Dx()) / float64(width)
	height := max(1, int(float64(b.Dy())/ratio))

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)

	return dst, ratio
}

// ContentBounds returns the smallest rectangle containing every pixel that
// is not pure white in grayscale, i.e. every non-zero pixel of the inverted
// gray image. ok is false for blank images.
func ContentBounds(img image.Image) (r image.Rectangle, ok bool) {
	b := img.Bounds()

	minX, minY := b.Max.X, b.Max.Y
	maxX, maxY := b.Min.X-1, b.Min.Y-1

	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if gray(img, x, y) == 0xff {
				continue
			}

			minX = min(minX, x)
			minY = min(minY, y)
			maxX = max(maxX, x)
			maxY = max(maxY, y)
		}
	}

	if maxX < minX || maxY < minY {
		return image.Rectangle{}, false
	}

	return image.Rect(minX-b.Min.X, minY-b.Min.Y, maxX-b.Min.X+1, maxY-b.Min.Y+1), true
}

func gray(img image.Image, x, y int) uint8 {
	if rgba, ok := img.(*image.RGBA); ok {
		c := rgba.RGBAAt(x, y)
		return color.GrayModel.Convert(c).(color.Gray).Y
	}

	return color.GrayModel.Convert(img.At(x, y)).(color.Gray).Y
}

// Crop copies the rectangle r (relative to the image origin) into a new
// image anchored at the origin.
func Crop(img image.Image, r image.Rectangle) *image.RGBA {
	b := img.Bounds()
	r = r.Add(b.Min).Intersect(b)

	dst := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(dst, dst.Bounds(), img, r.Min, draw.Src)

	return dst
}

// EncodePNG encodes img as PNG.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer

	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}

	return buf.Bytes(), nil
}

// WriteTIFF writes img as a deflate-compressed TIFF.
func WriteTIFF(w io.Writer, img image.Image) error {
	return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
}
