package imaging

import (
	"bytes"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	red   = color.RGBA{R: 255, A: 255}
	green = color.RGBA{G: 255, A: 255}
	blue  = color.RGBA{B: 255, A: 255}
	black = color.RGBA{A: 255}
)

func blank(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))

	for i := range img.Pix {
		img.Pix[i] = 0xff
	}

	return img
}

// marked returns a 3x2 image with distinct corners:
//
//	R . G
//	. . B
func marked() *image.RGBA {
	img := blank(3, 2)
	img.SetRGBA(0, 0, red)
	img.SetRGBA(2, 0, green)
	img.SetRGBA(2, 1, blue)
	return img
}

func TestRotate90(t *testing.T) {
	got, err := Rotate(marked(), 90)
	require.NoError(t, err)

	require.Equal(t, image.Rect(0, 0, 2, 3), got.Bounds())
	assert.Equal(t, green, got.RGBAAt(0, 0))
	assert.Equal(t, blue, got.RGBAAt(1, 0))
	assert.Equal(t, red, got.RGBAAt(0, 2))
}

func TestRotate180(t *testing.T) {
	got, err := Rotate(marked(), 180)
	require.NoError(t, err)

	require.Equal(t, image.Rect(0, 0, 3, 2), got.Bounds())
	assert.Equal(t, red, got.RGBAAt(2, 1))
	assert.Equal(t, green, got.RGBAAt(0, 1))
	assert.Equal(t, blue, got.RGBAAt(0, 0))
}

func TestRotate270(t *testing.T) {
	got, err := Rotate(marked(), 270)
	require.NoError(t, err)

	require.Equal(t, image.Rect(0, 0, 2, 3), got.Bounds())
	assert.Equal(t, red, got.RGBAAt(1, 0))
	assert.Equal(t, green, got.RGBAAt(1, 2))
	assert.Equal(t, blue, got.RGBAAt(0, 2))
}

func TestRotateFullTurnIsIdentity(t *testing.T) {
	img := marked()
	cur := img

	for i := 0; i < 4; i++ {
		next, err := Rotate(cur, 90)
		require.NoError(t, err)
		cur = next
	}

	assert.Equal(t, img.Pix, cur.Pix)
}

func TestRotateRejectsOddAngles(t *testing.T) {
	_, err := Rotate(marked(), 45)
	require.Error(t, err)
}

func TestThumbnail(t *testing.T) {
	got := Thumbnail(blank(3000, 1500), 1000)
	assert.Equal(t, image.Rect(0, 0, 1000, 500), got.Bounds())

	small := blank(200, 100)
	assert.Same(t, small, Thumbnail(small, 1000))
}

func TestResizeWidth(t *testing.T) {
	img := blank(1600, 1200)
	img.SetRGBA(21, 21, black)

	proxy, ratio := ResizeWidth(img, 800)

	assert.Equal(t, 2.0, ratio)
	assert.Equal(t, image.Rect(0, 0, 800, 600), proxy.Bounds())

	r, ok := ContentBounds(proxy)
	require.True(t, ok)
	assert.Equal(t, image.Rect(10, 10, 11, 11), r)
}

func TestContentBounds(t *testing.T) {
	img := blank(50, 40)

	_, ok := ContentBounds(img)
	assert.False(t, ok)

	img.SetRGBA(5, 7, black)
	img.SetRGBA(20, 30, color.RGBA{R: 250, G: 250, B: 250, A: 255})

	r, ok := ContentBounds(img)
	require.True(t, ok)
	assert.Equal(t, image.Rect(5, 7, 21, 31), r)
}

func TestCrop(t *testing.T) {
	img := marked()

	got := Crop(img, image.Rect(1, 0, 3, 2))

	require.Equal(t, image.Rect(0, 0, 2, 2), got.Bounds())
	assert.Equal(t, green, got.RGBAAt(1, 0))
	assert.Equal(t, blue, got.RGBAAt(1, 1))
}

func TestEncode(t *testing.T) {
	data, err := EncodePNG(marked())
	require.NoError(t, err)
	assert.Equal(t, []byte("\x89PNG"), data[:4])

	var buf bytes.Buffer
	require.NoError(t, WriteTIFF(&buf, marked()))
	assert.NotZero(t, buf.Len())
}
