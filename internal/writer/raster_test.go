package writer

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/pii-redactor/internal/model"
)

func samplePNG(t *testing.T, w, h int, fill color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, fill)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestRedactRaster_FillsSelectedBoxBlack(t *testing.T) {
	data := samplePNG(t, 100, 100, color.White)
	boxes := []model.BoundingBox{
		{X: 0.25, Y: 0.25, Width: 0.5, Height: 0.5, Selected: true},
	}

	out, err := RedactRaster(data, boxes)
	require.NoError(t, err)

	img, _, err := image.Decode(bytes.NewReader(out))
	require.NoError(t, err)

	r, g, b, _ := img.At(50, 50).RGBA()
	assert.Equal(t, uint32(0), r)
	assert.Equal(t, uint32(0), g)
	assert.Equal(t, uint32(0), b)

	// outside the box stays untouched
	r, g, b, _ = img.At(5, 5).RGBA()
	assert.NotEqual(t, uint32(0), r+g+b)
}

func TestRedactRaster_IgnoresUnselectedBoxes(t *testing.T) {
	data := samplePNG(t, 50, 50, color.White)
	boxes := []model.BoundingBox{
		{X: 0.0, Y: 0.0, Width: 1.0, Height: 1.0, Selected: false},
	}

	out, err := RedactRaster(data, boxes)
	require.NoError(t, err)

	img, _, err := image.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	r, g, b, _ := img.At(25, 25).RGBA()
	assert.NotEqual(t, uint32(0), r+g+b)
}

func TestRedactRaster_ClampsOutOfBoundsBox(t *testing.T) {
	data := samplePNG(t, 20, 20, color.White)
	boxes := []model.BoundingBox{
		{X: 0.9, Y: 0.9, Width: 0.5, Height: 0.5, Selected: true},
	}
	out, err := RedactRaster(data, boxes)
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}
