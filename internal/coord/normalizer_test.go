package coord

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_DetectsSquare1000Convention(t *testing.T) {
	boxes := []RawBox{
		{XMin: 100, YMin: 200, XMax: 300, YMax: 400},
		{XMin: 500, YMin: 600, XMax: 700, YMax: 800},
	}
	out := Normalize(boxes, 1920, 1080)
	require.Len(t, out, 2)
	assert.InDelta(t, 0.1, out[0].XMin, 1e-9)
	assert.InDelta(t, 0.2, out[0].YMin, 1e-9)
	assert.InDelta(t, 0.3, out[0].XMax, 1e-9)
	assert.InDelta(t, 0.4, out[0].YMax, 1e-9)
}

func TestNormalize_DetectsPixelConvention(t *testing.T) {
	// Values exceed every square-grid base (1000/1024) once divided, so
	// only the pixel convention keeps the box inside [0,1].
	boxes := []RawBox{
		{XMin: 1800, YMin: 1000, XMax: 1850, YMax: 1050},
	}
	out := Normalize(boxes, 1920, 1080)
	require.Len(t, out, 1)
	assert.InDelta(t, 1800.0/1920, out[0].XMin, 1e-9)
	assert.InDelta(t, 1000.0/1080, out[0].YMin, 1e-9)
	assert.InDelta(t, 1850.0/1920, out[0].XMax, 1e-9)
	assert.InDelta(t, 1050.0/1080, out[0].YMax, 1e-9)
}

func TestNormalize_AlreadyNormalizedPassesThrough(t *testing.T) {
	boxes := []RawBox{{XMin: 0.1, YMin: 0.1, XMax: 0.3, YMax: 0.3}}
	out := Normalize(boxes, 1920, 1080)
	require.Len(t, out, 1)
	assert.InDelta(t, 0.1, out[0].XMin, 1e-9)
}

func TestNormalize_DiscardsJunkSpans(t *testing.T) {
	boxes := []RawBox{{XMin: 0.1, YMin: 0.1, XMax: 0.1001, YMax: 0.9999}}
	out := Normalize(boxes, 1920, 1080)
	assert.Empty(t, out)
}

func TestNormalize_EmptyInput(t *testing.T) {
	assert.Nil(t, Normalize(nil, 1920, 1080))
}
