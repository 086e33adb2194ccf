package vlm

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/pii-redactor/internal/model"
)

func samplePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 255), G: uint8(y % 255), B: 0, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestCompressForAPI_DownscalesLargeImage(t *testing.T) {
	data := samplePNG(t, 3000, 1500)
	out, w, h, err := CompressForAPI(data)
	require.NoError(t, err)
	assert.LessOrEqual(t, w, maxSide)
	assert.LessOrEqual(t, h, maxSide)
	assert.NotEmpty(t, out)
}

func TestCompressForAPI_LeavesSmallImageUnscaled(t *testing.T) {
	data := samplePNG(t, 100, 50)
	_, w, h, err := CompressForAPI(data)
	require.NoError(t, err)
	assert.Equal(t, 100, w)
	assert.Equal(t, 50, h)
}

func TestHealthLoop_MarksProxyHealthyAfterSuccessfulProbe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", "key", "model")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c.StartHealthLoop(ctx)
	defer c.Stop()

	require.Eventually(t, func() bool { return c.ProxyAvailable() }, time.Second, 10*time.Millisecond)
}

func TestDetect_ViaProxyReturnsUnitBoxes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
		case "/mcp/detect":
			_ = json.NewEncoder(w).Encode(proxyDetectResponse{
				Boxes: []proxyBox{{Type: "seal", Text: "", Box2D: [4]float64{0.1, 0.2, 0.3, 0.4}}},
			})
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", "key", "model")
	c.probeOnce(context.Background())
	require.True(t, c.ProxyAvailable())

	boxes, err := c.Detect(context.Background(), samplePNG(t, 10, 10), []model.EntityTypeConfig{{ID: "SEAL", Name: "SEAL"}})
	require.NoError(t, err)
	require.Len(t, boxes, 1)
	assert.Equal(t, "SEAL", boxes[0].Type)
	assert.InDelta(t, 0.1, boxes[0].X, 1e-9)
	assert.InDelta(t, 0.2, boxes[0].Width, 1e-9)
}
