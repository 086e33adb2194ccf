package writer

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"

	"github.com/rezonia/pii-redactor/internal/model"
)

// RedactRaster fills every selected BoundingBox's pixel rectangle with
// solid black (spec.md §4.11's raster writer). Boxes are in unit
// coordinates relative to the page image; callers targeting a single page
// of a multi-page scan should pre-filter boxes to that page.
func RedactRaster(imgData []byte, boxes []model.BoundingBox) ([]byte, error) {
	src, format, err := image.Decode(bytes.NewReader(imgData))
	if err != nil {
		return nil, model.NewParseError(err, "decode raster image")
	}

	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	dst := image.NewNRGBA(bounds)
	draw.Draw(dst, bounds, src, bounds.Min, draw.Src)

	black := &image.Uniform{C: color.Black}
	for _, b := range boxes {
		if !b.Selected {
			continue
		}
		rect := image.Rect(
			bounds.Min.X+int(b.X*float64(w)),
			bounds.Min.Y+int(b.Y*float64(h)),
			bounds.Min.X+int((b.X+b.Width)*float64(w)),
			bounds.Min.Y+int((b.Y+b.Height)*float64(h)),
		).Intersect(bounds)
		if rect.Empty() {
			continue
		}
		draw.Draw(dst, rect, black, image.Point{}, draw.Src)
	}

	var buf bytes.Buffer
	switch format {
	case "png":
		err = png.Encode(&buf, dst)
	default:
		err = jpeg.Encode(&buf, dst, &jpeg.Options{Quality: 95})
	}
	if err != nil {
		return nil, model.NewInternalError(err, "encode redacted raster image")
	}
	return buf.Bytes(), nil
}
