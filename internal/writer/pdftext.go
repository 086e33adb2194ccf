package writer

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/types"

	pmodel "github.com/rezonia/pii-redactor/internal/model"
)

// TextRedaction pins one replacement to an absolute on-page rectangle.
// The PDF writer has no text-search primitive (unlike `redactor.py`'s
// PyMuPDF `search_for`), so the caller — a text-layer PDF's run/position
// map, or the dual-pipeline fuser for scanned pages — supplies the
// geometry directly.
type TextRedaction struct {
	Page        int // 1-based
	Box         pmodel.BoundingBox
	Replacement string
}

// RedactPDFText covers each TextRedaction's rectangle with an opaque white
// stamp, then overlays the replacement text at the same position, 10pt
// black — an approximation of `redactor.py`'s `_redact_pdf_text`
// white-rect-then-redraw approach, built on pdfcpu's watermark/stamp API
// since pdfcpu exposes no page.search_for equivalent.
func RedactPDFText(inputPath, outputPath string, redactions []TextRedaction) error {
	dims, err := api.PageDimsFile(inputPath)
	if err != nil {
		return pmodel.NewParseError(err, "read page dimensions from %s", inputPath)
	}

	current := inputPath
	for i, r := range redactions {
		if r.Page < 1 || r.Page > len(dims) {
			continue
		}
		dim := dims[r.Page-1]

		stagePath := outputPath
		if i < len(redactions)-1 {
			stagePath = fmt.Sprintf("%s.stage%d", outputPath, i)
		}

		if err := coverRect(current, stagePath, r.Page, dim, r.Box); err != nil {
			return err
		}
		if err := overlayText(stagePath, stagePath, r.Page, dim, r.Box, r.Replacement); err != nil {
			return err
		}
		if current != inputPath {
			os.Remove(current)
		}
		current = stagePath
	}

	if current != outputPath {
		return os.Rename(current, outputPath)
	}
	return nil
}

// coverRect stamps a solid white rectangle over box's region on page,
// built from a one-pixel white PNG scaled by pdfcpu's image watermark.
func coverRect(inFile, outFile string, page int, dim types.Dim, box pmodel.BoundingBox) error {
	whitePNG, err := encodeSolidPNG(color.White)
	if err != nil {
		return pmodel.NewInternalError(err, "build white cover image")
	}

	desc := watermarkDescription(dim, box, 1.0)
	wm, err := api.ImageWatermarkForReader(bytes.NewReader(whitePNG), desc, true, false, types.POINTS)
	if err != nil {
		return pmodel.NewInternalError(err, "build cover watermark")
	}
	return applyWatermark(inFile, outFile, page, wm)
}

// overlayText stamps the replacement text at the box's position, 10pt
// black, matching `redactor.py`'s baseline redraw.
func overlayText(inFile, outFile string, page int, dim types.Dim, box pmodel.BoundingBox, text string) error {
	desc := watermarkDescription(dim, box, 1.0) + ", points:10, fillcolor:0 0 0"
	wm, err := api.TextWatermark(text, desc, true, false, types.POINTS)
	if err != nil {
		return pmodel.NewInternalError(err, "build text watermark")
	}
	return applyWatermark(inFile, outFile, page, wm)
}

func applyWatermark(inFile, outFile string, page int, wm *model.Watermark) error {
	conf := model.NewDefaultConfiguration()
	if err := api.AddWatermarksFile(inFile, outFile, []string{fmt.Sprint(page)}, wm, conf); err != nil {
		return pmodel.NewInternalError(err, "apply watermark to page %d", page)
	}
	return nil
}

// watermarkDescription builds a pdfcpu watermark description string that
// positions the stamp at box's absolute offset from the page's bottom-left
// corner, scaled to box's width in points.
func watermarkDescription(dim types.Dim, box pmodel.BoundingBox, opacity float64) string {
	offsetX := box.X * dim.Width
	offsetY := (1 - box.Y - box.Height) * dim.Height
	widthPt := box.Width * dim.Width
	return fmt.Sprintf("pos:bl, offset:%.2f %.2f, scale:%.2f abs, opacity:%.2f", offsetX, offsetY, widthPt, opacity)
}

func encodeSolidPNG(c color.Color) ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	img.Set(0, 0, c)
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
