package vlm

import (
	"bytes"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"

	"github.com/rezonia/pii-redactor/internal/model"
)

const (
	maxSide    = 2048
	jpegQuality = 85
)

// CompressForAPI mirrors `_compress_for_api(max_side=2048)`: decodes the
// image, downscales so its longer side is at most maxSide (no upscaling),
// and re-encodes as JPEG-85. Returns the new bytes plus the pixel
// dimensions actually sent, needed downstream by the Coord Normalizer.
func CompressForAPI(imgData []byte) (data []byte, width, height int, err error) {
	src, _, err := image.Decode(bytes.NewReader(imgData))
	if err != nil {
		return nil, 0, 0, model.NewInvalidInputError("decode image for VLM compression: %v", err)
	}

	bounds := src.Bounds()
	srcW, srcH := bounds.Dx(), bounds.Dy()

	dstW, dstH := srcW, srcH
	if srcW > maxSide || srcH > maxSide {
		scale := float64(maxSide) / float64(max(srcW, srcH))
		dstW = int(float64(srcW) * scale)
		dstH = int(float64(srcH) * scale)
	}

	dst := src
	if dstW != srcW || dstH != srcH {
		resized := image.NewRGBA(image.Rect(0, 0, dstW, dstH))
		draw.CatmullRom.Scale(resized, resized.Bounds(), src, bounds, draw.Over, nil)
		dst = resized
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, 0, 0, model.NewInternalError(err, "encode compressed JPEG")
	}
	return buf.Bytes(), dstW, dstH, nil
}
