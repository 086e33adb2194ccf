// Package fuser implements the Dual-Pipeline Fuser (spec.md §4.9):
// launches the OCR+NER Sub-pipeline and the VLM Client concurrently
// (fire-and-join), tolerates either one failing by treating its output as
// empty, then fuses by source partition and IoU. Grounded on spec.md
// §4.9/§9's explicit "each sub-pipeline is a task... fuser `join`s both"
// guidance; `golang.org/x/sync/errgroup` is a direct dependency of
// Tangerg-lynx's flow/pkg packages for exactly this fire-and-join shape.
package fuser

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/rezonia/pii-redactor/internal/model"
)

// OverlapThreshold is the IoU above which two boxes from different
// sources are considered the same region (spec.md §4.9/DATA MODEL).
const OverlapThreshold = 0.3

// OCRPipeline runs the OCR+NER Sub-pipeline for one page.
type OCRPipeline func(ctx context.Context) ([]model.BoundingBox, error)

// VLMPipeline runs the VLM Client's detection for one page.
type VLMPipeline func(ctx context.Context) ([]model.BoundingBox, error)

// Fuse runs both sub-pipelines concurrently. Either may be nil (its
// enabled-type list was empty, per spec.md §4.9), in which case it's
// skipped entirely; either may fail, in which case its result defaults to
// empty and the error is returned alongside the other pipeline's boxes
// rather than aborting the whole fuse (spec.md §5's "a pipeline may fail;
// its error is logged and its boxes default to empty").
func Fuse(ctx context.Context, ocrPipeline OCRPipeline, vlmPipeline VLMPipeline) ([]model.BoundingBox, []error) {
	var ocrBoxes, vlmBoxes []model.BoundingBox
	var ocrErr, vlmErr error

	g, gctx := errgroup.WithContext(ctx)

	if ocrPipeline != nil {
		g.Go(func() error {
			boxes, err := ocrPipeline(gctx)
			if err != nil {
				ocrErr = err
				return nil
			}
			ocrBoxes = boxes
			return nil
		})
	}
	if vlmPipeline != nil {
		g.Go(func() error {
			boxes, err := vlmPipeline(gctx)
			if err != nil {
				vlmErr = err
				return nil
			}
			vlmBoxes = boxes
			return nil
		})
	}
	// Each goroutine writes only to its own result/error variables, so
	// there's no shared mutable state between them; g.Wait() never
	// actually errors (both swallow their own errors here), this call
	// only blocks until both are done (the "join" half of fire-and-join).
	_ = g.Wait()

	var errs []error
	if ocrErr != nil {
		errs = append(errs, ocrErr)
	}
	if vlmErr != nil {
		errs = append(errs, vlmErr)
	}

	return mergeBySource(ocrBoxes, vlmBoxes), errs
}

// mergeBySource implements spec.md §4.9's fusion rule: retain every
// ocr_has box; drop a glm_vision box if it overlaps any retained ocr_has
// box above OverlapThreshold; dedupe any remaining boxes against the
// accumulating result with the same threshold.
func mergeBySource(ocrBoxes, vlmBoxes []model.BoundingBox) []model.BoundingBox {
	result := make([]model.BoundingBox, 0, len(ocrBoxes)+len(vlmBoxes))
	result = append(result, ocrBoxes...)

	for _, vb := range vlmBoxes {
		if overlapsAny(result, vb) {
			continue
		}
		result = append(result, vb)
	}
	return result
}

func overlapsAny(existing []model.BoundingBox, candidate model.BoundingBox) bool {
	for _, e := range existing {
		if model.IoU(e, candidate) > OverlapThreshold {
			return true
		}
	}
	return false
}
