package fuser

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/pii-redactor/internal/model"
)

func TestFuse_RetainsAllOCRBoxes(t *testing.T) {
	ocr := func(ctx context.Context) ([]model.BoundingBox, error) {
		return []model.BoundingBox{
			{X: 0.1, Y: 0.1, Width: 0.1, Height: 0.1, Source: model.SourceOCRHas, Type: "SEAL"},
		}, nil
	}
	out, errs := Fuse(context.Background(), ocr, nil)
	assert.Empty(t, errs)
	require.Len(t, out, 1)
	assert.Equal(t, model.SourceOCRHas, out[0].Source)
}

func TestFuse_DropsOverlappingVLMBoxInFavorOfOCR(t *testing.T) {
	ocr := func(ctx context.Context) ([]model.BoundingBox, error) {
		return []model.BoundingBox{{X: 0.10, Y: 0.80, Width: 0.20, Height: 0.10, Source: model.SourceOCRHas, Type: "SEAL"}}, nil
	}
	vlm := func(ctx context.Context) ([]model.BoundingBox, error) {
		return []model.BoundingBox{{X: 0.09, Y: 0.79, Width: 0.22, Height: 0.12, Source: model.SourceGLMVision, Type: "SEAL"}}, nil
	}
	out, errs := Fuse(context.Background(), ocr, vlm)
	assert.Empty(t, errs)
	require.Len(t, out, 1)
	assert.Equal(t, model.SourceOCRHas, out[0].Source)
}

func TestFuse_KeepsNonOverlappingVLMBox(t *testing.T) {
	ocr := func(ctx context.Context) ([]model.BoundingBox, error) {
		return []model.BoundingBox{{X: 0.1, Y: 0.1, Width: 0.1, Height: 0.1, Source: model.SourceOCRHas, Type: "PERSON"}}, nil
	}
	vlm := func(ctx context.Context) ([]model.BoundingBox, error) {
		return []model.BoundingBox{{X: 0.8, Y: 0.8, Width: 0.1, Height: 0.1, Source: model.SourceGLMVision, Type: "SEAL"}}, nil
	}
	out, errs := Fuse(context.Background(), ocr, vlm)
	assert.Empty(t, errs)
	assert.Len(t, out, 2)
}

func TestFuse_DegradesGracefullyWhenOnePipelineFails(t *testing.T) {
	ocr := func(ctx context.Context) ([]model.BoundingBox, error) {
		return nil, errors.New("ocr unreachable")
	}
	vlm := func(ctx context.Context) ([]model.BoundingBox, error) {
		return []model.BoundingBox{{X: 0.1, Y: 0.1, Width: 0.1, Height: 0.1, Source: model.SourceGLMVision, Type: "PERSON"}}, nil
	}
	out, errs := Fuse(context.Background(), ocr, vlm)
	require.Len(t, errs, 1)
	require.Len(t, out, 1)
	assert.Equal(t, model.SourceGLMVision, out[0].Source)
}

func TestFuse_NilPipelineIsSkipped(t *testing.T) {
	out, errs := Fuse(context.Background(), nil, nil)
	assert.Empty(t, errs)
	assert.Empty(t, out)
}
