package ocrner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/pii-redactor/internal/model"
	"github.com/rezonia/pii-redactor/internal/regexmatch"
)

type fakeNER struct {
	result map[string][]string
}

func (f *fakeNER) NER(ctx context.Context, text string, types []string) (map[string][]string, error) {
	return f.result, nil
}

func block(text string, left, top, width, height float64) model.OCRTextBlock {
	return model.OCRTextBlock{
		Text: text,
		Polygon: [4]model.Point{
			{X: left, Y: top}, {X: left + width, Y: top},
			{X: left + width, Y: top + height}, {X: left, Y: top + height},
		},
		Confidence: 0.9,
		Label:      model.OCRLabelText,
	}
}

func TestRun_PromotesSealBlockDirectly(t *testing.T) {
	sealBlock := block("official seal", 0.1, 0.1, 0.1, 0.1)
	sealBlock.Label = model.OCRLabelSeal

	matcher, _ := regexmatch.NewMatcher(nil)
	fake := &fakeNER{result: map[string][]string{}}

	out, err := Run(context.Background(), []model.OCRTextBlock{sealBlock}, fake, matcher, nil, 1)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "SEAL", out[0].Type)
}

func TestRun_ReprojectsNERMentionIntoBlockGeometry(t *testing.T) {
	b := block("本合同的联系人为张三，电话13800138000。", 0.0, 0.0, 0.5, 0.02)

	matcher, _ := regexmatch.NewMatcher(nil)
	fake := &fakeNER{result: map[string][]string{"PERSON": {"张三"}}}

	out, err := Run(context.Background(), []model.OCRTextBlock{b}, fake, matcher, []string{"PERSON", "PHONE"}, 1)
	require.NoError(t, err)

	var hasPerson, hasPhone bool
	for _, box := range out {
		if box.Type == "PERSON" {
			hasPerson = true
		}
		if box.Type == "PHONE" {
			hasPhone = true
		}
		assert.True(t, box.Valid())
	}
	assert.True(t, hasPerson)
	// The block is 25 runes long, so both the PERSON mention and the
	// regex-overlay PHONE match get the whole block's rectangle; the
	// IoU>=0.5 merge keeps the first-accepted PERSON box and drops PHONE.
	assert.False(t, hasPhone)
}

func TestExpandTable_UniformCellLayout(t *testing.T) {
	html := "<table><tr><td>A</td><td colspan=\"2\">B</td></tr></table>"
	b := block(html, 0.0, 0.0, 0.9, 0.1)
	cells := expandTable(b)
	require.Len(t, cells, 2)
	assert.Equal(t, "A", cells[0].text)
	assert.Equal(t, "B", cells[1].text)
	assert.InDelta(t, 0.6, cells[1].width, 1e-6) // colspan 2 of 3 total cols
}

func TestLevenshteinSimilarity_FallbackMatch(t *testing.T) {
	sim := similarity("张三", "张三丰")
	assert.Greater(t, sim, 0.5)
}

func TestMergeByIoU_DropsOverlappingDuplicate(t *testing.T) {
	a := model.BoundingBox{X: 0.1, Y: 0.1, Width: 0.2, Height: 0.1}
	b := model.BoundingBox{X: 0.1, Y: 0.1, Width: 0.2, Height: 0.1}
	merged := mergeByIoU([]model.BoundingBox{a}, b)
	assert.Len(t, merged, 1)
}
