package hybrid

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/pii-redactor/internal/model"
	"github.com/rezonia/pii-redactor/internal/ner"
	"github.com/rezonia/pii-redactor/internal/regexmatch"
)

type fakeNERClient struct {
	nerResult  map[string][]string
	hideResult ner.HideResult
	err        error
}

func (f *fakeNERClient) NER(ctx context.Context, text string, types []string) (map[string][]string, error) {
	return f.nerResult, f.err
}

func (f *fakeNERClient) Hide(ctx context.Context, text string, types []string, useHistory bool) (ner.HideResult, error) {
	return f.hideResult, f.err
}

func TestDetect_MergesRegexAndNERWithoutOverlap(t *testing.T) {
	matcher, errs := regexmatch.NewMatcher(nil)
	require.Empty(t, errs)

	text := "Contact 13800138000 and ask for 张三 about the case."
	fake := &fakeNERClient{nerResult: map[string][]string{"PERSON": {"张三"}}}

	d := NewDetector(fake, matcher, model.DetectModeNER)
	entities, _, err := d.Detect(context.Background(), text, nil, false)
	require.NoError(t, err)
	require.NotEmpty(t, entities)

	var hasPhone, hasPerson bool
	for _, e := range entities {
		if e.Type == "PHONE" {
			hasPhone = true
		}
		if e.Type == "PERSON" {
			hasPerson = true
			assert.Equal(t, "张三", e.Text)
		}
	}
	assert.True(t, hasPhone)
	assert.True(t, hasPerson)
}

func TestDetect_IDsAreSequential(t *testing.T) {
	matcher, _ := regexmatch.NewMatcher(nil)
	fake := &fakeNERClient{nerResult: map[string][]string{"PERSON": {"张三", "李四"}}}

	d := NewDetector(fake, matcher, model.DetectModeNER)
	entities, _, err := d.Detect(context.Background(), "张三和李四是朋友", nil, false)
	require.NoError(t, err)
	for i, e := range entities {
		assert.Equal(t, "entity_"+strconv.Itoa(i), e.ID)
	}
}

func TestDetect_CorefGroupsRepeatedMention(t *testing.T) {
	matcher, _ := regexmatch.NewMatcher(nil)
	fake := &fakeNERClient{nerResult: map[string][]string{"PERSON": {"张三"}}}

	d := NewDetector(fake, matcher, model.DetectModeNER)
	entities, _, err := d.Detect(context.Background(), "张三去了北京，张三很开心。", nil, false)
	require.NoError(t, err)
	require.Len(t, entities, 2)
	assert.Equal(t, entities[0].CorefID, entities[1].CorefID)
}

func TestDetect_HideModeCorefFollowsTagMapping(t *testing.T) {
	matcher, _ := regexmatch.NewMatcher(nil)
	fake := &fakeNERClient{
		hideResult: ner.HideResult{
			MaskedText: "PERSON_1 went to Beijing, PERSON_1 was happy.",
			Mapping:    map[string][]string{"PERSON_1": {"John Smith", "Mr. Smith"}},
		},
	}

	d := NewDetector(fake, matcher, model.DetectModeHide)
	entities, _, err := d.Detect(context.Background(), "John Smith went to Beijing, Mr. Smith was happy.", nil, false)
	require.NoError(t, err)
	require.Len(t, entities, 2)
	assert.Equal(t, "PERSON_1", entities[0].CorefID)
	assert.Equal(t, "PERSON_1", entities[1].CorefID)
}

func TestDetect_DegradesToRegexOnlyWhenNERTransportFails(t *testing.T) {
	matcher, _ := regexmatch.NewMatcher(nil)
	fake := &fakeNERClient{err: assert.AnError}

	d := NewDetector(fake, matcher, model.DetectModeNER)
	entities, warnings, err := d.Detect(context.Background(), "Contact 13800138000 please.", nil, false)
	require.NoError(t, err)
	require.NotEmpty(t, warnings)
	require.Len(t, entities, 1)
	assert.Equal(t, model.SourceRegex, entities[0].Source)
}

func TestDetect_DegradesToRegexOnlyWhenNERClientIsNil(t *testing.T) {
	matcher, _ := regexmatch.NewMatcher(nil)

	d := NewDetector(nil, matcher, model.DetectModeNER)
	entities, warnings, err := d.Detect(context.Background(), "Contact 13800138000 please.", nil, false)
	require.NoError(t, err)
	require.NotEmpty(t, warnings)
	require.Len(t, entities, 1)
}

func TestAllIndices_FindsNonOverlappingOccurrences(t *testing.T) {
	assert.Equal(t, []int{0, 5}, allIndices("aaaaaaaaaa"[:10], "aaaaa"))
}

func TestCrossValidate_LongerSpanWinsOnOverlap(t *testing.T) {
	regexEntities := []model.Entity{{Text: "13800138000", Type: "PHONE", Start: 0, End: 11, Source: model.SourceRegex}}
	nerEntities := []model.Entity{{Text: "138001380", Type: "PHONE", Start: 0, End: 9, Source: model.SourceNER}}
	merged := crossValidate(regexEntities, nerEntities)
	require.Len(t, merged, 1)
	assert.Equal(t, model.SourceRegex, merged[0].Source)
}
