package vlm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/pii-redactor/internal/model"
)

func TestParseDetectionResponse_DirectJSON(t *testing.T) {
	raw := `{"objects": [{"type": "PERSON", "text": "张三", "box_2d": [100, 200, 300, 400]}]}`
	objects, err := ParseDetectionResponse(raw)
	require.NoError(t, err)
	require.Len(t, objects, 1)
	assert.Equal(t, "PERSON", objects[0].Type)
	assert.Equal(t, [4]float64{100, 200, 300, 400}, objects[0].Box2D)
}

func TestParseDetectionResponse_FencedJSON(t *testing.T) {
	raw := "```json\n{\"objects\": [{\"type\": \"SEAL\", \"text\": \"\", \"box_2d\": [1,2,3,4]}]}\n```"
	objects, err := ParseDetectionResponse(raw)
	require.NoError(t, err)
	require.Len(t, objects, 1)
	assert.Equal(t, "SEAL", objects[0].Type)
}

func TestParseDetectionResponse_TruncatedTailRecoversViaLenientScan(t *testing.T) {
	raw := `{"objects": [{"type": "PERSON", "text": "张三", "box_2d": [1,2,3,4]}, {"type": "ORG", "text": "trunc` // truncated mid-string, unbalanced braces
	objects, err := ParseDetectionResponse(raw)
	require.NoError(t, err)
	require.Len(t, objects, 1)
	assert.Equal(t, "PERSON", objects[0].Type)
}

func TestParseDetectionResponse_TotalFailureIsParseError(t *testing.T) {
	_, err := ParseDetectionResponse("no json here")
	require.Error(t, err)
	assert.Equal(t, model.ErrorParse, model.KindOf(err))
}

func TestMapLabelToTypeID_ExactAndKeywordAndFallback(t *testing.T) {
	assert.Equal(t, "PERSON", MapLabelToTypeID("人名"))
	assert.Equal(t, "SEAL", MapLabelToTypeID("official seal mark"))
	assert.Equal(t, "FOOBAR", MapLabelToTypeID("foobar"))
}

func TestDetectionPrompt_ListsTypes(t *testing.T) {
	prompt := DetectionPrompt([]model.EntityTypeConfig{{Name: "PERSON", Description: "a person's name"}})
	assert.Contains(t, prompt, "PERSON")
	assert.Contains(t, prompt, "a person's name")
	assert.Contains(t, prompt, "box_2d")
}
