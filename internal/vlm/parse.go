package vlm

import (
	"encoding/json"
	"regexp"

	"github.com/rezonia/pii-redactor/internal/model"
)

type objectsEnvelope struct {
	Objects []RawObject `json:"objects"`
}

var outermostObjectOrArray = regexp.MustCompile(`(?s)(\{.*\}|\[.*\])`)

// ParseDetectionResponse implements spec.md §4.6's three JSON-recovery
// strategies for VLM detection responses: direct parse, regex-extracted
// outermost object/array, then the lenient object-by-object scan that
// accepts results recovered even from a truncated tail.
func ParseDetectionResponse(raw string) ([]RawObject, error) {
	var env objectsEnvelope
	if err := json.Unmarshal([]byte(raw), &env); err == nil && len(env.Objects) > 0 {
		return env.Objects, nil
	}

	var bare []RawObject
	if err := json.Unmarshal([]byte(raw), &bare); err == nil && len(bare) > 0 {
		return bare, nil
	}

	if match := outermostObjectOrArray.FindString(raw); match != "" {
		var env2 objectsEnvelope
		if err := json.Unmarshal([]byte(match), &env2); err == nil && len(env2.Objects) > 0 {
			return env2.Objects, nil
		}
		var bare2 []RawObject
		if err := json.Unmarshal([]byte(match), &bare2); err == nil && len(bare2) > 0 {
			return bare2, nil
		}
	}

	if lenient := parseObjectsLenient(raw); len(lenient) > 0 {
		return lenient, nil
	}

	return nil, model.NewParseError(nil, "could not recover detection objects from VLM response")
}
