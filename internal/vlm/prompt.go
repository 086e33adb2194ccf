package vlm

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/rezonia/pii-redactor/internal/model"
)

// DetectionPrompt lists the enabled types (display name + description) and
// instructs the model to return `{"objects": [...]}` JSON only, per
// spec.md §4.6.
func DetectionPrompt(types []model.EntityTypeConfig) string {
	var b strings.Builder
	b.WriteString("Identify every instance of the following sensitive information types in the image. " +
		"Types:\n")
	for _, t := range types {
		fmt.Fprintf(&b, "- %s: %s\n", t.Name, t.Description)
	}
	b.WriteString(`Return JSON only, no prose, no markdown fences, in exactly this shape: ` +
		`{"objects": [{"type": "...", "text": "...", "box_2d": [x1, y1, x2, y2]}]}. ` +
		`box_2d coordinates are on a 0-1000 grid as [xmin, ymin, xmax, ymax].`)
	return b.String()
}

// RawObject is one detection object recovered from a VLM response.
type RawObject struct {
	Type  string     `json:"type"`
	Text  string     `json:"text"`
	Box2D [4]float64 `json:"box_2d"`
}

// objectPattern implements JSON-recovery strategy 3 from spec.md §4.6: a
// lenient object-by-object scan that tolerates truncation at max_tokens,
// since strategies 1/2 require a fully well-formed document or at least a
// balanced outermost brace pair.
var objectPattern = regexp.MustCompile(`\{[^{}]*"type"[^{}]*"box_2d"\s*:\s*\[[^\]]*\][^{}]*\}`)

var numberPattern = regexp.MustCompile(`-?\d+(\.\d+)?`)

// parseObjectsLenient extracts whatever complete `{"type":...,"box_2d":[...]}
// objects it can find, even from a truncated tail, by regex rather than a
// balanced-brace JSON parse.
func parseObjectsLenient(raw string) []RawObject {
	var out []RawObject
	for _, m := range objectPattern.FindAllString(raw, -1) {
		typ := firstQuotedAfter(m, `"type"`)
		text := firstQuotedAfter(m, `"text"`)
		box := extractBox2D(m)
		if typ == "" || box == nil {
			continue
		}
		out = append(out, RawObject{Type: typ, Text: text, Box2D: *box})
	}
	return out
}

var quotedValuePattern = regexp.MustCompile(`"([^"]*)"\s*:\s*"([^"]*)"`)

func firstQuotedAfter(obj, key string) string {
	for _, m := range quotedValuePattern.FindAllStringSubmatch(obj, -1) {
		if `"`+m[1]+`"` == key {
			return m[2]
		}
	}
	return ""
}

func extractBox2D(obj string) *[4]float64 {
	idx := strings.Index(obj, `"box_2d"`)
	if idx < 0 {
		return nil
	}
	tail := obj[idx:]
	start := strings.Index(tail, "[")
	end := strings.Index(tail, "]")
	if start < 0 || end < 0 || end < start {
		return nil
	}
	nums := numberPattern.FindAllString(tail[start:end], -1)
	if len(nums) < 4 {
		return nil
	}
	var box [4]float64
	for i := 0; i < 4; i++ {
		fmt.Sscanf(nums[i], "%g", &box[i])
	}
	return &box
}
