package ner

import (
	"encoding/json"
	"regexp"

	"github.com/invopop/jsonschema"
	"github.com/tidwall/gjson"

	"github.com/rezonia/pii-redactor/internal/model"
)

// outermostObject pulls the first `{...}` span out of a response,
// matching the Python original's `re.search(r'\{.*\}', response, re.DOTALL)`.
var outermostObject = regexp.MustCompile(`(?s)\{.*\}`)

// parseEntityMap implements the three-strategy JSON recovery spec.md
// §4.3 and §4.6 both call for: (1) direct parse; (2) regex-extracted
// outermost object; (3) lenient field-walk via gjson, which tolerates
// trailing garbage or truncation a strict decoder would reject outright.
// Returns ParseError only once all three strategies fail.
func parseEntityMap(raw string) (map[string][]string, error) {
	var direct map[string][]string
	if err := json.Unmarshal([]byte(raw), &direct); err == nil {
		return direct, nil
	}

	if match := outermostObject.FindString(raw); match != "" {
		var extracted map[string][]string
		if err := json.Unmarshal([]byte(match), &extracted); err == nil {
			return extracted, nil
		}
	}

	parsed := gjson.Parse(raw)
	if parsed.IsObject() {
		out := map[string][]string{}
		parsed.ForEach(func(key, value gjson.Result) bool {
			var vals []string
			if value.IsArray() {
				for _, v := range value.Array() {
					vals = append(vals, v.String())
				}
			} else if value.Exists() {
				vals = append(vals, value.String())
			}
			out[key.String()] = vals
			return true
		})
		if len(out) > 0 {
			return out, nil
		}
	}

	return nil, model.NewParseError(nil, "could not recover a JSON entity map from model response")
}

// EntityMapSchema is a JSON Schema describing the {type -> [mentions]}
// shape both `ner` and `pair` return, generated once at init rather than
// per-call. The chat requests in this package do not send it: none of them
// sets a response_format.
var EntityMapSchema = func() string {
	reflector := jsonschema.Reflector{
		ExpandedStruct:            true,
		DoNotReference:            true,
		AllowAdditionalProperties: true,
	}
	schema := reflector.Reflect(map[string][]string{})
	data, err := json.Marshal(schema)
	if err != nil {
		return ""
	}
	return string(data)
}()
