// Package regexmatch implements the Regex Matcher (spec.md §4.2):
// compiled-pattern scanning with per-type priority tiebreaks, grounded on
// `regex_service.py`.
package regexmatch

import (
	"fmt"
	"sort"

	"github.com/dlclark/regexp2"

	"github.com/rezonia/pii-redactor/internal/model"
)

type compiledPattern struct {
	re         *regexp2.Regexp
	priority   int
	confidence float64
}

// Matcher holds one or more compiled patterns per taxonomy type id.
// Compilation happens once, in NewMatcher; a pattern that fails to
// compile is dropped and reported via the returned error slice rather
// than failing the whole matcher (spec.md §4.2: "pattern errors are
// logged and the offending type is marked disabled until reconfigured").
type Matcher struct {
	byType map[string][]compiledPattern
}

// NewMatcher compiles the builtin pattern table plus any user-supplied
// single-pattern types sourced from the taxonomy registry (EntityTypeConfig.RegexPattern).
// The returned error slice holds one error per pattern that failed to
// compile, each prefixed with its type id.
func NewMatcher(userPatterns map[string]string) (*Matcher, []error) {
	m := &Matcher{byType: map[string][]compiledPattern{}}
	var errs []error

	for typeID, defs := range builtinPatternDefs {
		for _, d := range defs {
			re, err := regexp2.Compile(d.pattern, regexp2.IgnoreCase)
			if err != nil {
				errs = append(errs, fmt.Errorf("type %s: %w", typeID, err))
				continue
			}
			m.byType[typeID] = append(m.byType[typeID], compiledPattern{re, d.priority, d.confidence})
		}
	}

	for typeID, pattern := range userPatterns {
		if pattern == "" {
			continue
		}
		re, err := regexp2.Compile(pattern, regexp2.IgnoreCase)
		if err != nil {
			errs = append(errs, fmt.Errorf("type %s: %w", typeID, err))
			continue
		}
		// A taxonomy-supplied pattern takes precedence over any builtin
		// default sharing the same type id.
		m.byType[typeID] = []compiledPattern{{re, 10, 0.97}}
	}

	return m, errs
}

// SupportedTypes returns the type ids this matcher has at least one
// compiled pattern for.
func (m *Matcher) SupportedTypes() []string {
	out := make([]string, 0, len(m.byType))
	for t := range m.byType {
		out = append(out, t)
	}
	return out
}

type candidate struct {
	start, end int
	text       string
	typeID     string
	priority   int
	confidence float64
}

// Extract scans text for every pattern registered under the given
// enabled type ids (nil/empty means "all registered types") and returns
// non-overlapping Entities. Overlaps are resolved by sorting on
// (start ascending, -priority) and greedily accepting, matching
// `regex_service.py`'s `extract()`.
func (m *Matcher) Extract(text string, enabledTypes []string) ([]model.Entity, error) {
	types := enabledTypes
	if len(types) == 0 {
		types = m.SupportedTypes()
	}

	var candidates []candidate
	seen := map[[2]int]bool{}

	for _, typeID := range types {
		for _, cp := range m.byType[typeID] {
			matches, err := findAll(cp.re, text)
			if err != nil {
				return nil, model.NewInternalError(err, "regex scan failed for type %s", typeID)
			}
			for _, mm := range matches {
				key := [2]int{mm.start, mm.end}
				if seen[key] {
					continue
				}
				seen[key] = true
				candidates = append(candidates, candidate{
					start: mm.start, end: mm.end, text: mm.text,
					typeID: typeID, priority: cp.priority, confidence: cp.confidence,
				})
			}
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].start != candidates[j].start {
			return candidates[i].start < candidates[j].start
		}
		return candidates[i].priority > candidates[j].priority
	})

	var out []model.Entity
	lastEnd := -1
	for _, c := range candidates {
		if c.start < lastEnd {
			continue
		}
		out = append(out, model.Entity{
			Text:       c.text,
			Type:       c.typeID,
			Start:      c.start,
			End:        c.end,
			Confidence: c.confidence,
			Source:     model.SourceRegex,
		})
		lastEnd = c.end
	}
	return out, nil
}

type rawMatch struct {
	start, end int
	text       string
}

// findAll collects every non-overlapping match regexp2 finds, walking
// FindNextMatch since regexp2 has no FindAll equivalent.
func findAll(re *regexp2.Regexp, text string) ([]rawMatch, error) {
	var out []rawMatch
	m, err := re.FindStringMatch(text)
	if err != nil {
		return nil, err
	}
	for m != nil {
		out = append(out, rawMatch{
			start: m.Index,
			end:   m.Index + m.Length,
			text:  m.String(),
		})
		m, err = re.FindNextMatch(m)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}
