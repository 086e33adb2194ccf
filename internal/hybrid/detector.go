// Package hybrid implements the Hybrid Text Detector (spec.md §4.4): a
// Stage 1 Text-NER call, a Stage 2 Regex Matcher pass over the same text,
// and a Stage 3 cross-validation that dedups overlapping spans, assigns
// coreference ids, and rewrites ids into a stable sequence. Grounded on
// `hybrid_ner_service.py`'s `_cross_validate`.
package hybrid

import (
	"context"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/samber/lo"

	"github.com/rezonia/pii-redactor/internal/model"
	"github.com/rezonia/pii-redactor/internal/ner"
	"github.com/rezonia/pii-redactor/internal/regexmatch"
)

// NERClient is the subset of *ner.Client the detector depends on, so
// tests can substitute a fake.
type NERClient interface {
	NER(ctx context.Context, text string, types []string) (map[string][]string, error)
	Hide(ctx context.Context, text string, types []string, useHistory bool) (ner.HideResult, error)
}

// Detector runs the two text-side detection stages and fuses their output.
type Detector struct {
	nerClient NERClient
	matcher   *regexmatch.Matcher
	mode      model.DetectMode
}

// NewDetector builds a Detector. mode selects how Stage 1 calls the
// Text-NER Client: DetectModeNER for a plain ner() call, DetectModeHide to
// drive coreference off the model's own tag assignment instead of
// (text,type) equivalence, DetectModeAuto falling back to ner().
func NewDetector(nerClient NERClient, matcher *regexmatch.Matcher, mode model.DetectMode) *Detector {
	return &Detector{nerClient: nerClient, matcher: matcher, mode: mode}
}

// Detect runs both stages over text and returns the fused, coref-assigned,
// sequentially-id'd entity list, plus any non-fatal warnings. Per spec.md
// §4.4's failure model, a Text-NER transport failure (or an unconfigured
// client) degrades Stage 1 to empty rather than aborting the whole
// detect: Stages 2/3 still run, producing a regex-only result, and the
// failure is reported as a warning instead of an error.
func (d *Detector) Detect(ctx context.Context, text string, enabledTypes []string, useHistory bool) ([]model.Entity, []string, error) {
	regexEntities, err := d.matcher.Extract(text, enabledTypes)
	if err != nil {
		return nil, nil, model.NewInternalError(err, "regex matcher failed")
	}

	var nerMap map[string][]string
	var tagMapping map[string][]string
	var warnings []string

	switch {
	case d.nerClient == nil:
		warnings = append(warnings, "text-NER client not configured; degraded to regex-only detection")
	case d.mode == model.DetectModeHide:
		result, err := d.nerClient.Hide(ctx, text, enabledTypes, useHistory)
		if err != nil {
			warnings = append(warnings, "text-NER hide call failed: "+err.Error())
		} else {
			tagMapping = result.Mapping
			nerMap = mappingToEntityMap(tagMapping)
		}
	default:
		m, err := d.nerClient.NER(ctx, text, enabledTypes)
		if err != nil {
			warnings = append(warnings, "text-NER call failed: "+err.Error())
		} else {
			nerMap = m
		}
	}

	nerEntities := locateMentions(text, nerMap)
	merged := crossValidate(regexEntities, nerEntities)

	if tagMapping != nil {
		assignCorefFromTags(merged, tagMapping)
	} else {
		assignCorefByTextType(merged)
	}
	rewriteIDs(merged)

	return merged, warnings, nil
}

var tagSuffix = regexp.MustCompile(`_\d+$`)

func tagBaseType(tag string) string {
	return tagSuffix.ReplaceAllString(tag, "")
}

func mappingToEntityMap(mapping map[string][]string) map[string][]string {
	out := map[string][]string{}
	for tag, originals := range mapping {
		typ := ner.MapTypeToID(tagBaseType(tag))
		out[typ] = append(out[typ], originals...)
	}
	return out
}

// locateMentions converts a {type -> [mention]} map into positioned
// Entity spans by finding every non-overlapping occurrence of each mention
// in text (the NER transport returns text, never offsets). Start/End are
// reported as rune (character) offsets, matching the Regex Matcher's
// coordinate space (spec.md's DATA MODEL defines Entity.start/end as
// character offsets into the canonical document string) so Stage 3's
// (start,end) grouping and overlap resolution compare like units.
func locateMentions(text string, nerMap map[string][]string) []model.Entity {
	var out []model.Entity
	for typ, mentions := range nerMap {
		for _, mention := range lo.Filter(mentions, func(m string, _ int) bool { return m != "" }) {
			mentionLen := utf8.RuneCountInString(mention)
			for _, pos := range allIndices(text, mention) {
				out = append(out, model.Entity{
					Text:       mention,
					Type:       typ,
					Start:      pos,
					End:        pos + mentionLen,
					Source:     model.SourceNER,
					Confidence: 0.85,
				})
			}
		}
	}
	return out
}

// allIndices finds every non-overlapping rune offset at which needle
// occurs in haystack, converting strings.Index's byte offsets into rune
// offsets so the result sits in the same character-offset space as the
// Regex Matcher's regexp2-produced spans.
func allIndices(haystack, needle string) []int {
	var out []int
	byteOffset := 0
	for {
		i := strings.Index(haystack[byteOffset:], needle)
		if i < 0 {
			return out
		}
		byteIdx := byteOffset + i
		out = append(out, utf8.RuneCountInString(haystack[:byteIdx]))
		byteOffset = byteIdx + len(needle)
	}
}

// crossValidate fuses regex and NER candidates per spec.md §4.4 steps 2-3.
//
// Step 2 (per-position dedup): candidates are grouped by (start, end); the
// winner within a group is chosen by (higher confidence) > (higher source
// rank: regex=3 > ner=2 > manual=1) > (higher type priority) > (lower type
// id, lexicographic, deterministic). Because confidence is compared first,
// a regex/NER pair at the same span collapses to the regex-sourced entity
// only when the regex confidence is not lower than the NER one (NER spans
// carry 0.85); a NER candidate with strictly higher confidence keeps the
// span instead.
//
// Step 3 (overlap resolution): the deduped survivors are sorted by (start
// ascending, length descending) and greedily accepted left to right,
// skipping any candidate that overlaps an already-accepted span. Longer
// matches beat short prefixes ("张三丰" beats "张三").
func crossValidate(regexEntities, nerEntities []model.Entity) []model.Entity {
	all := make([]model.Entity, 0, len(regexEntities)+len(nerEntities))
	all = append(all, regexEntities...)
	all = append(all, nerEntities...)

	groups := map[[2]int][]model.Entity{}
	var order [][2]int
	for _, e := range all {
		key := [2]int{e.Start, e.End}
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], e)
	}

	deduped := make([]model.Entity, 0, len(order))
	for _, key := range order {
		deduped = append(deduped, pickWinner(groups[key]))
	}

	sort.SliceStable(deduped, func(i, j int) bool {
		a, b := deduped[i], deduped[j]
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		return (a.End - a.Start) > (b.End - b.Start)
	})

	var accepted []model.Entity
	lastEnd := -1
	for _, e := range deduped {
		if e.Start < lastEnd {
			continue
		}
		accepted = append(accepted, e)
		lastEnd = e.End
	}
	return accepted
}

// pickWinner resolves step 2's per-position dedup within a single
// (start, end) group and returns the winning entity with Confidence raised
// to the group's max (property 6: the survivor carries "the higher of the
// two" confidences even when it wins on a lower-ranked tiebreak).
func pickWinner(group []model.Entity) model.Entity {
	best := group[0]
	maxConfidence := group[0].Confidence
	for _, e := range group[1:] {
		if e.Confidence > maxConfidence {
			maxConfidence = e.Confidence
		}
		if better(e, best) {
			best = e
		}
	}
	best.Confidence = maxConfidence
	return best
}

// better reports whether candidate a should replace current winner b under
// spec.md §4.4 step 2's tiebreak chain.
func better(a, b model.Entity) bool {
	if a.Confidence != b.Confidence {
		return a.Confidence > b.Confidence
	}
	if a.Source.SourceRank() != b.Source.SourceRank() {
		return a.Source.SourceRank() > b.Source.SourceRank()
	}
	if model.TypePriority(a.Type) != model.TypePriority(b.Type) {
		return model.TypePriority(a.Type) > model.TypePriority(b.Type)
	}
	return a.Type < b.Type
}

// assignCorefByTextType groups entities into coreference classes by
// case-folded (text, type) equivalence, the default when no hide-mode tag
// mapping is available.
func assignCorefByTextType(entities []model.Entity) {
	classID := map[string]string{}
	next := 0
	for i := range entities {
		key := strings.ToLower(entities[i].Text) + "\x00" + entities[i].Type
		id, ok := classID[key]
		if !ok {
			id = corefLabel(next)
			classID[key] = id
			next++
		}
		entities[i].CorefID = id
	}
}

// assignCorefFromTags lets the model's own hide-mode tag assignment
// (e.g. "PERSON_1" covering both "John Smith" and "Mr. Smith") win over
// plain text equivalence; entities whose text isn't in the mapping (most
// often regex-sourced spans with no model counterpart) fall back to
// per-(text,type) grouping among themselves.
func assignCorefFromTags(entities []model.Entity, mapping map[string][]string) {
	originalToTag := map[string]string{}
	for tag, originals := range mapping {
		for _, o := range originals {
			originalToTag[strings.ToLower(o)] = tag
		}
	}

	classID := map[string]string{}
	next := 0
	for i := range entities {
		key := strings.ToLower(entities[i].Text)
		if tag, ok := originalToTag[key]; ok {
			entities[i].CorefID = tag
			continue
		}
		fallbackKey := key + "\x00" + entities[i].Type
		id, ok := classID[fallbackKey]
		if !ok {
			id = corefLabel(next)
			classID[fallbackKey] = id
			next++
		}
		entities[i].CorefID = id
	}
}

func corefLabel(n int) string {
	return "coref_" + strconv.Itoa(n)
}

func rewriteIDs(entities []model.Entity) {
	for i := range entities {
		entities[i].ID = "entity_" + strconv.Itoa(i)
	}
}
