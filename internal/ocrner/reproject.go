package ocrner

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/rezonia/pii-redactor/internal/model"
)

const (
	shortBlockThreshold  = 100
	majorityOccupancy    = 0.8
	levenshteinThreshold = 0.85
	// minSubWidth approximates spec.md §4.8's "20 px" floor for sub-word
	// interpolated width. OCR blocks here already carry unit [0,1]
	// geometry (the OCR wire format returns unit rects directly, so no
	// pixel dimension is tracked downstream) — 0.01 of page width stands
	// in for "20px on a ~2000px-wide page", the OCR client's typical input
	// size.
	minSubWidth = 0.01
)

// reprojectMention finds the geometry for one NER-returned mention inside
// the expanded OCR blocks, per spec.md §4.8 step 4.
func reprojectMention(blocks []virtualBlock, mention string) (virtualBlock, float64, bool) {
	candidates := make([]virtualBlock, len(blocks))
	copy(candidates, blocks)
	sort.Slice(candidates, func(i, j int) bool {
		return utf8.RuneCountInString(candidates[i].text) < utf8.RuneCountInString(candidates[j].text)
	})

	for _, b := range candidates {
		byteIdx := strings.Index(b.text, mention)
		if byteIdx < 0 {
			continue
		}
		// subGeometry's fracStart/fracWidth ratios are computed in runes
		// (to agree with the Regex Matcher's character-offset spans), so
		// strings.Index's byte offset is converted before use.
		pos := utf8.RuneCountInString(b.text[:byteIdx])
		return subGeometry(b, pos, mention), 1.0, true
	}

	// Levenshtein-style fallback when no exact substring match exists.
	var best virtualBlock
	bestSim := 0.0
	found := false
	for _, b := range candidates {
		sim := similarity(b.text, mention)
		if sim > bestSim {
			bestSim, best, found = sim, b, true
		}
	}
	if found && bestSim >= levenshteinThreshold {
		return best, 0.9, true
	}
	return virtualBlock{}, 0, false
}

// subGeometry implements spec.md §4.8 step 4's whole-block vs.
// linear-interpolation decision. pos and the derived fracStart/fracWidth
// ratios are all in rune (character) units — blockLen/mentionLen must be
// too, or mixing a byte length with a rune-based pos silently misplaces
// the box on any block mixing ASCII and multi-byte characters.
func subGeometry(b virtualBlock, pos int, mention string) virtualBlock {
	blockLen := utf8.RuneCountInString(b.text)
	mentionLen := utf8.RuneCountInString(mention)

	if blockLen <= shortBlockThreshold ||
		float64(mentionLen)/float64(blockLen) > majorityOccupancy ||
		isMultiFieldLine(b.text) {
		return b
	}

	fracStart := float64(pos) / float64(blockLen)
	fracWidth := float64(mentionLen) / float64(blockLen)

	subLeft := b.left + fracStart*b.width
	subWidth := fracWidth * b.width
	if subWidth < minSubWidth {
		subWidth = minSubWidth
	}
	return virtualBlock{
		text: mention, left: subLeft, top: b.top, width: subWidth, height: b.height,
		confidence: b.confidence,
	}
}

func isMultiFieldLine(text string) bool {
	separators := 0
	for _, sep := range []string{":", "：", "|"} {
		separators += strings.Count(text, sep)
	}
	return separators >= 2 || strings.Contains(text, "  ") || strings.Contains(text, "\t")
}

// similarity is a normalized Levenshtein similarity in [0,1]; 1 means
// identical.
func similarity(a, b string) float64 {
	if a == "" && b == "" {
		return 1
	}
	dist := levenshtein(a, b)
	maxLen := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > maxLen {
		maxLen = n
	}
	if maxLen == 0 {
		return 1
	}
	return 1 - float64(dist)/float64(maxLen)
}

func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = minInt(curr[j-1]+1, minInt(prev[j]+1, prev[j-1]+cost))
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func toBoundingBox(v virtualBlock, typeID string, page int) model.BoundingBox {
	return model.BoundingBox{
		X: v.left, Y: v.top, Width: v.width, Height: v.height,
		Page: page, Type: typeID, Text: v.text,
		Source: model.SourceOCRHas,
	}
}
