// Package ocrner implements the OCR+NER Sub-pipeline (spec.md §4.8): OCR
// block collection, HTML table expansion, concatenated-text NER,
// substring/Levenshtein reprojection back to sub-word geometry, a regex
// overlay, and an internal IoU merge. Grounded on `hybrid_vision_service.py`
// for the parts read in full (table expansion, substring reprojection);
// the merge tail past line 260 of that file was not read, so the merge
// step follows spec.md §4.8 step 6 directly.
package ocrner

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/rezonia/pii-redactor/internal/model"
)

var (
	rowPattern     = regexp.MustCompile(`(?is)<tr[^>]*>(.*?)</tr>`)
	cellPattern    = regexp.MustCompile(`(?is)<t[dh]([^>]*)>(.*?)</t[dh]>`)
	colspanPattern = regexp.MustCompile(`(?i)colspan\s*=\s*["']?(\d+)`)
	tagPattern     = regexp.MustCompile(`(?s)<[^>]+>`)
)

// cell is one parsed table cell, with its colspan already resolved.
type cell struct {
	text    string
	colspan int
}

// virtualBlock is a cell expanded into an OCRTextBlock-shaped rectangle
// inside the original table block's geometry.
type virtualBlock struct {
	text                   string
	left, top, width, height float64
	confidence             float64
}

// looksLikeTable reports whether a block's text is (or contains) an HTML
// <table> element.
func looksLikeTable(text string) bool {
	return strings.Contains(strings.ToLower(text), "<table")
}

// expandTable parses an HTML table into per-cell virtual blocks laid out
// uniformly over the source block's bounding rectangle, per spec.md §4.8
// step 2. Falls back to the flattened, tag-stripped text at block geometry
// if no rows/cells are found.
func expandTable(block model.OCRTextBlock) []virtualBlock {
	left, top, width, height := block.Rect()

	rows := parseRows(block.Text)
	if len(rows) == 0 {
		return []virtualBlock{{
			text: stripTags(block.Text), left: left, top: top, width: width, height: height,
			confidence: block.Confidence,
		}}
	}

	totalCols := 0
	for _, row := range rows {
		cols := 0
		for _, c := range row {
			cols += c.colspan
		}
		if cols > totalCols {
			totalCols = cols
		}
	}
	if totalCols == 0 {
		return []virtualBlock{{
			text: stripTags(block.Text), left: left, top: top, width: width, height: height,
			confidence: block.Confidence,
		}}
	}

	rowHeight := height / float64(len(rows))
	colWidth := width / float64(totalCols)

	var out []virtualBlock
	for ri, row := range rows {
		colOffset := 0
		for _, c := range row {
			out = append(out, virtualBlock{
				text:       c.text,
				left:       left + float64(colOffset)*colWidth,
				top:        top + float64(ri)*rowHeight,
				width:      float64(c.colspan) * colWidth,
				height:     rowHeight,
				confidence: 0.9 * block.Confidence,
			})
			colOffset += c.colspan
		}
	}
	return out
}

func parseRows(html string) [][]cell {
	var rows [][]cell
	for _, rowMatch := range rowPattern.FindAllStringSubmatch(html, -1) {
		var cells []cell
		for _, cellMatch := range cellPattern.FindAllStringSubmatch(rowMatch[1], -1) {
			attrs, inner := cellMatch[1], cellMatch[2]
			span := 1
			if m := colspanPattern.FindStringSubmatch(attrs); m != nil {
				if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
					span = n
				}
			}
			cells = append(cells, cell{text: stripTags(inner), colspan: span})
		}
		if len(cells) > 0 {
			rows = append(rows, cells)
		}
	}
	return rows
}

func stripTags(s string) string {
	return strings.TrimSpace(tagPattern.ReplaceAllString(s, " "))
}
