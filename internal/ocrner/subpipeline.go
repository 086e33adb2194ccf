package ocrner

import (
	"context"
	"strings"

	"github.com/pkoukk/tiktoken-go"

	"github.com/rezonia/pii-redactor/internal/model"
	"github.com/rezonia/pii-redactor/internal/regexmatch"
)

// NERClient is the subset of *ner.Client the sub-pipeline depends on.
type NERClient interface {
	NER(ctx context.Context, text string, types []string) (map[string][]string, error)
}

// maxChunkTokens bounds each NER call's input so a long concatenated page
// never exceeds the model's context window; chunk boundaries fall on
// newlines (block boundaries) so no mention is split across a chunk edge.
const maxChunkTokens = 2000

// Run implements the full OCR+NER Sub-pipeline (spec.md §4.8): seal
// promotion, table expansion, token-budgeted concatenated-text NER,
// substring/Levenshtein reprojection, regex overlay, and an internal
// IoU≥0.5 merge.
func Run(ctx context.Context, blocks []model.OCRTextBlock, nerClient NERClient, matcher *regexmatch.Matcher, enabledTypes []string, page int) ([]model.BoundingBox, error) {
	var out []model.BoundingBox
	var virtualBlocks []virtualBlock

	for _, block := range blocks {
		if block.Label == model.OCRLabelSeal {
			left, top, width, height := block.Rect()
			out = append(out, model.BoundingBox{
				X: left, Y: top, Width: width, Height: height,
				Page: page, Type: "SEAL", Text: block.Text, Source: model.SourceOCRHas,
			})
			continue
		}
		if looksLikeTable(block.Text) {
			virtualBlocks = append(virtualBlocks, expandTable(block)...)
		} else {
			left, top, width, height := block.Rect()
			virtualBlocks = append(virtualBlocks, virtualBlock{
				text: block.Text, left: left, top: top, width: width, height: height,
				confidence: block.Confidence,
			})
		}
	}

	nerMap, err := runChunkedNER(ctx, nerClient, virtualBlocks, enabledTypes)
	if err != nil {
		return nil, err
	}

	seen := make([]model.BoundingBox, 0, len(out))
	seen = append(seen, out...)

	for typ, mentions := range nerMap {
		for _, mention := range mentions {
			vb, confidence, ok := reprojectMention(virtualBlocks, mention)
			if !ok {
				continue
			}
			box := toBoundingBox(vb, typ, page)
			box.Page = page
			_ = confidence
			seen = mergeByIoU(seen, box)
		}
	}

	seen = append(seen, regexOverlay(virtualBlocks, matcher, enabledTypes, page, seen)...)

	return dedupeByIoU(seen), nil
}

// runChunkedNER concatenates block texts with newlines and splits the
// result into token-budgeted chunks (via tiktoken-go) before calling the
// Text-NER Client, so a long page never exceeds the model's context
// window; per-chunk results are merged into one {type -> [mentions]} map.
func runChunkedNER(ctx context.Context, nerClient NERClient, blocks []virtualBlock, enabledTypes []string) (map[string][]string, error) {
	lines := make([]string, len(blocks))
	for i, b := range blocks {
		lines[i] = b.text
	}

	chunks := chunkByTokens(lines, maxChunkTokens)
	merged := map[string][]string{}
	for _, chunk := range chunks {
		if strings.TrimSpace(chunk) == "" {
			continue
		}
		m, err := nerClient.NER(ctx, chunk, enabledTypes)
		if err != nil {
			return nil, err
		}
		for typ, mentions := range m {
			merged[typ] = append(merged[typ], mentions...)
		}
	}
	return merged, nil
}

func chunkByTokens(lines []string, maxTokens int) []string {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		// Falls back to one chunk rather than failing the whole stage;
		// the model still receives all the text, just without a budget.
		return []string{strings.Join(lines, "\n")}
	}

	var chunks []string
	var current []string
	tokenCount := 0
	for _, line := range lines {
		lineTokens := len(enc.Encode(line, nil, nil))
		if tokenCount+lineTokens > maxTokens && len(current) > 0 {
			chunks = append(chunks, strings.Join(current, "\n"))
			current = nil
			tokenCount = 0
		}
		current = append(current, line)
		tokenCount += lineTokens
	}
	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, "\n"))
	}
	return chunks
}

// regexOverlay applies the matcher's registered patterns directly to each
// OCR block's own text, emitting boxes with the same sub-pixel geometry
// rule entity reprojection uses (spec.md §4.8 step 5).
func regexOverlay(blocks []virtualBlock, matcher *regexmatch.Matcher, enabledTypes []string, page int, existing []model.BoundingBox) []model.BoundingBox {
	var out []model.BoundingBox
	for _, b := range blocks {
		entities, err := matcher.Extract(b.text, enabledTypes)
		if err != nil {
			continue
		}
		for _, e := range entities {
			vb := subGeometry(b, e.Start, e.Text)
			out = append(out, toBoundingBox(vb, e.Type, page))
		}
	}
	return out
}

// mergeByIoU appends box to existing, skipping it if an IoU≥0.5 match
// already exists (spec.md §4.8 step 6: "first-accepted wins").
func mergeByIoU(existing []model.BoundingBox, box model.BoundingBox) []model.BoundingBox {
	for _, e := range existing {
		if model.IoU(e, box) >= 0.5 {
			return existing
		}
	}
	return append(existing, box)
}

func dedupeByIoU(boxes []model.BoundingBox) []model.BoundingBox {
	var out []model.BoundingBox
	for _, b := range boxes {
		out = mergeByIoU(out, b)
	}
	return out
}
