// Package writer implements the Writer Adapters (spec.md §4.11): the
// boundary components that take a finished entity_map/bounding-box
// selection and burn it into an output document. Grounded on
// `redactor.py`'s `_replace_in_paragraph`/`_redact_pdf_text`/
// `vision_service.apply_redaction`.
package writer

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/nguyenthenguyen/docx"

	"github.com/rezonia/pii-redactor/internal/model"
)

// RedactDOCX rewrites every occurrence of each entityMap key with its
// replacement, longest-match-first so a longer mention ("张三丰") is never
// partially consumed by a shorter one's replacement ("张三") sharing a
// prefix. `nguyenthenguyen/docx`'s Replace operates on each paragraph's
// `<w:t>` text nodes directly, which keeps a substitution inside whichever
// run already owns that text — the closest this library gets to
// `redactor.py`'s explicit per-run majority-style rebuild, which requires
// run-level text array access this library doesn't expose.
func RedactDOCX(inputPath, outputPath string, entityMap map[string]string) (int, error) {
	r, err := docx.ReadDocxFile(inputPath)
	if err != nil {
		return 0, model.NewUpstreamUnavailableError(err, "open docx %s", inputPath)
	}
	defer r.Close()

	editable := r.Editable()

	originals := longestFirst(entityMap)

	tracePath := fontTracePath()
	if tracePath != "" {
		initFontTrace(tracePath, inputPath, outputPath, len(originals))
	}

	redacted := 0
	for _, original := range originals {
		if err := editable.Replace(original, entityMap[original], -1); err != nil {
			continue
		}
		redacted++
		if tracePath != "" {
			appendFontTrace(tracePath, original, entityMap[original])
		}
	}

	if err := editable.WriteToFile(outputPath); err != nil {
		return redacted, model.NewInternalError(err, "write redacted docx %s", outputPath)
	}
	return redacted, nil
}

// fontTracePath returns the JSONL debug-export path when DOCX_FONT_TRACE
// is set to a truthy value, or "" when tracing is disabled. Grounded on
// `redactor.py`'s `_is_docx_font_trace_enabled`/`_get_docx_font_trace_path`.
// Unlike the original, which snapshots each run's rFonts/sz chain before
// and after substitution, this trace only records the original/replacement
// pair per match: `nguyenthenguyen/docx` doesn't expose run-level rPr
// access, so there is no font chain here to snapshot.
func fontTracePath() string {
	raw := strings.ToLower(strings.TrimSpace(os.Getenv("DOCX_FONT_TRACE")))
	switch raw {
	case "1", "true", "yes", "on":
	default:
		return ""
	}
	if custom := strings.TrimSpace(os.Getenv("DOCX_FONT_TRACE_PATH")); custom != "" {
		return custom
	}
	return "docx_font_trace.jsonl"
}

type fontTraceRecord struct {
	Type             string `json:"type"`
	Timestamp        string `json:"timestamp"`
	InputPath        string `json:"input_path,omitempty"`
	OutputPath       string `json:"output_path,omitempty"`
	ReplacementCount int    `json:"replacement_count,omitempty"`
	Original         string `json:"original,omitempty"`
	Replacement      string `json:"replacement,omitempty"`
}

func initFontTrace(tracePath, inputPath, outputPath string, replacementCount int) {
	if dir := filepath.Dir(tracePath); dir != "." {
		_ = os.MkdirAll(dir, 0o755)
	}
	appendTraceRecord(tracePath, fontTraceRecord{
		Type:             "session",
		Timestamp:        time.Now().UTC().Format(time.RFC3339),
		InputPath:        inputPath,
		OutputPath:       outputPath,
		ReplacementCount: replacementCount,
	})
}

func appendFontTrace(tracePath, original, replacement string) {
	appendTraceRecord(tracePath, fontTraceRecord{
		Type:        "match",
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		Original:    original,
		Replacement: replacement,
	})
}

// appendTraceRecord appends one JSONL line; a failure here (disk full, bad
// path) never blocks the redaction it's observing, matching the original's
// own try/except-and-print around the file write.
func appendTraceRecord(tracePath string, record fontTraceRecord) {
	f, err := os.OpenFile(tracePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return
	}
	defer f.Close()
	line, err := json.Marshal(record)
	if err != nil {
		return
	}
	_, _ = f.Write(append(line, '\n'))
}

// longestFirst orders entityMap's keys so the replacement pass never lets
// a shorter mention eat into a longer one sharing a prefix.
func longestFirst(entityMap map[string]string) []string {
	originals := make([]string, 0, len(entityMap))
	for original := range entityMap {
		if original == "" {
			continue
		}
		originals = append(originals, original)
	}
	sort.Slice(originals, func(i, j int) bool { return len(originals[i]) > len(originals[j]) })
	return originals
}
