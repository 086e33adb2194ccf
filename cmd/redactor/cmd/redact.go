package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/nguyenthenguyen/docx"
	"github.com/spf13/cobra"

	"github.com/rezonia/pii-redactor/internal/model"
	"github.com/rezonia/pii-redactor/internal/server"
)

var (
	redactOutput      string
	redactMode        string
	redactDetectMode  string
	redactTypes       string
	redactUseHistory  bool
	redactTimeoutFlag time.Duration
)

var redactCmd = &cobra.Command{
	Use:   "redact <file>",
	Short: "Detect and redact PII in a text or DOCX file",
	Long: `Run the Hybrid Text Detector over a file and burn the generated
replacements back into an output file.

Plain text files (.txt and any other extension) are detected and rewritten
in place as text. DOCX files are detected via their extracted text and
redacted through the DOCX writer adapter, preserving the original
paragraph/run structure.

Examples:
  redactor redact contract.txt --mode mask
  redactor redact contract.docx -o contract.redacted.docx --mode structured`,
	Args: cobra.ExactArgs(1),
	RunE: runRedact,
}

func init() {
	rootCmd.AddCommand(redactCmd)

	redactCmd.Flags().StringVarP(&redactOutput, "output", "o", "", "Output file (default: <input>.redacted<ext>)")
	redactCmd.Flags().StringVar(&redactMode, "mode", "smart", "Replacement mode: smart, mask, structured, custom")
	redactCmd.Flags().StringVar(&redactDetectMode, "detect-mode", "ner", "Stage 1 Text-NER call mode: ner, hide, auto")
	redactCmd.Flags().StringVar(&redactTypes, "types", "", "Comma-separated enabled entity type ids (default: all)")
	redactCmd.Flags().BoolVar(&redactUseHistory, "use-history", false, "Carry Text-NER conversation history across calls")
	redactCmd.Flags().DurationVar(&redactTimeoutFlag, "timeout", 2*time.Minute, "Detection timeout")
}

func runRedact(cmd *cobra.Command, args []string) error {
	inputPath := args[0]
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("read %s: %w", inputPath, err)
	}

	ext := strings.ToLower(filepath.Ext(inputPath))
	isDocx := ext == ".docx"

	text := string(data)
	if isDocx {
		text, err = extractDocxText(inputPath)
		if err != nil {
			return fmt.Errorf("extract docx text: %w", err)
		}
	}

	svc, err := newCLIService()
	if err != nil {
		return fmt.Errorf("initialize service: %w", err)
	}
	defer svc.Close()

	var enabledTypes []string
	if redactTypes != "" {
		enabledTypes = strings.Split(redactTypes, ",")
	}

	ctx, cancel := context.WithTimeout(context.Background(), redactTimeoutFlag)
	defer cancel()

	entities, warnings, err := svc.DetectText(ctx, text, model.DetectMode(redactDetectMode), enabledTypes, redactUseHistory)
	if err != nil {
		return fmt.Errorf("detect: %w", err)
	}
	for _, w := range warnings {
		printVerbose("warning: %s\n", w)
	}
	for i := range entities {
		entities[i].Selected = true
	}
	printVerbose("detected %d entities\n", len(entities))

	entityMap, comparison := svc.RedactText(entities, svc.ListTypes(false), model.ReplacementMode(redactMode), nil, nil)

	outputPath := redactOutput
	if outputPath == "" {
		outputPath = defaultRedactedPath(inputPath, ext)
	}

	if isDocx {
		count, err := svc.RedactDOCXFile(inputPath, outputPath, entityMap)
		if err != nil {
			return fmt.Errorf("redact docx: %w", err)
		}
		fmt.Printf("Redacted %d mention(s) -> %s\n", count, outputPath)
	} else {
		redacted := applyEntityMap(text, entityMap)
		if err := os.WriteFile(outputPath, []byte(redacted), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", outputPath, err)
		}
		fmt.Printf("Redacted %d mention(s) -> %s\n", len(entityMap), outputPath)
	}

	if outputFormat == "json" {
		payload, _ := json.MarshalIndent(map[string]any{
			"entity_map": entityMap,
			"comparison": comparison,
			"warnings":   warnings,
		}, "", "  ")
		fmt.Println(string(payload))
	}

	return nil
}

func newCLIService() (*server.Service, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, err
	}
	if err := seedModelEndpoints(); err != nil {
		return nil, err
	}
	return server.NewService(server.ServiceConfig{
		TaxonomyPath: filepath.Join(dataDir, "taxonomy.json"),
		PipelinePath: filepath.Join(dataDir, "pipeline.json"),
		ModelPath:    filepath.Join(dataDir, "models.json"),
		OCRBaseURL:   ocrBaseURL,
		VLMProxyURL:  mcpProxyURL,
		VLMDirectURL: vlmBaseURL,
	})
}

func defaultRedactedPath(inputPath, ext string) string {
	base := strings.TrimSuffix(inputPath, ext)
	return base + ".redacted" + ext
}

// applyEntityMap rewrites every occurrence of entityMap's keys in text,
// longest-match-first so a longer mention is never partially consumed by
// a shorter one sharing a prefix (same ordering the DOCX writer uses).
func applyEntityMap(text string, entityMap map[string]string) string {
	originals := make([]string, 0, len(entityMap))
	for original := range entityMap {
		if original != "" {
			originals = append(originals, original)
		}
	}
	sort.Slice(originals, func(i, j int) bool { return len(originals[i]) > len(originals[j]) })

	for _, original := range originals {
		text = strings.ReplaceAll(text, original, entityMap[original])
	}
	return text
}

var xmlTag = regexp.MustCompile(`<[^>]+>`)

// extractDocxText pulls a plain-text approximation of a DOCX's body out of
// its raw WordprocessingML, for feeding to the Hybrid Text Detector. The
// writer adapter itself (writer.RedactDOCX) operates on the original file
// directly and doesn't need this extraction.
func extractDocxText(path string) (string, error) {
	r, err := docx.ReadDocxFile(path)
	if err != nil {
		return "", err
	}
	defer r.Close()

	content := r.Editable().GetContent()
	text := xmlTag.ReplaceAllString(content, " ")
	return strings.Join(strings.Fields(text), " "), nil
}
