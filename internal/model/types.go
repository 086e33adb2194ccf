// Package model holds the data types shared by every redaction component:
// entity-type configuration, detected spans, bounding boxes, OCR blocks and
// the process-wide configuration shapes (taxonomy, pipeline, model
// endpoints).
package model

// Category classifies an entity type per a published de-identification
// standard: direct identifiers alone, quasi-identifiers only in
// combination, and sensitive attributes regardless of identifiability.
type Category string

const (
	CategoryDirect    Category = "direct"
	CategoryQuasi     Category = "quasi"
	CategorySensitive Category = "sensitive"
	CategoryOther     Category = "other"
)

// Source records which stage produced an Entity or BoundingBox.
type Source string

const (
	SourceRegex  Source = "regex"
	SourceNER    Source = "ner"
	SourceManual Source = "manual"

	SourceOCRHas    Source = "ocr_has"
	SourceGLMVision Source = "glm_vision"
)

// sourceRank implements the Hybrid Text Detector's per-position dedup
// tiebreak: regex=3 > ner=2 > manual=1.
func (s Source) sourceRank() int {
	switch s {
	case SourceRegex:
		return 3
	case SourceNER:
		return 2
	case SourceManual:
		return 1
	default:
		return 0
	}
}

// SourceRank exports sourceRank for use outside the package (hybrid
// detector, tests).
func (s Source) SourceRank() int { return s.sourceRank() }

// EntityTypeConfig is a taxonomy registry entry.
type EntityTypeConfig struct {
	ID           string   `json:"id"`
	Name         string   `json:"name" validate:"required"`
	Category     Category `json:"category" validate:"omitempty,oneof=direct quasi sensitive other"`
	Description  string   `json:"description"`
	Examples     []string `json:"examples,omitempty"`
	Color        string   `json:"color,omitempty"`
	RegexPattern string   `json:"regex_pattern,omitempty"`
	UseLLM       bool     `json:"use_llm"`
	Enabled      bool     `json:"enabled"`
	Order        int      `json:"order"`
	TagTemplate  string   `json:"tag_template,omitempty"`
	RiskLevel    int      `json:"risk_level" validate:"omitempty,min=1,max=5"`
	// Preset marks a built-in entry; presets may be disabled but never
	// deleted (PresetProtected), user entries can be deleted freely.
	Preset bool `json:"preset"`
}

// Entity is a detected textual span.
type Entity struct {
	ID          string  `json:"id"`
	Text        string  `json:"text"`
	Type        string  `json:"type"`
	Start       int     `json:"start"`
	End         int     `json:"end"`
	Page        int     `json:"page"`
	Confidence  float64 `json:"confidence"`
	Source      Source  `json:"source"`
	CorefID     string  `json:"coref_id,omitempty"`
	Replacement string  `json:"replacement,omitempty"`
	Selected    bool    `json:"selected"`
}

// BoundingBox is a detected visual region in unit coordinates, relative to
// the EXIF-corrected original image.
type BoundingBox struct {
	ID       string  `json:"id"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Page     int     `json:"page"`
	Type     string  `json:"type"`
	Text     string  `json:"text,omitempty"`
	Selected bool    `json:"selected"`
	Source   Source  `json:"source"`
}

// IoU computes intersection-over-union between two unit-coordinate boxes,
// used by the OCR+NER Sub-pipeline's internal merge (§4.8 step 6) and the
// Dual-Pipeline Fuser's cross-source dedup (§4.9).
func IoU(a, b BoundingBox) float64 {
	ax1, ay1, ax2, ay2 := a.X, a.Y, a.X+a.Width, a.Y+a.Height
	bx1, by1, bx2, by2 := b.X, b.Y, b.X+b.Width, b.Y+b.Height

	ix1, iy1 := maxFloat(ax1, bx1), maxFloat(ay1, by1)
	ix2, iy2 := minFloat(ax2, bx2), minFloat(ay2, by2)

	iw, ih := ix2-ix1, iy2-iy1
	if iw <= 0 || ih <= 0 {
		return 0
	}
	intersection := iw * ih
	union := a.Width*a.Height + b.Width*b.Height - intersection
	if union <= 0 {
		return 0
	}
	return intersection / union
}

// Valid reports whether the box satisfies the DATA MODEL invariants
// (testable property 4), up to a small epsilon for float accumulation.
func (b BoundingBox) Valid() bool {
	const eps = 1e-6
	return b.X >= 0-eps && b.Y >= 0-eps &&
		b.X+b.Width <= 1+eps && b.Y+b.Height <= 1+eps &&
		b.Width > 0 && b.Height > 0
}

// OCRTextBlockLabel classifies an OCRTextBlock.
type OCRTextBlockLabel string

const (
	OCRLabelText  OCRTextBlockLabel = "text"
	OCRLabelTitle OCRTextBlockLabel = "title"
	OCRLabelSeal  OCRTextBlockLabel = "seal"
	OCRLabelTable OCRTextBlockLabel = "table"
)

// Point is a single (x,y) vertex of an OCRTextBlock's quadrilateral, in
// the unit [0,1] coordinates the OCR Client returns.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// OCRTextBlock is the raw unit returned by the OCR Client, before
// expansion (table cells) or reprojection into BoundingBoxes.
type OCRTextBlock struct {
	Text       string            `json:"text"`
	Polygon    [4]Point          `json:"polygon"`
	Confidence float64           `json:"confidence"`
	Label      OCRTextBlockLabel `json:"label"`
}

// Rect returns the block's axis-aligned bounding rectangle, in the same
// coordinates as its polygon.
func (b OCRTextBlock) Rect() (left, top, width, height float64) {
	minX, minY := b.Polygon[0].X, b.Polygon[0].Y
	maxX, maxY := minX, minY
	for _, p := range b.Polygon[1:] {
		minX = minFloat(minX, p.X)
		minY = minFloat(minY, p.Y)
		maxX = maxFloat(maxX, p.X)
		maxY = maxFloat(maxY, p.Y)
	}
	return minX, minY, maxX - minX, maxY - minY
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// PipelineTypeConfig is a PipelineConfig entry: a type id, its display
// name and an enabled flag, since pipelines only gate which vision-sourced
// types are emitted. It carries none of EntityTypeConfig's other fields
// (category, description, examples, color, order, tag template, risk
// level).
type PipelineTypeConfig struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
}

// PipelineMode names one of the two fixed Dual-Pipeline Fuser branches.
type PipelineMode string

const (
	PipelineOCRHas    PipelineMode = "ocr_has"
	PipelineGLMVision PipelineMode = "glm_vision"
)

// PipelineConfig holds the enabled-type list for one of the two fixed
// vision sub-pipelines.
type PipelineConfig struct {
	Mode    PipelineMode         `json:"mode"`
	Enabled bool                 `json:"enabled"`
	Types   []PipelineTypeConfig `json:"types"`
}

// EnabledTypeIDs returns the ids of types enabled within this pipeline, or
// nil if the pipeline itself is disabled.
func (p PipelineConfig) EnabledTypeIDs() []string {
	if !p.Enabled {
		return nil
	}
	var ids []string
	for _, t := range p.Types {
		if t.Enabled {
			ids = append(ids, t.ID)
		}
	}
	return ids
}

// ModelFamily selects the wire protocol used to reach a named model
// endpoint.
type ModelFamily string

const (
	ModelFamilyOpenAICompatible ModelFamily = "openai"
	ModelFamilyAnthropic        ModelFamily = "anthropic"
)

// ModelEndpoint is one named entry of ModelConfig.
type ModelEndpoint struct {
	Name           string      `json:"name"`
	Family         ModelFamily `json:"family"`
	BaseURL        string      `json:"base_url"`
	APIKey         string      `json:"api_key"`
	ModelName      string      `json:"model_name"`
	Temperature    float64     `json:"temperature"`
	TopP           float64     `json:"top_p"`
	MaxTokens      int64       `json:"max_tokens"`
	EnableThinking bool        `json:"enable_thinking"`
	Active         bool        `json:"active"`
}

// ReplacementMode selects the Replacement Engine's string-generation
// strategy.
type ReplacementMode string

const (
	ReplacementSmart      ReplacementMode = "smart"
	ReplacementMask       ReplacementMode = "mask"
	ReplacementStructured ReplacementMode = "structured"
	ReplacementCustom     ReplacementMode = "custom"
)

// DetectMode selects how the Hybrid Text Detector's Stage 1 calls the
// Text-NER Client.
type DetectMode string

const (
	DetectModeNER  DetectMode = "ner"
	DetectModeHide DetectMode = "hide"
	DetectModeAuto DetectMode = "auto"
)

// Type priority used by the Hybrid Text Detector's per-position dedup
// tiebreak (spec.md §4.4 step 2): ADDRESS=3 > {ORG,PERSON,LEGAL_PARTY,
// LAWYER,JUDGE}=2 > other=1.
var highPriorityTypes = map[string]int{
	"ADDRESS": 3,
	"ORG":     2, "PERSON": 2, "LEGAL_PARTY": 2, "LAWYER": 2, "JUDGE": 2,
}

// TypePriority returns the tiebreak priority for a taxonomy type id.
func TypePriority(typeID string) int {
	if p, ok := highPriorityTypes[typeID]; ok {
		return p
	}
	return 1
}
