// Package ocr implements the OCR Client (spec.md §4.5, wire format §6):
// a stateless HTTP call returning OCRTextBlocks with unit-coordinate
// quadrilaterals and semantic labels. Grounded on the teacher's
// internal/llm/client.go HTTP-client construction idiom; no teacher file
// does OCR specifically since the invoice pipeline reads pre-parsed XML,
// so the request/response shape follows spec.md §6 directly.
package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rezonia/pii-redactor/internal/model"
)

// OperationTimeout is the per-operation deadline from spec.md §5.
const OperationTimeout = 60 * time.Second

// Client is a stateless OCR transport; it performs no retries, matching
// spec.md §4.5 ("retries are not performed at this layer").
type Client struct {
	baseURL      string
	httpClient   *http.Client
	maxNewTokens int
}

// ClientOption configures Client construction.
type ClientOption func(*Client)

// WithHTTPClient overrides the default http.Client (tests substitute one
// pointed at an httptest.Server).
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = h }
}

// WithMaxNewTokens sets the decoder token budget sent with every request.
func WithMaxNewTokens(n int) ClientOption {
	return func(c *Client) { c.maxNewTokens = n }
}

// NewClient builds an OCR Client bound to a single base URL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:      baseURL,
		httpClient:   &http.Client{Timeout: OperationTimeout},
		maxNewTokens: 2048,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type ocrRequest struct {
	Image        string `json:"image"`
	MaxNewTokens int    `json:"max_new_tokens"`
}

type ocrBoxResponse struct {
	Text       string  `json:"text"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	Confidence float64 `json:"confidence"`
	Label      string  `json:"label"`
}

type ocrResponse struct {
	Boxes   []ocrBoxResponse `json:"boxes"`
	Model   string           `json:"model"`
	Elapsed float64          `json:"elapsed"`
}

// Detect sends EXIF-corrected PNG/JPEG bytes to the OCR service and
// returns its text blocks. Box coordinates in the response are already
// unit [0,1] per spec.md §6, so the returned OCRTextBlock's polygon is
// built directly in unit space — no pixel dimensions are required.
func (c *Client) Detect(ctx context.Context, imageData []byte) ([]model.OCRTextBlock, error) {
	ctx, cancel := context.WithTimeout(ctx, OperationTimeout)
	defer cancel()

	body, err := json.Marshal(ocrRequest{
		Image:        base64.StdEncoding.EncodeToString(imageData),
		MaxNewTokens: c.maxNewTokens,
	})
	if err != nil {
		return nil, model.NewInternalError(err, "marshal ocr request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/ocr", bytes.NewReader(body))
	if err != nil {
		return nil, model.NewInternalError(err, "build ocr request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, model.NewUpstreamUnavailableError(err, "ocr request to %s failed", c.baseURL)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, model.NewUpstreamUnavailableError(nil, "ocr service returned status %d", resp.StatusCode)
	}

	var parsed ocrResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, model.NewParseError(err, "decode ocr response")
	}

	blocks := make([]model.OCRTextBlock, 0, len(parsed.Boxes))
	for _, b := range parsed.Boxes {
		blocks = append(blocks, model.OCRTextBlock{
			Text:       b.Text,
			Polygon:    rectToPolygon(b.X, b.Y, b.Width, b.Height),
			Confidence: b.Confidence,
			Label:      toOCRLabel(b.Label),
		})
	}
	return blocks, nil
}

func rectToPolygon(x, y, w, h float64) [4]model.Point {
	return [4]model.Point{
		{X: x, Y: y},
		{X: x + w, Y: y},
		{X: x + w, Y: y + h},
		{X: x, Y: y + h},
	}
}

func toOCRLabel(raw string) model.OCRTextBlockLabel {
	switch raw {
	case string(model.OCRLabelTitle):
		return model.OCRLabelTitle
	case string(model.OCRLabelSeal):
		return model.OCRLabelSeal
	case string(model.OCRLabelTable):
		return model.OCRLabelTable
	default:
		return model.OCRLabelText
	}
}

// Is this error an UpstreamUnavailable? Exposed so callers (the
// sub-pipeline fuser) can decide whether to treat the stage as empty and
// continue in degraded mode, per spec.md §5.
func IsUpstreamUnavailable(err error) bool {
	return model.KindOf(err) == model.ErrorUpstreamUnavailable
}
