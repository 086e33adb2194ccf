// Package redactlib is the public façade over the redaction core, the
// equivalent of the teacher's pkg/invoicelib for this domain: a small
// wrapper that drives a single document through Detect -> Review ->
// Redact while enforcing the job state machine (spec.md §4.11).
package redactlib

import (
	"context"

	"github.com/google/uuid"

	"github.com/rezonia/pii-redactor/internal/model"
	"github.com/rezonia/pii-redactor/internal/server"
	"github.com/rezonia/pii-redactor/internal/writer"
)

// Options configures a Session's backing Service.
type Options struct {
	TaxonomyPath string
	PipelinePath string
	ModelPath    string

	OCRBaseURL   string
	VLMProxyURL  string
	VLMDirectURL string
}

// NewService opens the durable stores and clients a Session needs. Callers
// that want to share one Service across many documents (e.g. the HTTP
// server) should build it once and pass it to NewSession per request.
func NewService(opts Options) (*server.Service, error) {
	return server.NewService(server.ServiceConfig{
		TaxonomyPath: opts.TaxonomyPath,
		PipelinePath: opts.PipelinePath,
		ModelPath:    opts.ModelPath,
		OCRBaseURL:   opts.OCRBaseURL,
		VLMProxyURL:  opts.VLMProxyURL,
		VLMDirectURL: opts.VLMDirectURL,
	})
}

// Session owns one document's request-scoped state (DATA MODEL's
// Ownership/lifecycle paragraph: Coref/entity/box lists are per-request
// and discarded with the document) as it moves through the job's
// Detected -> Reviewed -> Redacted edges.
type Session struct {
	job     model.Job
	service *server.Service

	entities []model.Entity
	boxes    []model.BoundingBox
}

// NewSession starts a fresh job bound to an already-open Service.
func NewSession(svc *server.Service) *Session {
	return &Session{
		job:     model.Job{ID: uuid.NewString(), State: model.JobUploaded},
		service: svc,
	}
}

// JobID returns the session's stable identifier.
func (s *Session) JobID() string { return s.job.ID }

// State returns the job's current lifecycle state.
func (s *Session) State() model.JobState { return s.job.State }

// Warnings returns every warning accumulated so far (spec.md §7: zero
// entities plus non-empty warnings is still a success).
func (s *Session) Warnings() []string { return s.job.Warnings }

// DetectText runs the Hybrid Text Detector over text and advances the job
// to Detected. The caller is expected to have reached JobParsed already;
// DetectText does not enforce that edge since parsing is outside the
// core's scope (spec.md §4.11).
func (s *Session) DetectText(ctx context.Context, text string, mode model.DetectMode, enabledTypes []string, useHistory bool) ([]model.Entity, error) {
	entities, warnings, err := s.service.DetectText(ctx, text, mode, enabledTypes, useHistory)
	if err != nil {
		return nil, err
	}
	s.entities = entities
	s.job.Warnings = append(s.job.Warnings, warnings...)
	s.job.State = model.JobDetected
	return entities, nil
}

// DetectImage runs the Dual-Pipeline Fuser over one page image and
// advances the job to Detected.
func (s *Session) DetectImage(ctx context.Context, imgData []byte, page int) ([]model.BoundingBox, error) {
	boxes, errs := s.service.DetectImage(ctx, imgData, page)
	for _, e := range errs {
		s.job.Warn("%v", e)
	}
	s.boxes = append(s.boxes, boxes...)
	s.job.State = model.JobDetected
	return boxes, nil
}

// Review marks the entities/boxes the caller approved as Selected,
// advances Detected -> Reviewed, and returns how many of each it marked.
// Unselected spans/regions stay in the session unselected; the redact
// steps skip them.
func (s *Session) Review(selectedEntityIDs, selectedBoxIDs map[string]bool) (int, int, error) {
	if err := s.job.Advance(model.JobReviewed); err != nil {
		return 0, 0, err
	}
	selEntities := 0
	for i := range s.entities {
		if selectedEntityIDs[s.entities[i].ID] {
			s.entities[i].Selected = true
			selEntities++
		}
	}
	selBoxes := 0
	for i := range s.boxes {
		if selectedBoxIDs[s.boxes[i].ID] {
			s.boxes[i].Selected = true
			selBoxes++
		}
	}
	return selEntities, selBoxes, nil
}

// RedactText generates replacements for the reviewed text entities and
// advances Reviewed -> Redacted.
func (s *Session) RedactText(mode model.ReplacementMode, taxonomyTypes []model.EntityTypeConfig) (map[string]string, error) {
	if err := s.job.Advance(model.JobRedacted); err != nil {
		return nil, err
	}
	entityMap, _ := s.service.RedactText(s.entities, taxonomyTypes, mode, nil, nil)
	return entityMap, nil
}

// RedactDOCXFile burns the current entity map into inputPath, writing
// outputPath.
func (s *Session) RedactDOCXFile(inputPath, outputPath string, entityMap map[string]string) (int, error) {
	return s.service.RedactDOCXFile(inputPath, outputPath, entityMap)
}

// RedactPDFFile covers and overlays each reviewed redaction on inputPath,
// writing outputPath.
func (s *Session) RedactPDFFile(inputPath, outputPath string, redactions []writer.TextRedaction) error {
	return s.service.RedactPDFFile(inputPath, outputPath, redactions)
}

// RedactRasterImage fills every reviewed box black and advances Reviewed
// -> Redacted for an image-only job.
func (s *Session) RedactRasterImage(imgData []byte) ([]byte, error) {
	if err := s.job.Advance(model.JobRedacted); err != nil {
		return nil, err
	}
	return s.service.RedactRasterImage(imgData, s.boxes)
}

// Deliver marks the job Delivered once the caller has shipped the
// writer's output; this edge is the caller's responsibility per
// spec.md §4.11, so it is not gated by CanTransition.
func (s *Session) Deliver() {
	s.job.State = model.JobDelivered
}
