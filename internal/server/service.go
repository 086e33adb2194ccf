package server

import (
	"context"
	"fmt"
	"sync"

	"github.com/rezonia/pii-redactor/internal/config"
	"github.com/rezonia/pii-redactor/internal/fuser"
	"github.com/rezonia/pii-redactor/internal/hybrid"
	"github.com/rezonia/pii-redactor/internal/model"
	"github.com/rezonia/pii-redactor/internal/ner"
	"github.com/rezonia/pii-redactor/internal/ocr"
	"github.com/rezonia/pii-redactor/internal/ocrner"
	"github.com/rezonia/pii-redactor/internal/regexmatch"
	"github.com/rezonia/pii-redactor/internal/replace"
	"github.com/rezonia/pii-redactor/internal/taxonomy"
	"github.com/rezonia/pii-redactor/internal/vlm"
	"github.com/rezonia/pii-redactor/internal/writer"
)

// nerEndpointName is the fixed, non-swappable Text-NER model endpoint
// name (spec.md §3's ModelConfig: "the text-NER endpoint is fixed").
const nerEndpointName = "ner"

// PipelineStoreDoc is the durable form of both PipelineConfig entries.
type PipelineStoreDoc map[model.PipelineMode]model.PipelineConfig

// ModelStoreDoc is the durable form of the named ModelConfig map.
type ModelStoreDoc map[string]model.ModelEndpoint

// ServiceConfig wires the Service to its durable stores and downstream
// model/proxy addresses.
type ServiceConfig struct {
	TaxonomyPath string
	PipelinePath string
	ModelPath    string

	OCRBaseURL   string
	VLMProxyURL  string
	VLMDirectURL string // fallback direct base_url if the active model endpoint doesn't set one
}

// Service holds the process-wide registries and clients every handler
// operates against. Per-request objects (Detector, Engine) are built
// fresh for each call, since Coref/entity state is request-scoped
// (DATA MODEL's Ownership/lifecycle paragraph).
type Service struct {
	taxonomy *taxonomy.Registry
	pipeline *config.Store[PipelineStoreDoc]
	models   *config.Store[ModelStoreDoc]

	ocrClient *ocr.Client

	proxyURL  string
	directURL string

	vlmMu     sync.RWMutex
	vlm       *vlm.Client
	vlmCtx    context.Context
	vlmCancel context.CancelFunc

	matcherMu sync.RWMutex
	matcher   *regexmatch.Matcher
}

// NewService opens every durable store, seeds pipeline defaults on first
// run, and builds the initial regex matcher and VLM client.
func NewService(cfg ServiceConfig) (*Service, error) {
	registry, err := taxonomy.NewRegistry(cfg.TaxonomyPath)
	if err != nil {
		return nil, fmt.Errorf("open taxonomy registry: %w", err)
	}

	pipelineStore, err := config.NewStore[PipelineStoreDoc](cfg.PipelinePath)
	if err != nil {
		return nil, fmt.Errorf("open pipeline store: %w", err)
	}
	if len(pipelineStore.Load()) == 0 {
		_ = pipelineStore.Save(defaultPipelines())
	}

	modelStore, err := config.NewStore[ModelStoreDoc](cfg.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("open model store: %w", err)
	}

	s := &Service{
		taxonomy:  registry,
		pipeline:  pipelineStore,
		models:    modelStore,
		ocrClient: ocr.NewClient(cfg.OCRBaseURL),
		proxyURL:  cfg.VLMProxyURL,
		directURL: cfg.VLMDirectURL,
	}

	if err := s.RebuildMatcher(); err != nil {
		return nil, err
	}
	s.rebuildVLMClient(cfg.VLMProxyURL, cfg.VLMDirectURL)
	return s, nil
}

func defaultPipelines() PipelineStoreDoc {
	return PipelineStoreDoc{
		model.PipelineOCRHas:    {Mode: model.PipelineOCRHas, Enabled: true},
		model.PipelineGLMVision: {Mode: model.PipelineGLMVision, Enabled: true},
	}
}

// RebuildMatcher recompiles the Regex Matcher from the taxonomy's current
// user-supplied patterns. Called at startup and after any taxonomy
// mutation, since a pattern change must take effect on the next detect
// call without restarting the process.
func (s *Service) RebuildMatcher() error {
	userPatterns := map[string]string{}
	for _, t := range s.taxonomy.List(false) {
		if t.RegexPattern != "" && !t.Preset {
			userPatterns[t.ID] = t.RegexPattern
		}
	}
	matcher, compileErrs := regexmatch.NewMatcher(userPatterns)
	// A pattern that fails to compile is dropped from the matcher; its
	// error is neither logged nor used to disable the type. The taxonomy
	// registry already rejects an invalid regex_pattern on Create/Update.
	_ = compileErrs

	s.matcherMu.Lock()
	s.matcher = matcher
	s.matcherMu.Unlock()
	return nil
}

func (s *Service) currentMatcher() *regexmatch.Matcher {
	s.matcherMu.RLock()
	defer s.matcherMu.RUnlock()
	return s.matcher
}

// rebuildVLMClient (re)builds the VLM Client from the currently active
// vision ModelEndpoint plus the process's fixed proxy/direct base URLs.
// Any previous health-check loop is stopped first.
func (s *Service) rebuildVLMClient(proxyURL, fallbackDirectURL string) {
	active := s.activeVisionEndpoint()

	directURL := fallbackDirectURL
	apiKey := ""
	modelName := ""
	if active.BaseURL != "" {
		directURL = active.BaseURL
	}
	apiKey = active.APIKey
	modelName = active.ModelName

	s.vlmMu.Lock()
	if s.vlmCancel != nil {
		s.vlmCancel()
	}
	client := vlm.NewClient(proxyURL, directURL, apiKey, modelName)
	ctx, cancel := context.WithCancel(context.Background())
	if proxyURL != "" {
		client.StartHealthLoop(ctx)
	}
	s.vlm = client
	s.vlmCtx = ctx
	s.vlmCancel = cancel
	s.vlmMu.Unlock()
}

func (s *Service) currentVLM() *vlm.Client {
	s.vlmMu.RLock()
	defer s.vlmMu.RUnlock()
	return s.vlm
}

// activeVisionEndpoint returns the ModelConfig entry marked Active, or
// the zero value if none is (vision falls back to whatever base direct
// URL the process was started with).
func (s *Service) activeVisionEndpoint() model.ModelEndpoint {
	for name, ep := range s.models.Load() {
		if name == nerEndpointName {
			continue
		}
		if ep.Active {
			return ep
		}
	}
	return model.ModelEndpoint{}
}

func (s *Service) nerEndpoint() (model.ModelEndpoint, error) {
	ep, ok := s.models.Load()[nerEndpointName]
	if !ok {
		return model.ModelEndpoint{}, model.NewNotFoundError("no %q model endpoint configured", nerEndpointName)
	}
	return ep, nil
}

// Close stops the VLM health-check loop.
func (s *Service) Close() {
	s.vlmMu.Lock()
	if s.vlmCancel != nil {
		s.vlmCancel()
	}
	s.vlmMu.Unlock()
}

// --- Taxonomy passthrough -------------------------------------------------

func (s *Service) ListTypes(enabledOnly bool) []model.EntityTypeConfig { return s.taxonomy.List(enabledOnly) }
func (s *Service) GetType(id string) (model.EntityTypeConfig, error)   { return s.taxonomy.Get(id) }

func (s *Service) CreateType(t model.EntityTypeConfig) (model.EntityTypeConfig, error) {
	created, err := s.taxonomy.Create(t)
	if err == nil {
		_ = s.RebuildMatcher()
	}
	return created, err
}

func (s *Service) UpdateType(id string, patch func(*model.EntityTypeConfig)) (model.EntityTypeConfig, error) {
	updated, err := s.taxonomy.Update(id, patch)
	if err == nil {
		_ = s.RebuildMatcher()
	}
	return updated, err
}

func (s *Service) ToggleType(id string) (model.EntityTypeConfig, error) {
	t, err := s.taxonomy.Toggle(id)
	if err == nil {
		_ = s.RebuildMatcher()
	}
	return t, err
}

func (s *Service) DeleteType(id string) error {
	err := s.taxonomy.Delete(id)
	if err == nil {
		_ = s.RebuildMatcher()
	}
	return err
}

func (s *Service) ResetTypes() error {
	err := s.taxonomy.Reset()
	if err == nil {
		_ = s.RebuildMatcher()
	}
	return err
}

// --- Pipeline / model config ---------------------------------------------

func (s *Service) GetPipeline(mode model.PipelineMode) (model.PipelineConfig, error) {
	pc, ok := s.pipeline.Load()[mode]
	if !ok {
		return model.PipelineConfig{}, model.NewNotFoundError("pipeline %q not found", mode)
	}
	return pc, nil
}

func (s *Service) UpdatePipeline(mode model.PipelineMode, pc model.PipelineConfig) error {
	pc.Mode = mode
	return s.pipeline.Mutate(func(cur PipelineStoreDoc) (PipelineStoreDoc, error) {
		cur[mode] = pc
		return cur, nil
	})
}

func (s *Service) ListModels() ModelStoreDoc { return s.models.Load() }

func (s *Service) SetModel(name string, ep model.ModelEndpoint) error {
	ep.Name = name
	err := s.models.Mutate(func(cur ModelStoreDoc) (ModelStoreDoc, error) {
		if cur == nil {
			cur = ModelStoreDoc{}
		}
		if ep.Active {
			for other, existing := range cur {
				if other != name {
					existing.Active = false
					cur[other] = existing
				}
			}
		}
		cur[name] = ep
		return cur, nil
	})
	if err == nil && name != nerEndpointName {
		s.rebuildVLMClient(s.proxyURL, s.directURL)
	}
	return err
}

// --- Detection -------------------------------------------------------------

// DetectText runs the Hybrid Text Detector (spec.md §4.4) over text.
func (s *Service) DetectText(ctx context.Context, text string, mode model.DetectMode, enabledTypes []string, useHistory bool) ([]model.Entity, []string, error) {
	nerEP, err := s.nerEndpoint()
	var detector *hybrid.Detector
	if err != nil {
		// Text-NER transport unconfigured: degrade to regex-only per
		// spec.md §4.4's failure model.
		detector = hybrid.NewDetector(nil, s.currentMatcher(), mode)
	} else {
		detector = hybrid.NewDetector(ner.NewClient(nerEP), s.currentMatcher(), mode)
	}
	return detector.Detect(ctx, text, enabledTypes, useHistory)
}

// DetectImage runs the Dual-Pipeline Fuser (spec.md §4.9) over one page
// image, driving the OCR+NER Sub-pipeline and the VLM Client concurrently.
func (s *Service) DetectImage(ctx context.Context, imgData []byte, page int) ([]model.BoundingBox, []error) {
	ocrPipelineCfg, _ := s.GetPipeline(model.PipelineOCRHas)
	vlmPipelineCfg, _ := s.GetPipeline(model.PipelineGLMVision)

	var ocrFn fuser.OCRPipeline
	if ocrPipelineCfg.Enabled && len(ocrPipelineCfg.EnabledTypeIDs()) > 0 {
		ocrFn = func(ctx context.Context) ([]model.BoundingBox, error) {
			blocks, err := s.ocrClient.Detect(ctx, imgData)
			if err != nil {
				return nil, err
			}
			nerEP, err := s.nerEndpoint()
			if err != nil {
				return nil, err
			}
			return ocrner.Run(ctx, blocks, ner.NewClient(nerEP), s.currentMatcher(), ocrPipelineCfg.EnabledTypeIDs(), page)
		}
	}

	var vlmFn fuser.VLMPipeline
	if vlmPipelineCfg.Enabled && len(vlmPipelineCfg.EnabledTypeIDs()) > 0 {
		enabledSet := make(map[string]bool, len(vlmPipelineCfg.EnabledTypeIDs()))
		for _, id := range vlmPipelineCfg.EnabledTypeIDs() {
			enabledSet[id] = true
		}
		var types []model.EntityTypeConfig
		for _, t := range s.taxonomy.List(true) {
			if enabledSet[t.ID] {
				types = append(types, t)
			}
		}
		vlmClient := s.currentVLM()
		vlmFn = func(ctx context.Context) ([]model.BoundingBox, error) {
			boxes, err := vlmClient.Detect(ctx, imgData, types)
			for i := range boxes {
				boxes[i].Page = page
			}
			return boxes, err
		}
	}

	return fuser.Fuse(ctx, ocrFn, vlmFn)
}

// --- Replacement / redaction -----------------------------------------------

// RedactText generates replacements for the selected entities and returns
// the entity map and comparison list; it writes no file.
func (s *Service) RedactText(entities []model.Entity, taxonomyTypes []model.EntityTypeConfig, mode model.ReplacementMode, customReplacements map[string]string, structuredMapping map[string][]string) (map[string]string, []replace.ComparisonEntry) {
	engine := replace.NewEngine(mode)
	engine.SetTaxonomy(taxonomyTypes)
	if customReplacements != nil {
		engine.SetCustomReplacements(customReplacements)
	}
	if structuredMapping != nil {
		engine.SetStructuredMapping(structuredMapping)
	}

	for _, e := range entities {
		if !e.Selected {
			continue
		}
		e.Replacement = engine.Replacement(e)
	}
	return engine.EntityMap(), engine.GetComparison()
}

// RedactDOCXFile applies entityMap to a DOCX file on disk.
func (s *Service) RedactDOCXFile(inputPath, outputPath string, entityMap map[string]string) (int, error) {
	return writer.RedactDOCX(inputPath, outputPath, entityMap)
}

// RedactRasterImage fills every selected box on imgData with black.
func (s *Service) RedactRasterImage(imgData []byte, boxes []model.BoundingBox) ([]byte, error) {
	return writer.RedactRaster(imgData, boxes)
}

// RedactPDFFile covers and overlays each TextRedaction on a copy of the
// PDF at inputPath.
func (s *Service) RedactPDFFile(inputPath, outputPath string, redactions []writer.TextRedaction) error {
	return writer.RedactPDFText(inputPath, outputPath, redactions)
}
