package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/rezonia/pii-redactor/internal/model"
	"github.com/rezonia/pii-redactor/internal/writer"
)

// validate enforces EntityTypeConfig's DATA MODEL invariants (risk_level
// in [1,5], category in the published enum) beyond gin's own
// binding:"required" struct-tag checks, which only cover presence.
var validate = validator.New()

// Config holds server configuration.
type Config struct {
	Address string

	TaxonomyPath string
	PipelinePath string
	ModelPath    string

	OCRBaseURL   string
	VLMProxyURL  string
	VLMDirectURL string

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Debug        bool
}

// Server is the HTTP API surface (SPEC_FULL.md §10): a thin gin layer
// translating requests into Service calls and mapping every model.AppError
// into the {error_kind, message} envelope via its ErrorKind.StatusCode().
type Server struct {
	config  *Config
	router  *gin.Engine
	service *Service
}

// NewServer opens the Service's durable stores and wires every route.
func NewServer(config *Config) (*Server, error) {
	if !config.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	if config.Debug {
		router.Use(gin.Logger())
	}

	svc, err := NewService(ServiceConfig{
		TaxonomyPath: config.TaxonomyPath,
		PipelinePath: config.PipelinePath,
		ModelPath:    config.ModelPath,
		OCRBaseURL:   config.OCRBaseURL,
		VLMProxyURL:  config.VLMProxyURL,
		VLMDirectURL: config.VLMDirectURL,
	})
	if err != nil {
		return nil, err
	}

	s := &Server{
		config:  config,
		router:  router,
		service: svc,
	}
	s.setupRoutes()
	return s, nil
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/detect/text", s.handleDetectText)
		v1.POST("/detect/image", s.handleDetectImage)

		v1.POST("/redact/text", s.handleRedactText)
		v1.POST("/redact/docx", s.handleRedactDOCX)
		v1.POST("/redact/pdf", s.handleRedactPDF)
		v1.POST("/redact/image", s.handleRedactImage)

		types := v1.Group("/types")
		{
			types.GET("", s.handleListTypes)
			types.POST("", s.handleCreateType)
			types.GET("/:id", s.handleGetType)
			types.PUT("/:id", s.handleUpdateType)
			types.DELETE("/:id", s.handleDeleteType)
			types.POST("/:id/toggle", s.handleToggleType)
			types.POST("/reset", s.handleResetTypes)
		}

		pipelines := v1.Group("/pipelines")
		{
			pipelines.GET("/:mode", s.handleGetPipeline)
			pipelines.PUT("/:mode", s.handleUpdatePipeline)
		}

		models := v1.Group("/models")
		{
			models.GET("", s.handleListModels)
			models.PUT("/:name", s.handleSetModel)
		}
	}
}

// Run starts the HTTP server.
func (s *Server) Run() error {
	srv := &http.Server{
		Addr:         s.config.Address,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}
	return srv.ListenAndServe()
}

// Handler returns the http.Handler for use with a custom *http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the underlying Service's VLM health-check loop.
func (s *Server) Close() {
	s.service.Close()
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// fail maps an error from the Service layer into the {error_kind,
// message} envelope (SPEC_FULL.md §10), defaulting to Internal for errors
// that didn't originate as a model.AppError.
func fail(c *gin.Context, err error) {
	kind := model.KindOf(err)
	c.JSON(kind.StatusCode(), gin.H{
		"error_kind": kind,
		"message":    err.Error(),
	})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error_kind": model.ErrorInvalidInput,
		"message":    message,
	})
}

// --- Detection -------------------------------------------------------------

type detectTextRequest struct {
	Text         string   `json:"text" binding:"required"`
	Mode         string   `json:"mode"`
	EnabledTypes []string `json:"enabled_types"`
	UseHistory   bool     `json:"use_history"`
}

type detectTextResponse struct {
	Entities []model.Entity `json:"entities"`
	Warnings []string       `json:"warnings,omitempty"`
}

func (s *Server) handleDetectText(c *gin.Context) {
	var req detectTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	mode := model.DetectMode(req.Mode)
	if mode == "" {
		mode = model.DetectModeNER
	}

	entities, warnings, err := s.service.DetectText(c.Request.Context(), req.Text, mode, req.EnabledTypes, req.UseHistory)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, detectTextResponse{Entities: entities, Warnings: warnings})
}

type detectImageResponse struct {
	Boxes  []model.BoundingBox `json:"boxes"`
	Errors []string            `json:"errors,omitempty"`
}

func (s *Server) handleDetectImage(c *gin.Context) {
	page := 0
	if p := c.Query("page"); p != "" {
		if v, err := parsePositiveInt(p); err == nil {
			page = v
		}
	}

	body, err := c.GetRawData()
	if err != nil {
		badRequest(c, "failed to read request body")
		return
	}
	if len(body) == 0 {
		badRequest(c, "empty request body")
		return
	}

	boxes, errs := s.service.DetectImage(c.Request.Context(), body, page)
	resp := detectImageResponse{Boxes: boxes}
	for _, e := range errs {
		resp.Errors = append(resp.Errors, e.Error())
	}
	c.JSON(http.StatusOK, resp)
}

func parsePositiveInt(s string) (int, error) {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, errors.New("not a number")
		}
		n = n*10 + int(r-'0')
	}
	return n, nil
}

// --- Redaction ---------------------------------------------------------------

type redactTextRequest struct {
	Entities           []model.Entity      `json:"entities" binding:"required"`
	Mode               string              `json:"mode"`
	CustomReplacements map[string]string   `json:"custom_replacements,omitempty"`
	StructuredMapping  map[string][]string `json:"structured_mapping,omitempty"`
}

type comparisonEntryPublic struct {
	Original    string `json:"original"`
	Replacement string `json:"replacement"`
}

type redactTextResponse struct {
	EntityMap  map[string]string       `json:"entity_map"`
	Comparison []comparisonEntryPublic `json:"comparison"`
}

func (s *Server) handleRedactText(c *gin.Context) {
	var req redactTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	mode := model.ReplacementMode(req.Mode)
	if mode == "" {
		mode = model.ReplacementSmart
	}

	entityMap, comparison := s.service.RedactText(req.Entities, s.service.ListTypes(false), mode, req.CustomReplacements, req.StructuredMapping)

	resp := redactTextResponse{EntityMap: entityMap}
	for _, entry := range comparison {
		resp.Comparison = append(resp.Comparison, comparisonEntryPublic{Original: entry.Original, Replacement: entry.Replacement})
	}
	c.JSON(http.StatusOK, resp)
}

type redactDOCXRequest struct {
	InputPath  string            `json:"input_path" binding:"required"`
	OutputPath string            `json:"output_path" binding:"required"`
	EntityMap  map[string]string `json:"entity_map"`
}

type redactDOCXResponse struct {
	RedactedCount int `json:"redacted_count"`
}

// handleRedactDOCX burns entity_map into a copy of a DOCX file already on
// disk, since the writer adapter (nguyenthenguyen/docx) works against
// file paths rather than in-memory byte streams.
func (s *Server) handleRedactDOCX(c *gin.Context) {
	var req redactDOCXRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	count, err := s.service.RedactDOCXFile(req.InputPath, req.OutputPath, req.EntityMap)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, redactDOCXResponse{RedactedCount: count})
}

type redactPDFRedactionInput struct {
	Page        int               `json:"page" binding:"required"`
	Box         model.BoundingBox `json:"box"`
	Replacement string            `json:"replacement"`
}

type redactPDFRequest struct {
	InputPath  string                    `json:"input_path" binding:"required"`
	OutputPath string                    `json:"output_path" binding:"required"`
	Redactions []redactPDFRedactionInput `json:"redactions"`
}

// handleRedactPDF covers and overlays each requested rectangle on a copy
// of a PDF file already on disk, since the writer adapter (pdfcpu) works
// against file paths and has no text-search primitive of its own — the
// caller supplies the on-page geometry (spec.md §4.11's PDF writer).
func (s *Server) handleRedactPDF(c *gin.Context) {
	var req redactPDFRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	redactions := make([]writer.TextRedaction, len(req.Redactions))
	for i, r := range req.Redactions {
		redactions[i] = writer.TextRedaction{Page: r.Page, Box: r.Box, Replacement: r.Replacement}
	}

	if err := s.service.RedactPDFFile(req.InputPath, req.OutputPath, redactions); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"redacted_count": len(redactions)})
}

// handleRedactImage fills every selected box on the uploaded raster image
// black and streams the re-encoded result back. The box list rides a
// query parameter since the endpoint's body is the raw image bytes.
func (s *Server) handleRedactImage(c *gin.Context) {
	var boxes []model.BoundingBox
	if boxesJSON := c.Query("boxes"); boxesJSON != "" {
		if err := json.Unmarshal([]byte(boxesJSON), &boxes); err != nil {
			badRequest(c, "invalid boxes query parameter")
			return
		}
	}

	body, err := c.GetRawData()
	if err != nil {
		badRequest(c, "failed to read request body")
		return
	}
	if len(body) == 0 {
		badRequest(c, "empty request body")
		return
	}

	out, err := s.service.RedactRasterImage(body, boxes)
	if err != nil {
		fail(c, err)
		return
	}
	c.Data(http.StatusOK, detectMimeType(out), out)
}

// --- Taxonomy ----------------------------------------------------------------

func (s *Server) handleListTypes(c *gin.Context) {
	enabledOnly := c.Query("enabled_only") == "true"
	c.JSON(http.StatusOK, s.service.ListTypes(enabledOnly))
}

func (s *Server) handleGetType(c *gin.Context) {
	t, err := s.service.GetType(c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (s *Server) handleCreateType(c *gin.Context) {
	var t model.EntityTypeConfig
	if err := c.ShouldBindJSON(&t); err != nil {
		badRequest(c, err.Error())
		return
	}
	if err := validate.Struct(t); err != nil {
		badRequest(c, err.Error())
		return
	}
	created, err := s.service.CreateType(t)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (s *Server) handleUpdateType(c *gin.Context) {
	var patch model.EntityTypeConfig
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, err.Error())
		return
	}
	updated, err := s.service.UpdateType(c.Param("id"), func(t *model.EntityTypeConfig) {
		*t = applyTypePatch(*t, patch)
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// applyTypePatch copies patch's fields over base, preserving base's ID
// and Preset flag — only a type's own registry entry governs those.
func applyTypePatch(base, patch model.EntityTypeConfig) model.EntityTypeConfig {
	id, preset := base.ID, base.Preset
	base = patch
	base.ID = id
	base.Preset = preset
	return base
}

func (s *Server) handleToggleType(c *gin.Context) {
	t, err := s.service.ToggleType(c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (s *Server) handleDeleteType(c *gin.Context) {
	if err := s.service.DeleteType(c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleResetTypes(c *gin.Context) {
	if err := s.service.ResetTypes(); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.service.ListTypes(false))
}

// --- Pipeline / model config --------------------------------------------------

func (s *Server) handleGetPipeline(c *gin.Context) {
	pc, err := s.service.GetPipeline(model.PipelineMode(c.Param("mode")))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, pc)
}

func (s *Server) handleUpdatePipeline(c *gin.Context) {
	var pc model.PipelineConfig
	if err := c.ShouldBindJSON(&pc); err != nil {
		badRequest(c, err.Error())
		return
	}
	mode := model.PipelineMode(c.Param("mode"))
	if err := s.service.UpdatePipeline(mode, pc); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, pc)
}

func (s *Server) handleListModels(c *gin.Context) {
	c.JSON(http.StatusOK, s.service.ListModels())
}

func (s *Server) handleSetModel(c *gin.Context) {
	var ep model.ModelEndpoint
	if err := c.ShouldBindJSON(&ep); err != nil {
		badRequest(c, err.Error())
		return
	}
	name := c.Param("name")
	if err := s.service.SetModel(name, ep); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ep)
}

// --- Helpers -------------------------------------------------------------------

// detectMimeType sniffs the two raster formats the writer adapter
// preserves (spec.md §4.11), used only to label redact/image responses.
func detectMimeType(data []byte) string {
	if len(data) >= 8 && data[0] == 0x89 && data[1] == 0x50 && data[2] == 0x4E && data[3] == 0x47 {
		return "image/png"
	}
	if len(data) >= 3 && data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF {
		return "image/jpeg"
	}
	return "application/octet-stream"
}
