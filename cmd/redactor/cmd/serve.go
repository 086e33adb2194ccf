package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rezonia/pii-redactor/internal/config"
	"github.com/rezonia/pii-redactor/internal/model"
	"github.com/rezonia/pii-redactor/internal/server"
)

var (
	serverAddr   string
	serverDebug  bool
	readTimeout  time.Duration
	writeTimeout time.Duration
	ocrBaseURL   string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start an HTTP API server for PII detection and redaction.

The API provides endpoints under /api/v1 for:
  - POST /detect/text, /detect/image   - Run detection
  - POST /redact/text, /redact/docx,
         /redact/image                - Generate/apply redactions
  - /types, /pipelines, /models        - Taxonomy and configuration CRUD

Outside /api/v1:
  - GET  /health                       - Health check

Examples:
  # Start server on default port
  redactor serve

  # Start on a custom port with the Text-NER endpoint configured
  redactor serve --address :9090 --ner-base-url http://localhost:8001 --ner-model uie-base

  # Start in debug mode
  redactor serve --debug`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serverAddr, "address", ":8080", "Server listen address")
	serveCmd.Flags().BoolVar(&serverDebug, "debug", false, "Enable debug mode")
	serveCmd.Flags().DurationVar(&readTimeout, "read-timeout", 30*time.Second, "HTTP read timeout")
	serveCmd.Flags().DurationVar(&writeTimeout, "write-timeout", 5*time.Minute, "HTTP write timeout")
	serveCmd.Flags().StringVar(&ocrBaseURL, "ocr-base-url", "", "OCR Client base URL (env: REDACTOR_OCR_BASE_URL)")
}

func runServe(cmd *cobra.Command, args []string) error {
	if ocrBaseURL == "" {
		ocrBaseURL = os.Getenv("REDACTOR_OCR_BASE_URL")
	}

	if err := seedModelEndpoints(); err != nil {
		return fmt.Errorf("seed model endpoints: %w", err)
	}

	cfg := &server.Config{
		Address:      serverAddr,
		TaxonomyPath: filepath.Join(dataDir, "taxonomy.json"),
		PipelinePath: filepath.Join(dataDir, "pipeline.json"),
		ModelPath:    filepath.Join(dataDir, "models.json"),
		OCRBaseURL:   ocrBaseURL,
		VLMProxyURL:  mcpProxyURL,
		VLMDirectURL: vlmBaseURL,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		Debug:        serverDebug,
	}

	srv, err := server.NewServer(cfg)
	if err != nil {
		return fmt.Errorf("start server: %w", err)
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		fmt.Println("\nShutting down server...")
		srv.Close()
		os.Exit(0)
	}()

	fmt.Printf("Starting server on %s\n", serverAddr)
	if nerBaseURL != "" {
		fmt.Printf("Text-NER endpoint: %s (%s)\n", nerBaseURL, nerModel)
	} else {
		fmt.Println("Text-NER endpoint not configured; text detection degrades to regex-only")
	}
	if vlmBaseURL != "" || mcpProxyURL != "" {
		fmt.Println("Vision (VLM) endpoint enabled")
	}

	return srv.Run()
}

// seedModelEndpoints writes the "ner"/"vision" named ModelConfig entries
// from CLI flags into the durable model store on first run, so the
// server's fixed-NER/swappable-vision distinction (spec.md §3) has
// somewhere to read from without a separate setup call.
func seedModelEndpoints() error {
	if nerBaseURL == "" && vlmBaseURL == "" {
		return nil
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return err
	}

	store, err := config.NewStore[server.ModelStoreDoc](filepath.Join(dataDir, "models.json"))
	if err != nil {
		return err
	}
	return store.Mutate(func(cur server.ModelStoreDoc) (server.ModelStoreDoc, error) {
		if cur == nil {
			cur = server.ModelStoreDoc{}
		}
		if nerBaseURL != "" {
			if _, exists := cur["ner"]; !exists {
				cur["ner"] = model.ModelEndpoint{
					Name:      "ner",
					Family:    model.ModelFamilyOpenAICompatible,
					BaseURL:   nerBaseURL,
					APIKey:    apiKey,
					ModelName: nerModel,
					Active:    true,
				}
			}
		}
		if vlmBaseURL != "" {
			if _, exists := cur["vision"]; !exists {
				cur["vision"] = model.ModelEndpoint{
					Name:      "vision",
					Family:    model.ModelFamilyOpenAICompatible,
					BaseURL:   vlmBaseURL,
					APIKey:    apiKey,
					ModelName: vlmModel,
					Active:    true,
				}
			}
		}
		return cur, nil
	})
}
