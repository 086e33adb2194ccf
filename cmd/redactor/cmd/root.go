package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	version = "1.0.0"

	// Global flags
	verbose      bool
	outputFormat string
	apiKey       string

	// Text-NER endpoint (spec.md §3's fixed NER model).
	nerBaseURL string
	nerModel   string

	// Vision (VLM) endpoint.
	vlmBaseURL string
	vlmModel   string

	// MCP-proxy sub-pipeline.
	mcpProxyURL string

	// Durable store locations shared by serve/redact/taxonomy/models.
	dataDir string

	// configFile, when set, is read by viper ahead of env/flag resolution
	// (a ModelConfig seed file per spec.md §3's "loaded from durable JSON
	// at startup").
	configFile string
)

var rootCmd = &cobra.Command{
	Use:   "redactor",
	Short: "Redact personally-identifying information from documents",
	Long: `redactor is a CLI tool for detecting and redacting PII in DOCX, PDF,
and raster-image documents.

Supports:
  - Text documents: hybrid Text-NER + regex + coreference detection
  - Images/scans: OCR+NER and VLM sub-pipelines fused by bounding-box IoU
  - Four replacement modes: smart, mask, structured, custom

Examples:
  # Start the HTTP API server
  redactor serve

  # Redact PII from a text file
  redactor redact contract.txt --mode mask

  # Redact PII from a DOCX file
  redactor redact contract.docx -o contract.redacted.docx

  # List the entity-type taxonomy
  redactor taxonomy list`,
	Version: version,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "format", "f", "json", "Output format (json, table)")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "Fallback API key for model endpoints without one configured (env: REDACTOR_API_KEY)")

	rootCmd.PersistentFlags().StringVar(&nerBaseURL, "ner-base-url", "", "Text-NER endpoint base URL (env: REDACTOR_NER_BASE_URL)")
	rootCmd.PersistentFlags().StringVar(&nerModel, "ner-model", "", "Text-NER model name (env: REDACTOR_NER_MODEL)")

	rootCmd.PersistentFlags().StringVar(&vlmBaseURL, "vlm-base-url", "", "Vision (VLM) endpoint base URL (env: REDACTOR_VLM_BASE_URL)")
	rootCmd.PersistentFlags().StringVar(&vlmModel, "vlm-model", "", "Vision (VLM) model name (env: REDACTOR_VLM_MODEL)")

	rootCmd.PersistentFlags().StringVar(&mcpProxyURL, "mcp-proxy-url", "", "MCP-proxy base URL for the VLM sub-pipeline's proxied transport (env: REDACTOR_MCP_PROXY_URL)")

	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "./data", "Directory holding the taxonomy/pipeline/model config stores")

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "YAML/JSON config file seeding the flags above (env: REDACTOR_CONFIG)")

	for _, name := range []string{"api-key", "ner-base-url", "ner-model", "vlm-base-url", "vlm-model", "mcp-proxy-url", "data-dir"} {
		_ = viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name))
	}

	cobra.OnInitialize(initConfig)
}

// initConfig resolves each global setting in priority order: explicit
// CLI flag, then a --config file read through viper, then the matching
// REDACTOR_* environment variable. Grounded on the teacher's
// idlab-discover-AIBoMGen-cli/cmd/generate.go BindPFlag pattern.
func initConfig() {
	if configFile == "" {
		configFile = os.Getenv("REDACTOR_CONFIG")
	}
	if configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to read config file %s: %v\n", configFile, err)
		}
	}

	if apiKey == "" {
		apiKey = firstNonEmpty(viper.GetString("api-key"), os.Getenv("REDACTOR_API_KEY"))
	}
	if nerBaseURL == "" {
		nerBaseURL = firstNonEmpty(viper.GetString("ner-base-url"), os.Getenv("REDACTOR_NER_BASE_URL"))
	}
	if nerModel == "" {
		nerModel = firstNonEmpty(viper.GetString("ner-model"), os.Getenv("REDACTOR_NER_MODEL"))
	}
	if vlmBaseURL == "" {
		vlmBaseURL = firstNonEmpty(viper.GetString("vlm-base-url"), os.Getenv("REDACTOR_VLM_BASE_URL"))
	}
	if vlmModel == "" {
		vlmModel = firstNonEmpty(viper.GetString("vlm-model"), os.Getenv("REDACTOR_VLM_MODEL"))
	}
	if mcpProxyURL == "" {
		mcpProxyURL = firstNonEmpty(viper.GetString("mcp-proxy-url"), os.Getenv("REDACTOR_MCP_PROXY_URL"))
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func printVerbose(format string, args ...interface{}) {
	if verbose {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}
