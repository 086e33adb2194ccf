package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rezonia/pii-redactor/internal/taxonomy"
)

var taxonomyCmd = &cobra.Command{
	Use:   "taxonomy",
	Short: "Inspect and manage the entity-type taxonomy registry",
}

var taxonomyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List entity types",
	RunE:  runTaxonomyList,
}

var taxonomyToggleCmd = &cobra.Command{
	Use:   "toggle <id>",
	Short: "Flip an entity type's enabled flag",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaxonomyToggle,
}

var taxonomyResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Restore preset entity types verbatim, dropping user entries",
	RunE:  runTaxonomyReset,
}

var taxonomyListEnabledOnly bool

func init() {
	rootCmd.AddCommand(taxonomyCmd)
	taxonomyCmd.AddCommand(taxonomyListCmd)
	taxonomyCmd.AddCommand(taxonomyToggleCmd)
	taxonomyCmd.AddCommand(taxonomyResetCmd)

	taxonomyListCmd.Flags().BoolVar(&taxonomyListEnabledOnly, "enabled-only", false, "List only enabled types")
}

func openTaxonomyRegistry() (*taxonomy.Registry, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, err
	}
	return taxonomy.NewRegistry(filepath.Join(dataDir, "taxonomy.json"))
}

func runTaxonomyList(cmd *cobra.Command, args []string) error {
	reg, err := openTaxonomyRegistry()
	if err != nil {
		return err
	}
	types := reg.List(taxonomyListEnabledOnly)

	if outputFormat == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(types)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCATEGORY\tENABLED\tRISK\tORDER")
	for _, t := range types {
		fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%d\t%d\n", t.ID, t.Name, t.Category, t.Enabled, t.RiskLevel, t.Order)
	}
	return w.Flush()
}

func runTaxonomyToggle(cmd *cobra.Command, args []string) error {
	reg, err := openTaxonomyRegistry()
	if err != nil {
		return err
	}
	t, err := reg.Toggle(args[0])
	if err != nil {
		return err
	}
	fmt.Printf("%s enabled=%t\n", t.ID, t.Enabled)
	return nil
}

func runTaxonomyReset(cmd *cobra.Command, args []string) error {
	reg, err := openTaxonomyRegistry()
	if err != nil {
		return err
	}
	if err := reg.Reset(); err != nil {
		return err
	}
	fmt.Println("taxonomy reset to presets")
	return nil
}
