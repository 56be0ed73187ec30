package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/stylevec/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "stylevec",
	Short: "Semantic fashion catalog search over Redis vector indexes",
	Long: `stylevec serves semantic retrieval over a fashion product catalog:
free-text queries are interpreted by an LLM into filters plus a refined
query, then ranked by vector similarity in the text embedding space;
visual similarity is ranked in a separate image embedding space.

Examples:
  stylevec serve                          # Start the HTTP API
  stylevec ensure-index                   # Create the search index
  stylevec ingest products.json           # Load and embed a catalog file
  stylevec enrich-images                  # Fill missing image embeddings`,
	Version: fmt.Sprintf("%s (commit %s, built %s)", version.Version, version.Commit, version.Date),
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
