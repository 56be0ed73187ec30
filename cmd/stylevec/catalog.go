package main

import (
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	cataloguc "github.com/kailas-cloud/stylevec/internal/usecase/catalog"
)

var ensureIndexCmd = &cobra.Command{
	Use:   "ensure-index",
	Short: "Create the product search index if it does not exist",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.products.EnsureIndex(cmd.Context()); err != nil {
			return fmt.Errorf("ensure index: %w", err)
		}
		fmt.Println("Index ready.")
		return nil
	},
}

var ingestCmd = &cobra.Command{
	Use:   "ingest <products.json>",
	Short: "Load a catalog file, embed searchable text, and upsert products",
	Args:  cobra.ExactArgs(1),
	RunE:  runIngest,
}

var enrichImagesCmd = &cobra.Command{
	Use:   "enrich-images",
	Short: "Fill missing image embeddings from the primary image of each product",
	RunE:  runEnrichImages,
}

func init() {
	rootCmd.AddCommand(ensureIndexCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(enrichImagesCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("open catalog file: %w", err)
	}
	defer f.Close()

	if err := a.products.EnsureIndex(ctx); err != nil {
		return fmt.Errorf("ensure index: %w", err)
	}

	svc := cataloguc.New(a.products, a.textEmbedder, a.imageEmbedder, a.cfg.Catalog.AssetsDir, a.logger)

	var bar *progressbar.ProgressBar
	stats, err := svc.LoadCatalog(ctx, f, func(done, total int) {
		if bar == nil {
			bar = newBar(total, "Ingesting")
		}
		_ = bar.Set(done)
	})
	if bar != nil {
		_ = bar.Finish()
	}
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	a.logger.Info("Catalog ingested",
		zap.Int("processed", stats.Processed),
		zap.Int("skipped", stats.Skipped),
		zap.Int("tokens", stats.Tokens),
	)
	fmt.Printf("Ingested %d products (%d skipped).\n", stats.Processed, stats.Skipped)
	return nil
}

func runEnrichImages(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	svc := cataloguc.New(a.products, a.textEmbedder, a.imageEmbedder, a.cfg.Catalog.AssetsDir, a.logger)

	var bar *progressbar.ProgressBar
	stats, err := svc.EnrichImages(ctx, func(done, total int) {
		if bar == nil {
			bar = newBar(total, "Enriching")
		}
		_ = bar.Set(done)
	})
	if bar != nil {
		_ = bar.Finish()
	}
	if err != nil {
		return fmt.Errorf("enrich images: %w", err)
	}

	a.logger.Info("Image embeddings enriched",
		zap.Int("processed", stats.Processed),
		zap.Int("skipped", stats.Skipped),
	)
	fmt.Printf("Enriched %d products (%d skipped).\n", stats.Processed, stats.Skipped)
	return nil
}

func newBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetDescription(description),
	)
}
