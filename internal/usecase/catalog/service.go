package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/stylevec/internal/domain/product"
)

// embedBatchSize bounds a single embedding API call during ingestion.
const embedBatchSize = 64

// Service maintains the catalog: ingestion, image enrichment, and single
// product upserts.
type Service struct {
	store      ProductStore
	textEmbed  TextEmbedder
	imageEmbed ImageEmbedder
	assetsDir  string
	logger     *zap.Logger
}

// New creates a catalog service. assetsDir is the root that product image
// paths resolve against during enrichment.
func New(store ProductStore, textEmbed TextEmbedder, imageEmbed ImageEmbedder, assetsDir string, logger *zap.Logger) *Service {
	return &Service{
		store:      store,
		textEmbed:  textEmbed,
		imageEmbed: imageEmbed,
		assetsDir:  assetsDir,
		logger:     logger,
	}
}

// Item is the wire shape of one catalog entry in a products file.
type Item struct {
	ID            string   `json:"id"`
	Category      string   `json:"category"`
	Gender        string   `json:"gender"`
	Description   string   `json:"description"`
	Summary       string   `json:"summary"`
	Neckline      string   `json:"neckline"`
	Sleeve        string   `json:"sleeve"`
	Length        string   `json:"length"`
	Style         string   `json:"style"`
	Fabric        string   `json:"fabric"`
	Occasion      string   `json:"occasion"`
	Season        string   `json:"season"`
	SpecialDesign string   `json:"special_design"`
	Price         int      `json:"price"`
	Color         string   `json:"color"`
	ImagePaths    []string `json:"img_paths"`
}

func (it Item) attributes() product.Attributes {
	return product.Attributes{
		Category:      strings.TrimSpace(it.Category),
		Gender:        strings.TrimSpace(it.Gender),
		Description:   it.Description,
		Summary:       it.Summary,
		Neckline:      strings.TrimSpace(it.Neckline),
		Sleeve:        it.Sleeve,
		Length:        it.Length,
		Style:         it.Style,
		Fabric:        it.Fabric,
		Occasion:      it.Occasion,
		Season:        it.Season,
		SpecialDesign: it.SpecialDesign,
		Price:         it.Price,
		Color:         strings.TrimSpace(it.Color),
		ImagePaths:    it.ImagePaths,
	}
}

// Stats summarizes a bulk catalog operation.
type Stats struct {
	Processed int
	Skipped   int
	Tokens    int
}

// ProgressFn reports bulk operation progress after each record.
type ProgressFn func(done, total int)

// LoadCatalog reads a JSON array of catalog items, embeds their searchable
// text in batches, and upserts each record. Invalid items are skipped with
// a warning rather than aborting the whole load. Re-running with the same
// file is idempotent and preserves any image vectors already enriched.
func (s *Service) LoadCatalog(ctx context.Context, r io.Reader, progress ProgressFn) (Stats, error) {
	var items []Item
	if err := json.NewDecoder(r).Decode(&items); err != nil {
		return Stats{}, fmt.Errorf("decode catalog: %w", err)
	}

	var stats Stats

	records := make([]product.Record, 0, len(items))
	for _, it := range items {
		rec, err := product.New(it.ID, it.attributes())
		if err != nil {
			s.logger.Warn("skipping invalid catalog item",
				zap.String("id", it.ID),
				zap.Error(err),
			)
			stats.Skipped++
			continue
		}
		records = append(records, rec)
	}

	total := len(records)
	for start := 0; start < total; start += embedBatchSize {
		end := min(start+embedBatchSize, total)
		batch := records[start:end]

		texts := make([]string, len(batch))
		for i := range batch {
			texts[i] = batch[i].SearchableText()
		}

		embRes, err := s.textEmbed.BatchEmbedText(ctx, texts)
		if err != nil {
			return stats, fmt.Errorf("embed catalog batch [%d:%d]: %w", start, end, err)
		}
		stats.Tokens += embRes.TotalTokens

		for i := range batch {
			rec := batch[i].WithTextVector(embRes.Embeddings[i])
			if err := s.store.Upsert(ctx, &rec); err != nil {
				return stats, fmt.Errorf("upsert %s: %w", rec.ID(), err)
			}
			stats.Processed++
			if progress != nil {
				progress(stats.Processed, total)
			}
		}
	}

	return stats, nil
}

// EnrichImages walks the catalog and fills missing image vectors from the
// primary image file of each product. Products that already have a vector
// or whose image file is absent are skipped.
func (s *Service) EnrichImages(ctx context.Context, progress ProgressFn) (Stats, error) {
	ids, err := s.store.ListIDs(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("list products: %w", err)
	}

	var stats Stats
	total := len(ids)

	for i, id := range ids {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		rec, err := s.store.Get(ctx, id)
		if err != nil {
			return stats, fmt.Errorf("get %s: %w", id, err)
		}

		if rec.HasImageVector() {
			stats.Skipped++
			if progress != nil {
				progress(i+1, total)
			}
			continue
		}

		data, err := s.readPrimaryImage(&rec)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				s.logger.Warn("image file missing, skipping product",
					zap.String("id", id),
					zap.String("image", rec.PrimaryImage()),
				)
				stats.Skipped++
				if progress != nil {
					progress(i+1, total)
				}
				continue
			}
			return stats, fmt.Errorf("read image for %s: %w", id, err)
		}

		embRes, err := s.imageEmbed.EmbedImage(ctx, data)
		if err != nil {
			return stats, fmt.Errorf("embed image for %s: %w", id, err)
		}
		stats.Tokens += embRes.TotalTokens

		if err := s.store.SetImageVector(ctx, id, embRes.Embedding); err != nil {
			return stats, fmt.Errorf("set image vector for %s: %w", id, err)
		}

		stats.Processed++
		if progress != nil {
			progress(i+1, total)
		}
	}

	return stats, nil
}

// UpsertProduct validates, embeds, and stores a single catalog item.
func (s *Service) UpsertProduct(ctx context.Context, item Item) error {
	rec, err := product.New(item.ID, item.attributes())
	if err != nil {
		return err
	}

	embRes, err := s.textEmbed.BatchEmbedText(ctx, []string{rec.SearchableText()})
	if err != nil {
		return fmt.Errorf("embed product text: %w", err)
	}

	rec = rec.WithTextVector(embRes.Embeddings[0])
	if err := s.store.Upsert(ctx, &rec); err != nil {
		return fmt.Errorf("upsert %s: %w", rec.ID(), err)
	}
	return nil
}

// EnsureIndex creates the search index if it does not exist yet.
func (s *Service) EnsureIndex(ctx context.Context) error {
	return s.store.EnsureIndex(ctx)
}

// readPrimaryImage loads the primary image file, resolving catalog paths
// (which carry a leading slash) against the assets directory.
func (s *Service) readPrimaryImage(rec *product.Record) ([]byte, error) {
	rel := strings.TrimPrefix(rec.PrimaryImage(), "/")
	return os.ReadFile(filepath.Join(s.assetsDir, filepath.FromSlash(rel)))
}
