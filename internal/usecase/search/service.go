package search

import (
	"bytes"
	"context"
	"fmt"
	"image"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/kailas-cloud/stylevec/internal/domain"
	"github.com/kailas-cloud/stylevec/internal/domain/query"
	"github.com/kailas-cloud/stylevec/internal/domain/search/filter"
	"github.com/kailas-cloud/stylevec/internal/domain/search/result"
)

// DefaultMaxImageBytes bounds uploaded image size when no limit is configured.
const DefaultMaxImageBytes = 10 << 20

// Service orchestrates retrieval across the text and image embedding spaces.
type Service struct {
	repo          Repository
	products      ProductReader
	interp        Interpreter
	textEmbed     TextEmbedder
	imageEmbed    ImageEmbedder
	maxImageBytes int
}

// New creates a search service.
func New(
	repo Repository, products ProductReader, interp Interpreter,
	textEmbed TextEmbedder, imageEmbed ImageEmbedder,
) *Service {
	return &Service{
		repo:          repo,
		products:      products,
		interp:        interp,
		textEmbed:     textEmbed,
		imageEmbed:    imageEmbed,
		maxImageBytes: DefaultMaxImageBytes,
	}
}

// WithMaxImageBytes overrides the uploaded image size limit.
func (s *Service) WithMaxImageBytes(n int) *Service {
	if n > 0 {
		s.maxImageBytes = n
	}
	return s
}

// Search interprets rawQuery and runs a filtered text-space search. The
// analysis is returned alongside the ranking so callers can expose what
// the interpreter extracted.
func (s *Service) Search(ctx context.Context, rawQuery string, k int) (query.Analysis, []result.Summary, error) {
	analysis := s.interp.Interpret(ctx, rawQuery)

	products, err := s.FilteredTextSearch(ctx, analysis, k)
	if err != nil {
		return query.Analysis{}, nil, err
	}
	return analysis, products, nil
}

// FilteredTextSearch embeds the refined query and ranks candidates
// satisfying the compiled filters by ascending distance in the text space.
// A non-positive k short-circuits to an empty ranking.
func (s *Service) FilteredTextSearch(ctx context.Context, analysis query.Analysis, k int) ([]result.Summary, error) {
	if k <= 0 {
		return []result.Summary{}, nil
	}

	embRes, err := s.textEmbed.EmbedText(ctx, analysis.RefinedQuery)
	if err != nil {
		return nil, fmt.Errorf("vectorize query: %w", err)
	}

	pred := filter.Compile(analysis.Filters)

	products, err := s.repo.SearchText(ctx, embRes.Embedding, pred, k)
	if err != nil {
		return nil, fmt.Errorf("search text space: %w", err)
	}
	return products, nil
}

// ImageToImageSearch ranks products visually similar to an existing catalog
// product, excluding the source itself. A source without an image embedding
// yields a NoVisualData outcome, not an error.
func (s *Service) ImageToImageSearch(ctx context.Context, productID string, k int) (result.Visual, error) {
	rec, err := s.products.Get(ctx, productID)
	if err != nil {
		return result.Visual{}, fmt.Errorf("get product %s: %w", productID, err)
	}

	if !rec.HasImageVector() {
		return result.Visual{NoVisualData: true}, nil
	}

	if k <= 0 {
		return result.Visual{Products: []result.Summary{}}, nil
	}

	products, err := s.repo.SearchImage(ctx, rec.ImageVector(), k, productID)
	if err != nil {
		return result.Visual{}, fmt.Errorf("search image space: %w", err)
	}
	return result.Visual{Products: products}, nil
}

// UploadedImageSearch validates and embeds an uploaded image, then ranks the
// catalog by visual similarity. Nothing is excluded: the query image is not
// a catalog record.
func (s *Service) UploadedImageSearch(ctx context.Context, data []byte, k int) ([]result.Summary, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty upload: %w", domain.ErrImageDecode)
	}
	if len(data) > s.maxImageBytes {
		return nil, fmt.Errorf("upload is %d bytes, limit %d: %w",
			len(data), s.maxImageBytes, domain.ErrImageTooLarge)
	}

	if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("decode uploaded image: %w", domain.ErrImageDecode)
	}

	if k <= 0 {
		return []result.Summary{}, nil
	}

	embRes, err := s.imageEmbed.EmbedImage(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("vectorize uploaded image: %w", err)
	}

	products, err := s.repo.SearchImage(ctx, embRes.Embedding, k, "")
	if err != nil {
		return nil, fmt.Errorf("search image space: %w", err)
	}
	return products, nil
}
