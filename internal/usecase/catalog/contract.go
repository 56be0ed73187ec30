package catalog

import (
	"context"

	"github.com/kailas-cloud/stylevec/internal/domain"
	"github.com/kailas-cloud/stylevec/internal/domain/product"
)

// ProductStore defines the storage contract for catalog maintenance.
type ProductStore interface {
	EnsureIndex(ctx context.Context) error
	Upsert(ctx context.Context, rec *product.Record) error
	Get(ctx context.Context, id string) (product.Record, error)
	SetImageVector(ctx context.Context, id string, vector []float32) error
	ListIDs(ctx context.Context) ([]string, error)
}

// TextEmbedder vectorizes searchable text, in batches for ingestion.
type TextEmbedder interface {
	BatchEmbedText(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error)
}

// ImageEmbedder vectorizes product images during enrichment.
type ImageEmbedder interface {
	EmbedImage(ctx context.Context, data []byte) (domain.EmbeddingResult, error)
}
