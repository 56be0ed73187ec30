package search

import (
	"context"

	"github.com/kailas-cloud/stylevec/internal/domain"
	"github.com/kailas-cloud/stylevec/internal/domain/product"
	"github.com/kailas-cloud/stylevec/internal/domain/query"
	"github.com/kailas-cloud/stylevec/internal/domain/search/filter"
	"github.com/kailas-cloud/stylevec/internal/domain/search/result"
)

// Repository defines the storage contract for ranked retrieval.
type Repository interface {
	SearchText(ctx context.Context, vector []float32, pred filter.Predicate, k int) ([]result.Summary, error)
	SearchImage(ctx context.Context, vector []float32, k int, excludeID string) ([]result.Summary, error)
}

// ProductReader reads catalog records, used to fetch the stored image
// embedding of a KNN source product.
type ProductReader interface {
	Get(ctx context.Context, id string) (product.Record, error)
}

// Interpreter turns a free-text query into a structured analysis.
// Implementations degrade to the identity analysis rather than failing.
type Interpreter interface {
	Interpret(ctx context.Context, rawQuery string) query.Analysis
}

// TextEmbedder vectorizes refined queries into the text space.
type TextEmbedder interface {
	EmbedText(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// ImageEmbedder vectorizes uploaded images into the image space.
type ImageEmbedder interface {
	EmbedImage(ctx context.Context, data []byte) (domain.EmbeddingResult, error)
}
