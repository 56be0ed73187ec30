package search

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/kailas-cloud/stylevec/internal/db"
	"github.com/kailas-cloud/stylevec/internal/domain"
	"github.com/kailas-cloud/stylevec/internal/domain/search/filter"
	"github.com/kailas-cloud/stylevec/internal/domain/search/result"
)

// store is the consumer interface for search operations (ISP).
type store interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

// summaryFields are the hash fields a search hit carries back.
var summaryFields = []string{
	domain.FieldSummary,
	domain.FieldPrice,
	domain.FieldColor,
	domain.FieldNeckline,
	domain.FieldImagePaths,
}

// Repo runs KNN queries over the two embedding spaces of the catalog index.
type Repo struct {
	store     store
	keyPrefix string
}

// New creates a search repository.
func New(s store, keyPrefix string) *Repo {
	return &Repo{store: s, keyPrefix: keyPrefix}
}

// SearchText ranks candidates satisfying the predicate by ascending cosine
// distance in the text space.
func (r *Repo) SearchText(
	ctx context.Context, vector []float32, pred filter.Predicate, k int,
) ([]result.Summary, error) {
	q := &db.KNNQuery{
		IndexName:    domain.ProductIndexName(r.keyPrefix),
		VectorField:  domain.FieldTextVector,
		Vector:       vector,
		Predicate:    pred,
		K:            k,
		ReturnFields: summaryFields,
	}

	sr, err := r.store.SearchKNN(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search text space: %w", err)
	}
	return r.parseResults(sr), nil
}

// SearchImage ranks every record possessing an image embedding by ascending
// cosine distance in the image space, unfiltered by metadata. excludeID
// removes the KNN source record; pass "" to keep all candidates.
func (r *Repo) SearchImage(
	ctx context.Context, vector []float32, k int, excludeID string,
) ([]result.Summary, error) {
	q := &db.KNNQuery{
		IndexName:    domain.ProductIndexName(r.keyPrefix),
		VectorField:  domain.FieldImageVector,
		Vector:       vector,
		K:            k,
		ExcludeID:    excludeID,
		ReturnFields: summaryFields,
	}

	sr, err := r.store.SearchKNN(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search image space: %w", err)
	}
	return r.parseResults(sr), nil
}

// parseResults converts raw entries into summaries and enforces the
// deterministic ordering: ascending distance, ties broken by ascending id.
// The backend already sorts by distance, but its tie order is not
// guaranteed, so the secondary sort happens here.
func (r *Repo) parseResults(sr *db.SearchResult) []result.Summary {
	if sr == nil || len(sr.Entries) == 0 {
		return []result.Summary{}
	}

	prefix := domain.ProductKeyPrefix(r.keyPrefix)
	out := make([]result.Summary, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		id := strings.TrimPrefix(entry.Key, prefix)
		out = append(out, parseEntry(id, entry))
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Distance() != out[j].Distance() {
			return out[i].Distance() < out[j].Distance()
		}
		return out[i].ID() < out[j].ID()
	})
	return out
}

func parseEntry(id string, entry db.SearchEntry) result.Summary {
	price := 0
	if raw := entry.Fields[domain.FieldPrice]; raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			price = parsed
		}
	}

	image := ""
	if raw := entry.Fields[domain.FieldImagePaths]; raw != "" {
		var paths []string
		if err := json.Unmarshal([]byte(raw), &paths); err == nil && len(paths) > 0 {
			image = paths[0]
		}
	}

	return result.New(
		id,
		entry.Fields[domain.FieldSummary],
		price,
		entry.Fields[domain.FieldColor],
		entry.Fields[domain.FieldNeckline],
		image,
		entry.Distance,
	)
}
