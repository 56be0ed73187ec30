package product

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/kailas-cloud/stylevec/internal/db"
	"github.com/kailas-cloud/stylevec/internal/domain"
	domprod "github.com/kailas-cloud/stylevec/internal/domain/product"
)

// store is the consumer interface for product persistence (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Exists(ctx context.Context, key string) (bool, error)
	Del(ctx context.Context, key string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

// HNSWConfig tunes the HNSW graph for both vector fields.
type HNSWConfig struct {
	M           int
	EFConstruct int
}

// Repo persists product records keyed by id.
type Repo struct {
	store     store
	keyPrefix string
	textDim   int
	imageDim  int
	hnsw      HNSWConfig
}

// New creates a product repository. textDim and imageDim are the fixed
// dimensions of the two embedding spaces for the lifetime of the index.
func New(s store, keyPrefix string, textDim, imageDim int) *Repo {
	return &Repo{store: s, keyPrefix: keyPrefix, textDim: textDim, imageDim: imageDim}
}

// WithHNSW overrides HNSW index parameters.
func (r *Repo) WithHNSW(cfg HNSWConfig) *Repo {
	r.hnsw = cfg
	return r
}

// EnsureIndex creates the catalog FT index if it does not exist (idempotent).
func (r *Repo) EnsureIndex(ctx context.Context) error {
	name := domain.ProductIndexName(r.keyPrefix)

	exists, err := r.store.IndexExists(ctx, name)
	if err != nil {
		return fmt.Errorf("check index %s: %w", name, err)
	}
	if exists {
		return nil
	}

	def, err := db.NewIndex(name).
		Prefix(domain.ProductKeyPrefix(r.keyPrefix)).
		Tag(domain.FieldID).
		Tag(domain.FieldCategory).
		Tag(domain.FieldGender).
		Tag(domain.FieldColor).
		Tag(domain.FieldNeckline).
		Numeric(domain.FieldPrice).
		VectorHNSW(domain.FieldTextVector, r.textDim, db.DistanceCosine, r.hnsw.M, r.hnsw.EFConstruct).
		VectorHNSW(domain.FieldImageVector, r.imageDim, db.DistanceCosine, r.hnsw.M, r.hnsw.EFConstruct).
		Build()
	if err != nil {
		return fmt.Errorf("build index %s: %w", name, err)
	}

	if err := r.store.CreateIndex(ctx, def); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return nil
		}
		return fmt.Errorf("create index %s: %w", name, err)
	}
	return nil
}

// Upsert stores a record keyed by id. Idempotent: writing the same record
// twice leaves the stored state unchanged. A record without an image vector
// does not clear one stored by a previous enrichment.
func (r *Repo) Upsert(ctx context.Context, rec *domprod.Record) error {
	if len(rec.TextVector()) != r.textDim {
		return fmt.Errorf("text vector has dim %d, want %d: %w",
			len(rec.TextVector()), r.textDim, domain.ErrVectorDimMismatch)
	}
	if rec.HasImageVector() && len(rec.ImageVector()) != r.imageDim {
		return fmt.Errorf("image vector has dim %d, want %d: %w",
			len(rec.ImageVector()), r.imageDim, domain.ErrVectorDimMismatch)
	}

	key := domain.ProductKey(r.keyPrefix, rec.ID())
	if err := r.store.HSet(ctx, key, recordToFields(rec)); err != nil {
		return fmt.Errorf("hset %s: %w", key, err)
	}
	return nil
}

// Get returns a record by id.
func (r *Repo) Get(ctx context.Context, id string) (domprod.Record, error) {
	key := domain.ProductKey(r.keyPrefix, id)

	fields, err := r.store.HGetAll(ctx, key)
	if err != nil {
		return domprod.Record{}, fmt.Errorf("hgetall %s: %w", key, err)
	}
	if len(fields) == 0 {
		return domprod.Record{}, domain.ErrProductNotFound
	}
	return fieldsToRecord(id, fields)
}

// SetImageVector attaches an image-space embedding to an existing record.
func (r *Repo) SetImageVector(ctx context.Context, id string, vector []float32) error {
	if len(vector) != r.imageDim {
		return fmt.Errorf("image vector has dim %d, want %d: %w",
			len(vector), r.imageDim, domain.ErrVectorDimMismatch)
	}

	key := domain.ProductKey(r.keyPrefix, id)
	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("exists %s: %w", key, err)
	}
	if !exists {
		return domain.ErrProductNotFound
	}

	fields := map[string]string{domain.FieldImageVector: vectorToBytes(vector)}
	if err := r.store.HSet(ctx, key, fields); err != nil {
		return fmt.Errorf("hset %s: %w", key, err)
	}
	return nil
}

// Delete removes a record (administrative, not part of interactive retrieval).
func (r *Repo) Delete(ctx context.Context, id string) error {
	key := domain.ProductKey(r.keyPrefix, id)
	if err := r.store.Del(ctx, key); err != nil {
		return fmt.Errorf("del %s: %w", key, err)
	}
	return nil
}

// ListIDs returns all product ids in ascending order.
func (r *Repo) ListIDs(ctx context.Context) ([]string, error) {
	keys, err := r.store.Scan(ctx, domain.ProductKeyPattern(r.keyPrefix))
	if err != nil {
		return nil, fmt.Errorf("scan products: %w", err)
	}

	prefix := domain.ProductKey(r.keyPrefix, "")
	ids := make([]string, 0, len(keys))
	for _, k := range keys {
		ids = append(ids, strings.TrimPrefix(k, prefix))
	}
	sort.Strings(ids)
	return ids, nil
}
