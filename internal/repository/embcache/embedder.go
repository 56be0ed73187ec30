package embcache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/stylevec/internal/db"
	"github.com/kailas-cloud/stylevec/internal/domain"
)

// store is the consumer interface for the embedding cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// cache holds the shared lookup logic of both decorators. Cache failures
// degrade to a provider call, never to a request failure.
type cache struct {
	store      store
	keyPrefix  string
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// TextEmbedder caches text embeddings in a key-value store, keyed by the
// sha256 of the input text.
type TextEmbedder struct {
	inner domain.TextEmbedder
	cache cache
}

// NewText creates a caching decorator for a text embedder.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"); nil disables it.
func NewText(
	inner domain.TextEmbedder, s store, keyPrefix string,
	cacheTotal *prometheus.CounterVec, logger *zap.Logger,
) *TextEmbedder {
	return &TextEmbedder{
		inner: inner,
		cache: cache{store: s, keyPrefix: keyPrefix + "emb_cache:text:", cacheTotal: cacheTotal, logger: logger},
	}
}

// EmbedText returns a cached embedding or calls the inner embedder.
// Cache hit: TotalTokens = 0 (no real tokens consumed).
func (c *TextEmbedder) EmbedText(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	key := c.cache.key([]byte(text))

	if vec, ok := c.cache.get(ctx, key); ok {
		return domain.EmbeddingResult{Embedding: vec}, nil
	}

	result, err := c.inner.EmbedText(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed text: %w", err)
	}

	c.cache.put(ctx, key, result.Embedding)
	return result, nil
}

// ImageEmbedder caches image embeddings keyed by the sha256 of the bytes.
type ImageEmbedder struct {
	inner domain.ImageEmbedder
	cache cache
}

// NewImage creates a caching decorator for an image embedder.
func NewImage(
	inner domain.ImageEmbedder, s store, keyPrefix string,
	cacheTotal *prometheus.CounterVec, logger *zap.Logger,
) *ImageEmbedder {
	return &ImageEmbedder{
		inner: inner,
		cache: cache{store: s, keyPrefix: keyPrefix + "emb_cache:image:", cacheTotal: cacheTotal, logger: logger},
	}
}

// EmbedImage returns a cached embedding or calls the inner embedder.
func (c *ImageEmbedder) EmbedImage(ctx context.Context, data []byte) (domain.EmbeddingResult, error) {
	key := c.cache.key(data)

	if vec, ok := c.cache.get(ctx, key); ok {
		return domain.EmbeddingResult{Embedding: vec}, nil
	}

	result, err := c.inner.EmbedImage(ctx, data)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed image: %w", err)
	}

	c.cache.put(ctx, key, result.Embedding)
	return result, nil
}

func (c *cache) key(input []byte) string {
	h := sha256.Sum256(input)
	return c.keyPrefix + hex.EncodeToString(h[:])
}

func (c *cache) get(ctx context.Context, key string) ([]float32, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached embedding", zap.String("key", key), zap.Error(err))
		}
		c.inc("miss")
		return nil, false
	}

	vec := decodeVector(data)
	if vec == nil {
		c.inc("miss")
		return nil, false
	}

	c.inc("hit")
	return vec, true
}

func (c *cache) put(ctx context.Context, key string, vec []float32) {
	if len(vec) == 0 {
		return
	}
	if err := c.store.Set(ctx, key, encodeVector(vec)); err != nil {
		c.logger.Warn("Failed to cache embedding", zap.String("key", key), zap.Error(err))
	}
}

func (c *cache) inc(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

func encodeVector(v []float32) []byte {
	b := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(f))
	}
	return b
}

func decodeVector(b []byte) []float32 {
	if len(b) == 0 || len(b)%4 != 0 {
		return nil
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}
