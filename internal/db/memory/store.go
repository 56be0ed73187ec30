package memory

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/kailas-cloud/stylevec/internal/db"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

// Store is an in-process db.Store for development and tests. KNN search is
// an exhaustive scan, so it is also the reference implementation for the
// no-false-negative property of filtered search.
type Store struct {
	mu      sync.RWMutex
	hashes  map[string]map[string]string
	kv      map[string][]byte
	indexes map[string]*db.IndexDefinition
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		hashes:  make(map[string]map[string]string),
		kv:      make(map[string][]byte),
		indexes: make(map[string]*db.IndexDefinition),
	}
}

// Ping always succeeds.
func (s *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op.
func (s *Store) Close() {}

// WaitForReady always succeeds.
func (s *Store) WaitForReady(_ context.Context, _ time.Duration) error { return nil }

// HSet merges fields into the hash at key. The record is replaced with a
// fresh map under the write lock, so a concurrent reader observes either
// the old or the new record, never a mix.
func (s *Store) HSet(_ context.Context, key string, fields map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	merged := make(map[string]string, len(s.hashes[key])+len(fields))
	for k, v := range s.hashes[key] {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	s.hashes[key] = merged
	return nil
}

// HGetAll returns a copy of all fields of a hash.
func (s *Store) HGetAll(_ context.Context, key string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fields, ok := s.hashes[key]
	if !ok {
		return map[string]string{}, nil
	}
	out := make(map[string]string, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out, nil
}

// HDel removes specific fields from a hash.
func (s *Store) HDel(_ context.Context, key string, fields ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.hashes[key]
	if !ok {
		return nil
	}
	merged := make(map[string]string, len(existing))
	for k, v := range existing {
		merged[k] = v
	}
	for _, f := range fields {
		delete(merged, f)
	}
	s.hashes[key] = merged
	return nil
}

// Del deletes a key from both the hash and KV namespaces.
func (s *Store) Del(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.hashes, key)
	delete(s.kv, key)
	return nil
}

// Exists checks if a key exists.
func (s *Store) Exists(_ context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.hashes[key]; ok {
		return true, nil
	}
	_, ok := s.kv[key]
	return ok, nil
}

// Scan returns keys matching a glob-style prefix pattern ("prefix*").
func (s *Store) Scan(_ context.Context, pattern string) ([]string, error) {
	prefix := strings.TrimSuffix(pattern, "*")

	s.mu.RLock()
	defer s.mu.RUnlock()

	var keys []string
	for k := range s.hashes {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Get retrieves a KV value.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.kv[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return append([]byte(nil), v...), nil
}

// Set stores a KV value.
func (s *Store) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.kv[key] = append([]byte(nil), value...)
	return nil
}

// CreateIndex registers an index definition.
func (s *Store) CreateIndex(_ context.Context, def *db.IndexDefinition) error {
	if err := def.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.indexes[def.Name]; ok {
		return db.ErrIndexExists
	}
	s.indexes[def.Name] = def
	return nil
}

// DropIndex removes an index definition. Records are kept, as in Redis.
func (s *Store) DropIndex(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.indexes[name]; !ok {
		return db.ErrIndexNotFound
	}
	delete(s.indexes, name)
	return nil
}

// IndexExists reports whether an index is registered.
func (s *Store) IndexExists(_ context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.indexes[name]
	return ok, nil
}

// SearchKNN ranks every indexed record possessing the vector field by
// ascending cosine distance to the query vector, after applying the
// pre-filter predicate. Ties are broken by key so the ordering is stable.
func (s *Store) SearchKNN(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if q.K <= 0 {
		return nil, fmt.Errorf("k must be positive")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, ok := s.indexes[q.IndexName]
	if !ok {
		return nil, db.ErrIndexNotFound
	}
	vf := idx.VectorField(q.VectorField)
	if vf == nil {
		return nil, fmt.Errorf("unknown vector field %q", q.VectorField)
	}
	if len(q.Vector) != vf.VectorDim {
		return nil, fmt.Errorf("query vector has dim %d, index expects %d", len(q.Vector), vf.VectorDim)
	}

	var entries []db.SearchEntry
	for key, fields := range s.hashes {
		if !matchesPrefix(key, idx.Prefixes) {
			continue
		}
		if q.ExcludeID != "" && fields["id"] == q.ExcludeID {
			continue
		}

		raw, ok := fields[q.VectorField]
		if !ok {
			continue // record is absent from this embedding space
		}
		vec := bytesToVector(raw)
		if len(vec) != vf.VectorDim {
			continue
		}

		tags, numerics := splitFields(idx, fields)
		if !q.Predicate.Matches(tags, numerics) {
			continue
		}

		entries = append(entries, db.SearchEntry{
			Key:      key,
			Distance: cosineDistance(q.Vector, vec),
			Fields:   returnFields(fields, q.ReturnFields),
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Distance != entries[j].Distance {
			return entries[i].Distance < entries[j].Distance
		}
		return entries[i].Key < entries[j].Key
	})

	total := len(entries)
	if len(entries) > q.K {
		entries = entries[:q.K]
	}

	return &db.SearchResult{Total: total, Entries: entries}, nil
}

func matchesPrefix(key string, prefixes []string) bool {
	if len(prefixes) == 0 {
		return true
	}
	for _, p := range prefixes {
		if strings.HasPrefix(key, p) {
			return true
		}
	}
	return false
}

// splitFields partitions hash fields into tag and numeric views per the
// index schema, mirroring how FT.SEARCH types its filters.
func splitFields(idx *db.IndexDefinition, fields map[string]string) (map[string]string, map[string]float64) {
	tags := make(map[string]string)
	numerics := make(map[string]float64)
	for i := range idx.Fields {
		f := &idx.Fields[i]
		raw, ok := fields[f.Name]
		if !ok {
			continue
		}
		switch f.Type {
		case db.IndexFieldTag:
			tags[f.Name] = raw
		case db.IndexFieldNumeric:
			if n, err := strconv.ParseFloat(raw, 64); err == nil {
				numerics[f.Name] = n
			}
		}
	}
	return tags, numerics
}

func returnFields(fields map[string]string, requested []string) map[string]string {
	if len(requested) == 0 {
		out := make(map[string]string, len(fields))
		for k, v := range fields {
			out[k] = v
		}
		return out
	}
	out := make(map[string]string, len(requested))
	for _, k := range requested {
		if v, ok := fields[k]; ok {
			out[k] = v
		}
	}
	return out
}

// cosineDistance is 1 - cosine similarity, the same metric the redis driver
// gets from DISTANCE_METRIC COSINE. Smaller is more similar.
func cosineDistance(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}

func bytesToVector(s string) []float32 {
	b := []byte(s)
	if len(b)%4 != 0 {
		return nil
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}
