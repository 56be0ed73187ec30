package memory

import (
	"context"
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/kailas-cloud/stylevec/internal/db"
	"github.com/kailas-cloud/stylevec/internal/domain/query"
	"github.com/kailas-cloud/stylevec/internal/domain/search/filter"
)

func encodeVector(v []float32) string {
	b := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(f))
	}
	return string(b)
}

func TestHSet_MergesFields(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	if err := s.HSet(ctx, "k", map[string]string{"a": "1", "b": "2"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.HSet(ctx, "k", map[string]string{"b": "3"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	fields, err := s.HGetAll(ctx, "k")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fields["a"] != "1" || fields["b"] != "3" {
		t.Errorf("expected merge to preserve unset fields, got %v", fields)
	}
}

func TestHGetAll_ReturnsCopy(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	s.HSet(ctx, "k", map[string]string{"a": "1"})

	fields, _ := s.HGetAll(ctx, "k")
	fields["a"] = "mutated"

	again, _ := s.HGetAll(ctx, "k")
	if again["a"] != "1" {
		t.Error("caller mutation leaked into the store")
	}
}

func TestHGetAll_Missing(t *testing.T) {
	s := NewStore()

	fields, err := s.HGetAll(context.Background(), "absent")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fields) != 0 {
		t.Errorf("expected empty map, got %v", fields)
	}
}

func TestHDel(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	s.HSet(ctx, "k", map[string]string{"a": "1", "b": "2"})
	if err := s.HDel(ctx, "k", "a"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	fields, _ := s.HGetAll(ctx, "k")
	if _, ok := fields["a"]; ok {
		t.Error("field a should be deleted")
	}
	if fields["b"] != "2" {
		t.Error("field b should survive")
	}
}

func TestDelAndExists(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	s.HSet(ctx, "h", map[string]string{"a": "1"})
	s.Set(ctx, "v", []byte("x"))

	for _, key := range []string{"h", "v"} {
		ok, _ := s.Exists(ctx, key)
		if !ok {
			t.Errorf("expected %q to exist", key)
		}
		s.Del(ctx, key)
		ok, _ = s.Exists(ctx, key)
		if ok {
			t.Errorf("expected %q to be gone", key)
		}
	}
}

func TestScan_SortedPrefixMatch(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	s.HSet(ctx, "stylevec:product:b", map[string]string{"id": "b"})
	s.HSet(ctx, "stylevec:product:a", map[string]string{"id": "a"})
	s.HSet(ctx, "other:c", map[string]string{"id": "c"})

	keys, err := s.Scan(ctx, "stylevec:product:*")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(keys) != 2 || keys[0] != "stylevec:product:a" || keys[1] != "stylevec:product:b" {
		t.Errorf("unexpected keys: %v", keys)
	}
}

func TestKV(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	if _, err := s.Get(ctx, "k"); !errors.Is(err, db.ErrKeyNotFound) {
		t.Errorf("expected ErrKeyNotFound, got %v", err)
	}

	s.Set(ctx, "k", []byte("value"))
	data, err := s.Get(ctx, "k")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "value" {
		t.Errorf("unexpected value: %q", data)
	}

	// returned slice is a copy
	data[0] = 'X'
	again, _ := s.Get(ctx, "k")
	if string(again) != "value" {
		t.Error("caller mutation leaked into the store")
	}
}

func TestIndexLifecycle(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	def := testIndexDef()

	exists, _ := s.IndexExists(ctx, def.Name)
	if exists {
		t.Fatal("index should not exist yet")
	}

	if err := s.CreateIndex(ctx, def); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.CreateIndex(ctx, def); !errors.Is(err, db.ErrIndexExists) {
		t.Errorf("expected ErrIndexExists, got %v", err)
	}

	exists, _ = s.IndexExists(ctx, def.Name)
	if !exists {
		t.Error("index should exist after create")
	}

	if err := s.DropIndex(ctx, def.Name); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.DropIndex(ctx, def.Name); !errors.Is(err, db.ErrIndexNotFound) {
		t.Errorf("expected ErrIndexNotFound, got %v", err)
	}
}

func testIndexDef() *db.IndexDefinition {
	return &db.IndexDefinition{
		Name:     "products",
		Prefixes: []string{"stylevec:product:"},
		Fields: []db.IndexField{
			{Name: "category", Type: db.IndexFieldTag},
			{Name: "gender", Type: db.IndexFieldTag},
			{Name: "price", Type: db.IndexFieldNumeric},
			{
				Name:           "text_vector",
				Type:           db.IndexFieldVector,
				VectorAlgo:     db.VectorFlat,
				VectorDim:      3,
				VectorDistance: db.DistanceCosine,
			},
		},
	}
}

// seedSearchStore loads a small catalog slice. p4 has no text vector, so it
// is absent from the text embedding space.
func seedSearchStore(t *testing.T) *Store {
	t.Helper()

	s := NewStore()
	ctx := context.Background()
	if err := s.CreateIndex(ctx, testIndexDef()); err != nil {
		t.Fatalf("create index: %v", err)
	}

	records := []struct {
		id     string
		fields map[string]string
		vec    []float32
	}{
		{"p1", map[string]string{"category": "Dress", "gender": "Women", "price": "1500"}, []float32{1, 0, 0}},
		{"p2", map[string]string{"category": "Dress", "gender": "Women", "price": "2500"}, []float32{0, 1, 0}},
		{"p3", map[string]string{"category": "Shirt", "gender": "Men", "price": "100"}, []float32{0.9, 0.1, 0}},
		{"p4", map[string]string{"category": "Dress", "gender": "Women", "price": "900"}, nil},
	}
	for _, r := range records {
		fields := map[string]string{"id": r.id}
		for k, v := range r.fields {
			fields[k] = v
		}
		if r.vec != nil {
			fields["text_vector"] = encodeVector(r.vec)
		}
		if err := s.HSet(ctx, "stylevec:product:"+r.id, fields); err != nil {
			t.Fatalf("seed %s: %v", r.id, err)
		}
	}
	return s
}

func searchIDs(t *testing.T, s *Store, q *db.KNNQuery) []string {
	t.Helper()

	result, err := s.SearchKNN(context.Background(), q)
	if err != nil {
		t.Fatalf("SearchKNN: %v", err)
	}
	ids := make([]string, len(result.Entries))
	for i, e := range result.Entries {
		ids[i] = e.Fields["id"]
	}
	return ids
}

func TestSearchKNN_OrdersByDistance(t *testing.T) {
	s := seedSearchStore(t)

	ids := searchIDs(t, s, &db.KNNQuery{
		IndexName:   "products",
		VectorField: "text_vector",
		Vector:      []float32{1, 0, 0},
		K:           10,
	})
	want := []string{"p1", "p3", "p2"}
	if len(ids) != len(want) {
		t.Fatalf("expected %v, got %v", want, ids)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, ids)
		}
	}
}

func TestSearchKNN_TieBreaksByKey(t *testing.T) {
	s := seedSearchStore(t)
	ctx := context.Background()

	// p0 duplicates p1's vector; equal distance must order by key
	s.HSet(ctx, "stylevec:product:p0", map[string]string{
		"id":          "p0",
		"category":    "Dress",
		"price":       "1000",
		"text_vector": encodeVector([]float32{1, 0, 0}),
	})

	ids := searchIDs(t, s, &db.KNNQuery{
		IndexName:   "products",
		VectorField: "text_vector",
		Vector:      []float32{1, 0, 0},
		K:           2,
	})
	if len(ids) != 2 || ids[0] != "p0" || ids[1] != "p1" {
		t.Errorf("expected deterministic [p0 p1], got %v", ids)
	}
}

func TestSearchKNN_TruncatesToK(t *testing.T) {
	s := seedSearchStore(t)

	result, err := s.SearchKNN(context.Background(), &db.KNNQuery{
		IndexName:   "products",
		VectorField: "text_vector",
		Vector:      []float32{1, 0, 0},
		K:           1,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Entries) != 1 {
		t.Errorf("expected 1 entry, got %d", len(result.Entries))
	}
	if result.Total != 3 {
		t.Errorf("Total should count all matches, got %d", result.Total)
	}
}

func TestSearchKNN_MissingVectorExcluded(t *testing.T) {
	s := seedSearchStore(t)

	ids := searchIDs(t, s, &db.KNNQuery{
		IndexName:   "products",
		VectorField: "text_vector",
		Vector:      []float32{0, 0, 1},
		K:           10,
	})
	for _, id := range ids {
		if id == "p4" {
			t.Error("record without the vector field must be absent from the space")
		}
	}
}

func TestSearchKNN_Filtered(t *testing.T) {
	s := seedSearchStore(t)
	priceLT := 2000.0

	ids := searchIDs(t, s, &db.KNNQuery{
		IndexName:   "products",
		VectorField: "text_vector",
		Vector:      []float32{1, 0, 0},
		K:           10,
		Predicate: filter.Compile(query.Filters{
			Category: "Dress",
			PriceLT:  &priceLT,
		}),
	})
	if len(ids) != 1 || ids[0] != "p1" {
		t.Errorf("expected only p1 (Dress under 2000), got %v", ids)
	}
}

func TestSearchKNN_EmptyPredicateEqualsUnfiltered(t *testing.T) {
	s := seedSearchStore(t)

	base := &db.KNNQuery{
		IndexName:   "products",
		VectorField: "text_vector",
		Vector:      []float32{0.5, 0.5, 0},
		K:           10,
	}
	unfiltered := searchIDs(t, s, base)

	withEmpty := *base
	withEmpty.Predicate = filter.Compile(query.Filters{})
	filtered := searchIDs(t, s, &withEmpty)

	if len(unfiltered) != len(filtered) {
		t.Fatalf("empty predicate changed the result set: %v vs %v", unfiltered, filtered)
	}
	for i := range unfiltered {
		if unfiltered[i] != filtered[i] {
			t.Fatalf("empty predicate changed ordering: %v vs %v", unfiltered, filtered)
		}
	}
}

func TestSearchKNN_ExcludeID(t *testing.T) {
	s := seedSearchStore(t)

	ids := searchIDs(t, s, &db.KNNQuery{
		IndexName:   "products",
		VectorField: "text_vector",
		Vector:      []float32{1, 0, 0},
		K:           10,
		ExcludeID:   "p1",
	})
	for _, id := range ids {
		if id == "p1" {
			t.Error("excluded id present in results")
		}
	}
	if len(ids) != 2 {
		t.Errorf("expected 2 entries, got %v", ids)
	}
}

func TestSearchKNN_ReturnFields(t *testing.T) {
	s := seedSearchStore(t)

	result, err := s.SearchKNN(context.Background(), &db.KNNQuery{
		IndexName:    "products",
		VectorField:  "text_vector",
		Vector:       []float32{1, 0, 0},
		K:            1,
		ReturnFields: []string{"id", "price"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fields := result.Entries[0].Fields
	if len(fields) != 2 || fields["id"] == "" || fields["price"] == "" {
		t.Errorf("expected only id and price, got %v", fields)
	}
}

func TestSearchKNN_Validation(t *testing.T) {
	s := seedSearchStore(t)
	ctx := context.Background()

	_, err := s.SearchKNN(ctx, &db.KNNQuery{
		IndexName: "products", VectorField: "text_vector", Vector: []float32{1, 0, 0},
	})
	if err == nil {
		t.Error("expected error for k <= 0")
	}

	_, err = s.SearchKNN(ctx, &db.KNNQuery{
		IndexName: "absent", VectorField: "text_vector", Vector: []float32{1, 0, 0}, K: 1,
	})
	if !errors.Is(err, db.ErrIndexNotFound) {
		t.Errorf("expected ErrIndexNotFound, got %v", err)
	}

	_, err = s.SearchKNN(ctx, &db.KNNQuery{
		IndexName: "products", VectorField: "text_vector", Vector: []float32{1, 0}, K: 1,
	})
	if err == nil {
		t.Error("expected error for dimension mismatch")
	}

	_, err = s.SearchKNN(ctx, &db.KNNQuery{
		IndexName: "products", VectorField: "nope", Vector: []float32{1, 0, 0}, K: 1,
	})
	if err == nil {
		t.Error("expected error for unknown vector field")
	}
}
