package db

import "github.com/kailas-cloud/stylevec/internal/domain/search/filter"

// KNNQuery is the input for vector similarity search within one embedding
// space. ExcludeID removes a single record (the KNN source) from candidates.
type KNNQuery struct {
	IndexName    string
	VectorField  string
	Vector       []float32
	Predicate    filter.Predicate
	K            int
	ExcludeID    string
	ReturnFields []string
}

// SearchEntry is one raw hit from the store.
type SearchEntry struct {
	Key      string
	Distance float64
	Fields   map[string]string
}

// SearchResult is the raw outcome of an FT.SEARCH query.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}
