package redis

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/stylevec/internal/db"
	"github.com/kailas-cloud/stylevec/internal/domain/search/filter"
)

// SearchKNN runs a KNN vector similarity search via FT.SEARCH within one
// embedding space. Records that lack the vector field are absent from the
// space and never returned.
func (s *Store) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if q.IndexName == "" {
		return nil, fmt.Errorf("index name is required")
	}
	if q.VectorField == "" {
		return nil, fmt.Errorf("vector field is required")
	}
	if len(q.Vector) == 0 {
		return nil, fmt.Errorf("vector is required")
	}
	if q.K <= 0 {
		return nil, fmt.Errorf("k must be positive")
	}

	scoreField := fmt.Sprintf("__%s_score", q.VectorField)
	queryStr := buildKNNQuery(q)

	args := []string{q.IndexName, queryStr}

	if len(q.ReturnFields) > 0 {
		returns := append([]string{scoreField}, q.ReturnFields...)
		args = append(args, "RETURN", strconv.Itoa(len(returns)))
		args = append(args, returns...)
	}

	args = append(args,
		"SORTBY", scoreField,
		"LIMIT", "0", strconv.Itoa(q.K),
		"PARAMS", "2", "BLOB", vectorToBytes(q.Vector),
		"DIALECT", "2",
	)

	cmd := s.b().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	return parseKNNResult(raw, scoreField)
}

// buildKNNQuery renders "(pre-filter)=>[KNN k @field $BLOB]".
func buildKNNQuery(q *db.KNNQuery) string {
	pre := buildPredicate(q.Predicate)
	if q.ExcludeID != "" {
		exclude := "-" + buildTagClause("id", []string{q.ExcludeID})
		if pre == "" {
			pre = exclude
		} else {
			pre += " " + exclude
		}
	}
	if pre == "" {
		pre = "*"
	} else {
		pre = "(" + pre + ")"
	}
	return fmt.Sprintf("%s=>[KNN %d @%s $BLOB]", pre, q.K, q.VectorField)
}

// buildPredicate translates the compiled filter predicate into an FT.SEARCH
// pre-filter string. Clause order is preserved, so equal predicates render
// to identical query strings.
func buildPredicate(p filter.Predicate) string {
	if p.IsEmpty() {
		return ""
	}

	parts := make([]string, 0, len(p.Clauses()))
	for _, c := range p.Clauses() {
		switch c.Kind() {
		case filter.Match, filter.MatchAny:
			parts = append(parts, buildTagClause(c.Key(), c.Values()))
		case filter.LessThan:
			parts = append(parts, fmt.Sprintf("@%s:[-inf (%g]", c.Key(), c.Bound()))
		case filter.GreaterThan:
			parts = append(parts, fmt.Sprintf("@%s:[(%g +inf]", c.Key(), c.Bound()))
		}
	}
	return strings.Join(parts, " ")
}

// buildTagClause renders "@key:{a|b|c}". Multiple values are TAG
// alternatives, which is the membership clause.
func buildTagClause(key string, values []string) string {
	escaped := make([]string, len(values))
	for i, v := range values {
		escaped[i] = tagEscaper.Replace(v)
	}
	return fmt.Sprintf("@%s:{%s}", key, strings.Join(escaped, "|"))
}

var tagEscaper = strings.NewReplacer(
	",", "\\,",
	".", "\\.",
	"<", "\\<",
	">", "\\>",
	"{", "\\{",
	"}", "\\}",
	"\"", "\\\"",
	"'", "\\'",
	":", "\\:",
	";", "\\;",
	"!", "\\!",
	"@", "\\@",
	"#", "\\#",
	"$", "\\$",
	"%", "\\%",
	"^", "\\^",
	"&", "\\&",
	"*", "\\*",
	"(", "\\(",
	")", "\\)",
	"-", "\\-",
	"+", "\\+",
	"=", "\\=",
	"~", "\\~",
	"|", "\\|",
	" ", "\\ ",
)

// parseKNNResult converts the RESP2 reply into db.SearchResult.
// 2-stride: [total, key1, fields1, key2, fields2, ...].
func parseKNNResult(raw []rueidis.RedisMessage, scoreField string) (*db.SearchResult, error) {
	if len(raw) == 0 {
		return &db.SearchResult{}, nil
	}

	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}
	if total == 0 {
		return &db.SearchResult{}, nil
	}

	entries := make([]db.SearchEntry, 0, total)
	for i := 1; i+1 < len(raw); i += 2 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}

		fields, err := raw[i+1].ToArray()
		if err != nil {
			continue
		}

		entry := db.SearchEntry{
			Key:    key,
			Fields: parseFieldPairs(fields),
		}

		if distStr, ok := entry.Fields[scoreField]; ok {
			if d, err := strconv.ParseFloat(distStr, 64); err == nil {
				entry.Distance = d
			}
			delete(entry.Fields, scoreField)
		}

		entries = append(entries, entry)
	}

	return &db.SearchResult{Total: int(total), Entries: entries}, nil
}

func parseFieldPairs(fields []rueidis.RedisMessage) map[string]string {
	m := make(map[string]string, len(fields)/2)
	for j := 0; j+1 < len(fields); j += 2 {
		name, err := fields[j].ToString()
		if err != nil {
			continue
		}
		value, err := fields[j+1].ToString()
		if err != nil {
			continue
		}
		m[name] = value
	}
	return m
}

// vectorToBytes serializes []float32 into the little-endian binary format
// FT.SEARCH expects for FLOAT32 vector blobs.
func vectorToBytes(v []float32) string {
	b := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(f))
	}
	return string(b)
}
