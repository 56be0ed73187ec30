package filter

import (
	"sort"
	"strings"

	"github.com/kailas-cloud/stylevec/internal/domain/query"
)

// Kind discriminates filter clause semantics.
type Kind int

const (
	// Match requires the field to equal a single value.
	Match Kind = iota
	// MatchAny requires the field to equal one of several values.
	MatchAny
	// LessThan requires a numeric field to be strictly below the bound.
	LessThan
	// GreaterThan requires a numeric field to be strictly above the bound.
	GreaterThan
)

// Clause is a single filter condition on one catalog field.
type Clause struct {
	key    string
	kind   Kind
	values []string
	bound  float64
}

// Key returns the field name.
func (c Clause) Key() string { return c.key }

// Kind returns the clause semantics.
func (c Clause) Kind() Kind { return c.kind }

// Values returns the match values (Match: one, MatchAny: several).
func (c Clause) Values() []string { return c.values }

// Bound returns the numeric bound for LessThan/GreaterThan clauses.
func (c Clause) Bound() float64 { return c.bound }

// Predicate is an ordered conjunction of clauses. The zero value matches
// everything. Derived fresh per request, never stored.
type Predicate struct {
	clauses []Clause
}

// Clauses returns the conjunction in canonical order.
func (p Predicate) Clauses() []Clause { return p.clauses }

// IsEmpty reports whether the predicate has no clauses.
func (p Predicate) IsEmpty() bool { return len(p.clauses) == 0 }

// Compile turns validated query filters into a conjunctive predicate.
// Clauses are emitted in a canonical key order and list values are sorted,
// so two filter sets with the same content always compile to observably
// identical predicates regardless of how they were assembled.
func Compile(f query.Filters) Predicate {
	var clauses []Clause

	if f.Category != "" {
		clauses = append(clauses, Clause{key: "category", kind: Match, values: []string{f.Category}})
	}
	if f.Gender != "" {
		clauses = append(clauses, Clause{key: "gender", kind: Match, values: []string{f.Gender}})
	}
	if c := matchClause("color", f.Color); c != nil {
		clauses = append(clauses, *c)
	}
	if c := matchClause("neckline", f.Neckline); c != nil {
		clauses = append(clauses, *c)
	}
	if f.PriceLT != nil {
		clauses = append(clauses, Clause{key: "price", kind: LessThan, bound: *f.PriceLT})
	}
	if f.PriceGT != nil {
		clauses = append(clauses, Clause{key: "price", kind: GreaterThan, bound: *f.PriceGT})
	}

	return Predicate{clauses: clauses}
}

func matchClause(key string, values []string) *Clause {
	switch len(values) {
	case 0:
		return nil
	case 1:
		return &Clause{key: key, kind: Match, values: []string{values[0]}}
	default:
		sorted := append([]string(nil), values...)
		sort.Strings(sorted)
		return &Clause{key: key, kind: MatchAny, values: sorted}
	}
}

// Matches evaluates the predicate against a record's indexed fields.
// Tag comparisons are case-insensitive, matching the FT.SEARCH TAG
// semantics the redis driver relies on.
func (p Predicate) Matches(tags map[string]string, numerics map[string]float64) bool {
	for _, c := range p.clauses {
		switch c.kind {
		case Match, MatchAny:
			if !matchesTag(tags[c.key], c.values) {
				return false
			}
		case LessThan:
			n, ok := numerics[c.key]
			if !ok || n >= c.bound {
				return false
			}
		case GreaterThan:
			n, ok := numerics[c.key]
			if !ok || n <= c.bound {
				return false
			}
		}
	}
	return true
}

func matchesTag(actual string, values []string) bool {
	for _, v := range values {
		if strings.EqualFold(actual, v) {
			return true
		}
	}
	return false
}
