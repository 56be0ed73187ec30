package filter

import (
	"testing"

	"github.com/kailas-cloud/stylevec/internal/domain/query"
)

func TestCompile_CanonicalOrder(t *testing.T) {
	priceLT := 2000.0
	priceGT := 500.0

	p := Compile(query.Filters{
		PriceGT:  &priceGT,
		Neckline: []string{"Crew"},
		Gender:   "Women",
		PriceLT:  &priceLT,
		Color:    []string{"red"},
		Category: "Dress",
	})

	wantKeys := []string{"category", "gender", "color", "neckline", "price", "price"}
	clauses := p.Clauses()
	if len(clauses) != len(wantKeys) {
		t.Fatalf("expected %d clauses, got %d", len(wantKeys), len(clauses))
	}
	for i, want := range wantKeys {
		if clauses[i].Key() != want {
			t.Errorf("clause %d: key = %q, want %q", i, clauses[i].Key(), want)
		}
	}
	if clauses[4].Kind() != LessThan || clauses[5].Kind() != GreaterThan {
		t.Error("price bounds out of canonical order")
	}
}

func TestCompile_EquivalentFiltersCompileIdentically(t *testing.T) {
	a := Compile(query.Filters{Color: []string{"red", "blue"}, Category: "Dress"})
	b := Compile(query.Filters{Category: "Dress", Color: []string{"blue", "red"}})

	ca, cb := a.Clauses(), b.Clauses()
	if len(ca) != len(cb) {
		t.Fatalf("clause counts differ: %d vs %d", len(ca), len(cb))
	}
	for i := range ca {
		if ca[i].Key() != cb[i].Key() || ca[i].Kind() != cb[i].Kind() {
			t.Errorf("clause %d differs in key or kind", i)
		}
		va, vb := ca[i].Values(), cb[i].Values()
		if len(va) != len(vb) {
			t.Fatalf("clause %d value counts differ", i)
		}
		for j := range va {
			if va[j] != vb[j] {
				t.Errorf("clause %d value %d: %q vs %q", i, j, va[j], vb[j])
			}
		}
	}
}

func TestCompile_SortsListValues(t *testing.T) {
	p := Compile(query.Filters{Neckline: []string{"V-neck", "Crew", "Boat"}})

	c := p.Clauses()[0]
	if c.Kind() != MatchAny {
		t.Fatalf("expected MatchAny, got %v", c.Kind())
	}
	want := []string{"Boat", "Crew", "V-neck"}
	for i, v := range c.Values() {
		if v != want[i] {
			t.Errorf("values not sorted: %v", c.Values())
			break
		}
	}
}

func TestCompile_SingleValueIsMatch(t *testing.T) {
	p := Compile(query.Filters{Color: []string{"red"}})

	c := p.Clauses()[0]
	if c.Kind() != Match || len(c.Values()) != 1 || c.Values()[0] != "red" {
		t.Errorf("unexpected clause: kind=%v values=%v", c.Kind(), c.Values())
	}
}

func TestCompile_Empty(t *testing.T) {
	p := Compile(query.Filters{})
	if !p.IsEmpty() {
		t.Errorf("empty filters should compile to an empty predicate, got %d clauses", len(p.Clauses()))
	}
	if !(Predicate{}).IsEmpty() {
		t.Error("zero predicate should be empty")
	}
}

func TestMatches_Tags(t *testing.T) {
	p := Compile(query.Filters{Category: "Dress", Color: []string{"red", "blue"}})

	tests := []struct {
		name string
		tags map[string]string
		want bool
	}{
		{"exact", map[string]string{"category": "Dress", "color": "red"}, true},
		{"case insensitive", map[string]string{"category": "dress", "color": "BLUE"}, true},
		{"wrong category", map[string]string{"category": "Shirt", "color": "red"}, false},
		{"color outside set", map[string]string{"category": "Dress", "color": "green"}, false},
		{"missing field", map[string]string{"category": "Dress"}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := p.Matches(tc.tags, nil); got != tc.want {
				t.Errorf("Matches = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestMatches_PriceBoundsAreStrict(t *testing.T) {
	priceLT := 2000.0
	priceGT := 500.0
	p := Compile(query.Filters{PriceLT: &priceLT, PriceGT: &priceGT})

	tests := []struct {
		name  string
		price float64
		want  bool
	}{
		{"inside", 1000, true},
		{"on upper bound", 2000, false},
		{"on lower bound", 500, false},
		{"above", 3000, false},
		{"below", 100, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := p.Matches(nil, map[string]float64{"price": tc.price})
			if got != tc.want {
				t.Errorf("Matches(price=%v) = %v, want %v", tc.price, got, tc.want)
			}
		})
	}

	if p.Matches(nil, map[string]float64{}) {
		t.Error("record without a price field must not match a price clause")
	}
}

func TestMatches_EmptyPredicate(t *testing.T) {
	p := Compile(query.Filters{})
	if !p.Matches(map[string]string{"category": "anything"}, nil) {
		t.Error("empty predicate must match everything")
	}
	if !p.Matches(nil, nil) {
		t.Error("empty predicate must match nil fields")
	}
}
