package query

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Analysis is the structured interpretation of a free-text query: a refined,
// keyword-dense restatement plus validated filters over the closed key set.
// Ephemeral, one per request, never persisted.
type Analysis struct {
	RefinedQuery string
	Filters      Filters
}

// Filters is the closed set of structured filters the interpreter may emit.
// Category and Gender are scalar; Color and Neckline carry one value for an
// exact match or several for membership; PriceLT/PriceGT are strict bounds.
type Filters struct {
	Category string
	Gender   string
	Color    []string
	Neckline []string
	PriceLT  *float64
	PriceGT  *float64
}

// IsZero reports whether no filter is set.
func (f Filters) IsZero() bool {
	return f.Category == "" && f.Gender == "" &&
		len(f.Color) == 0 && len(f.Neckline) == 0 &&
		f.PriceLT == nil && f.PriceGT == nil
}

// ParseAnalysis validates untrusted interpreter output. Keys outside the
// closed set are dropped silently; values of unexpected shape are dropped,
// not coerced. A missing or empty refined_query falls back to the original
// query. The only hard failure is content that is not a JSON object.
func ParseAnalysis(content []byte, originalQuery string) (Analysis, error) {
	var raw struct {
		RefinedQuery string         `json:"refined_query"`
		Filters      map[string]any `json:"filters"`
	}
	if err := json.Unmarshal(content, &raw); err != nil {
		return Analysis{}, fmt.Errorf("parse analysis: %w", err)
	}

	refined := strings.TrimSpace(raw.RefinedQuery)
	if refined == "" {
		refined = originalQuery
	}

	return Analysis{
		RefinedQuery: refined,
		Filters:      parseFilters(raw.Filters),
	}, nil
}

func parseFilters(raw map[string]any) Filters {
	var f Filters
	for key, value := range raw {
		switch key {
		case "category":
			if s, ok := asString(value); ok {
				f.Category = s
			}
		case "gender":
			if s, ok := asString(value); ok {
				f.Gender = s
			}
		case "color":
			f.Color = asStringList(value)
		case "neckline":
			f.Neckline = asStringList(value)
		case "price_lt":
			if n, ok := asNumber(value); ok {
				f.PriceLT = &n
			}
		case "price_gt":
			if n, ok := asNumber(value); ok {
				f.PriceGT = &n
			}
		}
	}
	return f
}

func asString(v any) (string, bool) {
	s, ok := v.(string)
	s = strings.TrimSpace(s)
	return s, ok && s != ""
}

// asStringList accepts a scalar string or a list of strings; anything else
// (including non-string list elements) is dropped.
func asStringList(v any) []string {
	if s, ok := asString(v); ok {
		return []string{s}
	}
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		s, ok := asString(item)
		if !ok {
			return nil
		}
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func asNumber(v any) (float64, bool) {
	n, ok := v.(float64)
	return n, ok
}
