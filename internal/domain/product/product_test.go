package product

import (
	"strings"
	"testing"
)

func validAttrs() Attributes {
	return Attributes{
		Category:   "Dress",
		Gender:     "Women",
		Summary:    "A flowy midi dress",
		Neckline:   "V-neck",
		Style:      "Casual",
		Occasion:   "Summer party",
		Price:      1999,
		Color:      "red",
		ImagePaths: []string{"/static/images/p1_0.jpg", "/static/images/p1_1.jpg"},
	}
}

func TestNew_Valid(t *testing.T) {
	rec, err := New("p1", validAttrs())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.ID() != "p1" {
		t.Errorf("unexpected id: %q", rec.ID())
	}
	if rec.PrimaryImage() != "/static/images/p1_0.jpg" {
		t.Errorf("primary image should be the first path, got %q", rec.PrimaryImage())
	}
	if rec.HasImageVector() {
		t.Error("new record must not have an image vector")
	}
}

func TestNew_IDValidation(t *testing.T) {
	tests := []struct {
		name string
		id   string
		ok   bool
	}{
		{"empty", "", false},
		{"simple", "p1", true},
		{"underscores and hyphens", "prod_123-a", true},
		{"spaces", "p 1", false},
		{"slash", "p/1", false},
		{"unicode", "платье", false},
		{"max length", strings.Repeat("a", 256), true},
		{"too long", strings.Repeat("a", 257), false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.id, validAttrs())
			if tc.ok && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tc.ok && err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestNew_AttrValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Attributes)
	}{
		{"no images", func(a *Attributes) { a.ImagePaths = nil }},
		{"empty image path", func(a *Attributes) { a.ImagePaths = []string{"/a.jpg", ""} }},
		{"negative price", func(a *Attributes) { a.Price = -1 }},
		{"oversized summary", func(a *Attributes) { a.Summary = strings.Repeat("x", MaxTextSize+1) }},
		{"oversized description", func(a *Attributes) { a.Description = strings.Repeat("x", MaxTextSize+1) }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			attrs := validAttrs()
			tc.mutate(&attrs)
			if _, err := New("p1", attrs); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestNew_ZeroPriceAllowed(t *testing.T) {
	attrs := validAttrs()
	attrs.Price = 0
	if _, err := New("p1", attrs); err != nil {
		t.Errorf("zero price should be valid: %v", err)
	}
}

func TestNew_CopiesImagePaths(t *testing.T) {
	attrs := validAttrs()
	rec, err := New("p1", attrs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	attrs.ImagePaths[0] = "mutated"
	if rec.PrimaryImage() == "mutated" {
		t.Error("record shares the caller's image path slice")
	}
}

func TestWithVectors_Immutable(t *testing.T) {
	rec, _ := New("p1", validAttrs())

	withText := rec.WithTextVector([]float32{0.1, 0.2})
	if rec.TextVector() != nil {
		t.Error("WithTextVector mutated the original")
	}
	if len(withText.TextVector()) != 2 {
		t.Error("text vector not set on the copy")
	}

	withImage := withText.WithImageVector([]float32{0.3})
	if withText.HasImageVector() {
		t.Error("WithImageVector mutated its receiver")
	}
	if !withImage.HasImageVector() {
		t.Error("image vector not set on the copy")
	}
	if len(withImage.TextVector()) != 2 {
		t.Error("WithImageVector dropped the text vector")
	}
}

func TestSearchableText(t *testing.T) {
	rec, _ := New("p1", validAttrs())

	got := rec.SearchableText()
	want := "A red Women Dress for Summer party. Style: Casual with a V-neck neckline. Details: A flowy midi dress"
	if got != want {
		t.Errorf("SearchableText = %q, want %q", got, want)
	}
}

func TestReconstruct(t *testing.T) {
	rec := Reconstruct("p1", Attributes{Category: "Dress"}, []float32{1}, []float32{2})
	if rec.ID() != "p1" || !rec.HasImageVector() || len(rec.TextVector()) != 1 {
		t.Errorf("unexpected record: %+v", rec.Attributes())
	}
}
